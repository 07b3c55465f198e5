package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/facundoguellutn/mapsy/app/db"
	appLogger "github.com/facundoguellutn/mapsy/app/logger"
	"github.com/facundoguellutn/mapsy/app/observability/metrics"
	"github.com/facundoguellutn/mapsy/app/tracer"
	"github.com/facundoguellutn/mapsy/config"
	"github.com/facundoguellutn/mapsy/internal/api/auth"
	"github.com/facundoguellutn/mapsy/internal/api/chat"
	generativeAI "github.com/facundoguellutn/mapsy/internal/api/generative_ai"
	"github.com/facundoguellutn/mapsy/internal/api/vision"
	"github.com/facundoguellutn/mapsy/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg.Mode)
	slog.SetDefault(logger)

	tracer.InitTracingAndMetrics()
	metrics.InitAppMetrics()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Database Setup ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- External Clients ---
	aiClient, err := generativeAI.NewAIClient(ctx, cfg.AI.Model, cfg.AI.Timeout)
	if err != nil {
		logger.Error("Failed to initialize Gemini client", slog.Any("error", err))
		os.Exit(1)
	}

	visionClient, err := vision.NewClient(ctx, logger)
	if err != nil {
		logger.Error("Failed to initialize Vision client", slog.Any("error", err))
		os.Exit(1)
	}
	defer visionClient.Close()

	// --- Dependency Injection ---
	secretKey := []byte(cfg.Auth.SecretKey)

	authRepo := auth.NewAuthRepo(pool, logger)
	authService := auth.NewAuthService(authRepo, logger, secretKey, cfg.Auth.Issuer, cfg.Auth.TokenExpiry)
	authHandler := auth.NewAuthHandler(authService, logger)

	chatRepo := chat.NewChatRepo(pool, logger)
	chatService := chat.NewChatService(chatRepo, aiClient, visionClient, logger)
	chatHandler := chat.NewChatHandler(chatService, logger, cfg.AI.MaxUploadBytes)

	visionHandler := vision.NewVisionHandler(visionClient, logger, cfg.AI.MaxUploadBytes)

	// --- Router Setup ---
	mainRouter := router.SetupRouter(&router.Config{
		AuthHandler:            authHandler,
		ChatHandler:            chatHandler,
		VisionHandler:          visionHandler,
		AuthenticateMiddleware: auth.Authenticate(logger, secretKey),
	})

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Compress(5, "application/json"))

	mux.Mount("/", mainRouter)

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger(mode string) *slog.Logger {
	var logger *slog.Logger

	if mode == "development" || mode == "" {
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
