package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/facundoguellutn/mapsy/internal/api"
	"github.com/facundoguellutn/mapsy/internal/api/auth"
	"github.com/facundoguellutn/mapsy/internal/api/chat"
	"github.com/facundoguellutn/mapsy/internal/api/vision"
)

// Config contains the handlers and middleware the router wires together.
type Config struct {
	AuthHandler            auth.Handler
	ChatHandler            chat.Handler
	VisionHandler          vision.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Mapsy API is running"))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.SuccessResponse(w, r, http.StatusOK, "OK", nil)
	})

	// Public auth routes
	r.Group(func(r chi.Router) {
		r.Post("/auth/register", cfg.AuthHandler.Register)
		r.Post("/auth/login", cfg.AuthHandler.Login)
	})

	// Protected auth routes
	r.Group(func(r chi.Router) {
		r.Use(cfg.AuthenticateMiddleware)

		r.Get("/auth/me", cfg.AuthHandler.Me)
		r.Patch("/auth/onboarding", cfg.AuthHandler.UpdateOnboarding)
		r.Post("/auth/logout", cfg.AuthHandler.Logout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cfg.AuthenticateMiddleware)

		r.Route("/chat/sessions", func(r chi.Router) {
			r.Post("/", cfg.ChatHandler.CreateSession)
			r.Get("/", cfg.ChatHandler.ListSessions)
			r.Patch("/{sessionId}", cfg.ChatHandler.UpdateSession)
			r.Get("/{sessionId}/messages", cfg.ChatHandler.GetMessages)
			r.Post("/{sessionId}/messages", cfg.ChatHandler.SendMessage)
			r.Post("/{sessionId}/images", cfg.ChatHandler.UploadImage)
			r.Post("/{sessionId}/recommendations", cfg.ChatHandler.GetRecommendations)
		})

		r.Post("/vision/detect-landmark", cfg.VisionHandler.DetectLandmark)
	})

	return r
}
