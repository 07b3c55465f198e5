package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/facundoguellutn/mapsy/internal/api"
	"github.com/facundoguellutn/mapsy/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
	UpdateOnboarding(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	authService AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		authService: authService,
		logger:      logger,
	}
}

func validateRegister(req *types.RegisterRequest) []types.FieldError {
	var errs []types.FieldError
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		errs = append(errs, types.FieldError{Field: "email", Message: "Email must be valid"})
	}
	if len(req.Password) < 6 {
		errs = append(errs, types.FieldError{Field: "password", Message: "Password must be at least 6 characters"})
	}
	if len(req.Name) < 2 {
		errs = append(errs, types.FieldError{Field: "name", Message: "Name must be at least 2 characters"})
	}
	return errs
}

func validateLogin(req *types.LoginRequest) []types.FieldError {
	var errs []types.FieldError
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		errs = append(errs, types.FieldError{Field: "email", Message: "Email must be valid"})
	}
	if req.Password == "" {
		errs = append(errs, types.FieldError{Field: "password", Message: "Password is required"})
	}
	return errs
}

func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Register", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/auth/register"),
	))
	defer span.End()
	r = r.WithContext(ctx)

	l := h.logger.With(slog.String("handler", "Register"))

	var req types.RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if errs := validateRegister(&req); len(errs) > 0 {
		api.ValidationErrorResponse(w, r, errs)
		return
	}

	token, user, err := h.authService.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		l.WarnContext(ctx, "Registration failed", slog.Any("error", err))
		span.RecordError(err)
		api.HandleServiceError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusCreated, "User registered successfully", types.AuthPayload{
		Token: token,
		User:  user,
	})
}

func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Login", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/auth/login"),
	))
	defer span.End()
	r = r.WithContext(ctx)

	l := h.logger.With(slog.String("handler", "Login"))

	var req types.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if errs := validateLogin(&req); len(errs) > 0 {
		api.ValidationErrorResponse(w, r, errs)
		return
	}

	token, user, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		l.WarnContext(ctx, "Login failed", slog.Any("error", err))
		span.RecordError(err)
		api.HandleServiceError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "Login successful", types.AuthPayload{
		Token: token,
		User:  user,
	})
}

func (h *HandlerImpl) Me(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Me", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/auth/me"),
	))
	defer span.End()
	r = r.WithContext(ctx)

	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.authService.GetUserByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		api.HandleServiceError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "", map[string]interface{}{"user": user})
}

func (h *HandlerImpl) UpdateOnboarding(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "UpdateOnboarding", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/auth/onboarding"),
	))
	defer span.End()
	r = r.WithContext(ctx)

	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	var req types.OnboardingRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.OnboardingCompleted == nil {
		api.ValidationErrorResponse(w, r, []types.FieldError{
			{Field: "onboardingCompleted", Message: "onboardingCompleted must be a boolean"},
		})
		return
	}

	user, err := h.authService.UpdateOnboarding(ctx, userID, *req.OnboardingCompleted)
	if err != nil {
		span.RecordError(err)
		api.HandleServiceError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "Onboarding status updated", map[string]interface{}{"user": user})
}

// Logout only acknowledges; JWTs are stateless and discarded client-side.
func (h *HandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	api.SuccessResponse(w, r, http.StatusOK, "Logged out successfully", nil)
}

// RequireUserID pulls the authenticated user id out of the request context.
// Writes a 401 and returns ok=false when it is missing or malformed.
func RequireUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userIDStr, ok := GetUserIDFromContext(r.Context())
	if !ok || userIDStr == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	return userID, true
}
