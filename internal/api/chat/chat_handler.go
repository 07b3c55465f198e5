package chat

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/facundoguellutn/mapsy/internal/api"
	"github.com/facundoguellutn/mapsy/internal/api/auth"
	"github.com/facundoguellutn/mapsy/internal/api/vision"
	"github.com/facundoguellutn/mapsy/internal/types"
)

const (
	defaultSessionsLimit = 20
	defaultMessagesLimit = 50
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	CreateSession(w http.ResponseWriter, r *http.Request)
	ListSessions(w http.ResponseWriter, r *http.Request)
	GetMessages(w http.ResponseWriter, r *http.Request)
	SendMessage(w http.ResponseWriter, r *http.Request)
	UploadImage(w http.ResponseWriter, r *http.Request)
	GetRecommendations(w http.ResponseWriter, r *http.Request)
	UpdateSession(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	chatService    ChatService
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewChatHandler(chatService ChatService, logger *slog.Logger, maxUploadBytes int64) *HandlerImpl {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &HandlerImpl{
		chatService:    chatService,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

type createSessionRequest struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type recommendationsRequest struct {
	CurrentLandmark string `json:"currentLandmark"`
}

// sessionIDParam parses the sessionId path parameter. Malformed ids get the
// same 404 a missing session would, so ids cannot be probed.
func sessionIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionId"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusNotFound, "Chat session not found")
		return uuid.Nil, false
	}
	return sessionID, true
}

func (h *HandlerImpl) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "CreateSession", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chat/sessions"),
	))
	defer span.End()
	r = r.WithContext(ctx)

	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	var req createSessionRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, welcome, err := h.chatService.CreateSession(ctx, userID, req.Country, req.City)
	if err != nil {
		span.RecordError(err)
		api.HandleServiceError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusCreated, "", map[string]interface{}{
		"session":        session,
		"welcomeMessage": welcome,
	})
}

func (h *HandlerImpl) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "ListSessions", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chat/sessions"),
	))
	defer span.End()
	r = r.WithContext(ctx)

	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	page, limit := api.ParsePagination(r, defaultSessionsLimit)

	sessions, pagination, err := h.chatService.ListSessions(ctx, userID, page, limit)
	if err != nil {
		span.RecordError(err)
		api.HandleServiceError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "", map[string]interface{}{
		"sessions":   sessions,
		"pagination": pagination,
	})
}

func (h *HandlerImpl) GetMessages(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "GetMessages", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chat/sessions/{sessionId}/messages"),
	))
	defer span.End()
	r = r.WithContext(ctx)

	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	page, limit := api.ParsePagination(r, defaultMessagesLimit)

	session, messages, pagination, err := h.chatService.GetMessages(ctx, sessionID, userID, page, limit)
	if err != nil {
		span.RecordError(err)
		api.HandleServiceError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "", map[string]interface{}{
		"session":    session,
		"messages":   messages,
		"pagination": pagination,
	})
}

func (h *HandlerImpl) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "SendMessage", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chat/sessions/{sessionId}/messages"),
	))
	defer span.End()
	r = r.WithContext(ctx)

	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	userMsg, assistantMsg, err := h.chatService.SendTextMessage(ctx, sessionID, userID, req.Content)
	if err != nil {
		span.RecordError(err)
		api.HandleServiceError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "", map[string]interface{}{
		"userMessage":      userMsg,
		"assistantMessage": assistantMsg,
	})
}

func (h *HandlerImpl) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "UploadImage", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chat/sessions/{sessionId}/images"),
	))
	defer span.End()
	r = r.WithContext(ctx)

	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	imageData, ok := vision.ReadImageUpload(w, r, h.maxUploadBytes)
	if !ok {
		return
	}

	userMsg, assistantMsg, landmarkInfo, err := h.chatService.SendImageMessage(ctx, sessionID, userID, imageData)
	if err != nil {
		span.RecordError(err)
		api.HandleServiceError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "", map[string]interface{}{
		"userMessage":      userMsg,
		"assistantMessage": assistantMsg,
		"landmarkInfo":     landmarkInfo,
	})
}

func (h *HandlerImpl) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "GetRecommendations", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chat/sessions/{sessionId}/recommendations"),
	))
	defer span.End()
	r = r.WithContext(ctx)

	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	// currentLandmark is optional, so an empty body is accepted.
	var req recommendationsRequest
	if r.ContentLength != 0 {
		if err := api.DecodeJSONBody(w, r, &req); err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	msg, recommendations, err := h.chatService.GenerateRecommendations(ctx, sessionID, userID, req.CurrentLandmark)
	if err != nil {
		span.RecordError(err)
		api.HandleServiceError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "", map[string]interface{}{
		"message":         msg,
		"recommendations": recommendations,
	})
}

func (h *HandlerImpl) UpdateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "UpdateSession", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chat/sessions/{sessionId}"),
	))
	defer span.End()
	r = r.WithContext(ctx)

	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var update types.SessionUpdate
	if err := api.DecodeJSONBody(w, r, &update); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.chatService.UpdateSession(ctx, sessionID, userID, update)
	if err != nil {
		span.RecordError(err)
		api.HandleServiceError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "", session)
}
