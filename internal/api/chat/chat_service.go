package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"

	"github.com/facundoguellutn/mapsy/app/observability/metrics"
	generativeAI "github.com/facundoguellutn/mapsy/internal/api/generative_ai"
	"github.com/facundoguellutn/mapsy/internal/api/vision"
	"github.com/facundoguellutn/mapsy/internal/types"
)

const (
	narrativeTemperature float32 = 0.7
	narrativeMaxTokens   int32   = 800

	recommendationTemperature float32 = 0.6
	recommendationMaxTokens   int32   = 600

	questionTemperature float32 = 0.5
	questionMaxTokens   int32   = 500
)

const (
	emptyNarrativeFallback = "Lo siento, no pude generar una respuesta en este momento."
	emptyAnswerFallback    = "Lo siento, no pude responder tu pregunta en este momento."
)

var _ ChatService = (*ChatServiceImpl)(nil)

type ChatService interface {
	// CreateSession opens a session and seeds it with the welcome message.
	CreateSession(ctx context.Context, userID uuid.UUID, country, city string) (*types.ChatSession, *types.ChatMessage, error)

	ListSessions(ctx context.Context, userID uuid.UUID, page, limit int) ([]types.ChatSessionPreview, *types.Pagination, error)
	GetMessages(ctx context.Context, sessionID, userID uuid.UUID, page, limit int) (*types.ChatSession, []types.ChatMessage, *types.Pagination, error)

	// SendTextMessage persists the user's message and an assistant reply.
	// A failed generation degrades to a stored system apology, not an error.
	SendTextMessage(ctx context.Context, sessionID, userID uuid.UUID, content string) (*types.ChatMessage, *types.ChatMessage, error)

	// SendImageMessage runs the image through the classifier and replies with
	// a guide narrative. The user message is stored with processing=true up
	// front and always resolves to processing=false.
	SendImageMessage(ctx context.Context, sessionID, userID uuid.UUID, imageData []byte) (*types.ChatMessage, *types.ChatMessage, *types.LandmarkDetection, error)

	// GenerateRecommendations asks for three nearby places and persists them
	// as a recommendation message. Generation failure here is a hard error.
	GenerateRecommendations(ctx context.Context, sessionID, userID uuid.UUID, currentLandmark string) (*types.ChatMessage, []types.PlaceRecommendation, error)

	UpdateSession(ctx context.Context, sessionID, userID uuid.UUID, update types.SessionUpdate) (*types.ChatSession, error)
}

type ChatServiceImpl struct {
	logger   *slog.Logger
	repo     ChatRepo
	ai       generativeAI.Client
	detector vision.Detector
}

func NewChatService(repo ChatRepo, ai generativeAI.Client, detector vision.Detector, logger *slog.Logger) *ChatServiceImpl {
	return &ChatServiceImpl{
		logger:   logger,
		repo:     repo,
		ai:       ai,
		detector: detector,
	}
}

func (s *ChatServiceImpl) CreateSession(ctx context.Context, userID uuid.UUID, country, city string) (*types.ChatSession, *types.ChatMessage, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "CreateSession")
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateSession"), slog.String("userID", userID.String()))

	country = strings.TrimSpace(country)
	city = strings.TrimSpace(city)
	if country == "" || city == "" {
		return nil, nil, fmt.Errorf("country and city are required: %w", types.ErrValidation)
	}

	session, err := s.repo.CreateSession(ctx, userID, country, city)
	if err != nil {
		return nil, nil, err
	}

	welcome, err := s.repo.CreateMessage(ctx, &types.ChatMessage{
		SessionID: session.ID,
		Type:      types.MessageTypeSystem,
		Content:   welcomeMessageContent(city, country),
		Sender:    types.SenderAssistant,
	})
	if err != nil {
		return nil, nil, err
	}

	l.InfoContext(ctx, "Chat session created",
		slog.String("sessionID", session.ID.String()),
		slog.String("city", city), slog.String("country", country))
	return session, welcome, nil
}

func (s *ChatServiceImpl) ListSessions(ctx context.Context, userID uuid.UUID, page, limit int) ([]types.ChatSessionPreview, *types.Pagination, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "ListSessions")
	defer span.End()

	previews, total, err := s.repo.ListSessions(ctx, userID, page, limit)
	if err != nil {
		return nil, nil, err
	}
	return previews, types.NewPagination(page, limit, total), nil
}

func (s *ChatServiceImpl) GetMessages(ctx context.Context, sessionID, userID uuid.UUID, page, limit int) (*types.ChatSession, []types.ChatMessage, *types.Pagination, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "GetMessages")
	defer span.End()

	session, err := s.repo.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, nil, nil, err
	}

	messages, total, err := s.repo.ListMessages(ctx, sessionID, page, limit)
	if err != nil {
		return nil, nil, nil, err
	}
	return session, messages, types.NewPagination(page, limit, total), nil
}

func (s *ChatServiceImpl) SendTextMessage(ctx context.Context, sessionID, userID uuid.UUID, content string) (*types.ChatMessage, *types.ChatMessage, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "SendTextMessage")
	defer span.End()

	l := s.logger.With(slog.String("method", "SendTextMessage"), slog.String("sessionID", sessionID.String()))

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil, fmt.Errorf("message content is required: %w", types.ErrValidation)
	}

	session, err := s.repo.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, nil, err
	}

	userMsg, err := s.repo.CreateMessage(ctx, &types.ChatMessage{
		SessionID: sessionID,
		Type:      types.MessageTypeText,
		Content:   content,
		Sender:    types.SenderUser,
	})
	if err != nil {
		return nil, nil, err
	}

	guideCtx := GuideContext{Country: session.Country, City: session.City}
	reply, err := s.generate(ctx, "question", buildQuestionPrompt(guideCtx, content), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(questionTemperature),
		MaxOutputTokens: questionMaxTokens,
	})
	if err != nil {
		l.WarnContext(ctx, "Reply generation failed, storing apology", slog.Any("error", err))
		span.RecordError(err)

		apology, saveErr := s.repo.CreateMessage(ctx, &types.ChatMessage{
			SessionID: sessionID,
			Type:      types.MessageTypeSystem,
			Content:   textApologyContent,
			Sender:    types.SenderAssistant,
		})
		if saveErr != nil {
			return nil, nil, saveErr
		}
		return userMsg, apology, nil
	}
	if reply == "" {
		reply = emptyAnswerFallback
	}

	assistantMsg, err := s.repo.CreateMessage(ctx, &types.ChatMessage{
		SessionID: sessionID,
		Type:      types.MessageTypeText,
		Content:   reply,
		Sender:    types.SenderAssistant,
	})
	if err != nil {
		return nil, nil, err
	}

	return userMsg, assistantMsg, nil
}

func (s *ChatServiceImpl) SendImageMessage(ctx context.Context, sessionID, userID uuid.UUID, imageData []byte) (*types.ChatMessage, *types.ChatMessage, *types.LandmarkDetection, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "SendImageMessage")
	defer span.End()

	l := s.logger.With(slog.String("method", "SendImageMessage"), slog.String("sessionID", sessionID.String()))

	session, err := s.repo.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, nil, nil, err
	}

	processing := true
	userMsg, err := s.repo.CreateMessage(ctx, &types.ChatMessage{
		SessionID:  sessionID,
		Type:       types.MessageTypeImage,
		Content:    imagePlaceholder,
		Sender:     types.SenderUser,
		Processing: &processing,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	// The placeholder is now visible with processing=true. From here on the
	// pipeline must run to completion even if the caller disconnects, so the
	// flag never sticks.
	ctx = context.WithoutCancel(ctx)

	landmarkInfo, err := s.detector.DetectImage(ctx, imageData)
	if err != nil {
		l.WarnContext(ctx, "Image analysis failed, storing apology", slog.Any("error", err))
		span.RecordError(err)
		return s.failImageMessage(ctx, userMsg)
	}

	if err := s.repo.FinishImageAnalysis(ctx, userMsg.ID, landmarkInfo); err != nil {
		return nil, nil, nil, err
	}
	done := false
	userMsg.Processing = &done
	userMsg.LandmarkInfo = landmarkInfo

	guideCtx := GuideContext{
		Country:      session.Country,
		City:         session.City,
		LandmarkInfo: landmarkInfo,
	}

	var reply string
	switch {
	case len(landmarkInfo.Landmarks) > 0:
		guideCtx.LandmarkName = landmarkInfo.Landmarks[0].Description
		reply, err = s.generateNarrative(ctx, guideCtx)
		if err == nil {
			if titleErr := s.repo.SetSessionTitleIfEmpty(ctx, sessionID, "Chat sobre "+guideCtx.LandmarkName); titleErr != nil {
				l.WarnContext(ctx, "Failed to set session title", slog.Any("error", titleErr))
			}
		}

	case landmarkInfo.WebDetection != nil && len(landmarkInfo.WebDetection.BestGuessLabels) > 0:
		guideCtx.LandmarkName = landmarkInfo.WebDetection.BestGuessLabels[0].Label
		reply, err = s.generateNarrative(ctx, guideCtx)

	default:
		reply = unrecognizedImageContent(session.City, session.Country)
	}
	if err != nil {
		l.WarnContext(ctx, "Narrative generation failed, storing apology", slog.Any("error", err))
		span.RecordError(err)
		return s.failImageMessage(ctx, userMsg)
	}

	assistantMsg, err := s.repo.CreateMessage(ctx, &types.ChatMessage{
		SessionID: sessionID,
		Type:      types.MessageTypeText,
		Content:   reply,
		Sender:    types.SenderAssistant,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	span.SetAttributes(attribute.Int("vision.landmarks", len(landmarkInfo.Landmarks)))
	return userMsg, assistantMsg, landmarkInfo, nil
}

// failImageMessage resolves the placeholder and stores the image apology.
// The annotation payload, if any was attached earlier, is kept.
func (s *ChatServiceImpl) failImageMessage(ctx context.Context, userMsg *types.ChatMessage) (*types.ChatMessage, *types.ChatMessage, *types.LandmarkDetection, error) {
	if err := s.repo.FinishImageAnalysis(ctx, userMsg.ID, nil); err != nil {
		return nil, nil, nil, err
	}
	done := false
	userMsg.Processing = &done

	apology, err := s.repo.CreateMessage(ctx, &types.ChatMessage{
		SessionID: userMsg.SessionID,
		Type:      types.MessageTypeSystem,
		Content:   imageApologyContent,
		Sender:    types.SenderAssistant,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return userMsg, apology, userMsg.LandmarkInfo, nil
}

func (s *ChatServiceImpl) GenerateRecommendations(ctx context.Context, sessionID, userID uuid.UUID, currentLandmark string) (*types.ChatMessage, []types.PlaceRecommendation, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "GenerateRecommendations")
	defer span.End()

	l := s.logger.With(slog.String("method", "GenerateRecommendations"), slog.String("sessionID", sessionID.String()))

	session, err := s.repo.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, nil, err
	}

	guideCtx := GuideContext{Country: session.Country, City: session.City}
	reply, err := s.generate(ctx, "recommendations", buildRecommendationPrompt(guideCtx, currentLandmark), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(recommendationTemperature),
		MaxOutputTokens: recommendationMaxTokens,
	})
	if err != nil {
		l.ErrorContext(ctx, "Recommendation generation failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Recommendation generation failed")
		return nil, nil, fmt.Errorf("%w: %s", types.ErrUpstream, err)
	}

	recommendations := parseRecommendations(reply)
	if len(recommendations) == 0 {
		l.WarnContext(ctx, "No parseable recommendations in reply")
	}

	msg, err := s.repo.CreateMessage(ctx, &types.ChatMessage{
		SessionID:       sessionID,
		Type:            types.MessageTypeRecommendation,
		Content:         fmt.Sprintf("Aquí tienes algunas recomendaciones de lugares cercanos para visitar en %s:", session.City),
		Sender:          types.SenderAssistant,
		Recommendations: recommendations,
	})
	if err != nil {
		return nil, nil, err
	}

	return msg, recommendations, nil
}

func (s *ChatServiceImpl) UpdateSession(ctx context.Context, sessionID, userID uuid.UUID, update types.SessionUpdate) (*types.ChatSession, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "UpdateSession")
	defer span.End()

	if update.Title != nil {
		trimmed := strings.TrimSpace(*update.Title)
		if trimmed == "" {
			update.Title = nil
		} else {
			update.Title = &trimmed
		}
	}
	return s.repo.UpdateSession(ctx, sessionID, userID, update)
}

func (s *ChatServiceImpl) generateNarrative(ctx context.Context, guideCtx GuideContext) (string, error) {
	reply, err := s.generate(ctx, "narrative", buildTouristPrompt(guideCtx, ""), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(narrativeTemperature),
		MaxOutputTokens: narrativeMaxTokens,
	})
	if err != nil {
		return "", err
	}
	if reply == "" {
		reply = emptyNarrativeFallback
	}
	return reply, nil
}

// generate wraps the model call with duration and error instrumentation.
func (s *ChatServiceImpl) generate(ctx context.Context, action, prompt string, config *genai.GenerateContentConfig) (string, error) {
	start := time.Now()
	reply, err := s.ai.GenerateContent(ctx, prompt, config)

	attrs := metric.WithAttributes(attribute.String("action", action))
	metrics.Get().AIRequestDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		metrics.Get().AIRequestErrorsTotal.Add(ctx, 1, attrs)
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
