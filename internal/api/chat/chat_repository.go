package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/facundoguellutn/mapsy/app/db"
	"github.com/facundoguellutn/mapsy/app/observability/metrics"
	"github.com/facundoguellutn/mapsy/internal/types"
)

var _ ChatRepo = (*ChatRepoImpl)(nil)

type ChatRepo interface {
	CreateSession(ctx context.Context, userID uuid.UUID, country, city string) (*types.ChatSession, error)

	// GetSession returns the session only when it belongs to userID;
	// everything else is ErrNotFound.
	GetSession(ctx context.Context, sessionID, userID uuid.UUID) (*types.ChatSession, error)

	ListSessions(ctx context.Context, userID uuid.UUID, page, limit int) ([]types.ChatSessionPreview, int, error)
	UpdateSession(ctx context.Context, sessionID, userID uuid.UUID, update types.SessionUpdate) (*types.ChatSession, error)

	// SetSessionTitleIfEmpty sets the title only when none exists yet.
	SetSessionTitleIfEmpty(ctx context.Context, sessionID uuid.UUID, title string) error

	CreateMessage(ctx context.Context, msg *types.ChatMessage) (*types.ChatMessage, error)
	ListMessages(ctx context.Context, sessionID uuid.UUID, page, limit int) ([]types.ChatMessage, int, error)

	// FinishImageAnalysis clears the processing flag and, when detection
	// succeeded, attaches the annotation payload to the message.
	FinishImageAnalysis(ctx context.Context, messageID uuid.UUID, landmarkInfo *types.LandmarkDetection) error
}

type ChatRepoImpl struct {
	logger *slog.Logger
	pgpool database.Querier
}

func NewChatRepo(pgpool database.Querier, logger *slog.Logger) *ChatRepoImpl {
	return &ChatRepoImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

const sessionColumns = `id, user_id, country, city, title, is_active, created_at, updated_at`

func scanSession(row pgx.Row) (*types.ChatSession, error) {
	var s types.ChatSession
	err := row.Scan(&s.ID, &s.UserID, &s.Country, &s.City, &s.Title, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ChatRepoImpl) observeQuery(ctx context.Context, table string, start time.Time) {
	metrics.Get().DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("db.sql.table", table)))
}

func (r *ChatRepoImpl) CreateSession(ctx context.Context, userID uuid.UUID, country, city string) (*types.ChatSession, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "CreateSession", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "chat_sessions"),
	))
	defer span.End()
	defer r.observeQuery(ctx, "chat_sessions", time.Now())

	query := fmt.Sprintf(`
        INSERT INTO chat_sessions (user_id, country, city)
        VALUES ($1, $2, $3)
        RETURNING %s`, sessionColumns)

	session, err := scanSession(r.pgpool.QueryRow(ctx, query, userID, country, city))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to insert chat session")
		return nil, fmt.Errorf("failed to insert chat session: %w", err)
	}

	span.SetAttributes(attribute.String("session.id", session.ID.String()))
	return session, nil
}

func (r *ChatRepoImpl) GetSession(ctx context.Context, sessionID, userID uuid.UUID) (*types.ChatSession, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "GetSession", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "chat_sessions"),
		attribute.String("session.id", sessionID.String()),
	))
	defer span.End()
	defer r.observeQuery(ctx, "chat_sessions", time.Now())

	query := fmt.Sprintf(`SELECT %s FROM chat_sessions WHERE id = $1 AND user_id = $2`, sessionColumns)
	session, err := scanSession(r.pgpool.QueryRow(ctx, query, sessionID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("chat session %s: %w", sessionID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch chat session")
		return nil, fmt.Errorf("failed to fetch chat session: %w", err)
	}
	return session, nil
}

func (r *ChatRepoImpl) ListSessions(ctx context.Context, userID uuid.UUID, page, limit int) ([]types.ChatSessionPreview, int, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "ListSessions", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "chat_sessions"),
		attribute.Int("page", page),
		attribute.Int("limit", limit),
	))
	defer span.End()
	defer r.observeQuery(ctx, "chat_sessions", time.Now())

	offset := (page - 1) * limit

	query := `
        SELECT s.id, s.country, s.city, s.title, s.is_active, s.created_at, s.updated_at,
               m.id, m.content, m.type, m.sender, m.timestamp
        FROM chat_sessions s
        LEFT JOIN LATERAL (
            SELECT id, content, type, sender, timestamp
            FROM chat_messages
            WHERE session_id = s.id
            ORDER BY timestamp DESC
            LIMIT 1
        ) m ON true
        WHERE s.user_id = $1
        ORDER BY s.created_at DESC
        LIMIT $2 OFFSET $3`

	rows, err := r.pgpool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list chat sessions")
		return nil, 0, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	defer rows.Close()

	previews := make([]types.ChatSessionPreview, 0, limit)
	for rows.Next() {
		var p types.ChatSessionPreview
		var (
			msgID        *uuid.UUID
			msgContent   *string
			msgType      *types.MessageType
			msgSender    *types.MessageSender
			msgTimestamp *time.Time
		)
		err := rows.Scan(
			&p.ID, &p.Country, &p.City, &p.Title, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
			&msgID, &msgContent, &msgType, &msgSender, &msgTimestamp,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan session preview: %w", err)
		}
		if msgID != nil {
			p.LastMessage = &types.ChatMessagePreview{
				ID:        *msgID,
				Content:   *msgContent,
				Type:      *msgType,
				Sender:    *msgSender,
				Timestamp: *msgTimestamp,
			}
		}
		previews = append(previews, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate session previews: %w", err)
	}

	var total int
	err = r.pgpool.QueryRow(ctx, `SELECT count(*) FROM chat_sessions WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count chat sessions: %w", err)
	}

	return previews, total, nil
}

func (r *ChatRepoImpl) UpdateSession(ctx context.Context, sessionID, userID uuid.UUID, update types.SessionUpdate) (*types.ChatSession, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "UpdateSession", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "chat_sessions"),
		attribute.String("session.id", sessionID.String()),
	))
	defer span.End()
	defer r.observeQuery(ctx, "chat_sessions", time.Now())

	query := fmt.Sprintf(`
        UPDATE chat_sessions
        SET is_active = COALESCE($3, is_active),
            title = COALESCE($4, title),
            updated_at = now()
        WHERE id = $1 AND user_id = $2
        RETURNING %s`, sessionColumns)

	session, err := scanSession(r.pgpool.QueryRow(ctx, query, sessionID, userID, update.IsActive, update.Title))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("chat session %s: %w", sessionID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update chat session")
		return nil, fmt.Errorf("failed to update chat session: %w", err)
	}
	return session, nil
}

func (r *ChatRepoImpl) SetSessionTitleIfEmpty(ctx context.Context, sessionID uuid.UUID, title string) error {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "SetSessionTitleIfEmpty", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "chat_sessions"),
	))
	defer span.End()
	defer r.observeQuery(ctx, "chat_sessions", time.Now())

	_, err := r.pgpool.Exec(ctx,
		`UPDATE chat_sessions SET title = $2, updated_at = now() WHERE id = $1 AND title IS NULL`,
		sessionID, title)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to set session title")
		return fmt.Errorf("failed to set session title: %w", err)
	}
	return nil
}

func (r *ChatRepoImpl) CreateMessage(ctx context.Context, msg *types.ChatMessage) (*types.ChatMessage, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "CreateMessage", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "chat_messages"),
		attribute.String("message.type", string(msg.Type)),
	))
	defer span.End()
	defer r.observeQuery(ctx, "chat_messages", time.Now())

	var recommendations any
	if msg.Recommendations != nil {
		recommendations = msg.Recommendations
	}

	query := `
        INSERT INTO chat_messages (session_id, type, content, sender, landmark_info, recommendations, processing)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, timestamp`

	saved := *msg
	err := r.pgpool.QueryRow(ctx, query,
		msg.SessionID, msg.Type, msg.Content, msg.Sender,
		msg.LandmarkInfo, recommendations, msg.Processing,
	).Scan(&saved.ID, &saved.Timestamp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to insert chat message")
		return nil, fmt.Errorf("failed to insert chat message: %w", err)
	}

	metrics.Get().ChatMessagesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("message.type", string(msg.Type))))
	return &saved, nil
}

func (r *ChatRepoImpl) ListMessages(ctx context.Context, sessionID uuid.UUID, page, limit int) ([]types.ChatMessage, int, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "ListMessages", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "chat_messages"),
		attribute.String("session.id", sessionID.String()),
	))
	defer span.End()
	defer r.observeQuery(ctx, "chat_messages", time.Now())

	offset := (page - 1) * limit

	query := `
        SELECT id, session_id, type, content, sender, landmark_info, recommendations, processing, timestamp
        FROM chat_messages
        WHERE session_id = $1
        ORDER BY timestamp ASC
        LIMIT $2 OFFSET $3`

	rows, err := r.pgpool.Query(ctx, query, sessionID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list chat messages")
		return nil, 0, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]types.ChatMessage, 0, limit)
	for rows.Next() {
		var m types.ChatMessage
		err := rows.Scan(
			&m.ID, &m.SessionID, &m.Type, &m.Content, &m.Sender,
			&m.LandmarkInfo, &m.Recommendations, &m.Processing, &m.Timestamp,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate chat messages: %w", err)
	}

	var total int
	err = r.pgpool.QueryRow(ctx, `SELECT count(*) FROM chat_messages WHERE session_id = $1`, sessionID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count chat messages: %w", err)
	}

	return messages, total, nil
}

func (r *ChatRepoImpl) FinishImageAnalysis(ctx context.Context, messageID uuid.UUID, landmarkInfo *types.LandmarkDetection) error {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "FinishImageAnalysis", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "chat_messages"),
		attribute.String("message.id", messageID.String()),
	))
	defer span.End()
	defer r.observeQuery(ctx, "chat_messages", time.Now())

	_, err := r.pgpool.Exec(ctx,
		`UPDATE chat_messages SET landmark_info = COALESCE($2, landmark_info), processing = false WHERE id = $1`,
		messageID, landmarkInfo)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to finish image analysis")
		return fmt.Errorf("failed to finish image analysis: %w", err)
	}
	return nil
}
