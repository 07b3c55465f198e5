package chat

import (
	"context"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facundoguellutn/mapsy/internal/types"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *ChatRepoImpl) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, NewChatRepo(mockPool, slog.Default())
}

func TestChatRepoCreateSession(t *testing.T) {
	mockPool, repo := newMockRepo(t)
	ctx := context.Background()

	userID := uuid.New()
	sessionID := uuid.New()
	now := time.Now()

	mockPool.ExpectQuery(regexp.QuoteMeta("INSERT INTO chat_sessions")).
		WithArgs(userID, "España", "Madrid").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "country", "city", "title", "is_active", "created_at", "updated_at",
		}).AddRow(sessionID, userID, "España", "Madrid", nil, true, now, now))

	session, err := repo.CreateSession(ctx, userID, "España", "Madrid")

	require.NoError(t, err)
	assert.Equal(t, sessionID, session.ID)
	assert.Equal(t, "Madrid", session.City)
	assert.Nil(t, session.Title)
	assert.True(t, session.IsActive)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestChatRepoGetSession(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		sessionID := uuid.New()
		userID := uuid.New()

		mockPool.ExpectQuery(regexp.QuoteMeta("SELECT")).
			WithArgs(sessionID, userID).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "user_id", "country", "city", "title", "is_active", "created_at", "updated_at",
			}))

		_, err := repo.GetSession(context.Background(), sessionID, userID)

		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestChatRepoSetSessionTitleIfEmpty(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	sessionID := uuid.New()

	mockPool.ExpectExec(regexp.QuoteMeta("UPDATE chat_sessions SET title")).
		WithArgs(sessionID, "Chat sobre Palacio Real").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.SetSessionTitleIfEmpty(context.Background(), sessionID, "Chat sobre Palacio Real")

	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestChatRepoCreateMessage(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	sessionID := uuid.New()
	messageID := uuid.New()
	now := time.Now()
	processing := true

	mockPool.ExpectQuery(regexp.QuoteMeta("INSERT INTO chat_messages")).
		WithArgs(sessionID, types.MessageTypeImage, imagePlaceholder, types.SenderUser,
			(*types.LandmarkDetection)(nil), nil, &processing).
		WillReturnRows(pgxmock.NewRows([]string{"id", "timestamp"}).AddRow(messageID, now))

	saved, err := repo.CreateMessage(context.Background(), &types.ChatMessage{
		SessionID:  sessionID,
		Type:       types.MessageTypeImage,
		Content:    imagePlaceholder,
		Sender:     types.SenderUser,
		Processing: &processing,
	})

	require.NoError(t, err)
	assert.Equal(t, messageID, saved.ID)
	assert.Equal(t, now, saved.Timestamp)
	assert.Equal(t, imagePlaceholder, saved.Content)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestChatRepoFinishImageAnalysis(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	messageID := uuid.New()
	detection := &types.LandmarkDetection{
		Landmarks: []types.Landmark{{Description: "Palacio Real", Score: 0.92}},
	}

	mockPool.ExpectExec(regexp.QuoteMeta("UPDATE chat_messages SET landmark_info")).
		WithArgs(messageID, detection).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.FinishImageAnalysis(context.Background(), messageID, detection)

	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestChatRepoListMessages(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	sessionID := uuid.New()
	first := time.Now().Add(-time.Minute)
	second := time.Now()

	mockPool.ExpectQuery(regexp.QuoteMeta("FROM chat_messages")).
		WithArgs(sessionID, 50, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "session_id", "type", "content", "sender", "landmark_info", "recommendations", "processing", "timestamp",
		}).
			AddRow(uuid.New(), sessionID, types.MessageTypeSystem, "bienvenida", types.SenderAssistant, nil, nil, nil, first).
			AddRow(uuid.New(), sessionID, types.MessageTypeText, "hola", types.SenderUser, nil, nil, nil, second))

	mockPool.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM chat_messages")).
		WithArgs(sessionID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	messages, total, err := repo.ListMessages(context.Background(), sessionID, 1, 50)

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, messages, 2)
	assert.True(t, !messages[1].Timestamp.Before(messages[0].Timestamp))
	assert.Nil(t, messages[0].LandmarkInfo)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
