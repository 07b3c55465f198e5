package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/facundoguellutn/mapsy/internal/api"
	"github.com/facundoguellutn/mapsy/internal/types"
)

// MockAuthService is a mock implementation of the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string) (string, *types.User, error) {
	args := m.Called(ctx, email, password, name)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*types.User), args.Error(2)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, *types.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*types.User), args.Error(2)
}

func (m *MockAuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthService) UpdateOnboarding(ctx context.Context, userID uuid.UUID, completed bool) (*types.User, error) {
	args := m.Called(ctx, userID, completed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) api.Response {
	t.Helper()
	var resp api.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRegisterHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, slog.Default())

		user := &types.User{ID: uuid.New(), Email: "ana@example.com", Name: "Ana"}
		mockService.On("Register", mock.Anything, "ana@example.com", "password123", "Ana").
			Return("signed-token", user, nil).Once()

		body := `{"email":"Ana@Example.com","password":"password123","name":" Ana "}`
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Register(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeEnvelope(t, rec)
		assert.True(t, resp.Success)
		mockService.AssertExpectations(t)
	})

	t.Run("ValidationErrors", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, slog.Default())

		body := `{"email":"not-an-email","password":"123","name":"A"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Register(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeEnvelope(t, rec)
		assert.False(t, resp.Success)
		assert.Len(t, resp.Errors, 3)
		mockService.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, slog.Default())

		mockService.On("Register", mock.Anything, "ana@example.com", "password123", "Ana").
			Return("", nil, types.ErrConflict).Once()

		body := `{"email":"ana@example.com","password":"password123","name":"Ana"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Register(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, slog.Default())

		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()

		handler.Register(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginHandler(t *testing.T) {
	t.Run("InvalidCredentials", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, slog.Default())

		mockService.On("Login", mock.Anything, "ana@example.com", "wrong").
			Return("", nil, types.ErrUnauthenticated).Once()

		body := `{"email":"ana@example.com","password":"wrong"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "Invalid email or password", resp.Message)
	})

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, slog.Default())

		user := &types.User{ID: uuid.New(), Email: "ana@example.com"}
		mockService.On("Login", mock.Anything, "ana@example.com", "password123").
			Return("signed-token", user, nil).Once()

		body := `{"email":"ana@example.com","password":"password123"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeEnvelope(t, rec)
		assert.True(t, resp.Success)
		assert.Equal(t, "Login successful", resp.Message)
	})
}

func TestMeHandler(t *testing.T) {
	mockService := new(MockAuthService)
	handler := NewAuthHandler(mockService, slog.Default())

	userID := uuid.New()
	user := &types.User{ID: userID, Email: "ana@example.com", OnboardingCompleted: true}
	mockService.On("GetUserByID", mock.Anything, userID).Return(user, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserIDKey, userID.String()))
	rec := httptest.NewRecorder()

	handler.Me(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
}

func TestUpdateOnboardingHandler(t *testing.T) {
	t.Run("MissingFlag", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, slog.Default())

		req := httptest.NewRequest(http.MethodPatch, "/auth/onboarding", strings.NewReader(`{}`))
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, uuid.New().String()))
		rec := httptest.NewRecorder()

		handler.UpdateOnboarding(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "UpdateOnboarding", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, slog.Default())

		userID := uuid.New()
		user := &types.User{ID: userID, OnboardingCompleted: true}
		mockService.On("UpdateOnboarding", mock.Anything, userID, true).Return(user, nil).Once()

		req := httptest.NewRequest(http.MethodPatch, "/auth/onboarding", strings.NewReader(`{"onboardingCompleted":true}`))
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, userID.String()))
		rec := httptest.NewRecorder()

		handler.UpdateOnboarding(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})
}

func TestAuthenticateMiddleware(t *testing.T) {
	secretKey := []byte("middleware-secret")
	logger := slog.Default()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(userID))
	})
	protected := Authenticate(logger, secretKey)(next)

	signToken := func(t *testing.T, key []byte, expiresAt time.Time) string {
		t.Helper()
		claims := &types.Claims{
			UserID: uuid.New().String(),
			Email:  "ana@example.com",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(expiresAt),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}

	t.Run("ValidToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, secretKey, time.Now().Add(time.Hour)))
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Body.String())
	})

	t.Run("MissingHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, secretKey, time.Now().Add(-time.Hour)))
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "TOKEN_EXPIRED", resp.Code)
	})

	t.Run("WrongSignature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, []byte("other-secret"), time.Now().Add(time.Hour)))
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "INVALID_TOKEN", resp.Code)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
