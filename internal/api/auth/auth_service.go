package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/facundoguellutn/mapsy/internal/types"
)

const bcryptCost = 12

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	// Register creates a new user and returns a signed access token for it.
	Register(ctx context.Context, email, password, name string) (string, *types.User, error)

	// Login verifies credentials, updates last_login and returns a token.
	Login(ctx context.Context, email, password string) (string, *types.User, error)

	// GetUserByID fetches the current user.
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)

	// UpdateOnboarding sets the onboardingCompleted flag.
	UpdateOnboarding(ctx context.Context, userID uuid.UUID, completed bool) (*types.User, error)
}

type AuthServiceImpl struct {
	logger      *slog.Logger
	repo        AuthRepo
	secretKey   []byte
	issuer      string
	tokenExpiry time.Duration
}

func NewAuthService(repo AuthRepo, logger *slog.Logger, secretKey []byte, issuer string, tokenExpiry time.Duration) *AuthServiceImpl {
	if tokenExpiry <= 0 {
		tokenExpiry = 7 * 24 * time.Hour
	}
	return &AuthServiceImpl{
		logger:      logger,
		repo:        repo,
		secretKey:   secretKey,
		issuer:      issuer,
		tokenExpiry: tokenExpiry,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, email, password, name string) (string, *types.User, error) {
	l := s.logger.With(slog.String("method", "Register"), slog.String("email", email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, email, string(hash), name)
	if err != nil {
		return "", nil, err
	}

	token, err := s.generateAccessToken(user)
	if err != nil {
		return "", nil, err
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))
	return token, user, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, *types.User, error) {
	l := s.logger.With(slog.String("method", "Login"), slog.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return "", nil, types.ErrUnauthenticated
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		l.WarnContext(ctx, "Password mismatch")
		return "", nil, types.ErrUnauthenticated
	}

	lastLogin, err := s.repo.UpdateLastLogin(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	user.LastLogin = &lastLogin

	token, err := s.generateAccessToken(user)
	if err != nil {
		return "", nil, err
	}

	l.InfoContext(ctx, "User logged in", slog.String("userID", user.ID.String()))
	return token, user, nil
}

func (s *AuthServiceImpl) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *AuthServiceImpl) UpdateOnboarding(ctx context.Context, userID uuid.UUID, completed bool) (*types.User, error) {
	return s.repo.UpdateOnboarding(ctx, userID, completed)
}

func (s *AuthServiceImpl) generateAccessToken(user *types.User) (string, error) {
	now := time.Now()
	claims := &types.Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}
