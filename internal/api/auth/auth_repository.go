package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/facundoguellutn/mapsy/app/db"
	"github.com/facundoguellutn/mapsy/internal/types"
)

var _ AuthRepo = (*AuthRepoImpl)(nil)

type AuthRepo interface {
	CreateUser(ctx context.Context, email, passwordHash, name string) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) (time.Time, error)
	UpdateOnboarding(ctx context.Context, userID uuid.UUID, completed bool) (*types.User, error)
}

type AuthRepoImpl struct {
	logger *slog.Logger
	pgpool database.Querier
}

func NewAuthRepo(pgpool database.Querier, logger *slog.Logger) *AuthRepoImpl {
	return &AuthRepoImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = `id, email, password_hash, name, avatar, language, theme,
       onboarding_completed, created_at, updated_at, last_login`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Avatar,
		&u.Preferences.Language, &u.Preferences.Theme,
		&u.OnboardingCompleted, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *AuthRepoImpl) CreateUser(ctx context.Context, email, passwordHash, name string) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	query := fmt.Sprintf(`
        INSERT INTO users (email, password_hash, name, language, theme)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING %s`, userColumns)

	user, err := scanUser(r.pgpool.QueryRow(ctx, query,
		email, passwordHash, name, types.DefaultLanguage, types.DefaultTheme))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			span.SetStatus(codes.Error, "Duplicate email")
			return nil, fmt.Errorf("email %s: %w", email, types.ErrConflict)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to insert user")
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	span.SetStatus(codes.Ok, "User created")
	return user, nil
}

func (r *AuthRepoImpl) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user by email: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch user by email")
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}
	return user, nil
}

func (r *AuthRepoImpl) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch user")
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}

func (r *AuthRepoImpl) UpdateLastLogin(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "UpdateLastLogin", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	var lastLogin time.Time
	err := r.pgpool.QueryRow(ctx,
		`UPDATE users SET last_login = now(), updated_at = now() WHERE id = $1 RETURNING last_login`,
		userID).Scan(&lastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, fmt.Errorf("user %s: %w", userID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update last login")
		return time.Time{}, fmt.Errorf("failed to update last login: %w", err)
	}
	return lastLogin, nil
}

func (r *AuthRepoImpl) UpdateOnboarding(ctx context.Context, userID uuid.UUID, completed bool) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "UpdateOnboarding", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.Bool("user.onboarding_completed", completed),
	))
	defer span.End()

	query := fmt.Sprintf(`
        UPDATE users SET onboarding_completed = $2, updated_at = now()
        WHERE id = $1
        RETURNING %s`, userColumns)

	user, err := scanUser(r.pgpool.QueryRow(ctx, query, userID, completed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update onboarding flag")
		return nil, fmt.Errorf("failed to update onboarding flag: %w", err)
	}
	span.SetStatus(codes.Ok, "Onboarding flag updated")
	return user, nil
}
