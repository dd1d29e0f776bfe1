package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"levelup-marketplace/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token has been revoked")
	ErrRefreshTokenExpired  = errors.New("refresh token has expired")
)

// RefreshTokenRepository stores the opaque tokens handed out at login
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	// Revoke marks a live token of userID as revoked. Tokens owned by
	// another account are reported as not found.
	Revoke(ctx context.Context, userID uuid.UUID, token string) error
}

type refreshTokenRepository struct {
	db *sql.DB
}

// NewRefreshTokenRepository creates a new instance of RefreshTokenRepository
func NewRefreshTokenRepository(db *sql.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

const refreshTokenColumns = `id, user_id, token, expires_at, created_at, revoked`

func scanRefreshToken(s scanner) (*domain.RefreshToken, error) {
	t := &domain.RefreshToken{}
	if err := s.Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.CreatedAt, &t.Revoked); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (` + refreshTokenColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.Token, token.ExpiresAt, token.CreatedAt, token.Revoked,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

// FindByToken retrieves a live refresh token. Revoked and expired tokens are
// reported with their own sentinel errors.
func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token = $1`

	refreshToken, err := scanRefreshToken(r.db.QueryRowContext(ctx, query, token))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrRefreshTokenNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	case refreshToken.Revoked:
		return nil, ErrRefreshTokenRevoked
	case time.Now().After(refreshToken.ExpiresAt):
		return nil, ErrRefreshTokenExpired
	}
	return refreshToken, nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, userID uuid.UUID, token string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE token = $1 AND user_id = $2 AND NOT revoked
	`

	result, err := r.db.ExecContext(ctx, query, token, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}
