package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims represents the JWT claims. The auth middleware reads user_id and
// role from the same token.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs access tokens and stores opaque refresh tokens
type TokenIssuer struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	refreshTokens repository.RefreshTokenRepository
	now           func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. Zero expiries fall back to 15 minutes
// and 7 days.
func NewTokenIssuer(secret string, accessExpiry, refreshExpiry time.Duration, refreshTokens repository.RefreshTokenRepository) *TokenIssuer {
	if accessExpiry <= 0 {
		accessExpiry = 15 * time.Minute
	}
	if refreshExpiry <= 0 {
		refreshExpiry = 7 * 24 * time.Hour
	}
	return &TokenIssuer{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		refreshTokens: refreshTokens,
		now:           time.Now,
	}
}

// AccessToken signs an HS256 token carrying the user's id and current role
func (t *TokenIssuer) AccessToken(user *domain.User) (string, error) {
	now := t.now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// RefreshToken creates and stores a new opaque refresh token for user
func (t *TokenIssuer) RefreshToken(ctx context.Context, user *domain.User) (string, error) {
	now := t.now()
	refreshToken := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(t.refreshExpiry),
		CreatedAt: now,
	}

	if err := t.refreshTokens.Create(ctx, refreshToken); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return refreshToken.Token, nil
}

// Validate parses and verifies an access token
func (t *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
