package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for password hashes
const BcryptCost = 10

var ErrInvalidCredentials = errors.New("invalid email or password")

// LoginResult is what a successful login hands back to the client
type LoginResult struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *domain.User `json:"user"`
}

// UserService defines the interface for account business logic
type UserService interface {
	Register(ctx context.Context, fullName, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

type userService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	tokens           *TokenIssuer
	logger           *zap.Logger
}

// NewUserService creates a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	tokens *TokenIssuer,
	logger *zap.Logger,
) UserService {
	return &userService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		tokens:           tokens,
		logger:           logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a buyer account with a hashed password. Every account
// starts unverified; becoming a seller goes through verification.
func (s *userService) Register(ctx context.Context, fullName, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrUserAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:                 uuid.New(),
		FullName:           strings.TrimSpace(fullName),
		Email:              email,
		PasswordHash:       string(hashed),
		Role:               domain.RoleBuyer,
		VerificationStatus: domain.AccountVerificationNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Login authenticates a user and returns an access and refresh token pair
func (s *userService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.tokens.AccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokens.RefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}

// Logout revokes one of the caller's refresh tokens. Unknown tokens count as
// logged out.
func (s *userService) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	if err := s.refreshTokenRepo.Revoke(ctx, userID, refreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RefreshToken mints a new access token from a live refresh token. The role
// comes from the stored account, so a promotion shows up on the next refresh.
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (string, error) {
	refreshToken, err := s.refreshTokenRepo.FindByToken(ctx, refreshTokenString)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRefreshTokenNotFound), errors.Is(err, repository.ErrRefreshTokenRevoked):
			return "", ErrInvalidToken
		case errors.Is(err, repository.ErrRefreshTokenExpired):
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	}

	user, err := s.userRepo.FindByID(ctx, refreshToken.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	return s.tokens.AccessToken(user)
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
