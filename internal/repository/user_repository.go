package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"levelup-marketplace/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this email already exists")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindNamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	UpdateVerificationStatus(ctx context.Context, id uuid.UUID, status string) error
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, full_name, email, password_hash, role, phone, profile_picture, verification_status, created_at, updated_at`

func scanUser(s scanner) (*domain.User, error) {
	user := &domain.User{}
	err := s.Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Phone,
		&user.ProfilePicture,
		&user.VerificationStatus,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// Create inserts a new user into the database using parameterized queries
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, full_name, email, password_hash, role, phone, profile_picture, verification_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Phone,
		user.ProfilePicture,
		user.VerificationStatus,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// FindByEmail retrieves a user by email using parameterized queries
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// FindByID retrieves a user by ID using parameterized queries
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindNamesByIDs resolves display names for a batch of accounts. Unknown ids
// are absent from the result.
func (r *userRepository) FindNamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	query := `SELECT id, full_name FROM users WHERE id = ANY($1::text[]::uuid[])`

	rows, err := r.db.QueryContext(ctx, query, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to find user names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan user name: %w", err)
		}
		names[id] = name
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user names: %w", err)
	}

	return names, nil
}

// UpdateVerificationStatus sets the seller verification state of an account
func (r *userRepository) UpdateVerificationStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE users SET verification_status = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update verification status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
