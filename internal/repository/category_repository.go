package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"levelup-marketplace/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")
	ErrCategoryInUse         = errors.New("category is still referenced")
)

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*domain.Category, error)
	ListByCreation(ctx context.Context) ([]*domain.Category, error)
	Search(ctx context.Context, term string) ([]*domain.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Category, error)
	FindByName(ctx context.Context, name string) (*domain.Category, error)
	CountReferences(ctx context.Context, id uuid.UUID) (CategoryUsage, error)
}

// CategoryUsage counts the rows that keep a category from being deleted
type CategoryUsage struct {
	Listings             int
	VerificationRequests int
}

// InUse reports whether anything still references the category
func (u CategoryUsage) InUse() bool {
	return u.Listings > 0 || u.VerificationRequests > 0
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

const categoryColumns = `id, name, COALESCE(created_by, '00000000-0000-0000-0000-000000000000'::uuid), created_at, updated_at`

func scanCategory(s scanner) (*domain.Category, error) {
	category := &domain.Category{}
	err := s.Scan(
		&category.ID,
		&category.Name,
		&category.CreatedBy,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	return category, err
}

// Create inserts a new category. Names are unique case-insensitively.
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	var createdBy any
	if category.CreatedBy != uuid.Nil {
		createdBy = category.CreatedBy
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		category.Name,
		createdBy,
		category.CreatedAt,
		category.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// Update renames a category
func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	query := `
		UPDATE categories
		SET name = $2
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query, category.ID, category.Name).Scan(&category.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCategoryNotFound
		}
		if isUniqueViolation(err) {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	return nil
}

// Delete removes a category that no listing references
func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCategoryInUse
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// List retrieves all categories sorted by name
func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	return r.query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name ASC`)
}

// ListByCreation retrieves all categories oldest first, the order keyword
// inference walks them in
func (r *categoryRepository) ListByCreation(ctx context.Context) ([]*domain.Category, error) {
	return r.query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY created_at ASC, id ASC`)
}

// Search finds categories whose name contains term, case-insensitively
func (r *categoryRepository) Search(ctx context.Context, term string) ([]*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE name ILIKE $1 ORDER BY name ASC`
	return r.query(ctx, query, "%"+escapeLike(term)+"%")
}

func (r *categoryRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// FindByID retrieves a category by ID using parameterized queries
func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	category, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return category, nil
}

// FindByIDs resolves a batch of categories. Unknown ids are absent from the
// result.
func (r *categoryRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Category, error) {
	found := make(map[uuid.UUID]*domain.Category, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = ANY($1::text[]::uuid[])`
	categories, err := r.query(ctx, query, uuidStrings(ids))
	if err != nil {
		return nil, err
	}

	for _, c := range categories {
		found[c.ID] = c
	}
	return found, nil
}

// FindByName looks a category up by exact name, ignoring case
func (r *categoryRepository) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE LOWER(name) = LOWER($1)`

	category, err := scanCategory(r.db.QueryRowContext(ctx, query, strings.TrimSpace(name)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by name: %w", err)
	}

	return category, nil
}

// CountReferences counts the listings and verification requests that
// reference the category
func (r *categoryRepository) CountReferences(ctx context.Context, id uuid.UUID) (CategoryUsage, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM listings WHERE category_id = $1),
			(SELECT COUNT(*) FROM seller_verifications WHERE category_id = $1)`

	var usage CategoryUsage
	err := r.db.QueryRowContext(ctx, query, id).Scan(&usage.Listings, &usage.VerificationRequests)
	if err != nil {
		return CategoryUsage{}, fmt.Errorf("failed to count category references: %w", err)
	}
	return usage, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
