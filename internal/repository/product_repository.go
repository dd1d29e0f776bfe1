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
	ErrProductNotFound = errors.New("product not found")
	ErrProductInUse    = errors.New("product is referenced by orders")
)

// ProductFilter narrows a product search. Zero values leave a dimension
// unfiltered.
type ProductFilter struct {
	Query        string
	CategoryName string
	MinPrice     *float64
	MaxPrice     *float64
	Limit        int
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]*domain.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error)
	Search(ctx context.Context, filter ProductFilter) ([]*domain.ProductMatch, error)
	PriceStats(ctx context.Context, categoryID *uuid.UUID, excludeSeller *uuid.UUID) (domain.PriceStats, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `p.id, p.listing_id, p.name, p.description, p.price::float8, p.image_url, p.created_at, p.updated_at`

func scanProduct(s scanner, extra ...any) (*domain.Product, error) {
	product := &domain.Product{}
	dest := []any{
		&product.ID,
		&product.ListingID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.ImageURL,
		&product.CreatedAt,
		&product.UpdatedAt,
	}
	err := s.Scan(append(dest, extra...)...)
	return product, err
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, listing_id, name, description, price, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.ListingID,
		product.Name,
		product.Description,
		product.Price,
		product.ImageURL,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrListingNotFound
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates an existing product in the database using parameterized queries
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, image_url = $5
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.ImageURL,
	).Scan(&product.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// Delete removes a product from the database using parameterized queries
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductInUse
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindByIDs resolves a batch of products. Unknown ids are absent from the
// result.
func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	found := make(map[uuid.UUID]*domain.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = ANY($1::text[]::uuid[])`
	products, err := r.query(ctx, query, uuidStrings(ids))
	if err != nil {
		return nil, err
	}

	for _, p := range products {
		found[p.ID] = p
	}
	return found, nil
}

// List retrieves every product, newest first
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products p ORDER BY p.created_at DESC`)
}

// ListByListing retrieves the products of one listing
func (r *productRepository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.listing_id = $1 ORDER BY p.created_at DESC`
	return r.query(ctx, query, listingID)
}

// ListBySeller retrieves the products of every listing a seller owns
func (r *productRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN listings l ON l.id = p.listing_id
		WHERE l.seller_id = $1
		ORDER BY p.created_at DESC
	`
	return r.query(ctx, query, sellerID)
}

func (r *productRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Search finds products by name or description with optional price bounds
// and category name, newest first
func (r *productRepository) Search(ctx context.Context, filter ProductFilter) ([]*domain.ProductMatch, error) {
	conditions := []string{}
	args := []any{}
	argIndex := 1

	if q := strings.TrimSpace(filter.Query); q != "" {
		conditions = append(conditions, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+escapeLike(q)+"%")
		argIndex++
	}
	if c := strings.TrimSpace(filter.CategoryName); c != "" {
		conditions = append(conditions, fmt.Sprintf("c.name ILIKE $%d", argIndex))
		args = append(args, "%"+escapeLike(c)+"%")
		argIndex++
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s, l.name, COALESCE(c.name, '')
		FROM products p
		JOIN listings l ON l.id = p.listing_id
		LEFT JOIN categories c ON c.id = l.category_id
		%s
		ORDER BY p.created_at DESC
		LIMIT $%d
	`, productColumns, whereClause, argIndex)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	matches := []*domain.ProductMatch{}
	for rows.Next() {
		match := &domain.ProductMatch{}
		product, err := scanProduct(rows, &match.ListingName, &match.CategoryName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		match.Product = product
		matches = append(matches, match)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	return matches, nil
}

// PriceStats summarises product prices, optionally within one category and
// excluding one seller's products
func (r *productRepository) PriceStats(ctx context.Context, categoryID *uuid.UUID, excludeSeller *uuid.UUID) (domain.PriceStats, error) {
	query := `
		SELECT COALESCE(MIN(p.price), 0)::float8, COALESCE(MAX(p.price), 0)::float8,
		       COALESCE(AVG(p.price), 0)::float8, COUNT(p.id)
		FROM products p
		JOIN listings l ON l.id = p.listing_id
		WHERE ($1::uuid IS NULL OR l.category_id = $1::uuid)
		  AND ($2::uuid IS NULL OR l.seller_id <> $2::uuid)
	`

	var stats domain.PriceStats
	err := r.db.QueryRowContext(ctx, query, nullableUUID(categoryID), nullableUUID(excludeSeller)).
		Scan(&stats.Min, &stats.Max, &stats.Avg, &stats.Count)
	if err != nil {
		return domain.PriceStats{}, fmt.Errorf("failed to compute price stats: %w", err)
	}

	return stats, nil
}
