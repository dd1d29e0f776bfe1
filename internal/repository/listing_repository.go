package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/geo"

	"github.com/google/uuid"
)

var ErrListingNotFound = errors.New("listing not found")

// ProximityQuery selects listings within RadiusMeters of Center. CategoryID
// and Keywords are optional filters; a listing matches the keywords when any
// keyword occurs in its name, address or caption.
type ProximityQuery struct {
	Center       geo.Point
	RadiusMeters float64
	CategoryID   *uuid.UUID
	Keywords     []string
}

// ListingRepository defines the interface for listing data access
type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	Update(ctx context.Context, listing *domain.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	List(ctx context.Context) ([]*domain.Listing, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Listing, error)
	PriceRanges(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.PriceRange, error)
	WithinRadius(ctx context.Context, q ProximityQuery) ([]*domain.ListingHit, error)
}

type listingRepository struct {
	db *sql.DB
}

// NewListingRepository creates a new instance of ListingRepository
func NewListingRepository(db *sql.DB) ListingRepository {
	return &listingRepository{db: db}
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const listingColumns = `l.id, l.name, l.caption, l.image_url, l.address, l.latitude, l.longitude, l.seller_id, l.category_id, l.created_at, l.updated_at`

func scanListing(s scanner, extra ...any) (*domain.Listing, error) {
	listing := &domain.Listing{}
	dest := []any{
		&listing.ID,
		&listing.Name,
		&listing.Caption,
		&listing.ImageURL,
		&listing.Address,
		&listing.Latitude,
		&listing.Longitude,
		&listing.SellerID,
		&listing.CategoryID,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	}
	err := s.Scan(append(dest, extra...)...)
	return listing, err
}

func insertListing(ctx context.Context, db execer, listing *domain.Listing) error {
	query := `
		INSERT INTO listings (id, name, caption, image_url, address, latitude, longitude, seller_id, category_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := db.ExecContext(
		ctx,
		query,
		listing.ID,
		listing.Name,
		listing.Caption,
		listing.ImageURL,
		listing.Address,
		listing.Latitude,
		listing.Longitude,
		listing.SellerID,
		nullableUUID(listing.CategoryID),
		listing.CreatedAt,
		listing.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create listing: %w", err)
	}

	return nil
}

// Create inserts a new listing. The stored geometry is derived from the
// latitude and longitude by the database.
func (r *listingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	return insertListing(ctx, r.db, listing)
}

// Update overwrites the mutable fields of a listing
func (r *listingRepository) Update(ctx context.Context, listing *domain.Listing) error {
	query := `
		UPDATE listings
		SET name = $2, caption = $3, image_url = $4, address = $5,
		    latitude = $6, longitude = $7, category_id = $8
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		listing.ID,
		listing.Name,
		listing.Caption,
		listing.ImageURL,
		listing.Address,
		listing.Latitude,
		listing.Longitude,
		nullableUUID(listing.CategoryID),
	).Scan(&listing.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrListingNotFound
		}
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update listing: %w", err)
	}

	return nil
}

// FindByID retrieves a listing by ID
func (r *listingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings l WHERE l.id = $1`

	listing, err := scanListing(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to find listing by ID: %w", err)
	}

	return listing, nil
}

// List retrieves every listing, newest first
func (r *listingRepository) List(ctx context.Context) ([]*domain.Listing, error) {
	return r.query(ctx, `SELECT `+listingColumns+` FROM listings l ORDER BY l.created_at DESC`)
}

// ListBySeller retrieves the listings owned by a seller, newest first
func (r *listingRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings l WHERE l.seller_id = $1 ORDER BY l.created_at DESC`
	return r.query(ctx, query, sellerID)
}

func (r *listingRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Listing, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	listings := []*domain.Listing{}
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, listing)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listings: %w", err)
	}

	return listings, nil
}

// PriceRanges summarises product prices per listing. Listings without
// products are absent from the result.
func (r *listingRepository) PriceRanges(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.PriceRange, error) {
	ranges := make(map[uuid.UUID]domain.PriceRange, len(ids))
	if len(ids) == 0 {
		return ranges, nil
	}

	query := `
		SELECT listing_id, MIN(price)::float8, MAX(price)::float8, COUNT(*)
		FROM products
		WHERE listing_id = ANY($1::text[]::uuid[])
		GROUP BY listing_id
	`

	rows, err := r.db.QueryContext(ctx, query, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load price ranges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var pr domain.PriceRange
		if err := rows.Scan(&id, &pr.Min, &pr.Max, &pr.Count); err != nil {
			return nil, fmt.Errorf("failed to scan price range: %w", err)
		}
		ranges[id] = pr
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price ranges: %w", err)
	}

	return ranges, nil
}

// withinRadiusQuery prefilters on the GiST-indexed point column with the
// bounding box of the search circle, then measures exact great-circle
// distance with the haversine formula on a sphere of geo.EarthRadiusKm.
const withinRadiusQuery = `
	SELECT * FROM (
		SELECT ` + listingColumns + `,
			2 * $3::float8 * ASIN(LEAST(1, SQRT(
				POWER(SIN(RADIANS(l.latitude - $1::float8) / 2), 2) +
				COS(RADIANS($1::float8)) * COS(RADIANS(l.latitude)) *
				POWER(SIN(RADIANS(l.longitude - $2::float8) / 2), 2)
			))) AS distance_m
		FROM listings l
		WHERE l.location <@ BOX(POINT($4::float8, $5::float8), POINT($6::float8, $7::float8))
		  AND ($8::uuid IS NULL OR l.category_id = $8::uuid)
		  AND (
			cardinality($9::text[]) = 0
			OR l.name ILIKE ANY($9::text[])
			OR l.address ILIKE ANY($9::text[])
			OR l.caption ILIKE ANY($9::text[])
		  )
	) hits
	WHERE hits.distance_m <= $10::float8
	ORDER BY hits.distance_m ASC, hits.id ASC
`

// WithinRadius returns listings inside the search circle ordered nearest
// first, each with its distance in metres
func (r *listingRepository) WithinRadius(ctx context.Context, q ProximityQuery) ([]*domain.ListingHit, error) {
	box := geo.BoundingBox(q.Center, q.RadiusMeters/geo.MetersPerKm)

	patterns := make([]string, 0, len(q.Keywords))
	for _, kw := range q.Keywords {
		patterns = append(patterns, "%"+escapeLike(kw)+"%")
	}

	rows, err := r.db.QueryContext(
		ctx,
		withinRadiusQuery,
		q.Center.Lat,
		q.Center.Lng,
		geo.EarthRadiusKm*geo.MetersPerKm,
		box.MinLng,
		box.MinLat,
		box.MaxLng,
		box.MaxLat,
		nullableUUID(q.CategoryID),
		patterns,
		q.RadiusMeters,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings within radius: %w", err)
	}
	defer rows.Close()

	hits := []*domain.ListingHit{}
	for rows.Next() {
		var distance float64
		listing, err := scanListing(rows, &distance)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		hits = append(hits, &domain.ListingHit{Listing: listing, DistanceMeters: distance})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listings: %w", err)
	}

	return hits, nil
}
