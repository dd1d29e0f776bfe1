// Package search resolves "what is near me" queries: it validates the
// caller's position, turns free text into keywords and an inferred
// category, runs one radius-bounded proximity query and annotates the hits
// with display names and distances.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/geo"
	"levelup-marketplace/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// NoCategoryName is shown for listings without a resolvable category
	NoCategoryName = "Tidak ada kategori"
	// UnknownOwnerName is shown for listings whose owner cannot be resolved
	UnknownOwnerName = "Unknown"
)

var (
	ErrInvalidCategory = errors.New("kategori must be a valid category id")
	ErrMissingQuery    = errors.New("query is required")
)

// ProximitySearcher runs a radius-bounded query against the listing store
type ProximitySearcher interface {
	WithinRadius(ctx context.Context, q repository.ProximityQuery) ([]*domain.ListingHit, error)
}

// CategoryCatalog lists categories in creation order and resolves ids to
// categories
type CategoryCatalog interface {
	ListByCreation(ctx context.Context) ([]*domain.Category, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Category, error)
}

// OwnerDirectory resolves account ids to display names
type OwnerDirectory interface {
	FindNamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// Config tunes the resolver
type Config struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
	QueryTimeout    time.Duration
	StopWords       StopWords
}

// Query is a search request as received from a client. Coordinates and
// radius are raw strings and are validated by Resolve.
type Query struct {
	Latitude  string
	Longitude string
	Radius    string
	Text      string
	Category  string
}

// Item is one annotated search hit
type Item struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"nama_umkm"`
	ImageURL     string     `json:"thumbnail"`
	Caption      string     `json:"caption"`
	Address      string     `json:"alamat"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Distance     float64    `json:"distance"`
	DistanceText string     `json:"distanceText"`
	CategoryID   *uuid.UUID `json:"category_id"`
	CategoryName string     `json:"kategori"`
	SellerID     uuid.UUID  `json:"seller_id"`
	OwnerName    string     `json:"seller"`
}

// Result is the outcome of a resolved query
type Result struct {
	Items            []Item
	Center           geo.Point
	RadiusKm         float64
	Text             string
	Keywords         []string
	CategoryID       *uuid.UUID
	InferredCategory *domain.Category
}

// Resolver answers proximity and keyword searches over listings
type Resolver struct {
	listings   ProximitySearcher
	categories CategoryCatalog
	owners     OwnerDirectory
	config     Config
	logger     *zap.Logger
}

// NewResolver creates a Resolver. Zero values in cfg fall back to a 5 km
// default radius, a 50 km cap, a 5 second query timeout and the default
// stop words.
func NewResolver(listings ProximitySearcher, categories CategoryCatalog, owners OwnerDirectory, cfg Config, logger *zap.Logger) *Resolver {
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = 5
	}
	if cfg.MaxRadiusKm <= 0 {
		cfg.MaxRadiusKm = 50
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 5 * time.Second
	}
	if cfg.StopWords.Len() == 0 {
		cfg.StopWords = DefaultStopWords()
	}

	return &Resolver{
		listings:   listings,
		categories: categories,
		owners:     owners,
		config:     cfg,
		logger:     logger,
	}
}

// IsValidationError reports whether err was caused by bad client input
func IsValidationError(err error) bool {
	return geo.IsValidationError(err) ||
		errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrMissingQuery)
}

// Nearby resolves a query where free text is optional
func (r *Resolver) Nearby(ctx context.Context, q Query) (*Result, error) {
	return r.resolve(ctx, q)
}

// Search resolves a query where free text is required
func (r *Resolver) Search(ctx context.Context, q Query) (*Result, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrMissingQuery
	}
	return r.resolve(ctx, q)
}

func (r *Resolver) resolve(ctx context.Context, q Query) (*Result, error) {
	center, err := geo.ParsePoint(q.Latitude, q.Longitude)
	if err != nil {
		return nil, err
	}

	radiusKm, err := geo.ParseRadius(q.Radius, r.config.DefaultRadiusKm, r.config.MaxRadiusKm)
	if err != nil {
		return nil, err
	}

	var explicitCategory *uuid.UUID
	if raw := strings.TrimSpace(q.Category); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, ErrInvalidCategory
		}
		explicitCategory = &id
	}

	text := strings.TrimSpace(q.Text)
	keywords := ExtractKeywords(text, r.config.StopWords)

	ctx, cancel := context.WithTimeout(ctx, r.config.QueryTimeout)
	defer cancel()

	result := &Result{
		Center:     center,
		RadiusKm:   radiusKm,
		Text:       text,
		Keywords:   keywords,
		CategoryID: explicitCategory,
	}

	if explicitCategory == nil && len(keywords) > 0 {
		categories, err := r.categories.ListByCreation(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load categories: %w", err)
		}
		if inferred := InferCategory(keywords, categories); inferred != nil {
			result.InferredCategory = inferred
			result.CategoryID = &inferred.ID
		}
	}

	hits, err := r.listings.WithinRadius(ctx, repository.ProximityQuery{
		Center:       center,
		RadiusMeters: radiusKm * geo.MetersPerKm,
		CategoryID:   result.CategoryID,
		Keywords:     keywords,
	})
	if err != nil {
		return nil, fmt.Errorf("proximity query failed: %w", err)
	}

	items, err := r.annotate(ctx, hits)
	if err != nil {
		return nil, err
	}
	result.Items = items

	r.logger.Debug("Proximity search resolved",
		zap.Float64("latitude", center.Lat),
		zap.Float64("longitude", center.Lng),
		zap.Float64("radius_km", radiusKm),
		zap.Strings("keywords", keywords),
		zap.Bool("category_inferred", result.InferredCategory != nil),
		zap.Int("results", len(items)),
	)

	return result, nil
}

// annotate joins category and owner names onto the hits and orders them
// nearest first
func (r *Resolver) annotate(ctx context.Context, hits []*domain.ListingHit) ([]Item, error) {
	items := make([]Item, 0, len(hits))
	if len(hits) == 0 {
		return items, nil
	}

	categoryIDs := make([]uuid.UUID, 0, len(hits))
	ownerIDs := make([]uuid.UUID, 0, len(hits))
	seenCategory := make(map[uuid.UUID]bool)
	seenOwner := make(map[uuid.UUID]bool)
	for _, hit := range hits {
		if id := hit.Listing.CategoryID; id != nil && !seenCategory[*id] {
			seenCategory[*id] = true
			categoryIDs = append(categoryIDs, *id)
		}
		if !seenOwner[hit.Listing.SellerID] {
			seenOwner[hit.Listing.SellerID] = true
			ownerIDs = append(ownerIDs, hit.Listing.SellerID)
		}
	}

	categories := map[uuid.UUID]*domain.Category{}
	if len(categoryIDs) > 0 {
		found, err := r.categories.FindByIDs(ctx, categoryIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve categories: %w", err)
		}
		categories = found
	}

	owners, err := r.owners.FindNamesByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve owners: %w", err)
	}

	for _, hit := range hits {
		l := hit.Listing
		km := geo.MetersToKm(hit.DistanceMeters)

		categoryName := NoCategoryName
		if l.CategoryID != nil {
			if c, ok := categories[*l.CategoryID]; ok && c.Name != "" {
				categoryName = c.Name
			}
		}

		ownerName := UnknownOwnerName
		if name, ok := owners[l.SellerID]; ok && name != "" {
			ownerName = name
		}

		items = append(items, Item{
			ID:           l.ID,
			Name:         l.Name,
			ImageURL:     l.ImageURL,
			Caption:      l.Caption,
			Address:      l.Address,
			Latitude:     l.Latitude,
			Longitude:    l.Longitude,
			Distance:     geo.RoundKm(km),
			DistanceText: geo.FormatKm(km),
			CategoryID:   l.CategoryID,
			CategoryName: categoryName,
			SellerID:     l.SellerID,
			OwnerName:    ownerName,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Distance < items[j].Distance
	})

	return items, nil
}
