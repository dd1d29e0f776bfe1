package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/geo"
	"levelup-marketplace/internal/repository"
	"levelup-marketplace/internal/search"
	"levelup-marketplace/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Upload folders
const (
	folderListings      = "umkm"
	folderProducts      = "products"
	folderVerifications = "verification"
)

// ListingInput carries listing fields as submitted by a client form
type ListingInput struct {
	Name       string
	Caption    string
	Address    string
	Latitude   string
	Longitude  string
	CategoryID string
}

// ListingPatch is a partial listing update. Nil fields are left unchanged.
type ListingPatch struct {
	Name       *string
	Caption    *string
	Address    *string
	Latitude   *string
	Longitude  *string
	CategoryID *string
}

// ListingDetail is a listing with its category, owner and products
type ListingDetail struct {
	*domain.Listing
	CategoryName string            `json:"kategori"`
	OwnerName    string            `json:"seller"`
	Products     []*domain.Product `json:"products"`
}

// ListingSummary is one entry of the full directory. Distance fields are set
// only when the caller supplied a location.
type ListingSummary struct {
	*domain.Listing
	CategoryName string             `json:"kategori"`
	OwnerName    string             `json:"seller"`
	PriceRange   *domain.PriceRange `json:"price_range"`
	Distance     *float64           `json:"distance,omitempty"`
	DistanceText string             `json:"distanceText,omitempty"`
}

// ListingService defines the interface for listing business logic
type ListingService interface {
	Create(ctx context.Context, sellerID uuid.UUID, in ListingInput, photo *storage.Upload) (*domain.Listing, error)
	Update(ctx context.Context, sellerID, id uuid.UUID, patch ListingPatch, photo *storage.Upload) (*domain.Listing, error)
	Mine(ctx context.Context, sellerID uuid.UUID) ([]*domain.Listing, error)
	Detail(ctx context.Context, id uuid.UUID) (*ListingDetail, error)
	All(ctx context.Context, rawLat, rawLng string) ([]*ListingSummary, error)
}

type listingService struct {
	listings   repository.ListingRepository
	categories repository.CategoryRepository
	products   repository.ProductRepository
	users      repository.UserRepository
	images     storage.ImageStore
	logger     *zap.Logger
}

// NewListingService creates a new instance of ListingService
func NewListingService(
	listings repository.ListingRepository,
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	images storage.ImageStore,
	logger *zap.Logger,
) ListingService {
	return &listingService{
		listings:   listings,
		categories: categories,
		products:   products,
		users:      users,
		images:     images,
		logger:     logger,
	}
}

// resolveCategory parses a category id and checks that it exists
func resolveCategory(ctx context.Context, categories repository.CategoryRepository, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, invalidInput("category_id must be a valid id")
	}
	if _, err := categories.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return uuid.Nil, invalidInput("category not found")
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (s *listingService) saveImage(ctx context.Context, folder string, upload *storage.Upload) (string, error) {
	if upload == nil {
		return "", nil
	}
	url, err := s.images.Save(ctx, folder, *upload)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return url, nil
}

// Create registers a listing for a seller
func (s *listingService) Create(ctx context.Context, sellerID uuid.UUID, in ListingInput, photo *storage.Upload) (*domain.Listing, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput("nama_umkm is required")
	}
	address := strings.TrimSpace(in.Address)
	if address == "" {
		return nil, invalidInput("alamat is required")
	}

	point, err := geo.ParsePoint(in.Latitude, in.Longitude)
	if err != nil {
		return nil, err
	}

	categoryID, err := resolveCategory(ctx, s.categories, in.CategoryID)
	if err != nil {
		return nil, err
	}

	imageURL, err := s.saveImage(ctx, folderListings, photo)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	listing := &domain.Listing{
		ID:         uuid.New(),
		Name:       name,
		Caption:    strings.TrimSpace(in.Caption),
		ImageURL:   imageURL,
		Address:    address,
		Latitude:   point.Lat,
		Longitude:  point.Lng,
		SellerID:   sellerID,
		CategoryID: &categoryID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, err
	}

	s.logger.Info("Listing created",
		zap.String("listing_id", listing.ID.String()),
		zap.String("seller_id", sellerID.String()),
	)
	return listing, nil
}

// Update applies a partial update to a listing the seller owns. Coordinates
// are validated as a pair, falling back to the stored value for a side that
// was not sent.
func (s *listingService) Update(ctx context.Context, sellerID, id uuid.UUID, patch ListingPatch, photo *storage.Upload) (*domain.Listing, error) {
	listing, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != sellerID {
		return nil, ErrForbidden
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, invalidInput("nama_umkm cannot be empty")
		}
		listing.Name = name
	}
	if patch.Caption != nil {
		listing.Caption = strings.TrimSpace(*patch.Caption)
	}
	if patch.Address != nil {
		address := strings.TrimSpace(*patch.Address)
		if address == "" {
			return nil, invalidInput("alamat cannot be empty")
		}
		listing.Address = address
	}

	if patch.Latitude != nil || patch.Longitude != nil {
		rawLat := strconv.FormatFloat(listing.Latitude, 'f', -1, 64)
		rawLng := strconv.FormatFloat(listing.Longitude, 'f', -1, 64)
		if patch.Latitude != nil {
			rawLat = *patch.Latitude
		}
		if patch.Longitude != nil {
			rawLng = *patch.Longitude
		}
		point, err := geo.ParsePoint(rawLat, rawLng)
		if err != nil {
			return nil, err
		}
		listing.Latitude = point.Lat
		listing.Longitude = point.Lng
	}

	if patch.CategoryID != nil {
		categoryID, err := resolveCategory(ctx, s.categories, *patch.CategoryID)
		if err != nil {
			return nil, err
		}
		listing.CategoryID = &categoryID
	}

	if photo != nil {
		url, err := s.saveImage(ctx, folderListings, photo)
		if err != nil {
			return nil, err
		}
		listing.ImageURL = url
	}

	if err := s.listings.Update(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *listingService) Mine(ctx context.Context, sellerID uuid.UUID) ([]*domain.Listing, error) {
	return s.listings.ListBySeller(ctx, sellerID)
}

// Detail loads a listing with its category name, owner name and products
func (s *listingService) Detail(ctx context.Context, id uuid.UUID) (*ListingDetail, error) {
	listing, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	categoryName, ownerName, err := s.names(ctx, []*domain.Listing{listing})
	if err != nil {
		return nil, err
	}

	products, err := s.products.ListByListing(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ListingDetail{
		Listing:      listing,
		CategoryName: categoryName(listing),
		OwnerName:    ownerName(listing),
		Products:     products,
	}, nil
}

// All lists every listing with its price range. When a location is given
// each entry carries its haversine distance and the list is nearest first.
func (s *listingService) All(ctx context.Context, rawLat, rawLng string) ([]*ListingSummary, error) {
	var center *geo.Point
	if strings.TrimSpace(rawLat) != "" || strings.TrimSpace(rawLng) != "" {
		p, err := geo.ParsePoint(rawLat, rawLng)
		if err != nil {
			return nil, err
		}
		center = &p
	}

	listings, err := s.listings.List(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	ranges, err := s.listings.PriceRanges(ctx, ids)
	if err != nil {
		return nil, err
	}

	categoryName, ownerName, err := s.names(ctx, listings)
	if err != nil {
		return nil, err
	}

	summaries := make([]*ListingSummary, 0, len(listings))
	for _, l := range listings {
		summary := &ListingSummary{
			Listing:      l,
			CategoryName: categoryName(l),
			OwnerName:    ownerName(l),
		}
		if pr, ok := ranges[l.ID]; ok {
			summary.PriceRange = &pr
		}
		if center != nil {
			km := geo.RoundKm(geo.HaversineKm(*center, geo.Point{Lat: l.Latitude, Lng: l.Longitude}))
			summary.Distance = &km
			summary.DistanceText = geo.FormatKm(km)
		}
		summaries = append(summaries, summary)
	}

	if center != nil {
		sort.SliceStable(summaries, func(i, j int) bool {
			return *summaries[i].Distance < *summaries[j].Distance
		})
	}

	return summaries, nil
}

// names batch-loads category and owner names for listings and returns
// lookups that fall back to the display sentinels
func (s *listingService) names(ctx context.Context, listings []*domain.Listing) (func(*domain.Listing) string, func(*domain.Listing) string, error) {
	var categoryIDs, ownerIDs []uuid.UUID
	for _, l := range listings {
		if l.CategoryID != nil {
			categoryIDs = append(categoryIDs, *l.CategoryID)
		}
		ownerIDs = append(ownerIDs, l.SellerID)
	}

	categories, err := s.categories.FindByIDs(ctx, categoryIDs)
	if err != nil {
		return nil, nil, err
	}
	owners, err := s.users.FindNamesByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, nil, err
	}

	categoryName := func(l *domain.Listing) string {
		if l.CategoryID != nil {
			if c, ok := categories[*l.CategoryID]; ok && c.Name != "" {
				return c.Name
			}
		}
		return search.NoCategoryName
	}
	ownerName := func(l *domain.Listing) string {
		if name, ok := owners[l.SellerID]; ok && name != "" {
			return name
		}
		return search.UnknownOwnerName
	}
	return categoryName, ownerName, nil
}
