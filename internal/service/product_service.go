package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/repository"
	"levelup-marketplace/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductInput carries product fields as submitted by a client form
type ProductInput struct {
	ListingID   string
	Name        string
	Description string
	Price       string
}

// ProductPatch is a partial product update. Nil fields are left unchanged.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *string
}

// ProductService defines the interface for product business logic
type ProductService interface {
	List(ctx context.Context) ([]*domain.Product, error)
	Create(ctx context.Context, sellerID uuid.UUID, in ProductInput, thumbnail *storage.Upload) (*domain.Product, error)
	Mine(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error)
	Update(ctx context.Context, sellerID, id uuid.UUID, patch ProductPatch, thumbnail *storage.Upload) (*domain.Product, error)
	Delete(ctx context.Context, sellerID, id uuid.UUID) error
}

type productService struct {
	products repository.ProductRepository
	listings repository.ListingRepository
	images   storage.ImageStore
	logger   *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(products repository.ProductRepository, listings repository.ListingRepository, images storage.ImageStore, logger *zap.Logger) ProductService {
	return &productService{
		products: products,
		listings: listings,
		images:   images,
		logger:   logger,
	}
}

// parsePrice accepts a non-negative decimal amount
func parsePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, invalidInput("harga must be a number")
	}
	if price < 0 {
		return 0, invalidInput("harga cannot be negative")
	}
	return price, nil
}

func (s *productService) List(ctx context.Context) ([]*domain.Product, error) {
	return s.products.List(ctx)
}

// owned loads a listing and checks the seller owns it
func (s *productService) owned(ctx context.Context, sellerID, listingID uuid.UUID) (*domain.Listing, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != sellerID {
		return nil, ErrForbidden
	}
	return listing, nil
}

func (s *productService) Create(ctx context.Context, sellerID uuid.UUID, in ProductInput, thumbnail *storage.Upload) (*domain.Product, error) {
	listingID, err := uuid.Parse(strings.TrimSpace(in.ListingID))
	if err != nil {
		return nil, invalidInput("umkm_id must be a valid id")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput("nama_product is required")
	}
	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}

	if _, err := s.owned(ctx, sellerID, listingID); err != nil {
		return nil, err
	}

	var imageURL string
	if thumbnail != nil {
		imageURL, err = s.images.Save(ctx, folderProducts, *thumbnail)
		if err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New(),
		ListingID:   listingID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       price,
		ImageURL:    imageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("umkm_id", listingID.String()),
	)
	return product, nil
}

func (s *productService) Mine(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error) {
	return s.products.ListBySeller(ctx, sellerID)
}

// ownedProduct loads a product and checks the seller owns its listing
func (s *productService) ownedProduct(ctx context.Context, sellerID, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, sellerID, product.ListingID); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, sellerID, id uuid.UUID, patch ProductPatch, thumbnail *storage.Upload) (*domain.Product, error) {
	product, err := s.ownedProduct(ctx, sellerID, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, invalidInput("nama_product cannot be empty")
		}
		product.Name = name
	}
	if patch.Description != nil {
		product.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		price, err := parsePrice(*patch.Price)
		if err != nil {
			return nil, err
		}
		product.Price = price
	}
	if thumbnail != nil {
		url, err := s.images.Save(ctx, folderProducts, *thumbnail)
		if err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
		product.ImageURL = url
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, sellerID, id uuid.UUID) error {
	if _, err := s.ownedProduct(ctx, sellerID, id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}
