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
)

var ErrEmptySearchTerm = errors.New("search query is required")

// CategoryInUseError reports what still references a category that was
// asked to be deleted
type CategoryInUseError struct {
	ListingCount      int
	VerificationCount int
}

func (e *CategoryInUseError) Error() string {
	switch {
	case e.ListingCount > 0 && e.VerificationCount > 0:
		return fmt.Sprintf("category is used by %d listings and %d verification requests", e.ListingCount, e.VerificationCount)
	case e.VerificationCount > 0:
		return fmt.Sprintf("category is used by %d verification requests", e.VerificationCount)
	default:
		return fmt.Sprintf("category is used by %d listings", e.ListingCount)
	}
}

func newCategoryInUseError(usage repository.CategoryUsage) *CategoryInUseError {
	return &CategoryInUseError{ListingCount: usage.Listings, VerificationCount: usage.VerificationRequests}
}

func (e *CategoryInUseError) Unwrap() error {
	return repository.ErrCategoryInUse
}

// CategoryService defines the interface for category business logic
type CategoryService interface {
	List(ctx context.Context) ([]*domain.Category, error)
	Search(ctx context.Context, term string) ([]*domain.Category, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	Create(ctx context.Context, actor Actor, name string) (*domain.Category, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, name string) (*domain.Category, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type categoryService struct {
	categories repository.CategoryRepository
	adminOnly  bool
	logger     *zap.Logger
}

// NewCategoryService creates a new instance of CategoryService. With
// adminOnly set, only admins may create, rename or delete categories.
func NewCategoryService(categories repository.CategoryRepository, adminOnly bool, logger *zap.Logger) CategoryService {
	return &categoryService{categories: categories, adminOnly: adminOnly, logger: logger}
}

func (s *categoryService) authorize(actor Actor) error {
	if s.adminOnly && actor.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

func (s *categoryService) List(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *categoryService) Search(ctx context.Context, term string) ([]*domain.Category, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptySearchTerm
	}
	return s.categories.Search(ctx, term)
}

func (s *categoryService) Get(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.categories.FindByID(ctx, id)
}

// ensureUniqueName rejects a name another category already uses, ignoring
// case. self is skipped so a rename to a different casing is allowed.
func (s *categoryService) ensureUniqueName(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.categories.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != self {
		return repository.ErrCategoryAlreadyExists
	}
	return nil
}

// Create adds a category owned by the caller
func (s *categoryService) Create(ctx context.Context, actor Actor, name string) (*domain.Category, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("category name is required")
	}
	if err := s.ensureUniqueName(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	category := &domain.Category{
		ID:        uuid.New(),
		Name:      name,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}

	s.logger.Info("Category created",
		zap.String("category_id", category.ID.String()),
		zap.String("name", category.Name),
	)
	return category, nil
}

// Update renames a category
func (s *categoryService) Update(ctx context.Context, actor Actor, id uuid.UUID, name string) (*domain.Category, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("category name is required")
	}
	if err := s.ensureUniqueName(ctx, name, id); err != nil {
		return nil, err
	}

	category.Name = name
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Delete removes a category nothing references. A category in use yields a
// *CategoryInUseError carrying the listing and verification request counts.
func (s *categoryService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.authorize(actor); err != nil {
		return err
	}

	if _, err := s.categories.FindByID(ctx, id); err != nil {
		return err
	}

	usage, err := s.categories.CountReferences(ctx, id)
	if err != nil {
		return err
	}
	if usage.InUse() {
		return newCategoryInUseError(usage)
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		if !errors.Is(err, repository.ErrCategoryInUse) {
			return err
		}
		// a listing or verification request grabbed it in between
		usage, countErr := s.categories.CountReferences(ctx, id)
		if countErr != nil {
			s.logger.Warn("Failed to count category references", zap.String("category_id", id.String()), zap.Error(countErr))
			return err
		}
		if !usage.InUse() {
			return err
		}
		return newCategoryInUseError(usage)
	}

	s.logger.Info("Category deleted", zap.String("category_id", id.String()))
	return nil
}
