package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/events"
	"levelup-marketplace/internal/geo"
	"levelup-marketplace/internal/repository"
	"levelup-marketplace/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrAlreadySeller          = errors.New("account is already a verified seller")
	ErrMissingDocument        = errors.New("id_card and business_permit are required")
	ErrRejectionReasonMissing = errors.New("rejection_reason is required")
)

var verificationStatuses = []string{
	domain.VerificationStatusPending,
	domain.VerificationStatusApproved,
	domain.VerificationStatusRejected,
}

// VerificationInput carries the business details of a seller application
type VerificationInput struct {
	FullName     string
	Phone        string
	BusinessName string
	Caption      string
	Latitude     string
	Longitude    string
	Address      string
	CategoryID   string
}

// VerificationDocuments are the files attached to an application. Photo is
// optional.
type VerificationDocuments struct {
	IDCard         *storage.Upload
	BusinessPermit *storage.Upload
	Photo          *storage.Upload
}

// Approval is the outcome of approving a request
type Approval struct {
	Request     *domain.VerificationRequest `json:"verification"`
	User        *domain.User                `json:"user"`
	AccessToken string                      `json:"access_token"`
}

// VerificationEvent is published when a request is reviewed
type VerificationEvent struct {
	RequestID  uuid.UUID  `json:"verification_id"`
	UserID     uuid.UUID  `json:"user_id"`
	Status     string     `json:"status"`
	ListingID  *uuid.UUID `json:"umkm_id,omitempty"`
	Reason     string     `json:"rejection_reason,omitempty"`
	ReviewedBy uuid.UUID  `json:"reviewed_by"`
}

// VerificationService defines the interface for seller verification
type VerificationService interface {
	Request(ctx context.Context, userID uuid.UUID, in VerificationInput, docs VerificationDocuments) (*domain.VerificationRequest, error)
	MyStatus(ctx context.Context, userID uuid.UUID) (*domain.VerificationRequest, error)
	List(ctx context.Context, status string) ([]*domain.VerificationRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.VerificationRequest, error)
	Approve(ctx context.Context, reviewerID, id uuid.UUID) (*Approval, error)
	Reject(ctx context.Context, reviewerID, id uuid.UUID, reason string) (*domain.VerificationRequest, error)
}

type verificationService struct {
	verifications repository.VerificationRepository
	users         repository.UserRepository
	categories    repository.CategoryRepository
	images        storage.ImageStore
	tokens        *TokenIssuer
	publisher     events.Publisher
	logger        *zap.Logger
	now           func() time.Time
}

// NewVerificationService creates a new instance of VerificationService
func NewVerificationService(
	verifications repository.VerificationRepository,
	users repository.UserRepository,
	categories repository.CategoryRepository,
	images storage.ImageStore,
	tokens *TokenIssuer,
	publisher events.Publisher,
	logger *zap.Logger,
) VerificationService {
	return &verificationService{
		verifications: verifications,
		users:         users,
		categories:    categories,
		images:        images,
		tokens:        tokens,
		publisher:     publisher,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Request files a seller application. Checks run before any upload so a
// rejected application stores no documents.
func (s *verificationService) Request(ctx context.Context, userID uuid.UUID, in VerificationInput, docs VerificationDocuments) (*domain.VerificationRequest, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleSeller {
		return nil, ErrAlreadySeller
	}

	latest, err := s.verifications.FindLatestByUser(ctx, userID)
	switch {
	case err == nil && latest.Status == domain.VerificationStatusPending:
		return nil, repository.ErrVerificationAlreadyPending
	case err != nil && !errors.Is(err, repository.ErrVerificationNotFound):
		return nil, err
	}

	businessName := strings.TrimSpace(in.BusinessName)
	if businessName == "" {
		return nil, invalidInput("nama_umkm is required")
	}
	point, err := geo.ParsePoint(in.Latitude, in.Longitude)
	if err != nil {
		return nil, err
	}
	categoryID, err := resolveCategory(ctx, s.categories, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if docs.IDCard == nil || docs.BusinessPermit == nil {
		return nil, ErrMissingDocument
	}

	idCardURL, err := s.images.Save(ctx, folderVerifications, *docs.IDCard)
	if err != nil {
		return nil, fmt.Errorf("failed to store id card: %w", err)
	}
	permitURL, err := s.images.Save(ctx, folderVerifications, *docs.BusinessPermit)
	if err != nil {
		return nil, fmt.Errorf("failed to store business permit: %w", err)
	}
	var photoURL string
	if docs.Photo != nil {
		photoURL, err = s.images.Save(ctx, folderVerifications, *docs.Photo)
		if err != nil {
			return nil, fmt.Errorf("failed to store photo: %w", err)
		}
	}

	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		fullName = user.FullName
	}

	now := s.now()
	req := &domain.VerificationRequest{
		ID:                uuid.New(),
		UserID:            userID,
		FullName:          fullName,
		Email:             user.Email,
		Phone:             strings.TrimSpace(in.Phone),
		BusinessName:      businessName,
		Caption:           strings.TrimSpace(in.Caption),
		ThumbnailURL:      photoURL,
		Latitude:          point.Lat,
		Longitude:         point.Lng,
		Address:           strings.TrimSpace(in.Address),
		CategoryID:        categoryID,
		IDCardURL:         idCardURL,
		BusinessPermitURL: permitURL,
		Status:            domain.VerificationStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.verifications.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("Seller verification requested",
		zap.String("verification_id", req.ID.String()),
		zap.String("user_id", userID.String()),
	)
	return req, nil
}

func (s *verificationService) MyStatus(ctx context.Context, userID uuid.UUID) (*domain.VerificationRequest, error) {
	return s.verifications.FindLatestByUser(ctx, userID)
}

// List returns requests in a status, pending when status is empty
func (s *verificationService) List(ctx context.Context, status string) ([]*domain.VerificationRequest, error) {
	if status == "" {
		status = domain.VerificationStatusPending
	}
	if !slices.Contains(verificationStatuses, status) {
		return nil, invalidInput("status must be one of %v", verificationStatuses)
	}
	return s.verifications.ListByStatus(ctx, status)
}

func (s *verificationService) Get(ctx context.Context, id uuid.UUID) (*domain.VerificationRequest, error) {
	return s.verifications.FindByID(ctx, id)
}

// Approve accepts a pending request. The listing, the role promotion and
// the status change commit together; the returned token carries the new
// seller role.
func (s *verificationService) Approve(ctx context.Context, reviewerID, id uuid.UUID) (*Approval, error) {
	listingID := uuid.New()
	req, user, err := s.verifications.Approve(ctx, id, reviewerID, listingID, s.now())
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.AccessToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Seller verification approved",
		zap.String("verification_id", id.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("umkm_id", listingID.String()),
	)
	s.publish(ctx, events.TypeVerificationApproved, VerificationEvent{
		RequestID:  req.ID,
		UserID:     req.UserID,
		Status:     req.Status,
		ListingID:  req.CreatedListingID,
		ReviewedBy: reviewerID,
	})

	return &Approval{Request: req, User: user, AccessToken: token}, nil
}

func (s *verificationService) Reject(ctx context.Context, reviewerID, id uuid.UUID, reason string) (*domain.VerificationRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRejectionReasonMissing
	}

	req, err := s.verifications.Reject(ctx, id, reviewerID, reason, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Seller verification rejected",
		zap.String("verification_id", id.String()),
		zap.String("user_id", req.UserID.String()),
	)
	s.publish(ctx, events.TypeVerificationRejected, VerificationEvent{
		RequestID:  req.ID,
		UserID:     req.UserID,
		Status:     req.Status,
		Reason:     reason,
		ReviewedBy: reviewerID,
	})

	return req, nil
}

func (s *verificationService) publish(ctx context.Context, eventType string, event VerificationEvent) {
	if err := s.publisher.Publish(ctx, eventType, event.UserID.String(), event); err != nil {
		s.logger.Warn("Failed to publish verification event",
			zap.String("type", eventType),
			zap.String("verification_id", event.RequestID.String()),
			zap.Error(err),
		)
	}
}
