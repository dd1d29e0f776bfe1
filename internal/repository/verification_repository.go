package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"levelup-marketplace/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrVerificationNotFound       = errors.New("verification request not found")
	ErrVerificationNotPending     = errors.New("verification request is not pending")
	ErrVerificationAlreadyPending = errors.New("a verification request is already pending")
)

// VerificationRepository defines the interface for seller verification data
// access. Approve and Reject are atomic and only act on pending requests.
type VerificationRepository interface {
	Create(ctx context.Context, req *domain.VerificationRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.VerificationRequest, error)
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.VerificationRequest, error)
	ListByStatus(ctx context.Context, status string) ([]*domain.VerificationRequest, error)
	Approve(ctx context.Context, id, reviewerID, listingID uuid.UUID, now time.Time) (*domain.VerificationRequest, *domain.User, error)
	Reject(ctx context.Context, id, reviewerID uuid.UUID, reason string, now time.Time) (*domain.VerificationRequest, error)
}

type verificationRepository struct {
	db *sql.DB
}

// NewVerificationRepository creates a new instance of VerificationRepository
func NewVerificationRepository(db *sql.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

const verificationColumns = `id, user_id, full_name, email, phone, business_name, caption, thumbnail_url,
	latitude, longitude, address, category_id, id_card_url, business_permit_url, status,
	rejection_reason, reviewed_by, reviewed_at, created_listing_id, created_at, updated_at`

func scanVerification(s scanner) (*domain.VerificationRequest, error) {
	req := &domain.VerificationRequest{}
	err := s.Scan(
		&req.ID,
		&req.UserID,
		&req.FullName,
		&req.Email,
		&req.Phone,
		&req.BusinessName,
		&req.Caption,
		&req.ThumbnailURL,
		&req.Latitude,
		&req.Longitude,
		&req.Address,
		&req.CategoryID,
		&req.IDCardURL,
		&req.BusinessPermitURL,
		&req.Status,
		&req.RejectionReason,
		&req.ReviewedBy,
		&req.ReviewedAt,
		&req.CreatedListingID,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	return req, err
}

// Create stores a pending request and marks the account as pending review
func (r *verificationRepository) Create(ctx context.Context, req *domain.VerificationRequest) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO seller_verifications (id, user_id, full_name, email, phone, business_name, caption,
			thumbnail_url, latitude, longitude, address, category_id, id_card_url, business_permit_url,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		req.ID,
		req.UserID,
		req.FullName,
		req.Email,
		req.Phone,
		req.BusinessName,
		req.Caption,
		req.ThumbnailURL,
		req.Latitude,
		req.Longitude,
		req.Address,
		req.CategoryID,
		req.IDCardURL,
		req.BusinessPermitURL,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrVerificationAlreadyPending
		}
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create verification request: %w", err)
	}

	if err := setAccountVerification(ctx, tx, req.UserID, domain.AccountVerificationPending); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit verification request: %w", err)
	}

	return nil
}

// FindByID retrieves a request by ID
func (r *verificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.VerificationRequest, error) {
	query := `SELECT ` + verificationColumns + ` FROM seller_verifications WHERE id = $1`

	req, err := scanVerification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVerificationNotFound
		}
		return nil, fmt.Errorf("failed to find verification request: %w", err)
	}

	return req, nil
}

// FindLatestByUser retrieves the most recent request an account submitted
func (r *verificationRepository) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.VerificationRequest, error) {
	query := `
		SELECT ` + verificationColumns + `
		FROM seller_verifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	req, err := scanVerification(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVerificationNotFound
		}
		return nil, fmt.Errorf("failed to find latest verification request: %w", err)
	}

	return req, nil
}

// ListByStatus retrieves requests in one status, oldest first
func (r *verificationRepository) ListByStatus(ctx context.Context, status string) ([]*domain.VerificationRequest, error) {
	query := `
		SELECT ` + verificationColumns + `
		FROM seller_verifications
		WHERE status = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification requests: %w", err)
	}
	defer rows.Close()

	requests := []*domain.VerificationRequest{}
	for rows.Next() {
		req, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verification request: %w", err)
		}
		requests = append(requests, req)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating verification requests: %w", err)
	}

	return requests, nil
}

// Approve marks a pending request approved, creates its listing and promotes
// the applicant to seller, all in one transaction. The conditional update on
// status makes concurrent approvals of the same request fail with
// ErrVerificationNotPending.
func (r *verificationRepository) Approve(ctx context.Context, id, reviewerID, listingID uuid.UUID, now time.Time) (*domain.VerificationRequest, *domain.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	req, err := r.review(ctx, tx, id, reviewerID, domain.VerificationStatusApproved, "", now)
	if err != nil {
		return nil, nil, err
	}

	if err := insertListing(ctx, tx, req.ToListing(listingID, now)); err != nil {
		return nil, nil, err
	}

	_, err = tx.ExecContext(ctx, `UPDATE seller_verifications SET created_listing_id = $2 WHERE id = $1`, id, listingID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to link created listing: %w", err)
	}
	req.CreatedListingID = &listingID

	user, err := scanUser(tx.QueryRowContext(ctx, `
		UPDATE users
		SET role = $2, verification_status = $3, phone = $4
		WHERE id = $1
		RETURNING `+userColumns,
		req.UserID,
		domain.RoleSeller,
		domain.AccountVerificationVerified,
		req.Phone,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to promote user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit approval: %w", err)
	}

	return req, user, nil
}

// Reject marks a pending request rejected with a reason and records the
// outcome on the account
func (r *verificationRepository) Reject(ctx context.Context, id, reviewerID uuid.UUID, reason string, now time.Time) (*domain.VerificationRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	req, err := r.review(ctx, tx, id, reviewerID, domain.VerificationStatusRejected, reason, now)
	if err != nil {
		return nil, err
	}

	if err := setAccountVerification(ctx, tx, req.UserID, domain.AccountVerificationRejected); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rejection: %w", err)
	}

	return req, nil
}

// review moves a pending request to its final status and returns the
// updated row
func (r *verificationRepository) review(ctx context.Context, tx *sql.Tx, id, reviewerID uuid.UUID, status, reason string, now time.Time) (*domain.VerificationRequest, error) {
	req, err := scanVerification(tx.QueryRowContext(ctx, `
		UPDATE seller_verifications
		SET status = $2, rejection_reason = $3, reviewed_by = $4, reviewed_at = $5
		WHERE id = $1 AND status = 'pending'
		RETURNING `+verificationColumns,
		id,
		status,
		reason,
		reviewerID,
		now,
	))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to review verification request: %w", err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM seller_verifications WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check verification request: %w", err)
	}
	if !exists {
		return nil, ErrVerificationNotFound
	}
	return nil, ErrVerificationNotPending
}

func setAccountVerification(ctx context.Context, db execer, userID uuid.UUID, status string) error {
	result, err := db.ExecContext(ctx, `UPDATE users SET verification_status = $2 WHERE id = $1`, userID, status)
	if err != nil {
		return fmt.Errorf("failed to update account verification status: %w", err)
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
