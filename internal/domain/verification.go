package domain

import (
	"time"

	"github.com/google/uuid"
)

// Verification request statuses
const (
	VerificationStatusPending  = "pending"
	VerificationStatusApproved = "approved"
	VerificationStatusRejected = "rejected"
)

// VerificationRequest is a buyer's application to become a seller. It carries
// the business that will be created as a listing once an admin approves it.
type VerificationRequest struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	UserID            uuid.UUID  `json:"user_id" db:"user_id"`
	FullName          string     `json:"full_name" db:"full_name"`
	Email             string     `json:"email" db:"email"`
	Phone             string     `json:"phone" db:"phone"`
	BusinessName      string     `json:"nama_umkm" db:"business_name"`
	Caption           string     `json:"caption" db:"caption"`
	ThumbnailURL      string     `json:"thumbnail" db:"thumbnail_url"`
	Latitude          float64    `json:"latitude" db:"latitude"`
	Longitude         float64    `json:"longitude" db:"longitude"`
	Address           string     `json:"alamat" db:"address"`
	CategoryID        uuid.UUID  `json:"category_id" db:"category_id"`
	IDCardURL         string     `json:"id_card_url" db:"id_card_url"`
	BusinessPermitURL string     `json:"business_permit_url" db:"business_permit_url"`
	Status            string     `json:"status" db:"status"`
	RejectionReason   string     `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ReviewedBy        *uuid.UUID `json:"reviewed_by" db:"reviewed_by"`
	ReviewedAt        *time.Time `json:"reviewed_at" db:"reviewed_at"`
	CreatedListingID  *uuid.UUID `json:"created_umkm_id" db:"created_listing_id"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// ToListing builds the listing an approved request turns into
func (v *VerificationRequest) ToListing(id uuid.UUID, now time.Time) *Listing {
	categoryID := v.CategoryID
	return &Listing{
		ID:         id,
		Name:       v.BusinessName,
		Caption:    v.Caption,
		ImageURL:   v.ThumbnailURL,
		Address:    v.Address,
		Latitude:   v.Latitude,
		Longitude:  v.Longitude,
		SellerID:   v.UserID,
		CategoryID: &categoryID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
