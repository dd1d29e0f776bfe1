package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account roles
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// Seller verification state as tracked on the account
const (
	AccountVerificationNone     = "none"
	AccountVerificationPending  = "pending"
	AccountVerificationVerified = "verified"
	AccountVerificationRejected = "rejected"
)

// User is a marketplace account
type User struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	FullName           string    `json:"fullname" db:"full_name"`
	Email              string    `json:"email" db:"email"`
	PasswordHash       string    `json:"-" db:"password_hash"`
	Role               string    `json:"role" db:"role"`
	Phone              string    `json:"phone" db:"phone"`
	ProfilePicture     string    `json:"profile_picture" db:"profile_picture"`
	VerificationStatus string    `json:"verification_status" db:"verification_status"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// RefreshToken is an opaque long-lived token used to mint access tokens
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}
