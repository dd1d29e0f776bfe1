package domain

import (
	"time"

	"github.com/google/uuid"
)

// Listing is a local business (UMKM) shown in the directory.
// Latitude and Longitude are the source of truth; the stored point geometry
// is derived from them by the database.
type Listing struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Name       string     `json:"nama_umkm" db:"name"`
	Caption    string     `json:"caption" db:"caption"`
	ImageURL   string     `json:"thumbnail" db:"image_url"`
	Address    string     `json:"alamat" db:"address"`
	Latitude   float64    `json:"latitude" db:"latitude"`
	Longitude  float64    `json:"longitude" db:"longitude"`
	SellerID   uuid.UUID  `json:"seller_id" db:"seller_id"`
	CategoryID *uuid.UUID `json:"category_id" db:"category_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// ListingHit is a listing returned by a proximity query with its distance
// from the query point.
type ListingHit struct {
	Listing        *Listing
	DistanceMeters float64
}

// PriceRange summarises the prices of a listing's products
type PriceRange struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}
