package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is an item sold by a listing
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ListingID   uuid.UUID `json:"umkm_id" db:"listing_id"`
	Name        string    `json:"nama_product" db:"name"`
	Description string    `json:"deskripsi_produk" db:"description"`
	Price       float64   `json:"harga" db:"price"`
	ImageURL    string    `json:"thumbnail" db:"image_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Category groups listings by line of business
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"nama_kategori" db:"name"`
	CreatedBy uuid.UUID `json:"admin_id" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProductMatch is a product joined with the names of its listing and the
// listing's category
type ProductMatch struct {
	Product      *Product `json:"product"`
	ListingName  string   `json:"nama_umkm"`
	CategoryName string   `json:"kategori"`
}

// PriceStats summarises a set of product prices
type PriceStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}
