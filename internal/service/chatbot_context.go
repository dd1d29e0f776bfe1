package service

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/search"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	featuredProductLimit   = 15
	popularCategoryLimit   = 5
	shortDescriptionRunes  = 50
	contextSnippetRunes    = 100
	minimumCatalogProducts = 5
)

// Price positions of a seller against the rest of their categories
const (
	PriceAboveMarket   = "above_market"
	PriceBelowMarket   = "below_market"
	PriceMarketAverage = "market_average"
)

var rupiah = message.NewPrinter(language.Indonesian)

// formatRupiah renders an amount with Indonesian digit grouping, e.g.
// "Rp 15.000"
func formatRupiah(amount float64) string {
	return rupiah.Sprintf("Rp %d", int64(math.Round(amount)))
}

func snippet(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// SellerSummary totals a seller's catalog
type SellerSummary struct {
	TotalListings         int     `json:"total_umkm"`
	TotalProducts         int     `json:"total_products"`
	AvgProductPrice       float64 `json:"avg_product_price"`
	TotalRevenuePotential float64 `json:"total_revenue_potential"`
}

// SellerListing describes one of the seller's listings
type SellerListing struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Location     string    `json:"location"`
	HasCaption   bool      `json:"has_caption"`
	HasThumbnail bool      `json:"has_thumbnail"`
	ProductCount int       `json:"product_count"`
}

// SellerProduct describes one of the seller's products
type SellerProduct struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Price             float64   `json:"price"`
	Listing           string    `json:"umkm"`
	HasImage          bool      `json:"has_image"`
	HasDescription    bool      `json:"has_description"`
	DescriptionLength int       `json:"description_length"`
	AgeDays           int       `json:"age_days"`
}

// QualityAnalysis counts incomplete products. CompletionRate is the share,
// in percent, of products with neither gap.
type QualityAnalysis struct {
	WithoutImage     int `json:"products_without_image"`
	ShortDescription int `json:"products_with_short_description"`
	CompletionRate   int `json:"completion_rate"`
}

// MarketInsights compares the seller's prices with other sellers in the
// same categories
type MarketInsights struct {
	AvgPrice           float64 `json:"your_avg_price"`
	CompetitorAvgPrice float64 `json:"competitor_avg_price"`
	PricePosition      string  `json:"price_position"`
	TotalCompetitors   int     `json:"total_competitors"`
}

// SellerContext is the data a seller's chatbot answers are grounded on
type SellerContext struct {
	HasListing      bool             `json:"has_umkm"`
	Status          string           `json:"status,omitempty"`
	Message         string           `json:"message,omitempty"`
	Summary         *SellerSummary   `json:"seller_summary,omitempty"`
	Listings        []SellerListing  `json:"umkm_list,omitempty"`
	Products        []SellerProduct  `json:"products,omitempty"`
	Quality         *QualityAnalysis `json:"quality_analysis,omitempty"`
	Market          *MarketInsights  `json:"market_insights,omitempty"`
	Recommendations []string         `json:"recommendations"`
}

func (c *SellerContext) summary() string {
	return fmt.Sprintf("UMKM: %d, Products: %d", len(c.Listings), len(c.Products))
}

var newSellerRecommendations = []string{
	"Lengkapi profil UMKM Anda dengan nama, lokasi, dan deskripsi yang menarik",
	"Upload foto produk berkualitas tinggi (minimal 800x600px)",
	"Tentukan kategori yang tepat agar mudah ditemukan buyer",
	"Tambahkan minimal 3-5 produk untuk mulai berjualan",
	"Tulis deskripsi produk yang detail dan persuasif",
}

// sellerContext gathers the seller's listings, products, catalog quality
// and price position
func (s *chatbotService) sellerContext(ctx context.Context, sellerID uuid.UUID) (*SellerContext, error) {
	listings, err := s.listings.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return &SellerContext{
			HasListing:      false,
			Status:          "new_seller",
			Message:         "Seller belum memiliki UMKM terdaftar",
			Recommendations: newSellerRecommendations,
		}, nil
	}

	products, err := s.products.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	var categoryIDs []uuid.UUID
	for _, l := range listings {
		if l.CategoryID != nil && !slices.Contains(categoryIDs, *l.CategoryID) {
			categoryIDs = append(categoryIDs, *l.CategoryID)
		}
	}
	categories, err := s.categories.FindByIDs(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}

	listingNames := make(map[uuid.UUID]string, len(listings))
	productCounts := make(map[uuid.UUID]int, len(listings))
	for _, l := range listings {
		listingNames[l.ID] = l.Name
	}

	now := s.now()
	var total float64
	var complete int
	quality := &QualityAnalysis{}
	sellerProducts := make([]SellerProduct, 0, len(products))
	for _, p := range products {
		total += p.Price
		productCounts[p.ListingID]++
		if p.ImageURL == "" {
			quality.WithoutImage++
		}
		descLen := utf8.RuneCountInString(p.Description)
		if descLen < shortDescriptionRunes {
			quality.ShortDescription++
		}
		if p.ImageURL != "" && descLen >= shortDescriptionRunes {
			complete++
		}
		sellerProducts = append(sellerProducts, SellerProduct{
			ID:                p.ID,
			Name:              p.Name,
			Price:             p.Price,
			Listing:           listingNames[p.ListingID],
			HasImage:          p.ImageURL != "",
			HasDescription:    p.Description != "",
			DescriptionLength: descLen,
			AgeDays:           int(now.Sub(p.CreatedAt) / (24 * time.Hour)),
		})
	}
	if len(products) > 0 {
		quality.CompletionRate = int(math.Round(float64(complete) / float64(len(products)) * 100))
	}

	var avg float64
	if len(products) > 0 {
		avg = total / float64(len(products))
	}

	sellerListings := make([]SellerListing, 0, len(listings))
	for _, l := range listings {
		name := search.NoCategoryName
		if l.CategoryID != nil {
			if c, ok := categories[*l.CategoryID]; ok && c.Name != "" {
				name = c.Name
			}
		}
		sellerListings = append(sellerListings, SellerListing{
			ID:           l.ID,
			Name:         l.Name,
			Category:     name,
			Location:     l.Address,
			HasCaption:   l.Caption != "",
			HasThumbnail: l.ImageURL != "",
			ProductCount: productCounts[l.ID],
		})
	}

	market, err := s.marketInsights(ctx, sellerID, categoryIDs, avg)
	if err != nil {
		return nil, err
	}

	return &SellerContext{
		HasListing: true,
		Summary: &SellerSummary{
			TotalListings:         len(listings),
			TotalProducts:         len(products),
			AvgProductPrice:       avg,
			TotalRevenuePotential: total,
		},
		Listings:        sellerListings,
		Products:        sellerProducts,
		Quality:         quality,
		Market:          market,
		Recommendations: sellerRecommendations(listings, len(products), quality),
	}, nil
}

// marketInsights averages other sellers' prices over the seller's
// categories, weighting each category by its product count
func (s *chatbotService) marketInsights(ctx context.Context, sellerID uuid.UUID, categoryIDs []uuid.UUID, avg float64) (*MarketInsights, error) {
	var sum float64
	var count int
	for _, id := range categoryIDs {
		stats, err := s.products.PriceStats(ctx, &id, &sellerID)
		if err != nil {
			return nil, err
		}
		sum += stats.Avg * float64(stats.Count)
		count += stats.Count
	}

	var competitorAvg float64
	if count > 0 {
		competitorAvg = sum / float64(count)
	}

	return &MarketInsights{
		AvgPrice:           avg,
		CompetitorAvgPrice: competitorAvg,
		PricePosition:      pricePosition(avg, competitorAvg),
		TotalCompetitors:   count,
	}, nil
}

func pricePosition(avg, competitorAvg float64) string {
	switch {
	case avg > competitorAvg:
		return PriceAboveMarket
	case avg < competitorAvg:
		return PriceBelowMarket
	default:
		return PriceMarketAverage
	}
}

// sellerRecommendations lists catalog gaps worth fixing, or general growth
// tips when there are none
func sellerRecommendations(listings []*domain.Listing, productCount int, quality *QualityAnalysis) []string {
	var recs []string

	switch {
	case productCount == 0:
		recs = append(recs, "🎯 Prioritas: Tambahkan produk pertama Anda untuk mulai berjualan")
	case productCount < minimumCatalogProducts:
		recs = append(recs, fmt.Sprintf("📦 Tambahkan lebih banyak variasi produk (saat ini: %d). Target minimal: %d produk untuk pilihan yang lebih menarik", productCount, minimumCatalogProducts))
	}

	if quality.WithoutImage > 0 {
		recs = append(recs, fmt.Sprintf("📸 %d produk belum memiliki foto. Upload foto berkualitas tinggi untuk meningkatkan daya tarik", quality.WithoutImage))
	}
	if quality.ShortDescription > 0 {
		recs = append(recs, fmt.Sprintf("✍️ %d produk memiliki deskripsi yang terlalu singkat. Perkaya deskripsi dengan detail, manfaat, dan keunikan produk", quality.ShortDescription))
	}

	for _, l := range listings {
		if l.Caption == "" {
			recs = append(recs, fmt.Sprintf("🏪 UMKM %q belum memiliki caption. Tambahkan deskripsi menarik tentang bisnis Anda", l.Name))
		}
		if l.ImageURL == "" {
			recs = append(recs, fmt.Sprintf("🖼️ UMKM %q belum memiliki foto. Upload foto toko/produk unggulan sebagai thumbnail", l.Name))
		}
	}

	if len(recs) == 0 {
		recs = []string{
			"✅ Profil UMKM Anda sudah lengkap! Fokus pada pemasaran dan pelayanan pelanggan",
			"📱 Pertimbangkan untuk membuat konten promosi di social media",
			"💡 Tawarkan promo atau bundle untuk meningkatkan penjualan",
		}
	}
	return recs
}

// PlatformSummary counts what the marketplace offers
type PlatformSummary struct {
	TotalListings   int `json:"total_umkm"`
	TotalProducts   int `json:"total_products"`
	TotalCategories int `json:"total_categories"`
	ActiveSellers   int `json:"active_sellers"`
}

// FeaturedListing is the listing part of a featured product
type FeaturedListing struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Category string `json:"category"`
}

// FeaturedProduct is a recently added product
type FeaturedProduct struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Price       float64         `json:"price"`
	Description string          `json:"description"`
	Listing     FeaturedListing `json:"umkm"`
	Thumbnail   string          `json:"thumbnail"`
	HasImage    bool            `json:"has_image"`
}

// DirectoryListing is a listing as shown to buyers
type DirectoryListing struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Coordinates struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"coordinates"`
	Seller      string `json:"seller"`
	HasImage    bool   `json:"has_image"`
	Description string `json:"description"`
}

// PriceInsights are formatted marketplace price statistics
type PriceInsights struct {
	Lowest        string `json:"lowest_price"`
	Highest       string `json:"highest_price"`
	Average       string `json:"average_price"`
	TotalProducts int    `json:"total_products"`
}

// BuyerContext is the data a buyer's chatbot answers are grounded on
type BuyerContext struct {
	Platform          PlatformSummary    `json:"platform_summary"`
	Categories        []string           `json:"categories"`
	PopularCategories []string           `json:"popular_categories"`
	FeaturedProducts  []FeaturedProduct  `json:"featured_products"`
	Listings          []DirectoryListing `json:"umkm_list"`
	PriceInsights     PriceInsights      `json:"price_insights"`
	ShoppingTips      []string           `json:"shopping_tips"`
	AcehSpecialties   []string           `json:"aceh_specialties"`
}

func (c *BuyerContext) summary() string {
	return fmt.Sprintf("Categories: %d, Featured: %d", len(c.Categories), len(c.FeaturedProducts))
}

var shoppingTips = []string{
	"🔍 Gunakan filter kategori untuk menemukan produk yang Anda cari lebih cepat",
	"📍 Aktifkan lokasi untuk melihat UMKM terdekat dari Anda",
	"💰 Bandingkan harga antar UMKM untuk mendapatkan penawaran terbaik",
	"⭐ Cek foto dan deskripsi produk dengan teliti sebelum membeli",
	"💬 Jangan ragu untuk menghubungi seller jika ada pertanyaan",
	"🏪 Support UMKM lokal untuk membantu ekonomi masyarakat Aceh",
}

var acehSpecialties = []string{
	"Kopi Gayo (Arabica & Robusta premium)",
	"Batik dan Fashion khas Aceh",
	"Kerajinan tangan tradisional",
	"Makanan khas: Mie Aceh, Rendang Aceh",
	"Rempah-rempah berkualitas tinggi",
	"Souvenir dan cendera mata unik",
}

// buyerContext gathers the marketplace overview shown to buyers
func (s *chatbotService) buyerContext(ctx context.Context) (*BuyerContext, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	listings, err := s.listings.List(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.products.PriceStats(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	categoryNames := make(map[uuid.UUID]string, len(categories))
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
		names = append(names, c.Name)
	}

	byID := make(map[uuid.UUID]*domain.Listing, len(listings))
	var sellerIDs []uuid.UUID
	for _, l := range listings {
		byID[l.ID] = l
		if !slices.Contains(sellerIDs, l.SellerID) {
			sellerIDs = append(sellerIDs, l.SellerID)
		}
	}
	owners, err := s.users.FindNamesByIDs(ctx, sellerIDs)
	if err != nil {
		return nil, err
	}

	listingCategory := func(l *domain.Listing) string {
		if l != nil && l.CategoryID != nil {
			if name, ok := categoryNames[*l.CategoryID]; ok && name != "" {
				return name
			}
		}
		return search.NoCategoryName
	}

	categoryCounts := map[string]int{}
	featured := make([]FeaturedProduct, 0, featuredProductLimit)
	for _, p := range products {
		listing := byID[p.ListingID]
		if listing != nil && listing.CategoryID != nil {
			if name, ok := categoryNames[*listing.CategoryID]; ok {
				categoryCounts[name]++
			}
		}
		if len(featured) == featuredProductLimit {
			continue
		}
		fp := FeaturedProduct{
			ID:          p.ID,
			Name:        p.Name,
			Price:       p.Price,
			Description: snippet(p.Description, contextSnippetRunes),
			Thumbnail:   p.ImageURL,
			HasImage:    p.ImageURL != "",
		}
		if listing != nil {
			fp.Listing = FeaturedListing{Name: listing.Name, Location: listing.Address, Category: listingCategory(listing)}
		}
		featured = append(featured, fp)
	}

	directory := make([]DirectoryListing, 0, len(listings))
	for _, l := range listings {
		entry := DirectoryListing{
			ID:          l.ID,
			Name:        l.Name,
			Category:    listingCategory(l),
			Location:    l.Address,
			Seller:      owners[l.SellerID],
			HasImage:    l.ImageURL != "",
			Description: snippet(l.Caption, contextSnippetRunes),
		}
		entry.Coordinates.Lat = l.Latitude
		entry.Coordinates.Lng = l.Longitude
		directory = append(directory, entry)
	}

	return &BuyerContext{
		Platform: PlatformSummary{
			TotalListings:   len(listings),
			TotalProducts:   len(products),
			TotalCategories: len(categories),
			ActiveSellers:   len(sellerIDs),
		},
		Categories:        names,
		PopularCategories: topCategories(categoryCounts, popularCategoryLimit),
		FeaturedProducts:  featured,
		Listings:          directory,
		PriceInsights: PriceInsights{
			Lowest:        formatRupiah(stats.Min),
			Highest:       formatRupiah(stats.Max),
			Average:       formatRupiah(stats.Avg),
			TotalProducts: stats.Count,
		},
		ShoppingTips:    shoppingTips,
		AcehSpecialties: acehSpecialties,
	}, nil
}

// topCategories returns up to n category names by product count, ties
// broken by name
func topCategories(counts map[string]int, n int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}
