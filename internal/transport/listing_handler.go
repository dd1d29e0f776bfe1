package transport

import (
	"context"
	"net/http"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/middleware"
	"levelup-marketplace/internal/search"
	"levelup-marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListingSearcher answers proximity and keyword searches
type ListingSearcher interface {
	Nearby(ctx context.Context, q search.Query) (*search.Result, error)
	Search(ctx context.Context, q search.Query) (*search.Result, error)
}

// UserLocation echoes the search center back to the client
type UserLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SearchParams describes how a nearby query was interpreted
type SearchParams struct {
	Radius           float64          `json:"radius"`
	Category         *uuid.UUID       `json:"kategori"`
	Search           string           `json:"search"`
	Keywords         []string         `json:"keywords"`
	InferredCategory *domain.Category `json:"inferredCategory"`
}

// NearbyResponse is the data block of GET /umkm/nearby
type NearbyResponse struct {
	Listings     []search.Item `json:"umkms"`
	UserLocation UserLocation  `json:"userLocation"`
	SearchParams SearchParams  `json:"searchParams"`
	TotalFound   int           `json:"totalFound"`
}

// SearchInfo describes how a keyword search was interpreted
type SearchInfo struct {
	Query            string           `json:"query"`
	Keywords         []string         `json:"keywords"`
	InferredCategory *domain.Category `json:"inferredCategory"`
	UserLocation     UserLocation     `json:"userLocation"`
	Radius           float64          `json:"radius"`
	TotalFound       int              `json:"totalFound"`
}

// SearchResponse is the data block of GET /umkm/search
type SearchResponse struct {
	Listings   []search.Item `json:"umkms"`
	SearchInfo SearchInfo    `json:"searchInfo"`
}

// ListingHandler handles HTTP requests for listings
type ListingHandler struct {
	listingService service.ListingService
	searcher       ListingSearcher
	logger         *zap.Logger
}

// NewListingHandler creates a new ListingHandler
func NewListingHandler(listingService service.ListingService, searcher ListingSearcher, logger *zap.Logger) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		searcher:       searcher,
		logger:         logger,
	}
}

// RegisterRoutes registers all listing routes
func (h *ListingHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/umkm", func(r chi.Router) {
		r.Get("/all", h.All)
		r.Get("/nearby", h.Nearby)
		r.Get("/search", h.Search)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireRole(h.logger, domain.RoleSeller))
			r.Post("/create", h.Create)
			r.Put("/{id}", h.Update)
			r.Get("/mine", h.Mine)
		})

		r.Get("/{id}", h.Detail)
	})
}

// Nearby lists listings around a point, optionally narrowed by category and text
func (h *ListingHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.searcher.Nearby(r.Context(), search.Query{
		Latitude:  q.Get("latitude"),
		Longitude: q.Get("longitude"),
		Radius:    q.Get("radius"),
		Text:      q.Get("search"),
		Category:  q.Get("kategori"),
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to search nearby umkm")
		return
	}

	middleware.RespondWithData(w, http.StatusOK, "nearby umkm retrieved", NearbyResponse{
		Listings:     items(result),
		UserLocation: location(result),
		SearchParams: SearchParams{
			Radius:           result.RadiusKm,
			Category:         result.CategoryID,
			Search:           result.Text,
			Keywords:         keywords(result),
			InferredCategory: result.InferredCategory,
		},
		TotalFound: len(result.Items),
	})
}

// Search runs a keyword search around a point
func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.searcher.Search(r.Context(), search.Query{
		Latitude:  q.Get("latitude"),
		Longitude: q.Get("longitude"),
		Radius:    q.Get("radius"),
		Text:      q.Get("query"),
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to search umkm")
		return
	}

	middleware.RespondWithData(w, http.StatusOK, "search completed", SearchResponse{
		Listings: items(result),
		SearchInfo: SearchInfo{
			Query:            result.Text,
			Keywords:         keywords(result),
			InferredCategory: result.InferredCategory,
			UserLocation:     location(result),
			Radius:           result.RadiusKm,
			TotalFound:       len(result.Items),
		},
	})
}

// All lists every listing with its price range
func (h *ListingHandler) All(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	listings, err := h.listingService.All(r.Context(), q.Get("latitude"), q.Get("longitude"))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list umkm")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "umkm retrieved", listings)
}

func (h *ListingHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	detail, err := h.listingService.Detail(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get umkm")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "umkm retrieved", detail)
}

func (h *ListingHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	listings, err := h.listingService.Mine(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list umkm")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "umkm retrieved", listings)
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	photo, err := middleware.FormUpload(r, "foto", false)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to read upload")
		return
	}

	listing, err := h.listingService.Create(r.Context(), actor.UserID, service.ListingInput{
		Name:       deref(formValue(r, "nama_umkm")),
		Caption:    deref(formValue(r, "caption")),
		Address:    deref(formValue(r, "alamat")),
		Latitude:   deref(formValue(r, "latitude")),
		Longitude:  deref(formValue(r, "longitude")),
		CategoryID: deref(formValue(r, "category_id")),
	}, photo)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create umkm")
		return
	}

	h.logger.Info("Listing created", zap.String("listing_id", listing.ID.String()))
	middleware.RespondWithData(w, http.StatusCreated, "umkm created", listing)
}

func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	photo, err := middleware.FormUpload(r, "foto", false)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to read upload")
		return
	}

	listing, err := h.listingService.Update(r.Context(), actor.UserID, id, service.ListingPatch{
		Name:       formValue(r, "nama_umkm"),
		Caption:    formValue(r, "caption"),
		Address:    formValue(r, "alamat"),
		Latitude:   formValue(r, "latitude"),
		Longitude:  formValue(r, "longitude"),
		CategoryID: formValue(r, "category_id"),
	}, photo)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update umkm")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "umkm updated", listing)
}

// items never returns nil so an empty result encodes as []
func items(result *search.Result) []search.Item {
	if result.Items == nil {
		return []search.Item{}
	}
	return result.Items
}

func keywords(result *search.Result) []string {
	if result.Keywords == nil {
		return []string{}
	}
	return result.Keywords
}

func location(result *search.Result) UserLocation {
	return UserLocation{Latitude: result.Center.Lat, Longitude: result.Center.Lng}
}
