package transport

import (
	"net/http"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/middleware"
	"levelup-marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{productService: productService, logger: logger}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/product", func(r chi.Router) {
		r.Get("/all", h.List)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireRole(h.logger, domain.RoleSeller))
			r.Post("/add", h.Create)
			r.Get("/my-products", h.Mine)
			r.Put("/update/{id}", h.Update)
			r.Delete("/delete/{id}", h.Delete)
		})
	})
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list products")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "products retrieved", products)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	thumbnail, err := middleware.FormUpload(r, "thumbnail", false)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to read upload")
		return
	}

	product, err := h.productService.Create(r.Context(), actor.UserID, service.ProductInput{
		ListingID:   deref(formValue(r, "umkm_id")),
		Name:        deref(formValue(r, "nama_product")),
		Description: deref(formValue(r, "deskripsi_produk")),
		Price:       deref(formValue(r, "harga")),
	}, thumbnail)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create product")
		return
	}
	middleware.RespondWithData(w, http.StatusCreated, "product created", product)
}

func (h *ProductHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	products, err := h.productService.Mine(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list products")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "products retrieved", products)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	thumbnail, err := middleware.FormUpload(r, "thumbnail", false)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to read upload")
		return
	}

	product, err := h.productService.Update(r.Context(), actor.UserID, id, service.ProductPatch{
		Name:        formValue(r, "nama_product"),
		Description: formValue(r, "deskripsi_produk"),
		Price:       formValue(r, "harga"),
	}, thumbnail)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update product")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "product updated", product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), actor.UserID, id); err != nil {
		respondServiceError(w, h.logger, err, "failed to delete product")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "product deleted", nil)
}
