package transport

import (
	"net/http"

	"levelup-marketplace/internal/middleware"
	"levelup-marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CategoryRequest is the body of category create and rename
type CategoryRequest struct {
	Name string `json:"nama_kategori" validate:"required,max=100"`
}

// CategoryHandler handles HTTP requests for categories
type CategoryHandler struct {
	categoryService service.CategoryService
	logger          *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, logger: logger}
}

// RegisterRoutes registers all category routes
func (h *CategoryHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/category", func(r chi.Router) {
		r.Get("/all", h.List)
		r.Get("/search", h.Search)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/create", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list categories")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "categories retrieved", categories)
}

func (h *CategoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to search categories")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "categories retrieved", categories)
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	category, err := h.categoryService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get category")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "category retrieved", category)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	category, err := h.categoryService.Create(r.Context(), actor, req.Name)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create category")
		return
	}
	middleware.RespondWithData(w, http.StatusCreated, "category created", category)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req CategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	category, err := h.categoryService.Update(r.Context(), actor, id, req.Name)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update category")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "category updated", category)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.categoryService.Delete(r.Context(), actor, id); err != nil {
		respondServiceError(w, h.logger, err, "failed to delete category")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "category deleted", nil)
}
