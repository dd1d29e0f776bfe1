package transport

import (
	"net/http"
	"strconv"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/middleware"
	"levelup-marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatQueryRequest represents a chatbot message
type ChatQueryRequest struct {
	Message string `json:"message" validate:"required"`
}

// ProductSearchRequest represents a chatbot product search
type ProductSearchRequest struct {
	Query    string   `json:"query" validate:"required"`
	Category string   `json:"category"`
	MinPrice *float64 `json:"min_price" validate:"omitempty,gte=0"`
	MaxPrice *float64 `json:"max_price" validate:"omitempty,gte=0"`
	Limit    int      `json:"limit" validate:"omitempty,gte=0"`
}

// ProductSearchFilters echoes the applied filters
type ProductSearchFilters struct {
	Category string   `json:"category"`
	MinPrice *float64 `json:"min_price"`
	MaxPrice *float64 `json:"max_price"`
}

// ProductListing is the listing a search hit belongs to
type ProductListing struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
}

// ProductSearchHit is one product in a chatbot search
type ProductSearchHit struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       float64        `json:"price"`
	Thumbnail   string         `json:"thumbnail"`
	Listing     ProductListing `json:"umkm"`
}

// ProductSearchResponse is the data block of POST /chatbot/search
type ProductSearchResponse struct {
	Query      string               `json:"query"`
	Filters    ProductSearchFilters `json:"filters"`
	TotalFound int                  `json:"total_found"`
	Products   []ProductSearchHit   `json:"products"`
}

// ClearHistoryResponse reports how many chats were removed
type ClearHistoryResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

// ChatbotHandler handles HTTP requests for the assistant
type ChatbotHandler struct {
	chatbotService service.ChatbotService
	logger         *zap.Logger
}

// NewChatbotHandler creates a new ChatbotHandler
func NewChatbotHandler(chatbotService service.ChatbotService, logger *zap.Logger) *ChatbotHandler {
	return &ChatbotHandler{chatbotService: chatbotService, logger: logger}
}

// RegisterRoutes registers all chatbot routes. limiter throttles the routes
// that call the language model.
func (h *ChatbotHandler) RegisterRoutes(r chi.Router, authMiddleware, limiter func(http.Handler) http.Handler) {
	r.Route("/chatbot", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(limiter).Post("/query", h.Query)
		r.Post("/search", h.Search)
		r.Get("/history", h.History)
		r.Delete("/history", h.ClearHistory)
		r.With(middleware.RequireRole(h.logger, domain.RoleSeller)).Get("/insights", h.Insights)
	})
}

func (h *ChatbotHandler) Query(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ChatQueryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	reply, err := h.chatbotService.Query(r.Context(), actor, req.Message)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to answer message")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "chatbot replied", reply)
}

func (h *ChatbotHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req ProductSearchRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	matches, err := h.chatbotService.Search(r.Context(), service.ProductQuery{
		Query:    req.Query,
		Category: req.Category,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
		Limit:    req.Limit,
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to search products")
		return
	}

	hits := make([]ProductSearchHit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, ProductSearchHit{
			ID:          m.Product.ID,
			Name:        m.Product.Name,
			Description: m.Product.Description,
			Price:       m.Product.Price,
			Thumbnail:   m.Product.ImageURL,
			Listing: ProductListing{
				ID:       m.Product.ListingID,
				Name:     m.ListingName,
				Category: m.CategoryName,
			},
		})
	}

	middleware.RespondWithData(w, http.StatusOK, "products found", ProductSearchResponse{
		Query: req.Query,
		Filters: ProductSearchFilters{
			Category: req.Category,
			MinPrice: req.MinPrice,
			MaxPrice: req.MaxPrice,
		},
		TotalFound: len(hits),
		Products:   hits,
	})
}

func (h *ChatbotHandler) Insights(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	insights, err := h.chatbotService.Insights(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to build insights")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "insights retrieved", insights)
}

// History pages through the caller's chats. Malformed page or limit values
// fall back to the defaults.
func (h *ChatbotHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	history, err := h.chatbotService.History(r.Context(), actor.UserID, page, limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get chat history")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "chat history retrieved", history)
}

func (h *ChatbotHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	deleted, err := h.chatbotService.ClearHistory(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to clear chat history")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "chat history cleared", ClearHistoryResponse{DeletedCount: deleted})
}
