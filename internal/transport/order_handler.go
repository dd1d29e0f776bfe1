package transport

import (
	"net/http"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/middleware"
	"levelup-marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderItemRequest is one line of an order request
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"jumlah" validate:"required,min=1"`
}

// CreateOrderRequest represents the order creation payload
type CreateOrderRequest struct {
	ListingID string             `json:"umkm_id" validate:"required,uuid"`
	Items     []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateOrderStatusRequest represents the order status payload
type UpdateOrderStatusRequest struct {
	Status        string `json:"status_order" validate:"required,oneof=pending paid cancelled waiting_pickup completed"`
	PaymentStatus string `json:"payment_status" validate:"omitempty,oneof=unpaid paid expired refund"`
}

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orderService: orderService, logger: logger}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/order", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/create", h.Create)
		r.Get("/my-orders", h.MyOrders)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(h.logger, domain.RoleSeller))
			r.Get("/seller-orders", h.SellerOrders)
			r.Patch("/{id}/status", h.UpdateStatus)
		})
	})
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	// both ids passed the uuid tag above
	listingID := uuid.MustParse(req.ListingID)
	lines := make([]service.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, service.OrderLine{
			ProductID: uuid.MustParse(item.ProductID),
			Quantity:  item.Quantity,
		})
	}

	order, err := h.orderService.Create(r.Context(), actor.UserID, listingID, lines)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create order")
		return
	}

	h.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.Float64("total", order.TotalPrice),
	)
	middleware.RespondWithData(w, http.StatusCreated, "order created", order)
}

func (h *OrderHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.MyOrders(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list orders")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "orders retrieved", orders)
}

func (h *OrderHandler) SellerOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.SellerOrders(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list orders")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "orders retrieved", orders)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), actor.UserID, id, req.Status, req.PaymentStatus)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update order status")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "order status updated", order)
}
