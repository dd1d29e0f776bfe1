package service

import (
	"context"
	"errors"
	"math"
	"slices"
	"time"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/events"
	"levelup-marketplace/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyOrder        = errors.New("an order needs at least one item")
	ErrInvalidTransition = errors.New("order status transition is not allowed")
)

var paymentStatuses = []string{
	domain.PaymentStatusUnpaid,
	domain.PaymentStatusPaid,
	domain.PaymentStatusExpired,
	domain.PaymentStatusRefund,
}

// OrderLine is one requested product and quantity
type OrderLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderCreatedEvent is published after an order is stored
type OrderCreatedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	ListingID  uuid.UUID `json:"umkm_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	TotalPrice float64   `json:"total_harga"`
	ItemCount  int       `json:"item_count"`
}

// OrderService defines the interface for order business logic
type OrderService interface {
	Create(ctx context.Context, buyerID, listingID uuid.UUID, lines []OrderLine) (*domain.Order, error)
	MyOrders(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error)
	SellerOrders(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, sellerID, id uuid.UUID, status, paymentStatus string) (*domain.Order, error)
}

type orderService struct {
	orders    repository.OrderRepository
	listings  repository.ListingRepository
	products  repository.ProductRepository
	publisher events.Publisher
	logger    *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orders repository.OrderRepository,
	listings repository.ListingRepository,
	products repository.ProductRepository,
	publisher events.Publisher,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orders:    orders,
		listings:  listings,
		products:  products,
		publisher: publisher,
		logger:    logger,
	}
}

// Create places an order on one listing. Unit prices are snapshotted from
// the current product prices and the total is their sum times quantity.
func (s *orderService) Create(ctx context.Context, buyerID, listingID uuid.UUID, lines []OrderLine) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, invalidInput("jumlah must be at least 1")
		}
		ids = append(ids, line.ProductID)
	}

	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:            uuid.New(),
		UserID:        buyerID,
		ListingID:     listingID,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusUnpaid,
		Items:         make([]*domain.OrderItem, 0, len(lines)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var total float64
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, repository.ErrProductNotFound
		}
		if product.ListingID != listingID {
			return nil, invalidInput("product %s does not belong to this umkm", product.ID)
		}
		total += product.Price * float64(line.Quantity)
		order.Items = append(order.Items, &domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
		})
	}
	order.TotalPrice = math.Round(total*100) / 100

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("umkm_id", listingID.String()),
		zap.Float64("total", order.TotalPrice),
	)

	event := OrderCreatedEvent{
		OrderID:    order.ID,
		UserID:     buyerID,
		ListingID:  listingID,
		SellerID:   listing.SellerID,
		TotalPrice: order.TotalPrice,
		ItemCount:  len(order.Items),
	}
	if err := s.publisher.Publish(ctx, events.TypeOrderCreated, order.ID.String(), event); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}

	return order, nil
}

func (s *orderService) MyOrders(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	return s.orders.ListByUser(ctx, buyerID)
}

func (s *orderService) SellerOrders(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error) {
	return s.orders.ListBySeller(ctx, sellerID)
}

// UpdateStatus moves an order along its lifecycle. Only the owner of the
// order's listing may do so. A move to paid without an explicit payment
// status marks the payment paid.
func (s *orderService) UpdateStatus(ctx context.Context, sellerID, id uuid.UUID, status, paymentStatus string) (*domain.Order, error) {
	if paymentStatus != "" && !slices.Contains(paymentStatuses, paymentStatus) {
		return nil, invalidInput("payment_status must be one of %v", paymentStatuses)
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	listing, err := s.listings.FindByID(ctx, order.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != sellerID {
		return nil, ErrForbidden
	}

	if !domain.CanTransition(order.Status, status) {
		return nil, ErrInvalidTransition
	}

	from := order.Status
	order.Status = status
	switch {
	case paymentStatus != "":
		order.PaymentStatus = paymentStatus
	case status == domain.OrderStatusPaid:
		order.PaymentStatus = domain.PaymentStatusPaid
	}

	if err := s.orders.UpdateStatus(ctx, order, from); err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", id.String()),
		zap.String("from", from),
		zap.String("to", status),
	)
	return order, nil
}
