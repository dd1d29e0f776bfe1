package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"levelup-marketplace/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderStatusConflict = errors.New("order status changed concurrently")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, order *domain.Order, fromStatus string) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `o.id, o.user_id, o.listing_id, o.total_price::float8, o.status, o.payment_status, o.created_at, o.updated_at`

func scanOrder(s scanner) (*domain.Order, error) {
	order := &domain.Order{}
	err := s.Scan(
		&order.ID,
		&order.UserID,
		&order.ListingID,
		&order.TotalPrice,
		&order.Status,
		&order.PaymentStatus,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	return order, err
}

// Create inserts an order and its items in one transaction
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, listing_id, total_price, status, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		order.ID,
		order.UserID,
		order.ListingID,
		order.TotalPrice,
		order.Status,
		order.PaymentStatus,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrListingNotFound
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		item.OrderID = order.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
		`, item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

// FindByID retrieves an order with its items
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// ListByUser retrieves a buyer's orders, newest first
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.user_id = $1 ORDER BY o.created_at DESC`
	return r.query(ctx, query, userID)
}

// ListBySeller retrieves the orders placed on a seller's listings, newest first
func (r *orderRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		JOIN listings l ON l.id = o.listing_id
		WHERE l.seller_id = $1
		ORDER BY o.created_at DESC
	`
	return r.query(ctx, query, sellerID)
}

func (r *orderRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// attachItems loads the items of every order with a single query
func (r *orderRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		o.Items = []*domain.OrderItem{}
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price::float8
		FROM order_items
		WHERE order_id = ANY($1::text[]::uuid[])
		ORDER BY order_id, id
	`, uuidStrings(ids))
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := &domain.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}

	return nil
}

// UpdateStatus persists order.Status and order.PaymentStatus only if the
// stored status is still fromStatus
func (r *orderRepository) UpdateStatus(ctx context.Context, order *domain.Order, fromStatus string) error {
	query := `
		UPDATE orders
		SET status = $2, payment_status = $3
		WHERE id = $1 AND status = $4
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query, order.ID, order.Status, order.PaymentStatus, fromStatus).
		Scan(&order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderStatusConflict
		}
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return nil
}
