package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-ledger/internal/domain/item"
	"github.com/xenking/kart-ledger/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, items, total, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	listOrdersByUserSQL = `SELECT o.id::text, o.user_id, u.username, o.items, o.total, o.created_at
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.user_id = $1
		ORDER BY o.created_at, o.id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The item snapshot is serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL, o.ID, o.UserID, itemsJSON, o.Total, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

// ListByUser returns the user's orders, oldest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of user %d: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders of user %d: %w", userID, err)
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return orders, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.Username, &itemsJSON, &o.Total, &o.CreatedAt); err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if o.Items == nil {
		o.Items = []item.Item{}
	}
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}
