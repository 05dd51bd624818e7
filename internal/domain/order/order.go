package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-ledger/internal/domain/item"
)

// Order is an immutable record of a submitted cart. Items is a snapshot taken
// at submission time and Total was computed from it.
type Order struct {
	ID        string
	UserID    int64
	Username  string
	Items     []item.Item
	Total     decimal.Decimal
	CreatedAt time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// ListByUser returns the user's orders in the store's native order.
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
}
