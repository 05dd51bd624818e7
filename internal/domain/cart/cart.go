package cart

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-ledger/internal/domain/item"
)

// Sentinel errors returned by cart stores.
var (
	ErrNotFound = errors.New("cart not found")
	ErrConflict = errors.New("cart was modified concurrently")
)

// Limits on cart growth. Every unit is stored as its own entry.
const (
	// MaxQuantity bounds a single add.
	MaxQuantity = 1000
	// MaxItems bounds the number of entries in one cart.
	MaxItems = 10000
)

// InvalidQuantityError rejects a non-positive quantity, or an add that
// exceeds Limit.
type InvalidQuantityError struct {
	ItemID   int64
	Quantity int
	Limit    int
}

func (e *InvalidQuantityError) Error() string {
	if e.Quantity > 0 {
		return fmt.Sprintf("quantity %d for item %d exceeds the limit of %d", e.Quantity, e.ItemID, e.Limit)
	}
	return fmt.Sprintf("quantity must be greater than 0 for item %d, got %d", e.ItemID, e.Quantity)
}

// Cart is a user's pending selection. Items holds one entry per unit, in the
// order they were added. Total always equals item.Total(Items).
type Cart struct {
	ID      int64
	UserID  int64
	Items   []item.Item
	Total   decimal.Decimal
	Version int64
}

// New returns an empty cart owned by userID.
func New(id, userID int64) *Cart {
	return &Cart{
		ID:     id,
		UserID: userID,
		Items:  []item.Item{},
		Total:  decimal.Zero,
	}
}

// Add appends quantity copies of it and returns the new total. quantity must
// be in 1..MaxQuantity and the cart may not grow beyond MaxItems entries.
func (c *Cart) Add(it item.Item, quantity int) (decimal.Decimal, error) {
	if quantity <= 0 {
		return c.Total, &InvalidQuantityError{ItemID: it.ID, Quantity: quantity}
	}
	if quantity > MaxQuantity {
		return c.Total, &InvalidQuantityError{ItemID: it.ID, Quantity: quantity, Limit: MaxQuantity}
	}
	if free := MaxItems - len(c.Items); quantity > free {
		return c.Total, &InvalidQuantityError{ItemID: it.ID, Quantity: quantity, Limit: max(free, 0)}
	}
	c.Items = slices.Grow(c.Items, quantity)
	for range quantity {
		c.Items = append(c.Items, it)
	}
	return c.ComputeTotal(), nil
}

// Remove drops up to quantity entries matching itemID, earliest first, and
// returns the new total. Asking for more than the cart holds removes what
// exists.
func (c *Cart) Remove(itemID int64, quantity int) (decimal.Decimal, error) {
	if quantity <= 0 {
		return c.Total, &InvalidQuantityError{ItemID: itemID, Quantity: quantity}
	}
	removed := 0
	c.Items = slices.DeleteFunc(c.Items, func(it item.Item) bool {
		if removed < quantity && it.ID == itemID {
			removed++
			return true
		}
		return false
	})
	return c.ComputeTotal(), nil
}

// Count returns the number of entries for itemID.
func (c *Cart) Count(itemID int64) int {
	n := 0
	for _, it := range c.Items {
		if it.ID == itemID {
			n++
		}
	}
	return n
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []item.Item{}
	c.ComputeTotal()
}

// ComputeTotal recomputes, stores and returns the cart total.
func (c *Cart) ComputeTotal() decimal.Decimal {
	c.Total = item.Total(c.Items)
	return c.Total
}

// Snapshot returns a copy of the item sequence that is unaffected by later
// cart mutations.
func (c *Cart) Snapshot() []item.Item {
	if len(c.Items) == 0 {
		return []item.Item{}
	}
	return slices.Clone(c.Items)
}

// Repository persists carts. Implementations serialize writes per cart: Save
// fails with ErrConflict when c.Version is stale, and bumps c.Version on
// success.
type Repository interface {
	FindByUserID(ctx context.Context, userID int64) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
}
