package item

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested catalog item does not exist.
var ErrNotFound = errors.New("item not found")

// NotFoundError identifies the item that could not be resolved. It matches
// ErrNotFound via errors.Is.
type NotFoundError struct {
	ID   int64
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("item %q not found", e.Name)
	}
	return fmt.Sprintf("item %d not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Item is a purchasable catalog entry. Items are immutable once created.
type Item struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
}

// ValidatePrice rejects negative prices and prices with fractions of a cent,
// so that every stored and serialized price sums to the same total.
func ValidatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return errors.Errorf("negative price %s", price)
	}
	if !price.Equal(price.Round(2)) {
		return errors.Errorf("price %s has more than two decimal places", price)
	}
	return nil
}

// Finder resolves a single item by its catalog identifier.
type Finder interface {
	FindByID(ctx context.Context, id int64) (*Item, error)
}

// Repository defines read operations for the item catalog.
type Repository interface {
	Finder
	List(ctx context.Context) ([]Item, error)
	FindByName(ctx context.Context, name string) ([]Item, error)
}
