package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-ledger/internal/domain/cart"
	"github.com/xenking/kart-ledger/internal/domain/item"
)

const (
	getCartByUserSQL = `SELECT id, user_id, total, version FROM carts WHERE user_id = $1`

	listCartItemsSQL = `SELECT i.id, i.name, i.description, i.price
		FROM cart_items ci JOIN items i ON i.id = ci.item_id
		WHERE ci.cart_id = $1
		ORDER BY ci.position`

	bumpCartSQL = `UPDATE carts SET total = $1, version = version + 1
		WHERE id = $2 AND version = $3`

	cartExistsSQL = `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`

	clearCartItemsSQL = `DELETE FROM cart_items WHERE cart_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Writes are
// serialized per cart by the version column.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// FindByUserID loads the user's cart with its entries in insertion order and
// current catalog prices.
func (r *CartRepository) FindByUserID(ctx context.Context, userID int64) (*cart.Cart, error) {
	var c cart.Cart
	err := r.pool.QueryRow(ctx, getCartByUserSQL, userID).Scan(&c.ID, &c.UserID, &c.Total, &c.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart of user %d: %w", userID, err)
	}

	rows, err := r.pool.Query(ctx, listCartItemsSQL, c.ID)
	if err != nil {
		return nil, fmt.Errorf("listing items of cart %d: %w", c.ID, err)
	}
	c.Items, err = pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("listing items of cart %d: %w", c.ID, err)
	}
	if c.Items == nil {
		c.Items = []item.Item{}
	}
	// Entries reference live catalog rows, so the stored total is stale
	// after a re-price.
	c.ComputeTotal()
	return &c, nil
}

// Save replaces the cart's entries and total if c.Version is still current.
// It returns cart.ErrConflict when another writer got there first.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	total := item.Total(c.Items)

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, bumpCartSQL, total, c.ID, c.Version)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, cartExistsSQL, c.ID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return cart.ErrNotFound
			}
			return cart.ErrConflict
		}

		if _, err := tx.Exec(ctx, clearCartItemsSQL, c.ID); err != nil {
			return err
		}
		if len(c.Items) == 0 {
			return nil
		}

		rows := make([][]any, len(c.Items))
		for i, it := range c.Items {
			rows[i] = []any{c.ID, int32(i), it.ID}
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"cart_items"},
			[]string{"cart_id", "position", "item_id"},
			pgx.CopyFromRows(rows),
		)
		return err
	})
	if err != nil {
		if errors.Is(err, cart.ErrConflict) || errors.Is(err, cart.ErrNotFound) {
			return err
		}
		return fmt.Errorf("saving cart %d: %w", c.ID, err)
	}

	c.Version++
	c.Total = total
	return nil
}
