package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-ledger/internal/domain/item"
)

const (
	listItemsSQL = `SELECT id, name, description, price FROM items ORDER BY id`

	getItemByIDSQL = `SELECT id, name, description, price FROM items WHERE id = $1`

	getItemsByNameSQL = `SELECT id, name, description, price FROM items WHERE name = $1 ORDER BY id`

	insertItemSQL = `INSERT INTO items (name, description, price) VALUES ($1, $2, $3)`

	upsertItemWithIDSQL = `INSERT INTO items (id, name, description, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, price = EXCLUDED.price`

	syncItemSeqSQL = `SELECT setval(pg_get_serial_sequence('items', 'id'), GREATEST((SELECT MAX(id) FROM items), 1))`
)

var _ item.Repository = (*ItemRepository)(nil)

// ItemRepository implements item.Repository backed by PostgreSQL.
type ItemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository returns an ItemRepository that uses the given pool.
func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

// List returns the whole catalog ordered by ID.
func (r *ItemRepository) List(ctx context.Context) ([]item.Item, error) {
	rows, err := r.pool.Query(ctx, listItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// FindByID returns a single item by its identifier.
func (r *ItemRepository) FindByID(ctx context.Context, id int64) (*item.Item, error) {
	rows, err := r.pool.Query(ctx, getItemByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting item %d: %w", id, err)
	}

	it, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, item.ErrNotFound
		}
		return nil, fmt.Errorf("getting item %d: %w", id, err)
	}
	return &it, nil
}

// FindByName returns all items with exactly the given name.
func (r *ItemRepository) FindByName(ctx context.Context, name string) ([]item.Item, error) {
	rows, err := r.pool.Query(ctx, getItemsByNameSQL, name)
	if err != nil {
		return nil, fmt.Errorf("getting items named %q: %w", name, err)
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("getting items named %q: %w", name, err)
	}
	if len(items) == 0 {
		return nil, item.ErrNotFound
	}
	return items, nil
}

// UpsertBatch writes items in a single round trip. Items carrying an ID
// replace the stored row; items without one are inserted with a new ID.
func (r *ItemRepository) UpsertBatch(ctx context.Context, items []item.Item) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	withID := false
	for _, it := range items {
		if err := item.ValidatePrice(it.Price); err != nil {
			return fmt.Errorf("item %q: %w", it.Name, err)
		}
		if it.ID == 0 {
			batch.Queue(insertItemSQL, it.Name, it.Description, it.Price)
			continue
		}
		withID = true
		batch.Queue(upsertItemWithIDSQL, it.ID, it.Name, it.Description, it.Price)
	}
	if withID {
		batch.Queue(syncItemSeqSQL)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting %d items: %w", len(items), err)
	}
	return nil
}

func scanItem(row pgx.CollectableRow) (item.Item, error) {
	var it item.Item
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Price)
	return it, err
}
