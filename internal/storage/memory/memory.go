// Package memory implements the catalog, user, cart and order stores in
// process memory. It is used for local development and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-ledger/internal/domain/cart"
	"github.com/xenking/kart-ledger/internal/domain/item"
	"github.com/xenking/kart-ledger/internal/domain/order"
	"github.com/xenking/kart-ledger/internal/domain/user"
)

// DB is the shared state behind the memory repositories.
type DB struct {
	mu sync.RWMutex

	items  map[int64]item.Item
	users  map[int64]user.User
	carts  map[int64]cart.Cart // keyed by user ID
	orders []order.Order

	nextItemID int64
	nextUserID int64
	nextCartID int64
}

// New creates an empty DB.
func New() *DB {
	return &DB{
		items:      make(map[int64]item.Item),
		users:      make(map[int64]user.User),
		carts:      make(map[int64]cart.Cart),
		nextItemID: 1,
		nextUserID: 1,
		nextCartID: 1,
	}
}

// Items returns the catalog view of db.
func (db *DB) Items() *ItemRepository { return &ItemRepository{db: db} }

// Users returns the user view of db.
func (db *DB) Users() *UserRepository { return &UserRepository{db: db} }

// Carts returns the cart view of db.
func (db *DB) Carts() *CartRepository { return &CartRepository{db: db} }

// Orders returns the order view of db.
func (db *DB) Orders() *OrderRepository { return &OrderRepository{db: db} }

var _ item.Repository = (*ItemRepository)(nil)

// ItemRepository implements item.Repository.
type ItemRepository struct {
	db *DB
}

// Upsert stores items. Items with a zero ID are assigned the next free one.
func (r *ItemRepository) Upsert(_ context.Context, items ...item.Item) error {
	for _, it := range items {
		if err := item.ValidatePrice(it.Price); err != nil {
			return errors.Wrapf(err, "item %q", it.Name)
		}
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, it := range items {
		if it.ID == 0 {
			it.ID = r.db.nextItemID
		}
		if it.ID >= r.db.nextItemID {
			r.db.nextItemID = it.ID + 1
		}
		r.db.items[it.ID] = it
	}
	return nil
}

// List returns all items ordered by ID.
func (r *ItemRepository) List(_ context.Context) ([]item.Item, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]item.Item, 0, len(r.db.items))
	for _, it := range r.db.items {
		out = append(out, it)
	}
	slices.SortFunc(out, byID)
	return out, nil
}

// FindByID returns the item with the given ID.
func (r *ItemRepository) FindByID(_ context.Context, id int64) (*item.Item, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	it, ok := r.db.items[id]
	if !ok {
		return nil, item.ErrNotFound
	}
	return &it, nil
}

// FindByName returns items whose name matches exactly, ordered by ID.
func (r *ItemRepository) FindByName(_ context.Context, name string) ([]item.Item, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []item.Item
	for _, it := range r.db.items {
		if it.Name == name {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil, item.ErrNotFound
	}
	slices.SortFunc(out, byID)
	return out, nil
}

func byID(a, b item.Item) int {
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository.
type UserRepository struct {
	db *DB
}

// Create stores u and an empty cart for it.
func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.users {
		if existing.Username == u.Username {
			return user.ErrUsernameTaken
		}
	}

	u.ID = r.db.nextUserID
	u.CartID = r.db.nextCartID
	r.db.nextUserID++
	r.db.nextCartID++

	r.db.users[u.ID] = *u
	r.db.carts[u.ID] = *cart.New(u.CartID, u.ID)
	return nil
}

// FindByUsername returns the user with the given username.
func (r *UserRepository) FindByUsername(_ context.Context, username string) (*user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

// FindByID returns the user with the given ID.
func (r *UserRepository) FindByID(_ context.Context, id int64) (*user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository. Returned carts are copies, so
// concurrent callers only observe each other through Save.
type CartRepository struct {
	db *DB
}

// FindByUserID returns a copy of the user's cart.
func (r *CartRepository) FindByUserID(_ context.Context, userID int64) (*cart.Cart, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.carts[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	c.Items = slices.Clone(c.Items)
	if c.Items == nil {
		c.Items = []item.Item{}
	}
	return &c, nil
}

// Save replaces the stored cart if c.Version matches the stored version.
func (r *CartRepository) Save(_ context.Context, c *cart.Cart) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored, ok := r.db.carts[c.UserID]
	if !ok {
		return cart.ErrNotFound
	}
	if stored.Version != c.Version {
		return cart.ErrConflict
	}

	c.Version++
	next := *c
	next.Items = slices.Clone(c.Items)
	next.Total = item.Total(next.Items)
	r.db.carts[c.UserID] = next
	return nil
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository.
type OrderRepository struct {
	db *DB
}

// Create appends a copy of o.
func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored := *o
	stored.Items = slices.Clone(o.Items)
	r.db.orders = append(r.db.orders, stored)
	return nil
}

// ListByUser returns the user's orders in insertion order.
func (r *OrderRepository) ListByUser(_ context.Context, userID int64) ([]order.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []order.Order{}
	for _, o := range r.db.orders {
		if o.UserID == userID {
			o.Items = slices.Clone(o.Items)
			out = append(out, o)
		}
	}
	return out, nil
}
