// Package redis implements cart.Repository on Redis. Each cart is one JSON
// document; writes use WATCH/MULTI so a concurrent change aborts the save.
package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/kart-ledger/internal/domain/cart"
	"github.com/xenking/kart-ledger/internal/domain/item"
	"github.com/xenking/kart-ledger/internal/domain/user"
)

const keyPrefix = "ledger:cart:"

func cartKey(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository stores carts in Redis. Users are still owned by the
// primary store; a user without a document has an empty cart.
type CartRepository struct {
	client redis.UniversalClient
	users  user.Finder
}

// NewCartRepository returns a CartRepository using client. users resolves
// the cart ID of users that have no document yet.
func NewCartRepository(client redis.UniversalClient, users user.Finder) *CartRepository {
	return &CartRepository{client: client, users: users}
}

// FindByUserID returns the stored cart or a fresh empty one.
func (r *CartRepository) FindByUserID(ctx context.Context, userID int64) (*cart.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return r.empty(ctx, userID)
	case err != nil:
		return nil, fmt.Errorf("getting cart of user %d: %w", userID, err)
	}

	c, err := decodeCart(data)
	if err != nil {
		return nil, fmt.Errorf("decoding cart of user %d: %w", userID, err)
	}
	return c, nil
}

func (r *CartRepository) empty(ctx context.Context, userID int64) (*cart.Cart, error) {
	u, err := r.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("resolving cart of user %d: %w", userID, err)
	}
	return cart.New(u.CartID, u.ID), nil
}

// Save writes c if the stored version still equals c.Version.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	key := cartKey(c.UserID)

	next := *c
	next.Version = c.Version + 1
	next.Total = item.Total(c.Items)
	payload := encodeCart(&next)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != c.Version {
			return cart.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return cart.ErrConflict
	case errors.Is(err, cart.ErrConflict):
		return err
	case err != nil:
		return fmt.Errorf("saving cart of user %d: %w", c.UserID, err)
	}

	c.Version = next.Version
	c.Total = next.Total
	return nil
}

func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	c, err := decodeCart(data)
	if err != nil {
		return 0, err
	}
	return c.Version, nil
}

func encodeCart(c *cart.Cart) []byte {
	e := jx.Encoder{}
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("userId")
	e.Int64(c.UserID)
	e.FieldStart("version")
	e.Int64(c.Version)
	e.FieldStart("total")
	e.Str(c.Total.StringFixed(2))
	e.FieldStart("items")
	item.EncodeList(&e, c.Items)
	e.ObjEnd()
	return e.Bytes()
}

func decodeCart(data []byte) (*cart.Cart, error) {
	c := &cart.Cart{Items: []item.Item{}}
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			c.ID, err = d.Int64()
		case "userId":
			c.UserID, err = d.Int64()
		case "version":
			c.Version, err = d.Int64()
		case "items":
			c.Items, err = item.DecodeList(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	c.ComputeTotal()
	return c, nil
}
