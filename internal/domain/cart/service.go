package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-ledger/internal/domain/item"
	"github.com/xenking/kart-ledger/internal/domain/user"
	"github.com/xenking/kart-ledger/internal/obs"
)

const instrumentationName = "github.com/xenking/kart-ledger/internal/domain/cart"

// Service applies cart mutations on behalf of a user.
type Service struct {
	users user.Finder
	items item.Finder
	carts Repository

	tracer    trace.Tracer
	mutations metric.Int64Counter
}

// NewService creates a cart Service with the required collaborators.
func NewService(users user.Finder, items item.Finder, carts Repository, opts ...obs.Option) *Service {
	cfg := obs.New(opts...)
	meter := cfg.MeterProvider.Meter(instrumentationName)

	mutations, err := meter.Int64Counter("ledger.cart.mutations",
		metric.WithDescription("Number of successful cart add/remove operations"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return &Service{
		users:     users,
		items:     items,
		carts:     carts,
		tracer:    cfg.TracerProvider.Tracer(instrumentationName),
		mutations: mutations,
	}
}

// GetCart returns the current cart of username.
func (s *Service) GetCart(ctx context.Context, username string) (_ *Cart, rerr error) {
	ctx, span := s.tracer.Start(ctx, "cart.GetCart",
		trace.WithAttributes(attribute.String("user.name", username)),
	)
	defer func() { obs.End(span, rerr) }()

	u, err := user.Lookup(ctx, s.users, username)
	if err != nil {
		return nil, err
	}
	return s.cartOf(ctx, u)
}

// AddToCart appends quantity units of itemID to the cart of username and
// persists it.
func (s *Service) AddToCart(ctx context.Context, username string, itemID int64, quantity int) (_ *Cart, rerr error) {
	ctx, span := s.tracer.Start(ctx, "cart.AddToCart", trace.WithAttributes(
		attribute.String("user.name", username),
		attribute.Int64("item.id", itemID),
		attribute.Int("quantity", quantity),
	))
	defer func() { obs.End(span, rerr) }()

	c, it, err := s.resolve(ctx, username, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := c.Add(*it, quantity); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}

	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "add")))
	zctx.From(ctx).Debug("Added to cart",
		zap.Int64("cart_id", c.ID),
		zap.Int64("item_id", itemID),
		zap.Int("quantity", quantity),
		zap.Stringer("total", c.Total),
	)
	return c, nil
}

// RemoveFromCart drops up to quantity units of itemID from the cart of
// username and persists it.
func (s *Service) RemoveFromCart(ctx context.Context, username string, itemID int64, quantity int) (_ *Cart, rerr error) {
	ctx, span := s.tracer.Start(ctx, "cart.RemoveFromCart", trace.WithAttributes(
		attribute.String("user.name", username),
		attribute.Int64("item.id", itemID),
		attribute.Int("quantity", quantity),
	))
	defer func() { obs.End(span, rerr) }()

	c, _, err := s.resolve(ctx, username, itemID)
	if err != nil {
		return nil, err
	}
	before := len(c.Items)
	if _, err := c.Remove(itemID, quantity); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}

	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "remove")))
	zctx.From(ctx).Debug("Removed from cart",
		zap.Int64("cart_id", c.ID),
		zap.Int64("item_id", itemID),
		zap.Int("requested", quantity),
		zap.Int("removed", before-len(c.Items)),
		zap.Stringer("total", c.Total),
	)
	return c, nil
}

// resolve looks up the user's cart and the catalog item, in that order.
func (s *Service) resolve(ctx context.Context, username string, itemID int64) (*Cart, *item.Item, error) {
	u, err := user.Lookup(ctx, s.users, username)
	if err != nil {
		return nil, nil, err
	}

	it, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			return nil, nil, &item.NotFoundError{ID: itemID}
		}
		return nil, nil, errors.Wrap(err, "find item")
	}

	c, err := s.cartOf(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return c, it, nil
}

func (s *Service) cartOf(ctx context.Context, u *user.User) (*Cart, error) {
	c, err := s.carts.FindByUserID(ctx, u.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "find cart of user %d", u.ID)
	}
	return c, nil
}
