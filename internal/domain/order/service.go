package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-ledger/internal/domain/cart"
	"github.com/xenking/kart-ledger/internal/domain/item"
	"github.com/xenking/kart-ledger/internal/domain/user"
	"github.com/xenking/kart-ledger/internal/obs"
)

const instrumentationName = "github.com/xenking/kart-ledger/internal/domain/order"

// Config holds order submission policy.
type Config struct {
	// ClearCartOnSubmit empties the user's cart after the order is stored.
	// When false the cart is left as it was.
	ClearCartOnSubmit bool
}

// Service encapsulates order submission and history.
type Service struct {
	cfg    Config
	users  user.Finder
	carts  cart.Repository
	orders Repository

	now   func() time.Time
	newID func() string

	tracer    trace.Tracer
	submitted metric.Int64Counter
	totals    metric.Float64Histogram
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	cfg Config,
	users user.Finder,
	carts cart.Repository,
	orders Repository,
	opts ...obs.Option,
) *Service {
	tel := obs.New(opts...)
	meter := tel.MeterProvider.Meter(instrumentationName)

	submitted, err := meter.Int64Counter("ledger.orders.submitted",
		metric.WithDescription("Number of orders created from carts"),
	)
	if err != nil {
		otel.Handle(err)
	}
	totals, err := meter.Float64Histogram("ledger.order.total",
		metric.WithDescription("Order totals at submission"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return &Service{
		cfg:       cfg,
		users:     users,
		carts:     carts,
		orders:    orders,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		tracer:    tel.TracerProvider.Tracer(instrumentationName),
		submitted: submitted,
		totals:    totals,
	}
}

// Submit snapshots the current cart of username into a new order and
// persists it. Every call creates a distinct order.
func (s *Service) Submit(ctx context.Context, username string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Submit",
		trace.WithAttributes(attribute.String("user.name", username)),
	)
	defer func() { obs.End(span, rerr) }()

	u, err := user.Lookup(ctx, s.users, username)
	if err != nil {
		return nil, err
	}

	c, err := s.carts.FindByUserID(ctx, u.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "find cart of user %d", u.ID)
	}

	items := c.Snapshot()
	o := &Order{
		ID:        s.newID(),
		UserID:    u.ID,
		Username:  u.Username,
		Items:     items,
		Total:     item.Total(items),
		CreatedAt: s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// The order is already stored; a failed clear is logged, not returned.
	if s.cfg.ClearCartOnSubmit {
		c.Clear()
		if err := s.carts.Save(ctx, c); err != nil {
			span.RecordError(err)
			zctx.From(ctx).Warn("Cart not cleared after order",
				zap.String("order_id", o.ID),
				zap.Int64("cart_id", c.ID),
				zap.Error(err),
			)
		}
	}

	span.SetAttributes(attribute.String("order.id", o.ID))
	s.submitted.Add(ctx, 1)
	s.totals.Record(ctx, o.Total.InexactFloat64())
	zctx.From(ctx).Info("Order submitted",
		zap.String("order_id", o.ID),
		zap.Int64("user_id", u.ID),
		zap.Int("items", len(o.Items)),
		zap.Stringer("total", o.Total),
	)
	return o, nil
}

// History returns every order submitted by username. It never returns a nil
// slice on success.
func (s *Service) History(ctx context.Context, username string) (_ []Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.History",
		trace.WithAttributes(attribute.String("user.name", username)),
	)
	defer func() { obs.End(span, rerr) }()

	u, err := user.Lookup(ctx, s.users, username)
	if err != nil {
		return nil, err
	}

	orders, err := s.orders.ListByUser(ctx, u.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}
