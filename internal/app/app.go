package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/kart-ledger/db"
	"github.com/xenking/kart-ledger/internal/domain/cart"
	"github.com/xenking/kart-ledger/internal/domain/item"
	"github.com/xenking/kart-ledger/internal/domain/order"
	"github.com/xenking/kart-ledger/internal/domain/user"
	"github.com/xenking/kart-ledger/internal/handler"
	"github.com/xenking/kart-ledger/internal/obs"
	"github.com/xenking/kart-ledger/internal/storage/memory"
	"github.com/xenking/kart-ledger/internal/storage/postgres"
	rediscart "github.com/xenking/kart-ledger/internal/storage/redis"
	"github.com/xenking/kart-ledger/pkg/health"
	"github.com/xenking/kart-ledger/pkg/httpmiddleware"
)

const serviceName = "kart-ledger"

// Stores groups the repositories behind the API.
type Stores struct {
	Items  item.Repository
	Users  user.Repository
	Carts  cart.Repository
	Orders order.Repository
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
		zap.String("cart_backend", cfg.CartBackend),
	)

	healthSvc := health.New(health.WithLogger(lg.Named("health")))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))

	stores, cleanup, err := openStores(ctx, lg, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer cleanup()

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	router := NewRouter(stores, cfg, m)
	serveMux := newServeMux(healthSvc, router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           Middlewares(ctx, cfg, router, m)(serveMux),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

func newServeMux(hs *health.Health, api http.Handler) *http.ServeMux {
	serveMux := http.NewServeMux()
	serveMux.HandleFunc("/livez", hs.LiveEndpoint)
	serveMux.HandleFunc("/readyz", hs.ReadyEndpoint)
	serveMux.Handle("/api/", api)
	return serveMux
}

// NewRouter builds the services on top of stores and mounts the API.
func NewRouter(stores Stores, cfg *Config, m httpmiddleware.TelemetryProvider) *mux.Router {
	telemetry := []obs.Option{
		obs.WithTracerProvider(m.TracerProvider()),
		obs.WithMeterProvider(m.MeterProvider()),
	}

	users := user.NewService(stores.Users, user.BcryptHasher{})
	carts := cart.NewService(stores.Users, stores.Items, stores.Carts, telemetry...)
	orders := order.NewService(
		order.Config{ClearCartOnSubmit: cfg.Order.ClearCartOnSubmit},
		stores.Users, stores.Carts, stores.Orders,
		telemetry...,
	)

	router := mux.NewRouter()
	handler.NewHandler(stores.Items, users, carts, orders).Register(router)
	return router
}

// Middlewares returns the server middleware chain. The first entry is the
// outermost.
func Middlewares(ctx context.Context, cfg *Config, router *mux.Router, m httpmiddleware.TelemetryProvider) httpmiddleware.Middleware {
	routeFinder := httpmiddleware.MakeRouteFinder(router)
	return func(next http.Handler) http.Handler {
		return httpmiddleware.Wrap(next,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.Instrument(serviceName, routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		)
	}
}

// openStores connects the configured backends and registers their
// readiness checks.
func openStores(ctx context.Context, lg *zap.Logger, cfg *Config, hs *health.Health) (Stores, func(), error) {
	var (
		stores  Stores
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var catalog []item.Item
	if cfg.SeedCatalog {
		items, err := item.ParseCatalog(db.Catalog)
		if err != nil {
			return stores, cleanup, err
		}
		catalog = items
	}

	switch cfg.Storage {
	case StorageMemory:
		mem := memory.New()
		if err := mem.Items().Upsert(ctx, catalog...); err != nil {
			return stores, cleanup, errors.Wrap(err, "seed catalog")
		}
		stores = Stores{Items: mem.Items(), Users: mem.Users(), Carts: mem.Carts(), Orders: mem.Orders()}
	default:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores, cleanup, errors.Wrap(err, "create db pool")
		}
		closers = append(closers, pool.Close)

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return stores, cleanup, errors.Wrap(err, "run migrations")
		}
		hs.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))

		items := postgres.NewItemRepository(pool)
		if len(catalog) > 0 {
			if err := items.UpsertBatch(ctx, catalog); err != nil {
				return stores, cleanup, errors.Wrap(err, "seed catalog")
			}
		}
		stores = Stores{
			Items:  items,
			Users:  postgres.NewUserRepository(pool),
			Carts:  postgres.NewCartRepository(pool),
			Orders: postgres.NewOrderRepository(pool),
		}
	}

	if len(catalog) > 0 {
		lg.Info("Catalog seeded", zap.Int("items", len(catalog)))
	}

	if cfg.CartBackend == StorageRedis {
		client, err := newRedisClient(cfg.Redis)
		if err != nil {
			return stores, cleanup, err
		}
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				lg.Warn("Close redis", zap.Error(err))
			}
		})
		hs.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		stores.Carts = rediscart.NewCartRepository(client, stores.Users)
	}

	return stores, cleanup, nil
}

func newRedisClient(cfg RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		opts = parsed
	}
	return redis.NewClient(opts), nil
}
