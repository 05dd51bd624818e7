package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-ledger/db"
	"github.com/xenking/kart-ledger/internal/domain/item"
	"github.com/xenking/kart-ledger/internal/domain/user"
	"github.com/xenking/kart-ledger/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		catalogFile  string
		demoUser     string
		demoPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "path to a catalog JSON array; the embedded catalog is used when empty")
	flag.StringVar(&demoUser, "user", "", "username of a demo user to create (or LEDGER_SEED_USER env)")
	flag.StringVar(&demoPassword, "password", "", "password of the demo user (or LEDGER_SEED_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if demoUser == "" {
		demoUser = os.Getenv("LEDGER_SEED_USER")
	}
	if demoPassword == "" {
		demoPassword = os.Getenv("LEDGER_SEED_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, demoUser, demoPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, demoUser, demoPassword string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	items, err := loadCatalog(catalogFile)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	slog.Info("upserting items", slog.Int("count", len(items)))

	if err := postgres.NewItemRepository(pool).UpsertBatch(ctx, items); err != nil {
		return errors.Wrap(err, "seed items")
	}

	if demoUser == "" {
		return nil
	}
	return seedUser(ctx, user.NewService(postgres.NewUserRepository(pool), user.BcryptHasher{}), demoUser, demoPassword)
}

// loadCatalog reads the catalog from path, or the embedded one when path is
// empty. Items without an ID get sequential IDs so re-seeding updates rows
// instead of duplicating them.
func loadCatalog(path string) ([]item.Item, error) {
	data := db.Catalog
	if path != "" {
		slog.Info("reading catalog file", slog.String("path", path))

		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read catalog file")
		}
		data = b
	}

	return item.ParseCatalog(data)
}

func seedUser(ctx context.Context, users *user.Service, username, password string) error {
	slog.Info("seeding demo user", slog.String("username", username))

	u, err := users.Create(ctx, user.CreateRequest{
		Username:        username,
		Password:        password,
		ConfirmPassword: password,
	})
	switch {
	case errors.Is(err, user.ErrUsernameTaken):
		slog.Info("demo user already exists", slog.String("username", username))
		return nil
	case err != nil:
		return errors.Wrap(err, "create demo user")
	}

	slog.Info("created demo user", slog.Int64("id", u.ID), slog.Int64("cart_id", u.CartID))
	return nil
}
