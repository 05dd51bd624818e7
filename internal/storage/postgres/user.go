package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-ledger/internal/domain/user"
)

const (
	insertUserSQL = `INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`

	insertCartSQL = `INSERT INTO carts (user_id) VALUES ($1) RETURNING id`

	getUserByUsernameSQL = `SELECT u.id, u.username, u.password_hash, c.id
		FROM users u JOIN carts c ON c.user_id = u.id
		WHERE u.username = $1`

	getUserByIDSQL = `SELECT u.id, u.username, u.password_hash, c.id
		FROM users u JOIN carts c ON c.user_id = u.id
		WHERE u.id = $1`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts the user and its empty cart in one transaction.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertUserSQL, u.Username, u.PasswordHash).Scan(&u.ID); err != nil {
			return err
		}
		return tx.QueryRow(ctx, insertCartSQL, u.ID).Scan(&u.CartID)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrUsernameTaken
		}
		return fmt.Errorf("creating user %q: %w", u.Username, err)
	}
	return nil
}

// FindByUsername returns the user with the given username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.findOne(ctx, getUserByUsernameSQL, username)
}

// FindByID returns the user with the given ID.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*user.User, error) {
	return r.findOne(ctx, getUserByIDSQL, id)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*user.User, error) {
	var u user.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %v: %w", arg, err)
	}
	return &u, nil
}
