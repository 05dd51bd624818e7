package user

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for user lookups and creation.
var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

// NotFoundError identifies the user that could not be resolved. It matches
// ErrNotFound via errors.Is.
type NotFoundError struct {
	Username string
	ID       int64
}

func (e *NotFoundError) Error() string {
	if e.Username != "" {
		return fmt.Sprintf("user %q not found", e.Username)
	}
	return fmt.Sprintf("user %d not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError rejects a user creation request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// User is an account owning exactly one cart.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CartID       int64
}

// Finder resolves users by username or identifier.
type Finder interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
}

// Repository persists users.
type Repository interface {
	Finder

	// Create stores u together with a new empty cart, assigning u.ID and
	// u.CartID. It returns ErrUsernameTaken when the username exists.
	Create(ctx context.Context, u *User) error
}

// Lookup resolves username through f, converting a missing user into
// *NotFoundError.
func Lookup(ctx context.Context, f Finder, username string) (*User, error) {
	u, err := f.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Username: username}
		}
		return nil, errors.Wrap(err, "find user")
	}
	return u, nil
}
