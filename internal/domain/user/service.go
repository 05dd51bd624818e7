package user

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 7

// Hasher turns a plaintext password into an opaque credential.
type Hasher interface {
	Hash(password string) (string, error)
}

// BcryptHasher hashes passwords with bcrypt.
type BcryptHasher struct {
	Cost int
}

// Hash implements Hasher.
func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.Wrap(err, "bcrypt")
	}
	return string(b), nil
}

// CreateRequest holds the input for creating a user.
type CreateRequest struct {
	Username        string
	Password        string
	ConfirmPassword string
}

func (r CreateRequest) validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return &ValidationError{Field: "username", Reason: "must not be empty"}
	}
	if len(r.Password) < MinPasswordLength {
		return &ValidationError{Field: "password", Reason: "must be at least 7 characters"}
	}
	if r.Password != r.ConfirmPassword {
		return &ValidationError{Field: "confirmPassword", Reason: "does not match password"}
	}
	return nil
}

// Service creates and looks up users.
type Service struct {
	repo   Repository
	hasher Hasher
}

// NewService creates a user Service.
func NewService(repo Repository, hasher Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// Create validates req, hashes the password, and stores the user together
// with its empty cart.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		Username:     req.Username,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, errors.Wrap(err, "create user")
	}

	zctx.From(ctx).Info("User created",
		zap.Int64("user_id", u.ID),
		zap.String("username", u.Username),
	)
	return u, nil
}

// GetByUsername returns the user with the given username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return Lookup(ctx, s.repo, username)
}

// GetByID returns the user with the given identifier.
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, errors.Wrap(err, "find user")
	}
	return u, nil
}
