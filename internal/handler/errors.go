package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-ledger/internal/domain/cart"
	"github.com/xenking/kart-ledger/internal/domain/item"
	"github.com/xenking/kart-ledger/internal/domain/user"
)

// BadRequestError is returned for malformed requests: invalid JSON, missing
// fields, non-numeric path IDs.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string {
	return "bad request: " + e.Reason
}

func badRequest(format string, args ...any) error {
	return &BadRequestError{Reason: fmt.Sprintf(format, args...)}
}

// statusOf maps domain errors to an HTTP status and client message.
func statusOf(err error) (int, string) {
	var (
		badReq     *BadRequestError
		invalidQty *cart.InvalidQuantityError
		invalid    *user.ValidationError
	)
	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest, badReq.Error()
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.As(err, &invalidQty):
		return http.StatusUnprocessableEntity, invalidQty.Error()
	}

	var (
		userNotFound *user.NotFoundError
		itemNotFound *item.NotFoundError
	)
	switch {
	case errors.As(err, &userNotFound):
		return http.StatusNotFound, userNotFound.Error()
	case errors.As(err, &itemNotFound):
		return http.StatusNotFound, itemNotFound.Error()
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, item.ErrNotFound),
		errors.Is(err, cart.ErrNotFound):
		return http.StatusNotFound, rootCause(err)
	case errors.Is(err, user.ErrUsernameTaken):
		return http.StatusConflict, user.ErrUsernameTaken.Error()
	case errors.Is(err, cart.ErrConflict):
		return http.StatusConflict, cart.ErrConflict.Error()
	}

	return http.StatusInternalServerError, "internal server error"
}

func rootCause(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// fail writes err as an API error. Unexpected errors are logged with the
// request logger and hidden from the client.
func fail(ctx context.Context, w http.ResponseWriter, err error) {
	code, msg := statusOf(err)
	if code == http.StatusInternalServerError {
		zctx.From(ctx).Error("Request failed", zap.Error(err))
	}
	writeError(w, code, msg)
}
