package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/xenking/kart-ledger/internal/domain/cart"
)

type cartMutation struct {
	Username string
	ItemID   int64
	Quantity int
}

func decodeCartMutation(r *http.Request) (cartMutation, error) {
	var (
		req    cartMutation
		hasQty bool
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "username":
			req.Username, err = d.Str()
		case "itemId":
			req.ItemID, err = d.Int64()
		case "quantity":
			req.Quantity, err = d.Int()
			hasQty = true
		default:
			err = d.Skip()
		}
		return err
	})
	switch {
	case err != nil:
		return req, err
	case req.Username == "":
		return req, badRequest("username is required")
	case !hasQty:
		return req, badRequest("quantity is required")
	}
	return req, nil
}

type cartOp func(ctx context.Context, username string, itemID int64, quantity int) (*cart.Cart, error)

func (h *Handler) mutateCart(w http.ResponseWriter, r *http.Request, op cartOp) {
	ctx := r.Context()
	req, err := decodeCartMutation(r)
	if err != nil {
		fail(ctx, w, err)
		return
	}
	c, err := op(ctx, req.Username, req.ItemID, req.Quantity)
	if err != nil {
		fail(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, c) })
}

// AddToCart handles POST /api/cart/addToCart.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, h.carts.AddToCart)
}

// RemoveFromCart handles POST /api/cart/removeFromCart.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, h.carts.RemoveFromCart)
}

// GetCart handles GET /api/cart/{username}.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.GetCart(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, c) })
}
