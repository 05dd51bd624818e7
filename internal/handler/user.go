package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/xenking/kart-ledger/internal/domain/user"
)

// CreateUser handles POST /api/user/create. The new user gets an empty cart.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req user.CreateRequest
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "username":
			req.Username, err = d.Str()
		case "password":
			req.Password, err = d.Str()
		case "confirmPassword":
			req.ConfirmPassword, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(ctx, w, err)
		return
	}

	u, err := h.users.Create(ctx, req)
	if err != nil {
		fail(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeUser(e, u) })
}

// GetUser handles GET /api/user/{username}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeUser(e, u) })
}

// GetUserByID handles GET /api/user/id/{id}.
func (h *Handler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(r.Context(), w, err)
		return
	}
	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeUser(e, u) })
}
