package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/xenking/kart-ledger/internal/domain/item"
)

// ListItems handles GET /api/item.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.List(r.Context())
	if err != nil {
		fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { item.EncodeList(e, items) })
}

// GetItem handles GET /api/item/{id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(r.Context(), w, err)
		return
	}
	it, err := h.items.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			err = &item.NotFoundError{ID: id}
		}
		fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, it.Encode)
}

// GetItemsByName handles GET /api/item/name/{name}.
func (h *Handler) GetItemsByName(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	items, err := h.items.FindByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			err = &item.NotFoundError{Name: name}
		}
		fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { item.EncodeList(e, items) })
}
