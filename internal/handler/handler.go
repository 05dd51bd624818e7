// Package handler implements the ledger HTTP API on top of gorilla/mux.
package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xenking/kart-ledger/internal/domain/cart"
	"github.com/xenking/kart-ledger/internal/domain/item"
	"github.com/xenking/kart-ledger/internal/domain/order"
	"github.com/xenking/kart-ledger/internal/domain/user"
)

// Handler serves the /api routes, delegating business logic to the domain
// services and the item catalog.
type Handler struct {
	items  item.Repository
	users  *user.Service
	carts  *cart.Service
	orders *order.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	items item.Repository,
	users *user.Service,
	carts *cart.Service,
	orders *order.Service,
) *Handler {
	return &Handler{
		items:  items,
		users:  users,
		carts:  carts,
		orders: orders,
	}
}

// Register mounts the API on r. Route names are used as operation names in
// logs and telemetry.
func (h *Handler) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/cart/addToCart", h.AddToCart).Methods(http.MethodPost).Name("addToCart")
	api.HandleFunc("/cart/removeFromCart", h.RemoveFromCart).Methods(http.MethodPost).Name("removeFromCart")
	api.HandleFunc("/cart/{username}", h.GetCart).Methods(http.MethodGet).Name("getCart")

	api.HandleFunc("/order/submit/{username}", h.SubmitOrder).Methods(http.MethodPost).Name("submitOrder")
	api.HandleFunc("/order/history/{username}", h.OrderHistory).Methods(http.MethodGet).Name("orderHistory")

	api.HandleFunc("/item", h.ListItems).Methods(http.MethodGet).Name("listItems")
	api.HandleFunc("/item/name/{name}", h.GetItemsByName).Methods(http.MethodGet).Name("getItemsByName")
	api.HandleFunc("/item/{id}", h.GetItem).Methods(http.MethodGet).Name("getItem")

	api.HandleFunc("/user/create", h.CreateUser).Methods(http.MethodPost).Name("createUser")
	api.HandleFunc("/user/id/{id}", h.GetUserByID).Methods(http.MethodGet).Name("getUserById")
	api.HandleFunc("/user/{username}", h.GetUser).Methods(http.MethodGet).Name("getUser")

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	api.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}
