package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/xenking/kart-ledger/internal/domain/cart"
	"github.com/xenking/kart-ledger/internal/domain/item"
	"github.com/xenking/kart-ledger/internal/domain/order"
	"github.com/xenking/kart-ledger/internal/domain/user"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(code)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// decodeBody reads a JSON object from the request body, calling field for
// every key.
func decodeBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("read body: %v", err)
	}
	if len(data) == 0 {
		return badRequest("empty body")
	}
	if err := jx.DecodeBytes(data).Obj(field); err != nil {
		return badRequest("decode body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("userId")
	e.Int64(c.UserID)
	e.FieldStart("items")
	item.EncodeList(e, c.Items)
	e.FieldStart("total")
	e.Str(c.Total.StringFixed(2))
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("userId")
	e.Int64(o.UserID)
	e.FieldStart("username")
	e.Str(o.Username)
	e.FieldStart("items")
	item.EncodeList(e, o.Items)
	e.FieldStart("total")
	e.Str(o.Total.StringFixed(2))
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()
}

// encodeUser never writes the password hash.
func encodeUser(e *jx.Encoder, u *user.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(u.ID)
	e.FieldStart("username")
	e.Str(u.Username)
	e.FieldStart("cartId")
	e.Int64(u.CartID)
	e.ObjEnd()
}
