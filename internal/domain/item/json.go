package item

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encode writes the item as a JSON object. Price is a string with exactly
// two fractional digits.
func (i Item) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(i.ID)
	e.FieldStart("name")
	e.Str(i.Name)
	e.FieldStart("description")
	e.Str(i.Description)
	e.FieldStart("price")
	e.Str(i.Price.StringFixed(2))
	e.ObjEnd()
}

// Decode reads an item object. Price may be a JSON string or number.
// Unknown fields are skipped.
func (i *Item) Decode(d *jx.Decoder) error {
	if i == nil {
		return errors.New("invalid: unable to decode Item to nil")
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			i.ID, err = d.Int64()
		case "name":
			i.Name, err = d.Str()
		case "description":
			i.Description, err = d.Str()
		case "price":
			i.Price, err = DecodePrice(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode field %q", key)
		}
		return nil
	})
}

// MarshalJSON implements json.Marshaler.
func (i Item) MarshalJSON() ([]byte, error) {
	e := jx.Encoder{}
	i.Encode(&e)
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Item) UnmarshalJSON(data []byte) error {
	return i.Decode(jx.DecodeBytes(data))
}

// DecodePrice reads a non-negative amount with at most two decimal places
// from a JSON string or number.
func DecodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected price type %s", d.Next())
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "parse price")
	}
	if err := ValidatePrice(price); err != nil {
		return decimal.Decimal{}, err
	}
	return price, nil
}

// EncodeList writes items as a JSON array.
func EncodeList(e *jx.Encoder, items []Item) {
	e.ArrStart()
	for _, it := range items {
		it.Encode(e)
	}
	e.ArrEnd()
}

// DecodeList reads a JSON array of items. The result is never nil.
func DecodeList(d *jx.Decoder) ([]Item, error) {
	items := []Item{}
	err := d.Arr(func(d *jx.Decoder) error {
		var it Item
		if err := it.Decode(d); err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	return items, err
}

// ParseCatalog decodes a JSON array of catalog entries. Entries without an
// ID are numbered by their 1-based position so repeated loads upsert the
// same rows.
func ParseCatalog(data []byte) ([]Item, error) {
	items, err := DecodeList(jx.DecodeBytes(data))
	if err != nil {
		return nil, errors.Wrap(err, "parse catalog JSON")
	}
	for i := range items {
		if items[i].Name == "" {
			return nil, errors.Errorf("catalog entry %d has no name", i)
		}
		if items[i].ID == 0 {
			items[i].ID = int64(i + 1)
		}
	}
	return items, nil
}
