package item

import (
	"encoding/json"
	"testing"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItem_Encode(t *testing.T) {
	it := Item{ID: 3, Name: "Rose", Description: "red \"long\" stem", Price: decimal.RequireFromString("2.9")}

	e := jx.Encoder{}
	it.Encode(&e)
	assert.JSONEq(t, `{"id":3,"name":"Rose","description":"red \"long\" stem","price":"2.90"}`, e.String())
}

func TestItem_Decode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Item
		wantErr bool
	}{
		{
			name:  "string price",
			input: `{"id":1,"name":"Rose","price":"2.99"}`,
			want:  Item{ID: 1, Name: "Rose", Price: decimal.RequireFromString("2.99")},
		},
		{
			name:  "number price and unknown field",
			input: `{"name":"Tulip","price":1.01,"color":"yellow"}`,
			want:  Item{Name: "Tulip", Price: decimal.RequireFromString("1.01")},
		},
		{
			name:  "trailing zeros",
			input: `{"name":"Lily","price":"4.2500"}`,
			want:  Item{Name: "Lily", Price: decimal.RequireFromString("4.25")},
		},
		{name: "negative price", input: `{"name":"x","price":"-1"}`, wantErr: true},
		{name: "sub-cent string price", input: `{"name":"x","price":"0.005"}`, wantErr: true},
		{name: "sub-cent number price", input: `{"name":"x","price":2.999}`, wantErr: true},
		{name: "bad price", input: `{"name":"x","price":"abc"}`, wantErr: true},
		{name: "bool price", input: `{"name":"x","price":true}`, wantErr: true},
		{name: "not an object", input: `[]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Item
			err := got.Decode(jx.DecodeStr(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.ID, got.ID)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.True(t, tt.want.Price.Equal(got.Price), "price %s", got.Price)
		})
	}
}

func TestItem_StdlibJSON(t *testing.T) {
	in := []Item{
		{ID: 1, Name: "Rose", Price: decimal.RequireFromString("2.99")},
		{ID: 2, Name: "Tulip", Price: decimal.RequireFromString("1.01")},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out []Item
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 2)
	assert.Equal(t, "Tulip", out[1].Name)
	assert.Equal(t, "1.01", out[1].Price.StringFixed(2))
}

func TestDecodeList(t *testing.T) {
	items, err := DecodeList(jx.DecodeStr(`[]`))
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	e := jx.Encoder{}
	EncodeList(&e, []Item{{ID: 7, Name: "Lily", Price: decimal.RequireFromString("4.25")}})
	items, err = DecodeList(jx.DecodeBytes(e.Bytes()))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(7), items[0].ID)
}

func TestParseCatalog(t *testing.T) {
	items, err := ParseCatalog([]byte(`[
		{"name":"Rose","price":"2.99"},
		{"id":40,"name":"Orchid","price":24},
		{"name":"Tulip","price":"1.01"}
	]`))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, int64(40), items[1].ID)
	assert.Equal(t, int64(3), items[2].ID)
	assert.Equal(t, "24.00", items[1].Price.StringFixed(2))

	_, err = ParseCatalog([]byte(`[{"price":"1.00"}]`))
	assert.ErrorContains(t, err, "has no name")

	_, err = ParseCatalog([]byte(`{}`))
	assert.Error(t, err)
}
