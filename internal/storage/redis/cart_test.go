package redis

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-ledger/internal/domain/cart"
	"github.com/xenking/kart-ledger/internal/domain/item"
)

func TestCartKey(t *testing.T) {
	assert.Equal(t, "ledger:cart:42", cartKey(42))
}

func TestCartCodec(t *testing.T) {
	c := cart.New(10, 1)
	_, err := c.Add(item.Item{ID: 1, Name: "Rose", Price: decimal.RequireFromString("2.99")}, 2)
	require.NoError(t, err)
	_, err = c.Add(item.Item{ID: 2, Name: "Tulip", Price: decimal.RequireFromString("1.01")}, 1)
	require.NoError(t, err)
	c.Version = 4

	data := encodeCart(c)
	assert.Contains(t, string(data), `"total":"6.99"`)

	got, err := decodeCart(data)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.ID)
	assert.Equal(t, int64(1), got.UserID)
	assert.Equal(t, int64(4), got.Version)
	require.Len(t, got.Items, 3)
	assert.Equal(t, []int64{1, 1, 2}, []int64{got.Items[0].ID, got.Items[1].ID, got.Items[2].ID})
	assert.Equal(t, "6.99", got.Total.StringFixed(2))
}

func TestCartCodec_TotalSurvivesRoundTrip(t *testing.T) {
	c := cart.New(10, 1)
	_, err := c.Add(item.Item{ID: 1, Name: "Seed", Price: decimal.RequireFromString("0.33")}, 3)
	require.NoError(t, err)
	_, err = c.Add(item.Item{ID: 2, Name: "Pot", Price: decimal.RequireFromString("12.5")}, 1)
	require.NoError(t, err)

	got, err := decodeCart(encodeCart(c))
	require.NoError(t, err)
	assert.True(t, c.Total.Equal(got.Total), "stored %s, decoded %s", c.Total, got.Total)
	assert.True(t, item.Total(got.Items).Equal(got.Total))
	assert.Equal(t, "13.49", got.Total.StringFixed(2))
}

func TestDecodeCart_RejectsSubCentPrice(t *testing.T) {
	_, err := decodeCart([]byte(`{"id":3,"userId":3,"version":1,"items":[{"id":1,"name":"x","price":"0.005"}]}`))
	assert.ErrorContains(t, err, "more than two decimal places")
}

func TestDecodeCart_Empty(t *testing.T) {
	got, err := decodeCart([]byte(`{"id":3,"userId":3,"version":0,"items":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, got.Items)
	assert.True(t, got.Total.IsZero())
}

func TestDecodeCart_Invalid(t *testing.T) {
	_, err := decodeCart([]byte(`{"id":"x"}`))
	assert.Error(t, err)
}
