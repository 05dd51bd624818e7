package cart

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-ledger/internal/domain/item"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func rose(id int64, price string) item.Item {
	return item.Item{
		ID:          id,
		Name:        "Rose",
		Description: "a rose",
		Price:       d(price),
	}
}

func TestAdd(t *testing.T) {
	c := New(1, 1)

	total, err := c.Add(rose(1, "2.99"), 1)
	require.NoError(t, err)
	assert.Equal(t, "2.99", total.StringFixed(2))
	assert.Equal(t, "Rose", c.Items[0].Name)

	total, err = c.Add(rose(1, "2.99"), 2)
	require.NoError(t, err)
	assert.Equal(t, "8.97", total.StringFixed(2))
	assert.Equal(t, 3, c.Count(1))
	assert.True(t, total.Equal(c.Total))
}

func TestAdd_SumOfPrices(t *testing.T) {
	prices := [][2]string{
		{"0.00", "0.00"},
		{"2.02", "1.01"},
		{"19.99", "0.01"},
		{"0.33", "0.67"},
		{"1000000.10", "0.90"},
	}
	for _, p := range prices {
		c := New(1, 1)
		_, err := c.Add(rose(1, p[0]), 1)
		require.NoError(t, err)
		total, err := c.Add(rose(2, p[1]), 1)
		require.NoError(t, err)

		want := d(p[0]).Add(d(p[1])).Round(2)
		assert.True(t, want.Equal(total), "%s + %s: want %s, got %s", p[0], p[1], want, total)
	}
}

func TestAdd_InvalidQuantity(t *testing.T) {
	for _, qty := range []int{0, -1} {
		c := New(1, 1)
		_, err := c.Add(rose(1, "2.99"), 1)
		require.NoError(t, err)

		_, err = c.Add(rose(1, "2.99"), qty)

		var iqErr *InvalidQuantityError
		require.ErrorAs(t, err, &iqErr)
		assert.Equal(t, int64(1), iqErr.ItemID)
		assert.Equal(t, qty, iqErr.Quantity)
		assert.Len(t, c.Items, 1, "cart must be untouched")
		assert.Equal(t, "2.99", c.Total.StringFixed(2))
	}
}

func TestAdd_QuantityLimits(t *testing.T) {
	tests := []struct {
		name  string
		start int
		qty   int
		limit int
	}{
		{name: "max int", qty: math.MaxInt, limit: MaxQuantity},
		{name: "above single add limit", qty: MaxQuantity + 1, limit: MaxQuantity},
		{name: "cart full", start: MaxItems, qty: 1, limit: 0},
		{name: "cart nearly full", start: MaxItems - 5, qty: 6, limit: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(1, 1)
			for c.Count(1) < tt.start {
				_, err := c.Add(rose(1, "0.01"), min(MaxQuantity, tt.start-c.Count(1)))
				require.NoError(t, err)
			}
			before := c.Total

			var (
				total decimal.Decimal
				err   error
			)
			require.NotPanics(t, func() { total, err = c.Add(rose(2, "2.99"), tt.qty) })

			var iqErr *InvalidQuantityError
			require.ErrorAs(t, err, &iqErr)
			assert.Equal(t, tt.limit, iqErr.Limit)
			assert.Contains(t, iqErr.Error(), "exceeds the limit")
			assert.Len(t, c.Items, tt.start)
			assert.True(t, before.Equal(total))
		})
	}

	c := New(1, 1)
	_, err := c.Add(rose(1, "0.01"), MaxQuantity)
	require.NoError(t, err)
	assert.Equal(t, "10.00", c.Total.StringFixed(2))
}

func TestRemove(t *testing.T) {
	c := New(1, 1)
	_, err := c.Add(rose(1, "2.99"), 1)
	require.NoError(t, err)

	total, err := c.Remove(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "0.00", total.StringFixed(2))
	assert.Empty(t, c.Items)
}

func TestRemove_KeepsOtherItemsInOrder(t *testing.T) {
	c := New(1, 1)
	_, _ = c.Add(rose(1, "1.00"), 1)
	_, _ = c.Add(rose(2, "2.00"), 1)
	_, _ = c.Add(rose(1, "1.00"), 1)
	_, _ = c.Add(rose(3, "3.00"), 1)

	total, err := c.Remove(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "6.00", total.StringFixed(2))

	ids := make([]int64, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ID
	}
	assert.Equal(t, []int64{2, 1, 3}, ids)
}

func TestRemove_ClampsOverRemoval(t *testing.T) {
	c := New(1, 1)
	_, _ = c.Add(rose(1, "2.99"), 2)
	_, _ = c.Add(rose(2, "1.00"), 1)

	total, err := c.Remove(1, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Count(1))
	assert.Equal(t, 1, c.Count(2))
	assert.Equal(t, "1.00", total.StringFixed(2))
}

func TestRemove_AbsentItemIsNoop(t *testing.T) {
	c := New(1, 1)
	_, _ = c.Add(rose(1, "2.99"), 1)

	total, err := c.Remove(42, 1)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
	assert.Equal(t, "2.99", total.StringFixed(2))
}

func TestRemove_InvalidQuantity(t *testing.T) {
	c := New(1, 1)
	_, _ = c.Add(rose(1, "2.99"), 1)

	_, err := c.Remove(1, 0)

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Len(t, c.Items, 1)
}

func TestRemoveThenAdd_RestoresTotal(t *testing.T) {
	c := New(1, 1)
	_, _ = c.Add(rose(1, "2.99"), 3)
	_, _ = c.Add(rose(2, "0.07"), 2)
	before := c.Total

	_, err := c.Remove(1, 2)
	require.NoError(t, err)
	total, err := c.Add(rose(1, "2.99"), 2)
	require.NoError(t, err)

	assert.True(t, before.Equal(total), "want %s, got %s", before, total)
}

func TestComputeTotal_Empty(t *testing.T) {
	c := &Cart{}
	total := c.ComputeTotal()
	assert.True(t, total.IsZero())
	assert.Equal(t, "0.00", total.StringFixed(2))
}

func TestSnapshot_IndependentOfCart(t *testing.T) {
	c := New(1, 1)
	_, _ = c.Add(rose(1, "2.02"), 1)
	_, _ = c.Add(rose(2, "1.01"), 1)

	snap := c.Snapshot()
	_, _ = c.Remove(1, 1)
	_, _ = c.Add(rose(3, "9.99"), 1)
	c.Items[0].Name = "changed"

	require.Len(t, snap, 2)
	assert.Equal(t, int64(1), snap[0].ID)
	assert.Equal(t, "Rose", snap[1].Name)
	assert.Equal(t, "3.03", item.Total(snap).StringFixed(2))
}

func TestClear(t *testing.T) {
	c := New(1, 1)
	_, _ = c.Add(rose(1, "2.02"), 3)

	c.Clear()
	assert.Empty(t, c.Items)
	assert.NotNil(t, c.Items)
	assert.True(t, c.Total.IsZero())
}
