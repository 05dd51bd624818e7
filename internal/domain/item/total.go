package item

import "github.com/shopspring/decimal"

// Total sums the unit prices of items and rounds the result to two decimal
// places. An empty slice yields zero.
func Total(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price)
	}
	return sum.Round(2)
}
