// Package pricing values inventory and apportions job costs.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/ukydev/fleet-maintenance/internal/models"
)

// ErrNoQuantity is returned when a purchase history carries no quantity to weight by.
var ErrNoQuantity = errors.New("purchase history has zero total quantity")

// WeightedAveragePrice returns round(Σ(qty×price) / Σ(qty)) rounded to the
// nearest whole currency unit, halves away from zero.
func WeightedAveragePrice(history []models.PurchaseRecord) (float64, error) {
	totalQty := decimal.Zero
	totalValue := decimal.Zero
	for _, p := range history {
		qty := decimal.NewFromInt(int64(p.Quantity))
		totalQty = totalQty.Add(qty)
		totalValue = totalValue.Add(qty.Mul(decimal.NewFromFloat(p.UnitPrice)))
	}
	if totalQty.IsZero() {
		return 0, ErrNoQuantity
	}
	return totalValue.Div(totalQty).Round(0).InexactFloat64(), nil
}

// LineTotal prices quantity units at unitPrice, to cent precision.
func LineTotal(quantity int, unitPrice float64) float64 {
	return decimal.NewFromInt(int64(quantity)).
		Mul(decimal.NewFromFloat(unitPrice)).
		Round(2).
		InexactFloat64()
}

// Sum adds amounts without float drift.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.InexactFloat64()
}

// Split divides total into n even shares rounded to cents. The last share
// absorbs the rounding remainder so the shares always sum to total.
func Split(total float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	t := decimal.NewFromFloat(total)
	share := t.Div(decimal.NewFromInt(int64(n))).Round(2)

	shares := make([]float64, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = share.InexactFloat64()
		allocated = allocated.Add(share)
	}
	shares[n-1] = t.Sub(allocated).InexactFloat64()
	return shares
}
