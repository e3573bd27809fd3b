// Package stock applies quantity movements to inventory items.
package stock

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/pricing"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("unit price must not be negative")
)

// AdjustStock applies a signed delta to the item's stock and floors the result at zero.
// Negative deltas are consumption, positive deltas are receipts.
func AdjustStock(item models.InventoryItem, delta int) models.InventoryItem {
	item.StockAvailable += delta
	if item.StockAvailable < 0 {
		item.StockAvailable = 0
	}
	return item
}

// Shortfall returns how many of the requested units are not in stock.
func Shortfall(item models.InventoryItem, quantity int) int {
	if quantity <= item.StockAvailable {
		return 0
	}
	return quantity - item.StockAvailable
}

// RecordPurchase appends p to the item's history, adds its quantity to stock and
// revalues the item at the weighted average of the full history.
func RecordPurchase(item models.InventoryItem, p models.PurchaseRecord) (models.InventoryItem, error) {
	if p.Quantity <= 0 {
		return item, fmt.Errorf("purchase of %q: %w", item.ID, ErrInvalidQuantity)
	}
	if p.UnitPrice < 0 {
		return item, fmt.Errorf("purchase of %q: %w", item.ID, ErrInvalidPrice)
	}

	item.Purchases = append(slices.Clone(item.Purchases), p)
	item = AdjustStock(item, p.Quantity)
	item.LastPurchasePrice = p.UnitPrice

	avg, err := pricing.WeightedAveragePrice(item.Purchases)
	if err != nil {
		return item, fmt.Errorf("revalue %q: %w", item.ID, err)
	}
	item.AveragePrice = avg
	return item, nil
}
