package fleet

import (
	"context"
	"errors"
	"strings"

	"github.com/ukydev/fleet-maintenance/internal/events"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/pricing"
	"github.com/ukydev/fleet-maintenance/internal/stock"
)

// AdjustStockRequest applies a signed stock movement to one item.
type AdjustStockRequest struct {
	ItemID string `json:"item_id"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason,omitempty"`
	// AllowShortage lets a strict-stock store accept a deduction beyond stock on hand.
	AllowShortage bool `json:"allow_shortage,omitempty"`
}

type adjustStock struct {
	req  AdjustStockRequest
	item models.InventoryItem
}

func (c *adjustStock) Name() string { return "adjust_stock" }

func (c *adjustStock) Apply(tx *Tx) error {
	const step = "adjust stock"
	i := tx.inventoryIndex(c.req.ItemID)
	if i < 0 {
		return notFound(step, "inventory item", c.req.ItemID)
	}
	before := tx.Inventory[i]
	if c.req.Delta < 0 && tx.Policy().StrictStock && !c.req.AllowShortage {
		if short := stock.Shortfall(before, -c.req.Delta); short > 0 {
			return &InsufficientStockError{
				ItemID:    before.ID,
				Requested: -c.req.Delta,
				Available: before.StockAvailable,
				Step:      step,
			}
		}
	}
	after := stock.AdjustStock(before, c.req.Delta)
	after.UpdatedAt = tx.Now()
	tx.Inventory[i] = after
	c.item = after
	tx.Emit(events.StockAdjusted, after.ID, map[string]any{
		"delta":  c.req.Delta,
		"before": before.StockAvailable,
		"after":  after.StockAvailable,
		"reason": c.req.Reason,
	})
	return nil
}

// AdjustStock applies a manual stock movement. Stock is floored at zero.
func (s *Store) AdjustStock(ctx context.Context, req AdjustStockRequest) (models.InventoryItem, error) {
	cmd := &adjustStock{req: req}
	if err := s.Execute(ctx, cmd); err != nil {
		return models.InventoryItem{}, err
	}
	return cmd.item, nil
}

// RecordPurchaseRequest receives stock for one item.
type RecordPurchaseRequest struct {
	ItemID   string                `json:"item_id"`
	Purchase models.PurchaseRecord `json:"purchase"`
}

type recordPurchase struct {
	req  RecordPurchaseRequest
	item models.InventoryItem
}

func (c *recordPurchase) Name() string { return "record_purchase" }

func (c *recordPurchase) Apply(tx *Tx) error {
	const step = "record purchase"
	i := tx.inventoryIndex(c.req.ItemID)
	if i < 0 {
		return notFound(step, "inventory item", c.req.ItemID)
	}
	p := c.req.Purchase
	if p.Date.IsZero() {
		p.Date = tx.Now()
	}
	item, err := stock.RecordPurchase(tx.Inventory[i], p)
	if err != nil {
		return purchaseError(step, c.req.ItemID, err)
	}
	item.UpdatedAt = tx.Now()
	tx.Inventory[i] = item
	c.item = item
	tx.Emit(events.PurchaseRecorded, item.ID, map[string]any{
		"quantity":      p.Quantity,
		"unit_price":    p.UnitPrice,
		"supplier":      p.Supplier,
		"average_price": item.AveragePrice,
		"stock":         item.StockAvailable,
	})
	return nil
}

func purchaseError(step, itemID string, err error) error {
	switch {
	case errors.Is(err, stock.ErrInvalidQuantity):
		return &InvalidRequestError{Field: "quantity", Reason: "must be positive", ID: itemID, Step: step}
	case errors.Is(err, stock.ErrInvalidPrice):
		return &InvalidRequestError{Field: "unit_price", Reason: "must not be negative", ID: itemID, Step: step}
	}
	return err
}

// RecordPurchase appends a purchase to an item, adds its stock and revalues the
// item at the weighted average price.
func (s *Store) RecordPurchase(ctx context.Context, req RecordPurchaseRequest) (models.InventoryItem, error) {
	cmd := &recordPurchase{req: req}
	if err := s.Execute(ctx, cmd); err != nil {
		return models.InventoryItem{}, err
	}
	return cmd.item, nil
}

type addInventoryItem struct {
	item models.InventoryItem
}

func (c *addInventoryItem) Name() string { return "add_inventory_item" }

func (c *addInventoryItem) Apply(tx *Tx) error {
	const step = "add inventory item"
	item, err := prepareItem(tx, c.item, step)
	if err != nil {
		return err
	}
	tx.Inventory = append(tx.Inventory, item)
	c.item = item
	tx.Emit(events.EntityAdded, item.ID, map[string]any{"kind": "inventory_item", "name": item.Name})
	return nil
}

// prepareItem validates a new item. Opening stock without a purchase history
// seeds one purchase at the given price so the item can be revalued later.
func prepareItem(tx *Tx, item models.InventoryItem, step string) (models.InventoryItem, error) {
	if strings.TrimSpace(item.Name) == "" {
		return item, invalid(step, "name", "is required")
	}
	if item.StockAvailable < 0 {
		return item, invalid(step, "stock_available", "must not be negative")
	}
	if item.ID == "" {
		item.ID = tx.NewID()
	} else if tx.inventoryIndex(item.ID) >= 0 {
		return item, &InvalidRequestError{Field: "id", Reason: "already exists", ID: item.ID, Step: step}
	}

	price := item.AveragePrice
	if price == 0 {
		price = item.LastPurchasePrice
	}
	if len(item.Purchases) == 0 && item.StockAvailable > 0 {
		opening := models.PurchaseRecord{
			Date:      tx.Now(),
			Quantity:  item.StockAvailable,
			UnitPrice: price,
			Supplier:  "Opening stock",
		}
		stockOnHand := item.StockAvailable
		item.StockAvailable = 0
		seeded, err := stock.RecordPurchase(item, opening)
		if err != nil {
			return item, purchaseError(step, item.ID, err)
		}
		item = seeded
		item.StockAvailable = stockOnHand
	} else if len(item.Purchases) > 0 && item.AveragePrice == 0 {
		avg, err := pricing.WeightedAveragePrice(item.Purchases)
		if err != nil {
			return item, invalid(step, "purchases", err.Error())
		}
		item.AveragePrice = avg
	}
	item.UpdatedAt = tx.Now()
	return item, nil
}

// AddInventoryItem registers a new stock item.
func (s *Store) AddInventoryItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error) {
	cmd := &addInventoryItem{item: item}
	if err := s.Execute(ctx, cmd); err != nil {
		return models.InventoryItem{}, err
	}
	return cmd.item, nil
}
