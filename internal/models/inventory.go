package models

import (
	"time"
)

// PurchaseRecord is a single receipt of stock. Records are append-only.
type PurchaseRecord struct {
	Date          time.Time `bson:"date" json:"date" yaml:"date"`
	Quantity      int       `bson:"quantity" json:"quantity" yaml:"quantity"`
	UnitPrice     float64   `bson:"unit_price" json:"unit_price" yaml:"unit_price"`
	Supplier      string    `bson:"supplier" json:"supplier" yaml:"supplier"`
	InvoiceNumber string    `bson:"invoice_number,omitempty" json:"invoice_number,omitempty" yaml:"invoice_number,omitempty"`
}

// InventoryItem is a spare part held in stock.
type InventoryItem struct {
	ID                string           `bson:"_id" json:"id" yaml:"id"`
	SKU               string           `bson:"sku" json:"sku" yaml:"sku"`
	Name              string           `bson:"name" json:"name" yaml:"name"`
	Category          string           `bson:"category" json:"category" yaml:"category"`
	StockAvailable    int              `bson:"stock_available" json:"stock_available" yaml:"stock_available"`
	LastPurchasePrice float64          `bson:"last_purchase_price" json:"last_purchase_price" yaml:"last_purchase_price"`
	AveragePrice      float64          `bson:"average_price" json:"average_price" yaml:"average_price"`
	Purchases         []PurchaseRecord `bson:"purchases" json:"purchases" yaml:"purchases"`
	UpdatedAt         time.Time        `bson:"updated_at" json:"updated_at" yaml:"-"`
}

// LowStock reports whether the item is running out but not yet empty.
func (i InventoryItem) LowStock(threshold int) bool {
	return i.StockAvailable > 0 && i.StockAvailable < threshold
}
