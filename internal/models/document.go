package models

import "time"

// DocumentStatus is the compliance state of a document relative to a point in time.
type DocumentStatus string

const (
	DocumentValid        DocumentStatus = "Valid"
	DocumentExpiringSoon DocumentStatus = "Expiring Soon"
	DocumentExpired      DocumentStatus = "Expired"
)

// Document owner kinds.
const (
	OwnerVehicle = "vehicle"
	OwnerDriver  = "driver"
)

// Document is a compliance document held for a vehicle or a driver.
// FileRef is an opaque reference; no file is stored.
type Document struct {
	ID         string    `bson:"_id" json:"id" yaml:"id"`
	OwnerKind  string    `bson:"owner_kind" json:"owner_kind" yaml:"owner_kind"` // OwnerVehicle or OwnerDriver
	OwnerID    string    `bson:"owner_id" json:"owner_id" yaml:"owner_id"`
	Type       string    `bson:"type" json:"type" yaml:"type"` // "registration", "insurance", "license", ...
	Number     string    `bson:"number" json:"number" yaml:"number"`
	ExpiryDate time.Time `bson:"expiry_date" json:"expiry_date" yaml:"expiry_date"`
	FileRef    string    `bson:"file_ref,omitempty" json:"file_ref,omitempty" yaml:"file_ref,omitempty"`
}

// DocumentExpiry pairs a document with its evaluated status.
type DocumentExpiry struct {
	Document Document       `json:"document"`
	Status   DocumentStatus `json:"status"`
}

// NotificationKind names the source of a notification.
type NotificationKind string

const (
	NotifyServiceDue  NotificationKind = "service_due"
	NotifyDocument    NotificationKind = "document"
	NotifyLowStock    NotificationKind = "low_stock"
	NotifyPendingWork NotificationKind = "pending_work"
)

// Notification is one entry of the derived notification set.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Priority  Priority         `json:"priority"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	EntityID  string           `json:"entity_id"`
	VehicleID string           `json:"vehicle_id,omitempty"`
	At        time.Time        `json:"at"`
}
