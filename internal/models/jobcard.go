package models

import (
	"time"
)

// JobCardStatus is the lifecycle state of a job card.
type JobCardStatus string

const (
	JobCardOpen       JobCardStatus = "Open"
	JobCardInProgress JobCardStatus = "In Progress"
	JobCardCompleted  JobCardStatus = "Completed"
)

var jobCardOrder = map[JobCardStatus]int{
	JobCardOpen:       0,
	JobCardInProgress: 1,
	JobCardCompleted:  2,
}

// IsValid checks if the status is one of the known values.
func (s JobCardStatus) IsValid() bool {
	_, ok := jobCardOrder[s]
	return ok
}

// CanTransition reports whether a job card may move from s to next.
// Statuses only move forward.
func (s JobCardStatus) CanTransition(next JobCardStatus) bool {
	from, ok := jobCardOrder[s]
	if !ok {
		return false
	}
	to, ok := jobCardOrder[next]
	if !ok {
		return false
	}
	return to > from
}

// PartUsed is a priced snapshot of a consumed part. It is copied, not referenced,
// so later price changes never rewrite historical cost.
type PartUsed struct {
	ItemID    string  `bson:"item_id" json:"item_id" yaml:"item_id"`
	SKU       string  `bson:"sku,omitempty" json:"sku,omitempty" yaml:"sku,omitempty"`
	Name      string  `bson:"name" json:"name" yaml:"name"`
	Quantity  int     `bson:"quantity" json:"quantity" yaml:"quantity"`
	UnitPrice float64 `bson:"unit_price" json:"unit_price" yaml:"unit_price"`
	LineTotal float64 `bson:"line_total" json:"line_total" yaml:"line_total"`
}

// JobCard records one maintenance session for a vehicle.
type JobCard struct {
	ID           string        `bson:"_id" json:"id"`
	VehicleID    string        `bson:"vehicle_id" json:"vehicle_id"`
	JobDate      time.Time     `bson:"job_date" json:"job_date"`
	StartTime    time.Time     `bson:"start_time" json:"start_time"`
	EndTime      time.Time     `bson:"end_time" json:"end_time"`
	TotalKM      int           `bson:"total_km" json:"total_km"`
	TotalHours   int           `bson:"total_hours" json:"total_hours"`
	WorkerIDs    []string      `bson:"worker_ids" json:"worker_ids"`
	PartsUsed    []PartUsed    `bson:"parts_used" json:"parts_used"`
	ServicesDone []string      `bson:"services_done" json:"services_done"`
	Remarks      string        `bson:"remarks" json:"remarks"`
	PhotoRefs    []string      `bson:"photo_refs" json:"photo_refs"`
	DocumentRefs []string      `bson:"document_refs" json:"document_refs"`
	TotalCost    float64       `bson:"total_cost" json:"total_cost"`
	Status       JobCardStatus `bson:"status" json:"status"`
	CreatedAt    time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updated_at"`
}

// GeneralMaintenance labels the single service record generated for a job card
// that names no discrete services.
const GeneralMaintenance = "General Maintenance"

// ServiceRecord is one completed service action derived from a job card.
type ServiceRecord struct {
	ID          string     `bson:"_id" json:"id"`
	VehicleID   string     `bson:"vehicle_id" json:"vehicle_id"`
	JobCardID   string     `bson:"job_card_id" json:"job_card_id"`
	ServiceType string     `bson:"service_type" json:"service_type"`
	Date        time.Time  `bson:"date" json:"date"`
	KM          int        `bson:"km" json:"km"`
	Hours       int        `bson:"hours" json:"hours"`
	Cost        float64    `bson:"cost" json:"cost"`
	PartsUsed   []PartUsed `bson:"parts_used" json:"parts_used"`
	WorkerIDs   []string   `bson:"worker_ids" json:"worker_ids"`
	Remarks     string     `bson:"remarks" json:"remarks"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
}
