package models

import (
	"time"
)

// VehicleStatus is the operational state of a vehicle.
type VehicleStatus string

const (
	VehicleActive    VehicleStatus = "Active"
	VehicleInService VehicleStatus = "In Service"
	VehicleIdle      VehicleStatus = "Idle"
)

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID                 string        `bson:"_id" json:"id" yaml:"id"`
	RegistrationNumber string        `bson:"registration_number" json:"registration_number" yaml:"registration_number"`
	Make               string        `bson:"make" json:"make" yaml:"make"`
	Model              string        `bson:"model" json:"model" yaml:"model"`
	Year               int           `bson:"year" json:"year" yaml:"year"`
	CurrentKM          int           `bson:"current_km" json:"current_km" yaml:"current_km"`
	TotalHours         int           `bson:"total_hours" json:"total_hours" yaml:"total_hours"`
	NextServiceKM      int           `bson:"next_service_km" json:"next_service_km" yaml:"next_service_km"`
	NextServiceHours   int           `bson:"next_service_hours" json:"next_service_hours" yaml:"next_service_hours"`
	NextServiceDate    *time.Time    `bson:"next_service_date,omitempty" json:"next_service_date,omitempty" yaml:"next_service_date,omitempty"`
	Status             VehicleStatus `bson:"status" json:"status" yaml:"status"`
	DriverID           string        `bson:"driver_id,omitempty" json:"driver_id,omitempty" yaml:"driver_id,omitempty"` // empty when unassigned
	Branch             string        `bson:"branch" json:"branch" yaml:"branch"`
	SubBranch          string        `bson:"sub_branch" json:"sub_branch" yaml:"sub_branch"`
	CreatedAt          time.Time     `bson:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt          time.Time     `bson:"updated_at" json:"updated_at" yaml:"-"`
}

// HasDriver reports whether a driver is currently assigned.
func (v Vehicle) HasDriver() bool {
	return v.DriverID != ""
}
