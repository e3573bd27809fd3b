package models

import "time"

// Driver is reference data for a licensed driver.
type Driver struct {
	ID            string     `bson:"_id" json:"id" yaml:"id"`
	Name          string     `bson:"name" json:"name" yaml:"name"`
	LicenseNumber string     `bson:"license_number" json:"license_number" yaml:"license_number"`
	LicenseExpiry *time.Time `bson:"license_expiry,omitempty" json:"license_expiry,omitempty" yaml:"license_expiry,omitempty"`
	Phone         string     `bson:"phone" json:"phone" yaml:"phone"`
	Email         string     `bson:"email" json:"email" yaml:"email"`
}

// Worker is a technician that can be booked on a job card.
type Worker struct {
	ID    string `bson:"_id" json:"id" yaml:"id"`
	Name  string `bson:"name" json:"name" yaml:"name"`
	Trade string `bson:"trade" json:"trade" yaml:"trade"` // "mechanic", "electrician", "tyres", ...
}

// DriverAssignment is one interval of a driver being responsible for a vehicle.
type DriverAssignment struct {
	ID           string     `bson:"_id" json:"id" yaml:"id"`
	DriverID     string     `bson:"driver_id" json:"driver_id" yaml:"driver_id"`
	VehicleID    string     `bson:"vehicle_id" json:"vehicle_id" yaml:"vehicle_id"`
	AssignedAt   time.Time  `bson:"assigned_at" json:"assigned_at" yaml:"assigned_at"`
	UnassignedAt *time.Time `bson:"unassigned_at,omitempty" json:"unassigned_at,omitempty" yaml:"unassigned_at,omitempty"`
	Reason       string     `bson:"reason,omitempty" json:"reason,omitempty" yaml:"reason,omitempty"`
	Actor        string     `bson:"actor,omitempty" json:"actor,omitempty" yaml:"actor,omitempty"`
}

// Open reports whether the assignment has not been closed yet.
func (a DriverAssignment) Open() bool {
	return a.UnassignedAt == nil
}

// Covers reports whether t falls inside [AssignedAt, UnassignedAt).
func (a DriverAssignment) Covers(t time.Time) bool {
	if t.Before(a.AssignedAt) {
		return false
	}
	return a.UnassignedAt == nil || t.Before(*a.UnassignedAt)
}
