package models

import (
	"time"
)

// TriggerType selects what drives a scheduled service.
type TriggerType string

const (
	TriggerDistance TriggerType = "distance"
	TriggerHours    TriggerType = "hours"
	TriggerDate     TriggerType = "date"
)

// ScheduleStatus is the evaluated state of a scheduled service rule.
type ScheduleStatus string

const (
	ScheduleDue       ScheduleStatus = "Due"
	ScheduleUpcoming  ScheduleStatus = "Upcoming"
	ScheduleCompleted ScheduleStatus = "Completed"
)

// ScheduledService is a recurring maintenance rule for one vehicle and service type.
type ScheduledService struct {
	ID               string         `bson:"_id" json:"id" yaml:"id"`
	VehicleID        string         `bson:"vehicle_id" json:"vehicle_id" yaml:"vehicle_id"`
	ServiceType      string         `bson:"service_type" json:"service_type" yaml:"service_type"`
	TriggerType      TriggerType    `bson:"trigger_type" json:"trigger_type" yaml:"trigger_type"`
	TriggerValue     int            `bson:"trigger_value" json:"trigger_value" yaml:"trigger_value"` // km, hours or days
	LastServiceDate  *time.Time     `bson:"last_service_date,omitempty" json:"last_service_date,omitempty" yaml:"last_service_date,omitempty"`
	LastServiceKM    int            `bson:"last_service_km" json:"last_service_km" yaml:"last_service_km"`
	LastServiceHours int            `bson:"last_service_hours" json:"last_service_hours" yaml:"last_service_hours"`
	NextDueKM        int            `bson:"next_due_km" json:"next_due_km" yaml:"next_due_km"`
	NextDueHours     int            `bson:"next_due_hours" json:"next_due_hours" yaml:"next_due_hours"`
	NextDueDate      *time.Time     `bson:"next_due_date,omitempty" json:"next_due_date,omitempty" yaml:"next_due_date,omitempty"`
	Status           ScheduleStatus `bson:"status" json:"status" yaml:"status"`
	LastJobCardID    string         `bson:"last_job_card_id,omitempty" json:"last_job_card_id,omitempty" yaml:"-"`
}

// Priority ranks pending work and notifications.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Rank orders priorities, lower first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// PendingStatus is the lifecycle state of a pending work item.
type PendingStatus string

const (
	PendingOpen       PendingStatus = "Pending"
	PendingInProgress PendingStatus = "In Progress"
	PendingCompleted  PendingStatus = "Completed"
)

// PendingWork is an ad-hoc defect or repair request for a vehicle.
type PendingWork struct {
	ID          string        `bson:"_id" json:"id" yaml:"id"`
	VehicleID   string        `bson:"vehicle_id" json:"vehicle_id" yaml:"vehicle_id"`
	Title       string        `bson:"title" json:"title" yaml:"title"`
	Description string        `bson:"description" json:"description" yaml:"description"`
	Priority    Priority      `bson:"priority" json:"priority" yaml:"priority"`
	Status      PendingStatus `bson:"status" json:"status" yaml:"status"`
	ReportedBy  string        `bson:"reported_by,omitempty" json:"reported_by,omitempty" yaml:"reported_by,omitempty"`
	CreatedAt   time.Time     `bson:"created_at" json:"created_at" yaml:"created_at"`
	CompletedAt *time.Time    `bson:"completed_at,omitempty" json:"completed_at,omitempty" yaml:"-"`
	JobCardID   string        `bson:"job_card_id,omitempty" json:"job_card_id,omitempty" yaml:"-"`
}

var pendingOrder = map[PendingStatus]int{
	PendingOpen:       0,
	PendingInProgress: 1,
	PendingCompleted:  2,
}

// IsValid checks if the status is one of the known values.
func (s PendingStatus) IsValid() bool {
	_, ok := pendingOrder[s]
	return ok
}

// CanTransition reports whether a pending item may move from s to next.
func (s PendingStatus) CanTransition(next PendingStatus) bool {
	from, ok := pendingOrder[s]
	if !ok {
		return false
	}
	to, ok := pendingOrder[next]
	return ok && to > from
}

// IsValid checks if the trigger type is one of the known values.
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerDistance, TriggerHours, TriggerDate:
		return true
	}
	return false
}
