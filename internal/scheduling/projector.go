// Package scheduling projects when recurring maintenance falls due.
package scheduling

import (
	"math"
	"strings"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/models"
)

// Policy holds the intervals used where a trigger cannot be projected directly.
type Policy struct {
	// HoursPerDay converts an engine-hours interval into calendar days.
	HoursPerDay int `yaml:"hours_per_day"`
	// DateIntervalMonths is the rollover applied to date-triggered rules.
	DateIntervalMonths int `yaml:"date_interval_months"`
}

// DefaultPolicy assumes an 8-hour operating day and a 6-month date rollover.
func DefaultPolicy() Policy {
	return Policy{HoursPerDay: 8, DateIntervalMonths: 6}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.HoursPerDay <= 0 {
		p.HoursPerDay = d.HoursPerDay
	}
	if p.DateIntervalMonths <= 0 {
		p.DateIntervalMonths = d.DateIntervalMonths
	}
	return p
}

// Event is the part of a recorded job card the projector reads.
type Event struct {
	JobCardID    string
	Date         time.Time
	TotalKM      int
	TotalHours   int
	ServicesDone []string
}

// Performs reports whether the event performed serviceType.
func (e Event) Performs(serviceType string) bool {
	for _, s := range e.ServicesDone {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(serviceType)) {
			return true
		}
	}
	return false
}

// ProjectNextDue advances rule past ev and marks it Completed. Rules that are
// already Completed or whose service type ev did not perform come back unchanged
// with ok == false.
func (p Policy) ProjectNextDue(rule models.ScheduledService, ev Event) (models.ScheduledService, bool) {
	if rule.Status == models.ScheduleCompleted || !ev.Performs(rule.ServiceType) {
		return rule, false
	}
	p = p.normalized()
	day := truncateDay(ev.Date)

	switch rule.TriggerType {
	case models.TriggerDistance:
		rule.NextDueKM = ev.TotalKM + rule.TriggerValue
	case models.TriggerHours:
		days := int(math.Ceil(float64(rule.TriggerValue) / float64(p.HoursPerDay)))
		due := day.AddDate(0, 0, days)
		rule.NextDueDate = &due
		rule.NextDueHours = ev.TotalHours + rule.TriggerValue
	case models.TriggerDate:
		base := day
		if rule.NextDueDate != nil {
			base = *rule.NextDueDate
		}
		due := base.AddDate(0, p.DateIntervalMonths, 0)
		rule.NextDueDate = &due
	}

	served := ev.Date
	rule.LastServiceDate = &served
	rule.LastServiceKM = ev.TotalKM
	rule.LastServiceHours = ev.TotalHours
	rule.LastJobCardID = ev.JobCardID
	rule.Status = models.ScheduleCompleted
	return rule, true
}

// EvaluateStatus compares the rule's threshold with the vehicle's readings.
// An unset threshold is never due.
func EvaluateStatus(rule models.ScheduledService, v models.Vehicle, now time.Time) models.ScheduleStatus {
	switch rule.TriggerType {
	case models.TriggerDistance:
		if rule.NextDueKM > 0 && v.CurrentKM >= rule.NextDueKM {
			return models.ScheduleDue
		}
	case models.TriggerHours:
		threshold := rule.NextDueHours
		if threshold == 0 {
			threshold = v.NextServiceHours
		}
		if threshold > 0 && v.TotalHours >= threshold {
			return models.ScheduleDue
		}
	case models.TriggerDate:
		if rule.NextDueDate != nil && !now.Before(*rule.NextDueDate) {
			return models.ScheduleDue
		}
	}
	return models.ScheduleUpcoming
}

// Reevaluate refreshes a rule's status after the vehicle's readings changed.
// A Completed rule stays Completed until its next threshold is reached.
func Reevaluate(rule models.ScheduledService, v models.Vehicle, now time.Time) models.ScheduledService {
	status := EvaluateStatus(rule, v, now)
	if rule.Status == models.ScheduleCompleted && status != models.ScheduleDue {
		return rule
	}
	rule.Status = status
	return rule
}

// Reopen returns a Completed rule to the status its threshold gives against v,
// so that a repeat of the same service can be projected again. Rules in any
// other status come back unchanged.
func Reopen(rule models.ScheduledService, v models.Vehicle, now time.Time) models.ScheduledService {
	if rule.Status != models.ScheduleCompleted {
		return rule
	}
	rule.Status = EvaluateStatus(rule, v, now)
	return rule
}

// Initialize fills the thresholds of a newly registered rule from its last
// service snapshot, or from the vehicle's current readings when there is none.
func (p Policy) Initialize(rule models.ScheduledService, v models.Vehicle, now time.Time) models.ScheduledService {
	p = p.normalized()
	switch rule.TriggerType {
	case models.TriggerDistance:
		if rule.NextDueKM == 0 {
			base := rule.LastServiceKM
			if base == 0 {
				base = v.CurrentKM
			}
			rule.NextDueKM = base + rule.TriggerValue
		}
	case models.TriggerHours:
		if rule.NextDueHours == 0 {
			base := rule.LastServiceHours
			if base == 0 {
				base = v.TotalHours
			}
			rule.NextDueHours = base + rule.TriggerValue
		}
	case models.TriggerDate:
		if rule.NextDueDate == nil {
			base := truncateDay(now)
			if rule.LastServiceDate != nil {
				base = truncateDay(*rule.LastServiceDate)
			}
			var due time.Time
			if rule.TriggerValue > 0 {
				due = base.AddDate(0, 0, rule.TriggerValue)
			} else {
				due = base.AddDate(0, p.DateIntervalMonths, 0)
			}
			rule.NextDueDate = &due
		}
	}
	if rule.Status == "" {
		rule.Status = EvaluateStatus(rule, v, now)
	}
	return rule
}

// Thresholds are the earliest next-service values across a vehicle's rules.
// A nil field means no rule supplies that threshold.
type Thresholds struct {
	KM    *int
	Hours *int
	Date  *time.Time
}

// NextThresholds folds the vehicle's rules into the earliest upcoming thresholds.
func NextThresholds(rules []models.ScheduledService) Thresholds {
	var t Thresholds
	for _, r := range rules {
		switch r.TriggerType {
		case models.TriggerDistance:
			if r.NextDueKM > 0 && (t.KM == nil || r.NextDueKM < *t.KM) {
				km := r.NextDueKM
				t.KM = &km
			}
		case models.TriggerHours:
			if r.NextDueHours > 0 && (t.Hours == nil || r.NextDueHours < *t.Hours) {
				h := r.NextDueHours
				t.Hours = &h
			}
		}
		if r.NextDueDate != nil && (t.Date == nil || r.NextDueDate.Before(*t.Date)) {
			d := *r.NextDueDate
			t.Date = &d
		}
	}
	return t
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
