package fleet

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/scheduling"
)

// VehicleHistory is the maintenance record of one vehicle, newest first.
type VehicleHistory struct {
	Vehicle        models.Vehicle            `json:"vehicle"`
	JobCards       []models.JobCard          `json:"job_cards"`
	ServiceRecords []models.ServiceRecord    `json:"service_records"`
	Assignments    []models.DriverAssignment `json:"assignments"`
}

// DriverHistory is a driver's assignment timeline plus the maintenance of every
// vehicle they drove. DuringAssignment narrows JobCards to those dated inside
// one of the driver's own assignment windows.
type DriverHistory struct {
	Driver           models.Driver             `json:"driver"`
	Assignments      []models.DriverAssignment `json:"assignments"`
	JobCards         []models.JobCard          `json:"job_cards"`
	ServiceRecords   []models.ServiceRecord    `json:"service_records"`
	DuringAssignment []models.JobCard          `json:"during_assignment"`
	Documents        []models.DocumentExpiry   `json:"documents"`
}

func newestJobCards(a, b models.JobCard) int {
	if c := b.JobDate.Compare(a.JobDate); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

func newestServices(a, b models.ServiceRecord) int {
	if c := b.Date.Compare(a.Date); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

func newestAssignments(a, b models.DriverAssignment) int {
	if c := b.AssignedAt.Compare(a.AssignedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// Vehicles returns every vehicle.
func (s *Store) Vehicles() []models.Vehicle {
	return slices.Clone(s.Snapshot().Vehicles)
}

// Inventory returns every inventory item.
func (s *Store) Inventory() []models.InventoryItem {
	return slices.Clone(s.Snapshot().Inventory)
}

// VehicleHistory returns the job cards, service records and driver assignments
// of one vehicle.
func (s *Store) VehicleHistory(vehicleID string) (VehicleHistory, error) {
	snap := s.Snapshot()
	v, ok := snap.Vehicle(vehicleID)
	if !ok {
		return VehicleHistory{}, notFound("vehicle history", "vehicle", vehicleID)
	}
	h := VehicleHistory{Vehicle: v}
	for _, jc := range snap.JobCards {
		if jc.VehicleID == vehicleID {
			h.JobCards = append(h.JobCards, jc)
		}
	}
	for _, sr := range snap.ServiceHistory {
		if sr.VehicleID == vehicleID {
			h.ServiceRecords = append(h.ServiceRecords, sr)
		}
	}
	for _, a := range snap.Assignments {
		if a.VehicleID == vehicleID {
			h.Assignments = append(h.Assignments, a)
		}
	}
	slices.SortFunc(h.JobCards, newestJobCards)
	slices.SortFunc(h.ServiceRecords, newestServices)
	slices.SortFunc(h.Assignments, newestAssignments)
	return h, nil
}

// DriverHistory returns a driver's assignments, newest first, and the
// maintenance recorded on every vehicle those assignments name.
func (s *Store) DriverHistory(driverID string) (DriverHistory, error) {
	snap := s.Snapshot()
	d, ok := snap.Driver(driverID)
	if !ok {
		return DriverHistory{}, notFound("driver history", "driver", driverID)
	}
	h := DriverHistory{Driver: d, Documents: s.Documents(models.OwnerDriver, driverID)}
	vehicles := map[string]bool{}
	for _, a := range snap.Assignments {
		if a.DriverID == driverID {
			h.Assignments = append(h.Assignments, a)
			vehicles[a.VehicleID] = true
		}
	}
	for _, jc := range snap.JobCards {
		if !vehicles[jc.VehicleID] {
			continue
		}
		h.JobCards = append(h.JobCards, jc)
		if slices.ContainsFunc(h.Assignments, func(a models.DriverAssignment) bool {
			return a.VehicleID == jc.VehicleID && a.Covers(jc.JobDate)
		}) {
			h.DuringAssignment = append(h.DuringAssignment, jc)
		}
	}
	for _, sr := range snap.ServiceHistory {
		if vehicles[sr.VehicleID] {
			h.ServiceRecords = append(h.ServiceRecords, sr)
		}
	}
	slices.SortFunc(h.Assignments, newestAssignments)
	slices.SortFunc(h.JobCards, newestJobCards)
	slices.SortFunc(h.DuringAssignment, newestJobCards)
	slices.SortFunc(h.ServiceRecords, newestServices)
	return h, nil
}

// Documents returns the compliance documents of one owner with their status
// now. The result is empty when no tracker is configured.
func (s *Store) Documents(ownerKind, ownerID string) []models.DocumentExpiry {
	if s.documents == nil {
		return []models.DocumentExpiry{}
	}
	docs := s.documents.For(ownerKind, ownerID, s.clock())
	if docs == nil {
		docs = []models.DocumentExpiry{}
	}
	return docs
}

// DueServices returns the vehicle's rules that are due for the supplied
// odometer and engine-hours readings. The stored vehicle is not changed.
func (s *Store) DueServices(vehicleID string, currentKM, totalHours int) ([]models.ScheduledService, error) {
	snap := s.Snapshot()
	v, ok := snap.Vehicle(vehicleID)
	if !ok {
		return nil, notFound("due services", "vehicle", vehicleID)
	}
	v.CurrentKM = currentKM
	v.TotalHours = totalHours
	now := s.clock()

	due := []models.ScheduledService{}
	for _, r := range snap.SchedulesFor(vehicleID) {
		if scheduling.EvaluateStatus(r, v, now) == models.ScheduleDue {
			r.Status = models.ScheduleDue
			due = append(due, r)
		}
	}
	return due, nil
}

// Notifications derives the current notification set: due services, expiring
// or expired documents, low-stock items and open high-priority pending work.
// Entries are sorted by priority, then newest first.
func (s *Store) Notifications() []models.Notification {
	snap := s.Snapshot()
	now := s.clock()
	var out []models.Notification

	for _, r := range snap.Schedules {
		v, ok := snap.Vehicle(r.VehicleID)
		if !ok || scheduling.EvaluateStatus(r, v, now) != models.ScheduleDue {
			continue
		}
		at := now
		if r.NextDueDate != nil {
			at = *r.NextDueDate
		}
		out = append(out, models.Notification{
			Kind:      models.NotifyServiceDue,
			Priority:  models.PriorityMedium,
			Title:     r.ServiceType + " due",
			Message:   fmt.Sprintf("%s is due for %s", v.RegistrationNumber, r.ServiceType),
			EntityID:  r.ID,
			VehicleID: v.ID,
			At:        at,
		})
	}

	if s.documents != nil {
		for _, d := range s.documents.Expiring(now) {
			n := models.Notification{
				Kind:     models.NotifyDocument,
				Priority: models.PriorityMedium,
				Title:    fmt.Sprintf("%s %s", d.Document.Type, d.Status),
				Message:  fmt.Sprintf("%s %s expires %s", d.Document.Type, d.Document.Number, d.Document.ExpiryDate.Format(time.DateOnly)),
				EntityID: d.Document.ID,
				At:       d.Document.ExpiryDate,
			}
			if d.Status == models.DocumentExpired {
				n.Priority = models.PriorityHigh
			}
			if d.Document.OwnerKind == models.OwnerVehicle {
				n.VehicleID = d.Document.OwnerID
			}
			out = append(out, n)
		}
	}

	for _, item := range snap.Inventory {
		if !item.LowStock(s.policy.LowStockThreshold) {
			continue
		}
		out = append(out, models.Notification{
			Kind:     models.NotifyLowStock,
			Priority: models.PriorityLow,
			Title:    item.Name + " low on stock",
			Message:  fmt.Sprintf("%d of %s left", item.StockAvailable, item.Name),
			EntityID: item.ID,
			At:       item.UpdatedAt,
		})
	}

	for _, pw := range snap.PendingWork {
		if pw.Priority != models.PriorityHigh || pw.Status == models.PendingCompleted {
			continue
		}
		out = append(out, models.Notification{
			Kind:      models.NotifyPendingWork,
			Priority:  models.PriorityHigh,
			Title:     pw.Title,
			Message:   pw.Description,
			EntityID:  pw.ID,
			VehicleID: pw.VehicleID,
			At:        pw.CreatedAt,
		})
	}

	slices.SortFunc(out, func(a, b models.Notification) int {
		if c := cmp.Compare(a.Priority.Rank(), b.Priority.Rank()); c != 0 {
			return c
		}
		if c := b.At.Compare(a.At); c != 0 {
			return c
		}
		return cmp.Compare(a.EntityID, b.EntityID)
	})
	return out
}
