package fleet

import (
	"slices"

	"github.com/ukydev/fleet-maintenance/internal/models"
)

// Snapshot is one consistent state of every fleet collection. A published
// snapshot is never modified; writers clone it, change the clone and swap it in.
type Snapshot struct {
	Version        uint64                    `json:"version" yaml:"-"`
	Vehicles       []models.Vehicle          `json:"vehicles" yaml:"vehicles"`
	Drivers        []models.Driver           `json:"drivers" yaml:"drivers"`
	Workers        []models.Worker           `json:"workers" yaml:"workers"`
	Inventory      []models.InventoryItem    `json:"inventory" yaml:"inventory"`
	JobCards       []models.JobCard          `json:"job_cards" yaml:"-"`
	ServiceHistory []models.ServiceRecord    `json:"service_history" yaml:"-"`
	PendingWork    []models.PendingWork      `json:"pending_work" yaml:"pending_work"`
	Schedules      []models.ScheduledService `json:"schedules" yaml:"schedules"`
	Assignments    []models.DriverAssignment `json:"assignments" yaml:"assignments"`
}

func (s *Snapshot) clone() *Snapshot {
	c := &Snapshot{
		Version:        s.Version,
		Vehicles:       slices.Clone(s.Vehicles),
		Drivers:        slices.Clone(s.Drivers),
		Workers:        slices.Clone(s.Workers),
		Inventory:      slices.Clone(s.Inventory),
		JobCards:       slices.Clone(s.JobCards),
		ServiceHistory: slices.Clone(s.ServiceHistory),
		PendingWork:    slices.Clone(s.PendingWork),
		Schedules:      slices.Clone(s.Schedules),
		Assignments:    slices.Clone(s.Assignments),
	}
	for i := range c.Inventory {
		c.Inventory[i].Purchases = slices.Clone(c.Inventory[i].Purchases)
	}
	return c
}

func indexOf[T any](items []T, id string, key func(T) string) int {
	return slices.IndexFunc(items, func(item T) bool { return key(item) == id })
}

func (s *Snapshot) vehicleIndex(id string) int {
	return indexOf(s.Vehicles, id, func(v models.Vehicle) string { return v.ID })
}

func (s *Snapshot) inventoryIndex(id string) int {
	return indexOf(s.Inventory, id, func(i models.InventoryItem) string { return i.ID })
}

func (s *Snapshot) jobCardIndex(id string) int {
	return indexOf(s.JobCards, id, func(j models.JobCard) string { return j.ID })
}

func (s *Snapshot) scheduleIndex(id string) int {
	return indexOf(s.Schedules, id, func(r models.ScheduledService) string { return r.ID })
}

func (s *Snapshot) pendingIndex(id string) int {
	return indexOf(s.PendingWork, id, func(p models.PendingWork) string { return p.ID })
}

// Vehicle looks a vehicle up by id.
func (s *Snapshot) Vehicle(id string) (models.Vehicle, bool) {
	if i := s.vehicleIndex(id); i >= 0 {
		return s.Vehicles[i], true
	}
	return models.Vehicle{}, false
}

// Driver looks a driver up by id.
func (s *Snapshot) Driver(id string) (models.Driver, bool) {
	if i := indexOf(s.Drivers, id, func(d models.Driver) string { return d.ID }); i >= 0 {
		return s.Drivers[i], true
	}
	return models.Driver{}, false
}

// Worker looks a worker up by id.
func (s *Snapshot) Worker(id string) (models.Worker, bool) {
	if i := indexOf(s.Workers, id, func(w models.Worker) string { return w.ID }); i >= 0 {
		return s.Workers[i], true
	}
	return models.Worker{}, false
}

// Item looks an inventory item up by id.
func (s *Snapshot) Item(id string) (models.InventoryItem, bool) {
	if i := s.inventoryIndex(id); i >= 0 {
		return s.Inventory[i], true
	}
	return models.InventoryItem{}, false
}

// JobCard looks a job card up by id.
func (s *Snapshot) JobCard(id string) (models.JobCard, bool) {
	if i := s.jobCardIndex(id); i >= 0 {
		return s.JobCards[i], true
	}
	return models.JobCard{}, false
}

// PendingItem looks a pending work item up by id.
func (s *Snapshot) PendingItem(id string) (models.PendingWork, bool) {
	if i := s.pendingIndex(id); i >= 0 {
		return s.PendingWork[i], true
	}
	return models.PendingWork{}, false
}

// SchedulesFor returns the scheduled service rules of one vehicle.
func (s *Snapshot) SchedulesFor(vehicleID string) []models.ScheduledService {
	var out []models.ScheduledService
	for _, r := range s.Schedules {
		if r.VehicleID == vehicleID {
			out = append(out, r)
		}
	}
	return out
}
