package fleet

import (
	"context"
	"strings"

	"github.com/ukydev/fleet-maintenance/internal/events"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/scheduling"
)

// refreshVehicleSchedule re-evaluates every rule of the vehicle at index vi and
// folds them into the vehicle's next-service thresholds. Thresholds no rule
// supplies are left unchanged.
func refreshVehicleSchedule(tx *Tx, vi int) {
	v := tx.Vehicles[vi]
	var rules []models.ScheduledService
	for i, r := range tx.Schedules {
		if r.VehicleID != v.ID {
			continue
		}
		tx.Schedules[i] = scheduling.Reevaluate(r, v, tx.Now())
		rules = append(rules, tx.Schedules[i])
	}

	next := scheduling.NextThresholds(rules)
	if next.KM != nil {
		v.NextServiceKM = *next.KM
	}
	if next.Hours != nil {
		v.NextServiceHours = *next.Hours
	}
	if next.Date != nil {
		d := *next.Date
		v.NextServiceDate = &d
	}
	tx.Vehicles[vi] = v
}

// added is the shared Apply body of the reference data commands.
type added[T any] struct {
	name  string
	apply func(tx *Tx, entity *T) error
	value T
}

func (c *added[T]) Name() string { return c.name }

func (c *added[T]) Apply(tx *Tx) error { return c.apply(tx, &c.value) }

func addEntity[T any](ctx context.Context, s *Store, name string, value T, apply func(*Tx, *T) error) (T, error) {
	cmd := &added[T]{name: name, apply: apply, value: value}
	if err := s.Execute(ctx, cmd); err != nil {
		var zero T
		return zero, err
	}
	return cmd.value, nil
}

func emitAdded(tx *Tx, kind, id string) {
	tx.Emit(events.EntityAdded, id, map[string]any{"kind": kind})
}

// AddVehicle registers a vehicle. A vehicle registered with a driver gets an
// open assignment record.
func (s *Store) AddVehicle(ctx context.Context, v models.Vehicle) (models.Vehicle, error) {
	return addEntity(ctx, s, "add_vehicle", v, func(tx *Tx, v *models.Vehicle) error {
		const step = "add vehicle"
		if strings.TrimSpace(v.RegistrationNumber) == "" {
			return invalid(step, "registration_number", "is required")
		}
		if v.CurrentKM < 0 || v.TotalHours < 0 {
			return invalid(step, "current_km", "readings must not be negative")
		}
		if v.ID == "" {
			v.ID = tx.NewID()
		} else if tx.vehicleIndex(v.ID) >= 0 {
			return &InvalidRequestError{Field: "id", Reason: "already exists", ID: v.ID, Step: step}
		}
		if v.Status == "" {
			v.Status = models.VehicleActive
		}
		if v.DriverID != "" {
			if _, ok := tx.Driver(v.DriverID); !ok {
				return notFound(step, "driver", v.DriverID)
			}
			tx.Assignments = append(tx.Assignments, models.DriverAssignment{
				ID:         tx.NewID(),
				DriverID:   v.DriverID,
				VehicleID:  v.ID,
				AssignedAt: tx.Now(),
				Reason:     "registered",
				Actor:      tx.actor,
			})
		}
		v.CreatedAt = tx.Now()
		v.UpdatedAt = tx.Now()
		tx.Vehicles = append(tx.Vehicles, *v)
		emitAdded(tx, "vehicle", v.ID)
		return nil
	})
}

// AddDriver registers a driver.
func (s *Store) AddDriver(ctx context.Context, d models.Driver) (models.Driver, error) {
	return addEntity(ctx, s, "add_driver", d, func(tx *Tx, d *models.Driver) error {
		const step = "add driver"
		if strings.TrimSpace(d.Name) == "" {
			return invalid(step, "name", "is required")
		}
		if d.ID == "" {
			d.ID = tx.NewID()
		} else if _, ok := tx.Driver(d.ID); ok {
			return &InvalidRequestError{Field: "id", Reason: "already exists", ID: d.ID, Step: step}
		}
		tx.Drivers = append(tx.Drivers, *d)
		emitAdded(tx, "driver", d.ID)
		return nil
	})
}

// AddWorker registers a technician.
func (s *Store) AddWorker(ctx context.Context, w models.Worker) (models.Worker, error) {
	return addEntity(ctx, s, "add_worker", w, func(tx *Tx, w *models.Worker) error {
		const step = "add worker"
		if strings.TrimSpace(w.Name) == "" {
			return invalid(step, "name", "is required")
		}
		if w.ID == "" {
			w.ID = tx.NewID()
		} else if _, ok := tx.Worker(w.ID); ok {
			return &InvalidRequestError{Field: "id", Reason: "already exists", ID: w.ID, Step: step}
		}
		tx.Workers = append(tx.Workers, *w)
		emitAdded(tx, "worker", w.ID)
		return nil
	})
}

// AddScheduledService registers a recurring service rule. Missing thresholds
// are derived from the last service or from the vehicle's current readings.
func (s *Store) AddScheduledService(ctx context.Context, rule models.ScheduledService) (models.ScheduledService, error) {
	return addEntity(ctx, s, "add_scheduled_service", rule, func(tx *Tx, r *models.ScheduledService) error {
		const step = "add scheduled service"
		vi := tx.vehicleIndex(r.VehicleID)
		if vi < 0 {
			return notFound(step, "vehicle", r.VehicleID)
		}
		if strings.TrimSpace(r.ServiceType) == "" {
			return invalid(step, "service_type", "is required")
		}
		if !r.TriggerType.IsValid() {
			return invalid(step, "trigger_type", "must be distance, hours or date")
		}
		if r.TriggerValue < 0 || (r.TriggerValue == 0 && r.TriggerType != models.TriggerDate) {
			return invalid(step, "trigger_value", "must be positive")
		}
		if r.ID == "" {
			r.ID = tx.NewID()
		} else if tx.scheduleIndex(r.ID) >= 0 {
			return &InvalidRequestError{Field: "id", Reason: "already exists", ID: r.ID, Step: step}
		}
		*r = tx.Policy().Scheduling.Initialize(*r, tx.Vehicles[vi], tx.Now())
		tx.Schedules = append(tx.Schedules, *r)
		refreshVehicleSchedule(tx, vi)
		emitAdded(tx, "scheduled_service", r.ID)
		return nil
	})
}

// AddPendingWork reports a defect or repair request against a vehicle.
func (s *Store) AddPendingWork(ctx context.Context, pw models.PendingWork) (models.PendingWork, error) {
	return addEntity(ctx, s, "add_pending_work", pw, func(tx *Tx, pw *models.PendingWork) error {
		const step = "add pending work"
		if tx.vehicleIndex(pw.VehicleID) < 0 {
			return notFound(step, "vehicle", pw.VehicleID)
		}
		if strings.TrimSpace(pw.Title) == "" {
			return invalid(step, "title", "is required")
		}
		if pw.Priority == "" {
			pw.Priority = models.PriorityMedium
		}
		if pw.Priority.Rank() > models.PriorityLow.Rank() {
			return invalid(step, "priority", "must be High, Medium or Low")
		}
		if pw.ID == "" {
			pw.ID = tx.NewID()
		} else if tx.pendingIndex(pw.ID) >= 0 {
			return &InvalidRequestError{Field: "id", Reason: "already exists", ID: pw.ID, Step: step}
		}
		pw.Status = models.PendingOpen
		if pw.ReportedBy == "" {
			pw.ReportedBy = tx.actor
		}
		pw.CreatedAt = tx.Now()
		tx.PendingWork = append(tx.PendingWork, *pw)
		emitAdded(tx, "pending_work", pw.ID)
		return nil
	})
}

type updatePendingWorkStatus struct {
	id     string
	status models.PendingStatus
	item   models.PendingWork
}

func (c *updatePendingWorkStatus) Name() string { return "update_pending_work_status" }

func (c *updatePendingWorkStatus) Apply(tx *Tx) error {
	const step = "update pending work status"
	i := tx.pendingIndex(c.id)
	if i < 0 {
		return notFound(step, "pending work", c.id)
	}
	pw := tx.PendingWork[i]
	if !pw.Status.CanTransition(c.status) {
		return &InvalidRequestError{
			Field:  "status",
			Reason: "cannot move from " + string(pw.Status) + " to " + string(c.status),
			ID:     c.id,
			Step:   step,
		}
	}
	pw.Status = c.status
	if c.status == models.PendingCompleted {
		done := tx.Now()
		pw.CompletedAt = &done
	}
	tx.PendingWork[i] = pw
	c.item = pw
	tx.Emit(events.PendingWorkUpdated, pw.ID, map[string]any{"status": string(pw.Status)})
	return nil
}

// UpdatePendingWorkStatus moves a pending item forward by hand.
func (s *Store) UpdatePendingWorkStatus(ctx context.Context, id string, status models.PendingStatus) (models.PendingWork, error) {
	cmd := &updatePendingWorkStatus{id: id, status: status}
	if err := s.Execute(ctx, cmd); err != nil {
		return models.PendingWork{}, err
	}
	return cmd.item, nil
}
