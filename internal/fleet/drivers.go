package fleet

import (
	"context"
	"slices"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/events"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// ReassignDriverRequest hands a vehicle to a new driver. An empty DriverID
// unassigns the vehicle.
type ReassignDriverRequest struct {
	VehicleID string `json:"vehicle_id"`
	DriverID  string `json:"driver_id"`
	Reason    string `json:"reason,omitempty"`
	Actor     string `json:"actor,omitempty"`
}

// ReassignDriverResult lists the assignment records the reassignment touched.
type ReassignDriverResult struct {
	Vehicle models.Vehicle            `json:"vehicle"`
	Closed  []models.DriverAssignment `json:"closed,omitempty"`
	Opened  *models.DriverAssignment  `json:"opened,omitempty"`
}

type reassignDriver struct {
	req    ReassignDriverRequest
	result ReassignDriverResult
}

func (c *reassignDriver) Name() string { return "reassign_driver" }

func (c *reassignDriver) Apply(tx *Tx) error {
	const step = "reassign driver"
	vi := tx.vehicleIndex(c.req.VehicleID)
	if vi < 0 {
		return notFound(step, "vehicle", c.req.VehicleID)
	}
	if c.req.DriverID != "" {
		if _, ok := tx.Driver(c.req.DriverID); !ok {
			return notFound(step, "driver", c.req.DriverID)
		}
	}

	v := tx.Vehicles[vi]
	c.result.Vehicle = v
	if v.DriverID == c.req.DriverID {
		return nil
	}

	actor := c.req.Actor
	if actor == "" {
		actor = tx.actor
	}
	now := tx.Now()

	// Close every open record on the vehicle, not just the current driver's, so
	// the timeline never holds two open intervals.
	for i, a := range tx.Assignments {
		if a.VehicleID != v.ID || !a.Open() {
			continue
		}
		end := now
		a.UnassignedAt = &end
		tx.Assignments[i] = a
		c.result.Closed = append(c.result.Closed, a)
	}

	if c.req.DriverID != "" {
		opened := models.DriverAssignment{
			ID:         tx.NewID(),
			DriverID:   c.req.DriverID,
			VehicleID:  v.ID,
			AssignedAt: now,
			Reason:     c.req.Reason,
			Actor:      actor,
		}
		tx.Assignments = append(tx.Assignments, opened)
		c.result.Opened = &opened
	}

	previous := v.DriverID
	v.DriverID = c.req.DriverID
	v.UpdatedAt = now
	tx.Vehicles[vi] = v
	c.result.Vehicle = v

	tx.Emit(events.DriverReassigned, v.ID, map[string]any{
		"from":   previous,
		"to":     c.req.DriverID,
		"reason": c.req.Reason,
	})
	return nil
}

// ReassignDriver moves a vehicle to a new driver, closing the open assignment
// record and opening a new one. Reassigning to the current driver changes nothing.
func (s *Store) ReassignDriver(ctx context.Context, req ReassignDriverRequest) (ReassignDriverResult, error) {
	cmd := &reassignDriver{req: req}
	if err := s.Execute(ctx, cmd); err != nil {
		return ReassignDriverResult{}, err
	}
	return cmd.result, nil
}

// DriverAt returns the assignment that covered the vehicle at t.
func (s *Snapshot) DriverAt(vehicleID string, t time.Time) (models.DriverAssignment, bool) {
	for _, a := range slices.Backward(s.Assignments) {
		if a.VehicleID == vehicleID && a.Covers(t) {
			return a, true
		}
	}
	return models.DriverAssignment{}, false
}

// DriverAt answers who was driving the vehicle at t.
func (s *Store) DriverAt(vehicleID string, t time.Time) (models.DriverAssignment, error) {
	snap := s.Snapshot()
	if _, ok := snap.Vehicle(vehicleID); !ok {
		return models.DriverAssignment{}, notFound("driver at", "vehicle", vehicleID)
	}
	a, ok := snap.DriverAt(vehicleID, t)
	if !ok {
		return models.DriverAssignment{}, &NotFoundError{Kind: "assignment", ID: vehicleID, Step: "driver at"}
	}
	return a, nil
}
