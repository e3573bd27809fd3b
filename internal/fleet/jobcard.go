package fleet

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/events"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/pricing"
	"github.com/ukydev/fleet-maintenance/internal/scheduling"
	"github.com/ukydev/fleet-maintenance/internal/stock"
)

// PartRequest is one consumed part on a job card. A zero UnitPrice is priced at
// the item's average price; a zero LineTotal is computed from quantity and price.
type PartRequest struct {
	ItemID    string  `json:"item_id" yaml:"item_id"`
	Quantity  int     `json:"quantity" yaml:"quantity"`
	UnitPrice float64 `json:"unit_price" yaml:"unit_price"`
	LineTotal float64 `json:"line_total" yaml:"line_total"`
}

// RecordJobCardRequest carries one completed maintenance session.
type RecordJobCardRequest struct {
	VehicleID    string               `json:"vehicle_id" yaml:"vehicle_id"`
	JobDate      time.Time            `json:"job_date" yaml:"job_date"`
	StartTime    time.Time            `json:"start_time" yaml:"start_time"`
	EndTime      time.Time            `json:"end_time" yaml:"end_time"`
	TotalKM      int                  `json:"total_km" yaml:"total_km"`
	TotalHours   int                  `json:"total_hours" yaml:"total_hours"`
	WorkerIDs    []string             `json:"worker_ids" yaml:"worker_ids"`
	PartsUsed    []PartRequest        `json:"parts_used" yaml:"parts_used"`
	ServicesDone []string             `json:"services_done" yaml:"services_done"`
	Remarks      string               `json:"remarks" yaml:"remarks"`
	PhotoRefs    []string             `json:"photo_refs" yaml:"photo_refs"`
	DocumentRefs []string             `json:"document_refs" yaml:"document_refs"`
	Status       models.JobCardStatus `json:"status,omitempty" yaml:"status,omitempty"`
	// AllowShortage lets a strict-stock store accept consumption beyond stock on hand.
	AllowShortage bool `json:"allow_shortage,omitempty" yaml:"allow_shortage,omitempty"`
}

// StockMovement records what consuming one part did to its item.
type StockMovement struct {
	ItemID    string `json:"item_id"`
	Requested int    `json:"requested"`
	Before    int    `json:"before"`
	After     int    `json:"after"`
	Shortage  int    `json:"shortage,omitempty"`
}

// RecordJobCardResult is the created job card and everything the cascade changed.
type RecordJobCardResult struct {
	JobCard           models.JobCard            `json:"job_card"`
	ServiceRecords    []models.ServiceRecord    `json:"service_records"`
	ProjectedRules    []models.ScheduledService `json:"projected_rules"`
	ClosedPendingWork []models.PendingWork      `json:"closed_pending_work"`
	StockMovements    []StockMovement           `json:"stock_movements"`
	Vehicle           models.Vehicle            `json:"vehicle"`
}

type recordJobCard struct {
	req    RecordJobCardRequest
	result RecordJobCardResult
}

func (c *recordJobCard) Name() string { return "record_job_card" }

func (c *recordJobCard) Apply(tx *Tx) error {
	req := c.req
	const step = "validate"

	if strings.TrimSpace(req.VehicleID) == "" {
		return invalid(step, "vehicle_id", "is required")
	}
	vi := tx.vehicleIndex(req.VehicleID)
	if vi < 0 {
		return notFound(step, "vehicle", req.VehicleID)
	}
	if req.TotalKM < 0 {
		return &InvalidRequestError{Field: "total_km", Reason: "must not be negative", ID: req.VehicleID, Step: step}
	}
	if req.TotalHours < 0 {
		return &InvalidRequestError{Field: "total_hours", Reason: "must not be negative", ID: req.VehicleID, Step: step}
	}
	for _, id := range req.WorkerIDs {
		if _, ok := tx.Worker(id); !ok {
			return notFound(step, "worker", id)
		}
	}
	status := req.Status
	if status == "" {
		status = models.JobCardCompleted
	}
	if !status.IsValid() {
		return invalid(step, "status", "unknown status "+string(status))
	}

	parts, err := c.priceParts(tx)
	if err != nil {
		return err
	}

	// Step 1: the job card itself.
	now := tx.Now()
	jobDate := req.JobDate
	if jobDate.IsZero() {
		jobDate = now
	}
	lineTotals := make([]float64, len(parts))
	for i, p := range parts {
		lineTotals[i] = p.LineTotal
	}
	card := models.JobCard{
		ID:           tx.NewID(),
		VehicleID:    req.VehicleID,
		JobDate:      jobDate,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		TotalKM:      req.TotalKM,
		TotalHours:   req.TotalHours,
		WorkerIDs:    slices.Clone(req.WorkerIDs),
		PartsUsed:    parts,
		ServicesDone: slices.Clone(req.ServicesDone),
		Remarks:      req.Remarks,
		PhotoRefs:    slices.Clone(req.PhotoRefs),
		DocumentRefs: slices.Clone(req.DocumentRefs),
		TotalCost:    pricing.Sum(lineTotals...),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tx.JobCards = append(tx.JobCards, card)
	c.result.JobCard = card

	// Step 2: consume parts.
	for _, p := range parts {
		i := tx.inventoryIndex(p.ItemID)
		before := tx.Inventory[i]
		after := stock.AdjustStock(before, -p.Quantity)
		after.UpdatedAt = now
		tx.Inventory[i] = after
		c.result.StockMovements = append(c.result.StockMovements, StockMovement{
			ItemID:    p.ItemID,
			Requested: p.Quantity,
			Before:    before.StockAvailable,
			After:     after.StockAvailable,
			Shortage:  stock.Shortfall(before, p.Quantity),
		})
		tx.Emit(events.StockAdjusted, p.ItemID, map[string]any{
			"job_card_id": card.ID,
			"delta":       -p.Quantity,
			"before":      before.StockAvailable,
			"after":       after.StockAvailable,
		})
	}

	// Step 3: service history.
	c.result.ServiceRecords = serviceRecords(tx, card)
	tx.ServiceHistory = append(tx.ServiceHistory, c.result.ServiceRecords...)

	// Step 4: project the rules the job card serviced.
	v := tx.Vehicles[vi]
	ev := scheduling.Event{
		JobCardID:    card.ID,
		Date:         card.JobDate,
		TotalKM:      card.TotalKM,
		TotalHours:   card.TotalHours,
		ServicesDone: card.ServicesDone,
	}
	// A rule completed by an earlier card is reopened against this card's
	// readings first, so repeat and early services still advance it.
	serviced := v
	serviced.CurrentKM = card.TotalKM
	serviced.TotalHours = card.TotalHours
	for i, rule := range tx.Schedules {
		if rule.VehicleID != v.ID {
			continue
		}
		if ev.Performs(rule.ServiceType) {
			rule = scheduling.Reopen(rule, serviced, card.JobDate)
		}
		projected, ok := tx.Policy().Scheduling.ProjectNextDue(rule, ev)
		if !ok {
			continue
		}
		tx.Schedules[i] = projected
		c.result.ProjectedRules = append(c.result.ProjectedRules, projected)
		tx.Emit(events.ScheduleProjected, projected.ID, projected)
	}

	// Step 5: vehicle readings and thresholds.
	v.CurrentKM = card.TotalKM
	v.TotalHours = card.TotalHours
	v.UpdatedAt = now
	tx.Vehicles[vi] = v
	refreshVehicleSchedule(tx, vi)
	c.result.Vehicle = tx.Vehicles[vi]

	// Step 6: pending work.
	closeAll := tx.Policy().CloseAllPendingWorkOnAnyService
	for i, pw := range tx.PendingWork {
		if pw.VehicleID != v.ID || pw.Status == models.PendingCompleted {
			continue
		}
		if !closeAll && !mentionsAny(pw, card.ServicesDone) {
			continue
		}
		closedAt := now
		pw.Status = models.PendingCompleted
		pw.CompletedAt = &closedAt
		pw.JobCardID = card.ID
		tx.PendingWork[i] = pw
		c.result.ClosedPendingWork = append(c.result.ClosedPendingWork, pw)
		tx.Emit(events.PendingWorkClosed, pw.ID, map[string]any{
			"vehicle_id":  pw.VehicleID,
			"job_card_id": card.ID,
		})
	}

	tx.Emit(events.JobCardRecorded, card.ID, card)
	return nil
}

// priceParts validates the requested parts and snapshots them against current
// item data. It runs before any mutation.
func (c *recordJobCard) priceParts(tx *Tx) ([]models.PartUsed, error) {
	const step = "validate parts"
	demand := map[string]int{}
	parts := make([]models.PartUsed, 0, len(c.req.PartsUsed))

	for _, p := range c.req.PartsUsed {
		item, ok := tx.Item(p.ItemID)
		if !ok {
			return nil, notFound(step, "inventory item", p.ItemID)
		}
		if p.Quantity <= 0 {
			return nil, &InvalidRequestError{Field: "quantity", Reason: "must be positive", ID: p.ItemID, Step: step}
		}
		if p.UnitPrice < 0 || p.LineTotal < 0 {
			return nil, &InvalidRequestError{Field: "unit_price", Reason: "must not be negative", ID: p.ItemID, Step: step}
		}
		demand[p.ItemID] += p.Quantity

		unit := p.UnitPrice
		if unit == 0 {
			unit = item.AveragePrice
		}
		line := p.LineTotal
		if line == 0 {
			line = pricing.LineTotal(p.Quantity, unit)
		}
		parts = append(parts, models.PartUsed{
			ItemID:    item.ID,
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  p.Quantity,
			UnitPrice: unit,
			LineTotal: line,
		})
	}

	if tx.Policy().StrictStock && !c.req.AllowShortage {
		for _, p := range parts {
			want, ok := demand[p.ItemID]
			if !ok {
				continue
			}
			delete(demand, p.ItemID)
			item, _ := tx.Item(p.ItemID)
			if want > item.StockAvailable {
				return nil, &InsufficientStockError{
					ItemID:    p.ItemID,
					Requested: want,
					Available: item.StockAvailable,
					Step:      "consume parts",
				}
			}
		}
	}
	return parts, nil
}

// serviceRecords derives the service history of a job card: one record per
// performed service sharing the cost evenly, or one general record when the card
// names no services but consumed parts or carries remarks.
func serviceRecords(tx *Tx, card models.JobCard) []models.ServiceRecord {
	types := card.ServicesDone
	if len(types) == 0 {
		if len(card.PartsUsed) == 0 && strings.TrimSpace(card.Remarks) == "" {
			return nil
		}
		types = []string{models.GeneralMaintenance}
	}
	costs := pricing.Split(card.TotalCost, len(types))
	out := make([]models.ServiceRecord, len(types))
	for i, t := range types {
		out[i] = models.ServiceRecord{
			ID:          tx.NewID(),
			VehicleID:   card.VehicleID,
			JobCardID:   card.ID,
			ServiceType: t,
			Date:        card.JobDate,
			KM:          card.TotalKM,
			Hours:       card.TotalHours,
			Cost:        costs[i],
			PartsUsed:   slices.Clone(card.PartsUsed),
			WorkerIDs:   slices.Clone(card.WorkerIDs),
			Remarks:     card.Remarks,
			CreatedAt:   tx.Now(),
		}
	}
	return out
}

func mentionsAny(pw models.PendingWork, services []string) bool {
	text := strings.ToLower(pw.Title + " " + pw.Description)
	for _, s := range services {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// RecordJobCard records a maintenance session and applies its cascade:
// stock consumption, service history, schedule projection, vehicle readings and
// pending work closure. Nothing is changed if any step fails.
func (s *Store) RecordJobCard(ctx context.Context, req RecordJobCardRequest) (RecordJobCardResult, error) {
	cmd := &recordJobCard{req: req}
	if err := s.Execute(ctx, cmd); err != nil {
		return RecordJobCardResult{}, err
	}
	return cmd.result, nil
}

type updateJobCardStatus struct {
	id     string
	status models.JobCardStatus
	card   models.JobCard
}

func (c *updateJobCardStatus) Name() string { return "update_job_card_status" }

func (c *updateJobCardStatus) Apply(tx *Tx) error {
	const step = "update job card status"
	i := tx.jobCardIndex(c.id)
	if i < 0 {
		return notFound(step, "job card", c.id)
	}
	card := tx.JobCards[i]
	if !card.Status.CanTransition(c.status) {
		return &InvalidRequestError{
			Field:  "status",
			Reason: "cannot move from " + string(card.Status) + " to " + string(c.status),
			ID:     c.id,
			Step:   step,
		}
	}
	from := card.Status
	card.Status = c.status
	card.UpdatedAt = tx.Now()
	tx.JobCards[i] = card
	c.card = card
	tx.Emit(events.JobCardStatusChanged, card.ID, map[string]any{
		"from": string(from),
		"to":   string(c.status),
	})
	return nil
}

// UpdateJobCardStatus moves a job card forward through Open, In Progress and
// Completed. It is the only change a recorded job card accepts.
func (s *Store) UpdateJobCardStatus(ctx context.Context, id string, status models.JobCardStatus) (models.JobCard, error) {
	cmd := &updateJobCardStatus{id: id, status: status}
	if err := s.Execute(ctx, cmd); err != nil {
		return models.JobCard{}, err
	}
	return cmd.card, nil
}
