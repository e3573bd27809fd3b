package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ukydev/fleet-maintenance/internal/fleet"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// vehicleDetail is a vehicle together with its scheduled service rules and
// compliance documents.
type vehicleDetail struct {
	models.Vehicle
	Schedules []models.ScheduledService `json:"schedules"`
	Documents []models.DocumentExpiry   `json:"documents"`
}

func (h *Handler) listVehicles(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.store.Vehicles())
}

func (h *Handler) getVehicle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := h.store.Snapshot()
	v, ok := snap.Vehicle(id)
	if !ok {
		h.respondError(w, r, &fleet.NotFoundError{Kind: "vehicle", ID: id, Step: "get vehicle"})
		return
	}
	respond(w, http.StatusOK, vehicleDetail{
		Vehicle:   v,
		Schedules: snap.SchedulesFor(id),
		Documents: h.store.Documents(models.OwnerVehicle, id),
	})
}

func (h *Handler) addVehicle(w http.ResponseWriter, r *http.Request) {
	var v models.Vehicle
	if err := decode(r, &v); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := h.store.AddVehicle(r.Context(), v)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

func (h *Handler) vehicleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.store.VehicleHistory(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, history)
}

// dueServices evaluates the vehicle's rules against ?km= and ?hours=. Missing
// readings default to the vehicle's stored ones.
func (h *Handler) dueServices(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, ok := h.store.Snapshot().Vehicle(id)
	if !ok {
		h.respondError(w, r, &fleet.NotFoundError{Kind: "vehicle", ID: id, Step: "due services"})
		return
	}
	km, err := intParam(r, "km", v.CurrentKM)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	hours, err := intParam(r, "hours", v.TotalHours)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	due, err := h.store.DueServices(id, km, hours)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, due)
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

type reassignBody struct {
	DriverID string `json:"driver_id"`
	Reason   string `json:"reason"`
}

func (h *Handler) reassignDriver(w http.ResponseWriter, r *http.Request) {
	var body reassignBody
	if err := decode(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := h.store.ReassignDriver(r.Context(), fleet.ReassignDriverRequest{
		VehicleID: chi.URLParam(r, "id"),
		DriverID:  body.DriverID,
		Reason:    body.Reason,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) driverAt(w http.ResponseWriter, r *http.Request) {
	at := time.Now()
	if raw := r.URL.Query().Get("t"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(w, "t must be an RFC3339 timestamp")
			return
		}
		at = parsed
	}
	a, err := h.store.DriverAt(chi.URLParam(r, "id"), at)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, a)
}

func (h *Handler) recordJobCard(w http.ResponseWriter, r *http.Request) {
	var req fleet.RecordJobCardRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := h.store.RecordJobCard(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, res)
}

func (h *Handler) getJobCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	card, ok := h.store.Snapshot().JobCard(id)
	if !ok {
		h.respondError(w, r, &fleet.NotFoundError{Kind: "job card", ID: id, Step: "get job card"})
		return
	}
	respond(w, http.StatusOK, card)
}

type statusBody struct {
	Status string `json:"status"`
}

func (h *Handler) updateJobCardStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := decode(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	card, err := h.store.UpdateJobCardStatus(r.Context(), chi.URLParam(r, "id"), models.JobCardStatus(body.Status))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, card)
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.store.Inventory())
}

func (h *Handler) addInventoryItem(w http.ResponseWriter, r *http.Request) {
	var item models.InventoryItem
	if err := decode(r, &item); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := h.store.AddInventoryItem(r.Context(), item)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

type adjustBody struct {
	Delta         int    `json:"delta"`
	Reason        string `json:"reason"`
	AllowShortage bool   `json:"allow_shortage"`
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var body adjustBody
	if err := decode(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	item, err := h.store.AdjustStock(r.Context(), fleet.AdjustStockRequest{
		ItemID:        chi.URLParam(r, "id"),
		Delta:         body.Delta,
		Reason:        body.Reason,
		AllowShortage: body.AllowShortage,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, item)
}

func (h *Handler) recordPurchase(w http.ResponseWriter, r *http.Request) {
	var p models.PurchaseRecord
	if err := decode(r, &p); err != nil {
		badRequest(w, err.Error())
		return
	}
	item, err := h.store.RecordPurchase(r.Context(), fleet.RecordPurchaseRequest{
		ItemID:   chi.URLParam(r, "id"),
		Purchase: p,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, item)
}

func (h *Handler) addDriver(w http.ResponseWriter, r *http.Request) {
	var d models.Driver
	if err := decode(r, &d); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := h.store.AddDriver(r.Context(), d)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

func (h *Handler) driverHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.store.DriverHistory(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, history)
}

func (h *Handler) addWorker(w http.ResponseWriter, r *http.Request) {
	var wk models.Worker
	if err := decode(r, &wk); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := h.store.AddWorker(r.Context(), wk)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

func (h *Handler) addPendingWork(w http.ResponseWriter, r *http.Request) {
	var pw models.PendingWork
	if err := decode(r, &pw); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := h.store.AddPendingWork(r.Context(), pw)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

func (h *Handler) updatePendingWorkStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := decode(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	pw, err := h.store.UpdatePendingWorkStatus(r.Context(), chi.URLParam(r, "id"), models.PendingStatus(body.Status))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, pw)
}

func (h *Handler) addScheduledService(w http.ResponseWriter, r *http.Request) {
	var rule models.ScheduledService
	if err := decode(r, &rule); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := h.store.AddScheduledService(r.Context(), rule)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, created)
}
