// Package handlers exposes the fleet engine over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/fleet"
	"github.com/ukydev/fleet-maintenance/internal/middleware"
)

// Handler serves the fleet API.
type Handler struct {
	store   *fleet.Store
	journal db.JournalReader
	cache   *cache.Cache
	log     *log.Entry
}

// Option configures a Handler.
type Option func(*Handler)

// WithJournal enables GET /api/events.
func WithJournal(j db.JournalReader) Option { return func(h *Handler) { h.journal = j } }

// WithCacheTTL sets how long derived read models are cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(h *Handler) { h.cache = cache.New(ttl, 2*ttl) }
}

// WithLogger sets the logger.
func WithLogger(l *log.Entry) Option { return func(h *Handler) { h.log = l } }

// NewHandler creates a handler over store.
func NewHandler(store *fleet.Store, opts ...Option) *Handler {
	h := &Handler{
		store: store,
		cache: cache.New(30*time.Second, time.Minute),
		log:   log.WithField("component", "http"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the API on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", h.listVehicles)
			r.Post("/", h.addVehicle)
			r.Get("/{id}", h.getVehicle)
			r.Get("/{id}/history", h.vehicleHistory)
			r.Get("/{id}/due-services", h.dueServices)
			r.Put("/{id}/driver", h.reassignDriver)
			r.Get("/{id}/driver-at", h.driverAt)
		})
		r.Route("/jobcards", func(r chi.Router) {
			r.Post("/", h.recordJobCard)
			r.Get("/{id}", h.getJobCard)
			r.Patch("/{id}/status", h.updateJobCardStatus)
		})
		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", h.listInventory)
			r.Post("/", h.addInventoryItem)
			r.Post("/{id}/adjust", h.adjustStock)
			r.Post("/{id}/purchases", h.recordPurchase)
		})
		r.Route("/drivers", func(r chi.Router) {
			r.Post("/", h.addDriver)
			r.Get("/{id}/history", h.driverHistory)
		})
		r.Post("/workers", h.addWorker)
		r.Route("/pending-work", func(r chi.Router) {
			r.Post("/", h.addPendingWork)
			r.Patch("/{id}/status", h.updatePendingWorkStatus)
		})
		r.Post("/schedules", h.addScheduledService)
		r.Get("/notifications", h.notifications)
		if h.journal != nil {
			r.Get("/events", h.listEvents)
		}
	})
}

// NewRouter builds the service router with its middleware chain.
func NewRouter(h *Handler, authMW *middleware.AuthMiddleware, limiter *middleware.IPRateLimiter) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if limiter != nil {
		r.Use(limiter.RateLimit)
	}
	if authMW != nil {
		r.Use(authMW.Authenticate)
	}
	r.Use(middleware.RequestLogger(h.log))
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.store.Version(),
	})
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error    string `json:"error"`
	Step     string `json:"step,omitempty"`
	EntityID string `json:"entity_id,omitempty"`
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func badRequest(w http.ResponseWriter, msg string) {
	respond(w, http.StatusBadRequest, errorBody{Error: msg})
}

// respondError maps engine errors onto HTTP statuses.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, fleet.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, fleet.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, fleet.ErrInvalidRequest):
		status = http.StatusBadRequest
	}

	body := errorBody{Error: err.Error()}
	var se fleet.StepError
	if errors.As(err, &se) {
		body.Step = se.FailedStep()
		body.EntityID = se.EntityID()
	}
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	}
	respond(w, status, body)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
