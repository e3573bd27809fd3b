package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ukydev/fleet-maintenance/internal/models"
)

// notifications serves the derived notification set. It is cached per store
// version; the TTL bounds staleness of the time-dependent entries.
func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	key := fmt.Sprintf("notifications:%d", h.store.Version())
	if cached, found := h.cache.Get(key); found {
		w.Header().Set("X-Cache", "HIT")
		respond(w, http.StatusOK, cached)
		return
	}
	list := h.store.Notifications()
	if list == nil {
		list = []models.Notification{}
	}
	h.cache.SetDefault(key, list)
	w.Header().Set("X-Cache", "MISS")
	respond(w, http.StatusOK, list)
}

// listEvents serves the most recent journal entries, optionally for one aggregate.
func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := int64(100)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := h.journal.RecentEvents(r.Context(), r.URL.Query().Get("aggregate"), limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, entries)
}
