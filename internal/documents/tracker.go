// Package documents tracks compliance document expiry for vehicles and drivers.
package documents

import (
	"slices"
	"sync"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/models"
)

// DefaultWindow is how far ahead a document counts as expiring soon.
const DefaultWindow = 30 * 24 * time.Hour

// Tracker holds compliance documents in memory.
type Tracker struct {
	mu     sync.RWMutex
	docs   []models.Document
	window time.Duration
}

// NewTracker creates a tracker. A non-positive window uses DefaultWindow.
func NewTracker(window time.Duration, docs ...models.Document) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{docs: slices.Clone(docs), window: window}
}

// Status classifies one document at now.
func (t *Tracker) Status(d models.Document, now time.Time) models.DocumentStatus {
	switch {
	case !now.Before(d.ExpiryDate):
		return models.DocumentExpired
	case d.ExpiryDate.Sub(now) <= t.window:
		return models.DocumentExpiringSoon
	default:
		return models.DocumentValid
	}
}

// Put adds a document or replaces the one with the same id.
func (t *Tracker) Put(d models.Document) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i := slices.IndexFunc(t.docs, func(x models.Document) bool { return x.ID == d.ID }); i >= 0 {
		t.docs[i] = d
		return
	}
	t.docs = append(t.docs, d)
}

// For returns the documents of one owner with their status at now.
func (t *Tracker) For(ownerKind, ownerID string, now time.Time) []models.DocumentExpiry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []models.DocumentExpiry
	for _, d := range t.docs {
		if d.OwnerKind == ownerKind && d.OwnerID == ownerID {
			out = append(out, models.DocumentExpiry{Document: d, Status: t.Status(d, now)})
		}
	}
	return out
}

// Expiring returns every document that is expired or expiring soon at now,
// earliest expiry first.
func (t *Tracker) Expiring(now time.Time) []models.DocumentExpiry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []models.DocumentExpiry
	for _, d := range t.docs {
		if s := t.Status(d, now); s != models.DocumentValid {
			out = append(out, models.DocumentExpiry{Document: d, Status: s})
		}
	}
	slices.SortFunc(out, func(a, b models.DocumentExpiry) int {
		return a.Document.ExpiryDate.Compare(b.Document.ExpiryDate)
	})
	return out
}
