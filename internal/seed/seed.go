// Package seed loads fleet fixtures from YAML into a store.
package seed

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ukydev/fleet-maintenance/internal/documents"
	"github.com/ukydev/fleet-maintenance/internal/fleet"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// Fixture is the content of a seed file.
type Fixture struct {
	Drivers     []models.Driver           `yaml:"drivers"`
	Workers     []models.Worker           `yaml:"workers"`
	Vehicles    []models.Vehicle          `yaml:"vehicles"`
	Inventory   []models.InventoryItem    `yaml:"inventory"`
	Schedules   []models.ScheduledService `yaml:"schedules"`
	PendingWork []models.PendingWork      `yaml:"pending_work"`
	Documents   []models.Document         `yaml:"documents"`
}

// Load reads a fixture file.
func Load(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var fx Fixture
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &fx, nil
}

// Apply registers every fixture entity through the store's commands, so seeded
// data is validated and derived fields are filled exactly as at runtime.
// Documents go to the tracker when one is given.
func (fx *Fixture) Apply(ctx context.Context, store *fleet.Store, tracker *documents.Tracker) error {
	ctx = fleet.WithActor(ctx, "seed")

	for _, d := range fx.Drivers {
		if _, err := store.AddDriver(ctx, d); err != nil {
			return fmt.Errorf("seed driver %q: %w", d.ID, err)
		}
	}
	for _, w := range fx.Workers {
		if _, err := store.AddWorker(ctx, w); err != nil {
			return fmt.Errorf("seed worker %q: %w", w.ID, err)
		}
	}
	for _, v := range fx.Vehicles {
		if _, err := store.AddVehicle(ctx, v); err != nil {
			return fmt.Errorf("seed vehicle %q: %w", v.ID, err)
		}
	}
	for _, item := range fx.Inventory {
		if _, err := store.AddInventoryItem(ctx, item); err != nil {
			return fmt.Errorf("seed item %q: %w", item.ID, err)
		}
	}
	for _, r := range fx.Schedules {
		if _, err := store.AddScheduledService(ctx, r); err != nil {
			return fmt.Errorf("seed schedule %q: %w", r.ID, err)
		}
	}
	for _, pw := range fx.PendingWork {
		if _, err := store.AddPendingWork(ctx, pw); err != nil {
			return fmt.Errorf("seed pending work %q: %w", pw.ID, err)
		}
	}
	if tracker != nil {
		for _, d := range fx.Documents {
			tracker.Put(d)
		}
	}

	log.WithFields(log.Fields{
		"vehicles":  len(fx.Vehicles),
		"inventory": len(fx.Inventory),
		"schedules": len(fx.Schedules),
		"documents": len(fx.Documents),
	}).Info("Seed data applied")
	return nil
}
