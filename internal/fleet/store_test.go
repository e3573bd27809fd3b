package fleet

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-maintenance/internal/events"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/pricing"
)

var testNow = time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(sequentialIDs()),
		WithLogger(log.NewEntry(logger)),
	}
	s := NewStore(append(base, opts...)...)
	s.Load(Snapshot{
		Vehicles: []models.Vehicle{
			{ID: "V", RegistrationNumber: "ABC-123", CurrentKM: 45000, TotalHours: 1200, Status: models.VehicleActive},
			{ID: "W", RegistrationNumber: "XYZ-789", CurrentKM: 48000, Status: models.VehicleActive},
		},
		Drivers: []models.Driver{{ID: "d1", Name: "Driver One"}, {ID: "d2", Name: "Driver Two"}},
		Workers: []models.Worker{{ID: "w1", Name: "Mechanic", Trade: "mechanic"}},
		Inventory: []models.InventoryItem{
			{ID: "I", SKU: "OIL-5W30", Name: "Engine Oil", StockAvailable: 25, AveragePrice: 820, LastPurchasePrice: 820},
			{ID: "F", SKU: "FLT-01", Name: "Oil Filter", StockAvailable: 3, AveragePrice: 45},
		},
		Schedules: []models.ScheduledService{
			{ID: "r-oil", VehicleID: "V", ServiceType: "Oil Change", TriggerType: models.TriggerDistance, TriggerValue: 5000, NextDueKM: 45000, Status: models.ScheduleDue},
			{ID: "r-w", VehicleID: "W", ServiceType: "Tyre Rotation", TriggerType: models.TriggerDistance, TriggerValue: 5000, NextDueKM: 50000, Status: models.ScheduleUpcoming},
		},
		PendingWork: []models.PendingWork{
			{ID: "p1", VehicleID: "V", Title: "Brake noise", Priority: models.PriorityHigh, Status: models.PendingOpen},
			{ID: "p2", VehicleID: "V", Title: "Oil change overdue", Priority: models.PriorityLow, Status: models.PendingInProgress},
			{ID: "p3", VehicleID: "W", Title: "Wiper", Priority: models.PriorityLow, Status: models.PendingOpen},
		},
	})
	return s
}

func TestRecordJobCard_ScenarioA(t *testing.T) {
	s := newTestStore(t)

	res, err := s.RecordJobCard(context.Background(), RecordJobCardRequest{
		VehicleID:    "V",
		JobDate:      testNow,
		TotalKM:      45500,
		TotalHours:   1210,
		WorkerIDs:    []string{"w1"},
		PartsUsed:    []PartRequest{{ItemID: "I", Quantity: 2, UnitPrice: 820, LineTotal: 1640}},
		ServicesDone: []string{"Oil Change"},
	})
	require.NoError(t, err)

	snap := s.Snapshot()
	item, _ := snap.Item("I")
	assert.Equal(t, 23, item.StockAvailable)

	require.Len(t, res.ServiceRecords, 1)
	assert.Equal(t, "Oil Change", res.ServiceRecords[0].ServiceType)
	assert.Equal(t, 1640.0, res.ServiceRecords[0].Cost)
	assert.Len(t, snap.ServiceHistory, 1)

	v, _ := snap.Vehicle("V")
	assert.Equal(t, 45500, v.CurrentKM)
	assert.Equal(t, 1210, v.TotalHours)
	assert.Equal(t, 50500, v.NextServiceKM)

	for _, id := range []string{"p1", "p2"} {
		pw, _ := snap.PendingItem(id)
		assert.Equal(t, models.PendingCompleted, pw.Status, id)
		assert.Equal(t, res.JobCard.ID, pw.JobCardID)
	}
	other, _ := snap.PendingItem("p3")
	assert.Equal(t, models.PendingOpen, other.Status)

	rule := snap.SchedulesFor("V")[0]
	assert.Equal(t, models.ScheduleCompleted, rule.Status)
	assert.Equal(t, 50500, rule.NextDueKM)
	assert.Equal(t, res.JobCard.ID, rule.LastJobCardID)

	assert.Equal(t, 1640.0, res.JobCard.TotalCost)
	assert.Equal(t, models.JobCardCompleted, res.JobCard.Status)
	assert.Equal(t, uint64(1), snap.Version)
}

func TestRecordJobCard_RepeatServiceAdvancesRule(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	oilChange := func(km int, day time.Time) RecordJobCardResult {
		t.Helper()
		res, err := s.RecordJobCard(ctx, RecordJobCardRequest{
			VehicleID:    "V",
			JobDate:      day,
			TotalKM:      km,
			TotalHours:   1200,
			ServicesDone: []string{"Oil Change"},
		})
		require.NoError(t, err)
		return res
	}

	first := oilChange(45500, testNow)
	require.Len(t, first.ProjectedRules, 1)

	second := oilChange(50600, testNow.AddDate(0, 2, 0))
	require.Len(t, second.ProjectedRules, 1)

	snap := s.Snapshot()
	rule := snap.SchedulesFor("V")[0]
	assert.Equal(t, models.ScheduleCompleted, rule.Status)
	assert.Equal(t, 55600, rule.NextDueKM)
	assert.Equal(t, 50600, rule.LastServiceKM)
	assert.Equal(t, second.JobCard.ID, rule.LastJobCardID)

	v, _ := snap.Vehicle("V")
	assert.Equal(t, 55600, v.NextServiceKM)

	due, err := s.DueServices("V", 50600, 1200)
	require.NoError(t, err)
	assert.Empty(t, due)

	// an early service is credited from its own reading
	third := oilChange(52000, testNow.AddDate(0, 3, 0))
	require.Len(t, third.ProjectedRules, 1)
	assert.Equal(t, 57000, s.Snapshot().SchedulesFor("V")[0].NextDueKM)
}

func TestRecordJobCard_ScenarioD(t *testing.T) {
	s := newTestStore(t)

	due, err := s.DueServices("W", 48000, 0)
	require.NoError(t, err)
	assert.Empty(t, due)

	_, err = s.RecordJobCard(context.Background(), RecordJobCardRequest{
		VehicleID: "W",
		TotalKM:   50500,
		Remarks:   "inspection",
	})
	require.NoError(t, err)

	rule := s.Snapshot().SchedulesFor("W")[0]
	assert.Equal(t, models.ScheduleDue, rule.Status)

	due, err = s.DueServices("W", 50500, 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "r-w", due[0].ID)
}

func TestRecordJobCard_CostConservationAndSplit(t *testing.T) {
	s := newTestStore(t)

	res, err := s.RecordJobCard(context.Background(), RecordJobCardRequest{
		VehicleID: "V",
		TotalKM:   45100,
		PartsUsed: []PartRequest{
			{ItemID: "I", Quantity: 1, UnitPrice: 33.33},
			{ItemID: "F", Quantity: 1, UnitPrice: 66.67},
		},
		ServicesDone: []string{"Oil Change", "Filter", "Inspection"},
	})
	require.NoError(t, err)

	var lines []float64
	for _, p := range res.JobCard.PartsUsed {
		lines = append(lines, p.LineTotal)
	}
	assert.Equal(t, pricing.Sum(lines...), res.JobCard.TotalCost)
	assert.Equal(t, 100.0, res.JobCard.TotalCost)

	require.Len(t, res.ServiceRecords, 3)
	var costs []float64
	for _, r := range res.ServiceRecords {
		costs = append(costs, r.Cost)
		assert.Len(t, r.PartsUsed, 2)
	}
	assert.Equal(t, []float64{33.33, 33.33, 33.34}, costs)
	assert.Equal(t, res.JobCard.TotalCost, pricing.Sum(costs...))
}

func TestRecordJobCard_PricesFromAverage(t *testing.T) {
	s := newTestStore(t)

	res, err := s.RecordJobCard(context.Background(), RecordJobCardRequest{
		VehicleID: "V",
		TotalKM:   45000,
		PartsUsed: []PartRequest{{ItemID: "I", Quantity: 3}},
	})
	require.NoError(t, err)

	part := res.JobCard.PartsUsed[0]
	assert.Equal(t, 820.0, part.UnitPrice)
	assert.Equal(t, 2460.0, part.LineTotal)
	assert.Equal(t, "Engine Oil", part.Name)
	assert.Equal(t, "OIL-5W30", part.SKU)

	require.Len(t, res.ServiceRecords, 1)
	assert.Equal(t, models.GeneralMaintenance, res.ServiceRecords[0].ServiceType)
	assert.Equal(t, 2460.0, res.ServiceRecords[0].Cost)
}

func TestRecordJobCard_NoServiceRecordWithoutWork(t *testing.T) {
	s := newTestStore(t)

	res, err := s.RecordJobCard(context.Background(), RecordJobCardRequest{VehicleID: "V", TotalKM: 45010})
	require.NoError(t, err)
	assert.Empty(t, res.ServiceRecords)
	assert.Empty(t, s.Snapshot().ServiceHistory)
}

func TestRecordJobCard_PartSnapshotSurvivesRevaluation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.RecordJobCard(ctx, RecordJobCardRequest{
		VehicleID: "V",
		TotalKM:   45000,
		PartsUsed: []PartRequest{{ItemID: "I", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = s.RecordPurchase(ctx, RecordPurchaseRequest{
		ItemID:   "I",
		Purchase: models.PurchaseRecord{Quantity: 10, UnitPrice: 2000},
	})
	require.NoError(t, err)

	card, ok := s.Snapshot().JobCard(res.JobCard.ID)
	require.True(t, ok)
	assert.Equal(t, 820.0, card.PartsUsed[0].UnitPrice)
	assert.Equal(t, 820.0, card.TotalCost)
}

func TestRecordJobCard_RollsBackOnError(t *testing.T) {
	tests := []struct {
		name   string
		req    RecordJobCardRequest
		target error
		step   string
		entity string
	}{
		{
			name:   "unknown vehicle",
			req:    RecordJobCardRequest{VehicleID: "nope", TotalKM: 1},
			target: ErrNotFound,
			step:   "validate",
			entity: "nope",
		},
		{
			name: "unknown item after a valid one",
			req: RecordJobCardRequest{
				VehicleID:    "V",
				TotalKM:      46000,
				PartsUsed:    []PartRequest{{ItemID: "I", Quantity: 2}, {ItemID: "ghost", Quantity: 1}},
				ServicesDone: []string{"Oil Change"},
			},
			target: ErrNotFound,
			step:   "validate parts",
			entity: "ghost",
		},
		{
			name:   "unknown worker",
			req:    RecordJobCardRequest{VehicleID: "V", WorkerIDs: []string{"w9"}},
			target: ErrNotFound,
			step:   "validate",
			entity: "w9",
		},
		{
			name:   "zero quantity",
			req:    RecordJobCardRequest{VehicleID: "V", PartsUsed: []PartRequest{{ItemID: "I"}}},
			target: ErrInvalidRequest,
			step:   "validate parts",
			entity: "I",
		},
		{
			name:   "negative odometer",
			req:    RecordJobCardRequest{VehicleID: "V", TotalKM: -1},
			target: ErrInvalidRequest,
			step:   "validate",
			entity: "V",
		},
		{
			name:   "missing vehicle id",
			req:    RecordJobCardRequest{},
			target: ErrInvalidRequest,
			step:   "validate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var published []events.Event
			s := newTestStore(t, WithPublisher(events.PublisherFunc(func(_ context.Context, e events.Event) error {
				published = append(published, e)
				return nil
			})))
			before := s.Snapshot()

			_, err := s.RecordJobCard(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)

			var se StepError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.step, se.FailedStep())
			assert.Equal(t, tt.entity, se.EntityID())

			assert.Same(t, before, s.Snapshot())
			assert.Equal(t, uint64(0), s.Version())
			assert.Empty(t, published)
			item, _ := s.Snapshot().Item("I")
			assert.Equal(t, 25, item.StockAvailable)
		})
	}
}

func TestRecordJobCard_StrictStock(t *testing.T) {
	policy := DefaultPolicy()
	policy.StrictStock = true

	t.Run("rejects shortage", func(t *testing.T) {
		s := newTestStore(t, WithPolicy(policy))
		_, err := s.RecordJobCard(context.Background(), RecordJobCardRequest{
			VehicleID: "V",
			PartsUsed: []PartRequest{{ItemID: "F", Quantity: 2}, {ItemID: "F", Quantity: 2}},
		})
		var short *InsufficientStockError
		require.ErrorAs(t, err, &short)
		assert.Equal(t, 4, short.Requested)
		assert.Equal(t, 3, short.Available)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Equal(t, uint64(0), s.Version())
	})

	t.Run("allowed shortage floors at zero", func(t *testing.T) {
		s := newTestStore(t, WithPolicy(policy))
		res, err := s.RecordJobCard(context.Background(), RecordJobCardRequest{
			VehicleID:     "V",
			PartsUsed:     []PartRequest{{ItemID: "F", Quantity: 5}},
			AllowShortage: true,
		})
		require.NoError(t, err)
		item, _ := s.Snapshot().Item("F")
		assert.Equal(t, 0, item.StockAvailable)
		require.Len(t, res.StockMovements, 1)
		assert.Equal(t, 2, res.StockMovements[0].Shortage)
	})

	t.Run("default policy clamps", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.RecordJobCard(context.Background(), RecordJobCardRequest{
			VehicleID: "V",
			PartsUsed: []PartRequest{{ItemID: "F", Quantity: 5}},
		})
		require.NoError(t, err)
		item, _ := s.Snapshot().Item("F")
		assert.Equal(t, 0, item.StockAvailable)
	})
}

func TestRecordJobCard_PendingClosurePolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.CloseAllPendingWorkOnAnyService = false
	s := newTestStore(t, WithPolicy(policy))

	res, err := s.RecordJobCard(context.Background(), RecordJobCardRequest{
		VehicleID:    "V",
		TotalKM:      45500,
		ServicesDone: []string{"oil change"},
	})
	require.NoError(t, err)

	require.Len(t, res.ClosedPendingWork, 1)
	assert.Equal(t, "p2", res.ClosedPendingWork[0].ID)
	brakes, _ := s.Snapshot().PendingItem("p1")
	assert.Equal(t, models.PendingOpen, brakes.Status)
}

func TestRecordJobCard_PublishesAfterCommit(t *testing.T) {
	var s *Store
	var seen []string
	var versions []uint64
	s = newTestStore(t, WithPublisher(events.PublisherFunc(func(_ context.Context, e events.Event) error {
		seen = append(seen, e.Type)
		versions = append(versions, s.Version())
		return errors.New("broker down")
	})))

	ctx := WithActor(context.Background(), "alice")
	_, err := s.RecordJobCard(ctx, RecordJobCardRequest{
		VehicleID:    "V",
		TotalKM:      45500,
		PartsUsed:    []PartRequest{{ItemID: "I", Quantity: 2}},
		ServicesDone: []string{"Oil Change"},
	})
	require.NoError(t, err, "publish failures never fail a committed command")

	assert.Equal(t, []string{
		events.StockAdjusted,
		events.ScheduleProjected,
		events.PendingWorkClosed,
		events.PendingWorkClosed,
		events.JobCardRecorded,
	}, seen)
	for _, v := range versions {
		assert.Equal(t, uint64(1), v)
	}
}

func TestRecordJobCard_SlowSinkDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	var delivered []string
	slow := events.PublisherFunc(func(_ context.Context, e events.Event) error {
		<-release
		delivered = append(delivered, e.Type)
		return nil
	})
	d := events.NewDispatcher(slow, 16, nil)
	d.Start(context.Background(), 1)
	s := newTestStore(t, WithPublisher(d))

	start := time.Now()
	_, err := s.RecordJobCard(context.Background(), RecordJobCardRequest{
		VehicleID:    "V",
		TotalKM:      45500,
		ServicesDone: []string{"Oil Change"},
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, uint64(1), s.Version())

	close(release)
	d.Close()
	require.NotEmpty(t, delivered)
	assert.Equal(t, events.JobCardRecorded, delivered[len(delivered)-1])
}

func TestUpdateJobCardStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.RecordJobCard(ctx, RecordJobCardRequest{VehicleID: "V", Status: models.JobCardOpen})
	require.NoError(t, err)
	id := res.JobCard.ID

	card, err := s.UpdateJobCardStatus(ctx, id, models.JobCardInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.JobCardInProgress, card.Status)

	_, err = s.UpdateJobCardStatus(ctx, id, models.JobCardOpen)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = s.UpdateJobCardStatus(ctx, id, models.JobCardCompleted)
	require.NoError(t, err)

	_, err = s.UpdateJobCardStatus(ctx, "missing", models.JobCardCompleted)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExecute_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.AdjustStock(ctx, AdjustStockRequest{ItemID: "I", Delta: -1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), s.Version())
}

func TestExecute_ConcurrentWriters(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AdjustStock(context.Background(), AdjustStockRequest{ItemID: "I", Delta: 75})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecordJobCard(context.Background(), RecordJobCardRequest{
				VehicleID:    "V",
				TotalKM:      45000,
				PartsUsed:    []PartRequest{{ItemID: "I", Quantity: 1}},
				ServicesDone: []string{"Top-up"},
			})
			assert.NoError(t, err)
		}()
	}

	// Readers never see parts consumed without the matching history.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			snap := s.Snapshot()
			item, _ := snap.Item("I")
			assert.Equal(t, 100-len(snap.JobCards), item.StockAvailable)
			assert.Equal(t, len(snap.JobCards), len(snap.ServiceHistory))
		}
	}()

	wg.Wait()
	<-done
	snap := s.Snapshot()
	item, _ := snap.Item("I")
	assert.Equal(t, 50, item.StockAvailable)
	assert.Equal(t, uint64(51), snap.Version)
}

func TestReassignDriver_IntervalInvariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	choices := []string{"d1", "d2", ""}

	for i := 0; i < 100; i++ {
		_, err := s.ReassignDriver(ctx, ReassignDriverRequest{VehicleID: "V", DriverID: choices[rng.Intn(len(choices))]})
		require.NoError(t, err)

		open := 0
		for _, a := range s.Snapshot().Assignments {
			if a.VehicleID == "V" && a.Open() {
				open++
			}
		}
		assert.LessOrEqual(t, open, 1)
	}
}

func TestReassignDriver(t *testing.T) {
	var clock = testNow
	s := newTestStore(t, WithClock(func() time.Time { return clock }))
	ctx := WithActor(context.Background(), "dispatcher")

	res, err := s.ReassignDriver(ctx, ReassignDriverRequest{VehicleID: "V", DriverID: "d1", Reason: "new shift"})
	require.NoError(t, err)
	require.NotNil(t, res.Opened)
	assert.Empty(t, res.Closed)
	assert.Equal(t, "dispatcher", res.Opened.Actor)
	assert.Equal(t, "d1", res.Vehicle.DriverID)

	res, err = s.ReassignDriver(ctx, ReassignDriverRequest{VehicleID: "V", DriverID: "d1"})
	require.NoError(t, err)
	assert.Nil(t, res.Opened, "same driver is a no-op")
	assert.Len(t, s.Snapshot().Assignments, 1)

	clock = testNow.Add(48 * time.Hour)
	res, err = s.ReassignDriver(ctx, ReassignDriverRequest{VehicleID: "V", DriverID: "d2", Actor: "ops"})
	require.NoError(t, err)
	require.Len(t, res.Closed, 1)
	assert.Equal(t, "d1", res.Closed[0].DriverID)
	assert.Equal(t, clock, *res.Closed[0].UnassignedAt)
	assert.Equal(t, "ops", res.Opened.Actor)

	a, err := s.DriverAt("V", testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "d1", a.DriverID)
	a, err = s.DriverAt("V", clock.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "d2", a.DriverID)
	_, err = s.DriverAt("V", testNow.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ReassignDriver(ctx, ReassignDriverRequest{VehicleID: "V", DriverID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ReassignDriver(ctx, ReassignDriverRequest{VehicleID: "ghost", DriverID: "d1"})
	assert.ErrorIs(t, err, ErrNotFound)

	res, err = s.ReassignDriver(ctx, ReassignDriverRequest{VehicleID: "V"})
	require.NoError(t, err)
	assert.Nil(t, res.Opened)
	assert.False(t, res.Vehicle.HasDriver())
}
