package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukydev/fleet-maintenance/internal/db"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error, completed bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if completed {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                       { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}            { return t.done }
func (t *fakeToken) Error() error                     { return t.err }

// fakeClient overrides Publish; every other mqtt.Client method panics if called.
type fakeClient struct {
	mqtt.Client
	token        *fakeToken
	topics       []string
	payloads     [][]byte
	qos          []byte
	retained     []bool
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	c.qos = append(c.qos, qos)
	c.retained = append(c.retained, retained)
	return c.token
}

func (c *fakeClient) Disconnect(quiesce uint) { c.disconnected = true }

type MockJournalCollection struct {
	mock.Mock
}

func (m *MockJournalCollection) InsertEvent(ctx context.Context, entry db.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalCollection) FindEvents(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (db.JournalCursor, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(db.JournalCursor), args.Error(1)
}

type stockPayload struct {
	ItemID string `bson:"item_id" json:"item_id"`
	After  int    `bson:"after" json:"after"`
}

func TestNew(t *testing.T) {
	at := time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)
	a := New(StockAdjusted, "i-1", stockPayload{ItemID: "i-1", After: 23}, at)
	b := New(StockAdjusted, "i-1", nil, at)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, StockAdjusted, a.Type)
	assert.Equal(t, "i-1", a.AggregateID)
	assert.Equal(t, at, a.OccurredAt)
}

func TestMulti_Publish(t *testing.T) {
	var got []string
	ok := PublisherFunc(func(ctx context.Context, e Event) error {
		got = append(got, e.ID)
		return nil
	})
	boom := PublisherFunc(func(ctx context.Context, e Event) error {
		return errors.New("boom")
	})

	m := Multi{ok, boom, ok, Nop{}}
	err := m.Publish(context.Background(), Event{ID: "e-1"})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"e-1", "e-1"}, got, "later publishers still run after a failure")

	assert.NoError(t, Multi{}.Publish(context.Background(), Event{}))
}

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeClient{token: newFakeToken(nil, true)}
	p := NewMQTTPublisherWithClient(client, "fleet/", 1)

	e := New(JobCardRecorded, "v-1", map[string]any{"total_cost": 1640}, time.Now())
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, client.topics, 1)
	assert.Equal(t, "fleet/jobcard/recorded", client.topics[0])
	assert.Equal(t, byte(1), client.qos[0])
	assert.False(t, client.retained[0])

	var decoded Event
	require.NoError(t, json.Unmarshal(client.payloads[0], &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, JobCardRecorded, decoded.Type)

	p.Close()
	assert.True(t, client.disconnected)
}

func TestMQTTPublisher_Errors(t *testing.T) {
	t.Run("broker error", func(t *testing.T) {
		client := &fakeClient{token: newFakeToken(errors.New("not connected"), true)}
		p := NewMQTTPublisherWithClient(client, "", 0)
		err := p.Publish(context.Background(), Event{ID: "e-1", Type: StockAdjusted})
		assert.ErrorContains(t, err, "not connected")
		assert.Equal(t, "fleet/stock/adjusted", client.topics[0])
	})

	t.Run("context cancelled", func(t *testing.T) {
		client := &fakeClient{token: newFakeToken(nil, false)}
		p := NewMQTTPublisherWithClient(client, "fleet", 0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := p.Publish(ctx, Event{ID: "e-1", Type: StockAdjusted})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("timeout", func(t *testing.T) {
		client := &fakeClient{token: newFakeToken(nil, false)}
		p := NewMQTTPublisherWithClient(client, "fleet", 0)
		p.timeout = 10 * time.Millisecond
		err := p.Publish(context.Background(), Event{ID: "e-1", Type: StockAdjusted})
		assert.ErrorContains(t, err, "timed out")
	})
}

func TestJournalSink_Publish(t *testing.T) {
	journal := new(MockJournalCollection)
	sink := &JournalSink{Journal: journal}
	e := New(StockAdjusted, "i-1", stockPayload{ItemID: "i-1", After: 23}, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC))
	e.Version = 7

	journal.On("InsertEvent", mock.Anything, mock.MatchedBy(func(entry db.JournalEntry) bool {
		return entry.ID == e.ID &&
			entry.Version == 7 &&
			entry.Payload["item_id"] == "i-1" &&
			fmt.Sprint(entry.Payload["after"]) == "23"
	})).Return(nil).Once()

	require.NoError(t, sink.Publish(context.Background(), e))
	journal.AssertExpectations(t)
}

func TestJournalSink_InsertError(t *testing.T) {
	journal := new(MockJournalCollection)
	journal.On("InsertEvent", mock.Anything, mock.Anything).Return(errors.New("db error"))

	sink := &JournalSink{Journal: journal}
	err := sink.Publish(context.Background(), Event{ID: "e-1"})
	assert.ErrorContains(t, err, "db error")
}

func TestToJournalEntry_NonDocumentPayload(t *testing.T) {
	_, err := ToJournalEntry(Event{ID: "e-1", Payload: []int{1, 2, 3}})
	assert.Error(t, err)

	entry, err := ToJournalEntry(Event{ID: "e-2"})
	require.NoError(t, err)
	assert.Empty(t, entry.Payload)
}
