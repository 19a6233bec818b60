package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_JSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data EventData
	}{
		{name: "draws imported", data: &DrawsImportedData{Lottery: "hk", Records: 120, Latest: 2025123}},
		{name: "optimizer progress", data: &OptimizerProgressData{RunID: "r", Lottery: "hk", Variant: "special_v7", Generation: 3, Generations: 60, BestFitness: 400, AverageFitness: 100, GlobalBest: 450}},
		{name: "optimizer finished", data: &OptimizerFinishedData{RunID: "r", Lottery: "hk", Variant: "general_v6", BestFitness: 9, Completed: true, Persisted: true}},
		{name: "prediction created", data: &PredictionCreatedData{Lottery: "macau", Variant: "general_v5", Period: 2025001, Source: "defaults"}},
		{name: "review created", data: &ReviewCreatedData{Lottery: "macau", Period: 2025001, Variants: 4}},
		{name: "cycle completed", data: &CycleCompletedData{Lotteries: []string{"hk"}, Duration: "1s"}},
		{name: "error", data: &ErrorEventData{Error: "boom", Context: map[string]interface{}{"lottery": "hk"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &Event{
				Type:      tt.data.EventType(),
				Timestamp: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
				Module:    "test",
				Data:      tt.data,
			}
			raw, err := json.Marshal(in)
			require.NoError(t, err)

			var out Event
			require.NoError(t, json.Unmarshal(raw, &out))
			assert.Equal(t, in.Type, out.Type)
			assert.Equal(t, in.Module, out.Module)
			assert.True(t, in.Timestamp.Equal(out.Timestamp))
			assert.Equal(t, tt.data, out.Data)
		})
	}
}

func TestEvent_UnknownTypeFallsBackToGeneric(t *testing.T) {
	var e Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"SOMETHING","module":"x","data":{"a":1}}`), &e))

	generic, ok := e.Data.(*GenericEventData)
	require.True(t, ok)
	assert.Equal(t, EventType("SOMETHING"), generic.EventType())
	assert.Equal(t, 1.0, generic.Data["a"])
}

func TestBus_FanOutAndUnsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	a, unsubA := bus.Subscribe(4)
	b, unsubB := bus.Subscribe(4)
	assert.Equal(t, 2, bus.Subscribers())

	e := &Event{Type: ReviewCreated, Data: &ReviewCreatedData{Lottery: "hk"}}
	require.NoError(t, bus.Publish(context.Background(), e))
	assert.Same(t, e, <-a)
	assert.Same(t, e, <-b)

	unsubA()
	unsubA()
	assert.Equal(t, 1, bus.Subscribers())
	_, open := <-a
	assert.False(t, open)

	unsubB()
	assert.Equal(t, 0, bus.Subscribers())
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	ch, unsub := bus.Subscribe(1)
	defer unsub()

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(context.Background(), &Event{Type: OptimizerProgress}))
	}
	assert.Len(t, ch, 1)
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, *Event) error {
	f.calls++
	return errors.New("unavailable")
}

func TestManager_EmitReachesEveryPublisher(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	ch, unsub := bus.Subscribe(1)
	defer unsub()
	failing := &failingPublisher{}

	m := NewManager(zerolog.Nop(), failing, bus)
	m.Emit(context.Background(), "predictions", &PredictionCreatedData{Lottery: "hk", Period: 7})

	assert.Equal(t, 1, failing.calls)
	e := <-ch
	assert.Equal(t, PredictionCreated, e.Type)
	assert.Equal(t, "predictions", e.Module)
	assert.False(t, e.Timestamp.IsZero())
}

func TestManager_NilIsSafe(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.Emit(context.Background(), "x", &ReviewCreatedData{})
	})
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "drawlab.optimizer_progress", Subject("drawlab", OptimizerProgress))
}
