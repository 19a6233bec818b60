package utils

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Slow-operation thresholds.
const (
	SlowInfo = 10 * time.Second
	SlowWarn = 30 * time.Second
)

// Timer measures one operation and logs its duration when stopped.
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
}

// NewTimer starts a timer named name.
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{start: time.Now(), name: name, log: log}
}

// Stop logs the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	return t.StopWith(nil)
}

// StopWith logs the elapsed time with extra fields attached.
func (t *Timer) StopWith(fields map[string]interface{}) time.Duration {
	d := time.Since(t.start)

	event := t.log.Debug().
		Str("operation", t.name).
		Dur("duration_ms", d)
	if len(fields) > 0 {
		event = event.Fields(fields)
	}
	event.Msg("Performance measurement")

	switch {
	case d > SlowWarn:
		t.log.Warn().Str("operation", t.name).Dur("duration", d).Msg("Slow operation detected (>30s)")
	case d > SlowInfo:
		t.log.Info().Str("operation", t.name).Dur("duration", d).Msg("Operation took longer than expected (>10s)")
	}
	return d
}

// Durations aggregates repeated measurements of one operation. It is
// safe for concurrent use.
type Durations struct {
	mu    sync.Mutex
	name  string
	count int64
	total time.Duration
	min   time.Duration
	max   time.Duration
}

// NewDurations creates an empty aggregate.
func NewDurations(name string) *Durations {
	return &Durations{name: name}
}

// Record adds one measurement.
func (d *Durations) Record(v time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.count == 0 || v < d.min {
		d.min = v
	}
	if v > d.max {
		d.max = v
	}
	d.count++
	d.total += v
}

// Count returns the number of measurements.
func (d *Durations) Count() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Average returns the mean measurement, or 0 when empty.
func (d *Durations) Average() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.count == 0 {
		return 0
	}
	return d.total / time.Duration(d.count)
}

// Log writes a summary at info level.
func (d *Durations) Log(log zerolog.Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.count == 0 {
		return
	}
	log.Info().
		Str("operation", d.name).
		Int64("call_count", d.count).
		Dur("total_duration", d.total).
		Dur("avg_duration", d.total/time.Duration(d.count)).
		Dur("min_duration", d.min).
		Dur("max_duration", d.max).
		Msg("Performance metrics summary")
}
