package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Publisher delivers events to one sink.
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
}

// Bus fans events out to in-process subscribers. Slow subscribers lose
// events instead of blocking publishers.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan *Event
	log    zerolog.Logger
}

// NewBus creates an empty bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[int]chan *Event),
		log:  log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe returns a channel receiving every later event and a function
// that unsubscribes and closes it.
func (b *Bus) Subscribe(buffer int) (<-chan *Event, func()) {
	if buffer <= 0 {
		buffer = 100
	}
	ch := make(chan *Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish implements Publisher.
func (b *Bus) Publish(_ context.Context, e *Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.log.Warn().Str("event_type", string(e.Type)).Msg("Subscriber channel full, dropping event")
		}
	}
	return nil
}
