package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Manager stamps events and hands them to every publisher. Publish errors
// are logged and never returned; events are best effort.
type Manager struct {
	publishers []Publisher
	log        zerolog.Logger
}

// NewManager creates a manager. With no publishers events are only logged.
func NewManager(log zerolog.Logger, publishers ...Publisher) *Manager {
	return &Manager{
		publishers: publishers,
		log:        log.With().Str("service", "events").Logger(),
	}
}

// Emit publishes data on behalf of module.
func (m *Manager) Emit(ctx context.Context, module string, data EventData) {
	if m == nil || data == nil {
		return
	}
	e := &Event{
		Type:      data.EventType(),
		Timestamp: time.Now(),
		Module:    module,
		Data:      data,
	}

	for _, p := range m.publishers {
		if err := p.Publish(ctx, e); err != nil {
			m.log.Warn().Err(err).Str("event_type", string(e.Type)).Msg("Failed to publish event")
		}
	}
	m.log.Debug().
		Str("event_type", string(e.Type)).
		Str("module", module).
		Msg("Event emitted")
}

// EmitError emits an error event
func (m *Manager) EmitError(ctx context.Context, module string, err error, fields map[string]interface{}) {
	m.Emit(ctx, module, &ErrorEventData{Error: err.Error(), Context: fields})
}
