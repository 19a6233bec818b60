package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/events"
	"github.com/aristath/drawlab/internal/utils"
)

const sseHeartbeat = 30 * time.Second

// EventsStreamHandler relays bus events to browsers as Server-Sent Events.
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// streamFilter narrows a stream to some event types and one lottery.
// Zero fields match everything.
type streamFilter struct {
	types   map[events.EventType]bool
	lottery string
}

func newStreamFilter(r *http.Request) streamFilter {
	f := streamFilter{lottery: r.URL.Query().Get("lottery")}
	if names := utils.ParseCSV(r.URL.Query().Get("types")); len(names) > 0 {
		f.types = make(map[events.EventType]bool, len(names))
		for _, name := range names {
			f.types[events.EventType(name)] = true
		}
	}
	return f
}

func (f streamFilter) match(e *events.Event) bool {
	if f.types != nil && !f.types[e.Type] {
		return false
	}
	if f.lottery == "" {
		return true
	}
	return concerns(e.Data, f.lottery)
}

// concerns reports whether data belongs to lottery. Events without a
// lottery always pass.
func concerns(data events.EventData, lottery string) bool {
	switch d := data.(type) {
	case *events.DrawsImportedData:
		return d.Lottery == lottery
	case *events.OptimizerStartedData:
		return d.Lottery == lottery
	case *events.OptimizerProgressData:
		return d.Lottery == lottery
	case *events.OptimizerFinishedData:
		return d.Lottery == lottery
	case *events.PredictionCreatedData:
		return d.Lottery == lottery
	case *events.ReviewCreatedData:
		return d.Lottery == lottery
	case *events.CycleCompletedData:
		for _, l := range d.Lotteries {
			if l == lottery {
				return true
			}
		}
		return false
	case *events.ErrorEventData:
		if l, ok := d.Context["lottery"].(string); ok {
			return l == lottery
		}
	}
	return true
}

// ServeHTTP handles GET /api/events/stream?types=A,B&lottery=hk.
// Each message carries an incrementing id and the event type as its name.
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	filter := newStreamFilter(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	eventChan, unsubscribe := h.eventBus.Subscribe(100)
	defer unsubscribe()

	log := h.log.With().Str("remote", r.RemoteAddr).Str("lottery", filter.lottery).Logger()
	log.Debug().Int("types", len(filter.types)).Msg("Event stream opened")

	var seq uint64
	send := func(name string, payload interface{}) bool {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("event", name).Msg("Failed to encode event")
			return true
		}
		seq++
		if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", seq, name, data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send("connected", map[string]interface{}{"type": "connected", "subscribers": h.eventBus.Subscribers()}) {
		return
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Uint64("sent", seq).Msg("Event stream closed")
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if !filter.match(event) {
				continue
			}
			if !send(string(event.Type), event) {
				return
			}
		case now := <-heartbeat.C:
			if !send("heartbeat", map[string]interface{}{"type": "heartbeat", "timestamp": now.Format(time.RFC3339)}) {
				return
			}
		}
	}
}
