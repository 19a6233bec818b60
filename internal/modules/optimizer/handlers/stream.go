package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"github.com/aristath/drawlab/internal/events"
)

const streamPingInterval = 30 * time.Second

// optimizerEvents are streamed when the client does not pass ?types=.
var optimizerEvents = map[events.EventType]bool{
	events.OptimizerStarted:  true,
	events.OptimizerProgress: true,
	events.OptimizerFinished: true,
	events.ErrorOccurred:     true,
}

// SetStreamOrigins controls which browser origins may open the stream.
// patterns are host globs such as "app.example.com" or "*.example.com".
// Same-origin requests and clients without an Origin header are always
// accepted. insecure disables the check entirely.
func (h *Handler) SetStreamOrigins(patterns []string, insecure bool) {
	h.accept = websocket.AcceptOptions{
		OriginPatterns:     patterns,
		InsecureSkipVerify: insecure,
	}
}

// HandleStream pushes optimiser events to a WebSocket client as JSON text
// messages.
// GET /api/optimizer/stream?types=OPTIMIZER_PROGRESS,OPTIMIZER_FINISHED
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	allowed := optimizerEvents
	if types := r.URL.Query().Get("types"); types != "" {
		allowed = make(map[events.EventType]bool)
		for _, t := range strings.Split(types, ",") {
			allowed[events.EventType(strings.TrimSpace(t))] = true
		}
	}

	opts := h.accept
	conn, err := websocket.Accept(w, r, &opts)
	if err != nil {
		h.log.Warn().Err(err).Str("origin", r.Header.Get("Origin")).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	sub, unsubscribe := h.bus.Subscribe(256)
	defer unsubscribe()

	// CloseRead discards client messages and cancels ctx once the client goes away.
	ctx := conn.CloseRead(r.Context())
	h.log.Debug().Int("subscribers", h.bus.Subscribers()).Msg("Optimizer stream client connected")

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Msg("Optimizer stream client disconnected")
			return
		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case e, ok := <-sub:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "event bus closed")
				return
			}
			if !allowed[e.Type] {
				continue
			}
			data, err := json.Marshal(e)
			if err != nil {
				h.log.Error().Err(err).Str("event_type", string(e.Type)).Msg("Failed to marshal event")
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Optimizer stream write failed")
				return
			}
		}
	}
}
