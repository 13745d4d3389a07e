package matching

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"patternwatch/internal/modules/alerts"
)

const streamWriteWait = 10 * time.Second

// Stream pushes newly created alerts to connected WebSocket clients.
// Delivery is best-effort: a slow client drops frames rather than blocking
// the matching runner.
type Stream struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
	log  zerolog.Logger
}

// NewStream creates a new alert stream hub
func NewStream(log zerolog.Logger) *Stream {
	return &Stream{
		subs: make(map[chan []byte]struct{}),
		log:  log.With().Str("component", "alert_stream").Logger(),
	}
}

// Publish broadcasts an alert to all subscribers without blocking
func (s *Stream) Publish(alert *alerts.Alert) {
	data, err := json.Marshal(alert)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal alert for stream")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- data:
		default:
			// Subscriber buffer full: drop the frame, the alert is still in
			// the store and will show up on the next list call
		}
	}
}

// subscribe registers a new subscriber channel
func (s *Stream) subscribe() chan []byte {
	ch := make(chan []byte, 16)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// unsubscribe removes a subscriber channel
func (s *Stream) unsubscribe(ch chan []byte) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

// HandleWebSocket handles GET /api/alerts/stream, upgrading the connection
// and forwarding alert frames until the client disconnects
func (s *Stream) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is handled by the router middleware
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	s.log.Debug().Msg("Alert stream client connected")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, streamWriteWait)
			err := conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.log.Debug().Err(err).Msg("Alert stream client disconnected")
				return
			}
		}
	}
}
