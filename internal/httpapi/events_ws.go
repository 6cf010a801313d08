package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"modelrepo/internal/manager"
	"modelrepo/pkg/types"
)

var eventsUpgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// EventFeed serves the /v2/events websocket: each connection drains the
// shared in-memory event buffer on a short interval rather than receiving a
// synchronous fan-out, so a slow client never blocks a poll or load/unload
// call. Draining empties the buffer, so a connection also receives events
// buffered before it opened, and with several connections each event goes
// to whichever one drains first.
type EventFeed struct {
	pub        *manager.MemoryPublisher
	drainEvery time.Duration
	log        zerolog.Logger
}

// NewEventFeed wraps pub, the same MemoryPublisher passed to manager.New as
// its EventPublisher.
func NewEventFeed(pub *manager.MemoryPublisher, log zerolog.Logger) *EventFeed {
	return &EventFeed{pub: pub, drainEvery: 250 * time.Millisecond, log: log}
}

func (f *EventFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := eventsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Warn().Err(err).Msg("events: upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	ticker := time.NewTicker(f.drainEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-serverBaseCtx.Done():
			return
		case <-ticker.C:
			for _, e := range f.pub.Drain() {
				dto := types.EventDTO{Name: e.Name, ModelID: e.ModelID, OpID: e.OpID, Fields: e.Fields}
				if err := conn.WriteJSON(dto); err != nil {
					return
				}
			}
		}
	}
}
