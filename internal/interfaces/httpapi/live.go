package httpapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/riskibarqy/vocalia/internal/platform/logging"
	"github.com/riskibarqy/vocalia/internal/usecase"
)

const (
	liveWriteWait      = 10 * time.Second
	livePongWait       = 60 * time.Second
	livePingPeriod     = (livePongWait * 9) / 10
	liveMaxMessageSize = 512
	liveSendBuffer     = 64
)

// LiveHub fans committed match changes out to websocket watchers. Publish never
// blocks: a watcher whose buffer is full is disconnected and must reload the snapshot.
type LiveHub struct {
	upgrader websocket.Upgrader
	logger   *logging.Logger

	mu       sync.RWMutex
	watchers map[string]map[*liveWatcher]struct{}
	closed   bool
}

type liveWatcher struct {
	matchID string
	conn    *websocket.Conn
	send    chan []byte
}

var _ usecase.LivePublisher = (*LiveHub)(nil)

func NewLiveHub(allowedOrigins []string, logger *logging.Logger) *LiveHub {
	if logger == nil {
		logger = logging.Default()
	}
	origins := newOriginSet(allowedOrigins)

	return &LiveHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				return origin == "" || origins.allows(origin)
			},
		},
		logger:   logger.Named("live"),
		watchers: make(map[string]map[*liveWatcher]struct{}),
	}
}

func (h *LiveHub) Publish(ctx context.Context, update usecase.LiveUpdate) {
	if h == nil {
		return
	}

	payload, err := sonic.Marshal(liveUpdateToDTO(update))
	if err != nil {
		h.logger.ErrorContext(ctx, "encode live update failed", "match_id", update.MatchID, "type", update.Type, "error", err)
		return
	}

	var slow []*liveWatcher
	h.mu.RLock()
	for w := range h.watchers[update.MatchID] {
		select {
		case w.send <- payload:
		default:
			slow = append(slow, w)
		}
	}
	h.mu.RUnlock()

	for _, w := range slow {
		h.logger.WarnContext(ctx, "dropping slow live watcher", "match_id", w.matchID)
		h.unregister(w)
	}
}

// Watchers returns the number of open connections for one match.
func (h *LiveHub) Watchers(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[matchID])
}

// Serve upgrades the request and streams updates for matchID until either side closes.
func (h *LiveHub) Serve(w http.ResponseWriter, r *http.Request, matchID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return err
	}

	watcher := &liveWatcher{
		matchID: matchID,
		conn:    conn,
		send:    make(chan []byte, liveSendBuffer),
	}
	if !h.register(watcher) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(liveWriteWait))
		return conn.Close()
	}

	go h.writePump(watcher)
	go h.readPump(watcher)
	return nil
}

// Close disconnects every watcher; later Serve calls are refused.
func (h *LiveHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for matchID, set := range h.watchers {
		for w := range set {
			close(w.send)
		}
		delete(h.watchers, matchID)
	}
}

func (h *LiveHub) register(w *liveWatcher) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	set, ok := h.watchers[w.matchID]
	if !ok {
		set = make(map[*liveWatcher]struct{})
		h.watchers[w.matchID] = set
	}
	set[w] = struct{}{}
	return true
}

// unregister closes the send channel exactly once, under the write lock, so
// Publish never sends on a closed channel.
func (h *LiveHub) unregister(w *liveWatcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.watchers[w.matchID]
	if !ok {
		return
	}
	if _, ok := set[w]; !ok {
		return
	}
	delete(set, w)
	if len(set) == 0 {
		delete(h.watchers, w.matchID)
	}
	close(w.send)
}

func (h *LiveHub) readPump(w *liveWatcher) {
	defer func() {
		h.unregister(w)
		_ = w.conn.Close()
	}()

	w.conn.SetReadLimit(liveMaxMessageSize)
	_ = w.conn.SetReadDeadline(time.Now().Add(livePongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	// The feed is one-way; reads only service control frames and detect close.
	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("live watcher closed unexpectedly", "match_id", w.matchID, "error", err)
			}
			return
		}
	}
}

func (h *LiveHub) writePump(w *liveWatcher) {
	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		_ = w.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-w.send:
			_ = w.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if !ok {
				_ = w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.unregister(w)
				return
			}
		case <-ticker.C:
			_ = w.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(w)
				return
			}
		}
	}
}

func (h *Handler) StreamLive(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StreamLive", routeAttrs(r)...)
	defer span.End()

	matchID := matchIDFromPath(r)
	if _, err := h.sessions.Get(ctx, matchID); err != nil {
		h.logger.WarnContext(ctx, "open live feed failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	if err := h.live.Serve(w, r, matchID); err != nil {
		h.logger.WarnContext(ctx, "live feed upgrade failed", "match_id", matchID, "error", err)
	}
}
