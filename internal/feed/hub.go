// Package feed pushes live dashboards to WebSocket clients. A client connects
// to one portfolio, receives its current dashboard, and then a fresh one every
// time a snapshot for that portfolio is recorded.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/rentmetrics/internal/dashboard"
	"github.com/matthewbaird/rentmetrics/internal/event"
	"github.com/matthewbaird/rentmetrics/internal/records"
)

const (
	// subscriberBuffer is how many dashboards may queue for one connection
	// before it is considered too slow and dropped.
	subscriberBuffer = 4
	writeTimeout     = 10 * time.Second
)

// ServerMessage is the envelope for everything the feed sends.
type ServerMessage struct {
	Type        string `json:"type"` // "dashboard"
	PortfolioID string `json:"portfolio_id"`
	Data        any    `json:"data,omitempty"`
}

type subscriber struct {
	portfolioID string
	ch          chan ServerMessage
}

// Hub tracks feed connections per portfolio.
type Hub struct {
	store   records.Store
	builder *dashboard.Builder
	logger  *slog.Logger
	now     func() time.Time

	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func NewHub(store records.Store, builder *dashboard.Builder, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		store:   store,
		builder: builder,
		logger:  logger.With(slog.String("component", "feed")),
		now:     time.Now,
		subs:    make(map[string]map[*subscriber]struct{}),
	}
}

// Subscribers reports how many connections are watching a portfolio.
func (h *Hub) Subscribers(portfolioID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[portfolioID])
}

func (h *Hub) subscribe(portfolioID string) *subscriber {
	s := &subscriber{portfolioID: portfolioID, ch: make(chan ServerMessage, subscriberBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[portfolioID] == nil {
		h.subs[portfolioID] = make(map[*subscriber]struct{})
	}
	h.subs[portfolioID][s] = struct{}{}
	return s
}

// unsubscribe removes s and closes its channel. Safe to call more than once.
func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

func (h *Hub) removeLocked(s *subscriber) {
	set := h.subs[s.portfolioID]
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	close(s.ch)
	if len(set) == 0 {
		delete(h.subs, s.portfolioID)
	}
}

// broadcast queues msg for every subscriber of the portfolio. Subscribers
// whose buffer is full are dropped.
func (h *Hub) broadcast(msg ServerMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[msg.PortfolioID] {
		select {
		case s.ch <- msg:
		default:
			h.logger.Warn("feed: dropping slow subscriber", slog.String("portfolio_id", msg.PortfolioID))
			h.removeLocked(s)
		}
	}
}

// HandleEvent rebuilds the dashboard once per SnapshotUpdated and fans it
// out to the portfolio's subscribers.
func (h *Hub) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	if evt.EventType != event.SnapshotUpdated || h.Subscribers(evt.PortfolioID) == 0 {
		return nil
	}
	msg, err := h.current(ctx, evt.PortfolioID)
	if err != nil {
		return err
	}
	h.broadcast(msg)
	return nil
}

func (h *Hub) current(ctx context.Context, portfolioID string) (ServerMessage, error) {
	p, err := h.store.Get(ctx, portfolioID)
	if err != nil {
		return ServerMessage{}, err
	}
	return ServerMessage{
		Type:        "dashboard",
		PortfolioID: portfolioID,
		Data:        h.builder.Build(p.Snapshot, h.now()),
	}, nil
}

// ServeHTTP upgrades GET /v1/portfolios/{id}/feed to a WebSocket.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, err := h.store.Get(r.Context(), id)
	if errors.Is(err, records.ErrNotFound) {
		http.Error(w, `{"error":"portfolio not found","code":"NOT_FOUND"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("feed: loading portfolio", slog.String("portfolio_id", id), slog.Any("error", err))
		http.Error(w, `{"error":"internal server error","code":"INTERNAL_ERROR"}`, http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("feed: websocket accept", slog.Any("error", err))
		return
	}
	defer conn.CloseNow()

	sub := h.subscribe(id)
	defer h.unsubscribe(sub)

	// The feed is one-way; CloseRead handles control frames and cancels ctx
	// when the client goes away.
	ctx := conn.CloseRead(r.Context())

	// Subscribed before the first build so no update can fall in between.
	first, err := h.current(ctx, id)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "loading dashboard")
		return
	}
	if err := h.write(ctx, conn, first); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.ch:
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "subscriber too slow")
				return
			}
			if err := h.write(ctx, conn, msg); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	err := wsjson.Write(ctx, conn, msg)
	if err != nil && websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
		h.logger.Warn("feed: write failed", slog.String("portfolio_id", msg.PortfolioID), slog.Any("error", err))
	}
	return err
}
