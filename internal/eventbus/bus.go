// Package eventbus fans portfolio events (snapshot uploads and scheduled
// digests) out to the service's listeners: the request log, the activity
// history, live dashboard feeds and rent alerts. An event is only published
// once the snapshot it describes is stored.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/matthewbaird/rentmetrics/internal/event"
)

// Handler processes a domain event.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.DomainEvent) error
}

// HandlerFunc lets a function subscribe to the bus.
type HandlerFunc func(ctx context.Context, evt event.DomainEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	return f(ctx, evt)
}

// Bus queues portfolio events and hands each one to every subscriber in
// subscription order. One goroutine does all dispatching, so subscribers
// never see two events at once.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	events      chan event.DomainEvent
	done        chan struct{}
	closed      bool
	logger      *slog.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// New returns a Bus that queues up to bufSize undelivered events.
func New(bufSize int, logger *slog.Logger) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		events: make(chan event.DomainEvent, bufSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Subscribe adds h under name, which labels its errors in the log. Call it
// before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish queues evt without blocking the request that produced it. A full
// queue or a stopped bus drops the event with a warning.
func (b *Bus) Publish(_ context.Context, evt event.DomainEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.logger.Warn("eventbus: stopped, dropping event",
			slog.String("event_type", evt.EventType), slog.String("event_id", evt.ID))
		return
	}
	select {
	case b.events <- evt:
	default:
		b.logger.Warn("eventbus: buffer full, dropping event",
			slog.String("event_type", evt.EventType), slog.String("event_id", evt.ID))
	}
}

// Start launches the dispatch goroutine. When ctx ends, events already
// queued are still delivered before it exits.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt, ok := <-b.events:
				if !ok {
					return
				}
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				for {
					select {
					case evt, ok := <-b.events:
						if !ok {
							return
						}
						b.dispatch(context.WithoutCancel(ctx), evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop refuses further events and blocks until the queue is delivered.
// Only valid after Start.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.events)
	}
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, evt event.DomainEvent) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.logger.Error("eventbus: handler error",
				slog.String("handler", s.name),
				slog.String("event_type", evt.EventType),
				slog.Any("error", err))
		}
	}
}
