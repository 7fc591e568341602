// Package notification broadcasts split session changes to room subscribers.
// Delivery is best effort: the reconciliation store stays the source of truth.
package notification

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/metrics"
)

var ErrHubClosed = errors.New("notification hub is closed")

// Config tunes the hub
type Config struct {
	DispatchPoolSize int
	SubscriberBuffer int
}

// Subscription is a live feed of one room. Cancel is safe to call more than
// once and closes the channel returned by Events.
type Subscription struct {
	room   string
	events chan Event
	hub    *Hub
	once   sync.Once
}

// Room returns the subscribed room
func (s *Subscription) Room() string {
	return s.room
}

// Events returns the event stream; it is closed on Cancel or hub shutdown
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Cancel unsubscribes and closes the stream
func (s *Subscription) Cancel() {
	s.hub.remove(s)
}

// Hub fans out events to room subscribers. Publishing never blocks: dispatch
// runs on a non-blocking pool and events are dropped when the pool or a
// subscriber buffer is full.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Subscription]struct{}
	closed  bool
	buffer  int
	pool    *ants.Pool
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHub(cfg Config, m *metrics.Metrics, logger *slog.Logger) (*Hub, error) {
	pool, err := ants.NewPool(cfg.DispatchPoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	buffer := cfg.SubscriberBuffer
	if buffer <= 0 {
		buffer = 1
	}

	return &Hub{
		rooms:   make(map[string]map[*Subscription]struct{}),
		buffer:  buffer,
		pool:    pool,
		metrics: m,
		logger:  logger,
	}, nil
}

// Subscribe opens a feed on room
func (h *Hub) Subscribe(room string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	sub := &Subscription{room: room, events: make(chan Event, h.buffer), hub: h}
	subs, ok := h.rooms[room]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.rooms[room] = subs
	}
	subs[sub] = struct{}{}
	h.metrics.FanoutSubscribers.Inc()

	return sub, nil
}

func (h *Hub) remove(sub *Subscription) {
	sub.once.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if subs, ok := h.rooms[sub.room]; ok {
			if _, found := subs[sub]; found {
				delete(subs, sub)
				h.metrics.FanoutSubscribers.Dec()
			}
			if len(subs) == 0 {
				delete(h.rooms, sub.room)
			}
		}
		close(sub.events)
	})
}

// Publish sends ev to every subscriber of room
func (h *Hub) Publish(room string, ev Event) {
	ev.Room = room
	h.dispatch([]Event{ev})
}

// Notify publishes change to every room of the state. It is called by the
// reconciliation store after a commit, outside the bill lock.
func (h *Hub) Notify(state *reconciliation.BillSplitState, change *reconciliation.Change) {
	base := NewEvent(state, change)
	rooms := RoomsFor(state)

	events := make([]Event, len(rooms))
	for i, room := range rooms {
		events[i] = base
		events[i].Room = room
	}
	h.dispatch(events)
}

func (h *Hub) dispatch(events []Event) {
	h.metrics.FanoutPublished.Add(float64(len(events)))

	err := h.pool.Submit(func() {
		for _, ev := range events {
			h.deliver(ev)
		}
	})
	if err != nil {
		h.metrics.FanoutDropped.WithLabelValues("overload").Add(float64(len(events)))
		h.logger.Warn("Dropping notification, dispatch pool unavailable",
			"bill_id", events[0].BillID,
			"version", events[0].Version,
			"error", err,
		)
	}
}

func (h *Hub) deliver(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.rooms[ev.Room] {
		select {
		case sub.events <- ev:
		default:
			h.metrics.FanoutDropped.WithLabelValues("slow_subscriber").Inc()
		}
	}
}

// Subscribers returns the number of open subscriptions on room
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close releases the dispatch pool and closes every open subscription
func (h *Hub) Close() {
	h.pool.Release()

	h.mu.Lock()
	h.closed = true
	var subs []*Subscription
	for _, room := range h.rooms {
		for sub := range room {
			subs = append(subs, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	h.logger.Info("Notification hub closed", "subscriptions_closed", len(subs))
}
