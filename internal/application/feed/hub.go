package feed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/garyjia/approval-letters/internal/application/dispatcher"
	"github.com/garyjia/approval-letters/internal/application/port"
	"github.com/garyjia/approval-letters/internal/domain/entity"
	"github.com/garyjia/approval-letters/internal/domain/event"
	"github.com/garyjia/approval-letters/internal/domain/view"
)

// ErrClosed is returned by Subscribe once the hub has been closed
var ErrClosed = errors.New("feed hub is closed")

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Filter selects the requests a subscription follows: a single request id,
// or every request on a dashboard tab when RequestID is empty
type Filter struct {
	RequestID string
	Tab       view.Tab
}

// ForRequest follows one request
func ForRequest(id string) Filter {
	return Filter{RequestID: strings.TrimSpace(id)}
}

// ForTab follows a dashboard tab
func ForTab(tab view.Tab) Filter {
	return Filter{Tab: tab}
}

func (f Filter) key() string {
	if f.RequestID != "" {
		return "id:" + f.RequestID
	}
	return "tab:" + string(f.Tab)
}

// affectedBy reports whether evt can change the snapshot. Tab feeds refresh on
// every event because a request may be leaving the tab.
func (f Filter) affectedBy(evt *event.Event) bool {
	if f.RequestID == "" {
		return true
	}
	return evt.RequestID == f.RequestID
}

// Snapshot is the full matching record set at a point in time
type Snapshot struct {
	Requests []*entity.ApprovalRequest `json:"requests"`
	At       time.Time                 `json:"at"`
}

type subscription struct {
	id     uint64
	filter Filter

	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
	// primed is set once any snapshot has been queued
	primed bool
}

// offer delivers snap, replacing undelivered older snapshots when the buffer is full
func (s *subscription) offer(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.primed = true
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// offerInitial queues the subscribe-time snapshot unless an event already
// delivered a fresher one
func (s *subscription) offerInitial(snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if !s.primed {
		s.primed = true
		s.ch <- snap
	}
	return true
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Hub fans committed request changes out to live subscribers
type Hub struct {
	store  port.RequestStore
	logger Logger
	buffer int
	now    func() time.Time

	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool

	// refreshMu serializes reload-and-deliver so a slower, older read can
	// never overwrite a newer snapshot
	refreshMu sync.Mutex
}

// Option configures a Hub
type Option func(*Hub)

// WithBuffer sets how many snapshots a subscriber may lag behind before older ones are dropped
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// NewHub creates a Hub reading snapshots from store
func NewHub(store port.RequestStore, logger Logger, opts ...Option) *Hub {
	h := &Hub{
		store:  store,
		logger: logger,
		buffer: 1,
		now:    time.Now,
		subs:   make(map[uint64]*subscription),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register subscribes the hub to every lifecycle event
func (h *Hub) Register(d dispatcher.Dispatcher) {
	d.Subscribe("feed", h.HandleEvent)
}

// Subscribe starts a feed. The first snapshot is already queued when it returns.
// The channel is closed by cancel, by ctx ending, or by Close.
//
// The subscription is registered before the initial read so a change
// committed during that read still reaches it through HandleEvent.
func (h *Hub) Subscribe(ctx context.Context, filter Filter) (<-chan Snapshot, func(), error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, nil, ErrClosed
	}
	h.nextID++
	sub := &subscription{
		id:     h.nextID,
		filter: filter,
		ch:     make(chan Snapshot, h.buffer),
	}
	h.subs[sub.id] = sub
	total := len(h.subs)
	h.mu.Unlock()

	snap, err := h.load(ctx, filter)
	if err != nil {
		h.mu.Lock()
		delete(h.subs, sub.id)
		h.mu.Unlock()
		sub.close()
		return nil, nil, err
	}
	if !sub.offerInitial(snap) {
		return nil, nil, ErrClosed
	}

	h.logger.Info("Feed subscribed", "subscription", sub.id, "filter", filter.key(), "total", total)

	var once sync.Once
	cancel := func() {
		once.Do(func() { h.remove(sub) })
	}
	stop := context.AfterFunc(ctx, cancel)

	return sub.ch, func() {
		stop()
		cancel()
	}, nil
}

func (h *Hub) remove(sub *subscription) {
	h.mu.Lock()
	delete(h.subs, sub.id)
	total := len(h.subs)
	h.mu.Unlock()

	sub.close()
	h.logger.Info("Feed unsubscribed", "subscription", sub.id, "total", total)
}

// HandleEvent reloads the snapshot of every subscription the event touches
func (h *Hub) HandleEvent(ctx context.Context, evt *event.Event) error {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	h.mu.RLock()
	targets := make([]*subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		if sub.filter.affectedBy(evt) {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()

	loaded := make(map[string]Snapshot)
	var firstErr error
	for _, sub := range targets {
		k := sub.filter.key()
		snap, ok := loaded[k]
		if !ok {
			var err error
			snap, err = h.load(ctx, sub.filter)
			if err != nil {
				h.logger.Error("Failed to refresh feed", "error", err, "filter", k, "event_id", evt.ID)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			loaded[k] = snap
		}
		sub.offer(snap)
	}
	return firstErr
}

// Subscribers returns the number of open subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription and refuses new ones
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[uint64]*subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	return nil
}

func (h *Hub) load(ctx context.Context, filter Filter) (Snapshot, error) {
	snap := Snapshot{Requests: []*entity.ApprovalRequest{}, At: h.now()}

	if filter.RequestID != "" {
		req, err := h.store.GetByID(ctx, filter.RequestID)
		if errors.Is(err, port.ErrNotFound) {
			return snap, nil
		}
		if err != nil {
			return Snapshot{}, err
		}
		snap.Requests = append(snap.Requests, req)
		return snap, nil
	}

	reqs, err := h.store.List(ctx, port.ListFilter{Statuses: filter.Tab.Statuses()})
	if err != nil {
		return Snapshot{}, err
	}
	if reqs != nil {
		snap.Requests = reqs
	}
	return snap, nil
}
