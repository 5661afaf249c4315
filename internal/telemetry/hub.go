package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
)

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHistory sets the buffer capacity and whether buffers start pre-filled
// with Absent placeholders.
func WithHistory(size int, prefill bool) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.capacity = size
		}
		h.prefill = prefill
	}
}

// WithSchedulerOptions passes options through to the Hub's Scheduler.
// Any OnAppend hook given here runs before subscribers are notified.
func WithSchedulerOptions(opts ...SchedulerOption) HubOption {
	return func(h *Hub) {
		h.schedOpts = append(h.schedOpts, opts...)
	}
}

// WithHubLogger sets the hub logger. It is also handed to the Scheduler.
func WithHubLogger(l logger.Logger) HubOption {
	return func(h *Hub) {
		h.log = l
	}
}

// Hub owns one Buffer and at most one poller per registered source and lets
// any number of readers observe the buffers. Readers never trigger fetches and
// a slow reader never delays a writer.
//
// Lock order: a poller's gate, then h.mu. notify runs from the scheduler's
// OnAppend hook with the gate held and takes h.mu, so code holding h.mu
// must never call Scheduler.Stop or Status, which take the gate.
type Hub struct {
	capacity  int
	prefill   bool
	log       logger.Logger
	schedOpts []SchedulerOption
	sched     *Scheduler

	mu      sync.RWMutex
	order   []Source
	sources map[Source]*hubSource
	started bool
}

type hubSource struct {
	interval time.Duration
	buf      *Buffer
	subs     map[string]*Subscription
}

// NewHub creates a hub that fetches through f.
func NewHub(f SnapshotFetcher, opts ...HubOption) *Hub {
	h := &Hub{
		capacity: DefaultHistorySize,
		prefill:  true,
		log:      logger.Noop(),
		sources:  make(map[Source]*hubSource),
	}
	for _, opt := range opts {
		opt(h)
	}

	schedOpts := append([]SchedulerOption{WithSchedulerLogger(h.log)}, h.schedOpts...)
	h.sched = NewScheduler(f, schedOpts...)

	userHook := h.sched.onAppend
	h.sched.onAppend = func(src Source, s Sample) {
		if userHook != nil {
			userHook(src, s)
		}
		h.notify(src)
	}
	return h
}

// Register adds src with its polling interval. If the hub is already started
// the new source begins polling immediately.
func (h *Hub) Register(src Source, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.sources[src]; exists {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Source '%s' is already registered", src), "")
	}

	hs := &hubSource{
		interval: interval,
		buf:      NewBuffer(h.capacity, h.prefill),
		subs:     make(map[string]*Subscription),
	}
	h.sources[src] = hs
	h.order = append(h.order, src)

	if h.started {
		return h.sched.Start(src, interval, hs.buf)
	}
	return nil
}

// Start begins polling every registered source.
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return nil
	}
	for _, src := range h.order {
		hs := h.sources[src]
		if err := h.sched.Start(src, hs.interval, hs.buf); err != nil {
			return err
		}
		h.log.Debug("polling %s every %s", src, hs.interval)
	}
	h.started = true
	return nil
}

// Stop halts every poller. Buffers and subscriptions stay readable.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.started = false
	h.mu.Unlock()

	h.sched.StopAll()
}

// Sources lists registered sources in registration order.
func (h *Hub) Sources() []Source {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Source, len(h.order))
	copy(out, h.order)
	return out
}

// View returns the current history for src.
func (h *Hub) View(src Source) ([]Sample, bool) {
	buf, ok := h.buffer(src)
	if !ok {
		return nil, false
	}
	return buf.View(), true
}

// Latest returns the newest reading for src.
func (h *Hub) Latest(src Source) (Sample, bool) {
	buf, ok := h.buffer(src)
	if !ok {
		return Sample{}, false
	}
	return buf.Latest()
}

// Status returns poller health for src.
func (h *Hub) Status(src Source) (SourceStatus, bool) {
	return h.sched.Status(src)
}

// Subscribers returns the number of open subscriptions for src.
func (h *Hub) Subscribers(src Source) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hs, ok := h.sources[src]
	if !ok {
		return 0
	}
	return len(hs.subs)
}

// Subscribe opens a read handle for src.
func (h *Hub) Subscribe(src Source) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	hs, ok := h.sources[src]
	if !ok {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Source '%s' is not registered", src),
			"Register the source before subscribing")
	}

	sub := &Subscription{
		id:      uuid.NewString(),
		src:     src,
		hub:     h,
		buf:     hs.buf,
		updates: make(chan struct{}, 1),
	}
	hs.subs[sub.id] = sub
	return sub, nil
}

func (h *Hub) buffer(src Source) (*Buffer, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hs, ok := h.sources[src]
	if !ok {
		return nil, false
	}
	return hs.buf, true
}

// notify wakes every subscriber of src without blocking.
func (h *Hub) notify(src Source) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hs, ok := h.sources[src]
	if !ok {
		return
	}
	for _, sub := range hs.subs {
		select {
		case sub.updates <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if hs, ok := h.sources[sub.src]; ok {
		delete(hs.subs, sub.id)
	}
}

// Subscription is one reader's handle on a source. Multiple subscriptions to
// the same source observe the same buffer.
type Subscription struct {
	id      string
	src     Source
	hub     *Hub
	buf     *Buffer
	updates chan struct{}
	once    sync.Once
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() string { return s.id }

// Source returns the subscribed source.
func (s *Subscription) Source() Source { return s.src }

// View returns the current history, oldest first.
func (s *Subscription) View() []Sample { return s.buf.View() }

// Latest returns the newest reading.
func (s *Subscription) Latest() (Sample, bool) { return s.buf.Latest() }

// Updates signals after appends. Signals coalesce: a reader that falls behind
// sees one pending signal, not one per append. The channel is closed by Close.
func (s *Subscription) Updates() <-chan struct{} { return s.updates }

// Close detaches the subscription and closes Updates. It is safe to call
// more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		// notify sends under the hub's read lock, so once unsubscribe has
		// taken the write lock no send can race the close.
		s.hub.unsubscribe(s)
		close(s.updates)
	})
}
