package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 2 * time.Second

// DefaultFetchTimeout bounds a fetch when no timeout is configured. It is
// independent of the interval: a fetch may outlast its interval, and the
// ticks it overruns are coalesced.
const DefaultFetchTimeout = 5 * time.Second

// AppendFunc is called after each successful append, while the source's
// stop gate is held. It must not block.
type AppendFunc func(src Source, s Sample)

// ErrorFunc is called after each failed fetch.
type ErrorFunc func(src Source, err error)

// SourceStatus describes the health of one poller.
type SourceStatus struct {
	Source              Source
	Interval            time.Duration
	Running             bool
	Ticks               uint64
	Successes           uint64
	LastSuccess         time.Time
	LastError           error
	LastErrorAt         time.Time
	ConsecutiveFailures int
}

// Stale reports whether the source has gone two intervals without a success.
func (s SourceStatus) Stale(now time.Time) bool {
	if s.LastSuccess.IsZero() {
		return s.Ticks > 0
	}
	return now.Sub(s.LastSuccess) > 2*s.Interval
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithFetchTimeout bounds every fetch. Zero means DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// OnAppend registers a hook run after every successful append.
func OnAppend(fn AppendFunc) SchedulerOption {
	return func(s *Scheduler) {
		s.onAppend = fn
	}
}

// OnError registers a hook run after every failed fetch.
func OnError(fn ErrorFunc) SchedulerOption {
	return func(s *Scheduler) {
		s.onError = fn
	}
}

// WithSchedulerLogger sets the logger used for fetch failures.
func WithSchedulerLogger(l logger.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.log = l
	}
}

// WithClock overrides the time source used to stamp samples.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// Scheduler drives one periodic poller per source.
//
// Each poller runs on its own goroutine, fetches immediately on start and then
// once per interval. Fetches for a source never overlap: ticks that arrive
// while a fetch is in flight are coalesced by the ticker. After Stop returns
// no further Append reaches that source's Buffer.
type Scheduler struct {
	fetcher  SnapshotFetcher
	timeout  time.Duration
	onAppend AppendFunc
	onError  ErrorFunc
	log      logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	pollers map[Source]*poller
	// last keeps the final status of stopped pollers.
	last map[Source]SourceStatus
}

// NewScheduler creates a scheduler that fetches through f.
func NewScheduler(f SnapshotFetcher, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		fetcher: f,
		log:     logger.Noop(),
		now:     time.Now,
		pollers: make(map[Source]*poller),
		last:    make(map[Source]SourceStatus),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// poller is the per-source state owned by one goroutine.
type poller struct {
	src      Source
	interval time.Duration
	timeout  time.Duration
	buf      *Buffer

	cancel context.CancelFunc
	done   chan struct{}

	// gate serializes the stopped check with the append so Stop cannot
	// interleave between them.
	gate    sync.Mutex
	stopped bool
	status  SourceStatus
}

// Start begins polling src every interval, appending successes to buf.
// The first fetch is issued immediately.
func (s *Scheduler) Start(src Source, interval time.Duration, buf *Buffer) error {
	if buf == nil {
		return errors.New(errors.ErrConfig, fmt.Sprintf("No buffer for source '%s'", src), "")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := s.timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pollers[src]; exists {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Source '%s' is already being polled", src),
			"Stop the running poller before starting another")
	}

	delete(s.last, src)

	ctx, cancel := context.WithCancel(context.Background())
	p := &poller{
		src:      src,
		interval: interval,
		timeout:  timeout,
		buf:      buf,
		cancel:   cancel,
		done:     make(chan struct{}),
		status:   SourceStatus{Source: src, Interval: interval, Running: true},
	}
	s.pollers[src] = p

	go s.run(ctx, p)
	return nil
}

func (s *Scheduler) run(ctx context.Context, p *poller) {
	defer close(p.done)

	s.tick(ctx, p)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, p)
		}
	}
}

// tick performs one fetch and, unless the poller was stopped meanwhile,
// records the outcome.
func (s *Scheduler) tick(ctx context.Context, p *poller) {
	fctx, cancel := context.WithTimeout(ctx, p.timeout)
	snap, err := s.fetcher.Fetch(fctx, p.src)
	cancel()

	p.gate.Lock()
	defer p.gate.Unlock()

	if p.stopped {
		s.log.Debug("discarding late result for %s", p.src)
		return
	}

	p.status.Ticks++
	now := s.now()

	if err != nil {
		p.status.LastError = err
		p.status.LastErrorAt = now
		p.status.ConsecutiveFailures++
		s.log.Warn("fetch %s failed: %s", p.src, errors.ShortMessage(err))
		if s.onError != nil {
			s.onError(p.src, err)
		}
		return
	}

	sample := Sample{Snapshot: snap, At: now, Seq: p.status.Ticks}
	p.buf.Append(sample)

	p.status.Successes++
	p.status.LastSuccess = now
	p.status.ConsecutiveFailures = 0

	if s.onAppend != nil {
		s.onAppend(p.src, sample)
	}
}

// Stop halts polling for src. It cancels any in-flight fetch, waits for the
// poller goroutine to exit, and guarantees no later Append to the buffer.
// Returns false if src was not running.
func (s *Scheduler) Stop(src Source) bool {
	s.mu.Lock()
	p, ok := s.pollers[src]
	s.mu.Unlock()

	if !ok {
		return false
	}

	p.gate.Lock()
	already := p.stopped
	p.stopped = true
	p.status.Running = false
	final := p.status
	p.gate.Unlock()

	if !already {
		s.mu.Lock()
		delete(s.pollers, src)
		s.last[src] = final
		s.mu.Unlock()
	}

	p.cancel()
	<-p.done
	return !already
}

// StopAll stops every running poller.
func (s *Scheduler) StopAll() {
	for _, src := range s.Running() {
		s.Stop(src)
	}
}

// Running lists sources with an active poller.
func (s *Scheduler) Running() []Source {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Source, 0, len(s.pollers))
	for src := range s.pollers {
		out = append(out, src)
	}
	return out
}

// Status returns the health of src's poller. A stopped source keeps the
// counters and errors it had when it stopped, with Running false. The bool
// is false only for a source that was never started.
func (s *Scheduler) Status(src Source) (SourceStatus, bool) {
	s.mu.Lock()
	p, ok := s.pollers[src]
	last, stopped := s.last[src]
	s.mu.Unlock()

	if !ok {
		if stopped {
			return last, true
		}
		return SourceStatus{Source: src}, false
	}

	p.gate.Lock()
	defer p.gate.Unlock()
	return p.status, true
}
