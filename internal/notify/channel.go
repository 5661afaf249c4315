package notify

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
)

// State is the connection state of a Channel.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Backoff is an exponential reconnect policy.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff starts at half a second and caps at thirty.
var DefaultBackoff = Backoff{Initial: 500 * time.Millisecond, Max: 30 * time.Second}

// Next returns the delay before reconnect attempt n (zero-based).
func (b Backoff) Next(n int) time.Duration {
	d := b.Initial
	if d <= 0 {
		d = DefaultBackoff.Initial
	}
	limit := b.Max
	if limit < d {
		limit = d
	}
	for i := 0; i < n && d < limit; i++ {
		d *= 2
	}
	if d > limit {
		d = limit
	}
	return d
}

// DefaultStableAfter is how long a connection must stay up before the
// backoff resets. Connections dropped sooner count as failed attempts.
const DefaultStableAfter = 10 * time.Second

// Option configures a Channel.
type Option func(*Channel)

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Channel) {
		c.dialer = d
	}
}

// WithBackoff sets the reconnect policy.
func WithBackoff(b Backoff) Option {
	return func(c *Channel) {
		c.backoff = b
	}
}

// WithStableAfter sets how long a connection must last to reset the backoff.
func WithStableAfter(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.stableAfter = d
		}
	}
}

// WithLogger sets the logger used for dropped frames and reconnects.
func WithLogger(l logger.Logger) Option {
	return func(c *Channel) {
		c.log = l
	}
}

// WithStateHook registers fn to observe state transitions.
func WithStateHook(fn func(State)) Option {
	return func(c *Channel) {
		c.onState = fn
	}
}

// Channel keeps a long-lived subscription to the agent's alert stream,
// reconnecting with backoff whenever it drops. The backoff keeps growing
// across failed dials and across connections that drop within the stable
// period, and resets once a connection outlives it.
//
// Delivery is at-most-once: alerts pushed while disconnected are lost, and an
// alert is handed to the Sink exactly once per frame received.
type Channel struct {
	url     string
	sink    Sink
	dialer  Dialer
	backoff Backoff
	log     logger.Logger
	onState func(State)

	stableAfter time.Duration

	state atomic.Int32
}

// NewChannel creates a channel that delivers alerts from url to sink.
func NewChannel(url string, sink Sink, opts ...Option) *Channel {
	c := &Channel{
		url:     url,
		sink:    sink,
		dialer:  NewWebSocketDialer(nil),
		backoff: DefaultBackoff,
		log:     logger.Noop(),

		stableAfter: DefaultStableAfter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Channel) State() State {
	return State(c.state.Load())
}

func (c *Channel) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	if c.onState != nil {
		c.onState(s)
	}
}

// Run connects and delivers alerts until ctx is cancelled. Connection
// failures are never fatal; Run always returns nil once ctx is done.
func (c *Channel) Run(ctx context.Context) error {
	defer c.setState(Disconnected)

	attempt := 0
	for ctx.Err() == nil {
		c.setState(Connecting)
		conn, err := c.dialer.Dial(ctx, c.url)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait := c.backoff.Next(attempt)
			attempt++
			c.setState(Disconnected)
			c.log.Debug("notification dial failed (retry in %s): %v", wait, err)
			if !sleep(ctx, wait) {
				return nil
			}
			continue
		}

		c.setState(Connected)
		c.log.Debug("notification channel connected to %s", c.url)
		connectedAt := time.Now()

		err = c.read(ctx, conn)
		c.setState(Disconnected)
		if ctx.Err() != nil {
			return nil
		}

		if time.Since(connectedAt) >= c.stableAfter {
			attempt = 0
		}
		wait := c.backoff.Next(attempt)
		attempt++
		c.log.Warn("notification channel lost (retry in %s): %v", wait, err)

		if !sleep(ctx, wait) {
			return nil
		}
	}
	return nil
}

// read delivers frames from conn until it fails or ctx ends.
func (c *Channel) read(ctx context.Context, conn Conn) error {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrChannel, "Notification stream closed", "")
		}

		alert, err := DecodeAlert(data)
		if err != nil {
			c.log.Warn("dropping notification: %s", errors.ShortMessage(err))
			continue
		}
		alert.Received = time.Now()
		c.sink.Deliver(alert)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
