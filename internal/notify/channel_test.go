package notify

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastBackoff = Backoff{Initial: 10 * time.Millisecond, Max: 40 * time.Millisecond}

// collector is a thread-safe Sink for tests.
type collector struct {
	mu     sync.Mutex
	alerts []Alert
}

func (c *collector) Deliver(a Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, a)
}

func (c *collector) Titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.alerts))
	for _, a := range c.alerts {
		out = append(out, a.Title)
	}
	return out
}

// agentServer runs a websocket endpoint; handle is called once per connection
// with a 1-based connection number.
func agentServer(t *testing.T, handle func(n int, conn *websocket.Conn)) (string, *atomic.Int32) {
	t.Helper()

	var conns atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(int(conns.Add(1)), conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/notification", &conns
}

// holdOpen blocks until the client goes away.
func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func runChannel(t *testing.T, ch *Channel) (cancel func()) {
	t.Helper()

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, ch.Run(ctx))
	}()
	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
	}
}

func TestChannel_DeliversAlerts(t *testing.T) {
	url, _ := agentServer(t, func(_ int, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"title":"CPU Alert","msg":"CPU usage at 95%"}`))
		holdOpen(conn)
	})

	sink := &collector{}
	ch := NewChannel(url, sink, WithBackoff(fastBackoff))
	stop := runChannel(t, ch)

	require.Eventually(t, func() bool { return len(sink.Titles()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, Connected, ch.State())
	stop()

	assert.Equal(t, Disconnected, ch.State())
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, "CPU usage at 95%", sink.alerts[0].Message)
	assert.False(t, sink.alerts[0].Received.IsZero())
}

func TestChannel_DropsMalformedFrames(t *testing.T) {
	url, _ := agentServer(t, func(_ int, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"title":"Disk Alert","msg":"91%"}`))
		holdOpen(conn)
	})

	sink := &collector{}
	log := logger.NewBufferLogger()
	ch := NewChannel(url, sink, WithBackoff(fastBackoff), WithLogger(log))
	stop := runChannel(t, ch)
	defer stop()

	require.Eventually(t, func() bool { return len(sink.Titles()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Disk Alert"}, sink.Titles())
	assert.True(t, log.HasLevel("warn"))
	assert.Equal(t, Connected, ch.State())
}

func TestChannel_ReconnectDeliversEachAlertOnce(t *testing.T) {
	url, conns := agentServer(t, func(n int, conn *websocket.Conn) {
		if n == 1 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"title":"first","msg":"a"}`))
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"title":"second","msg":"b"}`))
		holdOpen(conn)
	})

	var mu sync.Mutex
	var states []State
	sink := &collector{}
	ch := NewChannel(url, sink,
		WithBackoff(fastBackoff),
		WithStateHook(func(s State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		}),
	)
	stop := runChannel(t, ch)

	require.Eventually(t, func() bool { return len(sink.Titles()) == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	stop()

	assert.Equal(t, []string{"first", "second"}, sink.Titles())
	assert.Equal(t, int32(2), conns.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, Connected)
	assert.Equal(t, Disconnected, states[len(states)-1])
}

// failingDialer refuses the first n dials.
type failingDialer struct {
	fail  int
	calls atomic.Int32
	next  Dialer
}

func (d *failingDialer) Dial(ctx context.Context, url string) (Conn, error) {
	if int(d.calls.Add(1)) <= d.fail {
		return nil, stderrors.New("connection refused")
	}
	return d.next.Dial(ctx, url)
}

func TestChannel_RetriesDialFailures(t *testing.T) {
	url, _ := agentServer(t, func(_ int, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"title":"up","msg":"agent back"}`))
		holdOpen(conn)
	})

	dialer := &failingDialer{fail: 3, next: NewWebSocketDialer(nil)}
	sink := &collector{}
	ch := NewChannel(url, sink, WithDialer(dialer), WithBackoff(fastBackoff))
	stop := runChannel(t, ch)
	defer stop()

	require.Eventually(t, func() bool { return len(sink.Titles()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(4), dialer.calls.Load())
}

func TestChannel_CancelWhileDisconnected(t *testing.T) {
	dialer := &failingDialer{fail: 1 << 30}
	ch := NewChannel("ws://127.0.0.1:1/notification", &collector{},
		WithDialer(dialer), WithBackoff(Backoff{Initial: time.Hour, Max: time.Hour}))

	stop := runChannel(t, ch)
	require.Eventually(t, func() bool { return dialer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, Disconnected, ch.State())
}

func TestBackoff_Next(t *testing.T) {
	b := Backoff{Initial: 500 * time.Millisecond, Max: 4 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{10, 4 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Next(tt.attempt), "attempt %d", tt.attempt)
	}

	assert.Equal(t, DefaultBackoff.Initial, Backoff{}.Next(0))
}

func TestDecodeAlert(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Alert
		wantErr bool
	}{
		{"valid", `{"title":"Memory Alert","msg":"Memory at 88%"}`, Alert{Title: "Memory Alert", Message: "Memory at 88%"}, false},
		{"title only", `{"title":"GPU Alert"}`, Alert{Title: "GPU Alert"}, false},
		{"trims whitespace", `{"title":"  Net  ","msg":" slow "}`, Alert{Title: "Net", Message: "slow"}, false},
		{"not json", `hello`, Alert{}, true},
		{"array", `[1,2]`, Alert{}, true},
		{"empty object", `{}`, Alert{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAlert([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrParse))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChanSink_NeverBlocks(t *testing.T) {
	ch := make(chan Alert, 1)
	sink := ChanSink(ch)

	sink.Deliver(Alert{Title: "one"})
	sink.Deliver(Alert{Title: "two"})

	require.Len(t, ch, 1)
	assert.Equal(t, "one", (<-ch).Title)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
}

// droppingConn fails its first read after lifetime.
type droppingConn struct {
	lifetime time.Duration
}

func (c droppingConn) ReadMessage() (int, []byte, error) {
	time.Sleep(c.lifetime)
	return 0, nil, stderrors.New("connection reset by peer")
}

func (droppingConn) Close() error { return nil }

// droppingDialer accepts every dial and records when each happened.
type droppingDialer struct {
	lifetime time.Duration

	mu    sync.Mutex
	dials []time.Time
}

func (d *droppingDialer) Dial(context.Context, string) (Conn, error) {
	d.mu.Lock()
	d.dials = append(d.dials, time.Now())
	d.mu.Unlock()
	return droppingConn{lifetime: d.lifetime}, nil
}

func (d *droppingDialer) gaps() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []time.Duration
	for i := 1; i < len(d.dials); i++ {
		out = append(out, d.dials[i].Sub(d.dials[i-1]))
	}
	return out
}

func TestChannel_ShortLivedConnectionsGrowBackoff(t *testing.T) {
	dialer := &droppingDialer{}
	ch := NewChannel("ws://agent/notification", &collector{},
		WithDialer(dialer),
		WithBackoff(Backoff{Initial: 5 * time.Millisecond, Max: time.Second}),
	)
	stop := runChannel(t, ch)

	require.Eventually(t, func() bool { return len(dialer.gaps()) >= 5 }, 3*time.Second, 5*time.Millisecond)
	stop()

	// Waits double after every drop: 5ms, 10ms, 20ms, 40ms, 80ms.
	gaps := dialer.gaps()
	assert.GreaterOrEqual(t, gaps[3], 40*time.Millisecond)
	assert.GreaterOrEqual(t, gaps[4], 80*time.Millisecond)
}

func TestChannel_StableConnectionResetsBackoff(t *testing.T) {
	dialer := &droppingDialer{lifetime: 5 * time.Millisecond}
	ch := NewChannel("ws://agent/notification", &collector{},
		WithDialer(dialer),
		WithBackoff(Backoff{Initial: 20 * time.Millisecond, Max: time.Minute}),
		WithStableAfter(time.Millisecond),
	)
	stop := runChannel(t, ch)

	require.Eventually(t, func() bool { return len(dialer.gaps()) >= 5 }, 3*time.Second, 5*time.Millisecond)
	stop()

	// Without the reset the fifth wait would be 320ms.
	gaps := dialer.gaps()
	assert.Less(t, gaps[4], 200*time.Millisecond)
}
