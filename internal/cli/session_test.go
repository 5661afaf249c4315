package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rileyhilliard/vitals/internal/agentapi"
	"github.com/rileyhilliard/vitals/internal/config"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowAgent answers /realtime after delay and tracks how many requests
// were open at once.
type slowAgent struct {
	*httptest.Server
	delay         time.Duration
	current, peak atomic.Int32
	served        atomic.Int32
}

func newSlowAgent(t *testing.T, delay time.Duration) *slowAgent {
	t.Helper()
	a := &slowAgent{delay: delay}
	a.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := a.current.Add(1)
		defer a.current.Add(-1)
		for {
			p := a.peak.Load()
			if c <= p || a.peak.CompareAndSwap(p, c) {
				break
			}
		}
		select {
		case <-time.After(a.delay):
		case <-r.Context().Done():
			return
		}
		a.served.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(telemetry.RealtimeSnapshot{CPUUsage: 12.5})
	}))
	t.Cleanup(a.Close)
	return a
}

func testSession(t *testing.T, cfg *config.Config) *session {
	t.Helper()
	client, err := agentapi.NewClient(cfg.Agent.URL, agentapi.WithTimeout(cfg.Agent.Timeout))
	require.NoError(t, err)
	return &session{cfg: cfg, agent: client, log: logger.Noop()}
}

func TestSessionHub_SlowAgentStillFillsHistory(t *testing.T) {
	agent := newSlowAgent(t, 120*time.Millisecond)

	cfg := config.DefaultConfig()
	cfg.Agent.URL = agent.URL
	// The agent takes longer than one poll interval, as /realtime does.
	cfg.Sources[string(telemetry.SourceRealtime)] = config.SourceConfig{Interval: 50 * time.Millisecond, Enabled: true}

	s := testSession(t, cfg)
	hub, err := s.newHub([]telemetry.Source{telemetry.SourceRealtime})
	require.NoError(t, err)
	require.NoError(t, hub.Start())
	defer hub.Stop()

	require.Eventually(t, func() bool {
		view, _ := hub.View(telemetry.SourceRealtime)
		present := 0
		for _, smp := range view {
			if smp.Present() {
				present++
			}
		}
		return present >= 3
	}, 5*time.Second, 10*time.Millisecond)

	st, ok := hub.Status(telemetry.SourceRealtime)
	require.True(t, ok)
	assert.Nil(t, st.LastError, "no fetch was cut off at the poll interval")
	assert.Equal(t, int32(1), agent.peak.Load(), "fetches for one source never overlap")

	latest, ok := hub.Latest(telemetry.SourceRealtime)
	require.True(t, ok)
	snap, ok := telemetry.As[telemetry.RealtimeSnapshot](latest)
	require.True(t, ok)
	assert.Equal(t, 12.5, snap.CPUUsage)
}

func TestSessionHub_AgentTimeoutBoundsFetches(t *testing.T) {
	agent := newSlowAgent(t, time.Hour)

	cfg := config.DefaultConfig()
	cfg.Agent.URL = agent.URL
	cfg.Agent.Timeout = 40 * time.Millisecond
	cfg.Sources[string(telemetry.SourceRealtime)] = config.SourceConfig{Interval: time.Hour, Enabled: true}

	s := testSession(t, cfg)
	hub, err := s.newHub([]telemetry.Source{telemetry.SourceRealtime})
	require.NoError(t, err)
	require.NoError(t, hub.Start())
	defer hub.Stop()

	require.Eventually(t, func() bool {
		st, _ := hub.Status(telemetry.SourceRealtime)
		return st.LastError != nil
	}, 5*time.Second, 10*time.Millisecond)

	st, _ := hub.Status(telemetry.SourceRealtime)
	assert.True(t, agentapi.IsTimeout(st.LastError))
	assert.Zero(t, agent.served.Load())
}
