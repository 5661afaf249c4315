package telemetry

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	pollGap = 5 * time.Millisecond
)

// blockUntilDone parks a fetch until the scheduler cancels it.
func blockUntilDone(ctx context.Context) (Snapshot, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestScheduler_FirstFetchIsImmediate(t *testing.T) {
	f := newScriptedFetcher(func(_ context.Context, _ Source, n int) (Snapshot, error) {
		return cpu(n), nil
	})
	s := NewScheduler(f)
	buf := NewBuffer(10, false)

	require.NoError(t, s.Start(SourceCPU, time.Hour, buf))
	defer s.StopAll()

	require.Eventually(t, func() bool { return buf.Len() == 1 }, waitFor, pollGap)
	assert.Equal(t, 1, f.Calls(SourceCPU))
}

func TestScheduler_PrefilledBufferAfterThreeTicks(t *testing.T) {
	f := newScriptedFetcher(func(ctx context.Context, _ Source, n int) (Snapshot, error) {
		if n > 3 {
			return blockUntilDone(ctx)
		}
		return cpu(n), nil
	})
	s := NewScheduler(f, WithFetchTimeout(time.Hour))
	buf := NewBuffer(10, true)

	require.NoError(t, s.Start(SourceCPU, 10*time.Millisecond, buf))
	require.Eventually(t, func() bool { return len(buf.Present()) == 3 }, waitFor, pollGap)
	require.True(t, s.Stop(SourceCPU))

	view := buf.View()
	require.Len(t, view, 10)
	assert.Equal(t, 7, countAbsent(view))
	for _, smp := range view[:7] {
		assert.True(t, smp.Absent)
	}
	assert.Equal(t, []float64{1, 2, 3}, values(view))
	assert.Equal(t, []uint64{1, 2, 3}, []uint64{view[7].Seq, view[8].Seq, view[9].Seq})
}

func TestScheduler_TimeoutLeavesBufferUntouched(t *testing.T) {
	f := newScriptedFetcher(func(ctx context.Context, _ Source, n int) (Snapshot, error) {
		switch {
		case n == 5:
			return blockUntilDone(ctx)
		case n > 6:
			return blockUntilDone(ctx)
		}
		return cpu(n), nil
	})
	log := logger.NewBufferLogger()
	s := NewScheduler(f, WithFetchTimeout(30*time.Millisecond), WithSchedulerLogger(log))
	buf := NewBuffer(10, true)

	require.NoError(t, s.Start(SourceCPU, 10*time.Millisecond, buf))

	var st SourceStatus
	require.Eventually(t, func() bool {
		st, _ = s.Status(SourceCPU)
		return st.Successes == 5
	}, waitFor, pollGap)
	s.Stop(SourceCPU)

	assert.Equal(t, []float64{1, 2, 3, 4, 6}, values(buf.View()))
	assert.True(t, stderrors.Is(st.LastError, context.DeadlineExceeded))
	assert.True(t, log.HasLevel("warn"))

	var seqs []uint64
	for _, smp := range buf.Present() {
		seqs = append(seqs, smp.Seq)
	}
	if diff := cmp.Diff([]uint64{1, 2, 3, 4, 6}, seqs); diff != "" {
		t.Errorf("sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestScheduler_StopDiscardsInFlightResult(t *testing.T) {
	inFlight := make(chan struct{})
	f := newScriptedFetcher(func(ctx context.Context, _ Source, n int) (Snapshot, error) {
		if n == 1 {
			return cpu(1), nil
		}
		close(inFlight)
		<-ctx.Done()
		// A result that arrives after cancellation must never be appended.
		return cpu(n), nil
	})
	var appends atomic.Int32
	s := NewScheduler(f,
		WithFetchTimeout(time.Hour),
		OnAppend(func(Source, Sample) { appends.Add(1) }),
	)
	buf := NewBuffer(10, false)

	require.NoError(t, s.Start(SourceCPU, 10*time.Millisecond, buf))
	<-inFlight

	require.True(t, s.Stop(SourceCPU))

	assert.Equal(t, []float64{1}, values(buf.View()))
	assert.Equal(t, int32(1), appends.Load())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []float64{1}, values(buf.View()))
	assert.Equal(t, 2, f.Calls(SourceCPU))

	st, ok := s.Status(SourceCPU)
	require.True(t, ok)
	assert.False(t, st.Running)
}

func TestScheduler_StatusSurvivesStop(t *testing.T) {
	f := newScriptedFetcher(func(ctx context.Context, _ Source, n int) (Snapshot, error) {
		switch n {
		case 1, 2:
			return cpu(n), nil
		case 3:
			return nil, errors.New(errors.ErrFetch, "agent down", "")
		}
		return blockUntilDone(ctx)
	})
	s := NewScheduler(f, WithFetchTimeout(time.Hour))
	require.NoError(t, s.Start(SourceCPU, 5*time.Millisecond, NewBuffer(4, false)))

	require.Eventually(t, func() bool {
		st, _ := s.Status(SourceCPU)
		return st.Ticks == 3
	}, waitFor, pollGap)
	require.True(t, s.Stop(SourceCPU))

	st, ok := s.Status(SourceCPU)
	require.True(t, ok, "a stopped source still reports its last status")
	assert.False(t, st.Running)
	assert.Equal(t, uint64(3), st.Ticks)
	assert.Equal(t, uint64(2), st.Successes)
	assert.False(t, st.LastSuccess.IsZero())
	assert.True(t, errors.IsCode(st.LastError, errors.ErrFetch))
	assert.Equal(t, 1, st.ConsecutiveFailures)

	assert.False(t, s.Stop(SourceCPU), "second stop is a no-op")

	_, ok = s.Status(SourceMemory)
	assert.False(t, ok, "never-started sources have no status")

	// Restarting replaces the kept status with a live one.
	require.NoError(t, s.Start(SourceCPU, time.Hour, NewBuffer(4, false)))
	defer s.StopAll()
	st, ok = s.Status(SourceCPU)
	require.True(t, ok)
	assert.True(t, st.Running)
}

func TestScheduler_FetchMayOutlastInterval(t *testing.T) {
	var current, peak atomic.Int32
	f := newScriptedFetcher(func(ctx context.Context, _ Source, n int) (Snapshot, error) {
		c := current.Add(1)
		defer current.Add(-1)
		for {
			p := peak.Load()
			if c <= p || peak.CompareAndSwap(p, c) {
				break
			}
		}
		// Three intervals long, well inside the default fetch timeout.
		select {
		case <-time.After(30 * time.Millisecond):
			return cpu(n), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	s := NewScheduler(f)
	buf := NewBuffer(10, true)

	require.NoError(t, s.Start(SourceCPU, 10*time.Millisecond, buf))
	require.Eventually(t, func() bool { return len(buf.Present()) >= 3 }, waitFor, pollGap)
	s.Stop(SourceCPU)

	st, _ := s.Status(SourceCPU)
	assert.Zero(t, st.ConsecutiveFailures)
	assert.Nil(t, st.LastError)
	assert.Equal(t, int32(1), peak.Load())
}

func TestScheduler_FetchesNeverOverlap(t *testing.T) {
	var current, peak atomic.Int32
	f := newScriptedFetcher(func(_ context.Context, _ Source, n int) (Snapshot, error) {
		c := current.Add(1)
		for {
			p := peak.Load()
			if c <= p || peak.CompareAndSwap(p, c) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		return cpu(n), nil
	})
	s := NewScheduler(f, WithFetchTimeout(time.Second))
	buf := NewBuffer(10, false)

	require.NoError(t, s.Start(SourceCPU, time.Millisecond, buf))
	require.Eventually(t, func() bool { return f.Calls(SourceCPU) >= 5 }, waitFor, pollGap)
	s.Stop(SourceCPU)

	assert.Equal(t, int32(1), peak.Load())
}

func TestScheduler_FailureKeepsBufferAndRetries(t *testing.T) {
	boom := errors.New(errors.ErrFetch, "agent unreachable", "")
	f := newScriptedFetcher(func(_ context.Context, _ Source, n int) (Snapshot, error) {
		if n%2 == 0 {
			return nil, boom
		}
		return cpu(n), nil
	})

	var mu sync.Mutex
	var failures []error
	s := NewScheduler(f, OnError(func(_ Source, err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
	}))
	buf := NewBuffer(10, false)

	require.NoError(t, s.Start(SourceCPU, 5*time.Millisecond, buf))
	require.Eventually(t, func() bool { return len(buf.Present()) >= 3 }, waitFor, pollGap)
	s.Stop(SourceCPU)

	for _, v := range values(buf.View()) {
		assert.Equal(t, 1, int(v)%2, "failed ticks must not append")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, failures)
	assert.True(t, errors.IsCode(failures[0], errors.ErrFetch))
}

func TestScheduler_SourcesAreIndependent(t *testing.T) {
	f := newScriptedFetcher(func(ctx context.Context, src Source, n int) (Snapshot, error) {
		if src == SourceDisk {
			return blockUntilDone(ctx)
		}
		return cpu(n), nil
	})
	s := NewScheduler(f, WithFetchTimeout(time.Hour))
	stuck := NewBuffer(10, false)
	healthy := NewBuffer(10, false)

	require.NoError(t, s.Start(SourceDisk, 5*time.Millisecond, stuck))
	require.NoError(t, s.Start(SourceCPU, 5*time.Millisecond, healthy))

	require.Eventually(t, func() bool { return healthy.Len() >= 3 }, waitFor, pollGap)
	s.StopAll()

	assert.Equal(t, 0, stuck.Len())
	assert.Empty(t, s.Running())
}

func TestScheduler_StartErrors(t *testing.T) {
	f := newScriptedFetcher(func(ctx context.Context, _ Source, _ int) (Snapshot, error) {
		return blockUntilDone(ctx)
	})
	s := NewScheduler(f)
	defer s.StopAll()

	err := s.Start(SourceCPU, time.Second, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	buf := NewBuffer(3, false)
	require.NoError(t, s.Start(SourceCPU, time.Second, buf))

	err = s.Start(SourceCPU, time.Second, buf)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	assert.False(t, s.Stop(SourceMemory))
}

func TestScheduler_DefaultInterval(t *testing.T) {
	f := newScriptedFetcher(func(ctx context.Context, _ Source, _ int) (Snapshot, error) {
		return blockUntilDone(ctx)
	})
	s := NewScheduler(f)
	require.NoError(t, s.Start(SourceCPU, 0, NewBuffer(1, false)))
	defer s.StopAll()

	st, ok := s.Status(SourceCPU)
	require.True(t, ok)
	assert.Equal(t, DefaultInterval, st.Interval)
	assert.True(t, st.Running)
}

func TestSourceStatus_Stale(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status SourceStatus
		want   bool
	}{
		{"never ticked", SourceStatus{Interval: time.Second}, false},
		{"ticked without success", SourceStatus{Interval: time.Second, Ticks: 1}, true},
		{"recent success", SourceStatus{Interval: time.Second, Ticks: 3, LastSuccess: now.Add(-time.Second)}, false},
		{"old success", SourceStatus{Interval: time.Second, Ticks: 9, LastSuccess: now.Add(-3 * time.Second)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Stale(now))
		})
	}
}
