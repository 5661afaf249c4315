package telemetry

import (
	"context"
	"sync"
)

// scriptedFetcher answers each call with fn(ctx, src, n) where n counts calls
// per source starting at 1.
type scriptedFetcher struct {
	fn func(ctx context.Context, src Source, n int) (Snapshot, error)

	mu    sync.Mutex
	calls map[Source]int
}

func newScriptedFetcher(fn func(ctx context.Context, src Source, n int) (Snapshot, error)) *scriptedFetcher {
	return &scriptedFetcher{fn: fn, calls: make(map[Source]int)}
}

func (f *scriptedFetcher) Fetch(ctx context.Context, src Source) (Snapshot, error) {
	f.mu.Lock()
	f.calls[src]++
	n := f.calls[src]
	f.mu.Unlock()
	return f.fn(ctx, src, n)
}

func (f *scriptedFetcher) Calls(src Source) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[src]
}

// cpu builds a reading whose value identifies the call that produced it.
func cpu(n int) Snapshot {
	return CPUUsageSnapshot{CPUUsage: float64(n)}
}

// values extracts CPU readings from the present samples of a view.
func values(view []Sample) []float64 {
	var out []float64
	for _, s := range view {
		if v, ok := As[CPUUsageSnapshot](s); ok {
			out = append(out, v.CPUUsage)
		}
	}
	return out
}

func countAbsent(view []Sample) int {
	n := 0
	for _, s := range view {
		if s.Absent {
			n++
		}
	}
	return n
}
