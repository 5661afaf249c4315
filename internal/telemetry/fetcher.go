package telemetry

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/util"
)

// Getter performs one GET round trip and decodes the JSON body into out.
// *agentapi.Client satisfies it.
type Getter interface {
	GetJSON(ctx context.Context, path string, out any) error
}

// SnapshotFetcher fetches one snapshot for a source.
type SnapshotFetcher interface {
	Fetch(ctx context.Context, src Source) (Snapshot, error)
}

// endpoint describes how to fetch and decode one source.
type endpoint struct {
	path  string
	fetch func(ctx context.Context, g Getter, path string) (Snapshot, error)
}

// fetchAs decodes the response at path into a fresh T.
func fetchAs[T Snapshot](ctx context.Context, g Getter, path string) (Snapshot, error) {
	var v T
	if err := g.GetJSON(ctx, path, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var endpoints = map[Source]endpoint{
	SourceRealtime:  {path: "/realtime", fetch: fetchAs[RealtimeSnapshot]},
	SourceCPU:       {path: "/cpu/usage", fetch: fetchAs[CPUUsageSnapshot]},
	SourceCPUInfo:   {path: "/cpu/all", fetch: fetchAs[CPUSnapshot]},
	SourceMemory:    {path: "/memory/all", fetch: fetchAs[MemorySnapshot]},
	SourceDisk:      {path: "/disk/all", fetch: fetchAs[DiskSnapshot]},
	SourceNetwork:   {path: "/network/all", fetch: fetchAs[NetworkSnapshot]},
	SourceProcesses: {path: "/processes", fetch: fetchAs[ProcessListSnapshot]},
}

// AllSources lists the built-in sources in display order.
var AllSources = []Source{
	SourceRealtime,
	SourceCPU,
	SourceCPUInfo,
	SourceMemory,
	SourceDisk,
	SourceNetwork,
	SourceProcesses,
}

// sourceSuggestion names the closest sources to a mistyped name, or all of them.
func sourceSuggestion(name string) string {
	names := make([]string, len(AllSources))
	for i, s := range AllSources {
		names[i] = string(s)
	}
	if near := util.SuggestSimilar(name, names, 2); len(near) > 0 {
		return fmt.Sprintf("Did you mean %s?", strings.Join(near, " or "))
	}
	return "Valid sources: " + util.JoinOrNone(names)
}

// Endpoint returns the agent path for src.
func Endpoint(src Source) (string, bool) {
	ep, ok := endpoints[src]
	return ep.path, ok
}

// ParseSource validates a source name.
func ParseSource(name string) (Source, error) {
	src := Source(name)
	if _, ok := endpoints[src]; !ok {
		return "", errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown metric source '%s'", name),
			sourceSuggestion(name))
	}
	return src, nil
}

// Fetcher turns a source name into a typed snapshot. It is stateless and safe
// for concurrent use; it never retries.
type Fetcher struct {
	getter Getter
}

// NewFetcher creates a Fetcher backed by g.
func NewFetcher(g Getter) *Fetcher {
	return &Fetcher{getter: g}
}

// Fetch issues one request for src and decodes the body.
// Transport failures and non-2xx responses carry errors.ErrFetch;
// undecodable bodies carry errors.ErrParse.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (Snapshot, error) {
	ep, ok := endpoints[src]
	if !ok {
		return nil, errors.New(errors.ErrFetch,
			fmt.Sprintf("No endpoint for source '%s'", src), "")
	}
	return ep.fetch(ctx, f.getter, ep.path)
}
