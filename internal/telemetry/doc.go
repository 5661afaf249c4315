// Package telemetry is the realtime aggregation core of vitals.
//
// It polls the agent's metric endpoints on independent cadences, keeps a
// bounded rolling history per endpoint, and lets any number of readers see
// that history without issuing their own requests.
//
// # Key Components
//
//	Fetcher    - One request/response round trip per call, decoded into a typed Snapshot
//	Buffer     - Fixed-capacity FIFO of Samples, swapped atomically on every append
//	Scheduler  - One goroutine and ticker per Source, serialized fetches, race-free Stop
//	Hub        - Owns one Buffer and one poller per Source, fans reads out to Subscriptions
//
// # Data Flow
//
//  1. The Scheduler ticks for a Source (first tick fires immediately)
//  2. The Fetcher issues GET <path> bounded by the fetch timeout
//  3. On success the Sample is appended to the Source's Buffer
//  4. The Hub pokes every Subscription's Updates channel (coalescing, never blocking)
//  5. Readers call View() and render whatever the Buffer holds
//
// A failed fetch leaves the Buffer untouched and is retried by the next tick.
// One Source failing or stalling never affects another Source.
//
// # Absent Samples
//
// Buffers may be pre-filled with Absent samples so charts have a fixed width
// before the first reading arrives. Absent is an explicit flag rather than a
// zero value so a legitimate 0% reading is never mistaken for a gap. Readers
// decide how to render gaps; the Buffer never filters them.
package telemetry
