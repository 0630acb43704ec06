package streaming

import (
	"sync"
	"time"
)

// TimeWindowBuffer is the single synchronization point of the
// streaming pipeline, spec §4.4: two bounded, time-retained deques —
// data chunks and results — guarded by a reader-favoring RWMutex since
// display reads vastly outnumber writes.
type TimeWindowBuffer struct {
	mu             sync.RWMutex
	windowSeconds  float64
	maxDisplayPts  int
	chunks         []DataChunk
	results        []Result
}

// NewTimeWindowBuffer creates a buffer retaining windowSeconds of data
// and decimating reads to at most maxDisplayPoints samples.
func NewTimeWindowBuffer(windowSeconds float64, maxDisplayPoints int) *TimeWindowBuffer {
	return &TimeWindowBuffer{
		windowSeconds: windowSeconds,
		maxDisplayPts: maxDisplayPoints,
	}
}

// PushChunk inserts a chunk and evicts any now-expired chunks,
// oldest-first. O(chunks-to-expire + 1).
func (b *TimeWindowBuffer) PushChunk(c DataChunk) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = append(b.chunks, c)
	b.evictExpiredChunksLocked(c.Timestamp)
}

// PushResult inserts a result and evicts expired results the same way.
func (b *TimeWindowBuffer) PushResult(r Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, r)
	b.evictExpiredResultsLocked(r.WindowEnd)
}

// DropOldestResult removes the single oldest unpublished result. Used
// by the Processor for back-pressure when the result side is "at
// capacity" in terms of the configured window (spec §4.4: "drops the
// oldest unpublished result before inserting").
func (b *TimeWindowBuffer) DropOldestResult() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.results) > 0 {
		b.results = b.results[1:]
	}
}

func (b *TimeWindowBuffer) evictExpiredChunksLocked(now time.Time) {
	cutoff := now.Add(-time.Duration(b.windowSeconds * float64(time.Second)))
	i := 0
	for i < len(b.chunks) && b.chunks[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		b.chunks = b.chunks[i:]
	}
}

func (b *TimeWindowBuffer) evictExpiredResultsLocked(now time.Time) {
	cutoff := now.Add(-time.Duration(b.windowSeconds * float64(time.Second)))
	i := 0
	for i < len(b.results) && b.results[i].WindowEnd.Before(cutoff) {
		i++
	}
	if i > 0 {
		b.results = b.results[i:]
	}
}

// GetData returns all retained chunks, newest last. If n is non-nil,
// only the most recent *n chunks are returned.
func (b *TimeWindowBuffer) GetData(n *int) []DataChunk {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return lastN(b.chunks, n)
}

// GetResults returns the most recent n results, or all if n is nil.
func (b *TimeWindowBuffer) GetResults(n *int) []Result {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return lastN(b.results, n)
}

func lastN[T any](s []T, n *int) []T {
	if n == nil || *n >= len(s) {
		out := make([]T, len(s))
		copy(out, s)
		return out
	}
	if *n <= 0 {
		return []T{}
	}
	start := len(s) - *n
	out := make([]T, *n)
	copy(out, s[start:])
	return out
}

// GetDisplayData returns at most maxDisplayPoints evenly-spaced
// samples from the retained chunks, using the same uniform strided
// decimation as internal/filereader.DecimateIndices.
func (b *TimeWindowBuffer) GetDisplayData() []DataChunk {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := len(b.chunks)
	if total <= b.maxDisplayPts || b.maxDisplayPts <= 0 {
		out := make([]DataChunk, total)
		copy(out, b.chunks)
		return out
	}
	step := total / b.maxDisplayPts
	if step < 1 {
		step = 1
	}
	out := make([]DataChunk, 0, b.maxDisplayPts)
	for i := 0; i < total && len(out) < b.maxDisplayPts; i += step {
		out = append(out, b.chunks[i])
	}
	return out
}

// Stats returns the buffer's current occupancy in O(1).
func (b *TimeWindowBuffer) Stats(now time.Time) Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := Stats{StoredChunks: len(b.chunks), StoredResults: len(b.results)}
	if len(b.chunks) > 0 {
		s.OldestAge = now.Sub(b.chunks[0].Timestamp)
		s.NewestAge = now.Sub(b.chunks[len(b.chunks)-1].Timestamp)
	}
	return s
}
