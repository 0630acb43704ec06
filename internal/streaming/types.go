// Package streaming implements the live ingestion pipeline of spec
// §4.4: a polymorphic Source feeds a bounded TimeWindowBuffer, a
// Processor batches and runs DDA analyses against the buffered
// window, and a Controller coordinates both as cooperative tasks
// around the buffer as the single synchronization point.
package streaming

import "time"

// DataChunk is one unit of ingested neurophysiology data.
type DataChunk struct {
	Samples       [][]float64 `json:"samples"` // per-channel samples, Samples[channel][sample]
	Timestamp     time.Time   `json:"timestamp"`
	SampleRateHz  float64     `json:"sample_rate_hz"`
	ChannelLabels []string    `json:"channel_labels"`
	Sequence      *int64      `json:"sequence,omitempty"` // optional source sequence number
}

// Result is one streaming DDA analysis output, produced by the
// Processor from a batch of buffered chunks.
type Result struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Q           [][]float64
}

// Stats is the O(1) snapshot TimeWindowBuffer.Stats returns.
type Stats struct {
	StoredChunks  int
	StoredResults int
	OldestAge     time.Duration
	NewestAge     time.Duration
}

// State is the Controller's lifecycle state machine.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StatePaused   State = "paused"
)

// EventKind discriminates the Controller's ordered event callbacks.
type EventKind string

const (
	EventStateChanged EventKind = "state_changed"
	EventDataReceived EventKind = "data_received"
	EventResultsReady EventKind = "results_ready"
	EventError        EventKind = "error"
	EventStatsUpdate  EventKind = "stats_update"
)

// Event is delivered to Controller subscribers in strict order of
// occurrence (spec §4.4 "Event callbacks ... delivered in order").
type Event struct {
	Kind  EventKind
	State State // valid when Kind == EventStateChanged
	Count int   // valid when Kind == EventDataReceived or EventResultsReady
	Err   error // valid when Kind == EventError
	Stats Stats // valid when Kind == EventStatsUpdate
}
