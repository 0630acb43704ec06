// Package filereader defines the uniform FileReader capability (spec
// §4.2) consumed by the rest of the core. Concrete EDF/ASCII/
// BrainVision/XDF/NWB readers are out of scope (spec §1); this package
// only defines the interface, the channel-label classifier, and a
// deterministic stride-based decimator shared by any implementation.
package filereader

import "time"

// ChannelType classifies a channel by its physiological signal type.
type ChannelType string

const (
	ChannelEEG     ChannelType = "EEG"
	ChannelEOG     ChannelType = "EOG"
	ChannelECG     ChannelType = "ECG"
	ChannelEMG     ChannelType = "EMG"
	ChannelStim    ChannelType = "STIM"
	ChannelMEG     ChannelType = "MEG"
	ChannelResp    ChannelType = "RESP"
	ChannelMisc    ChannelType = "MISC"
	ChannelUnknown ChannelType = "Unknown"
)

// ChannelInfo is the per-channel classification result.
type ChannelInfo struct {
	Label string
	Type  ChannelType
	Unit  string
}

// Metadata is the file-level summary returned by Metadata(), cheap
// after the first call.
type Metadata struct {
	SampleRateHz  float64
	Channels      []ChannelInfo
	TotalSamples  int64
	Duration      time.Duration
	StartTime     time.Time
	Format        string
}

// FileReader is the capability interface every concrete source-format
// reader implements. Implementations are thread-safe under interior
// mutation: concurrent callers serialize around the underlying file
// handle, but Metadata is lock-free after the first call.
type FileReader interface {
	// Metadata returns the cached file-level summary.
	Metadata() (Metadata, error)

	// ReadChunk returns values[channel][sample] for the requested
	// sample range. start+num must lie within [0, TotalSamples].
	// A nil channels slice means "all channels"; unknown channel
	// labels in a non-nil slice are silently skipped.
	ReadChunk(start, num int64, channels []string) ([][]float64, error)

	// ReadOverview returns decimated values with at most maxPoints
	// samples per channel, using deterministic stride-based sampling.
	ReadOverview(maxPoints int, channels []string) ([][]float64, error)
}

// DecimateIndices returns up to maxPoints evenly-spaced sample indices
// in [0, total), using the same stride = total/limit rule used
// throughout the core (job streaming buffer, overview reads). It is
// deterministic and reproducible across calls.
func DecimateIndices(total int64, maxPoints int) []int64 {
	if maxPoints <= 0 || total <= 0 {
		return nil
	}
	limit := int64(maxPoints)
	if total <= limit {
		indices := make([]int64, total)
		for i := range indices {
			indices[i] = int64(i)
		}
		return indices
	}
	step := float64(total) / float64(limit)
	indices := make([]int64, limit)
	for i := int64(0); i < limit; i++ {
		indices[i] = int64(float64(i) * step)
	}
	return indices
}
