// Package ddamodel defines the DDA request/result schema shared by the
// job queue, streaming pipeline, and snapshot archive: spec §3's
// DDARequest and AnalysisResult types plus their validation rules.
package ddamodel

import (
	"fmt"
	"time"

	"github.com/sdraeger/ddalab-core/internal/variant"
)

// ChannelPair is a directed or undirected pair of 0-based channel
// indices used by the CT/CD variants.
type ChannelPair struct {
	A int `json:"a" validate:"gte=0"`
	B int `json:"b" validate:"gte=0"`
}

// WindowParams holds the window length/step pair shared by all
// variants, plus an optional CT-specific override.
type WindowParams struct {
	Length float64 `json:"length" validate:"gt=0"`
	Step   float64 `json:"step" validate:"gt=0"`
}

// ModelParams holds the DDA model configuration: embedding dimension,
// polynomial order, and number of tau (delay) values.
type ModelParams struct {
	EmbeddingDimension int `json:"embedding_dimension" validate:"gt=0"`
	PolynomialOrder    int `json:"polynomial_order" validate:"gte=0"`
	NumTau             int `json:"num_tau" validate:"gt=0"`
}

// DDARequest is the input to a DDA analysis job.
type DDARequest struct {
	SourcePath      string                `json:"source_path" validate:"required"`
	Channels        []int                 `json:"channels" validate:"required,dive,gte=0"`
	TimeRangeStart  *float64              `json:"time_range_start,omitempty"`
	TimeRangeEnd    *float64              `json:"time_range_end,omitempty"`
	SampleStart     *int64                `json:"sample_start,omitempty"`
	SampleEnd       *int64                `json:"sample_end,omitempty"`
	Variants        []variant.Abbreviation `json:"variants" validate:"required,min=1"`
	Window          WindowParams          `json:"window"`
	CTWindow        *WindowParams         `json:"ct_window,omitempty"`
	Delays          []int                 `json:"delays" validate:"dive,gte=-100,lte=100"`
	Model           ModelParams           `json:"model"`
	CTPairs         []ChannelPair         `json:"ct_pairs,omitempty"`
	CDPairs         []ChannelPair         `json:"cd_pairs,omitempty"`
	SampleRateHz    *float64              `json:"sample_rate_hz,omitempty"`
}

// defaultCTWindowLength is the default CT window length (and step) when
// a CT-requiring variant is selected but no override is given.
const defaultCTWindowLength = 2.0

// Normalize applies the defaulting rules of spec §3 (CT window default
// of 2 for variants that require CT params) and returns a copy; it does
// not mutate the receiver.
func (r DDARequest) Normalize() DDARequest {
	normalized := r
	if normalized.CTWindow == nil && requiresCTParams(r.Variants) {
		normalized.CTWindow = &WindowParams{Length: defaultCTWindowLength, Step: defaultCTWindowLength}
	}
	return normalized
}

func requiresCTParams(variants []variant.Abbreviation) bool {
	for _, v := range variants {
		if m := variant.ByAbbreviation(v); m != nil && m.RequiresCTParams {
			return true
		}
	}
	return false
}

// Validate checks the invariants of spec §3 that struct tags cannot
// express: step <= length, CT/CD pair requirements, and CT window step
// <= length when present.
func (r DDARequest) Validate() error {
	if r.Window.Step > r.Window.Length {
		return fmt.Errorf("ddamodel: window step %v must be <= window length %v", r.Window.Step, r.Window.Length)
	}
	if r.CTWindow != nil && r.CTWindow.Step > r.CTWindow.Length {
		return fmt.Errorf("ddamodel: CT window step %v must be <= CT window length %v", r.CTWindow.Step, r.CTWindow.Length)
	}
	hasCT, hasCD := false, false
	for _, v := range r.Variants {
		switch v {
		case variant.CT:
			hasCT = true
		case variant.CD:
			hasCD = true
		}
		if variant.ByAbbreviation(v) == nil {
			return fmt.Errorf("ddamodel: unknown variant %q", v)
		}
	}
	if hasCT && len(r.CTPairs) == 0 {
		return fmt.Errorf("ddamodel: CT variant requires at least one CT pair")
	}
	if hasCD && len(r.CDPairs) == 0 {
		return fmt.Errorf("ddamodel: CD variant requires at least one CD pair")
	}
	return nil
}

// AnalysisResult is the output of a completed DDA analysis, spec §3.
type AnalysisResult struct {
	ID              string              `json:"id"`
	OwnerUserID     string              `json:"owner_user_id"`
	FilePath        string              `json:"file_path"`
	CreatedAt       time.Time           `json:"created_at"`
	ChannelLabels   []string            `json:"channel_labels"`
	Q               [][]float64         `json:"q"`
	VariantResults  map[variant.Abbreviation][][]float64 `json:"variant_results,omitempty"`
	RawOutput       []byte              `json:"raw_output,omitempty"`
	Window          WindowParams        `json:"window"`
	Delays          []int               `json:"delays"`
}
