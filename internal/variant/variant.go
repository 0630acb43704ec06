// Package variant holds the closed, static registry of DDA analysis
// variants and the SELECT mask codec described in spec §4.1. It is
// the generalization of the teacher's computation registry
// (registry.NewRegistry / ComputationByName): instead of looking up
// pluggable Partition-Compute-Accumulate computations by name, it looks
// up fixed DDA variant metadata by abbreviation, in the exact bit-order
// the original select mask uses.
package variant

import "log"

// Abbreviation identifies one of the five DDA analysis variants.
type Abbreviation string

const (
	ST Abbreviation = "ST"
	CT Abbreviation = "CT"
	CD Abbreviation = "CD"
	DE Abbreviation = "DE"
	SY Abbreviation = "SY"
)

// maskPosition is the fixed bit position of each variant (and the
// reserved bit) within a 6-bit SELECT mask: ST CT CD RESERVED DE SY.
const (
	posST       = 0
	posCT       = 1
	posCD       = 2
	posReserved = 3
	posDE       = 4
	posSY       = 5
	maskLen     = 6
)

// Metadata describes one entry of the variant registry.
type Metadata struct {
	Abbreviation    Abbreviation
	Name            string
	Description     string
	OutputSuffix    string
	Stride          int
	RequiresCTParams bool
}

// registry is the canonical, closed set of supported variants, ordered
// by abbreviation for deterministic iteration.
var registry = []Metadata{
	{Abbreviation: CD, Name: "Cross-Dynamical", Description: "Analyzes directed causal relationships between channels", OutputSuffix: "_CD_DDA_ST", Stride: 2, RequiresCTParams: true},
	{Abbreviation: CT, Name: "Cross-Timeseries", Description: "Analyzes relationships between channel pairs", OutputSuffix: "_CT", Stride: 4, RequiresCTParams: true},
	{Abbreviation: DE, Name: "Delay Embedding (Dynamical Ergodicity)", Description: "Analyzes dynamical ergodicity through delay embedding", OutputSuffix: "_DE", Stride: 1, RequiresCTParams: true},
	{Abbreviation: ST, Name: "Single Timeseries", Description: "Analyzes individual channels independently", OutputSuffix: "_ST", Stride: 4, RequiresCTParams: false},
	{Abbreviation: SY, Name: "Synchronization", Description: "Analyzes phase synchronization between signals", OutputSuffix: "_SY", Stride: 1, RequiresCTParams: false},
}

var byAbbrev = func() map[Abbreviation]*Metadata {
	m := make(map[Abbreviation]*Metadata, len(registry))
	for i := range registry {
		m[registry[i].Abbreviation] = &registry[i]
	}
	return m
}()

var bySuffix = func() map[string]*Metadata {
	m := make(map[string]*Metadata, len(registry))
	for i := range registry {
		m[registry[i].OutputSuffix] = &registry[i]
	}
	return m
}()

// ByAbbreviation looks up variant metadata by abbreviation. Returns nil
// if the abbreviation is not part of the closed registry.
func ByAbbreviation(a Abbreviation) *Metadata {
	return byAbbrev[a]
}

// BySuffix looks up variant metadata by the output file suffix the DDA
// binary appends.
func BySuffix(suffix string) *Metadata {
	return bySuffix[suffix]
}

// All returns the registry in canonical bit-position order (ST, CT, CD,
// DE, SY), i.e. the order parse/generate use.
func All() []Metadata {
	ordered := make([]Metadata, 5)
	ordered[0] = *byAbbrev[ST]
	ordered[1] = *byAbbrev[CT]
	ordered[2] = *byAbbrev[CD]
	ordered[3] = *byAbbrev[DE]
	ordered[4] = *byAbbrev[SY]
	return ordered
}

// GenerateSelectMask builds the 6-bit SELECT mask for the given set of
// variant abbreviations. Unknown abbreviations are logged and ignored;
// duplicates are idempotent. Position 3 (RESERVED) is always 0.
func GenerateSelectMask(variants []Abbreviation) [6]byte {
	var mask [6]byte
	for _, v := range variants {
		switch v {
		case ST:
			mask[posST] = 1
		case CT:
			mask[posCT] = 1
		case CD:
			mask[posCD] = 1
		case DE:
			mask[posDE] = 1
		case SY:
			mask[posSY] = 1
		default:
			log.Printf("variant: unknown abbreviation %q ignored while generating select mask", v)
		}
	}
	return mask
}

// ParseSelectMask parses a SELECT mask back into the ordered list of
// enabled variant abbreviations, in canonical bit-position order. A
// mask shorter than 6 elements is an error. Position 3 is always
// ignored.
func ParseSelectMask(mask []byte) ([]Abbreviation, error) {
	if len(mask) < maskLen {
		return nil, ErrMaskTooShort
	}
	var enabled []Abbreviation
	if mask[posST] == 1 {
		enabled = append(enabled, ST)
	}
	if mask[posCT] == 1 {
		enabled = append(enabled, CT)
	}
	if mask[posCD] == 1 {
		enabled = append(enabled, CD)
	}
	if mask[posDE] == 1 {
		enabled = append(enabled, DE)
	}
	if mask[posSY] == 1 {
		enabled = append(enabled, SY)
	}
	return enabled, nil
}
