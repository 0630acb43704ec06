// Package snapshot implements the .ddalab archive format of spec §4.8:
// a ZIP container holding a schema-versioned manifest, MessagePack+LZ4
// compressed analysis payloads, and plain-JSON annotations/workflow.
package snapshot

import (
	"fmt"
	"time"

	"golang.org/x/mod/semver"
)

// CurrentFormatVersion is the manifest schema version this build
// writes. Readers accept any manifest whose major component matches.
const CurrentFormatVersion = "1.5.0"

// SourceFileInfo records the provenance of the file a snapshot's
// analyses were computed against, spec §4.8.
type SourceFileInfo struct {
	OriginalPath string  `json:"original_path"`
	FileHash     string  `json:"file_hash"` // hex SHA-256
	FileType     string  `json:"file_type"`
	SampleRateHz float64 `json:"sample_rate_hz"`
	DurationSec  float64 `json:"duration"`
}

// AnalysisEntry is one analysis's manifest record; the payload itself
// lives at analyses/<id>.msgpack.lz4 inside the archive.
type AnalysisEntry struct {
	ID           string `json:"id"`
	Variant      string `json:"variant"`
	ResultsFile  string `json:"results_file,omitempty"`
}

// Manifest is manifest.json, spec §4.8.
type Manifest struct {
	FormatVersion string          `json:"format_version"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	SourceFile    SourceFileInfo  `json:"source_file"`
	Analyses      []AnalysisEntry `json:"analyses"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CompatibilityError reports a manifest whose major format version
// does not match what this build can read.
type CompatibilityError struct {
	ManifestVersion string
	CurrentVersion  string
}

func (e *CompatibilityError) Error() string {
	return fmt.Sprintf("snapshot: manifest format version %q is incompatible with current %q",
		e.ManifestVersion, e.CurrentVersion)
}

// CheckCompatibility validates that manifestVersion's major component
// matches currentVersion's, per spec §4.8/S8 (1.2.0 vs 1.5.0 accepted,
// 2.0.0 vs 1.x rejected). Manifest versions are bare "MAJOR.MINOR.PATCH"
// (no "v" prefix) as written by this package; semver.Major requires the
// "v" prefix so it is added before delegating.
func CheckCompatibility(manifestVersion, currentVersion string) error {
	mv, cv := "v"+manifestVersion, "v"+currentVersion
	if !semver.IsValid(mv) {
		return fmt.Errorf("snapshot: invalid manifest format version %q", manifestVersion)
	}
	if !semver.IsValid(cv) {
		return fmt.Errorf("snapshot: invalid current format version %q", currentVersion)
	}
	if semver.Major(mv) != semver.Major(cv) {
		return &CompatibilityError{ManifestVersion: manifestVersion, CurrentVersion: currentVersion}
	}
	return nil
}
