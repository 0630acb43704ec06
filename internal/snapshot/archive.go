package snapshot

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/sdraeger/ddalab-core/internal/ddamodel"
)

const (
	manifestEntryName   = "manifest.json"
	analysesDir         = "analyses/"
	annotationsEntry    = "annotations.json"
	workflowEntry       = "workflow.json"
)

// Analysis pairs an id with the AnalysisResult it names in the
// manifest, the unit of work Write/Apply operate on.
type Analysis struct {
	ID     string
	Result ddamodel.AnalysisResult
}

// WriteInput is everything needed to produce a .ddalab archive.
type WriteInput struct {
	Name        string
	Description string
	SourceFile  SourceFileInfo
	Analyses    []Analysis
	Annotations any // marshaled as-is to annotations.json if non-nil
	Workflow    any // marshaled as-is to workflow.json if non-nil
	CreatedAt   time.Time
}

// Write creates a .ddalab archive at dst: a ZIP container with
// manifest.json, one analyses/<id>.msgpack.lz4 per analysis (MessagePack
// then LZ4, 4-byte little-endian uncompressed-size prefix), and plain
// JSON annotations/workflow members when present, spec §4.8.
func Write(dst io.Writer, in WriteInput) error {
	zw := zip.NewWriter(dst)

	manifest := Manifest{
		FormatVersion: CurrentFormatVersion,
		Name:          in.Name,
		Description:   in.Description,
		SourceFile:    in.SourceFile,
		CreatedAt:     in.CreatedAt,
	}

	for _, a := range in.Analyses {
		entryPath := analysesDir + a.ID + ".msgpack.lz4"
		payload, err := encodeAnalysisPayload(a.Result)
		if err != nil {
			return fmt.Errorf("snapshot: encoding analysis %q: %w", a.ID, err)
		}
		w, err := zw.Create(entryPath)
		if err != nil {
			return fmt.Errorf("snapshot: creating zip entry %q: %w", entryPath, err)
		}
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("snapshot: writing zip entry %q: %w", entryPath, err)
		}
		manifest.Analyses = append(manifest.Analyses, AnalysisEntry{
			ID:          a.ID,
			Variant:     string(firstVariant(a.Result)),
			ResultsFile: entryPath,
		})
	}

	if err := writeJSONEntry(zw, manifestEntryName, manifest); err != nil {
		return err
	}
	if in.Annotations != nil {
		if err := writeJSONEntry(zw, annotationsEntry, in.Annotations); err != nil {
			return err
		}
	}
	if in.Workflow != nil {
		if err := writeJSONEntry(zw, workflowEntry, in.Workflow); err != nil {
			return err
		}
	}

	return zw.Close()
}

func firstVariant(r ddamodel.AnalysisResult) string {
	for v := range r.VariantResults {
		return string(v)
	}
	return ""
}

func writeJSONEntry(zw *zip.Writer, name string, v any) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("snapshot: creating zip entry %q: %w", name, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("snapshot: encoding %q: %w", name, err)
	}
	return nil
}

// encodeAnalysisPayload MessagePack-encodes result, LZ4-compresses it,
// and prefixes the compressed block with the 4-byte little-endian
// length of the *uncompressed* payload so Read knows the destination
// buffer size before decompressing.
func encodeAnalysisPayload(result ddamodel.AnalysisResult) ([]byte, error) {
	encoded, err := msgpack.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal: %w", err)
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(encoded)))
	var compressor lz4.Compressor
	n, err := compressor.CompressBlock(encoded, compressed)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	compressed = compressed[:n]

	out := make([]byte, 4+len(compressed))
	binary.LittleEndian.PutUint32(out[:4], uint32(len(encoded)))
	copy(out[4:], compressed)
	return out, nil
}

func decodeAnalysisPayload(data []byte) (ddamodel.AnalysisResult, error) {
	var result ddamodel.AnalysisResult
	if len(data) < 4 {
		return result, fmt.Errorf("snapshot: analysis payload too short for size prefix")
	}
	uncompressedSize := binary.LittleEndian.Uint32(data[:4])
	decoded := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(data[4:], decoded)
	if err != nil {
		return result, fmt.Errorf("lz4 decompress: %w", err)
	}
	if err := msgpack.Unmarshal(decoded[:n], &result); err != nil {
		return result, fmt.Errorf("msgpack unmarshal: %w", err)
	}
	return result, nil
}

// Archive is an opened .ddalab archive ready for reading.
type Archive struct {
	Manifest Manifest
	zr       *zip.Reader
}

// HashMismatchWarning reports that the source file's current content
// hash no longer matches manifest.source_file.file_hash. Per spec
// §4.8 this is a warning, not an error: the user may be intentionally
// reattaching a renamed or edited copy of the source file.
type HashMismatchWarning struct {
	Expected string
	Actual   string
}

func (w *HashMismatchWarning) Error() string {
	return fmt.Sprintf("snapshot: source file hash mismatch: manifest has %s, file has %s", w.Expected, w.Actual)
}

// Open reads manifest.json from a .ddalab archive and validates its
// format version's major component against CurrentFormatVersion.
// Incompatible manifests return a *CompatibilityError.
func Open(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("snapshot: opening zip: %w", err)
	}

	f, err := zr.Open(manifestEntryName)
	if err != nil {
		return nil, fmt.Errorf("snapshot: archive has no %s: %w", manifestEntryName, err)
	}
	defer f.Close()

	var manifest Manifest
	if err := json.NewDecoder(f).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("snapshot: decoding manifest: %w", err)
	}
	if err := CheckCompatibility(manifest.FormatVersion, CurrentFormatVersion); err != nil {
		return nil, err
	}

	return &Archive{Manifest: manifest, zr: zr}, nil
}

// VerifySourceHash recomputes the SHA-256 of sourcePath (streamed, so
// arbitrarily large source files never load fully into memory) and
// compares it against the manifest's recorded hash. A mismatch is
// returned as a *HashMismatchWarning, distinct from a hard I/O error.
func (a *Archive) VerifySourceHash(sourcePath string) error {
	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("snapshot: opening source file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("snapshot: hashing source file: %w", err)
	}
	actual := hex.EncodeToString(h.Sum(nil))
	if actual != a.Manifest.SourceFile.FileHash {
		return &HashMismatchWarning{Expected: a.Manifest.SourceFile.FileHash, Actual: actual}
	}
	return nil
}

// ReadAnalysis extracts and decodes one analysis payload by entry id.
func (a *Archive) ReadAnalysis(id string) (ddamodel.AnalysisResult, error) {
	var entry *AnalysisEntry
	for i := range a.Manifest.Analyses {
		if a.Manifest.Analyses[i].ID == id {
			entry = &a.Manifest.Analyses[i]
			break
		}
	}
	if entry == nil {
		return ddamodel.AnalysisResult{}, fmt.Errorf("snapshot: no analysis with id %q in manifest", id)
	}

	f, err := a.zr.Open(entry.ResultsFile)
	if err != nil {
		return ddamodel.AnalysisResult{}, fmt.Errorf("snapshot: opening %q: %w", entry.ResultsFile, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return ddamodel.AnalysisResult{}, fmt.Errorf("snapshot: reading %q: %w", entry.ResultsFile, err)
	}
	return decodeAnalysisPayload(data)
}

// ReadAllAnalyses decodes every analysis listed in the manifest.
func (a *Archive) ReadAllAnalyses() ([]Analysis, error) {
	out := make([]Analysis, 0, len(a.Manifest.Analyses))
	for _, entry := range a.Manifest.Analyses {
		result, err := a.ReadAnalysis(entry.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Analysis{ID: entry.ID, Result: result})
	}
	return out, nil
}

// ReadJSONEntry decodes a plain-JSON member (annotations.json or
// workflow.json) into v. Returns os.ErrNotExist-wrapping error if the
// entry is absent, since both members are optional per spec §4.8.
func (a *Archive) ReadJSONEntry(name string, v any) error {
	f, err := a.zr.Open(name)
	if err != nil {
		return fmt.Errorf("snapshot: opening %q: %w", name, err)
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}

// HasAnnotations reports whether the archive carries an annotations.json member.
func (a *Archive) HasAnnotations() bool {
	_, err := a.zr.Open(annotationsEntry)
	return err == nil
}

// HasWorkflow reports whether the archive carries a workflow.json member.
func (a *Archive) HasWorkflow() bool {
	_, err := a.zr.Open(workflowEntry)
	return err == nil
}
