package snapshot

import (
	"fmt"

	"github.com/sdraeger/ddalab-core/internal/ddamodel"
)

// AnalysisSaver persists a decoded analysis result, keyed by its
// archive-local id, under the destination file path. internal/storage
// provides the production implementation; tests may supply a fake.
type AnalysisSaver interface {
	SaveAnalysis(id string, result ddamodel.AnalysisResult) error
}

// AnnotationSaver persists the archive's annotations payload, if any.
type AnnotationSaver interface {
	SaveAnnotations(filePath string, annotations any) error
}

// ApplyInput bundles what Apply needs: the opened archive, the local
// path the reattached source file now lives at (which may differ from
// manifest.source_file.original_path — the archive may be shared
// across machines or the file renamed), and the destination stores.
type ApplyInput struct {
	Archive          *Archive
	DestFilePath     string
	AnalysisStore    AnalysisSaver
	AnnotationStore  AnnotationSaver
}

// Apply decodes every analysis in the archive, rewrites its FilePath
// to DestFilePath (spec §3 test S: "apply(read(write(...))) yields the
// same analyses modulo rewritten file_path"), and saves each through
// AnalysisStore; if the archive carries annotations.json, they are
// decoded generically and saved through AnnotationStore unchanged.
func Apply(in ApplyInput) error {
	analyses, err := in.Archive.ReadAllAnalyses()
	if err != nil {
		return fmt.Errorf("snapshot: reading analyses: %w", err)
	}

	for _, a := range analyses {
		a.Result.FilePath = in.DestFilePath
		if err := in.AnalysisStore.SaveAnalysis(a.ID, a.Result); err != nil {
			return fmt.Errorf("snapshot: saving analysis %q: %w", a.ID, err)
		}
	}

	if in.AnnotationStore != nil && in.Archive.HasAnnotations() {
		var annotations any
		if err := in.Archive.ReadJSONEntry(annotationsEntry, &annotations); err != nil {
			return fmt.Errorf("snapshot: reading annotations: %w", err)
		}
		if err := in.AnnotationStore.SaveAnnotations(in.DestFilePath, annotations); err != nil {
			return fmt.Errorf("snapshot: saving annotations: %w", err)
		}
	}

	return nil
}
