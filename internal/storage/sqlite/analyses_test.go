package sqlite

import (
	"testing"
	"time"

	"github.com/sdraeger/ddalab-core/internal/ddamodel"
)

func TestAnalysisRepoSaveAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewAnalysisRepo(db)

	result := ddamodel.AnalysisResult{
		OwnerUserID: "user-1",
		FilePath:    "/data/recording.edf",
		CreatedAt:   time.Now(),
	}
	if err := repo.SaveAnalysis("analysis-1", result); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	got, err := repo.GetAnalysis("analysis-1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got.OwnerUserID != result.OwnerUserID || got.FilePath != result.FilePath {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, result)
	}
}

func TestAnalysisRepoSaveUpserts(t *testing.T) {
	db := openTestDB(t)
	repo := NewAnalysisRepo(db)

	first := ddamodel.AnalysisResult{OwnerUserID: "user-1", FilePath: "/a.edf"}
	if err := repo.SaveAnalysis("analysis-1", first); err != nil {
		t.Fatalf("SaveAnalysis first: %v", err)
	}
	second := ddamodel.AnalysisResult{OwnerUserID: "user-2", FilePath: "/b.edf"}
	if err := repo.SaveAnalysis("analysis-1", second); err != nil {
		t.Fatalf("SaveAnalysis second: %v", err)
	}

	got, err := repo.GetAnalysis("analysis-1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got.OwnerUserID != "user-2" || got.FilePath != "/b.edf" {
		t.Fatalf("expected upsert to overwrite, got %+v", got)
	}
}

func TestAnalysisRepoGetUnknownReturnsNotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewAnalysisRepo(db)

	if _, err := repo.GetAnalysis("missing"); err != ErrAnalysisNotFound {
		t.Fatalf("expected ErrAnalysisNotFound, got %v", err)
	}
}

func TestAnalysisRepoListByFilePath(t *testing.T) {
	db := openTestDB(t)
	repo := NewAnalysisRepo(db)

	if err := repo.SaveAnalysis("a1", ddamodel.AnalysisResult{FilePath: "/shared.edf"}); err != nil {
		t.Fatalf("SaveAnalysis a1: %v", err)
	}
	if err := repo.SaveAnalysis("a2", ddamodel.AnalysisResult{FilePath: "/shared.edf"}); err != nil {
		t.Fatalf("SaveAnalysis a2: %v", err)
	}
	if err := repo.SaveAnalysis("a3", ddamodel.AnalysisResult{FilePath: "/other.edf"}); err != nil {
		t.Fatalf("SaveAnalysis a3: %v", err)
	}

	list, err := repo.ListByFilePath("/shared.edf")
	if err != nil {
		t.Fatalf("ListByFilePath: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 analyses, got %d", len(list))
	}
}

func TestAnnotationRepoSaveAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewAnnotationRepo(db)

	in := map[string]any{"global_annotations": []string{"seizure onset"}}
	if err := repo.SaveAnnotations("/data/recording.edf", in); err != nil {
		t.Fatalf("SaveAnnotations: %v", err)
	}

	var out map[string]any
	if err := repo.GetAnnotations("/data/recording.edf", &out); err != nil {
		t.Fatalf("GetAnnotations: %v", err)
	}
	if out["global_annotations"] == nil {
		t.Fatalf("expected annotations to round trip, got %+v", out)
	}
}

func TestAnnotationRepoGetUnknownIsNoOp(t *testing.T) {
	db := openTestDB(t)
	repo := NewAnnotationRepo(db)

	var out map[string]any
	if err := repo.GetAnnotations("/missing.edf", &out); err != nil {
		t.Fatalf("GetAnnotations on missing file should not error, got %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil result for missing annotations, got %+v", out)
	}
}
