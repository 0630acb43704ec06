package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/sdraeger/ddalab-core/internal/applog"
	"github.com/sdraeger/ddalab-core/internal/jobqueue"
	"github.com/sdraeger/ddalab-core/internal/session"
)

func newTestNode(t *testing.T) *Node {
	t.Helper()
	q := jobqueue.New(2, applog.NewComponent("test "))
	return &Node{
		queue:      q,
		sessions:   session.NewStore(),
		encryption: false,
		log:        applog.NewComponent("test "),
		valid:      validator.New(),
	}
}

func TestHandleJobSubmitRejectsMissingSourcePath(t *testing.T) {
	n := newTestNode(t)
	body, _ := json.Marshal(map[string]any{"request": map[string]any{}})
	req := httptest.NewRequest(http.MethodPost, "/jobs/submit", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	n.handleJobSubmit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}

func TestHandleJobSubmitBatchRejectsMissingGlob(t *testing.T) {
	n := newTestNode(t)
	body, _ := json.Marshal(map[string]any{"request": map[string]any{}})
	req := httptest.NewRequest(http.MethodPost, "/jobs/submit_batch", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	n.handleJobSubmitBatch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}

func TestHandleJobSubmitBatchRejectsNoMatches(t *testing.T) {
	n := newTestNode(t)
	dir := t.TempDir()
	body, _ := json.Marshal(map[string]any{
		"source_glob": filepath.Join(dir, "*.edf"),
		"request":     map[string]any{},
	})
	req := httptest.NewRequest(http.MethodPost, "/jobs/submit_batch", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	n.handleJobSubmitBatch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}

func TestHandleJobSubmitBatchExpandsGlob(t *testing.T) {
	n := newTestNode(t)
	dir := t.TempDir()
	for _, name := range []string{"a.edf", "b.edf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("writing fixture file: %v", err)
		}
	}

	body, _ := json.Marshal(map[string]any{
		"source_glob": filepath.Join(dir, "*.edf"),
		"request": map[string]any{
			"source_path": "placeholder",
			"channels":    []int{0},
			"variants":    []string{"ST"},
			"window":      map[string]any{"length": 100, "step": 50},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/jobs/submit_batch", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	n.handleJobSubmitBatch(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want 202, body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		JobIDs []string `json:"job_ids"`
		Count  int      `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 2 || len(resp.JobIDs) != 2 {
		t.Fatalf("expected 2 submitted jobs, got %+v", resp)
	}
}

func TestHandleJobStatusNotFound(t *testing.T) {
	n := newTestNode(t)
	r := n.Router()
	req := httptest.NewRequest(http.MethodGet, "/jobs/missing", nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", rec.Code)
	}
}

func TestHandleSnapshotExportRejectsEmptyAnalyses(t *testing.T) {
	n := newTestNode(t)
	body, _ := json.Marshal(map[string]any{"name": "snap"})
	req := httptest.NewRequest(http.MethodPost, "/snapshots/export", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	n.handleSnapshotExport(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}
