package main

import (
	"encoding/base64"
	"net/http"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sdraeger/ddalab-core/internal/applog"
	"github.com/sdraeger/ddalab-core/internal/ddamodel"
	"github.com/sdraeger/ddalab-core/internal/httpapi"
	"github.com/sdraeger/ddalab-core/internal/jobqueue"
	"github.com/sdraeger/ddalab-core/internal/session"
	"github.com/sdraeger/ddalab-core/internal/snapshot"
	"github.com/sdraeger/ddalab-core/internal/storage/sqlite"
)

// Node is the per-user embedded API of spec §2: job submission against
// the local queue, and snapshot export/import against the local
// analysis/annotation stores. It is the single-user analogue of
// internal/server's multi-tenant institutional API, so its handlers
// mirror that package's status-code and error-code conventions
// directly rather than reinventing a second HTTP idiom.
type Node struct {
	queue       *jobqueue.Queue
	analyses    *sqlite.AnalysisRepo
	annotations *sqlite.AnnotationRepo
	sessions    *session.Store
	encryption  bool
	log         *applog.Component
	valid       *validator.Validate
}

const localOwnerID = "local"

// Router builds the node's chi router. There is no multi-tenant auth
// here — spec §2 describes the node as a per-user embedded API reached
// over loopback/LAN by its own owning user — but the same encrypted-
// session middleware as the institutional server is wired in when
// -encrypt is set, since spec §4.7 applies uniformly to "local API
// (encrypted)".
func (n *Node) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(httpapi.RequestLogger(nil))
	r.Use(httpapi.Recoverer(nil))
	if n.encryption {
		r.Use(session.Middleware(n.sessions))
	}

	r.Post("/session/key_exchange", n.handleKeyExchange)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/submit", n.handleJobSubmit)
		r.Post("/submit_batch", n.handleJobSubmitBatch)
		r.Get("/{id}", n.handleJobStatus)
		r.Post("/{id}/cancel", n.handleJobCancel)
	})

	r.Route("/snapshots", func(r chi.Router) {
		r.Post("/export", n.handleSnapshotExport)
		r.Post("/import", n.handleSnapshotImport)
	})

	return r
}

func (n *Node) handleKeyExchange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID       string `json:"session_id" validate:"required"`
		ClientPublicKey string `json:"client_public_key" validate:"required"`
	}
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "malformed request body")
		return
	}

	clientKey, err := base64.StdEncoding.DecodeString(req.ClientPublicKey)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "client_public_key must be base64")
		return
	}

	ex, err := session.NewKeyExchange()
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to generate key pair")
		return
	}
	sharedKey, err := ex.DeriveSharedKey(clientKey)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "invalid client public key")
		return
	}
	record, err := session.NewRecord(req.SessionID, sharedKey)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to derive session key")
		return
	}
	n.sessions.Put(record)

	httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"server_public_key":  base64.StdEncoding.EncodeToString(ex.PublicKey()),
		"encryption_enabled": true,
	})
}

type submitJobRequest struct {
	SourcePath string              `json:"source_path" validate:"required"`
	Request    ddamodel.DDARequest `json:"request"`
}

func (n *Node) handleJobSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "malformed request body")
		return
	}
	if err := n.valid.Struct(req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "missing required job fields")
		return
	}

	params := req.Request.Normalize()
	params.SourcePath = req.SourcePath
	if err := params.Validate(); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, err.Error())
		return
	}

	source := jobqueue.FileSource{Kind: jobqueue.FileSourceServerPath, Path: req.SourcePath}
	jobID := n.queue.Submit(localOwnerID, source, params)
	n.log.Debugf("submitted job %s for %s", jobID, req.SourcePath)

	httpapi.WriteJSON(w, http.StatusAccepted, map[string]any{
		"job_id":  jobID,
		"status":  jobqueue.StatusPending,
		"message": "job accepted",
	})
}

// maxBatchMatches bounds how many files a single submit_batch glob may
// expand to, so a careless pattern (e.g. "**/*") can't flood the local
// queue in one request.
const maxBatchMatches = 500

type submitBatchJobRequest struct {
	SourceGlob string              `json:"source_glob" validate:"required"`
	Request    ddamodel.DDARequest `json:"request"`
}

// handleJobSubmitBatch expands SourceGlob against the local filesystem
// and submits one job per matched file, reusing the same request
// parameters for each. Patterns follow doublestar's bash-like syntax
// ("**" for recursive descent), matching how the recordings a batch
// submission targets are usually laid out in nested per-session
// directories.
func (n *Node) handleJobSubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req submitBatchJobRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "malformed request body")
		return
	}
	if err := n.valid.Struct(req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "missing required job fields")
		return
	}
	matches, err := doublestar.FilepathGlob(req.SourceGlob)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "failed to expand source_glob")
		return
	}
	if len(matches) == 0 {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "source_glob matched no files")
		return
	}
	if len(matches) > maxBatchMatches {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "source_glob matched too many files")
		return
	}

	jobIDs := make([]string, 0, len(matches))
	for _, path := range matches {
		params := req.Request.Normalize()
		params.SourcePath = path
		if err := params.Validate(); err != nil {
			httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, err.Error())
			return
		}
		source := jobqueue.FileSource{Kind: jobqueue.FileSourceServerPath, Path: path}
		jobIDs = append(jobIDs, n.queue.Submit(localOwnerID, source, params))
	}
	n.log.Debugf("submitted %d batch jobs for pattern %q", len(jobIDs), req.SourceGlob)

	httpapi.WriteJSON(w, http.StatusAccepted, map[string]any{
		"job_ids": jobIDs,
		"count":   len(jobIDs),
	})
}

func (n *Node) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := n.queue.Status(id)
	if err != nil {
		httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, "job not found")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, info)
}

func (n *Node) handleJobCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	switch err := n.queue.Cancel(id); err {
	case nil:
		w.WriteHeader(http.StatusOK)
	case jobqueue.ErrNotFound:
		httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, "job not found")
	case jobqueue.ErrAlreadyTerminal:
		httpapi.WriteError(w, http.StatusConflict, httpapi.CodeConflict, "job already finished")
	default:
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to cancel job")
	}
}

type snapshotExportRequest struct {
	Name        string               `json:"name" validate:"required"`
	Description string               `json:"description"`
	SourceFile  snapshot.SourceFileInfo `json:"source_file"`
	Analyses    []snapshot.Analysis  `json:"analyses" validate:"required,min=1"`
}

func (n *Node) handleSnapshotExport(w http.ResponseWriter, r *http.Request) {
	var req snapshotExportRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "malformed request body")
		return
	}
	if err := n.valid.Struct(req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "missing required snapshot fields")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="snapshot.ddalab"`)
	if err := snapshot.Write(w, snapshot.WriteInput{
		Name:        req.Name,
		Description: req.Description,
		SourceFile:  req.SourceFile,
		Analyses:    req.Analyses,
		CreatedAt:   time.Now(),
	}); err != nil {
		n.log.Errorf("snapshot export failed: %v", err)
	}
}

func (n *Node) handleSnapshotImport(w http.ResponseWriter, r *http.Request) {
	destPath := r.URL.Query().Get("dest_path")
	if destPath == "" {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "dest_path query parameter is required")
		return
	}

	tmp, err := os.CreateTemp("", "ddalab-import-*.ddalab")
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to buffer upload")
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := tmp.ReadFrom(r.Body)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "failed reading request body")
		return
	}

	archive, err := snapshot.Open(tmp, size)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "not a valid snapshot archive")
		return
	}
	if err := archive.VerifySourceHash(destPath); err != nil {
		n.log.Debugf("snapshot import: source hash mismatch, proceeding anyway: %v", err)
	}

	if err := snapshot.Apply(snapshot.ApplyInput{
		Archive:         archive,
		DestFilePath:    destPath,
		AnalysisStore:   n.analyses,
		AnnotationStore: n.annotations,
	}); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to apply snapshot")
		return
	}

	w.WriteHeader(http.StatusOK)
}
