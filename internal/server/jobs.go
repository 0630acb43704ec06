package server

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sdraeger/ddalab-core/internal/ddamodel"
	"github.com/sdraeger/ddalab-core/internal/httpapi"
	"github.com/sdraeger/ddalab-core/internal/jobqueue"
)

type submitJobRequest struct {
	SourcePath string              `json:"source_path" validate:"required"`
	Request    ddamodel.DDARequest `json:"request"`
}

type submitJobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// handleJobSubmit implements POST /api/jobs/submit, spec §6: 202
// {job_id, status: "pending", message}.
func (s *Server) handleJobSubmit(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := httpapi.UserIDFromContext(r.Context())

	var req submitJobRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "malformed request body")
		return
	}
	params := req.Request.Normalize()
	params.SourcePath = req.SourcePath
	if err := s.valid.Struct(params); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "invalid analysis parameters")
		return
	}
	if err := params.Validate(); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, err.Error())
		return
	}

	source := jobqueue.FileSource{Kind: jobqueue.FileSourceServerPath, Path: req.SourcePath}
	id := s.jobs.Submit(ownerID, source, params)
	s.metrics.jobsSubmitted.Inc()

	if s.jobsTable != nil {
		_ = s.jobsTable.Insert(r.Context(), id, ownerID, string(jobqueue.StatusPending))
	}

	httpapi.WriteJSON(w, http.StatusAccepted, submitJobResponse{
		JobID:   id,
		Status:  string(jobqueue.StatusPending),
		Message: "job accepted",
	})
}

// handleJobStatus implements GET /api/jobs/{id}.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := s.jobs.Status(id)
	if err == jobqueue.ErrNotFound {
		httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, "job not found")
		return
	}
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to read job status")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, info)
}

// handleJobCancel implements POST /api/jobs/{id}/cancel.
func (s *Server) handleJobCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.jobs.Cancel(id)
	switch err {
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

// handleJobDownload implements GET /api/jobs/{id}/download: streams a
// completed job's output file.
func (s *Server) handleJobDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := s.jobs.Status(id)
	if err == jobqueue.ErrNotFound {
		httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, "job not found")
		return
	}
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to read job")
		return
	}
	if info.Status != jobqueue.StatusCompleted || info.OutputPath == "" {
		httpapi.WriteError(w, http.StatusConflict, httpapi.CodeConflict, "job has no completed output yet")
		return
	}

	f, err := os.Open(info.OutputPath)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to open output file")
		return
	}
	defer f.Close()

	var modTime time.Time
	if info.CompletedAt != nil {
		modTime = *info.CompletedAt
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, info.OutputPath, modTime, f)
}
