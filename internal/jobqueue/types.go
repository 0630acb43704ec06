package jobqueue

import (
	"time"

	"github.com/sdraeger/ddalab-core/internal/ddamodel"
)

// Status is a job's lifecycle state, spec §3.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether s is one of the three terminal states.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// FileSourceKind selects how a job's input file is disposed of on
// completion, spec §3.
type FileSourceKind string

const (
	// FileSourceServerPath is a path already on the server; kept.
	FileSourceServerPath FileSourceKind = "server_path"
	// FileSourceUploadedTemp is deleted on job completion.
	FileSourceUploadedTemp FileSourceKind = "uploaded_temp"
	// FileSourceUploadedPersistent is kept.
	FileSourceUploadedPersistent FileSourceKind = "uploaded_persistent"
)

// FileSource records where a job's input file came from and whether it
// should be cleaned up afterward.
type FileSource struct {
	Kind FileSourceKind
	Path string
}

// DeleteAfter reports whether the input file should be removed once
// the job reaches a terminal state.
func (f FileSource) DeleteAfter() bool {
	return f.Kind == FileSourceUploadedTemp
}

// Job is the full state of one submitted analysis, spec §3.
type Job struct {
	ID            string
	OwnerUserID   string
	FileSource    FileSource
	Parameters    ddamodel.DDARequest
	Status        Status
	Progress      int
	Message       string
	OutputPath    string
	Error         string
	SubmittedAt   time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// Info is a lock-free, read-only snapshot of a Job returned by
// Queue.Status.
type Info = Job

// ProgressEvent is published on every state transition and on
// best-effort intermediate progress deltas, spec §4.3.
type ProgressEvent struct {
	JobID    string
	Status   Status
	Progress int
	Message  string
}
