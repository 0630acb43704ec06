package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/sdraeger/ddalab-core/internal/applog"
	"github.com/sdraeger/ddalab-core/internal/ddamodel"
)

// Queue is the single in-process job scheduler, spec §4.3: a single
// admission task drains the pending list in submission order, subject
// to a concurrency cap, and each admitted job runs on its own
// cancellable goroutine.
type Queue struct {
	log *applog.Component

	sem *semaphore.Weighted

	mu       sync.RWMutex
	jobs     map[string]*Job
	pending  []string // FIFO order of job ids awaiting admission
	cancels  map[string]context.CancelFunc
	running  map[string]chan struct{} // closed when the job's goroutine returns

	submitCh chan struct{} // signals the admission loop that pending grew

	subMu sync.Mutex
	subs  []chan ProgressEvent

	binaryPath    string
	outputDir     string
	maxConcurrent int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Runner executes a single admitted job. Production callers pass a
// runner backed by pkg/ddaproc and internal/ddamodel; tests substitute
// a fake.
type Runner interface {
	Run(ctx context.Context, job *Job, report func(progress int, message string)) (outputPath string, err error)
}

// New creates a Queue. maxConcurrent bounds the number of jobs that may
// run at once; it must be >= 1.
func New(maxConcurrent int64, logger *applog.Component) *Queue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		log:           logger,
		sem:           semaphore.NewWeighted(maxConcurrent),
		jobs:          make(map[string]*Job),
		cancels:       make(map[string]context.CancelFunc),
		running:       make(map[string]chan struct{}),
		submitCh:      make(chan struct{}, 1),
		maxConcurrent: maxConcurrent,
		ctx:           ctx,
		cancel:        cancel,
	}
	return q
}

// Start launches the admission loop on a background goroutine. Callers
// must call Stop to release resources.
func (q *Queue) Start(runner Runner) {
	q.wg.Add(1)
	go q.admissionLoop(runner)
}

// Stop cancels the admission loop and every still-running job, then
// waits for all goroutines to return.
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()
}

func (q *Queue) nextID() string {
	return uuid.NewString()
}

// Submit enqueues a new job in Pending state and returns its id. It
// never blocks on admission; the job runs once the concurrency cap
// allows it.
func (q *Queue) Submit(ownerUserID string, source FileSource, params ddamodel.DDARequest) string {
	id := q.nextID()
	job := &Job{
		ID:          id,
		OwnerUserID: ownerUserID,
		FileSource:  source,
		Parameters:  params,
		Status:      StatusPending,
		SubmittedAt: time.Now(),
	}

	q.mu.Lock()
	q.jobs[id] = job
	q.pending = append(q.pending, id)
	q.mu.Unlock()

	q.publish(ProgressEvent{JobID: id, Status: StatusPending, Progress: 0})

	select {
	case q.submitCh <- struct{}{}:
	default:
	}

	return id
}

// Status returns a snapshot of the job's current state.
func (q *Queue) Status(jobID string) (Info, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return Info{}, ErrNotFound
	}
	return *job, nil
}

// Cancel requests cancellation of a job. Pending jobs are removed from
// the queue without ever starting; running jobs have their context
// cancelled cooperatively. Returns ErrAlreadyTerminal if the job has
// already finished.
func (q *Queue) Cancel(jobID string) error {
	q.mu.Lock()
	job, ok := q.jobs[jobID]
	if !ok {
		q.mu.Unlock()
		return ErrNotFound
	}
	if job.Status.IsTerminal() {
		q.mu.Unlock()
		return ErrAlreadyTerminal
	}

	if job.Status == StatusPending {
		q.removePendingLocked(jobID)
		q.markTerminalLocked(job, StatusCancelled, "", "cancelled before admission")
		q.mu.Unlock()
		q.publish(ProgressEvent{JobID: jobID, Status: StatusCancelled})
		return nil
	}

	cancel := q.cancels[jobID]
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// SubscribeProgress returns a channel of progress events. The channel
// is buffered; slow subscribers drop events rather than block the
// queue (spec §9 back-pressure idiom also used by internal/streaming).
func (q *Queue) SubscribeProgress() <-chan ProgressEvent {
	ch := make(chan ProgressEvent, 64)
	q.subMu.Lock()
	q.subs = append(q.subs, ch)
	q.subMu.Unlock()
	return ch
}

func (q *Queue) publish(evt ProgressEvent) {
	q.subMu.Lock()
	defer q.subMu.Unlock()
	for _, ch := range q.subs {
		select {
		case ch <- evt:
		default:
			if q.log != nil {
				q.log.Debugf("dropping progress event for subscriber: channel full")
			}
		}
	}
}

func (q *Queue) removePendingLocked(jobID string) {
	for i, id := range q.pending {
		if id == jobID {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

func (q *Queue) markTerminalLocked(job *Job, status Status, outputPath, message string) {
	now := time.Now()
	job.Status = status
	job.CompletedAt = &now
	job.OutputPath = outputPath
	if status == StatusFailed {
		job.Error = message
	} else {
		job.Message = message
	}
}

// admissionLoop drains q.pending in FIFO order, acquiring the
// concurrency semaphore before popping each job so it never admits
// more than maxConcurrent jobs at once. Grounded on the teacher's
// partitionAccumulate for-select dispatch loop, simplified to
// single-process semantics (no partial-result accumulation, no
// worker-availability estimation).
func (q *Queue) admissionLoop(runner Runner) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		default:
		}

		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			select {
			case <-q.ctx.Done():
				return
			case <-q.submitCh:
				continue
			}
		}
		id := q.pending[0]
		q.mu.Unlock()

		if err := q.sem.Acquire(q.ctx, 1); err != nil {
			return // context cancelled while waiting for a slot
		}

		q.mu.Lock()
		q.removePendingLocked(id)
		job := q.jobs[id]
		q.mu.Unlock()
		if job == nil {
			q.sem.Release(1)
			continue
		}

		jobCtx, cancel := context.WithCancel(q.ctx)
		done := make(chan struct{})
		q.mu.Lock()
		q.cancels[id] = cancel
		q.running[id] = done
		q.mu.Unlock()

		q.wg.Add(1)
		go q.runJob(jobCtx, cancel, done, job, runner)
	}
}

// runJob executes one admitted job to completion, always releasing its
// semaphore slot and marking a terminal status even on panic.
func (q *Queue) runJob(ctx context.Context, cancel context.CancelFunc, done chan struct{}, job *Job, runner Runner) {
	defer q.wg.Done()
	defer close(done)
	defer cancel()
	defer q.sem.Release(1)
	defer func() {
		q.mu.Lock()
		delete(q.cancels, job.ID)
		delete(q.running, job.ID)
		q.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			q.mu.Lock()
			j := q.jobs[job.ID]
			if j != nil && !j.Status.IsTerminal() {
				q.markTerminalLocked(j, StatusFailed, "", "worker died")
			}
			q.mu.Unlock()
			q.publish(ProgressEvent{JobID: job.ID, Status: StatusFailed, Message: "worker died"})
			if q.log != nil {
				q.log.Errorf("job %s panicked: %v", job.ID, r)
			}
		}
	}()

	now := time.Now()
	q.mu.Lock()
	job.Status = StatusRunning
	job.StartedAt = &now
	q.mu.Unlock()
	q.publish(ProgressEvent{JobID: job.ID, Status: StatusRunning})

	report := func(progress int, message string) {
		q.mu.Lock()
		j := q.jobs[job.ID]
		if j == nil || j.Status.IsTerminal() {
			q.mu.Unlock()
			return
		}
		j.Progress = progress
		j.Message = message
		q.mu.Unlock()
		q.publish(ProgressEvent{JobID: job.ID, Status: StatusRunning, Progress: progress, Message: message})
	}

	outputPath, err := runner.Run(ctx, job, report)

	q.mu.Lock()
	j := q.jobs[job.ID]
	if j == nil {
		q.mu.Unlock()
		return
	}
	switch {
	case ctx.Err() != nil && err != nil:
		q.markTerminalLocked(j, StatusCancelled, "", "cancelled")
	case err != nil:
		q.markTerminalLocked(j, StatusFailed, "", err.Error())
	default:
		q.markTerminalLocked(j, StatusCompleted, outputPath, "")
	}
	finalStatus := j.Status
	finalErr := j.Error
	q.mu.Unlock()

	if job.FileSource.DeleteAfter() {
		if rmErr := deleteInputFile(job.FileSource.Path); rmErr != nil && q.log != nil {
			q.log.Errorf("failed deleting uploaded input %s: %v", job.FileSource.Path, rmErr)
		}
	}

	q.publish(ProgressEvent{JobID: job.ID, Status: finalStatus, Message: finalErr})
}
