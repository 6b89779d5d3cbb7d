// Package jobs runs full audits asynchronously. One background worker
// drains a FIFO queue, so heavy audits execute strictly serially; callers
// poll job status by id or stream transitions over the job's event channel.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webgrade/webgrade/internal/audit"
)

// Job lifecycle states. Transitions are monotonic:
// queued → running → completed | failed.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s ends the job lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type EventType string

const (
	EventStatus EventType = "status"
	EventResult EventType = "result"
)

// Event is one job transition, delivered over the job's event channel.
type Event struct {
	JobID  string    `json:"job_id"`
	Type   EventType `json:"type"`
	Status Status    `json:"status"`
	Error  string    `json:"error,omitempty"`
}

// Job is one unit of queued audit work. Instances handed out by the
// orchestrator are snapshots; only the worker mutates the stored copy.
type Job struct {
	ID          string        `json:"id"`
	Status      Status        `json:"status"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
	RequestedBy string        `json:"requested_by,omitempty"`
	Request     audit.Request `json:"request"`
	Result      *audit.Result `json:"result"`
	Error       *string       `json:"error"`

	events chan Event
}

// AuditFunc executes one full audit. Satisfied by audit.Runner.Audit.
type AuditFunc func(ctx context.Context, req audit.Request) *audit.Result

// Orchestrator owns the job registry, the FIFO backlog and the single
// worker goroutine. Construct with New, then Start; Stop during shutdown.
type Orchestrator struct {
	run    AuditFunc
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	cond    *sync.Cond
	backlog []string
	jobs    map[string]*Job
	stopped bool

	done chan struct{}
}

// New builds an orchestrator around the given audit function. The worker
// is not running until Start is called.
func New(run AuditFunc, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		run:    run,
		logger: logger,
		now:    time.Now,
		jobs:   make(map[string]*Job),
		done:   make(chan struct{}),
	}
	o.cond = sync.NewCond(&o.mu)
	return o
}

// Start launches the worker goroutine. Call exactly once.
func (o *Orchestrator) Start() {
	go o.worker()
}

// Stop halts intake and waits for the in-flight job until ctx expires.
// A job already running is never cancelled; it finishes or fails on its
// own terms.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()
	o.cond.Broadcast()

	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop orchestrator: %w", ctx.Err())
	}
}

// Enqueue registers req as a queued job and appends it to the backlog.
// The backlog is unbounded, so enqueueing never blocks and never fails;
// every job passes queued → running before reaching a terminal state.
// The queued event goes out before the worker can see the job, so event
// order on the channel always matches the lifecycle.
func (o *Orchestrator) Enqueue(req audit.Request, requestedBy string) *Job {
	req = req.Normalized()
	now := o.timestamp()

	job := &Job{
		ID:          uuid.New().String(),
		Status:      StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
		RequestedBy: requestedBy,
		Request:     req,
		events:      make(chan Event, 16),
	}
	o.emit(job, EventStatus, StatusQueued, "")

	o.mu.Lock()
	o.jobs[job.ID] = job
	o.backlog = append(o.backlog, job.ID)
	snap := *job
	snap.events = nil
	o.mu.Unlock()
	o.cond.Signal()

	o.logger.Info("job queued",
		zap.String("job_id", job.ID),
		zap.String("url", req.URL))
	return &snap
}

// Get returns a snapshot of the job, or false for unknown ids.
func (o *Orchestrator) Get(jobID string) (*Job, bool) {
	snap := o.snapshot(jobID)
	return snap, snap != nil
}

// Events returns the job's live event channel for streaming consumers.
// The channel is closed on the job's terminal transition.
func (o *Orchestrator) Events(jobID string) (<-chan Event, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[jobID]
	if !ok {
		return nil, false
	}
	return job.events, true
}

// QueueSize reports how many jobs are waiting for the worker.
func (o *Orchestrator) QueueSize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.backlog)
}

// StatusURL is the polling path for a job id.
func StatusURL(jobID string) string {
	return "/api/jobs/" + jobID
}

func (o *Orchestrator) worker() {
	defer close(o.done)
	for {
		o.mu.Lock()
		for len(o.backlog) == 0 && !o.stopped {
			o.cond.Wait()
		}
		if o.stopped {
			o.mu.Unlock()
			return
		}
		jobID := o.backlog[0]
		o.backlog = o.backlog[1:]
		o.mu.Unlock()

		o.execute(jobID)
	}
}

// execute runs one dequeued job through running to its terminal state.
// Every dequeued job makes exactly one terminal transition.
func (o *Orchestrator) execute(jobID string) {
	o.mu.Lock()
	job, ok := o.jobs[jobID]
	var req audit.Request
	if ok {
		req = job.Request
	}
	o.mu.Unlock()
	if !ok {
		return
	}

	o.transition(jobID, StatusRunning, nil, "")

	result := o.safeRun(req)
	switch {
	case result == nil:
		o.transition(jobID, StatusFailed, nil, "analyzer returned no result")
	case result.Failed():
		o.transition(jobID, StatusFailed, result, result.Error)
	default:
		o.transition(jobID, StatusCompleted, result, "")
	}
}

// safeRun shields the worker from scorer or backend panics; a panicking
// audit counts as failed, the worker keeps draining.
func (o *Orchestrator) safeRun(req audit.Request) (result *audit.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("audit panicked", zap.Any("panic", r))
			result = &audit.Result{
				Mode:      req.Mode,
				Timestamp: o.timestamp(),
				URL:       req.URL,
				Error:     fmt.Sprintf("internal error: %v", r),
			}
		}
	}()
	return o.run(context.Background(), req)
}

// transition applies one state change and emits its event. Terminal
// transitions close the event channel.
func (o *Orchestrator) transition(jobID string, status Status, result *audit.Result, errMsg string) {
	o.mu.Lock()
	job, ok := o.jobs[jobID]
	if ok {
		job.Status = status
		job.UpdatedAt = o.timestamp()
		if result != nil && status == StatusCompleted {
			job.Result = result
		}
		if errMsg != "" {
			msg := errMsg
			job.Error = &msg
		}
	}
	o.mu.Unlock()
	if !ok {
		return
	}

	eventType := EventStatus
	if status == StatusCompleted {
		eventType = EventResult
	}
	o.emit(job, eventType, status, errMsg)

	if status.Terminal() {
		close(job.events)
		o.logger.Info("job finished",
			zap.String("job_id", jobID),
			zap.String("status", string(status)))
	}
}

// emit delivers an event without blocking; slow or absent consumers drop
// events rather than stall the worker.
func (o *Orchestrator) emit(job *Job, eventType EventType, status Status, errMsg string) {
	select {
	case job.events <- Event{JobID: job.ID, Type: eventType, Status: status, Error: errMsg}:
	default:
	}
}

// snapshot copies the job under the lock so callers can marshal it
// without racing the worker.
func (o *Orchestrator) snapshot(jobID string) *Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[jobID]
	if !ok {
		return nil
	}
	snap := *job
	snap.events = nil
	return &snap
}

func (o *Orchestrator) timestamp() string {
	return o.now().UTC().Format(time.RFC3339)
}
