package jobs

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/webgrade/webgrade/internal/audit"
)

func startOrchestrator(t *testing.T, run AuditFunc) *Orchestrator {
	t.Helper()
	o := New(run, zap.NewNop())
	o.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = o.Stop(ctx)
	})
	return o
}

// waitTerminal polls until the job reaches a terminal state.
func waitTerminal(t *testing.T, o *Orchestrator, jobID string) *Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := o.Get(jobID)
		if !ok {
			t.Fatalf("job %s disappeared", jobID)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return nil
}

func okAudit(score float64) AuditFunc {
	return func(_ context.Context, req audit.Request) *audit.Result {
		return &audit.Result{
			Mode:         req.Mode,
			URL:          req.URL,
			Status:       200,
			OverallScore: &score,
		}
	}
}

func TestOrchestrator_EnqueueReportsQueued(t *testing.T) {
	t.Parallel()

	blocked := make(chan struct{})
	o := startOrchestrator(t, func(context.Context, audit.Request) *audit.Result {
		<-blocked
		return &audit.Result{}
	})
	defer close(blocked)

	job := o.Enqueue(audit.Request{URL: "https://example.com"}, "key:1.2.3.4")

	if job.ID == "" {
		t.Fatal("job id is empty")
	}
	if job.Status != StatusQueued {
		t.Errorf("Status = %s, want %s", job.Status, StatusQueued)
	}
	if job.RequestedBy != "key:1.2.3.4" {
		t.Errorf("RequestedBy = %q", job.RequestedBy)
	}
	if job.Request.Mode != audit.ModeFull {
		t.Errorf("queued request mode = %q, want full", job.Request.Mode)
	}
}

func TestOrchestrator_CompletesJobWithResult(t *testing.T) {
	t.Parallel()

	o := startOrchestrator(t, okAudit(88))

	job := o.Enqueue(audit.Request{URL: "https://example.com"}, "tester")
	final := waitTerminal(t, o, job.ID)

	if final.Status != StatusCompleted {
		t.Fatalf("Status = %s, want completed (error: %v)", final.Status, final.Error)
	}
	if final.Result == nil || final.Result.OverallScore == nil || *final.Result.OverallScore != 88 {
		t.Errorf("stored result does not match outcome: %+v", final.Result)
	}
	if final.Error != nil {
		t.Errorf("completed job carries error %q", *final.Error)
	}
	if final.UpdatedAt < final.CreatedAt {
		t.Errorf("UpdatedAt %s before CreatedAt %s", final.UpdatedAt, final.CreatedAt)
	}
}

func TestOrchestrator_FailsJobOnPipelineError(t *testing.T) {
	t.Parallel()

	o := startOrchestrator(t, func(_ context.Context, req audit.Request) *audit.Result {
		return &audit.Result{URL: req.URL, Error: "timeout"}
	})

	job := o.Enqueue(audit.Request{URL: "https://slow.example"}, "tester")
	final := waitTerminal(t, o, job.ID)

	if final.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", final.Status)
	}
	if final.Error == nil || *final.Error != "timeout" {
		t.Errorf("Error = %v, want timeout", final.Error)
	}
	if final.Result != nil {
		t.Errorf("failed job stored a result: %+v", final.Result)
	}
}

func TestOrchestrator_FailsJobOnPanic(t *testing.T) {
	t.Parallel()

	o := startOrchestrator(t, func(context.Context, audit.Request) *audit.Result {
		panic("scorer exploded")
	})

	job := o.Enqueue(audit.Request{URL: "https://example.com"}, "tester")
	final := waitTerminal(t, o, job.ID)

	if final.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", final.Status)
	}
}

func TestOrchestrator_StatusNeverRegresses(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	o := startOrchestrator(t, func(context.Context, audit.Request) *audit.Result {
		<-release
		return &audit.Result{}
	})

	job := o.Enqueue(audit.Request{URL: "https://example.com"}, "tester")

	seen := []Status{}
	deadline := time.Now().Add(3 * time.Second)
	released := false
	for time.Now().Before(deadline) {
		current, _ := o.Get(job.ID)
		if len(seen) == 0 || seen[len(seen)-1] != current.Status {
			seen = append(seen, current.Status)
		}
		if current.Status == StatusRunning && !released {
			released = true
			close(release)
		}
		if current.Status.Terminal() {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	rank := map[Status]int{StatusQueued: 0, StatusRunning: 1, StatusCompleted: 2, StatusFailed: 2}
	for i := 1; i < len(seen); i++ {
		if rank[seen[i]] < rank[seen[i-1]] {
			t.Fatalf("status regressed: %v", seen)
		}
	}
	if !seen[len(seen)-1].Terminal() {
		t.Fatalf("job never terminal, saw %v", seen)
	}
}

func TestOrchestrator_JobsCompleteInEnqueueOrder(t *testing.T) {
	t.Parallel()

	order := make(chan string, 4)
	gate := make(chan struct{})
	o := startOrchestrator(t, func(_ context.Context, req audit.Request) *audit.Result {
		<-gate
		order <- req.URL
		return &audit.Result{URL: req.URL}
	})

	first := o.Enqueue(audit.Request{URL: "https://one.example"}, "t")
	second := o.Enqueue(audit.Request{URL: "https://two.example"}, "t")
	close(gate)

	waitTerminal(t, o, first.ID)
	waitTerminal(t, o, second.ID)

	if got := <-order; got != "https://one.example" {
		t.Errorf("first completion = %s, want https://one.example", got)
	}
	if got := <-order; got != "https://two.example" {
		t.Errorf("second completion = %s, want https://two.example", got)
	}
}

// Event order on the channel must match the lifecycle even when the
// worker finishes a job in the same instant it was enqueued: queued is
// emitted before the worker can see the job, so it is always first and a
// terminal transition can never race the enqueue-side emit.
func TestOrchestrator_QueuedEventAlwaysFirst(t *testing.T) {
	t.Parallel()

	o := startOrchestrator(t, okAudit(70))
	rank := map[Status]int{StatusQueued: 0, StatusRunning: 1, StatusCompleted: 2, StatusFailed: 2}

	for i := 0; i < 200; i++ {
		job := o.Enqueue(audit.Request{URL: "https://example.com"}, "t")
		events, ok := o.Events(job.ID)
		if !ok {
			t.Fatal("Events returned no channel")
		}

		first := true
		prev := -1
		for ev := range events {
			if first && ev.Status != StatusQueued {
				t.Fatalf("first event was %s, want queued", ev.Status)
			}
			first = false
			if rank[ev.Status] < prev {
				t.Fatalf("event order regressed at %s", ev.Status)
			}
			prev = rank[ev.Status]
		}
		if first {
			t.Fatal("channel closed without delivering any event")
		}
	}
}

// The backlog is unbounded: a burst far past any fixed channel capacity
// leaves every job queued, none failed, and all of them eventually run.
func TestOrchestrator_BacklogAbsorbsBurst(t *testing.T) {
	t.Parallel()

	const burst = 1500

	gate := make(chan struct{})
	o := startOrchestrator(t, func(_ context.Context, req audit.Request) *audit.Result {
		<-gate
		return &audit.Result{URL: req.URL}
	})

	jobs := make([]*Job, 0, burst)
	for i := 0; i < burst; i++ {
		job := o.Enqueue(audit.Request{URL: "https://example.com"}, "t")
		if job.Status != StatusQueued {
			t.Fatalf("job %d enqueued as %s, want queued", i, job.Status)
		}
		jobs = append(jobs, job)
	}

	// At most one job can have left the backlog for the blocked worker.
	if size := o.QueueSize(); size < burst-1 {
		t.Fatalf("QueueSize = %d, want at least %d", size, burst-1)
	}

	close(gate)
	final := waitTerminal(t, o, jobs[burst-1].ID)
	if final.Status != StatusCompleted {
		t.Fatalf("last job ended %s, want completed", final.Status)
	}
}

func TestOrchestrator_GetUnknownJob(t *testing.T) {
	t.Parallel()

	o := New(okAudit(1), zap.NewNop())
	if _, ok := o.Get("nope"); ok {
		t.Fatal("Get on unknown id returned ok")
	}
	if _, ok := o.Events("nope"); ok {
		t.Fatal("Events on unknown id returned ok")
	}
}

func TestOrchestrator_EventsCloseOnTerminal(t *testing.T) {
	t.Parallel()

	o := startOrchestrator(t, okAudit(50))

	job := o.Enqueue(audit.Request{URL: "https://example.com"}, "tester")
	events, ok := o.Events(job.ID)
	if !ok {
		t.Fatal("Events returned no channel")
	}

	var last Event
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, open := <-events:
			if !open {
				if !last.Status.Terminal() {
					t.Fatalf("channel closed before a terminal event, last %+v", last)
				}
				return
			}
			last = ev
			if last.JobID != job.ID {
				t.Errorf("event for wrong job: %+v", last)
			}
		case <-timeout:
			t.Fatal("event channel never closed")
		}
	}
}

func TestOrchestrator_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	o := startOrchestrator(t, okAudit(10))

	job := o.Enqueue(audit.Request{URL: "https://example.com"}, "tester")
	job.Status = Status("tampered")

	final := waitTerminal(t, o, job.ID)
	if final.Status == Status("tampered") {
		t.Fatal("mutating a snapshot changed the stored job")
	}
}

func TestOrchestrator_StopHonorsContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	o := New(func(context.Context, audit.Request) *audit.Result {
		<-release
		return &audit.Result{}
	}, zap.NewNop())
	o.Start()

	o.Enqueue(audit.Request{URL: "https://example.com"}, "t")

	// Give the worker time to pick the job up, then stop with a short
	// deadline while it is still blocked.
	time.Sleep(20 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := o.Stop(ctx); err == nil {
		t.Error("Stop returned nil while a job was still running")
	}
	close(release)
}
