// Package jobs runs model solves in the background, one queue per process.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	golog "github.com/ipfs/go-log/v2"
)

var log = golog.Logger("jobs")

var (
	// ErrNotFound indicates no job has the requested id.
	ErrNotFound = errors.New("jobs: job not found")
	// ErrShutdown indicates the queue no longer accepts jobs.
	ErrShutdown = errors.New("jobs: queue is shut down")
)

// Status enumerates the execution states of a job.
type Status string

const (
	StatusWaiting   = Status("waiting")
	StatusRunning   = Status("running")
	StatusSucceeded = Status("succeeded")
	StatusFailed    = Status("failed")
	StatusCanceled  = Status("canceled")
)

// Finished reports whether s is a terminal state.
func (s Status) Finished() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// Func is the work a job performs. ctx is canceled when the job is canceled
// or the queue shuts down.
type Func func(ctx context.Context, jobID string) error

// Job is a snapshot of one queued run.
type Job struct {
	ID         string    `json:"id"`
	Scenario   string    `json:"scenario"`
	Status     Status    `json:"status"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

type jobState struct {
	job      Job
	fn       Func
	done     chan struct{}
	cancel   context.CancelFunc
	canceled bool
}

// Queue hands pushed jobs to a fixed set of workers in push order.
type Queue struct {
	lk       sync.Mutex
	waiting  []*jobState
	jobs     map[string]*jobState
	order    []string
	closed   bool
	ready    chan struct{}
	shutdown context.CancelFunc
	wg       sync.WaitGroup
}

// NewQueue starts workers goroutines that run jobs until ctx is done or
// Shutdown is called.
func NewQueue(ctx context.Context, workers int) *Queue {
	ctx, cancel := context.WithCancel(ctx)
	q := &Queue{
		jobs:     map[string]*jobState{},
		ready:    make(chan struct{}, 1),
		shutdown: cancel,
	}
	if workers <= 0 {
		workers = 1
	}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.work(ctx)
	}
	return q
}

// NewID creates a job identifier.
func NewID() string {
	return uuid.New().String()
}

// Push enqueues fn for scenario and returns the new job id.
func (q *Queue) Push(scenario string, fn Func) (string, error) {
	q.lk.Lock()
	defer q.lk.Unlock()
	if q.closed {
		return "", ErrShutdown
	}

	st := &jobState{
		job: Job{
			ID:        NewID(),
			Scenario:  scenario,
			Status:    StatusWaiting,
			CreatedAt: time.Now(),
		},
		fn:   fn,
		done: make(chan struct{}),
	}
	q.jobs[st.job.ID] = st
	q.order = append(q.order, st.job.ID)
	q.waiting = append(q.waiting, st)
	q.signal()

	log.Debugw("job queued", "id", st.job.ID, "scenario", scenario)
	return st.job.ID, nil
}

// Get returns a snapshot of the job with id.
func (q *Queue) Get(id string) (Job, error) {
	q.lk.Lock()
	defer q.lk.Unlock()
	st, ok := q.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return st.job, nil
}

// List returns every job in push order.
func (q *Queue) List() []Job {
	q.lk.Lock()
	defer q.lk.Unlock()
	out := make([]Job, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.jobs[id].job)
	}
	return out
}

// Cancel stops a waiting or running job. Canceling a finished job does
// nothing.
func (q *Queue) Cancel(id string) error {
	q.lk.Lock()
	defer q.lk.Unlock()
	st, ok := q.jobs[id]
	if !ok {
		return ErrNotFound
	}

	switch st.job.Status {
	case StatusWaiting:
		for i, w := range q.waiting {
			if w == st {
				q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
				break
			}
		}
		q.finishLocked(st, StatusCanceled, "")
	case StatusRunning:
		st.canceled = true
		st.cancel()
	}
	return nil
}

// Wait blocks until the job finishes or ctx is done.
func (q *Queue) Wait(ctx context.Context, id string) (Job, error) {
	q.lk.Lock()
	st, ok := q.jobs[id]
	q.lk.Unlock()
	if !ok {
		return Job{}, ErrNotFound
	}

	select {
	case <-st.done:
		return q.Get(id)
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Shutdown cancels every waiting and running job and waits for the workers
// to exit.
func (q *Queue) Shutdown() error {
	q.lk.Lock()
	if q.closed {
		q.lk.Unlock()
		return nil
	}
	q.closed = true
	for _, st := range q.waiting {
		q.finishLocked(st, StatusCanceled, "queue shut down")
	}
	q.waiting = nil
	for _, st := range q.jobs {
		if st.job.Status == StatusRunning {
			st.canceled = true
		}
	}
	q.lk.Unlock()

	q.shutdown()
	q.wg.Wait()
	log.Debug("job queue shut down")
	return nil
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for {
		st, runCtx := q.pop(ctx)
		if st == nil {
			select {
			case <-q.ready:
				continue
			case <-ctx.Done():
				return
			}
		}
		q.run(runCtx, st)
	}
}

func (q *Queue) pop(ctx context.Context) (*jobState, context.Context) {
	q.lk.Lock()
	defer q.lk.Unlock()
	if len(q.waiting) == 0 || ctx.Err() != nil {
		return nil, nil
	}
	st := q.waiting[0]
	q.waiting = q.waiting[1:]
	if len(q.waiting) > 0 {
		q.signal()
	}

	runCtx, cancel := context.WithCancel(ctx)
	st.cancel = cancel
	st.job.Status = StatusRunning
	st.job.StartedAt = time.Now()
	return st, runCtx
}

func (q *Queue) run(ctx context.Context, st *jobState) {
	log.Debugw("job started", "id", st.job.ID)
	err := st.fn(ctx, st.job.ID)

	q.lk.Lock()
	defer q.lk.Unlock()
	st.cancel()
	switch {
	case st.canceled:
		q.finishLocked(st, StatusCanceled, "")
	case err != nil:
		q.finishLocked(st, StatusFailed, err.Error())
	default:
		q.finishLocked(st, StatusSucceeded, "")
	}
	log.Debugw("job finished", "id", st.job.ID, "status", st.job.Status, "error", err)
}

func (q *Queue) finishLocked(st *jobState, status Status, message string) {
	st.job.Status = status
	st.job.Message = message
	st.job.FinishedAt = time.Now()
	close(st.done)
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
