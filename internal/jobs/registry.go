// Package jobs tracks background analysis runs.
//
// A job starts running and moves to exactly one terminal status
// (completed, failed or cancelled). Terminal jobs are evicted after a TTL
// or on Discard.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/internal/models"
)

const DefaultTTL = time.Hour

// ProgressFunc records the step a running job has reached.
type ProgressFunc func(step, message string)

// Listener observes every progress change of every job, including the
// final one. It is called outside the registry locks.
type Listener func(jobID, step, message string)

// Task is the body of a job. Its context is cancelled by Cancel or Close.
type Task func(ctx context.Context, progress ProgressFunc) (*models.AnalysisRecord, error)

type entry struct {
	mu     sync.Mutex
	job    models.WorkflowJob
	cancel context.CancelFunc
	done   chan struct{}
}

func (e *entry) snapshot() models.WorkflowJob {
	e.mu.Lock()
	defer e.mu.Unlock()
	job := e.job
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		job.CompletedAt = &t
	}
	return job
}

type Registry struct {
	mu      sync.RWMutex
	jobs    map[string]*entry
	running map[string]string

	ttl      time.Duration
	now      func() time.Time
	logger   arbor.ILogger
	listener Listener

	base      context.Context
	stopBase  context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type Option func(*Registry)

// WithTTL sets how long terminal jobs stay queryable. Zero disables the
// janitor and keeps them until Discard.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithListener(l Listener) Option {
	return func(r *Registry) { r.listener = l }
}

func WithLogger(logger arbor.ILogger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		jobs:    make(map[string]*entry),
		running: make(map[string]string),
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  arbor.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.base, r.stopBase = context.WithCancel(context.Background())
	if r.ttl > 0 {
		r.wg.Add(1)
		go r.janitor()
	}
	return r
}

// Start launches task for ticker unless a job for that ticker is already
// running, in which case the running job's id is returned with joined set.
func (r *Registry) Start(ticker string, task Task) (id string, joined bool) {
	r.mu.Lock()
	if existing, ok := r.running[ticker]; ok {
		r.mu.Unlock()
		r.logger.Info().Str("ticker", ticker).Str("job_id", existing).Msg("joining running job")
		return existing, true
	}

	ctx, cancel := context.WithCancel(r.base)
	e := &entry{
		job: models.WorkflowJob{
			ID:              uuid.NewString(),
			Ticker:          ticker,
			Status:          models.JobRunning,
			CurrentStep:     models.StepInitializing,
			ProgressMessage: fmt.Sprintf("Starting analysis for %s", ticker),
			StartedAt:       r.now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	id = e.job.ID
	r.jobs[id] = e
	r.running[ticker] = id
	r.mu.Unlock()

	r.logger.Info().Str("ticker", ticker).Str("job_id", id).Msg("job started")

	r.wg.Add(1)
	go r.run(ctx, e, task)
	return id, false
}

func (r *Registry) run(ctx context.Context, e *entry, task Task) {
	defer r.wg.Done()
	defer e.cancel()

	var (
		rec *models.AnalysisRecord
		err error
	)
	func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error().Str("job_id", e.job.ID).Str("panic", fmt.Sprintf("%v", p)).Msg("panic recovered in job")
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		rec, err = task(ctx, func(step, message string) { r.progress(e, step, message) })
	}()

	if err != nil {
		if ctx.Err() != nil {
			r.finish(e, models.JobCancelled, nil, "cancelled")
			return
		}
		r.finish(e, models.JobFailed, nil, err.Error())
		return
	}
	r.finish(e, models.JobCompleted, rec, "")
}

func (r *Registry) progress(e *entry, step, message string) {
	e.mu.Lock()
	if e.job.Status.Terminal() {
		e.mu.Unlock()
		return
	}
	e.job.CurrentStep = step
	e.job.ProgressMessage = message
	id := e.job.ID
	e.mu.Unlock()

	r.notify(id, step, message)
}

func (r *Registry) notify(id, step, message string) {
	if r.listener != nil {
		r.listener(id, step, message)
	}
}

// finish applies a terminal transition. It reports false when the job had
// already left running.
func (r *Registry) finish(e *entry, status models.JobStatus, rec *models.AnalysisRecord, errMsg string) bool {
	e.mu.Lock()
	if e.job.Status.Terminal() {
		e.mu.Unlock()
		return false
	}
	now := r.now()
	e.job.Status = status
	e.job.CompletedAt = &now
	switch status {
	case models.JobCompleted:
		e.job.Result = rec
		e.job.CurrentStep = models.StepCompleted
		e.job.ProgressMessage = "Analysis complete"
	case models.JobFailed:
		e.job.Error = errMsg
		e.job.CurrentStep = models.StepError
		e.job.ProgressMessage = "Analysis failed: " + errMsg
	case models.JobCancelled:
		e.job.Error = errMsg
		e.job.ProgressMessage = "Analysis cancelled"
	}
	id, ticker := e.job.ID, e.job.Ticker
	step, message := e.job.CurrentStep, e.job.ProgressMessage
	e.mu.Unlock()

	r.mu.Lock()
	if r.running[ticker] == id {
		delete(r.running, ticker)
	}
	r.mu.Unlock()

	r.logger.Info().Str("job_id", id).Str("ticker", ticker).Str("status", string(status)).Msg("job finished")
	r.notify(id, step, message)
	close(e.done)
	return true
}

// Get returns a copy of the job.
func (r *Registry) Get(id string) (models.WorkflowJob, error) {
	r.mu.RLock()
	e, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return models.WorkflowJob{}, fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
	}
	return e.snapshot(), nil
}

// Running returns the id of the job currently running for ticker.
func (r *Registry) Running(ticker string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.running[ticker]
	return id, ok
}

// Wait blocks until the job is terminal or ctx is done.
func (r *Registry) Wait(ctx context.Context, id string) (models.WorkflowJob, error) {
	r.mu.RLock()
	e, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return models.WorkflowJob{}, fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
	}
	select {
	case <-e.done:
		return e.snapshot(), nil
	case <-ctx.Done():
		return e.snapshot(), ctx.Err()
	}
}

// Cancel moves a running job to cancelled and cancels its context.
func (r *Registry) Cancel(id string) error {
	r.mu.RLock()
	e, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
	}
	if !r.finish(e, models.JobCancelled, nil, "cancelled by request") {
		return fmt.Errorf("%w: %s", models.ErrJobTerminal, id)
	}
	e.cancel()
	return nil
}

// Discard forgets a terminal job. Running jobs cannot be discarded.
func (r *Registry) Discard(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
	}
	if !e.snapshot().Status.Terminal() {
		return fmt.Errorf("job %s is still running", id)
	}
	delete(r.jobs, id)
	return nil
}

// Sweep evicts terminal jobs older than the TTL and returns how many went.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, e := range r.jobs {
		job := e.snapshot()
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(r.jobs, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.logger.Debug().Int("evicted", evicted).Msg("expired jobs evicted")
	}
	return evicted
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

func (r *Registry) janitor() {
	defer r.wg.Done()
	interval := r.ttl / 2
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-r.base.Done():
			return
		}
	}
}

// Close cancels every running job and waits for their goroutines.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		r.stopBase()
		r.wg.Wait()
	})
}
