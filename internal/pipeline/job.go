package pipeline

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"filmdex/internal/logging"
)

// JobState describes where a tracked batch is in its lifecycle.
type JobState string

const (
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobError   JobState = "error"
)

// PhaseProgress is a monotonic completed/total pair for one phase.
type PhaseProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// JobSnapshot is a point-in-time copy of one tracked job. Result is only
// set once the job reaches a terminal state.
type JobSnapshot struct {
	ID        string                  `json:"id"`
	State     JobState                `json:"state"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
	Progress  map[Phase]PhaseProgress `json:"progress"`
	Errors    []string                `json:"errors,omitempty"`
	Result    *Result                 `json:"result,omitempty"`
}

func (s *JobSnapshot) clone() JobSnapshot {
	copied := *s
	copied.Progress = make(map[Phase]PhaseProgress, len(s.Progress))
	for phase, progress := range s.Progress {
		copied.Progress[phase] = progress
	}
	copied.Errors = append([]string(nil), s.Errors...)
	return copied
}

type trackerEvent struct {
	jobID    string
	progress *ProgressEvent
	finish   bool
	result   *Result
	err      error
}

// Tracker keeps in-memory state for asynchronous batch jobs. Updates
// funnel through one consumer goroutine; readers always get copies.
// Progress updates are best-effort and may be dropped under load, while
// terminal updates are never dropped. Finished jobs stay readable for
// the retention window and are pruned afterwards.
type Tracker struct {
	mu        sync.RWMutex
	jobs      map[string]*JobSnapshot
	retention time.Duration
	events    chan trackerEvent
	stop      chan struct{}
	stopOnce  sync.Once
	logger    *slog.Logger
}

// NewTracker starts a Tracker whose finished jobs expire after retention.
// Zero or negative retention keeps jobs until Close.
func NewTracker(retention time.Duration, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = logging.NewNop()
	}
	t := &Tracker{
		jobs:      make(map[string]*JobSnapshot),
		retention: retention,
		events:    make(chan trackerEvent, 256),
		stop:      make(chan struct{}),
		logger:    logger,
	}
	go t.loop()
	return t
}

// Start registers a new running job and returns its identifier.
func (t *Tracker) Start() string {
	id := uuid.NewString()
	now := time.Now()
	t.mu.Lock()
	t.jobs[id] = &JobSnapshot{
		ID:        id,
		State:     JobRunning,
		CreatedAt: now,
		UpdatedAt: now,
		Progress:  make(map[Phase]PhaseProgress),
	}
	t.mu.Unlock()
	t.logger.Debug("job started", logging.String("job_id", id))
	return id
}

// Progress returns a RunOptions callback that feeds this job. The
// callback is safe for concurrent use by pipeline workers.
func (t *Tracker) Progress(jobID string) func(ProgressEvent) {
	return func(event ProgressEvent) {
		select {
		case t.events <- trackerEvent{jobID: jobID, progress: &event}:
		default:
		}
	}
}

// Finish records a job's terminal state. A nil err marks the job done;
// otherwise the job is marked failed with err on its error log.
func (t *Tracker) Finish(jobID string, result *Result, err error) {
	select {
	case t.events <- trackerEvent{jobID: jobID, finish: true, result: result, err: err}:
	case <-t.stop:
	}
}

// Get returns a copy of one job, reporting false for unknown or expired
// identifiers.
func (t *Tracker) Get(jobID string) (JobSnapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[jobID]
	if !ok || t.expired(job, time.Now()) {
		return JobSnapshot{}, false
	}
	return job.clone(), true
}

// List returns copies of all live jobs, newest first.
func (t *Tracker) List() []JobSnapshot {
	now := time.Now()
	t.mu.RLock()
	out := make([]JobSnapshot, 0, len(t.jobs))
	for _, job := range t.jobs {
		if !t.expired(job, now) {
			out = append(out, job.clone())
		}
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Close stops the consumer goroutine. Tracked state becomes frozen;
// subsequent Finish calls return without effect.
func (t *Tracker) Close() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *Tracker) loop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case event := <-t.events:
			t.apply(event)
		case <-ticker.C:
			t.prune(time.Now())
		case <-t.stop:
			return
		}
	}
}

func (t *Tracker) apply(event trackerEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[event.jobID]
	if !ok {
		return
	}
	job.UpdatedAt = time.Now()
	if event.progress != nil {
		current := job.Progress[event.progress.Phase]
		if event.progress.Current > current.Current {
			current.Current = event.progress.Current
		}
		current.Total = event.progress.Total
		job.Progress[event.progress.Phase] = current
		return
	}
	if !event.finish {
		return
	}
	job.Result = event.result
	if event.err != nil {
		job.State = JobError
		job.Errors = append(job.Errors, event.err.Error())
	} else {
		job.State = JobDone
	}
	if event.result != nil {
		for _, entry := range event.result.Entries {
			if entry.Error != "" {
				job.Errors = append(job.Errors, fmt.Sprintf("%s: %s", entry.CanonicalURL, entry.Error))
			}
		}
	}
}

// expired reports whether a terminal job has outlived the retention
// window. Running jobs never expire.
func (t *Tracker) expired(job *JobSnapshot, now time.Time) bool {
	if t.retention <= 0 || job.State == JobRunning {
		return false
	}
	return now.Sub(job.UpdatedAt) > t.retention
}

func (t *Tracker) prune(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, job := range t.jobs {
		if t.expired(job, now) {
			delete(t.jobs, id)
		}
	}
}
