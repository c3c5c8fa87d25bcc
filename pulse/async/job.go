// Package async runs ingestion jobs in the background and tracks their
// progress for pollers and subscribers.
package async

import (
	"sync"
	"time"
)

// JobStatus represents the current state of a job.
//
// There is no failed state: a handler that returns an error leaves its job
// Running with Error set, and pollers must apply their own timeout.
type JobStatus string

const (
	JobStatusCreated   JobStatus = "created"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
)

// IsValidStatus returns true if the status string is a valid JobStatus
func IsValidStatus(s string) bool {
	switch JobStatus(s) {
	case JobStatusCreated, JobStatusRunning, JobStatusCompleted:
		return true
	default:
		return false
	}
}

// Progress represents job progress information
type Progress struct {
	Current int `json:"current"` // Completed operations
	Total   int `json:"total"`   // Total operations
}

// Fraction returns progress in [0, 1]. Without a total it is zero.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Current) / float64(p.Total)
	if f > 1 {
		return 1
	}
	return f
}

// Percentage calculates progress as a percentage (0-100)
func (p Progress) Percentage() float64 {
	return p.Fraction() * 100
}

// Job is one background execution of a handler. Handlers report through
// SetTotal, Advance and SetResult; everything else is owned by the Registry.
type Job struct {
	ID          int64
	HandlerName string
	Payload     any

	mu          sync.Mutex
	status      JobStatus
	progress    Progress
	result      any
	err         string
	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time
	updatedAt   time.Time
	subscribers map[*subscription]struct{}
}

func newJob(id int64, handlerName string, payload any) *Job {
	now := time.Now()
	return &Job{
		ID:          id,
		HandlerName: handlerName,
		Payload:     payload,
		status:      JobStatusCreated,
		createdAt:   now,
		updatedAt:   now,
		subscribers: make(map[*subscription]struct{}),
	}
}

// Snapshot is a point-in-time copy of a job's externally visible state.
type Snapshot struct {
	ID          int64      `json:"id"`
	HandlerName string     `json:"handler_name"`
	Status      JobStatus  `json:"status"`
	Progress    float64    `json:"progress"`
	Current     int        `json:"current"`
	Total       int        `json:"total"`
	Completed   bool       `json:"completed"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Final reports whether no further updates will follow: the job completed,
// or its handler failed.
func (s Snapshot) Final() bool {
	return s.Completed || s.Error != ""
}

// Snapshot returns the job's current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

func (j *Job) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:          j.ID,
		HandlerName: j.HandlerName,
		Status:      j.status,
		Progress:    j.progress.Fraction(),
		Current:     j.progress.Current,
		Total:       j.progress.Total,
		Completed:   j.status == JobStatusCompleted,
		Error:       j.err,
		CreatedAt:   j.createdAt,
		StartedAt:   j.startedAt,
		CompletedAt: j.completedAt,
		UpdatedAt:   j.updatedAt,
	}
	if s.Completed {
		s.Progress = 1
		s.Result = j.result
	}
	return s
}

// SetTotal sets the number of operations the job will perform.
func (j *Job) SetTotal(total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.Total = total
	j.touchLocked()
}

// Advance records that current operations have finished. Progress never
// moves backwards; lower values are ignored.
func (j *Job) Advance(current int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if current <= j.progress.Current {
		return
	}
	if j.progress.Total > 0 && current > j.progress.Total {
		current = j.progress.Total
	}
	j.progress.Current = current
	j.touchLocked()
}

// SetResult stores the value pollers receive once the job completes.
func (j *Job) SetResult(result any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = result
}

// Status returns the job's state.
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.status = JobStatusRunning
	j.startedAt = &now
	j.touchLocked()
}

func (j *Job) complete() {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.status = JobStatusCompleted
	j.completedAt = &now
	j.progress.Current = j.progress.Total
	j.touchLocked()
	j.closeSubscribersLocked()
}

// fault records a handler error. The job stays Running, but nothing more
// will happen to it, so subscribers get the error and are closed.
func (j *Job) fault(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.err = err.Error()
	j.touchLocked()
	j.closeSubscribersLocked()
}

func (j *Job) touchLocked() {
	j.updatedAt = time.Now()
	snap := j.snapshotLocked()
	for sub := range j.subscribers {
		sub.offer(snap)
	}
}
