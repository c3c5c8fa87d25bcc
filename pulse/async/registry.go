package async

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/logger"
)

// Registry assigns job ids, runs each job on its own goroutine and answers
// status queries. Ids start at 1 and are never reused.
//
// Each job is driven by exactly one goroutine; any number of jobs may run
// at once.
type Registry struct {
	handlers *HandlerRegistry
	logger   *zap.SugaredLogger
	ctx      context.Context

	nextID atomic.Int64
	mu     sync.RWMutex
	jobs   map[int64]*Job
	wg     sync.WaitGroup
}

// NewRegistry creates a registry whose jobs run under ctx. Cancelling ctx
// is the only way to interrupt running jobs.
func NewRegistry(ctx context.Context, handlers *HandlerRegistry, log *zap.SugaredLogger) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if handlers == nil {
		handlers = NewHandlerRegistry()
	}
	return &Registry{
		handlers: handlers,
		logger:   log.Named("pulse"),
		ctx:      ctx,
		jobs:     make(map[int64]*Job),
	}
}

// Handlers returns the handler registry jobs are routed through.
func (r *Registry) Handlers() *HandlerRegistry {
	return r.handlers
}

// Submit registers a job for handlerName and starts it. It returns as soon
// as the job is registered.
func (r *Registry) Submit(handlerName string, payload any) (int64, error) {
	handler := r.handlers.Get(handlerName)
	if handler == nil {
		return 0, errors.WithHintf(
			errors.Wrapf(errors.ErrNoHandler, "%s", handlerName),
			"registered handlers: %v", r.handlers.Names())
	}

	id := r.nextID.Add(1)
	job := newJob(id, handlerName, payload)

	r.mu.Lock()
	r.jobs[id] = job
	r.mu.Unlock()

	r.logger.Infow("Job submitted",
		logger.FieldJobID, id,
		logger.FieldHandler, handlerName)

	r.wg.Add(1)
	go r.run(handler, job)
	return id, nil
}

func (r *Registry) run(handler JobHandler, job *Job) {
	defer r.wg.Done()

	ctx := logger.WithJobID(r.ctx, job.ID)
	log := logger.FromContext(ctx, r.logger)

	job.start()
	started := time.Now()

	if err := r.execute(ctx, handler, job); err != nil {
		job.fault(err)
		log.Errorw("Job handler failed, job left running",
			logger.FieldHandler, job.HandlerName,
			logger.FieldError, err)
		return
	}

	job.complete()
	log.Infow("Job completed",
		logger.FieldHandler, job.HandlerName,
		logger.FieldDurationMS, time.Since(started).Milliseconds())
}

func (r *Registry) execute(ctx context.Context, handler JobHandler, job *Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Newf("handler %s panicked: %v", job.HandlerName, p)
		}
	}()
	return handler.Execute(ctx, job)
}

// Get returns the job with id.
func (r *Registry) Get(id int64) (*Job, error) {
	r.mu.RLock()
	job, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("job %d", id)
	}
	return job, nil
}

// Poll returns the current state of job id.
func (r *Registry) Poll(id int64) (Snapshot, error) {
	job, err := r.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return job.Snapshot(), nil
}

// Subscribe streams snapshots of job id. The first value is the current
// state; the channel closes after the completed snapshot or when cancel is
// called. Slow readers miss intermediate updates but always receive the
// completed snapshot.
func (r *Registry) Subscribe(id int64) (<-chan Snapshot, func(), error) {
	job, err := r.Get(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := job.subscribe()
	return ch, cancel, nil
}

// List returns snapshots of every known job ordered by id.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(i, k int) bool { return jobs[i].ID < jobs[k].ID })
	snaps := make([]Snapshot, len(jobs))
	for i, job := range jobs {
		snaps[i] = job.Snapshot()
	}
	return snaps
}

// Wait blocks until every submitted job's handler has returned.
func (r *Registry) Wait() {
	r.wg.Wait()
}
