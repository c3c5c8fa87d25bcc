package async

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// JobHandler runs one kind of job. It reads its own payload type from
// job.Payload, reports through SetTotal, Advance and SetResult, and returns
// an error only when the job as a whole cannot continue. A returned error
// leaves the job Running with the message visible to pollers.
type JobHandler interface {
	Name() string
	Execute(ctx context.Context, job *Job) error
}

// HandlerFunc adapts a function to JobHandler under a fixed name.
type HandlerFunc struct {
	HandlerName string
	Fn          func(ctx context.Context, job *Job) error
}

func (h HandlerFunc) Name() string { return h.HandlerName }

func (h HandlerFunc) Execute(ctx context.Context, job *Job) error { return h.Fn(ctx, job) }

// HandlerRegistry maps handler names to handlers. Registration normally
// happens at startup; lookups happen on every Submit.
type HandlerRegistry struct {
	mu     sync.RWMutex
	byName map[string]JobHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{byName: make(map[string]JobHandler)}
}

// Register adds handlers. Two handlers with one name is a wiring bug and
// panics.
func (r *HandlerRegistry) Register(handlers ...JobHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range handlers {
		name := h.Name()
		if _, dup := r.byName[name]; dup {
			panic(fmt.Sprintf("async: handler %q registered twice", name))
		}
		r.byName[name] = h
	}
}

// Get returns the handler for name, or nil.
func (r *HandlerRegistry) Get(name string) JobHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

func (r *HandlerRegistry) Has(name string) bool {
	return r.Get(name) != nil
}

// Names lists registered handler names in order.
func (r *HandlerRegistry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
