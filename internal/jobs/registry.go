package jobs

import "sync"

// Handler runs one claimed job. Implementations report the result through
// the job context and must be safe to re-run.
type Handler interface {
	Run(jc *Context)
}

type HandlerFunc func(jc *Context)

func (f HandlerFunc) Run(jc *Context) { f(jc) }

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

func (r *Registry) Register(jobType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = h
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}
