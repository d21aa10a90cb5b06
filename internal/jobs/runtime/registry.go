package runtime

import (
	"fmt"
	"sync"
)

// Handler runs one pipeline stage. Errors are reported through ctx.Fail; a
// returned error means the handler could not even report.
type Handler interface {
	Type() string
	Run(ctx *Context) error
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for stage=%s", t)
	}
	r.handlers[t] = h
	r.order = append(r.order, t)
	return nil
}

func (r *Registry) Get(stage string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[stage]
	return h, ok
}

// Stages lists registered stage names in registration order.
func (r *Registry) Stages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
