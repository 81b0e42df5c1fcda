package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry tracks the controllers that are currently alive. Every controller owns its
// own pty and matcher; the registry only indexes them.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Controller
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Controller),
	}
}

// Add registers c and removes it again once its session ended.
func (r *Registry) Add(c *Controller) {
	r.mu.Lock()
	r.sessions[c.ID()] = c
	r.mu.Unlock()

	go func() {
		<-c.Done()
		r.Remove(c.ID())
	}()
}

// Get returns the controller with the given id, or nil.
func (r *Registry) Get(id string) *Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Remove forgets the controller without stopping it.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// List returns the ids of the registered controllers, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered controllers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// TerminateAll terminates every registered controller.
func (r *Registry) TerminateAll() error {
	r.mu.RLock()
	controllers := make([]*Controller, 0, len(r.sessions))
	for _, c := range r.sessions {
		controllers = append(controllers, c)
	}
	r.mu.RUnlock()

	var errs []error
	for _, c := range controllers {
		if err := c.Terminate(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", c.ID(), err))
		}
	}
	return errors.Join(errs...)
}
