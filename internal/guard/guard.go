// Package guard tracks which sessions have an exam in progress so that
// leaving mid-attempt requires an explicit confirmation. The HTTP layer
// turns an armed guard into a 409 until the client repeats the request
// with confirm=true.
package guard

import "sync"

// Registry is the in-process set of armed sessions.
type Registry struct {
	mu    sync.RWMutex
	armed map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{armed: make(map[string]bool)}
}

// Arm marks the session's attempt as in progress. Arming an already
// armed session is a no-op, so re-entering the exam view after a
// refresh never double-registers.
func (r *Registry) Arm(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed[sid] = true
}

// Disarm lifts the guard. Called on submit, abandon and confirmed exit.
func (r *Registry) Disarm(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.armed, sid)
}

// Armed reports whether leaving would discard an in-progress attempt.
func (r *Registry) Armed(sid string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.armed[sid]
}
