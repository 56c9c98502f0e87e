// Package lock provides the per-tenant scan lock registry. It is a
// single-process, in-memory check-and-set flag: horizontal scaling
// beyond one process requires an external lock.
package lock

import "sync"

// Registry tracks which tenants currently hold a scan lock.
type Registry struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{held: make(map[string]bool)}
}

// TryAcquire attempts to take the lock for a tenant. It never blocks:
// if the lock is already held it returns false immediately.
func (r *Registry) TryAcquire(tenantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.held[tenantID] {
		return false
	}
	r.held[tenantID] = true
	return true
}

// Release frees the lock for a tenant. Releasing an unheld lock is a
// no-op.
func (r *Registry) Release(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, tenantID)
}

// Held reports whether a tenant currently holds its lock.
func (r *Registry) Held(tenantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.held[tenantID]
}
