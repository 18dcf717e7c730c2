package chat

import (
	"sync"

	usermodel "linker/module/user/model"
	"linker/tools/errs"
)

// Registry maps live connection ids to the identity they authenticated as.
// Only the Bind and Unbind calls mutate it.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]usermodel.Identity // conn_id -> identity
}

func NewRegistry() *Registry {
	return &Registry{byConn: make(map[string]usermodel.Identity)}
}

// Bind records or overwrites the identity for connID.
func (r *Registry) Bind(connID string, id usermodel.Identity) error {
	_, err := r.BindCount(connID, id)
	return err
}

// Unbind removes the binding and reports whether one existed.
func (r *Registry) Unbind(connID string) bool {
	removed, _ := r.UnbindCount(connID)
	return removed
}

func (r *Registry) Get(connID string) (usermodel.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byConn[connID]
	return id, ok
}

// Count is the number of bound connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// BindCount binds and returns the count as of that bind, under one lock, so
// concurrent authenticates each observe their own cumulative count.
func (r *Registry) BindCount(connID string, id usermodel.Identity) (int, error) {
	if connID == "" {
		return 0, errs.ErrArgs.WrapMsg("empty conn id")
	}
	if !id.Valid() {
		return 0, errs.ErrArgs.WrapMsg("identity has no id", "conn", connID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[connID] = id
	return len(r.byConn), nil
}

// UnbindCount is Unbind plus the count left behind.
func (r *Registry) UnbindCount(connID string) (removed bool, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byConn[connID]; ok {
		delete(r.byConn, connID)
		removed = true
	}
	return removed, len(r.byConn)
}
