package service

import (
	"context"
	"sync"

	usermodel "linker/module/user/model"
	"linker/tools/errs"
)

// MemoryRepository keeps accounts in a map. It holds the accounts seeded
// from config when there is no Postgres.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]usermodel.User
}

func NewMemoryRepository(users ...usermodel.User) *MemoryRepository {
	r := &MemoryRepository{users: make(map[string]usermodel.User, len(users))}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *MemoryRepository) Put(u usermodel.User) {
	r.mu.Lock()
	r.users[u.ID] = u
	r.mu.Unlock()
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*usermodel.User, error) {
	r.mu.RLock()
	u, ok := r.users[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("user not found", "id", id)
	}
	return &u, nil
}

func (r *MemoryRepository) FindByUsername(_ context.Context, username string) (*usermodel.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, errs.ErrRecordNotFound.WrapMsg("user not found", "username", username)
}
