package storage

import (
	"context"
	"sync"
	"time"

	chatmodel "linker/module/chat/model"
	usermodel "linker/module/user/model"
	"linker/tools/errs"
)

// MemoryStore keeps messages in process. Used for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	msgs  []chatmodel.Message
	index map[string]int
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[string]int),
		now:   time.Now,
	}
}

func (m *MemoryStore) Create(ctx context.Context, content string, author usermodel.Identity) (*chatmodel.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err)
	}
	if err := checkCreate(content, author); err != nil {
		return nil, err
	}
	msg := chatmodel.Message{
		ID:        newMessageID(),
		Content:   content,
		User:      author,
		CreatedAt: utcMilli(m.now()),
	}

	m.mu.Lock()
	m.index[msg.ID] = len(m.msgs)
	m.msgs = append(m.msgs, msg)
	m.mu.Unlock()

	out := msg
	return &out, nil
}

// List returns the page immediately older than q.Before. An unknown Before
// yields an empty page.
func (m *MemoryStore) List(ctx context.Context, q chatmodel.ListQuery) ([]chatmodel.Message, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, errs.Wrap(err)
	}
	q = q.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	end := len(m.msgs)
	if q.Before != "" {
		i, ok := m.index[q.Before]
		if !ok {
			return []chatmodel.Message{}, false, nil
		}
		end = i
	}
	start := end - q.Limit
	if start < 0 {
		start = 0
	}
	page := make([]chatmodel.Message, end-start)
	copy(page, m.msgs[start:end])
	return page, start > 0, nil
}

// Len is the number of stored messages.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.msgs)
}
