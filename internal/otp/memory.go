package otp

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu     sync.RWMutex
	byUser map[int64]Code
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUser: make(map[int64]Code)}
}

func (m *MemoryStore) Replace(_ context.Context, c Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[c.UserID] = c
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, code, username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.byUser {
		if c.Code == code && c.Username == username {
			return true, nil
		}
	}
	return false, nil
}
