package quotastore

import (
	"context"
	"sync"
)

// MemoryStore is an in-process CounterStore guarded by a mutex. Used in
// tests and single-instance development mode; counters do not survive a
// restart.
type MemoryStore struct {
	mu        sync.RWMutex
	used      map[counterKey]int64
	allowance map[counterKey]int64
}

type counterKey struct {
	userID string
	period string
}

var _ CounterStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		used:      make(map[counterKey]int64),
		allowance: make(map[counterKey]int64),
	}
}

func (s *MemoryStore) GetUsed(_ context.Context, userID, period string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used[counterKey{userID, period}], nil
}

func (s *MemoryStore) AddUsed(_ context.Context, userID, period string, tokens int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := counterKey{userID, period}
	s.used[key] += clampTokens(tokens)
	return s.used[key], nil
}

func (s *MemoryStore) GetAllowance(_ context.Context, userID, period string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allowance[counterKey{userID, period}], nil
}

func (s *MemoryStore) AddAllowance(_ context.Context, userID, period string, tokens int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := counterKey{userID, period}
	s.allowance[key] += clampTokens(tokens)
	return s.allowance[key], nil
}
