package journal

import (
	"context"
	"sync"
)

// MemoryStore is a Store that keeps the ledger in memory.
// Its zero value is an empty store.
type MemoryStore struct {
	mu     sync.Mutex
	ledger *Ledger
	saves  int
}

func (s *MemoryStore) Load(ctx context.Context) (*Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ledger == nil {
		return nil, ErrNoLedger
	}
	return s.ledger.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, l *Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = l.Clone()
	s.saves++
	return nil
}

// Saves returns the number of successful saves.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
