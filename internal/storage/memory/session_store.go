package memory

import (
	"context"
	"sort"
	"sync"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/storage"
)

// SessionStore is an in-memory implementation of storage.SessionStore.
type SessionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SessionSummary // keyed by session_id
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		data: make(map[string]*domain.SessionSummary),
	}
}

// Insert adds a new summary. Returns ErrDuplicateKey if session_id exists.
func (s *SessionStore) Insert(_ context.Context, sum *domain.SessionSummary) error {
	if sum == nil || sum.SessionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sum.SessionID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *sum
	s.data[sum.SessionID] = &copy
	return nil
}

// GetByID retrieves a summary by session ID. Returns ErrNotFound if not exists.
func (s *SessionStore) GetByID(_ context.Context, sessionID string) (*domain.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, exists := s.data[sessionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *sum
	return &copy, nil
}

// GetBySymbol retrieves all summaries for a symbol, ordered by start ASC.
func (s *SessionStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SessionSummary
	for _, sum := range s.data {
		if sum.Symbol == symbol {
			copy := *sum
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartMs < result[j].StartMs
	})

	return result, nil
}

var _ storage.SessionStore = (*SessionStore)(nil)
