package memory

import (
	"context"
	"sort"
	"sync"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/storage"
)

// FillStore is an in-memory implementation of storage.FillStore.
type FillStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Fill // keyed by fill_id
}

// NewFillStore creates a new in-memory fill store.
func NewFillStore() *FillStore {
	return &FillStore{
		data: make(map[string]*domain.Fill),
	}
}

// copyFill clones a fill including its optional PnL fields so callers
// never share pointers with the store.
func copyFill(f *domain.Fill) *domain.Fill {
	c := *f
	if f.PnL != nil {
		v := *f.PnL
		c.PnL = &v
	}
	if f.PnLPct != nil {
		v := *f.PnLPct
		c.PnLPct = &v
	}
	return &c
}

// Insert adds a new fill. Returns ErrDuplicateKey if fill_id exists.
func (s *FillStore) Insert(_ context.Context, f *domain.Fill) error {
	if f == nil || f.FillID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[f.FillID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[f.FillID] = copyFill(f)
	return nil
}

// InsertBulk adds multiple fills atomically. Fails entire batch on any duplicate.
func (s *FillStore) InsertBulk(_ context.Context, fills []*domain.Fill) error {
	if len(fills) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(fills))

	// First pass: check for duplicates (existing + intra-batch)
	for _, f := range fills {
		if f == nil || f.FillID == "" {
			return storage.ErrInvalidInput
		}

		if _, exists := s.data[f.FillID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[f.FillID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[f.FillID] = struct{}{}
	}

	// Second pass: insert all
	for _, f := range fills {
		s.data[f.FillID] = copyFill(f)
	}

	return nil
}

// GetByID retrieves a fill by its ID. Returns ErrNotFound if not exists.
func (s *FillStore) GetByID(_ context.Context, fillID string) (*domain.Fill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, exists := s.data[fillID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyFill(f), nil
}

// GetBySessionID retrieves all fills for a session, ordered by timestamp ASC.
func (s *FillStore) GetBySessionID(_ context.Context, sessionID string) ([]*domain.Fill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Fill
	for _, f := range s.data {
		if f.SessionID == sessionID {
			result = append(result, copyFill(f))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// GetByTimeRange retrieves fills for a session within [start, end] (inclusive).
func (s *FillStore) GetByTimeRange(_ context.Context, sessionID string, start, end int64) ([]*domain.Fill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Fill
	for _, f := range s.data {
		if f.SessionID == sessionID && f.TimestampMs >= start && f.TimestampMs <= end {
			result = append(result, copyFill(f))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.FillStore = (*FillStore)(nil)
