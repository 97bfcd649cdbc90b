package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Bar // keyed by symbol|interval|timestamp_ms
	meta map[string]string      // bar key -> interval
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]*domain.Bar),
		meta: make(map[string]string),
	}
}

func barKey(symbol, interval string, tsMs int64) string {
	return fmt.Sprintf("%s|%s|%d", symbol, interval, tsMs)
}

// InsertBulk adds multiple bars for one interval. Fails entire batch
// on duplicate (symbol, interval, timestamp_ms).
func (s *BarStore) InsertBulk(_ context.Context, interval string, bars []*domain.Bar) error {
	if interval == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(bars))

	// First pass: check for duplicates (existing + intra-batch)
	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(b.Symbol, interval, b.TimestampMs)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, b := range bars {
		key := barKey(b.Symbol, interval, b.TimestampMs)
		copy := *b
		s.data[key] = &copy
		s.meta[key] = interval
	}

	return nil
}

// GetBySymbol retrieves all bars for a symbol/interval, ordered by timestamp ASC.
func (s *BarStore) GetBySymbol(_ context.Context, symbol, interval string) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for key, b := range s.data {
		if b.Symbol == symbol && s.meta[key] == interval {
			copy := *b
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// GetByTimeRange retrieves bars for a symbol/interval within [start, end] (inclusive).
func (s *BarStore) GetByTimeRange(_ context.Context, symbol, interval string, start, end int64) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for key, b := range s.data {
		if b.Symbol == symbol && s.meta[key] == interval && b.TimestampMs >= start && b.TimestampMs <= end {
			copy := *b
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.BarStore = (*BarStore)(nil)
