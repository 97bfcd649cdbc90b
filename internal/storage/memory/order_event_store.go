package memory

import (
	"context"
	"sort"
	"sync"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/storage"
)

// OrderEventStore is an in-memory implementation of storage.OrderEventStore.
type OrderEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OrderEvent // keyed by event_id
}

// NewOrderEventStore creates a new in-memory order event store.
func NewOrderEventStore() *OrderEventStore {
	return &OrderEventStore{
		data: make(map[string]*domain.OrderEvent),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *OrderEventStore) Insert(_ context.Context, e *domain.OrderEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[e.EventID] = &copy
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *OrderEventStore) InsertBulk(_ context.Context, events []*domain.OrderEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(events))

	// First pass: check for duplicates (existing + intra-batch)
	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}

		if _, exists := s.data[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.EventID] = struct{}{}
	}

	// Second pass: insert all
	for _, e := range events {
		copy := *e
		s.data[e.EventID] = &copy
	}

	return nil
}

// GetBySessionID retrieves all events for a session, ordered by timestamp ASC.
func (s *OrderEventStore) GetBySessionID(_ context.Context, sessionID string) ([]*domain.OrderEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OrderEvent
	for _, e := range s.data {
		if e.SessionID == sessionID {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// GetByOrderID retrieves the lifecycle of one order, ordered by timestamp ASC.
func (s *OrderEventStore) GetByOrderID(_ context.Context, orderID string) ([]*domain.OrderEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OrderEvent
	for _, e := range s.data {
		if e.OrderID == orderID {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.OrderEventStore = (*OrderEventStore)(nil)
