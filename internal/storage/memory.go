package storage

import (
	"context"
	"sync"

	"github.com/ignite/newsletter-backend/internal/subscriber"
)

// MemoryStore is an in-process subscriber store for local mode and tests.
// Unlike DynamoDB it enforces email uniqueness atomically, which makes it the
// stricter implementation: code that passes against it still has to tolerate
// the best-effort semantics of the real store.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]subscriber.Subscriber
	byEmail map[string]string // email -> id
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]subscriber.Subscriber),
		byEmail: make(map[string]string),
	}
}

// GetByID fetches a record by id. Returns (nil, nil) when absent.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*subscriber.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

// GetByEmail fetches a record by normalized email. Returns (nil, nil) when absent.
func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	sub := s.byID[id]
	return &sub, nil
}

// Put upserts the full record.
func (s *MemoryStore) Put(ctx context.Context, sub *subscriber.Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[sub.ID] = *sub
	s.byEmail[sub.Email] = sub.ID
	return nil
}

// PutIfAbsent creates the record only if neither the id nor the email is
// already present.
func (s *MemoryStore) PutIfAbsent(ctx context.Context, sub *subscriber.Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[sub.ID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := s.byEmail[sub.Email]; ok {
		return ErrAlreadyExists
	}
	s.byID[sub.ID] = *sub
	s.byEmail[sub.Email] = sub.ID
	return nil
}

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
