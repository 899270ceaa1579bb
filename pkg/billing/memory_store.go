package billing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*Subscriber
	byEmail map[string]uuid.UUID
}

// NewMemoryStore returns an in-memory SubscriberStore with the same
// optimistic-concurrency semantics as the durable backends. Intended for
// tests and single-process development setups.
func NewMemoryStore() SubscriberStore {
	return &memoryStore{
		byID:    make(map[uuid.UUID]*Subscriber),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *memoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subscriber, ok := s.byID[id]
	if !ok {
		return nil, ErrSubscriberNotFound
	}
	return subscriber.clone(), nil
}

func (s *memoryStore) GetByEmail(ctx context.Context, email string) (*Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrSubscriberNotFound
	}
	return s.byID[id].clone(), nil
}

func (s *memoryStore) Create(ctx context.Context, subscriber *Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := subscriber.clone()
	stored.UpdatedAt = time.Now().UTC()
	s.byID[stored.ID] = stored
	s.byEmail[normalizeEmail(stored.Email)] = stored.ID
	return nil
}

func (s *memoryStore) Update(ctx context.Context, subscriber *Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[subscriber.ID]
	if !ok {
		return ErrSubscriberNotFound
	}
	if current.Version != subscriber.Version {
		return ErrVersionConflict
	}

	stored := subscriber.clone()
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	if old := normalizeEmail(current.Email); old != normalizeEmail(stored.Email) {
		delete(s.byEmail, old)
	}
	s.byID[stored.ID] = stored
	s.byEmail[normalizeEmail(stored.Email)] = stored.ID

	// Reflect the committed version back to the caller, matching the
	// RETURNING behavior of the SQL backend.
	subscriber.Version = stored.Version
	subscriber.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *memoryStore) ListBilled(ctx context.Context) ([]*Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Subscriber
	for _, subscriber := range s.byID {
		if subscriber.Status != StatusNone {
			out = append(out, subscriber.clone())
		}
	}
	return out, nil
}

func (s *memoryStore) ListLapsedPro(ctx context.Context, now time.Time) ([]*Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Subscriber
	for _, subscriber := range s.byID {
		if subscriber.Plan == PlanPro && subscriber.ExpiresAt != nil && subscriber.ExpiresAt.Before(now) {
			out = append(out, subscriber.clone())
		}
	}
	return out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
