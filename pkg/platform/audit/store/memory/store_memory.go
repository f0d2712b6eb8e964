package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	audit "onekyc/pkg/platform/audit"

	"github.com/google/uuid"
)

// InMemoryStore keeps audit events per case and doubles as an outbox so the
// relay can run without Postgres.
type InMemoryStore struct {
	mu        sync.RWMutex
	events    map[string][]audit.Event
	outbox    []audit.OutboxEntry
	published map[uuid.UUID]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events:    make(map[string][]audit.Event),
		published: make(map[uuid.UUID]bool),
	}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.CaseID] = append(s.events[event.CaseID], event)
	s.outbox = append(s.outbox, audit.OutboxEntry{
		ID:          event.ID,
		AggregateID: event.CaseID,
		EventType:   event.Action,
		Payload:     payload,
		CreatedAt:   event.Timestamp,
	})
	return nil
}

// ListByCase returns events for one case in append order.
func (s *InMemoryStore) ListByCase(_ context.Context, caseID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[caseID]...), nil
}

func (s *InMemoryStore) FetchUnpublished(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.OutboxEntry
	for _, e := range s.outbox {
		if s.published[e.ID] {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.published[id] = true
	}
	return nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]audit.Event)
	s.outbox = nil
	s.published = make(map[uuid.UUID]bool)
}
