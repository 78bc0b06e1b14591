// memory based implementation for testing and single-process deployments
package memory

import (
	"context"
	"sync"

	"github.com/samber/mo"

	"github.com/cyp0633/libcalsched/server/storage"
)

// Store implements storage.Storage interface using an in-memory map
type Store struct {
	mu     sync.RWMutex
	events map[string]storage.Event
	order  []string // insertion order of ids
}

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		events: make(map[string]storage.Event),
	}
}

func (s *Store) insertLocked(event storage.Event) (storage.Event, error) {
	if event.ID == "" {
		event.ID = storage.NewID()
	}
	if _, exists := s.events[event.ID]; exists {
		return storage.Event{}, storage.NewError(storage.ErrAlreadyExists, "event %s already exists", event.ID)
	}
	event = event.Clone()
	s.events[event.ID] = event
	s.order = append(s.order, event.ID)
	return event.Clone(), nil
}

func (s *Store) deleteLocked(id string) bool {
	if _, exists := s.events[id]; !exists {
		return false
	}
	delete(s.events, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Store) Insert(_ context.Context, event storage.Event) (storage.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(event)
}

func (s *Store) Update(_ context.Context, id string, patch storage.EventPatch) (storage.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[id]
	if !ok {
		return storage.Event{}, storage.NewError(storage.ErrNotFound, "event %s not found", id)
	}

	updated := patch.Apply(existing)
	updated.ID = id
	s.events[id] = updated
	return updated.Clone(), nil
}

func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteLocked(id), nil
}

func (s *Store) BulkInsert(_ context.Context, events []storage.Event) ([]storage.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Reject the whole batch before touching the map.
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e.ID == "" {
			continue
		}
		if _, exists := s.events[e.ID]; exists {
			return nil, storage.NewError(storage.ErrAlreadyExists, "event %s already exists", e.ID)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, storage.NewError(storage.ErrAlreadyExists, "event %s appears twice in batch", e.ID)
		}
		seen[e.ID] = struct{}{}
	}

	created := make([]storage.Event, 0, len(events))
	for _, e := range events {
		stored, err := s.insertLocked(e)
		if err != nil {
			// unreachable after the pre-check, roll back anyway
			for _, c := range created {
				s.deleteLocked(c.ID)
			}
			return nil, err
		}
		created = append(created, stored)
	}
	return created, nil
}

func (s *Store) BulkDelete(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, id := range ids {
		if s.deleteLocked(id) {
			count++
		}
	}
	return count, nil
}

func (s *Store) Get(_ context.Context, id string) (mo.Option[storage.Event], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return mo.None[storage.Event](), nil
	}
	return mo.Some(event.Clone()), nil
}

func (s *Store) All(_ context.Context) ([]storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]storage.Event, 0, len(s.order))
	for _, id := range s.order {
		events = append(events, s.events[id].Clone())
	}
	return events, nil
}
