package schedule

import (
	"context"
	"fmt"

	"github.com/cyp0633/libcalsched/server/storage"
)

// CreateEvent validates and stores a new event.
func (s *Service) CreateEvent(ctx context.Context, event storage.Event) (storage.Event, error) {
	if err := storage.ValidateEvent(event); err != nil {
		return storage.Event{}, err
	}

	var created storage.Event
	err := s.mutate(ctx, "create", func() (bool, error) {
		var err error
		created, err = s.store.Insert(ctx, event)
		return err == nil, err
	})
	if err != nil {
		return storage.Event{}, fmt.Errorf("failed to create event: %w", err)
	}

	s.logger.Info("event created",
		"event_id", created.ID,
		"type", created.Type,
		"recurring", created.IsRecurring)
	return created, nil
}

// UpdateEvent merges patch into the stored event. The merged result is
// validated before anything is written.
func (s *Service) UpdateEvent(ctx context.Context, id string, patch storage.EventPatch) (storage.Event, error) {
	var updated storage.Event
	err := s.mutate(ctx, "update", func() (bool, error) {
		current, err := s.store.Get(ctx, id)
		if err != nil {
			return false, err
		}
		existing, ok := current.Get()
		if !ok {
			return false, storage.NewError(storage.ErrNotFound, "event %s not found", id)
		}
		if err := storage.ValidateEvent(patch.Apply(existing)); err != nil {
			return false, err
		}
		updated, err = s.store.Update(ctx, id, patch)
		return err == nil, err
	})
	if err != nil {
		return storage.Event{}, err
	}

	s.logger.Info("event updated", "event_id", id)
	return updated, nil
}

// DeleteEvent removes an event. Returns ErrNotFound for unknown ids.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	err := s.mutate(ctx, "delete", func() (bool, error) {
		removed, err := s.store.Delete(ctx, id)
		if err != nil {
			return false, err
		}
		if !removed {
			return false, storage.NewError(storage.ErrNotFound, "event %s not found", id)
		}
		return true, nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("event deleted", "event_id", id)
	return nil
}

// CreateBulkEvents validates every event first and stores none of them if
// any is invalid.
func (s *Service) CreateBulkEvents(ctx context.Context, events []storage.Event) ([]storage.Event, error) {
	for i, e := range events {
		if err := storage.ValidateEvent(e); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	if len(events) == 0 {
		return []storage.Event{}, nil
	}

	var created []storage.Event
	err := s.mutate(ctx, "bulk_create", func() (bool, error) {
		var err error
		created, err = s.store.BulkInsert(ctx, events)
		return err == nil, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create events: %w", err)
	}

	s.logger.Info("events created", "count", len(created))
	return created, nil
}

// DeleteBulkEvents removes the given ids and returns how many existed.
// Listeners are only notified when something was removed.
func (s *Service) DeleteBulkEvents(ctx context.Context, ids []string) (int, error) {
	var removed int
	err := s.mutate(ctx, "bulk_delete", func() (bool, error) {
		var err error
		removed, err = s.store.BulkDelete(ctx, ids)
		return err == nil && removed > 0, err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}

	s.logger.Info("events deleted",
		"requested", len(ids),
		"removed", removed)
	return removed, nil
}
