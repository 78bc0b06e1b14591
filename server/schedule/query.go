package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cyp0633/libcalsched/server/recurrence"
	"github.com/cyp0633/libcalsched/server/storage"
)

func (s *Service) startOfDay(t time.Time) time.Time {
	y, m, d := t.In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *Service) endOfDay(t time.Time) time.Time {
	return s.startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// window turns the filter's day bounds into an expansion window. Without a
// start date templates expand from their own start; without an end date
// the engine's default ceiling applies, counted from the end of today so
// every call on the same day resolves to the same window.
func (s *Service) window(filter storage.EventFilter, now time.Time) recurrence.Window {
	var w recurrence.Window
	if filter.StartDate != nil {
		w.Start = s.startOfDay(*filter.StartDate)
	}
	if filter.EndDate != nil {
		w.End = s.endOfDay(*filter.EndDate)
	}
	return s.engine.ResolveWindow(w, s.endOfDay(now))
}

// GetEvents expands every stored template over the filter's window, applies
// the filter and returns the result ordered by start time. Ties keep store
// order.
func (s *Service) GetEvents(ctx context.Context, filter storage.EventFilter, now time.Time) ([]storage.Event, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	window := s.window(filter, now)
	result := make([]storage.Event, 0, len(all))
	for _, e := range all {
		// Instances share every filtered field with their template.
		if !filter.Matches(e) {
			continue
		}
		if e.IsRecurring && e.RecurrencePattern != nil {
			result = append(result, s.engine.Expand(e, window)...)
			continue
		}
		if filter.StartDate != nil && e.StartTime.Before(window.Start) {
			continue
		}
		if filter.EndDate != nil && e.StartTime.After(window.End) {
			continue
		}
		result = append(result, e)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

// ListEvents returns the stored events matching the filter's non-date
// predicates, without expanding recurring templates. Feeds export these.
func (s *Service) ListEvents(ctx context.Context, filter storage.EventFilter) ([]storage.Event, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	result := make([]storage.Event, 0, len(all))
	for _, e := range all {
		if filter.Matches(e) {
			result = append(result, e)
		}
	}
	return result, nil
}

// GetEventByID returns the stored base event.
func (s *Service) GetEventByID(ctx context.Context, id string) (storage.Event, error) {
	found, err := s.store.Get(ctx, id)
	if err != nil {
		return storage.Event{}, err
	}
	event, ok := found.Get()
	if !ok {
		return storage.Event{}, storage.NewError(storage.ErrNotFound, "event %s not found", id)
	}
	return event, nil
}

// GetUpcomingEvents returns the user's events starting strictly after now.
// A non-positive limit returns all of them.
func (s *Service) GetUpcomingEvents(ctx context.Context, userID string, limit int, now time.Time) ([]storage.Event, error) {
	filter := storage.ForUser(userID)
	filter.StartDate = &now

	events, err := s.GetEvents(ctx, filter, now)
	if err != nil {
		return nil, err
	}

	upcoming := make([]storage.Event, 0, len(events))
	for _, e := range events {
		if !e.StartTime.After(now) {
			continue
		}
		upcoming = append(upcoming, e)
		if limit > 0 && len(upcoming) == limit {
			break
		}
	}
	return upcoming, nil
}

// GetTodayEvents returns the user's events starting on now's calendar day.
func (s *Service) GetTodayEvents(ctx context.Context, userID string, now time.Time) ([]storage.Event, error) {
	filter := storage.ForUser(userID)
	filter.StartDate = &now
	filter.EndDate = &now
	return s.GetEvents(ctx, filter, now)
}

// SearchEvents matches query case-insensitively against title, description,
// location and type of the events visible to userID.
func (s *Service) SearchEvents(ctx context.Context, query, userID string, now time.Time) ([]storage.Event, error) {
	events, err := s.GetEvents(ctx, storage.ForUser(userID), now)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return events, nil
	}

	matched := make([]storage.Event, 0)
	for _, e := range events {
		if containsFold(e.Title, needle) ||
			containsFold(e.Description, needle) ||
			containsFold(e.Location, needle) ||
			containsFold(string(e.Type), needle) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

func containsFold(haystack, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}
