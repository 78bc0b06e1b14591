package schedule

import (
	"context"
	"time"

	"github.com/cyp0633/libcalsched/server/storage"
)

// EventStats summarizes a set of events relative to a single "now".
type EventStats struct {
	TotalEvents    int                       `json:"totalEvents"`
	UpcomingEvents int                       `json:"upcomingEvents"`
	TodayEvents    int                       `json:"todayEvents"`
	EventsByType   map[storage.EventType]int `json:"eventsByType"`
	EventsByMonth  map[string]int            `json:"eventsByMonth"`
}

// ComputeStats aggregates events. EventsByType always carries every type;
// EventsByMonth only months with at least one event, keyed "YYYY-MM" in loc.
func ComputeStats(events []storage.Event, now time.Time, loc *time.Location) EventStats {
	stats := EventStats{
		TotalEvents:   len(events),
		EventsByType:  make(map[storage.EventType]int, len(storage.EventTypes)),
		EventsByMonth: make(map[string]int),
	}
	for _, t := range storage.EventTypes {
		stats.EventsByType[t] = 0
	}

	ny, nm, nd := now.In(loc).Date()
	for _, e := range events {
		start := e.StartTime.In(loc)
		if e.StartTime.After(now) {
			stats.UpcomingEvents++
		}
		if y, m, d := start.Date(); y == ny && m == nm && d == nd {
			stats.TodayEvents++
		}
		stats.EventsByType[e.Type]++
		stats.EventsByMonth[start.Format("2006-01")]++
	}
	return stats
}

// GetEventStats computes statistics over the events visible to userID, using
// the same window and "now" as GetEvents.
func (s *Service) GetEventStats(ctx context.Context, userID string, now time.Time) (EventStats, error) {
	events, err := s.GetEvents(ctx, storage.ForUser(userID), now)
	if err != nil {
		return EventStats{}, err
	}
	return ComputeStats(events, now, s.loc), nil
}
