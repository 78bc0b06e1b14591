package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/libcalsched/server/recurrence"
	"github.com/cyp0633/libcalsched/server/storage"
	"github.com/cyp0633/libcalsched/server/storage/memory"
)

func ptr[T any](v T) *T { return &v }

// seed stores a MWF lecture series for January 2025 plus a few one-off events.
func seed(t *testing.T, svc *Service) {
	t.Helper()

	lecture := storage.NewMockRecurringEvent("algebra", "Linear Algebra",
		date(2025, 1, 6, 9), date(2025, 1, 6, 10),
		storage.RecurrencePattern{
			Type:       storage.FrequencyWeekly,
			Interval:   1,
			DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			EndDate:    ptr(date(2025, 1, 17, 23)),
		})
	lecture.CourseID = "math101"
	lecture.TeacherID = "t-1"
	lecture.ClassID = "cs-2025"
	lecture.Location = "Hall B"

	exam := storage.NewMockEvent("midterm", "Midterm", storage.EventTypeExam, date(2025, 1, 8, 18), date(2025, 1, 8, 20))
	exam.CourseID = "math101"
	exam.Attendees = []string{"s-1", "s-2"}

	party := storage.NewMockEvent("party", "New year party", storage.EventTypeEvent, date(2025, 1, 10, 20), date(2025, 1, 10, 23))
	party.Description = "Bring snacks"
	party.Attendees = []string{"s-2"}

	_, err := svc.CreateBulkEvents(context.Background(), []storage.Event{lecture, exam, party})
	require.NoError(t, err)
}

func ids(events []storage.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestGetEvents(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seed(t, svc)
	now := date(2025, 1, 1, 0)

	t.Run("expands and sorts", func(t *testing.T) {
		events, err := svc.GetEvents(ctx, storage.EventFilter{}, now)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"algebra-2025-01-06",
			"algebra-2025-01-08",
			"midterm",
			"algebra-2025-01-10",
			"party",
			"algebra-2025-01-13",
			"algebra-2025-01-15",
			"algebra-2025-01-17",
		}, ids(events))

		for i := 1; i < len(events); i++ {
			assert.False(t, events[i].StartTime.Before(events[i-1].StartTime))
		}
	})

	t.Run("date bounds are whole days", func(t *testing.T) {
		events, err := svc.GetEvents(ctx, storage.EventFilter{
			StartDate: ptr(date(2025, 1, 8, 15)),
			EndDate:   ptr(date(2025, 1, 10, 8)),
		}, now)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"algebra-2025-01-08",
			"midterm",
			"algebra-2025-01-10",
			"party",
		}, ids(events))
	})

	t.Run("filters are a conjunction", func(t *testing.T) {
		events, err := svc.GetEvents(ctx, storage.EventFilter{
			Type:     ptr(storage.EventTypeExam),
			CourseID: ptr("math101"),
		}, now)
		require.NoError(t, err)
		assert.Equal(t, []string{"midterm"}, ids(events))

		events, err = svc.GetEvents(ctx, storage.EventFilter{
			Type:     ptr(storage.EventTypeExam),
			CourseID: ptr("other"),
		}, now)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("class and teacher", func(t *testing.T) {
		events, err := svc.GetEvents(ctx, storage.EventFilter{Class: ptr("cs-2025")}, now)
		require.NoError(t, err)
		assert.Len(t, events, 6)

		events, err = svc.GetEvents(ctx, storage.EventFilter{TeacherID: ptr("t-1")}, now)
		require.NoError(t, err)
		assert.Len(t, events, 6)
	})

	t.Run("user matches attendee or teacher", func(t *testing.T) {
		events, err := svc.GetEvents(ctx, storage.ForUser("s-2"), now)
		require.NoError(t, err)
		assert.Equal(t, []string{"midterm", "party"}, ids(events))

		events, err = svc.GetEvents(ctx, storage.ForUser("t-1"), now)
		require.NoError(t, err)
		assert.Len(t, events, 6)
	})

	t.Run("default window ends six months after now", func(t *testing.T) {
		daily := storage.NewMockRecurringEvent("standup", "Standup", date(2025, 1, 1, 9), date(2025, 1, 1, 10),
			storage.RecurrencePattern{Type: storage.FrequencyDaily, Interval: 1})
		_, err := svc.CreateEvent(ctx, daily)
		require.NoError(t, err)
		t.Cleanup(func() { _ = svc.DeleteEvent(ctx, "standup") })

		events, err := svc.GetEvents(ctx, storage.EventFilter{Type: ptr(storage.EventTypeClass)}, now)
		require.NoError(t, err)
		var standups []storage.Event
		for _, e := range events {
			if e.Title == "Standup" {
				standups = append(standups, e)
			}
		}
		require.NotEmpty(t, standups)
		assert.True(t, standups[len(standups)-1].StartTime.Before(now.AddDate(0, 6, 0)))
		assert.LessOrEqual(t, len(standups), 185)
	})
}

func TestListEvents(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seed(t, svc)

	events, err := svc.ListEvents(ctx, storage.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"algebra", "midterm", "party"}, ids(events))

	events, err = svc.ListEvents(ctx, storage.EventFilter{CourseID: ptr("math101")})
	require.NoError(t, err)
	assert.Equal(t, []string{"algebra", "midterm"}, ids(events))
	require.NotNil(t, events[0].RecurrencePattern)
}

func TestGetEvents_StoreError(t *testing.T) {
	store := new(storage.MockStorage)
	store.On("All", mock.Anything).Return(nil, errors.New("connection reset"))
	svc, err := New(store)
	require.NoError(t, err)

	_, err = svc.GetEvents(context.Background(), storage.EventFilter{}, time.Now())
	assert.ErrorContains(t, err, "connection reset")
	store.AssertExpectations(t)
}

func TestGetEvents_SameDayCallsShareCache(t *testing.T) {
	ctx := context.Background()
	engine := recurrence.NewEngineWithConfig(recurrence.DefaultEngineConfig)
	svc, err := New(memory.New(), WithLocation(time.UTC), WithEngine(engine))
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	daily := storage.NewMockRecurringEvent("standup", "Standup", date(2025, 1, 6, 9), date(2025, 1, 6, 10),
		storage.RecurrencePattern{Type: storage.FrequencyDaily, Interval: 1})
	_, err = svc.CreateEvent(ctx, daily)
	require.NoError(t, err)

	entries := func() int {
		stats, ok := engine.CacheStats()
		require.True(t, ok)
		return stats.TotalEntries
	}

	now := date(2025, 1, 8, 0)
	first, err := svc.GetEventStats(ctx, "", now)
	require.NoError(t, err)
	for i := 1; i <= 50; i++ {
		stats, err := svc.GetEventStats(ctx, "", now.Add(time.Duration(i)*17*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, first.TotalEvents, stats.TotalEvents)
	}
	_, err = svc.GetEvents(ctx, storage.EventFilter{}, now.Add(23*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, entries())

	_, err = svc.GetEvents(ctx, storage.EventFilter{}, now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, entries(), "the next day resolves a new window")
}

func TestGetUpcomingEvents(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seed(t, svc)
	now := date(2025, 1, 8, 12)

	events, err := svc.GetUpcomingEvents(ctx, "", 3, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"midterm", "algebra-2025-01-10", "party"}, ids(events))

	events, err = svc.GetUpcomingEvents(ctx, "s-1", 0, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"midterm"}, ids(events))

	events, err = svc.GetUpcomingEvents(ctx, "", 0, date(2025, 1, 17, 9))
	require.NoError(t, err)
	assert.Empty(t, events, "an event starting exactly now is not upcoming")
}

func TestGetTodayEvents(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seed(t, svc)

	events, err := svc.GetTodayEvents(ctx, "", date(2025, 1, 8, 23))
	require.NoError(t, err)
	assert.Equal(t, []string{"algebra-2025-01-08", "midterm"}, ids(events))

	events, err = svc.GetTodayEvents(ctx, "", date(2025, 1, 9, 0))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestGetTodayEvents_UsesServiceLocation(t *testing.T) {
	ctx := context.Background()
	tokyo := time.FixedZone("JST", 9*60*60)
	svc, err := New(newSeededStore(t), WithLocation(tokyo))
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	// 2025-01-08 18:00 UTC is already 2025-01-09 03:00 in Tokyo.
	events, err := svc.GetTodayEvents(ctx, "", date(2025, 1, 8, 20))
	require.NoError(t, err)
	assert.Equal(t, []string{"midterm"}, ids(events))
}

func newSeededStore(t *testing.T) storage.Storage {
	t.Helper()
	svc := newTestService(t)
	seed(t, svc)
	return svc.store
}

func TestSearchEvents(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seed(t, svc)
	now := date(2025, 1, 1, 0)

	tests := []struct {
		query string
		user  string
		want  []string
	}{
		{query: "ALGEBRA", want: []string{
			"algebra-2025-01-06", "algebra-2025-01-08", "algebra-2025-01-10",
			"algebra-2025-01-13", "algebra-2025-01-15", "algebra-2025-01-17",
		}},
		{query: "snacks", want: []string{"party"}},
		{query: "hall b", user: "t-1", want: []string{
			"algebra-2025-01-06", "algebra-2025-01-08", "algebra-2025-01-10",
			"algebra-2025-01-13", "algebra-2025-01-15", "algebra-2025-01-17",
		}},
		{query: "exam", want: []string{"midterm"}},
		{query: "party", user: "s-1", want: []string{}},
		{query: "nothing like this", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			events, err := svc.SearchEvents(ctx, tt.query, tt.user, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(events))
		})
	}

	all, err := svc.SearchEvents(ctx, "  ", "", now)
	require.NoError(t, err)
	assert.Len(t, all, 8)
}
