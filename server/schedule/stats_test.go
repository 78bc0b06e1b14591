package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/libcalsched/server/storage"
)

func TestComputeStats(t *testing.T) {
	now := date(2025, 1, 8, 12)
	events := []storage.Event{
		storage.NewMockEvent("1", "past", storage.EventTypeClass, date(2025, 1, 8, 9), date(2025, 1, 8, 10)),
		storage.NewMockEvent("2", "later today", storage.EventTypeExam, date(2025, 1, 8, 18), date(2025, 1, 8, 20)),
		storage.NewMockEvent("3", "next month", storage.EventTypeClass, date(2025, 2, 3, 9), date(2025, 2, 3, 10)),
		storage.NewMockEvent("4", "last year", storage.EventTypeHoliday, date(2024, 12, 25, 0), date(2024, 12, 26, 0)),
	}

	stats := ComputeStats(events, now, time.UTC)

	assert.Equal(t, 4, stats.TotalEvents)
	assert.Equal(t, 2, stats.UpcomingEvents)
	assert.Equal(t, 2, stats.TodayEvents)
	assert.Equal(t, map[storage.EventType]int{
		storage.EventTypeClass:      2,
		storage.EventTypeExam:       1,
		storage.EventTypeAssignment: 0,
		storage.EventTypeEvent:      0,
		storage.EventTypeHoliday:    1,
	}, stats.EventsByType)
	assert.Equal(t, map[string]int{
		"2024-12": 1,
		"2025-01": 2,
		"2025-02": 1,
	}, stats.EventsByMonth)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil, time.Now(), time.UTC)

	assert.Zero(t, stats.TotalEvents)
	assert.Len(t, stats.EventsByType, len(storage.EventTypes))
	assert.NotNil(t, stats.EventsByMonth)
	assert.Empty(t, stats.EventsByMonth)
}

func TestGetEventStats_Consistency(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seed(t, svc)
	now := date(2025, 1, 8, 12)

	for _, user := range []string{"", "s-1", "s-2", "t-1", "nobody"} {
		t.Run("user "+user, func(t *testing.T) {
			stats, err := svc.GetEventStats(ctx, user, now)
			require.NoError(t, err)

			var byType, byMonth int
			for _, n := range stats.EventsByType {
				byType += n
			}
			for _, n := range stats.EventsByMonth {
				byMonth += n
			}
			assert.Equal(t, stats.TotalEvents, byType)
			assert.Equal(t, stats.TotalEvents, byMonth)
			assert.LessOrEqual(t, stats.UpcomingEvents, stats.TotalEvents)
			assert.LessOrEqual(t, stats.TodayEvents, stats.TotalEvents)

			events, err := svc.GetEvents(ctx, storage.ForUser(user), now)
			require.NoError(t, err)
			assert.Equal(t, len(events), stats.TotalEvents)
		})
	}

	stats, err := svc.GetEventStats(ctx, "", now)
	require.NoError(t, err)
	assert.Equal(t, 8, stats.TotalEvents)
	assert.Equal(t, 2, stats.TodayEvents)
	assert.Equal(t, 6, stats.UpcomingEvents)
	assert.Equal(t, 6, stats.EventsByType[storage.EventTypeClass])
}
