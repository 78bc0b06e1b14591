package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"

	"github.com/cyp0633/libcalsched/server/storage"
)

func TestToRRule_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		pattern  storage.RecurrencePattern
		contains []string
	}{
		{
			name:     "daily with count",
			pattern:  storage.RecurrencePattern{Type: storage.FrequencyDaily, Interval: 2, Occurrences: intPtr(10)},
			contains: []string{"FREQ=DAILY", "INTERVAL=2", "COUNT=10"},
		},
		{
			name: "weekly with weekdays and until",
			pattern: storage.RecurrencePattern{
				Type: storage.FrequencyWeekly, Interval: 1,
				DaysOfWeek: []time.Weekday{time.Friday, time.Monday, time.Wednesday},
				EndDate:    timePtr(date(2025, 1, 17, 9)),
			},
			contains: []string{"FREQ=WEEKLY", "BYDAY=MO,WE,FR", "UNTIL=20250117T090000Z"},
		},
		{
			name:     "monthly",
			pattern:  storage.RecurrencePattern{Type: storage.FrequencyMonthly, Interval: 1},
			contains: []string{"FREQ=MONTHLY"},
		},
		{
			name:     "yearly",
			pattern:  storage.RecurrencePattern{Type: storage.FrequencyYearly, Interval: 4},
			contains: []string{"FREQ=YEARLY", "INTERVAL=4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := ToRRule(&tt.pattern)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, rule, s)
			}

			parsed, err := PatternFromRRule(rule)
			require.NoError(t, err)
			assert.Equal(t, tt.pattern.Type, parsed.Type)
			assert.Equal(t, tt.pattern.Interval, parsed.Interval)
			assert.Equal(t, normalizeWeekdays(tt.pattern.DaysOfWeek), parsed.DaysOfWeek)
			assert.Equal(t, tt.pattern.Occurrences, parsed.Occurrences)
			if tt.pattern.EndDate != nil {
				require.NotNil(t, parsed.EndDate)
				assert.True(t, tt.pattern.EndDate.Equal(*parsed.EndDate))
			}
		})
	}
}

func TestToRRule_RejectsInvalidPattern(t *testing.T) {
	_, err := ToRRule(&storage.RecurrencePattern{Type: storage.FrequencyDaily})
	assert.True(t, storage.IsErrorType(err, storage.ErrInvalidPattern))
}

func TestPatternFromRRule_Unsupported(t *testing.T) {
	for _, rule := range []string{
		"FREQ=HOURLY",
		"FREQ=MONTHLY;BYMONTHDAY=15",
		"FREQ=MONTHLY;BYDAY=1MO",
		"FREQ=DAILY;BYDAY=MO",
		"NOT A RULE",
	} {
		t.Run(rule, func(t *testing.T) {
			_, err := PatternFromRRule(rule)
			assert.True(t, storage.IsErrorType(err, storage.ErrInvalidPattern), "got %v", err)
		})
	}

	p, err := PatternFromRRule("RRULE:FREQ=WEEKLY;WKST=SU;BYDAY=SU,SA")
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Sunday, time.Saturday}, p.DaysOfWeek)
	assert.Equal(t, 1, p.Interval)
}

// Where the expander and RFC 5545 agree (anchor on a listed weekday, no
// month-length clamping), the expansion must match rrule-go exactly.
func TestEngine_MatchesRRuleGo(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name    string
		start   time.Time
		pattern storage.RecurrencePattern
	}{
		{
			name:    "daily",
			start:   date(2025, 1, 1, 8),
			pattern: storage.RecurrencePattern{Type: storage.FrequencyDaily, Interval: 3, Occurrences: intPtr(20)},
		},
		{
			name:  "weekly mon wed fri every second week",
			start: date(2025, 1, 6, 9),
			pattern: storage.RecurrencePattern{
				Type: storage.FrequencyWeekly, Interval: 2,
				DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday}, Occurrences: intPtr(15),
			},
		},
		{
			name:  "weekly with sunday",
			start: date(2025, 1, 5, 9),
			pattern: storage.RecurrencePattern{
				Type: storage.FrequencyWeekly, Interval: 1,
				DaysOfWeek: []time.Weekday{time.Sunday, time.Thursday}, EndDate: timePtr(date(2025, 3, 1, 0)),
			},
		},
		{
			name:    "monthly mid-month",
			start:   date(2025, 1, 15, 9),
			pattern: storage.RecurrencePattern{Type: storage.FrequencyMonthly, Interval: 1, Occurrences: intPtr(12)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := ROption(&tt.pattern, tt.start)
			require.NoError(t, err)
			rule, err := rrule.NewRRule(*opt)
			require.NoError(t, err)

			want := rule.Between(tt.start, date(2027, 1, 1, 0), true)
			got := starts(engine.Expand(template(tt.start, tt.pattern), Window{End: date(2027, 1, 1, 0)}))

			require.Len(t, got, len(want))
			for i := range want {
				assert.True(t, want[i].Equal(got[i]), "instance %d: want %s got %s", i, want[i], got[i])
			}
		})
	}
}
