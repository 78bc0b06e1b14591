package storage

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh event id.
func NewID() string {
	return uuid.New().String()
}

// Validate checks the structural invariants of a recurrence pattern.
func (p *RecurrencePattern) Validate() error {
	if p == nil {
		return NewError(ErrInvalidPattern, "recurrence pattern is required for recurring events")
	}
	switch p.Type {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
	default:
		return NewError(ErrInvalidPattern, "unknown recurrence type %q", p.Type)
	}
	if p.Interval < 1 {
		return NewError(ErrInvalidPattern, "interval must be at least 1, got %d", p.Interval)
	}
	for _, d := range p.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			return NewError(ErrInvalidPattern, "weekday %d out of range", d)
		}
	}
	if p.Occurrences != nil && *p.Occurrences < 1 {
		return NewError(ErrInvalidPattern, "occurrences must be at least 1, got %d", *p.Occurrences)
	}
	return nil
}

// ValidateEvent checks an event before it reaches the store.
func ValidateEvent(e Event) error {
	if !e.EndTime.After(e.StartTime) {
		return NewError(ErrInvalidTimeRange, "end time %s must be after start time %s",
			e.EndTime.Format(time.RFC3339), e.StartTime.Format(time.RFC3339))
	}
	if !e.Type.Valid() {
		return NewError(ErrInvalidInput, "unknown event type %q", e.Type)
	}
	if e.IsRecurring {
		return e.RecurrencePattern.Validate()
	}
	if e.RecurrencePattern != nil {
		return NewError(ErrInvalidPattern, "recurrence pattern set on a non-recurring event")
	}
	return nil
}
