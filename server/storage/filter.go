package storage

import "time"

// EventFilter narrows a query. Every non-nil field is an AND predicate.
type EventFilter struct {
	StartDate *time.Time // day granularity, inclusive
	EndDate   *time.Time // day granularity, inclusive
	Type      *EventType
	CourseID  *string
	TeacherID *string
	UserID    *string // attendee or teacher
	Class     *string // matched against Event.ClassID
}

// Matches applies the non-temporal predicates to e. Date bounds are handled
// by the caller because they also drive recurrence expansion.
func (f EventFilter) Matches(e Event) bool {
	if f.Type != nil && e.Type != *f.Type {
		return false
	}
	if f.CourseID != nil && e.CourseID != *f.CourseID {
		return false
	}
	if f.TeacherID != nil && e.TeacherID != *f.TeacherID {
		return false
	}
	if f.Class != nil && e.ClassID != *f.Class {
		return false
	}
	if f.UserID != nil && !e.HasAttendee(*f.UserID) && e.TeacherID != *f.UserID {
		return false
	}
	return true
}

// ForUser returns a filter scoped to a single user.
func ForUser(userID string) EventFilter {
	if userID == "" {
		return EventFilter{}
	}
	return EventFilter{UserID: &userID}
}
