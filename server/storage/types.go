package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
)

// Error types
type ErrorType string

const (
	ErrNotFound         ErrorType = "not_found"
	ErrAlreadyExists    ErrorType = "already_exists"
	ErrInvalidInput     ErrorType = "invalid_input"
	ErrInvalidTimeRange ErrorType = "invalid_time_range"
	ErrInvalidPattern   ErrorType = "invalid_pattern"
)

// Error represents a storage or validation error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an *Error of the given type.
func NewError(t ErrorType, format string, args ...any) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// IsErrorType reports whether err (or anything it wraps) is an *Error of type t.
func IsErrorType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// EventType is the closed set of event categories.
type EventType string

const (
	EventTypeClass      EventType = "class"
	EventTypeExam       EventType = "exam"
	EventTypeAssignment EventType = "assignment"
	EventTypeEvent      EventType = "event"
	EventTypeHoliday    EventType = "holiday"
)

// EventTypes lists every valid EventType in a fixed order.
var EventTypes = []EventType{
	EventTypeClass,
	EventTypeExam,
	EventTypeAssignment,
	EventTypeEvent,
	EventTypeHoliday,
}

// Valid reports whether t belongs to the closed set.
func (t EventType) Valid() bool {
	for _, v := range EventTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Frequency is the unit a recurrence pattern steps by.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// RecurrencePattern is the rule attached to a template event.
type RecurrencePattern struct {
	Type     Frequency `json:"type"`
	Interval int       `json:"interval"`
	// DaysOfWeek only applies to weekly patterns. Sunday is 0.
	DaysOfWeek []time.Weekday `json:"daysOfWeek,omitempty"`
	// EndDate is an inclusive upper bound for generated occurrences.
	EndDate *time.Time `json:"endDate,omitempty"`
	// Occurrences caps the total number of generated instances.
	Occurrences *int `json:"occurrences,omitempty"`
}

// Clone returns a deep copy of the pattern.
func (p *RecurrencePattern) Clone() *RecurrencePattern {
	if p == nil {
		return nil
	}
	c := *p
	if p.DaysOfWeek != nil {
		c.DaysOfWeek = append([]time.Weekday(nil), p.DaysOfWeek...)
	}
	if p.EndDate != nil {
		end := *p.EndDate
		c.EndDate = &end
	}
	if p.Occurrences != nil {
		n := *p.Occurrences
		c.Occurrences = &n
	}
	return &c
}

// Event is the persisted unit: a one-off event or a recurring template.
type Event struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description,omitempty"`
	StartTime         time.Time          `json:"startTime"`
	EndTime           time.Time          `json:"endTime"`
	Type              EventType          `json:"type"`
	Location          string             `json:"location,omitempty"`
	CourseID          string             `json:"courseId,omitempty"`
	TeacherID         string             `json:"teacherId,omitempty"`
	ClassID           string             `json:"classId,omitempty"`
	Attendees         []string           `json:"attendees,omitempty"`
	Color             string             `json:"color,omitempty"`
	IsRecurring       bool               `json:"isRecurring"`
	RecurrencePattern *RecurrencePattern `json:"recurrencePattern,omitempty"`
}

// Clone returns a deep copy of the event so callers never share slices
// with the store.
func (e Event) Clone() Event {
	if e.Attendees != nil {
		e.Attendees = append([]string(nil), e.Attendees...)
	}
	e.RecurrencePattern = e.RecurrencePattern.Clone()
	return e
}

// Duration is EndTime - StartTime.
func (e Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// HasAttendee reports whether userID is among the attendees.
func (e Event) HasAttendee(userID string) bool {
	for _, a := range e.Attendees {
		if a == userID {
			return true
		}
	}
	return false
}

// EventPatch is a partial update. Absent options leave the stored field
// unchanged.
type EventPatch struct {
	Title             mo.Option[string]             `json:"title"`
	Description       mo.Option[string]             `json:"description"`
	StartTime         mo.Option[time.Time]          `json:"startTime"`
	EndTime           mo.Option[time.Time]          `json:"endTime"`
	Type              mo.Option[EventType]          `json:"type"`
	Location          mo.Option[string]             `json:"location"`
	CourseID          mo.Option[string]             `json:"courseId"`
	TeacherID         mo.Option[string]             `json:"teacherId"`
	ClassID           mo.Option[string]             `json:"classId"`
	Attendees         mo.Option[[]string]           `json:"attendees"`
	Color             mo.Option[string]             `json:"color"`
	IsRecurring       mo.Option[bool]               `json:"isRecurring"`
	RecurrencePattern mo.Option[*RecurrencePattern] `json:"recurrencePattern"`
}

// Apply merges the patch into a copy of e and returns it. Turning
// IsRecurring off drops the pattern.
func (p EventPatch) Apply(e Event) Event {
	out := e.Clone()
	if v, ok := p.Title.Get(); ok {
		out.Title = v
	}
	if v, ok := p.Description.Get(); ok {
		out.Description = v
	}
	if v, ok := p.StartTime.Get(); ok {
		out.StartTime = v
	}
	if v, ok := p.EndTime.Get(); ok {
		out.EndTime = v
	}
	if v, ok := p.Type.Get(); ok {
		out.Type = v
	}
	if v, ok := p.Location.Get(); ok {
		out.Location = v
	}
	if v, ok := p.CourseID.Get(); ok {
		out.CourseID = v
	}
	if v, ok := p.TeacherID.Get(); ok {
		out.TeacherID = v
	}
	if v, ok := p.ClassID.Get(); ok {
		out.ClassID = v
	}
	if v, ok := p.Attendees.Get(); ok {
		out.Attendees = append([]string(nil), v...)
	}
	if v, ok := p.Color.Get(); ok {
		out.Color = v
	}
	if v, ok := p.RecurrencePattern.Get(); ok {
		out.RecurrencePattern = v.Clone()
	}
	if v, ok := p.IsRecurring.Get(); ok {
		out.IsRecurring = v
	}
	if !out.IsRecurring {
		out.RecurrencePattern = nil
	}
	return out
}

// Storage holds the canonical set of base events keyed by id.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Insert stores the event, assigning a fresh id when ID is empty.
	Insert(ctx context.Context, event Event) (Event, error)
	// Update merges patch into the stored event. Returns ErrNotFound if absent.
	Update(ctx context.Context, id string, patch EventPatch) (Event, error)
	// Delete removes the event and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
	// BulkInsert stores all events or none of them.
	BulkInsert(ctx context.Context, events []Event) ([]Event, error)
	// BulkDelete removes the given ids and returns how many existed.
	BulkDelete(ctx context.Context, ids []string) (int, error)
	// Get looks up a single event.
	Get(ctx context.Context, id string) (mo.Option[Event], error)
	// All returns a snapshot of every stored event in insertion order.
	All(ctx context.Context) ([]Event, error)
}
