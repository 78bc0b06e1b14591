// Package feed converts events to and from iCalendar (RFC 5545) streams.
//
// Recurring events are exported as a single VEVENT carrying an RRULE, so a
// feed describes the stored templates rather than their expansion.
package feed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/cyp0633/libcalsched/server/recurrence"
	"github.com/cyp0633/libcalsched/server/storage"
)

const (
	// ProductID identifies calendars produced by this package.
	ProductID = "-//cyp0633//libcalsched//EN"

	propCourseID  = "X-COURSE-ID"
	propTeacherID = "X-TEACHER-ID"
	propClassID   = "X-CLASS-ID"
	propCalName   = "X-WR-CALNAME"
)

// NewCalendar builds a VCALENDAR holding one VEVENT per event.
// stamp is used as DTSTAMP for every component.
func NewCalendar(name string, events []storage.Event, stamp time.Time) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	if name != "" {
		cal.Props.SetText(ical.PropName, name)
		setRaw(cal.Props, propCalName, name)
	}

	for _, e := range events {
		comp, err := EventComponent(e, stamp)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		cal.Children = append(cal.Children, comp)
	}
	return cal, nil
}

// EventComponent converts a single event to a VEVENT.
func EventComponent(e storage.Event, stamp time.Time) (*ical.Component, error) {
	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, e.ID)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ev.Props.SetDateTime(ical.PropDateTimeStart, e.StartTime.UTC())
	ev.Props.SetDateTime(ical.PropDateTimeEnd, e.EndTime.UTC())
	ev.Props.SetText(ical.PropSummary, e.Title)
	ev.Props.SetText(ical.PropCategories, strings.ToUpper(string(e.Type)))

	setOptionalText(ev.Props, ical.PropDescription, e.Description)
	setOptionalText(ev.Props, ical.PropLocation, e.Location)
	setRaw(ev.Props, ical.PropColor, e.Color)
	setRaw(ev.Props, propCourseID, e.CourseID)
	setRaw(ev.Props, propTeacherID, e.TeacherID)
	setRaw(ev.Props, propClassID, e.ClassID)

	for _, a := range e.Attendees {
		prop := ical.NewProp(ical.PropAttendee)
		prop.Value = a
		ev.Props.Add(prop)
	}

	if e.IsRecurring && e.RecurrencePattern != nil {
		rule, err := recurrence.ToRRule(e.RecurrencePattern)
		if err != nil {
			return nil, err
		}
		// RRULE is a structured value; SetText would escape its separators.
		prop := ical.NewProp(ical.PropRecurrenceRule)
		prop.Value = rule
		ev.Props.Set(prop)
	}

	return ev.Component, nil
}

func setOptionalText(props ical.Props, name, value string) {
	if value != "" {
		props.SetText(name, value)
	}
}

// setRaw stores identifiers and colors verbatim, without a VALUE parameter.
func setRaw(props ical.Props, name, value string) {
	if value == "" {
		return
	}
	prop := ical.NewProp(name)
	prop.Value = value
	props.Set(prop)
}

// Encode writes events as a single VCALENDAR to w.
func Encode(w io.Writer, name string, events []storage.Event, stamp time.Time) error {
	cal, err := NewCalendar(name, events, stamp)
	if err != nil {
		return err
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// Marshal is Encode into a byte slice.
func Marshal(name string, events []storage.Event, stamp time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, name, events, stamp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads every VCALENDAR in r and converts its VEVENTs. Floating
// times are interpreted in loc. Events are not validated; callers pass them
// through the usual create path.
func Decode(r io.Reader, loc *time.Location) ([]storage.Event, error) {
	if loc == nil {
		loc = time.UTC
	}

	dec := ical.NewDecoder(r)
	var events []storage.Event
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, storage.NewError(storage.ErrInvalidInput, "invalid iCalendar data: %v", err)
		}

		for _, ev := range cal.Events() {
			e, err := eventFromComponent(&ev, loc)
			if err != nil {
				return nil, err
			}
			events = append(events, e)
		}
	}
	return events, nil
}

func eventFromComponent(ev *ical.Event, loc *time.Location) (storage.Event, error) {
	var e storage.Event

	e.ID = text(ev.Props, ical.PropUID)
	e.Title = text(ev.Props, ical.PropSummary)
	e.Description = text(ev.Props, ical.PropDescription)
	e.Location = text(ev.Props, ical.PropLocation)
	e.Color = raw(ev.Props, ical.PropColor)
	e.CourseID = raw(ev.Props, propCourseID)
	e.TeacherID = raw(ev.Props, propTeacherID)
	e.ClassID = raw(ev.Props, propClassID)
	e.Type = eventType(text(ev.Props, ical.PropCategories))

	start, err := ev.DateTimeStart(loc)
	if err != nil {
		return storage.Event{}, storage.NewError(storage.ErrInvalidInput, "event %q: invalid DTSTART: %v", e.ID, err)
	}
	end, err := ev.DateTimeEnd(loc)
	if err != nil {
		return storage.Event{}, storage.NewError(storage.ErrInvalidInput, "event %q: invalid DTEND: %v", e.ID, err)
	}
	e.StartTime = start
	e.EndTime = end

	for _, a := range ev.Props.Values(ical.PropAttendee) {
		e.Attendees = append(e.Attendees, strings.TrimPrefix(a.Value, "mailto:"))
	}

	if prop := ev.Props.Get(ical.PropRecurrenceRule); prop != nil {
		pattern, err := recurrence.PatternFromRRule(prop.Value)
		if err != nil {
			return storage.Event{}, fmt.Errorf("event %q: %w", e.ID, err)
		}
		e.IsRecurring = true
		e.RecurrencePattern = pattern
	}

	return e, nil
}

func raw(props ical.Props, name string) string {
	if prop := props.Get(name); prop != nil {
		return prop.Value
	}
	return ""
}

func text(props ical.Props, name string) string {
	v, err := props.Text(name)
	if err != nil {
		return ""
	}
	return v
}

// eventType maps the first CATEGORIES entry onto the closed set, falling
// back to "event".
func eventType(categories string) storage.EventType {
	first, _, _ := strings.Cut(categories, ",")
	t := storage.EventType(strings.ToLower(strings.TrimSpace(first)))
	if t.Valid() {
		return t
	}
	return storage.EventTypeEvent
}
