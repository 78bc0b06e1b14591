package xcal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/cyp0633/libcalsched/server/recurrence"
	"github.com/cyp0633/libcalsched/server/storage"
)

// ProductID identifies documents produced by this package
const ProductID = "-//cyp0633//libcalsched//EN"

// Calendar is a single vcalendar with its events
type Calendar struct {
	Name   string
	Stamp  time.Time
	Events []storage.Event
}

// ToXML converts the calendar to an xCal document
func (c *Calendar) ToXML() (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(TagICalendar)
	addNamespace(doc)

	vcal := root.CreateElement(TagVCalendar)
	props := vcal.CreateElement(TagProperties)
	addValue(props, PropProdID, TagText, ProductID)
	addValue(props, PropVersion, TagText, "2.0")
	if c.Name != "" {
		addValue(props, PropName, TagText, c.Name)
	}

	components := vcal.CreateElement(TagComponents)
	for _, e := range c.Events {
		vevent, err := eventElement(e, c.Stamp)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		components.AddChild(vevent)
	}

	return doc, nil
}

func eventElement(e storage.Event, stamp time.Time) (*etree.Element, error) {
	vevent := etree.NewElement(TagVEvent)
	props := vevent.CreateElement(TagProperties)

	addValue(props, PropUID, TagText, e.ID)
	addValue(props, PropDTStamp, TagDateTime, stamp.UTC().Format(dateTimeFormat))
	addValue(props, PropDTStart, TagDateTime, e.StartTime.UTC().Format(dateTimeFormat))
	addValue(props, PropDTEnd, TagDateTime, e.EndTime.UTC().Format(dateTimeFormat))
	addValue(props, PropSummary, TagText, e.Title)
	addValue(props, PropCategories, TagText, strings.ToUpper(string(e.Type)))

	for _, p := range []struct{ name, value string }{
		{PropDescription, e.Description},
		{PropLocation, e.Location},
		{PropColor, e.Color},
		{PropCourseID, e.CourseID},
		{PropTeacherID, e.TeacherID},
		{PropClassID, e.ClassID},
	} {
		if p.value != "" {
			addValue(props, p.name, TagText, p.value)
		}
	}
	for _, a := range e.Attendees {
		addValue(props, PropAttendee, TagCalAddress, a)
	}

	if e.IsRecurring && e.RecurrencePattern != nil {
		rule, err := recurrence.ToRRule(e.RecurrencePattern)
		if err != nil {
			return nil, err
		}
		props.CreateElement(PropRRule).AddChild(recurElement(rule))
	}

	return vevent, nil
}

// recurElement expands an RRULE value into the structured <recur> form.
// Multi-valued parts become repeated elements.
func recurElement(rule string) *etree.Element {
	recur := etree.NewElement(TagRecur)
	for _, part := range strings.Split(rule, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(key)
		if key == "until" {
			if t, err := time.Parse("20060102T150405Z", value); err == nil {
				value = t.Format(dateTimeFormat)
			}
		}
		for _, v := range strings.Split(value, ",") {
			recur.CreateElement(key).SetText(v)
		}
	}
	return recur
}

func addValue(props *etree.Element, name, valueType, value string) {
	props.CreateElement(name).CreateElement(valueType).SetText(value)
}

// Parse reads every vcalendar in doc into c. Events from all calendars are
// concatenated; the first calendar name wins.
func (c *Calendar) Parse(doc *etree.Document) error {
	root := doc.Root()
	if root == nil || root.Tag != TagICalendar {
		return storage.NewError(storage.ErrInvalidInput, "missing %s root element", TagICalendar)
	}

	for _, vcal := range root.SelectElements(TagVCalendar) {
		if props := vcal.SelectElement(TagProperties); props != nil && c.Name == "" {
			c.Name = propValue(props, PropName)
		}
		components := vcal.SelectElement(TagComponents)
		if components == nil {
			continue
		}
		for _, vevent := range components.SelectElements(TagVEvent) {
			e, err := parseEvent(vevent)
			if err != nil {
				return err
			}
			c.Events = append(c.Events, e)
		}
	}
	return nil
}

func parseEvent(vevent *etree.Element) (storage.Event, error) {
	props := vevent.SelectElement(TagProperties)
	if props == nil {
		return storage.Event{}, storage.NewError(storage.ErrInvalidInput, "%s without %s", TagVEvent, TagProperties)
	}

	e := storage.Event{
		ID:          propValue(props, PropUID),
		Title:       propValue(props, PropSummary),
		Description: propValue(props, PropDescription),
		Location:    propValue(props, PropLocation),
		Color:       propValue(props, PropColor),
		CourseID:    propValue(props, PropCourseID),
		TeacherID:   propValue(props, PropTeacherID),
		ClassID:     propValue(props, PropClassID),
		Type:        storage.EventTypeEvent,
	}
	if t := storage.EventType(strings.ToLower(propValue(props, PropCategories))); t.Valid() {
		e.Type = t
	}

	var err error
	if e.StartTime, err = parseDateTime(propValue(props, PropDTStart)); err != nil {
		return storage.Event{}, storage.NewError(storage.ErrInvalidInput, "event %q: invalid %s: %v", e.ID, PropDTStart, err)
	}
	if e.EndTime, err = parseDateTime(propValue(props, PropDTEnd)); err != nil {
		return storage.Event{}, storage.NewError(storage.ErrInvalidInput, "event %q: invalid %s: %v", e.ID, PropDTEnd, err)
	}

	for _, a := range props.SelectElements(PropAttendee) {
		if v := firstChildText(a); v != "" {
			e.Attendees = append(e.Attendees, v)
		}
	}

	if rrule := props.SelectElement(PropRRule); rrule != nil {
		recur := rrule.SelectElement(TagRecur)
		if recur == nil {
			return storage.Event{}, storage.NewError(storage.ErrInvalidPattern, "event %q: %s without %s", e.ID, PropRRule, TagRecur)
		}
		pattern, err := recurrence.PatternFromRRule(recurValue(recur))
		if err != nil {
			return storage.Event{}, fmt.Errorf("event %q: %w", e.ID, err)
		}
		e.IsRecurring = true
		e.RecurrencePattern = pattern
	}

	return e, nil
}

// recurValue folds a <recur> element back into RRULE text.
func recurValue(recur *etree.Element) string {
	var order []string
	values := make(map[string][]string)
	for _, child := range recur.ChildElements() {
		key := strings.ToUpper(child.Tag)
		value := strings.TrimSpace(child.Text())
		if key == "UNTIL" {
			if t, err := parseDateTime(value); err == nil {
				value = t.UTC().Format("20060102T150405Z")
			}
		}
		if _, seen := values[key]; !seen {
			order = append(order, key)
		}
		values[key] = append(values[key], value)
	}

	parts := make([]string, 0, len(order))
	for _, key := range order {
		parts = append(parts, key+"="+strings.Join(values[key], ","))
	}
	return strings.Join(parts, ";")
}

// propValue returns the text of the first value element of the named property
func propValue(props *etree.Element, name string) string {
	prop := props.SelectElement(name)
	if prop == nil {
		return ""
	}
	return firstChildText(prop)
}

func firstChildText(el *etree.Element) string {
	children := el.ChildElements()
	if len(children) == 0 {
		return strings.TrimSpace(el.Text())
	}
	return strings.TrimSpace(children[0].Text())
}

func parseDateTime(value string) (time.Time, error) {
	for _, layout := range []string{dateTimeFormat, time.RFC3339, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date-time %s", strconv.Quote(value))
}

// Marshal renders the calendar as indented xCal
func Marshal(c *Calendar) ([]byte, error) {
	doc, err := c.ToXML()
	if err != nil {
		return nil, err
	}
	doc.Indent(2)
	return doc.WriteToBytes()
}

// Unmarshal parses an xCal document
func Unmarshal(data []byte) (*Calendar, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, storage.NewError(storage.ErrInvalidInput, "invalid xCal document: %v", err)
	}
	c := &Calendar{}
	if err := c.Parse(doc); err != nil {
		return nil, err
	}
	return c, nil
}
