package gormstore

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/libcalsched/server/storage"
)

// IntArray maps to a PostgreSQL INT[] column.
type IntArray []int

// Scan parses the {1,2,3} text form.
func (a *IntArray) Scan(src interface{}) error {
	s, err := arrayText(src)
	if err != nil {
		return fmt.Errorf("IntArray.Scan: %w", err)
	}
	if s == nil {
		*a = nil
		return nil
	}
	body := strings.Trim(*s, "{}")
	if body == "" {
		*a = IntArray{}
		return nil
	}
	parts := strings.Split(body, ",")
	arr := make(IntArray, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("IntArray.Scan: invalid element %q: %w", p, err)
		}
		arr = append(arr, n)
	}
	*a = arr
	return nil
}

// Value renders the {1,2,3} text form.
func (a IntArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	parts := make([]string, len(a))
	for i, n := range a {
		parts[i] = strconv.Itoa(n)
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// StringArray maps to a PostgreSQL TEXT[] column. Elements are always
// written quoted so commas, braces and spaces survive.
type StringArray []string

// Scan parses the array text form, honouring quoted elements and
// backslash escapes.
func (a *StringArray) Scan(src interface{}) error {
	s, err := arrayText(src)
	if err != nil {
		return fmt.Errorf("StringArray.Scan: %w", err)
	}
	if s == nil {
		*a = nil
		return nil
	}
	body := *s
	if len(body) < 2 || body[0] != '{' || body[len(body)-1] != '}' {
		return fmt.Errorf("StringArray.Scan: malformed array %q", body)
	}
	body = body[1 : len(body)-1]

	arr := StringArray{}
	if body == "" {
		*a = arr
		return nil
	}

	var cur strings.Builder
	quoted, inQuotes, escaped := false, false, false
	flush := func() {
		v := cur.String()
		if !quoted {
			v = strings.TrimSpace(v)
		}
		arr = append(arr, v)
		cur.Reset()
		quoted = false
	}
	for _, r := range body {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
			quoted = true
		case r == ',' && !inQuotes:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if inQuotes || escaped {
		return fmt.Errorf("StringArray.Scan: unterminated element in %q", *s)
	}
	flush()

	*a = arr
	return nil
}

// Value renders the array text form.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	parts := make([]string, len(a))
	for i, v := range a {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		parts[i] = `"` + v + `"`
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

func arrayText(src interface{}) (*string, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		s := string(v)
		return &s, nil
	case string:
		return &v, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", src)
	}
}

// eventRecord is the flattened row layout of an event. The recurrence
// pattern is stored inline; RecurrenceType is NULL for one-off events.
type eventRecord struct {
	ID string `gorm:"primaryKey;type:varchar(64)"`
	// Seq preserves insertion order for All.
	Seq int64 `gorm:"autoIncrement;uniqueIndex;not null"`

	Title       string    `gorm:"not null"`
	Description string    `gorm:"type:text"`
	StartTime   time.Time `gorm:"not null;index"`
	EndTime     time.Time `gorm:"not null"`
	Type        string    `gorm:"type:varchar(16);not null;index"`
	Location    string
	CourseID    string      `gorm:"index"`
	TeacherID   string      `gorm:"index"`
	ClassID     string      `gorm:"index"`
	Attendees   StringArray `gorm:"type:text[]"`
	Color       string      `gorm:"type:varchar(32)"`

	IsRecurring        bool `gorm:"not null;default:false"`
	RecurrenceType     *string
	RecurrenceInterval int
	RecurrenceDays     IntArray `gorm:"type:int[]"`
	RecurrenceEnd      *time.Time
	RecurrenceCount    *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (eventRecord) TableName() string {
	return "events"
}

func toRecord(e storage.Event) eventRecord {
	r := eventRecord{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Type:        string(e.Type),
		Location:    e.Location,
		CourseID:    e.CourseID,
		TeacherID:   e.TeacherID,
		ClassID:     e.ClassID,
		Color:       e.Color,
		IsRecurring: e.IsRecurring,
	}
	if e.Attendees != nil {
		r.Attendees = StringArray(append([]string(nil), e.Attendees...))
	}

	if p := e.RecurrencePattern; p != nil {
		t := string(p.Type)
		r.RecurrenceType = &t
		r.RecurrenceInterval = p.Interval
		if p.DaysOfWeek != nil {
			r.RecurrenceDays = make(IntArray, len(p.DaysOfWeek))
			for i, d := range p.DaysOfWeek {
				r.RecurrenceDays[i] = int(d)
			}
		}
		if p.EndDate != nil {
			end := *p.EndDate
			r.RecurrenceEnd = &end
		}
		if p.Occurrences != nil {
			n := *p.Occurrences
			r.RecurrenceCount = &n
		}
	}
	return r
}

func (r eventRecord) toEvent() storage.Event {
	e := storage.Event{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Type:        storage.EventType(r.Type),
		Location:    r.Location,
		CourseID:    r.CourseID,
		TeacherID:   r.TeacherID,
		ClassID:     r.ClassID,
		Color:       r.Color,
		IsRecurring: r.IsRecurring,
	}
	if len(r.Attendees) > 0 {
		e.Attendees = append([]string(nil), r.Attendees...)
	}

	if r.RecurrenceType != nil {
		p := &storage.RecurrencePattern{
			Type:     storage.Frequency(*r.RecurrenceType),
			Interval: r.RecurrenceInterval,
		}
		if len(r.RecurrenceDays) > 0 {
			p.DaysOfWeek = make([]time.Weekday, len(r.RecurrenceDays))
			for i, d := range r.RecurrenceDays {
				p.DaysOfWeek[i] = time.Weekday(d)
			}
		}
		if r.RecurrenceEnd != nil {
			end := *r.RecurrenceEnd
			p.EndDate = &end
		}
		if r.RecurrenceCount != nil {
			n := *r.RecurrenceCount
			p.Occurrences = &n
		}
		e.RecurrencePattern = p
	}
	return e
}
