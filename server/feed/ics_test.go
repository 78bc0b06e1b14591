package feed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/libcalsched/server/storage"
)

func sampleEvents() []storage.Event {
	until := time.Date(2025, 1, 17, 23, 0, 0, 0, time.UTC)
	lecture := storage.NewMockRecurringEvent("algebra", "Linear Algebra, part 1",
		time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 6, 10, 30, 0, 0, time.UTC),
		storage.RecurrencePattern{
			Type:       storage.FrequencyWeekly,
			Interval:   1,
			DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			EndDate:    &until,
		})
	lecture.Location = "Hall B"
	lecture.CourseID = "math101"
	lecture.TeacherID = "t-1"
	lecture.ClassID = "cs-2025"
	lecture.Color = "#3366ff"

	exam := storage.NewMockEvent("midterm", "Midterm", storage.EventTypeExam,
		time.Date(2025, 1, 8, 18, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 8, 20, 0, 0, 0, time.UTC))
	exam.Description = "Chapters 1, 2 and 3"
	exam.Attendees = []string{"s-1", "s-2"}

	return []storage.Event{lecture, exam}
}

func TestMarshal(t *testing.T) {
	stamp := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	data, err := Marshal("Spring term", sampleEvents(), stamp)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "PRODID:"+ProductID)
	assert.Contains(t, out, "X-WR-CALNAME:Spring term")
	assert.Contains(t, out, "UID:algebra")
	assert.Contains(t, out, "DTSTART:20250106T090000Z")
	assert.Contains(t, out, "CATEGORIES:CLASS")
	assert.Contains(t, out, "RRULE:")
	assert.Contains(t, out, "BYDAY=MO,WE,FR")
	assert.NotContains(t, out, `\;`, "RRULE must not be text-escaped")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
}

func TestDecode_RoundTrip(t *testing.T) {
	want := sampleEvents()
	data, err := Marshal("", want, time.Now())
	require.NoError(t, err)

	got, err := Decode(bytes.NewReader(data), time.UTC)
	require.NoError(t, err)
	require.Len(t, got, len(want))

	for i := range want {
		w, g := want[i], got[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.Title, g.Title)
		assert.Equal(t, w.Description, g.Description)
		assert.Equal(t, w.Location, g.Location)
		assert.Equal(t, w.Type, g.Type)
		assert.Equal(t, w.CourseID, g.CourseID)
		assert.Equal(t, w.TeacherID, g.TeacherID)
		assert.Equal(t, w.ClassID, g.ClassID)
		assert.Equal(t, w.Color, g.Color)
		assert.Equal(t, w.Attendees, g.Attendees)
		assert.True(t, w.StartTime.Equal(g.StartTime))
		assert.True(t, w.EndTime.Equal(g.EndTime))
		assert.Equal(t, w.IsRecurring, g.IsRecurring)

		if w.RecurrencePattern == nil {
			assert.Nil(t, g.RecurrencePattern)
			continue
		}
		require.NotNil(t, g.RecurrencePattern)
		assert.Equal(t, w.RecurrencePattern.Type, g.RecurrencePattern.Type)
		assert.Equal(t, w.RecurrencePattern.Interval, g.RecurrencePattern.Interval)
		assert.Equal(t, w.RecurrencePattern.DaysOfWeek, g.RecurrencePattern.DaysOfWeek)
		require.NotNil(t, g.RecurrencePattern.EndDate)
		assert.True(t, w.RecurrencePattern.EndDate.Equal(*g.RecurrencePattern.EndDate))
	}
}

func TestDecode_ForeignCalendar(t *testing.T) {
	const input = "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//Example//EN\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:abc\r\n" +
		"DTSTAMP:20250101T000000Z\r\n" +
		"DTSTART:20250301T100000\r\n" +
		"DURATION:PT45M\r\n" +
		"SUMMARY:Office hours\r\n" +
		"CATEGORIES:Meeting,Work\r\n" +
		"ATTENDEE:mailto:alice@example.com\r\n" +
		"RRULE:FREQ=MONTHLY;COUNT=3\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	berlin := time.FixedZone("CET", 60*60)
	events, err := Decode(strings.NewReader(input), berlin)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, "abc", e.ID)
	assert.Equal(t, storage.EventTypeEvent, e.Type)
	assert.Equal(t, []string{"alice@example.com"}, e.Attendees)
	assert.True(t, e.StartTime.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, berlin)))
	assert.Equal(t, 45*time.Minute, e.EndTime.Sub(e.StartTime))
	require.True(t, e.IsRecurring)
	assert.Equal(t, storage.FrequencyMonthly, e.RecurrencePattern.Type)
	require.NotNil(t, e.RecurrencePattern.Occurrences)
	assert.Equal(t, 3, *e.RecurrencePattern.Occurrences)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(strings.NewReader("this is not a calendar"), nil)
	assert.True(t, storage.IsErrorType(err, storage.ErrInvalidInput), "got %v", err)

	cal, err := NewCalendar("", sampleEvents()[:1], time.Now())
	require.NoError(t, err)
	cal.Children[0].Props.Get(ical.PropRecurrenceRule).Value = "FREQ=HOURLY"

	var buf bytes.Buffer
	require.NoError(t, ical.NewEncoder(&buf).Encode(cal))
	_, err = Decode(&buf, nil)
	assert.True(t, storage.IsErrorType(err, storage.ErrInvalidPattern), "got %v", err)
}

func TestEventType(t *testing.T) {
	assert.Equal(t, storage.EventTypeExam, eventType("EXAM"))
	assert.Equal(t, storage.EventTypeHoliday, eventType(" holiday ,Other"))
	assert.Equal(t, storage.EventTypeEvent, eventType(""))
	assert.Equal(t, storage.EventTypeEvent, eventType("party"))
}
