package feed

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cyp0633/libcalsched/server/storage"
)

func TestWriteXLSX(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	lecture := storage.NewMockEvent("algebra-2025-01-06", "Algebra", storage.EventTypeClass,
		time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 6, 1, 30, 0, 0, time.UTC))
	lecture.IsRecurring = true
	lecture.CourseID = "math101"
	lecture.Attendees = []string{"alice", "bob"}
	exam := storage.NewMockEvent("midterm", "Midterm", storage.EventTypeExam,
		time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC), time.Date(2025, 1, 8, 11, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, "Spring: term [A]", []storage.Event{lecture, exam}, tokyo))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Spring term A"}, f.GetSheetList())
	rows, err := f.GetRows("Spring term A")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, xlsxHeader, rows[0])
	assert.Equal(t, []string{"2025-01-06", "Mon", "09:00", "10:30", "Algebra", "class", "", "math101", "", "", "alice, bob", "yes"}, rows[1])
	require.GreaterOrEqual(t, len(rows[2]), 6)
	assert.Equal(t, []string{"2025-01-08", "Wed", "18:00", "20:00", "Midterm", "exam"}, rows[2][:6])
}

func TestWriteXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, "", nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Schedule")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Schedule", sheetName(" / "))
	assert.Equal(t, "Term", sheetName("Term"))
	assert.Len(t, []rune(sheetName("a very long calendar name that keeps going")), 31)
}
