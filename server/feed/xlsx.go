package feed

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cyp0633/libcalsched/server/storage"
)

// XLSXContentType is the media type of WriteXLSX output
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var xlsxHeader = []string{
	"Date", "Day", "Start", "End", "Title", "Type",
	"Location", "Course", "Teacher", "Class", "Attendees", "Recurring",
}

var xlsxWidths = []float64{12, 6, 8, 8, 32, 12, 16, 12, 12, 12, 24, 10}

// sheetName strips characters Excel rejects and keeps the 31 rune limit.
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" {
		return "Schedule"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

// WriteXLSX writes events (normally expanded occurrences) as a one-sheet
// timetable, one row per event, times rendered in loc.
func WriteXLSX(w io.Writer, name string, events []storage.Event, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(name)
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("failed to drop default sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, title := range xlsxHeader {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, xlsxWidths[i])
		f.SetCellValue(sheet, cell(col, 1), title)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(xlsxHeader))
	f.SetCellStyle(sheet, "A1", cell(lastCol, 1), headerStyle)
	f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, e := range events {
		start := e.StartTime.In(loc)
		end := e.EndTime.In(loc)
		recurring := ""
		if e.IsRecurring {
			recurring = "yes"
		}
		values := []any{
			start.Format(time.DateOnly),
			start.Weekday().String()[:3],
			start.Format("15:04"),
			end.Format("15:04"),
			e.Title,
			string(e.Type),
			e.Location,
			e.CourseID,
			e.TeacherID,
			e.ClassID,
			strings.Join(e.Attendees, ", "),
			recurring,
		}
		if err := f.SetSheetRow(sheet, cell("A", i+2), &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if len(events) > 0 {
		if err := f.AutoFilter(sheet, "A1:"+cell(lastCol, len(events)+1), nil); err != nil {
			return fmt.Errorf("failed to set auto filter: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
