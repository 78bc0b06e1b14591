package schedclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cyp0633/libcalsched/server/schedule"
	"github.com/cyp0633/libcalsched/server/storage"
)

func userQuery(userID string) url.Values {
	v := url.Values{}
	setNonEmpty(v, "userId", userID)
	return v
}

func (c *schedClient) getEvents(ctx context.Context, path string, query url.Values) ([]storage.Event, error) {
	var events []storage.Event
	if err := c.httpClient.DoJSON(ctx, http.MethodGet, path, query, nil, &events); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", path, err)
	}
	return events, nil
}

// Upcoming returns events starting after now. limit <= 0 lets the server
// apply its default.
func (c *schedClient) Upcoming(ctx context.Context, userID string, limit int) ([]storage.Event, error) {
	v := userQuery(userID)
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return c.getEvents(ctx, "events/upcoming", v)
}

func (c *schedClient) Today(ctx context.Context, userID string) ([]storage.Event, error) {
	return c.getEvents(ctx, "events/today", userQuery(userID))
}

func (c *schedClient) Search(ctx context.Context, query, userID string) ([]storage.Event, error) {
	v := userQuery(userID)
	v.Set("q", query)
	return c.getEvents(ctx, "events/search", v)
}

func (c *schedClient) Stats(ctx context.Context, userID string) (schedule.EventStats, error) {
	var stats schedule.EventStats
	if err := c.httpClient.DoJSON(ctx, http.MethodGet, "events/stats", userQuery(userID), nil, &stats); err != nil {
		return schedule.EventStats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

// ExportICS downloads the iCalendar feed of every stored event
func (c *schedClient) ExportICS(ctx context.Context) ([]byte, error) {
	data, err := c.httpClient.DoRaw(ctx, http.MethodGet, "calendar.ics", nil, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to export calendar: %w", err)
	}
	return data, nil
}

// ExportXLSX downloads a spreadsheet timetable of the occurrences between
// from and to. Zero times leave that side open.
func (c *schedClient) ExportXLSX(ctx context.Context, from, to time.Time) ([]byte, error) {
	query := url.Values{}
	if !from.IsZero() {
		query.Set("startDate", from.Format(time.RFC3339))
	}
	if !to.IsZero() {
		query.Set("endDate", to.Format(time.RFC3339))
	}
	data, err := c.httpClient.DoRaw(ctx, http.MethodGet, "calendar.xlsx", query, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to export timetable: %w", err)
	}
	return data, nil
}

// ImportICS uploads an iCalendar stream; all events are created or none are
func (c *schedClient) ImportICS(ctx context.Context, data []byte) ([]storage.Event, error) {
	resp, err := c.httpClient.DoRaw(ctx, http.MethodPost, "calendar/import", nil, "text/calendar; charset=utf-8", data)
	if err != nil {
		return nil, fmt.Errorf("failed to import calendar: %w", err)
	}
	var created []storage.Event
	if err := json.Unmarshal(resp, &created); err != nil {
		return nil, fmt.Errorf("failed to decode imported events: %w", err)
	}
	return created, nil
}
