package schedclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cyp0633/libcalsched/server/storage"
)

func eventPath(id string) string {
	return "events/" + url.PathEscape(id)
}

func (c *schedClient) GetEvent(ctx context.Context, id string) (storage.Event, error) {
	var event storage.Event
	if err := c.httpClient.DoJSON(ctx, http.MethodGet, eventPath(id), nil, nil, &event); err != nil {
		return storage.Event{}, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return event, nil
}

// CreateEvent stores a new event; the server assigns an id when ID is empty
func (c *schedClient) CreateEvent(ctx context.Context, event storage.Event) (storage.Event, error) {
	var created storage.Event
	if err := c.httpClient.DoJSON(ctx, http.MethodPost, "events", nil, event, &created); err != nil {
		return storage.Event{}, fmt.Errorf("failed to create event: %w", err)
	}
	return created, nil
}

// UpdateEvent applies patch. Absent options encode as null, which the
// server decodes as absent, so those fields stay unchanged.
func (c *schedClient) UpdateEvent(ctx context.Context, id string, patch storage.EventPatch) (storage.Event, error) {
	var updated storage.Event
	if err := c.httpClient.DoJSON(ctx, http.MethodPut, eventPath(id), nil, patch, &updated); err != nil {
		return storage.Event{}, fmt.Errorf("failed to update event %s: %w", id, err)
	}
	return updated, nil
}

func (c *schedClient) DeleteEvent(ctx context.Context, id string) error {
	if err := c.httpClient.DoJSON(ctx, http.MethodDelete, eventPath(id), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	return nil
}

// CreateBulkEvents stores all events or none of them
func (c *schedClient) CreateBulkEvents(ctx context.Context, events []storage.Event) ([]storage.Event, error) {
	if events == nil {
		events = []storage.Event{}
	}
	var created []storage.Event
	if err := c.httpClient.DoJSON(ctx, http.MethodPost, "events/bulk", nil, events, &created); err != nil {
		return nil, fmt.Errorf("failed to create events: %w", err)
	}
	return created, nil
}

// DeleteBulkEvents returns how many of ids existed
func (c *schedClient) DeleteBulkEvents(ctx context.Context, ids []string) (int, error) {
	if ids == nil {
		ids = []string{}
	}
	var resp struct {
		Deleted int `json:"deleted"`
	}
	body := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	if err := c.httpClient.DoJSON(ctx, http.MethodDelete, "events", nil, body, &resp); err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	return resp.Deleted, nil
}
