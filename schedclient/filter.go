package schedclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cyp0633/libcalsched/server/storage"
)

// EventQuery builds a GET /events request. Every setter narrows the result.
type EventQuery interface {
	Between(start, end time.Time) EventQuery
	From(start time.Time) EventQuery
	Until(end time.Time) EventQuery
	Type(t storage.EventType) EventQuery
	Course(courseID string) EventQuery
	Teacher(teacherID string) EventQuery
	User(userID string) EventQuery
	Class(classID string) EventQuery
	Do(ctx context.Context) ([]storage.Event, error)
}

// eventLister is the subset of the client the query needs
type eventLister interface {
	listEvents(ctx context.Context, query url.Values) ([]storage.Event, error)
}

type eventQuery struct {
	client    eventLister
	start     *time.Time
	end       *time.Time
	eventType storage.EventType
	courseID  string
	teacherID string
	userID    string
	classID   string
	err       error
}

func (c *schedClient) Events() EventQuery {
	return &eventQuery{client: c}
}

func (q *eventQuery) Between(start, end time.Time) EventQuery {
	if end.Before(start) {
		q.err = storage.NewError(storage.ErrInvalidTimeRange, "end %s is before start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
		return q
	}
	q.start, q.end = &start, &end
	return q
}

func (q *eventQuery) From(start time.Time) EventQuery {
	q.start = &start
	return q
}

func (q *eventQuery) Until(end time.Time) EventQuery {
	q.end = &end
	return q
}

func (q *eventQuery) Type(t storage.EventType) EventQuery {
	if !t.Valid() {
		q.err = storage.NewError(storage.ErrInvalidInput, "unknown event type %q", t)
		return q
	}
	q.eventType = t
	return q
}

func (q *eventQuery) Course(courseID string) EventQuery {
	q.courseID = courseID
	return q
}

func (q *eventQuery) Teacher(teacherID string) EventQuery {
	q.teacherID = teacherID
	return q
}

func (q *eventQuery) User(userID string) EventQuery {
	q.userID = userID
	return q
}

func (q *eventQuery) Class(classID string) EventQuery {
	q.classID = classID
	return q
}

// values converts the builder to query parameters. Dates are sent as
// RFC 3339; the server widens them to whole days in its own zone.
func (q *eventQuery) values() (url.Values, error) {
	if q.err != nil {
		return nil, q.err
	}

	v := url.Values{}
	if q.start != nil {
		v.Set("startDate", q.start.Format(time.RFC3339))
	}
	if q.end != nil {
		v.Set("endDate", q.end.Format(time.RFC3339))
	}
	setNonEmpty(v, "type", string(q.eventType))
	setNonEmpty(v, "courseId", q.courseID)
	setNonEmpty(v, "teacherId", q.teacherID)
	setNonEmpty(v, "userId", q.userID)
	setNonEmpty(v, "class", q.classID)
	return v, nil
}

func (q *eventQuery) Do(ctx context.Context) ([]storage.Event, error) {
	v, err := q.values()
	if err != nil {
		return nil, err
	}
	return q.client.listEvents(ctx, v)
}

func setNonEmpty(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func (c *schedClient) listEvents(ctx context.Context, query url.Values) ([]storage.Event, error) {
	var events []storage.Event
	if err := c.httpClient.DoJSON(ctx, http.MethodGet, "events", query, nil, &events); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
