package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cyp0633/libcalsched/server/storage"
)

// errorBody is the JSON shape of every failed response
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (r *Router) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(HeaderContentType, MimeTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		r.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps storage error kinds onto HTTP statuses. Anything else is
// an internal error and its detail stays in the log.
func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) {
	var se *storage.Error
	if !errors.As(err, &se) {
		r.logger.Error("request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"error", err)
		r.writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "internal",
			Message: "internal server error",
		})
		return
	}

	status := http.StatusBadRequest
	switch se.Type {
	case storage.ErrNotFound:
		status = http.StatusNotFound
	case storage.ErrAlreadyExists:
		status = http.StatusConflict
	}

	r.logger.Info("request rejected",
		"method", req.Method,
		"path", req.URL.Path,
		"kind", se.Type,
		"error", err)
	r.writeJSON(w, status, errorBody{Error: string(se.Type), Message: err.Error()})
}

// decodeJSON reads a size-limited JSON body into v
func decodeJSON(w http.ResponseWriter, req *http.Request, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return storage.NewError(storage.ErrInvalidInput, "invalid JSON body: %v", err)
	}
	return nil
}

// parseDate accepts YYYY-MM-DD (interpreted in loc) or RFC 3339.
func parseDate(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, storage.NewError(storage.ErrInvalidInput, "invalid date %q", value)
}

// parseFilter builds an EventFilter from query parameters
func parseFilter(q url.Values, loc *time.Location) (storage.EventFilter, error) {
	var f storage.EventFilter

	if v := q.Get("startDate"); v != "" {
		t, err := parseDate(v, loc)
		if err != nil {
			return f, err
		}
		f.StartDate = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := parseDate(v, loc)
		if err != nil {
			return f, err
		}
		f.EndDate = &t
	}
	if v := q.Get("type"); v != "" {
		t := storage.EventType(v)
		if !t.Valid() {
			return f, storage.NewError(storage.ErrInvalidInput, "unknown event type %q", v)
		}
		f.Type = &t
	}
	f.UserID = optional(q, "userId")
	f.CourseID = optional(q, "courseId")
	f.TeacherID = optional(q, "teacherId")
	f.Class = optional(q, "class")

	return f, nil
}

// optional treats an empty parameter as absent
func optional(q url.Values, key string) *string {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	return &v
}

func parseLimit(value string) (int, error) {
	if value == "" {
		return DefaultUpcomingLimit, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, storage.NewError(storage.ErrInvalidInput, "invalid limit %s", strconv.Quote(value))
	}
	return n, nil
}

// nonNil keeps list responses as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
