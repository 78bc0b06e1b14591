package handlers

import (
	"bytes"
	"io"
	"mime"
	"net/http"

	"github.com/cyp0633/libcalsched/internal/xcal"
	"github.com/cyp0633/libcalsched/server/feed"
	"github.com/cyp0633/libcalsched/server/storage"
)

// feedEvents returns the stored templates selected by the query. Date
// parameters are ignored because recurring events are exported as RRULEs.
func (r *Router) feedEvents(req *http.Request) ([]storage.Event, error) {
	filter, err := parseFilter(req.URL.Query(), r.service.Location())
	if err != nil {
		return nil, err
	}
	return r.service.ListEvents(req.Context(), filter)
}

// handleICS handles GET /calendar.ics
func (r *Router) handleICS(w http.ResponseWriter, req *http.Request) {
	events, err := r.feedEvents(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	var buf bytes.Buffer
	if err := feed.Encode(&buf, r.calendarName, events, r.now()); err != nil {
		r.writeError(w, req, err)
		return
	}

	w.Header().Set(HeaderContentType, MimeTypeCalendar)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleXCal handles GET /calendar.xml
func (r *Router) handleXCal(w http.ResponseWriter, req *http.Request) {
	events, err := r.feedEvents(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	data, err := xcal.Marshal(&xcal.Calendar{
		Name:   r.calendarName,
		Stamp:  r.now(),
		Events: events,
	})
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	w.Header().Set(HeaderContentType, MimeTypeXCal)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleXLSX handles GET /calendar.xlsx. Unlike the iCalendar feeds this is
// a timetable of expanded occurrences, so the date parameters apply.
func (r *Router) handleXLSX(w http.ResponseWriter, req *http.Request) {
	filter, err := parseFilter(req.URL.Query(), r.service.Location())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	events, err := r.service.GetEvents(req.Context(), filter, r.now())
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	var buf bytes.Buffer
	if err := feed.WriteXLSX(&buf, r.calendarName, events, r.service.Location()); err != nil {
		r.writeError(w, req, err)
		return
	}

	w.Header().Set(HeaderContentType, feed.XLSXContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": r.calendarName + ".xlsx",
	}))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleImport handles POST /calendar/import. The body is iCalendar unless
// the Content-Type says xCal. All events are created or none are.
func (r *Router) handleImport(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		r.writeError(w, req, storage.NewError(storage.ErrInvalidInput, "failed to read body: %v", err))
		return
	}

	var events []storage.Event
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get(HeaderContentType))
	if mediaType == xcal.ContentType {
		cal, err := xcal.Unmarshal(body)
		if err != nil {
			r.writeError(w, req, err)
			return
		}
		events = cal.Events
	} else {
		events, err = feed.Decode(bytes.NewReader(body), r.service.Location())
		if err != nil {
			r.writeError(w, req, err)
			return
		}
	}

	created, err := r.service.CreateBulkEvents(req.Context(), events)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	r.logger.Info("calendar imported",
		"format", mediaType,
		"count", len(created))
	r.writeJSON(w, http.StatusCreated, nonNil(created))
}
