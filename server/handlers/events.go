package handlers

import (
	"net/http"

	"github.com/cyp0633/libcalsched/server/storage"
)

// handleCreate handles POST /events
func (r *Router) handleCreate(w http.ResponseWriter, req *http.Request) {
	var event storage.Event
	if err := decodeJSON(w, req, &event); err != nil {
		r.writeError(w, req, err)
		return
	}

	created, err := r.service.CreateEvent(req.Context(), event)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	r.logger.Info("event created",
		"id", created.ID,
		"type", created.Type,
		"recurring", created.IsRecurring)
	r.writeJSON(w, http.StatusCreated, created)
}

// handleBulkCreate handles POST /events/bulk
func (r *Router) handleBulkCreate(w http.ResponseWriter, req *http.Request) {
	var events []storage.Event
	if err := decodeJSON(w, req, &events); err != nil {
		r.writeError(w, req, err)
		return
	}

	created, err := r.service.CreateBulkEvents(req.Context(), events)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	r.logger.Info("events created", "count", len(created))
	r.writeJSON(w, http.StatusCreated, nonNil(created))
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

type bulkDeleteResponse struct {
	Deleted int `json:"deleted"`
}

// handleBulkDelete handles DELETE /events with a {"ids": [...]} body
func (r *Router) handleBulkDelete(w http.ResponseWriter, req *http.Request) {
	var body bulkDeleteRequest
	if err := decodeJSON(w, req, &body); err != nil {
		r.writeError(w, req, err)
		return
	}

	n, err := r.service.DeleteBulkEvents(req.Context(), body.IDs)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	r.logger.Info("events deleted",
		"requested", len(body.IDs),
		"deleted", n)
	r.writeJSON(w, http.StatusOK, bulkDeleteResponse{Deleted: n})
}

// handleGet handles GET /events/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) {
	event, err := r.service.GetEventByID(req.Context(), req.PathValue("id"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	r.writeJSON(w, http.StatusOK, event)
}

// handleUpdate handles PUT /events/{id}. Absent fields keep their value.
func (r *Router) handleUpdate(w http.ResponseWriter, req *http.Request) {
	var patch storage.EventPatch
	if err := decodeJSON(w, req, &patch); err != nil {
		r.writeError(w, req, err)
		return
	}

	updated, err := r.service.UpdateEvent(req.Context(), req.PathValue("id"), patch)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	r.logger.Info("event updated", "id", updated.ID)
	r.writeJSON(w, http.StatusOK, updated)
}

// handleDelete handles DELETE /events/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	if err := r.service.DeleteEvent(req.Context(), id); err != nil {
		r.writeError(w, req, err)
		return
	}

	r.logger.Info("event deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleList handles GET /events
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) {
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
	r.writeJSON(w, http.StatusOK, nonNil(events))
}

// handleStats handles GET /events/stats
func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) {
	stats, err := r.service.GetEventStats(req.Context(), req.URL.Query().Get("userId"), r.now())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	r.writeJSON(w, http.StatusOK, stats)
}

// handleUpcoming handles GET /events/upcoming
func (r *Router) handleUpcoming(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	events, err := r.service.GetUpcomingEvents(req.Context(), q.Get("userId"), limit, r.now())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	r.writeJSON(w, http.StatusOK, nonNil(events))
}

// handleToday handles GET /events/today
func (r *Router) handleToday(w http.ResponseWriter, req *http.Request) {
	events, err := r.service.GetTodayEvents(req.Context(), req.URL.Query().Get("userId"), r.now())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	r.writeJSON(w, http.StatusOK, nonNil(events))
}

// handleSearch handles GET /events/search
func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	events, err := r.service.SearchEvents(req.Context(), q.Get("q"), q.Get("userId"), r.now())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	r.writeJSON(w, http.StatusOK, nonNil(events))
}
