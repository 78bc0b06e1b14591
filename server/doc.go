/*
Package server hosts the scheduling engine and its HTTP surface.

The engine stores one-off events and recurring templates, expands templates
into dated instances on demand, and answers filtered, upcoming, today,
search and statistics queries over the result.

# Packages

  - storage: the Event model, filters, errors and the Storage interface
  - storage/memory: in-process store, the default
  - storage/gormstore: PostgreSQL store built on GORM
  - recurrence: the expander (daily, weekly, monthly, yearly) with an
    optional expansion cache and RRULE conversion
  - schedule: the Service combining a store and the expander; mutations
    notify subscribed listeners with a snapshot of every stored event
  - feed: iCalendar (RFC 5545) export and import
  - handlers: the JSON REST router
  - auth, auth/memory: optional HTTP Basic authentication
  - config: YAML configuration

# Basic Usage

	svc, err := schedule.New(memory.New(), schedule.WithLocation(time.UTC))
	if err != nil {
		log.Fatal(err)
	}
	defer svc.Close()

	http.ListenAndServe(":8080", handlers.NewRouter(svc))

# Routes

	POST   /events              create an event
	POST   /events/bulk         create a batch, all or nothing
	DELETE /events              delete {"ids": [...]}
	GET    /events              filtered and expanded list
	GET    /events/{id}         stored event
	PUT    /events/{id}         partial update
	DELETE /events/{id}         delete
	GET    /events/stats        counts by type and month
	GET    /events/upcoming     next events after now
	GET    /events/today        events starting today
	GET    /events/search       case-insensitive text search
	GET    /calendar.ics        iCalendar feed of stored events
	GET    /calendar.xml        xCal (RFC 6321) feed
	GET    /calendar.xlsx       spreadsheet timetable of occurrences
	POST   /calendar/import     import iCalendar or xCal
	GET    /healthz             liveness

# Error Handling

Failures carry a storage.Error whose Type picks the HTTP status:

	not_found           404
	already_exists      409
	invalid_input       400
	invalid_time_range  400
	invalid_pattern     400

See server/example/main.go for a complete server.
*/
package server
