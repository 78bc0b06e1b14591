package recurrence

import (
	"time"
)

// DefaultWindowSpan is how far past "now" expansion runs when the caller
// gives no explicit end.
const DefaultWindowSpan = 6 // months

// Window is the [Start, End] range expansion is bounded by.
// A zero Start means no lower bound. A zero End must be filled in with
// Engine.ResolveWindow before expanding.
type Window struct {
	Start time.Time
	End   time.Time
}

// contains reports whether t lies in the closed window.
func (w Window) contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	return !t.After(w.End)
}

// OccurrenceID derives the id of the instance of templateID starting at t.
func OccurrenceID(templateID string, t time.Time) string {
	return templateID + "-" + t.Format(time.DateOnly)
}
