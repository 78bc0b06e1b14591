package recurrence

import (
	"log/slog"
	"slices"
	"time"

	"github.com/cyp0633/libcalsched/server/storage"
)

// Engine expands recurring templates into concrete occurrence instances.
// It is safe for concurrent use.
type Engine struct {
	cache  *ExpansionCache
	config EngineConfig
	logger *slog.Logger
}

// NewEngine creates a recurrence engine without caching
func NewEngine() *Engine {
	return NewEngineWithConfig(DisabledCacheConfig)
}

// Close releases the expansion cache, if any.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// CacheStats reports cache usage. ok is false when caching is disabled.
func (e *Engine) CacheStats() (stats CacheStats, ok bool) {
	if e.cache == nil {
		return CacheStats{}, false
	}
	return e.cache.Stats(), true
}

// ResolveWindow fills a zero End with now + DefaultWindowMonths.
func (e *Engine) ResolveWindow(w Window, now time.Time) Window {
	if w.End.IsZero() {
		w.End = now.AddDate(0, e.config.DefaultWindowMonths, 0)
	}
	return w
}

// Expand returns the instances of template that fall inside the window, in
// chronological order. Non-recurring events are returned as-is when their
// start lies in the window. The result never aliases the template.
//
// The window must already be resolved; a zero End yields nothing.
func (e *Engine) Expand(template storage.Event, window Window) []storage.Event {
	if window.End.IsZero() {
		return nil
	}

	if !template.IsRecurring || template.RecurrencePattern == nil {
		if window.contains(template.StartTime) {
			return []storage.Event{template.Clone()}
		}
		return nil
	}

	var key string
	if e.cache != nil {
		key = cacheKey(template, window)
		if cached, ok := e.cache.Get(key); ok {
			return cached
		}
	}

	instances := e.expand(template, window)

	if e.cache != nil && key != "" {
		e.cache.Set(key, instances)
	}
	return instances
}

func (e *Engine) expand(template storage.Event, window Window) []storage.Event {
	pattern := template.RecurrencePattern
	step, ok := steps[pattern.Type]
	if !ok {
		// Patterns are validated before they are stored; treat an unknown
		// frequency as a single occurrence.
		e.logger.Warn("unknown recurrence type, emitting anchor only",
			"event_id", template.ID,
			"type", pattern.Type)
		step = func(*storage.RecurrencePattern, []time.Weekday, time.Time, time.Time) time.Time {
			return window.End
		}
	}

	anchor := template.StartTime
	duration := template.Duration()
	days := normalizeWeekdays(pattern.DaysOfWeek)

	var instances []storage.Event
	count := 0
	for current := anchor; current.Before(window.End); current = step(pattern, days, anchor, current) {
		if pattern.Occurrences != nil && count >= *pattern.Occurrences {
			break
		}
		if pattern.EndDate != nil && current.After(*pattern.EndDate) {
			break
		}

		count++
		if !window.Start.IsZero() && current.Before(window.Start) {
			continue
		}

		instance := template.Clone()
		instance.ID = OccurrenceID(template.ID, current)
		instance.StartTime = current
		instance.EndTime = current.Add(duration)
		instances = append(instances, instance)

		if len(instances) >= e.config.MaxOccurrences {
			e.logger.Warn("expansion truncated",
				"event_id", template.ID,
				"cap", e.config.MaxOccurrences)
			break
		}
	}
	return instances
}

// stepFunc advances current to the next candidate start. anchor is the
// template's own start and days the sorted weekday set.
type stepFunc func(p *storage.RecurrencePattern, days []time.Weekday, anchor, current time.Time) time.Time

var steps = map[storage.Frequency]stepFunc{
	storage.FrequencyDaily:   stepDaily,
	storage.FrequencyWeekly:  stepWeekly,
	storage.FrequencyMonthly: stepMonthly,
	storage.FrequencyYearly:  stepYearly,
}

// interval never returns less than 1, otherwise the loop would not advance.
func interval(p *storage.RecurrencePattern) int {
	if p.Interval < 1 {
		return 1
	}
	return p.Interval
}

func stepDaily(p *storage.RecurrencePattern, _ []time.Weekday, _, current time.Time) time.Time {
	return current.AddDate(0, 0, interval(p))
}

// stepWeekly moves to the next listed weekday later in the same week, or
// else jumps interval weeks ahead to the first listed weekday of that
// Sunday-based week.
func stepWeekly(p *storage.RecurrencePattern, days []time.Weekday, _, current time.Time) time.Time {
	if len(days) == 0 {
		return current.AddDate(0, 0, 7*interval(p))
	}
	wd := current.Weekday()
	for _, d := range days {
		if d > wd {
			return current.AddDate(0, 0, int(d-wd))
		}
	}
	return current.AddDate(0, 0, 7*interval(p)-int(wd)+int(days[0]))
}

func stepMonthly(p *storage.RecurrencePattern, _ []time.Weekday, anchor, current time.Time) time.Time {
	return addMonthsClamped(anchor, monthsBetween(anchor, current)+interval(p))
}

func stepYearly(p *storage.RecurrencePattern, _ []time.Weekday, anchor, current time.Time) time.Time {
	return addMonthsClamped(anchor, monthsBetween(anchor, current)+12*interval(p))
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// addMonthsClamped adds n calendar months to t, keeping t's day of month
// unless the target month is shorter, in which case its last day is used.
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// normalizeWeekdays returns a sorted, de-duplicated copy of days.
func normalizeWeekdays(days []time.Weekday) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	out := slices.Clone(days)
	slices.Sort(out)
	return slices.Compact(out)
}
