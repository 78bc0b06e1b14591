// Package schedule is the query, statistics and mutation layer of the
// scheduling engine. A Service owns a storage backend, a recurrence engine
// and a set of change listeners.
package schedule

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cyp0633/libcalsched/server/recurrence"
	"github.com/cyp0633/libcalsched/server/storage"
)

// Listener receives the full store snapshot after every successful mutation.
// A returned error is logged and otherwise ignored.
type Listener func(snapshot []storage.Event) error

// Service is the entry point for callers (HTTP handlers, jobs, tests).
type Service struct {
	store  storage.Storage
	engine *recurrence.Engine
	logger *slog.Logger
	loc    *time.Location

	// mu serializes mutations so validation and write are atomic.
	mu sync.Mutex

	listenersMu sync.RWMutex
	listeners   map[int]Listener
	nextID      int
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEngine replaces the default (uncached) recurrence engine.
func WithEngine(engine *recurrence.Engine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithLocation sets the zone used for day and month boundaries.
// Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// New creates a Service on top of store.
func New(store storage.Storage, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}

	s := &Service{
		store:     store,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		loc:       time.Local,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = recurrence.NewEngine()
	}

	return s, nil
}

// Close releases the recurrence engine.
func (s *Service) Close() {
	s.engine.Close()
}

// Location returns the zone used for day boundaries.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Subscribe registers l and returns a function that removes it.
func (s *Service) Subscribe(l Listener) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// mutate runs fn under the mutation lock and, if it succeeds, hands the
// resulting snapshot to every listener.
func (s *Service) mutate(ctx context.Context, op string, fn func() (changed bool, err error)) error {
	s.mu.Lock()
	changed, err := fn()
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	snapshot, err := s.store.All(ctx)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("failed to load snapshot for listeners",
			"op", op,
			"error", err)
		return nil
	}
	s.notify(op, snapshot)
	return nil
}

func (s *Service) notify(op string, snapshot []storage.Event) {
	s.listenersMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		s.callListener(op, l, snapshot)
	}
}

func (s *Service) callListener(op string, l Listener, snapshot []storage.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("listener panicked",
				"op", op,
				"panic", r)
		}
	}()

	events := make([]storage.Event, len(snapshot))
	for i, e := range snapshot {
		events[i] = e.Clone()
	}
	if err := l(events); err != nil {
		s.logger.Warn("listener failed",
			"op", op,
			"error", err)
	}
}
