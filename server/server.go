package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/cyp0633/libcalsched/server/auth/memory"
	"github.com/cyp0633/libcalsched/server/config"
	"github.com/cyp0633/libcalsched/server/handlers"
	"github.com/cyp0633/libcalsched/server/recurrence"
	"github.com/cyp0633/libcalsched/server/schedule"
	"github.com/cyp0633/libcalsched/server/storage"
	"github.com/cyp0633/libcalsched/server/storage/gormstore"
	storemem "github.com/cyp0633/libcalsched/server/storage/memory"
)

// Server is a configured scheduling service with its HTTP handler
type Server struct {
	service *schedule.Service
	handler http.Handler
	logger  *slog.Logger
	closers []func() error
}

// Option configures a Server
type Option func(*options)

type options struct {
	logger  *slog.Logger
	store   storage.Storage
	handler []handlers.Option
}

// WithLogger sets the logger shared by every component
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStorage bypasses cfg.Storage and uses store as is
func WithStorage(store storage.Storage) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithHandlerOptions passes extra options to the REST router
func WithHandlerOptions(opts ...handlers.Option) Option {
	return func(o *options) {
		o.handler = append(o.handler, opts...)
	}
}

// New creates a server from cfg. cfg is normalized and validated first.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	o := &options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(o)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s := &Server{logger: o.logger}

	store := o.store
	if store == nil {
		store, err = s.openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	s.service, err = schedule.New(store,
		schedule.WithLogger(o.logger),
		schedule.WithLocation(loc),
		schedule.WithEngine(recurrence.NewEngineWithConfig(cfg.EngineConfig(o.logger))))
	if err != nil {
		s.Close()
		return nil, err
	}

	routerOpts := []handlers.Option{
		handlers.WithLogger(o.logger),
		handlers.WithCalendarName(cfg.CalendarName),
	}
	if cfg.Auth.Enabled() {
		users := memory.New(memory.WithLogger(o.logger))
		for _, u := range cfg.Auth.Users {
			if err := users.AddUser(memory.User{Username: u.Username, Password: u.Password, Admin: u.Admin}); err != nil {
				s.Close()
				return nil, err
			}
		}
		routerOpts = append(routerOpts, handlers.WithAuthenticator(users, cfg.Auth.Realm))
	}
	routerOpts = append(routerOpts, o.handler...)

	s.handler = handlers.NewRouter(s.service, routerOpts...)
	if cfg.BasePath != "/" {
		s.handler = http.StripPrefix(cfg.BasePath, s.handler)
	}

	o.logger.Info("schedule server configured",
		"storage", cfg.Storage.Driver,
		"base_path", cfg.BasePath,
		"timezone", loc.String(),
		"auth", cfg.Auth.Enabled())

	return s, nil
}

func (s *Server) openStore(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		store, err := gormstore.Open(ctx, cfg.Storage.DSN, gormstore.WithLogger(s.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	default:
		return storemem.New(), nil
	}
}

// Service exposes the underlying service, e.g. to subscribe listeners
func (s *Server) Service() *schedule.Service {
	return s.service
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops the expansion cache and closes the store
func (s *Server) Close() error {
	if s.service != nil {
		s.service.Close()
	}
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil {
			s.logger.Error("failed to close", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
