// Package gormstore is a PostgreSQL event store built on GORM.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/samber/mo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cyp0633/libcalsched/server/storage"
)

// Store implements storage.Storage on a *gorm.DB.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ storage.Storage = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New wraps an open database. Call Migrate before first use.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to PostgreSQL, pings it and migrates the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := New(db, opts...)
	if err := s.Migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	s.logger.Info("connected to database")
	return s, nil
}

// Migrate creates or updates the events table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&eventRecord{}); err != nil {
		return fmt.Errorf("failed to migrate events table: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Insert(ctx context.Context, event storage.Event) (storage.Event, error) {
	if event.ID == "" {
		event.ID = storage.NewID()
	}
	rec := toRecord(event)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&eventRecord{}).Where("id = ?", rec.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return storage.NewError(storage.ErrAlreadyExists, "event %s already exists", rec.ID)
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return storage.Event{}, err
	}

	s.logger.Debug("event inserted", "event_id", rec.ID)
	return rec.toEvent(), nil
}

func (s *Store) Update(ctx context.Context, id string, patch storage.EventPatch) (storage.Event, error) {
	var updated eventRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current eventRecord
		if err := tx.Where("id = ?", id).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.NewError(storage.ErrNotFound, "event %s not found", id)
			}
			return err
		}

		updated = toRecord(patch.Apply(current.toEvent()))
		updated.Seq = current.Seq
		updated.CreatedAt = current.CreatedAt
		return tx.Save(&updated).Error
	})
	if err != nil {
		return storage.Event{}, err
	}
	return updated.toEvent(), nil
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&eventRecord{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// BulkInsert stores all events in one transaction or none of them.
func (s *Store) BulkInsert(ctx context.Context, events []storage.Event) ([]storage.Event, error) {
	if len(events) == 0 {
		return []storage.Event{}, nil
	}

	recs := make([]eventRecord, len(events))
	ids := make([]string, len(events))
	seen := make(map[string]struct{}, len(events))
	for i, e := range events {
		if e.ID == "" {
			e.ID = storage.NewID()
		}
		if _, dup := seen[e.ID]; dup {
			return nil, storage.NewError(storage.ErrAlreadyExists, "event %s appears twice in batch", e.ID)
		}
		seen[e.ID] = struct{}{}
		recs[i] = toRecord(e)
		ids[i] = e.ID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []string
		if err := tx.Model(&eventRecord{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			return storage.NewError(storage.ErrAlreadyExists, "event %s already exists", existing[0])
		}
		return tx.Create(&recs).Error
	})
	if err != nil {
		return nil, err
	}

	out := make([]storage.Event, len(recs))
	for i, r := range recs {
		out[i] = r.toEvent()
	}
	s.logger.Debug("events inserted", "count", len(out))
	return out, nil
}

func (s *Store) BulkDelete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&eventRecord{})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (s *Store) Get(ctx context.Context, id string) (mo.Option[storage.Event], error) {
	var rec eventRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return mo.None[storage.Event](), nil
	}
	if err != nil {
		return mo.None[storage.Event](), err
	}
	return mo.Some(rec.toEvent()), nil
}

// All returns every event in insertion order.
func (s *Store) All(ctx context.Context) ([]storage.Event, error) {
	var recs []eventRecord
	if err := s.db.WithContext(ctx).Order("seq ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]storage.Event, len(recs))
	for i, r := range recs {
		out[i] = r.toEvent()
	}
	return out, nil
}
