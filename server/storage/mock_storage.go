package storage

import (
	"context"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Insert(ctx context.Context, event Event) (Event, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(Event), args.Error(1)
}

func (m *MockStorage) Update(ctx context.Context, id string, patch EventPatch) (Event, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(Event), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) BulkInsert(ctx context.Context, events []Event) ([]Event, error) {
	args := m.Called(ctx, events)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Event), args.Error(1)
}

func (m *MockStorage) BulkDelete(ctx context.Context, ids []string) (int, error) {
	args := m.Called(ctx, ids)
	return args.Int(0), args.Error(1)
}

func (m *MockStorage) Get(ctx context.Context, id string) (mo.Option[Event], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(mo.Option[Event]), args.Error(1)
}

func (m *MockStorage) All(ctx context.Context) ([]Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Event), args.Error(1)
}

// --- Helper methods for creating test data ---

// NewMockEvent creates a one-off test event
func NewMockEvent(id, title string, eventType EventType, start, end time.Time) Event {
	return Event{
		ID:        id,
		Title:     title,
		Type:      eventType,
		StartTime: start,
		EndTime:   end,
	}
}

// NewMockRecurringEvent creates a recurring test template
func NewMockRecurringEvent(id, title string, start, end time.Time, pattern RecurrencePattern) Event {
	e := NewMockEvent(id, title, EventTypeClass, start, end)
	e.IsRecurring = true
	e.RecurrencePattern = &pattern
	return e
}
