package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/libcalsched/server/storage"
)

var (
	testStart = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	testEnd   = testStart.Add(time.Hour)
)

func TestStore_InsertAndGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.Insert(ctx, storage.NewMockEvent("", "Lecture", storage.EventTypeClass, testStart, testEnd))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPresent())
	assert.Equal(t, created, got.MustGet())

	// Explicit ids are kept, duplicates rejected
	_, err = store.Insert(ctx, storage.NewMockEvent("fixed", "A", storage.EventTypeExam, testStart, testEnd))
	require.NoError(t, err)
	_, err = store.Insert(ctx, storage.NewMockEvent("fixed", "B", storage.EventTypeExam, testStart, testEnd))
	assert.True(t, storage.IsErrorType(err, storage.ErrAlreadyExists))

	missing, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, missing.IsPresent())
}

func TestStore_Update(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.Insert(ctx, storage.NewMockEvent("e1", "Lecture", storage.EventTypeClass, testStart, testEnd))
	require.NoError(t, err)

	updated, err := store.Update(ctx, created.ID, storage.EventPatch{
		Title:    mo.Some("Seminar"),
		Location: mo.Some("Hall B"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Seminar", updated.Title)
	assert.Equal(t, "Hall B", updated.Location)
	assert.Equal(t, storage.EventTypeClass, updated.Type)

	_, err = store.Update(ctx, "missing", storage.EventPatch{Title: mo.Some("x")})
	assert.True(t, storage.IsErrorType(err, storage.ErrNotFound))
}

func TestStore_DeleteAndBulk(t *testing.T) {
	store := New()
	ctx := context.Background()

	batch := []storage.Event{
		storage.NewMockEvent("a", "A", storage.EventTypeClass, testStart, testEnd),
		storage.NewMockEvent("b", "B", storage.EventTypeExam, testStart, testEnd),
		storage.NewMockEvent("", "C", storage.EventTypeHoliday, testStart, testEnd),
	}
	created, err := store.BulkInsert(ctx, batch)
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.NotEmpty(t, created[2].ID)

	// A batch with one conflicting id inserts nothing
	_, err = store.BulkInsert(ctx, []storage.Event{
		storage.NewMockEvent("d", "D", storage.EventTypeClass, testStart, testEnd),
		storage.NewMockEvent("a", "dup", storage.EventTypeClass, testStart, testEnd),
	})
	assert.True(t, storage.IsErrorType(err, storage.ErrAlreadyExists))
	d, _ := store.Get(ctx, "d")
	assert.False(t, d.IsPresent())

	removed, err := store.Delete(ctx, "a")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.Delete(ctx, "a")
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := store.BulkDelete(ctx, []string{"b", "zzz", created[2].ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_AllKeepsInsertionOrderAndCopies(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, id := range []string{"z", "a", "m"} {
		e := storage.NewMockEvent(id, id, storage.EventTypeClass, testStart, testEnd)
		e.Attendees = []string{"u1"}
		_, err := store.Insert(ctx, e)
		require.NoError(t, err)
	}

	all, err := store.All(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, e := range all {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"z", "a", "m"}, ids)

	all[0].Attendees[0] = "mutated"
	again, _ := store.Get(ctx, "z")
	assert.Equal(t, "u1", again.MustGet().Attendees[0])
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				e, err := store.Insert(ctx, storage.NewMockEvent("", "x", storage.EventTypeClass, testStart, testEnd))
				if err != nil {
					t.Error(err)
					return
				}
				_, _ = store.All(ctx)
				if j%2 == 0 {
					_, _ = store.Delete(ctx, e.ID)
				}
			}
		}()
	}
	wg.Wait()

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 250)
}
