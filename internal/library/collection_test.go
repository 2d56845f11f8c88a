package library

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/aristath/sentinel-desk/internal/database"
	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	_, err = db.Exec(database.LibrarySchema)
	require.NoError(t, err)
	return NewSQLiteStore(db)
}

func setupBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenBadger(BadgerConfig{InMemory: true}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// Every backend must behave the same.
func stores(t *testing.T) map[string]BlobStore {
	return map[string]BlobStore{
		"memory": NewMemoryStore(),
		"sqlite": setupSQLiteStore(t),
		"badger": setupBadgerStore(t),
	}
}

func TestBlobStores_LoadMissingAndRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			data, err := store.Load(ctx, "missing")
			require.NoError(t, err)
			assert.Nil(t, data)

			require.NoError(t, store.Save(ctx, KeySavedPortfolios, []byte(`[1]`)))
			require.NoError(t, store.Save(ctx, KeySavedPortfolios, []byte(`[2]`)))

			data, err = store.Load(ctx, KeySavedPortfolios)
			require.NoError(t, err)
			assert.Equal(t, `[2]`, string(data))
		})
	}
}

func TestCollection_CRUD(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			col, err := NewCollection[domain.SavedPortfolio](ctx, store, KeySavedPortfolios, zerolog.Nop())
			require.NoError(t, err)

			clock := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
			col.now = func() time.Time { return clock }

			rec, err := col.Put(ctx, Record[domain.SavedPortfolio]{Name: "core"})
			require.NoError(t, err)
			assert.NotEmpty(t, rec.ID)
			assert.Equal(t, clock, rec.CreatedAt)

			clock = clock.Add(time.Hour)
			rec.Value.Name = "core"
			updated, err := col.Put(ctx, rec)
			require.NoError(t, err)
			assert.Equal(t, rec.ID, updated.ID)
			assert.Equal(t, clock.Add(-time.Hour), updated.CreatedAt)
			assert.Equal(t, clock, updated.UpdatedAt)

			_, err = col.Put(ctx, Record[domain.SavedPortfolio]{Name: "satellite"})
			require.NoError(t, err)

			list, err := col.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "core", list[0].Name)
			assert.Equal(t, "satellite", list[1].Name)

			// A second collection over the same store sees the persisted state.
			reopened, err := NewCollection[domain.SavedPortfolio](ctx, store, KeySavedPortfolios, zerolog.Nop())
			require.NoError(t, err)
			got, err := reopened.Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, "core", got.Value.Name)

			require.NoError(t, col.Delete(ctx, rec.ID))
			_, err = col.Get(ctx, rec.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, col.Delete(ctx, rec.ID), ErrNotFound)
		})
	}
}

func TestCollection_RejectsEmptyName(t *testing.T) {
	col, err := NewCollection[domain.SavedPortfolio](context.Background(), NewMemoryStore(), KeySavedPortfolios, zerolog.Nop())
	require.NoError(t, err)

	_, err = col.Put(context.Background(), Record[domain.SavedPortfolio]{Name: "  "})

	assert.Error(t, err)
}

func TestCollection_CorruptBlob(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), KeyAllocationPolicies, []byte(`{not json`)))

	_, err := NewCollection[domain.AllocationPolicy](context.Background(), store, KeyAllocationPolicies, zerolog.Nop())

	assert.Error(t, err)
}

type failingStore struct {
	*MemoryStore
}

func (failingStore) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestCollection_FailedSaveKeepsMemoryConsistent(t *testing.T) {
	ctx := context.Background()
	col, err := NewCollection[domain.SavedPortfolio](ctx, failingStore{NewMemoryStore()}, KeySavedPortfolios, zerolog.Nop())
	require.NoError(t, err)

	_, err = col.Put(ctx, Record[domain.SavedPortfolio]{Name: "core"})
	require.Error(t, err)

	list, err := col.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
