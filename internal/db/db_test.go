package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/modctl/internal/core"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestReplaceAndLoadLedger(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	entries := []LedgerEntry{
		{ModKey: "mod-a", Source: "a.pak"},
		{ModKey: "mod-b", Source: "b.pak"},
	}
	require.NoError(t, store.ReplacePathEntries(ctx, "data/tex.pak", entries))
	require.NoError(t, store.ReplacePathEntries(ctx, "data/map.bin", entries[:1]))

	ledger, err := store.LoadLedger(ctx)
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	assert.Equal(t, entries, ledger["data/tex.pak"])
	assert.Equal(t, entries[:1], ledger["data/map.bin"])

	// Replacing with an empty slice clears the path.
	require.NoError(t, store.ReplacePathEntries(ctx, "data/map.bin", nil))
	ledger, err = store.LoadLedger(ctx)
	require.NoError(t, err)
	_, ok := ledger["data/map.bin"]
	assert.False(t, ok)
}

func TestActiveModsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertActive(ctx, ActiveMod{ModKey: "mod-a", Pinned: true, ActivatedAt: at}))

	active, err := store.LoadActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "mod-a", active[0].ModKey)
	assert.True(t, active[0].Pinned)
	assert.True(t, active[0].ActivatedAt.Equal(at))

	require.NoError(t, store.DeleteActive(ctx, "mod-a"))
	require.NoError(t, store.DeleteActive(ctx, "mod-a")) // idempotent
	active, err = store.LoadActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSaveModRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	installed := time.Date(2026, 8, 21, 9, 30, 0, 0, time.UTC)
	mod := &core.Mod{
		Key:              "key-1",
		ID:               "repo-77",
		Name:             "Texture Overhaul",
		Version:          "2.1",
		CategoryID:       5,
		CustomCategoryID: -1,
		InstallDate:      &installed,
		Payload: []core.PayloadEntry{
			{Source: "data/tex.pak", Destination: "data/tex.pak"},
		},
	}
	require.NoError(t, store.SaveMod(ctx, mod))

	got, err := store.GetMod(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, mod.Name, got.Name)
	assert.Equal(t, mod.ID, got.ID)
	assert.Equal(t, mod.Payload, got.Payload)
	require.NotNil(t, got.InstallDate)
	assert.True(t, got.InstallDate.Equal(installed))

	// Upsert updates in place.
	mod.CustomCategoryID = 9
	mod.InstallDate = nil
	require.NoError(t, store.SaveMod(ctx, mod))
	got, err = store.GetMod(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, 9, got.CustomCategoryID)
	assert.Nil(t, got.InstallDate)
}

func TestGetModNotFound(t *testing.T) {
	store := newTestDB(t)
	_, err := store.GetMod(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListModsOrdersByName(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	require.NoError(t, store.SaveMod(ctx, &core.Mod{Key: "k1", Name: "zeta", Payload: nil}))
	require.NoError(t, store.SaveMod(ctx, &core.Mod{Key: "k2", Name: "alpha", Payload: nil}))

	mods, err := store.ListMods(ctx)
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Equal(t, "alpha", mods[0].Name)
	assert.Equal(t, "zeta", mods[1].Name)
}

func TestDeleteMod(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	require.NoError(t, store.SaveMod(ctx, &core.Mod{Key: "k1", Name: "alpha"}))
	require.NoError(t, store.DeleteMod(ctx, "k1"))
	assert.ErrorIs(t, store.DeleteMod(ctx, "k1"), core.ErrNotFound)
}

func TestPendingPackagesQueueOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	require.NoError(t, store.EnqueuePending(ctx, "req-1", "/packages/a"))
	require.NoError(t, store.EnqueuePending(ctx, "req-2", "/packages/b"))

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, store.DeletePending(ctx, "req-1"))
	pending, err = store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "/packages/b", pending[0].Location)
}

func TestEnqueuePendingReclaimsLocation(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	require.NoError(t, store.EnqueuePending(ctx, "req-1", "/packages/a"))
	// A new request for the same location takes over the persisted row.
	require.NoError(t, store.EnqueuePending(ctx, "req-2", "/packages/a"))

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "req-2", pending[0].RequestID)

	require.NoError(t, store.DeletePending(ctx, "req-2"))
	pending, err = store.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
