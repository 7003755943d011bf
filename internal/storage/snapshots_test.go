package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	db, err := Open(DefaultConfig(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSnapshotStore(db)
}

func TestSnapshotStore_SaveLatest(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	payload := bytes.Repeat([]byte(`{"total_customers":100,"churned_customers":30}`), 20)
	fetched := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	snap := &Snapshot{
		View:      "overview",
		LoadID:    "load-1",
		Endpoint:  "/api/data/overview",
		FetchedAt: fetched,
		Payload:   payload,
	}
	require.NoError(t, store.Save(ctx, snap))
	assert.NotZero(t, snap.ID)
	assert.Equal(t, len(payload), snap.RawSize)
	assert.Less(t, snap.Stored, snap.RawSize, "repetitive payload should compress")

	latest, err := store.Latest(ctx, "overview")
	require.NoError(t, err)
	assert.Equal(t, payload, latest.Payload)
	assert.Equal(t, "load-1", latest.LoadID)
	assert.Equal(t, "/api/data/overview", latest.Endpoint)
	assert.True(t, fetched.Equal(latest.FetchedAt), "fetched_at %v != %v", latest.FetchedAt, fetched)
}

func TestSnapshotStore_LatestNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Latest(context.Background(), "pca")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSnapshotStore_ListAndPrune(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, &Snapshot{
			View:      "clustering",
			LoadID:    string(rune('a' + i)),
			Endpoint:  "/api/clustering/segments",
			FetchedAt: time.Now(),
			Payload:   []byte(`{"clusters":[]}`),
		}))
	}
	require.NoError(t, store.Save(ctx, &Snapshot{View: "pca", Payload: []byte(`{}`), FetchedAt: time.Now()}))

	list, err := store.List(ctx, "clustering", 3)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "e", list[0].LoadID, "newest first")
	assert.Nil(t, list[0].Payload)

	all, err := store.List(ctx, "clustering", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	deleted, err := store.Prune(ctx, "clustering", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	n, err := store.Count(ctx, "clustering")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.Count(ctx, "pca")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "prune must not touch other views")

	latest, err := store.Latest(ctx, "clustering")
	require.NoError(t, err)
	assert.Equal(t, "e", latest.LoadID)

	deleted, err = store.Prune(ctx, "clustering", 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestSnapshotStore_SaveRequiresView(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Save(context.Background(), &Snapshot{Payload: []byte("x")}))
}
