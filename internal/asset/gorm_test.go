package asset

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eugene7997/Vidrpy/internal/database"
)

func setupGormRepository(t *testing.T) *GormRepository {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.Open("sqlite", dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, Migrate(db))
	return NewGormRepository(db)
}

func TestGormRepository_CreateGet(t *testing.T) {
	repo := setupGormRepository(t)
	ctx := context.Background()

	local := "idb-key-1"
	size := int64(1024)
	a := New("owner-1", "a.webm")
	a.LocalReference = &local
	a.SizeBytes = &size

	require.NoError(t, repo.Create(ctx, a))

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.Equal(t, "a.webm", got.DisplayName)
	assert.Equal(t, StatusPending, got.LocalStatus)
	assert.Equal(t, StatusPending, got.CloudStatus)
	require.NotNil(t, got.LocalReference)
	assert.Equal(t, local, *got.LocalReference)
	require.NotNil(t, got.SizeBytes)
	assert.Equal(t, size, *got.SizeBytes)
	assert.Nil(t, got.DurableReference)
	assert.Nil(t, got.DurationMs)
	assert.WithinDuration(t, a.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestGormRepository_Get_NotFound(t *testing.T) {
	repo := setupGormRepository(t)

	_, err := repo.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepository_ListByOwner(t *testing.T) {
	repo := setupGormRepository(t)
	ctx := context.Background()

	older := New("owner-1", "old.webm")
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	newer := New("owner-1", "new.webm")
	foreign := New("owner-2", "x.webm")
	for _, a := range []*Asset{older, newer, foreign} {
		require.NoError(t, repo.Create(ctx, a))
	}

	list, err := repo.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	empty, err := repo.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGormRepository_Update(t *testing.T) {
	repo := setupGormRepository(t)
	ctx := context.Background()
	a := New("owner-1", "a.webm")
	require.NoError(t, repo.Create(ctx, a))

	later := a.LastModified.Add(time.Minute)
	repo.now = func() time.Time { return later }

	ref := "https://x.example/storage/v1/object/public/videos/" + a.ID + "/a.webm"
	success := StatusSuccess
	retries := 2
	updated, err := repo.Update(ctx, a.ID, Patch{
		DurableReference: &ref,
		LocalStatus:      &success,
		CloudStatus:      &success,
		CloudRetryCount:  &retries,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, updated.LocalStatus)
	assert.Equal(t, StatusSuccess, updated.CloudStatus)
	require.NotNil(t, updated.DurableReference)
	assert.Equal(t, ref, *updated.DurableReference)
	assert.Equal(t, 2, updated.CloudRetryCount)
	assert.Equal(t, 0, updated.LocalRetryCount)
	assert.Equal(t, "a.webm", updated.DisplayName, "fields absent from the patch are untouched")
	assert.WithinDuration(t, later, updated.LastModified, time.Millisecond)

	name := "b.webm"
	renamed, err := repo.Update(ctx, a.ID, Patch{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "b.webm", renamed.DisplayName)
	assert.Equal(t, ref, *renamed.DurableReference, "rename keeps the durable reference")
}

func TestGormRepository_Update_Errors(t *testing.T) {
	repo := setupGormRepository(t)
	ctx := context.Background()

	_, err := repo.Update(ctx, uuid.NewString(), BothTracks(StatusFailed))
	assert.ErrorIs(t, err, ErrNotFound)

	a := New("owner-1", "a.webm")
	require.NoError(t, repo.Create(ctx, a))
	_, err = repo.Update(ctx, a.ID, BothTracks("done"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestGormRepository_CheckConstraintRejectsBadStatus(t *testing.T) {
	repo := setupGormRepository(t)
	ctx := context.Background()

	a := New("owner-1", "a.webm")
	a.CloudStatus = "done"
	assert.Error(t, repo.Create(ctx, a))
}

func TestGormRepository_Delete(t *testing.T) {
	repo := setupGormRepository(t)
	ctx := context.Background()
	a := New("owner-1", "a.webm")
	require.NoError(t, repo.Create(ctx, a))

	deleted, err := repo.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "second delete removes nothing")

	_, err = repo.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepository_FailStaleUploads(t *testing.T) {
	repo := setupGormRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }

	stale := New("owner-1", "stale.webm")
	stale.LocalStatus, stale.CloudStatus = StatusSuccess, StatusUploading
	stale.LastModified = base.Add(-time.Hour)

	fresh := New("owner-1", "fresh.webm")
	fresh.LocalStatus, fresh.CloudStatus = StatusUploading, StatusUploading
	fresh.LastModified = base

	idle := New("owner-1", "idle.webm")
	idle.LastModified = base.Add(-time.Hour)

	for _, a := range []*Asset{stale, fresh, idle} {
		require.NoError(t, repo.Create(ctx, a))
	}

	n, err := repo.FailStaleUploads(ctx, base.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, got.LocalStatus)
	assert.Equal(t, StatusFailed, got.CloudStatus)

	got, err = repo.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUploading, got.CloudStatus)

	got, err = repo.Get(ctx, idle.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.CloudStatus)
}
