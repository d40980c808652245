package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fileshare/internal/model"
)

func TestActivityListFiltersAndSearch(t *testing.T) {
	conn := newTestDB(t)
	repo := NewActivityRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	alice := seedProfile(t, conn, "alice", "Alice Doe")
	share := seedShare(t, conn, alice.ID, "holiday.jpg", 1, now)

	require.NoError(t, repo.CreateMany(ctx, []*model.UserActivity{
		{ID: "a1", UserID: &alice.ID, ActivityType: model.ActivityUpload, FileID: &share.ID, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "a2", ActivityType: model.ActivityView, FileID: &share.ID, IPAddress: ptr("198.51.100.4"), CreatedAt: now.Add(-time.Hour)},
		{ID: "a3", UserID: &alice.ID, ActivityType: model.ActivitySignIn, CreatedAt: now, Metadata: model.Metadata{"method": "password"}},
	}))

	all, err := repo.List(ctx, model.ActivityFilter{}, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a3", all[0].ID)
	assert.Equal(t, "password", all[0].Metadata["method"])
	assert.Equal(t, "holiday.jpg", *all[1].FileName)

	byUser, err := repo.List(ctx, model.ActivityFilter{UserID: alice.ID}, "")
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	start := now.Add(-90 * time.Minute)
	windowed, err := repo.List(ctx, model.ActivityFilter{FileID: share.ID, Start: &start}, "")
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, "a2", windowed[0].ID)

	byIP, err := repo.List(ctx, model.ActivityFilter{}, "198.51")
	require.NoError(t, err)
	require.Len(t, byIP, 1)
	assert.Equal(t, "a2", byIP[0].ID)

	byName, err := repo.List(ctx, model.ActivityFilter{}, "holiday")
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	limited, err := repo.List(ctx, model.ActivityFilter{Limit: 1}, "")
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestActivitySurvivesShareDeletion(t *testing.T) {
	conn := newTestDB(t)
	repo := NewActivityRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	alice := seedProfile(t, conn, "alice", "Alice Doe")
	share := seedShare(t, conn, alice.ID, "a.txt", 1, now)
	require.NoError(t, NewShareRepository(conn).Delete(ctx, share.ID))

	require.NoError(t, repo.Create(ctx, &model.UserActivity{
		ID: "del", UserID: &alice.ID, ActivityType: model.ActivityDelete, FileID: &share.ID, CreatedAt: now,
	}))

	entries, err := repo.List(ctx, model.ActivityFilter{}, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].FileName)
}

func TestCreateManyRollsBackWhenMarkFails(t *testing.T) {
	conn := newTestDB(t)
	repo := NewActivityRepository(conn)
	downloads := NewDownloadRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	alice := seedProfile(t, conn, "alice", "Alice Doe")
	share := seedShare(t, conn, alice.ID, "holiday.jpg", 1, now)
	require.NoError(t, downloads.Create(ctx, &model.FileDownload{ID: "d1", FileShareID: share.ID, DownloadedAt: now}))

	notification := &model.UserActivity{ID: "n1", UserID: &alice.ID, ActivityType: model.ActivityAccessNotification, FileID: &share.ID, CreatedAt: now}
	failing := func(context.Context, sqlx.ExtContext) error { return assert.AnError }

	err := repo.CreateMany(ctx, []*model.UserActivity{notification}, AccessNotified([]string{"d1"}, now), failing)
	require.ErrorIs(t, err, assert.AnError)

	entries, err := repo.List(ctx, model.ActivityFilter{}, "")
	require.NoError(t, err)
	assert.Empty(t, entries)

	pending, err := downloads.RecentUnnotified(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "marker rolled back with the activity")

	require.NoError(t, repo.CreateMany(ctx, []*model.UserActivity{notification}, AccessNotified([]string{"d1"}, now)))
	pending, err = downloads.RecentUnnotified(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
