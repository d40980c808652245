package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fileshare/internal/model"
)

func TestShareCreateAndLookup(t *testing.T) {
	conn := newTestDB(t)
	repo := NewShareRepository(conn)
	ctx := context.Background()

	owner := seedProfile(t, conn, "alice", "Alice Doe")
	share := seedShare(t, conn, owner.ID, "report.pdf", 2048, time.Now().UTC())

	got, err := repo.ByShareLink(ctx, share.ShareLink)
	require.NoError(t, err)
	assert.Equal(t, share.ID, got.ID)
	assert.Equal(t, "report.pdf", got.FileName)
	assert.Equal(t, int64(2048), got.FileSize)
	assert.WithinDuration(t, share.ExpiresAt, got.ExpiresAt, time.Second)

	dup := *share
	dup.ID = "another"
	assert.ErrorIs(t, repo.Create(ctx, &dup), ErrDuplicateShareLink)

	_, err = repo.ByShareLink(ctx, "http://localhost/share/nope")
	assert.ErrorIs(t, err, ErrShareNotFound)
}

func TestShareDeleteCascadesDownloads(t *testing.T) {
	conn := newTestDB(t)
	shares := NewShareRepository(conn)
	downloads := NewDownloadRepository(conn)
	ctx := context.Background()

	owner := seedProfile(t, conn, "alice", "Alice Doe")
	share := seedShare(t, conn, owner.ID, "a.zip", 10, time.Now().UTC())
	require.NoError(t, downloads.Create(ctx, &model.FileDownload{
		ID: "d1", FileShareID: share.ID, DownloadedAt: time.Now().UTC(),
	}))

	require.NoError(t, shares.Delete(ctx, share.ID))

	var n int64
	require.NoError(t, conn.GetContext(ctx, &n, `SELECT COUNT(*) FROM file_downloads WHERE file_share_id = $1`, share.ID))
	assert.Zero(t, n)

	assert.ErrorIs(t, shares.Delete(ctx, share.ID), ErrShareNotFound)
}

func TestShareByUserCountsDownloads(t *testing.T) {
	conn := newTestDB(t)
	shares := NewShareRepository(conn)
	downloads := NewDownloadRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	alice := seedProfile(t, conn, "alice", "Alice Doe")
	bob := seedProfile(t, conn, "bob", "Bob Roe")
	popular := seedShare(t, conn, alice.ID, "popular.zip", 10, now.Add(-time.Hour))
	seedShare(t, conn, alice.ID, "quiet.txt", 10, now)
	other := seedShare(t, conn, bob.ID, "bob.txt", 10, now)

	for i, shareID := range []string{popular.ID, popular.ID, popular.ID, other.ID} {
		require.NoError(t, downloads.Create(ctx, &model.FileDownload{
			ID: fmt.Sprintf("d%d", i), FileShareID: shareID, DownloadedAt: now,
		}))
	}

	owned, err := shares.ByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "quiet.txt", owned[0].FileName)
	assert.Zero(t, owned[0].DownloadCount)
	assert.Equal(t, "popular.zip", owned[1].FileName)
	assert.Equal(t, int64(3), owned[1].DownloadCount)
	assert.Equal(t, popular.ShareLink, owned[1].ShareLink)

	owned, err = shares.ByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestShareFlagged(t *testing.T) {
	conn := newTestDB(t)
	repo := NewShareRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	alice := seedProfile(t, conn, "alice", "Alice Doe")
	bob := seedProfile(t, conn, "bob", "Bob Roe")
	seedShare(t, conn, alice.ID, "small.txt", 1<<20, now)
	seedShare(t, conn, alice.ID, "big.iso", 50<<20, now)
	seedShare(t, conn, bob.ID, "bigger.mkv", 80<<20, now)

	files, err := repo.Flagged(ctx, 10<<20, "")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "bigger.mkv", files[0].FileName)
	assert.Equal(t, "Bob Roe", *files[0].OwnerFullName)

	files, err = repo.Flagged(ctx, 10<<20, "alice")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "big.iso", files[0].FileName)
}

func TestShareExpiringUnnotified(t *testing.T) {
	conn := newTestDB(t)
	repo := NewShareRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	owner := seedProfile(t, conn, "alice", "Alice Doe")
	soon := seedShare(t, conn, owner.ID, "soon.txt", 1, now.Add(-7*24*time.Hour+2*time.Hour))
	seedShare(t, conn, owner.ID, "later.txt", 1, now)
	seedShare(t, conn, owner.ID, "gone.txt", 1, now.Add(-8*24*time.Hour))

	found, err := repo.ExpiringUnnotified(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, soon.ID, found[0].ID)

	require.NoError(t, NewActivityRepository(conn).CreateMany(ctx, nil, ExpiryNotified([]string{soon.ID}, now)))

	found, err = repo.ExpiringUnnotified(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, found)
}
