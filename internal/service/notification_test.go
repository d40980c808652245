package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fileshare/internal/model"
)

func (e *testEnv) countActivitiesFor(t *testing.T, userID, activityType string) int {
	t.Helper()
	var n int
	err := e.db.Get(&n, `SELECT COUNT(*) FROM user_activities WHERE user_id = $1 AND activity_type = $2`, userID, activityType)
	require.NoError(t, err)
	return n
}

func TestAccessNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	carol := env.seedUser(t, "carol")
	require.NoError(t, env.profiles.SetNotification(ctx, bob.ID, model.NotificationAccess, false))

	aliceShare := env.seedShare(t, alice.ID, "slides.pdf", 100, env.now.Add(-24*time.Hour))
	bobShare := env.seedShare(t, bob.ID, "notes.txt", 10, env.now.Add(-24*time.Hour))

	env.seedDownload(t, aliceShare.ID, &carol.ID, env.now.Add(-time.Hour))
	env.seedDownload(t, aliceShare.ID, nil, env.now.Add(-30*time.Minute))
	env.seedDownload(t, aliceShare.ID, &alice.ID, env.now.Add(-10*time.Minute))
	env.seedDownload(t, bobShare.ID, &carol.ID, env.now.Add(-time.Hour))

	result, err := env.notify.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.AccessNotifications, "self downloads are skipped")
	assert.Equal(t, 2, env.countActivitiesFor(t, alice.ID, model.ActivityAccessNotification))
	assert.Equal(t, 0, env.countActivitiesFor(t, bob.ID, model.ActivityAccessNotification))

	var pending int
	require.NoError(t, env.db.Get(&pending, `SELECT COUNT(*) FROM file_downloads WHERE access_notified_at IS NULL`))
	assert.Equal(t, 0, pending, "every scanned download is marked")

	digests := env.sender.to("alice@example.com")
	require.Len(t, digests, 1)
	assert.Contains(t, digests[0].Text, "slides.pdf")
	assert.Empty(t, env.sender.to("bob@example.com"))

	// opting in later does not resurface old downloads
	require.NoError(t, env.profiles.SetNotification(ctx, bob.ID, model.NotificationAccess, true))

	result, err = env.notify.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.AccessNotifications)
	assert.Equal(t, 2, env.countActivities(t, model.ActivityAccessNotification))
	assert.Len(t, env.sender.to("alice@example.com"), 1)
}

func TestAccessNotificationsPickUpNewDownloads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	share := env.seedShare(t, alice.ID, "a.zip", 100, env.now.Add(-time.Hour))
	env.seedDownload(t, share.ID, nil, env.now.Add(-time.Minute))

	result, err := env.notify.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AccessNotifications)

	env.seedDownload(t, share.ID, nil, env.now)
	result, err = env.notify.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AccessNotifications)
	assert.Equal(t, 2, env.countActivities(t, model.ActivityAccessNotification))
}

func TestExpiryNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	require.NoError(t, env.profiles.SetNotification(ctx, bob.ID, model.NotificationExpiry, false))

	week := 7 * 24 * time.Hour
	env.seedShare(t, alice.ID, "soon.txt", 1, env.now.Add(-week+2*time.Hour))
	env.seedShare(t, alice.ID, "later.txt", 1, env.now.Add(-24*time.Hour))
	env.seedShare(t, alice.ID, "gone.txt", 1, env.now.Add(-week-time.Hour))
	env.seedShare(t, bob.ID, "bob-soon.txt", 1, env.now.Add(-week+3*time.Hour))

	result, err := env.notify.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExpiryNotifications)
	assert.Equal(t, 1, env.countActivitiesFor(t, alice.ID, model.ActivityExpiryNotification))
	assert.Equal(t, 0, env.countActivitiesFor(t, bob.ID, model.ActivityExpiryNotification))

	digests := env.sender.to("alice@example.com")
	require.Len(t, digests, 1)
	assert.Contains(t, digests[0].Text, "soon.txt")
	assert.NotContains(t, digests[0].Text, "later.txt")

	result, err = env.notify.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExpiryNotifications)
	assert.Equal(t, 1, env.countActivities(t, model.ActivityExpiryNotification))
}

func TestNotificationsWithNothingToDo(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.notify.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &NotificationResult{}, result)
}

func TestDigestFailureDoesNotBlockMarkers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.sender.err = assert.AnError

	alice := env.seedUser(t, "alice")
	share := env.seedShare(t, alice.ID, "a.zip", 100, env.now.Add(-time.Hour))
	env.seedDownload(t, share.ID, nil, env.now.Add(-time.Minute))

	result, err := env.notify.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AccessNotifications)

	result, err = env.notify.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.AccessNotifications)
}

func TestRepeatedRunsOnFileDatabase(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "fileshare.db") + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	env := newTestEnvOn(t, dsn)
	ctx := context.Background()

	visitor := env.seedUser(t, "visitor")
	for i := range 20 {
		owner := env.seedUser(t, fmt.Sprintf("owner%d", i))
		share := env.seedShare(t, owner.ID, "report.pdf", 10, env.now.Add(-7*24*time.Hour+time.Hour))
		for range 5 {
			env.seedDownload(t, share.ID, &visitor.ID, env.now.Add(-time.Minute))
		}
	}

	for run := range 5 {
		_, err := env.notify.Run(ctx)
		require.NoError(t, err, "run %d", run)
	}

	// the scan limit spreads the downloads over several runs
	assert.Equal(t, 100, env.countActivities(t, model.ActivityAccessNotification))
	assert.Equal(t, 20, env.countActivities(t, model.ActivityExpiryNotification))

	var pending int
	require.NoError(t, env.db.Get(&pending, `SELECT COUNT(*) FROM file_downloads WHERE access_notified_at IS NULL`))
	assert.Equal(t, 0, pending)
}
