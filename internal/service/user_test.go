package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
)

func TestToggleAdminChangesOneProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := NewUserService(env.users, env.profiles)

	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")

	profile, err := users.ToggleAdmin(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, profile.IsAdmin)

	other, err := env.profiles.ByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, other.IsAdmin)

	profile, err = users.ToggleAdmin(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, profile.IsAdmin)

	_, err = users.ToggleAdmin(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrProfileNotFound)
}

func TestUsersIncludeShareTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := NewUserService(env.users, env.profiles)

	alice := env.seedUser(t, "alice")
	env.seedUser(t, "bob")
	env.seedShare(t, alice.ID, "a.txt", 100, env.now)
	env.seedShare(t, alice.ID, "b.txt", 50, env.now)

	all, err := users.Users(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	totals := map[string]*model.UserStats{}
	for _, u := range all {
		totals[*u.Username] = u
	}
	assert.Equal(t, int64(2), totals["alice"].FileCount)
	assert.Equal(t, int64(150), totals["alice"].TotalSize)
	assert.Zero(t, totals["bob"].FileCount)

	found, err := users.Users(ctx, "BO")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "bob", *found[0].Username)
}

func TestProfileNotificationSettings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	profiles := NewProfileService(env.profiles)

	alice := env.seedUser(t, "alice")
	env.seedUser(t, "bob")

	err := profiles.SetNotification(ctx, alice.ID, "is_admin", true)
	assert.ErrorIs(t, err, repository.ErrInvalidNotificationField)

	require.NoError(t, profiles.SetNotification(ctx, alice.ID, model.NotificationExpiry, false))
	got, err := profiles.ByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, got.NotificationExpiry)
	assert.True(t, got.NotificationAccess)

	n, err := profiles.SetAllNotifications(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := profiles.NotificationSettings(ctx)
	require.NoError(t, err)
	for _, p := range all {
		assert.False(t, p.NotificationAccess)
		assert.False(t, p.NotificationExpiry)
	}
}
