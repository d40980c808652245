package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/fileshare/internal/db"
	"github.com/templui/fileshare/internal/model"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conn, err := db.Open(context.Background(), "sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func ptr[T any](v T) *T { return &v }

func seedProfile(t *testing.T, conn *sqlx.DB, username, fullName string) *model.Profile {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	user := &model.User{ID: uuid.NewString(), Email: username + "@example.com", CreatedAt: now}
	require.NoError(t, NewUserRepository(conn).Create(ctx, user))

	profile := &model.Profile{
		ID:                 user.ID,
		Username:           ptr(username),
		FullName:           ptr(fullName),
		CreatedAt:          now,
		NotificationAccess: true,
		NotificationExpiry: true,
	}
	require.NoError(t, NewProfileRepository(conn).Create(ctx, profile))
	return profile
}

func seedShare(t *testing.T, conn *sqlx.DB, ownerID, name string, size int64, createdAt time.Time) *model.FileShare {
	t.Helper()
	id := uuid.NewString()
	share := &model.FileShare{
		ID:        id,
		UserID:    ownerID,
		FileName:  name,
		FileSize:  size,
		FilePath:  ptr("shares/" + id),
		FileURL:   ptr("http://files.test/" + id),
		ShareLink: "http://localhost/share/" + id[:10],
		MimeType:  "application/octet-stream",
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(7 * 24 * time.Hour),
	}
	require.NoError(t, NewShareRepository(conn).Create(context.Background(), share))
	return share
}
