package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/resend/resend-go/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/templui/fileshare/internal/db"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
	"github.com/templui/fileshare/internal/storage"
)

const testAppURL = "http://localhost:8090"

type fakeSender struct {
	mu   sync.Mutex
	sent []*resend.SendEmailRequest
	err  error
}

func (f *fakeSender) SendWithContext(_ context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &resend.SendEmailResponse{}, nil
}

func (f *fakeSender) to(addr string) []*resend.SendEmailRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*resend.SendEmailRequest
	for _, m := range f.sent {
		if len(m.To) > 0 && m.To[0] == addr {
			out = append(out, m)
		}
	}
	return out
}

// urlFailingStorage accepts objects but cannot hand out URLs.
type urlFailingStorage struct {
	storage.Storage
}

func (urlFailingStorage) URL(context.Context, string, time.Duration) (string, error) {
	return "", errors.New("presign unavailable")
}

type testEnv struct {
	db     *sqlx.DB
	fs     afero.Fs
	store  storage.Storage
	sender *fakeSender
	now    time.Time

	users      repository.UserRepository
	profiles   repository.ProfileRepository
	shareRepo  repository.ShareRepository
	downloads  repository.DownloadRepository
	activities repository.ActivityRepository
	tokens     repository.TokenRepository

	emails      *EmailService
	activitySvc *ActivityService
	events      *SessionEvents
	auth        *AuthService
	shares      *ShareService
	notify      *NotificationService
	analytics   *AnalyticsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, ":memory:?_pragma=foreign_keys(1)")
}

func newTestEnvOn(t *testing.T, connection string) *testEnv {
	t.Helper()

	conn, err := db.Open(context.Background(), "sqlite", connection)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	env := &testEnv{
		db:         conn,
		fs:         afero.NewMemMapFs(),
		sender:     &fakeSender{},
		now:        time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
		users:      repository.NewUserRepository(conn),
		profiles:   repository.NewProfileRepository(conn),
		shareRepo:  repository.NewShareRepository(conn),
		downloads:  repository.NewDownloadRepository(conn),
		activities: repository.NewActivityRepository(conn),
		tokens:     repository.NewTokenRepository(conn),
	}
	env.store = storage.NewLocalStorage(env.fs, testAppURL+storage.LocalRoutePrefix)
	clock := func() time.Time { return env.now }

	env.emails = &EmailService{
		sender:    env.sender,
		fromEmail: "noreply@example.com",
		appURL:    testAppURL,
		appName:   "Fileshare",
	}
	env.activitySvc = NewActivityService(env.activities)
	env.activitySvc.now = clock
	env.events = NewSessionEvents()

	env.auth = NewAuthService(env.users, env.profiles, env.tokens, env.emails, env.events, "test-secret", time.Hour, 24*time.Hour, false)
	env.auth.now = clock

	env.shares = NewShareService(env.shareRepo, env.downloads, env.profiles, env.store, env.activitySvc, env.emails, ShareConfig{
		AppURL:        testAppURL,
		MaxUploadSize: 2 << 30,
		TTL:           7 * 24 * time.Hour,
	})
	env.shares.now = clock

	env.notify = NewNotificationService(env.downloads, env.shareRepo, env.profiles, env.users, env.activities, env.emails, NotificationConfig{})
	env.notify.now = clock

	env.analytics = NewAnalyticsService(env.shareRepo, env.downloads, 10<<20)
	env.analytics.now = clock

	return env
}

func ptr[T any](v T) *T { return &v }

func (e *testEnv) seedUser(t *testing.T, username string) *model.Profile {
	t.Helper()
	ctx := context.Background()

	user := &model.User{ID: uuid.NewString(), Email: username + "@example.com", CreatedAt: e.now}
	require.NoError(t, e.users.Create(ctx, user))

	profile := &model.Profile{
		ID:                 user.ID,
		Username:           ptr(username),
		CreatedAt:          e.now,
		NotificationAccess: true,
		NotificationExpiry: true,
	}
	require.NoError(t, e.profiles.Create(ctx, profile))
	return profile
}

func (e *testEnv) seedShare(t *testing.T, ownerID, name string, size int64, createdAt time.Time) *model.FileShare {
	t.Helper()
	id := uuid.NewString()
	link, err := NewShareID()
	require.NoError(t, err)

	share := &model.FileShare{
		ID:        id,
		UserID:    ownerID,
		FileName:  name,
		FileSize:  size,
		FilePath:  ptr("shares/" + id),
		ShareLink: e.shares.ShareLink(link),
		MimeType:  "application/octet-stream",
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(7 * 24 * time.Hour),
	}
	require.NoError(t, e.shareRepo.Create(context.Background(), share))
	return share
}

func (e *testEnv) seedDownload(t *testing.T, shareID string, userID *string, at time.Time) *model.FileDownload {
	t.Helper()
	d := &model.FileDownload{
		ID:           uuid.NewString(),
		FileShareID:  shareID,
		UserID:       userID,
		IPAddress:    ptr("198.51.100.7"),
		DownloadedAt: at,
	}
	require.NoError(t, e.downloads.Create(context.Background(), d))
	return d
}

func (e *testEnv) countActivities(t *testing.T, activityType string) int {
	t.Helper()
	var n int
	err := e.db.Get(&n, `SELECT COUNT(*) FROM user_activities WHERE activity_type = $1`, activityType)
	require.NoError(t, err)
	return n
}

// verificationToken returns the pending confirmation token mailed to email.
func (e *testEnv) verificationToken(t *testing.T, email string) string {
	t.Helper()
	var token string
	err := e.db.Get(&token, `
		SELECT t.token FROM tokens t JOIN users u ON u.id = t.user_id
		WHERE u.email = $1 AND t.used_at IS NULL`, email)
	require.NoError(t, err)
	return token
}

// signUpVerified creates a password account and confirms its address.
func (e *testEnv) signUpVerified(t *testing.T, email string) *model.User {
	t.Helper()
	ctx := context.Background()
	_, err := e.auth.SignUp(ctx, email, testPassword, "")
	require.NoError(t, err)
	user, err := e.auth.VerifyEmail(ctx, e.verificationToken(t, email))
	require.NoError(t, err)
	return user
}
