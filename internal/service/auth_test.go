package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fileshare/internal/ctxkeys"
	"github.com/templui/fileshare/internal/model"
)

const testPassword = "correct-horse-battery"

func collectEvents(t *testing.T, events *SessionEvents) *[]SessionEvent {
	t.Helper()
	var got []SessionEvent
	unsubscribe := events.Subscribe(func(ev SessionEvent) { got = append(got, ev) })
	t.Cleanup(unsubscribe)
	return &got
}

func TestSignUpCreatesProfile(t *testing.T) {
	env := newTestEnv(t)
	events := collectEvents(t, env.events)
	ctx := ctxkeys.WithClientIP(context.Background(), "203.0.113.9")

	user, err := env.auth.SignUp(ctx, "  Ada@Example.com ", testPassword, "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.True(t, user.HasPassword())

	profile, err := env.profiles.ByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Username)
	assert.Equal(t, "ada", *profile.Username)
	assert.Equal(t, "Ada Lovelace", profile.DisplayName())
	assert.True(t, profile.NotificationAccess)
	assert.True(t, profile.NotificationExpiry)
	assert.False(t, profile.IsAdmin)

	assert.False(t, user.IsVerified())
	mails := env.sender.to("ada@example.com")
	require.Len(t, mails, 1)
	assert.Equal(t, "Confirm your email for Fileshare", mails[0].Subject)
	assert.Contains(t, mails[0].Text, testAppURL+"/auth/verify?token="+env.verificationToken(t, "ada@example.com"))

	require.Len(t, *events, 1)
	ev := (*events)[0]
	assert.Equal(t, SessionSignedUp, ev.Type)
	assert.Equal(t, user.ID, ev.UserID)
	assert.Equal(t, "password", ev.Method)
	assert.Equal(t, "203.0.113.9", ev.IP)
	assert.Equal(t, env.now, ev.At)
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.SignUp(ctx, "ada@example.com", testPassword, "")
	require.NoError(t, err)

	_, err = env.auth.SignUp(ctx, "ADA@example.com", testPassword, "")
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestSignUpValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		fullName string
		want     error
	}{
		{"missing email", "", testPassword, "", ErrInvalidEmail},
		{"malformed email", "not-an-email", testPassword, "", ErrInvalidEmail},
		{"short password", "ada@example.com", "short", "", ErrInvalidInput},
		{"common password", "ada@example.com", "mypassword1234", "", ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.auth.SignUp(context.Background(), tt.email, tt.password, tt.fullName)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, env.sender.sent)
		})
	}
}

func TestSignIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.signUpVerified(t, "ada@example.com")
	events := collectEvents(t, env.events)

	_, err := env.auth.SignIn(ctx, "ada@example.com", "wrong-horse-battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.SignIn(ctx, "nobody@example.com", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, *events)

	user, err := env.auth.SignIn(ctx, "Ada@Example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	require.Len(t, *events, 1)
	assert.Equal(t, SessionSignedIn, (*events)[0].Type)
}

func TestOAuthAccountIsPasswordless(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	events := collectEvents(t, env.events)

	first, err := env.auth.AuthenticateOAuth(ctx, "grace@example.com", "Grace Hopper", "github")
	require.NoError(t, err)
	assert.False(t, first.HasPassword())

	again, err := env.auth.AuthenticateOAuth(ctx, "GRACE@example.com", "Grace Hopper", "github")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	require.Len(t, *events, 2)
	assert.Equal(t, SessionSignedUp, (*events)[0].Type)
	assert.Equal(t, SessionSignedIn, (*events)[1].Type)
	assert.Equal(t, "github", (*events)[1].Method)
	assert.Len(t, env.sender.to("grace@example.com"), 1)

	_, err = env.auth.SignIn(ctx, "grace@example.com", testPassword)
	assert.ErrorIs(t, err, ErrPasswordlessLogin)

	_, err = env.auth.AuthenticateOAuth(ctx, "", "Nobody", "google")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestJWTRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	// token validation uses the wall clock
	env.auth.now = time.Now

	user := &model.User{ID: "user-1", Email: "ada@example.com"}
	token, expiry, err := env.auth.GenerateJWT(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, time.Minute)

	id, err := env.auth.VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	other := NewAuthService(env.users, env.profiles, env.tokens, env.emails, nil, "other-secret", time.Hour, time.Hour, false)
	_, err = other.VerifyJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = env.auth.VerifyJWT("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	env.auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := env.auth.GenerateJWT(user)
	require.NoError(t, err)
	_, err = env.auth.VerifyJWT(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionOmitsPasswordHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.auth.SignUp(ctx, "ada@example.com", testPassword, "")
	require.NoError(t, err)

	user, profile, err := env.auth.Session(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, user.PasswordHash)
	assert.Equal(t, created.ID, profile.ID)
}

func TestSessionEventsAreRecorded(t *testing.T) {
	env := newTestEnv(t)
	unsubscribe := env.events.Subscribe(env.activitySvc.RecordSessions())
	defer unsubscribe()

	ctx := ctxkeys.WithClientIP(context.Background(), "198.51.100.1")
	user, err := env.auth.SignUp(ctx, "ada@example.com", testPassword, "")
	require.NoError(t, err)
	_, err = env.auth.VerifyEmail(ctx, env.verificationToken(t, "ada@example.com"))
	require.NoError(t, err)
	_, err = env.auth.SignIn(ctx, "ada@example.com", testPassword)
	require.NoError(t, err)
	env.auth.SignOut(ctx, user)
	env.auth.SignOut(ctx, nil)

	entries, err := env.activitySvc.List(ctx, model.ActivityFilter{UserID: user.ID}, "")
	require.NoError(t, err)
	require.Len(t, entries, 4, "sign up, verification sign in, sign in, sign out")

	types := map[string]bool{}
	for _, e := range entries {
		types[e.ActivityType] = true
		require.NotNil(t, e.IPAddress)
		assert.Equal(t, "198.51.100.1", *e.IPAddress)
	}
	assert.Equal(t, map[string]bool{
		model.ActivitySignUp:  true,
		model.ActivitySignIn:  true,
		model.ActivitySignOut: true,
	}, types)
}

func TestSignInRequiresVerifiedEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.SignUp(ctx, "ada@example.com", testPassword, "Ada")
	require.NoError(t, err)

	_, err = env.auth.SignIn(ctx, "ada@example.com", testPassword)
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	_, err = env.auth.SignIn(ctx, "ada@example.com", "wrong-horse-battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "the password is checked first")

	token := env.verificationToken(t, "ada@example.com")
	user, err := env.auth.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, user.IsVerified())

	mails := env.sender.to("ada@example.com")
	require.Len(t, mails, 2)
	assert.Equal(t, "Welcome to Fileshare!", mails[1].Subject)

	_, err = env.auth.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidVerifyLink, "links work once")

	_, err = env.auth.SignIn(ctx, "ada@example.com", testPassword)
	require.NoError(t, err)
}

func TestVerificationLinkExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.SignUp(ctx, "ada@example.com", testPassword, "")
	require.NoError(t, err)
	token := env.verificationToken(t, "ada@example.com")

	env.now = env.now.Add(25 * time.Hour)
	_, err = env.auth.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidVerifyLink)

	_, err = env.auth.VerifyEmail(ctx, "made-up")
	assert.ErrorIs(t, err, ErrInvalidVerifyLink)
}

func TestResendVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.SignUp(ctx, "ada@example.com", testPassword, "")
	require.NoError(t, err)
	first := env.verificationToken(t, "ada@example.com")

	require.NoError(t, env.auth.ResendVerification(ctx, "ADA@example.com"))
	second := env.verificationToken(t, "ada@example.com")
	assert.NotEqual(t, first, second)
	assert.Len(t, env.sender.to("ada@example.com"), 2)

	_, err = env.auth.VerifyEmail(ctx, first)
	assert.ErrorIs(t, err, ErrInvalidVerifyLink, "older links are replaced")

	require.NoError(t, env.auth.ResendVerification(ctx, "nobody@example.com"))
	assert.Empty(t, env.sender.to("nobody@example.com"))

	_, err = env.auth.VerifyEmail(ctx, second)
	require.NoError(t, err)
	require.NoError(t, env.auth.ResendVerification(ctx, "ada@example.com"))
	assert.Len(t, env.sender.to("ada@example.com"), 3, "verified accounts get no new link, only the welcome mail")
}

func TestOAuthClaimsUnverifiedPasswordAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// someone registers an address they do not own
	squatted, err := env.auth.SignUp(ctx, "grace@example.com", testPassword, "")
	require.NoError(t, err)

	user, err := env.auth.AuthenticateOAuth(ctx, "grace@example.com", "Grace Hopper", "google")
	require.NoError(t, err)
	assert.Equal(t, squatted.ID, user.ID)
	assert.True(t, user.IsVerified())
	assert.False(t, user.HasPassword())

	_, err = env.auth.SignIn(ctx, "grace@example.com", testPassword)
	assert.ErrorIs(t, err, ErrPasswordlessLogin, "the unconfirmed password no longer works")
}

func TestOAuthKeepsVerifiedPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.signUpVerified(t, "grace@example.com")

	user, err := env.auth.AuthenticateOAuth(ctx, "grace@example.com", "Grace Hopper", "github")
	require.NoError(t, err)
	assert.True(t, user.HasPassword())

	_, err = env.auth.SignIn(ctx, "grace@example.com", testPassword)
	require.NoError(t, err)
}
