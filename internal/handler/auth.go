package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/templui/fileshare/internal/config"
	"github.com/templui/fileshare/internal/ctxkeys"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/service"
	"github.com/templui/fileshare/internal/ui"
	"github.com/templui/fileshare/internal/ui/pages"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

const oauthStateCookie = "oauth_state"

type oauthUser struct {
	Email string
	Name  string
}

type oauthProvider struct {
	config   *oauth2.Config
	userInfo func(ctx context.Context, client *http.Client) (*oauthUser, error)
}

type AuthHandler struct {
	authService *service.AuthService
	providers   map[string]*oauthProvider
}

// NewAuthHandler enables each OAuth provider whose client id is configured.
func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	h := &AuthHandler{
		authService: authService,
		providers:   make(map[string]*oauthProvider),
	}
	if cfg.GoogleClientID != "" {
		h.providers["google"] = &oauthProvider{
			config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  cfg.AppURL + "/auth/oauth/google/callback",
				Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
				Endpoint:     google.Endpoint,
			},
			userInfo: googleUser,
		}
	}
	if cfg.GitHubClientID != "" {
		h.providers["github"] = &oauthProvider{
			config: &oauth2.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				RedirectURL:  cfg.AppURL + "/auth/oauth/github/callback",
				Scopes:       []string{"user:email"},
				Endpoint:     github.Endpoint,
			},
			userInfo: githubUser,
		}
	}
	return h
}

func (h *AuthHandler) providerNames() []string {
	names := make([]string, 0, len(h.providers))
	for name := range h.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *AuthHandler) AuthPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.Auth("", h.providerNames()))
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.SignUp(r.Context(), r.FormValue("email"), r.FormValue("password"), r.FormValue("full_name"))
	if err != nil {
		slog.Warn("sign up failed", "error", err)
		h.authFailed(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, signUpResponse{User: user, VerificationRequired: true})
		return
	}
	ui.Render(w, r, pages.AuthNotice("Check your email to confirm your account, then sign in.", h.providerNames()))
}

type signUpResponse struct {
	User                 *model.User `json:"user"`
	VerificationRequired bool        `json:"verification_required"`
}

// VerifyEmail confirms the address from the mailed link and signs the user in.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		slog.Warn("email verification failed", "error", err)
		h.authFailed(w, r, err)
		return
	}
	h.startSession(w, r, user)
}

// ResendVerification answers the same way whether or not the address is registered.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	err := h.authService.ResendVerification(r.Context(), r.FormValue("email"))
	if err != nil {
		slog.Error("failed to resend verification email", "error", err)
	}

	const notice = "If that address is waiting for confirmation, a new link is on its way."
	if wantsJSON(r) {
		writeJSON(w, http.StatusAccepted, map[string]string{"message": notice})
		return
	}
	ui.Render(w, r, pages.AuthNotice(notice, h.providerNames()))
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if email == "" || password == "" {
		h.authFailed(w, r, fmt.Errorf("%w: email and password are required", service.ErrInvalidInput))
		return
	}

	user, err := h.authService.SignIn(r.Context(), email, password)
	if err != nil {
		slog.Warn("sign in failed", "error", err, "email", email)
		h.authFailed(w, r, err)
		return
	}
	h.startSession(w, r, user)
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.authService.SignOut(r.Context(), ctxkeys.User(r.Context()))
	h.authService.ClearJWTCookie(w)

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Session returns the signed-in user and profile, or 401
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Profile: ctxkeys.Profile(r.Context())})
}

type sessionResponse struct {
	User    *model.User    `json:"user"`
	Profile *model.Profile `json:"profile"`
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) {
	token, expiresAt, err := h.authService.GenerateJWT(user)
	if err != nil {
		slog.Error("failed to generate JWT", "error", err, "user_id", user.ID)
		h.authFailed(w, r, err)
		return
	}
	h.authService.SetJWTCookie(w, token, expiresAt)

	if wantsJSON(r) {
		_, profile, err := h.authService.Session(r.Context(), user.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{User: user, Profile: profile})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) authFailed(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("authentication error", "error", err)
		message = "An error occurred. Please try again."
	}
	if wantsJSON(r) {
		writeError(w, status, message)
		return
	}
	ui.RenderStatus(w, r, status, pages.Auth(message, h.providerNames()))
}

// OAuthStart redirects to the provider's consent screen
func (h *AuthHandler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers[r.PathValue("provider")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	state := generateOAuthState()

	cfg := ctxkeys.Config(r.Context())
	isProduction := cfg != nil && cfg.IsProduction()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600, // 10 minutes
	})

	http.Redirect(w, r, provider.config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// OAuthCallback completes the code exchange and signs the user in
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("provider")
	provider, ok := h.providers[name]
	if !ok {
		http.NotFound(w, r)
		return
	}

	failed := func(msg string, args ...any) {
		slog.Warn(msg, append(args, "provider", name)...)
		ui.RenderStatus(w, r, http.StatusUnauthorized, pages.Auth("OAuth authentication failed. Please try again.", h.providerNames()))
	}

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		failed("oauth state validation failed", "error", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		failed("oauth callback missing code")
		return
	}

	token, err := provider.config.Exchange(r.Context(), code)
	if err != nil {
		failed("oauth token exchange failed", "error", err)
		return
	}

	info, err := provider.userInfo(r.Context(), provider.config.Client(r.Context(), token))
	if err != nil {
		failed("failed to get oauth user info", "error", err)
		return
	}

	user, err := h.authService.AuthenticateOAuth(r.Context(), info.Email, info.Name, name)
	if err != nil {
		slog.Error("oauth authentication failed", "error", err, "email", info.Email, "provider", name)
		h.authFailed(w, r, err)
		return
	}

	h.startSession(w, r, user)
}

func googleUser(ctx context.Context, client *http.Client) (*oauthUser, error) {
	var info struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &info)
	if err != nil {
		return nil, err
	}
	return &oauthUser{Email: info.Email, Name: info.Name}, nil
}

func githubUser(ctx context.Context, client *http.Client) (*oauthUser, error) {
	var info struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Login string `json:"login"`
	}
	err := getJSON(ctx, client, "https://api.github.com/user", &info)
	if err != nil {
		return nil, err
	}

	// private emails only show up on /user/emails
	if info.Email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		err = getJSON(ctx, client, "https://api.github.com/user/emails", &emails)
		if err != nil {
			return nil, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				info.Email = e.Email
				break
			}
		}
	}
	if info.Email == "" {
		return nil, errors.New("no verified primary email on github account")
	}

	if info.Name == "" {
		info.Name = info.Login
	}
	return &oauthUser{Email: info.Email, Name: info.Name}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// generateOAuthState creates cryptographically secure random state token for OAuth CSRF protection
func generateOAuthState() string {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
