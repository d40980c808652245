package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/templui/fileshare/internal/ctxkeys"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
	"github.com/templui/fileshare/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

const AuthCookieName = "auth_token"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordlessLogin  = errors.New("this account signs in with google or github")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailNotVerified   = errors.New("email not verified, check your inbox for the confirmation link")
	ErrInvalidVerifyLink  = errors.New("invalid or expired verification link")
)

type AuthService struct {
	userRepository    repository.UserRepository
	profileRepository repository.ProfileRepository
	tokenRepository   repository.TokenRepository
	emailService      *EmailService
	events            *SessionEvents
	jwtSecret         string
	jwtExpiry         time.Duration
	verifyExpiry      time.Duration
	isProduction      bool
	now               func() time.Time
}

func NewAuthService(
	userRepository repository.UserRepository,
	profileRepository repository.ProfileRepository,
	tokenRepository repository.TokenRepository,
	emailService *EmailService,
	events *SessionEvents,
	jwtSecret string,
	jwtExpiry time.Duration,
	verifyExpiry time.Duration,
	isProduction bool,
) *AuthService {
	if verifyExpiry <= 0 {
		verifyExpiry = 24 * time.Hour
	}
	return &AuthService{
		userRepository:    userRepository,
		profileRepository: profileRepository,
		tokenRepository:   tokenRepository,
		emailService:      emailService,
		events:            events,
		jwtSecret:         jwtSecret,
		jwtExpiry:         jwtExpiry,
		verifyExpiry:      verifyExpiry,
		isProduction:      isProduction,
		now:               time.Now,
	}
}

// Events exposes the session event stream for subscribers.
func (s *AuthService) Events() *SessionEvents {
	return s.events
}

// SignUp creates an unverified account with a password and its profile, and
// mails the confirmation link. Sign-in is refused until the link is used.
func (s *AuthService) SignUp(ctx context.Context, email, password, fullName string) (*model.User, error) {
	email = normalizeEmail(email)
	fullName = strings.TrimSpace(fullName)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if fullName != "" {
		if err := validation.ValidateName(fullName); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.createAccount(ctx, email, &hash, fullName, nil)
	if err != nil {
		return nil, err
	}

	err = s.sendVerification(ctx, user, fullName)
	if err != nil {
		slog.Warn("failed to send verification email", "error", err, "email", user.Email)
	}

	s.publish(ctx, SessionSignedUp, user, "password")
	slog.Info("user signed up", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)

	user, err := s.userRepository.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		return nil, ErrPasswordlessLogin
	}

	err = s.ComparePassword(password, *user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", ErrInvalidCredentials)
	}

	if !user.IsVerified() {
		return nil, ErrEmailNotVerified
	}

	s.publish(ctx, SessionSignedIn, user, "password")
	return user, nil
}

// VerifyEmail consumes a confirmation link and returns the now verified user.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*model.User, error) {
	now := s.now().UTC()

	t, err := s.tokenRepository.Consume(ctx, token, model.TokenTypeEmailVerify, now)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return nil, ErrInvalidVerifyLink
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	user, err := s.userRepository.ByID(ctx, t.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.IsVerified() {
		err = s.userRepository.MarkEmailVerified(ctx, user.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to verify email: %w", err)
		}
		user.EmailVerifiedAt = &now

		err = s.emailService.SendWelcomeEmail(ctx, user.Email, s.displayName(ctx, user.ID))
		if err != nil {
			slog.Warn("failed to send welcome email", "error", err, "email", user.Email)
		}
	}

	s.publish(ctx, SessionSignedIn, user, "email")
	slog.Info("email verified", "user_id", user.ID)
	return user, nil
}

// ResendVerification mails a fresh confirmation link. Unknown, verified and
// passwordless accounts are ignored so the response never reveals which
// addresses are registered.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.userRepository.ByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.IsVerified() || !user.HasPassword() {
		return nil
	}
	return s.sendVerification(ctx, user, s.displayName(ctx, user.ID))
}

func (s *AuthService) sendVerification(ctx context.Context, user *model.User, name string) error {
	err := s.tokenRepository.DeleteUnused(ctx, user.ID, model.TokenTypeEmailVerify)
	if err != nil {
		return fmt.Errorf("failed to clear old tokens: %w", err)
	}

	value, err := GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	now := s.now().UTC()
	err = s.tokenRepository.Create(ctx, &model.Token{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Type:      model.TokenTypeEmailVerify,
		Token:     value,
		ExpiresAt: now.Add(s.verifyExpiry),
		CreatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	return s.emailService.SendVerificationEmail(ctx, user.Email, name, value)
}

func (s *AuthService) displayName(ctx context.Context, userID string) string {
	profile, err := s.profileRepository.ByID(ctx, userID)
	if err != nil {
		return ""
	}
	return profile.DisplayName()
}

// SignOut only announces the sign-out; the cookie is cleared by the caller.
func (s *AuthService) SignOut(ctx context.Context, user *model.User) {
	if user == nil {
		return
	}
	s.publish(ctx, SessionSignedOut, user, "")
}

// AuthenticateOAuth signs in an OAuth user, creating the account on first use.
func (s *AuthService) AuthenticateOAuth(ctx context.Context, email, name, provider string) (*model.User, error) {
	email = normalizeEmail(email)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, ErrInvalidEmail
	}

	user, err := s.userRepository.ByEmail(ctx, email)
	if err == nil {
		if !user.IsVerified() {
			err = s.claimUnverified(ctx, user)
			if err != nil {
				return nil, err
			}
		}
		s.publish(ctx, SessionSignedIn, user, provider)
		slog.Info("user authenticated via OAuth", "user_id", user.ID, "provider", provider)
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to lookup user: %w", err)
	}

	// password_hash stays NULL for OAuth accounts; the provider vouches for the address
	now := s.now().UTC()
	user, err = s.createAccount(ctx, email, nil, strings.TrimSpace(name), &now)
	if err != nil {
		return nil, err
	}

	err = s.emailService.SendWelcomeEmail(ctx, user.Email, name)
	if err != nil {
		slog.Warn("failed to send welcome email", "error", err, "email", user.Email)
	}

	s.publish(ctx, SessionSignedUp, user, provider)
	slog.Info("new OAuth user created", "user_id", user.ID, "provider", provider)
	return user, nil
}

// claimUnverified hands an unconfirmed password account to the OAuth user who
// proved ownership of its address. The password was set by someone who never
// confirmed the address, so it is dropped.
func (s *AuthService) claimUnverified(ctx context.Context, user *model.User) error {
	if user.HasPassword() {
		err := s.userRepository.ClearPassword(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to clear unverified password: %w", err)
		}
		user.PasswordHash = nil
		slog.Warn("unverified password removed on OAuth sign in", "user_id", user.ID)
	}

	now := s.now().UTC()
	err := s.userRepository.MarkEmailVerified(ctx, user.ID, now)
	if err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}
	user.EmailVerifiedAt = &now
	return nil
}

func (s *AuthService) createAccount(ctx context.Context, email string, passwordHash *string, fullName string, verifiedAt *time.Time) (*model.User, error) {
	now := s.now().UTC()
	user := &model.User{
		ID:              uuid.NewString(),
		Email:           email,
		PasswordHash:    passwordHash,
		EmailVerifiedAt: verifiedAt,
		CreatedAt:       now,
	}

	err := s.userRepository.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	username, _, _ := strings.Cut(email, "@")
	profile := &model.Profile{
		ID:                 user.ID,
		Username:           &username,
		FullName:           nullable(fullName),
		CreatedAt:          now,
		NotificationAccess: true,
		NotificationExpiry: true,
	}
	err = s.profileRepository.Create(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return user, nil
}

// Session returns the signed-in user and profile for a verified token subject.
func (s *AuthService) Session(ctx context.Context, userID string) (*model.User, *model.Profile, error) {
	user, err := s.userRepository.ByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	// never carry the hash around in request contexts
	user.PasswordHash = nil

	profile, err := s.profileRepository.ByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, profile, nil
}

func (s *AuthService) publish(ctx context.Context, typ SessionEventType, user *model.User, method string) {
	if s.events == nil {
		return
	}
	s.events.Publish(SessionEvent{
		Type:   typ,
		UserID: user.ID,
		Email:  user.Email,
		Method: method,
		IP:     ctxkeys.ClientIP(ctx),
		At:     s.now().UTC(),
	})
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// GenerateToken returns a random hex token for mailed links.
func GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (s *AuthService) GenerateJWT(user *model.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.jwtExpiry)
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// VerifyJWT returns the user id the token was issued for.
func (s *AuthService) VerifyJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

func (s *AuthService) SetJWTCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearJWTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
