package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fileshare/internal/config"
	"github.com/templui/fileshare/internal/db"
	"github.com/templui/fileshare/internal/iplookup"
	"github.com/templui/fileshare/internal/markdown"
	"github.com/templui/fileshare/internal/repository"
	"github.com/templui/fileshare/internal/service"
	"github.com/templui/fileshare/internal/storage"
)

type App struct {
	Cfg                 *config.Config
	DB                  *sqlx.DB
	Storage             storage.Storage
	IPResolver          *iplookup.Resolver
	Markdown            *markdown.Parser
	SessionEvents       *service.SessionEvents
	AuthService         *service.AuthService
	UserService         *service.UserService
	ProfileService      *service.ProfileService
	EmailService        *service.EmailService
	ActivityService     *service.ActivityService
	ShareService        *service.ShareService
	NotificationService *service.NotificationService
	AnalyticsService    *service.AnalyticsService

	unsubscribe []func()
}

// New opens the database (migrating it), the object store and wires every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.Open(ctx, cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store, err := storage.New(cfg)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return Wire(cfg, database, store), nil
}

// Wire builds the service graph on top of an open database and store.
func Wire(cfg *config.Config, database *sqlx.DB, store storage.Storage) *App {
	// Repositories
	userRepository := repository.NewUserRepository(database)
	profileRepository := repository.NewProfileRepository(database)
	shareRepository := repository.NewShareRepository(database)
	downloadRepository := repository.NewDownloadRepository(database)
	activityRepository := repository.NewActivityRepository(database)
	tokenRepository := repository.NewTokenRepository(database)

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	activityService := service.NewActivityService(activityRepository)
	sessionEvents := service.NewSessionEvents()
	authService := service.NewAuthService(
		userRepository,
		profileRepository,
		tokenRepository,
		emailService,
		sessionEvents,
		cfg.JWTSecret,
		cfg.JWTExpiry,
		cfg.EmailVerifyExpiry,
		cfg.IsProduction(),
	)
	userService := service.NewUserService(userRepository, profileRepository)
	profileService := service.NewProfileService(profileRepository)
	shareService := service.NewShareService(
		shareRepository,
		downloadRepository,
		profileRepository,
		store,
		activityService,
		emailService,
		service.ShareConfig{
			AppURL:        cfg.AppURL,
			MaxUploadSize: cfg.MaxUploadSize,
			TTL:           cfg.ShareTTL,
			EnforceExpiry: cfg.ShareEnforceExpiry,
		},
	)
	notificationService := service.NewNotificationService(
		downloadRepository,
		shareRepository,
		profileRepository,
		userRepository,
		activityRepository,
		emailService,
		service.NotificationConfig{
			DownloadScanLimit: cfg.NotifyDownloadScanLimit,
			ExpiryWindow:      cfg.NotifyExpiryWindow,
		},
	)
	analyticsService := service.NewAnalyticsService(shareRepository, downloadRepository, cfg.FlaggedFileSize)

	a := &App{
		Cfg:                 cfg,
		DB:                  database,
		Storage:             store,
		IPResolver:          iplookup.NewResolver(cfg.IPLookupURL, cfg.IPLookupTTL),
		Markdown:            markdown.NewParser(),
		SessionEvents:       sessionEvents,
		AuthService:         authService,
		UserService:         userService,
		ProfileService:      profileService,
		EmailService:        emailService,
		ActivityService:     activityService,
		ShareService:        shareService,
		NotificationService: notificationService,
		AnalyticsService:    analyticsService,
	}

	// Session subscribers
	a.unsubscribe = append(a.unsubscribe,
		sessionEvents.Subscribe(activityService.RecordSessions()),
		sessionEvents.Subscribe(logSession),
	)

	return a
}

func logSession(ev service.SessionEvent) {
	slog.Info("session changed", "event", ev.Type, "user_id", ev.UserID, "method", ev.Method, "ip", ev.IP)
}

func (a *App) Close() error {
	for _, unsubscribe := range a.unsubscribe {
		unsubscribe()
	}
	return db.Close(a.DB)
}
