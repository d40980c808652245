package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName      string
	AppEnv       string
	AppURL       string
	Port         string
	SupportEmail string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret      string
	JWTExpiry         time.Duration
	EmailVerifyExpiry time.Duration
	FunctionSecret    string // Bearer token for /functions/*, required in production

	// OAuth (optional, provider enabled when client id is set)
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Observability (optional)
	SentryDSN string

	// Storage driver: "s3" or "local"
	StorageDriver    string
	LocalStoragePath string

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)

	// Shares
	MaxUploadSize      int64
	ShareTTL           time.Duration
	ShareEnforceExpiry bool
	FlaggedFileSize    int64

	// Viewer IP lookup
	IPLookupURL string
	IPLookupTTL time.Duration

	// Notification job
	NotifyDownloadScanLimit int
	NotifyExpiryWindow      time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:      envString("APP_NAME", "Fileshare"),
		AppEnv:       envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:       envRequired("APP_URL"), // Required: base URL for share links and OAuth redirects
		Port:         envString("PORT", "8090"),
		SupportEmail: envString("SUPPORT_EMAIL", "hello@example.com"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/fileshare.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),

		// Security
		JWTSecret:         envRequired("JWT_SECRET"),
		JWTExpiry:         envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days
		EmailVerifyExpiry: envDuration("EMAIL_VERIFY_EXPIRY", 24*time.Hour),
		FunctionSecret:    envString("FUNCTION_SECRET", ""),

		// OAuth
		GoogleClientID:     envString("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: envString("GOOGLE_CLIENT_SECRET", ""),
		GitHubClientID:     envString("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: envString("GITHUB_CLIENT_SECRET", ""),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		StorageDriver:    envString("STORAGE_DRIVER", "s3"),
		LocalStoragePath: envString("LOCAL_STORAGE_PATH", "./data/objects"),
		S3Region:         envString("S3_REGION", ""),
		S3Bucket:         envString("S3_BUCKET", ""),
		S3AccessKey:      envString("S3_ACCESS_KEY", ""),
		S3SecretKey:      envString("S3_SECRET_KEY", ""),
		S3Endpoint:       envString("S3_ENDPOINT", ""), // Optional: for non-AWS providers

		// Shares
		MaxUploadSize:      envInt64("MAX_UPLOAD_SIZE", 2<<30),      // 2 GB
		ShareTTL:           envDuration("SHARE_TTL", 168*time.Hour), // 7 days
		ShareEnforceExpiry: envBool("SHARE_ENFORCE_EXPIRY", false),
		FlaggedFileSize:    envInt64("FLAGGED_FILE_SIZE", 10<<20), // 10 MB

		// Viewer IP lookup
		IPLookupURL: envString("IP_LOOKUP_URL", "https://api.ipify.org?format=json"),
		IPLookupTTL: envDuration("IP_LOOKUP_TTL", 10*time.Minute),

		// Notification job
		NotifyDownloadScanLimit: envInt("NOTIFY_DOWNLOAD_SCAN_LIMIT", 50),
		NotifyExpiryWindow:      envDuration("NOTIFY_EXPIRY_WINDOW", 24*time.Hour),
	}

	if cfg.StorageDriver == "s3" {
		cfg.S3Region = envRequired("S3_REGION")
		cfg.S3Bucket = envRequired("S3_BUCKET")
		cfg.S3AccessKey = envRequired("S3_ACCESS_KEY")
		cfg.S3SecretKey = envRequired("S3_SECRET_KEY")
	}

	// Production: validate required services
	if cfg.IsProduction() {
		err := validateProduction(cfg)
		if err != nil {
			slog.Error("invalid production configuration", "error", err,
				"hint", "set APP_ENV=development for local testing with email log mode")
			os.Exit(1)
		}
	}

	return cfg
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows email to run in log mode and an open notification function.
func validateProduction(cfg *Config) error {
	var missing []string
	if cfg.ResendAPIKey == "" {
		missing = append(missing, "RESEND_API_KEY")
	}
	if cfg.FunctionSecret == "" {
		missing = append(missing, "FUNCTION_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("production deployment requires %s", strings.Join(missing, ", "))
	}
	return nil
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) UsesLocalStorage() bool {
	return c.StorageDriver == "local"
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets, credentials, and sensitive data are excluded.
// Safe to expose in ctx, templates and client-facing contexts.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:      c.AppName,
		AppEnv:       c.AppEnv,
		AppURL:       c.AppURL,
		Port:         c.Port,
		SupportEmail: c.SupportEmail,

		EmailFrom: c.EmailFrom,

		GoogleClientID: c.GoogleClientID,
		GitHubClientID: c.GitHubClientID,

		StorageDriver: c.StorageDriver,
		S3Endpoint:    c.S3Endpoint,

		MaxUploadSize:      c.MaxUploadSize,
		ShareTTL:           c.ShareTTL,
		ShareEnforceExpiry: c.ShareEnforceExpiry,
	}
}
