package routes

import (
	"io/fs"
	"net/http"

	"github.com/templui/fileshare/assets"
	"github.com/templui/fileshare/internal/app"
	"github.com/templui/fileshare/internal/handler"
	"github.com/templui/fileshare/internal/middleware"
	"github.com/templui/fileshare/internal/storage"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	home := handler.NewHomeHandler(app.Cfg.MaxUploadSize)
	health := handler.NewHealthHandler(app.DB)
	auth := handler.NewAuthHandler(app.AuthService, app.Cfg)
	share := handler.NewShareHandler(app.ShareService, app.Markdown, app.Cfg.MaxUploadSize)
	profile := handler.NewProfileHandler(app.ProfileService)
	admin := handler.NewAdminHandler(app.AnalyticsService, app.ShareService, app.UserService, app.ProfileService, app.ActivityService)
	function := handler.NewFunctionHandler(app.NotificationService, app.Cfg.FunctionSecret)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	// Static files
	sub, _ := fs.Sub(assets.AssetsFS, ".")
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(sub))))

	// Objects of the local storage driver
	if local, ok := app.Storage.(*storage.LocalStorage); ok {
		mux.Handle("GET "+storage.LocalRoutePrefix, local.Handler())
	}

	mux.HandleFunc("GET /health", health.Health)
	mux.HandleFunc("GET /{$}", home.HomePage)

	// Routes that record the viewer's address resolve its public IP
	publicIP := middleware.PublicIP(app.IPResolver)

	// Share links (rate limited against id guessing)
	shareLimiter := middleware.RateLimitShares()
	mux.HandleFunc("GET /share/{id}", shareLimiter(publicIP(share.SharePage)))
	mux.HandleFunc("GET /share/{id}/download", shareLimiter(publicIP(share.Download)))
	mux.HandleFunc("GET /api/shares/{id}", shareLimiter(publicIP(share.Get)))

	// ============================================================================
	// AUTH ROUTES
	// ============================================================================

	authLimiter := middleware.RateLimitAuth()

	mux.HandleFunc("GET /auth", middleware.RequireGuest(auth.AuthPage))
	mux.HandleFunc("GET /auth/session", auth.Session)
	mux.HandleFunc("POST /auth/signup", authLimiter(middleware.RequireGuest(publicIP(auth.SignUp))))
	mux.HandleFunc("POST /auth/signin", authLimiter(middleware.RequireGuest(publicIP(auth.SignIn))))
	mux.HandleFunc("POST /auth/signout", publicIP(auth.SignOut))
	mux.HandleFunc("GET /auth/verify", authLimiter(publicIP(auth.VerifyEmail)))
	mux.HandleFunc("POST /auth/verify/resend", authLimiter(middleware.RequireGuest(auth.ResendVerification)))

	// OAuth
	mux.HandleFunc("GET /auth/oauth/{provider}", authLimiter(middleware.RequireGuest(auth.OAuthStart)))
	mux.HandleFunc("GET /auth/oauth/{provider}/callback", authLimiter(publicIP(auth.OAuthCallback)))

	// ============================================================================
	// APP ROUTES (signed in)
	// ============================================================================

	mux.HandleFunc("POST /app/shares", middleware.RequireAPIAuth(publicIP(share.Create)))
	mux.HandleFunc("GET /app/shares", middleware.RequireAPIAuth(share.List))
	mux.HandleFunc("DELETE /app/shares/{id}", middleware.RequireAPIAuth(publicIP(share.Delete)))

	mux.HandleFunc("GET /app/profile", middleware.RequireAPIAuth(profile.Profile))
	mux.HandleFunc("PATCH /app/profile/notifications", middleware.RequireAPIAuth(profile.UpdateNotifications))

	// ============================================================================
	// ADMIN ROUTES
	// ============================================================================

	mux.HandleFunc("GET /app/admin/stats", middleware.RequireAdmin(admin.Stats))
	mux.HandleFunc("GET /app/admin/files/analytics", middleware.RequireAdmin(admin.FileAnalytics))
	mux.HandleFunc("GET /app/admin/files/flagged", middleware.RequireAdmin(admin.FlaggedFiles))
	mux.HandleFunc("DELETE /app/admin/files/{id}", middleware.RequireAdmin(publicIP(admin.DeleteFile)))
	mux.HandleFunc("GET /app/admin/users", middleware.RequireAdmin(admin.Users))
	mux.HandleFunc("PATCH /app/admin/users/{id}/admin", middleware.RequireAdmin(admin.ToggleAdmin))
	mux.HandleFunc("GET /app/admin/notifications", middleware.RequireAdmin(admin.NotificationSettings))
	mux.HandleFunc("PATCH /app/admin/notifications/{id}", middleware.RequireAdmin(admin.UpdateNotification))
	mux.HandleFunc("PUT /app/admin/notifications", middleware.RequireAdmin(admin.UpdateAllNotifications))
	mux.HandleFunc("GET /app/admin/activities", middleware.RequireAdmin(admin.Activities))

	// ============================================================================
	// FUNCTIONS (scheduler entry points)
	// ============================================================================

	mux.HandleFunc("OPTIONS /functions/send-notifications", function.Preflight)
	mux.HandleFunc("POST /functions/send-notifications", middleware.RateLimitFunctions()(function.SendNotifications))

	// Catch-all
	mux.HandleFunc("/", home.NotFoundPage)

	return middleware.Chain(mux,
		middleware.ClientIP,
		middleware.Config(app.Cfg),
		middleware.AuthMiddleware(app.AuthService),
		middleware.RequestLogging,
		middleware.WithURLPath,
		middleware.NonceMiddleware,
		middleware.SecurityHeaders,
		middleware.CSRFProtection,
	)
}
