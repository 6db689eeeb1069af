package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/social-idm/internal/config"
	"github.com/tendant/social-idm/internal/http/features/common"
	"github.com/tendant/social-idm/internal/http/features/me"
	"github.com/tendant/social-idm/internal/http/features/session"
	"github.com/tendant/social-idm/internal/http/features/social"
	"github.com/tendant/social-idm/internal/http/middleware"
	"github.com/tendant/social-idm/internal/httputil"
)

// TokenService validates and refreshes session tokens.
type TokenService interface {
	middleware.AccessTokenValidator
	session.TokenRefresher
}

// AuthService signs users in and out.
type AuthService interface {
	social.LoginService
	session.LogoutService
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger              *slog.Logger
	AuthService         AuthService
	ProfileService      me.ProfileService
	DeactivationService me.DeactivationService
	TokenService        TokenService
	Authorizers         map[string]social.AuthorizationURLBuilder
	RateLimitConfig     config.RateLimitConfig
	SecurityHeaders     config.SecurityHeadersConfig
	Validation          config.ValidationConfig
	Cookies             httputil.CookieConfig
	RefreshTokenTTL     time.Duration
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)
	delivery := common.TokenDelivery{Cookies: cfg.Cookies, RefreshTTL: cfg.RefreshTokenTTL}
	requireAuth := middleware.Auth(cfg.TokenService)

	// Social login
	socialHandler := social.NewHandler(cfg.Logger, cfg.AuthService, cfg.Authorizers, delivery)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters[middleware.LimitAuth])
		r.Post("/v1/auth/social/login", socialHandler.Login)
		if len(cfg.Authorizers) > 0 {
			r.Get("/v1/auth/social/{provider}/authorize", socialHandler.Authorize)
		}
	})

	// Session routes
	sessionHandler := session.NewHandler(cfg.Logger, cfg.TokenService, cfg.AuthService, delivery)
	r.With(rateLimiters[middleware.LimitRefresh]).Post("/v1/auth/refresh", sessionHandler.Refresh)
	r.With(requireAuth).Post("/v1/auth/logout", sessionHandler.Logout)

	// Profile routes
	meHandler := me.NewHandler(cfg.Logger, cfg.ProfileService, cfg.DeactivationService, cfg.AuthService, cfg.Cookies)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(rateLimiters[middleware.LimitProfile])
		r.Get("/v1/me", meHandler.GetMe)
		r.Patch("/v1/me", meHandler.UpdateMe)
		r.Delete("/v1/me", meHandler.DeleteMe)
	})

	return r
}
