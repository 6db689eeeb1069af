// Package idm embeds the social login service in another Go program.
//
// Usage:
//
//	db, _ := repository.NewDB(repository.DBConfig{Driver: "postgres", ...})
//	svc, err := idm.New(ctx, idm.Config{
//	    DB:        db,
//	    JWTSecret: os.Getenv("JWT_SECRET"),
//	    Google:    &auth.GoogleConfig{ClientID: os.Getenv("GOOGLE_CLIENT_ID")},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", svc.Handler())
package idm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tendant/social-idm/internal/config"
	httpserver "github.com/tendant/social-idm/internal/http"
	"github.com/tendant/social-idm/internal/http/features/social"
	"github.com/tendant/social-idm/internal/http/middleware"
	"github.com/tendant/social-idm/internal/httputil"
	"github.com/tendant/social-idm/pkg/account"
	"github.com/tendant/social-idm/pkg/auth"
	"github.com/tendant/social-idm/pkg/repository"
)

// Config configures the embedded service.
type Config struct {
	// DB is required. Its schema must be migrated (see repository.NewMigrator).
	DB *sqlx.DB

	// JWTSecret is required (min 32 characters).
	JWTSecret       string
	JWTIssuer       string        // default: "social-idm"
	AccessTokenTTL  time.Duration // default: 15m
	RefreshTokenTTL time.Duration // default: 7 days

	// Google enables Google sign-in. Its authorize endpoint is mounted when
	// ClientSecret and RedirectURI are also set.
	Google *GoogleConfig

	// Verifiers are registered alongside Google. At least one provider is
	// required.
	Verifiers []auth.SocialTokenVerifier

	// Revocations stores revoked refresh tokens. Defaults to the
	// revoked_tokens table in DB.
	Revocations auth.RevocationList

	// CookieSecure marks auth cookies Secure. Leave it on outside local
	// development.
	CookieSecure bool

	Logger *slog.Logger
}

// GoogleConfig holds Google sign-in settings.
type GoogleConfig = auth.GoogleConfig

// IDM wires the account services, token issuer and HTTP handlers together.
type IDM struct {
	config       Config
	tokens       *auth.TokenService
	verifiers    *auth.VerifierRegistry
	authService  *account.AuthService
	profiles     *account.ProfileService
	deactivation *account.DeactivationService
	authorizers  map[string]social.AuthorizationURLBuilder
}

// New creates the service. A Google verifier fetches Google's signing keys
// lazily, so New does not block on the network.
func New(ctx context.Context, cfg Config) (*IDM, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	revocations := cfg.Revocations
	if revocations == nil {
		revocations = repository.NewSQLRevocationList(cfg.DB)
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		JWTSecret:       []byte(cfg.JWTSecret),
		Issuer:          cfg.JWTIssuer,
	}, revocations)
	if err != nil {
		return nil, fmt.Errorf("idm: %w", err)
	}

	verifiers := append([]auth.SocialTokenVerifier(nil), cfg.Verifiers...)
	authorizers := map[string]social.AuthorizationURLBuilder{}
	if cfg.Google != nil {
		google, err := auth.NewGoogleVerifier(ctx, *cfg.Google)
		if err != nil {
			return nil, fmt.Errorf("idm: %w", err)
		}
		verifiers = append(verifiers, google)
		if cfg.Google.ClientSecret != "" && cfg.Google.RedirectURI != "" {
			authorizers[google.Provider()] = google
		}
	}
	registry := auth.NewVerifierRegistry(verifiers...)

	uow := repository.NewTxManager(cfg.DB)
	return &IDM{
		config:       cfg,
		tokens:       tokens,
		verifiers:    registry,
		authService:  account.NewAuthService(uow, registry, tokens, cfg.Logger),
		profiles:     account.NewProfileService(uow, cfg.Logger),
		deactivation: account.NewDeactivationService(uow, cfg.Logger),
		authorizers:  authorizers,
	}, nil
}

// Providers returns the registered provider names.
func (i *IDM) Providers() []string {
	return i.verifiers.Providers()
}

// RouterConfig returns the router settings with default rate limits,
// security headers and body size limit. Callers may adjust it before passing
// it to the HTTP router.
func (i *IDM) RouterConfig() httpserver.RouterConfig {
	rateLimit, securityHeaders, validation := config.DefaultHTTP()
	return httpserver.RouterConfig{
		Logger:              i.config.Logger,
		AuthService:         i.authService,
		ProfileService:      i.profiles,
		DeactivationService: i.deactivation,
		TokenService:        i.tokens,
		Authorizers:         i.authorizers,
		RateLimitConfig:     rateLimit,
		SecurityHeaders:     securityHeaders,
		Validation:          validation,
		Cookies:             httputil.DefaultCookieConfig(i.config.CookieSecure),
		RefreshTokenTTL:     i.tokens.RefreshTokenTTL(),
	}
}

// Handler returns the HTTP API:
//
//	GET    /health
//	POST   /v1/auth/social/login
//	GET    /v1/auth/social/{provider}/authorize  (code flow providers only)
//	POST   /v1/auth/refresh
//	POST   /v1/auth/logout                       (protected)
//	GET    /v1/me                                (protected)
//	PATCH  /v1/me                                (protected)
//	DELETE /v1/me                                (protected)
func (i *IDM) Handler() http.Handler {
	return httpserver.NewRouter(i.RouterConfig())
}

// AuthService returns the login service for advanced usage.
func (i *IDM) AuthService() *account.AuthService {
	return i.authService
}

// AuthMiddleware returns middleware that validates access tokens.
// Use this to protect your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(svc.AuthMiddleware())
//	    r.Get("/protected", handler)
//	})
func (i *IDM) AuthMiddleware() func(http.Handler) http.Handler {
	return middleware.Auth(i.tokens)
}

// AccountID extracts the authenticated account id from a request.
// Use after AuthMiddleware.
func AccountID(r *http.Request) (int64, bool) {
	return middleware.GetAccountID(r.Context())
}

// AccountIDFromContext extracts the authenticated account id from a context.
func AccountIDFromContext(ctx context.Context) (int64, bool) {
	return middleware.GetAccountID(ctx)
}

// GetAccount loads the authenticated account. Use after AuthMiddleware.
func (i *IDM) GetAccount(r *http.Request) (*account.Snapshot, error) {
	id, ok := middleware.GetAccountID(r.Context())
	if !ok {
		return nil, errors.New("account not authenticated")
	}
	return i.profiles.GetProfile(r.Context(), id)
}

func validateConfig(cfg *Config) error {
	if cfg.DB == nil {
		return errors.New("idm: DB is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("idm: JWTSecret is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("idm: JWTSecret must be at least 32 characters")
	}
	if cfg.Google != nil && cfg.Google.ClientID == "" {
		return errors.New("idm: Google ClientID is required when Google is configured")
	}
	if cfg.Google == nil && len(cfg.Verifiers) == 0 {
		return errors.New("idm: at least one social provider is required")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "social-idm"
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = auth.DefaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = auth.DefaultRefreshTokenTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
}
