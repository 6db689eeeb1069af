package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/tendant/social-idm/pkg/auth"
	"github.com/tendant/social-idm/pkg/repository"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr  string `env:"SERVER_ADDR" envDefault:"0.0.0.0"`
	ServerPort  int    `env:"SERVER_PORT" envDefault:"8080"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	DatabaseConfig

	// Refresh token revocation list in Redis; the database when empty.
	RedisURL string `env:"REDIS_URL"`

	// JWT
	JWTSecret       string        `env:"JWT_SECRET,notEmpty"`
	JWTIssuer       string        `env:"JWT_ISSUER" envDefault:"social-idm"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// Google
	GoogleClientID        string        `env:"GOOGLE_CLIENT_ID,notEmpty"`
	GoogleClientSecret    string        `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI     string        `env:"GOOGLE_REDIRECT_URI"`
	GoogleMobileClientIDs []string      `env:"GOOGLE_MOBILE_CLIENT_IDS" envSeparator:","`
	VerifierTimeout       time.Duration `env:"VERIFIER_TIMEOUT" envDefault:"5s"`

	// Tracing is disabled when the endpoint is empty.
	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"true"`

	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig
	Validation      ValidationConfig
}

// DatabaseConfig holds database connection settings. It is the only part of
// the configuration the migrate command needs.
type DatabaseConfig struct {
	DBDriver          string        `env:"DB_DRIVER" envDefault:"postgres"`
	DBHost            string        `env:"DB_HOST" envDefault:"localhost"`
	DBPort            int           `env:"DB_PORT" envDefault:"25432"`
	DBUser            string        `env:"DB_USER" envDefault:"postgres"`
	DBPassword        string        `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName            string        `env:"DB_NAME" envDefault:"social_idm"`
	DBSSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	SQLitePath        string        `env:"SQLITE_PATH" envDefault:"social-idm.db"`
}

// RateLimitConfig holds per-route-group rate limits.
type RateLimitConfig struct {
	Enabled                  bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	AuthRequestsPerMinute    int  `env:"RATE_LIMIT_AUTH_REQUESTS" envDefault:"10"`
	AuthWindowMinutes        int  `env:"RATE_LIMIT_AUTH_WINDOW_MINUTES" envDefault:"1"`
	RefreshRequestsPerMinute int  `env:"RATE_LIMIT_REFRESH_REQUESTS" envDefault:"30"`
	RefreshWindowMinutes     int  `env:"RATE_LIMIT_REFRESH_WINDOW_MINUTES" envDefault:"1"`
	ProfileRequestsPerMinute int  `env:"RATE_LIMIT_PROFILE_REQUESTS" envDefault:"60"`
	ProfileWindowMinutes     int  `env:"RATE_LIMIT_PROFILE_WINDOW_MINUTES" envDefault:"1"`
}

// SecurityHeadersConfig controls the browser hardening headers. Responses
// are never cacheable regardless of these settings.
type SecurityHeadersConfig struct {
	Enabled bool `env:"SECURITY_HEADERS_ENABLED" envDefault:"true"`
	// HSTSMaxAge in seconds; 0 leaves Strict-Transport-Security off.
	HSTSMaxAge int `env:"SECURITY_HSTS_MAX_AGE" envDefault:"31536000"`
}

// ValidationConfig holds request validation limits.
type ValidationConfig struct {
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"65536"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.DatabaseConfig.validate(); err != nil {
		return nil, err
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}
	return &cfg, nil
}

// LoadDatabase loads only the database settings from environment variables.
func LoadDatabase() (*DatabaseConfig, error) {
	var cfg DatabaseConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *DatabaseConfig) validate() error {
	switch c.DBDriver {
	case repository.DriverPostgres, repository.DriverSQLite:
		return nil
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", repository.DriverPostgres, repository.DriverSQLite, c.DBDriver)
	}
}

// DefaultHTTP returns the rate limit, security header and body size settings
// used when nothing in the environment overrides them.
func DefaultHTTP() (RateLimitConfig, SecurityHeadersConfig, ValidationConfig) {
	var (
		rl  RateLimitConfig
		sh  SecurityHeadersConfig
		val ValidationConfig
	)
	opts := env.Options{Environment: map[string]string{}}
	// Only envDefault tags apply to an empty environment, so these cannot fail.
	_ = env.ParseWithOptions(&rl, opts)
	_ = env.ParseWithOptions(&sh, opts)
	_ = env.ParseWithOptions(&val, opts)
	return rl, sh, val
}

// HasCodeExchange reports whether the server-side authorization code flow is
// configured.
func (c *Config) HasCodeExchange() bool {
	return c.GoogleClientSecret != "" && c.GoogleRedirectURI != ""
}

// DB returns the database connection settings.
func (c *DatabaseConfig) DB() repository.DBConfig {
	return repository.DBConfig{
		Driver:          c.DBDriver,
		Host:            c.DBHost,
		Port:            c.DBPort,
		User:            c.DBUser,
		Password:        c.DBPassword,
		Name:            c.DBName,
		SSLMode:         c.DBSSLMode,
		SQLitePath:      c.SQLitePath,
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
	}
}

// Tokens returns the token issuer settings.
func (c *Config) Tokens() auth.TokenConfig {
	return auth.TokenConfig{
		AccessTokenTTL:  c.AccessTokenTTL,
		RefreshTokenTTL: c.RefreshTokenTTL,
		JWTSecret:       []byte(c.JWTSecret),
		Issuer:          c.JWTIssuer,
	}
}

// Google returns the Google verifier settings.
func (c *Config) Google() auth.GoogleConfig {
	return auth.GoogleConfig{
		ClientID:        c.GoogleClientID,
		ClientSecret:    c.GoogleClientSecret,
		RedirectURI:     c.GoogleRedirectURI,
		MobileClientIDs: c.GoogleMobileClientIDs,
		Timeout:         c.VerifierTimeout,
	}
}
