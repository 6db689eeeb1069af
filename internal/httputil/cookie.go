package httputil

import (
	"net/http"
	"time"

	"github.com/tendant/social-idm/pkg/domain"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"

	// ClientTypeHeader selects body-based token delivery when set to "mobile".
	ClientTypeHeader = "X-Client-Type"
)

// CookieConfig holds cookie configuration.
type CookieConfig struct {
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookieConfig returns default cookie configuration.
func DefaultCookieConfig(secure bool) CookieConfig {
	return CookieConfig{
		Path:     "/",
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c CookieConfig) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

// SetAuthCookies sets HttpOnly cookies for the access and refresh tokens.
func SetAuthCookies(w http.ResponseWriter, tokens domain.TokenPair, refreshTTL time.Duration, cfg CookieConfig) {
	http.SetCookie(w, cfg.cookie(accessTokenCookie, tokens.AccessToken, tokens.ExpiresIn))
	if tokens.RefreshToken != "" {
		http.SetCookie(w, cfg.cookie(refreshTokenCookie, tokens.RefreshToken, int(refreshTTL.Seconds())))
	}
}

// ClearAuthCookies expires both auth cookies.
func ClearAuthCookies(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, cfg.cookie(accessTokenCookie, "", -1))
	http.SetCookie(w, cfg.cookie(refreshTokenCookie, "", -1))
}

// GetRefreshTokenFromCookie extracts the refresh token from its cookie.
func GetRefreshTokenFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil {
		return "", false
	}
	return cookie.Value, true
}

// GetAccessTokenFromCookie extracts the access token from its cookie.
func GetAccessTokenFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(accessTokenCookie)
	if err != nil {
		return "", false
	}
	return cookie.Value, true
}

// IsMobileClient reports whether the client asked for tokens in the body
// rather than in cookies.
func IsMobileClient(r *http.Request) bool {
	return r.Header.Get(ClientTypeHeader) == "mobile"
}
