package middleware

import (
	"net/http"
	"strconv"

	"github.com/tendant/social-idm/internal/config"
)

// apiContentSecurityPolicy forbids every resource; responses are JSON only.
const apiContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// SecurityHeaders marks every response as uncacheable, since login and
// refresh responses carry tokens, and adds the browser hardening headers a
// JSON API needs when cfg is enabled.
func SecurityHeaders(cfg config.SecurityHeadersConfig) func(http.Handler) http.Handler {
	var hsts string
	if cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge) + "; includeSubDomains"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")

			if cfg.Enabled {
				h.Set("Content-Security-Policy", apiContentSecurityPolicy)
				h.Set("X-Content-Type-Options", "nosniff")
				h.Set("Referrer-Policy", "no-referrer")
				if hsts != "" {
					h.Set("Strict-Transport-Security", hsts)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
