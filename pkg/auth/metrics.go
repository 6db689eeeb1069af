package auth

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tendant/social-idm/pkg/domain"
)

var (
	verificationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialidm_social_verification_duration_seconds",
		Help:    "Latency of social credential verification by provider, flow and outcome",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"provider", "flow", "outcome"})

	tokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialidm_token_pairs_issued_total",
		Help: "Total number of access/refresh token pairs issued",
	})

	tokensRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialidm_refresh_tokens_revoked_total",
		Help: "Total number of refresh tokens added to the revocation list",
	})
)

func observeVerification(provider, flow string, start time.Time, err error) {
	verificationDuration.WithLabelValues(provider, flow, errorOutcome(err)).Observe(time.Since(start).Seconds())
}

func errorOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, domain.ErrTokenInvalid):
		return "invalid"
	default:
		return "error"
	}
}
