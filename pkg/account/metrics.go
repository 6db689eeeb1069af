package account

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialidm_logins_total",
		Help: "Social logins by result: returning, linked, registered or an error kind",
	}, []string{"provider", "result"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialidm_account_operation_duration_seconds",
		Help:    "Duration of account workflows including their transaction",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"operation"})

	nicknameChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialidm_nickname_changes_total",
		Help: "Total number of committed nickname changes",
	})

	deactivations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialidm_deactivations_total",
		Help: "Total number of deactivation requests that completed",
	})
)

func observeOperation(operation string, start time.Time) {
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
