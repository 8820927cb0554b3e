// Package metrics exposes Prometheus counters for the guard pipeline and the
// contact form, plus the /metrics handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LoginAttemptsTotal counts admin login attempts by outcome
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "siteapi",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Total number of admin login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// LockoutsTotal counts lockout rejections
	LockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "siteapi",
			Subsystem: "auth",
			Name:      "lockouts_total",
			Help:      "Total number of login attempts rejected by the lockout guard",
		},
	)

	// LeadsSavedTotal counts contact form submissions written to the ledger
	LeadsSavedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "siteapi",
			Subsystem: "contact",
			Name:      "leads_saved_total",
			Help:      "Total number of contact form submissions saved",
		},
	)

	// LeadsDiscardedTotal counts submissions dropped by a guard, by reason
	LeadsDiscardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "siteapi",
			Subsystem: "contact",
			Name:      "leads_discarded_total",
			Help:      "Total number of contact form submissions dropped by a guard",
		},
		[]string{"reason"},
	)

	// NotificationsTotal counts outbound lead notifications by channel and outcome
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "siteapi",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total number of lead notifications sent by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
