package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docflow", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docflow", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	APICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docflow", Name: "api_calls_total", Help: "Backend operations by operation and classified outcome."},
		[]string{"op", "outcome"},
	)
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docflow", Name: "notifications_total", Help: "Notification deliveries by outcome (sent, failed, dropped)."},
		[]string{"outcome"},
	)
	BootstrapDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "docflow", Name: "dashboard_bootstrap_seconds", Help: "Dashboard bootstrap latency by role.", Buckets: prometheus.DefBuckets},
		[]string{"role"},
	)
	BusyRejected = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docflow", Name: "busy_rejected_total", Help: "Triggers rejected because the session was busy."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(APICalls)
	reg.MustRegister(Notifications)
	reg.MustRegister(BootstrapDuration)
	reg.MustRegister(BusyRejected)
}
