package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	UsersCreated    prometheus.Counter
	WalletsLinked   prometheus.Counter
	SessionsIssued  prometheus.Counter
	SessionsReused  prometheus.Counter
	LoginsResolved  *prometheus.CounterVec
	ConnectFailures *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "garuda_users_created_total",
			Help: "Total number of canonical users created",
		}),
		WalletsLinked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "garuda_wallets_linked_total",
			Help: "Total number of wallets linked to canonical users",
		}),
		SessionsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "garuda_sessions_issued_total",
			Help: "Total number of sessions issued through a signing ceremony",
		}),
		SessionsReused: promauto.NewCounter(prometheus.CounterOpts{
			Name: "garuda_sessions_reused_total",
			Help: "Total number of stored sessions adopted without signing",
		}),
		LoginsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "garuda_logins_resolved_total",
			Help: "Total number of resolved logins by provider",
		}, []string{"provider"}),
		ConnectFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "garuda_connect_failures_total",
			Help: "Total number of failed connect attempts by reason",
		}, []string{"reason"}),
	}
}
