package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		accountsExpiredTotal,
		accountsTotal,
		activationsTotal,
	)
}

var (
	accountsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "accounts_expired_total",
			Help: "Accounts flipped to expired by the sweep worker.",
		},
	)

	accountsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "accounts_total",
			Help: "Current number of accounts by status.",
		},
		[]string{"status"}, // 'active', 'blocked', 'expired'
	)

	activationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activations_total",
			Help: "Code redemptions by result.",
		},
		[]string{"result"}, // first_use, reinstall, conflict
	)
)

func IncAccountsExpired(count int) {
	accountsExpiredTotal.Add(float64(count))
}

func SetAccountsTotal(counts map[string]int) {
	for status, count := range counts {
		accountsTotal.WithLabelValues(norm(status)).Set(float64(count))
	}
}

func IncActivation(result string) {
	activationsTotal.WithLabelValues(norm(result)).Inc()
}
