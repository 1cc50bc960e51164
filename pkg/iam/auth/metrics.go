package auth

import "github.com/prometheus/client_golang/prometheus"

// LoginAttempts counts sign-in attempts by method and outcome code.
// Use RegisterMetrics to register this with a Prometheus registry.
var LoginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lingua_login_attempts_total",
		Help: "Total number of sign-in attempts",
	},
	[]string{"method", "outcome"},
)

// TokensIssued counts issued access tokens by kind (regular, super,
// impersonation).
var TokensIssued = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lingua_tokens_issued_total",
		Help: "Total number of issued access tokens",
	},
	[]string{"kind"},
)

// RegisterMetrics registers auth metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LoginAttempts)
	reg.MustRegister(TokensIssued)
}
