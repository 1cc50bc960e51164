package credentials

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for CredentialChecks.
const (
	OutcomeSuccess      = "success"
	OutcomeUnknownUser  = "unknown_user"
	OutcomeBadPassword  = "bad_password"
	OutcomeManaged      = "managed_account"
	OutcomeSsoForced    = "sso_forced"
	OutcomeLookupFailed = "error"
)

// CredentialChecks counts username/password verifications by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var CredentialChecks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lingua_credential_checks_total",
		Help: "Total number of username/password verifications",
	},
	[]string{"outcome"},
)

// RegisterMetrics registers the credential metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CredentialChecks)
}
