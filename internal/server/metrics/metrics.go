// Package metrics exposes the service's prometheus instruments. Counters
// are registered on a private registry so tests can construct independent
// instances.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	TokensIssued    prometheus.Counter
	AuthFailures    *prometheus.CounterVec
	CsrfConsumed    *prometheus.CounterVec
	KeyRotations    prometheus.Counter
	SecretRotations prometheus.Counter
	AuthzDecisions  *prometheus.CounterVec
	CursorsRejected prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		TokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "centavo_tokens_issued_total",
			Help: "Access/refresh token pairs issued.",
		}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "centavo_auth_failures_total",
			Help: "Token verification failures by reason.",
		}, []string{"reason"}),
		CsrfConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "centavo_csrf_consumed_total",
			Help: "CSRF consume attempts by outcome.",
		}, []string{"outcome"}),
		KeyRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "centavo_cursor_key_rotations_total",
			Help: "Cursor key rotations performed.",
		}),
		SecretRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "centavo_token_secret_rotations_total",
			Help: "Signing secret generations appended.",
		}),
		AuthzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "centavo_authz_decisions_total",
			Help: "Authorization decisions by outcome.",
		}, []string{"outcome"}),
		CursorsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "centavo_cursors_rejected_total",
			Help: "Inbound cursors rejected as invalid.",
		}),
	}

	reg.MustRegister(
		m.TokensIssued, m.AuthFailures, m.CsrfConsumed, m.KeyRotations,
		m.SecretRotations, m.AuthzDecisions, m.CursorsRejected,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
