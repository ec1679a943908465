package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsGenerator interface {
	IncOpSubmitted()
	IncOpOutcome(string)
	IncPollError()
	IncSponsorship(string)
	IncWalletDeployed()
}

// WalletMetrics contains instrumented metrics incremented by the client as
// operations move through their lifecycle.
type WalletMetrics struct {
	numOpsSubmitted prometheus.Counter
	// outcome is one of confirmed, reverted, failed
	numOpOutcomes      *prometheus.CounterVec
	numPollErrors      prometheus.Counter
	numSponsorships    *prometheus.CounterVec
	numWalletsDeployed prometheus.Counter
}

const wcNamespace = "walletcore"

func NewWalletMetrics(reg prometheus.Registerer) *WalletMetrics {
	return &WalletMetrics{
		numOpsSubmitted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: wcNamespace,
				Name:      "num_userops_submitted_total",
				Help:      "The number of user operations handed to the bundler",
			}),

		numOpOutcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: wcNamespace,
				Name:      "num_userop_outcomes_total",
				Help:      "The number of user operations that reached a terminal state, by outcome",
			}, []string{"outcome"}),

		numPollErrors: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: wcNamespace,
				Name:      "num_poll_errors_total",
				Help:      "The number of failed bundler status polls. If it keeps increasing, the bundler endpoint is unhealthy",
			}),

		numSponsorships: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: wcNamespace,
				Name:      "num_sponsorship_requests_total",
				Help:      "The number of paymaster sponsorship requests, by status",
			}, []string{"status"}),

		numWalletsDeployed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: wcNamespace,
				Name:      "num_wallets_deployed_total",
				Help:      "The number of smart wallets whose deployment was observed on chain",
			}),
	}
}

func (m *WalletMetrics) IncOpSubmitted() {
	m.numOpsSubmitted.Inc()
}

func (m *WalletMetrics) IncOpOutcome(outcome string) {
	m.numOpOutcomes.WithLabelValues(outcome).Inc()
}

func (m *WalletMetrics) IncPollError() {
	m.numPollErrors.Inc()
}

func (m *WalletMetrics) IncSponsorship(status string) {
	m.numSponsorships.WithLabelValues(status).Inc()
}

func (m *WalletMetrics) IncWalletDeployed() {
	m.numWalletsDeployed.Inc()
}

// Noop returns a generator wired to a throwaway registry, for callers that
// do not export metrics.
func Noop() *WalletMetrics {
	return NewWalletMetrics(prometheus.NewRegistry())
}
