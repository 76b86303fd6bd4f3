package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// claimOutcomes counts terminal states. reason is empty except for rejections.
	claimOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faucet_claim_outcomes_total",
			Help: "Claim evaluations by terminal state and rejection reason.",
		},
		[]string{"state", "reason"},
	)

	// pollAttempts records how many status polls each submission needed.
	pollAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faucet_poll_attempts",
			Help:    "Status polls performed per submitted claim.",
			Buckets: prometheus.LinearBuckets(1, 2, 11), // 1..21
		},
	)

	// claimConflicts counts idempotent inserts that collided with a row owned
	// by a different requester.
	claimConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "faucet_claim_conflicts_total",
			Help: "Duplicate transaction ids recorded under a different requester.",
		},
	)
)

func init() {
	prometheus.MustRegister(claimOutcomes, pollAttempts, claimConflicts)
}
