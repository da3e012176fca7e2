package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels decisions that produced a recommendation.
	OutcomeSuccess = "success"
	// OutcomeNoPrice labels decisions with no admissible price.
	OutcomeNoPrice = "no_admissible_price"
	// OutcomeError labels decisions that failed terminally.
	OutcomeError = "error"
)

var (
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pricing_engine",
			Name:      "decisions_total",
			Help:      "Total number of pricing decisions handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	decisionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pricing_engine",
			Name:      "decision_seconds",
			Help:      "Pricing decision latency in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	candidatesScoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pricing_engine",
			Name:      "candidates_scored_total",
			Help:      "Total candidate prices scored across all decisions.",
		},
	)

	candidateFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pricing_engine",
			Name:      "candidate_failures_total",
			Help:      "Candidates excluded from selection because an agent failed to score them.",
		},
	)
)

// Register attaches the engine's collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		decisionsTotal,
		decisionDurationSeconds,
		candidatesScoredTotal,
		candidateFailuresTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveDecision records a decision duration and outcome label.
func ObserveDecision(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeNoPrice, OutcomeError:
	default:
		outcome = OutcomeSuccess
	}
	decisionsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	decisionDurationSeconds.Observe(duration.Seconds())
}

// ObserveCandidates records how many candidates a decision scored and
// how many of them failed.
func ObserveCandidates(scored, failed int) {
	if scored > 0 {
		candidatesScoredTotal.Add(float64(scored))
	}
	if failed > 0 {
		candidateFailuresTotal.Add(float64(failed))
	}
}
