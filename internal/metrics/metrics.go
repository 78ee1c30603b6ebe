// Package metrics provides Prometheus metrics for hr-matcher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spigell/hr-matcher/internal/crm"
	"github.com/spigell/hr-matcher/internal/matching"
)

const namespace = "hr_matcher"

var (
	// MatchesScoredTotal tracks scored pairs by outcome
	MatchesScoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "pairs_scored_total",
			Help:      "Total number of scored candidate/position pairs by outcome",
		},
		[]string{"outcome"},
	)

	// MatchScore tracks the distribution of produced scores
	MatchScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "score",
			Help:      "Distribution of match scores",
			Buckets:   []float64{10, 20, 30, 40, 45, 50, 60, 70, 80, 90, 100},
		},
	)

	// RankDuration tracks ranking latency in seconds
	RankDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "rank_duration_seconds",
			Help:      "Duration of ranking requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"direction"},
	)

	// AIAssessmentsTotal tracks AI assessment usage per pair
	AIAssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "assessments_total",
			Help:      "Total number of pairs by AI assessment status",
		},
		[]string{"status"},
	)

	// FilteredPositionsTotal tracks positions dropped by the pre-filter pipeline
	FilteredPositionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filtering",
			Name:      "positions_dropped_total",
			Help:      "Total number of positions dropped before ranking",
		},
	)
)

const (
	OutcomeProceed      = "proceed"
	OutcomeReview       = "review"
	OutcomeDisqualified = "disqualified"
	OutcomeFailed       = "failed"

	DirectionPositions  = "positions"
	DirectionCandidates = "candidates"
)

// Outcome classifies a result for the pairs_scored_total counter.
func Outcome(r *crm.MatchResult) string {
	switch {
	case r.Disqualified:
		return OutcomeDisqualified
	case r.ShouldProceed:
		return OutcomeProceed
	case r.Recommendation == matching.RecommendationManualReview:
		return OutcomeFailed
	default:
		return OutcomeReview
	}
}

// RecordResults records scoring outcomes for a batch of results
func RecordResults(results []*crm.MatchResult, aiEnabled bool) {
	for _, r := range results {
		MatchesScoredTotal.WithLabelValues(Outcome(r)).Inc()
		MatchScore.Observe(r.Score)
		if !aiEnabled {
			continue
		}
		if r.AIUsed {
			AIAssessmentsTotal.WithLabelValues("used").Inc()
		} else {
			AIAssessmentsTotal.WithLabelValues("fallback").Inc()
		}
	}
}

// RecordRank records a ranking request duration
func RecordRank(direction string, durationSeconds float64) {
	RankDuration.WithLabelValues(direction).Observe(durationSeconds)
}

// RecordFiltered records positions dropped by filters
func RecordFiltered(dropped int) {
	if dropped > 0 {
		FilteredPositionsTotal.Add(float64(dropped))
	}
}
