package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealdesk/pricing-engine/internal/engine"
	"github.com/dealdesk/pricing-engine/internal/history"
	"github.com/dealdesk/pricing-engine/internal/metrics"
	"github.com/dealdesk/pricing-engine/internal/models"
	"github.com/dealdesk/pricing-engine/internal/policy"
	"github.com/dealdesk/pricing-engine/internal/utils"
)

// PricingService is the facade over the decision engine: it resolves
// policy for a quote, runs the orchestrator, renders the rationale,
// and keeps operational telemetry.
type PricingService struct {
	logger       *slog.Logger
	orchestrator *engine.Orchestrator
	explainer    *engine.ExplainerAgent
	policies     policy.Source
	outcomes     *history.Stats
	latencies    *utils.LatencyTracker
}

// NewPricingService constructs the service facade.
func NewPricingService(logger *slog.Logger, orchestrator *engine.Orchestrator, explainer *engine.ExplainerAgent, policies policy.Source, outcomes *history.Stats) *PricingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PricingService{
		logger:       logger,
		orchestrator: orchestrator,
		explainer:    explainer,
		policies:     policies,
		outcomes:     outcomes,
		latencies:    utils.NewLatencyTracker(1024),
	}
}

// Recommend runs a full pricing decision for the quote and returns the
// audit record with its rationale.
func (s *PricingService) Recommend(ctx context.Context, quote models.QuoteContext) (models.DecisionRecord, models.Rationale, error) {
	rule, err := s.policies.Lookup(quote.ProductFamily, quote.Segment)
	if err != nil {
		return models.DecisionRecord{}, models.Rationale{}, utils.NewAppError("recommend", "policy lookup failed", err)
	}

	start := time.Now()
	record, err := s.orchestrator.Recommend(ctx, quote, rule)
	duration := time.Since(start)

	scored, failed := candidateCounts(record.Candidates)
	metrics.ObserveCandidates(scored, failed)

	if err != nil {
		metrics.ObserveDecision(duration, metrics.OutcomeError)
		s.logger.Error("recommendation failed",
			slog.String("product", quote.ProductID),
			slog.Any("error", err))
		if errors.Is(err, engine.ErrNoScorableCandidates) {
			return record, models.Rationale{}, err
		}
		return record, models.Rationale{}, utils.NewAppError("recommend", "decision failed", err)
	}

	outcome := metrics.OutcomeSuccess
	if record.NoAdmissiblePrice {
		outcome = metrics.OutcomeNoPrice
	}
	metrics.ObserveDecision(duration, outcome)

	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("decision latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}

	return record, s.explainer.Explain(record), nil
}

// ScorePrice assesses one caller-proposed price against policy and the
// predictive agents.
func (s *PricingService) ScorePrice(ctx context.Context, quote models.QuoteContext, proposedPrice float64) (models.PriceAssessment, error) {
	if proposedPrice <= 0 {
		return models.PriceAssessment{}, utils.NewAppError("score", fmt.Sprintf("proposed price %.2f must be positive", proposedPrice), nil)
	}

	rule, err := s.policies.Lookup(quote.ProductFamily, quote.Segment)
	if err != nil {
		return models.PriceAssessment{}, utils.NewAppError("score", "policy lookup failed", err)
	}

	assessment, err := s.orchestrator.AssessPrice(ctx, quote, rule, proposedPrice)
	if err != nil {
		return models.PriceAssessment{}, utils.NewAppError("score", "price assessment failed", err)
	}
	return assessment, nil
}

// WinCurve samples win probabilities across the admissible interval.
func (s *PricingService) WinCurve(ctx context.Context, quote models.QuoteContext, points int) ([]models.CurvePoint, error) {
	rule, err := s.policies.Lookup(quote.ProductFamily, quote.Segment)
	if err != nil {
		return nil, utils.NewAppError("win-curve", "policy lookup failed", err)
	}

	curve, err := s.orchestrator.WinCurve(ctx, quote, rule, points)
	if err != nil {
		return nil, utils.NewAppError("win-curve", "curve generation failed", err)
	}
	return curve, nil
}

// RecordOutcome folds a closed quote into the in-memory history
// aggregates that calibrate extrapolation confidence.
func (s *PricingService) RecordOutcome(_ context.Context, outcome models.QuoteOutcome) error {
	if s.outcomes == nil {
		return utils.NewAppError("outcome", "outcome history not configured", nil)
	}
	if outcome.ProductFamily == "" {
		return utils.NewAppError("outcome", "product_family is required", nil)
	}
	s.outcomes.Record(outcome)
	return nil
}

// OutcomeSummaries exposes aggregated win rates and price ranges.
func (s *PricingService) OutcomeSummaries() []models.OutcomeSummary {
	if s.outcomes == nil {
		return nil
	}
	return s.outcomes.Summaries()
}

func candidateCounts(candidates []models.PriceCandidate) (scored, failed int) {
	for _, candidate := range candidates {
		if candidate.Failed {
			failed++
			continue
		}
		scored++
	}
	return scored, failed
}
