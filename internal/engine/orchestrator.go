package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dealdesk/pricing-engine/internal/models"
)

// Config tunes candidate generation and selection.
type Config struct {
	// CandidateCount is the number of equally spaced candidate prices
	// sampled across [floor, ceiling], inclusive.
	CandidateCount int
	// TieEpsilon bounds the expected-margin difference treated as a
	// tie during selection.
	TieEpsilon float64
	// ScoringConcurrency caps in-flight candidate scoring calls to
	// protect the shared inference runtime.
	ScoringConcurrency int
	// ScoreTimeout bounds each candidate's scoring round trip; a
	// timed-out candidate is a scoring failure, not a fatal error.
	ScoreTimeout time.Duration
	// CurvePoints is the default sample count for win-probability
	// curves when the caller does not ask for a specific resolution.
	CurvePoints int
}

func (c *Config) normalise() {
	if c.CandidateCount < 1 {
		c.CandidateCount = 5
	}
	if c.TieEpsilon <= 0 {
		c.TieEpsilon = 1e-6
	}
	if c.ScoringConcurrency < 1 {
		c.ScoringConcurrency = 4
	}
	if c.ScoreTimeout <= 0 {
		c.ScoreTimeout = 2 * time.Second
	}
	if c.CurvePoints < 1 {
		c.CurvePoints = 15
	}
}

// Orchestrator runs the pricing decision: policy bounds, deterministic
// candidate generation, per-candidate scoring through the registered
// agents, and expected-margin selection. Decisions are stateless and
// independent; concurrent Recommend calls share no mutable state
// beyond the decision-id counter.
type Orchestrator struct {
	logger     *slog.Logger
	rules      *RulesAgent
	scorers    []CandidateScorer
	cfg        Config
	decisionID atomic.Uint64
	now        func() time.Time
}

// NewOrchestrator constructs an Orchestrator over the registered
// scoring agents. Scorers are addressed only through the
// CandidateScorer interface.
func NewOrchestrator(logger *slog.Logger, rules *RulesAgent, scorers []CandidateScorer, cfg Config) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if rules == nil {
		rules = NewRulesAgent(logger)
	}
	cfg.normalise()
	return &Orchestrator{
		logger:  logger,
		rules:   rules,
		scorers: scorers,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Recommend runs one pricing decision and returns its audit record.
//
// A conflicting policy (floor above ceiling) is reported inside the
// record as no_admissible_price, not as an error. The only error
// condition is ErrNoScorableCandidates, raised when every candidate
// failed to score; the record carrying the failure markers is still
// returned for audit.
func (o *Orchestrator) Recommend(ctx context.Context, quote models.QuoteContext, rule models.PolicyRule) (models.DecisionRecord, error) {
	bounds := o.rules.Bounds(quote, rule)

	record := models.DecisionRecord{
		DecisionID:       o.decisionID.Add(1),
		CreatedAt:        o.now().UTC(),
		Quote:            quote,
		PolicyVersion:    rule.Version,
		FloorPrice:       bounds.FloorPrice,
		CeilingPrice:     bounds.CeilingPrice,
		RequiresApproval: bounds.RequiresApproval,
	}
	if bounds.TierApplied {
		record.AppliedTier = bounds.Tier.Name
		record.TierDiscountPct = bounds.Tier.DiscountPct
	}

	if bounds.FloorPrice > bounds.CeilingPrice {
		record.NoAdmissiblePrice = true
		o.logger.Warn("conflicting policy, no admissible price",
			slog.String("product", quote.ProductID),
			slog.Float64("floor", bounds.FloorPrice),
			slog.Float64("ceiling", bounds.CeilingPrice),
			slog.String("policy_version", rule.Version))
		return record, nil
	}

	prices := candidatePrices(bounds.FloorPrice, bounds.CeilingPrice, o.cfg.CandidateCount)
	record.Candidates = o.scoreAll(ctx, quote, prices)

	bestIdx := o.selectBest(record.Candidates)
	if bestIdx < 0 {
		return record, fmt.Errorf("%w: all %d candidates failed", ErrNoScorableCandidates, len(record.Candidates))
	}

	selected := record.Candidates[bestIdx]
	record.Selected = &selected

	o.logger.Debug("decision complete",
		slog.Uint64("decision_id", record.DecisionID),
		slog.Float64("price", selected.Price),
		slog.Float64("expected_margin", selected.ExpectedMargin))
	return record, nil
}

// AssessPrice scores one caller-proposed price through every agent and
// classifies it into an approval band. A scoring failure surfaces as
// ErrCandidateScoring since there is no alternative candidate.
func (o *Orchestrator) AssessPrice(ctx context.Context, quote models.QuoteContext, rule models.PolicyRule, price float64) (models.PriceAssessment, error) {
	bounds := o.rules.Bounds(quote, rule)

	candidate := o.scoreCandidate(ctx, quote, price)
	if candidate.Failed {
		return models.PriceAssessment{}, fmt.Errorf("%w: %s", ErrCandidateScoring, candidate.FailureReason)
	}

	return models.PriceAssessment{
		Price:         price,
		Band:          o.rules.ApprovalBand(price, rule, bounds),
		Candidate:     candidate,
		FloorPrice:    bounds.FloorPrice,
		CeilingPrice:  bounds.CeilingPrice,
		PolicyVersion: rule.Version,
	}, nil
}

// WinCurve samples win probabilities across the admissible interval.
// Points that fail to score are skipped.
func (o *Orchestrator) WinCurve(ctx context.Context, quote models.QuoteContext, rule models.PolicyRule, points int) ([]models.CurvePoint, error) {
	bounds := o.rules.Bounds(quote, rule)
	if bounds.FloorPrice > bounds.CeilingPrice {
		return nil, fmt.Errorf("conflicting policy: floor %.2f above ceiling %.2f", bounds.FloorPrice, bounds.CeilingPrice)
	}
	if points < 1 {
		points = o.cfg.CurvePoints
	}

	prices := candidatePrices(bounds.FloorPrice, bounds.CeilingPrice, points)
	scored := o.scoreAll(ctx, quote, prices)

	curve := make([]models.CurvePoint, 0, len(scored))
	for _, candidate := range scored {
		if candidate.Failed {
			continue
		}
		curve = append(curve, models.CurvePoint{
			Price:          candidate.Price,
			WinProbability: candidate.WinProbability,
		})
	}
	return curve, nil
}

// scoreAll fans candidate scoring out across a bounded worker set.
// Results land at their generation index, so ordering is stable
// regardless of completion order.
func (o *Orchestrator) scoreAll(ctx context.Context, quote models.QuoteContext, prices []float64) []models.PriceCandidate {
	candidates := make([]models.PriceCandidate, len(prices))
	sem := make(chan struct{}, o.cfg.ScoringConcurrency)
	var wg sync.WaitGroup

	for i, price := range prices {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, price float64) {
			defer wg.Done()
			defer func() { <-sem }()
			candidates[idx] = o.scoreCandidate(ctx, quote, price)
		}(i, price)
	}
	wg.Wait()
	return candidates
}

// scoreCandidate runs every registered agent for one price. The first
// agent error marks the candidate failed and is recorded for audit;
// remaining agents are skipped.
func (o *Orchestrator) scoreCandidate(ctx context.Context, quote models.QuoteContext, price float64) models.PriceCandidate {
	candidate := models.PriceCandidate{
		Price:  price,
		Margin: price - quote.Cost,
	}
	if quote.ListPrice > 0 {
		candidate.DiscountFromList = (quote.ListPrice - price) / quote.ListPrice
	}
	if quote.Cost > 0 {
		candidate.MarginRatio = candidate.Margin / quote.Cost
	}

	scoreCtx, cancel := context.WithTimeout(ctx, o.cfg.ScoreTimeout)
	defer cancel()

	hasWin := false
	for _, scorer := range o.scorers {
		result, err := scorer.Score(scoreCtx, quote, price)
		if err != nil {
			candidate.Failed = true
			candidate.FailureReason = fmt.Sprintf("%s: %v", scorer.Name(), err)
			o.logger.Warn("candidate scoring failed",
				slog.String("agent", scorer.Name()),
				slog.Float64("price", price),
				slog.Any("error", err))
			return candidate
		}
		if result.Win != nil {
			candidate.WinProbability = result.Win.Probability
			candidate.Confidence = result.Win.Confidence
			candidate.Attribution = result.Win.Attribution
			hasWin = true
		}
		if result.Demand != nil {
			candidate.Elasticity = result.Demand.Elasticity
			candidate.DemandMultiplier = result.Demand.DemandMultiplier
			candidate.RevenueDelta = result.Demand.RevenueDelta
		}
	}

	if !hasWin {
		candidate.Failed = true
		candidate.FailureReason = "no agent reported a win probability"
		return candidate
	}

	candidate.ExpectedMargin = candidate.Margin * candidate.WinProbability
	return candidate
}

// selectBest returns the index of the admissible candidate maximising
// expected margin, or -1 when none scored. Ties within TieEpsilon
// resolve by higher win probability, then lower price, then generation
// order, in that fixed sequence.
func (o *Orchestrator) selectBest(candidates []models.PriceCandidate) int {
	best := -1
	for i := range candidates {
		if candidates[i].Failed {
			continue
		}
		if best < 0 || o.better(candidates[i], candidates[best]) {
			best = i
		}
	}
	return best
}

func (o *Orchestrator) better(a, b models.PriceCandidate) bool {
	switch {
	case a.ExpectedMargin > b.ExpectedMargin+o.cfg.TieEpsilon:
		return true
	case a.ExpectedMargin < b.ExpectedMargin-o.cfg.TieEpsilon:
		return false
	}
	if a.WinProbability != b.WinProbability {
		return a.WinProbability > b.WinProbability
	}
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	// Equal on every criterion: keep the earlier candidate.
	return false
}

// candidatePrices generates count equally spaced prices across
// [floor, ceiling] inclusive. A degenerate interval yields a single
// candidate at the floor.
func candidatePrices(floor, ceiling float64, count int) []float64 {
	if count < 1 {
		count = 1
	}
	if count == 1 || ceiling <= floor {
		return []float64{floor}
	}

	prices := make([]float64, count)
	step := (ceiling - floor) / float64(count-1)
	for i := range prices {
		prices[i] = floor + step*float64(i)
	}
	// Pin the endpoint to avoid floating-point drift past the ceiling.
	prices[count-1] = ceiling
	return prices
}
