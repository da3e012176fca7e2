package engine

import (
	"context"

	"github.com/dealdesk/pricing-engine/internal/models"
)

// CandidateScorer scores one candidate price for a quote. The
// orchestrator depends only on this interface; new agents join a
// decision by implementing it and being registered in the scoring
// list.
type CandidateScorer interface {
	Name() string
	Score(ctx context.Context, quote models.QuoteContext, price float64) (ScoreResult, error)
}

// WinScore is the win-probability component of a score.
type WinScore struct {
	Probability float64
	Confidence  float64
	Attribution []models.FeatureWeight
}

// DemandScore is the elasticity component of a score, relative to the
// quote's list price as the reference.
type DemandScore struct {
	Elasticity       float64
	DemandMultiplier float64
	RevenueDelta     float64
}

// ScoreResult carries the components an agent contributed. Agents set
// only the components they compute; the orchestrator merges results
// from every registered scorer into one candidate.
type ScoreResult struct {
	Win    *WinScore
	Demand *DemandScore
}
