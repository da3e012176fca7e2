package engine

import (
	"log/slog"

	"github.com/dealdesk/pricing-engine/internal/models"
)

// Bounds is the admissible price interval computed from policy for one
// quote. A Floor above Ceiling signals a conflicting policy; it is
// reported, never silently resolved.
type Bounds struct {
	FloorPrice       float64
	CeilingPrice     float64
	RequiresApproval bool
	Tier             models.VolumeTier
	TierApplied      bool
}

// RulesAgent applies business policy to a quote context. Bounds is a
// pure function of (quote, rule): no side effects, deterministic.
type RulesAgent struct {
	logger *slog.Logger
}

// NewRulesAgent constructs a RulesAgent.
func NewRulesAgent(logger *slog.Logger) *RulesAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &RulesAgent{logger: logger}
}

// Bounds computes the admissible price interval and approval flags.
//
// The binding floor is max(cost*floorRatio, minMarginFloor). The
// ceiling is listPrice*ceilingRatio, reduced by the volume tier
// matching the quoted quantity. Approval is required when the tiered
// ceiling still exceeds the approval threshold, or when the policy is
// degenerate (floor above ceiling).
func (a *RulesAgent) Bounds(quote models.QuoteContext, rule models.PolicyRule) Bounds {
	floor := quote.Cost * rule.FloorRatio
	if rule.MinMarginFloor > floor {
		floor = rule.MinMarginFloor
	}

	ceiling := quote.ListPrice * rule.CeilingRatio
	tier, tierApplied := rule.TierFor(quote.Quantity)
	if tierApplied {
		ceiling *= 1 - tier.DiscountPct
	}

	requiresApproval := rule.ApprovalThreshold > 0 && ceiling > rule.ApprovalThreshold
	if floor > ceiling {
		requiresApproval = true
	}

	return Bounds{
		FloorPrice:       floor,
		CeilingPrice:     ceiling,
		RequiresApproval: requiresApproval,
		Tier:             tier,
		TierApplied:      tierApplied,
	}
}

// ApprovalBand classifies a proposed price against the computed
// bounds: below floor rejects, above the ceiling or the approval
// threshold needs review, anything else is approved.
func (a *RulesAgent) ApprovalBand(price float64, rule models.PolicyRule, bounds Bounds) models.ApprovalBand {
	if price < bounds.FloorPrice {
		return models.BandReject
	}
	if price > bounds.CeilingPrice {
		return models.BandReview
	}
	if rule.ApprovalThreshold > 0 && price > rule.ApprovalThreshold {
		return models.BandReview
	}
	return models.BandApproved
}
