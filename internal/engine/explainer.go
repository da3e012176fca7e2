package engine

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dealdesk/pricing-engine/internal/models"
)

// ExplainerAgent renders a decision record into the fixed-shape
// rationale consumed by presentation layers. The rendering is a
// deterministic template over the record's fields: no external calls,
// identical records produce identical rationales.
type ExplainerAgent struct {
	printer *message.Printer
}

// NewExplainerAgent constructs an explainer rendering for the given
// locale tag; an undefined tag falls back to English.
func NewExplainerAgent(tag language.Tag) *ExplainerAgent {
	if tag == language.Und {
		tag = language.English
	}
	return &ExplainerAgent{printer: message.NewPrinter(tag)}
}

// Explain produces the structured rationale for one decision.
func (e *ExplainerAgent) Explain(record models.DecisionRecord) models.Rationale {
	rationale := models.Rationale{
		DecisionID:    record.DecisionID,
		PolicyVersion: record.PolicyVersion,
	}

	if record.Selected == nil {
		rationale.DominantDriver = models.DriverPolicy
		if record.NoAdmissiblePrice {
			rationale.Summary = e.printer.Sprintf(
				"No admissible price: the policy floor %.2f exceeds the ceiling %.2f under policy version %s; escalate for manual pricing.",
				record.FloorPrice, record.CeilingPrice, record.PolicyVersion)
		} else {
			rationale.Summary = e.printer.Sprintf(
				"No recommendation: none of the %d candidate prices could be scored.",
				len(record.Candidates))
		}
		return rationale
	}

	selected := *record.Selected
	rationale.ChosenPrice = selected.Price
	rationale.WinProbability = selected.WinProbability
	rationale.DominantDriver = dominantDriver(record)
	rationale.TopFeatures = topFeatures(selected.Attribution, 3)

	summary := e.printer.Sprintf(
		"Recommended price %.2f %s: expected margin %.2f per unit at a %.0f%% win probability.",
		selected.Price, record.Quote.Currency, selected.ExpectedMargin,
		selected.WinProbability*100)
	// A zero-valued multiplier means no demand agent scored this
	// candidate; reporting it as a -100% change would be nonsense.
	if selected.DemandMultiplier > 0 {
		rationale.DemandChangePct = (selected.DemandMultiplier - 1) * 100
		summary += e.printer.Sprintf(" Projected demand change %+.1f%% versus list.",
			rationale.DemandChangePct)
	}
	if record.RequiresApproval {
		summary += e.printer.Sprintf(" Requires approval under policy version %s.", record.PolicyVersion)
	}
	rationale.Summary = summary

	return rationale
}

// dominantDriver names the signal that ruled out the next-best
// alternative. With no scored runner-up the interval itself decided,
// so policy dominates. Otherwise the expected-margin gap decomposes
// into a win-probability term and a margin term; the model dominates
// when its term is at least as large, elasticity when the chosen price
// additionally projects the better revenue outcome, else policy.
func dominantDriver(record models.DecisionRecord) models.DriverKind {
	selected := record.Selected
	runner := runnerUp(record)
	if runner == nil {
		return models.DriverPolicy
	}

	marginTerm := selected.WinProbability * (selected.Margin - runner.Margin)
	modelTerm := runner.Margin * (selected.WinProbability - runner.WinProbability)

	if math.Abs(modelTerm) >= math.Abs(marginTerm) {
		return models.DriverModel
	}
	if selected.RevenueDelta > runner.RevenueDelta {
		return models.DriverElasticity
	}
	return models.DriverPolicy
}

// runnerUp finds the best-scoring candidate other than the selected
// one, using plain expected-margin ordering.
func runnerUp(record models.DecisionRecord) *models.PriceCandidate {
	var runner *models.PriceCandidate
	for i := range record.Candidates {
		candidate := &record.Candidates[i]
		if candidate.Failed || candidate == record.Selected || candidate.Price == record.Selected.Price {
			continue
		}
		if runner == nil || candidate.ExpectedMargin > runner.ExpectedMargin {
			runner = candidate
		}
	}
	return runner
}

func topFeatures(attribution []models.FeatureWeight, limit int) []models.FeatureWeight {
	if len(attribution) <= limit {
		return append([]models.FeatureWeight(nil), attribution...)
	}
	return append([]models.FeatureWeight(nil), attribution[:limit]...)
}
