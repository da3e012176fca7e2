package engine

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/dealdesk/pricing-engine/internal/models"
)

func selectedRecord() models.DecisionRecord {
	candidates := []models.PriceCandidate{
		{Price: 45, Margin: -5, WinProbability: 0.95, ExpectedMargin: -4.75},
		{Price: 60.75, Margin: 10.75, WinProbability: 0.85, ExpectedMargin: 9.1375},
		{Price: 76.5, Margin: 26.5, WinProbability: 0.70, ExpectedMargin: 18.55},
		{Price: 92.25, Margin: 42.25, WinProbability: 0.55, ExpectedMargin: 23.2375, DemandMultiplier: 0.88},
		{Price: 108, Margin: 58, WinProbability: 0.40, ExpectedMargin: 23.2},
	}
	record := models.DecisionRecord{
		DecisionID:    7,
		Quote:         testQuote(),
		PolicyVersion: "2026.08",
		FloorPrice:    45,
		CeilingPrice:  108,
		Candidates:    candidates,
	}
	record.Selected = &record.Candidates[3]
	return record
}

func TestExplainSelectedDecision(t *testing.T) {
	explainer := NewExplainerAgent(language.AmericanEnglish)
	record := selectedRecord()

	rationale := explainer.Explain(record)
	if rationale.DecisionID != 7 {
		t.Fatalf("expected decision id carried, got %d", rationale.DecisionID)
	}
	if rationale.ChosenPrice != 92.25 {
		t.Fatalf("expected chosen price 92.25, got %.4f", rationale.ChosenPrice)
	}
	if rationale.WinProbability != 0.55 {
		t.Fatalf("expected win probability 0.55, got %.4f", rationale.WinProbability)
	}
	if math.Abs(rationale.DemandChangePct-(-12)) > 1e-9 {
		t.Fatalf("expected demand change -12%%, got %.4f", rationale.DemandChangePct)
	}
	if rationale.PolicyVersion != "2026.08" {
		t.Fatalf("expected policy version, got %q", rationale.PolicyVersion)
	}
	if !strings.Contains(rationale.Summary, "92.25") {
		t.Fatalf("summary must mention the chosen price: %q", rationale.Summary)
	}
	if strings.Contains(rationale.Summary, "approval") {
		t.Fatalf("no approval note expected: %q", rationale.Summary)
	}
}

func TestExplainModelDominates(t *testing.T) {
	// Against the 108 runner-up, the win-probability term (8.7)
	// outweighs the margin term (8.6625).
	explainer := NewExplainerAgent(language.AmericanEnglish)
	rationale := explainer.Explain(selectedRecord())
	if rationale.DominantDriver != models.DriverModel {
		t.Fatalf("expected model driver, got %s", rationale.DominantDriver)
	}
}

func TestExplainElasticityDominates(t *testing.T) {
	record := models.DecisionRecord{
		DecisionID:    1,
		Quote:         testQuote(),
		PolicyVersion: "2026.08",
		Candidates: []models.PriceCandidate{
			{Price: 90, Margin: 40, WinProbability: 0.5, ExpectedMargin: 20, RevenueDelta: 2},
			{Price: 100, Margin: 50, WinProbability: 0.5, ExpectedMargin: 25, RevenueDelta: 5},
		},
	}
	record.Selected = &record.Candidates[1]

	rationale := NewExplainerAgent(language.AmericanEnglish).Explain(record)
	if rationale.DominantDriver != models.DriverElasticity {
		t.Fatalf("expected elasticity driver, got %s", rationale.DominantDriver)
	}
}

func TestExplainPolicyDominatesWithoutRunnerUp(t *testing.T) {
	record := models.DecisionRecord{
		DecisionID:    1,
		Quote:         testQuote(),
		PolicyVersion: "2026.08",
		Candidates: []models.PriceCandidate{
			{Price: 100, Margin: 50, WinProbability: 0.5, ExpectedMargin: 25},
		},
	}
	record.Selected = &record.Candidates[0]

	rationale := NewExplainerAgent(language.AmericanEnglish).Explain(record)
	if rationale.DominantDriver != models.DriverPolicy {
		t.Fatalf("expected policy driver for a single candidate, got %s", rationale.DominantDriver)
	}
}

func TestExplainNoDemandComponent(t *testing.T) {
	// A win-rate-only scorer set leaves the multiplier zero-valued;
	// the rationale must not report that as a -100% demand change.
	record := selectedRecord()
	record.Selected = &record.Candidates[4]

	rationale := NewExplainerAgent(language.AmericanEnglish).Explain(record)
	if rationale.DemandChangePct != 0 {
		t.Fatalf("expected no demand change reported, got %.4f", rationale.DemandChangePct)
	}
	if strings.Contains(rationale.Summary, "demand") {
		t.Fatalf("summary must omit the demand clause: %q", rationale.Summary)
	}
}

func TestExplainNoAdmissiblePrice(t *testing.T) {
	record := models.DecisionRecord{
		DecisionID:        3,
		Quote:             testQuote(),
		PolicyVersion:     "2026.08",
		FloorPrice:        150,
		CeilingPrice:      100,
		RequiresApproval:  true,
		NoAdmissiblePrice: true,
	}

	rationale := NewExplainerAgent(language.AmericanEnglish).Explain(record)
	if rationale.DominantDriver != models.DriverPolicy {
		t.Fatalf("expected policy driver, got %s", rationale.DominantDriver)
	}
	if !strings.Contains(rationale.Summary, "No admissible price") {
		t.Fatalf("expected escalation summary, got %q", rationale.Summary)
	}
	if !strings.Contains(rationale.Summary, "150.00") || !strings.Contains(rationale.Summary, "100.00") {
		t.Fatalf("summary must report both bounds: %q", rationale.Summary)
	}
}

func TestExplainAllCandidatesFailed(t *testing.T) {
	record := models.DecisionRecord{
		DecisionID:    4,
		Quote:         testQuote(),
		PolicyVersion: "2026.08",
		Candidates: []models.PriceCandidate{
			{Price: 45, Failed: true, FailureReason: "winrate: boom"},
			{Price: 108, Failed: true, FailureReason: "winrate: boom"},
		},
	}

	rationale := NewExplainerAgent(language.AmericanEnglish).Explain(record)
	if !strings.Contains(rationale.Summary, "No recommendation") {
		t.Fatalf("expected failure summary, got %q", rationale.Summary)
	}
	if !strings.Contains(rationale.Summary, "2") {
		t.Fatalf("summary should count the candidates: %q", rationale.Summary)
	}
}

func TestExplainApprovalNote(t *testing.T) {
	record := selectedRecord()
	record.RequiresApproval = true

	rationale := NewExplainerAgent(language.AmericanEnglish).Explain(record)
	if !strings.Contains(rationale.Summary, "approval") {
		t.Fatalf("expected approval note in summary: %q", rationale.Summary)
	}
	if !strings.Contains(rationale.Summary, "2026.08") {
		t.Fatalf("approval note must cite the policy version: %q", rationale.Summary)
	}
}

func TestExplainTopFeaturesLimit(t *testing.T) {
	record := selectedRecord()
	record.Selected.Attribution = []models.FeatureWeight{
		{Feature: "price_vs_anchor", Weight: -0.8},
		{Feature: "channel", Weight: 0.3},
		{Feature: "quantity", Weight: 0.2},
		{Feature: "discount_from_list", Weight: 0.1},
	}

	rationale := NewExplainerAgent(language.AmericanEnglish).Explain(record)
	if len(rationale.TopFeatures) != 3 {
		t.Fatalf("expected at most 3 features, got %d", len(rationale.TopFeatures))
	}
	if rationale.TopFeatures[0].Feature != "price_vs_anchor" {
		t.Fatalf("expected strongest feature first, got %q", rationale.TopFeatures[0].Feature)
	}
}

func TestExplainDeterministic(t *testing.T) {
	explainer := NewExplainerAgent(language.AmericanEnglish)
	record := selectedRecord()

	first := explainer.Explain(record)
	second := explainer.Explain(record)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical records must produce identical rationales:\n%+v\n%+v", first, second)
	}
}
