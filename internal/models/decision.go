package models

import "time"

// PriceCandidate is one trial price generated within policy bounds and
// independently scored. Immutable once scored.
type PriceCandidate struct {
	Price            float64 `json:"price"`
	DiscountFromList float64 `json:"discount_from_list"`
	Margin           float64 `json:"margin"`
	MarginRatio      float64 `json:"margin_ratio"`

	WinProbability float64 `json:"win_probability"`
	Confidence     float64 `json:"confidence"`

	Elasticity       float64 `json:"elasticity"`
	DemandMultiplier float64 `json:"demand_multiplier"`
	RevenueDelta     float64 `json:"revenue_delta"`

	// ExpectedMargin is Margin * WinProbability, the selection
	// objective. Defined only when Failed is false.
	ExpectedMargin float64 `json:"expected_margin"`

	Attribution []FeatureWeight `json:"attribution,omitempty"`

	// Failed marks a candidate excluded from selection because an
	// agent could not score it; FailureReason records the cause for
	// audit.
	Failed        bool   `json:"failed,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// DriverKind names which signal dominated a pricing decision.
type DriverKind string

const (
	DriverPolicy     DriverKind = "policy"
	DriverModel      DriverKind = "model"
	DriverElasticity DriverKind = "elasticity"
)

// Rationale is the fixed-shape explanation handed to presentation
// layers. Its field set is a stable external contract.
type Rationale struct {
	DecisionID      uint64          `json:"decision_id"`
	ChosenPrice     float64         `json:"chosen_price"`
	DominantDriver  DriverKind      `json:"dominant_driver"`
	TopFeatures     []FeatureWeight `json:"top_features"`
	DemandChangePct float64         `json:"demand_change_pct"`
	WinProbability  float64         `json:"win_probability"`
	PolicyVersion   string          `json:"policy_version"`
	Summary         string          `json:"summary"`
}

// DecisionRecord is the audit artifact for one pricing decision: the
// selected candidate, the full scored set, and the policy context in
// effect at decision time.
type DecisionRecord struct {
	DecisionID    uint64       `json:"decision_id"`
	CreatedAt     time.Time    `json:"created_at"`
	Quote         QuoteContext `json:"quote"`
	PolicyVersion string       `json:"policy_version"`

	FloorPrice       float64 `json:"floor_price"`
	CeilingPrice     float64 `json:"ceiling_price"`
	RequiresApproval bool    `json:"requires_approval"`
	AppliedTier      string  `json:"applied_tier,omitempty"`
	TierDiscountPct  float64 `json:"tier_discount_pct,omitempty"`

	// NoAdmissiblePrice is set when floor exceeds ceiling; the
	// candidate set is empty and Selected is nil. The condition is
	// recorded, never thrown.
	NoAdmissiblePrice bool `json:"no_admissible_price,omitempty"`

	Candidates []PriceCandidate `json:"candidates"`
	Selected   *PriceCandidate  `json:"selected,omitempty"`
}

// CurvePoint is one sample of the win-probability curve across the
// admissible price interval.
type CurvePoint struct {
	Price          float64 `json:"price"`
	WinProbability float64 `json:"win_probability"`
}

// PriceAssessment scores a caller-proposed price against policy and the
// predictive agents.
type PriceAssessment struct {
	Price         float64        `json:"price"`
	Band          ApprovalBand   `json:"approval_band"`
	Candidate     PriceCandidate `json:"candidate"`
	FloorPrice    float64        `json:"floor_price"`
	CeilingPrice  float64        `json:"ceiling_price"`
	PolicyVersion string         `json:"policy_version"`
}
