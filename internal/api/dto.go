package api

import (
	"fmt"

	"github.com/dealdesk/pricing-engine/internal/models"
	"github.com/dealdesk/pricing-engine/internal/utils"
)

// QuoteIn is the quote context shared by the recommend, score, and
// win-curve requests.
type QuoteIn struct {
	ProductID       string  `json:"product_id"`
	ProductFamily   string  `json:"product_family"`
	CustomerID      string  `json:"customer_id"`
	Segment         string  `json:"segment"`
	Quantity        int     `json:"quantity"`
	Country         string  `json:"country"`
	Channel         string  `json:"channel"`
	Currency        string  `json:"currency"`
	Cost            float64 `json:"cost"`
	ListPrice       float64 `json:"list_price"`
	CompetitorPrice float64 `json:"competitor_price,omitempty"`
}

func (q QuoteIn) validate() error {
	if q.ProductID == "" {
		return fmt.Errorf("product_id is required")
	}
	if q.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", q.Quantity)
	}
	if q.Cost <= 0 {
		return fmt.Errorf("cost must be positive, got %.2f", q.Cost)
	}
	if q.ListPrice <= 0 {
		return fmt.Errorf("list_price must be positive, got %.2f", q.ListPrice)
	}
	return nil
}

func (q QuoteIn) toQuoteContext() models.QuoteContext {
	return models.QuoteContext{
		ProductID:       q.ProductID,
		ProductFamily:   q.ProductFamily,
		CustomerID:      q.CustomerID,
		Segment:         q.Segment,
		Quantity:        q.Quantity,
		Country:         q.Country,
		Channel:         q.Channel,
		Currency:        q.Currency,
		Cost:            q.Cost,
		ListPrice:       q.ListPrice,
		CompetitorPrice: q.CompetitorPrice,
	}
}

// RecommendOut is the recommend response body.
type RecommendOut struct {
	DecisionID        uint64                  `json:"decision_id"`
	PolicyVersion     string                  `json:"policy_version"`
	Floor             float64                 `json:"floor"`
	Ceiling           float64                 `json:"ceiling"`
	Target            float64                 `json:"target"`
	WinProbability    float64                 `json:"win_probability"`
	ExpectedMargin    float64                 `json:"expected_margin"`
	RequiresApproval  bool                    `json:"requires_approval"`
	NoAdmissiblePrice bool                    `json:"no_admissible_price,omitempty"`
	Rationale         models.Rationale        `json:"rationale"`
	Candidates        []models.PriceCandidate `json:"candidates"`
}

func toRecommendOut(record models.DecisionRecord, rationale models.Rationale) RecommendOut {
	out := RecommendOut{
		DecisionID:        record.DecisionID,
		PolicyVersion:     record.PolicyVersion,
		Floor:             record.FloorPrice,
		Ceiling:           record.CeilingPrice,
		RequiresApproval:  record.RequiresApproval,
		NoAdmissiblePrice: record.NoAdmissiblePrice,
		Rationale:         rationale,
		Candidates:        record.Candidates,
	}
	if record.Selected != nil {
		out.Target = record.Selected.Price
		out.WinProbability = record.Selected.WinProbability
		out.ExpectedMargin = record.Selected.ExpectedMargin
	}
	return out
}

// ScoreIn asks for an assessment of one proposed price.
type ScoreIn struct {
	QuoteIn
	ProposedPrice float64 `json:"proposed_price"`
}

// ScoreOut is the score response body.
type ScoreOut struct {
	WinProbability float64             `json:"win_probability"`
	ExpectedMargin float64             `json:"expected_margin"`
	ApprovalBand   models.ApprovalBand `json:"approval_band"`
	Floor          float64             `json:"floor"`
	Ceiling        float64             `json:"ceiling"`
	PolicyVersion  string              `json:"policy_version"`
}

func toScoreOut(assessment models.PriceAssessment) ScoreOut {
	return ScoreOut{
		WinProbability: assessment.Candidate.WinProbability,
		ExpectedMargin: assessment.Candidate.ExpectedMargin,
		ApprovalBand:   assessment.Band,
		Floor:          assessment.FloorPrice,
		Ceiling:        assessment.CeilingPrice,
		PolicyVersion:  assessment.PolicyVersion,
	}
}

// CurveOut is the win-curve response body.
type CurveOut struct {
	Curve []models.CurvePoint `json:"curve"`
}

// OutcomeIn reports a closed quote.
type OutcomeIn struct {
	ProductFamily string  `json:"product_family"`
	Segment       string  `json:"segment"`
	FinalPrice    float64 `json:"final_price"`
	Quantity      int     `json:"quantity"`
	Won           bool    `json:"won"`
	ClosedAt      string  `json:"closed_at"`
}

func (o OutcomeIn) toOutcome() (models.QuoteOutcome, error) {
	if o.ProductFamily == "" {
		return models.QuoteOutcome{}, fmt.Errorf("product_family is required")
	}
	if o.FinalPrice <= 0 {
		return models.QuoteOutcome{}, fmt.Errorf("final_price must be positive, got %.2f", o.FinalPrice)
	}
	closedAt, err := utils.ParseRFC3339(o.ClosedAt)
	if err != nil {
		return models.QuoteOutcome{}, fmt.Errorf("closed_at: %w", err)
	}
	return models.QuoteOutcome{
		ProductFamily: o.ProductFamily,
		Segment:       o.Segment,
		FinalPrice:    o.FinalPrice,
		Quantity:      o.Quantity,
		Won:           o.Won,
		ClosedAt:      closedAt,
	}, nil
}
