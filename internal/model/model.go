package model

import (
	"context"

	"github.com/dealdesk/pricing-engine/internal/models"
)

// Features is the assembled input vector for one win-probability
// prediction. Field names double as attribution labels.
type Features struct {
	Price            float64 `json:"price"`
	ListPrice        float64 `json:"list_price"`
	DiscountFromList float64 `json:"discount_from_list"`
	MarginRatio      float64 `json:"margin_ratio"`
	Quantity         int     `json:"quantity"`
	Country          string  `json:"country"`
	Channel          string  `json:"channel"`
	Segment          string  `json:"segment"`
	// CompetitorPrice and PriceVsCompetitor are zero when no
	// competitor signal was supplied with the quote.
	CompetitorPrice   float64 `json:"competitor_price,omitempty"`
	PriceVsCompetitor float64 `json:"price_vs_competitor,omitempty"`
}

// Prediction is one model response. Confidence may be zero when the
// model has no internal agreement measure; callers substitute a
// calibration constant.
type Prediction struct {
	Probability float64
	Confidence  float64
	Attribution []models.FeatureWeight
}

// WinRateModel is the external scoring capability consumed by the
// engine. Implementations must be safe for concurrent use and must
// return the same probability for the same feature vector within one
// model load.
type WinRateModel interface {
	Predict(ctx context.Context, features Features) (Prediction, error)
}
