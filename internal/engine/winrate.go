package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/dealdesk/pricing-engine/internal/model"
	"github.com/dealdesk/pricing-engine/internal/models"
)

// PriceRangeSource reports the observed historical closing-price range
// for a product family and segment.
type PriceRangeSource interface {
	PriceRange(productFamily, segment string) (low, high float64, ok bool)
}

// WinRateAgent wraps the external win-probability model: it assembles
// the feature vector, normalises the model's outputs into [0,1], and
// penalises confidence for prices outside the observed historical
// range, so callers can rely on lower confidence when extrapolating.
type WinRateAgent struct {
	model             model.WinRateModel
	history           PriceRangeSource
	defaultConfidence float64
	logger            *slog.Logger
}

// NewWinRateAgent constructs a WinRateAgent. The model is an injected
// dependency and must be safe for concurrent reads; history may be nil
// when no outcome aggregates exist.
func NewWinRateAgent(winModel model.WinRateModel, history PriceRangeSource, defaultConfidence float64, logger *slog.Logger) *WinRateAgent {
	if defaultConfidence <= 0 || defaultConfidence > 1 {
		defaultConfidence = 0.6
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WinRateAgent{
		model:             winModel,
		history:           history,
		defaultConfidence: defaultConfidence,
		logger:            logger,
	}
}

// Name identifies the agent in failure markers.
func (a *WinRateAgent) Name() string { return "winrate" }

// Score predicts the win probability for the candidate price.
func (a *WinRateAgent) Score(ctx context.Context, quote models.QuoteContext, price float64) (ScoreResult, error) {
	if a.model == nil {
		return ScoreResult{}, fmt.Errorf("win-rate model not configured")
	}

	features := assembleFeatures(quote, price)
	pred, err := a.model.Predict(ctx, features)
	if err != nil {
		return ScoreResult{}, fmt.Errorf("predict: %w", err)
	}

	probability := clamp01(pred.Probability)
	confidence := pred.Confidence
	if confidence <= 0 {
		confidence = a.defaultConfidence
	}
	confidence = clamp01(confidence)
	confidence = a.applyExtrapolationPenalty(quote, price, confidence)

	attribution := append([]models.FeatureWeight(nil), pred.Attribution...)
	sort.SliceStable(attribution, func(i, j int) bool {
		return math.Abs(attribution[i].Weight) > math.Abs(attribution[j].Weight)
	})

	return ScoreResult{Win: &WinScore{
		Probability: probability,
		Confidence:  confidence,
		Attribution: attribution,
	}}, nil
}

// applyExtrapolationPenalty shrinks confidence as the candidate price
// moves further outside the observed closing-price range. The factor
// is monotonically non-increasing in the distance from the range.
func (a *WinRateAgent) applyExtrapolationPenalty(quote models.QuoteContext, price, confidence float64) float64 {
	if a.history == nil {
		return confidence
	}
	low, high, ok := a.history.PriceRange(quote.ProductFamily, quote.Segment)
	if !ok {
		return confidence
	}

	var distance float64
	switch {
	case price < low:
		distance = low - price
	case price > high:
		distance = price - high
	default:
		return confidence
	}

	width := high - low
	if width <= 0 {
		width = math.Max(low, 1)
	}
	return confidence / (1 + distance/width)
}

func assembleFeatures(quote models.QuoteContext, price float64) model.Features {
	features := model.Features{
		Price:     price,
		ListPrice: quote.ListPrice,
		Quantity:  quote.Quantity,
		Country:   quote.Country,
		Channel:   quote.Channel,
		Segment:   quote.Segment,
	}
	if quote.ListPrice > 0 {
		features.DiscountFromList = math.Max(0, (quote.ListPrice-price)/quote.ListPrice)
	}
	if quote.Cost > 0 {
		features.MarginRatio = (price - quote.Cost) / quote.Cost
	}
	if quote.HasCompetitorPrice() {
		features.CompetitorPrice = quote.CompetitorPrice
		features.PriceVsCompetitor = price / quote.CompetitorPrice
	}
	return features
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
