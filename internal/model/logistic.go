package model

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/dealdesk/pricing-engine/internal/models"
)

// LogisticModel is the in-process reference win-probability model: a
// logistic curve anchored on the competitor price (or list price when
// no competitor signal exists) with channel and region adjustments.
// It is deterministic and safe for concurrent use.
type LogisticModel struct {
	// Steepness scales the logistic slope relative to the anchor
	// price; higher values make win probability drop faster above the
	// anchor.
	Steepness float64
	// Confidence is the fixed calibration constant reported with
	// every prediction.
	Confidence float64
}

// NewLogisticModel returns a LogisticModel with standard calibration.
func NewLogisticModel() *LogisticModel {
	return &LogisticModel{Steepness: 0.2, Confidence: 0.6}
}

// Predict computes the win probability for the assembled features.
func (m *LogisticModel) Predict(_ context.Context, f Features) (Prediction, error) {
	anchor := f.CompetitorPrice
	if anchor <= 0 {
		anchor = f.ListPrice
	}
	if anchor <= 0 {
		anchor = f.Price
	}

	steepness := m.Steepness
	if steepness <= 0 {
		steepness = 0.2
	}

	p := 1.0 / (1.0 + math.Exp((f.Price-anchor)/(steepness*anchor)))

	adj := 0.0
	if strings.EqualFold(f.Channel, "direct") {
		adj += 0.2
	}
	if isEMEA(f.Country) {
		adj += 0.1
	}
	p = clampProbability(p + adj)

	attribution := []models.FeatureWeight{
		{Feature: "price_vs_anchor", Weight: -(f.Price - anchor) / anchor},
		{Feature: "discount_from_list", Weight: f.DiscountFromList},
		{Feature: "channel", Weight: channelWeight(f.Channel)},
		{Feature: "quantity", Weight: math.Min(float64(f.Quantity)/100.0, 0.5)},
	}
	if f.PriceVsCompetitor > 0 {
		attribution = append(attribution, models.FeatureWeight{
			Feature: "price_vs_competitor",
			Weight:  1.0 - f.PriceVsCompetitor,
		})
	}
	sort.SliceStable(attribution, func(i, j int) bool {
		return math.Abs(attribution[i].Weight) > math.Abs(attribution[j].Weight)
	})

	return Prediction{
		Probability: p,
		Confidence:  m.Confidence,
		Attribution: attribution,
	}, nil
}

func channelWeight(channel string) float64 {
	if strings.EqualFold(channel, "direct") {
		return 0.2
	}
	return -0.05
}

func isEMEA(country string) bool {
	switch strings.ToUpper(country) {
	case "DE", "FR", "GB", "UK", "IT", "ES", "NL", "EMEA":
		return true
	}
	return false
}

func clampProbability(p float64) float64 {
	if p < 0.01 {
		return 0.01
	}
	if p > 0.99 {
		return 0.99
	}
	return p
}
