package model

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func TestLogisticAnchoredAtCompetitorPrice(t *testing.T) {
	m := NewLogisticModel()

	// At the anchor the raw logistic is exactly 0.5; no channel or
	// region adjustment applies here.
	pred, err := m.Predict(context.Background(), Features{Price: 95, CompetitorPrice: 95, ListPrice: 100})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(pred.Probability-0.5) > 1e-9 {
		t.Fatalf("expected 0.5 at the anchor, got %.4f", pred.Probability)
	}
}

func TestLogisticFallsBackToListPrice(t *testing.T) {
	m := NewLogisticModel()

	pred, err := m.Predict(context.Background(), Features{Price: 100, ListPrice: 100})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(pred.Probability-0.5) > 1e-9 {
		t.Fatalf("expected list price anchor, got %.4f", pred.Probability)
	}
}

func TestLogisticMonotoneDecreasingInPrice(t *testing.T) {
	m := NewLogisticModel()

	prev := 1.0
	for _, price := range []float64{80, 90, 100, 110, 120} {
		pred, err := m.Predict(context.Background(), Features{Price: price, ListPrice: 100})
		if err != nil {
			t.Fatalf("predict at %.0f: %v", price, err)
		}
		if pred.Probability >= prev {
			t.Fatalf("win probability must fall as price rises: %.4f at %.0f not below %.4f", pred.Probability, price, prev)
		}
		prev = pred.Probability
	}
}

func TestLogisticChannelAndRegionAdjustments(t *testing.T) {
	m := NewLogisticModel()
	base := Features{Price: 100, ListPrice: 100}

	plain, err := m.Predict(context.Background(), base)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}

	direct := base
	direct.Channel = "direct"
	boosted, err := m.Predict(context.Background(), direct)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(boosted.Probability-(plain.Probability+0.2)) > 1e-9 {
		t.Fatalf("expected +0.2 direct channel boost, got %.4f vs %.4f", boosted.Probability, plain.Probability)
	}

	emea := direct
	emea.Country = "DE"
	regional, err := m.Predict(context.Background(), emea)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(regional.Probability-(plain.Probability+0.3)) > 1e-9 {
		t.Fatalf("expected +0.3 combined boost, got %.4f", regional.Probability)
	}
}

func TestLogisticClampsProbability(t *testing.T) {
	m := NewLogisticModel()

	// Far below the anchor plus boosts must clamp at 0.99.
	low := Features{Price: 10, ListPrice: 100, Channel: "direct", Country: "DE"}
	pred, err := m.Predict(context.Background(), low)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Probability != 0.99 {
		t.Fatalf("expected clamp at 0.99, got %.4f", pred.Probability)
	}

	// Far above the anchor must clamp at 0.01.
	high := Features{Price: 500, ListPrice: 100}
	pred, err = m.Predict(context.Background(), high)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Probability != 0.01 {
		t.Fatalf("expected clamp at 0.01, got %.4f", pred.Probability)
	}
}

func TestLogisticAttributionSortedAndDeterministic(t *testing.T) {
	m := NewLogisticModel()
	f := Features{
		Price:             105,
		ListPrice:         100,
		CompetitorPrice:   95,
		PriceVsCompetitor: 105.0 / 95.0,
		DiscountFromList:  0,
		Channel:           "partner",
		Quantity:          30,
	}

	first, err := m.Predict(context.Background(), f)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	for i := 1; i < len(first.Attribution); i++ {
		if math.Abs(first.Attribution[i].Weight) > math.Abs(first.Attribution[i-1].Weight) {
			t.Fatalf("attribution not sorted by magnitude: %v", first.Attribution)
		}
	}

	second, err := m.Predict(context.Background(), f)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical features must produce identical predictions")
	}
}

func TestLogisticReportsFixedConfidence(t *testing.T) {
	m := NewLogisticModel()
	pred, err := m.Predict(context.Background(), Features{Price: 100, ListPrice: 100})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Confidence != 0.6 {
		t.Fatalf("expected fixed confidence 0.6, got %.4f", pred.Confidence)
	}
}
