package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dealdesk/pricing-engine/internal/models"
)

// ElasticityCoefficient holds the constant-elasticity parameters for
// one customer segment and region. Elasticity is negative for normal
// goods; more negative means more price-sensitive.
type ElasticityCoefficient struct {
	Segment          string  `yaml:"segment"`
	Region           string  `yaml:"region"`
	Elasticity       float64 `yaml:"elasticity"`
	VolumeAdjustment float64 `yaml:"volume_adjustment"`
}

// elasticityTableFile is the YAML root of a coefficient table.
type elasticityTableFile struct {
	Defaults     ElasticityCoefficient   `yaml:"defaults"`
	Coefficients []ElasticityCoefficient `yaml:"coefficients"`
}

// ElasticityAgent projects the demand and revenue impact of a
// candidate price relative to the quote's list price, using a
// constant-elasticity demand curve: demand = (price/reference)^e.
type ElasticityAgent struct {
	defaults     ElasticityCoefficient
	coefficients map[string]ElasticityCoefficient
	logger       *slog.Logger
}

// NewElasticityAgent loads the coefficient table from path. An empty
// path yields an agent with built-in defaults only.
func NewElasticityAgent(path string, logger *slog.Logger) (*ElasticityAgent, error) {
	if logger == nil {
		logger = slog.Default()
	}

	agent := &ElasticityAgent{
		defaults:     ElasticityCoefficient{Elasticity: -1.5, VolumeAdjustment: 0.08},
		coefficients: make(map[string]ElasticityCoefficient),
		logger:       logger,
	}
	if path == "" {
		return agent, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("elasticity table not found, using defaults", slog.String("path", path))
			return agent, nil
		}
		return nil, fmt.Errorf("read elasticity table: %w", err)
	}

	var table elasticityTableFile
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse elasticity table: %w", err)
	}

	if table.Defaults.Elasticity != 0 {
		if table.Defaults.Elasticity >= 0 {
			return nil, fmt.Errorf("defaults: elasticity must be negative, got %.2f", table.Defaults.Elasticity)
		}
		agent.defaults = table.Defaults
	}
	for _, coef := range table.Coefficients {
		if coef.Elasticity >= 0 {
			return nil, fmt.Errorf("coefficient %s/%s: elasticity must be negative, got %.2f", coef.Segment, coef.Region, coef.Elasticity)
		}
		agent.coefficients[coefKey(coef.Segment, coef.Region)] = coef
	}

	logger.Info("elasticity table loaded", slog.String("path", path), slog.Int("coefficients", len(table.Coefficients)))
	return agent, nil
}

// Name identifies the agent in failure markers.
func (a *ElasticityAgent) Name() string { return "elasticity" }

// Score evaluates the candidate price against the quote's list price
// as the reference. It fails with ErrInvalidElasticityInput when the
// reference price is not positive; the failure is scoped to the
// candidate being scored.
func (a *ElasticityAgent) Score(_ context.Context, quote models.QuoteContext, price float64) (ScoreResult, error) {
	reference := quote.ListPrice
	if reference <= 0 {
		return ScoreResult{}, fmt.Errorf("%w: reference price %.2f", ErrInvalidElasticityInput, reference)
	}

	elasticity := a.coefficientFor(quote)

	// Exact degenerate case: scoring the reference price itself.
	if price == reference {
		return ScoreResult{Demand: &DemandScore{
			Elasticity:       elasticity,
			DemandMultiplier: 1,
			RevenueDelta:     0,
		}}, nil
	}

	multiplier := math.Pow(price/reference, elasticity)
	delta := price*multiplier - reference

	return ScoreResult{Demand: &DemandScore{
		Elasticity:       elasticity,
		DemandMultiplier: multiplier,
		RevenueDelta:     delta,
	}}, nil
}

// coefficientFor resolves the segment/region coefficient, adjusted for
// order volume: larger orders are less price-sensitive.
func (a *ElasticityAgent) coefficientFor(quote models.QuoteContext) float64 {
	coef, ok := a.coefficients[coefKey(quote.Segment, quote.Country)]
	if !ok {
		coef = a.defaults
	}

	volumeFactor := math.Min(1, float64(quote.Quantity)/20.0)
	return coef.Elasticity * (1 - volumeFactor*coef.VolumeAdjustment)
}

func coefKey(segment, region string) string {
	return strings.ToLower(segment) + "|" + strings.ToLower(region)
}
