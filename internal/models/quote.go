package models

// QuoteContext is the immutable per-request input to a pricing decision.
// It is created by the caller and never mutated by the engine.
type QuoteContext struct {
	ProductID     string
	ProductFamily string
	CustomerID    string
	Segment       string
	Quantity      int
	Country       string
	Channel       string
	Currency      string

	// Cost is the reference unit cost and ListPrice the reference list
	// price for the quoted product. Both are supplied by the caller;
	// the engine performs no catalog lookups.
	Cost      float64
	ListPrice float64

	// CompetitorPrice is optional; zero means no competitor signal.
	CompetitorPrice float64
}

// HasCompetitorPrice reports whether a competitor signal was supplied.
func (q QuoteContext) HasCompetitorPrice() bool {
	return q.CompetitorPrice > 0
}

// FeatureWeight is a single feature-attribution entry from the
// win-probability model, used only for explanation.
type FeatureWeight struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}
