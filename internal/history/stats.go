package history

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dealdesk/pricing-engine/internal/models"
)

// Stats aggregates reported quote outcomes per product family and
// segment. The observed price ranges feed the win-rate agent's
// extrapolation penalty; the win-rate summaries are operator-facing.
// Aggregates live in memory only; durable outcome storage is an
// external collaborator's responsibility.
type Stats struct {
	mu     sync.RWMutex
	groups map[string]*aggregate
	logger *slog.Logger
}

type aggregate struct {
	family   string
	segment  string
	quotes   int
	won      int
	minPrice float64
	maxPrice float64
	lastSeen time.Time
}

// NewStats constructs an empty outcome aggregator.
func NewStats(logger *slog.Logger) *Stats {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stats{groups: make(map[string]*aggregate), logger: logger}
}

// Record folds one closed quote into the aggregates. Outcomes with a
// non-positive final price are ignored; they carry no price signal.
func (s *Stats) Record(outcome models.QuoteOutcome) {
	if outcome.FinalPrice <= 0 {
		s.logger.Warn("ignoring outcome with non-positive price",
			slog.String("family", outcome.ProductFamily),
			slog.Float64("price", outcome.FinalPrice))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := groupKey(outcome.ProductFamily, outcome.Segment)
	agg, ok := s.groups[key]
	if !ok {
		agg = &aggregate{
			family:   outcome.ProductFamily,
			segment:  outcome.Segment,
			minPrice: outcome.FinalPrice,
			maxPrice: outcome.FinalPrice,
		}
		s.groups[key] = agg
	}

	agg.quotes++
	if outcome.Won {
		agg.won++
	}
	if outcome.FinalPrice < agg.minPrice {
		agg.minPrice = outcome.FinalPrice
	}
	if outcome.FinalPrice > agg.maxPrice {
		agg.maxPrice = outcome.FinalPrice
	}
	if outcome.ClosedAt.After(agg.lastSeen) {
		agg.lastSeen = outcome.ClosedAt
	}
}

// PriceRange returns the observed [min, max] closing price for the
// group; ok is false when no outcome has been recorded for it.
func (s *Stats) PriceRange(productFamily, segment string) (low, high float64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg, found := s.groups[groupKey(productFamily, segment)]
	if !found || agg.quotes == 0 {
		return 0, 0, false
	}
	return agg.minPrice, agg.maxPrice, true
}

// Summaries returns per-group outcome summaries sorted by quote volume
// descending, then by family/segment for stable ordering.
func (s *Stats) Summaries() []models.OutcomeSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]models.OutcomeSummary, 0, len(s.groups))
	for _, agg := range s.groups {
		summary := models.OutcomeSummary{
			ProductFamily: agg.family,
			Segment:       agg.segment,
			Quotes:        agg.quotes,
			Won:           agg.won,
			MinPrice:      agg.minPrice,
			MaxPrice:      agg.maxPrice,
			LastClosed:    agg.lastSeen,
		}
		if agg.quotes > 0 {
			summary.WinRate = float64(agg.won) / float64(agg.quotes)
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Quotes != summaries[j].Quotes {
			return summaries[i].Quotes > summaries[j].Quotes
		}
		if summaries[i].ProductFamily != summaries[j].ProductFamily {
			return summaries[i].ProductFamily < summaries[j].ProductFamily
		}
		return summaries[i].Segment < summaries[j].Segment
	})
	return summaries
}

func groupKey(productFamily, segment string) string {
	return strings.ToLower(productFamily) + "|" + strings.ToLower(segment)
}
