package policy

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dealdesk/pricing-engine/internal/models"
)

// Source supplies the policy rule in effect for a product family and
// customer segment, with the pack version stamped on each rule so that
// decisions are reproducible against it. The engine never writes to a
// Source.
type Source interface {
	Lookup(productFamily, segment string) (models.PolicyRule, error)
	Version() string
}

// ErrNoPolicy signals that neither a specific rule nor a pack default
// matched the lookup key.
var ErrNoPolicy = errors.New("no policy rule for key")

// packFile is the YAML root structure of a policy pack.
type packFile struct {
	Version  string              `yaml:"version"`
	Defaults *models.PolicyRule  `yaml:"defaults"`
	Rules    []models.PolicyRule `yaml:"rules"`
}

// Store is an in-memory, read-only view of one loaded policy pack.
type Store struct {
	mu       sync.RWMutex
	version  string
	defaults *models.PolicyRule
	rules    map[string]models.PolicyRule
	logger   *slog.Logger
}

// Load reads a policy pack from the provided YAML path.
func Load(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy pack: %w", err)
	}

	var pack packFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse policy pack: %w", err)
	}
	if pack.Version == "" {
		return nil, fmt.Errorf("policy pack %s has no version", path)
	}

	store := &Store{
		version:  pack.Version,
		defaults: pack.Defaults,
		rules:    make(map[string]models.PolicyRule, len(pack.Rules)),
		logger:   logger,
	}
	for _, rule := range pack.Rules {
		if err := validateRule(rule); err != nil {
			return nil, fmt.Errorf("policy rule %s/%s: %w", rule.ProductFamily, rule.Segment, err)
		}
		store.rules[ruleKey(rule.ProductFamily, rule.Segment)] = rule
	}
	if pack.Defaults != nil {
		if err := validateRule(*pack.Defaults); err != nil {
			return nil, fmt.Errorf("policy defaults: %w", err)
		}
	}

	logger.Info("policy pack loaded",
		slog.String("path", path),
		slog.String("version", pack.Version),
		slog.Int("rules", len(pack.Rules)))
	return store, nil
}

// Lookup returns the rule for (productFamily, segment), falling back to
// the pack defaults when no specific rule exists.
func (s *Store) Lookup(productFamily, segment string) (models.PolicyRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rule, ok := s.rules[ruleKey(productFamily, segment)]; ok {
		rule.Version = s.version
		return rule, nil
	}
	// Family-wide rule with no segment restriction.
	if rule, ok := s.rules[ruleKey(productFamily, "")]; ok {
		rule.Version = s.version
		return rule, nil
	}
	if s.defaults != nil {
		rule := *s.defaults
		rule.Version = s.version
		return rule, nil
	}
	return models.PolicyRule{}, fmt.Errorf("%w: %s/%s", ErrNoPolicy, productFamily, segment)
}

// Version returns the loaded pack version.
func (s *Store) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func validateRule(rule models.PolicyRule) error {
	if rule.FloorRatio < 0 || rule.FloorRatio > 1 {
		return fmt.Errorf("floor_ratio %.3f outside [0,1]", rule.FloorRatio)
	}
	if rule.CeilingRatio < 1 {
		return fmt.Errorf("ceiling_ratio %.3f must be >= 1", rule.CeilingRatio)
	}
	if rule.MinMarginFloor < 0 {
		return fmt.Errorf("min_margin_floor must be >= 0")
	}
	for i, tier := range rule.VolumeTiers {
		if tier.MinQuantity < 0 {
			return fmt.Errorf("tier %d: min_quantity must be >= 0", i)
		}
		if tier.DiscountPct < 0 || tier.DiscountPct >= 1 {
			return fmt.Errorf("tier %d: discount_pct %.3f outside [0,1)", i, tier.DiscountPct)
		}
		if i > 0 && tier.MinQuantity <= rule.VolumeTiers[i-1].MinQuantity {
			return fmt.Errorf("tier %d: quantity bands must be ascending and non-overlapping", i)
		}
	}
	return nil
}

func ruleKey(productFamily, segment string) string {
	return strings.ToLower(productFamily) + "|" + strings.ToLower(segment)
}
