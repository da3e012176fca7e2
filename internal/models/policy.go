package models

// VolumeTier maps a minimum order quantity to a discount percentage off
// the ceiling price. Tiers are ordered ascending by MinQuantity and
// matched by greatest lower bound.
type VolumeTier struct {
	Name        string  `yaml:"name"`
	MinQuantity int     `yaml:"min_quantity"`
	DiscountPct float64 `yaml:"discount_pct"`
}

// PolicyRule is the versioned pricing policy for one product family and
// customer segment. It is read-only configuration during a decision.
type PolicyRule struct {
	Version       string `yaml:"-"`
	ProductFamily string `yaml:"family"`
	Segment       string `yaml:"segment"`

	// FloorRatio scales cost into the lowest admissible price; the
	// binding floor is max(Cost*FloorRatio, MinMarginFloor).
	FloorRatio     float64 `yaml:"floor_ratio"`
	MinMarginFloor float64 `yaml:"min_margin_floor"`

	// CeilingRatio scales list price into the highest admissible price
	// before volume tiering.
	CeilingRatio float64 `yaml:"ceiling_ratio"`

	// ApprovalThreshold is the price above which a quote needs human
	// sign-off. Zero disables the threshold.
	ApprovalThreshold float64 `yaml:"approval_threshold"`

	VolumeTiers []VolumeTier `yaml:"volume_tiers"`
}

// TierFor returns the volume tier matching quantity, chosen as the tier
// with the greatest MinQuantity not exceeding quantity. The second
// return is false when no tier matches (the no-discount default).
func (p PolicyRule) TierFor(quantity int) (VolumeTier, bool) {
	var matched VolumeTier
	found := false
	for _, tier := range p.VolumeTiers {
		if tier.MinQuantity > quantity {
			continue
		}
		if !found || tier.MinQuantity > matched.MinQuantity {
			matched = tier
			found = true
		}
	}
	return matched, found
}

// ApprovalBand classifies a proposed price against policy.
type ApprovalBand string

const (
	BandApproved ApprovalBand = "approved"
	BandReview   ApprovalBand = "review"
	BandReject   ApprovalBand = "reject"
)
