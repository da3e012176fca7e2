package engine

import "errors"

var (
	// ErrNoScorableCandidates is the engine's only terminal failure:
	// every generated candidate failed to score, so no recommendation
	// can be made. All other abnormal conditions are recorded inside
	// the returned DecisionRecord.
	ErrNoScorableCandidates = errors.New("no scorable candidates")

	// ErrInvalidElasticityInput marks a non-positive reference price.
	// It is scoped to the failing candidate, never the whole decision.
	ErrInvalidElasticityInput = errors.New("invalid elasticity input")

	// ErrCandidateScoring wraps a single-candidate scoring failure
	// surfaced by operations that score exactly one price.
	ErrCandidateScoring = errors.New("candidate scoring failed")
)
