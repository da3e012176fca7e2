package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	// Registering twice must tolerate AlreadyRegisteredError.
	if err := Register(reg); err != nil {
		t.Fatalf("re-register: %v", err)
	}
}

func TestObserveDecisionNormalisesOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	ObserveDecision(25*time.Millisecond, OutcomeSuccess)
	ObserveDecision(25*time.Millisecond, OutcomeNoPrice)
	ObserveDecision(25*time.Millisecond, OutcomeError)
	// Unknown labels collapse to success instead of growing the series.
	ObserveDecision(25*time.Millisecond, "surprise")
	// Negative durations clamp to zero.
	ObserveDecision(-time.Second, OutcomeSuccess)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "pricing_engine_decisions_total" {
			if len(mf.GetMetric()) != 3 {
				t.Fatalf("expected 3 outcome labels, got %d", len(mf.GetMetric()))
			}
			return
		}
	}
	t.Fatal("decisions counter not gathered")
}

func TestObserveCandidates(t *testing.T) {
	ObserveCandidates(5, 1)
	ObserveCandidates(0, 0)
	ObserveCandidates(-3, -1)
}
