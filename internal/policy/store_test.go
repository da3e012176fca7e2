package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writePack(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	return path
}

const samplePack = `version: "2026.08"
defaults:
  floor_ratio: 0.70
  ceiling_ratio: 1.05
rules:
  - family: "analytics"
    segment: "enterprise"
    floor_ratio: 0.72
    min_margin_floor: 45.0
    ceiling_ratio: 1.08
    approval_threshold: 150.0
    volume_tiers:
      - name: "t1"
        min_quantity: 10
        discount_pct: 0.05
      - name: "t2"
        min_quantity: 50
        discount_pct: 0.10
  - family: "analytics"
    floor_ratio: 0.68
    ceiling_ratio: 1.02
`

func TestLoadAndLookup(t *testing.T) {
	store, err := Load(writePack(t, samplePack), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if store.Version() != "2026.08" {
		t.Fatalf("expected version 2026.08, got %q", store.Version())
	}

	rule, err := store.Lookup("analytics", "enterprise")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rule.FloorRatio != 0.72 || rule.CeilingRatio != 1.08 {
		t.Fatalf("unexpected rule: %+v", rule)
	}
	if rule.Version != "2026.08" {
		t.Fatalf("version must be stamped on the rule, got %q", rule.Version)
	}
	if len(rule.VolumeTiers) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(rule.VolumeTiers))
	}
}

func TestLookupFamilyFallback(t *testing.T) {
	store, err := Load(writePack(t, samplePack), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	rule, err := store.Lookup("analytics", "midmarket")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rule.FloorRatio != 0.68 {
		t.Fatalf("expected the family-wide rule, got %+v", rule)
	}
}

func TestLookupDefaultsFallback(t *testing.T) {
	store, err := Load(writePack(t, samplePack), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	rule, err := store.Lookup("storage", "enterprise")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rule.FloorRatio != 0.70 || rule.CeilingRatio != 1.05 {
		t.Fatalf("expected pack defaults, got %+v", rule)
	}
	if rule.Version != "2026.08" {
		t.Fatalf("defaults must carry the pack version, got %q", rule.Version)
	}
}

func TestLookupCaseInsensitive(t *testing.T) {
	store, err := Load(writePack(t, samplePack), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	rule, err := store.Lookup("Analytics", "Enterprise")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rule.FloorRatio != 0.72 {
		t.Fatalf("expected case-insensitive match, got %+v", rule)
	}
}

func TestLookupNoMatchNoDefaults(t *testing.T) {
	store, err := Load(writePack(t, `version: "1"
rules:
  - family: "analytics"
    floor_ratio: 0.7
    ceiling_ratio: 1.05
`), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := store.Lookup("networking", "smb"); !errors.Is(err, ErrNoPolicy) {
		t.Fatalf("expected ErrNoPolicy, got %v", err)
	}
}

func TestLoadRejectsMissingVersion(t *testing.T) {
	if _, err := Load(writePack(t, "rules: []"), nil); err == nil {
		t.Fatal("expected error for a pack without a version")
	}
}

func TestLoadValidatesRules(t *testing.T) {
	cases := []struct {
		name string
		pack string
	}{
		{
			name: "floor ratio above one",
			pack: `version: "1"
rules:
  - family: "a"
    floor_ratio: 1.5
    ceiling_ratio: 1.05
`,
		},
		{
			name: "ceiling ratio below one",
			pack: `version: "1"
rules:
  - family: "a"
    floor_ratio: 0.7
    ceiling_ratio: 0.9
`,
		},
		{
			name: "overlapping tiers",
			pack: `version: "1"
rules:
  - family: "a"
    floor_ratio: 0.7
    ceiling_ratio: 1.05
    volume_tiers:
      - name: "t1"
        min_quantity: 50
        discount_pct: 0.05
      - name: "t2"
        min_quantity: 10
        discount_pct: 0.10
`,
		},
		{
			name: "discount at one",
			pack: `version: "1"
rules:
  - family: "a"
    floor_ratio: 0.7
    ceiling_ratio: 1.05
    volume_tiers:
      - name: "t1"
        min_quantity: 10
        discount_pct: 1.0
`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writePack(t, tc.pack), nil); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Fatal("expected error for a missing pack")
	}
}
