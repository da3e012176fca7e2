package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("expected default address :8080, got %q", cfg.Server.Address)
	}
	if cfg.Engine.CandidateCount != 5 {
		t.Fatalf("expected 5 candidates by default, got %d", cfg.Engine.CandidateCount)
	}
	if cfg.Engine.TieEpsilon != 1e-6 {
		t.Fatalf("expected tie epsilon 1e-6, got %g", cfg.Engine.TieEpsilon)
	}
	if cfg.Model.PredictPath != "/api/v1/predict" {
		t.Fatalf("expected default predict path, got %q", cfg.Model.PredictPath)
	}
	if cfg.Cache.Enabled {
		t.Fatal("cache must be disabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  address: ":9090"
engine:
  candidateCount: 9
  scoringConcurrency: 2
logging:
  level: "debug"
  json: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("expected :9090, got %q", cfg.Server.Address)
	}
	if cfg.Engine.CandidateCount != 9 {
		t.Fatalf("expected 9 candidates, got %d", cfg.Engine.CandidateCount)
	}
	if cfg.Engine.ScoringConcurrency != 2 {
		t.Fatalf("expected concurrency 2, got %d", cfg.Engine.ScoringConcurrency)
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	// Untouched sections keep their defaults.
	if cfg.Engine.TieEpsilon != 1e-6 {
		t.Fatalf("expected default tie epsilon, got %g", cfg.Engine.TieEpsilon)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for a missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PRICING_SERVER_ADDRESS", ":7070")
	t.Setenv("PRICING_CANDIDATE_COUNT", "7")
	t.Setenv("PRICING_SCORE_TIMEOUT", "500ms")
	t.Setenv("PRICING_LOG_FORMAT", "json")
	t.Setenv("PRICING_CACHE_ENABLED", "true")
	t.Setenv("PRICING_CACHE_ADDR", "valkey:6379")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("expected env address, got %q", cfg.Server.Address)
	}
	if cfg.Engine.CandidateCount != 7 {
		t.Fatalf("expected env candidate count, got %d", cfg.Engine.CandidateCount)
	}
	if cfg.Engine.ScoreTimeout.String() != "500ms" {
		t.Fatalf("expected 500ms timeout, got %s", cfg.Engine.ScoreTimeout)
	}
	if !cfg.Logging.JSON {
		t.Fatal("expected json logging from env")
	}
	if !cfg.Cache.Enabled || cfg.Cache.Addr != "valkey:6379" {
		t.Fatalf("unexpected cache config: %+v", cfg.Cache)
	}
}

func TestValidateRejectsBadEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  candidateCount: 0\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for zero candidates")
	}
}
