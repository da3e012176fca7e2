package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the pricing engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Engine     EngineConfig     `yaml:"engine"`
	Policy     PolicyConfig     `yaml:"policy"`
	Elasticity ElasticityConfig `yaml:"elasticity"`
	Model      ModelConfig      `yaml:"model"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// EngineConfig tunes candidate generation and selection.
type EngineConfig struct {
	// CandidateCount is the number of equally spaced prices sampled
	// between floor and ceiling, inclusive.
	CandidateCount int `yaml:"candidateCount"`
	// TieEpsilon bounds expected-margin comparisons treated as ties.
	TieEpsilon float64 `yaml:"tieEpsilon"`
	// ScoringConcurrency caps in-flight candidate scoring calls.
	ScoringConcurrency int `yaml:"scoringConcurrency"`
	// ScoreTimeout bounds each candidate's scoring round trip.
	ScoreTimeout time.Duration `yaml:"scoreTimeout"`
	// DefaultConfidence is used when the model reports none.
	DefaultConfidence float64 `yaml:"defaultConfidence"`
	// CurvePoints is the sample count for win-probability curves.
	CurvePoints int `yaml:"curvePoints"`
}

// PolicyConfig locates the versioned policy pack.
type PolicyConfig struct {
	Path string `yaml:"path"`
}

// ElasticityConfig locates the elasticity coefficient table.
type ElasticityConfig struct {
	Path string `yaml:"path"`
}

// ModelConfig configures the remote win-probability model. An empty
// BaseURL selects the in-process logistic reference model.
type ModelConfig struct {
	BaseURL       string        `yaml:"baseURL"`
	PredictPath   string        `yaml:"predictPath"`
	Timeout       time.Duration `yaml:"timeout"`
	PredictionTTL time.Duration `yaml:"predictionTTL"`
}

// CacheConfig controls Valkey-backed memoization of model predictions.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("PRICING_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			CandidateCount:     5,
			TieEpsilon:         1e-6,
			ScoringConcurrency: 4,
			ScoreTimeout:       2 * time.Second,
			DefaultConfidence:  0.6,
			CurvePoints:        15,
		},
		Policy:     PolicyConfig{Path: "configs/policy/default.yaml"},
		Elasticity: ElasticityConfig{Path: "configs/elasticity/default.yaml"},
		Model: ModelConfig{
			PredictPath:   "/api/v1/predict",
			Timeout:       3 * time.Second,
			PredictionTTL: 2 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func validate(cfg *Config) error {
	if cfg.Engine.CandidateCount < 1 {
		return fmt.Errorf("engine.candidateCount must be >= 1, got %d", cfg.Engine.CandidateCount)
	}
	if cfg.Engine.TieEpsilon < 0 {
		return fmt.Errorf("engine.tieEpsilon must be >= 0")
	}
	if cfg.Engine.ScoringConcurrency < 1 {
		return fmt.Errorf("engine.scoringConcurrency must be >= 1, got %d", cfg.Engine.ScoringConcurrency)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PRICING_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("PRICING_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("PRICING_CANDIDATE_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.CandidateCount = n
		}
	}
	if v := os.Getenv("PRICING_SCORING_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.ScoringConcurrency = n
		}
	}
	if v := os.Getenv("PRICING_SCORE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.ScoreTimeout = d
		}
	}
	if v := os.Getenv("PRICING_POLICY_PATH"); v != "" {
		cfg.Policy.Path = v
	}
	if v := os.Getenv("PRICING_ELASTICITY_PATH"); v != "" {
		cfg.Elasticity.Path = v
	}
	if v := os.Getenv("PRICING_MODEL_BASE_URL"); v != "" {
		cfg.Model.BaseURL = v
	}
	if v := os.Getenv("PRICING_MODEL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Model.Timeout = d
		}
	}
	if v := os.Getenv("PRICING_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PRICING_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("PRICING_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("PRICING_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("PRICING_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("PRICING_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("PRICING_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("PRICING_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
}
