package model

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dealdesk/pricing-engine/internal/cache"
	"github.com/dealdesk/pricing-engine/internal/models"
)

// RemoteModel calls a shared inference service over HTTP and memoizes
// predictions in the configured cache. A prediction is keyed by the
// full feature vector, so two candidates with identical features share
// one inference call.
type RemoteModel struct {
	baseURL     string
	predictPath string
	httpClient  *http.Client
	cache       cache.Provider
	ttl         time.Duration
	logger      *slog.Logger
}

// NewRemoteModel constructs a client for the win-probability service.
func NewRemoteModel(baseURL, predictPath string, timeout time.Duration, cacheProvider cache.Provider, ttl time.Duration, logger *slog.Logger) *RemoteModel {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if predictPath == "" {
		predictPath = "/api/v1/predict"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteModel{
		baseURL:     strings.TrimRight(baseURL, "/"),
		predictPath: predictPath,
		httpClient:  &http.Client{Timeout: timeout},
		cache:       cacheProvider,
		ttl:         ttl,
		logger:      logger,
	}
}

type predictResponse struct {
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
	Attribution []struct {
		Feature string  `json:"feature"`
		Weight  float64 `json:"weight"`
	} `json:"attribution"`
}

// Predict fetches a prediction, consulting the cache first.
func (m *RemoteModel) Predict(ctx context.Context, features Features) (Prediction, error) {
	if m == nil || m.baseURL == "" {
		return Prediction{}, fmt.Errorf("win-rate model base URL not configured")
	}

	payload, err := json.Marshal(features)
	if err != nil {
		return Prediction{}, fmt.Errorf("encode features: %w", err)
	}

	key := predictionKey(payload)
	if cached, cacheErr := m.cache.Get(ctx, key); cacheErr == nil {
		var resp predictResponse
		if unmarshalErr := json.Unmarshal(cached, &resp); unmarshalErr == nil {
			return resp.toPrediction(), nil
		}
		// Corrupt entry; drop it and fall through to the service.
		_ = m.cache.Del(ctx, key)
	} else if !errors.Is(cacheErr, cache.ErrCacheMiss) {
		m.logger.Warn("prediction cache read failed", slog.Any("error", cacheErr))
	}

	body, err := m.postJSON(ctx, m.baseURL+m.predictPath, payload)
	if err != nil {
		return Prediction{}, fmt.Errorf("win-rate model request failed: %w", err)
	}

	var resp predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}
	if resp.Probability < 0 || resp.Probability > 1 {
		return Prediction{}, fmt.Errorf("model returned probability %.4f outside [0,1]", resp.Probability)
	}

	if m.ttl > 0 {
		if setErr := m.cache.Set(ctx, key, body, m.ttl); setErr != nil {
			m.logger.Warn("prediction cache write failed", slog.Any("error", setErr))
		}
	}

	return resp.toPrediction(), nil
}

func (r predictResponse) toPrediction() Prediction {
	pred := Prediction{Probability: r.Probability, Confidence: r.Confidence}
	for _, a := range r.Attribution {
		pred.Attribution = append(pred.Attribution, models.FeatureWeight{Feature: a.Feature, Weight: a.Weight})
	}
	return pred
}

func (m *RemoteModel) postJSON(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func predictionKey(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "prediction:" + hex.EncodeToString(sum[:])
}
