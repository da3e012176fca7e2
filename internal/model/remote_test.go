package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dealdesk/pricing-engine/internal/cache"
)

func TestRemotePredict(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/api/v1/predict" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %s", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"probability":0.62,"confidence":0.8,"attribution":[{"feature":"price_vs_anchor","weight":-0.4}]}`))
	}))
	defer server.Close()

	m := NewRemoteModel(server.URL, "", time.Second, cache.NoopProvider{}, 0, nil)
	pred, err := m.Predict(context.Background(), Features{Price: 90, ListPrice: 100})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Probability != 0.62 || pred.Confidence != 0.8 {
		t.Fatalf("unexpected prediction: %+v", pred)
	}
	if len(pred.Attribution) != 1 || pred.Attribution[0].Feature != "price_vs_anchor" {
		t.Fatalf("unexpected attribution: %+v", pred.Attribution)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
}

func TestRemotePredictMemoizes(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"probability":0.62,"confidence":0.8}`))
	}))
	defer server.Close()

	m := NewRemoteModel(server.URL, "", time.Second, cache.NewMemoryProvider(), time.Minute, nil)
	features := Features{Price: 90, ListPrice: 100}

	for i := 0; i < 3; i++ {
		if _, err := m.Predict(context.Background(), features); err != nil {
			t.Fatalf("predict %d: %v", i, err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single upstream call behind the cache, got %d", calls.Load())
	}

	// A different price is a different key.
	features.Price = 95
	if _, err := m.Predict(context.Background(), features); err != nil {
		t.Fatalf("predict: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected a second upstream call, got %d", calls.Load())
	}
}

func TestRemotePredictDropsCorruptCacheEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"probability":0.62,"confidence":0.8}`))
	}))
	defer server.Close()

	provider := cache.NewMemoryProvider()
	m := NewRemoteModel(server.URL, "", time.Second, provider, time.Minute, nil)
	features := Features{Price: 90, ListPrice: 100}

	// Seed the cache with garbage under the key the model will use.
	if _, err := m.Predict(context.Background(), features); err != nil {
		t.Fatalf("warm predict: %v", err)
	}
	payload, err := json.Marshal(features)
	if err != nil {
		t.Fatalf("marshal features: %v", err)
	}
	key := predictionKey(payload)
	if err := provider.Set(context.Background(), key, []byte("{not json"), time.Minute); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	pred, err := m.Predict(context.Background(), features)
	if err != nil {
		t.Fatalf("predict after corruption: %v", err)
	}
	if pred.Probability != 0.62 {
		t.Fatalf("expected a fresh prediction, got %+v", pred)
	}
}

func TestRemotePredictRejectsInvalidProbability(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"probability":1.7}`))
	}))
	defer server.Close()

	m := NewRemoteModel(server.URL, "", time.Second, cache.NoopProvider{}, 0, nil)
	if _, err := m.Predict(context.Background(), Features{Price: 90, ListPrice: 100}); err == nil {
		t.Fatal("expected error for out-of-range probability")
	}
}

func TestRemotePredictUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	m := NewRemoteModel(server.URL, "", time.Second, cache.NoopProvider{}, 0, nil)
	if _, err := m.Predict(context.Background(), Features{Price: 90, ListPrice: 100}); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}

func TestRemotePredictNoBaseURL(t *testing.T) {
	m := NewRemoteModel("", "", time.Second, nil, 0, nil)
	if _, err := m.Predict(context.Background(), Features{Price: 90}); err == nil {
		t.Fatal("expected error without a base URL")
	}
}
