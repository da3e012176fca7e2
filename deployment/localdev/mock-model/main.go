package main

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"time"
)

type predictRequest struct {
	Price            float64 `json:"price"`
	ListPrice        float64 `json:"list_price"`
	DiscountFromList float64 `json:"discount_from_list"`
	MarginRatio      float64 `json:"margin_ratio"`
	Quantity         int     `json:"quantity"`
	Country          string  `json:"country"`
	Channel          string  `json:"channel"`
	Segment          string  `json:"segment"`
	CompetitorPrice  float64 `json:"competitor_price"`
}

type featureWeight struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

type predictResponse struct {
	Probability float64         `json:"probability"`
	Confidence  float64         `json:"confidence"`
	Attribution []featureWeight `json:"attribution"`
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/predict", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		anchor := req.CompetitorPrice
		if anchor <= 0 {
			anchor = req.ListPrice
		}
		if anchor <= 0 {
			anchor = req.Price
		}

		probability := 1.0 / (1.0 + math.Exp((req.Price-anchor)/(0.2*anchor)))
		probability = math.Min(0.99, math.Max(0.01, probability))

		writeJSON(w, predictResponse{
			Probability: probability,
			Confidence:  0.75,
			Attribution: []featureWeight{
				{Feature: "price_vs_anchor", Weight: -(req.Price - anchor) / anchor},
				{Feature: "discount_from_list", Weight: req.DiscountFromList},
				{Feature: "quantity", Weight: math.Min(float64(req.Quantity)/100.0, 0.5)},
			},
		})
	})

	logger := log.New(log.Writer(), "model-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:              ":9000",
		Handler:           logRequests(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Println("listening on :9000")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
