package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dealdesk/pricing-engine/internal/engine"
	"github.com/dealdesk/pricing-engine/internal/policy"
	"github.com/dealdesk/pricing-engine/internal/services"
)

// Handler serves the pricing HTTP API.
type Handler struct {
	service *services.PricingService
	logger  *slog.Logger
}

func NewHandler(service *services.PricingService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes registers all API endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/recommend", h.handleRecommend)
	mux.HandleFunc("POST /api/v1/score", h.handleScore)
	mux.HandleFunc("POST /api/v1/win-curve", h.handleWinCurve)
	mux.HandleFunc("POST /api/v1/outcomes", h.handleRecordOutcome)
	mux.HandleFunc("GET /api/v1/outcomes", h.handleOutcomeSummaries)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

func (h *Handler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var in QuoteIn
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, rationale, err := h.service.Recommend(r.Context(), in.toQuoteContext())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecommendOut(record, rationale))
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	var in ScoreIn
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.ProposedPrice <= 0 {
		writeError(w, http.StatusBadRequest, "proposed_price must be positive")
		return
	}

	assessment, err := h.service.ScorePrice(r.Context(), in.toQuoteContext(), in.ProposedPrice)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScoreOut(assessment))
}

func (h *Handler) handleWinCurve(w http.ResponseWriter, r *http.Request) {
	var in QuoteIn
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	points := 0
	if raw := r.URL.Query().Get("points"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "points must be a positive integer")
			return
		}
		points = parsed
	}

	curve, err := h.service.WinCurve(r.Context(), in.toQuoteContext(), points)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CurveOut{Curve: curve})
}

func (h *Handler) handleRecordOutcome(w http.ResponseWriter, r *http.Request) {
	var in OutcomeIn
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	outcome, err := in.toOutcome()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.RecordOutcome(r.Context(), outcome); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

func (h *Handler) handleOutcomeSummaries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.service.OutcomeSummaries())
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, policy.ErrNoPolicy):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrNoScorableCandidates):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
