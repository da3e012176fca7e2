package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/text/language"

	"github.com/dealdesk/pricing-engine/internal/api"
	"github.com/dealdesk/pricing-engine/internal/cache"
	"github.com/dealdesk/pricing-engine/internal/config"
	"github.com/dealdesk/pricing-engine/internal/engine"
	"github.com/dealdesk/pricing-engine/internal/history"
	"github.com/dealdesk/pricing-engine/internal/metrics"
	"github.com/dealdesk/pricing-engine/internal/model"
	"github.com/dealdesk/pricing-engine/internal/policy"
	"github.com/dealdesk/pricing-engine/internal/services"
	"github.com/dealdesk/pricing-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting pricing-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NewMemoryProvider()
	var valkeyCloser cache.Provider
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable, using in-process cache", slog.Any("error", err))
		} else {
			cacheProvider = provider
			valkeyCloser = provider
		}
	}
	if valkeyCloser != nil {
		defer valkeyCloser.Close()
	}

	policyStore, err := policy.Load(cfg.Policy.Path, logger)
	if err != nil {
		logger.Error("failed to load policy pack", slog.Any("error", err))
		os.Exit(1)
	}

	outcomes := history.NewStats(logger)

	var winModel model.WinRateModel
	if cfg.Model.BaseURL != "" {
		winModel = model.NewRemoteModel(
			cfg.Model.BaseURL,
			cfg.Model.PredictPath,
			cfg.Model.Timeout,
			cacheProvider,
			cfg.Model.PredictionTTL,
			logger,
		)
	} else {
		logger.Info("no model endpoint configured, using logistic fallback")
		winModel = model.NewLogisticModel()
	}

	rulesAgent := engine.NewRulesAgent(logger)
	winRateAgent := engine.NewWinRateAgent(winModel, outcomes, cfg.Engine.DefaultConfidence, logger)
	elasticityAgent, err := engine.NewElasticityAgent(cfg.Elasticity.Path, logger)
	if err != nil {
		logger.Error("failed to load elasticity table", slog.Any("error", err))
		os.Exit(1)
	}

	orchestrator := engine.NewOrchestrator(
		logger,
		rulesAgent,
		[]engine.CandidateScorer{winRateAgent, elasticityAgent},
		engine.Config{
			CandidateCount:     cfg.Engine.CandidateCount,
			TieEpsilon:         cfg.Engine.TieEpsilon,
			ScoringConcurrency: cfg.Engine.ScoringConcurrency,
			ScoreTimeout:       cfg.Engine.ScoreTimeout,
			CurvePoints:        cfg.Engine.CurvePoints,
		},
	)
	explainer := engine.NewExplainerAgent(language.AmericanEnglish)

	pricingService := services.NewPricingService(logger, orchestrator, explainer, policyStore, outcomes)

	server, err := api.NewServer(cfg.Server, api.NewHandler(pricingService, logger))
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("api server listening", slog.String("address", server.Address()))
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("api server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("pricing-engine stopped")
}
