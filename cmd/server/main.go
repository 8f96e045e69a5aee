package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/scavenger/hunter-service/config"
	"github.com/scavenger/hunter-service/internal/antidetect"
	"github.com/scavenger/hunter-service/internal/archive"
	"github.com/scavenger/hunter-service/internal/backend"
	"github.com/scavenger/hunter-service/internal/dedup"
	"github.com/scavenger/hunter-service/internal/handlers"
	"github.com/scavenger/hunter-service/internal/hunter"
	"github.com/scavenger/hunter-service/internal/middleware"
	"github.com/scavenger/hunter-service/internal/normalize"
	"github.com/scavenger/hunter-service/internal/orchestrator"
	"github.com/scavenger/hunter-service/internal/queue"
	"github.com/scavenger/hunter-service/internal/resilience"
	"github.com/scavenger/hunter-service/internal/scoring"
	"github.com/scavenger/hunter-service/internal/security"
	"github.com/scavenger/hunter-service/internal/sources"
	"github.com/scavenger/hunter-service/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting hunter service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanup, err := telemetry.Init(ctx, telemetry.GetConfigFromEnv())
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry init failed, continuing without it")
		cleanup = func(context.Context) error { return nil }
	}

	if cfg.Server.APIToken != "" && security.IsWeakToken(cfg.Server.APIToken) {
		logger.Warn().Msg("Internal API token looks weak, rotate it")
	}

	// Optional outcome archive.
	var outcomes *archive.Archive
	if cfg.Database.URL != "" {
		outcomes, err = archive.Connect(ctx, cfg.Database.URL, *logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Archive unavailable, outcomes will not persist")
			outcomes = nil
		} else {
			defer outcomes.Close()
			logger.Info().Msg("Outcome archive connected")
		}
	}

	// Optional cross-restart seen store.
	var seen *dedup.SeenStore
	if cfg.Redis.URL != "" {
		opts, perr := redis.ParseURL(cfg.Redis.URL)
		if perr != nil {
			logger.Warn().Err(perr).Msg("Invalid redis URL, seen store disabled")
		} else {
			client := redis.NewClient(opts)
			if perr := client.Ping(ctx).Err(); perr != nil {
				logger.Warn().Err(perr).Msg("Redis unreachable, seen store disabled")
			} else {
				seen = dedup.NewSeenStore(client, cfg.Redis.SeenTTL, *logger)
				defer client.Close()
				logger.Info().Msg("Seen store connected")
			}
		}
	}

	registry := sources.NewDefaultRegistry()
	for _, name := range registry.List() {
		if api := config.GetAPIConfig(name); api.Configured && security.IsWeakToken(api.APIKey) {
			logger.Warn().Str("source", name).Msg("Source API key looks weak, rotate it")
		}
	}

	governor := antidetect.NewGovernor(antidetect.Config{
		PerHourLimit:   cfg.AntiDetect.PerHourLimit,
		PerMinuteLimit: cfg.AntiDetect.PerMinuteLimit,
		BurstLimit:     cfg.AntiDetect.BurstLimit,
		Cooldown:       cfg.AntiDetect.Cooldown,
		MinDelay:       cfg.AntiDetect.MinDelay,
		MaxDelay:       cfg.AntiDetect.MaxDelay,
		JitterFraction: cfg.AntiDetect.JitterFraction,
	}, *logger)

	h := hunter.New(registry, governor, apiKeyLookup, hunter.Config{
		Breaker: resilience.BreakerConfig{
			FailureThreshold:    cfg.Breaker.FailureThreshold,
			OpenTimeout:         cfg.Breaker.OpenTimeout,
			HalfOpenTrialBudget: cfg.Breaker.HalfOpenTrialBudget,
		},
	}, *logger)

	normalizer := normalize.New(normalize.Config{
		MinReward:       cfg.Normalizer.MinReward,
		DefaultReward:   cfg.Normalizer.DefaultReward,
		MinDurationSec:  cfg.Normalizer.MinDurationSec,
		DefaultDuration: cfg.Normalizer.DefaultDuration,
		MinTitleLen:     cfg.Normalizer.MinTitleLen,
	}, *logger)

	engine := scoring.NewEngine(scoring.Config{
		Weights: scoring.Weights{
			SuccessRate:   cfg.Scoring.WeightSuccessRate,
			Profitability: cfg.Scoring.WeightProfitability,
			Automation:    cfg.Scoring.WeightAutomation,
			Ease:          cfg.Scoring.WeightEase,
			Reliability:   cfg.Scoring.WeightReliability,
		},
		HistoryCap:      cfg.Scoring.HistoryCap,
		MinCohortSize:   cfg.Scoring.MinCohortSize,
		RewardThreshold: cfg.Scoring.RewardThreshold,
	}, *logger)

	validator := security.NewValidator(security.Config{
		RewardCeiling: cfg.Security.RewardCeiling,
		MaxDuration:   cfg.Security.MaxDuration,
	})

	var executor backend.ExecutionBackend
	if cfg.Backend.ExecutorURL != "" {
		executor = backend.NewHTTPBackend(cfg.Backend.ExecutorURL)
		logger.Info().Str("executor", cfg.Backend.ExecutorURL).Msg("Execution backend configured")
	} else {
		executor = backend.Nop{}
		logger.Warn().Msg("No executor URL configured, running in dry-run mode")
	}

	taskQueue := queue.New()

	orch := orchestrator.New(orchestrator.Config{
		BaseInterval:  cfg.Orchestrator.BaseInterval,
		LowWaterMark:  cfg.Orchestrator.LowWaterMark,
		TopK:          cfg.Orchestrator.TopK,
		SkipThreshold: cfg.Orchestrator.SkipThreshold,
		HistoryCap:    cfg.Orchestrator.HistoryCap,
	}, orchestrator.Deps{
		Queue:     taskQueue,
		Hunter:    h,
		Normal:    normalizer,
		Engine:    engine,
		Validator: validator,
		Governor:  governor,
		Registry:  registry,
		Backend:   executor,
		Seen:      seen,
		Archive:   outcomes,
	}, *logger)
	orch.Start(ctx)

	// Nightly archive cleanup.
	scheduler := cron.New()
	if outcomes != nil {
		_, cerr := scheduler.AddFunc("0 3 * * *", func() {
			removed, cerr := outcomes.Cleanup(ctx, cfg.Database.Retention)
			if cerr != nil {
				logger.Warn().Err(cerr).Msg("Archive cleanup failed")
				return
			}
			logger.Info().Int64("removed", removed).Msg("Archive cleanup complete")
		})
		if cerr != nil {
			logger.Warn().Err(cerr).Msg("Failed to schedule archive cleanup")
		}
	}
	scheduler.Start()

	if cfg.Logging.Level == "info" || cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupMiddleware(router, logger)

	api := handlers.New(orch, h, taskQueue, registry, *logger)

	router.GET("/health", api.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	internal := router.Group("/internal")
	internal.Use(middleware.InternalAuthMiddleware(cfg.Server.APIToken))
	internal.Use(middleware.ServiceRateLimitMiddleware(50, 100))
	{
		internal.GET("/health", api.HealthCheck)
		internal.GET("/metrics", api.GetMetrics)
		internal.GET("/queue", api.GetQueue)
		internal.GET("/sources", api.ListSources)
		internal.PUT("/sources/:name/enabled", api.SetSourceEnabled)
		internal.POST("/cycle", api.TriggerCycle)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-quit:
		case <-gctx.Done():
		}

		logger.Info().Msg("Shutting down server...")
		scheduler.Stop()
		orch.Stop()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := cleanup(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("Server error")
	}
	logger.Info().Msg("Server exited")
}

// apiKeyLookup resolves per-source credentials from the environment.
func apiKeyLookup(sourceName string) (string, bool) {
	apiCfg := config.GetAPIConfig(sourceName)
	return apiCfg.APIKey, apiCfg.Configured
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "hunter-service").Logger()
	return &logger
}

func setupMiddleware(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})
}
