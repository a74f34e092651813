package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"nba_forecasting/pipeline/internal/cache"
	"nba_forecasting/pipeline/internal/client"
	"nba_forecasting/pipeline/internal/config"
	"nba_forecasting/pipeline/internal/dataset"
	"nba_forecasting/pipeline/internal/features"
	"nba_forecasting/pipeline/internal/ingest"
	"nba_forecasting/pipeline/internal/metrics"
	"nba_forecasting/pipeline/internal/repository"
	"nba_forecasting/pipeline/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	dateFlag := flag.String("date", "", "game date to ingest (YYYY-MM-DD, default yesterday)")
	onceFlag := flag.Bool("once", false, "run one pipeline pass and exit")
	skipIngestFlag := flag.Bool("skip-ingest", false, "skip ingestion, rebuild features and datasets from stored data")
	flag.Parse()

	setupLogger()

	log.Info().Msg("Starting NBA Player Forecasting Pipeline")

	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	// Boxscores post overnight; yesterday is the newest complete date
	date := time.Now().UTC().AddDate(0, 0, -1)
	if *dateFlag != "" {
		parsed, err := time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			log.Fatal().Err(err).Str("date", *dateFlag).Msg("Invalid -date, expected YYYY-MM-DD")
		}
		date = parsed
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Travel features cannot be derived without arena coordinates, so a
	// missing locations file fails startup rather than a later run.
	locations, err := features.LoadLocations(cfg.TeamLocationsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.TeamLocationsPath).Msg("Failed to load team locations")
	}
	log.Info().
		Int("teams", len(locations)).
		Str("path", cfg.TeamLocationsPath).
		Msg("Team locations loaded")

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}
	log.Info().Msg("Database connection established")

	redisCache, err := cache.NewRedisCache(cache.Config{
		Host:        cfg.RedisHost,
		Port:        strconv.Itoa(cfg.RedisPort),
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		BoxscoreTTL: cfg.BoxscoreTTL,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		redisCache = nil
	} else {
		defer redisCache.Close()
		log.Info().Msg("Redis cache connected")
	}

	nbaClient := client.NewClient(client.Config{
		BaseURL:      cfg.ProviderBaseURL,
		Timeout:      cfg.ProviderTimeout,
		MaxAttempts:  cfg.ProviderMaxAttempts,
		RetryBackoff: cfg.ProviderRetryBackoff,
		MaxBackoff:   cfg.ProviderMaxBackoff,
		RequestDelay: cfg.ProviderRequestDelay,
		UserAgent:    cfg.ProviderUserAgent,
		Referer:      cfg.ProviderReferer,
	})
	log.Info().Str("base_url", cfg.ProviderBaseURL).Msg("Stats provider client initialized")

	connector := ingest.NewConnector(nbaClient, db.Boxscores, redisCache)

	engine, err := features.NewEngine(db.Boxscores, locations, features.Config{
		Windows:     cfg.RollingWindows,
		RestSubject: cfg.RestSubject,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create feature engine")
	}

	partitioner := dataset.NewPartitioner(dataset.Config{
		MinMinutes:     cfg.MinMinutes,
		TrainSplitFrac: cfg.TrainSplitFrac,
		OutputDir:      cfg.OutputDir,
	})

	runPipeline := func(ctx context.Context, date time.Time, skipIngest bool) error {
		start := time.Now()

		if skipIngest {
			log.Info().Msg("Skipping ingestion, building from stored data")
		} else {
			report, err := connector.Ingest(ctx, date)
			if err != nil {
				metrics.RecordPipelineRun("failure")
				return fmt.Errorf("ingestion failed: %w", err)
			}
			log.Info().
				Int("requested", report.Requested).
				Int("ingested", report.Ingested).
				Int("skipped", len(report.Skipped)).
				Msg("Ingestion complete")
		}

		rows, err := engine.BuildFeatures(ctx)
		if err != nil {
			metrics.RecordPipelineRun("failure")
			return fmt.Errorf("feature build failed: %w", err)
		}

		// Raw feature table, before cleaning and splitting
		featuresPath := filepath.Join(cfg.OutputDir, "features.csv")
		if err := features.WriteCSVFile(featuresPath, engine.Columns(), rows); err != nil {
			metrics.RecordPipelineRun("failure")
			return fmt.Errorf("failed to write feature table: %w", err)
		}

		result, err := partitioner.Partition(rows, engine.Columns())
		if err != nil {
			metrics.RecordPipelineRun("failure")
			return fmt.Errorf("dataset partition failed: %w", err)
		}

		metrics.RecordPipelineRun("success")
		log.Info().
			Int("train_rows", result.TrainRows).
			Int("test_rows", result.TestRows).
			Dur("duration", time.Since(start)).
			Msg("Pipeline run complete")
		return nil
	}

	if cfg.EnableMetrics {
		go startMetricsServer(strconv.Itoa(cfg.MetricsPort))
	}

	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	skipIngest := *skipIngestFlag || cfg.SkipIngest

	if *onceFlag || !cfg.EnableScheduler {
		if err := runPipeline(ctx, date, skipIngest); err != nil {
			log.Fatal().Err(err).Str("date", date.Format("2006-01-02")).Msg("Pipeline run failed")
		}
		log.Info().Msg("Pipeline shutdown complete")
		return
	}

	sched := scheduler.NewScheduler(cfg, func(ctx context.Context, date time.Time) error {
		return runPipeline(ctx, date, skipIngest)
	})
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	<-ctx.Done()

	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	log.Info().Msg("Pipeline shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port string) {
	http.Handle("/metrics", promhttp.Handler())

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%s", port)
	log.Info().Str("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
