package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"BiasSentinel/internal/analyzer"
	"BiasSentinel/internal/api"
	"BiasSentinel/internal/collector"
	"BiasSentinel/internal/config"
	"BiasSentinel/internal/logging"
	"BiasSentinel/internal/notifier"
	"BiasSentinel/internal/publisher"
	"BiasSentinel/internal/recorder"
	"BiasSentinel/internal/scheduler"
	"BiasSentinel/internal/smc"
	"BiasSentinel/internal/strategy"
	"BiasSentinel/internal/verifier"
	"BiasSentinel/internal/weights"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot := logging.New("info", "console", nil)
		boot.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, nil)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("config validation")
	}
	logger.Info().Strs("symbols", cfg.Symbols).Str("timeframe", cfg.DataSource.Timeframe).Msg("BiasSentinel starting")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "rest":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	logger.Info().Str("source", fetcher.Name()).Msg("data source ready")
	col := collector.NewCollector(fetcher, cfg.DataSource.Timeframe, cfg.DataSource.BarLimit, logger)

	// Init weights
	wm, err := weights.NewManager(cfg.Weights.File, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init weights")
	}

	// Init recorder
	rec := openRecorder(ctx, cfg, logger)
	defer rec.Close()

	// Init publisher
	var pub publisher.Publisher = publisher.NewNoopPublisher()
	var rp *publisher.RedisPublisher
	if cfg.Redis.Addr != "" {
		rp, err = publisher.NewRedisPublisher(ctx, publisher.RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			Channel:   cfg.Redis.Channel,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("init redis publisher failed, publishing disabled")
			rp = nil
		} else {
			pub = rp
		}
	}
	defer pub.Close()

	// Init pipeline
	detector := smc.NewDetector(smc.Config{
		SwingLookback:      cfg.Analysis.SwingLookback,
		OrderBlockLookback: cfg.Analysis.OrderBlockLookback,
		FVGMinGap:          cfg.Analysis.FVGMinGap,
		FVGUseATR:          cfg.UseATR(),
		LiquidityTolerance: cfg.Analysis.LiquidityTolerance,
		LiquidityTouches:   cfg.Analysis.LiquidityMinTouches,
	})
	engine := strategy.NewEngine(strategy.Config{
		AlignBoost:       cfg.Analysis.AlignBoost,
		CounterDamp:      cfg.Analysis.CounterDamp,
		RetrainThreshold: cfg.Retrain.Threshold,
		MinSamples:       cfg.Retrain.MinSamples,
	})
	latest := analyzer.NewLatestStore()
	if rp != nil {
		warmLatest(ctx, rp, latest, cfg.Symbols, logger)
	}
	runner := analyzer.NewRunner(analyzer.New(detector, engine, logger), col, wm, rec, pub, latest, cfg.Analysis.Workers, logger)
	retrainer := analyzer.NewRetrainer(engine, wm, rec, cfg.Retrain.Window, cfg.Retrain.Decay, logger)
	ver := verifier.New(rec, col, cfg.Verify.Horizon, cfg.Verify.MoveThreshold, cfg.Verify.BatchSize, logger)

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var n notifier.Notifier = notifier.NoopNotifier{}
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		n = tn
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, runner, retrainer, ver, wm, n, cfg.Symbols, logger)
	if err := sched.RegisterAll(cfg.Schedule.AnalysisCron, cfg.Schedule.VerifyCron); err != nil {
		logger.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info().Msg("Telegram polling started")
	}

	// Init HTTP API
	var srv *api.Server
	if cfg.API.Addr != "" {
		if cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		srv = api.NewServer(cfg.API.Addr, runner, retrainer, ver, wm, logger)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error().Err(err).Msg("HTTP server stopped")
			}
		}()
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info().Msg("RUN_ON_START enabled, executing analysis now")
		go sched.RunAnalysisNow()
	}

	logger.Info().Msg("BiasSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutdown signal received, stopping...")
	cancel()
	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP shutdown")
		}
	}
	logger.Info().Msg("BiasSentinel stopped")
}

// warmLatest seeds the store with reports published before a restart.
func warmLatest(ctx context.Context, rp *publisher.RedisPublisher, store *analyzer.LatestStore, symbols []string, logger zerolog.Logger) {
	for _, symbol := range symbols {
		rep, err := rp.Latest(ctx, symbol)
		if err != nil {
			if !errors.Is(err, publisher.ErrNotFound) {
				logger.Warn().Err(err).Str("symbol", symbol).Msg("read cached report")
			}
			continue
		}
		store.Put(rep)
	}
	logger.Info().Int("reports", len(store.All())).Msg("latest reports restored")
}

// openRecorder picks the configured history store, falling back to noop.
func openRecorder(ctx context.Context, cfg *config.Config, logger zerolog.Logger) recorder.Recorder {
	switch cfg.Database.Driver {
	case "postgres":
		pr, err := recorder.NewPostgresRecorder(ctx, cfg.Database.PostgresURL, recorder.DefaultPoolConfig(), logger)
		if err == nil {
			return pr
		}
		logger.Warn().Err(err).Msg("init postgres recorder failed, using noop")
	case "sqlite":
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err == nil {
			return sr
		}
		logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
	}
	return recorder.NewNoopRecorder()
}
