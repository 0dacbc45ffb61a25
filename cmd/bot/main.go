package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"FxSentinel/internal/collector"
	"FxSentinel/internal/config"
	"FxSentinel/internal/logging"
	"FxSentinel/internal/notifier"
	"FxSentinel/internal/recorder"
	"FxSentinel/internal/reversal"
	"FxSentinel/internal/scheduler"
	"FxSentinel/internal/strategy"
	"FxSentinel/internal/zones"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLog := logging.New("info", false)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.JSON)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("config validation")
	}
	logger.Info().Str("config", cfgPath).Msg("FxSentinel starting")

	// Init fetcher
	fetcher := newFetcher(cfg)
	logger.Info().Str("source", fetcher.Name()).Msg("data source ready")
	col := collector.NewCollector(fetcher, logger)

	// Init engines
	rev := reversal.NewEngine(cfg.Reversal, col, logger)
	scanner := zones.NewScanner(cfg.Zones, logger)
	engine := strategy.NewEngine(cfg.Strategy, col, rev, scanner, logger)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var out scheduler.Notifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		out = tn
	} else {
		logger.Warn().Msg("telegram not configured, decisions are only logged")
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, engine, out, rec, cfg.Symbols, cfg.Schedule.TradingHours, logger)
	if err := sched.Register(cfg.Schedule.EvaluateCron); err != nil {
		logger.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info().Msg("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info().Msg("RUN_ON_START enabled, running a cycle now")
		go sched.RunCycle(ctx)
	}

	logger.Info().Strs("symbols", cfg.Symbols).Str("cron", cfg.Schedule.EvaluateCron).
		Msg("FxSentinel is running, press Ctrl+C to stop")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutdown signal received, stopping")
	cancel()
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	switch cfg.DataSource.Provider {
	case config.ProviderYahoo:
		return collector.NewYahooFetcher(cfg.Proxy)
	case config.ProviderMock:
		return &collector.MockFetcher{Price: cfg.DataSource.MockPrice}
	default:
		return collector.NewVsTraderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	}
}
