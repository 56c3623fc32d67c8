package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/foliotrack/config"
	"github.com/alejandrodnm/foliotrack/internal/adapters/attest"
	"github.com/alejandrodnm/foliotrack/internal/adapters/notify"
	"github.com/alejandrodnm/foliotrack/internal/adapters/polymarket"
	"github.com/alejandrodnm/foliotrack/internal/adapters/storage"
	"github.com/alejandrodnm/foliotrack/internal/api"
	"github.com/alejandrodnm/foliotrack/internal/application/advisor"
	"github.com/alejandrodnm/foliotrack/internal/application/gdpr"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one advice cycle and exit")
	serve := flag.Bool("serve", false, "start the HTTP API")
	process := flag.Bool("process", false, "start the GDPR deletion worker")
	table := flag.Bool("table", false, "print full advice table (default: compact 1-line)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("foliotrack starting",
		"config", *configPath,
		"interval", cfg.AdviceInterval(),
		"watchlist", len(cfg.Watchlist),
		"once", *once,
		"serve", *serve,
		"process", *process,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)
	notifier := notify.NewConsole(*table)

	watchlist := make([]advisor.WatchEntry, 0, len(cfg.Watchlist))
	for _, w := range cfg.Watchlist {
		watchlist = append(watchlist, advisor.WatchEntry{
			ConditionID:          w.ConditionID,
			EstimatedProbability: w.EstimatedProbability,
		})
	}

	adv := advisor.New(
		advisor.Config{
			Interval:           cfg.AdviceInterval(),
			BankrollUSDC:       cfg.Sizing.BankrollUSDC,
			FractionMultiplier: cfg.Sizing.FractionMultiplier,
			MaxPositionSize:    cfg.Sizing.MaxPositionSize,
			RunOnceMode:        *once,
		},
		watchlist, client, store, notifier,
	)

	revoker := attest.NewRevoker(
		cfg.API.AttestBase,
		cfg.GDPR.RevocationsPerSecond,
		cfg.GDPR.DryRunRevocations,
	)
	gdprSvc := gdpr.New(store, store, store, revoker, store)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return adv.Run(ctx) })

	if *process {
		g.Go(func() error { return gdprSvc.ProcessPending(ctx, cfg.ProcessInterval()) })
	}

	if *serve {
		server := api.NewServer(cfg.Server.Addr, cfg.Server.CORSOrigin, api.NewHandler(adv, gdprSvc))
		g.Go(func() error { return server.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		slog.Error("foliotrack exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("foliotrack stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
