package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/vegavis/config"
	"github.com/alejandrodnm/vegavis/internal/adapters/datanode"
	"github.com/alejandrodnm/vegavis/internal/adapters/metrics"
	"github.com/alejandrodnm/vegavis/internal/adapters/notify"
	"github.com/alejandrodnm/vegavis/internal/adapters/storage"
	"github.com/alejandrodnm/vegavis/internal/application/scorer"
	"github.com/alejandrodnm/vegavis/internal/domain"
	"github.com/alejandrodnm/vegavis/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scoring cycle and exit")
	dryRun := flag.Bool("dry-run", false, "one cycle, do not record to storage")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print the full ladder per market (default: compact 1-line)")
	list := flag.Bool("list", false, "list markets from the data node and exit")
	marketID := flag.String("market", "", "market ID (comma-separated to restrict the scorer)")
	sideFlag := flag.String("side", "", "buy|sell, with -price evaluates a single order")
	price := flag.Float64("price", 0, "order price for a single evaluation")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
	history := flag.String("history", "", "print the recorded ladder history of a market and exit")
	since := flag.Duration("since", 24*time.Hour, "history window for -history")
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
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if *marketID != "" {
		cfg.Scorer.MarketIDs = config.SplitList(*marketID)
	}
	setupLogger(cfg.Log)

	single := *sideFlag != ""
	slog.Info("vegavis starting",
		"config", *configPath,
		"data_node", cfg.API.DataNodeURL,
		"interval", cfg.Interval(),
		"dry_run", *dryRun,
		"once", *once,
	)

	client := datanode.NewClient(cfg.API.DataNodeURL, cfg.Timeout())
	notifier := notify.NewConsole(cfg.Scorer.Threshold, *table)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *list {
		runList(ctx, client, notifier)
		return
	}

	if *history != "" {
		runHistory(ctx, cfg.Storage.DSN, notifier, *history, *since)
		return
	}

	// storage y metrics son opcionales: interfaces nil si no se usan
	var store ports.Storage
	if !*dryRun && !single {
		sqlite, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer sqlite.Close()
		store = sqlite
	}

	var observer ports.Metrics
	if cfg.Metrics.Addr != "" && !single {
		prom := metrics.NewPrometheus()
		stop := serveMetrics(cfg.Metrics.Addr, prom)
		defer stop()
		observer = prom
	}

	scoreCfg := scorer.Config{
		Interval: cfg.Interval(),
		Ladder: domain.Ladder{
			Levels:       cfg.Scorer.Levels,
			StepFraction: cfg.Scorer.StepFraction,
		},
		Model: domain.ModelConfig{
			MinProbabilityOfTrading: cfg.Model.MinProbabilityOfTrading,
			TauScaling:              cfg.Model.TauScaling,
		},
		MarketIDs: cfg.Scorer.MarketIDs,
		DryRun:    *dryRun || *once,
	}

	s := scorer.New(scoreCfg, client, store, notifier, observer)

	if single {
		runEvaluate(ctx, s, cfg.Scorer.MarketIDs, *sideFlag, *price)
		return
	}

	if err := s.Run(ctx); err != nil {
		slog.Error("scorer exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("vegavis stopped cleanly")
}

func runList(ctx context.Context, client *datanode.Client, notifier *notify.Console) {
	markets, err := client.ListMarkets(ctx)
	if err != nil {
		slog.Error("list markets failed", "err", err)
		os.Exit(1)
	}
	notifier.PrintMarkets(markets)
}

func runHistory(ctx context.Context, dsn string, notifier *notify.Console, marketID string, since time.Duration) {
	store, err := storage.NewSQLiteStorage(dsn)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", dsn)
		os.Exit(1)
	}
	defer store.Close()

	to := time.Now().UTC()
	levels, err := store.GetHistory(ctx, marketID, to.Add(-since), to)
	if err != nil {
		slog.Error("history query failed", "err", err, "market_id", marketID)
		os.Exit(1)
	}
	cycles, err := store.CycleCount(ctx)
	if err != nil {
		slog.Error("cycle count failed", "err", err)
		os.Exit(1)
	}
	notifier.PrintHistory(marketID, levels, cycles)
}

func runEvaluate(ctx context.Context, s *scorer.Scorer, marketIDs []string, sideFlag string, price float64) {
	marketID, side, err := parseEvaluateArgs(marketIDs, sideFlag, price)
	if err != nil {
		slog.Error("invalid evaluation arguments", "err", err)
		os.Exit(2)
	}

	p, book, err := s.Evaluate(ctx, marketID, side, price)
	if err != nil {
		slog.Error("evaluate failed", "err", err, "market_id", marketID)
		os.Exit(1)
	}

	slog.Info("probability of trading",
		"market", book.Label,
		"side", side.Short(),
		"price", price,
		"best_bid", book.BestBid,
		"best_ask", book.BestAsk,
		"probability", p,
	)
}

// parseEvaluateArgs valida -market/-side/-price para una evaluación individual.
func parseEvaluateArgs(marketIDs []string, sideFlag string, price float64) (string, domain.Side, error) {
	if len(marketIDs) != 1 {
		return "", 0, fmt.Errorf("-side requires exactly one -market, got %d", len(marketIDs))
	}
	if price <= 0 {
		return "", 0, fmt.Errorf("-side requires a positive -price, got %g", price)
	}
	side, err := domain.ParseSide(sideFlag)
	if err != nil {
		return "", 0, err
	}
	return marketIDs[0], side, nil
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
