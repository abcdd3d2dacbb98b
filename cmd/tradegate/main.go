package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"tradegate/internal/audit"
	"tradegate/internal/config"
	"tradegate/internal/database"
	"tradegate/internal/exchange"
	"tradegate/internal/execution"
	"tradegate/internal/feed"
	"tradegate/internal/logging"
	"tradegate/internal/marketdata"
	"tradegate/internal/metrics"
	"tradegate/internal/model"
	"tradegate/internal/security"
	"tradegate/internal/trader"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("cannot load .env: %v", err)
	}

	configPath := flag.String("config", ".", "Directory containing config.yaml")
	watch := flag.Bool("watch", false, "Evaluate pairs announced by the websocket feed")
	paper := flag.Bool("paper", false, "Use the paper venue instead of the configured one")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <pair-address>\n       %s [flags] -watch\n", os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if !*watch && flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if *paper {
		os.Setenv("VENUE_NAME", "paper")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, logger, &cfg)
	if err != nil {
		logger.Error("Main: startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	if *watch {
		if err := app.watch(ctx, cfg.Feed); err != nil {
			logger.Error("Main: feed stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	result := app.trader.EvaluateAndTrade(ctx, flag.Arg(0))
	if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
		logger.Error("Main: cannot encode result", "error", err)
	}
	if result.Outcome == model.OutcomeError {
		app.close()
		os.Exit(1)
	}
}

type app struct {
	logger  *slog.Logger
	trader  *trader.Trader
	repo    database.Repository
	metrics *metrics.Metrics
	closers []func()
}

func newApp(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*app, error) {
	a := &app{logger: logger}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		a.serveMetrics(cfg.Metrics.Addr, reg)
	}

	repo, err := openJournal(ctx, logger, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.repo = repo
	if pg, ok := repo.(*database.PostgresRepository); ok {
		a.closers = append(a.closers, pg.Close)
	}

	venue, err := exchange.NewClient(cfg.Venue.Name, logger, &cfg.Venue)
	if err != nil {
		a.close()
		return nil, err
	}

	provider := marketdata.NewDexScreenerClient(logger, cfg.MarketData)
	auditor := audit.NewRugCheckClient(logger, cfg.Audit)
	engine := security.NewEngine(logger, security.DefaultChecks(logger, cfg, auditor))

	a.trader, err = trader.New(logger, trader.Options{
		Provider: provider,
		Engine:   engine,
		Executor: execution.NewExecutor(logger, venue),
		Repo:     repo,
		Metrics:  a.metrics,
		Config:   cfg,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	logger.Info("Main: ready", "venue", venue.GetName(), "journal", cfg.Database.Enabled())
	return a, nil
}

func openJournal(ctx context.Context, logger *slog.Logger, cfg config.DatabaseConfig) (database.Repository, error) {
	if !cfg.Enabled() {
		logger.Info("Main: database not configured, decision journal disabled")
		return database.NopRepository{}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, config.MaxCallTimeout)
	defer cancel()

	repo, err := database.NewPostgresRepository(connectCtx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(connectCtx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

func (a *app) serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("Main: serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Main: metrics server failed", "error", err)
		}
	}()

	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}

func (a *app) watch(ctx context.Context, cfg config.FeedConfig) error {
	if cfg.URL == "" {
		return errors.New("feed.url is required in watch mode")
	}

	pairs := make(chan string, cfg.MaxConcurrent)
	stream := feed.NewStream(a.logger, cfg.URL)
	dispatcher := feed.NewDispatcher(a.logger, a.trader, a.repo, a.metrics, cfg.MaxConcurrent)

	streamErr := make(chan error, 1)
	go func() {
		defer close(pairs)
		streamErr <- stream.Run(ctx, pairs)
	}()

	dispatcher.Run(ctx, pairs)
	return <-streamErr
}

// close runs the registered closers once, in reverse order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
