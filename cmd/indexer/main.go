// Command indexer consumes pool events and maintains prices, tracked volume
// and liquidity ledgers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dex-pricing-lab/internal/config"
	"dex-pricing-lab/internal/ingestion"
	"dex-pricing-lab/internal/ledger"
	"dex-pricing-lab/internal/logging"
	"dex-pricing-lab/internal/observability"
	"dex-pricing-lab/internal/pricing"
	"dex-pricing-lab/internal/processor"
	"dex-pricing-lab/internal/seed"
	"dex-pricing-lab/internal/storage"
	chstore "dex-pricing-lab/internal/storage/clickhouse"
	"dex-pricing-lab/internal/storage/memory"
	"dex-pricing-lab/internal/storage/migrations"
	pgstore "dex-pricing-lab/internal/storage/postgres"
	"dex-pricing-lab/internal/whitelist"
)

type flags struct {
	configPath    string
	envFile       string
	source        string
	file          string
	sortFile      bool
	postgresDSN   string
	clickhouseDSN string
	migrate       bool
	fixtures      string
	metricsAddr   string
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to YAML config (defaults plus PRICING_* env when empty)")
	flag.StringVar(&f.envFile, "env-file", ".env", "Optional dotenv file")
	flag.StringVar(&f.source, "source", "", "Event source: file, kafka or ws (overrides config)")
	flag.StringVar(&f.file, "file", "", "JSON lines event file for --source=file")
	flag.BoolVar(&f.sortFile, "sort", false, "Sort the event file by (block, log_index) before processing")
	flag.StringVar(&f.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string (in-memory stores when empty)")
	flag.StringVar(&f.clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string for tracked metric points")
	flag.BoolVar(&f.migrate, "migrate", false, "Apply embedded schema migrations before starting")
	flag.StringVar(&f.fixtures, "fixtures", "", "YAML token/pool fixtures to load before starting")
	flag.StringVar(&f.metricsAddr, "metrics-addr", "", "Prometheus metrics HTTP address (overrides config)")
	flag.Parse()

	if err := config.LoadDotEnv(f.envFile); err != nil {
		fmt.Fprintf(os.Stderr, "indexer: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "indexer: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, f)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "indexer: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "indexer: %v\n", err)
		os.Exit(1)
	}
	logger = logging.Component(logger, "indexer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, f, logger)
	stop()
	if exitCode(err) != 0 {
		logger.Error().Err(err).Msg("indexer failed")
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

// exitCode maps the result of run to a process exit status. Cancellation
// by signal is a clean shutdown.
func exitCode(err error) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return 0
	}
	return 1
}

// applyFlags overrides config values with explicitly set flags.
func applyFlags(cfg *config.Config, f flags) {
	if f.source != "" {
		cfg.Source.Kind = f.source
	}
	if f.file != "" {
		cfg.Source.File.Path = f.file
	}
	if f.sortFile {
		cfg.Source.File.Sort = true
	}
	if f.postgresDSN != "" {
		cfg.Postgres.DSN = f.postgresDSN
	}
	if f.clickhouseDSN != "" {
		cfg.ClickHouse.DSN = f.clickhouseDSN
	}
	if f.metricsAddr != "" {
		cfg.Metrics.Addr = f.metricsAddr
	}
}

func run(ctx context.Context, cfg *config.Config, f flags, logger zerolog.Logger) error {
	metrics := observability.NewMetrics(cfg.Metrics.Namespace, nil)

	stores, closeStores, err := openStores(ctx, cfg, f.migrate, metrics, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	registry := whitelist.NewRegistry(cfg.Pricing.Whitelist, cfg.Pricing.Blacklist)

	if f.fixtures != "" {
		fx, err := seed.LoadFile(f.fixtures)
		if err != nil {
			return err
		}
		res, err := fx.Apply(ctx, stores, registry)
		if err != nil {
			return fmt.Errorf("apply fixtures: %w", err)
		}
		logger.Info().Int("tokens", res.Tokens).Int("pools", res.Pools).Msg("fixtures loaded")
	}
	if created, err := seed.EnsureBundle(ctx, stores.Bundle); err != nil {
		return err
	} else if created {
		logger.Info().Msg("bundle created")
	}

	proc := processor.New(processor.Options{
		Stores:     stores,
		Oracle:     pricing.NewOracle(stores.Pools, cfg.OracleConfig(), metrics, logger),
		Resolver:   pricing.NewResolver(stores.Pools, stores.Tokens, cfg.ResolverConfig(), metrics, logger),
		Attributor: pricing.NewAttributor(registry),
		Tracker:    ledger.NewTracker(stores.Ledgers, cfg.KeyMode(), metrics, logger),
		Registry:   registry,
		Policy:     cfg.Policy(),
		Metrics:    metrics,
		Logger:     logger,
	})

	source, closeSource, err := buildSource(cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:    source,
		Decoder:   ingestion.NewDecoder(stores.Pools, stores.Tokens),
		Processor: proc,
		Progress:  stores.Progress,
		Metrics:   metrics,
		Logger:    logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()

	g.Go(func() error {
		// A finite source ends the process once drained.
		defer cancelRun()
		logger.Info().Str("source", source.Name()).Str("policy", string(cfg.Policy())).Msg("ingestion started")
		err := runner.Run(runCtx)
		stats := runner.Stats()
		logger.Info().
			Int64("applied", stats.Applied).
			Int64("skipped", stats.Skipped).
			Int64("out_of_order", stats.OutOfOrder).
			Msg("ingestion stopped")
		return err
	})

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server started")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-runCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// openStores selects in-memory or PostgreSQL entity stores and the optional
// ClickHouse metric sink.
func openStores(ctx context.Context, cfg *config.Config, migrate bool, metrics *observability.Metrics, logger zerolog.Logger) (storage.Set, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	stores := memory.NewSet()

	if cfg.Postgres.DSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return storage.Set{}, nil, err
		}
		closers = append(closers, pool.Close)
		pool.SetMetrics(metrics)

		if migrate {
			applied, err := migrations.RunPostgresMigrations(ctx, pool)
			if err != nil {
				closeAll()
				return storage.Set{}, nil, err
			}
			logger.Info().Strs("versions", applied).Msg("postgres migrations applied")
		}
		stores = pgstore.NewSet(pool)
		logger.Info().Msg("using postgres stores")
	} else {
		logger.Warn().Msg("no postgres dsn, using in-memory stores")
	}

	if cfg.ClickHouse.DSN != "" {
		var (
			conn *chstore.Conn
			err  error
		)
		if migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		}
		if err != nil {
			closeAll()
			return storage.Set{}, nil, err
		}
		closers = append(closers, func() { _ = conn.Close() })
		stores.Metrics = chstore.NewTrackedMetricStore(conn, metrics)
		logger.Info().Msg("using clickhouse metric sink")
	}

	return stores, closeAll, nil
}

// buildSource creates the configured event source.
func buildSource(cfg *config.Config, metrics *observability.Metrics, logger zerolog.Logger) (ingestion.Source, func(), error) {
	noop := func() {}

	switch cfg.Source.Kind {
	case config.SourceFile:
		if cfg.Source.File.Path == "" {
			return nil, nil, errors.New("file source requires --file or source.file.path")
		}
		return ingestion.NewFileSource(ingestion.FileSourceOptions{
			Path:    cfg.Source.File.Path,
			Sort:    cfg.Source.File.Sort,
			Metrics: metrics,
			Logger:  logger,
		}), noop, nil

	case config.SourceKafka:
		src, err := ingestion.NewKafkaSource(ingestion.KafkaSourceOptions{
			Brokers: cfg.Source.Kafka.Brokers,
			GroupID: cfg.Source.Kafka.Group,
			Topic:   cfg.Source.Kafka.Topic,
			Oldest:  cfg.Source.Kafka.Oldest,
			Metrics: metrics,
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return src, func() {
			if err := src.Close(); err != nil {
				logger.Warn().Err(err).Msg("close kafka source")
			}
		}, nil

	case config.SourceWS:
		return ingestion.NewWSSource(ingestion.WSSourceOptions{
			Endpoint: cfg.Source.WS.Endpoint,
			Pools:    cfg.Source.WS.Pools,
			Metrics:  metrics,
			Logger:   logger,
		}), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown source %q", cfg.Source.Kind)
	}
}
