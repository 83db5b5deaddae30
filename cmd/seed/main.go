// Command seed loads token, pool and bundle fixtures into PostgreSQL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dex-pricing-lab/internal/config"
	"dex-pricing-lab/internal/logging"
	"dex-pricing-lab/internal/seed"
	"dex-pricing-lab/internal/storage/migrations"
	pgstore "dex-pricing-lab/internal/storage/postgres"
	"dex-pricing-lab/internal/whitelist"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	envFile := flag.String("env-file", ".env", "Optional dotenv file")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	fixturesPath := flag.String("fixtures", "", "YAML fixtures file (required)")
	migrate := flag.Bool("migrate", false, "Apply embedded PostgreSQL migrations first")
	flag.Parse()

	if err := run(*configPath, *envFile, *postgresDSN, *fixturesPath, *migrate); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile, postgresDSN, fixturesPath string, migrate bool) error {
	if fixturesPath == "" {
		return errors.New("--fixtures is required")
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if postgresDSN != "" {
		cfg.Postgres.DSN = postgresDSN
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("--postgres-dsn or PRICING_POSTGRES_DSN is required")
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logger = logging.Component(logger, "seed")

	fixtures, err := seed.LoadFile(fixturesPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if migrate {
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			return err
		}
		logger.Info().Strs("versions", applied).Msg("postgres migrations applied")
	}

	registry := whitelist.NewRegistry(cfg.Pricing.Whitelist, cfg.Pricing.Blacklist)
	res, err := fixtures.Apply(ctx, pgstore.NewSet(pool), registry)
	if err != nil {
		return err
	}

	logger.Info().
		Int("tokens", res.Tokens).
		Int("pools", res.Pools).
		Bool("bundle_created", res.BundleCreated).
		Msg("fixtures loaded")
	return nil
}
