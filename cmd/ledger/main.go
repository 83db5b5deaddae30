// Command ledger prints an account's liquidity ledger and verifies that its
// stored balance matches the recorded events.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"dex-pricing-lab/internal/config"
	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/ledger"
	"dex-pricing-lab/internal/logging"
	"dex-pricing-lab/internal/storage"
	pgstore "dex-pricing-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	envFile := flag.String("env-file", ".env", "Optional dotenv file")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	account := flag.String("account", "", "Account address (required)")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	ok, err := run(*configPath, *envFile, *postgresDSN, *account, *outputJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(2)
	}
}

// run prints the report and reports whether the ledger verified.
func run(configPath, envFile, postgresDSN, account string, outputJSON bool) (bool, error) {
	if account == "" {
		return false, errors.New("--account is required")
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return false, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return false, err
	}
	if postgresDSN != "" {
		cfg.Postgres.DSN = postgresDSN
	}
	if cfg.Postgres.DSN == "" {
		return false, errors.New("--postgres-dsn or PRICING_POSTGRES_DSN is required")
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return false, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return false, err
	}
	defer pool.Close()

	tracker := ledger.NewTracker(pgstore.NewLedgerStore(pool), cfg.KeyMode(), nil, logging.Component(logger, "ledger"))

	report, err := buildReport(ctx, tracker, account)
	if err != nil {
		return false, err
	}

	if outputJSON {
		err = writeJSON(os.Stdout, report)
	} else {
		err = writeText(os.Stdout, report)
	}
	return report.OK, err
}

// Report is the printed view of one account ledger.
type Report struct {
	Account    string          `json:"account"`
	Balance    decimal.Decimal `json:"balance"`
	Recomputed decimal.Decimal `json:"recomputed"`
	Drift      decimal.Decimal `json:"drift"`
	Missing    int             `json:"missing_events"`
	OK         bool            `json:"ok"`
	LastUpdate int64           `json:"last_update"`
	User       string          `json:"user"`
	EventIDs   []string        `json:"event_ids"`
	Events     []ReportEvent   `json:"events"`
}

// ReportEvent is one ledger event in a Report.
type ReportEvent struct {
	ID        string          `json:"id"`
	Pool      string          `json:"pool"`
	Add       bool            `json:"add"`
	Liquidity decimal.Decimal `json:"liquidity"`
	Timestamp int64           `json:"timestamp"`
	TxHash    string          `json:"tx_hash"`
	LogIndex  int64           `json:"log_index"`
}

// LedgerReader is the part of *ledger.Tracker the report needs.
type LedgerReader interface {
	Ledger(ctx context.Context, account string) (*domain.AccountLedger, error)
	Events(ctx context.Context, account string) ([]*domain.LedgerEvent, error)
}

func buildReport(ctx context.Context, r LedgerReader, account string) (*Report, error) {
	id, err := domain.NormalizeAddress(account)
	if err != nil {
		return nil, fmt.Errorf("account: %w", err)
	}

	l, err := r.Ledger(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no ledger for %s", id)
		}
		return nil, err
	}
	events, err := r.Events(ctx, id)
	if err != nil {
		return nil, err
	}

	v := ledger.VerifyBalance(l, events)
	report := &Report{
		Account:    id,
		Balance:    v.Stored,
		Recomputed: v.Recomputed,
		Drift:      v.Drift,
		Missing:    v.Missing,
		OK:         v.OK(),
		LastUpdate: l.LastUpdate,
		User:       l.User,
		EventIDs:   l.Events,
		Events:     make([]ReportEvent, 0, len(events)),
	}
	for _, e := range events {
		report.Events = append(report.Events, ReportEvent{
			ID:        e.ID,
			Pool:      e.Pool,
			Add:       e.IsAddLiquidity,
			Liquidity: e.Liquidity,
			Timestamp: e.Timestamp,
			TxHash:    e.TxHash,
			LogIndex:  e.LogIndex,
		})
	}
	return report, nil
}

func writeJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func writeText(w io.Writer, r *Report) error {
	status := "OK"
	if !r.OK {
		status = "MISMATCH"
	}
	lastUpdate := "N/A"
	if r.LastUpdate > 0 {
		lastUpdate = time.Unix(r.LastUpdate, 0).UTC().Format(time.RFC3339)
	}

	_, err := fmt.Fprintf(w, "\n=== Ledger %s ===\n"+
		"Balance:      %s\n"+
		"Recomputed:   %s\n"+
		"Drift:        %s\n"+
		"Missing:      %d\n"+
		"Last Update:  %s\n"+
		"Status:       %s\n\n",
		r.Account, r.Balance, r.Recomputed, r.Drift, r.Missing, lastUpdate, status)
	if err != nil {
		return err
	}

	for _, e := range r.Events {
		dir := "add"
		if !e.Add {
			dir = "remove"
		}
		if _, err := fmt.Fprintf(w, "%-70s %-6s %s pool=%s\n", e.ID, dir, e.Liquidity, e.Pool); err != nil {
			return err
		}
	}
	return nil
}
