// Package config loads indexer configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/ledger"
	"dex-pricing-lab/internal/pricing"
	"dex-pricing-lab/internal/processor"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PRICING_"

// Source kinds.
const (
	SourceFile  = "file"
	SourceKafka = "kafka"
	SourceWS    = "ws"
)

// Config is the complete indexer configuration.
type Config struct {
	Log        LogConfig       `yaml:"log"`
	Pricing    PricingConfig   `yaml:"pricing"`
	Processor  ProcessorConfig `yaml:"processor"`
	Postgres   DSNConfig       `yaml:"postgres"`
	ClickHouse DSNConfig       `yaml:"clickhouse"`
	Source     SourceConfig    `yaml:"source"`
	Metrics    MetricsConfig   `yaml:"metrics"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

// StablePoolConfig names a stablecoin/ETH pool used by the price oracle.
type StablePoolConfig struct {
	Address        string `yaml:"address"`
	StableIsToken0 bool   `yaml:"stable_is_token0"`
}

// PricingConfig holds the chain-specific pricing constants.
type PricingConfig struct {
	WrappedNative       string           `yaml:"wrapped_native"`
	MinimumLiquidityETH string           `yaml:"minimum_liquidity_eth"`
	PrimaryStablePool   StablePoolConfig `yaml:"primary_stable_pool"`
	SecondaryStablePool StablePoolConfig `yaml:"secondary_stable_pool"`
	Whitelist           []string         `yaml:"whitelist"`
	Blacklist           []string         `yaml:"blacklist"`

	minLiquidity decimal.Decimal
}

// ProcessorConfig selects processing behavior.
type ProcessorConfig struct {
	MissingEntityPolicy string `yaml:"missing_entity_policy"` // fail|skip
	LedgerKeyMode       string `yaml:"ledger_key_mode"`       // tx_log|tx_hash
}

// DSNConfig holds a database connection string. Empty disables the store.
type DSNConfig struct {
	DSN string `yaml:"dsn"`
}

// SourceConfig selects and configures the event source.
type SourceConfig struct {
	Kind  string      `yaml:"kind"`
	File  FileConfig  `yaml:"file"`
	Kafka KafkaConfig `yaml:"kafka"`
	WS    WSConfig    `yaml:"ws"`
}

// FileConfig configures the JSON lines source.
type FileConfig struct {
	Path string `yaml:"path"`
	Sort bool   `yaml:"sort"`
}

// KafkaConfig configures the Kafka consumer group source.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Group   string   `yaml:"group"`
	Oldest  bool     `yaml:"oldest"`
}

// WSConfig configures the WebSocket relay source.
type WSConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Pools    []string `yaml:"pools"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr      string `yaml:"addr"` // empty disables the listener
	Namespace string `yaml:"namespace"`
}

// Default returns the configuration for the reference deployment, with
// canonical addresses.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "json"},
		Pricing: PricingConfig{
			WrappedNative:       "0x5aea5775959fbc2557cc8789bc1bf90a239d9a91",
			MinimumLiquidityETH: "1",
			PrimaryStablePool: StablePoolConfig{
				Address:        "0x7642e38867860d4512fcce1116e2fb539c5cdd21", // USDC/WETH
				StableIsToken0: true,
			},
			SecondaryStablePool: StablePoolConfig{
				Address:        "0xa6e443251d6b4ecd0bf7665834838ca8b4280a13", // WETH/USDT
				StableIsToken0: false,
			},
			Whitelist: []string{
				"0x5aea5775959fbc2557cc8789bc1bf90a239d9a91", // WETH
				"0x3355df6d4c9c3035724fd0e3914de96a5a83aaf4", // USDC
				"0x493257fd37edb34451f62edf8d2a0c418852ba4c", // USDT
			},
		},
		Processor: ProcessorConfig{
			MissingEntityPolicy: string(processor.PolicyFail),
			LedgerKeyMode:       string(ledger.KeyModeTxLog),
		},
		Source: SourceConfig{
			Kind:  SourceFile,
			Kafka: KafkaConfig{Topic: "pool-events", Group: "dex-pricing"},
		},
		Metrics: MetricsConfig{Addr: ":9090", Namespace: "dex_pricing"},
	}
}

// LoadDotEnv loads .env files into the process environment if present.
// Variables already set are not overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads path over the defaults, applies PRICING_* overrides, normalizes
// addresses and validates. An empty path uses defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides scalar settings from the environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"LOG_LEVEL":             &c.Log.Level,
		"LOG_FORMAT":            &c.Log.Format,
		"WRAPPED_NATIVE":        &c.Pricing.WrappedNative,
		"MINIMUM_LIQUIDITY_ETH": &c.Pricing.MinimumLiquidityETH,
		"MISSING_ENTITY_POLICY": &c.Processor.MissingEntityPolicy,
		"LEDGER_KEY_MODE":       &c.Processor.LedgerKeyMode,
		"POSTGRES_DSN":          &c.Postgres.DSN,
		"CLICKHOUSE_DSN":        &c.ClickHouse.DSN,
		"SOURCE":                &c.Source.Kind,
		"FILE_PATH":             &c.Source.File.Path,
		"KAFKA_TOPIC":           &c.Source.Kafka.Topic,
		"KAFKA_GROUP":           &c.Source.Kafka.Group,
		"WS_ENDPOINT":           &c.Source.WS.Endpoint,
		"METRICS_ADDR":          &c.Metrics.Addr,
	}
	for key, dst := range str {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "KAFKA_BROKERS"); ok {
		c.Source.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "WHITELIST"); ok {
		c.Pricing.Whitelist = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "KAFKA_OLDEST"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sKAFKA_OLDEST: %w", EnvPrefix, err)
		}
		c.Source.Kafka.Oldest = b
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalize canonicalizes every address once so the rest of the system can
// compare identifiers byte for byte.
func (c *Config) normalize() error {
	var err error
	if c.Pricing.WrappedNative == "" {
		return errors.New("pricing.wrapped_native is required")
	}
	if c.Pricing.WrappedNative, err = domain.NormalizeAddress(c.Pricing.WrappedNative); err != nil {
		return fmt.Errorf("pricing.wrapped_native: %w", err)
	}
	for _, sp := range []*StablePoolConfig{&c.Pricing.PrimaryStablePool, &c.Pricing.SecondaryStablePool} {
		if sp.Address == "" {
			continue
		}
		if sp.Address, err = domain.NormalizeAddress(sp.Address); err != nil {
			return fmt.Errorf("pricing stable pool: %w", err)
		}
	}
	if c.Pricing.Whitelist, err = normalizeAll(c.Pricing.Whitelist); err != nil {
		return fmt.Errorf("pricing.whitelist: %w", err)
	}
	if c.Pricing.Blacklist, err = normalizeAll(c.Pricing.Blacklist); err != nil {
		return fmt.Errorf("pricing.blacklist: %w", err)
	}
	if c.Source.WS.Pools, err = normalizeAll(c.Source.WS.Pools); err != nil {
		return fmt.Errorf("source.ws.pools: %w", err)
	}
	return nil
}

func normalizeAll(addrs []string) ([]string, error) {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		n, err := domain.NormalizeAddress(a)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Validate rejects unknown enumerations and incomplete source settings.
func (c *Config) Validate() error {
	if _, err := domain.NormalizeAddress(c.Pricing.WrappedNative); err != nil {
		return fmt.Errorf("pricing.wrapped_native: %w", err)
	}

	minLiq, err := decimal.NewFromString(c.Pricing.MinimumLiquidityETH)
	if err != nil {
		return fmt.Errorf("pricing.minimum_liquidity_eth: %w", err)
	}
	if minLiq.IsNegative() {
		return fmt.Errorf("pricing.minimum_liquidity_eth must not be negative, got %s", minLiq)
	}
	c.Pricing.minLiquidity = minLiq

	if !processor.MissingEntityPolicy(c.Processor.MissingEntityPolicy).IsValid() {
		return fmt.Errorf("processor.missing_entity_policy: unknown value %q", c.Processor.MissingEntityPolicy)
	}
	if !ledger.KeyMode(c.Processor.LedgerKeyMode).IsValid() {
		return fmt.Errorf("processor.ledger_key_mode: unknown value %q", c.Processor.LedgerKeyMode)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format: unknown value %q", c.Log.Format)
	}

	switch c.Source.Kind {
	case SourceFile:
		// Path may come from a command-line flag.
	case SourceKafka:
		if len(c.Source.Kafka.Brokers) == 0 || c.Source.Kafka.Topic == "" || c.Source.Kafka.Group == "" {
			return errors.New("source.kafka: brokers, topic and group are required")
		}
	case SourceWS:
		if c.Source.WS.Endpoint == "" {
			return errors.New("source.ws.endpoint is required")
		}
	default:
		return fmt.Errorf("source.kind: unknown value %q", c.Source.Kind)
	}
	return nil
}

// OracleConfig returns the stable pools for the ETH price oracle.
func (c *Config) OracleConfig() pricing.OracleConfig {
	return pricing.OracleConfig{
		Primary: pricing.StablePool{
			ID:             c.Pricing.PrimaryStablePool.Address,
			StableIsToken0: c.Pricing.PrimaryStablePool.StableIsToken0,
		},
		Secondary: pricing.StablePool{
			ID:             c.Pricing.SecondaryStablePool.Address,
			StableIsToken0: c.Pricing.SecondaryStablePool.StableIsToken0,
		},
	}
}

// ResolverConfig returns the token price resolver settings. Call after Validate.
func (c *Config) ResolverConfig() pricing.ResolverConfig {
	return pricing.ResolverConfig{
		WrappedNative:       c.Pricing.WrappedNative,
		MinimumLiquidityETH: c.Pricing.minLiquidity,
	}
}

// Policy returns the missing-entity policy.
func (c *Config) Policy() processor.MissingEntityPolicy {
	return processor.MissingEntityPolicy(c.Processor.MissingEntityPolicy)
}

// KeyMode returns the ledger event key mode.
func (c *Config) KeyMode() ledger.KeyMode {
	return ledger.KeyMode(c.Processor.LedgerKeyMode)
}
