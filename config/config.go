package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

// Environment keys recognized by ApplyOverrides. Values set in the
// environment take precedence over the TOML file.
const (
	listenEnvKey        = "AUCTIOND_LISTEN"
	treasuryEnvKey      = "AUCTIOND_TREASURY"
	archiveDSNEnvKey    = "AUCTIOND_ARCHIVE_DSN"
	auditLogEnvKey      = "AUCTIOND_AUDIT_LOG"
	maxWorkersEnvKey    = "AUCTIOND_MAX_WORKERS"
	sweepIntervalEnvKey = "AUCTIOND_SWEEP_INTERVAL"
)

const (
	defaultListen        = "tcp:127.0.0.1:9090"
	defaultMaxWorkers    = 32
	defaultSweepInterval = time.Minute
)

// Loader provides an interface for loading config values from a provided key
type Loader interface {
	Get(key string) string
}

// EnvLoader loads keys from os environment
type EnvLoader struct{}

// Get retrieves key from environment
func (EnvLoader) Get(key string) string {
	return os.Getenv(key)
}

// FeeTier is one fee schedule entry: rate_bps applies from min_usd upward.
type FeeTier struct {
	MinUSD  decimal.Decimal `toml:"min_usd"`
	RateBps int64           `toml:"rate_bps"`
}

// Oracle seeds a fixed price source for a bidding unit.
type Oracle struct {
	Unit     string          `toml:"unit"`
	Price    decimal.Decimal `toml:"price"`
	Decimals int32           `toml:"decimals"`
}

// Balance seeds a genesis fund balance.
type Balance struct {
	Unit    string          `toml:"unit"`
	Account string          `toml:"account"`
	Amount  decimal.Decimal `toml:"amount"`
}

// Asset seeds a genesis asset holding.
type Asset struct {
	Collection string `toml:"collection"`
	Serial     uint64 `toml:"serial"`
	Owner      string `toml:"owner"`
}

// Genesis seeds the in-memory bank and asset registry at startup.
type Genesis struct {
	Balances []Balance `toml:"balances"`
	Assets   []Asset   `toml:"assets"`
}

// Config provides application configuration
type Config struct {
	// Listen is the request listener address, "tcp:host:port" or "vsock:port".
	Listen string `toml:"listen"`

	// MaxWorkers caps concurrently served connections.
	MaxWorkers int `toml:"max_workers"`

	// SweepInterval is how often expired auctions are force-finalized.
	SweepInterval string `toml:"sweep_interval"`

	// AuditLog is the path of the append-only event stream; empty disables it.
	AuditLog string `toml:"audit_log"`

	// ArchiveDSN is the Postgres DSN for terminal-record archival; empty
	// disables archival.
	ArchiveDSN string `toml:"archive_dsn"`

	Treasury        string          `toml:"treasury"`
	Operators       []string        `toml:"operators"`
	MinIncrementBps int64           `toml:"min_increment_bps"`
	FirstBidFloor   decimal.Decimal `toml:"first_bid_floor"`
	FeeTiers        []FeeTier       `toml:"fee_tiers"`
	Oracles         []Oracle        `toml:"oracles"`
	Genesis         Genesis         `toml:"genesis"`
}

// Load reads and validates a TOML config file.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyOverrides replaces config values with any set on the loader.
func (c *Config) ApplyOverrides(loader Loader) error {
	if v := loader.Get(listenEnvKey); v != "" {
		c.Listen = v
	}
	if v := loader.Get(treasuryEnvKey); v != "" {
		c.Treasury = v
	}
	if v := loader.Get(archiveDSNEnvKey); v != "" {
		c.ArchiveDSN = v
	}
	if v := loader.Get(auditLogEnvKey); v != "" {
		c.AuditLog = v
	}
	if v := loader.Get(maxWorkersEnvKey); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", maxWorkersEnvKey, v, err)
		}
		c.MaxWorkers = n
	}
	if v := loader.Get(sweepIntervalEnvKey); v != "" {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s value %q: %w", sweepIntervalEnvKey, v, err)
		}
		c.SweepInterval = v
	}
	return c.Validate()
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = defaultMaxWorkers
	}
	if c.SweepInterval == "" {
		c.SweepInterval = defaultSweepInterval.String()
	}
}

// Validate checks the config for structural problems.
func (c *Config) Validate() error {
	network, _, ok := strings.Cut(c.Listen, ":")
	if !ok || (network != "tcp" && network != "vsock") {
		return fmt.Errorf("listen must be tcp:host:port or vsock:port, got %q", c.Listen)
	}
	if c.Treasury == "" {
		return fmt.Errorf("treasury account is required")
	}
	if len(c.Operators) == 0 {
		return fmt.Errorf("at least one operator account is required")
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be positive, got %d", c.MaxWorkers)
	}
	if c.MinIncrementBps < 0 {
		return fmt.Errorf("min_increment_bps must not be negative, got %d", c.MinIncrementBps)
	}
	if c.FirstBidFloor.IsNegative() {
		return fmt.Errorf("first_bid_floor must not be negative, got %s", c.FirstBidFloor)
	}
	if _, err := time.ParseDuration(c.SweepInterval); err != nil {
		return fmt.Errorf("invalid sweep_interval %q: %w", c.SweepInterval, err)
	}
	if _, err := c.FeeSchedule(); err != nil {
		return err
	}
	for i, o := range c.Oracles {
		if o.Unit == "" {
			return fmt.Errorf("oracle %d: unit is required", i)
		}
		if !o.Price.IsPositive() {
			return fmt.Errorf("oracle %d (%s): price must be positive, got %s", i, o.Unit, o.Price)
		}
		if o.Decimals < 0 {
			return fmt.Errorf("oracle %d (%s): decimals must not be negative, got %d", i, o.Unit, o.Decimals)
		}
	}
	return nil
}

// FeeSchedule builds the configured fee schedule; with no fee_tiers entries
// the default schedule applies.
func (c *Config) FeeSchedule() (core.FeeSchedule, error) {
	if len(c.FeeTiers) == 0 {
		return core.DefaultFeeSchedule(), nil
	}
	tiers := make([]core.FeeTier, len(c.FeeTiers))
	for i, t := range c.FeeTiers {
		tiers[i] = core.FeeTier{MinUSD: t.MinUSD, RateBps: t.RateBps}
	}
	schedule := core.NewFeeSchedule(tiers...)
	if err := schedule.Validate(); err != nil {
		return core.FeeSchedule{}, err
	}
	return schedule, nil
}

// SweepDuration returns the parsed sweep interval. Validate has already
// checked it parses.
func (c *Config) SweepDuration() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil {
		return defaultSweepInterval
	}
	return d
}
