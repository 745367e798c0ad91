package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Provider   ProviderConfig   `mapstructure:"provider"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Snapshot   SnapshotConfig   `mapstructure:"snapshot"`
	Conversion ConversionConfig `mapstructure:"conversion"`
	Valuation  ValuationConfig  `mapstructure:"valuation"`
	Tracker    TrackerConfig    `mapstructure:"tracker"`
	Log        LogConfig        `mapstructure:"log"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
}

// ProviderConfig points at the market-data REST API.
type ProviderConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	HistoryDays int           `mapstructure:"history_days"` // lookback window for charting
}

type CacheConfig struct {
	QuoteTTL   time.Duration `mapstructure:"quote_ttl"`
	FXTTL      time.Duration `mapstructure:"fx_ttl"`
	HistoryTTL time.Duration `mapstructure:"history_ttl"`
}

// SnapshotConfig describes the daily OHLCV table and its symbol universe.
type SnapshotConfig struct {
	Path                string        `mapstructure:"path"`
	RequestDelay        time.Duration `mapstructure:"request_delay"`
	Timezone            string        `mapstructure:"timezone"`              // calendar used for "refreshed today"
	Mirror              bool          `mapstructure:"mirror"`                // copy each refresh into postgres
	MirrorRetentionDays int           `mapstructure:"mirror_retention_days"` // 0 keeps every mirrored day
	Equities            []string      `mapstructure:"equities"`
	Commodities         []string      `mapstructure:"commodities"`
	Currencies          []string      `mapstructure:"currencies"`
}

// ConversionConfig holds the base-currency pair and approximate fallback rates.
// Fallback rates are approximations used only when the provider has nothing.
type ConversionConfig struct {
	Pair                string             `mapstructure:"pair"`
	DefaultFallbackRate float64            `mapstructure:"default_fallback_rate"`
	FallbackRates       map[string]float64 `mapstructure:"fallback_rates"`
}

type ValuationConfig struct {
	DomesticSuffixes []string `mapstructure:"domestic_suffixes"`
}

type TrackerConfig struct {
	Workers int `mapstructure:"workers"` // max concurrent price lookups per portfolio
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Location returns the snapshot calendar location. An empty timezone means UTC.
func (c SnapshotConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Universe returns every configured snapshot symbol in file order, without duplicates.
func (c SnapshotConfig) Universe() []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]string{c.Equities, c.Commodities, c.Currencies} {
		for _, s := range group {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("provider.timeout", 10*time.Second)
	v.SetDefault("provider.user_agent", "Mozilla/5.0 (marketwatch)")
	v.SetDefault("provider.history_days", 30)

	v.SetDefault("cache.quote_ttl", 60*time.Second)
	v.SetDefault("cache.fx_ttl", time.Hour)
	v.SetDefault("cache.history_ttl", 6*time.Hour)

	v.SetDefault("snapshot.path", "data/market_data.csv")
	v.SetDefault("snapshot.request_delay", 500*time.Millisecond)
	v.SetDefault("snapshot.timezone", "Asia/Kolkata")
	v.SetDefault("snapshot.mirror_retention_days", 90)

	v.SetDefault("conversion.pair", "USDINR=X")
	v.SetDefault("conversion.default_fallback_rate", 83.0)

	v.SetDefault("valuation.domestic_suffixes", []string{".NS", ".BO"})
	v.SetDefault("tracker.workers", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	setDefaults(v)

	if dir := os.Getenv("MARKETWATCH_CONFIG_DIR"); dir != "" {
		v.AddConfigPath(dir)
	}
	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}

	// Support environment variables with dot notation (e.g., PROVIDER_BASE_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}
	if _, err := cfg.Snapshot.Location(); err != nil {
		log.Fatalf("failed to validate config: %v", err)
	}

	return &cfg
}
