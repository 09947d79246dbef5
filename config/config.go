// Package config loads riskd settings from an optional YAML file, environment
// variables and command line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvListenAddr       = "RISK_LISTEN_ADDR"
	EnvLogLevel         = "RISK_LOG_LEVEL"
	EnvCoinGeckoAPIKey  = "COINGECKO_API_KEY"
	EnvBinanceBaseURL   = "BINANCE_BASE_URL"
	EnvCoinGeckoBaseURL = "COINGECKO_BASE_URL"
	EnvBybitEnabled     = "BYBIT_ENABLED"
)

type Config struct {
	ListenAddr      string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	Retry           RetryConfig
	Binance         BinanceConfig
	CoinGecko       CoinGeckoConfig
	Bybit           BybitConfig
}

// Retry backoff kinds.
const (
	BackoffLinear      = "linear"
	BackoffExponential = "exponential"
)

// RetryConfig is the upstream retry policy shared by all sources.
// Linear backoff waits BaseDelay*n before retry n; exponential doubles
// BaseDelay per retry up to MaxDelay.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Backoff     string
	MaxDelay    time.Duration
}

type BinanceConfig struct {
	// BaseURL empty means the SDK default.
	BaseURL  string
	CacheTTL time.Duration
}

type CoinGeckoConfig struct {
	BaseURL  string
	APIKey   string
	CacheTTL time.Duration
}

// BybitConfig the Bybit source sits between Binance and CoinGecko when enabled.
type BybitConfig struct {
	Enabled bool
	// BaseURL empty means the SDK default.
	BaseURL  string
	CacheTTL time.Duration
}

// ConfigTmp mirrors the YAML layout. Durations are strings like "90s".
type ConfigTmp struct {
	ListenAddr      string   `yaml:"listen_addr"`
	LogLevel        string   `yaml:"log_level"`
	RequestTimeout  string   `yaml:"request_timeout,omitempty"`
	ShutdownTimeout string   `yaml:"shutdown_timeout,omitempty"`
	CORSOrigins     []string `yaml:"cors_origins,omitempty"`
	Retry           struct {
		MaxAttempts int    `yaml:"max_attempts,omitempty"`
		BaseDelay   string `yaml:"base_delay,omitempty"`
		Backoff     string `yaml:"backoff,omitempty"`
		MaxDelay    string `yaml:"max_delay,omitempty"`
	} `yaml:"retry"`
	Binance struct {
		BaseURL  string `yaml:"base_url,omitempty"`
		CacheTTL string `yaml:"cache_ttl,omitempty"`
	} `yaml:"binance"`
	CoinGecko struct {
		BaseURL  string `yaml:"base_url,omitempty"`
		APIKey   string `yaml:"api_key,omitempty"`
		CacheTTL string `yaml:"cache_ttl,omitempty"`
	} `yaml:"coingecko"`
	Bybit struct {
		Enabled  bool   `yaml:"enabled"`
		BaseURL  string `yaml:"base_url,omitempty"`
		CacheTTL string `yaml:"cache_ttl,omitempty"`
	} `yaml:"bybit"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ListenAddr:      ":5000",
		LogLevel:        "info",
		RequestTimeout:  10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		CORSOrigins:     []string{"http://localhost:5173", "http://localhost:5174"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Backoff:     BackoffLinear,
			MaxDelay:    10 * time.Second,
		},
		Binance: BinanceConfig{
			CacheTTL: 60 * time.Second,
		},
		CoinGecko: CoinGeckoConfig{
			BaseURL:  "https://api.coingecko.com/api/v3",
			CacheTTL: 180 * time.Second,
		},
		Bybit: BybitConfig{
			CacheTTL: 60 * time.Second,
		},
	}
}

// Get reads flags from the process command line and loads the configuration.
func Get() (Config, error) {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		return Config{}, err
	}

	cfg, err := Load(flags.configPath, os.Getenv)
	if err != nil {
		return Config{}, err
	}

	flags.apply(&cfg)

	return cfg, cfg.Validate()
}

// Load builds a Config from defaults, the YAML file at path (skipped when empty)
// and environment variables looked up with getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := applyYaml(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyYaml(cfg *Config, path string) error {
	f, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var c ConfigTmp
	if err := yaml.Unmarshal(f, &c); err != nil {
		return fmt.Errorf("incorrect yaml config %s, error: %w", path, err)
	}

	if c.ListenAddr != "" {
		cfg.ListenAddr = c.ListenAddr
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if len(c.CORSOrigins) > 0 {
		cfg.CORSOrigins = c.CORSOrigins
	}
	if c.Retry.MaxAttempts != 0 {
		cfg.Retry.MaxAttempts = c.Retry.MaxAttempts
	}
	if c.Binance.BaseURL != "" {
		cfg.Binance.BaseURL = c.Binance.BaseURL
	}
	if c.CoinGecko.BaseURL != "" {
		cfg.CoinGecko.BaseURL = c.CoinGecko.BaseURL
	}
	if c.CoinGecko.APIKey != "" {
		cfg.CoinGecko.APIKey = c.CoinGecko.APIKey
	}
	if c.Retry.Backoff != "" {
		cfg.Retry.Backoff = c.Retry.Backoff
	}
	cfg.Bybit.Enabled = c.Bybit.Enabled
	if c.Bybit.BaseURL != "" {
		cfg.Bybit.BaseURL = c.Bybit.BaseURL
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"request_timeout", c.RequestTimeout, &cfg.RequestTimeout},
		{"shutdown_timeout", c.ShutdownTimeout, &cfg.ShutdownTimeout},
		{"retry.base_delay", c.Retry.BaseDelay, &cfg.Retry.BaseDelay},
		{"retry.max_delay", c.Retry.MaxDelay, &cfg.Retry.MaxDelay},
		{"binance.cache_ttl", c.Binance.CacheTTL, &cfg.Binance.CacheTTL},
		{"coingecko.cache_ttl", c.CoinGecko.CacheTTL, &cfg.CoinGecko.CacheTTL},
		{"bybit.cache_ttl", c.Bybit.CacheTTL, &cfg.Bybit.CacheTTL},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("incorrect '%s' param in yaml config (correct format is 90s), error: %w", d.name, err)
		}
		*d.dst = v
	}

	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		return nil
	}

	if v := getenv(EnvListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv(EnvCoinGeckoAPIKey); v != "" {
		cfg.CoinGecko.APIKey = v
	}
	if v := getenv(EnvBinanceBaseURL); v != "" {
		cfg.Binance.BaseURL = v
	}
	if v := getenv(EnvCoinGeckoBaseURL); v != "" {
		cfg.CoinGecko.BaseURL = v
	}
	if v := getenv(EnvBybitEnabled); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("incorrect %s=%s (must be a bool), error: %w", EnvBybitEnabled, v, err)
		}
		cfg.Bybit.Enabled = enabled
	}

	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var problems []string

	if c.ListenAddr == "" {
		problems = append(problems, "listen address is empty")
	}
	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, fmt.Sprintf("retry max attempts must be >= 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.BaseDelay < 0 {
		problems = append(problems, fmt.Sprintf("retry base delay must be >= 0, got %s", c.Retry.BaseDelay))
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("request timeout must be > 0, got %s", c.RequestTimeout))
	}
	switch c.Retry.Backoff {
	case BackoffLinear:
	case BackoffExponential:
		if c.Retry.MaxDelay < c.Retry.BaseDelay {
			problems = append(problems, fmt.Sprintf("retry max delay %s is below base delay %s", c.Retry.MaxDelay, c.Retry.BaseDelay))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown retry backoff %q", c.Retry.Backoff))
	}
	ttls := []struct {
		name string
		ttl  time.Duration
	}{
		{"binance", c.Binance.CacheTTL},
		{"coingecko", c.CoinGecko.CacheTTL},
		{"bybit", c.Bybit.CacheTTL},
	}
	for _, t := range ttls {
		if t.ttl <= 0 {
			problems = append(problems, fmt.Sprintf("%s cache ttl must be > 0, got %s", t.name, t.ttl))
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("unknown log level %q", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
