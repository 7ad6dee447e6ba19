// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	RPCURL      string        `mapstructure:"rpc_url"`
	PostgresURL string        `mapstructure:"postgres_url"`
	Tokens      []TokenConfig `mapstructure:"tokens"`

	LogFile     string `mapstructure:"log_file"`
	Development bool   `mapstructure:"development"`

	PollIntervalMS     int `mapstructure:"poll_interval_ms"`
	ValidateIntervalMS int `mapstructure:"validate_interval_ms"`

	Store     StoreConfig     `mapstructure:"store"`
	Decoders  DecoderConfig   `mapstructure:"decoders"`
	Consensus ConsensusConfig `mapstructure:"consensus"`
	Providers ProviderConfig  `mapstructure:"providers"`
}

// TokenConfig names a tracked mint and the on-chain accounts to poll
// for it (pool plus vaults). A token without accounts is validated
// against external providers only.
type TokenConfig struct {
	Mint     string   `mapstructure:"mint"`
	Accounts []string `mapstructure:"accounts"`
}

type StoreConfig struct {
	FreshnessTTLSec  int `mapstructure:"freshness_ttl_sec"`
	GapMultiple      int `mapstructure:"gap_multiple"`
	HistoryCapacity  int `mapstructure:"history_capacity"`
	PersistQueueSize int `mapstructure:"persist_queue_size"`
}

type DecoderConfig struct {
	// PriceCeiling rejects sqrt-price candidates decoding to an
	// implausible SOL price.
	PriceCeiling float64 `mapstructure:"price_ceiling"`

	// Launch-curve exponent interpolation bounds.
	CurveExponentMin float64 `mapstructure:"curve_exponent_min"`
	CurveExponentMax float64 `mapstructure:"curve_exponent_max"`
}

type ConsensusConfig struct {
	MinSources   int     `mapstructure:"min_sources"`
	MaxDeviation float64 `mapstructure:"max_deviation"`
}

type ProviderConfig struct {
	DexScreenerEnabled   bool `mapstructure:"dexscreener_enabled"`
	GeckoTerminalEnabled bool `mapstructure:"geckoterminal_enabled"`
}

const (
	DefaultPollIntervalMS     = 1000
	DefaultValidateIntervalMS = 30000
	DefaultFreshnessTTLSec    = 30
	DefaultGapMultiple        = 10
	DefaultHistoryCapacity    = 1000
	DefaultPersistQueueSize   = 256
	DefaultPriceCeiling       = 1_000_000
	DefaultCurveExponentMin   = 1.0
	DefaultCurveExponentMax   = 3.0
	DefaultMinSources         = 2
	DefaultMaxDeviation       = 0.10
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"log_file":                       "logs/pricer.log",
		"poll_interval_ms":               DefaultPollIntervalMS,
		"validate_interval_ms":           DefaultValidateIntervalMS,
		"store.freshness_ttl_sec":        DefaultFreshnessTTLSec,
		"store.gap_multiple":             DefaultGapMultiple,
		"store.history_capacity":         DefaultHistoryCapacity,
		"store.persist_queue_size":       DefaultPersistQueueSize,
		"decoders.price_ceiling":         DefaultPriceCeiling,
		"decoders.curve_exponent_min":    DefaultCurveExponentMin,
		"decoders.curve_exponent_max":    DefaultCurveExponentMax,
		"consensus.min_sources":          DefaultMinSources,
		"consensus.max_deviation":        DefaultMaxDeviation,
		"providers.dexscreener_enabled":  true,
		"providers.geckoterminal_enabled": true,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

// PollInterval returns the account polling cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// ValidateInterval returns the consensus validation cadence.
func (c *Config) ValidateInterval() time.Duration {
	return time.Duration(c.ValidateIntervalMS) * time.Millisecond
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("missing rpc_url in configuration")
	}
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return errors.New("invalid RPC URL protocol")
	}
	if len(cfg.Tokens) == 0 {
		return errors.New("tokens list is empty")
	}
	for _, token := range cfg.Tokens {
		if token.Mint == "" {
			return errors.New("token entry is missing mint")
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.PollIntervalMS <= 0 {
		return errors.New("invalid poll_interval_ms")
	}
	if cfg.ValidateIntervalMS <= 0 {
		return errors.New("invalid validate_interval_ms")
	}
	if cfg.Store.FreshnessTTLSec <= 0 {
		return errors.New("invalid store.freshness_ttl_sec")
	}
	if cfg.Store.GapMultiple <= 0 {
		return errors.New("invalid store.gap_multiple")
	}
	if cfg.Decoders.PriceCeiling <= 0 {
		return errors.New("invalid decoders.price_ceiling")
	}
	if cfg.Decoders.CurveExponentMin <= 0 || cfg.Decoders.CurveExponentMax < cfg.Decoders.CurveExponentMin {
		return errors.New("invalid decoders curve exponent bounds")
	}
	if cfg.Consensus.MinSources <= 0 {
		return errors.New("invalid consensus.min_sources")
	}
	if cfg.Consensus.MaxDeviation <= 0 || cfg.Consensus.MaxDeviation >= 1 {
		return errors.New("invalid consensus.max_deviation")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("SOLANA_PRICER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envRPC := v.GetString("RPC_URL"); envRPC != "" {
		cfg.RPCURL = envRPC
	}
	if envPostgres := v.GetString("POSTGRES_URL"); envPostgres != "" {
		cfg.PostgresURL = envPostgres
	}

	// SOLANA_PRICER_TOKENS lists mints only; account sets still come
	// from the config file.
	if envTokens := v.GetString("TOKENS"); envTokens != "" {
		var clean []TokenConfig
		for _, token := range strings.Split(envTokens, ",") {
			if trimmed := strings.TrimSpace(token); trimmed != "" {
				clean = append(clean, TokenConfig{Mint: trimmed})
			}
		}
		if len(clean) > 0 {
			cfg.Tokens = clean
		}
	}
	return nil
}
