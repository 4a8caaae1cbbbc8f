// =============================
// File: internal/config/config.go
// =============================
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration, loaded once at startup and passed
// by value into constructors.
type Config struct {
	RPC      RPCConfig      `mapstructure:"rpc"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Trade    TradeConfig    `mapstructure:"trade"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type RPCConfig struct {
	URL string `mapstructure:"url"`
}

type WalletConfig struct {
	// PrivateKey is the base58-encoded 64-byte signing key. Environment-only
	// in practice; never commit it to a config file.
	PrivateKey string `mapstructure:"private_key"`
}

type TradeConfig struct {
	// FeeRecipient is the platform account fees are routed to.
	FeeRecipient string `mapstructure:"fee_recipient"`

	ComputeUnitLimit uint32 `mapstructure:"compute_unit_limit"`
	ComputeUnitPrice uint64 `mapstructure:"compute_unit_price"`
	SkipPreflight    bool   `mapstructure:"skip_preflight"`

	// SnapshotTTL is the freshness window for cached chain snapshots.
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type ThrottleConfig struct {
	// MinDelay is the enforced pause between consecutive read requests.
	MinDelay time.Duration `mapstructure:"min_delay"`
	// QueueCapacity bounds the number of waiting read requests.
	QueueCapacity int `mapstructure:"queue_capacity"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load reads configuration from the given file (optional) with LAUNCHPAD_
// environment overrides, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LAUNCHPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc.url", "https://api.mainnet-beta.solana.com")

	// Empty defaults register the keys so environment overrides reach
	// Unmarshal.
	v.SetDefault("wallet.private_key", "")
	v.SetDefault("trade.fee_recipient", "")

	v.SetDefault("trade.compute_unit_limit", 200_000)
	v.SetDefault("trade.compute_unit_price", 1_000)
	v.SetDefault("trade.skip_preflight", false)
	v.SetDefault("trade.snapshot_ttl", 5*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 10*time.Minute)

	v.SetDefault("throttle.min_delay", 200*time.Millisecond)
	v.SetDefault("throttle.queue_capacity", 64)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "logs/launchpad.log")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
}

func validateConfig(cfg *Config) error {
	if cfg.RPC.URL == "" {
		return fmt.Errorf("rpc.url is required")
	}
	if cfg.Wallet.PrivateKey == "" {
		return fmt.Errorf("wallet.private_key is required (set LAUNCHPAD_WALLET_PRIVATE_KEY)")
	}
	if cfg.Trade.FeeRecipient == "" {
		return fmt.Errorf("trade.fee_recipient is required")
	}
	if cfg.Throttle.MinDelay <= 0 {
		return fmt.Errorf("throttle.min_delay must be positive")
	}
	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}
