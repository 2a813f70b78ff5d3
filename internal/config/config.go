// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Log       LogConfig       `mapstructure:"log"`
	Program   ProgramConfig   `mapstructure:"program"`
	Pool      PoolConfig      `mapstructure:"pool"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ProgramConfig identifies the staking program and its token units.
type ProgramConfig struct {
	ID          string        `mapstructure:"id"`
	Decimals    int32         `mapstructure:"decimals"`
	FaucetLimit uint64        `mapstructure:"faucet_limit"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// PoolConfig holds the parameters the pool is initialized with.
// Rates are basis points. Empty mints are derived from the program id.
type PoolConfig struct {
	DailyRate     uint64 `mapstructure:"daily_rate"`
	MaxMultiplier uint64 `mapstructure:"max_multiplier"`
	MinStake      uint64 `mapstructure:"min_stake"`
	DirectBonus   uint64 `mapstructure:"direct_bonus"`
	IndirectBonus uint64 `mapstructure:"indirect_bonus"`
	StakeMint     string `mapstructure:"stake_mint"`
	RewardMint    string `mapstructure:"reward_mint"`
	MemeMint      string `mapstructure:"meme_mint"`
}

// SchedulerConfig holds the auto-release sweep configuration.
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Spec    string `mapstructure:"spec"`
}

// MetricsConfig holds the prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// ProgramID parses the configured program id.
func (p *ProgramConfig) ProgramID() (solana.PublicKey, error) {
	id, err := solana.PublicKeyFromBase58(p.ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program id %q: %w", p.ID, err)
	}
	return id, nil
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_HOST, POOL_DAILY_RATE
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional, env vars can provide all config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "staking")
	v.SetDefault("database.name", "staking")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("log.level", "info")

	v.SetDefault("program.id", "F3VhG4T9RboKvcZ8T17U8tFUT1cVr8s5jaEErvEupL7S")
	v.SetDefault("program.decimals", 6)
	v.SetDefault("program.faucet_limit", 10_000_000_000)
	v.SetDefault("program.lock_timeout", "5s")

	v.SetDefault("pool.daily_rate", 3000)
	v.SetDefault("pool.max_multiplier", 15000)
	v.SetDefault("pool.min_stake", 100)
	v.SetDefault("pool.direct_bonus", 3000)
	v.SetDefault("pool.indirect_bonus", 1000)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.spec", "0 0 0 * * *")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if _, err := c.Program.ProgramID(); err != nil {
		return err
	}
	if c.Program.Decimals < 0 || c.Program.Decimals > 18 {
		return fmt.Errorf("program.decimals out of range: %d", c.Program.Decimals)
	}
	if c.Scheduler.Enabled && c.Scheduler.Spec == "" {
		return errors.New("scheduler.spec is required when the scheduler is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics.addr is required when metrics are enabled")
	}
	return nil
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Admin.IDs, userID)
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	return slices.Contains(c.Whitelist.Chats, chatID)
}
