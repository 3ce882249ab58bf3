// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Database DatabaseConfig `mapstructure:"database"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Rewards  RewardsConfig  `mapstructure:"rewards"`
	Gate     GateConfig     `mapstructure:"gate"`
	Flow     FlowConfig     `mapstructure:"flow"`
	Server   ServerConfig   `mapstructure:"server"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token  string `mapstructure:"token"`
	Handle string `mapstructure:"handle"`
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
	IDs []string `mapstructure:"ids"`
}

// RewardsConfig holds the reward and withdrawal policy values.
type RewardsConfig struct {
	SpinWinMin         int64 `mapstructure:"spin_win_min"`
	SpinWinMax         int64 `mapstructure:"spin_win_max"`
	ReferralBonus      int64 `mapstructure:"referral_bonus"`
	MinWithdraw        int64 `mapstructure:"min_withdraw"`
	BonusCooldownHours int   `mapstructure:"bonus_cooldown_hours"`
}

// GateConfig holds channel membership gate configuration.
type GateConfig struct {
	CheckTimeout time.Duration `mapstructure:"check_timeout"`
}

// FlowConfig holds conversation flow configuration.
type FlowConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// ServerConfig holds the health endpoint configuration.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// BonusCooldown returns the daily bonus cooldown as a duration.
func (r *RewardsConfig) BonusCooldown() time.Duration {
	return time.Duration(r.BonusCooldownHours) * time.Hour
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// Environment variables use underscore separator and uppercase
	// e.g., BOT_TOKEN, DATABASE_HOST, REWARDS_MIN_WITHDRAW
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "spinbot")
	v.SetDefault("database.name", "spinbot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Reward policy defaults
	v.SetDefault("rewards.spin_win_min", 1000)
	v.SetDefault("rewards.spin_win_max", 10000)
	v.SetDefault("rewards.referral_bonus", 5000)
	v.SetDefault("rewards.min_withdraw", 100000)
	v.SetDefault("rewards.bonus_cooldown_hours", 24)

	// Gate and flow defaults
	v.SetDefault("gate.check_timeout", "5s")
	v.SetDefault("flow.ttl", "10m")

	// Health endpoint default
	v.SetDefault("server.port", 10000)
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Validate checks that required values are present.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("bot.token is required")
	}
	if c.Rewards.SpinWinMin <= 0 || c.Rewards.SpinWinMax < c.Rewards.SpinWinMin {
		return fmt.Errorf("invalid spin win range [%d, %d]", c.Rewards.SpinWinMin, c.Rewards.SpinWinMax)
	}
	if c.Rewards.MinWithdraw <= 0 {
		return fmt.Errorf("rewards.min_withdraw must be positive")
	}
	return nil
}
