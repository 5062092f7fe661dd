// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all engine configuration.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Exchange    ExchangeConfig    `mapstructure:"exchange"`
	Rating      RatingConfig      `mapstructure:"rating"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
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

// ExchangeConfig holds Grand Exchange configuration.
type ExchangeConfig struct {
	MaxActiveOrders int           `mapstructure:"max_active_orders"`
	BuyLimitWindow  time.Duration `mapstructure:"buy_limit_window"`
	StartingCoins   int64         `mapstructure:"starting_coins"`
}

// RatingConfig holds the battle rating model parameters.
type RatingConfig struct {
	Initial            float64 `mapstructure:"initial"`
	InitialUncertainty float64 `mapstructure:"initial_uncertainty"`
	MinUncertainty     float64 `mapstructure:"min_uncertainty"`
	MaxUncertainty     float64 `mapstructure:"max_uncertainty"`
	KFactor            float64 `mapstructure:"k_factor"`
	UncertaintyDecay   float64 `mapstructure:"uncertainty_decay"`
	InactivityGrowth   float64 `mapstructure:"inactivity_growth"`
}

// MaintenanceConfig holds the uncertainty-decay pass configuration.
type MaintenanceConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	InactivityPeriod time.Duration `mapstructure:"inactivity_period"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
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

	// Environment variables use underscore separator and uppercase,
	// e.g. DATABASE_HOST, RATING_K_FACTOR.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars can provide all config
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gameengine")
	v.SetDefault("database.name", "gameengine")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("exchange.max_active_orders", 8)
	v.SetDefault("exchange.buy_limit_window", "4h")
	v.SetDefault("exchange.starting_coins", 25)

	v.SetDefault("rating.initial", 1500)
	v.SetDefault("rating.initial_uncertainty", 350)
	v.SetDefault("rating.min_uncertainty", 50)
	v.SetDefault("rating.max_uncertainty", 350)
	v.SetDefault("rating.k_factor", 32)
	v.SetDefault("rating.uncertainty_decay", 0.95)
	v.SetDefault("rating.inactivity_growth", 1.1)

	v.SetDefault("maintenance.interval", "1h")
	v.SetDefault("maintenance.inactivity_period", "168h")
}
