package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application. Every heuristic
// threshold the analytics engines use lives here so it can be tuned
// and tested independently of the algorithms.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Crypto    CryptoConfig    `mapstructure:"crypto"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds the local HTTP facade settings. The default bind
// address is loopback: the facade is an on-device interface, not a
// network service.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// StoreConfig locates the on-device data directory.
type StoreConfig struct {
	Dir string `mapstructure:"dir"`
}

// DatabasePath is the SQLite file inside the data directory.
func (s StoreConfig) DatabasePath() string {
	return filepath.Join(s.Dir, "journal.db")
}

// CryptoConfig selects the key source. An empty passphrase means a
// random device-held key file; otherwise the key is derived from the
// passphrase.
type CryptoConfig struct {
	Passphrase string `mapstructure:"passphrase"`
}

// AnalyticsConfig carries the tunable thresholds for every insight
// engine. The numeric defaults are heuristic placeholders, not
// clinically validated constants.
type AnalyticsConfig struct {
	SeverityScaleMax float64 `mapstructure:"severity_scale_max"`

	CrisisWindowDays int     `mapstructure:"crisis_window_days"`
	CrisisRatio      float64 `mapstructure:"crisis_ratio"`
	CrisisMinDelta   float64 `mapstructure:"crisis_min_delta"`

	TrendLookbackDays   int     `mapstructure:"trend_lookback_days"`
	TrendMinPoints      int     `mapstructure:"trend_min_points"`
	AnomalyStdDevFactor float64 `mapstructure:"anomaly_stddev_factor"`

	PredictionWindow  int `mapstructure:"prediction_window"`
	WeekdayMinSamples int `mapstructure:"weekday_min_samples"`

	MinCellCount int `mapstructure:"min_cell_count"`
	MinSupport   int `mapstructure:"min_support"`
	MinPairCount int `mapstructure:"min_pair_count"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables and an optional
// config file.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8787")
	v.SetDefault("server.env", "development")
	v.SetDefault("store.dir", ".quill")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("analytics.severity_scale_max", 10.0)
	v.SetDefault("analytics.crisis_window_days", 7)
	v.SetDefault("analytics.crisis_ratio", 1.2)
	v.SetDefault("analytics.crisis_min_delta", 2.0)
	v.SetDefault("analytics.trend_lookback_days", 30)
	v.SetDefault("analytics.trend_min_points", 3)
	v.SetDefault("analytics.anomaly_stddev_factor", 2.0)
	v.SetDefault("analytics.prediction_window", 7)
	v.SetDefault("analytics.weekday_min_samples", 3)
	v.SetDefault("analytics.min_cell_count", 3)
	v.SetDefault("analytics.min_support", 3)
	v.SetDefault("analytics.min_pair_count", 3)

	v.SetEnvPrefix("QUILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("server.port", "PORT")
	v.BindEnv("store.dir", "QUILL_DATA_DIR")
	v.BindEnv("crypto.passphrase", "QUILL_PASSPHRASE")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// It's okay if the config file doesn't exist
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Store.Dir == "" {
		return fmt.Errorf("store.dir is required")
	}
	a := c.Analytics
	if a.SeverityScaleMax <= 0 {
		return fmt.Errorf("analytics.severity_scale_max must be positive")
	}
	if a.CrisisRatio < 1 {
		return fmt.Errorf("analytics.crisis_ratio must be >= 1")
	}
	if a.CrisisMinDelta < 0 {
		return fmt.Errorf("analytics.crisis_min_delta must not be negative")
	}
	if a.CrisisWindowDays <= 0 || a.TrendLookbackDays <= 0 {
		return fmt.Errorf("analytics lookback windows must be positive")
	}
	if a.TrendMinPoints < 2 {
		return fmt.Errorf("analytics.trend_min_points must be at least 2")
	}
	if a.PredictionWindow < 2 {
		return fmt.Errorf("analytics.prediction_window must be at least 2")
	}
	if a.MinCellCount < 1 || a.MinSupport < 1 || a.MinPairCount < 1 {
		return fmt.Errorf("analytics minimum counts must be at least 1")
	}
	return nil
}
