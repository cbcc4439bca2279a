package config

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Journal  Journal  `mapstructure:"journal"`
	Backup   Backup   `mapstructure:"backup"`
	Client   Client   `mapstructure:"client"`
}

// Server holds the configuration for the journal HTTP server.
type Server struct {
	Port            int `mapstructure:"port"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // seconds
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Journal holds the trade normalization settings.
type Journal struct {
	// ComputeROI enables investment auto-derivation and ROI.
	ComputeROI bool `mapstructure:"compute_roi"`
}

// Backup holds the configuration for periodic JSON snapshots.
type Backup struct {
	Enabled         bool   `mapstructure:"enabled"`
	Dir             string `mapstructure:"dir"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
}

// Client holds the configuration the CLI uses to reach the server.
type Client struct {
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func (s Server) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

func (b Backup) Interval() time.Duration {
	return time.Duration(b.IntervalSeconds) * time.Second
}

func (c Client) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig reads config.yml from path, a .env file next to it, and
// environment variables. A missing config file is not an error.
func LoadConfig(path string) (config Config, err error) {
	// .env is optional
	_ = godotenv.Load(filepath.Join(path, ".env"))

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.SetEnvPrefix("journal")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10)
	v.SetDefault("database.dsn", "journal.db")
	v.SetDefault("journal.compute_roi", true)
	v.SetDefault("backup.enabled", false)
	v.SetDefault("backup.dir", "backups")
	v.SetDefault("backup.interval_seconds", 300)
	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.rate_limit", 10) // requests per second
	v.SetDefault("client.rate_limit_burst", 5)
	v.SetDefault("client.timeout_seconds", 10)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
