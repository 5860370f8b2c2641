package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

/* Config is read from .env (toml) when present, then from the environment */

type Config struct {
	Port          string `mapstructure:"PORT"`
	EndpointsFile string `mapstructure:"ENDPOINTS_FILE"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	PostgresDSN                string `mapstructure:"POSTGRES_DSN"`
	PostgresMaxOpenConns       int    `mapstructure:"POSTGRES_MAX_OPEN_CONNS"`
	PostgresMaxIdleConns       int    `mapstructure:"POSTGRES_MAX_IDLE_CONNS"`
	PostgresConnMaxLifeMinutes int    `mapstructure:"POSTGRES_CONN_MAX_LIFE_MINUTES"`

	// RetentionDays is kept raw; it is validated when the sweep runs
	RetentionDays string `mapstructure:"RETENTION_DAYS"`
	MaxUploadMB   int64  `mapstructure:"MAX_UPLOAD_MB"`
	EventSinkURL  string `mapstructure:"EVENT_SINK_URL"`
	WorkerID      string `mapstructure:"WORKER_ID"`
	LogJSON       bool   `mapstructure:"LOG_JSON"`
}

var defaults = map[string]any{
	"PORT":                           "8080",
	"ENDPOINTS_FILE":                 "endpoints.yaml",
	"REDIS_ADDR":                     "localhost:6379",
	"REDIS_PASSWORD":                 "",
	"REDIS_DB":                       0,
	"POSTGRES_DSN":                   "",
	"POSTGRES_MAX_OPEN_CONNS":        25,
	"POSTGRES_MAX_IDLE_CONNS":        5,
	"POSTGRES_CONN_MAX_LIFE_MINUTES": 5,
	"RETENTION_DAYS":                 "30",
	"MAX_UPLOAD_MB":                  32,
	"EVENT_SINK_URL":                 "",
	"WORKER_ID":                      "",
	"LOG_JSON":                       true,
}

// GetConfig reads .env from the working directory and the environment
func GetConfig() (*Config, error) {
	return Load(".")
}

// Load reads <dir>/.env when present. Environment variables win over the file.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &config, nil
}

// MaxUploadBytes returns the multipart memory limit
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Retention returns the raw retention window; "null" means never prune.
// An empty RETENTION_DAYS in the environment is ignored and the default applies.
func (c *Config) Retention() any {
	return c.RetentionDays
}
