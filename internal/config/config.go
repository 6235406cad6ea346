// Package config loads service settings from defaults, an optional YAML
// file and POLARITY_ environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zombar/arpolarity/internal/database"
)

// EnvPrefix is prepended to every environment variable, e.g.
// POLARITY_SERVER_PORT for server.port.
const EnvPrefix = "POLARITY"

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	MaxBatchSize    int           `mapstructure:"max_batch_size"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`
	// DSN is a file path for sqlite or a connection string for postgres.
	DSN           string        `mapstructure:"dsn"`
	StatsInterval time.Duration `mapstructure:"stats_interval"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WorkerConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	AnalysisWorkers int           `mapstructure:"analysis_workers"`
	MaxRetry        int           `mapstructure:"max_retry"`
	TaskTimeout     time.Duration `mapstructure:"task_timeout"`
	// MetricsPort serves /metrics from the worker; 0 disables it.
	MetricsPort int `mapstructure:"metrics_port"`
}

type LexiconConfig struct {
	// Path is the lexicon CSV with term and polarity columns.
	Path string `mapstructure:"path"`
	// StopWords is a word-per-line file; empty uses the built-in list.
	StopWords string `mapstructure:"stop_words"`
}

type TracingConfig struct {
	ServiceName string `mapstructure:"service_name"`
	// Endpoint is the OTLP/gRPC collector address; empty disables export.
	Endpoint string `mapstructure:"endpoint"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Lexicon  LexiconConfig  `mapstructure:"lexicon"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.query_timeout", 30*time.Second)
	v.SetDefault("server.max_batch_size", 10000)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.driver", database.DriverSQLite)
	v.SetDefault("database.dsn", "arpolarity.db")
	v.SetDefault("database.stats_interval", 15*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.analysis_workers", 0)
	v.SetDefault("worker.max_retry", 3)
	v.SetDefault("worker.task_timeout", 10*time.Minute)
	v.SetDefault("worker.metrics_port", 9091)

	v.SetDefault("lexicon.path", "lexicon.csv")
	v.SetDefault("lexicon.stop_words", "")

	v.SetDefault("tracing.service_name", "arpolarity")
	v.SetDefault("tracing.endpoint", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// New returns a viper instance with defaults and environment binding set,
// reading path when it is not empty.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// Decode unmarshals v into a Config and validates it.
func Decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Load reads the optional file at path and the environment.
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// Validate checks that settings are usable together
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxBatchSize <= 0 {
		errs = append(errs, errors.New("server.max_batch_size must be positive"))
	}
	switch c.Database.Driver {
	case database.DriverSQLite, database.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be %q or %q",
			c.Database.Driver, database.DriverSQLite, database.DriverPostgres))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Worker.Concurrency <= 0 {
		errs = append(errs, errors.New("worker.concurrency must be positive"))
	}
	if c.Worker.MetricsPort < 0 || c.Worker.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("worker.metrics_port %d out of range", c.Worker.MetricsPort))
	}
	if c.Worker.MaxRetry < 0 {
		errs = append(errs, errors.New("worker.max_retry must not be negative"))
	}
	if c.Lexicon.Path == "" {
		errs = append(errs, errors.New("lexicon.path is required"))
	}

	return errors.Join(errs...)
}
