// Package config loads clustering configuration from YAML with environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/validation"
)

// Environment variables that override file values.
const (
	EnvLogLevel    = "LOG_LEVEL"
	EnvDatabaseURL = "LOUVAIN_DATABASE_URL"
	EnvJWTSecret   = "LOUVAIN_JWT_SECRET"
	EnvWorkers     = "LOUVAIN_WORKERS"
	EnvS3AccessKey = "LOUVAIN_S3_ACCESS_KEY_ID"
	EnvS3SecretKey = "LOUVAIN_S3_SECRET_ACCESS_KEY"
)

// MinJWTSecretLength matches the minimum HMAC key length accepted by pkg/auth.
const MinJWTSecretLength = 32

// Config is the full configuration of the louvain commands.
type Config struct {
	Louvain  LouvainConfig  `yaml:"louvain"`
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	S3       S3Config       `yaml:"s3"`
	Database DatabaseConfig `yaml:"database"`
	Events   EventsConfig   `yaml:"events"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LouvainConfig maps onto algorithms.LouvainOptions.
type LouvainConfig struct {
	Epsilon             float64 `yaml:"epsilon" validate:"min=0"`
	MaxPassesPerLevel   int     `yaml:"max_passes_per_level" validate:"min=1"`
	TruncateOnPassBound bool    `yaml:"truncate_on_pass_bound"`
	Workers             int     `yaml:"workers" validate:"min=0,max=1024"`
	BatchSize           int     `yaml:"batch_size" validate:"min=0"`
}

type InputConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format" validate:"omitempty,oneof=edgelist ncol"`
}

// OutputConfig names report destinations. "-" is stdout, empty disables.
type OutputConfig struct {
	Levels   string `yaml:"levels"`
	Clusters string `yaml:"clusters"`
	JSON     string `yaml:"json"`
	Summary  bool   `yaml:"summary"`
}

type SnapshotConfig struct {
	Path string `yaml:"path"`
}

// S3Config configures snapshot upload. Static keys are optional; without
// them the default AWS credential chain is used.
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint" validate:"omitempty,url"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	MaxConns       int32         `yaml:"max_conns" validate:"min=0"`
	MinConns       int32         `yaml:"min_conns" validate:"min=0"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// EventsConfig configures the mangos publisher, e.g. tcp://127.0.0.1:40899.
type EventsConfig struct {
	URL string `yaml:"url"`
}

type ServerConfig struct {
	Listen           string        `yaml:"listen" validate:"required"`
	AlgorithmTimeout time.Duration `yaml:"algorithm_timeout"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes" validate:"min=1"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Louvain: LouvainConfig{
			Epsilon:           algorithms.DefaultEpsilon,
			MaxPassesPerLevel: algorithms.DefaultMaxPassesPerLevel,
			Workers:           1,
		},
		Input:  InputConfig{Format: "edgelist"},
		Output: OutputConfig{Levels: "-"},
		Database: DatabaseConfig{
			MaxConns:       10,
			MinConns:       1,
			ConnectTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Listen:           ":8080",
			AlgorithmTimeout: 60 * time.Second,
			MaxBodyBytes:     64 << 20,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     90 * time.Second,
		},
		Auth: AuthConfig{TokenTTL: 24 * time.Hour},
		Log:  LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults, applies environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without touching the environment.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides file values from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv(EnvS3AccessKey); v != "" {
		c.S3.AccessKeyID = v
	}
	if v := os.Getenv(EnvS3SecretKey); v != "" {
		c.S3.SecretAccessKey = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvWorkers, v, err)
		}
		c.Louvain.Workers = n
	}
	return nil
}

// Validate checks struct tags first, then cross-field rules.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	err := validation.NewConfigValidator("config").
		FiniteNonNegativeFloat("louvain.epsilon", c.Louvain.Epsilon).
		When(c.S3.Enabled, func(cv *validation.ConfigValidator) {
			cv.Required("s3.bucket", c.S3.Bucket)
			cv.Required("s3.region", c.S3.Region)
			cv.Custom("s3.secret_access_key", func() error {
				if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
					return fmt.Errorf("access_key_id and secret_access_key must be set together")
				}
				return nil
			})
		}).
		When(c.Database.URL != "", func(cv *validation.ConfigValidator) {
			cv.Custom("database.min_conns", func() error {
				if c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
					return fmt.Errorf("min_conns %d exceeds max_conns %d", c.Database.MinConns, c.Database.MaxConns)
				}
				return nil
			})
		}).
		When(c.Auth.JWTSecret != "", func(cv *validation.ConfigValidator) {
			cv.MinLen("auth.jwt_secret", c.Auth.JWTSecret, MinJWTSecretLength)
		}).
		RangeDuration("server.algorithm_timeout", c.Server.AlgorithmTimeout, time.Second, 24*time.Hour).
		Validate()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LouvainOptions converts the louvain section into algorithm options.
func (c *Config) LouvainOptions() algorithms.LouvainOptions {
	opts := algorithms.DefaultLouvainOptions()
	opts.Epsilon = c.Louvain.Epsilon
	opts.MaxPassesPerLevel = c.Louvain.MaxPassesPerLevel
	opts.TruncateOnPassBound = c.Louvain.TruncateOnPassBound
	opts.Workers = c.Louvain.Workers
	opts.BatchSize = c.Louvain.BatchSize
	return opts
}

// LogLevel returns the configured log level.
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}
