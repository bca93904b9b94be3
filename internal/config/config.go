package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type SourceConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Database           string `yaml:"database"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Schema             string `yaml:"schema"`
	StatementTimeoutMs int    `yaml:"statement_timeout_ms"`
}

type SinkConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Database   string `yaml:"database"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Table      string `yaml:"table"`
	NoTLS      bool   `yaml:"no_tls"`
	VerifyCert bool   `yaml:"verify_cert"`
}

type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	DelayMs     int `yaml:"delay_ms"`
}

type SeedConfig struct {
	ProcessedDataDir string `yaml:"processed_data_dir"`
	BatchSize        int    `yaml:"batch_size"`
}

type Config struct {
	Source    SourceConfig `yaml:"source"`
	Sink      SinkConfig   `yaml:"sink"`
	Retry     RetryConfig  `yaml:"retry"`
	Seed      SeedConfig   `yaml:"seed"`
	BatchSize int          `yaml:"batch_size"`
}

func (r RetryConfig) Delay() time.Duration {
	return time.Duration(r.DelayMs) * time.Millisecond
}

func LoadFromEnv() (Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		return Config{}, errors.New("CONFIG_PATH is not set")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&c)
	applyDefaults(&c)
	return c, nil
}

// applyEnvOverrides lets credentials and the batch size come from the
// environment instead of the config file.
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("SOURCE_HOST"); v != "" {
		c.Source.Host = v
	}
	if v := os.Getenv("SOURCE_USER"); v != "" {
		c.Source.User = v
	}
	if v := os.Getenv("SOURCE_PASSWORD"); v != "" {
		c.Source.Password = v
	}
	if v := os.Getenv("SINK_HOST"); v != "" {
		c.Sink.Host = v
	}
	if v := os.Getenv("SINK_USER"); v != "" {
		c.Sink.User = v
	}
	if v := os.Getenv("SINK_PASSWORD"); v != "" {
		c.Sink.Password = v
	}
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.BatchSize = n
		}
	}
}

func applyDefaults(c *Config) {
	if c.BatchSize <= 0 {
		c.BatchSize = 15000
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.DelayMs <= 0 {
		c.Retry.DelayMs = 5000
	}
	if c.Source.Port <= 0 {
		c.Source.Port = 5432
	}
	if c.Source.Schema == "" {
		c.Source.Schema = "private_schema"
	}
	if c.Source.StatementTimeoutMs <= 0 {
		c.Source.StatementTimeoutMs = 600000
	}
	if c.Sink.Port <= 0 {
		c.Sink.Port = 9440
	}
	if c.Sink.Table == "" {
		c.Sink.Table = "grupox"
	}
	if c.Seed.ProcessedDataDir == "" {
		c.Seed.ProcessedDataDir = "data/processed"
	}
	if c.Seed.BatchSize <= 0 {
		c.Seed.BatchSize = 25000
	}
}
