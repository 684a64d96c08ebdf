package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/project-koku/parquet-compactor/internal/errors"
)

// StoreConfig holds object store connection configuration
type StoreConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Bucket     string `yaml:"bucket"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Insecure   bool   `yaml:"insecure"`
	DataPrefix string `yaml:"data_prefix"`
}

// CompactionConfig holds compaction tuning configuration
type CompactionConfig struct {
	TargetFileSizeGB        float64  `yaml:"target_file_size_gb"`
	ChunkRows               int      `yaml:"chunk_rows"`
	SkipCurrentMonthSources []string `yaml:"skip_current_month_sources"`
	Workers                 int      `yaml:"workers"`
}

// TargetByteBudget returns the output size budget in bytes
func (c CompactionConfig) TargetByteBudget() int64 {
	return int64(c.TargetFileSizeGB * float64(1<<30))
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config represents the complete configuration for the compactor
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Compaction CompactionConfig `yaml:"compaction"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoadConfig loads configuration from a file and the environment. The file
// is optional: containerized deployments drive everything through
// environment variables, which always take precedence over file values
func LoadConfig(filePath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(filePath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, apperrors.ConfigError("failed to parse config file", err)
		}
	case os.IsNotExist(err):
		fmt.Printf("Warning: Could not read config file %s. Using defaults and environment variables.\n", filePath)
	default:
		return nil, apperrors.ConfigError("failed to read config file", err)
	}

	// Set defaults if not specified
	setDefaults(&cfg)

	// Override with environment variables (these take precedence)
	applyEnvironmentOverrides(&cfg)

	normalize(&cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.ConfigError("invalid configuration", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) {
	if cfg.Store.Endpoint == "" {
		cfg.Store.Endpoint = "s3.us-east-1.amazonaws.com"
	}
	if cfg.Store.DataPrefix == "" {
		cfg.Store.DataPrefix = "data/parquet/"
	}

	if cfg.Compaction.TargetFileSizeGB == 0 {
		cfg.Compaction.TargetFileSizeGB = 0.3
	}
	if cfg.Compaction.ChunkRows == 0 {
		cfg.Compaction.ChunkRows = 1000000
	}
	if cfg.Compaction.SkipCurrentMonthSources == nil {
		cfg.Compaction.SkipCurrentMonthSources = []string{"AWS", "Azure"}
	}
	if cfg.Compaction.Workers == 0 {
		cfg.Compaction.Workers = 1
	}

	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9090"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// applyEnvironmentOverrides applies environment variable overrides to config
func applyEnvironmentOverrides(cfg *Config) {
	// Object store configuration
	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		cfg.Store.Endpoint = endpoint
	}
	if bucket := os.Getenv("REQUESTED_BUCKET"); bucket != "" {
		cfg.Store.Bucket = bucket
	}
	if bucket := os.Getenv("S3_BUCKET_NAME"); bucket != "" {
		cfg.Store.Bucket = bucket
	}
	if prefix := os.Getenv("S3_DATA_PREFIX"); prefix != "" {
		cfg.Store.DataPrefix = prefix
	}
	if accessKey := os.Getenv("AWS_ACCESS_KEY_ID"); accessKey != "" {
		cfg.Store.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY"); secretKey != "" {
		cfg.Store.SecretKey = secretKey
	}

	// Compaction configuration
	if size := os.Getenv("TARGET_FILE_SIZE_GB"); size != "" {
		if v, err := strconv.ParseFloat(size, 64); err == nil {
			cfg.Compaction.TargetFileSizeGB = v
		}
	}
	if sources := os.Getenv("SKIP_SOURCE_TYPE_CURRENT_MONTH"); sources != "" {
		parts := strings.Split(sources, ",")
		labels := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				labels = append(labels, p)
			}
		}
		cfg.Compaction.SkipCurrentMonthSources = labels
	}
	if workers := os.Getenv("COMPACTION_WORKERS"); workers != "" {
		if v, err := strconv.Atoi(workers); err == nil {
			cfg.Compaction.Workers = v
		}
	}

	// Logging configuration
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}

// normalize fixes up values whose shape is implied rather than enforced
func normalize(cfg *Config) {
	if cfg.Store.DataPrefix != "" && !strings.HasSuffix(cfg.Store.DataPrefix, "/") {
		cfg.Store.DataPrefix += "/"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Store.Bucket == "" {
		return fmt.Errorf("store.bucket is required")
	}
	if c.Compaction.TargetFileSizeGB <= 0 {
		return fmt.Errorf("compaction.target_file_size_gb must be positive")
	}
	if c.Compaction.ChunkRows <= 0 {
		return fmt.Errorf("compaction.chunk_rows must be positive")
	}
	if c.Compaction.Workers < 1 {
		return fmt.Errorf("compaction.workers must be at least 1")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console")
	}
	return nil
}
