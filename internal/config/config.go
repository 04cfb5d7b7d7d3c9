package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/soltixdb/brutlag/internal/aggregation"
	"github.com/soltixdb/brutlag/internal/analytics/anomaly"
	"github.com/soltixdb/brutlag/internal/analytics/forecast"
	"github.com/soltixdb/brutlag/internal/compression"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Detector DetectorConfig `mapstructure:"detector"`
	Forecast ForecastConfig `mapstructure:"forecast"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Reports  ReportsConfig  `mapstructure:"reports"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort        int           `mapstructure:"http_port"` // HTTP server port
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	BodyLimit       int           `mapstructure:"body_limit"` // Max request body in bytes
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DetectorConfig holds the Brutlag detector defaults used when a request
// does not supply its own parameters
type DetectorConfig struct {
	Period        int     `mapstructure:"period"`
	Gamma         float64 `mapstructure:"gamma"`
	ScalingFactor float64 `mapstructure:"scaling_factor"`
	WarmupSkip    int     `mapstructure:"warmup_skip"` // -1 uses period

	Algorithm string  `mapstructure:"algorithm"` // brutlag, zscore
	Threshold float64 `mapstructure:"threshold"` // zscore standard deviations
}

// ForecastConfig holds the forecasting model defaults
type ForecastConfig struct {
	Method         string  `mapstructure:"method"` // holt_winters, exponential
	Alpha          float64 `mapstructure:"alpha"`
	Beta           float64 `mapstructure:"beta"`
	Gamma          float64 `mapstructure:"gamma"`
	SeasonalPeriod int     `mapstructure:"seasonal_period"`
	Trend          string  `mapstructure:"trend"`    // additive, none
	Seasonal       string  `mapstructure:"seasonal"` // additive, multiplicative
	Damping        float64 `mapstructure:"damping"`
	Horizon        int     `mapstructure:"horizon"`
	Confidence     float64 `mapstructure:"confidence"`
}

// DatasetConfig controls CSV loading for the command-line tool
type DatasetConfig struct {
	TrainSize   float64 `mapstructure:"train_size"`
	Scale       float64 `mapstructure:"scale"`
	TimeLayout  string  `mapstructure:"time_layout"`
	TimeColumn  string  `mapstructure:"time_column"`
	ValueColumn string  `mapstructure:"value_column"`

	// Optional roll-up before detection, e.g. daily rows into monthly totals
	Resample    string `mapstructure:"resample"`    // "", 1h, 1d, 1M, 1y
	Aggregation string `mapstructure:"aggregation"` // sum, avg, min, max, count, first, last
	Timezone    string `mapstructure:"timezone"`    // IANA zone for bucket boundaries
}

// ReportsConfig represents report storage configuration
type ReportsConfig struct {
	Backend     string `mapstructure:"backend"`     // file, sqlite, memory
	DataDir     string `mapstructure:"data_dir"`    // Directory for report files or the SQLite database
	Compression string `mapstructure:"compression"` // none, snappy, lz4, zstd
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// QueueConfig represents anomaly event publishing configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: none (default), nats, redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication
	Subject  string `mapstructure:"subject"`  // Subject, stream or topic for anomaly events

	// Analysis requests consumed by the worker; an empty subject disables it
	RequestSubject string `mapstructure:"request_subject"`
	ConsumerGroup  string `mapstructure:"consumer_group"`

	// Redis-specific options
	RedisDB     int    `mapstructure:"redis_db"`     // Redis database number (default: 0)
	RedisStream string `mapstructure:"redis_stream"` // Redis stream prefix (default: "brutlag")

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"` // Kafka broker addresses
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, UnixMs, etc
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("detector config: %w", err)
	}

	if err := c.Forecast.Validate(); err != nil {
		return fmt.Errorf("forecast config: %w", err)
	}

	if err := c.Dataset.Validate(); err != nil {
		return fmt.Errorf("dataset config: %w", err)
	}

	if err := c.Reports.Validate(); err != nil {
		return fmt.Errorf("reports config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics config: path must start with '/', got %q", c.Metrics.Path)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.BodyLimit < 0 {
		return fmt.Errorf("body_limit cannot be negative")
	}

	return nil
}

// Validate validates auth configuration
func (c *AuthConfig) Validate() error {
	if c.Enabled && len(c.APIKeys) == 0 {
		return fmt.Errorf("api_keys required when auth is enabled")
	}
	return nil
}

// Brutlag converts the section into detector parameters
func (c *DetectorConfig) Brutlag() anomaly.BrutlagConfig {
	warmup := c.WarmupSkip
	if warmup < 0 {
		warmup = c.Period
	}
	return anomaly.BrutlagConfig{
		Period:        c.Period,
		Gamma:         c.Gamma,
		ScalingFactor: c.ScalingFactor,
		WarmupSkip:    warmup,
	}
}

// Options converts the section into registry detector options
func (c *DetectorConfig) Options() anomaly.DetectorConfig {
	opts := anomaly.DefaultConfig()
	opts.Brutlag = c.Brutlag()
	if c.Threshold > 0 {
		opts.Threshold = c.Threshold
	}
	return opts
}

// Validate validates detector configuration
func (c *DetectorConfig) Validate() error {
	if err := c.Brutlag().Validate(); err != nil {
		return err
	}
	if c.Algorithm != "" {
		if _, err := anomaly.GetDetector(c.Algorithm); err != nil {
			return fmt.Errorf("detector.algorithm: %w", err)
		}
	}
	if math.IsNaN(c.Threshold) || c.Threshold < 0 {
		return fmt.Errorf("detector.threshold cannot be negative, got %v", c.Threshold)
	}
	return nil
}

// Options converts the section into forecaster options
func (c *ForecastConfig) Options() forecast.ForecastConfig {
	opts := forecast.DefaultForecastConfig()
	opts.Alpha = c.Alpha
	opts.Beta = c.Beta
	opts.Gamma = c.Gamma
	opts.SeasonalPeriod = c.SeasonalPeriod
	opts.Trend = forecast.TrendMode(c.Trend)
	opts.Seasonal = forecast.SeasonalMode(c.Seasonal)
	opts.Damping = c.Damping
	opts.Horizon = c.Horizon
	opts.Confidence = c.Confidence
	return opts
}

// Validate validates forecast configuration
func (c *ForecastConfig) Validate() error {
	if _, err := forecast.GetForecaster(c.Method); err != nil {
		return fmt.Errorf("forecast.method: %w", err)
	}

	for name, v := range map[string]float64{"alpha": c.Alpha, "beta": c.Beta, "gamma": c.Gamma, "damping": c.Damping} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("forecast.%s must be between 0 and 1, got %v", name, v)
		}
	}

	if c.SeasonalPeriod < 1 {
		return fmt.Errorf("forecast.seasonal_period must be positive")
	}

	switch forecast.TrendMode(c.Trend) {
	case forecast.TrendAdditive, forecast.TrendNone:
	default:
		return fmt.Errorf("forecast.trend must be 'additive' or 'none'")
	}

	switch forecast.SeasonalMode(c.Seasonal) {
	case forecast.SeasonalAdditive, forecast.SeasonalMultiplicative:
	default:
		return fmt.Errorf("forecast.seasonal must be 'additive' or 'multiplicative'")
	}

	if c.Horizon < 0 {
		return fmt.Errorf("forecast.horizon cannot be negative")
	}

	return nil
}

// Validate validates dataset configuration
func (c *DatasetConfig) Validate() error {
	if c.TrainSize < 0 || c.TrainSize > 1 {
		return fmt.Errorf("dataset.train_size must be between 0 and 1, got %v", c.TrainSize)
	}

	if c.Scale == 0 {
		return fmt.Errorf("dataset.scale cannot be 0")
	}

	if c.Resample != "" {
		if _, err := aggregation.ParseLevel(c.Resample); err != nil {
			return fmt.Errorf("dataset.resample: %w", err)
		}
		if _, err := aggregation.ParseFunction(c.Aggregation); err != nil {
			return fmt.Errorf("dataset.aggregation: %w", err)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Location returns the dataset time zone, UTC when unset
func (c *DatasetConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("dataset.timezone: %w", err)
	}
	return loc, nil
}

// Validate validates report storage configuration
func (c *ReportsConfig) Validate() error {
	switch c.Backend {
	case "file", "sqlite":
		if c.DataDir == "" {
			return fmt.Errorf("reports.data_dir required for %s backend", c.Backend)
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported reports backend: %s", c.Backend)
	}

	if _, err := compression.ParseAlgorithm(c.Compression); err != nil {
		return fmt.Errorf("reports.compression: %w", err)
	}
	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	switch c.Type {
	case "", "none", "memory":
	case "nats", "redis":
		if c.URL == "" {
			return fmt.Errorf("queue.url required for %s", c.Type)
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 && c.URL == "" {
			return fmt.Errorf("queue.kafka_brokers required for kafka")
		}
	default:
		return fmt.Errorf("unsupported queue type: %s", c.Type)
	}

	if c.Type != "" && c.Type != "none" && c.Subject == "" {
		return fmt.Errorf("queue.subject required")
	}
	if c.RequestSubject != "" {
		if c.Type == "" || c.Type == "none" {
			return fmt.Errorf("queue.request_subject needs a queue type")
		}
		if c.RequestSubject == c.Subject {
			return fmt.Errorf("queue.request_subject must differ from queue.subject")
		}
		if c.ConsumerGroup == "" {
			return fmt.Errorf("queue.consumer_group required with queue.request_subject")
		}
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
