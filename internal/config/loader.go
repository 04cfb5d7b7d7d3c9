package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")            // Current directory
		v.AddConfigPath("./configs")    // Project configs directory
		v.AddConfigPath("/etc/brutlag") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides, e.g. BRUTLAG_SERVER_HTTP_PORT
	v.SetEnvPrefix("BRUTLAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_keys", []string{})

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
	v.SetDefault("logging.time_format", d.Logging.TimeFormat)

	// Detector defaults
	v.SetDefault("detector.period", d.Detector.Period)
	v.SetDefault("detector.gamma", d.Detector.Gamma)
	v.SetDefault("detector.scaling_factor", d.Detector.ScalingFactor)
	v.SetDefault("detector.warmup_skip", d.Detector.WarmupSkip)
	v.SetDefault("detector.algorithm", d.Detector.Algorithm)
	v.SetDefault("detector.threshold", d.Detector.Threshold)

	// Forecast defaults
	v.SetDefault("forecast.method", d.Forecast.Method)
	v.SetDefault("forecast.alpha", d.Forecast.Alpha)
	v.SetDefault("forecast.beta", d.Forecast.Beta)
	v.SetDefault("forecast.gamma", d.Forecast.Gamma)
	v.SetDefault("forecast.seasonal_period", d.Forecast.SeasonalPeriod)
	v.SetDefault("forecast.trend", d.Forecast.Trend)
	v.SetDefault("forecast.seasonal", d.Forecast.Seasonal)
	v.SetDefault("forecast.damping", d.Forecast.Damping)
	v.SetDefault("forecast.horizon", d.Forecast.Horizon)
	v.SetDefault("forecast.confidence", d.Forecast.Confidence)

	// Dataset defaults
	v.SetDefault("dataset.train_size", d.Dataset.TrainSize)
	v.SetDefault("dataset.scale", d.Dataset.Scale)
	v.SetDefault("dataset.time_layout", "")
	v.SetDefault("dataset.time_column", d.Dataset.TimeColumn)
	v.SetDefault("dataset.value_column", "")
	v.SetDefault("dataset.resample", "")
	v.SetDefault("dataset.aggregation", d.Dataset.Aggregation)
	v.SetDefault("dataset.timezone", d.Dataset.Timezone)

	// Reports defaults
	v.SetDefault("reports.backend", d.Reports.Backend)
	v.SetDefault("reports.data_dir", d.Reports.DataDir)
	v.SetDefault("reports.compression", d.Reports.Compression)

	// Queue defaults
	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.subject", d.Queue.Subject)
	v.SetDefault("queue.request_subject", d.Queue.RequestSubject)
	v.SetDefault("queue.consumer_group", d.Queue.ConsumerGroup)
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.kafka_brokers", []string{})

	// Metrics defaults
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			HTTPPort:        5555,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			BodyLimit:       16 * 1024 * 1024,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
			TimeFormat: "RFC3339",
		},
		Detector: DetectorConfig{
			Period:        12,
			Gamma:         0.3684211,
			ScalingFactor: 1.96,
			WarmupSkip:    -1,
			Algorithm:     "brutlag",
			Threshold:     3,
		},
		Forecast: ForecastConfig{
			Method:         "holt_winters",
			Alpha:          0.3,
			Beta:           0.1,
			Gamma:          0.1,
			SeasonalPeriod: 12,
			Trend:          "additive",
			Seasonal:       "additive",
			Damping:        1,
			Horizon:        12,
			Confidence:     0.95,
		},
		Dataset: DatasetConfig{
			TrainSize:   0.7,
			Scale:       1,
			TimeColumn:  "date",
			Aggregation: "avg",
			Timezone:    "UTC",
		},
		Reports: ReportsConfig{
			Backend:     "file",
			DataDir:     "./data/reports",
			Compression: "snappy",
		},
		Queue: QueueConfig{
			Type:          "none",
			URL:           "nats://localhost:4222",
			Subject:       "brutlag.anomalies",
			ConsumerGroup: "brutlag-workers",
			RedisStream:   "brutlag",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
