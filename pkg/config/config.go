package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Fetcher sources.
const (
	SourceHTTP       = "http"
	SourceClickHouse = "clickhouse"
	SourceSynthetic  = "synthetic"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"1s"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
		RateLimit       struct {
			Capacity        int           `yaml:"capacity" default:"10"`
			RefillPerSecond float64       `yaml:"refill_per_second" default:"1"`
			IdleTTL         time.Duration `yaml:"idle_ttl" default:"10m"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logger struct {
		Level     string `yaml:"level" default:"info"`
		Format    string `yaml:"format" default:"console"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"extremescan.logs"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"logger"`
	Service struct {
		AutoStart      bool          `yaml:"auto_start" default:"true"`
		Symbols        []string      `yaml:"symbols" default:"[\"BTCUSDT\",\"ETHUSDT\",\"SOLUSDT\",\"ADAUSDT\",\"MATICUSDT\"]"`
		CheckInterval  time.Duration `yaml:"check_interval" default:"60s"`
		MinConfidence  float64       `yaml:"min_confidence" default:"60"`
		MinVolumeUSD   float64       `yaml:"min_volume_usd" default:"2000000"`
		NotifyOnSignal bool          `yaml:"notify_on_signal" default:"true"`
	} `yaml:"service"`
	Fetcher struct {
		Source    string        `yaml:"source" default:"synthetic"`
		BaseURL   string        `yaml:"base_url"`
		Timeframe string        `yaml:"timeframe" default:"1h"`
		Limit     int           `yaml:"limit" default:"100"`
		Timeout   time.Duration `yaml:"timeout" default:"10s"`
		Fallback  bool          `yaml:"fallback" default:"true"`
		Seed      int64         `yaml:"seed"`
	} `yaml:"fetcher"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		ClientID     string   `yaml:"client_id" default:"extremescan"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		SignalsTopic string   `yaml:"signals_topic" default:"extremescan.signals"`
		StatusTopic  string   `yaml:"status_topic" default:"extremescan.signal-status"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID     string        `yaml:"group_id" default:"extremescan"`
			StartOffset string        `yaml:"start_offset" default:"latest"`
			Workers     int           `yaml:"workers" default:"1"`
			BufferSize  int           `yaml:"buffer_size" default:"10"`
			RetryMax    int           `yaml:"retry_max" default:"3"`
			BackoffMin  time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax  time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic    string        `yaml:"dlq_topic"`
			MinBytes    int           `yaml:"min_bytes" default:"1"`
			MaxBytes    int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"extremescan"`
		PoolSize int    `yaml:"pool_size" default:"10"`
	} `yaml:"redis"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"extremescan"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		InitSchema       bool          `yaml:"init_schema" default:"true"`
	} `yaml:"clickhouse"`
	Pipeline struct {
		BufferSize      int           `yaml:"buffer_size" default:"256"`
		SymbolInterval  time.Duration `yaml:"symbol_interval" default:"1s"`
		RetryAttempts   int           `yaml:"retry_attempts" default:"3"`
		RetryBackoff    time.Duration `yaml:"retry_backoff" default:"50ms"`
		DeliveryTimeout time.Duration `yaml:"delivery_timeout" default:"5s"`
	} `yaml:"pipeline"`
}

// Default returns a configuration populated from `default` tags only.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads a YAML file over the defaults. An empty path yields defaults.
func Load(path string) (*Config, error) {
	c, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env files (missing ones are ignored), then the YAML
// file, then applies environment overrides.
func LoadWithEnv(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	c, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func readFile(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Service.Symbols = splitList(v)
	}
	if v := os.Getenv("MARKET_DATA_URL"); v != "" {
		c.Fetcher.BaseURL = v
		c.Fetcher.Source = SourceHTTP
	}
	if v := os.Getenv("FETCHER_SOURCE"); v != "" {
		c.Fetcher.Source = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_SIGNALS_TOPIC"); v != "" {
		c.Kafka.SignalsTopic = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if len(c.Service.Symbols) == 0 {
		return fmt.Errorf("service.symbols cannot be empty")
	}
	if c.Service.CheckInterval < time.Second {
		return fmt.Errorf("service.check_interval must be at least 1s, got %s", c.Service.CheckInterval)
	}
	if c.Service.MinConfidence < 0 || c.Service.MinConfidence > 100 {
		return fmt.Errorf("service.min_confidence must be in 0..100, got %v", c.Service.MinConfidence)
	}
	if c.Service.MinVolumeUSD < 0 {
		return fmt.Errorf("service.min_volume_usd cannot be negative")
	}

	switch c.Fetcher.Source {
	case SourceSynthetic:
	case SourceHTTP:
		if c.Fetcher.BaseURL == "" {
			return fmt.Errorf("fetcher.base_url is required for source %q", SourceHTTP)
		}
	case SourceClickHouse:
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for source %q", SourceClickHouse)
		}
	default:
		return fmt.Errorf("fetcher.source must be 'http', 'clickhouse' or 'synthetic', got '%s'", c.Fetcher.Source)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
		}
		if c.Kafka.SignalsTopic == "" {
			return fmt.Errorf("kafka.signals_topic is required")
		}
	}
	if c.Logger.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("logger.collector requires kafka to be enabled")
	}
	if c.Pipeline.BufferSize <= 0 {
		return fmt.Errorf("pipeline.buffer_size must be positive")
	}
	if c.Server.RateLimit.Capacity <= 0 || c.Server.RateLimit.RefillPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit capacity and refill_per_second must be positive")
	}
	return nil
}
