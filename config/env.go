package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port                 string        `yaml:"port"`
	HistoryLimit         int           `yaml:"history_limit"`
	AllowZeroCoordinates bool          `yaml:"allow_zero_coordinates"`
	StaticDir            string        `yaml:"static_dir"`
	ShutdownTimeout      time.Duration `yaml:"shutdown_timeout"`
	SinkTimeout          time.Duration `yaml:"sink_timeout"`
	TCPListenAddr        string        `yaml:"tcp_listen_addr"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ArchiveDriver string `yaml:"archive_driver"`
	ArchiveDSN    string `yaml:"archive_dsn"`

	RabbitMQURL string `yaml:"rabbitmq_url"`

	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTClientID string `yaml:"mqtt_client_id"`
	MQTTTopic    string `yaml:"mqtt_topic"`
}

func defaults() *Config {
	return &Config{
		Port:            "3000",
		HistoryLimit:    100,
		ShutdownTimeout: 10 * time.Second,
		SinkTimeout:     5 * time.Second,
		LogLevel:        "info",
		LogFormat:       "json",
		MQTTClientID:    "owntracker",
		MQTTTopic:       "owntracker/device/+/location",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.HistoryLimit = getEnvInt("HISTORY_LIMIT", cfg.HistoryLimit)
	cfg.AllowZeroCoordinates = getEnvBool("ALLOW_ZERO_COORDINATES", cfg.AllowZeroCoordinates)
	cfg.StaticDir = getEnv("STATIC_DIR", cfg.StaticDir)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.SinkTimeout = getEnvDuration("SINK_TIMEOUT", cfg.SinkTimeout)
	cfg.TCPListenAddr = getEnv("TCP_LISTEN_ADDR", cfg.TCPListenAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.ArchiveDriver = getEnv("ARCHIVE_DRIVER", cfg.ArchiveDriver)
	cfg.ArchiveDSN = getEnv("ARCHIVE_DSN", cfg.ArchiveDSN)
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.MQTTBroker = getEnv("MQTT_BROKER", cfg.MQTTBroker)
	cfg.MQTTClientID = getEnv("MQTT_CLIENT_ID", cfg.MQTTClientID)
	cfg.MQTTTopic = getEnv("MQTT_TOPIC", cfg.MQTTTopic)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit: must be positive, got %d", c.HistoryLimit)
	}
	if c.SinkTimeout <= 0 {
		return fmt.Errorf("sink_timeout: must be positive, got %s", c.SinkTimeout)
	}
	switch c.ArchiveDriver {
	case "":
	case "postgres", "sqlite":
		if c.ArchiveDSN == "" {
			return fmt.Errorf("archive_dsn: required for archive driver %q", c.ArchiveDriver)
		}
	default:
		return fmt.Errorf("archive_driver: unsupported value %q", c.ArchiveDriver)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
