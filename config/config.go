package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	AFS           AFSConfig           `yaml:"afs"`
	Cancellation  CancellationConfig  `yaml:"cancellation"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Log           LogConfig           `yaml:"log"`
}

type HTTPConfig struct {
	Address     string   `yaml:"address"`
	SwaggerDir  string   `yaml:"swagger_dir"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Name        string `yaml:"name"`
	SSLMode     string `yaml:"ssl_mode"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

const defaultAFSRetries = 1

// AFSConfig configures the client of the external airline reservation system.
type AFSConfig struct {
	BaseURL            string `yaml:"base_url"`
	APIKey             string `yaml:"api_key"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	// Absent means one retry; an explicit 0 disables retries.
	MaxRetries         *int   `yaml:"max_retries"`
	RetryBackoffMillis int    `yaml:"retry_backoff_millis"`
}

func (a AFSConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func (a AFSConfig) Retries() int {
	if a.MaxRetries == nil {
		return defaultAFSRetries
	}
	return max(*a.MaxRetries, 0)
}

func (a AFSConfig) RetryBackoff() time.Duration {
	return time.Duration(a.RetryBackoffMillis) * time.Millisecond
}

type CancellationConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"`
	LockTTLSeconds int `yaml:"lock_ttl_seconds"`
}

type NotificationsConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv lets secrets live outside the YAML file.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("AFS_API_KEY")); v != "" {
		c.AFS.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("AFS_BASE_URL")); v != "" {
		c.AFS.BaseURL = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.AFS.TimeoutSeconds <= 0 {
		c.AFS.TimeoutSeconds = 10
	}
	if c.AFS.MaxRetries == nil {
		retries := defaultAFSRetries
		c.AFS.MaxRetries = &retries
	}
	if c.AFS.RetryBackoffMillis <= 0 {
		c.AFS.RetryBackoffMillis = 200
	}
	if c.Cancellation.MaxConcurrency <= 0 {
		c.Cancellation.MaxConcurrency = 4
	}
	if c.Cancellation.LockTTLSeconds <= 0 {
		c.Cancellation.LockTTLSeconds = 60
	}
	if c.Notifications.TimeoutSeconds <= 0 {
		c.Notifications.TimeoutSeconds = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports settings the application cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.AFS.BaseURL == "" {
		errs = append(errs, errors.New("afs.base_url is required"))
	}
	if c.AFS.APIKey == "" {
		errs = append(errs, errors.New("afs.api_key (or AFS_API_KEY) is required"))
	}
	return errors.Join(errs...)
}
