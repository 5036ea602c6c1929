package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"clientbook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Backup        BackupConfig        `yaml:"backup"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Logging       LoggingConfig       `yaml:"logging"`
	Engine        EngineConfig        `yaml:"engine"`
	Notifications NotificationsConfig `yaml:"notifications"`
	API           APIConfig           `yaml:"api"`
	Exports       ExportConfig        `yaml:"exports"`
	Google        GoogleConfig        `yaml:"google"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// EngineConfig tunes the automatic transition engine.
type EngineConfig struct {
	TickSeconds        int `yaml:"tick_seconds"`
	SafetyBufferMin    int `yaml:"safety_buffer_minutes"`
	MaxBookingDays     int `yaml:"max_booking_days"`
	NotifyQueueSize    int `yaml:"notify_queue_size"`
	NotifyMaxRetries   int `yaml:"notify_max_retries"`
	NotifyDedupWindowH int `yaml:"notify_dedup_window_hours"`
}

func (c EngineConfig) TickInterval() time.Duration {
	if c.TickSeconds <= 0 {
		return models.DefaultTickInterval
	}
	return time.Duration(c.TickSeconds) * time.Second
}

func (c EngineConfig) NotifyDedupWindow() time.Duration {
	if c.NotifyDedupWindowH <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.NotifyDedupWindowH) * time.Hour
}

type NotificationsConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	CredentialsFile      string `yaml:"credentials_file"`
	BookingSpreadSheetID string `yaml:"bookings_spreadsheet_id"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Substitute environment variables referenced in the YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Notifications.Telegram.Enabled {
		if c.Notifications.Telegram.BotToken == "" {
			return errors.New("telegram notifications require a bot token")
		}
		if c.Notifications.Telegram.ChatID == 0 {
			return errors.New("telegram notifications require a chat id")
		}
	}
	if c.API.Enabled && c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api auth is enabled but no api keys are configured")
	}
	return nil
}

// ValidateServices checks the service catalog for duplicates and bad values.
func ValidateServices(services []models.ServiceOffering) error {
	names := make(map[string]bool)
	for _, s := range services {
		if s.Name == "" {
			return errors.New("service with empty name")
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate service name: %s", s.Name)
		}
		if s.DurationMin < 0 || s.BaseRate < 0 {
			return fmt.Errorf("service %s has negative duration or rate", s.Name)
		}
		names[s.Name] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "clientbook"
	}
	if c.Engine.TickSeconds == 0 {
		c.Engine.TickSeconds = 60
	}
	if c.Engine.SafetyBufferMin == 0 {
		c.Engine.SafetyBufferMin = models.DefaultSafetyBufferMinutes
	}
	if c.Engine.MaxBookingDays == 0 {
		c.Engine.MaxBookingDays = 365
	}
	if c.Engine.NotifyQueueSize == 0 {
		c.Engine.NotifyQueueSize = 128
	}
	if c.Engine.NotifyMaxRetries == 0 {
		c.Engine.NotifyMaxRetries = 5
	}
	if c.Engine.NotifyDedupWindowH == 0 {
		c.Engine.NotifyDedupWindowH = 24
	}
	if c.API.Enabled {
		if c.API.HTTP.Port == 0 {
			c.API.HTTP.Port = 8080
		}
		if c.API.Auth.HeaderAPIKey == "" {
			c.API.Auth.HeaderAPIKey = "x-api-key"
		}
		if c.API.RateLimit.RPS == 0 {
			c.API.RateLimit.RPS = 10
		}
		if c.API.RateLimit.Burst == 0 {
			c.API.RateLimit.Burst = 20
		}
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
