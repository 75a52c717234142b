package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. AGENCYOPS_SERVER_PORT.
const EnvPrefix = "AGENCYOPS"

// Config defines server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	DB       DBConfig       `yaml:"db"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	Billing  BillingConfig  `yaml:"billing"`
	Retainer RetainerConfig `yaml:"retainer"`
	Notify   NotifyConfig   `yaml:"notify"`
	Cron     CronConfig     `yaml:"cron"`
	MCP      MCPConfig      `yaml:"mcp"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	AppURL      string `yaml:"app_url" envconfig:"APP_URL"`
	CORSOrigins string `yaml:"cors_origins" envconfig:"CORS_ORIGINS"`
}

type DBConfig struct {
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout" envconfig:"BUSY_TIMEOUT"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" envconfig:"TOKEN_TTL"`
}

type BillingConfig struct {
	DefaultHourlyRate float64 `yaml:"default_hourly_rate" envconfig:"DEFAULT_HOURLY_RATE"`
}

type RetainerConfig struct {
	// Timezone is an IANA zone name used for month boundaries.
	Timezone          string `yaml:"timezone"`
	ReportConcurrency int    `yaml:"report_concurrency" envconfig:"REPORT_CONCURRENCY"`
	// AlertThresholds are usage percentages that raise an alert.
	AlertThresholds []int `yaml:"alert_thresholds" envconfig:"ALERT_THRESHOLDS"`
}

type NotifyConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url" envconfig:"SLACK_WEBHOOK_URL"`
}

type CronConfig struct {
	Secret string `yaml:"secret"`
}

type MCPConfig struct {
	// Transport is "stdio" or "http".
	Transport string `yaml:"transport"`
	// Addr is the listen address of the streamable HTTP transport.
	Addr string `yaml:"addr"`
	// As is the user id or email the stdio transport acts as. Empty acts as
	// the system administrator.
	As string `yaml:"as"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path:        "agencyops.db",
			BusyTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Retainer: RetainerConfig{
			Timezone:          "UTC",
			ReportConcurrency: 4,
			AlertThresholds:   []int{80, 100},
		},
		MCP: MCPConfig{
			Transport: "stdio",
			Addr:      "127.0.0.1:8081",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and
// environment variables, in that order. An empty path falls back to
// AGENCYOPS_CONFIG_PATH.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Retainer.ReportConcurrency < 1 {
		errs = append(errs, errors.New("retainer.report_concurrency must be at least 1"))
	}
	for _, t := range c.Retainer.AlertThresholds {
		if t < 1 || t > 1000 {
			errs = append(errs, fmt.Errorf("retainer.alert_thresholds: %d must be between 1 and 1000", t))
		}
	}
	if c.Billing.DefaultHourlyRate < 0 {
		errs = append(errs, errors.New("billing.default_hourly_rate must not be negative"))
	}
	switch c.MCP.Transport {
	case "stdio", "http":
	default:
		errs = append(errs, fmt.Errorf("mcp.transport %q must be stdio or http", c.MCP.Transport))
	}
	return errors.Join(errs...)
}

// Location resolves the retainer timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Retainer.Timezone == "" || c.Retainer.Timezone == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Retainer.Timezone)
	if err != nil {
		return nil, fmt.Errorf("retainer.timezone: %w", err)
	}
	return loc, nil
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AuthEnabled reports whether bearer tokens are verified.
func (c Config) AuthEnabled() bool {
	return c.Auth.JWTSecret != ""
}
