// Package config provides configuration management for the agent runtime and
// trigger gate host.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration sections recognized by the host binary.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Events   EventsConfig   `mapstructure:"events"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Security SecurityConfig `mapstructure:"security"`
	GitHub   GitHubConfig   `mapstructure:"github"`
}

// ServerConfig holds HTTP server configuration for the demo host binary.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`  // in seconds
	WriteTimeout int    `mapstructure:"writeTimeout"` // in seconds
}

// DatabaseConfig holds database connection configuration, used only by the
// SQL-backed state store (internal/persistence, internal/db).
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
	SSLMode  string `mapstructure:"sslMode"`
	MaxConns int    `mapstructure:"maxConns"`
	MinConns int    `mapstructure:"minConns"`
}

// NATSConfig holds NATS messaging configuration for the optional event bus backend.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	ClusterID     string `mapstructure:"clusterId"`
	ClientID      string `mapstructure:"clientId"`
	MaxReconnects int    `mapstructure:"maxReconnects"`
}

// EventsConfig holds event bus namespace configuration.
type EventsConfig struct {
	// Namespace isolates queue-group subscribers across deployments/instances.
	Namespace string `mapstructure:"namespace"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// RunnerConfig is spec §3's RunnerConfig: the options recognized by the
// Agent Runner.
type RunnerConfig struct {
	// MaxCycles is a process-wide cap; 0 means unbounded. Overrides a
	// per-agent AgentConfig.MaxCycles if lower.
	MaxCycles int `mapstructure:"maxCycles"`
	// CycleDelayMillis is the minimum wall delay between ticks; may be zero.
	CycleDelayMillis int `mapstructure:"cycleDelayMillis"`
	// EventBufferSize must be >= 1.
	EventBufferSize int `mapstructure:"eventBufferSize"`
	// CommandBufferSize must be >= 1.
	CommandBufferSize int `mapstructure:"commandBufferSize"`
	// MaxConsecutiveFailures stops an agent (Stopped, reason "Cannot
	// survive") after this many consecutive cycle failures. 0 disables the
	// check.
	MaxConsecutiveFailures int `mapstructure:"maxConsecutiveFailures"`
}

// CycleDelay returns CycleDelayMillis as a time.Duration.
func (r RunnerConfig) CycleDelay() time.Duration {
	return time.Duration(r.CycleDelayMillis) * time.Millisecond
}

// SecurityConfig is spec §3's SecurityConfig: the options recognized by the
// Security Manager. It is intentionally flat so it can be unmarshaled either
// directly or from the `security:` wrapper (see LoadSecurityConfig).
type SecurityConfig struct {
	Enabled              bool     `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	AgentAdmins          []string `mapstructure:"agentAdmins" json:"agentAdmins" yaml:"agentAdmins"`
	RateLimitWindowSecs  int      `mapstructure:"rateLimitWindowSeconds" json:"rateLimitWindowSeconds" yaml:"rateLimitWindowSeconds"`
	RateLimitMaxRequests int      `mapstructure:"rateLimitMaxRequests" json:"rateLimitMaxRequests" yaml:"rateLimitMaxRequests"`
	AllowedRepositories  []string `mapstructure:"allowedRepositories" json:"allowedRepositories" yaml:"allowedRepositories"`
	AllowedActions       []string `mapstructure:"allowedActions" json:"allowedActions" yaml:"allowedActions"`
	// RejectMessage is a fmt.Sprintf template with a single %s verb, filled
	// in with the user login when the user authorization check fails. The
	// action, repository and rate-limit rejections use fixed messages.
	RejectMessage string `mapstructure:"rejectMessage" json:"rejectMessage" yaml:"rejectMessage"`
}

// RateLimitWindow returns RateLimitWindowSecs as a time.Duration.
func (s SecurityConfig) RateLimitWindow() time.Duration {
	return time.Duration(s.RateLimitWindowSecs) * time.Second
}

// GitHubConfig configures the comment source that feeds the Trigger Parser
// (SPEC_FULL.md §4.11 / §6). Never consulted by the Trigger Parser or
// Security Manager themselves.
type GitHubConfig struct {
	PollIntervalSecs int      `mapstructure:"pollIntervalSeconds"`
	Repositories     []string `mapstructure:"repositories"`
	// RequestsPerSecond caps outbound GitHub API calls across all polled
	// repositories. 0 or negative disables limiting.
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
}

// PollInterval returns PollIntervalSecs as a time.Duration.
func (g GitHubConfig) PollInterval() time.Duration {
	return time.Duration(g.PollIntervalSecs) * time.Second
}

// ReadTimeoutDuration returns the read timeout as a time.Duration.
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout as a time.Duration.
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	v.SetDefault("database.driver", "")
	v.SetDefault("database.path", "./agentgate.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "agentgate")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbName", "agentgate")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxConns", 25)
	v.SetDefault("database.minConns", 5)

	// Empty URL means use the in-memory event bus.
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clusterId", "agentgate-cluster")
	v.SetDefault("nats.clientId", "agentgate-client")
	v.SetDefault("nats.maxReconnects", 10)

	v.SetDefault("events.namespace", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.outputPath", "stdout")

	v.SetDefault("runner.maxCycles", 0)
	v.SetDefault("runner.cycleDelayMillis", 0)
	v.SetDefault("runner.eventBufferSize", 64)
	v.SetDefault("runner.commandBufferSize", 16)
	v.SetDefault("runner.maxConsecutiveFailures", 5)

	v.SetDefault("security.enabled", true)
	v.SetDefault("security.agentAdmins", []string{})
	v.SetDefault("security.rateLimitWindowSeconds", 60)
	v.SetDefault("security.rateLimitMaxRequests", 10)
	v.SetDefault("security.allowedRepositories", []string{})
	v.SetDefault("security.allowedActions", []string{
		"issue_approved", "issue_close", "pr_approved", "issue_review",
		"pr_review", "issue_summarize", "pr_summarize", "issue_debug", "pr_debug",
	})
	v.SetDefault("security.rejectMessage", "User '%s' is not authorized")

	v.SetDefault("github.pollIntervalSeconds", 60)
	v.SetDefault("github.repositories", []string{})
	v.SetDefault("github.requestsPerSecond", 2.0)
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix AGENTGATE_ with snake_case naming.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("AGENTGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("logging.level", "AGENTGATE_LOG_LEVEL")
	_ = v.BindEnv("events.namespace", "AGENTGATE_EVENTS_NAMESPACE")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/agentgate/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks that all required configuration fields are set.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if cfg.Database.Driver == "postgres" {
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			errs = append(errs, "database.port must be between 1 and 65535")
		}
		if cfg.Database.User == "" {
			errs = append(errs, "database.user is required for postgres driver")
		}
		if cfg.Database.DBName == "" {
			errs = append(errs, "database.dbName is required for postgres driver")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if cfg.Runner.EventBufferSize < 1 {
		errs = append(errs, "runner.eventBufferSize must be >= 1")
	}
	if cfg.Runner.CommandBufferSize < 1 {
		errs = append(errs, "runner.commandBufferSize must be >= 1")
	}
	if cfg.Security.RateLimitMaxRequests < 1 {
		errs = append(errs, "security.rateLimitMaxRequests must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}

// LoadSecurityConfig parses a standalone security config document (spec §6):
// either a flat map of SecurityConfig keys, or a wrapper `{ security: {...} }`.
// The wrapper form is selected when and only when the top-level document
// contains a `security` key; if that key is present but doesn't unmarshal
// into SecurityConfig, that is a hard error — it must never silently fall
// back to defaults.
func LoadSecurityConfig(data []byte) (SecurityConfig, error) {
	var probe map[string]yaml.Node
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return SecurityConfig{}, fmt.Errorf("security config: invalid document: %w", err)
	}

	if node, wrapped := probe["security"]; wrapped {
		var cfg SecurityConfig
		if err := node.Decode(&cfg); err != nil {
			return SecurityConfig{}, fmt.Errorf("security config: malformed security wrapper: %w", err)
		}
		return cfg, nil
	}

	var cfg SecurityConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SecurityConfig{}, fmt.Errorf("security config: invalid flat document: %w", err)
	}
	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}
