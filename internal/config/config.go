// Package config loads wardroom configuration from .wardroom/config.yaml
// with environment overrides. Defaults are production-safe: no logging,
// local escalation endpoint, Ingham County campaign data.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all wardroom configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name" env:"WARDROOM_NAME"`
	Version string `yaml:"version"`

	// Campaign identity and data vintage
	Campaign CampaignConfig `yaml:"campaign"`

	// Turn pipeline settings
	Assistant AssistantConfig `yaml:"assistant"`

	// Remote escalation channel
	Escalation EscalationConfig `yaml:"escalation"`

	// Outbound HTTP retry policy
	Retry RetryConfig `yaml:"retry"`

	// Proactive suggestion engine
	Proactive ProactiveConfig `yaml:"proactive"`

	// Workflow definitions
	Workflows WorkflowConfig `yaml:"workflows"`

	// Report history store
	Store StoreConfig `yaml:"store"`

	// Current-view data export
	Export ExportConfig `yaml:"export"`

	// HTTP + stream host
	Server ServerConfig `yaml:"server"`

	// Logging (also read directly by internal/logging)
	Logging LoggingConfig `yaml:"logging"`
}

// CampaignConfig identifies the campaign whose data the assistant serves.
type CampaignConfig struct {
	Name        string `yaml:"name" env:"WARDROOM_CAMPAIGN_NAME"`
	County      string `yaml:"county"`
	State       string `yaml:"state"`
	Years       []int  `yaml:"years"`
	DefaultYear int    `yaml:"default_year" env:"WARDROOM_DEFAULT_YEAR"`
}

// AssistantConfig configures the turn pipeline.
type AssistantConfig struct {
	// Turns of history exposed to local handlers
	HistoryWindow int `yaml:"history_window"`

	// Per-turn character cap on handler-visible history
	HistoryTruncation int `yaml:"history_truncation"`
}

// EscalationConfig configures the remote escalation channel.
type EscalationConfig struct {
	Endpoint    string `yaml:"endpoint" env:"WARDROOM_ESCALATION_ENDPOINT"`
	APIKey      string `yaml:"api_key" env:"WARDROOM_API_KEY"`
	IncludeData bool   `yaml:"include_data"`
	Timeout     string `yaml:"timeout"`

	// Conversation window shipped with each escalation
	MaxTurns        int `yaml:"max_turns"`
	VerbatimTurns   int `yaml:"verbatim_turns"`
	CompressedLimit int `yaml:"compressed_limit"`

	// Queries longer than this escalate regardless of local result
	LongQueryThreshold int `yaml:"long_query_threshold"`
}

// RetryConfig configures the retry-wrapped fetch used for all outbound calls.
type RetryConfig struct {
	MaxRetries  int `yaml:"max_retries" env:"WARDROOM_MAX_RETRIES"`
	BaseDelayMS int `yaml:"base_delay_ms" env:"WARDROOM_BASE_DELAY_MS"`
}

// ProactiveConfig configures the proactive suggestion engine.
type ProactiveConfig struct {
	Enabled        bool   `yaml:"enabled" env:"WARDROOM_PROACTIVE"`
	PollInterval   string `yaml:"poll_interval"`
	Cooldown       string `yaml:"cooldown"`
	MinUserTurns   int    `yaml:"min_user_turns"`
	DepthThreshold int    `yaml:"depth_threshold"`
}

// WorkflowConfig configures the workflow registry.
type WorkflowConfig struct {
	DefinitionsPath string `yaml:"definitions_path" env:"WARDROOM_WORKFLOWS"`
	HotReload       bool   `yaml:"hot_reload"`
}

// StoreConfig configures the report history store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path" env:"WARDROOM_DB"`
}

// ExportConfig configures current-view data export. An empty
// DataEndpoint serves exports from the bundled analytics slice.
type ExportConfig struct {
	DataEndpoint string `yaml:"data_endpoint" env:"WARDROOM_DATA_ENDPOINT"`
}

// ServerConfig configures the HTTP + stream host.
type ServerConfig struct {
	Addr            string `yaml:"addr" env:"WARDROOM_ADDR"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	AllowedOrigin   string `yaml:"allowed_origin" env:"WARDROOM_ALLOWED_ORIGIN"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode" env:"WARDROOM_DEBUG"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level" env:"WARDROOM_LOG_LEVEL"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "wardroom",
		Version: "0.4.0",

		Campaign: CampaignConfig{
			Name:        "Ingham County Coordinated Campaign",
			County:      "Ingham",
			State:       "MI",
			Years:       []int{2020, 2022, 2024},
			DefaultYear: 2024,
		},

		Assistant: AssistantConfig{
			HistoryWindow:     10,
			HistoryTruncation: 500,
		},

		Escalation: EscalationConfig{
			Endpoint:           "http://localhost:8090/api/chat",
			IncludeData:        true,
			Timeout:            "45s",
			MaxTurns:           15,
			VerbatimTurns:      5,
			CompressedLimit:    200,
			LongQueryThreshold: 150,
		},

		Retry: RetryConfig{
			MaxRetries:  2,
			BaseDelayMS: 1000,
		},

		Proactive: ProactiveConfig{
			Enabled:        true,
			PollInterval:   "15s",
			Cooldown:       "60s",
			MinUserTurns:   2,
			DepthThreshold: 3,
		},

		Workflows: WorkflowConfig{
			DefinitionsPath: ".wardroom/workflows.yaml",
			HotReload:       true,
		},

		Store: StoreConfig{
			DatabasePath: ".wardroom/reports.db",
		},

		Export: ExportConfig{
			DataEndpoint: "",
		},

		Server: ServerConfig{
			Addr:            ":8787",
			ReadTimeout:     "15s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "10s",
			AllowedOrigin:   "*",
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// DefaultPath returns the config file path for a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".wardroom", "config.yaml")
}

// Load loads configuration from a YAML file, then applies environment
// overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks invariants the rest of the system relies on.
func (c *Config) Validate() error {
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.BaseDelayMS < 0 {
		return fmt.Errorf("retry.base_delay_ms must be >= 0, got %d", c.Retry.BaseDelayMS)
	}
	if c.Escalation.Endpoint == "" {
		return fmt.Errorf("escalation.endpoint is required")
	}
	if c.Escalation.MaxTurns < c.Escalation.VerbatimTurns {
		return fmt.Errorf("escalation.max_turns (%d) must be >= verbatim_turns (%d)",
			c.Escalation.MaxTurns, c.Escalation.VerbatimTurns)
	}
	if c.Escalation.LongQueryThreshold <= 0 {
		return fmt.Errorf("escalation.long_query_threshold must be > 0")
	}
	if len(c.Campaign.Years) == 0 {
		return fmt.Errorf("campaign.years must list at least one election year")
	}
	if c.Campaign.DefaultYear != 0 && !containsYear(c.Campaign.Years, c.Campaign.DefaultYear) {
		return fmt.Errorf("campaign.default_year %d not in campaign.years", c.Campaign.DefaultYear)
	}
	if _, err := time.ParseDuration(c.Proactive.PollInterval); err != nil {
		return fmt.Errorf("proactive.poll_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.Proactive.Cooldown); err != nil {
		return fmt.Errorf("proactive.cooldown: %w", err)
	}
	return nil
}

func containsYear(years []int, y int) bool {
	for _, yr := range years {
		if yr == y {
			return true
		}
	}
	return false
}

// BaseDelay returns the retry base delay as a duration.
func (c *Config) BaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMS) * time.Millisecond
}

// EscalationTimeout returns the escalation request timeout.
func (c *Config) EscalationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Escalation.Timeout)
	if err != nil {
		return 45 * time.Second
	}
	return d
}

// PollInterval returns the proactive poll interval.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.Proactive.PollInterval)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// Cooldown returns the proactive emission cooldown.
func (c *Config) Cooldown() time.Duration {
	d, err := time.ParseDuration(c.Proactive.Cooldown)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// ShutdownTimeout returns the server shutdown grace period.
func (c *Config) ShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// ReadTimeout returns the server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ReadTimeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// WriteTimeout returns the server write timeout.
func (c *Config) WriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.WriteTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
