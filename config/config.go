package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/hedger/hedge"
	"github.com/rustyeddy/hedger/internal/logging"
)

// Config is the complete hedger configuration.
type Config struct {
	Actor   ActorConfig    `json:"actor" yaml:"actor"`
	Store   StoreConfig    `json:"store" yaml:"store"`
	API     APIConfig      `json:"api" yaml:"api"`
	Server  ServerConfig   `json:"server" yaml:"server"`
	Log     LogConfig      `json:"log" yaml:"log"`
	Metrics MetricsConfig  `json:"metrics" yaml:"metrics"`
	Rules   RulesConfig    `json:"rules" yaml:"rules"`
	Methods []MethodConfig `json:"methods,omitempty" yaml:"methods,omitempty"`
}

// ActorConfig is the user running transitions from the CLI.
type ActorConfig struct {
	Name  string `json:"name" yaml:"name"`
	Roles []int  `json:"roles" yaml:"roles"`
	DPI   bool   `json:"dpi" yaml:"dpi"`
}

type StoreConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// APIConfig points the CLI at a remote service. An empty BaseURL means the
// local simulated backend over Store.
type APIConfig struct {
	BaseURL         string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Token           string `json:"token,omitempty" yaml:"token,omitempty"`
	Timeout         string `json:"timeout,omitempty" yaml:"timeout,omitempty"`                     // e.g. "30s"
	RetryMaxElapsed string `json:"retry_max_elapsed,omitempty" yaml:"retry_max_elapsed,omitempty"` // "0" disables retries
}

// TimeoutDuration parses Timeout; empty means zero.
func (a APIConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration(a.Timeout)
}

// RetryDuration parses RetryMaxElapsed; empty means zero.
func (a APIConfig) RetryDuration() (time.Duration, error) {
	return parseDuration(a.RetryMaxElapsed)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

type ServerConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

type RulesConfig struct {
	DedesignationWarnMonths int `json:"dedesignation_warn_months" yaml:"dedesignation_warn_months"`
}

// MethodConfig is one effectiveness-method catalog entry.
type MethodConfig struct {
	ID             int    `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	IsForFairValue bool   `json:"is_for_fair_value" yaml:"is_for_fair_value"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Actor.Name == "" {
		return fmt.Errorf("actor.name is required")
	}
	if c.API.BaseURL == "" && c.Store.DBPath == "" {
		return fmt.Errorf("store.db_path is required without api.base_url")
	}
	if _, err := c.API.TimeoutDuration(); err != nil {
		return fmt.Errorf("api.timeout: %w", err)
	}
	if _, err := c.API.RetryDuration(); err != nil {
		return fmt.Errorf("api.retry_max_elapsed: %w", err)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be 'json' or 'console'")
	}
	if c.Rules.DedesignationWarnMonths < 0 {
		return fmt.Errorf("rules.dedesignation_warn_months cannot be negative")
	}

	seen := make(map[int]bool, len(c.Methods))
	for _, m := range c.Methods {
		if m.Name == "" {
			return fmt.Errorf("methods: id %d has no name", m.ID)
		}
		if seen[m.ID] {
			return fmt.Errorf("methods: duplicate id %d", m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

// User is the configured actor.
func (c *Config) User() hedge.User {
	return hedge.User{Name: c.Actor.Name, Roles: c.Actor.Roles, DPI: c.Actor.DPI}
}

// EffectivenessMethods returns the configured catalog, or the built-in one
// when none is set.
func (c *Config) EffectivenessMethods() []hedge.EffectivenessMethod {
	if len(c.Methods) == 0 {
		return hedge.DefaultMethods
	}
	out := make([]hedge.EffectivenessMethod, len(c.Methods))
	for i, m := range c.Methods {
		out[i] = hedge.EffectivenessMethod{ID: m.ID, Name: m.Name, IsForFairValue: m.IsForFairValue}
	}
	return out
}

// Default returns a configuration for a local, single-user setup.
func Default() *Config {
	methods := make([]MethodConfig, len(hedge.DefaultMethods))
	for i, m := range hedge.DefaultMethods {
		methods[i] = MethodConfig{ID: m.ID, Name: m.Name, IsForFairValue: m.IsForFairValue}
	}
	return &Config{
		Actor: ActorConfig{
			Name:  "admin",
			Roles: []int{hedge.RoleHedgeAdmin},
		},
		Store: StoreConfig{DBPath: "./hedger.db"},
		API: APIConfig{
			Timeout:         "30s",
			RetryMaxElapsed: "10s",
		},
		Server:  ServerConfig{Host: "localhost", Port: 8080},
		Log:     LogConfig{Level: "info", Format: "console"},
		Metrics: MetricsConfig{Enabled: true},
		Rules:   RulesConfig{DedesignationWarnMonths: 3},
		Methods: methods,
	}
}
