// Package config loads and validates the gateway's process configuration: the
// static agent roster, backend project/location, server and streaming knobs.
// Invalid configuration fails process startup, never individual requests.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentgate/core"
)

// Agent is one roster entry. ProjectID/Location override the global backend
// location for this agent only. Entries are immutable after load.
type Agent struct {
	AgentID     string `yaml:"agent_id"`
	ProjectID   string `yaml:"project_id"`
	Location    string `yaml:"location"`
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	Enabled     bool   `yaml:"enabled"`
}

// UnmarshalYAML applies the enabled-by-default policy before decoding.
func (a *Agent) UnmarshalYAML(value *yaml.Node) error {
	type raw Agent
	r := raw{Enabled: true}
	if err := value.Decode(&r); err != nil {
		return err
	}
	*a = Agent(r)
	return nil
}

// Info converts the entry to its wire representation.
func (a *Agent) Info() core.AgentInfo {
	return core.AgentInfo{
		AgentID:     a.AgentID,
		Name:        a.Name,
		DisplayName: a.DisplayName,
		Description: a.Description,
		Enabled:     a.Enabled,
	}
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LogConfig selects log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GoogleCloudConfig names the global backend project/location.
type GoogleCloudConfig struct {
	Project  string `yaml:"project"`
	Location string `yaml:"location"`
}

// StreamingConfig tunes SSE delivery.
type StreamingConfig struct {
	// KeepaliveInterval is the idle gap after which a ping frame is emitted.
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
	// EventPollInterval is the backend polling cadence for event tailing.
	EventPollInterval time.Duration `yaml:"event_poll_interval"`
}

// UnmarshalYAML accepts Go duration strings ("15s", "500ms") for the
// intervals; omitted fields keep their current values.
func (s *StreamingConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		KeepaliveInterval string `yaml:"keepalive_interval"`
		EventPollInterval string `yaml:"event_poll_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.KeepaliveInterval != "" {
		d, err := time.ParseDuration(raw.KeepaliveInterval)
		if err != nil {
			return fmt.Errorf("streaming.keepalive_interval: %w", err)
		}
		s.KeepaliveInterval = d
	}
	if raw.EventPollInterval != "" {
		d, err := time.ParseDuration(raw.EventPollInterval)
		if err != nil {
			return fmt.Errorf("streaming.event_poll_interval: %w", err)
		}
		s.EventPollInterval = d
	}
	return nil
}

// Config is the full process configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	GoogleCloud GoogleCloudConfig `yaml:"google_cloud"`
	Agents      []Agent           `yaml:"agents"`
	Streaming   StreamingConfig   `yaml:"streaming"`
}

// Default returns the baseline configuration applied before file values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:8000"},
		},
		Log: LogConfig{Level: "info", Format: "json"},
		GoogleCloud: GoogleCloudConfig{
			Location: "us-central1",
		},
		Streaming: StreamingConfig{
			KeepaliveInterval: 15 * time.Second,
			EventPollInterval: 2 * time.Second,
		},
	}
}

// Load reads, decodes and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the startup invariants: a backend project, and a roster
// whose entries carry an id and a name with no duplicate ids.
func (c *Config) Validate() error {
	if c.GoogleCloud.Project == "" {
		return fmt.Errorf("config: google_cloud.project is required")
	}
	seen := map[string]bool{}
	for i, agent := range c.Agents {
		if agent.AgentID == "" {
			return fmt.Errorf("config: agents[%d]: agent_id is required", i)
		}
		if agent.Name == "" {
			return fmt.Errorf("config: agents[%d] (%s): name is required", i, agent.AgentID)
		}
		if seen[agent.AgentID] {
			return fmt.Errorf("config: duplicate agent_id %q", agent.AgentID)
		}
		seen[agent.AgentID] = true
	}
	if c.Streaming.KeepaliveInterval <= 0 {
		c.Streaming.KeepaliveInterval = 15 * time.Second
	}
	if c.Streaming.EventPollInterval <= 0 {
		c.Streaming.EventPollInterval = 2 * time.Second
	}
	return nil
}

// Agent returns the roster entry for id, or nil when unknown.
func (c *Config) Agent(id string) *Agent {
	for i := range c.Agents {
		if c.Agents[i].AgentID == id {
			return &c.Agents[i]
		}
	}
	return nil
}

// Addr returns the listener address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
