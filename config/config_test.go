package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	data := []byte(`
server:
  host: 127.0.0.1
  port: 9090
  cors_origins:
    - https://app.example.com
log:
  level: debug
  format: text
google_cloud:
  project: my-project
  location: europe-west1
streaming:
  keepalive_interval: 5s
  event_poll_interval: 1s
agents:
  - agent_id: support
    name: "1234567890"
    display_name: Support Agent
  - agent_id: billing
    name: "9876543210"
    enabled: false
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "my-project", cfg.GoogleCloud.Project)
	assert.Equal(t, "europe-west1", cfg.GoogleCloud.Location)
	assert.Equal(t, 5*time.Second, cfg.Streaming.KeepaliveInterval)

	require.Len(t, cfg.Agents, 2)
	assert.True(t, cfg.Agents[0].Enabled, "enabled defaults to true")
	assert.False(t, cfg.Agents[1].Enabled)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("google_cloud:\n  project: p\n"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "us-central1", cfg.GoogleCloud.Location)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 15*time.Second, cfg.Streaming.KeepaliveInterval)
	assert.Equal(t, 2*time.Second, cfg.Streaming.EventPollInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "missing project",
			mutate:  func(c *Config) { c.GoogleCloud.Project = "" },
			wantErr: "google_cloud.project",
		},
		{
			name: "missing agent id",
			mutate: func(c *Config) {
				c.Agents = []Agent{{Name: "n"}}
			},
			wantErr: "agent_id is required",
		},
		{
			name: "missing agent name",
			mutate: func(c *Config) {
				c.Agents = []Agent{{AgentID: "a"}}
			},
			wantErr: "name is required",
		},
		{
			name: "duplicate agent id",
			mutate: func(c *Config) {
				c.Agents = []Agent{{AgentID: "a", Name: "n1"}, {AgentID: "a", Name: "n2"}}
			},
			wantErr: "duplicate agent_id",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.GoogleCloud.Project = "p"
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidate_RepairsNonPositiveIntervals(t *testing.T) {
	cfg := Default()
	cfg.GoogleCloud.Project = "p"
	cfg.Streaming.KeepaliveInterval = 0
	cfg.Streaming.EventPollInterval = -time.Second

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15*time.Second, cfg.Streaming.KeepaliveInterval)
	assert.Equal(t, 2*time.Second, cfg.Streaming.EventPollInterval)
}

func TestConfig_Agent(t *testing.T) {
	cfg := Default()
	cfg.Agents = []Agent{{AgentID: "a", Name: "n"}}

	require.NotNil(t, cfg.Agent("a"))
	assert.Nil(t, cfg.Agent("missing"))
}

func TestAgent_Info(t *testing.T) {
	a := Agent{AgentID: "a", Name: "n", DisplayName: "d", Description: "desc", Enabled: true}
	info := a.Info()
	assert.Equal(t, "a", info.AgentID)
	assert.Equal(t, "d", info.DisplayName)
	assert.True(t, info.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	require.Error(t, err)
}
