// Package config holds the bridge configuration with defaults suitable for a
// locally spawned backend. A config file can be referenced by URL (file, s3,
// gs and any other scheme supported by afs) and individual values overridden
// from command line flags.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

type (
	// Config describes the bridge runtime settings.
	Config struct {
		Backend Backend `yaml:"backend,omitempty" json:"backend,omitempty"`
		HTTP    HTTP    `yaml:"http,omitempty" json:"http,omitempty"`
		Stream  Stream  `yaml:"stream,omitempty" json:"stream,omitempty"`
	}

	// Backend configures the supervised backend process.
	Backend struct {
		// Command overrides backend executable discovery when set.
		Command string   `yaml:"command,omitempty" json:"command,omitempty"`
		Args    []string `yaml:"args,omitempty" json:"args,omitempty"`
		Port    int      `yaml:"port,omitempty" json:"port,omitempty"`
		// ReadyMarker is the stdout substring signalling the backend accepts requests.
		ReadyMarker    string `yaml:"readyMarker,omitempty" json:"readyMarker,omitempty"`
		ReadyTimeoutMs int    `yaml:"readyTimeoutMs,omitempty" json:"readyTimeoutMs,omitempty"`
	}

	// HTTP configures the retrying backend client.
	HTTP struct {
		TimeoutMs     int `yaml:"timeoutMs,omitempty" json:"timeoutMs,omitempty"`
		MaxAttempts   int `yaml:"maxAttempts,omitempty" json:"maxAttempts,omitempty"`
		BackoffBaseMs int `yaml:"backoffBaseMs,omitempty" json:"backoffBaseMs,omitempty"`
	}

	// Stream configures the SSE progress server.
	Stream struct {
		Port int `yaml:"port,omitempty" json:"port,omitempty"`
		// StageDelayMs paces simulated progress stages; purely presentational.
		StageDelayMs int `yaml:"stageDelayMs,omitempty" json:"stageDelayMs,omitempty"`
	}
)

// Init applies defaults for unset values.
func (c *Config) Init() {
	if c.Backend.Port == 0 {
		c.Backend.Port = 3002
	}
	if c.Backend.ReadyMarker == "" {
		c.Backend.ReadyMarker = "listening on"
	}
	if c.Backend.ReadyTimeoutMs == 0 {
		c.Backend.ReadyTimeoutMs = 30000
	}
	if c.HTTP.TimeoutMs == 0 {
		c.HTTP.TimeoutMs = 15000
	}
	if c.HTTP.MaxAttempts == 0 {
		c.HTTP.MaxAttempts = 3
	}
	if c.HTTP.BackoffBaseMs == 0 {
		c.HTTP.BackoffBaseMs = 1000
	}
	if c.Stream.Port == 0 {
		c.Stream.Port = 3001
	}
	if c.Stream.StageDelayMs == 0 {
		c.Stream.StageDelayMs = 300
	}
}

// BackendURL returns the loopback base URL of the supervised backend.
func (c *Config) BackendURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", c.Backend.Port)
}

// StreamBaseURL returns the loopback base URL of the SSE progress server.
func (c *Config) StreamBaseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", c.Stream.Port)
}

// ReadyTimeout returns the readiness timeout as a duration.
func (c *Config) ReadyTimeout() time.Duration {
	return time.Duration(c.Backend.ReadyTimeoutMs) * time.Millisecond
}

// StageDelay returns the per-stage progress delay as a duration.
func (c *Config) StageDelay() time.Duration {
	return time.Duration(c.Stream.StageDelayMs) * time.Millisecond
}

// New returns a Config with defaults applied.
func New() *Config {
	ret := &Config{}
	ret.Init()
	return ret
}

// Load reads a JSON or YAML config from the supplied URL and applies defaults.
func Load(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v %w", URL, err)
	}
	ret := &Config{}
	if jsonErr := json.Unmarshal(data, ret); jsonErr != nil {
		if yamlErr := yaml.Unmarshal(data, ret); yamlErr != nil {
			return nil, fmt.Errorf("failed to parse config: %v %w", URL, yamlErr)
		}
	}
	ret.Init()
	return ret, nil
}
