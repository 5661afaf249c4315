package config

import (
	"time"

	"github.com/rileyhilliard/vitals/internal/telemetry"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// DefaultAgentURL is where the agent listens out of the box.
const DefaultAgentURL = "http://127.0.0.1:8000"

// Config represents the complete .vitals.yaml configuration file.
type Config struct {
	Version       int                     `yaml:"version" mapstructure:"version"`
	Agent         AgentConfig             `yaml:"agent" mapstructure:"agent"`
	Sources       map[string]SourceConfig `yaml:"sources" mapstructure:"sources"`
	History       HistoryConfig           `yaml:"history" mapstructure:"history"`
	Notifications NotificationsConfig     `yaml:"notifications" mapstructure:"notifications"`
	Output        OutputConfig            `yaml:"output" mapstructure:"output"`
}

// AgentConfig says where the telemetry agent lives and how to reach it.
type AgentConfig struct {
	// URL is the agent's base URL.
	URL string `yaml:"url" mapstructure:"url"`

	// SSH, when set, tunnels every request through this SSH host
	// (hostname, user@hostname, or SSH config alias). Use it for agents
	// bound to the remote machine's loopback interface.
	SSH string `yaml:"ssh,omitempty" mapstructure:"ssh"`

	// InsecureHostKey skips known_hosts verification for the SSH host.
	InsecureHostKey bool `yaml:"insecure_host_key,omitempty" mapstructure:"insecure_host_key"`

	// Timeout bounds every single request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SourceConfig controls polling of one metric source.
type SourceConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
}

// HistoryConfig sizes the per-source rolling history.
type HistoryConfig struct {
	Size int `yaml:"size" mapstructure:"size"`

	// Prefill starts every history full of gaps so charts keep a fixed width.
	Prefill bool `yaml:"prefill" mapstructure:"prefill"`
}

// NotificationsConfig controls the alert stream.
type NotificationsConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Path    string        `yaml:"path" mapstructure:"path"`
	Backoff BackoffConfig `yaml:"backoff" mapstructure:"backoff"`
}

// BackoffConfig is the reconnect policy for the alert stream.
type BackoffConfig struct {
	Initial time.Duration `yaml:"initial" mapstructure:"initial"`
	Max     time.Duration `yaml:"max" mapstructure:"max"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	// "auto" disables color when output is piped.
	Color string `yaml:"color" mapstructure:"color"`

	// LogFile receives log output while the dashboard owns the terminal.
	// Empty discards it.
	LogFile string `yaml:"log_file,omitempty" mapstructure:"log_file"`
}

// DefaultInterval is the default polling period for every source.
const DefaultInterval = 2 * time.Second

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	sources := make(map[string]SourceConfig, len(telemetry.AllSources))
	for _, src := range telemetry.AllSources {
		sources[string(src)] = SourceConfig{Interval: DefaultInterval, Enabled: true}
	}

	return &Config{
		Version: CurrentConfigVersion,
		Agent: AgentConfig{
			URL:     DefaultAgentURL,
			Timeout: 5 * time.Second,
		},
		Sources: sources,
		History: HistoryConfig{
			Size:    telemetry.DefaultHistorySize,
			Prefill: true,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Path:    "/notification",
			Backoff: BackoffConfig{
				Initial: 500 * time.Millisecond,
				Max:     30 * time.Second,
			},
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}

// EnabledSources returns the enabled sources in display order.
func (c *Config) EnabledSources() []telemetry.Source {
	var out []telemetry.Source
	for _, src := range telemetry.AllSources {
		if sc, ok := c.Sources[string(src)]; ok && sc.Enabled {
			out = append(out, src)
		}
	}
	return out
}

// Interval returns the polling period for src, falling back to DefaultInterval.
func (c *Config) Interval(src telemetry.Source) time.Duration {
	if sc, ok := c.Sources[string(src)]; ok && sc.Interval > 0 {
		return sc.Interval
	}
	return DefaultInterval
}

// The yaml encoder writes time.Duration as nanoseconds. These views keep the
// written file in the same "2s" form the loader reads.

type agentYAML struct {
	URL             string `yaml:"url"`
	SSH             string `yaml:"ssh,omitempty"`
	InsecureHostKey bool   `yaml:"insecure_host_key,omitempty"`
	Timeout         string `yaml:"timeout"`
}

// MarshalYAML writes durations as strings.
func (a AgentConfig) MarshalYAML() (interface{}, error) {
	return agentYAML{URL: a.URL, SSH: a.SSH, InsecureHostKey: a.InsecureHostKey, Timeout: a.Timeout.String()}, nil
}

type sourceYAML struct {
	Interval string `yaml:"interval"`
	Enabled  bool   `yaml:"enabled"`
}

// MarshalYAML writes durations as strings.
func (s SourceConfig) MarshalYAML() (interface{}, error) {
	return sourceYAML{Interval: s.Interval.String(), Enabled: s.Enabled}, nil
}

type backoffYAML struct {
	Initial string `yaml:"initial"`
	Max     string `yaml:"max"`
}

// MarshalYAML writes durations as strings.
func (b BackoffConfig) MarshalYAML() (interface{}, error) {
	return backoffYAML{Initial: b.Initial.String(), Max: b.Max.String()}, nil
}
