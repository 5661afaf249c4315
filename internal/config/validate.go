package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/telemetry"
)

// MinInterval is the fastest polling period accepted.
const MinInterval = 100 * time.Millisecond

// MaxHistorySize bounds the per-source history.
const MaxHistorySize = 10_000

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but vitals only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Grab the latest vitals release")
	}

	if err := validateAgent(cfg.Agent); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'agent' section in your .vitals.yaml.")
	}

	if err := validateSources(cfg.Sources); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'sources' section in your .vitals.yaml.")
	}

	if cfg.History.Size < 1 || cfg.History.Size > MaxHistorySize {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("history.size must be between 1 and %d, got %d", MaxHistorySize, cfg.History.Size),
			"The default of 10 matches the dashboard width.")
	}

	if err := validateNotifications(cfg.Notifications); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'notifications' section in your .vitals.yaml.")
	}

	if err := validateOutput(cfg.Output); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'output' section in your .vitals.yaml.")
	}

	return nil
}

func validateAgent(agent AgentConfig) error {
	if agent.URL == "" {
		return fmt.Errorf("agent.url is required")
	}
	u, err := url.Parse(agent.URL)
	if err != nil {
		return fmt.Errorf("agent.url '%s' is not a valid URL: %v", agent.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("agent.url must start with http:// or https://, got '%s'", agent.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("agent.url '%s' has no host", agent.URL)
	}
	if agent.Timeout <= 0 {
		return fmt.Errorf("agent.timeout must be positive, got %s", agent.Timeout)
	}
	if strings.ContainsAny(agent.SSH, " \t") {
		return fmt.Errorf("agent.ssh '%s' should be a single host, alias, or user@host", agent.SSH)
	}
	return nil
}

func validateSources(sources map[string]SourceConfig) error {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	enabled := 0
	for _, name := range names {
		if _, err := telemetry.ParseSource(name); err != nil {
			return fmt.Errorf("unknown source '%s' (valid: %v)", name, telemetry.AllSources)
		}
		sc := sources[name]
		if !sc.Enabled {
			continue
		}
		enabled++
		if sc.Interval < MinInterval {
			return fmt.Errorf("sources.%s.interval must be at least %s, got %s", name, MinInterval, sc.Interval)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no sources are enabled")
	}
	return nil
}

func validateNotifications(n NotificationsConfig) error {
	if !n.Enabled {
		return nil
	}
	if !strings.HasPrefix(n.Path, "/") {
		return fmt.Errorf("notifications.path must start with '/', got '%s'", n.Path)
	}
	if n.Backoff.Initial <= 0 {
		return fmt.Errorf("notifications.backoff.initial must be positive, got %s", n.Backoff.Initial)
	}
	if n.Backoff.Max < n.Backoff.Initial {
		return fmt.Errorf("notifications.backoff.max (%s) must not be less than initial (%s)", n.Backoff.Max, n.Backoff.Initial)
	}
	return nil
}

func validateOutput(out OutputConfig) error {
	switch out.Color {
	case "", "auto", "always", "never":
		return nil
	}
	return fmt.Errorf("output.color must be auto, always, or never, got '%s'", out.Color)
}
