package cli

import (
	"context"

	"github.com/rileyhilliard/vitals/internal/agentapi"
	"github.com/rileyhilliard/vitals/internal/config"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/internal/notify"
	"github.com/rileyhilliard/vitals/internal/settings"
	"github.com/rileyhilliard/vitals/internal/telemetry"
	"github.com/rileyhilliard/vitals/internal/ui"
	"github.com/rileyhilliard/vitals/pkg/sshutil"
)

// session is one connection to the agent: the resolved config, the HTTP
// client, and the SSH tunnel underneath it when agent.ssh is set.
type session struct {
	cfg     *config.Config
	cfgPath string
	agent   *agentapi.Client
	tunnel  *sshutil.Tunnel
	log     logger.Logger
}

// loadConfig resolves the config file and applies the global flag overrides.
func loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, "", err
	}
	if agentURL != "" {
		cfg.Agent.URL = agentURL
	}
	if sshHost != "" {
		cfg.Agent.SSH = sshHost
	}
	if insecureHostKey {
		cfg.Agent.InsecureHostKey = true
	}
	if err := pollFlags.Apply(cfg); err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	if !noColor && !machineMode {
		ui.SetColorMode(cfg.Output.Color)
	}
	return cfg, path, nil
}

// openSession loads config and connects to the agent. The caller must Close it.
func openSession(ctx context.Context) (*session, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:     cfg,
		cfgPath: path,
		log:     logger.NewEnvLogger("[vitals]"),
	}
	s.log.Debug("config: %s, agent: %s", displayPath(path), cfg.Agent.URL)

	opts := []agentapi.Option{
		agentapi.WithTimeout(cfg.Agent.Timeout),
		agentapi.WithLogger(s.log),
	}
	if cfg.Agent.SSH != "" {
		tunnel, err := sshutil.Open(ctx, cfg.Agent.SSH, sshutil.Options{
			Timeout:         cfg.Agent.Timeout,
			InsecureHostKey: cfg.Agent.InsecureHostKey,
			Logger:          s.log,
		})
		if err != nil {
			return nil, err
		}
		s.tunnel = tunnel
		opts = append(opts, agentapi.WithDialContext(tunnel.DialContext))
		s.log.Debug("tunneling through %s", cfg.Agent.SSH)
	}

	agent, err := agentapi.NewClient(cfg.Agent.URL, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.agent = agent
	return s, nil
}

// Close tears down the SSH tunnel, if any, with its ssh-agent connection.
func (s *session) Close() {
	if s.tunnel != nil {
		_ = s.tunnel.Close()
	}
}

// Title names the agent for headers.
func (s *session) Title() string {
	if s.cfg.Agent.SSH != "" {
		return s.cfg.Agent.URL + " via " + s.cfg.Agent.SSH
	}
	return s.cfg.Agent.URL
}

// newHub registers sources on a hub. Fetches are bounded by the agent
// timeout, not the poll interval: the agent's slower endpoints take longer
// than one interval to answer.
func (s *session) newHub(sources []telemetry.Source) (*telemetry.Hub, error) {
	hub := telemetry.NewHub(telemetry.NewFetcher(s.agent),
		telemetry.WithHistory(s.cfg.History.Size, s.cfg.History.Prefill),
		telemetry.WithHubLogger(s.log),
		telemetry.WithSchedulerOptions(telemetry.WithFetchTimeout(s.cfg.Agent.Timeout)),
	)
	for _, src := range sources {
		if err := hub.Register(src, s.cfg.Interval(src)); err != nil {
			return nil, err
		}
	}
	return hub, nil
}

func (s *session) newSettingsStore() *settings.Store {
	return settings.NewStore(s.agent, settings.WithLogger(s.log))
}

// newAlertChannel builds the notification stream over the same transport
// as the HTTP client, so it follows the SSH tunnel too.
func (s *session) newAlertChannel(sink notify.Sink, opts ...notify.Option) *notify.Channel {
	n := s.cfg.Notifications
	base := []notify.Option{
		notify.WithDialer(notify.NewWebSocketDialer(s.agent.DialContext())),
		notify.WithBackoff(notify.Backoff{Initial: n.Backoff.Initial, Max: n.Backoff.Max}),
		notify.WithLogger(s.log),
	}
	return notify.NewChannel(s.agent.WebSocketURL(n.Path), sink, append(base, opts...)...)
}

func displayPath(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}
