package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/vitals/internal/config"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/ui"
	"github.com/rileyhilliard/vitals/pkg/sshutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var (
	configInitForce bool
	configInitPick  bool
	configInitURL   string
	configInitPath  string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create and inspect the vitals config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .vitals.yaml configuration",
	Long: `Create a .vitals.yaml file in the current directory with sensible defaults.

In a terminal you're asked for the agent URL. --pick chooses an SSH host
from ~/.ssh/config to tunnel through, for agents that only listen on the
remote machine's loopback.

Examples:
  vitals config init
  vitals config init --url http://nas.local:8000
  vitals config init --pick --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configInitPath
		if path == "" {
			path = config.ConfigFileName
		}
		return configInitCommand(cmd.OutOrStdout(), path, configInitURL, configInitPick, configInitForce)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one value in the config file",
	Long: `Set a dotted key in the config file found for this directory, keeping
its comments and layout. The result is validated before it's kept.

Examples:
  vitals config set agent.url http://nas.local:8000
  vitals config set sources.processes.interval 5s
  vitals config set notifications.enabled false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return configSetCommand(cmd.OutOrStdout(), args[0], args[1])
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after defaults, the config file, VITALS_* environment variables, and flags are applied.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowCommand(cmd.OutOrStdout())
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print which config file is in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Find(cfgFile)
		if err != nil {
			return err
		}
		if machineMode {
			return WriteJSONSuccess(cmd.OutOrStdout(), map[string]string{"path": path})
		}
		fmt.Fprintln(cmd.OutOrStdout(), displayPath(path))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite existing config")
	configInitCmd.Flags().BoolVar(&configInitPick, "pick", false, "pick an SSH host to tunnel through")
	configInitCmd.Flags().StringVar(&configInitURL, "agent-url", "", "agent base URL to write")
	configInitCmd.Flags().StringVarP(&configInitPath, "output", "o", "", "write to this path instead of ./"+config.ConfigFileName)

	configCmd.AddCommand(configInitCmd, configSetCmd, configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func configInitCommand(w io.Writer, path, agentURLFlag string, pick, force bool) error {
	interactive := !machineMode && term.IsTerminal(int(os.Stdin.Fd()))

	if _, err := os.Stat(path); err == nil && !force {
		if !interactive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", path),
				"Use --force to overwrite")
		}
		overwrite, err := confirm(fmt.Sprintf("Config file '%s' already exists. Overwrite?", path))
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Fprintln(w, "Cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if agentURLFlag != "" {
		cfg.Agent.URL = agentURLFlag
	} else if interactive {
		if err := promptAgentURL(&cfg.Agent.URL); err != nil {
			return err
		}
	}

	if pick {
		if !interactive {
			return errors.New(errors.ErrConfig,
				"--pick needs a terminal",
				"Drop --pick and run 'vitals config set agent.ssh <host>' afterwards")
		}
		host, err := pickTunnelHost()
		if err != nil {
			return err
		}
		cfg.Agent.SSH = host
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Write(path, cfg, true); err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(w, map[string]string{"path": path})
	}
	abs, _ := filepath.Abs(path)
	fmt.Fprintf(w, "%s Wrote %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), abs)
	fmt.Fprintln(w, ui.MutedStyle().Render("Run 'vitals' to open the dashboard."))
	return nil
}

func promptAgentURL(target *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Agent URL").
				Description("Where the telemetry agent listens").
				Value(target).
				Validate(func(s string) error {
					u, err := url.Parse(s)
					if err != nil || u.Scheme == "" || u.Host == "" {
						return stderrors.New("enter a URL like http://host:8000")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Pass --agent-url instead")
	}
	return nil
}

// pickTunnelHost offers the SSH aliases Open could log in to and returns the
// chosen one, a typed-in host, or "" to reach the agent directly.
func pickTunnelHost() (string, error) {
	hosts, err := sshutil.TunnelHosts("")
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't read ~/.ssh/config",
			"Set agent.ssh by hand with 'vitals config set agent.ssh <host>'")
	}

	options := make([]ui.TunnelHost, len(hosts))
	for i, h := range hosts {
		options[i] = ui.TunnelHost{
			Alias:  h.Alias,
			Detail: h.Description(),
			Search: strings.TrimSpace(h.Hostname + " " + h.User),
		}
	}

	choice, alias, err := ui.PickTunnel(options, os.Stdin, os.Stdout)
	if err != nil {
		return "", err
	}
	switch choice {
	case ui.TunnelViaHost:
		return alias, nil
	case ui.TunnelDirect:
		return "", nil
	case ui.TunnelCancelled:
		return "", errors.New(errors.ErrConfig, "No SSH host chosen", "Run again without --pick to skip the tunnel")
	}

	var host string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("SSH host").
				Description("hostname, user@hostname, or an alias from ~/.ssh/config").
				Value(&host),
		),
	)
	if err := form.Run(); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Set agent.ssh by hand with 'vitals config set agent.ssh <host>'")
	}
	return host, nil
}

func confirm(title string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(huh.NewConfirm().Title(title).Value(&ok)))
	if err := form.Run(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Try running with --force to overwrite")
	}
	return ok, nil
}

func configSetCommand(w io.Writer, key, value string) error {
	path, err := config.Find(cfgFile)
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New(errors.ErrConfig,
			"Config file not found",
			"Create one with 'vitals config init'")
	}

	original, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Cannot read config file: "+path, "Check file permissions")
	}
	if err := config.SetValue(path, key, value); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't set %s", key),
			"Keys are dotted paths such as agent.url or sources.cpu.interval")
	}

	// A value that doesn't load or validate is rolled back.
	cfg, err := config.Load(path)
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		_ = os.WriteFile(path, original, 0o644)
		return err
	}

	if machineMode {
		return WriteJSONSuccess(w, map[string]string{"path": path, "key": key, "value": value})
	}
	fmt.Fprintf(w, "%s %s = %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), key, value)
	return nil
}

func configShowCommand(w io.Writer) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(w, map[string]interface{}{"path": path, "config": cfg})
	}

	fmt.Fprintln(w, ui.MutedStyle().Render("# "+displayPath(path)))
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
