package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/internal/telemetry"
	"github.com/rileyhilliard/vitals/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile         string
	agentURL        string
	sshHost         string
	insecureHostKey bool
	debugFlag       bool
	noColor         bool
	pollFlags       PollFlags
)

var rootCmd = &cobra.Command{
	Use:   "vitals",
	Short: "Live telemetry dashboard for a remote host agent",
	Long: `vitals polls a telemetry agent for CPU, memory, disk, network and
process metrics, keeps a short rolling history per metric, and shows it in a
live terminal dashboard alongside the agent's threshold alerts.

Run without a subcommand to open the dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyGlobalFlags()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return monitorCommand(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .vitals.yaml, then ~/.config/vitals/config.yaml)")
	pf.StringVar(&agentURL, "url", "", "agent base URL, overrides agent.url")
	pf.StringVar(&sshHost, "ssh", "", "reach the agent through this SSH host, overrides agent.ssh")
	pf.BoolVar(&insecureHostKey, "insecure-host-key", false, "skip known_hosts verification for the SSH host")
	pf.BoolVar(&machineMode, "json", false, "machine-readable JSON output")
	pf.BoolVar(&debugFlag, "debug", false, "print debug logs to stderr")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")

	AddPollFlags(rootCmd, &pollFlags)
}

func applyGlobalFlags() {
	if debugFlag {
		_ = os.Setenv(logger.DebugEnv, "1")
	}
	if noColor || machineMode {
		ui.DisableColors()
	}
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		err = explainUsageError(err)
		if machineMode {
			_ = WriteJSONFromError(os.Stdout, err)
		} else {
			fmt.Fprint(os.Stderr, formatError(err))
		}
		stop()
		os.Exit(1)
	}
}

// formatError renders err for a terminal. Structured errors already carry
// their own layout.
func formatError(err error) string {
	msg := err.Error()
	if errors.CodeOf(err) == "" {
		msg = ui.SymbolFail + " " + msg
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return ui.ErrorStyle().Render(strings.TrimSuffix(msg, "\n")) + "\n"
}

// explainUsageError adds a suggestion to cobra's unknown command and flag errors.
func explainUsageError(err error) error {
	if !isUnknownCommandError(err) {
		return err
	}
	suggestion := "Run 'vitals --help' to see available commands."
	if name := extractUnknownCommand(err); name != "" {
		if _, perr := telemetry.ParseSource(name); perr == nil {
			suggestion = fmt.Sprintf("To fetch one reading, run 'vitals snapshot %s'.", name)
		}
	}
	return errors.New(errors.ErrConfig, err.Error(), suggestion)
}

func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// extractUnknownCommand pulls the quoted name out of `unknown command "x" for "vitals"`.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
