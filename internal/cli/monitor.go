package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/internal/monitor"
	"github.com/rileyhilliard/vitals/internal/notify"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// alertBuffer is how many alerts may queue between dashboard redraws.
const alertBuffer = 32

// monitorCommand starts the TUI dashboard. Without a terminal it prints one
// snapshot of every enabled source instead.
func monitorCommand(ctx context.Context, w io.Writer) error {
	if machineMode || !term.IsTerminal(int(os.Stdout.Fd())) {
		return snapshotCommand(ctx, w, nil)
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	sources := s.cfg.EnabledSources()
	if len(sources) == 0 {
		return errors.New(errors.ErrConfig,
			"No sources enabled",
			"Enable at least one source under 'sources' in "+displayPath(s.cfgPath)+", or pass --sources.")
	}

	hub, err := s.newHub(sources)
	if err != nil {
		return err
	}

	// The dashboard owns the terminal from here on. Log lines go to the
	// configured file instead of tearing the screen.
	restore, err := logger.RedirectStandard(s.cfg.Output.LogFile)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't open log file "+s.cfg.Output.LogFile,
			"Check output.log_file in your config")
	}
	defer restore()

	if err := hub.Start(); err != nil {
		return err
	}
	defer hub.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deps := monitor.Deps{
		Hub:      hub,
		Agent:    s.agent,
		Settings: s.newSettingsStore(),
		Title:    s.Title(),
		Logger:   s.log,
	}

	var channelDone chan struct{}
	if s.cfg.Notifications.Enabled {
		alerts := make(chan notify.Alert, alertBuffer)
		ch := s.newAlertChannel(notify.ChanSink(alerts))
		deps.Alerts = alerts
		deps.Channel = ch

		channelDone = make(chan struct{})
		go func() {
			defer close(channelDone)
			if err := ch.Run(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("alert stream stopped: %s", errors.ShortMessage(err))
			}
		}()
	}

	model, err := monitor.NewModel(deps)
	if err != nil {
		return err
	}
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()

	cancel()
	if channelDone != nil {
		<-channelDone
	}
	if err != nil && ctx.Err() != nil && stderrors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Open the live dashboard (default command)",
	Long: `Open the live telemetry dashboard. This is what plain 'vitals' runs.

When stdout isn't a terminal, prints one snapshot of every enabled source
instead.

Keyboard shortcuts:
  q / Ctrl+C   Quit
  tab / 1-3    Switch tab (System, Processes, Alerts)
  up/k down/j  Move the selection
  s            Cycle process sort order
  x            Kill the selected process
  d / esc      Dismiss alert toasts
  ?            Show help

Examples:
  vitals monitor
  vitals monitor --interval 1s --sources realtime,processes
  vitals --ssh nas monitor`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return monitorCommand(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	AddPollFlags(monitorCmd, &pollFlags)
	rootCmd.AddCommand(monitorCmd)
}
