package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/processes"
	"github.com/rileyhilliard/vitals/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var killYes bool

var killCmd = &cobra.Command{
	Use:   "kill <pid>",
	Short: "Ask the agent to terminate a process",
	Long: `Ask the agent to terminate the process with the given PID.

Shows the process and asks for confirmation unless --yes is given.
Without a terminal (or with --json) --yes is required.

Examples:
  vitals kill 4242
  vitals kill 4242 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := ParsePID(args[0])
		if err != nil {
			return err
		}
		return killCommand(cmd.Context(), cmd.OutOrStdout(), pid, killYes)
	},
}

func init() {
	killCmd.Flags().BoolVarP(&killYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(killCmd)
}

type killResult struct {
	PID    int    `json:"pid"`
	Result string `json:"result"`
}

func killCommand(ctx context.Context, w io.Writer, pid int, yes bool) error {
	interactive := !machineMode && term.IsTerminal(int(os.Stdin.Fd()))
	if !yes && !interactive {
		return errors.New(errors.ErrValidation,
			fmt.Sprintf("Refusing to kill %d without confirmation", pid),
			"Pass --yes to confirm when not running in a terminal.")
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if !yes {
		p, err := processes.Get(ctx, s.agent, pid)
		if err != nil {
			return err
		}
		confirmed, err := confirmKill(p.PID, p.Name)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(w, ui.MutedStyle().Render("Cancelled."))
			return nil
		}
	}

	res, err := processes.Kill(ctx, s.agent, pid)
	if err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(w, killResult{PID: pid, Result: res})
	}
	fmt.Fprintf(w, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), killMessage(pid, res))
	return nil
}

func confirmKill(pid int, name string) (bool, error) {
	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Kill %s (PID %d)?", name, pid)).
				Description("The agent sends the process a termination signal.").
				Affirmative("Kill").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		if stderrors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, errors.WrapWithCode(err, errors.ErrValidation,
			"Couldn't get your confirmation",
			"Try again or pass --yes")
	}
	return confirmed, nil
}

func killMessage(pid int, res string) string {
	if res == "" {
		return fmt.Sprintf("Process %d terminated", pid)
	}
	return res
}
