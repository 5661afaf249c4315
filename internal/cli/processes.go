package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rileyhilliard/vitals/internal/processes"
	"github.com/rileyhilliard/vitals/internal/ui"
	"github.com/spf13/cobra"
)

var (
	processesSort  string
	processesLimit int
)

// processColumns sizes the table columns for an 80 column terminal.
var processColumns = []int{7, 24, 10, 6, 10, 19}

var processesCmd = &cobra.Command{
	Use:     "processes [pid]",
	Aliases: []string{"ps"},
	Short:   "List the agent host's processes",
	Long: `List processes running on the agent host, or show one process by PID.

Examples:
  vitals processes
  vitals processes --sort memory --limit 10
  vitals processes 4242 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			pid, err := ParsePID(args[0])
			if err != nil {
				return err
			}
			return processCommand(cmd.Context(), cmd.OutOrStdout(), pid)
		}
		return processesCommand(cmd.Context(), cmd.OutOrStdout(), processesSort, processesLimit)
	},
}

func init() {
	processesCmd.Flags().StringVar(&processesSort, "sort", string(processes.SortCPU), "sort by cpu, memory, pid, or name")
	processesCmd.Flags().IntVarP(&processesLimit, "limit", "n", 0, "show at most this many processes (0 for all)")
	rootCmd.AddCommand(processesCmd)
}

func processesCommand(ctx context.Context, w io.Writer, sortFlag string, limit int) error {
	key, err := processes.ParseSortKey(sortFlag)
	if err != nil {
		return err
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := processes.List(ctx, s.agent)
	if err != nil {
		return err
	}
	list = processes.SortBy(list, key)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	if machineMode {
		return WriteJSONSuccess(w, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(w, ui.MutedStyle().Render("No processes reported."))
		return nil
	}

	rows := make([][]string, len(list))
	for i, p := range list {
		rows[i] = processes.Row(p)
	}
	fmt.Fprintln(w, ui.RenderSimpleTable(tableColumns(), rows))
	return nil
}

func processCommand(ctx context.Context, w io.Writer, pid int) error {
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := processes.Get(ctx, s.agent, pid)
	if err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(w, p)
	}
	row := processes.Row(p)
	pairs := make([][2]string, len(processes.Columns))
	for i, col := range processes.Columns {
		pairs[i] = [2]string{col, row[i]}
	}
	fmt.Fprint(w, ui.RenderKeyValues(pairs))
	return nil
}

func tableColumns() []ui.TableColumn {
	cols := make([]ui.TableColumn, len(processes.Columns))
	for i, title := range processes.Columns {
		cols[i] = ui.TableColumn{Title: title, Width: processColumns[i]}
	}
	return cols
}
