package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rileyhilliard/vitals/internal/notify"
	"github.com/rileyhilliard/vitals/internal/ui"
	"github.com/spf13/cobra"
)

var alertsCount int

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Stream the agent's threshold alerts",
	Long: `Connect to the agent's notification stream and print each alert as it
arrives. Reconnects with backoff when the connection drops. Runs until
interrupted, or until --count alerts have been printed.

With --json, prints one JSON object per line.

Examples:
  vitals alerts
  vitals alerts --count 1
  vitals alerts --json | jq .title`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return alertsCommand(cmd.Context(), cmd.OutOrStdout(), alertsCount)
	},
}

func init() {
	alertsCmd.Flags().IntVarP(&alertsCount, "count", "n", 0, "exit after this many alerts (0 streams forever)")
	rootCmd.AddCommand(alertsCmd)
}

// alertLine is the --json form of one alert.
type alertLine struct {
	Title    string    `json:"title"`
	Message  string    `json:"msg"`
	Received time.Time `json:"received_at"`
}

func alertsCommand(ctx context.Context, w io.Writer, count int) error {
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		printed int
		enc     = json.NewEncoder(w)
	)
	sink := notify.SinkFunc(func(a notify.Alert) {
		mu.Lock()
		defer mu.Unlock()
		if count > 0 && printed >= count {
			return
		}

		if machineMode {
			_ = enc.Encode(alertLine{Title: a.Title, Message: a.Message, Received: a.Received})
		} else {
			fmt.Fprintln(w, formatAlert(a))
		}

		printed++
		if count > 0 && printed >= count {
			cancel()
		}
	})

	var opts []notify.Option
	if !machineMode {
		opts = append(opts, notify.WithStateHook(func(st notify.State) {
			fmt.Fprintln(os.Stderr, ui.MutedStyle().Render("alerts: "+st.String()))
		}))
	}

	// Run returns once ctx ends: on interrupt or when --count is reached.
	return s.newAlertChannel(sink, opts...).Run(ctx)
}

func formatAlert(a notify.Alert) string {
	at := a.Received
	if at.IsZero() {
		at = time.Now()
	}
	head := ui.WarningStyle().Render(ui.SymbolAlert + " " + a.Title)
	line := fmt.Sprintf("%s %s", ui.MutedStyle().Render(at.Format("15:04:05")), head)
	if a.Message != "" {
		line += "  " + a.Message
	}
	return line
}
