package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/settings"
	"github.com/rileyhilliard/vitals/internal/telemetry"
	"github.com/rileyhilliard/vitals/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [source...]",
	Short: "Fetch one reading from each source and print it",
	Long: `Fetch a single snapshot from each named source (or every enabled
source) and print it. Use --json for the raw readings.

Sources: realtime, cpu, cpu-all, memory, disk, network, processes

Examples:
  vitals snapshot
  vitals snapshot cpu memory
  vitals snapshot disk --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return snapshotCommand(cmd.Context(), cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}

// sourceResult is one source's reading, or why there isn't one.
type sourceResult struct {
	Source   telemetry.Source   `json:"source"`
	Snapshot telemetry.Snapshot `json:"snapshot,omitempty"`
	Error    *JSONError         `json:"error,omitempty"`
}

func snapshotCommand(ctx context.Context, w io.Writer, args []string) error {
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	sources := s.cfg.EnabledSources()
	if len(args) > 0 {
		if sources, err = ParseSources(args); err != nil {
			return err
		}
	}
	if len(sources) == 0 {
		return errors.New(errors.ErrConfig, "No sources enabled",
			"Name the sources to fetch, e.g. 'vitals snapshot cpu memory'.")
	}

	// The status line redraws stderr in place, so only a terminal gets one.
	var status *ui.FetchStatus
	if !machineMode && term.IsTerminal(int(os.Stderr.Fd())) {
		status = ui.NewFetchStatus(os.Stderr, len(sources))
		status.Start()
	}

	fetcher := telemetry.NewFetcher(s.agent)
	results := make([]sourceResult, 0, len(sources))
	var failed []error
	for _, src := range sources {
		if status != nil {
			status.Fetching(string(src))
		}
		snap, err := fetcher.Fetch(ctx, src)
		if status != nil {
			status.Finished(string(src), err)
		}
		if err != nil {
			s.log.Debug("fetch %s: %v", src, err)
			failed = append(failed, err)
			results = append(results, sourceResult{Source: src, Error: ErrorToJSON(err)})
			continue
		}
		results = append(results, sourceResult{Source: src, Snapshot: snap})
	}
	if status != nil {
		status.Finish()
	}

	// Every source failing is a command failure. A partial result is still output.
	if len(failed) == len(sources) {
		return failed[0]
	}

	if machineMode {
		return WriteJSONSuccess(w, results)
	}

	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, ui.SectionStyle().Render(string(r.Source)))
		if r.Error != nil {
			fmt.Fprintf(w, "  %s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), r.Error.Message)
			continue
		}
		fmt.Fprint(w, ui.RenderKeyValues(summarize(r.Snapshot)))
	}
	return nil
}

// summarize lists the human-relevant fields of a snapshot.
func summarize(snap telemetry.Snapshot) [][2]string {
	limits := settings.Defaults()
	cpu, mem, disk := float64(limits.CPU), float64(limits.Memory), float64(limits.Disk)

	switch v := snap.(type) {
	case telemetry.RealtimeSnapshot:
		return [][2]string{
			{"CPU", gauge(v.CPUUsage, cpu)},
			{"Clock", fmt.Sprintf("%.0f MHz", v.CPUFrequency.Current)},
			{"Memory", gauge(v.MemoryPercent, mem)},
			{"", fmt.Sprintf("%s of %s", humanize.IBytes(v.MemoryUsage), humanize.IBytes(v.MemoryTotal))},
			{"Swap", fmt.Sprintf("%s of %s", humanize.IBytes(v.MemorySwap.Used), humanize.IBytes(v.MemorySwap.Total))},
			{"Disk active", percent(v.DiskActiveTime)},
			{"Network", fmt.Sprintf("↓ %s/s  ↑ %s/s", humanize.IBytes(uint64(v.Throughput.Recv)), humanize.IBytes(uint64(v.Throughput.Sent)))},
			{"Uptime", v.UptimeDuration().Truncate(time.Minute).String()},
		}
	case telemetry.CPUUsageSnapshot:
		return [][2]string{{"Usage", gauge(v.CPUUsage, cpu)}}
	case telemetry.CPUSnapshot:
		pairs := [][2]string{
			{"Usage", gauge(v.CPUUsage, cpu)},
			{"Cores", fmt.Sprintf("%d", v.CPUCount)},
			{"Clock", fmt.Sprintf("%.0f MHz (max %.0f)", v.CPUFrequency.Current, v.CPUFrequency.Max)},
			{"Load", fmt.Sprintf("%.2f %.2f %.2f", v.LoadAverage[0], v.LoadAverage[1], v.LoadAverage[2])},
		}
		if len(v.PerCPUUsage) > 0 {
			pairs = append(pairs, [2]string{"Per core", ui.RenderSparkline(v.PerCPUUsage, len(v.PerCPUUsage), 100, cpu)})
		}
		if v.CPUTemperature > 0 {
			pairs = append(pairs, [2]string{"Temperature", fmt.Sprintf("%.1f°C", v.CPUTemperature)})
		}
		return pairs
	case telemetry.MemorySnapshot:
		return [][2]string{
			{"Used", gauge(v.MemoryPercent, mem)},
			{"", fmt.Sprintf("%s of %s", humanize.IBytes(v.MemoryUsage), humanize.IBytes(v.MemoryTotal))},
			{"Available", humanize.IBytes(v.MemoryAvailable)},
			{"Swap", fmt.Sprintf("%s of %s (%s)", humanize.IBytes(v.SwapMemory.Used), humanize.IBytes(v.SwapMemory.Total), percent(v.SwapMemory.Percent))},
		}
	case telemetry.DiskSnapshot:
		mounts := make([]string, 0, len(v.Partitions))
		for _, p := range v.Partitions {
			mounts = append(mounts, p.Mountpoint)
		}
		return [][2]string{
			{"Used", gauge(v.Usage.Percent, disk)},
			{"", fmt.Sprintf("%s of %s", humanize.IBytes(v.Usage.Used), humanize.IBytes(v.Usage.Total))},
			{"Free", humanize.IBytes(v.Usage.Free)},
			{"Read", humanize.IBytes(v.IOCounters.ReadBytes)},
			{"Written", humanize.IBytes(v.IOCounters.WriteBytes)},
			{"Mounts", strings.Join(mounts, ", ")},
		}
	case telemetry.NetworkSnapshot:
		return [][2]string{
			{"Type", v.ConnectionType},
			{"IPv4", v.IPv4},
			{"IPv6", v.IPv6},
			{"Received", humanize.IBytes(v.Bandwidth.BytesReceived)},
			{"Sent", humanize.IBytes(v.Bandwidth.BytesSent)},
		}
	case telemetry.ProcessListSnapshot:
		return [][2]string{{"Processes", fmt.Sprintf("%d (see 'vitals processes')", len(v.Processes))}}
	}
	return [][2]string{{"Reading", fmt.Sprintf("%v", snap)}}
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// gauge is a percentage followed by a bar colored against critical.
func gauge(v, critical float64) string {
	return fmt.Sprintf("%6s ", percent(v)) + ui.RenderProgressBar(v, 20, critical)
}
