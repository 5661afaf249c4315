package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/vitals/internal/config"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/telemetry"
	"github.com/spf13/cobra"
)

// minInterval keeps the agent from being hammered.
const minInterval = 500 * time.Millisecond

// PollFlags narrows or speeds up polling for one invocation.
type PollFlags struct {
	Interval string
	Sources  string
}

// AddPollFlags registers --interval and --sources on a command.
func AddPollFlags(cmd *cobra.Command, flags *PollFlags) {
	cmd.Flags().StringVar(&flags.Interval, "interval", "", "poll every source at this period (e.g., 1s, 5s)")
	cmd.Flags().StringVar(&flags.Sources, "sources", "", "comma-separated sources to poll (default: enabled in config)")
}

// Apply overrides cfg with the flags that were set.
func (f PollFlags) Apply(cfg *config.Config) error {
	interval, err := ParseInterval(f.Interval)
	if err != nil {
		return err
	}

	var only []telemetry.Source
	if f.Sources != "" {
		only, err = ParseSources(strings.Split(f.Sources, ","))
		if err != nil {
			return err
		}
	}

	for _, src := range telemetry.AllSources {
		sc := cfg.Sources[string(src)]
		if interval > 0 {
			sc.Interval = interval
		}
		if only != nil {
			sc.Enabled = containsSource(only, src)
		}
		if cfg.Sources == nil {
			cfg.Sources = make(map[string]config.SourceConfig)
		}
		cfg.Sources[string(src)] = sc
	}
	return nil
}

// ParseInterval parses a polling interval flag. Returns zero if the flag is empty.
func ParseInterval(flag string) (time.Duration, error) {
	if flag == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid interval", flag),
			"Try something like 1s, 5s, or 500ms.")
	}
	if d < minInterval {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("Interval %s is too short", d),
			fmt.Sprintf("Minimum interval is %s to avoid overwhelming the agent", minInterval))
	}
	return d, nil
}

// ParseSources resolves source names, dropping blanks and duplicates.
func ParseSources(names []string) ([]telemetry.Source, error) {
	var out []telemetry.Source
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		src, err := telemetry.ParseSource(name)
		if err != nil {
			return nil, err
		}
		if !containsSource(out, src) {
			out = append(out, src)
		}
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No sources selected",
			fmt.Sprintf("Pick one or more of: %s", sourceList()))
	}
	return out, nil
}

// ParsePID parses a process id argument.
func ParsePID(arg string) (int, error) {
	pid, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || pid <= 0 {
		return 0, errors.New(errors.ErrValidation,
			fmt.Sprintf("'%s' isn't a process id", arg),
			"Pass the numeric PID shown by 'vitals processes'.")
	}
	return pid, nil
}

func containsSource(list []telemetry.Source, src telemetry.Source) bool {
	for _, s := range list {
		if s == src {
			return true
		}
	}
	return false
}

func sourceList() string {
	names := make([]string, len(telemetry.AllSources))
	for i, s := range telemetry.AllSources {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
