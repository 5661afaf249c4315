package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/settings"
	"github.com/rileyhilliard/vitals/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

var (
	settingsFormat string
	settingsFile   string
)

// settingFlags maps each `settings set` flag to the threshold key it sets.
var settingFlags = []struct {
	flag, key, usage string
}{
	{"cpu", "cpu", "CPU alert threshold, percent (0-100)"},
	{"memory", "memory", "memory alert threshold, percent (0-100)"},
	{"disk", "disk", "disk alert threshold, percent (0-100)"},
	{"gpu", "gpu", "GPU alert threshold, percent (0-100)"},
	{"network", "network", "network alert threshold, bytes per second"},
	{"check-interval", "check_interval", "seconds between agent threshold checks"},
	{"theme", "theme", "dashboard theme"},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the agent's alert thresholds",
	Long: `Show or change the alert thresholds and theme stored on the agent.

Every change is validated locally first. Invalid values never reach the agent.`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the agent's current settings",
	Long: `Print the agent's current settings.

Examples:
  vitals settings get
  vitals settings get --format toml > thresholds.toml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsGetCommand(cmd.Context(), cmd.OutOrStdout(), settingsFormat)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change one or more settings",
	Long: `Change one or more settings. Fields you don't name keep the agent's
current values.

--file reads settings from a json, yaml, or toml file (format from the
extension). Flags are applied on top of the file.

Examples:
  vitals settings set --cpu 90 --memory 85
  vitals settings set --theme DarkRed
  vitals settings set --file thresholds.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsSetCommand(cmd.Context(), cmd.OutOrStdout(), changedSettings(cmd.Flags()), settingsFile)
	},
}

var settingsEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the settings in an interactive form",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsEditCommand(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	settingsGetCmd.Flags().StringVar(&settingsFormat, "format", "yaml", "output format: json, yaml, or toml")

	for _, f := range settingFlags {
		settingsSetCmd.Flags().String(f.flag, "", f.usage)
	}
	settingsSetCmd.Flags().StringVarP(&settingsFile, "file", "f", "", "read settings from a json, yaml, or toml file")

	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsEditCmd)
	rootCmd.AddCommand(settingsCmd)
}

// settingChange is one key/value pair from the command line.
type settingChange struct {
	Key   string
	Value string
}

// changedSettings collects the setting flags the user passed, in flag order.
func changedSettings(flags *pflag.FlagSet) []settingChange {
	var out []settingChange
	for _, f := range settingFlags {
		if flags.Changed(f.flag) {
			v, _ := flags.GetString(f.flag)
			out = append(out, settingChange{Key: f.key, Value: v})
		}
	}
	return out
}

func settingsGetCommand(ctx context.Context, w io.Writer, formatFlag string) error {
	format, err := settings.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	store := s.newSettingsStore()
	if err := store.Load(ctx); err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(w, store.Current())
	}
	return settings.Encode(w, store.Current(), format)
}

// settingsInput is a parsed --file argument.
type settingsInput struct {
	data   []byte
	format settings.Format
}

func readSettingsFile(path string) (*settingsInput, error) {
	if path == "" {
		return nil, nil
	}
	format, err := settings.ParseFormat(filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't read %s", path),
			"Check the path passed to --file")
	}
	return &settingsInput{data: data, format: format}, nil
}

// applySettings layers the file and then the flag changes onto t.
func applySettings(t settings.Thresholds, file *settingsInput, changes []settingChange) (settings.Thresholds, error) {
	if file != nil {
		decoded, err := settings.Decode(bytes.NewReader(file.data), file.format, t)
		if err != nil {
			return t, err
		}
		t = decoded
	}
	for _, c := range changes {
		if err := t.Set(c.Key, c.Value); err != nil {
			return t, err
		}
	}
	return t, nil
}

func settingsSetCommand(ctx context.Context, w io.Writer, changes []settingChange, filePath string) error {
	file, err := readSettingsFile(filePath)
	if err != nil {
		return err
	}
	if file == nil && len(changes) == 0 {
		return errors.New(errors.ErrValidation,
			"Nothing to change",
			"Pass at least one setting, e.g. --cpu 90, or --file <path>.")
	}

	// Check the changes against the defaults before touching the network.
	// Fields are validated independently, so a change that passes here
	// passes on top of any valid agent state.
	candidate, err := applySettings(settings.Defaults(), file, changes)
	if err != nil {
		return err
	}
	if err := settings.Validate(candidate); err != nil {
		return err
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	store := s.newSettingsStore()
	updated, err := store.Update(ctx, func(t *settings.Thresholds) error {
		next, err := applySettings(*t, file, changes)
		if err != nil {
			return err
		}
		*t = next
		return nil
	})
	if err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(w, updated)
	}
	fmt.Fprintf(w, "%s Settings saved\n", ui.SuccessStyle().Render(ui.SymbolSuccess))
	return settings.Encode(w, updated, settings.FormatYAML)
}

func settingsEditCommand(ctx context.Context, w io.Writer) error {
	if machineMode || !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New(errors.ErrValidation,
			"settings edit needs a terminal",
			"Use 'vitals settings set' instead.")
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	store := s.newSettingsStore()
	if err := store.Load(ctx); err != nil {
		return err
	}

	next, confirmed, err := runSettingsForm(store.Current())
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(w, "Cancelled.")
		return nil
	}

	if err := store.Submit(ctx, next); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s Settings saved\n", ui.SuccessStyle().Render(ui.SymbolSuccess))
	return nil
}

// runSettingsForm prompts for every field, starting from cur.
func runSettingsForm(cur settings.Thresholds) (settings.Thresholds, bool, error) {
	values := map[string]*string{}
	for _, f := range settingFlags {
		if f.key == "theme" {
			continue
		}
		v := currentValue(cur, f.key)
		values[f.key] = &v
	}
	theme := string(cur.Theme)
	save := true

	var fields []huh.Field
	for _, f := range settingFlags {
		if f.key == "theme" {
			continue
		}
		key := f.key
		fields = append(fields, huh.NewInput().
			Title(f.usage).
			Value(values[key]).
			Validate(func(v string) error {
				t := settings.Defaults()
				if err := t.Set(key, v); err != nil {
					return stderrors.New("enter a whole number")
				}
				return fieldError(settings.Validate(t))
			}))
	}

	themes := make([]huh.Option[string], len(settings.Themes))
	for i, t := range settings.Themes {
		themes[i] = huh.NewOption(string(t), string(t))
	}
	fields = append(fields,
		huh.NewSelect[string]().Title("Theme").Options(themes...).Value(&theme),
		huh.NewConfirm().Title("Save to the agent?").Value(&save),
	)

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		if stderrors.Is(err, huh.ErrUserAborted) {
			return cur, false, nil
		}
		return cur, false, errors.WrapWithCode(err, errors.ErrValidation,
			"Couldn't get your input",
			"Try again or use 'vitals settings set'")
	}
	if !save {
		return cur, false, nil
	}

	changes := make([]settingChange, 0, len(values)+1)
	for _, f := range settingFlags {
		if v, ok := values[f.key]; ok {
			changes = append(changes, settingChange{Key: f.key, Value: *v})
		}
	}
	changes = append(changes, settingChange{Key: "theme", Value: theme})
	next, err := applySettings(cur, nil, changes)
	return next, true, err
}

func currentValue(t settings.Thresholds, key string) string {
	switch key {
	case "cpu":
		return strconv.Itoa(t.CPU)
	case "memory":
		return strconv.Itoa(t.Memory)
	case "disk":
		return strconv.Itoa(t.Disk)
	case "gpu":
		return strconv.Itoa(t.GPU)
	case "network":
		return strconv.FormatInt(t.Network, 10)
	case "check_interval":
		return strconv.Itoa(t.CheckInterval)
	}
	return ""
}

// fieldError turns a validation failure into the short text huh shows
// under the input.
func fieldError(err error) error {
	var invalid *settings.ValidationError
	if stderrors.As(err, &invalid) && len(invalid.Fields) > 0 {
		f := invalid.Fields[0]
		return fmt.Errorf("must be between %d and %d", f.Min, f.Max)
	}
	if err != nil {
		return stderrors.New(strings.ToLower(errors.ShortMessage(err)))
	}
	return nil
}
