package settings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rileyhilliard/vitals/internal/errors"
)

// Theme names a dashboard palette known to the agent.
type Theme string

// Theme names as stored by the agent. "Catpuccin" is the agent's spelling.
const (
	ThemeCatppuccin   Theme = "Catpuccin"
	ThemeDefaultGreen Theme = "DefaultGreen"
	ThemeDarkRed      Theme = "DarkRed"
	ThemeLightRed     Theme = "LightRed"
)

// Themes lists every accepted theme.
var Themes = []Theme{ThemeCatppuccin, ThemeDefaultGreen, ThemeDarkRed, ThemeLightRed}

// Thresholds is the agent's alerting configuration.
type Thresholds struct {
	CPU           int   `json:"cpu_threshold" yaml:"cpu_threshold" toml:"cpu_threshold"`
	Memory        int   `json:"memory_threshold" yaml:"memory_threshold" toml:"memory_threshold"`
	Disk          int   `json:"disk_threshold" yaml:"disk_threshold" toml:"disk_threshold"`
	GPU           int   `json:"gpu_threshold" yaml:"gpu_threshold" toml:"gpu_threshold"`
	Network       int64 `json:"network_threshold" yaml:"network_threshold" toml:"network_threshold"`
	CheckInterval int   `json:"check_interval" yaml:"check_interval" toml:"check_interval"`
	Theme         Theme `json:"theme" yaml:"theme" toml:"theme"`
}

// Defaults returns the agent's factory settings.
func Defaults() Thresholds {
	return Thresholds{
		CPU:           80,
		Memory:        80,
		Disk:          80,
		GPU:           80,
		Network:       1_000_000,
		CheckInterval: 10,
		Theme:         ThemeCatppuccin,
	}
}

// Metrics returns the numeric fields keyed by wire name.
func (t Thresholds) Metrics() map[string]float64 {
	return map[string]float64{
		"cpu_threshold":     float64(t.CPU),
		"memory_threshold":  float64(t.Memory),
		"disk_threshold":    float64(t.Disk),
		"gpu_threshold":     float64(t.GPU),
		"network_threshold": float64(t.Network),
		"check_interval":    float64(t.CheckInterval),
	}
}

// setters maps every accepted key to a field assignment. Short names and wire
// names are both accepted.
var setters = map[string]func(t *Thresholds, v string) error{
	"cpu":    intField(func(t *Thresholds) *int { return &t.CPU }),
	"memory": intField(func(t *Thresholds) *int { return &t.Memory }),
	"disk":   intField(func(t *Thresholds) *int { return &t.Disk }),
	"gpu":    intField(func(t *Thresholds) *int { return &t.GPU }),
	"network": func(t *Thresholds, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		t.Network = n
		return nil
	},
	"check_interval": intField(func(t *Thresholds) *int { return &t.CheckInterval }),
	"theme": func(t *Thresholds, v string) error {
		t.Theme = Theme(v)
		return nil
	},
}

func intField(field func(*Thresholds) *int) func(*Thresholds, string) error {
	return func(t *Thresholds, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(t) = n
		return nil
	}
}

// Keys lists the short names accepted by Set.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns one field from its string form. It parses but does not
// validate; run Validate (or Store.Submit) on the result.
func (t *Thresholds) Set(key, value string) error {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(key)), "_threshold")
	set, ok := setters[name]
	if !ok {
		return errors.New(errors.ErrValidation,
			fmt.Sprintf("Unknown setting '%s'", key),
			fmt.Sprintf("Valid settings: %s", strings.Join(Keys(), ", ")))
	}
	if err := set(t, strings.TrimSpace(value)); err != nil {
		return errors.WrapWithCode(err, errors.ErrValidation,
			fmt.Sprintf("Invalid value '%s' for %s", value, key), "Use a whole number")
	}
	return nil
}
