package settings

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/vitals/internal/errors"
)

// Accepted ranges, inclusive.
const (
	MaxPercent        = 100
	MaxNetwork  int64 = 10_000_000
	MaxInterval       = 100
)

// FieldError describes one out-of-range field.
type FieldError struct {
	Field  string
	Value  any
	Min    int64
	Max    int64
	Reason string
}

func (f FieldError) String() string {
	if f.Reason != "" {
		return fmt.Sprintf("%s: %s", f.Field, f.Reason)
	}
	return fmt.Sprintf("%s: %v is outside %d-%d", f.Field, f.Value, f.Min, f.Max)
}

// ValidationError lists every invalid field of a submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

// Has reports whether field is among the failures.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Validate checks every field against its accepted range. It performs no I/O.
// The returned error carries errors.ErrValidation and unwraps to *ValidationError.
func Validate(t Thresholds) error {
	var fields []FieldError

	percent := func(name string, v int) {
		if v < 0 || v > MaxPercent {
			fields = append(fields, FieldError{Field: name, Value: v, Min: 0, Max: MaxPercent})
		}
	}
	percent("cpu_threshold", t.CPU)
	percent("memory_threshold", t.Memory)
	percent("disk_threshold", t.Disk)
	percent("gpu_threshold", t.GPU)

	if t.Network < 0 || t.Network > MaxNetwork {
		fields = append(fields, FieldError{Field: "network_threshold", Value: t.Network, Min: 0, Max: MaxNetwork})
	}
	if t.CheckInterval < 0 || t.CheckInterval > MaxInterval {
		fields = append(fields, FieldError{Field: "check_interval", Value: t.CheckInterval, Min: 0, Max: MaxInterval})
	}
	if !validTheme(t.Theme) {
		fields = append(fields, FieldError{
			Field:  "theme",
			Value:  string(t.Theme),
			Reason: fmt.Sprintf("'%s' is not one of %s", t.Theme, themeList()),
		})
	}

	if len(fields) == 0 {
		return nil
	}
	ve := &ValidationError{Fields: fields}
	return errors.WrapWithCode(ve, errors.ErrValidation,
		fmt.Sprintf("Invalid settings (%d field(s))", len(fields)),
		"Percent thresholds take 0-100, network 0-10000000, check interval 0-100")
}

func validTheme(theme Theme) bool {
	for _, t := range Themes {
		if t == theme {
			return true
		}
	}
	return false
}

func themeList() string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
