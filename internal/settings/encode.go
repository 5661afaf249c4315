package settings

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rileyhilliard/vitals/internal/errors"
	"gopkg.in/yaml.v3"
)

// Format is a settings file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", errors.New(errors.ErrConfig,
		fmt.Sprintf("Unsupported settings format '%s'", s),
		"Use json, yaml, or toml")
}

// Encode writes t to w.
func Encode(w io.Writer, t Thresholds, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(t)
	}
	_, err := ParseFormat(string(format))
	return err
}

// Decode reads thresholds from r. Fields missing from the input keep their
// values from base.
func Decode(r io.Reader, format Format, base Thresholds) (Thresholds, error) {
	out := base
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&out)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&out)
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(&out)
	default:
		_, err = ParseFormat(string(format))
		return base, err
	}
	if err != nil && err != io.EOF {
		return base, errors.WrapWithCode(err, errors.ErrParse,
			fmt.Sprintf("Couldn't parse %s settings", format), "")
	}
	return out, nil
}
