package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic colors for status indication. ANSI codes keep them readable on
// any terminal theme.
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// FrameColors cycle while a progress frame animates.
var FrameColors = []lipgloss.Color{ColorInfo, ColorSecondary, ColorSuccess}

// Level classifies a reading against a warning and critical threshold.
type Level int

const (
	LevelOK Level = iota
	LevelWarn
	LevelCritical
)

// DefaultWarnRatio places the warning band below a critical threshold.
const DefaultWarnRatio = 0.75

// Classify returns LevelCritical at or above critical, LevelWarn at or above
// DefaultWarnRatio of critical, and LevelOK otherwise. A non-positive
// critical value means no threshold is configured.
func Classify(value, critical float64) Level {
	if critical <= 0 {
		return LevelOK
	}
	switch {
	case value >= critical:
		return LevelCritical
	case value >= critical*DefaultWarnRatio:
		return LevelWarn
	default:
		return LevelOK
	}
}

// Color returns the semantic color for the level.
func (l Level) Color() lipgloss.Color {
	switch l {
	case LevelCritical:
		return ColorError
	case LevelWarn:
		return ColorWarning
	default:
		return ColorSuccess
	}
}

// Styles for one-off CLI output.
func SuccessStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorSuccess) }
func ErrorStyle() lipgloss.Style   { return lipgloss.NewStyle().Foreground(ColorError) }
func WarningStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorWarning) }
func MutedStyle() lipgloss.Style   { return lipgloss.NewStyle().Foreground(ColorMuted) }
func SectionStyle() lipgloss.Style { return lipgloss.NewStyle().Bold(true).Foreground(ColorSecondary) }

// SetColorMode applies the output.color setting ("auto", "always", "never")
// to the default lipgloss renderer.
func SetColorMode(mode string) {
	switch mode {
	case "never":
		DisableColors()
	case "always":
		lipgloss.SetColorProfile(termenv.ANSI256)
	}
}

// DisableColors switches every style to plain text.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
