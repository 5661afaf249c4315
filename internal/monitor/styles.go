package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/vitals/internal/settings"
	"github.com/rileyhilliard/vitals/internal/ui"
)

// Palette is the set of colors one theme paints the dashboard with.
type Palette struct {
	Surface lipgloss.Color
	Border  lipgloss.Color

	Healthy  lipgloss.Color
	Warning  lipgloss.Color
	Critical lipgloss.Color

	Text          lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color

	Accent    lipgloss.Color
	AccentDim lipgloss.Color
	Graph     lipgloss.Color
}

// Palettes for the agent's theme names.
var palettes = map[settings.Theme]Palette{
	settings.ThemeCatppuccin: {
		Surface:       "#1E1E2E",
		Border:        "#45475A",
		Healthy:       "#A6E3A1",
		Warning:       "#F9E2AF",
		Critical:      "#F38BA8",
		Text:          "#CDD6F4",
		TextSecondary: "#BAC2DE",
		TextMuted:     "#6C7086",
		Accent:        "#CBA6F7",
		AccentDim:     "#89B4FA",
		Graph:         "#94E2D5",
	},
	settings.ThemeDefaultGreen: {
		Surface:       "#0B1410",
		Border:        "#1F3B2C",
		Healthy:       "#39FF14",
		Warning:       "#FFAA00",
		Critical:      "#FF3355",
		Text:          "#E8FFE8",
		TextSecondary: "#9CC9A8",
		TextMuted:     "#5A7A64",
		Accent:        "#39FF14",
		AccentDim:     "#2BB673",
		Graph:         "#7CFC9A",
	},
	settings.ThemeDarkRed: {
		Surface:       "#140A0C",
		Border:        "#3B1F24",
		Healthy:       "#8FD694",
		Warning:       "#FFB347",
		Critical:      "#FF2E4C",
		Text:          "#F5E6E8",
		TextSecondary: "#C9A3A9",
		TextMuted:     "#7A5A60",
		Accent:        "#E0245E",
		AccentDim:     "#9E1B42",
		Graph:         "#FF6B81",
	},
	settings.ThemeLightRed: {
		Surface:       "#FFF5F5",
		Border:        "#F2C4C8",
		Healthy:       "#2F9E44",
		Warning:       "#E67700",
		Critical:      "#C92A2A",
		Text:          "#2B1B1D",
		TextSecondary: "#5C4346",
		TextMuted:     "#9C8386",
		Accent:        "#E03131",
		AccentDim:     "#FA5252",
		Graph:         "#F06595",
	},
}

// PaletteFor returns the palette for theme, falling back to Catppuccin for
// names the dashboard doesn't know.
func PaletteFor(theme settings.Theme) Palette {
	if p, ok := palettes[theme]; ok {
		return p
	}
	return palettes[settings.ThemeCatppuccin]
}

// LevelColor maps a threshold level onto the palette.
func (p Palette) LevelColor(l ui.Level) lipgloss.Color {
	switch l {
	case ui.LevelCritical:
		return p.Critical
	case ui.LevelWarn:
		return p.Warning
	default:
		return p.Healthy
	}
}

// MetricColor colors value against a critical threshold.
func (p Palette) MetricColor(value, critical float64) lipgloss.Color {
	return p.LevelColor(ui.Classify(value, critical))
}

// Styles are the rendered styles derived from a Palette.
type Styles struct {
	Palette Palette

	Header      lipgloss.Style
	Title       lipgloss.Style
	Footer      lipgloss.Style
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	Card        lipgloss.Style
	CardTitle   lipgloss.Style
	Label       lipgloss.Style
	Value       lipgloss.Style
	Muted       lipgloss.Style
	Stale       lipgloss.Style
	Toast       lipgloss.Style
	ToastTitle  lipgloss.Style
	HelpBox     lipgloss.Style
	HelpKey     lipgloss.Style
	HelpDesc    lipgloss.Style
}

// NewStyles builds the dashboard styles for p.
func NewStyles(p Palette) Styles {
	return Styles{
		Palette: p,
		Header: lipgloss.NewStyle().
			Foreground(p.Text).
			Bold(true).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true),
		Footer: lipgloss.NewStyle().
			Foreground(p.TextMuted).
			Padding(0, 1),
		TabActive: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true).
			Underline(true).
			Padding(0, 1),
		TabInactive: lipgloss.NewStyle().
			Foreground(p.TextMuted).
			Padding(0, 1),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1).
			MarginRight(1),
		CardTitle: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true),
		Label: lipgloss.NewStyle().
			Foreground(p.TextSecondary),
		Value: lipgloss.NewStyle().
			Foreground(p.Text).
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(p.TextMuted),
		Stale: lipgloss.NewStyle().
			Foreground(p.Warning).
			Italic(true),
		Toast: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Critical).
			Padding(0, 1),
		ToastTitle: lipgloss.NewStyle().
			Foreground(p.Critical).
			Bold(true),
		HelpBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Accent).
			Padding(1, 2),
		HelpKey: lipgloss.NewStyle().
			Foreground(p.Text).
			Bold(true).
			Width(14),
		HelpDesc: lipgloss.NewStyle().
			Foreground(p.TextSecondary),
	}
}

// ProgressBar renders a bracketless bar colored against critical.
func (s Styles) ProgressBar(width int, percent, critical float64) string {
	if width < 1 {
		width = 1
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100.0 * float64(width))
	bar := strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
	return lipgloss.NewStyle().Foreground(s.Palette.MetricColor(percent, critical)).Render(bar)
}
