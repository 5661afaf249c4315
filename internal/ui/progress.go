package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Progress bar block characters.
const (
	progressFilled = '█'
	progressEmpty  = '░'
)

// RenderProgressBar draws a usage bar such as "[████████░░░░]".
// percent is clamped to 0-100 and width is the bar width without brackets.
// The bar is colored by Classify(percent, critical).
func RenderProgressBar(percent float64, width int, critical float64) string {
	if width <= 0 {
		return ""
	}

	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}

	filledCount := int((percent / 100.0) * float64(width))

	var sb strings.Builder
	sb.Grow(width*3 + 2)
	sb.WriteRune('[')
	sb.WriteString(strings.Repeat(string(progressFilled), filledCount))
	sb.WriteString(strings.Repeat(string(progressEmpty), width-filledCount))
	sb.WriteRune(']')

	style := lipgloss.NewStyle().Foreground(Classify(percent, critical).Color())
	return style.Render(sb.String())
}
