package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
const sparklineBlocks = "▁▂▃▄▅▆▇█"

// sparklineBlockRunes provides indexed access to block characters.
var sparklineBlockRunes = []rune(sparklineBlocks)

// sparklineGap is drawn for samples the agent never answered.
const sparklineGap = ' '

// RenderSparkline draws the most recent width values as block characters.
// NaN values are gaps and render as blanks, so a history that starts full of
// absent samples keeps a fixed width.
//
// Values are scaled against ceiling when it is positive (a percentage chart
// passes 100), otherwise against the min/max of the visible values. The line
// is colored by Classify(last value, critical).
func RenderSparkline(data []float64, width int, ceiling, critical float64) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}

	if len(data) > width {
		data = data[len(data)-width:]
	}

	minVal, maxVal := math.Inf(1), math.Inf(-1)
	last := math.NaN()
	for _, v := range data {
		if math.IsNaN(v) {
			continue
		}
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
		last = v
	}
	if ceiling > 0 {
		minVal, maxVal = 0, ceiling
	}

	var sb strings.Builder
	sb.Grow(len(data) * 3)

	numLevels := len(sparklineBlockRunes)
	valueRange := maxVal - minVal

	for _, v := range data {
		if math.IsNaN(v) {
			sb.WriteRune(sparklineGap)
			continue
		}
		var level int
		if valueRange <= 0 || math.IsInf(valueRange, 0) {
			level = numLevels / 2
		} else {
			level = int((v - minVal) / valueRange * float64(numLevels-1))
			if level < 0 {
				level = 0
			} else if level >= numLevels {
				level = numLevels - 1
			}
		}
		sb.WriteRune(sparklineBlockRunes[level])
	}

	if math.IsNaN(last) {
		return lipgloss.NewStyle().Foreground(ColorMuted).Render(sb.String())
	}
	return lipgloss.NewStyle().Foreground(Classify(last, critical).Color()).Render(sb.String())
}
