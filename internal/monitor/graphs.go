package monitor

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille character rendering for high-resolution terminal graphs.
//
// Braille patterns use a 2x4 dot matrix per character:
//
//	  Col 0  Col 1
//	Row 0:   ⠁      ⠈     (dots 1, 4)
//	Row 1:   ⠂      ⠐     (dots 2, 5)
//	Row 2:   ⠄      ⠠     (dots 3, 6)
//	Row 3:   ⡀      ⢀     (dots 7, 8)
//
// Unicode braille starts at U+2800 (empty) and uses bit patterns:
// bit 0 = dot 1, bit 1 = dot 2, bit 2 = dot 3, bit 3 = dot 4,
// bit 4 = dot 5, bit 5 = dot 6, bit 6 = dot 7, bit 7 = dot 8

const brailleBase = '⠀'

// brailleDots maps row/column to the bit offset for braille pattern
// [row][col] where row is 0-3 (top to bottom) and col is 0-1 (left to right)
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// Graph describes how one series is scaled and colored.
type Graph struct {
	// Ceiling fixes the top of the scale (100 for percentages). Zero scales
	// to the largest visible value.
	Ceiling float64

	// Color picks the color for a column from the largest value drawn in it.
	Color func(v float64) lipgloss.Color
}

// scale returns the top of the y axis for data. NaN entries are gaps and
// never move the scale.
func (g Graph) scale(data []float64) float64 {
	if g.Ceiling > 0 {
		return g.Ceiling
	}
	top := 0.0
	for _, v := range data {
		if !math.IsNaN(v) && v > top {
			top = v
		}
	}
	if top == 0 {
		return 1
	}
	return top
}

// RenderBraille draws data as a braille area chart width characters wide and
// height rows tall. Each character holds two samples. Data shorter than the
// chart is right-aligned; longer data is downsampled keeping peaks. NaN
// samples leave their column empty.
func (g Graph) RenderBraille(data []float64, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	targetPoints := width * 2
	if len(data) > targetPoints {
		data = resampleData(data, targetPoints)
	}
	top := g.scale(data)
	totalDots := height * 4

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(string(brailleBase), width))
	}
	colMax := make([]float64, width)
	for i := range colMax {
		colMax[i] = math.NaN()
	}

	offset := targetPoints - len(data)
	for i, v := range data {
		if math.IsNaN(v) {
			continue
		}
		col := (i + offset) / 2
		if math.IsNaN(colMax[col]) || v > colMax[col] {
			colMax[col] = v
		}

		dots := clampInt(int(math.Round(v/top*float64(totalDots))), totalDots)
		// Any non-zero reading shows at least one dot
		if dots == 0 && v > 0 {
			dots = 1
		}
		subCol := (i + offset) % 2
		for dot := 0; dot < dots; dot++ {
			row := height - 1 - dot/4
			grid[row][col] |= rune(1) << brailleDots[3-dot%4][subCol]
		}
	}

	lines := make([]string, height)
	for r, row := range grid {
		var sb strings.Builder
		for c, ch := range row {
			if math.IsNaN(colMax[c]) || g.Color == nil {
				sb.WriteRune(ch)
				continue
			}
			sb.WriteString(lipgloss.NewStyle().Foreground(g.Color(colMax[c])).Render(string(ch)))
		}
		lines[r] = sb.String()
	}
	return strings.Join(lines, "\n")
}

// clampInt clamps an integer to a range [0, maxVal].
func clampInt(val, maxVal int) int {
	if val < 0 {
		return 0
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// resampleData downsamples data to targetSize buckets, keeping the max of
// each bucket so spikes survive. A bucket of only gaps stays a gap.
func resampleData(data []float64, targetSize int) []float64 {
	if targetSize <= 0 || len(data) <= targetSize {
		return data
	}

	result := make([]float64, targetSize)
	bucketSize := float64(len(data)) / float64(targetSize)
	for i := range result {
		start := int(float64(i) * bucketSize)
		end := int(float64(i+1) * bucketSize)
		if end > len(data) {
			end = len(data)
		}
		if start >= end {
			start = end - 1
		}

		maxVal := math.NaN()
		for _, v := range data[start:end] {
			if math.IsNaN(v) {
				continue
			}
			if math.IsNaN(maxVal) || v > maxVal {
				maxVal = v
			}
		}
		result[i] = maxVal
	}
	return result
}
