package ui

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var gap = math.NaN()

func TestRenderSparkline_Empty(t *testing.T) {
	assert.Empty(t, RenderSparkline(nil, 10, 100, 80))
	assert.Empty(t, RenderSparkline([]float64{}, 10, 100, 80))
	assert.Empty(t, RenderSparkline([]float64{1, 2}, 0, 100, 80))
	assert.Empty(t, RenderSparkline([]float64{1, 2}, -1, 100, 80))
}

func TestRenderSparkline_Percentages(t *testing.T) {
	got := stripANSI(RenderSparkline([]float64{0, 50, 100}, 10, 100, 80))

	runes := []rune(got)
	assert.Len(t, runes, 3)
	assert.Equal(t, '▁', runes[0])
	assert.Equal(t, '█', runes[2])
}

func TestRenderSparkline_AutoScale(t *testing.T) {
	got := []rune(stripANSI(RenderSparkline([]float64{1000, 5000, 10000}, 10, 0, 0)))

	assert.Len(t, got, 3)
	assert.Equal(t, '▁', got[0])
	assert.Equal(t, '█', got[2])
}

func TestRenderSparkline_FlatLine(t *testing.T) {
	got := stripANSI(RenderSparkline([]float64{7, 7, 7}, 10, 0, 0))
	assert.Equal(t, strings.Repeat(string(sparklineBlockRunes[len(sparklineBlockRunes)/2]), 3), got)
}

func TestRenderSparkline_Gaps(t *testing.T) {
	got := []rune(stripANSI(RenderSparkline([]float64{gap, gap, 0, gap, 100}, 10, 100, 80)))

	assert.Len(t, got, 5, "gaps keep the line width")
	assert.Equal(t, ' ', got[0])
	assert.Equal(t, ' ', got[1])
	assert.Equal(t, '▁', got[2])
	assert.Equal(t, ' ', got[3])
	assert.Equal(t, '█', got[4])
}

func TestRenderSparkline_AllGaps(t *testing.T) {
	got := stripANSI(RenderSparkline([]float64{gap, gap, gap}, 10, 0, 80))
	assert.Equal(t, "   ", got)
}

func TestRenderSparkline_WidthTruncation(t *testing.T) {
	data := []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	got := []rune(stripANSI(RenderSparkline(data, 5, 100, 0)))

	assert.Len(t, got, 5, "keeps only the newest values")
	assert.Equal(t, '█', got[4])
}

func TestSparklineBlocksConstant(t *testing.T) {
	assert.Equal(t, "▁▂▃▄▅▆▇█", sparklineBlocks)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		value    float64
		critical float64
		want     Level
	}{
		{0, 80, LevelOK},
		{59.9, 80, LevelOK},
		{60, 80, LevelWarn},
		{79.9, 80, LevelWarn},
		{80, 80, LevelCritical},
		{100, 80, LevelCritical},
		{100, 0, LevelOK},
		{5_000_000, 10_000_000, LevelOK},
		{9_000_000, 10_000_000, LevelWarn},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.value, tt.critical), "value %.1f against %.1f", tt.value, tt.critical)
	}
}

func TestLevelColor(t *testing.T) {
	assert.Equal(t, ColorSuccess, LevelOK.Color())
	assert.Equal(t, ColorWarning, LevelWarn.Color())
	assert.Equal(t, ColorError, LevelCritical.Color())
}

func TestRenderProgressBar(t *testing.T) {
	assert.Empty(t, RenderProgressBar(50, 0, 80))

	got := stripANSI(RenderProgressBar(50, 10, 80))
	assert.Equal(t, "[█████░░░░░]", got)

	assert.Equal(t, "[██████████]", stripANSI(RenderProgressBar(250, 10, 80)), "clamped high")
	assert.Equal(t, "[░░░░░░░░░░]", stripANSI(RenderProgressBar(-5, 10, 80)), "clamped low")
}

func stripANSI(s string) string {
	var result strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}
