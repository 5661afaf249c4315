package monitor

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/vitals/internal/telemetry"
	"github.com/rileyhilliard/vitals/internal/ui"
)

const (
	defaultWidth = 80
	graphHeight  = 3
	minCardWidth = 24
)

// card is the content of one system panel before it is boxed.
type card struct {
	title  string
	stale  bool
	lines  []string
	graph  string
	gotAny bool
}

// renderSystem renders the CPU, memory, disk, and network cards in a 2x2 grid.
func (m Model) renderSystem() string {
	width := m.width
	if width == 0 {
		width = defaultWidth
	}
	cardWidth := width/2 - 2
	if cardWidth < minCardWidth {
		cardWidth = minCardWidth
	}
	inner := cardWidth - 4

	cards := []card{
		m.cpuCard(inner),
		m.memoryCard(inner),
		m.diskCard(inner),
		m.networkCard(inner),
	}

	boxes := make([]string, len(cards))
	for i, c := range cards {
		boxes[i] = m.renderCard(c, cardWidth)
	}

	var b strings.Builder
	if up := m.uptimeLine(); up != "" {
		b.WriteString(up)
		b.WriteString("\n")
	}
	// Narrow terminals stack the cards.
	if width < 2*minCardWidth+4 {
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, boxes...))
		return b.String()
	}
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, boxes[0], boxes[1]),
		lipgloss.JoinHorizontal(lipgloss.Top, boxes[2], boxes[3]),
	))
	return b.String()
}

func (m Model) renderCard(c card, width int) string {
	title := m.styles.CardTitle.Render(c.title)
	if c.stale {
		title += " " + m.styles.Stale.Render("stale")
	}

	lines := []string{title}
	if !c.gotAny {
		lines = append(lines, m.styles.Muted.Render(ui.SymbolPending+" waiting for data"))
	} else {
		lines = append(lines, c.lines...)
		if c.graph != "" {
			lines = append(lines, c.graph)
		}
	}
	return m.styles.Card.Width(width - 2).Render(strings.Join(lines, "\n"))
}

// samples returns the buffered history for src, or nil when nothing is
// subscribed to it.
func (m Model) samples(src telemetry.Source) []telemetry.Sample {
	sub, ok := m.subs[src]
	if !ok {
		return nil
	}
	return sub.View()
}

func latest[T telemetry.Snapshot](m Model, src telemetry.Source) (T, bool) {
	var zero T
	sub, ok := m.subs[src]
	if !ok {
		return zero, false
	}
	s, ok := sub.Latest()
	if !ok {
		return zero, false
	}
	return telemetry.As[T](s)
}

// stale reports whether any of srcs that has a poller has fallen behind.
func (m Model) stale(srcs ...telemetry.Source) bool {
	for _, src := range srcs {
		if _, ok := m.subs[src]; !ok {
			continue
		}
		if st, ok := m.deps.Hub.Status(src); ok && st.Stale(m.now) {
			return true
		}
	}
	return false
}

func (m Model) percentGraph(data []float64, critical float64, width int) string {
	g := Graph{
		Ceiling: 100,
		Color: func(v float64) lipgloss.Color {
			return m.styles.Palette.MetricColor(v, critical)
		},
	}
	return g.RenderBraille(data, width, graphHeight)
}

func (m Model) meter(label string, percent, critical float64, width int) string {
	value := lipgloss.NewStyle().
		Foreground(m.styles.Palette.MetricColor(percent, critical)).
		Bold(true).
		Render(fmt.Sprintf("%5.1f%%", percent))
	barWidth := width - lipgloss.Width(label) - 10
	return m.styles.Label.Render(label) + " " + value + " " + m.styles.ProgressBar(barWidth, percent, critical)
}

func (m Model) cpuCard(width int) card {
	c := card{title: "CPU", stale: m.stale(telemetry.SourceCPU, telemetry.SourceRealtime)}
	critical := float64(m.thresholds.CPU)

	var series []float64
	if hist := m.samples(telemetry.SourceCPU); hist != nil {
		series = telemetry.Series(hist, func(s telemetry.CPUUsageSnapshot) float64 { return s.CPUUsage }, math.NaN())
	} else {
		series = telemetry.Series(m.samples(telemetry.SourceRealtime), func(s telemetry.RealtimeSnapshot) float64 { return s.CPUUsage }, math.NaN())
	}
	current, ok := lastValue(series)
	if !ok {
		return c
	}
	c.gotAny = true
	c.lines = append(c.lines, m.meter("Usage", current, critical, width))

	if info, ok := latest[telemetry.CPUSnapshot](m, telemetry.SourceCPUInfo); ok {
		details := fmt.Sprintf("%d cores  load %.2f %.2f %.2f", info.CPUCount, info.LoadAverage[0], info.LoadAverage[1], info.LoadAverage[2])
		if info.CPUTemperature > 0 {
			details += fmt.Sprintf("  %.0f°C", info.CPUTemperature)
		}
		c.lines = append(c.lines, m.styles.Muted.Render(details))
	} else if rt, ok := latest[telemetry.RealtimeSnapshot](m, telemetry.SourceRealtime); ok && rt.CPUFrequency.Current > 0 {
		c.lines = append(c.lines, m.styles.Muted.Render(fmt.Sprintf("%.0f MHz", rt.CPUFrequency.Current)))
	}

	c.graph = m.percentGraph(series, critical, width)
	return c
}

func (m Model) memoryCard(width int) card {
	c := card{title: "Memory", stale: m.stale(telemetry.SourceMemory, telemetry.SourceRealtime)}
	critical := float64(m.thresholds.Memory)

	var (
		series            []float64
		used, total, swap uint64
		swapPercent       float64
		ok                bool
	)
	if hist := m.samples(telemetry.SourceMemory); hist != nil {
		series = telemetry.Series(hist, func(s telemetry.MemorySnapshot) float64 { return s.MemoryPercent }, math.NaN())
		var snap telemetry.MemorySnapshot
		if snap, ok = latest[telemetry.MemorySnapshot](m, telemetry.SourceMemory); ok {
			used, total = snap.MemoryUsage, snap.MemoryTotal
			swap, swapPercent = snap.SwapMemory.Used, snap.SwapMemory.Percent
		}
	} else {
		series = telemetry.Series(m.samples(telemetry.SourceRealtime), func(s telemetry.RealtimeSnapshot) float64 { return s.MemoryPercent }, math.NaN())
		var snap telemetry.RealtimeSnapshot
		if snap, ok = latest[telemetry.RealtimeSnapshot](m, telemetry.SourceRealtime); ok {
			used, total = snap.MemoryUsage, snap.MemoryTotal
			swap, swapPercent = snap.MemorySwap.Used, snap.MemorySwap.Percent
		}
	}
	current, have := lastValue(series)
	if !have {
		return c
	}
	c.gotAny = true
	c.lines = append(c.lines, m.meter("Used ", current, critical, width))
	if ok {
		c.lines = append(c.lines, m.styles.Muted.Render(fmt.Sprintf("%s / %s  swap %s (%.0f%%)",
			formatBytes(used), formatBytes(total), formatBytes(swap), swapPercent)))
	}
	c.graph = m.percentGraph(series, critical, width)
	return c
}

func (m Model) diskCard(width int) card {
	c := card{title: "Disk", stale: m.stale(telemetry.SourceDisk)}
	critical := float64(m.thresholds.Disk)

	snap, ok := latest[telemetry.DiskSnapshot](m, telemetry.SourceDisk)
	if !ok {
		// Realtime still carries disk activity.
		rt, ok := latest[telemetry.RealtimeSnapshot](m, telemetry.SourceRealtime)
		if !ok {
			return c
		}
		c.gotAny = true
		c.lines = append(c.lines, m.styles.Label.Render(fmt.Sprintf("Active %.1f%%", rt.DiskActiveTime)))
		series := telemetry.Series(m.samples(telemetry.SourceRealtime), func(s telemetry.RealtimeSnapshot) float64 { return s.DiskActiveTime }, math.NaN())
		c.graph = m.percentGraph(series, 0, width)
		return c
	}

	c.gotAny = true
	c.lines = append(c.lines, m.meter("Used ", snap.Usage.Percent, critical, width))
	c.lines = append(c.lines, m.styles.Muted.Render(fmt.Sprintf("%s free of %s",
		formatBytes(snap.Usage.Free), formatBytes(snap.Usage.Total))))
	if snap.ActiveTime > 0 {
		c.lines = append(c.lines, m.styles.Muted.Render(fmt.Sprintf("active %.1f%%", snap.ActiveTime)))
	}
	series := telemetry.Series(m.samples(telemetry.SourceDisk), func(s telemetry.DiskSnapshot) float64 { return s.Usage.Percent }, math.NaN())
	c.graph = m.percentGraph(series, critical, width)
	return c
}

func (m Model) networkCard(width int) card {
	c := card{title: "Network", stale: m.stale(telemetry.SourceNetwork, telemetry.SourceRealtime)}
	critical := float64(m.thresholds.Network)

	var recv, sent []float64
	if hist := m.samples(telemetry.SourceRealtime); hist != nil {
		recv = telemetry.Series(hist, func(s telemetry.RealtimeSnapshot) float64 { return s.Throughput.Recv }, math.NaN())
		sent = telemetry.Series(hist, func(s telemetry.RealtimeSnapshot) float64 { return s.Throughput.Sent }, math.NaN())
	} else {
		recv, sent = counterRates(m.samples(telemetry.SourceNetwork))
	}

	lastRecv, okRecv := lastValue(recv)
	lastSent, okSent := lastValue(sent)
	if !okRecv && !okSent {
		if snap, ok := latest[telemetry.NetworkSnapshot](m, telemetry.SourceNetwork); ok {
			c.gotAny = true
			c.lines = append(c.lines, m.networkDetails(snap))
		}
		return c
	}
	c.gotAny = true

	color := func(v float64) lipgloss.Color { return m.styles.Palette.MetricColor(v, critical) }
	c.lines = append(c.lines,
		m.styles.Label.Render("↓ ")+lipgloss.NewStyle().Foreground(color(lastRecv)).Bold(true).Render(FormatRate(lastRecv))+
			m.styles.Label.Render("   ↑ ")+lipgloss.NewStyle().Foreground(color(lastSent)).Bold(true).Render(FormatRate(lastSent)))
	if snap, ok := latest[telemetry.NetworkSnapshot](m, telemetry.SourceNetwork); ok {
		c.lines = append(c.lines, m.networkDetails(snap))
	}

	total := make([]float64, len(recv))
	for i := range recv {
		total[i] = recv[i]
		if i < len(sent) && !math.IsNaN(sent[i]) {
			if math.IsNaN(total[i]) {
				total[i] = sent[i]
			} else {
				total[i] += sent[i]
			}
		}
	}
	c.graph = Graph{Color: color}.RenderBraille(total, width, graphHeight)
	return c
}

func (m Model) networkDetails(snap telemetry.NetworkSnapshot) string {
	parts := []string{}
	if snap.ConnectionType != "" {
		parts = append(parts, snap.ConnectionType)
	}
	if snap.IPv4 != "" {
		parts = append(parts, snap.IPv4)
	}
	parts = append(parts, fmt.Sprintf("rx %s tx %s", formatBytes(snap.Bandwidth.BytesReceived), formatBytes(snap.Bandwidth.BytesSent)))
	return m.styles.Muted.Render(strings.Join(parts, "  "))
}

func (m Model) uptimeLine() string {
	rt, ok := latest[telemetry.RealtimeSnapshot](m, telemetry.SourceRealtime)
	if !ok || rt.Uptime <= 0 {
		return ""
	}
	return m.styles.Label.Render("Uptime ") + m.styles.Value.Render(formatUptime(rt.UptimeDuration()))
}

// counterRates turns cumulative byte counters into per-second rates between
// consecutive readings. A gap or a counter reset yields NaN for that slot.
func counterRates(samples []telemetry.Sample) (recv, sent []float64) {
	recv = make([]float64, len(samples))
	sent = make([]float64, len(samples))

	var (
		prev     telemetry.NetworkSnapshot
		prevAt   time.Time
		havePrev bool
	)
	for i, s := range samples {
		recv[i], sent[i] = math.NaN(), math.NaN()
		snap, ok := telemetry.As[telemetry.NetworkSnapshot](s)
		if !ok {
			havePrev = false
			continue
		}
		if havePrev {
			dt := s.At.Sub(prevAt).Seconds()
			b, pb := snap.Bandwidth, prev.Bandwidth
			if dt > 0 && b.BytesReceived >= pb.BytesReceived && b.BytesSent >= pb.BytesSent {
				recv[i] = float64(b.BytesReceived-pb.BytesReceived) / dt
				sent[i] = float64(b.BytesSent-pb.BytesSent) / dt
			}
		}
		prev, prevAt, havePrev = snap, s.At, true
	}
	return recv, sent
}

// lastValue returns the newest non-gap value in series.
func lastValue(series []float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) {
			return series[i], true
		}
	}
	return 0, false
}
