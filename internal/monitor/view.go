package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/vitals/internal/notify"
	"github.com/rileyhilliard/vitals/internal/ui"
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	if toasts := m.renderToasts(); toasts != "" {
		b.WriteString(toasts)
		b.WriteString("\n")
	}

	switch m.tab {
	case TabSystem:
		b.WriteString(m.renderSystem())
	case TabProcesses:
		b.WriteString(m.renderProcesses())
	case TabAlerts:
		b.WriteString(m.renderAlerts())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderHeader renders the title line with the alert stream state.
func (m Model) renderHeader() string {
	title := m.styles.Title.Render("vitals")
	if m.deps.Title != "" {
		title += m.styles.Muted.Render(" " + m.deps.Title)
	}

	if m.deps.Channel == nil {
		return m.styles.Header.Render(title)
	}
	return m.styles.Header.Render(title + m.styles.Muted.Render(" | ") + m.renderChannelState())
}

func (m Model) renderChannelState() string {
	p := m.styles.Palette
	switch m.chanState {
	case notify.Connected:
		return lipgloss.NewStyle().Foreground(p.Healthy).Render(ui.SymbolComplete + " alerts live")
	case notify.Connecting:
		return lipgloss.NewStyle().Foreground(p.Warning).Render(ui.SymbolProgress + " alerts connecting")
	default:
		return lipgloss.NewStyle().Foreground(p.Critical).Render(ui.SymbolPending + " alerts offline")
	}
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if Tab(i) == TabAlerts && len(m.alerts) > 0 {
			label += fmt.Sprintf(" (%d)", len(m.alerts))
		}
		if Tab(i) == m.tab {
			tabs[i] = m.styles.TabActive.Render(label)
		} else {
			tabs[i] = m.styles.TabInactive.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderToasts stacks the live toasts, newest last.
func (m Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}

	p := m.styles.Palette
	var boxes []string
	for _, t := range m.toasts {
		style := m.styles.Toast
		titleStyle := m.styles.ToastTitle
		symbol := ui.SymbolAlert
		switch t.kind {
		case toastInfo:
			style = style.BorderForeground(p.Healthy)
			titleStyle = titleStyle.Foreground(p.Healthy)
			symbol = ui.SymbolSuccess
		case toastError:
			style = style.BorderForeground(p.Warning)
			titleStyle = titleStyle.Foreground(p.Warning)
			symbol = ui.SymbolWarning
		}

		content := titleStyle.Render(symbol + " " + t.title)
		if t.body != "" {
			content += "\n" + m.styles.Label.Render(t.body)
		}
		boxes = append(boxes, style.Render(content))
	}
	return lipgloss.JoinVertical(lipgloss.Left, boxes...)
}

// renderFooter renders the keyboard hints for the current tab.
func (m Model) renderFooter() string {
	hints := []string{"q quit", "tab switch"}
	switch m.tab {
	case TabProcesses:
		hints = append(hints, "↑↓ select", "s sort: "+string(m.procSort), "x kill")
	case TabAlerts:
		hints = append(hints, "↑↓ scroll")
	}
	if len(m.toasts) > 0 {
		hints = append(hints, "d dismiss")
	}
	hints = append(hints, "? help")
	return m.styles.Footer.Render(strings.Join(hints, " | "))
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}

// FormatRate formats a bytes-per-second rate as a human-readable string.
func FormatRate(bytesPerSecond float64) string {
	if bytesPerSecond < 1024 {
		return fmt.Sprintf("%.0f B/s", bytesPerSecond)
	} else if bytesPerSecond < 1024*1024 {
		return fmt.Sprintf("%.1f KB/s", bytesPerSecond/1024)
	} else if bytesPerSecond < 1024*1024*1024 {
		return fmt.Sprintf("%.1f MB/s", bytesPerSecond/(1024*1024))
	}
	return fmt.Sprintf("%.1f GB/s", bytesPerSecond/(1024*1024*1024))
}

// formatUptime renders d as "3d 4h 12m", dropping leading zero units.
func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
