package monitor

import (
	"strings"

	"github.com/rileyhilliard/vitals/internal/ui"
)

const alertTimeLayout = "15:04:05"

// renderAlertHistory formats the alert log for the viewport, oldest first.
func (m Model) renderAlertHistory() string {
	if len(m.alerts) == 0 {
		return m.styles.Muted.Render("No alerts yet.")
	}

	lines := make([]string, 0, len(m.alerts))
	for _, a := range m.alerts {
		line := m.styles.Muted.Render(a.Received.Format(alertTimeLayout)) + " " +
			m.styles.ToastTitle.Render(ui.SymbolAlert+" "+a.Title)
		if a.Message != "" {
			line += " " + m.styles.Label.Render(a.Message)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderAlerts() string {
	if len(m.alerts) == 0 {
		return m.renderAlertHistory()
	}
	return m.alertView.View()
}
