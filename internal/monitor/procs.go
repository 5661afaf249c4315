package monitor

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/vitals/internal/processes"
	"github.com/rileyhilliard/vitals/internal/telemetry"
	"github.com/rileyhilliard/vitals/internal/ui"
)

var processColumnWidths = []int{7, 24, 10, 6, 10, 19}

func newProcessTable() table.Model {
	cols := make([]ui.TableColumn, len(processes.Columns))
	for i, title := range processes.Columns {
		cols[i] = ui.TableColumn{Title: title, Width: processColumnWidths[i]}
	}
	t := ui.NewTable(cols, nil)
	t.SetHeight(10)
	return t
}

// applyTableStyles repaints the process table with the current palette.
func (m *Model) applyTableStyles() {
	p := m.styles.Palette
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(p.Border).
		BorderBottom(true).
		Bold(true).
		Foreground(p.Accent)
	s.Cell = s.Cell.Foreground(p.Text)
	s.Selected = s.Selected.
		Foreground(p.Surface).
		Background(p.AccentDim).
		Bold(true)
	m.procTable.SetStyles(s)
}

func processRows(procs []telemetry.ProcessInfo) []table.Row {
	rows := make([]table.Row, len(procs))
	for i, p := range procs {
		rows[i] = processes.Row(p)
	}
	return rows
}

func (m Model) renderProcesses() string {
	if _, ok := m.subs[telemetry.SourceProcesses]; !ok {
		return m.styles.Muted.Render("Process polling is off. Enable the processes source to see this tab.")
	}
	if len(m.procs) == 0 {
		return m.styles.Muted.Render(ui.SymbolPending + " waiting for data")
	}

	summary := m.styles.Label.Render(fmt.Sprintf("%d processes, sorted by %s", len(m.procs), m.procSort))
	if m.stale(telemetry.SourceProcesses) {
		summary += " " + m.styles.Stale.Render("stale")
	}
	if m.deps.Agent == nil {
		summary += m.styles.Muted.Render("  (read-only)")
	}
	return summary + "\n" + m.procTable.View()
}
