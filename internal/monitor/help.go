package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HelpBinding represents a single keyboard shortcut entry.
type HelpBinding struct {
	Key  string
	Desc string
}

// helpBindings defines all keyboard shortcuts shown in the help overlay.
var helpBindings = []HelpBinding{
	{Key: "q / Ctrl+C", Desc: "Quit"},
	{Key: "Tab", Desc: "Next tab"},
	{Key: "1 / 2 / 3", Desc: "System / Processes / Alerts"},
	{Key: "up / k", Desc: "Move up"},
	{Key: "down / j", Desc: "Move down"},
	{Key: "s", Desc: "Cycle process sort"},
	{Key: "x", Desc: "Kill selected process"},
	{Key: "d / Esc", Desc: "Dismiss alerts"},
	{Key: "?", Desc: "Toggle this help"},
}

// renderHelpOverlay renders a centered help box with keyboard shortcuts.
func (m Model) renderHelpOverlay() string {
	lines := []string{
		m.styles.Title.Render("Keyboard Shortcuts"),
		"",
	}
	for _, b := range helpBindings {
		lines = append(lines, m.styles.HelpKey.Render(b.Key)+m.styles.HelpDesc.Render(b.Desc))
	}
	lines = append(lines, "", m.styles.Label.Render("Press ? to close"))

	box := m.styles.HelpBox.Render(strings.Join(lines, "\n"))
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
