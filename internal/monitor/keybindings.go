package monitor

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Tab is one page of the dashboard.
type Tab int

const (
	TabSystem Tab = iota
	TabProcesses
	TabAlerts
)

var tabNames = []string{"System", "Processes", "Alerts"}

// String returns the tab label.
func (t Tab) String() string {
	if int(t) < len(tabNames) {
		return tabNames[t]
	}
	return "?"
}

// Next cycles to the following tab.
func (t Tab) Next() Tab {
	return Tab((int(t) + 1) % len(tabNames))
}

// Key bindings as constants for consistency.
const (
	KeyQuit       = "q"
	KeyQuitAlt    = "ctrl+c"
	KeyNextTab    = "tab"
	KeyTab1       = "1"
	KeyTab2       = "2"
	KeyTab3       = "3"
	KeyCycleSort  = "s"
	KeyKill       = "x"
	KeyDismiss    = "d"
	KeyCollapse   = "esc"
	KeyToggleHelp = "?"
)

// HandleKeyMsg processes keyboard input and returns updated model state and command.
// Returns true if the key was handled, false otherwise; unhandled keys fall
// through to the focused table or viewport.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}

	if m.showHelp && key == KeyCollapse {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		return true, tea.Quit

	case KeyNextTab:
		m.setTab(m.tab.Next())
		return true, nil

	case KeyTab1:
		m.setTab(TabSystem)
		return true, nil

	case KeyTab2:
		m.setTab(TabProcesses)
		return true, nil

	case KeyTab3:
		m.setTab(TabAlerts)
		return true, nil

	case KeyDismiss, KeyCollapse:
		m.toasts = nil
		return true, nil
	}

	if m.tab == TabProcesses {
		switch key {
		case KeyCycleSort:
			m.procSort = m.procSort.Next()
			m.refreshProcesses()
			return true, nil

		case KeyKill:
			pid, ok := m.selectedPID()
			if !ok {
				return true, nil
			}
			return true, m.killCmd(pid)
		}
	}

	return false, nil
}
