package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TunnelHost is one SSH alias offered as the way to reach the agent.
type TunnelHost struct {
	Alias  string
	Detail string // where the alias points, shown under it
	Search string // extra text the filter matches, such as hostname and user
}

// TunnelChoice is how the user wants to reach the agent.
type TunnelChoice int

const (
	TunnelCancelled TunnelChoice = iota
	TunnelDirect                 // no tunnel
	TunnelViaHost                // through the picked alias
	TunnelManual                 // user will type a host
)

type tunnelItem TunnelHost

func (i tunnelItem) Title() string       { return i.Alias }
func (i tunnelItem) Description() string { return i.Detail }
func (i tunnelItem) FilterValue() string { return strings.TrimSpace(i.Alias + " " + i.Search) }

var tunnelKeys = struct {
	pick, manual, direct, cancel key.Binding
}{
	pick:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "tunnel through host")),
	manual: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "type a host")),
	direct: key.NewBinding(key.WithKeys("d", "esc"), key.WithHelp("d/esc", "no tunnel")),
	cancel: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "cancel")),
}

// TunnelPicker lists SSH aliases for `config init --pick`.
type TunnelPicker struct {
	list   list.Model
	choice TunnelChoice
	host   string
	done   bool
}

func NewTunnelPicker(hosts []TunnelHost) TunnelPicker {
	items := make([]list.Item, len(hosts))
	for i, h := range hosts {
		items[i] = tunnelItem(h)
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorPrimary).
		BorderForeground(ColorSecondary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(ColorMuted)

	l := list.New(items, delegate, 80, 14)
	l.Title = "Which SSH host can reach the agent?"
	l.Styles.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	l.Styles.HelpStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{tunnelKeys.manual, tunnelKeys.direct}
	}
	l.KeyMap.Quit.SetEnabled(false)

	return TunnelPicker{list: l}
}

func (m TunnelPicker) Init() tea.Cmd { return nil }

func (m TunnelPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-1)
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, tunnelKeys.pick):
			if item, ok := m.list.SelectedItem().(tunnelItem); ok {
				return m.finish(TunnelViaHost, item.Alias)
			}
			return m, nil
		case key.Matches(msg, tunnelKeys.manual):
			return m.finish(TunnelManual, "")
		case key.Matches(msg, tunnelKeys.direct):
			return m.finish(TunnelDirect, "")
		case key.Matches(msg, tunnelKeys.cancel):
			return m.finish(TunnelCancelled, "")
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m TunnelPicker) finish(choice TunnelChoice, host string) (tea.Model, tea.Cmd) {
	m.choice, m.host, m.done = choice, host, true
	return m, tea.Quit
}

func (m TunnelPicker) View() string {
	if m.done {
		return ""
	}
	return m.list.View()
}

// Result reports the choice. host is set only for TunnelViaHost.
func (m TunnelPicker) Result() (choice TunnelChoice, host string) {
	return m.choice, m.host
}

// PickTunnel runs the picker on in/out. With no hosts there is nothing to
// pick from, so it returns TunnelManual without drawing.
func PickTunnel(hosts []TunnelHost, in io.Reader, out io.Writer) (TunnelChoice, string, error) {
	if len(hosts) == 0 {
		return TunnelManual, "", nil
	}

	final, err := tea.NewProgram(NewTunnelPicker(hosts), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return TunnelCancelled, "", fmt.Errorf("tunnel picker: %w", err)
	}
	choice, host := final.(TunnelPicker).Result()
	return choice, host, nil
}
