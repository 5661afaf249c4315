package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func tunnelHosts() []TunnelHost {
	return []TunnelHost{
		{Alias: "lab-box", Detail: "10.0.0.5, user: ops", Search: "10.0.0.5 ops"},
		{Alias: "nas", Detail: "nas.local", Search: "nas.local"},
	}
}

func send(m TunnelPicker, msgs ...tea.Msg) (TunnelPicker, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(TunnelPicker)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTunnelPicker_Choices(t *testing.T) {
	tests := []struct {
		name   string
		keys   []tea.Msg
		choice TunnelChoice
		host   string
	}{
		{"enter picks first", []tea.Msg{tea.KeyMsg{Type: tea.KeyEnter}}, TunnelViaHost, "lab-box"},
		{"down then enter", []tea.Msg{tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter}}, TunnelViaHost, "nas"},
		{"m types a host", []tea.Msg{runes("m")}, TunnelManual, ""},
		{"d goes direct", []tea.Msg{runes("d")}, TunnelDirect, ""},
		{"esc goes direct", []tea.Msg{tea.KeyMsg{Type: tea.KeyEsc}}, TunnelDirect, ""},
		{"q cancels", []tea.Msg{runes("q")}, TunnelCancelled, ""},
		{"ctrl+c cancels", []tea.Msg{tea.KeyMsg{Type: tea.KeyCtrlC}}, TunnelCancelled, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := send(NewTunnelPicker(tunnelHosts()), tt.keys...)
			choice, host := m.Result()
			assert.Equal(t, tt.choice, choice)
			assert.Equal(t, tt.host, host)
			assert.NotNil(t, cmd, "a choice quits the program")
			assert.Empty(t, m.View(), "view clears once a choice is made")
		})
	}
}

func TestTunnelPicker_ViewListsHosts(t *testing.T) {
	m, _ := send(NewTunnelPicker(tunnelHosts()), tea.WindowSizeMsg{Width: 60, Height: 20})
	view := m.View()
	assert.Contains(t, view, "Which SSH host can reach the agent?")
	assert.Contains(t, view, "lab-box")
	assert.Contains(t, view, "10.0.0.5, user: ops")

	choice, _ := m.Result()
	assert.Equal(t, TunnelCancelled, choice, "nothing chosen yet")
}

func TestTunnelItem(t *testing.T) {
	item := tunnelItem(tunnelHosts()[0])
	assert.Equal(t, "lab-box", item.Title())
	assert.Equal(t, "10.0.0.5, user: ops", item.Description())
	assert.Equal(t, "lab-box 10.0.0.5 ops", item.FilterValue())
	assert.Equal(t, "nas", tunnelItem{Alias: "nas"}.FilterValue())
}

func TestPickTunnel_NoHosts(t *testing.T) {
	choice, host, err := PickTunnel(nil, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, TunnelManual, choice)
	assert.Empty(t, host)
}
