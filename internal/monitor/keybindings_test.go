package monitor

import (
	"testing"

	"github.com/rileyhilliard/vitals/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestTab_String(t *testing.T) {
	tests := []struct {
		tab    Tab
		expect string
	}{
		{TabSystem, "System"},
		{TabProcesses, "Processes"},
		{TabAlerts, "Alerts"},
		{Tab(99), "?"},
	}

	for _, tt := range tests {
		t.Run(tt.expect, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.tab.String())
		})
	}
}

func TestTab_Next(t *testing.T) {
	assert.Equal(t, TabProcesses, TabSystem.Next())
	assert.Equal(t, TabAlerts, TabProcesses.Next())
	assert.Equal(t, TabSystem, TabAlerts.Next())
}

func TestHandleKeyMsg_HelpSwallowsEsc(t *testing.T) {
	hub := newTestHub(t, defaultFetcher(), telemetry.SourceRealtime)
	m := newTestModel(t, Deps{Hub: hub})
	m.pushToast(toastInfo, "kept", "")

	handled, _ := m.HandleKeyMsg(keyMsg("?"))
	assert.True(t, handled)
	assert.True(t, m.showHelp)

	handled, _ = m.HandleKeyMsg(keyMsg("esc"))
	assert.True(t, handled)
	assert.False(t, m.showHelp)
	assert.Len(t, m.toasts, 1, "esc closes help before it dismisses toasts")

	handled, _ = m.HandleKeyMsg(keyMsg("esc"))
	assert.True(t, handled)
	assert.Empty(t, m.toasts)
}

func TestHandleKeyMsg_Unhandled(t *testing.T) {
	hub := newTestHub(t, defaultFetcher(), telemetry.SourceRealtime)
	m := newTestModel(t, Deps{Hub: hub})

	handled, cmd := m.HandleKeyMsg(keyMsg("j"))
	assert.False(t, handled)
	assert.Nil(t, cmd)

	// x only kills from the processes tab.
	handled, _ = m.HandleKeyMsg(keyMsg("x"))
	assert.False(t, handled)
}

func TestHandleKeyMsg_KillWithoutSelection(t *testing.T) {
	hub := newTestHub(t, defaultFetcher(), telemetry.SourceRealtime)
	m := newTestModel(t, Deps{Hub: hub})
	m.setTab(TabProcesses)

	handled, cmd := m.HandleKeyMsg(keyMsg("x"))
	assert.True(t, handled)
	assert.Nil(t, cmd, "nothing to kill in an empty table")
}
