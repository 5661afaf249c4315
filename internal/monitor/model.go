package monitor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/internal/notify"
	"github.com/rileyhilliard/vitals/internal/processes"
	"github.com/rileyhilliard/vitals/internal/settings"
	"github.com/rileyhilliard/vitals/internal/telemetry"
)

const (
	toastTTL      = 5 * time.Second
	maxToasts     = 3
	maxAlerts     = 200
	clockInterval = time.Second
	agentTimeout  = 5 * time.Second
)

// StateReporter reports the alert stream's connection state.
type StateReporter interface {
	State() notify.State
}

// Deps wires the dashboard to its data. Only Hub is required.
type Deps struct {
	Hub *telemetry.Hub

	// Agent serves process kills. Nil disables the kill key.
	Agent processes.Client

	// Settings supplies thresholds and the theme. Nil keeps the defaults.
	Settings *settings.Store

	// Alerts feeds toasts and the alert history.
	Alerts <-chan notify.Alert

	// Channel reports the alert stream state shown in the header.
	Channel StateReporter

	// Title is shown next to the app name, usually the agent address.
	Title string

	Now    func() time.Time
	Logger logger.Logger
}

// Model is the Bubble Tea model for the dashboard. It reads telemetry only
// through hub subscriptions and redraws when a subscription signals.
type Model struct {
	deps      Deps
	subs      map[telemetry.Source]*telemetry.Subscription
	done      chan struct{}
	closeOnce *sync.Once

	tab      Tab
	width    int
	height   int
	showHelp bool
	quitting bool

	thresholds settings.Thresholds
	styles     Styles

	procSort  processes.SortKey
	procTable table.Model
	procs     []telemetry.ProcessInfo

	toasts    []toast
	alerts    []notify.Alert
	alertView viewport.Model

	updated   map[telemetry.Source]time.Time
	now       time.Time
	chanState notify.State
}

type toastKind int

const (
	toastAlert toastKind = iota
	toastInfo
	toastError
)

type toast struct {
	kind    toastKind
	title   string
	body    string
	expires time.Time
}

// sampleMsg reports that a subscribed source has new data.
type sampleMsg struct{ src telemetry.Source }

// alertMsg carries one alert from the notification channel.
type alertMsg notify.Alert

// clockMsg drives toast expiry, staleness, and channel state.
type clockMsg time.Time

type settingsMsg struct {
	thresholds settings.Thresholds
	err        error
}

type killResultMsg struct {
	pid    int
	result string
	err    error
}

// NewModel subscribes to every source registered on the hub. Call Close
// when the program exits to release the subscriptions.
func NewModel(deps Deps) (Model, error) {
	if deps.Hub == nil {
		return Model{}, errors.New(errors.ErrConfig, "Dashboard needs a telemetry hub", "")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logger.Noop()
	}

	subs := make(map[telemetry.Source]*telemetry.Subscription)
	for _, src := range deps.Hub.Sources() {
		sub, err := deps.Hub.Subscribe(src)
		if err != nil {
			for _, s := range subs {
				s.Close()
			}
			return Model{}, err
		}
		subs[src] = sub
	}

	thresholds := settings.Defaults()
	if deps.Settings != nil {
		thresholds = deps.Settings.Current()
	}

	m := Model{
		deps:       deps,
		subs:       subs,
		done:       make(chan struct{}),
		closeOnce:  &sync.Once{},
		thresholds: thresholds,
		styles:     NewStyles(PaletteFor(thresholds.Theme)),
		procSort:   processes.SortCPU,
		procTable:  newProcessTable(),
		alertView:  viewport.New(80, 10),
		updated:    make(map[telemetry.Source]time.Time),
		now:        deps.Now(),
	}
	m.applyTableStyles()
	return m, nil
}

// Close releases the hub subscriptions and stops waiting commands.
func (m Model) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		for _, sub := range m.subs {
			sub.Close()
		}
	})
}

// Init starts one waiting command per subscription plus the clock.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{clockCmd()}
	for _, sub := range m.subs {
		cmds = append(cmds, waitForUpdate(sub))
	}
	if m.deps.Alerts != nil {
		cmds = append(cmds, m.waitForAlert())
	}
	if m.deps.Settings != nil {
		cmds = append(cmds, m.loadSettingsCmd())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}
		var cmd tea.Cmd
		switch m.tab {
		case TabProcesses:
			m.procTable, cmd = m.procTable.Update(msg)
		case TabAlerts:
			m.alertView, cmd = m.alertView.Update(msg)
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case sampleMsg:
		m.updated[msg.src] = m.deps.Now()
		if msg.src == telemetry.SourceProcesses {
			m.refreshProcesses()
		}
		if sub, ok := m.subs[msg.src]; ok {
			return m, waitForUpdate(sub)
		}

	case alertMsg:
		m.pushAlert(notify.Alert(msg))
		return m, m.waitForAlert()

	case clockMsg:
		m.now = time.Time(msg)
		m.expireToasts()
		if m.deps.Channel != nil {
			m.chanState = m.deps.Channel.State()
		}
		return m, clockCmd()

	case settingsMsg:
		if msg.err != nil {
			m.deps.Logger.Warn("loading settings failed: %v", msg.err)
			m.pushToast(toastError, "Settings unavailable", errors.ShortMessage(msg.err))
			return m, nil
		}
		m.applyThresholds(msg.thresholds)

	case killResultMsg:
		if msg.err != nil {
			m.pushToast(toastError, fmt.Sprintf("Kill %d failed", msg.pid), errors.ShortMessage(msg.err))
			return m, nil
		}
		m.pushToast(toastInfo, fmt.Sprintf("Process %d", msg.pid), msg.result)
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}

// Tab returns the visible tab.
func (m Model) Tab() Tab { return m.tab }

// Thresholds returns the thresholds the dashboard colors against.
func (m Model) Thresholds() settings.Thresholds { return m.thresholds }

// Alerts returns the alert history, oldest first.
func (m Model) Alerts() []notify.Alert { return m.alerts }

func (m *Model) setTab(t Tab) {
	m.tab = t
	if t == TabProcesses {
		m.procTable.Focus()
	} else {
		m.procTable.Blur()
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	// header, tab bar, blank line, footer
	body := height - 5
	if body < 3 {
		body = 3
	}
	m.procTable.SetWidth(width)
	m.procTable.SetHeight(body - 1)
	m.alertView.Width = width
	m.alertView.Height = body
	m.alertView.SetContent(m.renderAlertHistory())
}

func (m *Model) applyThresholds(t settings.Thresholds) {
	m.thresholds = t
	m.styles = NewStyles(PaletteFor(t.Theme))
	m.applyTableStyles()
	m.alertView.SetContent(m.renderAlertHistory())
}

func (m *Model) pushToast(kind toastKind, title, body string) {
	m.toasts = append(m.toasts, toast{
		kind:    kind,
		title:   title,
		body:    body,
		expires: m.deps.Now().Add(toastTTL),
	})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
}

func (m *Model) expireToasts() {
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if m.now.Before(t.expires) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

func (m *Model) pushAlert(a notify.Alert) {
	if a.Received.IsZero() {
		a.Received = m.deps.Now()
	}
	m.alerts = append(m.alerts, a)
	if len(m.alerts) > maxAlerts {
		m.alerts = m.alerts[len(m.alerts)-maxAlerts:]
	}
	m.pushToast(toastAlert, a.Title, a.Message)
	m.alertView.SetContent(m.renderAlertHistory())
	m.alertView.GotoBottom()
}

func (m *Model) refreshProcesses() {
	sub, ok := m.subs[telemetry.SourceProcesses]
	if !ok {
		return
	}
	latest, ok := sub.Latest()
	if !ok {
		return
	}
	list, ok := telemetry.As[telemetry.ProcessListSnapshot](latest)
	if !ok {
		return
	}
	m.procs = processes.SortBy(list.Processes, m.procSort)
	m.procTable.SetRows(processRows(m.procs))
}

func (m Model) selectedPID() (int, bool) {
	row := m.procTable.SelectedRow()
	if len(row) == 0 {
		return 0, false
	}
	pid, err := strconv.Atoi(row[0])
	if err != nil {
		return 0, false
	}
	return pid, true
}

func (m Model) killCmd(pid int) tea.Cmd {
	agent := m.deps.Agent
	return func() tea.Msg {
		if agent == nil {
			return killResultMsg{pid: pid, err: errors.New(errors.ErrConfig, "Killing processes is disabled", "")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), agentTimeout)
		defer cancel()
		res, err := processes.Kill(ctx, agent, pid)
		return killResultMsg{pid: pid, result: res, err: err}
	}
}

func (m Model) loadSettingsCmd() tea.Cmd {
	store := m.deps.Settings
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), agentTimeout)
		defer cancel()
		if err := store.Ensure(ctx); err != nil {
			return settingsMsg{err: err}
		}
		return settingsMsg{thresholds: store.Current()}
	}
}

// waitForUpdate blocks until sub signals. A closed subscription ends the
// wait without a message.
func waitForUpdate(sub *telemetry.Subscription) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-sub.Updates(); !ok {
			return nil
		}
		return sampleMsg{src: sub.Source()}
	}
}

func (m Model) waitForAlert() tea.Cmd {
	ch, done := m.deps.Alerts, m.done
	return func() tea.Msg {
		select {
		case a, ok := <-ch:
			if !ok {
				return nil
			}
			return alertMsg(a)
		case <-done:
			return nil
		}
	}
}

func clockCmd() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}
