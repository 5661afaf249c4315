// Package monitor implements the live TUI dashboard for one vitals agent.
//
// The dashboard never polls the agent itself. It subscribes to every source
// registered on a telemetry.Hub and redraws when a subscription signals new
// data, so any number of views can share one set of pollers.
//
// # Architecture
//
// The package uses the Bubble Tea framework (Model-Update-View):
//
//   - Model: tab, thresholds, theme styles, process table, toasts, alert log
//   - Update: keystrokes, sampleMsg from subscriptions, alertMsg from the
//     notification channel, clockMsg for toast expiry and staleness
//   - View: renders the current tab from the subscriptions' buffered history
//
// # Message Flow
//
//  1. NewModel subscribes to each hub source
//  2. Init starts one waitForUpdate command per subscription
//  3. A signal on Subscription.Updates becomes sampleMsg and the wait is rearmed
//  4. View() reads Subscription.View for graphs and Latest for card values
//
// Close releases every subscription; closed subscriptions end their waits.
//
// # Tabs
//
//	System     - CPU, memory, disk and network cards with braille history graphs
//	Processes  - sortable process table; x kills the selected PID
//	Alerts     - scrollable log of agent notifications
//
// Metric colors come from the agent's thresholds: a value turns warning at
// three quarters of its threshold and critical at the threshold itself. The
// palette follows the agent's configured theme.
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C   - Quit
//	Tab, 1-3    - Switch tab
//	s           - Cycle process sort (cpu/memory/pid/name)
//	x           - Kill selected process
//	d, Esc      - Dismiss toasts
//	?           - Toggle help overlay
package monitor
