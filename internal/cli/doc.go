// Package cli implements the vitals command-line interface.
//
// Each Cobra command opens a session (config, optional SSH tunnel, agent
// client) and hands off to the internal packages that do the work.
//
// # Command Structure
//
//	vitals                     - Live dashboard (same as "vitals monitor")
//	vitals snapshot [source]   - Fetch each source once and print it
//	vitals processes [pid]     - List processes, or show one
//	vitals kill <pid>          - Ask the agent to terminate a process
//	vitals settings get|set|edit - Alert thresholds stored on the agent
//	vitals alerts              - Stream threshold alerts
//	vitals config init|set|show|path - Manage .vitals.yaml
//
// # Sessions
//
// openSession resolves config (file, VITALS_* environment, then flags),
// dials the SSH tunnel when agent.ssh is set, and builds the agent client.
// The HTTP client and the alert websocket share the tunnel. Callers must
// Close the session.
//
// # Flag Handling
//
// Global flags (--config, --url, --ssh, --json, --debug, --no-color) are
// persistent on the root command. --interval and --sources narrow polling
// for the dashboard. With --json every command writes a JSONEnvelope, and
// errors are reported through the same envelope with a stable code.
package cli
