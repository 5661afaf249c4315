// Package ui holds the terminal building blocks shared by the CLI and the
// dashboard: semantic colors, threshold classification, sparklines, usage
// bars, tables, the snapshot fetch status line, and the SSH tunnel picker.
//
// # Thresholds
//
// Classify maps a reading onto LevelOK, LevelWarn, or LevelCritical against
// the agent's configured threshold. Sparklines and bars take that threshold
// as an argument so they color the same way the agent alerts.
//
// # Gaps
//
// Histories can hold samples the agent never answered. Callers pass those
// as NaN and RenderSparkline draws them as blanks.
package ui
