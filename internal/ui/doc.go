// Package ui renders sync progress for people reading a terminal.
//
// Console output carries short sentences; structured telemetry keeps flowing
// through the zap logger configured for the run.
package ui
