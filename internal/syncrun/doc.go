// Package syncrun sequences one sync run: preflight, git health check, pull,
// writeback, export, cleanup and push. It separates fatal preconditions,
// reported as FatalError, from per-item failures counted in the Summary.
package syncrun
