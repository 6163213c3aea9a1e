// Package filesystem provides the operating system backed filesystem used by the
// mirror store. Writes replace files atomically so an interrupted run never leaves
// a truncated script or metadata document behind.
package filesystem
