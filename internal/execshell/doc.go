// Package execshell runs external tools for the sync pipeline.
//
// ShellExecutor wraps a CommandRunner with lifecycle reporting and turns
// non-zero exits into CommandFailedError values. OSCommandRunner is the
// os/exec backed runner used outside of tests. Only git is invoked today.
package execshell
