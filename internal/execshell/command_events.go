package execshell

// CommandEventObserver takes over lifecycle reporting from the executor's
// logger, typically to render git activity for a person at a terminal.
type CommandEventObserver interface {
	CommandStarted(command ShellCommand)
	// CommandCompleted fires for every exit code, zero or not.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed fires when the process never produced a result.
	CommandExecutionFailed(command ShellCommand, failure error)
}
