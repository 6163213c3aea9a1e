package ui

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/rmmsync/internal/execshell"
)

const (
	gitVersionFlag           = "--version"
	gitRevParseSubcommand    = "rev-parse"
	gitSymbolicRefSubcommand = "symbolic-ref"
	gitStatusSubcommand      = "status"
	gitDiffSubcommand        = "diff"
	gitRebaseSubcommand      = "rebase"
)

// Read-only git invocations the sync issues to inspect the mirror. They are
// shown at debug level so console output keeps to the steps that change state.
var probeSubcommands = map[string]struct{}{
	gitVersionFlag:           {},
	gitRevParseSubcommand:    {},
	gitSymbolicRefSubcommand: {},
	gitStatusSubcommand:      {},
	gitDiffSubcommand:        {},
	gitRebaseSubcommand:      {},
}

// ConsoleCommandEventLogger renders the git steps of a sync as plain console lines.
type ConsoleCommandEventLogger struct {
	logger    *zap.Logger
	formatter execshell.CommandMessageFormatter
}

// NewConsoleCommandEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleCommandEventLogger(logger *zap.Logger) *ConsoleCommandEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleCommandEventLogger{logger: logger}
}

// CommandStarted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandStarted(command execshell.ShellCommand) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Log(stepLevel(command), eventLogger.formatter.BuildStartedMessage(command))
}

// CommandCompleted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger == nil {
		return
	}
	if result.ExitCode == 0 {
		eventLogger.logger.Log(stepLevel(command), eventLogger.formatter.BuildSuccessMessage(command, result))
		return
	}
	if execshell.ExitCodeIsAnswer(command) {
		eventLogger.logger.Debug(eventLogger.formatter.BuildFailureMessage(command, result))
		return
	}
	eventLogger.logger.Warn(eventLogger.formatter.BuildFailureMessage(command, result))
}

// CommandExecutionFailed implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Error(eventLogger.formatter.BuildExecutionFailureMessage(command, failure))
}

func stepLevel(command execshell.ShellCommand) zapcore.Level {
	if _, probe := probeSubcommands[execshell.Subcommand(command)]; probe {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
