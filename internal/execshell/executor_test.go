package execshell_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/rmmsync/internal/execshell"
)

const (
	testMirrorDirectoryConstant = "/srv/mirror"
	testNotRepositoryConstant   = "fatal: not a git repository"
)

type recordingCommandRunner struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	return runner.executionResult, runner.executionError
}

type recordingObserver struct {
	events []string
}

func (recorder *recordingObserver) CommandStarted(execshell.ShellCommand) {
	recorder.events = append(recorder.events, "started")
}

func (recorder *recordingObserver) CommandCompleted(execshell.ShellCommand, execshell.ExecutionResult) {
	recorder.events = append(recorder.events, "completed")
}

func (recorder *recordingObserver) CommandExecutionFailed(execshell.ShellCommand, error) {
	recorder.events = append(recorder.events, "execution_failed")
}

func TestNewShellExecutorRequiresCollaborators(testInstance *testing.T) {
	_, missingLogger := execshell.NewShellExecutor(nil, &recordingCommandRunner{})
	require.ErrorIs(testInstance, missingLogger, execshell.ErrLoggerNotConfigured)

	_, missingRunner := execshell.NewShellExecutor(zap.NewNop(), nil)
	require.ErrorIs(testInstance, missingRunner, execshell.ErrCommandRunnerNotConfigured)

	executor, creationError := execshell.NewShellExecutor(zap.NewNop(), &recordingCommandRunner{}, nil)
	require.NoError(testInstance, creationError)
	require.NotNil(testInstance, executor)
}

func TestShellExecutorLogsMirrorCommands(testInstance *testing.T) {
	fetchDetails := execshell.CommandDetails{Arguments: []string{"fetch", "origin"}, WorkingDirectory: testMirrorDirectoryConstant}

	testCases := []struct {
		name            string
		runner          *recordingCommandRunner
		expectedError   any
		expectedOutput  string
		expectedLevels  []zapcore.Level
		expectedMessage string
		expectedStderr  string
	}{
		{
			name:            "fetch_succeeds",
			runner:          &recordingCommandRunner{executionResult: execshell.ExecutionResult{StandardOutput: "From origin"}},
			expectedOutput:  "From origin",
			expectedLevels:  []zapcore.Level{zapcore.DebugLevel, zapcore.DebugLevel},
			expectedMessage: "Fetched from origin in /srv/mirror",
		},
		{
			name:            "fetch_exits_non_zero",
			runner:          &recordingCommandRunner{executionResult: execshell.ExecutionResult{ExitCode: 128, StandardError: testNotRepositoryConstant}},
			expectedError:   execshell.CommandFailedError{},
			expectedLevels:  []zapcore.Level{zapcore.DebugLevel, zapcore.WarnLevel},
			expectedMessage: "Failed to fetch from origin in /srv/mirror (exit code 128: " + testNotRepositoryConstant + ")",
			expectedStderr:  testNotRepositoryConstant,
		},
		{
			name:            "git_cannot_start",
			runner:          &recordingCommandRunner{executionError: errors.New("executable file not found")},
			expectedError:   execshell.CommandExecutionError{},
			expectedLevels:  []zapcore.Level{zapcore.DebugLevel, zapcore.ErrorLevel},
			expectedMessage: "Unable to fetch from origin in /srv/mirror: executable file not found",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observerCore, observerLogs := observer.New(zap.DebugLevel)
			shellExecutor, creationError := execshell.NewShellExecutor(zap.New(observerCore), testCase.runner)
			require.NoError(testInstance, creationError)

			executionResult, executionError := shellExecutor.ExecuteGit(context.Background(), fetchDetails)
			if testCase.expectedError != nil {
				require.IsType(testInstance, testCase.expectedError, executionError)
				require.Empty(testInstance, executionResult.StandardOutput)
			} else {
				require.NoError(testInstance, executionError)
				require.Equal(testInstance, testCase.expectedOutput, executionResult.StandardOutput)
			}

			entries := observerLogs.All()
			require.Len(testInstance, entries, len(testCase.expectedLevels))
			for index, expectedLevel := range testCase.expectedLevels {
				require.Equal(testInstance, expectedLevel, entries[index].Level)
			}
			lastEntry := entries[len(entries)-1]
			require.Equal(testInstance, testCase.expectedMessage, lastEntry.Message)
			require.Equal(testInstance, testMirrorDirectoryConstant, lastEntry.ContextMap()["working_directory"])
			if len(testCase.expectedStderr) > 0 {
				require.Equal(testInstance, testCase.expectedStderr, lastEntry.ContextMap()["stderr"])
			}

			require.Equal(testInstance, []execshell.ShellCommand{{Name: execshell.CommandGit, Details: fetchDetails}}, testCase.runner.recordedCommands)
		})
	}
}

func TestShellExecutorLogsIdleRebaseCheckAtDebug(testInstance *testing.T) {
	observerCore, observerLogs := observer.New(zap.DebugLevel)
	idleRebaseRunner := &recordingCommandRunner{executionResult: execshell.ExecutionResult{ExitCode: 1, StandardError: "fatal: No rebase in progress?"}}
	shellExecutor, creationError := execshell.NewShellExecutor(zap.New(observerCore), idleRebaseRunner)
	require.NoError(testInstance, creationError)

	_, executionError := shellExecutor.ExecuteGit(context.Background(), execshell.CommandDetails{Arguments: []string{"rebase", "--show-current-patch"}, WorkingDirectory: testMirrorDirectoryConstant})
	require.IsType(testInstance, execshell.CommandFailedError{}, executionError)

	entries := observerLogs.All()
	require.Len(testInstance, entries, 2)
	require.Equal(testInstance, zapcore.DebugLevel, entries[1].Level)
	require.Equal(testInstance, "No rebase in progress in /srv/mirror", entries[1].Message)
	require.Empty(testInstance, observerLogs.FilterLevelExact(zapcore.WarnLevel).All())
}

func TestShellExecutorCommandFailedErrorCarriesResult(testInstance *testing.T) {
	recordingRunner := &recordingCommandRunner{
		executionResult: execshell.ExecutionResult{ExitCode: 128, StandardError: testNotRepositoryConstant},
	}
	shellExecutor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner)
	require.NoError(testInstance, creationError)

	_, executionError := shellExecutor.ExecuteGit(context.Background(), execshell.CommandDetails{Arguments: []string{"status", "--porcelain"}, WorkingDirectory: "/repo"})

	var failedError execshell.CommandFailedError
	require.ErrorAs(testInstance, executionError, &failedError)
	require.Equal(testInstance, 128, failedError.Result.ExitCode)
	require.Equal(testInstance, "git status --porcelain (in /repo) exited with code 128: fatal: not a git repository", executionError.Error())
}

func TestShellExecutorRoutesEventsToObserver(testInstance *testing.T) {
	observerCore, observerLogs := observer.New(zap.DebugLevel)
	eventRecorder := &recordingObserver{}

	testCases := []struct {
		name           string
		runner         *recordingCommandRunner
		expectedEvents []string
	}{
		{
			name:           "push_completes",
			runner:         &recordingCommandRunner{},
			expectedEvents: []string{"started", "completed"},
		},
		{
			name:           "push_cannot_start",
			runner:         &recordingCommandRunner{executionError: errors.New("missing binary")},
			expectedEvents: []string{"started", "execution_failed"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			eventRecorder.events = nil
			shellExecutor, creationError := execshell.NewShellExecutor(zap.New(observerCore), testCase.runner, execshell.WithCommandEventObserver(eventRecorder))
			require.NoError(testInstance, creationError)

			_, _ = shellExecutor.ExecuteGit(context.Background(), execshell.CommandDetails{Arguments: []string{"push", "origin", "main"}, WorkingDirectory: testMirrorDirectoryConstant})

			require.Equal(testInstance, testCase.expectedEvents, eventRecorder.events)
			require.Empty(testInstance, observerLogs.All())
		})
	}
}
