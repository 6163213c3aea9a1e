package execshell

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOSCommandRunnerEnvironmentForGit(testInstance *testing.T) {
	runner := &OSCommandRunner{baseEnvironment: func() []string { return []string{"HOME=/home/operator"} }}

	gitEnvironment := runner.environment(ShellCommand{Name: CommandGit, Details: CommandDetails{EnvironmentVariables: map[string]string{"GIT_AUTHOR_NAME": "sync"}}})
	require.Equal(testInstance, []string{"HOME=/home/operator", "GIT_AUTHOR_NAME=sync", "GIT_TERMINAL_PROMPT=0", "LC_ALL=C"}, gitEnvironment)

	otherEnvironment := runner.environment(ShellCommand{Name: CommandName("env")})
	require.Equal(testInstance, []string{"HOME=/home/operator"}, otherEnvironment)
}

func TestOSCommandRunnerRunsGit(testInstance *testing.T) {
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip("git is not installed")
	}
	runner := NewOSCommandRunner()

	versionResult, versionError := runner.Run(context.Background(), ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"--version"}}})
	require.NoError(testInstance, versionError)
	require.Equal(testInstance, 0, versionResult.ExitCode)
	require.Contains(testInstance, versionResult.StandardOutput, "git version")

	failedResult, failedError := runner.Run(context.Background(), ShellCommand{Name: CommandGit, Details: CommandDetails{
		Arguments:        []string{"rev-parse", "--is-inside-work-tree"},
		WorkingDirectory: testInstance.TempDir(),
	}})
	require.NoError(testInstance, failedError)
	require.NotEqual(testInstance, 0, failedResult.ExitCode)
	require.NotEmpty(testInstance, failedResult.StandardError)
}

func TestOSCommandRunnerReportsMissingExecutable(testInstance *testing.T) {
	runner := NewOSCommandRunner()
	_, runError := runner.Run(context.Background(), ShellCommand{Name: CommandName("rmmsync-missing-executable")})
	require.Error(testInstance, runError)
}
