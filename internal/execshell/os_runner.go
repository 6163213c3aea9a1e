package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
)

const (
	environmentAssignmentSeparatorConstant = "="
	gitTerminalPromptVariableConstant      = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant      = "0"
	localeVariableConstant                 = "LC_ALL"
	localeNeutralValueConstant             = "C"
)

// OSCommandRunner runs commands as child processes. Git never prompts for
// credentials and always speaks the C locale so its output can be parsed.
type OSCommandRunner struct {
	baseEnvironment func() []string
}

// NewOSCommandRunner constructs a runner inheriting the process environment.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{baseEnvironment: os.Environ}
}

// Run starts the command and waits for it. A non-zero exit is reported in
// the result, not as an error; errors mean the process could not run.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	process := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	process.Dir = command.Details.WorkingDirectory
	process.Env = runner.environment(command)

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	process.Stdout = &standardOutput
	process.Stderr = &standardError
	if len(command.Details.StandardInput) > 0 {
		process.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	result := ExecutionResult{}
	if runError := process.Run(); runError != nil {
		var exitError *exec.ExitError
		if !errors.As(runError, &exitError) {
			return ExecutionResult{}, runError
		}
		result.ExitCode = exitError.ExitCode()
	}
	result.StandardOutput = standardOutput.String()
	result.StandardError = standardError.String()
	return result, nil
}

func (runner *OSCommandRunner) environment(command ShellCommand) []string {
	baseEnvironment := os.Environ
	if runner != nil && runner.baseEnvironment != nil {
		baseEnvironment = runner.baseEnvironment
	}
	overrides := map[string]string{}
	if command.Name == CommandGit {
		overrides[gitTerminalPromptVariableConstant] = gitTerminalPromptDisabledConstant
		overrides[localeVariableConstant] = localeNeutralValueConstant
	}
	for variableName, variableValue := range command.Details.EnvironmentVariables {
		overrides[variableName] = variableValue
	}

	variableNames := make([]string, 0, len(overrides))
	for variableName := range overrides {
		variableNames = append(variableNames, variableName)
	}
	sort.Strings(variableNames)

	environment := append([]string{}, baseEnvironment()...)
	for _, variableName := range variableNames {
		environment = append(environment, variableName+environmentAssignmentSeparatorConstant+overrides[variableName])
	}
	return environment
}
