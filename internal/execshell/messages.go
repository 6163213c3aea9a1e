package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	flagPrefixConstant                      = "-"
	outputLineLimitConstant                 = 5
)

const (
	gitVersionFlagConstant             = "--version"
	gitRevParseSubcommandNameConstant  = "rev-parse"
	gitWorkTreeFlagConstant            = "--is-inside-work-tree"
	gitAbbrevRefFlagConstant           = "--abbrev-ref"
	gitHeadReferenceConstant           = "HEAD"
	gitSymbolicRefSubcommandConstant   = "symbolic-ref"
	gitStatusSubcommandNameConstant    = "status"
	gitFetchSubcommandNameConstant     = "fetch"
	gitResetSubcommandNameConstant     = "reset"
	gitRebaseSubcommandNameConstant    = "rebase"
	gitCheckoutSubcommandNameConstant  = "checkout"
	gitCreateBranchFlagConstant        = "-b"
	gitAddSubcommandNameConstant       = "add"
	gitDiffSubcommandNameConstant      = "diff"
	gitCommitSubcommandNameConstant    = "commit"
	gitMessageFlagConstant             = "-m"
	gitPushSubcommandNameConstant      = "push"
	gitRepositoryDirectoryFlagConstant = "-C"
	gitConfigurationFlagConstant       = "-c"
	gitNullTerminatedFlagConstant      = "-z"
	nullSeparatorConstant              = "\x00"
	gitRenameStatusPrefixConstant      = "R"
	gitCopyStatusPrefixConstant        = "C"
)

const (
	gitVersionStartTemplateConstant                = "Checking git availability"
	gitVersionSuccessTemplateConstant              = "git is available: %s"
	gitVersionFailureTemplateConstant              = "git is not usable (exit code %d%s)"
	gitVersionExecutionFailureTemplateConstant     = "git is not available: %s"
	gitWorkTreeStartTemplateConstant               = "Analyzing repository at %s"
	gitWorkTreeSuccessTemplateConstant             = "%s is a Git repository"
	gitWorkTreeFailureTemplateConstant             = "Could not confirm %s is a Git repository (exit code %d%s)"
	gitWorkTreeExecutionFailureTemplateConstant    = "Could not analyze %s: %s"
	gitCurrentBranchStartTemplateConstant          = "Identifying current branch in %s"
	gitCurrentBranchSuccessTemplateConstant        = "Current branch in %s is %s"
	gitCurrentBranchDetachedTemplateConstant       = "%s is in a detached HEAD state"
	gitCurrentBranchFailureTemplateConstant        = "Failed to identify current branch in %s (exit code %d%s)"
	gitCurrentBranchExecutionTemplateConstant      = "Unable to identify current branch in %s: %s"
	gitStatusStartTemplateConstant                 = "Reviewing working tree status in %s"
	gitStatusCleanTemplateConstant                 = "Working tree in %s is clean"
	gitStatusDirtyTemplateConstant                 = "Working tree in %s has %d pending change(s)"
	gitStatusFailureTemplateConstant               = "Failed to review working tree status in %s (exit code %d%s)"
	gitStatusExecutionFailureTemplateConstant      = "Unable to review working tree status in %s: %s"
	gitFetchStartTemplateConstant                  = "Fetching from %s in %s"
	gitFetchSuccessTemplateConstant                = "Fetched from %s in %s"
	gitFetchFailureTemplateConstant                = "Failed to fetch from %s in %s (exit code %d%s)"
	gitFetchExecutionFailureTemplateConstant       = "Unable to fetch from %s in %s: %s"
	gitResetStartTemplateConstant                  = "Discarding local changes in %s and resetting to %s"
	gitResetSuccessTemplateConstant                = "%s now matches %s"
	gitResetFailureTemplateConstant                = "Failed to reset %s to %s (exit code %d%s)"
	gitResetExecutionFailureTemplateConstant       = "Unable to reset %s to %s: %s"
	gitRebaseProbeStartTemplateConstant            = "Checking for a rebase in progress in %s"
	gitRebaseProbeInProgressTemplateConstant       = "A rebase is in progress in %s"
	gitRebaseProbeIdleTemplateConstant             = "No rebase in progress in %s"
	gitRebaseProbeExecutionFailureTemplateConstant = "Unable to check rebase state in %s: %s"
	gitCheckoutStartTemplateConstant               = "Creating and switching %s to branch %s"
	gitCheckoutSuccessTemplateConstant             = "%s now on branch %s"
	gitCheckoutFailureTemplateConstant             = "Failed to switch %s to branch %s (exit code %d%s)"
	gitCheckoutExecutionFailureTemplateConstant    = "Unable to switch %s to branch %s: %s"
	gitAddStartTemplateConstant                    = "Staging %s in %s"
	gitAddSuccessTemplateConstant                  = "Staged %s in %s"
	gitAddFailureTemplateConstant                  = "Failed to stage %s in %s (exit code %d%s)"
	gitAddExecutionFailureTemplateConstant         = "Unable to stage %s in %s: %s"
	gitDiffStartTemplateConstant                   = "Listing staged changes in %s"
	gitDiffSuccessTemplateConstant                 = "Found %d staged change(s) in %s"
	gitDiffFailureTemplateConstant                 = "Failed to list staged changes in %s (exit code %d%s)"
	gitDiffExecutionFailureTemplateConstant        = "Unable to list staged changes in %s: %s"
	gitCommitStartTemplateConstant                 = "Creating commit in %s with message %q"
	gitCommitSuccessTemplateConstant               = "Created commit in %s with message %q"
	gitCommitFailureTemplateConstant               = "Failed to create commit in %s with message %q (exit code %d%s)"
	gitCommitExecutionFailureTemplateConstant      = "Unable to create commit in %s with message %q: %s"
	gitPushStartTemplateConstant                   = "Pushing %s to %s from %s"
	gitPushSuccessTemplateConstant                 = "Pushed %s to %s from %s"
	gitPushFailureTemplateConstant                 = "Failed to push %s to %s from %s (exit code %d%s)"
	gitPushExecutionFailureTemplateConstant        = "Unable to push %s to %s from %s: %s"
)

// Subcommand returns the git subcommand of a command, skipping leading
// "-C <dir>" and "-c <key=value>" options. The version probe reports "--version".
func Subcommand(command ShellCommand) string {
	arguments := CommandMessageFormatter{}.subcommandArguments(command.Details.Arguments)
	if len(arguments) == 0 {
		return emptyStringConstant
	}
	return strings.TrimSpace(arguments[0])
}

// ExitCodeIsAnswer reports whether a non-zero exit of the command answers a
// question instead of signalling a failure: symbolic-ref on a detached HEAD and
// the rebase probe when no rebase is stopped.
func ExitCodeIsAnswer(command ShellCommand) bool {
	if command.Name != CommandGit {
		return false
	}
	switch Subcommand(command) {
	case gitSymbolicRefSubcommandConstant, gitRebaseSubcommandNameConstant:
		return true
	default:
		return false
	}
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
	return formatter.describeGitMessage(command, result, failure, stage)
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := formatter.subcommandArguments(command.Details.Arguments)
	if len(arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	switch strings.TrimSpace(arguments[0]) {
	case gitVersionFlagConstant:
		return formatter.describeGitVersion(result, failure, stage)
	case gitRevParseSubcommandNameConstant:
		return formatter.describeGitRevParse(command, arguments, workingDirectory, result, failure, stage)
	case gitSymbolicRefSubcommandConstant:
		return formatter.describeCurrentBranch(workingDirectory, result, failure, stage)
	case gitStatusSubcommandNameConstant:
		return formatter.describeGitStatus(workingDirectory, result, failure, stage)
	case gitFetchSubcommandNameConstant:
		remoteName := formatter.ensureValue(formatter.firstNonFlagArgument(arguments[1:]))
		return formatter.selectTemplate(stage, result, failure,
			fmt.Sprintf(gitFetchStartTemplateConstant, remoteName, workingDirectory),
			fmt.Sprintf(gitFetchSuccessTemplateConstant, remoteName, workingDirectory),
			func(exitCode int, suffix string) string {
				return fmt.Sprintf(gitFetchFailureTemplateConstant, remoteName, workingDirectory, exitCode, suffix)
			},
			func(reason string) string {
				return fmt.Sprintf(gitFetchExecutionFailureTemplateConstant, remoteName, workingDirectory, reason)
			})
	case gitResetSubcommandNameConstant:
		target := formatter.ensureValue(formatter.lastNonFlagArgument(arguments[1:]))
		return formatter.selectTemplate(stage, result, failure,
			fmt.Sprintf(gitResetStartTemplateConstant, workingDirectory, target),
			fmt.Sprintf(gitResetSuccessTemplateConstant, workingDirectory, target),
			func(exitCode int, suffix string) string {
				return fmt.Sprintf(gitResetFailureTemplateConstant, workingDirectory, target, exitCode, suffix)
			},
			func(reason string) string {
				return fmt.Sprintf(gitResetExecutionFailureTemplateConstant, workingDirectory, target, reason)
			})
	case gitRebaseSubcommandNameConstant:
		return formatter.describeRebaseProbe(command, workingDirectory, result, failure, stage)
	case gitCheckoutSubcommandNameConstant:
		branchName := formatter.ensureValue(formatter.lastNonFlagArgument(arguments[1:]))
		return formatter.selectTemplate(stage, result, failure,
			fmt.Sprintf(gitCheckoutStartTemplateConstant, workingDirectory, branchName),
			fmt.Sprintf(gitCheckoutSuccessTemplateConstant, workingDirectory, branchName),
			func(exitCode int, suffix string) string {
				return fmt.Sprintf(gitCheckoutFailureTemplateConstant, workingDirectory, branchName, exitCode, suffix)
			},
			func(reason string) string {
				return fmt.Sprintf(gitCheckoutExecutionFailureTemplateConstant, workingDirectory, branchName, reason)
			})
	case gitAddSubcommandNameConstant:
		target := formatter.describeAddTarget(arguments[1:])
		return formatter.selectTemplate(stage, result, failure,
			fmt.Sprintf(gitAddStartTemplateConstant, target, workingDirectory),
			fmt.Sprintf(gitAddSuccessTemplateConstant, target, workingDirectory),
			func(exitCode int, suffix string) string {
				return fmt.Sprintf(gitAddFailureTemplateConstant, target, workingDirectory, exitCode, suffix)
			},
			func(reason string) string {
				return fmt.Sprintf(gitAddExecutionFailureTemplateConstant, target, workingDirectory, reason)
			})
	case gitDiffSubcommandNameConstant:
		return formatter.selectTemplate(stage, result, failure,
			fmt.Sprintf(gitDiffStartTemplateConstant, workingDirectory),
			fmt.Sprintf(gitDiffSuccessTemplateConstant, formatter.countStagedChanges(arguments, result.StandardOutput), workingDirectory),
			func(exitCode int, suffix string) string {
				return fmt.Sprintf(gitDiffFailureTemplateConstant, workingDirectory, exitCode, suffix)
			},
			func(reason string) string {
				return fmt.Sprintf(gitDiffExecutionFailureTemplateConstant, workingDirectory, reason)
			})
	case gitCommitSubcommandNameConstant:
		commitMessage := findFlagValue(arguments, gitMessageFlagConstant)
		return formatter.selectTemplate(stage, result, failure,
			fmt.Sprintf(gitCommitStartTemplateConstant, workingDirectory, commitMessage),
			fmt.Sprintf(gitCommitSuccessTemplateConstant, workingDirectory, commitMessage),
			func(exitCode int, suffix string) string {
				return fmt.Sprintf(gitCommitFailureTemplateConstant, workingDirectory, commitMessage, exitCode, suffix)
			},
			func(reason string) string {
				return fmt.Sprintf(gitCommitExecutionFailureTemplateConstant, workingDirectory, commitMessage, reason)
			})
	case gitPushSubcommandNameConstant:
		remoteName := formatter.ensureValue(formatter.argumentAtIndex(arguments, 1))
		branchName := formatter.ensureValue(formatter.argumentAtIndex(arguments, 2))
		return formatter.selectTemplate(stage, result, failure,
			fmt.Sprintf(gitPushStartTemplateConstant, branchName, remoteName, workingDirectory),
			fmt.Sprintf(gitPushSuccessTemplateConstant, branchName, remoteName, workingDirectory),
			func(exitCode int, suffix string) string {
				return fmt.Sprintf(gitPushFailureTemplateConstant, branchName, remoteName, workingDirectory, exitCode, suffix)
			},
			func(reason string) string {
				return fmt.Sprintf(gitPushExecutionFailureTemplateConstant, branchName, remoteName, workingDirectory, reason)
			})
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitVersion(result ExecutionResult, failure error, stage messageStage) string {
	return formatter.selectTemplate(stage, result, failure,
		gitVersionStartTemplateConstant,
		fmt.Sprintf(gitVersionSuccessTemplateConstant, formatter.ensureValue(result.StandardOutput)),
		func(exitCode int, suffix string) string {
			return fmt.Sprintf(gitVersionFailureTemplateConstant, exitCode, suffix)
		},
		func(reason string) string {
			return fmt.Sprintf(gitVersionExecutionFailureTemplateConstant, reason)
		})
}

func (formatter CommandMessageFormatter) describeGitRevParse(command ShellCommand, arguments []string, workingDirectory string, result ExecutionResult, failure error, stage messageStage) string {
	if containsArgument(arguments, gitWorkTreeFlagConstant) {
		return formatter.selectTemplate(stage, result, failure,
			fmt.Sprintf(gitWorkTreeStartTemplateConstant, workingDirectory),
			fmt.Sprintf(gitWorkTreeSuccessTemplateConstant, workingDirectory),
			func(exitCode int, suffix string) string {
				return fmt.Sprintf(gitWorkTreeFailureTemplateConstant, workingDirectory, exitCode, suffix)
			},
			func(reason string) string {
				return fmt.Sprintf(gitWorkTreeExecutionFailureTemplateConstant, workingDirectory, reason)
			})
	}
	if containsArgument(arguments, gitAbbrevRefFlagConstant) {
		return formatter.describeCurrentBranch(workingDirectory, result, failure, stage)
	}
	return formatter.buildGenericMessage(command, result, failure, stage)
}

func (formatter CommandMessageFormatter) describeCurrentBranch(workingDirectory string, result ExecutionResult, failure error, stage messageStage) string {
	branchName := strings.TrimSpace(result.StandardOutput)
	successMessage := fmt.Sprintf(gitCurrentBranchSuccessTemplateConstant, workingDirectory, branchName)
	if len(branchName) == 0 || branchName == gitHeadReferenceConstant {
		successMessage = fmt.Sprintf(gitCurrentBranchDetachedTemplateConstant, workingDirectory)
	}
	return formatter.selectTemplate(stage, result, failure,
		fmt.Sprintf(gitCurrentBranchStartTemplateConstant, workingDirectory),
		successMessage,
		func(exitCode int, suffix string) string {
			return fmt.Sprintf(gitCurrentBranchFailureTemplateConstant, workingDirectory, exitCode, suffix)
		},
		func(reason string) string {
			return fmt.Sprintf(gitCurrentBranchExecutionTemplateConstant, workingDirectory, reason)
		})
}

func (formatter CommandMessageFormatter) describeGitStatus(workingDirectory string, result ExecutionResult, failure error, stage messageStage) string {
	pendingChanges := formatter.countOutputLines(result.StandardOutput)
	successMessage := fmt.Sprintf(gitStatusCleanTemplateConstant, workingDirectory)
	if pendingChanges > 0 {
		successMessage = fmt.Sprintf(gitStatusDirtyTemplateConstant, workingDirectory, pendingChanges)
	}
	return formatter.selectTemplate(stage, result, failure,
		fmt.Sprintf(gitStatusStartTemplateConstant, workingDirectory),
		successMessage,
		func(exitCode int, suffix string) string {
			return fmt.Sprintf(gitStatusFailureTemplateConstant, workingDirectory, exitCode, suffix)
		},
		func(reason string) string {
			return fmt.Sprintf(gitStatusExecutionFailureTemplateConstant, workingDirectory, reason)
		})
}

// The rebase probe succeeds only while a rebase is in progress, so a non-zero
// exit is the expected idle answer rather than a failure.
func (formatter CommandMessageFormatter) describeRebaseProbe(command ShellCommand, workingDirectory string, result ExecutionResult, failure error, stage messageStage) string {
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitRebaseProbeStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitRebaseProbeInProgressTemplateConstant, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitRebaseProbeIdleTemplateConstant, workingDirectory)
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitRebaseProbeExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) selectTemplate(stage messageStage, result ExecutionResult, failure error, startMessage string, successMessage string, failureMessage func(exitCode int, suffix string) string, executionFailureMessage func(reason string) string) string {
	switch stage {
	case messageStageStart:
		return startMessage
	case messageStageSuccess:
		return successMessage
	case messageStageFailure:
		return failureMessage(result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return executionFailureMessage(formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := formatter.trimmedOutput(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

// trimmedOutput keeps the first few lines of process output for log messages.
func (formatter CommandMessageFormatter) trimmedOutput(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > outputLineLimitConstant {
		lines = lines[:outputLineLimitConstant]
	}
	return strings.TrimSpace(strings.Join(lines, "; "))
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) describeAddTarget(arguments []string) string {
	target := formatter.firstNonFlagArgument(arguments)
	if len(target) > 0 {
		return target
	}
	if len(arguments) > 0 {
		return strings.Join(arguments, commandArgumentsJoinSeparatorConstant)
	}
	return fallbackUnknownValueLabelConstant
}

// subcommandArguments drops leading "-C <dir>" and "-c <key=value>" pairs so
// messages key off the subcommand.
func (formatter CommandMessageFormatter) subcommandArguments(arguments []string) []string {
	for len(arguments) >= 2 {
		flag := strings.TrimSpace(arguments[0])
		if flag != gitRepositoryDirectoryFlagConstant && flag != gitConfigurationFlagConstant {
			break
		}
		arguments = arguments[2:]
	}
	return arguments
}

// countStagedChanges counts name-status entries, which are NUL-terminated
// records when -z was passed and lines otherwise.
func (formatter CommandMessageFormatter) countStagedChanges(arguments []string, output string) int {
	if !containsArgument(arguments, gitNullTerminatedFlagConstant) {
		return formatter.countOutputLines(output)
	}
	fields := strings.Split(strings.TrimRight(output, nullSeparatorConstant), nullSeparatorConstant)
	entries := 0
	for index := 0; index < len(fields); {
		status := strings.TrimSpace(fields[index])
		if len(status) == 0 {
			index++
			continue
		}
		entries++
		index += 2
		if strings.HasPrefix(status, gitRenameStatusPrefixConstant) || strings.HasPrefix(status, gitCopyStatusPrefixConstant) {
			index++
		}
	}
	return entries
}

func (formatter CommandMessageFormatter) countOutputLines(output string) int {
	trimmed := strings.TrimSpace(output)
	if len(trimmed) == 0 {
		return 0
	}
	return len(strings.Split(trimmed, "\n"))
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index >= 0 && index < len(arguments) {
		return arguments[index]
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) firstNonFlagArgument(arguments []string) string {
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		return trimmed
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) lastNonFlagArgument(arguments []string) string {
	for index := len(arguments) - 1; index >= 0; index-- {
		trimmed := strings.TrimSpace(arguments[index])
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		return trimmed
	}
	return emptyStringConstant
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

func findFlagValue(arguments []string, flag string) string {
	for index := 0; index < len(arguments)-1; index++ {
		if strings.TrimSpace(arguments[index]) == flag {
			return arguments[index+1]
		}
	}
	return emptyStringConstant
}
