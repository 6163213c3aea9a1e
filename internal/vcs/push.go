package vcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/rmmsync/internal/execshell"
)

const (
	gitRebaseSubcommandConstant        = "rebase"
	gitShowCurrentPatchFlagConstant    = "--show-current-patch"
	gitAbbrevRefFlagConstant           = "--abbrev-ref"
	gitCheckoutSubcommandConstant      = "checkout"
	gitCreateBranchFlagConstant        = "-b"
	gitAddSubcommandConstant           = "add"
	gitAllFlagConstant                 = "--all"
	gitDiffSubcommandConstant          = "diff"
	gitCachedFlagConstant              = "--cached"
	gitNameStatusFlagConstant          = "--name-status"
	gitNullTerminatedFlagConstant      = "-z"
	gitConfigFlagConstant              = "-c"
	gitUnquotedPathsSettingConstant    = "core.quotePath=false"
	gitCommitSubcommandConstant        = "commit"
	gitMessageFlagConstant             = "-m"
	gitPushSubcommandConstant          = "push"
	rebaseInProgressMessageConstant    = "a rebase is in progress; complete or abort it before syncing"
	rebaseProbeFailedTemplateConstant  = "failed to check for a rebase in progress: %w"
	branchLookupFailedTemplateConstant = "failed to determine current branch: %w"
	branchCreateFailedTemplateConstant = "failed to create branch %s: %w"
	statusFailedTemplateConstant       = "failed to read working tree status: %w"
	stageFailedTemplateConstant        = "failed to stage changes: %w"
	diffFailedTemplateConstant         = "failed to list staged changes: %w"
	commitFailedTemplateConstant       = "failed to commit changes: %w"
	pushFailedTemplateConstant         = "failed to push %s to %s: %w"
	detachedHeadMessageConstant        = "HEAD is detached, committing on fallback branch"
	nothingToCommitMessageConstant     = "no changes to commit"
	committedMessageConstant           = "committed changes"
	pushedMessageConstant              = "changes pushed"
	logFieldMessageConstant            = "message"
)

// ErrRebaseInProgress indicates Push found an unfinished rebase.
var ErrRebaseInProgress = errors.New(rebaseInProgressMessageConstant)

// PushResult describes what Push did.
type PushResult struct {
	Branch        string
	Committed     bool
	CommitMessage string
	Changes       ChangeSet
}

// Push commits every change in the working tree and pushes the current branch.
// A rebase in progress returns ErrRebaseInProgress before anything is staged.
func (orchestrator *Orchestrator) Push(executionContext context.Context) (PushResult, error) {
	result := PushResult{}

	rebaseInProgress, rebaseError := orchestrator.rebaseInProgress(executionContext)
	if rebaseError != nil {
		return result, fmt.Errorf(rebaseProbeFailedTemplateConstant, rebaseError)
	}
	if rebaseInProgress {
		return result, ErrRebaseInProgress
	}

	branch, branchError := orchestrator.currentBranch(executionContext)
	if branchError != nil {
		return result, branchError
	}
	result.Branch = branch

	statusResult, statusError := orchestrator.git(executionContext, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	if statusError != nil {
		return result, fmt.Errorf(statusFailedTemplateConstant, statusError)
	}
	if len(strings.TrimSpace(statusResult.StandardOutput)) == 0 {
		orchestrator.logger.Info(nothingToCommitMessageConstant, zap.String(logFieldBranchConstant, branch))
		return result, nil
	}

	if _, stageError := orchestrator.git(executionContext, gitAddSubcommandConstant, gitAllFlagConstant); stageError != nil {
		return result, fmt.Errorf(stageFailedTemplateConstant, stageError)
	}
	diffResult, diffError := orchestrator.git(executionContext, gitConfigFlagConstant, gitUnquotedPathsSettingConstant, gitDiffSubcommandConstant, gitCachedFlagConstant, gitNameStatusFlagConstant, gitNullTerminatedFlagConstant)
	if diffError != nil {
		return result, fmt.Errorf(diffFailedTemplateConstant, diffError)
	}
	result.Changes = ParseNameStatus(diffResult.StandardOutput, orchestrator.options.ExcludedFromMessage)
	result.CommitMessage = GenerateCommitMessage(result.Changes)

	if _, commitError := orchestrator.git(executionContext, gitCommitSubcommandConstant, gitMessageFlagConstant, result.CommitMessage); commitError != nil {
		return result, fmt.Errorf(commitFailedTemplateConstant, commitError)
	}
	result.Committed = true
	orchestrator.logger.Info(committedMessageConstant, zap.String(logFieldBranchConstant, branch), zap.String(logFieldMessageConstant, result.CommitMessage))

	remote := orchestrator.options.Remote
	if _, pushError := orchestrator.git(executionContext, gitPushSubcommandConstant, remote, branch); pushError != nil {
		return result, fmt.Errorf(pushFailedTemplateConstant, branch, remote, pushError)
	}
	orchestrator.logger.Info(pushedMessageConstant, zap.String(logFieldRemoteConstant, remote), zap.String(logFieldBranchConstant, branch))
	return result, nil
}

// rebaseInProgress relies on `git rebase --show-current-patch` succeeding only
// while a rebase is stopped.
func (orchestrator *Orchestrator) rebaseInProgress(executionContext context.Context) (bool, error) {
	_, probeError := orchestrator.git(executionContext, gitRebaseSubcommandConstant, gitShowCurrentPatchFlagConstant)
	if probeError == nil {
		return true, nil
	}
	var failedError execshell.CommandFailedError
	if errors.As(probeError, &failedError) {
		return false, nil
	}
	return false, probeError
}

func (orchestrator *Orchestrator) currentBranch(executionContext context.Context) (string, error) {
	branchResult, branchError := orchestrator.git(executionContext, gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant)
	if branchError != nil {
		return "", fmt.Errorf(branchLookupFailedTemplateConstant, branchError)
	}
	branch := strings.TrimSpace(branchResult.StandardOutput)
	if len(branch) > 0 && branch != gitHeadReferenceConstant {
		return branch, nil
	}

	fallback := orchestrator.options.FallbackBranch
	if branch == gitHeadReferenceConstant {
		orchestrator.logger.Warn(detachedHeadMessageConstant, zap.String(logFieldBranchConstant, fallback))
		if _, checkoutError := orchestrator.git(executionContext, gitCheckoutSubcommandConstant, gitCreateBranchFlagConstant, fallback); checkoutError != nil {
			return "", fmt.Errorf(branchCreateFailedTemplateConstant, fallback, checkoutError)
		}
	}
	return fallback, nil
}
