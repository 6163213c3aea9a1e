package vcs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/temirov/rmmsync/internal/execshell"
	"github.com/temirov/rmmsync/internal/filesystem"
)

const (
	gitDirectoryNameConstant                = ".git"
	gitVersionFlagConstant                  = "--version"
	gitRevParseSubcommandConstant           = "rev-parse"
	gitInsideWorkTreeFlagConstant           = "--is-inside-work-tree"
	gitSymbolicRefSubcommandConstant        = "symbolic-ref"
	gitShortFlagConstant                    = "--short"
	gitHeadReferenceConstant                = "HEAD"
	gitStatusSubcommandConstant             = "status"
	gitPorcelainFlagConstant                = "--porcelain"
	gitFetchSubcommandConstant              = "fetch"
	gitResetSubcommandConstant              = "reset"
	gitHardFlagConstant                     = "--hard"
	gitRemoteBranchTemplateConstant         = "%s/%s"
	gitInsideWorkTreeAnswerConstant         = "true"
	defaultRemoteNameConstant               = "origin"
	defaultFallbackBranchConstant           = "update-scripts"
	repositoryPathRequiredMessageConstant   = "repository path must be provided"
	branchRequiredMessageConstant           = "sync branch must be provided"
	executorNotConfiguredMessageConstant    = "git executor not configured"
	invalidExclusionPatternMessageConstant  = "invalid commit message exclusion pattern"
	invalidExclusionPatternTemplateConstant = "%w: %q"
	healthCheckRequiredMessageConstant      = "a passed health check is required before resetting the repository"
	unhealthyRepositoryMessageConstant      = "repository is not ready for sync"
	healthCheckErrorTemplateConstant        = "%s: %s"
	healthCheckErrorCauseTemplateConstant   = "%s: %s: %v"
	fetchFailedTemplateConstant             = "failed to fetch %s: %w"
	resetFailedTemplateConstant             = "failed to reset to %s: %w"
	healthCheckPassedMessageConstant        = "repository health check passed"
	healthCheckFailedMessageConstant        = "repository health check failed"
	pullCompletedMessageConstant            = "local changes discarded, mirror matches remote branch"
	logFieldRepositoryConstant              = "repository"
	logFieldBranchConstant                  = "branch"
	logFieldRemoteConstant                  = "remote"
	logFieldCheckConstant                   = "check"
	logFieldReasonConstant                  = "reason"
)

// Health check names reported by HealthCheckError.
const (
	CheckGitDirectory = "git_directory"
	CheckGitAvailable = "git_available"
	CheckWorkTree     = "work_tree"
	CheckCleanTree    = "clean_tree"
	CheckBranch       = "branch"
)

const (
	reasonMissingGitDirectoryConstant = "no .git directory found"
	reasonGitUnavailableConstant      = "git command is not available"
	reasonNotWorkTreeConstant         = "path is not inside a git work tree"
	reasonStatusFailedConstant        = "could not read working tree status"
	reasonUncommittedChangesConstant  = "working tree has uncommitted changes"
	reasonBranchUnknownConstant       = "could not determine the checked out branch"
	reasonWrongBranchTemplateConstant = "checked out branch %q differs from sync branch %q"
)

var (
	// ErrRepositoryPathRequired indicates the orchestrator was created without a repository path.
	ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)
	// ErrBranchRequired indicates the orchestrator was created without a sync branch.
	ErrBranchRequired = errors.New(branchRequiredMessageConstant)
	// ErrExecutorNotConfigured indicates the orchestrator was created without a git executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrInvalidExclusionPattern indicates an ExcludedFromMessage entry is not a valid glob.
	ErrInvalidExclusionPattern = errors.New(invalidExclusionPatternMessageConstant)
	// ErrHealthCheckRequired indicates DiscardLocalAndReset received a zero token.
	ErrHealthCheckRequired = errors.New(healthCheckRequiredMessageConstant)
	// ErrRepositoryUnhealthy matches every HealthCheckError.
	ErrRepositoryUnhealthy = errors.New(unhealthyRepositoryMessageConstant)
)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// StatFileSystem is the filesystem access the health check needs.
type StatFileSystem interface {
	Stat(path string) (fs.FileInfo, error)
}

// Dependencies wires collaborators into an Orchestrator.
type Dependencies struct {
	Executor   GitExecutor
	FileSystem StatFileSystem
	Logger     *zap.Logger
}

// Options describe the repository the orchestrator manages.
type Options struct {
	RepositoryPath string
	Branch         string
	Remote         string
	// FallbackBranch is used by Push when HEAD is detached or unnamed.
	FallbackBranch string
	// ExcludedFromMessage lists doublestar patterns left out of commit messages.
	ExcludedFromMessage []string
}

// HealthCheckError reports the first failed health check.
type HealthCheckError struct {
	Check  string
	Reason string
	Cause  error
}

// Error describes the failed check.
func (healthError HealthCheckError) Error() string {
	if healthError.Cause != nil {
		return fmt.Sprintf(healthCheckErrorCauseTemplateConstant, unhealthyRepositoryMessageConstant, healthError.Reason, healthError.Cause)
	}
	return fmt.Sprintf(healthCheckErrorTemplateConstant, unhealthyRepositoryMessageConstant, healthError.Reason)
}

// Is matches ErrRepositoryUnhealthy.
func (healthError HealthCheckError) Is(target error) bool {
	return target == ErrRepositoryUnhealthy
}

// Unwrap exposes the underlying cause.
func (healthError HealthCheckError) Unwrap() error {
	return healthError.Cause
}

// HealthyRepository proves a health check passed. Only HealthCheck creates one.
type HealthyRepository struct {
	repositoryPath string
	branch         string
}

// Branch returns the verified sync branch.
func (token HealthyRepository) Branch() string {
	return token.branch
}

// Orchestrator runs the git side of a sync run.
type Orchestrator struct {
	executor   GitExecutor
	fileSystem StatFileSystem
	logger     *zap.Logger
	options    Options
}

// NewOrchestrator validates dependencies and options.
func NewOrchestrator(dependencies Dependencies, options Options) (*Orchestrator, error) {
	if dependencies.Executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	options.RepositoryPath = strings.TrimSpace(options.RepositoryPath)
	if len(options.RepositoryPath) == 0 {
		return nil, ErrRepositoryPathRequired
	}
	options.Branch = strings.TrimSpace(options.Branch)
	if len(options.Branch) == 0 {
		return nil, ErrBranchRequired
	}
	if len(strings.TrimSpace(options.Remote)) == 0 {
		options.Remote = defaultRemoteNameConstant
	}
	if len(strings.TrimSpace(options.FallbackBranch)) == 0 {
		options.FallbackBranch = defaultFallbackBranchConstant
	}
	for _, pattern := range options.ExcludedFromMessage {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf(invalidExclusionPatternTemplateConstant, ErrInvalidExclusionPattern, pattern)
		}
	}
	options.ExcludedFromMessage = append([]string{}, options.ExcludedFromMessage...)

	fileSystem := dependencies.FileSystem
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{executor: dependencies.Executor, fileSystem: fileSystem, logger: logger, options: options}, nil
}

// HealthCheck verifies the repository can be reset and committed to safely.
func (orchestrator *Orchestrator) HealthCheck(executionContext context.Context) (HealthyRepository, error) {
	healthError := orchestrator.runHealthChecks(executionContext)
	if healthError != nil {
		var failedCheck HealthCheckError
		if errors.As(healthError, &failedCheck) {
			orchestrator.logger.Error(healthCheckFailedMessageConstant,
				zap.String(logFieldRepositoryConstant, orchestrator.options.RepositoryPath),
				zap.String(logFieldCheckConstant, failedCheck.Check),
				zap.String(logFieldReasonConstant, failedCheck.Reason),
			)
		}
		return HealthyRepository{}, healthError
	}
	orchestrator.logger.Info(healthCheckPassedMessageConstant,
		zap.String(logFieldRepositoryConstant, orchestrator.options.RepositoryPath),
		zap.String(logFieldBranchConstant, orchestrator.options.Branch),
	)
	return HealthyRepository{repositoryPath: orchestrator.options.RepositoryPath, branch: orchestrator.options.Branch}, nil
}

func (orchestrator *Orchestrator) runHealthChecks(executionContext context.Context) error {
	gitDirectory := filepath.Join(orchestrator.options.RepositoryPath, gitDirectoryNameConstant)
	if _, statError := orchestrator.fileSystem.Stat(gitDirectory); statError != nil {
		return HealthCheckError{Check: CheckGitDirectory, Reason: reasonMissingGitDirectoryConstant, Cause: statError}
	}

	if _, versionError := orchestrator.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: []string{gitVersionFlagConstant}}); versionError != nil {
		return HealthCheckError{Check: CheckGitAvailable, Reason: reasonGitUnavailableConstant, Cause: versionError}
	}

	workTreeResult, workTreeError := orchestrator.git(executionContext, gitRevParseSubcommandConstant, gitInsideWorkTreeFlagConstant)
	if workTreeError != nil {
		return HealthCheckError{Check: CheckWorkTree, Reason: reasonNotWorkTreeConstant, Cause: workTreeError}
	}
	if strings.TrimSpace(workTreeResult.StandardOutput) != gitInsideWorkTreeAnswerConstant {
		return HealthCheckError{Check: CheckWorkTree, Reason: reasonNotWorkTreeConstant}
	}

	statusResult, statusError := orchestrator.git(executionContext, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	if statusError != nil {
		return HealthCheckError{Check: CheckCleanTree, Reason: reasonStatusFailedConstant, Cause: statusError}
	}
	if len(strings.TrimSpace(statusResult.StandardOutput)) > 0 {
		return HealthCheckError{Check: CheckCleanTree, Reason: reasonUncommittedChangesConstant}
	}

	branchResult, branchError := orchestrator.git(executionContext, gitSymbolicRefSubcommandConstant, gitShortFlagConstant, gitHeadReferenceConstant)
	if branchError != nil {
		return HealthCheckError{Check: CheckBranch, Reason: reasonBranchUnknownConstant, Cause: branchError}
	}
	currentBranch := strings.TrimSpace(branchResult.StandardOutput)
	if currentBranch != orchestrator.options.Branch {
		return HealthCheckError{Check: CheckBranch, Reason: fmt.Sprintf(reasonWrongBranchTemplateConstant, currentBranch, orchestrator.options.Branch)}
	}
	return nil
}

// DiscardLocalAndReset fetches the remote and hard-resets the working tree to
// the remote sync branch. Uncommitted local work is lost.
func (orchestrator *Orchestrator) DiscardLocalAndReset(executionContext context.Context, token HealthyRepository) error {
	if len(token.repositoryPath) == 0 || token.repositoryPath != orchestrator.options.RepositoryPath {
		return ErrHealthCheckRequired
	}
	remote := orchestrator.options.Remote
	if _, fetchError := orchestrator.git(executionContext, gitFetchSubcommandConstant, remote); fetchError != nil {
		return fmt.Errorf(fetchFailedTemplateConstant, remote, fetchError)
	}
	target := fmt.Sprintf(gitRemoteBranchTemplateConstant, remote, token.branch)
	if _, resetError := orchestrator.git(executionContext, gitResetSubcommandConstant, gitHardFlagConstant, target); resetError != nil {
		return fmt.Errorf(resetFailedTemplateConstant, target, resetError)
	}
	orchestrator.logger.Info(pullCompletedMessageConstant,
		zap.String(logFieldRemoteConstant, remote),
		zap.String(logFieldBranchConstant, token.branch),
	)
	return nil
}

func (orchestrator *Orchestrator) git(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	return orchestrator.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: orchestrator.options.RepositoryPath,
	})
}
