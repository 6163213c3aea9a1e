package syncrun

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/rmmsync/internal/cleanup"
	"github.com/temirov/rmmsync/internal/entity"
	"github.com/temirov/rmmsync/internal/reconcile"
	"github.com/temirov/rmmsync/internal/vcs"
)

// Stage names used in logs and FatalError.
const (
	StagePreflight = "preflight"
	StageHealth    = "health_check"
	StagePull      = "pull"
	StageWriteback = "writeback"
	StageExport    = "export"
	StageCleanup   = "cleanup"
	StagePush      = "push"
)

const (
	preflightNotConfiguredMessageConstant  = "preflight checks not configured"
	reconcilerNotConfiguredMessageConstant = "reconciler not configured"
	cleanerNotConfiguredMessageConstant    = "cleaner not configured"
	repositoryRequiredMessageConstant      = "a repository is required when pull or push is enabled"
	fatalErrorTemplateConstant             = "%s failed: %v"
	writebackStageFailedTemplateConstant   = "writeback interrupted: %w"
	exportStageFailedTemplateConstant      = "export interrupted: %w"
	cleanupStageFailedTemplateConstant     = "cleanup interrupted: %w"
	runStartedMessageConstant              = "sync run started"
	stageStartedMessageConstant            = "stage started"
	stageSkippedMessageConstant            = "stage disabled"
	healthSkippedMessageConstant           = "pull and push disabled, git health check skipped"
	dryRunPullMessageConstant              = "[dry-run] would discard local changes and reset to the remote branch"
	dryRunPushMessageConstant              = "[dry-run] would commit and push mirror changes"
	pushFailedMessageConstant              = "push failed, mirror changes stay local"
	runCompletedMessageConstant            = "sync run finished"
	logFieldStageConstant                  = "stage"
	logFieldPullConstant                   = "pull"
	logFieldPushConstant                   = "push"
	logFieldWritebackConstant              = "writeback"
	logFieldWriteFilesConstant             = "write_files"
	logFieldDryRunConstant                 = "dry_run"
	logFieldBranchConstant                 = "branch"
	logFieldFailuresConstant               = "failures"
)

var (
	// ErrPreflightNotConfigured indicates the runner was created without preflight checks.
	ErrPreflightNotConfigured = errors.New(preflightNotConfiguredMessageConstant)
	// ErrReconcilerNotConfigured indicates the runner was created without a reconciler.
	ErrReconcilerNotConfigured = errors.New(reconcilerNotConfiguredMessageConstant)
	// ErrCleanerNotConfigured indicates the runner was created without a cleaner.
	ErrCleanerNotConfigured = errors.New(cleanerNotConfiguredMessageConstant)
	// ErrRepositoryRequired indicates pull or push was enabled without a repository.
	ErrRepositoryRequired = errors.New(repositoryRequiredMessageConstant)
)

// FatalError marks a failure that aborts the run before the summary is produced.
type FatalError struct {
	Stage string
	Cause error
}

// Error names the failed stage.
func (fatalError FatalError) Error() string {
	return fmt.Sprintf(fatalErrorTemplateConstant, fatalError.Stage, fatalError.Cause)
}

// Unwrap exposes the underlying cause.
func (fatalError FatalError) Unwrap() error {
	return fatalError.Cause
}

// IsFatal reports whether err carries a FatalError.
func IsFatal(err error) bool {
	var fatalError FatalError
	return errors.As(err, &fatalError)
}

// PreflightChecker gates the run.
type PreflightChecker interface {
	Run(executionContext context.Context) error
}

// Repository is the git side of the run.
type Repository interface {
	HealthCheck(executionContext context.Context) (vcs.HealthyRepository, error)
	DiscardLocalAndReset(executionContext context.Context, token vcs.HealthyRepository) error
	Push(executionContext context.Context) (vcs.PushResult, error)
}

// Reconciler moves content between the remote store and the mirror.
type Reconciler interface {
	Writeback(executionContext context.Context, descriptors []entity.KindDescriptor) (reconcile.WritebackSummary, error)
	Export(executionContext context.Context, descriptors []entity.KindDescriptor) (reconcile.ExportResult, error)
}

// Cleaner removes obsolete mirror files.
type Cleaner interface {
	Clean(executionContext context.Context, roots []string, membership cleanup.Membership) (cleanup.Summary, error)
}

// Dependencies wires the stages into a Runner.
type Dependencies struct {
	Preflight  PreflightChecker
	Repository Repository
	Reconciler Reconciler
	Cleaner    Cleaner
	Logger     *zap.Logger
}

// Options select which stages run.
type Options struct {
	PullEnabled       bool
	PushEnabled       bool
	WritebackEnabled  bool
	WriteFilesEnabled bool
	// DryRun skips pull and push; the mirror store and reconciler are
	// expected to be configured to simulate their writes as well.
	DryRun      bool
	Descriptors []entity.KindDescriptor
}

// Runner executes one sync run.
type Runner struct {
	preflight  PreflightChecker
	repository Repository
	reconciler Reconciler
	cleaner    Cleaner
	logger     *zap.Logger
	options    Options
}

// NewRunner validates dependencies against the enabled stages.
func NewRunner(dependencies Dependencies, options Options) (*Runner, error) {
	if dependencies.Preflight == nil {
		return nil, ErrPreflightNotConfigured
	}
	if dependencies.Reconciler == nil {
		return nil, ErrReconcilerNotConfigured
	}
	if dependencies.Cleaner == nil {
		return nil, ErrCleanerNotConfigured
	}
	if (options.PullEnabled || options.PushEnabled) && dependencies.Repository == nil {
		return nil, ErrRepositoryRequired
	}
	if len(options.Descriptors) == 0 {
		options.Descriptors = entity.Descriptors()
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		preflight:  dependencies.Preflight,
		repository: dependencies.Repository,
		reconciler: dependencies.Reconciler,
		cleaner:    dependencies.Cleaner,
		logger:     logger,
		options:    options,
	}, nil
}

// Run executes preflight, health check, pull, writeback, export, cleanup and
// push in that order. A FatalError stops the run; per-item failures are
// counted in the returned Summary.
func (runner *Runner) Run(executionContext context.Context) (Summary, error) {
	summary := Summary{DryRun: runner.options.DryRun, WritebackEnabled: runner.options.WritebackEnabled, WriteFilesEnabled: runner.options.WriteFilesEnabled}
	runner.logger.Info(runStartedMessageConstant,
		zap.Bool(logFieldPullConstant, runner.options.PullEnabled),
		zap.Bool(logFieldPushConstant, runner.options.PushEnabled),
		zap.Bool(logFieldWritebackConstant, runner.options.WritebackEnabled),
		zap.Bool(logFieldWriteFilesConstant, runner.options.WriteFilesEnabled),
		zap.Bool(logFieldDryRunConstant, runner.options.DryRun),
	)

	runner.stageStarted(StagePreflight)
	if preflightError := runner.preflight.Run(executionContext); preflightError != nil {
		return summary, FatalError{Stage: StagePreflight, Cause: preflightError}
	}

	token, healthError := runner.checkRepository(executionContext)
	if healthError != nil {
		return summary, healthError
	}

	if pullError := runner.pull(executionContext, token, &summary); pullError != nil {
		return summary, pullError
	}

	runner.stageStarted(StageWriteback)
	writebackSummary, writebackError := runner.reconciler.Writeback(executionContext, runner.options.Descriptors)
	summary.Writeback = writebackSummary
	if writebackError != nil {
		return summary, fmt.Errorf(writebackStageFailedTemplateConstant, writebackError)
	}

	runner.stageStarted(StageExport)
	exportResult, exportError := runner.reconciler.Export(executionContext, runner.options.Descriptors)
	summary.Export = exportResult.Summary
	if exportError != nil {
		return summary, fmt.Errorf(exportStageFailedTemplateConstant, exportError)
	}

	runner.stageStarted(StageCleanup)
	cleanupSummary, cleanupError := runner.cleaner.Clean(executionContext, runner.roots(), exportResult.Set)
	summary.Cleanup = cleanupSummary
	if cleanupError != nil {
		return summary, fmt.Errorf(cleanupStageFailedTemplateConstant, cleanupError)
	}

	if pushError := runner.push(executionContext, &summary); pushError != nil {
		return summary, pushError
	}

	runner.logger.Info(runCompletedMessageConstant, zap.Int(logFieldFailuresConstant, summary.Failures()))
	return summary, nil
}

func (runner *Runner) checkRepository(executionContext context.Context) (vcs.HealthyRepository, error) {
	if !runner.options.PullEnabled && !runner.options.PushEnabled {
		runner.logger.Info(healthSkippedMessageConstant)
		return vcs.HealthyRepository{}, nil
	}
	runner.stageStarted(StageHealth)
	token, healthError := runner.repository.HealthCheck(executionContext)
	if healthError != nil {
		return vcs.HealthyRepository{}, FatalError{Stage: StageHealth, Cause: healthError}
	}
	return token, nil
}

func (runner *Runner) pull(executionContext context.Context, token vcs.HealthyRepository, summary *Summary) error {
	if !runner.options.PullEnabled {
		runner.logger.Info(stageSkippedMessageConstant, zap.String(logFieldStageConstant, StagePull))
		return nil
	}
	if runner.options.DryRun {
		runner.logger.Info(dryRunPullMessageConstant, zap.String(logFieldBranchConstant, token.Branch()))
		return nil
	}
	runner.stageStarted(StagePull)
	if pullError := runner.repository.DiscardLocalAndReset(executionContext, token); pullError != nil {
		return FatalError{Stage: StagePull, Cause: pullError}
	}
	summary.Pulled = true
	return nil
}

func (runner *Runner) push(executionContext context.Context, summary *Summary) error {
	if !runner.options.PushEnabled {
		runner.logger.Info(stageSkippedMessageConstant, zap.String(logFieldStageConstant, StagePush))
		return nil
	}
	if runner.options.DryRun {
		runner.logger.Info(dryRunPushMessageConstant)
		return nil
	}
	runner.stageStarted(StagePush)
	pushResult, pushError := runner.repository.Push(executionContext)
	summary.Push = pushResult
	if pushError == nil {
		summary.Pushed = pushResult.Committed
		return nil
	}
	if errors.Is(pushError, vcs.ErrRebaseInProgress) {
		return FatalError{Stage: StagePush, Cause: pushError}
	}
	runner.logger.Error(pushFailedMessageConstant, zap.Error(pushError))
	summary.PushFailure = pushError.Error()
	return nil
}

func (runner *Runner) roots() []string {
	var roots []string
	for _, descriptor := range runner.options.Descriptors {
		roots = append(roots, descriptor.Roots()...)
	}
	return roots
}

func (runner *Runner) stageStarted(stage string) {
	runner.logger.Debug(stageStartedMessageConstant, zap.String(logFieldStageConstant, stage))
}
