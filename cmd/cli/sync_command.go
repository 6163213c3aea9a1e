package cli

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/rmmsync/internal/cleanup"
	"github.com/temirov/rmmsync/internal/entity"
	"github.com/temirov/rmmsync/internal/execshell"
	"github.com/temirov/rmmsync/internal/mirror"
	"github.com/temirov/rmmsync/internal/preflight"
	"github.com/temirov/rmmsync/internal/reconcile"
	"github.com/temirov/rmmsync/internal/rmmapi"
	"github.com/temirov/rmmsync/internal/syncrun"
	"github.com/temirov/rmmsync/internal/ui"
	"github.com/temirov/rmmsync/internal/utils/flags"
	pathutils "github.com/temirov/rmmsync/internal/utils/path"
	"github.com/temirov/rmmsync/internal/vcs"
)

const (
	syncCommandUseConstant              = "sync"
	syncCommandShortDescriptionConstant = "Reconcile the RMM server with the local mirror"
	syncCommandLongDescriptionConstant  = "sync checks settings and connectivity, resets the mirror to its remote branch, writes local edits back to the RMM server, exports every script and snippet, removes obsolete files and pushes the result."
	unexpectedArgumentsMessageConstant  = "sync does not accept positional arguments"
	flagPullNameConstant                = "pull"
	flagPullDescriptionConstant         = "Discard local changes and reset the mirror to the remote branch before syncing."
	flagPushNameConstant                = "push"
	flagPushDescriptionConstant         = "Commit and push mirror changes after syncing."
	flagWritebackNameConstant           = "writeback"
	flagWritebackDescriptionConstant    = "Send local edits of scripts and snippets to the RMM server."
	flagWriteFilesNameConstant          = "write-files"
	flagWriteFilesDescriptionConstant   = "Write exported files and remove obsolete ones."
	flagDryRunNameConstant              = "dry-run"
	flagDryRunDescriptionConstant       = "Report what would change without touching the server, the mirror or git."
	flagBranchNameConstant              = "branch"
	flagBranchDescriptionConstant       = "Branch the mirror is pulled from and pushed to."
	flagRootNameConstant                = "root"
	flagRootDescriptionConstant         = "Mirror root directory (a git working tree)."
	missingSettingsHeaderConstant       = "The following settings are required:"
	missingSettingLineTemplateConstant  = "  %s\n"
	mirrorRootExpansionErrorTemplate    = "unable to resolve mirror root: %w"
	componentBuildErrorTemplateConstant = "unable to prepare %s: %w"
	componentStoreConstant              = "mirror store"
	componentClientConstant             = "api client"
	componentPreflightConstant          = "preflight checks"
	componentEngineConstant             = "reconcile engine"
	componentCleanerConstant            = "cleaner"
	componentExecutorConstant           = "git executor"
	componentRepositoryConstant         = "git repository"
	componentRunnerConstant             = "sync runner"
	dryRunOverridesMessageConstant      = "dry run: file writes and writeback disabled"
	syncConfiguredMessageConstant       = "sync configured"
	logFieldMirrorRootConstant          = "mirror_root"
	logFieldBaseURLConstant             = "base_url"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the loaded application configuration.
type ConfigurationProvider func() ApplicationConfiguration

// HumanReadableLoggingProvider reports whether console logging is active.
type HumanReadableLoggingProvider func() bool

// SyncCommandBuilder assembles the sync command.
type SyncCommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	HumanReadableLoggingProvider HumanReadableLoggingProvider
	ToggleRegistry               *flags.ToggleRegistry
	// Nil collaborators below select the real network and process implementations.
	HTTPClient    *http.Client
	Dialer        preflight.Dialer
	CommandRunner execshell.CommandRunner
	HomeExpander  *pathutils.HomeExpander
}

type syncFlagValues struct {
	pull       bool
	push       bool
	writeback  bool
	writeFiles bool
	dryRun     bool
	branch     string
	root       string
}

// Build constructs the sync command.
func (builder *SyncCommandBuilder) Build() (*cobra.Command, error) {
	flagValues := &syncFlagValues{}

	command := &cobra.Command{
		Use:   syncCommandUseConstant,
		Short: syncCommandShortDescriptionConstant,
		Long:  syncCommandLongDescriptionConstant,
		RunE: func(command *cobra.Command, arguments []string) error {
			if len(arguments) > 0 {
				return errUnexpectedArguments
			}
			return builder.run(command, flagValues)
		},
	}

	toggleRegistry := builder.ToggleRegistry
	if toggleRegistry == nil {
		toggleRegistry = flags.NewToggleRegistry()
	}
	toggleRegistry.Add(command.Flags(), &flagValues.pull, flagPullNameConstant, true, flagPullDescriptionConstant)
	toggleRegistry.Add(command.Flags(), &flagValues.push, flagPushNameConstant, true, flagPushDescriptionConstant)
	toggleRegistry.Add(command.Flags(), &flagValues.writeback, flagWritebackNameConstant, true, flagWritebackDescriptionConstant)
	toggleRegistry.Add(command.Flags(), &flagValues.writeFiles, flagWriteFilesNameConstant, true, flagWriteFilesDescriptionConstant)
	command.Flags().BoolVar(&flagValues.dryRun, flagDryRunNameConstant, false, flagDryRunDescriptionConstant)
	command.Flags().StringVar(&flagValues.branch, flagBranchNameConstant, "", flagBranchDescriptionConstant)
	command.Flags().StringVar(&flagValues.root, flagRootNameConstant, "", flagRootDescriptionConstant)

	return command, nil
}

func (builder *SyncCommandBuilder) run(command *cobra.Command, flagValues *syncFlagValues) error {
	logger := builder.resolveLogger()
	configuration := builder.resolveConfiguration(command, flagValues)

	expandedRoot, expansionError := builder.resolveHomeExpander().Expand(configuration.Mirror.Root)
	if expansionError != nil {
		return fmt.Errorf(mirrorRootExpansionErrorTemplate, expansionError)
	}
	configuration.Mirror.Root = expandedRoot

	if settingsError := preflight.CheckSettings(logger, configuration.RequiredSettings()); settingsError != nil {
		var missingError preflight.MissingSettingsError
		if errors.As(settingsError, &missingError) {
			errorWriter := command.ErrOrStderr()
			fmt.Fprintln(errorWriter, missingSettingsHeaderConstant)
			for _, line := range missingError.Descriptions() {
				fmt.Fprintf(errorWriter, missingSettingLineTemplateConstant, line)
			}
		}
		return syncrun.FatalError{Stage: syncrun.StagePreflight, Cause: settingsError}
	}

	runner, runnerError := builder.buildRunner(logger, configuration)
	if runnerError != nil {
		return runnerError
	}

	summary, runError := runner.Run(command.Context())
	if runError != nil && syncrun.IsFatal(runError) {
		return runError
	}
	if reportError := syncrun.WriteReport(command.OutOrStdout(), summary); reportError != nil {
		return reportError
	}
	return runError
}

// resolveConfiguration overlays command flags on the loaded configuration.
// A dry run never writes files and never sends updates.
func (builder *SyncCommandBuilder) resolveConfiguration(command *cobra.Command, flagValues *syncFlagValues) ApplicationConfiguration {
	var configuration ApplicationConfiguration
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	commandFlags := command.Flags()
	if commandFlags.Changed(flagPullNameConstant) {
		configuration.Sync.Pull = flagValues.pull
	}
	if commandFlags.Changed(flagPushNameConstant) {
		configuration.Sync.Push = flagValues.push
	}
	if commandFlags.Changed(flagWritebackNameConstant) {
		configuration.Sync.Writeback = flagValues.writeback
	}
	if commandFlags.Changed(flagWriteFilesNameConstant) {
		configuration.Sync.WriteFiles = flagValues.writeFiles
	}
	if commandFlags.Changed(flagDryRunNameConstant) {
		configuration.Sync.DryRun = flagValues.dryRun
	}
	if commandFlags.Changed(flagBranchNameConstant) {
		configuration.Git.Branch = strings.TrimSpace(flagValues.branch)
	}
	if commandFlags.Changed(flagRootNameConstant) {
		configuration.Mirror.Root = strings.TrimSpace(flagValues.root)
	}

	if configuration.Sync.DryRun {
		configuration.Sync.WriteFiles = false
		configuration.Sync.Writeback = false
	}
	return configuration
}

func (builder *SyncCommandBuilder) buildRunner(logger *zap.Logger, configuration ApplicationConfiguration) (*syncrun.Runner, error) {
	descriptors := entity.Descriptors()
	syncConfiguration := configuration.Sync
	if syncConfiguration.DryRun {
		logger.Info(dryRunOverridesMessageConstant)
	}

	store, storeError := mirror.NewStore(mirror.Options{
		Root:   configuration.Mirror.Root,
		DryRun: syncConfiguration.DryRun || !syncConfiguration.WriteFiles,
		Logger: logger,
	})
	if storeError != nil {
		return nil, fmt.Errorf(componentBuildErrorTemplateConstant, componentStoreConstant, storeError)
	}

	client, clientError := rmmapi.NewClient(rmmapi.Options{
		BaseURL: configuration.API.BaseURL,
		APIKey:  configuration.API.Key,
		Timeouts: rmmapi.Timeouts{
			Read:  configuration.API.ReadTimeout,
			Write: configuration.API.WriteTimeout,
			Probe: configuration.API.ProbeTimeout,
		},
		HTTPClient: builder.HTTPClient,
		Logger:     logger,
	})
	if clientError != nil {
		return nil, fmt.Errorf(componentBuildErrorTemplateConstant, componentClientConstant, clientError)
	}
	logger.Debug(syncConfiguredMessageConstant,
		zap.String(logFieldBaseURLConstant, client.BaseURL()),
		zap.String(logFieldMirrorRootConstant, store.Root()),
	)

	checker, checkerError := preflight.NewChecker(
		preflight.Dependencies{Dialer: builder.resolveDialer(), Verifier: client, Layout: store, Logger: logger},
		preflight.Options{
			BaseURL:      client.BaseURL(),
			APIKey:       configuration.API.Key,
			ProbeTimeout: client.Timeouts().Probe,
			EnsureLayout: syncConfiguration.WriteFiles,
			Descriptors:  descriptors,
		},
	)
	if checkerError != nil {
		return nil, fmt.Errorf(componentBuildErrorTemplateConstant, componentPreflightConstant, checkerError)
	}

	engine, engineError := reconcile.NewEngine(
		reconcile.EngineDependencies{Store: store, Remote: client, Logger: logger},
		reconcile.EngineOptions{WritebackEnabled: syncConfiguration.Writeback},
	)
	if engineError != nil {
		return nil, fmt.Errorf(componentBuildErrorTemplateConstant, componentEngineConstant, engineError)
	}

	cleaner, cleanerError := cleanup.NewCleaner(
		cleanup.Dependencies{Store: store, Logger: logger},
		cleanup.Options{KeepPatterns: configuration.Mirror.Keep},
	)
	if cleanerError != nil {
		return nil, fmt.Errorf(componentBuildErrorTemplateConstant, componentCleanerConstant, cleanerError)
	}

	dependencies := syncrun.Dependencies{
		Preflight:  checker,
		Reconciler: engine,
		Cleaner:    cleaner,
		Logger:     logger,
	}
	if syncConfiguration.Pull || syncConfiguration.Push {
		repository, repositoryError := builder.buildRepository(logger, configuration)
		if repositoryError != nil {
			return nil, repositoryError
		}
		dependencies.Repository = repository
	}

	runner, runnerError := syncrun.NewRunner(dependencies, syncrun.Options{
		PullEnabled:       syncConfiguration.Pull,
		PushEnabled:       syncConfiguration.Push,
		WritebackEnabled:  syncConfiguration.Writeback,
		WriteFilesEnabled: syncConfiguration.WriteFiles,
		DryRun:            syncConfiguration.DryRun,
		Descriptors:       descriptors,
	})
	if runnerError != nil {
		return nil, fmt.Errorf(componentBuildErrorTemplateConstant, componentRunnerConstant, runnerError)
	}
	return runner, nil
}

func (builder *SyncCommandBuilder) buildRepository(logger *zap.Logger, configuration ApplicationConfiguration) (*vcs.Orchestrator, error) {
	var executorOptions []execshell.ShellExecutorOption
	if builder.humanReadableLoggingEnabled() {
		executorOptions = append(executorOptions, execshell.WithCommandEventObserver(ui.NewConsoleCommandEventLogger(logger)))
	}
	executor, executorError := execshell.NewShellExecutor(logger, builder.resolveCommandRunner(), executorOptions...)
	if executorError != nil {
		return nil, fmt.Errorf(componentBuildErrorTemplateConstant, componentExecutorConstant, executorError)
	}

	orchestrator, orchestratorError := vcs.NewOrchestrator(
		vcs.Dependencies{Executor: executor, Logger: logger},
		vcs.Options{
			RepositoryPath:      configuration.Mirror.Root,
			Branch:              configuration.Git.Branch,
			Remote:              configuration.Git.Remote,
			FallbackBranch:      configuration.Git.FallbackBranch,
			ExcludedFromMessage: configuration.Git.ExcludedFromMessage,
		},
	)
	if orchestratorError != nil {
		return nil, fmt.Errorf(componentBuildErrorTemplateConstant, componentRepositoryConstant, orchestratorError)
	}
	return orchestrator, nil
}

func (builder *SyncCommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *SyncCommandBuilder) humanReadableLoggingEnabled() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}

func (builder *SyncCommandBuilder) resolveDialer() preflight.Dialer {
	if builder.Dialer != nil {
		return builder.Dialer
	}
	return &net.Dialer{}
}

func (builder *SyncCommandBuilder) resolveCommandRunner() execshell.CommandRunner {
	if builder.CommandRunner != nil {
		return builder.CommandRunner
	}
	return execshell.NewOSCommandRunner()
}

func (builder *SyncCommandBuilder) resolveHomeExpander() *pathutils.HomeExpander {
	if builder.HomeExpander != nil {
		return builder.HomeExpander
	}
	return pathutils.NewHomeExpander()
}
