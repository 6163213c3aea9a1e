package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/rmmsync/internal/utils"
	"github.com/temirov/rmmsync/internal/utils/flags"
	pathutils "github.com/temirov/rmmsync/internal/utils/path"
)

const (
	applicationNameConstant                 = "rmmsync"
	applicationShortDescriptionConstant     = "Mirror RMM scripts and snippets into a git repository"
	applicationLongDescriptionConstant      = "rmmsync keeps the scripts and snippets of an RMM server in sync with a folder tree under git: local edits are written back, the remote state is exported, obsolete files are removed and the result is committed."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	environmentFileFlagNameConstant         = "env-file"
	environmentFileFlagUsageConstant        = "Path to a dotenv file loaded before configuration; .env is read when present."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format."
	commonLogLevelConfigKeyConstant         = "common.log_level"
	commonLogFormatConfigKeyConstant        = "common.log_format"
	environmentPrefixConstant               = "RMMSYNC"
	environmentKeySeparatorConstant         = "_"
	configurationKeySeparatorConstant       = "."
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	defaultEnvironmentFileConstant          = ".env"
	defaultConfigurationSearchPathConstant  = "."
	configurationInitializedMessageConstant = "configuration initialized"
	environmentFileLoadedMessageConstant    = "environment file loaded"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	environmentFileFieldConstant            = "env_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	environmentFileErrorTemplateConstant    = "unable to load environment file %s: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
)

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand             *cobra.Command
	configurationLoader     *utils.ConfigurationLoader
	loggerFactory           *utils.LoggerFactory
	logger                  *zap.Logger
	configuration           ApplicationConfiguration
	configurationMetadata   utils.LoadedConfiguration
	toggleRegistry          *flags.ToggleRegistry
	configurationFilePath   string
	environmentFilePath     string
	logLevelFlagValue       string
	logFormatFlagValue      string
	environmentFileResolved string
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	return newApplication(utils.NewLoggerFactory(), SyncCommandBuilder{})
}

func newApplication(loggerFactory *utils.LoggerFactory, syncBuilder SyncCommandBuilder) *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())
	configurationLoader.AddEnvironmentAlias(baseURLConfigKeyConstant, legacyBaseURLEnvironmentName)
	configurationLoader.AddEnvironmentAlias(apiKeyConfigKeyConstant, legacyAPIKeyEnvironmentName)
	configurationLoader.AddEnvironmentAlias(mirrorRootConfigKeyConstant, legacyMirrorRootEnvironmentName)

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       loggerFactory,
		logger:              zap.NewNop(),
		toggleRegistry:      flags.NewToggleRegistry(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.environmentFilePath, environmentFileFlagNameConstant, defaultEnvironmentFileConstant, environmentFileFlagUsageConstant)
	flags.AddChoiceFlag(cobraCommand.PersistentFlags(), &application.logLevelFlagValue, logLevelFlagNameConstant, string(utils.LogLevelInfo), utils.SupportedLogLevels(), logLevelFlagUsageConstant)
	flags.AddChoiceFlag(cobraCommand.PersistentFlags(), &application.logFormatFlagValue, logFormatFlagNameConstant, string(utils.LogFormatConsole), utils.SupportedLogFormats(), logFormatFlagUsageConstant)

	syncBuilder.LoggerProvider = func() *zap.Logger {
		return application.logger
	}
	syncBuilder.ConfigurationProvider = func() ApplicationConfiguration {
		return application.configuration
	}
	syncBuilder.HumanReadableLoggingProvider = application.humanReadableLoggingEnabled
	syncBuilder.ToggleRegistry = application.toggleRegistry
	syncCommand, syncBuildError := syncBuilder.Build()
	if syncBuildError == nil {
		cobraCommand.AddCommand(syncCommand)
	}

	configBuilder := ConfigCommandBuilder{
		ConfigurationProvider: func() ApplicationConfiguration {
			return application.configuration
		},
		ConfigurationFileProvider: func() string {
			return application.configurationMetadata.ConfigFileUsed
		},
	}
	configCommand, configBuildError := configBuilder.Build()
	if configBuildError == nil {
		cobraCommand.AddCommand(configCommand)
	}

	versionBuilder := VersionCommandBuilder{}
	versionCommand, versionBuildError := versionBuilder.Build()
	if versionBuildError == nil {
		cobraCommand.AddCommand(versionCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the command hierarchy against the process arguments.
func (application *Application) Execute() error {
	return application.ExecuteWithArguments(os.Args[1:])
}

// ExecuteWithArguments runs the command hierarchy against the provided
// arguments and flushes the logger afterwards.
func (application *Application) ExecuteWithArguments(arguments []string) error {
	application.rootCommand.SetArgs(application.toggleRegistry.Normalize(arguments))
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	if environmentError := application.loadEnvironmentFile(command); environmentError != nil {
		return environmentError
	}

	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	loggerFactory, loggerFactoryError := application.resolveLoggerFactory()
	if loggerFactoryError != nil {
		return loggerFactoryError
	}

	logger, loggerCreationError := loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	if len(application.environmentFileResolved) > 0 {
		application.logger.Debug(environmentFileLoadedMessageConstant, zap.String(environmentFileFieldConstant, application.environmentFileResolved))
	}
	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

// loadEnvironmentFile reads a dotenv file into the process environment without
// overriding variables that are already set. An explicitly requested file must
// exist; the default file is optional.
func (application *Application) loadEnvironmentFile(command *cobra.Command) error {
	environmentFilePath := strings.TrimSpace(application.environmentFilePath)
	if len(environmentFilePath) == 0 {
		return nil
	}
	explicit := application.persistentFlagChanged(command, environmentFileFlagNameConstant)
	if !explicit {
		if _, statError := os.Stat(environmentFilePath); statError != nil {
			return nil
		}
	}
	if loadError := godotenv.Load(environmentFilePath); loadError != nil {
		return fmt.Errorf(environmentFileErrorTemplateConstant, environmentFilePath, loadError)
	}
	application.environmentFileResolved = environmentFilePath
	return nil
}

func (application *Application) resolveLoggerFactory() (*utils.LoggerFactory, error) {
	commonConfiguration := application.configuration.Common
	if len(strings.TrimSpace(commonConfiguration.LogFile)) == 0 {
		return application.loggerFactory, nil
	}
	logFilePath, expansionError := pathutils.NewHomeExpander().Expand(commonConfiguration.LogFile)
	if expansionError != nil {
		return nil, fmt.Errorf(loggerCreationErrorTemplateConstant, expansionError)
	}
	return application.loggerFactory.WithRotatingFile(utils.RotatingFileOptions{
		Path:       logFilePath,
		MaxSizeMB:  commonConfiguration.LogMaxSizeMB,
		MaxBackups: commonConfiguration.LogMaxBackups,
	}), nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}

func prefixedEnvironmentName(configurationKey string) string {
	return environmentPrefixConstant + environmentKeySeparatorConstant +
		strings.ToUpper(strings.ReplaceAll(configurationKey, configurationKeySeparatorConstant, environmentKeySeparatorConstant))
}
