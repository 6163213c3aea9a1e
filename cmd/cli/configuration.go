package cli

import (
	"time"

	"github.com/temirov/rmmsync/internal/preflight"
	"github.com/temirov/rmmsync/internal/rmmapi"
)

const (
	baseURLConfigKeyConstant        = "api.base_url"
	apiKeyConfigKeyConstant         = "api.key"
	mirrorRootConfigKeyConstant     = "mirror.root"
	gitBranchConfigKeyConstant      = "git.branch"
	legacyBaseURLEnvironmentName    = "DOMAIN"
	legacyAPIKeyEnvironmentName     = "API_TOKEN"
	legacyMirrorRootEnvironmentName = "SCRIPTPATH"
	baseURLSettingDescription       = "The URL of your RMM API (e.g. api-rmm.example.com)."
	apiKeySettingDescription        = "An API key for a user allowed to read and write scripts."
	mirrorRootSettingDescription    = "The local git working tree that holds the mirror."
	gitBranchSettingDescription     = "The branch the mirror is pulled from and pushed to."
	environmentAliasSeparator       = " or "
)

// ApplicationConfiguration describes the persisted configuration for the CLI.
type ApplicationConfiguration struct {
	Common CommonConfiguration `mapstructure:"common" yaml:"common"`
	API    APIConfiguration    `mapstructure:"api" yaml:"api"`
	Mirror MirrorConfiguration `mapstructure:"mirror" yaml:"mirror"`
	Git    GitConfiguration    `mapstructure:"git" yaml:"git"`
	Sync   SyncConfiguration   `mapstructure:"sync" yaml:"sync"`
}

// CommonConfiguration stores logging configuration shared across commands.
type CommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	// LogFile adds a size-rotated JSON log; empty disables it.
	LogFile       string `mapstructure:"log_file" yaml:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb" yaml:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups" yaml:"log_max_backups"`
}

// APIConfiguration locates the remote script store.
type APIConfiguration struct {
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	Key          string        `mapstructure:"key" yaml:"key"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
}

// MirrorConfiguration locates the on-disk mirror.
type MirrorConfiguration struct {
	Root string `mapstructure:"root" yaml:"root"`
	// Keep lists globs of mirror files cleanup never deletes.
	Keep []string `mapstructure:"keep" yaml:"keep"`
}

// GitConfiguration describes the repository the mirror lives in.
type GitConfiguration struct {
	Branch              string   `mapstructure:"branch" yaml:"branch"`
	Remote              string   `mapstructure:"remote" yaml:"remote"`
	FallbackBranch      string   `mapstructure:"fallback_branch" yaml:"fallback_branch"`
	ExcludedFromMessage []string `mapstructure:"excluded_from_message" yaml:"excluded_from_message"`
}

// SyncConfiguration toggles the stages of a sync run.
type SyncConfiguration struct {
	Pull       bool `mapstructure:"pull" yaml:"pull"`
	Push       bool `mapstructure:"push" yaml:"push"`
	Writeback  bool `mapstructure:"writeback" yaml:"writeback"`
	WriteFiles bool `mapstructure:"write_files" yaml:"write_files"`
	DryRun     bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// Redacted returns a copy safe to print: the API key is obfuscated.
func (configuration ApplicationConfiguration) Redacted() ApplicationConfiguration {
	redacted := configuration
	redacted.API.Key = rmmapi.ObfuscateKey(configuration.API.Key)
	redacted.Mirror.Keep = append([]string{}, configuration.Mirror.Keep...)
	redacted.Git.ExcludedFromMessage = append([]string{}, configuration.Git.ExcludedFromMessage...)
	return redacted
}

// RequiredSettings lists the settings a sync run cannot start without. The
// branch is only required when git is used.
func (configuration ApplicationConfiguration) RequiredSettings() []preflight.Setting {
	settings := []preflight.Setting{
		{Key: baseURLConfigKeyConstant, Environment: environmentNames(baseURLConfigKeyConstant, legacyBaseURLEnvironmentName), Description: baseURLSettingDescription, Value: configuration.API.BaseURL},
		{Key: apiKeyConfigKeyConstant, Environment: environmentNames(apiKeyConfigKeyConstant, legacyAPIKeyEnvironmentName), Description: apiKeySettingDescription, Value: configuration.API.Key},
		{Key: mirrorRootConfigKeyConstant, Environment: environmentNames(mirrorRootConfigKeyConstant, legacyMirrorRootEnvironmentName), Description: mirrorRootSettingDescription, Value: configuration.Mirror.Root},
	}
	if configuration.Sync.Pull || configuration.Sync.Push {
		settings = append(settings, preflight.Setting{
			Key:         gitBranchConfigKeyConstant,
			Environment: prefixedEnvironmentName(gitBranchConfigKeyConstant),
			Description: gitBranchSettingDescription,
			Value:       configuration.Git.Branch,
		})
	}
	return settings
}

func environmentNames(configurationKey string, legacyName string) string {
	return prefixedEnvironmentName(configurationKey) + environmentAliasSeparator + legacyName
}
