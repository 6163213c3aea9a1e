package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	configCommandUseConstant              = "config"
	configCommandShortDescriptionConstant = "Print the effective configuration"
	configCommandLongDescriptionConstant  = "config prints the configuration after defaults, files, environment variables and flags are merged. The API key is obfuscated."
	configSourceTemplateConstant          = "# source: %s\n"
	configSourceEmbeddedConstant          = "built-in defaults and environment"
	configEncodeErrorTemplateConstant     = "unable to render configuration: %w"
)

// ConfigurationFileProvider reports the configuration file that was loaded, if any.
type ConfigurationFileProvider func() string

// ConfigCommandBuilder assembles the config command.
type ConfigCommandBuilder struct {
	ConfigurationProvider     ConfigurationProvider
	ConfigurationFileProvider ConfigurationFileProvider
}

// Build constructs the config command.
func (builder *ConfigCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   configCommandUseConstant,
		Short: configCommandShortDescriptionConstant,
		Long:  configCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *ConfigCommandBuilder) run(command *cobra.Command, arguments []string) error {
	var configuration ApplicationConfiguration
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	source := configSourceEmbeddedConstant
	if builder.ConfigurationFileProvider != nil {
		if configurationFile := builder.ConfigurationFileProvider(); len(configurationFile) > 0 {
			source = configurationFile
		}
	}

	rendered, encodeError := yaml.Marshal(configuration.Redacted())
	if encodeError != nil {
		return fmt.Errorf(configEncodeErrorTemplateConstant, encodeError)
	}

	outputWriter := command.OutOrStdout()
	fmt.Fprintf(outputWriter, configSourceTemplateConstant, source)
	_, writeError := outputWriter.Write(rendered)
	return writeError
}
