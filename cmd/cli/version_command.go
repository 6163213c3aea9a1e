package cli

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

const (
	versionCommandUseConstant              = "version"
	versionCommandShortDescriptionConstant = "Print the rmmsync version"
	versionOutputTemplateConstant          = "rmmsync version: %s\n"
	developmentVersionConstant             = "dev"
	develBuildVersionConstant              = "(devel)"
)

// Version is stamped at build time with -ldflags "-X github.com/temirov/rmmsync/cmd/cli.Version=...".
var Version = developmentVersionConstant

// BuildInfoReader returns module build information.
type BuildInfoReader func() (*debug.BuildInfo, bool)

// VersionCommandBuilder assembles the version command.
type VersionCommandBuilder struct {
	BuildInfoReader BuildInfoReader
}

// Build constructs the version command.
func (builder *VersionCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   versionCommandUseConstant,
		Short: versionCommandShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			_, writeError := fmt.Fprintf(command.OutOrStdout(), versionOutputTemplateConstant, builder.resolveVersion())
			return writeError
		},
	}
	return command, nil
}

// resolveVersion prefers the stamped version and falls back to the module
// version recorded by the go toolchain.
func (builder *VersionCommandBuilder) resolveVersion() string {
	if strings.TrimSpace(Version) != developmentVersionConstant && len(strings.TrimSpace(Version)) > 0 {
		return strings.TrimSpace(Version)
	}
	reader := builder.BuildInfoReader
	if reader == nil {
		reader = debug.ReadBuildInfo
	}
	buildInfo, available := reader()
	if !available || buildInfo == nil {
		return developmentVersionConstant
	}
	moduleVersion := strings.TrimSpace(buildInfo.Main.Version)
	if len(moduleVersion) == 0 || moduleVersion == develBuildVersionConstant {
		return developmentVersionConstant
	}
	return moduleVersion
}
