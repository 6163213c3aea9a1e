package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestFormatChoiceUsage(testInstance *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{
			name:           "default_first_choice",
			defaultChoice:  "structured",
			choices:        []string{"structured", "console"},
			description:    "Log output format.",
			expectedOutput: "`<STRUCTURED|console>` Log output format.",
		},
		{
			name:           "default_second_choice",
			defaultChoice:  "info",
			choices:        []string{"debug", "info"},
			description:    "Log level.",
			expectedOutput: "`<debug|INFO>` Log level.",
		},
		{
			name:           "empty_description",
			defaultChoice:  "alpha",
			choices:        []string{"alpha", "beta"},
			expectedOutput: "`<ALPHA|beta>`",
		},
		{
			name:           "duplicates_and_whitespace_ignored",
			defaultChoice:  "beta",
			choices:        []string{" beta ", "beta", "Alpha", "alpha", ""},
			description:    "Select.",
			expectedOutput: "`<BETA|alpha>` Select.",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedOutput, FormatChoiceUsage(testCase.defaultChoice, testCase.choices, testCase.description))
		})
	}
}

func TestAddChoiceFlag(testInstance *testing.T) {
	testCases := []struct {
		name          string
		arguments     []string
		expectedValue string
		expectError   bool
	}{
		{name: "default_kept", arguments: []string{}, expectedValue: "info"},
		{name: "explicit_value", arguments: []string{"--level", "debug"}, expectedValue: "debug"},
		{name: "case_insensitive", arguments: []string{"--level=WARN"}, expectedValue: "warn"},
		{name: "rejects_unknown", arguments: []string{"--level", "loud"}, expectedValue: "info", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			command := &cobra.Command{}
			var level string
			AddChoiceFlag(command.Flags(), &level, "level", "info", []string{"debug", "info", "warn"}, "Log level.")

			parseError := command.ParseFlags(testCase.arguments)
			if testCase.expectError {
				require.Error(testInstance, parseError)
			} else {
				require.NoError(testInstance, parseError)
			}
			require.Equal(testInstance, testCase.expectedValue, level)
		})
	}
}
