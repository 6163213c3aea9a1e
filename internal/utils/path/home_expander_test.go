package pathutils_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/rmmsync/internal/utils/path"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	homeDirectory := filepath.Join(string(filepath.Separator), "home", "operator")
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) { return homeDirectory, nil })

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare_tilde", input: "~", expected: homeDirectory},
		{name: "tilde_slash", input: "~/mirror/scripts", expected: filepath.Join(homeDirectory, "mirror", "scripts")},
		{name: "absolute_unchanged", input: "/srv/mirror", expected: "/srv/mirror"},
		{name: "relative_unchanged", input: "mirror", expected: "mirror"},
		{name: "other_user_unchanged", input: "~other/mirror", expected: "~other/mirror"},
		{name: "whitespace_trimmed", input: "  ~/m  ", expected: filepath.Join(homeDirectory, "m")},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			expanded, expandError := expander.Expand(testCase.input)
			require.NoError(testInstance, expandError)
			require.Equal(testInstance, testCase.expected, expanded)
		})
	}
}

func TestHomeExpanderReportsLookupFailure(testInstance *testing.T) {
	lookupError := errors.New("no home")
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) { return "", lookupError })

	_, expandError := expander.Expand("~/mirror")
	require.ErrorIs(testInstance, expandError, lookupError)

	unchanged, unchangedError := expander.Expand("/srv/mirror")
	require.NoError(testInstance, unchangedError)
	require.Equal(testInstance, "/srv/mirror", unchanged)
}
