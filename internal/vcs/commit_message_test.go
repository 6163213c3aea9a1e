package vcs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rmmsync/internal/vcs"
)

func TestGenerateCommitMessage(testInstance *testing.T) {
	testCases := []struct {
		name     string
		changes  vcs.ChangeSet
		expected string
	}{
		{
			name:     "truncates_after_five_names",
			changes:  vcs.ChangeSet{Created: []string{"a", "b", "c", "d", "e", "f"}},
			expected: "created 6: a, b, c, d, e...",
		},
		{
			name:     "exactly_five_names",
			changes:  vcs.ChangeSet{Modified: []string{"a", "b", "c", "d", "e"}},
			expected: "modified 5: a, b, c, d, e",
		},
		{
			name:     "empty_falls_back",
			changes:  vcs.ChangeSet{},
			expected: "Minor update",
		},
		{
			name: "joins_categories_in_fixed_order",
			changes: vcs.ChangeSet{
				Renamed:  []string{"x -> y"},
				Deleted:  []string{"gone"},
				Modified: []string{"m"},
				Created:  []string{"n"},
			},
			expected: "created 1: n; modified 1: m; deleted 1: gone; renamed 1: x -> y",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, vcs.GenerateCommitMessage(testCase.changes))
		})
	}
}

func TestParseNameStatus(testInstance *testing.T) {
	output := "A\x00scripts/New.ps1\x00" +
		"M\x00scripts/Ops/Report.py\x00" +
		"D\x00snippets/old.sh\x00" +
		"R087\x00scripts/Before.ps1\x00scripts/After.ps1\x00" +
		"M\x00scriptsraw/10 - Report.json\x00" +
		"A\x00snippetsraw/Lib/4 - helper.json\x00"

	changes := vcs.ParseNameStatus(output, []string{"scriptsraw/**", "snippetsraw/**"})

	require.Equal(testInstance, vcs.ChangeSet{
		Created:  []string{"scripts/New.ps1"},
		Modified: []string{"scripts/Ops/Report.py"},
		Deleted:  []string{"snippets/old.sh"},
		Renamed:  []string{"scripts/Before.ps1 -> scripts/After.ps1"},
	}, changes)
	require.False(testInstance, changes.Empty())
	require.True(testInstance, vcs.ParseNameStatus("M\x00scriptsraw/1 - a.json\x00", []string{"scriptsraw/**"}).Empty())
}

func TestParseNameStatusKeepsUnusualPathsVerbatim(testInstance *testing.T) {
	testCases := []struct {
		name     string
		output   string
		expected vcs.ChangeSet
	}{
		{
			name:     "non_ascii_names",
			output:   "A\x00scripts/Café.ps1\x00A\x00scriptsraw/10 - Café.json\x00",
			expected: vcs.ChangeSet{Created: []string{"scripts/Café.ps1"}},
		},
		{
			name:     "tab_and_quote_in_name",
			output:   "M\x00snippets/say \"hi\"\tnow.sh\x00",
			expected: vcs.ChangeSet{Modified: []string{"snippets/say \"hi\"\tnow.sh"}},
		},
		{
			name:     "rename_into_excluded_root",
			output:   "R100\x00scripts/Ünused.ps1\x00scriptsraw/Ünused.json\x00M\x00scripts/Keep.ps1\x00",
			expected: vcs.ChangeSet{Modified: []string{"scripts/Keep.ps1"}},
		},
		{
			name:     "truncated_record",
			output:   "R100\x00scripts/Half.ps1\x00",
			expected: vcs.ChangeSet{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, vcs.ParseNameStatus(testCase.output, []string{"scriptsraw/**", "snippetsraw/**"}))
		})
	}
}
