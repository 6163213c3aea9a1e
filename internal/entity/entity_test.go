package entity_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rmmsync/internal/entity"
)

func TestShellExtensionMapping(testInstance *testing.T) {
	testCases := []struct {
		name              string
		shell             entity.Shell
		expectedExtension string
	}{
		{name: "powershell", shell: entity.ShellPowerShell, expectedExtension: ".ps1"},
		{name: "python", shell: entity.ShellPython, expectedExtension: ".py"},
		{name: "cmd", shell: entity.ShellCmd, expectedExtension: ".bat"},
		{name: "shell", shell: entity.ShellShell, expectedExtension: ".sh"},
		{name: "nushell", shell: entity.ShellNushell, expectedExtension: ".nu"},
		{name: "unknown", shell: entity.Shell("deno"), expectedExtension: ".txt"},
		{name: "empty", shell: entity.Shell(""), expectedExtension: ".txt"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedExtension, testCase.shell.Extension())
		})
	}
}

func TestFromPayloadRequiresIdentifier(testInstance *testing.T) {
	_, buildError := entity.FromPayload(entity.KindScript, entity.Payload{"name": "No id"})
	require.ErrorIs(testInstance, buildError, entity.ErrMissingIdentifier)
}

func TestFromPayloadPopulatesFields(testInstance *testing.T) {
	payload, decodeError := entity.DecodePayload([]byte(`{"id": 10, "name": "Foo/Bar", "category": " Tools ", "shell": "powershell", "code": "Write-Host 1"}`))
	require.NoError(testInstance, decodeError)

	built, buildError := entity.FromPayload(entity.KindScript, payload)
	require.NoError(testInstance, buildError)
	require.Equal(testInstance, "10", built.Identifier)
	require.Equal(testInstance, "Foo/Bar", built.Name)
	require.Equal(testInstance, "Tools", built.Category)
	require.Equal(testInstance, entity.ShellPowerShell, built.Shell)
	require.Equal(testInstance, "Write-Host 1", built.Code)
}

func TestFromPayloadDefaultsMissingName(testInstance *testing.T) {
	built, buildError := entity.FromPayload(entity.KindSnippet, entity.Payload{"id": json.Number("4"), "category": nil})
	require.NoError(testInstance, buildError)
	require.Equal(testInstance, entity.DefaultName, built.Name)
	require.Empty(testInstance, built.Category)
}

func TestDescriptorsDifferOnlyThroughFields(testInstance *testing.T) {
	scriptDescriptor, scriptError := entity.Describe(entity.KindScript)
	require.NoError(testInstance, scriptError)
	snippetDescriptor, snippetError := entity.Describe(entity.KindSnippet)
	require.NoError(testInstance, snippetError)

	require.Equal(testInstance, []string{"scripts", "scriptsraw"}, scriptDescriptor.Roots())
	require.Equal(testInstance, []string{"snippets", "snippetsraw"}, snippetDescriptor.Roots())
	require.True(testInstance, scriptDescriptor.RequiresDetailFetch)
	require.False(testInstance, snippetDescriptor.RequiresDetailFetch)
	require.True(testInstance, scriptDescriptor.TalliesShell)
	require.False(testInstance, snippetDescriptor.TalliesShell)

	detailPath, detailError := scriptDescriptor.DetailPath("42")
	require.NoError(testInstance, detailError)
	require.Equal(testInstance, "/scripts/42/download/?with_snippets=false", detailPath)

	_, unsupportedError := snippetDescriptor.DetailPath("42")
	require.ErrorIs(testInstance, unsupportedError, entity.ErrEndpointUnsupported)

	updatePath, updateError := snippetDescriptor.UpdatePath("7")
	require.NoError(testInstance, updateError)
	require.Equal(testInstance, "/scripts/snippets/7/", updatePath)

	_, emptyError := scriptDescriptor.UpdatePath(" ")
	require.ErrorIs(testInstance, emptyError, entity.ErrEmptyIdentifier)

	_, unknownError := entity.Describe(entity.Kind("policy"))
	require.ErrorIs(testInstance, unknownError, entity.ErrUnknownKind)
}

func TestDescriptorAcceptsOnlyUserDefinedScripts(testInstance *testing.T) {
	scriptDescriptor, _ := entity.Describe(entity.KindScript)
	snippetDescriptor, _ := entity.Describe(entity.KindSnippet)

	require.True(testInstance, scriptDescriptor.Accepts(entity.Payload{"script_type": "userdefined"}))
	require.False(testInstance, scriptDescriptor.Accepts(entity.Payload{"script_type": "builtin"}))
	require.False(testInstance, scriptDescriptor.Accepts(entity.Payload{}))
	require.True(testInstance, snippetDescriptor.Accepts(entity.Payload{}))
}

func TestToWireRenamesCodeField(testInstance *testing.T) {
	scriptDescriptor, _ := entity.Describe(entity.KindScript)
	snippetDescriptor, _ := entity.Describe(entity.KindSnippet)
	stored := entity.Payload{"id": json.Number("3"), "code": "echo hi", "name": "n"}

	scriptWire := scriptDescriptor.ToWire(stored)
	require.Equal(testInstance, "echo hi", scriptWire["script_body"])
	require.NotContains(testInstance, scriptWire, "code")

	snippetWire := snippetDescriptor.ToWire(stored)
	require.Equal(testInstance, "echo hi", snippetWire["code"])
	require.NotContains(testInstance, snippetWire, "script_body")

	require.Equal(testInstance, "echo hi", stored["code"])
}

func TestMergePrefersOverride(testInstance *testing.T) {
	merged := entity.Merge(entity.Payload{"id": 1, "code": "old", "name": "list"}, entity.Payload{"code": "new", "args": []any{}})
	require.Equal(testInstance, "new", merged["code"])
	require.Equal(testInstance, "list", merged["name"])
	require.Contains(testInstance, merged, "args")
}

func TestDecodePayloadPreservesLargeIdentifiers(testInstance *testing.T) {
	payload, decodeError := entity.DecodePayload([]byte(`{"id": 12345678901234567890}`))
	require.NoError(testInstance, decodeError)
	identifier, present := payload.Identifier()
	require.True(testInstance, present)
	require.Equal(testInstance, "12345678901234567890", identifier)

	_, trailingError := entity.DecodePayload([]byte(`{"id": 1} {"id": 2}`))
	require.ErrorIs(testInstance, trailingError, entity.ErrTrailingData)
}

func TestDecodePayloadListSkipsNulls(testInstance *testing.T) {
	payloads, decodeError := entity.DecodePayloadList([]byte(`[{"id": 1}, null, {"id": 2}]`))
	require.NoError(testInstance, decodeError)
	require.Len(testInstance, payloads, 2)
}
