package reconcile_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/rmmsync/internal/entity"
	"github.com/temirov/rmmsync/internal/mirror"
	"github.com/temirov/rmmsync/internal/reconcile"
)

type recordedUpdate struct {
	kind       entity.Kind
	identifier string
	payload    entity.Payload
}

type fakeRemote struct {
	lists        map[entity.Kind][]entity.Payload
	listErrors   map[entity.Kind]error
	details      map[string]entity.Payload
	detailErrors map[string]error
	updateError  error
	updates      []recordedUpdate
	detailCalls  []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		lists:        map[entity.Kind][]entity.Payload{},
		listErrors:   map[entity.Kind]error{},
		details:      map[string]entity.Payload{},
		detailErrors: map[string]error{},
	}
}

func (remote *fakeRemote) List(executionContext context.Context, descriptor entity.KindDescriptor) ([]entity.Payload, error) {
	if listError := remote.listErrors[descriptor.Kind]; listError != nil {
		return nil, listError
	}
	cloned := []entity.Payload{}
	for _, payload := range remote.lists[descriptor.Kind] {
		cloned = append(cloned, payload.Clone())
	}
	return cloned, nil
}

func (remote *fakeRemote) FetchDetail(executionContext context.Context, descriptor entity.KindDescriptor, identifier string) (entity.Payload, error) {
	remote.detailCalls = append(remote.detailCalls, identifier)
	if detailError := remote.detailErrors[identifier]; detailError != nil {
		return nil, detailError
	}
	return remote.details[identifier].Clone(), nil
}

func (remote *fakeRemote) Update(executionContext context.Context, descriptor entity.KindDescriptor, identifier string, payload entity.Payload) error {
	if remote.updateError != nil {
		return remote.updateError
	}
	remote.updates = append(remote.updates, recordedUpdate{kind: descriptor.Kind, identifier: identifier, payload: payload})
	return nil
}

func (remote *fakeRemote) addScript(identifier string, name string, category string, shell entity.Shell, code string) {
	listPayload := entity.Payload{
		"id":          json.Number(identifier),
		"name":        name,
		"shell":       string(shell),
		"script_type": "userdefined",
		"args":        []any{},
	}
	if len(category) > 0 {
		listPayload["category"] = category
	}
	remote.lists[entity.KindScript] = append(remote.lists[entity.KindScript], listPayload)
	remote.details[identifier] = entity.Payload{"code": code, "filename": name}
}

func (remote *fakeRemote) addSnippet(identifier string, name string, shell entity.Shell, code string) {
	remote.lists[entity.KindSnippet] = append(remote.lists[entity.KindSnippet], entity.Payload{
		"id":    json.Number(identifier),
		"name":  name,
		"shell": string(shell),
		"code":  code,
	})
}

type engineFixture struct {
	root   string
	store  *mirror.Store
	remote *fakeRemote
	engine *reconcile.Engine
}

func newEngineFixture(testInstance *testing.T, writebackEnabled bool) *engineFixture {
	testInstance.Helper()
	root := testInstance.TempDir()
	store, storeError := mirror.NewStore(mirror.Options{Root: root})
	require.NoError(testInstance, storeError)
	remote := newFakeRemote()
	engine, engineError := reconcile.NewEngine(reconcile.EngineDependencies{Store: store, Remote: remote, Logger: zap.NewNop()}, reconcile.EngineOptions{WritebackEnabled: writebackEnabled})
	require.NoError(testInstance, engineError)
	return &engineFixture{root: root, store: store, remote: remote, engine: engine}
}

func (fixture *engineFixture) readFile(testInstance *testing.T, relativePath string) string {
	testInstance.Helper()
	content, readError := os.ReadFile(filepath.Join(fixture.root, filepath.FromSlash(relativePath)))
	require.NoError(testInstance, readError)
	return string(content)
}

func (fixture *engineFixture) writeFile(testInstance *testing.T, relativePath string, content string) {
	testInstance.Helper()
	absolutePath := filepath.Join(fixture.root, filepath.FromSlash(relativePath))
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
	require.NoError(testInstance, os.WriteFile(absolutePath, []byte(content), 0o644))
}

func TestNewEngineValidation(testInstance *testing.T) {
	store, storeError := mirror.NewStore(mirror.Options{Root: testInstance.TempDir()})
	require.NoError(testInstance, storeError)

	testCases := []struct {
		name         string
		dependencies reconcile.EngineDependencies
		expectError  error
	}{
		{name: "missing_store", dependencies: reconcile.EngineDependencies{Remote: newFakeRemote()}, expectError: reconcile.ErrStoreNotConfigured},
		{name: "missing_remote", dependencies: reconcile.EngineDependencies{Store: store}, expectError: reconcile.ErrRemoteNotConfigured},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, creationError := reconcile.NewEngine(testCase.dependencies, reconcile.EngineOptions{})
			require.ErrorIs(testInstance, creationError, testCase.expectError)
		})
	}
}

func TestExportSanitizesNamesAndIsDeterministic(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance, true)
	fixture.remote.addScript("10", "Foo/Bar", "", entity.ShellPowerShell, "Write-Host 'foo'\r\n")

	firstResult, firstError := fixture.engine.Export(context.Background(), entity.Descriptors())
	require.NoError(testInstance, firstError)

	require.Equal(testInstance, "Write-Host 'foo'\r\n", fixture.readFile(testInstance, "scripts/FooBar.ps1"))
	firstMetadata := fixture.readFile(testInstance, "scriptsraw/10 - FooBar.json")
	require.Contains(testInstance, firstMetadata, `"name": "Foo/Bar"`)
	require.True(testInstance, firstResult.Set.Contains(mirror.NewPath("scripts", "FooBar.ps1")))
	require.True(testInstance, firstResult.Set.Contains(mirror.NewPath("scriptsraw", "10 - FooBar.json")))
	require.Equal(testInstance, 1, firstResult.Summary.Scripts)
	require.Equal(testInstance, 2, firstResult.Summary.Files)

	_, secondError := fixture.engine.Export(context.Background(), entity.Descriptors())
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, firstMetadata, fixture.readFile(testInstance, "scriptsraw/10 - FooBar.json"))
	require.Equal(testInstance, "Write-Host 'foo'\r\n", fixture.readFile(testInstance, "scripts/FooBar.ps1"))
}

func TestExportPlacesCategoriesAndMergesDetail(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance, true)
	fixture.remote.addScript("3", "Disk Cleanup", "Maintenance: Weekly", entity.ShellPython, "print('x')")
	fixture.remote.addSnippet("8", "helpers", entity.ShellShell, "echo helper")

	result, exportError := fixture.engine.Export(context.Background(), entity.Descriptors())
	require.NoError(testInstance, exportError)

	require.Equal(testInstance, "print('x')", fixture.readFile(testInstance, "scripts/Maintenance Weekly/Disk Cleanup.py"))
	metadata, readError := fixture.store.ReadMetadata(mirror.NewPath("scriptsraw", "Maintenance Weekly/3 - Disk Cleanup.json"))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "print('x')", metadata.Code())
	require.Equal(testInstance, "Disk Cleanup", metadata.StringField("filename"))
	require.Equal(testInstance, "userdefined", metadata.StringField("script_type"))

	require.Equal(testInstance, "echo helper", fixture.readFile(testInstance, "snippets/helpers.sh"))
	require.True(testInstance, result.Set.Contains(mirror.NewPath("snippetsraw", "8 - helpers.json")))
	require.Equal(testInstance, []string{"3"}, fixture.remote.detailCalls)
}

func TestExportFiltersBuiltInScriptsAndTalliesShellsForScriptsOnly(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance, true)
	fixture.remote.addScript("1", "A", "", entity.ShellPowerShell, "a")
	fixture.remote.addScript("2", "B", "", entity.ShellPowerShell, "b")
	fixture.remote.addScript("3", "C", "", entity.ShellPython, "c")
	fixture.remote.lists[entity.KindScript] = append(fixture.remote.lists[entity.KindScript], entity.Payload{
		"id": json.Number("99"), "name": "Builtin", "shell": "powershell", "script_type": "builtin",
	})
	fixture.remote.addSnippet("5", "S", entity.ShellPowerShell, "s")

	result, exportError := fixture.engine.Export(context.Background(), entity.Descriptors())
	require.NoError(testInstance, exportError)

	require.Equal(testInstance, 3, result.Summary.Scripts)
	require.Equal(testInstance, 1, result.Summary.Snippets)
	require.Equal(testInstance, []reconcile.ShellCount{
		{Shell: entity.ShellPowerShell, Count: 2},
		{Shell: entity.ShellPython, Count: 1},
	}, result.Summary.ShellCounts())
	require.False(testInstance, result.Set.Contains(mirror.NewPath("scripts", "Builtin.ps1")))
	require.NotContains(testInstance, fixture.remote.detailCalls, "99")
}

func TestExportRetainsPathsWhenDetailFetchFails(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance, true)
	fixture.remote.addScript("4", "Keep Me", "", entity.ShellCmd, "echo new")
	fixture.remote.detailErrors["4"] = errors.New("timeout")
	fixture.writeFile(testInstance, "scripts/Keep Me.bat", "echo old")

	result, exportError := fixture.engine.Export(context.Background(), entity.Descriptors())
	require.NoError(testInstance, exportError)

	require.Equal(testInstance, 1, result.Summary.FailedDetails)
	require.Equal(testInstance, 0, result.Summary.Scripts)
	require.True(testInstance, result.Set.Contains(mirror.NewPath("scripts", "Keep Me.bat")))
	require.True(testInstance, result.Set.Contains(mirror.NewPath("scriptsraw", "4 - Keep Me.json")))
	require.Equal(testInstance, "echo old", fixture.readFile(testInstance, "scripts/Keep Me.bat"))
}

func TestExportMarksRootsIncompleteWhenListingFails(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance, true)
	fixture.remote.listErrors[entity.KindSnippet] = errors.New("502 bad gateway")
	fixture.remote.addScript("1", "A", "", entity.ShellShell, "a")

	result, exportError := fixture.engine.Export(context.Background(), entity.Descriptors())
	require.NoError(testInstance, exportError)

	require.Equal(testInstance, 1, result.Summary.FailedLists)
	require.True(testInstance, result.Set.IsIncomplete("snippets"))
	require.True(testInstance, result.Set.IsIncomplete("snippetsraw"))
	require.False(testInstance, result.Set.IsIncomplete("scripts"))
}

func TestExportDefaultsMissingName(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance, true)
	fixture.remote.addSnippet("12", "???", entity.ShellNushell, "ls")
	fixture.remote.lists[entity.KindSnippet] = append(fixture.remote.lists[entity.KindSnippet], entity.Payload{"id": json.Number("13"), "code": "pwd"})

	result, exportError := fixture.engine.Export(context.Background(), entity.Descriptors())
	require.NoError(testInstance, exportError)

	require.True(testInstance, result.Set.Contains(mirror.NewPath("snippets", "Unnamed Script.nu")))
	require.True(testInstance, result.Set.Contains(mirror.NewPath("snippetsraw", "12 - Unnamed Script.json")))
	require.True(testInstance, result.Set.Contains(mirror.NewPath("snippets", "Unnamed Script.txt")))
	require.True(testInstance, result.Set.Contains(mirror.NewPath("snippetsraw", "13 - Unnamed Script.json")))
}

func TestWritebackAfterExportFindsNoDrift(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance, true)
	fixture.remote.addScript("10", "Foo/Bar", "", entity.ShellPowerShell, "Get-Date")
	fixture.remote.addScript("11", "Report", "Ops", entity.ShellPython, "print(1)\n")
	fixture.remote.addSnippet("20", "Common", entity.ShellPowerShell, "function Common {}")

	_, exportError := fixture.engine.Export(context.Background(), entity.Descriptors())
	require.NoError(testInstance, exportError)

	summary, writebackError := fixture.engine.Writeback(context.Background(), entity.Descriptors())
	require.NoError(testInstance, writebackError)
	require.Equal(testInstance, reconcile.WritebackSummary{Checked: 3, Matched: 3}, summary)
	require.Empty(testInstance, fixture.remote.updates)
}

func TestWritebackSendsSingleEditedFile(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance, true)
	fixture.remote.addScript("10", "Foo/Bar", "", entity.ShellPowerShell, "Get-Date")
	fixture.remote.addSnippet("20", "Common", entity.ShellPowerShell, "function Common {}")
	_, exportError := fixture.engine.Export(context.Background(), entity.Descriptors())
	require.NoError(testInstance, exportError)

	editedContent := "Get-Date\nWrite-Host 'edited'\n"
	fixture.writeFile(testInstance, "scripts/FooBar.ps1", editedContent)

	summary, writebackError := fixture.engine.Writeback(context.Background(), entity.Descriptors())
	require.NoError(testInstance, writebackError)
	require.Equal(testInstance, 2, summary.Checked)
	require.Equal(testInstance, 1, summary.Mismatched)
	require.Equal(testInstance, 1, summary.Updated)
	require.Len(testInstance, fixture.remote.updates, 1)

	update := fixture.remote.updates[0]
	require.Equal(testInstance, entity.KindScript, update.kind)
	require.Equal(testInstance, "10", update.identifier)
	require.Equal(testInstance, editedContent, update.payload.Code())
	require.Equal(testInstance, "Foo/Bar", update.payload.StringField("name"))
}

func TestExportLeavesCollidingContentToFirstEntity(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance, true)
	fixture.remote.addScript("10", "Foo/Bar", "", entity.ShellPowerShell, "A")
	fixture.remote.addScript("11", "FooBar", "", entity.ShellPowerShell, "B")

	result, exportError := fixture.engine.Export(context.Background(), entity.Descriptors())
	require.NoError(testInstance, exportError)

	require.Equal(testInstance, 1, result.Summary.Collisions)
	require.Equal(testInstance, 2, result.Summary.Scripts)
	require.Equal(testInstance, "A", fixture.readFile(testInstance, "scripts/FooBar.ps1"))
	require.True(testInstance, result.Set.Contains(mirror.NewPath("scriptsraw", "10 - FooBar.json")))
	require.True(testInstance, result.Set.Contains(mirror.NewPath("scriptsraw", "11 - FooBar.json")))
	require.Equal(testInstance, 3, result.Summary.Files)
}

func TestWritebackSkipsEntitiesSharingContentFile(testInstance *testing.T) {
	testCases := []struct {
		name       string
		editedCode string
	}{
		{name: "unchanged_mirror"},
		{name: "edited_shared_file", editedCode: "C"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newEngineFixture(testInstance, true)
			fixture.remote.addScript("10", "Foo/Bar", "", entity.ShellPowerShell, "A")
			fixture.remote.addScript("11", "FooBar", "", entity.ShellPowerShell, "B")
			_, exportError := fixture.engine.Export(context.Background(), entity.Descriptors())
			require.NoError(testInstance, exportError)
			if len(testCase.editedCode) > 0 {
				fixture.writeFile(testInstance, "scripts/FooBar.ps1", testCase.editedCode)
			}

			summary, writebackError := fixture.engine.Writeback(context.Background(), entity.Descriptors())
			require.NoError(testInstance, writebackError)
			require.Equal(testInstance, reconcile.WritebackSummary{Checked: 2, Ambiguous: 2}, summary)
			require.Empty(testInstance, fixture.remote.updates)
		})
	}
}

func TestWritebackSkipsStemFallbackOntoLinkedFile(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance, true)
	fixture.writeFile(testInstance, "scriptsraw/1 - Deploy.json", `{"id": 1, "name": "Deploy", "shell": "shell", "code": "echo a"}`)
	fixture.writeFile(testInstance, "scriptsraw/Old/2 - Deploy.json", `{"id": 2, "name": "Deploy", "shell": "shell", "code": "echo b"}`)
	fixture.writeFile(testInstance, "scripts/Deploy.sh", "echo c")

	summary, writebackError := fixture.engine.Writeback(context.Background(), entity.Descriptors())
	require.NoError(testInstance, writebackError)
	require.Equal(testInstance, reconcile.WritebackSummary{Checked: 2, Ambiguous: 2}, summary)
	require.Empty(testInstance, fixture.remote.updates)
}

func TestWritebackFallsBackToStemSearch(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance, true)
	fixture.writeFile(testInstance, "snippetsraw/30 - Moved.json", `{"id": 30, "name": "Moved", "shell": "python", "code": "old"}`)
	fixture.writeFile(testInstance, "snippets/Archive/moved.py", "new")

	summary, writebackError := fixture.engine.Writeback(context.Background(), entity.Descriptors())
	require.NoError(testInstance, writebackError)
	require.Equal(testInstance, 1, summary.Updated)
	require.Equal(testInstance, "30", fixture.remote.updates[0].identifier)
	require.Equal(testInstance, "new", fixture.remote.updates[0].payload.Code())
}

func TestWritebackFlagsAmbiguousMatches(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance, true)
	fixture.writeFile(testInstance, "scriptsraw/7 - Tool.json", `{"id": 7, "name": "Tool", "shell": "python", "code": "print(0)"}`)
	fixture.writeFile(testInstance, "scripts/A/Tool.ps1", "Write-Host 1")
	fixture.writeFile(testInstance, "scripts/B/tool.sh", "echo 1")

	summary, writebackError := fixture.engine.Writeback(context.Background(), entity.Descriptors())
	require.NoError(testInstance, writebackError)
	require.Equal(testInstance, reconcile.WritebackSummary{Checked: 1, Ambiguous: 1}, summary)
	require.Empty(testInstance, fixture.remote.updates)
}

func TestWritebackSkipsMetadataWithoutIdentifierOrContent(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance, true)
	fixture.writeFile(testInstance, "scriptsraw/Loose.json", `{"name": "Loose", "code": "x"}`)
	fixture.writeFile(testInstance, "scriptsraw/5 - Orphan.json", `{"id": 5, "name": "Orphan", "code": "x"}`)
	fixture.writeFile(testInstance, "scriptsraw/6 - Broken.json", `{"id": 6,`)

	summary, writebackError := fixture.engine.Writeback(context.Background(), entity.Descriptors())
	require.NoError(testInstance, writebackError)
	require.Equal(testInstance, reconcile.WritebackSummary{Checked: 3, Skipped: 2, Failed: 1}, summary)
}

func TestWritebackDisabledOnlySimulates(testInstance *testing.T) {
	observerCore, observedLogs := observer.New(zap.InfoLevel)
	root := testInstance.TempDir()
	store, storeError := mirror.NewStore(mirror.Options{Root: root})
	require.NoError(testInstance, storeError)
	remote := newFakeRemote()
	engine, engineError := reconcile.NewEngine(reconcile.EngineDependencies{Store: store, Remote: remote, Logger: zap.New(observerCore)}, reconcile.EngineOptions{})
	require.NoError(testInstance, engineError)

	fixture := &engineFixture{root: root, store: store, remote: remote, engine: engine}
	fixture.writeFile(testInstance, "scriptsraw/2 - Job.json", `{"id": 2, "name": "Job", "shell": "shell", "code": "echo a"}`)
	fixture.writeFile(testInstance, "scripts/Job.sh", "echo b")

	summary, writebackError := engine.Writeback(context.Background(), entity.Descriptors())
	require.NoError(testInstance, writebackError)
	require.Equal(testInstance, 1, summary.Simulated)
	require.Equal(testInstance, 0, summary.Updated)
	require.Empty(testInstance, remote.updates)

	simulated := observedLogs.FilterMessage("[dry-run] would send update").All()
	require.Len(testInstance, simulated, 1)
	require.Contains(testInstance, simulated[0].ContextMap()["payload"], `"script_body":"echo b"`)
}

func TestWritebackCountsFailedUpdates(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance, true)
	fixture.remote.updateError = errors.New("forbidden")
	fixture.writeFile(testInstance, "scriptsraw/2 - Job.json", `{"id": 2, "name": "Job", "shell": "shell", "code": "echo a"}`)
	fixture.writeFile(testInstance, "scripts/Job.sh", "echo b")

	summary, writebackError := fixture.engine.Writeback(context.Background(), entity.Descriptors())
	require.NoError(testInstance, writebackError)
	require.Equal(testInstance, reconcile.WritebackSummary{Checked: 1, Mismatched: 1, Failed: 1}, summary)
}

func TestEntitySetPathsAreSorted(testInstance *testing.T) {
	set := reconcile.NewEntitySet()
	require.True(testInstance, set.Add(mirror.NewPath("snippets", "b.sh")))
	require.True(testInstance, set.Add(mirror.NewPath("scripts", "z.ps1")))
	require.True(testInstance, set.Add(mirror.NewPath("scripts", "a.ps1")))
	require.False(testInstance, set.Add(mirror.NewPath("scripts", "a.ps1")))

	require.Equal(testInstance, []mirror.Path{
		mirror.NewPath("scripts", "a.ps1"),
		mirror.NewPath("scripts", "z.ps1"),
		mirror.NewPath("snippets", "b.sh"),
	}, set.Paths())
	require.Equal(testInstance, 3, set.Len())
}
