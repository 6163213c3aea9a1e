package reconcile

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/temirov/rmmsync/internal/entity"
	"github.com/temirov/rmmsync/internal/mirror"
	"github.com/temirov/rmmsync/internal/naming"
)

const (
	exportStartedMessageConstant             = "exporting remote state to mirror"
	exportListFailedMessageConstant          = "failed to list remote entities, leaving their folders untouched"
	exportMissingIdentifierMessageConstant   = "remote entity has no id, skipping"
	exportDetailFailedMessageConstant        = "failed to fetch entity detail, keeping existing files"
	exportDecodeFailedMessageConstant        = "failed to interpret remote entity"
	exportNameSanitizedMessageConstant       = "removed characters not allowed in file names"
	exportPathCollisionMessageConstant       = "another entity already owns this content path, leaving its content unwritten"
	exportContentWriteFailedMessageConstant  = "failed to write content file"
	exportMetadataWriteFailedMessageConstant = "failed to write metadata file"
	exportCompletedMessageConstant           = "export finished"
	unspecifiedShellLabelConstant            = "unspecified"
	logFieldScriptsConstant                  = "scripts"
	logFieldSnippetsConstant                 = "snippets"
	logFieldFilesConstant                    = "files"
	logFieldShellsConstant                   = "shells"
	logFieldFailedListsConstant              = "failed_lists"
	logFieldFailedDetailsConstant            = "failed_details"
	logFieldFailedWritesConstant             = "failed_writes"
	logFieldCollisionsConstant               = "collisions"
)

// ExportSummary counts the outcomes of an export pass.
type ExportSummary struct {
	Scripts       int
	Snippets      int
	Files         int
	Skipped       int
	FailedLists   int
	FailedDetails int
	FailedWrites  int
	// Collisions counts entities whose content path was already taken by
	// an earlier entity of the same pass. Only their metadata is written.
	Collisions int
	// Shells tallies exported scripts by shell; snippets are not counted.
	Shells map[entity.Shell]int
}

// ShellCounts renders the shell tally in a stable order.
func (summary ExportSummary) ShellCounts() []ShellCount {
	counts := make([]ShellCount, 0, len(summary.Shells))
	for shell, count := range summary.Shells {
		counts = append(counts, ShellCount{Shell: shell, Count: count})
	}
	sort.Slice(counts, func(left int, right int) bool { return counts[left].Shell < counts[right].Shell })
	return counts
}

// ShellCount is one entry of the shell tally.
type ShellCount struct {
	Shell entity.Shell
	Count int
}

// ExportResult carries the summary and the entity set built by Export.
type ExportResult struct {
	Summary ExportSummary
	Set     *EntitySet
}

// Export lists every kind, rewrites content and metadata files from remote
// state and returns the set of mirror paths the pass produced or retained.
func (engine *Engine) Export(executionContext context.Context, descriptors []entity.KindDescriptor) (ExportResult, error) {
	result := ExportResult{
		Summary: ExportSummary{Shells: map[entity.Shell]int{}},
		Set:     NewEntitySet(),
	}
	engine.logger.Info(exportStartedMessageConstant)
	for _, descriptor := range descriptors {
		if contextError := executionContext.Err(); contextError != nil {
			return result, contextError
		}
		engine.exportKind(executionContext, descriptor, &result)
	}
	result.Summary.Files = result.Set.Len()
	engine.logger.Info(exportCompletedMessageConstant, result.Summary.fields()...)
	return result, executionContext.Err()
}

func (engine *Engine) exportKind(executionContext context.Context, descriptor entity.KindDescriptor, result *ExportResult) {
	kindField := zap.String(logFieldKindConstant, string(descriptor.Kind))
	listed, listError := engine.remote.List(executionContext, descriptor)
	if listError != nil {
		engine.logger.Error(exportListFailedMessageConstant, kindField, zap.Error(listError))
		result.Summary.FailedLists++
		for _, rootName := range descriptor.Roots() {
			result.Set.MarkIncomplete(rootName)
		}
		return
	}

	for _, listPayload := range listed {
		if executionContext.Err() != nil {
			return
		}
		if !descriptor.Accepts(listPayload) {
			continue
		}
		engine.exportEntity(executionContext, descriptor, listPayload, result)
	}
}

func (engine *Engine) exportEntity(executionContext context.Context, descriptor entity.KindDescriptor, listPayload entity.Payload, result *ExportResult) {
	kindField := zap.String(logFieldKindConstant, string(descriptor.Kind))
	identifier, hasIdentifier := listPayload.Identifier()
	if !hasIdentifier {
		engine.logger.Warn(exportMissingIdentifierMessageConstant, kindField)
		result.Summary.Skipped++
		return
	}
	identifierField := zap.String(logFieldIdentifierConstant, identifier)

	merged := listPayload
	if descriptor.RequiresDetailFetch {
		detail, detailError := engine.remote.FetchDetail(executionContext, descriptor, identifier)
		if detailError != nil {
			engine.logger.Warn(exportDetailFailedMessageConstant, kindField, identifierField, zap.Error(detailError))
			result.Summary.FailedDetails++
			engine.retainExisting(descriptor, listPayload, result.Set)
			return
		}
		merged = entity.Merge(listPayload, detail)
	}

	exported, decodeError := entity.FromPayload(descriptor.Kind, merged)
	if decodeError != nil {
		engine.logger.Warn(exportDecodeFailedMessageConstant, kindField, identifierField, zap.Error(decodeError))
		result.Summary.Skipped++
		return
	}

	contentPath, metadataPath := engine.entityPaths(descriptor, exported)
	result.Set.Add(metadataPath)
	if result.Set.Add(contentPath) {
		if writeError := engine.store.WriteContent(contentPath, []byte(exported.Code)); writeError != nil {
			engine.logger.Error(exportContentWriteFailedMessageConstant, identifierField, zap.Error(writeError))
			result.Summary.FailedWrites++
		}
	} else {
		engine.logger.Warn(exportPathCollisionMessageConstant, identifierField, zap.String(logFieldPathConstant, contentPath.String()))
		result.Summary.Collisions++
	}
	if writeError := engine.store.WriteMetadata(metadataPath, merged); writeError != nil {
		engine.logger.Error(exportMetadataWriteFailedMessageConstant, identifierField, zap.Error(writeError))
		result.Summary.FailedWrites++
	}

	switch descriptor.Kind {
	case entity.KindScript:
		result.Summary.Scripts++
	case entity.KindSnippet:
		result.Summary.Snippets++
	}
	if descriptor.TalliesShell {
		result.Summary.Shells[exported.Shell]++
	}
}

// retainExisting keeps the paths an entity already owns so cleanup leaves
// them alone when its fresh state could not be fetched.
func (engine *Engine) retainExisting(descriptor entity.KindDescriptor, listPayload entity.Payload, set *EntitySet) {
	existing, decodeError := entity.FromPayload(descriptor.Kind, listPayload)
	if decodeError != nil {
		return
	}
	contentPath, metadataPath := engine.entityPaths(descriptor, existing)
	set.Add(contentPath)
	set.Add(metadataPath)
}

func (engine *Engine) entityPaths(descriptor entity.KindDescriptor, exported entity.Entity) (mirror.Path, mirror.Path) {
	sanitizedName := naming.Sanitize(exported.Name)
	if sanitizedName.Changed() {
		engine.logger.Debug(exportNameSanitizedMessageConstant,
			zap.String(logFieldIdentifierConstant, exported.Identifier),
			zap.String(logFieldOriginalNameConstant, exported.Name),
			zap.String(logFieldSanitizedNameConstant, sanitizedName.Clean),
			zap.Strings(logFieldRemovedCharactersConstant, sanitizedName.Removed),
		)
	}
	name := sanitizedName.Clean
	if len(name) == 0 {
		name = entity.DefaultName
	}
	category := naming.Clean(exported.Category)
	return engine.store.ContentPath(descriptor, category, name, exported.Shell),
		engine.store.MetadataPath(descriptor, category, exported.Identifier, name)
}

func (summary ExportSummary) fields() []zap.Field {
	shellCounts := map[string]int{}
	for _, shellCount := range summary.ShellCounts() {
		label := string(shellCount.Shell)
		if len(label) == 0 {
			label = unspecifiedShellLabelConstant
		}
		shellCounts[label] += shellCount.Count
	}
	return []zap.Field{
		zap.Int(logFieldScriptsConstant, summary.Scripts),
		zap.Int(logFieldSnippetsConstant, summary.Snippets),
		zap.Int(logFieldFilesConstant, summary.Files),
		zap.Int(logFieldSkippedConstant, summary.Skipped),
		zap.Int(logFieldFailedListsConstant, summary.FailedLists),
		zap.Int(logFieldFailedDetailsConstant, summary.FailedDetails),
		zap.Int(logFieldFailedWritesConstant, summary.FailedWrites),
		zap.Int(logFieldCollisionsConstant, summary.Collisions),
		zap.Any(logFieldShellsConstant, shellCounts),
	}
}
