package reconcile

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/rmmsync/internal/digest"
	"github.com/temirov/rmmsync/internal/entity"
	"github.com/temirov/rmmsync/internal/mirror"
	"github.com/temirov/rmmsync/internal/rmmapi"
)

const (
	diagnosticLineLimitConstant              = 10
	writebackStartedMessageConstant          = "checking mirror for local edits"
	writebackListFailedMessageConstant       = "failed to list metadata files"
	metadataReadFailedMessageConstant        = "failed to read metadata file"
	metadataWithoutIdentifierMessageConstant = "metadata file has no id, skipping"
	contentMissingMessageConstant            = "no content file found for metadata, skipping"
	contentAmbiguousMessageConstant          = "several content files match metadata, skipping"
	contentSharedMessageConstant             = "several metadata files resolve to one content file, skipping"
	contentReadFailedMessageConstant         = "failed to read content file"
	contentMatchesMessageConstant            = "content unchanged"
	contentMismatchMessageConstant           = "content differs from stored metadata"
	updateSimulatedMessageConstant           = "[dry-run] would send update"
	updateFailedMessageConstant              = "failed to send update"
	updateSucceededMessageConstant           = "update sent"
	writebackCompletedMessageConstant        = "writeback finished"
	logFieldCheckedConstant                  = "checked"
	logFieldMatchedConstant                  = "matched"
	logFieldMismatchedConstant               = "mismatched"
	logFieldUpdatedConstant                  = "updated"
	logFieldSkippedConstant                  = "skipped"
	logFieldAmbiguousConstant                = "ambiguous"
	logFieldFailedConstant                   = "failed"
	logFieldSimulatedConstant                = "simulated"
	lineSeparatorConstant                    = "\n"
)

// WritebackSummary counts the outcomes of a writeback pass.
type WritebackSummary struct {
	Checked    int
	Matched    int
	Mismatched int
	Updated    int
	Skipped    int
	Ambiguous  int
	Failed     int
	Simulated  int
}

// Writeback compares every metadata file against its content file and sends
// the content of mismatching pairs to the remote store. A content file
// claimed by more than one metadata file is never sent for any of them.
func (engine *Engine) Writeback(executionContext context.Context, descriptors []entity.KindDescriptor) (WritebackSummary, error) {
	summary := WritebackSummary{}
	engine.logger.Info(writebackStartedMessageConstant)
	for _, descriptor := range descriptors {
		if contextError := executionContext.Err(); contextError != nil {
			return summary, contextError
		}
		engine.writebackKind(executionContext, descriptor, &summary)
	}
	engine.logger.Info(writebackCompletedMessageConstant, summary.fields()...)
	return summary, executionContext.Err()
}

func (engine *Engine) writebackKind(executionContext context.Context, descriptor entity.KindDescriptor, summary *WritebackSummary) {
	kindField := zap.String(logFieldKindConstant, string(descriptor.Kind))
	metadataFiles, listError := engine.store.ListFiles(descriptor.MetadataRoot)
	if listError != nil {
		engine.logger.Error(writebackListFailedMessageConstant, kindField, zap.Error(listError))
		summary.Failed++
		return
	}

	locator := newContentLocator(engine.store, descriptor)
	pairings := make([]writebackPairing, 0, len(metadataFiles))
	claims := map[mirror.Path][]mirror.Path{}
	for _, metadataPath := range metadataFiles {
		if !metadataPath.IsMetadata() {
			continue
		}
		summary.Checked++
		pairing, paired := engine.pairMetadata(locator, metadataPath, summary)
		if !paired {
			continue
		}
		pairings = append(pairings, pairing)
		claims[pairing.contentPath] = append(claims[pairing.contentPath], metadataPath)
	}

	for _, pairing := range pairings {
		if executionContext.Err() != nil {
			return
		}
		if claimants := claims[pairing.contentPath]; len(claimants) > 1 {
			engine.logger.Warn(contentSharedMessageConstant,
				zap.String(logFieldPathConstant, pairing.contentPath.String()),
				zap.String(logFieldIdentifierConstant, pairing.identifier),
				zap.Strings(logFieldCandidatesConstant, pathStrings(claimants)),
			)
			summary.Ambiguous++
			continue
		}
		engine.writebackPairing(executionContext, descriptor, pairing, summary)
	}
}

// writebackPairing is a metadata file resolved to exactly one content file.
type writebackPairing struct {
	metadataPath mirror.Path
	contentPath  mirror.Path
	identifier   string
	stored       entity.Payload
}

func (engine *Engine) pairMetadata(locator *contentLocator, metadataPath mirror.Path, summary *WritebackSummary) (writebackPairing, bool) {
	pathField := zap.String(logFieldPathConstant, metadataPath.String())
	stored, readError := engine.store.ReadMetadata(metadataPath)
	if readError != nil {
		engine.logger.Warn(metadataReadFailedMessageConstant, pathField, zap.Error(readError))
		summary.Failed++
		return writebackPairing{}, false
	}
	identifier, hasIdentifier := stored.Identifier()
	if !hasIdentifier {
		engine.logger.Warn(metadataWithoutIdentifierMessageConstant, pathField)
		summary.Skipped++
		return writebackPairing{}, false
	}
	identifierField := zap.String(logFieldIdentifierConstant, identifier)

	candidates, locateError := locator.locate(metadataPath, entity.Shell(stored.StringField(entity.ShellFieldName)))
	if locateError != nil {
		engine.logger.Warn(contentReadFailedMessageConstant, pathField, identifierField, zap.Error(locateError))
		summary.Failed++
		return writebackPairing{}, false
	}
	if len(candidates) == 0 {
		engine.logger.Warn(contentMissingMessageConstant, pathField, identifierField)
		summary.Skipped++
		return writebackPairing{}, false
	}
	if len(candidates) > 1 {
		engine.logger.Warn(contentAmbiguousMessageConstant, pathField, identifierField, zap.Strings(logFieldCandidatesConstant, pathStrings(candidates)))
		summary.Ambiguous++
		return writebackPairing{}, false
	}
	return writebackPairing{metadataPath: metadataPath, contentPath: candidates[0], identifier: identifier, stored: stored}, true
}

func (engine *Engine) writebackPairing(executionContext context.Context, descriptor entity.KindDescriptor, pairing writebackPairing, summary *WritebackSummary) {
	identifierField := zap.String(logFieldIdentifierConstant, pairing.identifier)
	contentField := zap.String(logFieldPathConstant, pairing.contentPath.String())
	content, contentDigest, readContentError := engine.store.ReadContent(pairing.contentPath)
	if readContentError != nil {
		engine.logger.Warn(contentReadFailedMessageConstant, contentField, identifierField, zap.Error(readContentError))
		summary.Failed++
		return
	}
	storedCode := pairing.stored.Code()
	if digest.String(storedCode).Matches(contentDigest) {
		engine.logger.Debug(contentMatchesMessageConstant, contentField, identifierField)
		summary.Matched++
		return
	}

	summary.Mismatched++
	engine.logger.Info(contentMismatchMessageConstant, contentField, identifierField)
	engine.logger.Debug(contentMismatchMessageConstant,
		identifierField,
		zap.Strings(logFieldLocalLinesConstant, firstLines(string(content))),
		zap.Strings(logFieldRemoteLinesConstant, firstLines(storedCode)),
	)

	updated := pairing.stored.WithCode(string(content))
	if !engine.writebackEnabled {
		engine.logger.Info(updateSimulatedMessageConstant, identifierField, zap.String(logFieldPayloadConstant, describeWirePayload(descriptor, updated)))
		summary.Simulated++
		return
	}
	if updateError := engine.remote.Update(executionContext, descriptor, pairing.identifier, updated); updateError != nil {
		engine.logger.Error(updateFailedMessageConstant, identifierField, zap.Error(updateError))
		summary.Failed++
		return
	}
	engine.logger.Info(updateSucceededMessageConstant, identifierField)
	summary.Updated++
}

// contentLocator finds the content file paired with a metadata file. The
// layout link (same category folder, stem and shell extension) wins; the
// case-insensitive stem search across the content root is the fallback.
type contentLocator struct {
	store      *mirror.Store
	descriptor entity.KindDescriptor
	stemIndex  map[string][]mirror.Path
}

func newContentLocator(store *mirror.Store, descriptor entity.KindDescriptor) *contentLocator {
	return &contentLocator{store: store, descriptor: descriptor}
}

func (locator *contentLocator) locate(metadataPath mirror.Path, shell entity.Shell) ([]mirror.Path, error) {
	stem := mirror.StripIdentifierPrefix(metadataPath.Stem())
	linked := mirror.NewPath(locator.descriptor.ContentRoot, path.Join(metadataPath.Directory(), stem+shell.Extension()))
	if locator.store.Exists(linked) {
		return []mirror.Path{linked}, nil
	}
	if locator.stemIndex == nil {
		if indexError := locator.buildIndex(); indexError != nil {
			return nil, indexError
		}
	}
	return locator.stemIndex[strings.ToLower(stem)], nil
}

func (locator *contentLocator) buildIndex() error {
	contentFiles, listError := locator.store.ListFiles(locator.descriptor.ContentRoot)
	if listError != nil {
		return listError
	}
	locator.stemIndex = map[string][]mirror.Path{}
	for _, contentPath := range contentFiles {
		key := strings.ToLower(contentPath.Stem())
		locator.stemIndex[key] = append(locator.stemIndex[key], contentPath)
	}
	return nil
}

func (summary WritebackSummary) fields() []zap.Field {
	return []zap.Field{
		zap.Int(logFieldCheckedConstant, summary.Checked),
		zap.Int(logFieldMatchedConstant, summary.Matched),
		zap.Int(logFieldMismatchedConstant, summary.Mismatched),
		zap.Int(logFieldUpdatedConstant, summary.Updated),
		zap.Int(logFieldSkippedConstant, summary.Skipped),
		zap.Int(logFieldAmbiguousConstant, summary.Ambiguous),
		zap.Int(logFieldFailedConstant, summary.Failed),
		zap.Int(logFieldSimulatedConstant, summary.Simulated),
	}
}

func firstLines(text string) []string {
	lines := strings.Split(text, lineSeparatorConstant)
	if len(lines) > diagnosticLineLimitConstant {
		lines = lines[:diagnosticLineLimitConstant]
	}
	return lines
}

func describeWirePayload(descriptor entity.KindDescriptor, payload entity.Payload) string {
	encoded, encodeError := json.Marshal(descriptor.ToWire(payload))
	if encodeError != nil {
		return encodeError.Error()
	}
	return rmmapi.Preview(string(encoded))
}

func pathStrings(paths []mirror.Path) []string {
	rendered := make([]string, 0, len(paths))
	for _, mirrorPath := range paths {
		rendered = append(rendered, mirrorPath.String())
	}
	return rendered
}
