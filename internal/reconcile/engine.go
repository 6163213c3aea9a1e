package reconcile

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/rmmsync/internal/entity"
	"github.com/temirov/rmmsync/internal/mirror"
)

const (
	storeNotConfiguredMessageConstant  = "reconcile engine requires a mirror store"
	remoteNotConfiguredMessageConstant = "reconcile engine requires a remote store"
	logFieldKindConstant               = "kind"
	logFieldIdentifierConstant         = "id"
	logFieldPathConstant               = "path"
	logFieldCandidatesConstant         = "candidates"
	logFieldRemovedCharactersConstant  = "removed_characters"
	logFieldOriginalNameConstant       = "original_name"
	logFieldSanitizedNameConstant      = "sanitized_name"
	logFieldPayloadConstant            = "payload"
	logFieldLocalLinesConstant         = "local_first_lines"
	logFieldRemoteLinesConstant        = "stored_first_lines"
)

// ErrStoreNotConfigured indicates the engine was created without a mirror store.
var ErrStoreNotConfigured = errors.New(storeNotConfiguredMessageConstant)

// ErrRemoteNotConfigured indicates the engine was created without a remote store.
var ErrRemoteNotConfigured = errors.New(remoteNotConfiguredMessageConstant)

// RemoteStore is the subset of the API client used by reconciliation.
type RemoteStore interface {
	List(executionContext context.Context, descriptor entity.KindDescriptor) ([]entity.Payload, error)
	FetchDetail(executionContext context.Context, descriptor entity.KindDescriptor, identifier string) (entity.Payload, error)
	Update(executionContext context.Context, descriptor entity.KindDescriptor, identifier string, payload entity.Payload) error
}

// EngineDependencies wires collaborators into an Engine.
type EngineDependencies struct {
	Store  *mirror.Store
	Remote RemoteStore
	Logger *zap.Logger
}

// EngineOptions control engine behavior.
type EngineOptions struct {
	// WritebackEnabled sends updates to the remote store; when false they are only logged.
	WritebackEnabled bool
}

// Engine runs writeback and export passes.
type Engine struct {
	store            *mirror.Store
	remote           RemoteStore
	logger           *zap.Logger
	writebackEnabled bool
}

// NewEngine validates dependencies and constructs an Engine.
func NewEngine(dependencies EngineDependencies, options EngineOptions) (*Engine, error) {
	if dependencies.Store == nil {
		return nil, ErrStoreNotConfigured
	}
	if dependencies.Remote == nil {
		return nil, ErrRemoteNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:            dependencies.Store,
		remote:           dependencies.Remote,
		logger:           logger,
		writebackEnabled: options.WritebackEnabled,
	}, nil
}
