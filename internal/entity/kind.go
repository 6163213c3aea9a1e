package entity

import (
	"errors"
	"fmt"
	"strings"
)

const (
	scriptsContentRootConstant         = "scripts"
	scriptsMetadataRootConstant        = "scriptsraw"
	snippetsContentRootConstant        = "snippets"
	snippetsMetadataRootConstant       = "snippetsraw"
	scriptsListPathConstant            = "/scripts/?showHiddenScripts=true"
	scriptsDetailPathTemplateConstant  = "/scripts/%s/download/?with_snippets=false"
	scriptsUpdatePathTemplateConstant  = "/scripts/%s/"
	snippetsListPathConstant           = "/scripts/snippets/"
	snippetsUpdatePathTemplateConstant = "/scripts/snippets/%s/"
	scriptWireCodeFieldConstant        = "script_body"
	snippetWireCodeFieldConstant       = "code"
	scriptTypeFieldConstant            = "script_type"
	userDefinedScriptTypeConstant      = "userdefined"
	unknownKindTemplateConstant        = "%w: %q"
	emptyIdentifierMessageConstant     = "entity identifier must be provided"
	endpointUnsupportedMessageConstant = "endpoint not supported for entity kind"
)

// Kind identifies an entity variant.
type Kind string

// Supported entity kinds.
const (
	KindScript  Kind = "script"
	KindSnippet Kind = "snippet"
)

// ErrUnknownKind indicates a kind without a registered descriptor.
var ErrUnknownKind = errors.New("unknown entity kind")

// ErrEmptyIdentifier indicates an endpoint was requested for an empty identifier.
var ErrEmptyIdentifier = errors.New(emptyIdentifierMessageConstant)

// ErrEndpointUnsupported indicates the kind does not expose the requested endpoint.
var ErrEndpointUnsupported = errors.New(endpointUnsupportedMessageConstant)

// KindDescriptor captures everything that differs between scripts and snippets.
type KindDescriptor struct {
	Kind                Kind
	ContentRoot         string
	MetadataRoot        string
	ListPath            string
	DetailPathTemplate  string
	UpdatePathTemplate  string
	WireCodeField       string
	RequiresDetailFetch bool
	TalliesShell        bool
	FilterField         string
	FilterValue         string
}

var scriptDescriptor = KindDescriptor{
	Kind:                KindScript,
	ContentRoot:         scriptsContentRootConstant,
	MetadataRoot:        scriptsMetadataRootConstant,
	ListPath:            scriptsListPathConstant,
	DetailPathTemplate:  scriptsDetailPathTemplateConstant,
	UpdatePathTemplate:  scriptsUpdatePathTemplateConstant,
	WireCodeField:       scriptWireCodeFieldConstant,
	RequiresDetailFetch: true,
	TalliesShell:        true,
	FilterField:         scriptTypeFieldConstant,
	FilterValue:         userDefinedScriptTypeConstant,
}

var snippetDescriptor = KindDescriptor{
	Kind:               KindSnippet,
	ContentRoot:        snippetsContentRootConstant,
	MetadataRoot:       snippetsMetadataRootConstant,
	ListPath:           snippetsListPathConstant,
	UpdatePathTemplate: snippetsUpdatePathTemplateConstant,
	WireCodeField:      snippetWireCodeFieldConstant,
}

// Descriptors returns the descriptors of every supported kind in processing order.
func Descriptors() []KindDescriptor {
	return []KindDescriptor{scriptDescriptor, snippetDescriptor}
}

// Describe resolves the descriptor registered for the provided kind.
func Describe(kind Kind) (KindDescriptor, error) {
	switch kind {
	case KindScript:
		return scriptDescriptor, nil
	case KindSnippet:
		return snippetDescriptor, nil
	default:
		return KindDescriptor{}, fmt.Errorf(unknownKindTemplateConstant, ErrUnknownKind, string(kind))
	}
}

// Roots lists the content and metadata roots owned by the descriptor.
func (descriptor KindDescriptor) Roots() []string {
	return []string{descriptor.ContentRoot, descriptor.MetadataRoot}
}

// DetailPath renders the detail endpoint path for the identifier.
func (descriptor KindDescriptor) DetailPath(identifier string) (string, error) {
	return renderIdentifierPath(descriptor.DetailPathTemplate, identifier)
}

// UpdatePath renders the update endpoint path for the identifier.
func (descriptor KindDescriptor) UpdatePath(identifier string) (string, error) {
	return renderIdentifierPath(descriptor.UpdatePathTemplate, identifier)
}

// Accepts reports whether a listed payload belongs to the synchronized set.
func (descriptor KindDescriptor) Accepts(payload Payload) bool {
	if len(descriptor.FilterField) == 0 {
		return true
	}
	return payload.StringField(descriptor.FilterField) == descriptor.FilterValue
}

// ToWire converts a stored payload into the body expected by the update endpoint.
func (descriptor KindDescriptor) ToWire(payload Payload) Payload {
	wirePayload := payload.Clone()
	codeValue, hasCode := wirePayload[CodeFieldName]
	if !hasCode {
		codeValue = ""
	}
	delete(wirePayload, CodeFieldName)
	wirePayload[descriptor.WireCodeField] = codeValue
	return wirePayload
}

func renderIdentifierPath(template string, identifier string) (string, error) {
	if len(template) == 0 {
		return "", ErrEndpointUnsupported
	}
	trimmedIdentifier := strings.TrimSpace(identifier)
	if len(trimmedIdentifier) == 0 {
		return "", ErrEmptyIdentifier
	}
	return fmt.Sprintf(template, trimmedIdentifier), nil
}
