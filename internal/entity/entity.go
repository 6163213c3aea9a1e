package entity

import (
	"errors"
	"strings"
)

const (
	powerShellExtensionConstant      = ".ps1"
	pythonExtensionConstant          = ".py"
	cmdExtensionConstant             = ".bat"
	shellExtensionConstant           = ".sh"
	nushellExtensionConstant         = ".nu"
	defaultExtensionConstant         = ".txt"
	defaultEntityNameConstant        = "Unnamed Script"
	missingIdentifierMessageConstant = "payload does not carry an identifier"
)

// Shell identifies the interpreter an entity targets.
type Shell string

// Known shells.
const (
	ShellPowerShell Shell = "powershell"
	ShellPython     Shell = "python"
	ShellCmd        Shell = "cmd"
	ShellShell      Shell = "shell"
	ShellNushell    Shell = "nushell"
)

var shellExtensions = map[Shell]string{
	ShellPowerShell: powerShellExtensionConstant,
	ShellPython:     pythonExtensionConstant,
	ShellCmd:        cmdExtensionConstant,
	ShellShell:      shellExtensionConstant,
	ShellNushell:    nushellExtensionConstant,
}

// Extension maps the shell to the content file extension; unknown shells use .txt.
func (shell Shell) Extension() string {
	if extension, known := shellExtensions[shell]; known {
		return extension
	}
	return defaultExtensionConstant
}

// ErrMissingIdentifier indicates a payload lacked the remote identifier.
var ErrMissingIdentifier = errors.New(missingIdentifierMessageConstant)

// DefaultName is used when an entity has no usable name.
const DefaultName = defaultEntityNameConstant

// Entity is a single script or snippet as the mirror understands it.
type Entity struct {
	Kind       Kind
	Identifier string
	Name       string
	Category   string
	Shell      Shell
	Code       string
	Metadata   Payload
}

// FromPayload builds an entity from an API payload. Identifiers are never synthesized.
func FromPayload(kind Kind, payload Payload) (Entity, error) {
	identifier, hasIdentifier := payload.Identifier()
	if !hasIdentifier {
		return Entity{}, ErrMissingIdentifier
	}

	name := DefaultName
	if payload.HasField(NameFieldName) {
		name = payload.StringField(NameFieldName)
	}

	return Entity{
		Kind:       kind,
		Identifier: identifier,
		Name:       name,
		Category:   strings.TrimSpace(payload.StringField(CategoryFieldName)),
		Shell:      Shell(payload.StringField(ShellFieldName)),
		Code:       payload.Code(),
		Metadata:   payload,
	}, nil
}
