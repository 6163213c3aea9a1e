package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// CodeFieldName names the field holding entity code inside stored payloads.
	CodeFieldName = "code"
	// IdentifierFieldName names the remote identifier field.
	IdentifierFieldName = "id"
	// NameFieldName names the display name field.
	NameFieldName = "name"
	// CategoryFieldName names the optional category field.
	CategoryFieldName = "category"
	// ShellFieldName names the shell field.
	ShellFieldName = "shell"

	payloadDecodeErrorTemplateConstant     = "failed to decode payload: %w"
	payloadListDecodeErrorTemplateConstant = "failed to decode payload list: %w"
	trailingDataMessageConstant            = "unexpected trailing data after payload"
)

// ErrTrailingData indicates a JSON document contained more than one value.
var ErrTrailingData = errors.New(trailingDataMessageConstant)

// Payload is a decoded API object kept verbatim for round-tripping.
type Payload map[string]any

// DecodePayload decodes a single JSON object preserving numeric precision.
func DecodePayload(data []byte) (Payload, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var payload Payload
	if decodeError := decoder.Decode(&payload); decodeError != nil {
		return nil, fmt.Errorf(payloadDecodeErrorTemplateConstant, decodeError)
	}
	if decoder.More() {
		return nil, fmt.Errorf(payloadDecodeErrorTemplateConstant, ErrTrailingData)
	}
	if payload == nil {
		payload = Payload{}
	}
	return payload, nil
}

// DecodePayloadList decodes a JSON array of objects preserving numeric precision.
func DecodePayloadList(data []byte) ([]Payload, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var payloads []Payload
	if decodeError := decoder.Decode(&payloads); decodeError != nil {
		return nil, fmt.Errorf(payloadListDecodeErrorTemplateConstant, decodeError)
	}
	filtered := make([]Payload, 0, len(payloads))
	for _, payload := range payloads {
		if payload == nil {
			continue
		}
		filtered = append(filtered, payload)
	}
	return filtered, nil
}

// Clone returns a shallow copy of the payload.
func (payload Payload) Clone() Payload {
	duplicate := make(Payload, len(payload))
	for key, value := range payload {
		duplicate[key] = value
	}
	return duplicate
}

// Merge overlays override on top of base; fields present in override win.
func Merge(base Payload, override Payload) Payload {
	merged := base.Clone()
	for key, value := range override {
		merged[key] = value
	}
	return merged
}

// StringField renders a scalar field as text; missing or null fields yield an empty string.
func (payload Payload) StringField(fieldName string) string {
	value, exists := payload[fieldName]
	if !exists || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return ""
	}
}

// HasField reports whether the field exists with a non-null value.
func (payload Payload) HasField(fieldName string) bool {
	value, exists := payload[fieldName]
	return exists && value != nil
}

// Identifier returns the remote identifier when present.
func (payload Payload) Identifier() (string, bool) {
	identifier := strings.TrimSpace(payload.StringField(IdentifierFieldName))
	return identifier, len(identifier) > 0
}

// Code returns the code field, empty when absent.
func (payload Payload) Code() string {
	return payload.StringField(CodeFieldName)
}

// WithCode returns a copy of the payload with the code field replaced.
func (payload Payload) WithCode(code string) Payload {
	updated := payload.Clone()
	updated[CodeFieldName] = code
	return updated
}
