package rmmapi

import "strings"

const (
	obfuscationVisibleCharactersConstant = 3
	obfuscationMaskCharacterConstant     = "*"
)

// ObfuscateKey keeps the first and last three characters of a key and masks the rest.
// Keys too short to keep both ends are masked entirely.
func ObfuscateKey(apiKey string) string {
	keyRunes := []rune(apiKey)
	if len(keyRunes) <= 2*obfuscationVisibleCharactersConstant {
		return strings.Repeat(obfuscationMaskCharacterConstant, len(keyRunes))
	}
	maskedLength := len(keyRunes) - 2*obfuscationVisibleCharactersConstant
	return string(keyRunes[:obfuscationVisibleCharactersConstant]) +
		strings.Repeat(obfuscationMaskCharacterConstant, maskedLength) +
		string(keyRunes[len(keyRunes)-obfuscationVisibleCharactersConstant:])
}
