package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	toggleTrueCanonicalValue               = "true"
	toggleFalseCanonicalValue              = "false"
	toggleTypeNameConstant                 = "bool"
	toggleParseErrorTemplate               = "invalid toggle value %q (use yes/no, true/false, on/off or 1/0)"
	toggleArgumentTruePlaceholderConstant  = "<YES|no>"
	toggleArgumentFalsePlaceholderConstant = "<yes|NO>"
	longFlagPrefixConstant                 = "--"
	flagValueSeparatorConstant             = "="
	argumentTerminatorConstant             = "--"
)

var (
	trueLiterals  = []string{"true", "yes", "on", "1", "t", "y"}
	falseLiterals = []string{"false", "no", "off", "0", "f", "n"}
)

// ToggleRegistry tracks the toggle flags of one command so their values may
// be given as a separate argument ("--push no") as well as "--push=no".
type ToggleRegistry struct {
	names map[string]struct{}
}

// NewToggleRegistry returns an empty registry.
func NewToggleRegistry() *ToggleRegistry {
	return &ToggleRegistry{names: map[string]struct{}{}}
}

// Add registers a boolean flag accepting yes/no style values. A bare flag
// means true.
func (registry *ToggleRegistry) Add(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	if flagSet == nil || target == nil || len(name) == 0 {
		return
	}
	*target = defaultValue
	flagSet.Var(&toggleValue{target: target}, name, formatToggleUsage(usage, defaultValue))
	flagSet.Lookup(name).NoOptDefVal = toggleTrueCanonicalValue
	registry.names[name] = struct{}{}
}

// Normalize joins "--toggle value" pairs into "--toggle=value" so pflag
// does not treat the value as a positional argument.
func (registry *ToggleRegistry) Normalize(arguments []string) []string {
	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		current := arguments[index]
		if current == argumentTerminatorConstant {
			return append(normalized, arguments[index:]...)
		}
		if registry.expectsSeparateValue(current) && index+1 < len(arguments) && isToggleLiteral(arguments[index+1]) {
			normalized = append(normalized, current+flagValueSeparatorConstant+arguments[index+1])
			index++
			continue
		}
		normalized = append(normalized, current)
	}
	return normalized
}

func (registry *ToggleRegistry) expectsSeparateValue(argument string) bool {
	if !strings.HasPrefix(argument, longFlagPrefixConstant) || strings.Contains(argument, flagValueSeparatorConstant) {
		return false
	}
	_, registered := registry.names[strings.TrimPrefix(argument, longFlagPrefixConstant)]
	return registered
}

// ParseToggle converts a yes/no style literal to a bool.
func ParseToggle(rawValue string) (bool, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if len(normalizedValue) == 0 {
		return true, nil
	}
	for _, literal := range trueLiterals {
		if normalizedValue == literal {
			return true, nil
		}
	}
	for _, literal := range falseLiterals {
		if normalizedValue == literal {
			return false, nil
		}
	}
	return false, fmt.Errorf(toggleParseErrorTemplate, rawValue)
}

func isToggleLiteral(candidate string) bool {
	if len(strings.TrimSpace(candidate)) == 0 {
		return false
	}
	_, parseError := ParseToggle(candidate)
	return parseError == nil
}

func formatToggleUsage(description string, defaultValue bool) string {
	placeholder := toggleArgumentFalsePlaceholderConstant
	if defaultValue {
		placeholder = toggleArgumentTruePlaceholderConstant
	}
	trimmed := strings.TrimSpace(description)
	if len(trimmed) == 0 {
		return fmt.Sprintf("`%s`", placeholder)
	}
	return fmt.Sprintf("`%s` %s", placeholder, trimmed)
}

type toggleValue struct {
	target *bool
}

func (value *toggleValue) Set(rawValue string) error {
	parsedValue, parseError := ParseToggle(rawValue)
	if parseError != nil {
		return parseError
	}
	*value.target = parsedValue
	return nil
}

func (value *toggleValue) String() string {
	if value == nil || value.target == nil || !*value.target {
		return toggleFalseCanonicalValue
	}
	return toggleTrueCanonicalValue
}

func (value *toggleValue) Type() string {
	return toggleTypeNameConstant
}
