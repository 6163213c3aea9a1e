package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/rmmsync/internal/entity"
	"github.com/temirov/rmmsync/internal/rmmapi"
)

const (
	httpSchemeConstant                   = "http"
	httpsDefaultPortConstant             = "443"
	httpDefaultPortConstant              = "80"
	tcpNetworkConstant                   = "tcp"
	defaultProbeTimeoutConstant          = 5 * time.Second
	missingSettingsMessageConstant       = "missing required settings"
	connectivityFailedMessageConstant    = "api host unreachable"
	credentialsRejectedMessageConstant   = "api key rejected"
	layoutFailedMessageConstant          = "mirror folders could not be prepared"
	dialerNotConfiguredMessageConstant   = "network dialer not configured"
	verifierNotConfiguredMessageConstant = "access verifier not configured"
	layoutNotConfiguredMessageConstant   = "mirror layout not configured"
	missingSettingsTemplateConstant      = "%s: %s"
	missingSettingDescriptionTemplate    = "%s (%s): %s"
	checkFailureTemplateConstant         = "%w: %w"
	dialAddressErrorTemplateConstant     = "cannot derive host from %q: %w"
	baseURLHostMissingMessageConstant    = "no host"
	missingSettingsSeparatorConstant     = ", "
	connectivityPassedMessageConstant    = "connectivity to api host ok"
	credentialsPassedMessageConstant     = "api key valid for read access"
	layoutPassedMessageConstant          = "mirror folders verified"
	layoutSkippedMessageConstant         = "file writes disabled, mirror folders not created"
	settingsMissingLogMessageConstant    = "required setting missing"
	logFieldAddressConstant              = "address"
	logFieldAPIKeyConstant               = "api_key"
	logFieldSettingConstant              = "setting"
	logFieldEnvironmentConstant          = "environment"
	logFieldDescriptionConstant          = "description"
	logFieldTimeoutConstant              = "timeout"
)

var (
	// ErrMissingSettings matches every MissingSettingsError.
	ErrMissingSettings = errors.New(missingSettingsMessageConstant)
	// ErrConnectivity indicates the API host could not be reached.
	ErrConnectivity = errors.New(connectivityFailedMessageConstant)
	// ErrCredentials indicates the API key was rejected by the read probe.
	ErrCredentials = errors.New(credentialsRejectedMessageConstant)
	// ErrLayout indicates the mirror folders could not be created.
	ErrLayout = errors.New(layoutFailedMessageConstant)
	// ErrDialerNotConfigured indicates the checker was created without a dialer.
	ErrDialerNotConfigured = errors.New(dialerNotConfiguredMessageConstant)
	// ErrVerifierNotConfigured indicates the checker was created without an access verifier.
	ErrVerifierNotConfigured = errors.New(verifierNotConfiguredMessageConstant)
	// ErrLayoutNotConfigured indicates layout creation was requested without a layout.
	ErrLayoutNotConfigured = errors.New(layoutNotConfiguredMessageConstant)
)

// Setting describes one required configuration value.
type Setting struct {
	Key         string
	Environment string
	Description string
	Value       string
}

// MissingSettingsError names every required setting left empty.
type MissingSettingsError struct {
	Missing []Setting
}

// Error lists the missing settings by configuration key.
func (missingError MissingSettingsError) Error() string {
	names := make([]string, 0, len(missingError.Missing))
	for _, setting := range missingError.Missing {
		names = append(names, setting.Key)
	}
	return fmt.Sprintf(missingSettingsTemplateConstant, missingSettingsMessageConstant, strings.Join(names, missingSettingsSeparatorConstant))
}

// Is matches ErrMissingSettings.
func (missingError MissingSettingsError) Is(target error) bool {
	return target == ErrMissingSettings
}

// Descriptions renders one help line per missing setting.
func (missingError MissingSettingsError) Descriptions() []string {
	lines := make([]string, 0, len(missingError.Missing))
	for _, setting := range missingError.Missing {
		lines = append(lines, fmt.Sprintf(missingSettingDescriptionTemplate, setting.Key, setting.Environment, setting.Description))
	}
	return lines
}

// CheckSettings reports every setting whose value is blank.
func CheckSettings(logger *zap.Logger, settings []Setting) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	var missing []Setting
	for _, setting := range settings {
		if len(strings.TrimSpace(setting.Value)) > 0 {
			continue
		}
		logger.Error(settingsMissingLogMessageConstant,
			zap.String(logFieldSettingConstant, setting.Key),
			zap.String(logFieldEnvironmentConstant, setting.Environment),
			zap.String(logFieldDescriptionConstant, setting.Description),
		)
		missing = append(missing, setting)
	}
	if len(missing) > 0 {
		return MissingSettingsError{Missing: missing}
	}
	return nil
}

// Dialer opens network connections.
type Dialer interface {
	DialContext(executionContext context.Context, network string, address string) (net.Conn, error)
}

// AccessVerifier confirms the API key is accepted.
type AccessVerifier interface {
	VerifyReadAccess(executionContext context.Context) error
}

// Layout creates the mirror folders.
type Layout interface {
	EnsureLayout(descriptors []entity.KindDescriptor) error
}

// Dependencies wires collaborators into a Checker.
type Dependencies struct {
	Dialer   Dialer
	Verifier AccessVerifier
	Layout   Layout
	Logger   *zap.Logger
}

// Options configure the checks.
type Options struct {
	BaseURL      string
	APIKey       string
	ProbeTimeout time.Duration
	// EnsureLayout creates missing mirror folders; disabled when file writes are off.
	EnsureLayout bool
	Descriptors  []entity.KindDescriptor
}

// Checker runs the checks that must pass before any sync work starts.
type Checker struct {
	dialer   Dialer
	verifier AccessVerifier
	layout   Layout
	logger   *zap.Logger
	options  Options
}

// NewChecker validates dependencies and constructs a Checker.
func NewChecker(dependencies Dependencies, options Options) (*Checker, error) {
	if dependencies.Dialer == nil {
		return nil, ErrDialerNotConfigured
	}
	if dependencies.Verifier == nil {
		return nil, ErrVerifierNotConfigured
	}
	if options.EnsureLayout && dependencies.Layout == nil {
		return nil, ErrLayoutNotConfigured
	}
	if options.ProbeTimeout <= 0 {
		options.ProbeTimeout = defaultProbeTimeoutConstant
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		dialer:   dependencies.Dialer,
		verifier: dependencies.Verifier,
		layout:   dependencies.Layout,
		logger:   logger,
		options:  options,
	}, nil
}

// Run probes connectivity, then credentials, then prepares the mirror folders.
// The first failure stops the run.
func (checker *Checker) Run(executionContext context.Context) error {
	if connectivityError := checker.checkConnectivity(executionContext); connectivityError != nil {
		return connectivityError
	}

	if verifyError := checker.verifier.VerifyReadAccess(executionContext); verifyError != nil {
		return fmt.Errorf(checkFailureTemplateConstant, ErrCredentials, verifyError)
	}
	checker.logger.Info(credentialsPassedMessageConstant, zap.String(logFieldAPIKeyConstant, rmmapi.ObfuscateKey(checker.options.APIKey)))

	if !checker.options.EnsureLayout {
		checker.logger.Info(layoutSkippedMessageConstant)
		return nil
	}
	if layoutError := checker.layout.EnsureLayout(checker.options.Descriptors); layoutError != nil {
		return fmt.Errorf(checkFailureTemplateConstant, ErrLayout, layoutError)
	}
	checker.logger.Info(layoutPassedMessageConstant)
	return nil
}

func (checker *Checker) checkConnectivity(executionContext context.Context) error {
	address, addressError := DialAddress(checker.options.BaseURL)
	if addressError != nil {
		return fmt.Errorf(checkFailureTemplateConstant, ErrConnectivity, addressError)
	}

	dialContext, cancel := context.WithTimeout(executionContext, checker.options.ProbeTimeout)
	defer cancel()
	connection, dialError := checker.dialer.DialContext(dialContext, tcpNetworkConstant, address)
	if dialError != nil {
		return fmt.Errorf(checkFailureTemplateConstant, ErrConnectivity, dialError)
	}
	_ = connection.Close()

	checker.logger.Info(connectivityPassedMessageConstant,
		zap.String(logFieldAddressConstant, address),
		zap.Duration(logFieldTimeoutConstant, checker.options.ProbeTimeout),
	)
	return nil
}

// DialAddress derives host:port from an API base URL. The port defaults to
// 443 for https and 80 for http; a URL without a scheme is treated as https.
func DialAddress(baseURL string) (string, error) {
	normalizedBaseURL, normalizeError := rmmapi.NormalizeBaseURL(baseURL)
	if normalizeError != nil {
		return "", normalizeError
	}
	parsedURL, parseError := url.Parse(normalizedBaseURL)
	if parseError != nil {
		return "", fmt.Errorf(dialAddressErrorTemplateConstant, baseURL, parseError)
	}
	host := parsedURL.Hostname()
	if len(host) == 0 {
		return "", fmt.Errorf(dialAddressErrorTemplateConstant, baseURL, errors.New(baseURLHostMissingMessageConstant))
	}
	port := parsedURL.Port()
	if len(port) == 0 {
		port = httpsDefaultPortConstant
		if strings.EqualFold(parsedURL.Scheme, httpSchemeConstant) {
			port = httpDefaultPortConstant
		}
	}
	return net.JoinHostPort(host, port), nil
}
