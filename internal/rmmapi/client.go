package rmmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/temirov/rmmsync/internal/entity"
)

const (
	apiKeyHeaderNameConstant            = "X-API-KEY"
	contentTypeHeaderNameConstant       = "Content-Type"
	acceptHeaderNameConstant            = "Accept"
	jsonContentTypeConstant             = "application/json"
	httpsSchemePrefixConstant           = "https://"
	httpSchemePrefixConstant            = "http://"
	urlPathSeparatorConstant            = "/"
	credentialProbePathConstant         = "/scripts/"
	previewCharacterLimitConstant       = 1000
	previewEllipsisConstant             = "..."
	responseBodyLimitConstant           = 64 << 20
	errorBodyLogLimitConstant           = 512
	defaultReadTimeoutConstant          = 30 * time.Second
	defaultWriteTimeoutConstant         = 120 * time.Second
	defaultProbeTimeoutConstant         = 5 * time.Second
	baseURLRequiredMessageConstant      = "api base url must be provided"
	apiKeyRequiredMessageConstant       = "api key must be provided"
	baseURLInvalidTemplateConstant      = "invalid api base url %q: %w"
	requestBuildErrorTemplateConstant   = "failed to build %s request for %s: %w"
	requestErrorTemplateConstant        = "%s %s failed: %w"
	responseReadErrorTemplateConstant   = "failed to read response from %s: %w"
	requestEncodeErrorTemplateConstant  = "failed to encode request body for %s: %w"
	responseDecodeErrorTemplateConstant = "failed to decode response from %s: %w"
	statusErrorTemplateConstant         = "%s %s returned status %d"
	listFetchedMessageConstant          = "listing fetched"
	detailFetchedMessageConstant        = "detail fetched"
	updateRequestedMessageConstant      = "updating remote entity"
	updateAppliedMessageConstant        = "remote entity updated"
	logFieldKindConstant                = "kind"
	logFieldIdentifierConstant          = "id"
	logFieldCountConstant               = "count"
	logFieldLengthConstant              = "length"
	logFieldPreviewConstant             = "preview"
)

// ErrBaseURLRequired indicates the API base URL was empty.
var ErrBaseURLRequired = errors.New(baseURLRequiredMessageConstant)

// ErrAPIKeyRequired indicates the API key was empty.
var ErrAPIKeyRequired = errors.New(apiKeyRequiredMessageConstant)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// StatusError reports a non-success HTTP response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error describes the failed request.
func (statusError *StatusError) Error() string {
	return fmt.Sprintf(statusErrorTemplateConstant, statusError.Method, statusError.URL, statusError.StatusCode)
}

// Is maps well known status codes onto sentinel errors.
func (statusError *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return statusError.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return statusError.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return statusError.StatusCode == http.StatusNotFound
	default:
		return false
	}
}

// Timeouts bounds each class of API operation.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Probe time.Duration
}

// DefaultTimeouts returns 30s reads, 120s writes and a 5s credential probe.
func DefaultTimeouts() Timeouts {
	return Timeouts{Read: defaultReadTimeoutConstant, Write: defaultWriteTimeoutConstant, Probe: defaultProbeTimeoutConstant}
}

// Options configure a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeouts   Timeouts
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the remote script store.
type Client struct {
	baseURL    string
	apiKey     string
	timeouts   Timeouts
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient validates options and constructs a Client.
func NewClient(options Options) (*Client, error) {
	if len(strings.TrimSpace(options.BaseURL)) == 0 {
		return nil, ErrBaseURLRequired
	}
	if len(strings.TrimSpace(options.APIKey)) == 0 {
		return nil, ErrAPIKeyRequired
	}
	normalizedBaseURL, normalizeError := NormalizeBaseURL(options.BaseURL)
	if normalizeError != nil {
		return nil, normalizeError
	}

	timeouts := options.Timeouts
	defaults := DefaultTimeouts()
	if timeouts.Read <= 0 {
		timeouts.Read = defaults.Read
	}
	if timeouts.Write <= 0 {
		timeouts.Write = defaults.Write
	}
	if timeouts.Probe <= 0 {
		timeouts.Probe = defaults.Probe
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    normalizedBaseURL,
		apiKey:     strings.TrimSpace(options.APIKey),
		timeouts:   timeouts,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// NormalizeBaseURL prepends https:// when no scheme is present and trims trailing slashes.
func NormalizeBaseURL(rawBaseURL string) (string, error) {
	trimmed := strings.TrimSpace(rawBaseURL)
	if len(trimmed) == 0 {
		return "", ErrBaseURLRequired
	}
	lowered := strings.ToLower(trimmed)
	if !strings.HasPrefix(lowered, httpsSchemePrefixConstant) && !strings.HasPrefix(lowered, httpSchemePrefixConstant) {
		trimmed = httpsSchemePrefixConstant + trimmed
	}
	trimmed = strings.TrimRight(trimmed, urlPathSeparatorConstant)

	parsed, parseError := url.Parse(trimmed)
	if parseError != nil {
		return "", fmt.Errorf(baseURLInvalidTemplateConstant, rawBaseURL, parseError)
	}
	if len(parsed.Host) == 0 {
		return "", fmt.Errorf(baseURLInvalidTemplateConstant, rawBaseURL, ErrBaseURLRequired)
	}
	return trimmed, nil
}

// BaseURL returns the normalized API base URL.
func (client *Client) BaseURL() string {
	return client.baseURL
}

// Timeouts returns the effective operation timeouts.
func (client *Client) Timeouts() Timeouts {
	return client.timeouts
}

// List returns every entity of the descriptor's kind that the remote store
// reports. Callers apply descriptor filtering.
func (client *Client) List(executionContext context.Context, descriptor entity.KindDescriptor) ([]entity.Payload, error) {
	responseBody, requestError := client.do(executionContext, http.MethodGet, descriptor.ListPath, nil, client.timeouts.Read)
	if requestError != nil {
		return nil, requestError
	}
	payloads, decodeError := entity.DecodePayloadList(responseBody)
	if decodeError != nil {
		return nil, fmt.Errorf(responseDecodeErrorTemplateConstant, client.endpoint(descriptor.ListPath), decodeError)
	}
	client.logger.Info(listFetchedMessageConstant, zap.String(logFieldKindConstant, string(descriptor.Kind)), zap.Int(logFieldCountConstant, len(payloads)))
	return payloads, nil
}

// FetchDetail retrieves the full payload, including code, of a single entity.
func (client *Client) FetchDetail(executionContext context.Context, descriptor entity.KindDescriptor, identifier string) (entity.Payload, error) {
	detailPath, pathError := descriptor.DetailPath(identifier)
	if pathError != nil {
		return nil, pathError
	}
	responseBody, requestError := client.do(executionContext, http.MethodGet, detailPath, nil, client.timeouts.Read)
	if requestError != nil {
		return nil, requestError
	}
	payload, decodeError := entity.DecodePayload(responseBody)
	if decodeError != nil {
		return nil, fmt.Errorf(responseDecodeErrorTemplateConstant, client.endpoint(detailPath), decodeError)
	}
	client.logger.Debug(detailFetchedMessageConstant, zap.String(logFieldKindConstant, string(descriptor.Kind)), zap.String(logFieldIdentifierConstant, identifier))
	return payload, nil
}

// Update replaces the remote entity with the stored payload. The code field is
// renamed to the descriptor's wire field before sending.
func (client *Client) Update(executionContext context.Context, descriptor entity.KindDescriptor, identifier string, payload entity.Payload) error {
	updatePath, pathError := descriptor.UpdatePath(identifier)
	if pathError != nil {
		return pathError
	}
	wirePayload := descriptor.ToWire(payload)
	body := wirePayload.StringField(descriptor.WireCodeField)
	client.logger.Info(
		updateRequestedMessageConstant,
		zap.String(logFieldKindConstant, string(descriptor.Kind)),
		zap.String(logFieldIdentifierConstant, identifier),
		zap.Int(logFieldLengthConstant, utf8.RuneCountInString(body)),
		zap.String(logFieldPreviewConstant, Preview(body)),
	)

	encodedBody, encodeError := json.Marshal(wirePayload)
	if encodeError != nil {
		return fmt.Errorf(requestEncodeErrorTemplateConstant, client.endpoint(updatePath), encodeError)
	}
	if _, requestError := client.do(executionContext, http.MethodPut, updatePath, encodedBody, client.timeouts.Write); requestError != nil {
		return requestError
	}
	client.logger.Info(updateAppliedMessageConstant, zap.String(logFieldKindConstant, string(descriptor.Kind)), zap.String(logFieldIdentifierConstant, identifier))
	return nil
}

// VerifyReadAccess confirms the API key can list scripts.
func (client *Client) VerifyReadAccess(executionContext context.Context) error {
	_, requestError := client.do(executionContext, http.MethodGet, credentialProbePathConstant, nil, client.timeouts.Probe)
	return requestError
}

// Preview truncates text to the logging preview limit.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= previewCharacterLimitConstant {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewCharacterLimitConstant]) + previewEllipsisConstant
}

func (client *Client) endpoint(requestPath string) string {
	return client.baseURL + requestPath
}

func (client *Client) do(executionContext context.Context, method string, requestPath string, body []byte, timeout time.Duration) ([]byte, error) {
	requestContext, cancel := context.WithTimeout(executionContext, timeout)
	defer cancel()

	endpoint := client.endpoint(requestPath)
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	request, buildError := http.NewRequestWithContext(requestContext, method, endpoint, bodyReader)
	if buildError != nil {
		return nil, fmt.Errorf(requestBuildErrorTemplateConstant, method, endpoint, buildError)
	}
	request.Header.Set(apiKeyHeaderNameConstant, client.apiKey)
	request.Header.Set(acceptHeaderNameConstant, jsonContentTypeConstant)
	if body != nil {
		request.Header.Set(contentTypeHeaderNameConstant, jsonContentTypeConstant)
	}

	response, requestError := client.httpClient.Do(request)
	if requestError != nil {
		return nil, fmt.Errorf(requestErrorTemplateConstant, method, endpoint, requestError)
	}
	defer response.Body.Close()

	responseBody, readError := io.ReadAll(io.LimitReader(response.Body, responseBodyLimitConstant))
	if readError != nil {
		return nil, fmt.Errorf(responseReadErrorTemplateConstant, endpoint, readError)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{
			Method:     method,
			URL:        endpoint,
			StatusCode: response.StatusCode,
			Body:       truncateBody(responseBody),
		}
	}
	return responseBody, nil
}

func truncateBody(body []byte) string {
	if len(body) <= errorBodyLogLimitConstant {
		return string(body)
	}
	return string(body[:errorBodyLogLimitConstant]) + previewEllipsisConstant
}
