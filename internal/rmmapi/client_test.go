package rmmapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rmmsync/internal/entity"
	"github.com/temirov/rmmsync/internal/rmmapi"
)

const (
	testAPIKeyConstant = "abcdef123456xyz"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	apiKey string
	body   map[string]any
}

func newRecordingServer(testInstance *testing.T, handler func(writer http.ResponseWriter, request *http.Request)) (*httptest.Server, *[]recordedRequest) {
	testInstance.Helper()
	recorded := []recordedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		entry := recordedRequest{
			method: request.Method,
			path:   request.URL.Path,
			query:  request.URL.RawQuery,
			apiKey: request.Header.Get("X-API-KEY"),
		}
		if request.Body != nil {
			content, _ := io.ReadAll(request.Body)
			if len(content) > 0 {
				require.NoError(testInstance, json.Unmarshal(content, &entry.body))
			}
		}
		recorded = append(recorded, entry)
		handler(writer, request)
	}))
	testInstance.Cleanup(server.Close)
	return server, &recorded
}

func newTestClient(testInstance *testing.T, baseURL string) *rmmapi.Client {
	testInstance.Helper()
	client, creationError := rmmapi.NewClient(rmmapi.Options{BaseURL: baseURL, APIKey: testAPIKeyConstant})
	require.NoError(testInstance, creationError)
	return client
}

func TestNewClientValidation(testInstance *testing.T) {
	testCases := []struct {
		name        string
		options     rmmapi.Options
		expectError error
	}{
		{name: "missing_base_url", options: rmmapi.Options{APIKey: "k"}, expectError: rmmapi.ErrBaseURLRequired},
		{name: "missing_api_key", options: rmmapi.Options{BaseURL: "api.example.com"}, expectError: rmmapi.ErrAPIKeyRequired},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, creationError := rmmapi.NewClient(testCase.options)
			require.ErrorIs(testInstance, creationError, testCase.expectError)
		})
	}
}

func TestNormalizeBaseURL(testInstance *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "api-rmm.example.com", expected: "https://api-rmm.example.com"},
		{input: "https://api-rmm.example.com/", expected: "https://api-rmm.example.com"},
		{input: "http://localhost:8000//", expected: "http://localhost:8000"},
		{input: "  api.example.com/rmm/ ", expected: "https://api.example.com/rmm"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.input, func(testInstance *testing.T) {
			normalized, normalizeError := rmmapi.NormalizeBaseURL(testCase.input)
			require.NoError(testInstance, normalizeError)
			require.Equal(testInstance, testCase.expected, normalized)
		})
	}
}

func TestListSendsAPIKeyAndDecodes(testInstance *testing.T) {
	server, recorded := newRecordingServer(testInstance, func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`[{"id": 1, "name": "a", "script_type": "userdefined"}, {"id": 2, "name": "b", "script_type": "builtin"}]`))
	})
	client := newTestClient(testInstance, server.URL)
	descriptor, _ := entity.Describe(entity.KindScript)

	payloads, listError := client.List(context.Background(), descriptor)
	require.NoError(testInstance, listError)
	require.Len(testInstance, payloads, 2)
	require.Len(testInstance, *recorded, 1)
	require.Equal(testInstance, "/scripts/", (*recorded)[0].path)
	require.Equal(testInstance, "showHiddenScripts=true", (*recorded)[0].query)
	require.Equal(testInstance, testAPIKeyConstant, (*recorded)[0].apiKey)
}

func TestFetchDetailUsesDownloadEndpoint(testInstance *testing.T) {
	server, recorded := newRecordingServer(testInstance, func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`{"id": 9, "code": "Get-Date"}`))
	})
	client := newTestClient(testInstance, server.URL)
	descriptor, _ := entity.Describe(entity.KindScript)

	payload, fetchError := client.FetchDetail(context.Background(), descriptor, "9")
	require.NoError(testInstance, fetchError)
	require.Equal(testInstance, "Get-Date", payload.Code())
	require.Equal(testInstance, "/scripts/9/download/", (*recorded)[0].path)
	require.Equal(testInstance, "with_snippets=false", (*recorded)[0].query)
}

func TestUpdateRenamesCodeFieldPerKind(testInstance *testing.T) {
	server, recorded := newRecordingServer(testInstance, func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	client := newTestClient(testInstance, server.URL)
	scriptDescriptor, _ := entity.Describe(entity.KindScript)
	snippetDescriptor, _ := entity.Describe(entity.KindSnippet)
	stored := entity.Payload{"id": json.Number("4"), "name": "n", "code": "new body"}

	require.NoError(testInstance, client.Update(context.Background(), scriptDescriptor, "4", stored))
	require.NoError(testInstance, client.Update(context.Background(), snippetDescriptor, "4", stored))

	require.Len(testInstance, *recorded, 2)
	require.Equal(testInstance, http.MethodPut, (*recorded)[0].method)
	require.Equal(testInstance, "/scripts/4/", (*recorded)[0].path)
	require.Equal(testInstance, "new body", (*recorded)[0].body["script_body"])
	require.NotContains(testInstance, (*recorded)[0].body, "code")

	require.Equal(testInstance, "/scripts/snippets/4/", (*recorded)[1].path)
	require.Equal(testInstance, "new body", (*recorded)[1].body["code"])
	require.NotContains(testInstance, (*recorded)[1].body, "script_body")
}

func TestNonSuccessStatusReturnsStatusError(testInstance *testing.T) {
	server, _ := newRecordingServer(testInstance, func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, "denied", http.StatusForbidden)
	})
	client := newTestClient(testInstance, server.URL)
	descriptor, _ := entity.Describe(entity.KindSnippet)

	_, listError := client.List(context.Background(), descriptor)
	require.Error(testInstance, listError)
	require.ErrorIs(testInstance, listError, rmmapi.ErrForbidden)

	var statusError *rmmapi.StatusError
	require.ErrorAs(testInstance, listError, &statusError)
	require.Equal(testInstance, http.StatusForbidden, statusError.StatusCode)
	require.Contains(testInstance, statusError.Body, "denied")
}

func TestVerifyReadAccessHonorsProbeTimeout(testInstance *testing.T) {
	release := make(chan struct{})
	server, _ := newRecordingServer(testInstance, func(writer http.ResponseWriter, request *http.Request) {
		select {
		case <-release:
		case <-request.Context().Done():
		}
	})
	defer close(release)

	client, creationError := rmmapi.NewClient(rmmapi.Options{
		BaseURL:  server.URL,
		APIKey:   testAPIKeyConstant,
		Timeouts: rmmapi.Timeouts{Probe: 50 * time.Millisecond},
	})
	require.NoError(testInstance, creationError)
	require.Equal(testInstance, 120*time.Second, client.Timeouts().Write)

	verifyError := client.VerifyReadAccess(context.Background())
	require.Error(testInstance, verifyError)
	require.ErrorIs(testInstance, verifyError, context.DeadlineExceeded)
}

func TestVerifyReadAccessUnauthorized(testInstance *testing.T) {
	server, recorded := newRecordingServer(testInstance, func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
	})
	client := newTestClient(testInstance, server.URL)

	verifyError := client.VerifyReadAccess(context.Background())
	require.ErrorIs(testInstance, verifyError, rmmapi.ErrUnauthorized)
	require.Equal(testInstance, "/scripts/", (*recorded)[0].path)
}

func TestPreviewAndObfuscation(testInstance *testing.T) {
	require.Equal(testInstance, "short", rmmapi.Preview("short"))
	longText := strings.Repeat("x", 1001)
	require.Equal(testInstance, strings.Repeat("x", 1000)+"...", rmmapi.Preview(longText))

	require.Equal(testInstance, "abc*********xyz", rmmapi.ObfuscateKey(testAPIKeyConstant))
	require.Equal(testInstance, "******", rmmapi.ObfuscateKey("abcdef"))
	require.Equal(testInstance, "", rmmapi.ObfuscateKey(""))
}
