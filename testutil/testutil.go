// Package testutil provides testing helpers for HTTP hosts of an apiservice
// dispatcher. It does not import the host packages and can be used from any
// package.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RequestBuilder helps construct test HTTP requests with fluent API.
type RequestBuilder struct {
	method  string
	path    string
	body    []byte
	headers map[string]string
	query   url.Values
}

// NewRequest creates a new request builder for GET /.
func NewRequest() *RequestBuilder {
	return &RequestBuilder{
		method:  http.MethodGet,
		path:    "/",
		headers: make(map[string]string),
		query:   url.Values{},
	}
}

// GET sets the HTTP method to GET.
func (b *RequestBuilder) GET(path string) *RequestBuilder {
	return b.Method(http.MethodGet, path)
}

// POST sets the HTTP method to POST.
func (b *RequestBuilder) POST(path string) *RequestBuilder {
	return b.Method(http.MethodPost, path)
}

// Method sets an arbitrary HTTP method and path.
func (b *RequestBuilder) Method(method, path string) *RequestBuilder {
	b.method = method
	b.path = path
	return b
}

// WithJSON sets the request body as JSON.
func (b *RequestBuilder) WithJSON(v any) *RequestBuilder {
	data, _ := json.Marshal(v)
	b.body = data
	b.headers["Content-Type"] = "application/json"
	return b
}

// WithBody sets the raw request body.
func (b *RequestBuilder) WithBody(body string) *RequestBuilder {
	b.body = []byte(body)
	return b
}

// WithHeader adds a header to the request.
func (b *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	b.headers[key] = value
	return b
}

// WithQuery adds a query parameter. Repeated keys keep every value.
func (b *RequestBuilder) WithQuery(key, value string) *RequestBuilder {
	b.query.Add(key, value)
	return b
}

// Build creates the HTTP request and ResponseRecorder.
func (b *RequestBuilder) Build() (*http.Request, *httptest.ResponseRecorder) {
	path := b.path
	if len(b.query) > 0 {
		path += "?" + b.query.Encode()
	}

	var req *http.Request
	if len(b.body) > 0 {
		req = httptest.NewRequest(b.method, path, bytes.NewReader(b.body))
	} else {
		req = httptest.NewRequest(b.method, path, nil)
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	return req, httptest.NewRecorder()
}

// Serve builds the request and serves it with h.
func (b *RequestBuilder) Serve(h http.Handler) *httptest.ResponseRecorder {
	req, w := b.Build()
	h.ServeHTTP(w, req)
	return w
}

// AssertStatus checks that the response has the expected status code.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Body: %s", w.Body.String())
}

// AssertJSONResult checks that the response is a {"result": ...} envelope
// whose result equals expected once both are encoded as JSON.
func AssertJSONResult(t *testing.T, w *httptest.ResponseRecorder, expected any) {
	t.Helper()

	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	want, err := json.Marshal(map[string]any{"result": expected})
	require.NoError(t, err)
	assert.JSONEq(t, string(want), w.Body.String())
}

// ErrorResponse represents a generic error with code and message.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// AssertJSONError checks that the response is an {"error": ...} envelope
// with the expected code, and returns the decoded error.
func AssertJSONError(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) *ErrorResponse {
	t.Helper()

	var envelope struct {
		Error *ErrorResponse `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), "Body: %s", w.Body.String())
	require.NotNil(t, envelope.Error, "Body: %s", w.Body.String())
	assert.Equal(t, expectedCode, envelope.Error.Code, "message: %s", envelope.Error.Message)
	return envelope.Error
}

// AssertHeader checks that a response header has the expected value.
func AssertHeader(t *testing.T, w *httptest.ResponseRecorder, key, expectedValue string) {
	t.Helper()
	assert.Equal(t, expectedValue, w.Header().Get(key), "header %s", key)
}

// DecodeJSON decodes the response body into the provided value.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "Body: %s", w.Body.String())
}
