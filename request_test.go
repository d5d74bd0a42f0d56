package apiservice

import (
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequest(t *testing.T) {
	req := NewRequest("post", "/api/v1/weather/forecast/paris", nil)

	assert.Equal(t, "POST", req.Verb())
	assert.Equal(t, "/api/v1/weather/forecast/paris", req.Path())
	assert.NotNil(t, req.Query())
	assert.NotNil(t, req.Header())

	req = NewRequest("GET", "/", url.Values{"days": {"3"}})
	assert.Equal(t, "3", req.Query().Get("days"))
}

func TestFromHTTPRequest(t *testing.T) {
	hr := httptest.NewRequest("DELETE", "/api/v1/invoices/42?force=true", nil)
	hr.Header.Set("X-Api-Key", "demo")

	req := FromHTTPRequest(hr)
	assert.Equal(t, "DELETE", req.Verb())
	assert.Equal(t, "/api/v1/invoices/42", req.Path())
	assert.Equal(t, "true", req.Query().Get("force"))
	assert.Equal(t, "demo", req.Header().Get("X-Api-Key"))
}
