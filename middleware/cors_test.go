package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS_Origins(t *testing.T) {
	tests := []struct {
		name            string
		cfg             *CORSConfig
		origin          string
		wantOrigin      string
		wantCredentials string
	}{
		{name: "nil config allows any origin", origin: "https://app.example.com", wantOrigin: "*"},
		{name: "no origin header", cfg: &CORSConfig{}, wantOrigin: "*"},
		{
			name:       "listed origin echoed",
			cfg:        &CORSConfig{AllowOrigins: []string{"https://app.example.com"}},
			origin:     "https://app.example.com",
			wantOrigin: "https://app.example.com",
		},
		{
			name:   "unlisted origin",
			cfg:    &CORSConfig{AllowOrigins: []string{"https://app.example.com"}},
			origin: "https://evil.example.com",
		},
		{
			name:            "wildcard with credentials echoes origin",
			cfg:             &CORSConfig{AllowCredentials: true},
			origin:          "https://app.example.com",
			wantOrigin:      "https://app.example.com",
			wantCredentials: "true",
		},
		{
			name:   "credentials not sent for unlisted origin",
			cfg:    &CORSConfig{AllowOrigins: []string{"https://app.example.com"}, AllowCredentials: true},
			origin: "https://evil.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/forecast/paris", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()

			CORS(tt.cfg)(okHandler(&called)).ServeHTTP(w, req)

			assert.True(t, called)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCredentials, w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	var called bool
	handler := CORS(&CORSConfig{MaxAge: 600})(okHandler(&called))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/invoices/42", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, X-Api-Key, X-Request-ID", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_PlainOptionsPassesThrough(t *testing.T) {
	var called bool
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/invoices/42", nil)
	w := httptest.NewRecorder()

	CORS(nil)(okHandler(&called)).ServeHTTP(w, req)

	assert.True(t, called)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_CustomHeaders(t *testing.T) {
	var called bool
	cfg := &CORSConfig{
		AllowMethods:  []string{"GET"},
		AllowHeaders:  []string{"Authorization"},
		ExposeHeaders: []string{"X-Request-ID", "X-Trace"},
	}
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/weather/report/paris", nil)
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()

	CORS(cfg)(okHandler(&called)).ServeHTTP(w, req)

	assert.Equal(t, "GET", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "X-Request-ID, X-Trace", w.Header().Get("Access-Control-Expose-Headers"))
	assert.Empty(t, w.Header().Get("Access-Control-Max-Age"))
}
