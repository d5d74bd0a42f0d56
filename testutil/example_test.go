package testutil_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/broady/apiservice/testutil"
)

func echoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Query().Get("fail") != "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "invalid_argument", "message": "fail requested"},
		})
		return
	}
	w.Header().Set("X-Echo", r.Header.Get("X-Echo"))
	_ = json.NewEncoder(w).Encode(map[string]any{
		"result": map[string]any{"method": r.Method, "path": r.URL.Path, "q": r.URL.Query()["q"]},
	})
}

func TestRequestBuilder(t *testing.T) {
	w := testutil.NewRequest().
		GET("/echo").
		WithQuery("q", "a").
		WithQuery("q", "b").
		WithHeader("X-Echo", "hello").
		Serve(http.HandlerFunc(echoHandler))

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertHeader(t, w, "X-Echo", "hello")
	testutil.AssertJSONResult(t, w, map[string]any{
		"method": "GET",
		"path":   "/echo",
		"q":      []string{"a", "b"},
	})
}

func TestRequestBuilder_JSONBody(t *testing.T) {
	req, _ := testutil.NewRequest().
		POST("/echo").
		WithJSON(map[string]string{"name": "alice"}).
		Build()

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	var body map[string]string
	assert.NoError(t, json.NewDecoder(req.Body).Decode(&body))
	assert.Equal(t, "alice", body["name"])
}

func TestAssertJSONError(t *testing.T) {
	w := testutil.NewRequest().
		GET("/echo").
		WithQuery("fail", "1").
		Serve(http.HandlerFunc(echoHandler))

	testutil.AssertStatus(t, w, http.StatusBadRequest)
	errResp := testutil.AssertJSONError(t, w, "invalid_argument")
	assert.Equal(t, "fail requested", errResp.Message)
}
