package apiservice

import (
	"net/http"
	"net/url"
	"strings"
)

// Request is the host's view of an inbound request.
type Request interface {
	// Path is the request path matched against operation routes.
	Path() string
	// Verb is the request method, e.g. "GET".
	Verb() string
	// Query is the query-like parameter source.
	Query() url.Values
	// Header carries request metadata for authorization predicates.
	Header() http.Header
}

type request struct {
	verb   string
	path   string
	query  url.Values
	header http.Header
}

func (r *request) Path() string        { return r.path }
func (r *request) Verb() string        { return r.verb }
func (r *request) Query() url.Values   { return r.query }
func (r *request) Header() http.Header { return r.header }

// NewRequest returns a Request for hosts that are not net/http based.
func NewRequest(verb, path string, query url.Values) Request {
	if query == nil {
		query = url.Values{}
	}
	return &request{
		verb:   strings.ToUpper(verb),
		path:   path,
		query:  query,
		header: http.Header{},
	}
}

// FromHTTPRequest adapts an *http.Request.
func FromHTTPRequest(r *http.Request) Request {
	return &request{
		verb:   r.Method,
		path:   r.URL.Path,
		query:  r.URL.Query(),
		header: r.Header,
	}
}
