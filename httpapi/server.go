// Package httpapi serves an apiservice dispatcher over HTTP.
//
// Requests are routed on {prefix}/{version}/{service}/...; the remainder of
// the path is matched against the operation routes of the resolved handler
// type. Query parameters, then top-level scalar fields of a JSON object
// body, become the explicit parameters of the call.
//
//	d := apiservice.NewDispatcher(catalog)
//	srv := httpapi.NewServer(d).WithPrefix("/api")
//	http.ListenAndServe(":8080", srv.Handler())
package httpapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/tidwall/gjson"

	"github.com/broady/apiservice"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

var validate = validator.New()

// envelope holds the routing variables of a request.
type envelope struct {
	Version string `schema:"version" validate:"required,printascii,max=64"`
	Service string `schema:"service" validate:"required,printascii,max=128"`
}

// Server is an HTTP host for a Dispatcher.
type Server struct {
	dispatcher         *apiservice.Dispatcher
	prefix             string
	logger             *slog.Logger
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	maxRequestBodySize int64
	middlewares        []func(http.Handler) http.Handler
	decoder            *schema.Decoder
}

// NewServer creates a server for d, mounted under "/api".
func NewServer(d *apiservice.Dispatcher) *Server {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return &Server{
		dispatcher:         d,
		prefix:             "/api",
		maxRequestBodySize: 1 << 20, // 1MB default
		decoder:            dec,
	}
}

// WithPrefix sets the path prefix in front of {version}/{service}.
// An empty prefix or "/" mounts the services at the root.
func (s *Server) WithPrefix(prefix string) *Server {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		s.prefix = ""
	} else {
		s.prefix = "/" + prefix
	}
	return s
}

// WithLogger sets a custom logger for the server.
// If not set, slog.Default() will be used.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.logger = logger
	return s
}

// WithErrorTransformer adds a custom error transformer.
func (s *Server) WithErrorTransformer(fn ErrorTransformer) *Server {
	s.errorTransformer = fn
	return s
}

// WithMaskInternalErrors replaces the message of every error mapped to
// status 500 with a generic one. The full error is still logged.
func (s *Server) WithMaskInternalErrors() *Server {
	s.maskInternalErrors = true
	return s
}

// WithMaxRequestBodySize limits JSON request bodies. A value of 0 means no
// limit. Default is 1MB (1 << 20).
func (s *Server) WithMaxRequestBodySize(size int64) *Server {
	s.maxRequestBodySize = size
	return s
}

// WithMiddleware adds an HTTP middleware to wrap the server.
// Middleware is applied in the order added (first added is outermost).
func (s *Server) WithMiddleware(mw func(http.Handler) http.Handler) *Server {
	s.middlewares = append(s.middlewares, mw)
	return s
}

func (s *Server) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

// Prefix returns the normalized path prefix.
func (s *Server) Prefix() string { return s.prefix }

// Handler returns an http.Handler for use with http.ListenAndServe or other
// HTTP servers. The returned handler includes all configured middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.PathPrefix(s.prefix + "/{version}/{service}").HandlerFunc(s.serveHTTP)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, apiservice.NewError(CodeNotFound, "route not found"), s.logger)
	})

	var h http.Handler = r
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		h = s.middlewares[i](h)
	}
	return h
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log().Error("PANIC recovered",
				slog.String("request_id", RequestID(r.Context())),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			msg := fmt.Sprintf("internal server error (panic): %v", rec)
			if s.maskInternalErrors {
				msg = "internal server error"
			}
			writeError(w, http.StatusInternalServerError, apiservice.NewError(CodeInternal, msg), s.logger)
		}
	}()

	var env envelope
	if err := s.decodeEnvelope(r, &env); err != nil {
		s.handleError(w, r, err)
		return
	}

	params, err := s.explicitParams(w, r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	desc := &apiservice.ServiceDescriptor{
		Name:       env.Service,
		Version:    env.Version,
		Route:      s.prefix + "/" + env.Version + "/" + env.Service + "/",
		Verb:       r.Method,
		Parameters: params,
	}
	res, err := s.dispatcher.Dispatch(r.Context(), apiservice.FromHTTPRequest(r), desc)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	body, contentType, err := renderResult(desc.ResponseMimeType, res)
	if err != nil {
		s.handleError(w, r, fmt.Errorf("encode %s response: %w", desc.ResponseMimeType, err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.log().DebugContext(r.Context(), "failed to write response",
			slog.String("request_id", RequestID(r.Context())),
			slog.Any("error", err))
	}
}

// decodeEnvelope decodes the route variables into env and validates them.
func (s *Server) decodeEnvelope(r *http.Request, env *envelope) error {
	vars := mux.Vars(r)
	src := make(map[string][]string, len(vars))
	for k, v := range vars {
		src[k] = []string{v}
	}
	if err := s.decoder.Decode(env, src); err != nil {
		return apiservice.Errorf(CodeInvalidArgument, "invalid route: %v", err)
	}
	return validate.Struct(env)
}

// explicitParams collects query parameters, sorted by key, followed by the
// top-level scalar fields of a JSON object body in document order.
func (s *Server) explicitParams(w http.ResponseWriter, r *http.Request) ([]apiservice.Param, error) {
	query := r.URL.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var params []apiservice.Param
	for _, k := range keys {
		for _, v := range query[k] {
			params = append(params, apiservice.Param{Key: k, Value: v})
		}
	}

	if r.Body == nil || r.Body == http.NoBody || !isJSON(r.Header.Get("Content-Type")) {
		return params, nil
	}

	body := io.Reader(r.Body)
	if s.maxRequestBodySize > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxRequestBodySize)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, apiservice.Errorf(CodeInvalidArgument, "failed to read request body: %v", err)
	}
	if len(data) == 0 {
		return params, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, apiservice.NewError(CodeInvalidArgument, "request body is not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, apiservice.NewError(CodeInvalidArgument, "request body must be a JSON object")
	}
	doc.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.String, gjson.Number, gjson.True, gjson.False:
			params = append(params, apiservice.Param{Key: key.String(), Value: value.String()})
		}
		return true
	})
	return params, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

type requestIDKey struct{}

// RequestID returns the request ID assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestIDMiddleware keeps a well-formed client supplied X-Request-ID and
// assigns a new UUID otherwise.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}
