package apiservice

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Suffix marks a handler type identifier as a service handler.
const Suffix = "APIService"

// DefaultVersion is the only version accepted by a handler type that does
// not declare a version list.
const DefaultVersion = "v1"

// QueryParamEqual controls how an operation takes part in parameter-count
// disambiguation when several operations match the same route.
type QueryParamEqual int

const (
	// Exact keeps the operation only if its declared parameter count equals
	// the number of route values plus explicit parameters.
	Exact QueryParamEqual = iota
	// Any skips the count check.
	Any
)

func (q QueryParamEqual) String() string {
	switch q {
	case Exact:
		return "exact"
	case Any:
		return "any"
	default:
		return "unknown"
	}
}

// Authorizer is an authorization predicate. Its logic belongs to the host;
// the dispatcher only consumes the boolean result.
type Authorizer interface {
	Authorize(ctx context.Context, req Request) bool
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, req Request) bool

// Authorize implements Authorizer.
func (f AuthorizerFunc) Authorize(ctx context.Context, req Request) bool {
	return f(ctx, req)
}

// HandlerType is one row of the registration table: a concrete handler type,
// how to construct it, and the operations it declares.
//
// Example:
//
//	apiservice.Type("WeatherAPIService", func() any { return &WeatherAPIService{} }).
//	    Versions("v1", "v2").
//	    Operation(apiservice.Op("Forecast", (*WeatherAPIService).Forecast, "city").
//	        Route("forecast/{city}").
//	        Verb("GET"))
type HandlerType struct {
	name         string
	newFn        func() any
	alias        string
	versions     []string
	authorizer   Authorizer
	operations   []*Operation
	interceptors []UnaryInterceptor
}

// Type declares a handler type. name is the Go identifier of the type and
// newFn returns a fresh handler instance for each request.
func Type(name string, newFn func() any) *HandlerType {
	return &HandlerType{
		name:  name,
		newFn: newFn,
	}
}

// Alias overrides the service name derived from the identifier.
func (t *HandlerType) Alias(alias string) *HandlerType {
	t.alias = alias
	return t
}

// Versions replaces the default accepted version set {"v1"}.
func (t *HandlerType) Versions(versions ...string) *HandlerType {
	t.versions = versions
	return t
}

// Authorize sets the service-level authorization predicate.
func (t *HandlerType) Authorize(a Authorizer) *HandlerType {
	t.authorizer = a
	return t
}

// WithUnaryInterceptor adds an interceptor to every operation of this type.
// Type interceptors run after dispatcher interceptors and before operation interceptors.
func (t *HandlerType) WithUnaryInterceptor(i UnaryInterceptor) *HandlerType {
	t.interceptors = append(t.interceptors, i)
	return t
}

// Operation adds operations to the type, in declaration order.
func (t *HandlerType) Operation(ops ...*Operation) *HandlerType {
	t.operations = append(t.operations, ops...)
	return t
}

// Name returns the type identifier.
func (t *HandlerType) Name() string { return t.name }

// Operations returns the declared operations.
func (t *HandlerType) Operations() []*Operation { return t.operations }

// exported reports whether the identifier is exported, the registration
// table equivalent of a public type.
func (t *HandlerType) exported() bool {
	r, _ := utf8.DecodeRuneInString(t.name)
	return unicode.IsUpper(r)
}

// ServiceName returns the lower-cased name the type answers to: the alias if
// one is declared, otherwise the identifier up to the first Suffix.
func (t *HandlerType) ServiceName() string {
	name := t.name
	if i := strings.Index(name, Suffix); i >= 0 {
		name = name[:i]
	}
	if t.alias != "" {
		name = t.alias
	}
	return strings.ToLower(name)
}

// AcceptedVersions returns the versions the type answers to.
func (t *HandlerType) AcceptedVersions() []string {
	if t.versions != nil {
		return t.versions
	}
	return []string{DefaultVersion}
}

func (t *HandlerType) acceptsVersion(version string) bool {
	for _, v := range t.AcceptedVersions() {
		if v == version {
			return true
		}
	}
	return false
}

// Operation is a single invocable action declared on a handler type together
// with its route metadata.
type Operation struct {
	name          string
	params        []string
	fn            reflect.Value
	sig           signature
	route         string
	routeSet      bool
	prefix        string
	constraints   map[string]string
	verb          string
	mimeTypeParam string
	equal         QueryParamEqual
	authorizer    Authorizer
	interceptors  []UnaryInterceptor

	mu       sync.RWMutex
	matchers map[string]*routeMatcher // full pattern -> compiled, nil if malformed
}

// maxMatchers bounds the compiled patterns kept per operation. Descriptor
// routes come from requests, so patterns past the bound are compiled per call.
const maxMatchers = 16

// Op declares an operation. fn is usually a method expression such as
// (*WeatherAPIService).Forecast: its first parameter receives the handler
// instance, an optional context.Context follows, and the rest are the formal
// parameters named by params, in order. Formal parameters may be strings,
// integers, floats or bools; a trailing ...string collects surplus arguments.
//
// fn may return (R, error), R, error, or nothing.
//
// Op panics if fn does not have a supported shape or if params does not name
// every fixed formal parameter.
func Op(name string, fn any, params ...string) *Operation {
	v := reflect.ValueOf(fn)
	sig, err := inspect(v)
	if err != nil {
		panic(fmt.Sprintf("apiservice: operation %s: %v", name, err))
	}
	if !sig.variadic && len(params) != sig.fixed() {
		panic(fmt.Sprintf("apiservice: operation %s: %d parameter names for %d parameters", name, len(params), sig.fixed()))
	}
	if sig.variadic && len(params) < sig.fixed() {
		panic(fmt.Sprintf("apiservice: operation %s: %d parameter names for at least %d parameters", name, len(params), sig.fixed()))
	}
	return &Operation{
		name:   name,
		params: params,
		fn:     v,
		sig:    sig,
	}
}

// Route sets the route segment. The default is the lower-cased operation name.
// An empty route answers at the descriptor route itself.
func (o *Operation) Route(route string) *Operation {
	o.route = route
	o.routeSet = true
	o.resetMatchers()
	return o
}

// Prefix sets a segment inserted between the descriptor route and the route segment.
func (o *Operation) Prefix(prefix string) *Operation {
	o.prefix = prefix
	o.resetMatchers()
	return o
}

// Constraints sets route constraints as a flat list of alternating segment
// names and regular expressions.
func (o *Operation) Constraints(flat ...string) *Operation {
	o.constraints = ParseConstraints(flat)
	o.resetMatchers()
	return o
}

// Verb restricts the operation to a request verb. Without it the operation
// matches any verb.
func (o *Operation) Verb(verb string) *Operation {
	o.verb = strings.ToUpper(verb)
	return o
}

// MimeTypeParam names the query parameter carrying the response mime type.
// When set, the parameter is required.
func (o *Operation) MimeTypeParam(param string) *Operation {
	o.mimeTypeParam = param
	return o
}

// QueryParamEqual sets the parameter-count disambiguation policy. The default is Exact.
func (o *Operation) QueryParamEqual(q QueryParamEqual) *Operation {
	o.equal = q
	return o
}

// Authorize sets the operation-level authorization predicate.
func (o *Operation) Authorize(a Authorizer) *Operation {
	o.authorizer = a
	return o
}

// WithUnaryInterceptor adds an interceptor to this operation.
func (o *Operation) WithUnaryInterceptor(i UnaryInterceptor) *Operation {
	o.interceptors = append(o.interceptors, i)
	return o
}

// Name returns the operation name.
func (o *Operation) Name() string { return o.name }

// Params returns the declared formal parameter names.
func (o *Operation) Params() []string { return o.params }

// RouteSegment returns the effective route segment.
func (o *Operation) RouteSegment() string {
	if o.routeSet {
		return o.route
	}
	return strings.ToLower(o.name)
}

// Path returns the prefix followed by the route segment.
func (o *Operation) Path() string {
	return o.prefix + o.RouteSegment()
}

// RequiredVerb returns the declared verb, or "" if any verb matches.
func (o *Operation) RequiredVerb() string { return o.verb }

// pattern returns the full route pattern under the given descriptor route.
func (o *Operation) pattern(base string) string {
	return base + o.Path()
}

// match matches path against the operation's route under base.
func (o *Operation) match(base, path string) (Values, bool) {
	m := o.matcher(o.pattern(base))
	if m == nil {
		return nil, false
	}
	return m.match(path)
}

func (o *Operation) matcher(pattern string) *routeMatcher {
	o.mu.RLock()
	m, ok := o.matchers[pattern]
	o.mu.RUnlock()
	if ok {
		return m
	}

	m, err := compileMatcher(pattern, o.constraints)
	if err != nil {
		m = nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.matchers == nil {
		o.matchers = make(map[string]*routeMatcher)
	}
	if len(o.matchers) < maxMatchers {
		o.matchers[pattern] = m
	}
	return m
}

func (o *Operation) resetMatchers() {
	o.mu.Lock()
	o.matchers = nil
	o.mu.Unlock()
}

// TypeSource supplies the candidate handler types scanned on a registry miss.
type TypeSource interface {
	Types() ([]*HandlerType, error)
}

// Catalog is a statically built TypeSource.
type Catalog struct {
	types []*HandlerType
}

// NewCatalog creates a catalog holding the given types.
func NewCatalog(types ...*HandlerType) *Catalog {
	return &Catalog{types: types}
}

// Add appends types to the catalog. It must not be called once the catalog
// is in use by a dispatcher.
func (c *Catalog) Add(types ...*HandlerType) *Catalog {
	c.types = append(c.types, types...)
	return c
}

// Types implements TypeSource.
func (c *Catalog) Types() ([]*HandlerType, error) {
	return c.types, nil
}
