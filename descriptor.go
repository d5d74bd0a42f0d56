package apiservice

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Param is a single request parameter. Order matters wherever Params are
// collected: lookups take the first entry with a matching key.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Values are the named segment values extracted by a route match, in the
// order the segments appear in the route pattern.
type Values []Param

// Get returns the first value stored under key.
func (v Values) Get(key string) (string, bool) {
	return lookup(v, key)
}

func lookup(params []Param, key string) (string, bool) {
	for _, p := range params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// ServiceDescriptor is the request envelope naming the service and version to
// invoke. The caller fills the input fields; the dispatcher fills Type and the
// output fields ResponseMimeType and RequestParameters.
type ServiceDescriptor struct {
	// Name is the service name. It is compared case-insensitively.
	Name string `validate:"required"`
	// Version selects among handler types sharing a name. Handler types
	// without a declared version list accept "v1" only.
	Version string
	// Route is the path prefix every operation route is appended to.
	Route string
	// Verb is the request verb, compared against an operation's declared verb.
	Verb string
	// Parameters are explicit caller-supplied parameters. They rank after
	// route values when binding.
	Parameters []Param

	// Type is the resolved handler type. It is set once by Dispatcher.Resolve.
	Type *HandlerType `validate:"-"`

	// ResponseMimeType is set when the selected operation declares a
	// mime-type query parameter.
	ResponseMimeType string
	// RequestParameters is the ordered parameter table used for binding.
	RequestParameters []Param
}

// validate reports CodeNotSet when the descriptor cannot be resolved.
func (d *ServiceDescriptor) validate() error {
	if d == nil {
		return errNotSet()
	}
	if err := validate.Struct(d); err != nil {
		var valErrs validator.ValidationErrors
		if errors.As(err, &valErrs) {
			return errNotSet().WithDetail("validation", validationMessage(valErrs))
		}
		return errNotSet()
	}
	return nil
}
