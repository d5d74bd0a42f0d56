package apiservice

import (
	"context"
	"log/slog"
	"time"
)

// OnSuccessFunc is called after an operation returned without error.
type OnSuccessFunc func(ctx context.Context, desc *ServiceDescriptor, action string, duration time.Duration)

// OnFailureFunc is called when any step of the pipeline fails. action is
// empty if the failure happened before an operation was selected.
type OnFailureFunc func(ctx context.Context, desc *ServiceDescriptor, action string, err error, duration time.Duration)

// Dispatcher runs the dispatch pipeline: resolve the handler type, create the
// handler, select the action, authorize, bind parameters and call.
//
// Usage:
//
//	catalog := apiservice.NewCatalog(weatherType, accountsType)
//	d := apiservice.NewDispatcher(catalog).WithLogger(logger)
//	res, err := d.Dispatch(ctx, apiservice.FromHTTPRequest(r), &apiservice.ServiceDescriptor{
//	    Name:    "weather",
//	    Version: "v1",
//	    Route:   "api/v1/weather/",
//	    Verb:    r.Method,
//	})
//
// A Dispatcher is safe for concurrent use once configured. Do not call the
// With* methods after the first Dispatch.
type Dispatcher struct {
	source       TypeSource
	registry     *Registry
	interceptors []UnaryInterceptor
	logger       *slog.Logger
	onSuccess    []OnSuccessFunc
	onFailure    []OnFailureFunc
}

// NewDispatcher creates a dispatcher resolving handler types from source,
// with its own Registry.
func NewDispatcher(source TypeSource) *Dispatcher {
	return &Dispatcher{
		source:   source,
		registry: NewRegistry(),
	}
}

// WithRegistry replaces the type registry, e.g. to share a cache between dispatchers.
func (d *Dispatcher) WithRegistry(r *Registry) *Dispatcher {
	d.registry = r
	return d
}

// WithLogger sets a custom logger for the dispatcher.
// If not set, slog.Default() will be used.
func (d *Dispatcher) WithLogger(logger *slog.Logger) *Dispatcher {
	d.logger = logger
	return d
}

// WithUnaryInterceptor adds a global interceptor.
//
// Interceptor execution order:
//  1. Dispatcher interceptors
//  2. Handler type interceptors (HandlerType.WithUnaryInterceptor)
//  3. Operation interceptors (Operation.WithUnaryInterceptor)
//  4. The operation
//
// Within each level, interceptors execute in the order they were added.
func (d *Dispatcher) WithUnaryInterceptor(i UnaryInterceptor) *Dispatcher {
	d.interceptors = append(d.interceptors, i)
	return d
}

// WithOnSuccess adds a hook called after a successful dispatch.
func (d *Dispatcher) WithOnSuccess(fn OnSuccessFunc) *Dispatcher {
	d.onSuccess = append(d.onSuccess, fn)
	return d
}

// WithOnFailure adds a hook called after a failed dispatch.
func (d *Dispatcher) WithOnFailure(fn OnFailureFunc) *Dispatcher {
	d.onFailure = append(d.onFailure, fn)
	return d
}

// Registry returns the type registry in use.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

func (d *Dispatcher) log() *slog.Logger {
	if d.logger == nil {
		return slog.Default()
	}
	return d.logger
}

// Resolve validates desc and sets desc.Type. A descriptor whose type is
// already set is left untouched.
func (d *Dispatcher) Resolve(desc *ServiceDescriptor) error {
	if err := desc.validate(); err != nil {
		return err
	}
	if desc.Type != nil {
		return nil
	}
	t, err := d.registry.Resolve(desc.Name, desc.Version, d.source)
	if err != nil {
		return err
	}
	desc.Type = t
	return nil
}

// Dispatch resolves desc and invokes the matching operation.
// It returns the raw operation result or an *Error.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, desc *ServiceDescriptor) (any, error) {
	start := time.Now()
	res, action, err := d.dispatch(ctx, req, desc)
	duration := time.Since(start)

	if err != nil {
		for _, fn := range d.onFailure {
			fn(ctx, desc, action, err, duration)
		}
		return nil, err
	}
	for _, fn := range d.onSuccess {
		fn(ctx, desc, action, duration)
	}
	return res, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request, desc *ServiceDescriptor) (any, string, error) {
	if err := d.Resolve(desc); err != nil {
		return nil, "", err
	}
	return d.createAndCall(ctx, req, desc)
}

// CreateAndCall instantiates the handler of an already resolved descriptor,
// selects the action for req and calls it. It fails with
// CodeDescriptorTypeNotSet when desc.Type is nil.
func (d *Dispatcher) CreateAndCall(ctx context.Context, req Request, desc *ServiceDescriptor) (any, error) {
	res, _, err := d.createAndCall(ctx, req, desc)
	return res, err
}

func (d *Dispatcher) createAndCall(ctx context.Context, req Request, desc *ServiceDescriptor) (any, string, error) {
	if desc.Type == nil {
		return nil, "", errDescriptorTypeNotSet(desc.Name)
	}
	t := desc.Type

	handler := t.newFn()
	if cr, ok := handler.(ContextReceiver); ok {
		cr.SetServiceContext(&ServiceContext{Request: req, Descriptor: desc})
	}

	action, err := SelectAction(t, desc, req.Path())
	if err != nil {
		return nil, "", err
	}
	op := action.Operation

	if err := Authorize(ctx, t, op, req, desc.Name); err != nil {
		return nil, op.name, err
	}

	binding, err := BindParameters(op, action.Values, desc.Parameters)
	if err != nil {
		return nil, op.name, err
	}
	desc.RequestParameters = binding.Table
	if binding.MimeType != "" {
		desc.ResponseMimeType = binding.MimeType
	}

	dctx := NewContext(ctx, req, desc, op.name)
	final := func(c context.Context, args []string) (any, error) {
		return CallAction(c, desc, handler, op, args)
	}

	all := make([]UnaryInterceptor, 0, len(d.interceptors)+len(t.interceptors)+len(op.interceptors))
	all = append(all, d.interceptors...)
	all = append(all, t.interceptors...)
	all = append(all, op.interceptors...)

	var res any
	if chain := chainInterceptors(all); chain != nil {
		res, err = chain(dctx, binding.Args, final)
	} else {
		res, err = final(dctx, binding.Args)
	}
	if err != nil {
		if svcErr, ok := asDomain(err); ok {
			err = svcErr
		} else {
			// An interceptor failed with a plain error.
			err = errExecuteAction(desc.Name, op.name, err)
		}
		d.log().DebugContext(dctx, "action failed",
			slog.String("endpoint", dctx.EndpointID()),
			slog.Any("error", err))
		return nil, op.name, err
	}
	return res, op.name, nil
}
