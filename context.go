package apiservice

import (
	"context"
)

type contextKey struct {
	name string
}

var dispatchKey = &contextKey{"dispatch"}

// Context carries dispatch metadata for the operation being invoked.
// It is passed to interceptors and, when an operation takes a
// context.Context, to the operation itself.
type Context struct {
	context.Context
	descriptor *ServiceDescriptor
	request    Request
	action     string
}

// NewContext returns a dispatch Context for the given call. The dispatcher
// creates one per call; hosts and tests may create their own.
func NewContext(parent context.Context, req Request, desc *ServiceDescriptor, action string) *Context {
	if parent == nil {
		parent = context.Background()
	}
	if desc == nil {
		desc = &ServiceDescriptor{}
	}
	ctx := &Context{
		descriptor: desc,
		request:    req,
		action:     action,
	}
	ctx.Context = context.WithValue(parent, dispatchKey, ctx)
	return ctx
}

// FromContext returns the dispatch Context stored in ctx.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	if c, ok := ctx.(*Context); ok {
		return c, true
	}
	c, ok := ctx.Value(dispatchKey).(*Context)
	return c, ok
}

// Service returns the requested service name.
func (c *Context) Service() string { return c.descriptor.Name }

// Version returns the requested service version.
func (c *Context) Version() string { return c.descriptor.Version }

// Action returns the name of the selected operation.
func (c *Context) Action() string { return c.action }

// EndpointID returns "service.version/action", for logs and metrics.
func (c *Context) EndpointID() string {
	return c.descriptor.Name + "." + c.descriptor.Version + "/" + c.action
}

// Descriptor returns the service descriptor of the call.
func (c *Context) Descriptor() *ServiceDescriptor { return c.descriptor }

// Request returns the inbound request.
func (c *Context) Request() Request { return c.request }

// ServiceContext is handed to handlers that implement ContextReceiver.
type ServiceContext struct {
	Request    Request
	Descriptor *ServiceDescriptor
}

// ContextReceiver is implemented by handlers that want the request and
// descriptor of the call they were created for. Implementing it is optional.
type ContextReceiver interface {
	SetServiceContext(sc *ServiceContext)
}
