package apiservice

import (
	"context"
)

// HandlerFunc represents the next handler in an interceptor chain.
// The final handler invokes the selected operation with args.
type HandlerFunc func(ctx context.Context, args []string) (res any, err error)

// UnaryInterceptor wraps the invocation of a selected operation.
//
//	func timing(ctx *apiservice.Context, args []string, next apiservice.HandlerFunc) (any, error) {
//	    start := time.Now()
//	    res, err := next(ctx, args)
//	    log.Printf("%s took %v", ctx.EndpointID(), time.Since(start))
//	    return res, err
//	}
//
// Interceptors run after the operation was selected, authorized and bound.
// They can inspect or replace the arguments, short-circuit with an error,
// or post-process the result.
type UnaryInterceptor func(ctx *Context, args []string, next HandlerFunc) (res any, err error)

// chainInterceptors combines interceptors into one. The first interceptor
// in the slice is the outer-most one.
func chainInterceptors(interceptors []UnaryInterceptor) UnaryInterceptor {
	if len(interceptors) == 0 {
		return nil
	}
	if len(interceptors) == 1 {
		return interceptors[0]
	}
	return func(ctx *Context, args []string, handler HandlerFunc) (any, error) {
		chain := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			current := interceptors[i]
			next := chain
			chain = func(c context.Context, args []string) (any, error) {
				dc, ok := FromContext(c)
				if !ok {
					dc = ctx
				}
				return current(dc, args, next)
			}
		}
		return chain(ctx, args)
	}
}
