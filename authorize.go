package apiservice

import "context"

// Authorize applies the service-level predicate of t and then the
// operation-level predicate of op. A denial at service level fails the call
// without consulting the operation predicate. Absent predicates allow.
func Authorize(ctx context.Context, t *HandlerType, op *Operation, req Request, service string) error {
	if t.authorizer != nil && !t.authorizer.Authorize(ctx, req) {
		return errServiceUnauthorized(service)
	}
	if op.authorizer != nil && !op.authorizer.Authorize(ctx, req) {
		return errServiceUnauthorized(service)
	}
	return nil
}
