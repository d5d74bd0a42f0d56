package apiservice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCode identifies the kind of a dispatch failure.
type ErrorCode string

const (
	CodeNotSet                  ErrorCode = "not_set"
	CodeDescriptorTypeNotSet    ErrorCode = "descriptor_type_not_set"
	CodeDescriptorTypeNotFound  ErrorCode = "descriptor_type_not_found"
	CodeDescriptorTypeDuplicate ErrorCode = "descriptor_type_duplicate"
	CodeReadTypeDescriptor      ErrorCode = "read_type_descriptor"
	CodeWriteTypeDescriptor     ErrorCode = "write_type_descriptor"
	CodeServiceUnauthorized     ErrorCode = "service_unauthorized"
	CodeServiceActionNotFound   ErrorCode = "service_action_not_found"
	CodeActionAlreadyDeclared   ErrorCode = "action_already_declared"
	CodeQueryParamNotFound      ErrorCode = "query_param_not_found"
	CodeActionParameterCount    ErrorCode = "action_parameter_count"
	CodeExecuteAction           ErrorCode = "execute_action"
)

// Error is the single error kind surfaced by the dispatch pipeline.
// Code is the symbolic cause; Message is safe to show to callers.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the fault that was wrapped into this error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same code.
// This lets callers write errors.Is(err, &apiservice.Error{Code: apiservice.CodeNotSet}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new dispatch error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new dispatch error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithDetails returns a new Error with the provided map merged into details.
func (e *Error) WithDetails(details map[string]any) *Error {
	if len(details) == 0 {
		return e
	}
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: merged,
		cause:   e.cause,
	}
}

// withCause records the underlying fault without exposing it in Message.
func (e *Error) withCause(err error) *Error {
	e.cause = err
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// asDomain returns err as an *Error when it is one (or wraps one).
func asDomain(err error) (*Error, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

func errNotSet() *Error {
	return NewError(CodeNotSet, "service descriptor name is not set")
}

func errDescriptorTypeNotSet(name string) *Error {
	return Errorf(CodeDescriptorTypeNotSet, "service %q: descriptor type is not set", name).
		WithDetail("service", name)
}

func errDescriptorTypeNotFound(name, version string) *Error {
	return Errorf(CodeDescriptorTypeNotFound, "service %q version %q: no handler type found", name, version).
		WithDetails(map[string]any{"service": name, "version": version})
}

func errDescriptorTypeDuplicate(name, version string) *Error {
	return Errorf(CodeDescriptorTypeDuplicate, "service %q version %q: more than one handler type declared", name, version).
		WithDetails(map[string]any{"service": name, "version": version})
}

func errReadTypeDescriptor(name string, cause error) *Error {
	return Errorf(CodeReadTypeDescriptor, "service %q: failed to read type descriptor", name).
		WithDetail("service", name).withCause(cause)
}

func errWriteTypeDescriptor(name string, cause error) *Error {
	return Errorf(CodeWriteTypeDescriptor, "service %q: failed to write type descriptor", name).
		WithDetail("service", name).withCause(cause)
}

func errServiceUnauthorized(name string) *Error {
	return Errorf(CodeServiceUnauthorized, "service %q: unauthorized", name).
		WithDetail("service", name)
}

func errServiceActionNotFound(name string) *Error {
	return Errorf(CodeServiceActionNotFound, "service %q: action not found", name).
		WithDetail("service", name)
}

func errActionAlreadyDeclared(name, route string) *Error {
	return Errorf(CodeActionAlreadyDeclared, "service %q: action route %q is ambiguous", name, route).
		WithDetails(map[string]any{"service": name, "route": route})
}

func errQueryParamNotFound(param string) *Error {
	return Errorf(CodeQueryParamNotFound, "query parameter %q not found", param).
		WithDetail("param", param)
}

func errActionParameterCount(name, action string) *Error {
	return Errorf(CodeActionParameterCount, "service %q: action %q called with a wrong number of parameters", name, action).
		WithDetails(map[string]any{"service": name, "action": action})
}

func errExecuteAction(name, action string, cause error) *Error {
	return Errorf(CodeExecuteAction, "service %q: failed to execute action %q", name, action).
		WithDetails(map[string]any{"service": name, "action": action}).withCause(cause)
}

// validationMessage flattens validator errors into a single readable line.
func validationMessage(valErrs validator.ValidationErrors) string {
	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		messages = append(messages, ve.Field()+": "+formatValidationError(ve))
	}
	return strings.Join(messages, "; ")
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", ve.Param())
	case "alpha":
		return "must contain letters only"
	case "printascii":
		return "must contain printable ASCII only"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
