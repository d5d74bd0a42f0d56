package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/broady/apiservice"
)

// Host-level codes. They never come out of the dispatcher itself.
const (
	CodeInvalidArgument  apiservice.ErrorCode = "invalid_argument"
	CodeNotFound         apiservice.ErrorCode = "not_found"
	CodeCanceled         apiservice.ErrorCode = "canceled"
	CodeDeadlineExceeded apiservice.ErrorCode = "deadline_exceeded"
	CodeInternal         apiservice.ErrorCode = "internal"
)

// HTTPStatus maps an error code to an HTTP status code.
func HTTPStatus(code apiservice.ErrorCode) int {
	switch code {
	case apiservice.CodeNotSet,
		apiservice.CodeQueryParamNotFound,
		apiservice.CodeActionParameterCount,
		CodeInvalidArgument:
		return http.StatusBadRequest
	case apiservice.CodeServiceUnauthorized:
		return http.StatusForbidden
	case apiservice.CodeDescriptorTypeNotFound,
		apiservice.CodeServiceActionNotFound,
		CodeNotFound:
		return http.StatusNotFound
	case apiservice.CodeActionAlreadyDeclared:
		return http.StatusConflict
	case CodeCanceled:
		return 499 // Client Closed Request (Nginx standard)
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorTransformer maps an error to the error written to the client.
// If it returns nil, DefaultErrorTransformer is applied.
type ErrorTransformer func(error) *apiservice.Error

// DefaultErrorTransformer maps standard Go errors to service errors.
func DefaultErrorTransformer(err error) *apiservice.Error {
	if err == nil {
		return nil
	}

	var svcErr *apiservice.Error
	if errors.As(err, &svcErr) {
		return svcErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apiservice.NewError(CodeDeadlineExceeded, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return apiservice.NewError(CodeCanceled, "context canceled")
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		details := make(map[string]any, len(valErrs))
		messages := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			msg := ve.Tag()
			if ve.Param() != "" {
				msg += "=" + ve.Param()
			}
			details[ve.Field()] = msg
			messages = append(messages, ve.Field()+": failed "+msg+" validation")
		}
		return &apiservice.Error{
			Code:    CodeInvalidArgument,
			Message: strings.Join(messages, "; "),
			Details: details,
		}
	}

	return apiservice.NewError(CodeInternal, err.Error())
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *apiservice.Error
	if s.errorTransformer != nil {
		svcErr = s.errorTransformer(err)
	}
	if svcErr == nil {
		svcErr = DefaultErrorTransformer(err)
	}
	status := HTTPStatus(svcErr.Code)
	if s.maskInternalErrors && status == http.StatusInternalServerError {
		// Copy so the dispatcher's error value stays intact for hooks and logs.
		svcErr = &apiservice.Error{Code: svcErr.Code, Message: "internal server error"}
	}
	if status >= http.StatusInternalServerError {
		s.log().ErrorContext(r.Context(), "request failed",
			slog.String("request_id", RequestID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	writeError(w, status, svcErr, s.logger)
}

func writeError(w http.ResponseWriter, status int, svcErr *apiservice.Error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := encodeErrorResponse(w, svcErr); err != nil {
		// Headers already sent, nothing we can do. Log for debugging.
		logger.Error("failed to encode error response",
			slog.String("code", string(svcErr.Code)),
			slog.String("message", svcErr.Message),
			slog.Any("error", err))
	}
}
