// Package middleware provides interceptors for the apiservice dispatcher and
// HTTP middleware for its host.
package middleware

import (
	"log/slog"
	"time"

	"github.com/broady/apiservice"
)

// LoggingInterceptor creates an interceptor that logs operation calls using slog.
// It logs the start and end of each call, including duration, argument count
// and error code.
func LoggingInterceptor(logger *slog.Logger) apiservice.UnaryInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx *apiservice.Context, args []string, next apiservice.HandlerFunc) (any, error) {
		start := time.Now()

		logger.InfoContext(ctx, "action started",
			slog.String("endpoint", ctx.EndpointID()),
			slog.Int("args", len(args)),
		)

		res, err := next(ctx, args)
		duration := time.Since(start)

		if err != nil {
			logger.ErrorContext(ctx, "action failed",
				slog.String("endpoint", ctx.EndpointID()),
				slog.Duration("duration", duration),
				slog.String("code", string(apiservice.CodeOf(err))),
				slog.Any("error", err),
			)
		} else {
			logger.InfoContext(ctx, "action completed",
				slog.String("endpoint", ctx.EndpointID()),
				slog.Duration("duration", duration),
			)
		}

		return res, err
	}
}
