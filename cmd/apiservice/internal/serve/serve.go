// Package serve implements "apiservice serve".
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/broady/apiservice"
	"github.com/broady/apiservice/cmd/apiservice/internal/config"
	"github.com/broady/apiservice/cmd/apiservice/internal/demo"
	"github.com/broady/apiservice/devtools"
	"github.com/broady/apiservice/httpapi"
	"github.com/broady/apiservice/metrics"
	"github.com/broady/apiservice/middleware"
)

type Cmd struct {
	Config   string `help:"YAML configuration file." short:"c" type:"existingfile" env:"APISERVICE_CONFIG"`
	Listen   string `help:"Address to listen on (overrides the config file)." short:"l" env:"APISERVICE_LISTEN"`
	Prefix   string `help:"Path prefix in front of {version}/{service} (overrides the config file)." env:"APISERVICE_PREFIX"`
	LogLevel string `help:"Log level: debug, info, warn or error (overrides the config file)." name:"log-level" env:"APISERVICE_LOG_LEVEL"`
}

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

func (c *Cmd) Run() error {
	cfg, err := c.config()
	if err != nil {
		return err
	}

	logger := cfg.Log.NewLogger(os.Stderr)
	handler, err := NewHandler(cfg, demo.Catalog(), logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Listen), slog.String("prefix", cfg.Prefix))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// config loads the config file and applies the command-line overrides.
func (c *Cmd) config() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if c.Listen != "" {
		cfg.Listen = c.Listen
	}
	if c.Prefix != "" {
		cfg.Prefix = c.Prefix
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewHandler wires the dispatcher, its HTTP host and the metrics endpoint.
// reg receives the dispatch and Go runtime collectors; it is ignored when
// metrics are disabled.
func NewHandler(cfg *config.Config, source apiservice.TypeSource, logger *slog.Logger, reg *prometheus.Registry) (http.Handler, error) {
	if source == nil {
		return nil, errors.New("no handler types")
	}

	registry := apiservice.NewRegistry().WithLogger(logger)
	if cfg.Devtools {
		source = devtools.Source(source, registry)
	}

	d := apiservice.NewDispatcher(source).
		WithRegistry(registry).
		WithLogger(logger).
		WithUnaryInterceptor(middleware.LoggingInterceptor(logger))

	srv := httpapi.NewServer(d).
		WithPrefix(cfg.Prefix).
		WithLogger(logger).
		WithMaxRequestBodySize(cfg.MaxBodySize)
	if cfg.MaskInternalErrors {
		srv.WithMaskInternalErrors()
	}
	if cfg.CORS.Enabled {
		srv.WithMiddleware(middleware.CORS(&middleware.CORSConfig{
			AllowOrigins:     cfg.CORS.AllowOrigins,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		}))
	}

	r := mux.NewRouter()
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics.New(reg, d.Registry()).Instrument(d)
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	r.PathPrefix("/").Handler(srv.Handler())
	return r, nil
}
