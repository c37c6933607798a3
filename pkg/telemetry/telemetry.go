// Package telemetry sets up logging, tracing, and error reporting for tickworld processes.
// Configuration is read from OTEL_* environment variables and can be overridden with Options.
package telemetry

import (
	"context"
	"io"
	"time"

	"github.com/argus-labs/tickworld/pkg/config"
	"github.com/argus-labs/tickworld/pkg/telemetry/sentry"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// sentryFlushTimeout bounds how long Shutdown waits for buffered Sentry events.
const sentryFlushTimeout = 5 * time.Second

type Telemetry struct {
	Logger      zerolog.Logger
	Tracer      trace.Tracer
	serviceName string

	shutdown func(context.Context) error
}

// New loads the telemetry config from the environment, merges opts on top, and sets up the
// logger, tracer, and Sentry client.
func New(opts Options) (Telemetry, error) {
	return newTelemetry(opts, nil)
}

// newTelemetry is New with the log output redirected to out.
func newTelemetry(opts Options, out io.Writer) (Telemetry, error) {
	options, err := config.Load("telemetry", opts)
	if err != nil {
		return Telemetry{}, err
	}

	if err := sentry.New(options.Sentry); err != nil {
		return Telemetry{}, eris.Wrap(err, "failed to setup sentry")
	}

	ctx := context.Background()
	tracer, logger, shutdown, err := setupOpenTelemetry(ctx, options, out)
	if err != nil {
		return Telemetry{}, eris.Wrap(err, "failed to setup telemetry")
	}

	return Telemetry{
		Logger:      logger,
		Tracer:      tracer,
		serviceName: options.ServiceName,
		shutdown:    shutdown,
	}, nil
}

// Shutdown flushes pending spans and Sentry events.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	sentry.Shutdown(ctx, sentryFlushTimeout)
	if t.shutdown != nil {
		return t.shutdown(ctx)
	}
	return nil
}

// GetLogger returns a component-specific logger.
func (t *Telemetry) GetLogger(component string) zerolog.Logger {
	return t.Logger.With().Str("component", t.serviceName+"."+component).Logger()
}

// GetLoggerWithTrace returns a component-specific logger enriched with trace context.
func (t *Telemetry) GetLoggerWithTrace(ctx context.Context, component string) zerolog.Logger {
	span := trace.SpanFromContext(ctx)

	logger := t.Logger.With().Str("component", t.serviceName+"."+component)

	if span.IsRecording() {
		spanCtx := span.SpanContext()
		logger = logger.
			Str("trace_id", spanCtx.TraceID().String()).
			Str("span_id", spanCtx.SpanID().String())
	}

	return logger.Logger()
}

// CaptureException reports a handled error to Sentry, tagged with the trace in ctx.
func (t *Telemetry) CaptureException(ctx context.Context, err error) {
	sentry.CaptureException(ctx, err)
}

// RecoverAndFlush reports a panic to Sentry and flushes. Must be called directly with defer.
// When repanic is true the panic continues after being reported.
func (t *Telemetry) RecoverAndFlush(repanic bool) {
	if r := recover(); r != nil {
		sentry.Report(r)
		if repanic {
			panic(r)
		}
	}
}
