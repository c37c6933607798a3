// Package sentry wraps the Sentry client. Every function is a no-op until New is called with a DSN.
package sentry

import (
	"context"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/trace"
)

// reportFlushTimeout bounds the flush after a panic is reported.
const reportFlushTimeout = 5 * time.Second

// Options configures the Sentry client. Dsn and Environment carry env tags for use under a
// prefix, e.g. OTEL_SENTRY_DSN.
type Options struct {
	Dsn         string `env:"DSN"`
	Environment string `env:"ENV"` // DEV or PROD
	Tags        map[string]string
}

// New sets up Sentry using the provided options.
// If the DSN is empty, initialization is skipped.
func New(opt Options) error {
	if opt.Dsn == "" {
		return nil
	}

	err := sentrygo.Init(sentrygo.ClientOptions{
		Dsn:         opt.Dsn,
		Environment: opt.Environment,
		Tags:        opt.Tags,
	})
	if err != nil {
		return eris.Wrap(err, "failed to initialize sentry")
	}

	return nil
}

// Report sends a recovered panic value to Sentry and flushes buffered events.
func Report(recovered any) {
	if !isInitialized() || recovered == nil {
		return
	}
	sentrygo.CurrentHub().Recover(recovered)
	sentrygo.Flush(reportFlushTimeout)
}

// CaptureException reports a handled error to Sentry.
func CaptureException(ctx context.Context, err error) {
	if !isInitialized() || err == nil {
		return
	}
	sentrygo.WithScope(func(scope *sentrygo.Scope) {
		// Extract OTel trace context
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			scope.SetTag("trace_id", spanCtx.TraceID().String())
			scope.SetTag("span_id", spanCtx.SpanID().String())
		}
		sentrygo.CaptureException(err)
	})
}

// Shutdown flushes buffered events with the provided timeout or context deadline.
func Shutdown(ctx context.Context, timeout time.Duration) {
	if !isInitialized() {
		return
	}
	t := timeout
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until > 0 && until < t {
			t = until
		}
	}
	if t <= 0 {
		t = 1 * time.Second
	}
	sentrygo.Flush(t)
}

// isInitialized checks if Sentry is initialized.
func isInitialized() bool {
	return sentrygo.CurrentHub().Client() != nil
}
