package telemetry

import (
	"strings"

	"github.com/argus-labs/tickworld/pkg/telemetry/sentry"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Options configures logging, tracing and error reporting. Tagged fields are read from OTEL_*
// environment variables; values set in code win.
type Options struct {
	// Name of the service. Only settable in code.
	ServiceName string

	// Export traces over OTLP. Logging is always on. Code can enable export but not disable it.
	TraceEnabled bool `env:"OTEL_ENABLED" envDefault:"false"`

	// OTLP collector endpoint.
	Endpoint string `env:"OTEL_ENDPOINT" envDefault:"localhost:4317"`

	// Fraction of root spans sampled, in [0, 1].
	TraceSampleRate float64 `env:"OTEL_TRACE_SAMPLE_RATE" envDefault:"1.0"`

	// One of zerolog's level names, case-insensitive.
	LogLevel string `env:"OTEL_LOG_LEVEL" envDefault:"info"`

	LogFormat LogFormat `env:"OTEL_LOG_FORMAT" envDefault:"json"`

	// Sentry reporting is off when the DSN is empty.
	Sentry sentry.Options `envPrefix:"OTEL_SENTRY_"`
}

// Override implements config.Options.
func (opt *Options) Override(explicit Options) {
	if explicit.ServiceName != "" {
		opt.ServiceName = explicit.ServiceName
	}
	if explicit.TraceEnabled {
		opt.TraceEnabled = true
	}
	if explicit.Endpoint != "" {
		opt.Endpoint = explicit.Endpoint
	}
	if explicit.TraceSampleRate != 0.0 {
		opt.TraceSampleRate = explicit.TraceSampleRate
	}
	if explicit.LogLevel != "" {
		opt.LogLevel = explicit.LogLevel
	}
	if explicit.LogFormat != LogFormatUndefined {
		opt.LogFormat = explicit.LogFormat
	}
	if explicit.Sentry.Dsn != "" {
		opt.Sentry.Dsn = explicit.Sentry.Dsn
	}
	if explicit.Sentry.Environment != "" {
		opt.Sentry.Environment = explicit.Sentry.Environment
	}
	if explicit.Sentry.Tags != nil {
		opt.Sentry.Tags = explicit.Sentry.Tags
	}
}

// Validate implements config.Options. Exporter settings are only checked when export is enabled.
func (opt *Options) Validate() error {
	if opt.ServiceName == "" {
		return eris.New("service name cannot be empty")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(opt.LogLevel)); err != nil {
		return eris.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", opt.LogLevel)
	}
	if opt.LogFormat == LogFormatUndefined {
		return eris.New("log format must be specified")
	}
	if !opt.TraceEnabled {
		return nil
	}
	if opt.Endpoint == "" {
		return eris.New("OTLP endpoint cannot be empty when tracing is enabled")
	}
	if opt.TraceSampleRate < 0.0 || opt.TraceSampleRate > 1.0 {
		return eris.New("trace sample rate must be between 0.0 and 1.0")
	}
	return nil
}

// LogFormat represents the log output format.
type LogFormat uint8

const (
	LogFormatUndefined LogFormat = iota // Used as the zero value
	LogFormatJSON                       // Outputs structured JSON logs
	LogFormatPretty                     // Outputs human-readable console logs
)

// ParseLogFormat converts a case-insensitive format name to a LogFormat.
func ParseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	case "pretty":
		return LogFormatPretty
	default:
		return LogFormatUndefined
	}
}

// UnmarshalText lets OTEL_LOG_FORMAT be parsed straight into a LogFormat.
func (f *LogFormat) UnmarshalText(text []byte) error {
	format := ParseLogFormat(string(text))
	if format == LogFormatUndefined {
		return eris.Errorf("invalid log format: %q (must be 'json' or 'pretty')", text)
	}
	*f = format
	return nil
}
