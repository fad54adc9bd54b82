package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// LoggerConfig configures the process logger
type LoggerConfig struct {
	Service string
	Version string
	Env     string
	// Level is a zerolog level name; empty means debug in development, info elsewhere
	Level string
	// Output defaults to stdout
	Output io.Writer
}

// NewLogger builds a logger for cfg and returns it with its minimum level.
// Development logs are human readable; other environments log JSON.
func NewLogger(cfg LoggerConfig) (zerolog.Logger, zerolog.Level) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	dev := cfg.Env == "development"

	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}
	badLevel := false
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			badLevel = true
		} else {
			level = parsed
		}
	}

	var ctx zerolog.Context
	if dev {
		ctx = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp()
	} else {
		ctx = zerolog.New(out).With().Timestamp().Caller()
	}
	ctx = ctx.Str("service", cfg.Service)
	if cfg.Version != "" {
		ctx = ctx.Str("version", cfg.Version)
	}
	if cfg.Env != "" {
		ctx = ctx.Str("env", cfg.Env)
	}
	logger := ctx.Logger().Level(level)

	if badLevel {
		logger.Warn().Str("level", cfg.Level).Msg("Unknown log level, using " + level.String())
	}
	return logger, level
}

// InitLogger installs the logger for cfg as the global zerolog logger
func InitLogger(cfg LoggerConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger, level := NewLogger(cfg)
	zerolog.SetGlobalLevel(level)
	log.Logger = logger
}

// requestFields collects log fields discovered while a request is served,
// such as the session it works on
type requestFields struct {
	mu     sync.Mutex
	fields [][2]string
}

type requestFieldsKey struct{}

// WithRequestFields returns a context able to carry fields added by
// AnnotateSession. The request log line includes them.
func WithRequestFields(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestFieldsKey{}, &requestFields{})
}

// AnnotateSession records the booking or quiz session a request works on.
// It does nothing on a context without request fields.
func AnnotateSession(ctx context.Context, kind, id string) {
	holder, ok := ctx.Value(requestFieldsKey{}).(*requestFields)
	if !ok || id == "" {
		return
	}
	holder.mu.Lock()
	defer holder.mu.Unlock()
	holder.fields = append(holder.fields, [2]string{"session_kind", kind}, [2]string{"session_id", id})
}

// LoggerFromContext returns a logger with the trace and session fields of ctx
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	lctx := log.With()

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		lctx = lctx.
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String())
	}

	if holder, ok := ctx.Value(requestFieldsKey{}).(*requestFields); ok {
		holder.mu.Lock()
		for _, kv := range holder.fields {
			lctx = lctx.Str(kv[0], kv[1])
		}
		holder.mu.Unlock()
	}

	logger := lctx.Logger()
	return &logger
}
