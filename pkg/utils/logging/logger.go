package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
)

type contextKey struct{}

var (
	loggerKey       = contextKey{}
	defaultLogger   *slog.Logger
	defaultLoggerMu sync.RWMutex
)

func init() {
	defaultLogger = New("info", os.Stderr)
}

// Format selects the handler of a logger
type Format string

const (
	// FormatConsole is the colored human readable output of clog
	FormatConsole Format = "console"
	// FormatJSON emits one JSON object per record for log collectors
	FormatJSON Format = "json"
)

// ParseFormat accepts "console", "text" and "json" (case-insensitive)
func ParseFormat(v string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "console", "text":
		return FormatConsole, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", goerr.New("invalid log format", goerr.V("format", v))
	}
}

// parseLevel converts a string level to slog.Level
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		if defaultLogger != nil {
			defaultLogger.Warn("invalid log level", "level", level)
		}
		return slog.LevelInfo
	}
}

type options struct {
	format Format
	source bool
}

type Option func(*options)

func WithFormat(f Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithSource adds the caller location to every record
func WithSource(enabled bool) Option {
	return func(o *options) {
		o.source = enabled
	}
}

// New creates a new slog.Logger with the specified level string
// Accepts: "debug", "info", "warn", "warning", "error" (case-insensitive)
func New(level string, w io.Writer, opts ...Option) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	o := options{format: FormatConsole}
	for _, opt := range opts {
		opt(&o)
	}

	lv := parseLevel(level)
	if o.format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     lv,
			AddSource: o.source,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				return expandGoerr(attr)
			},
		}))
	}

	handler := clog.New(
		clog.WithWriter(w),
		clog.WithLevel(lv),
		clog.WithTimeFmt("15:04:05"),
		clog.WithSource(o.source),
		clog.WithAttrHook(clog.GoerrHook),
	)

	return slog.New(handler)
}

// expandGoerr turns a goerr error into a group with its message and values so
// JSON records keep the context attached with goerr.V.
func expandGoerr(attr slog.Attr) slog.Attr {
	err, ok := attr.Value.Any().(error)
	if !ok {
		return attr
	}
	var gerr *goerr.Error
	if !errors.As(err, &gerr) {
		return slog.String(attr.Key, err.Error())
	}

	attrs := []any{slog.String("message", err.Error())}
	for k, v := range gerr.Values() {
		attrs = append(attrs, slog.Any(k, v))
	}
	return slog.Group(attr.Key, attrs...)
}

// Default returns the default logger
func Default() *slog.Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger
func SetDefault(logger *slog.Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = logger
}

// With returns a new context with the logger attached
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithAttrs returns a context whose logger carries args on every record
func WithAttrs(ctx context.Context, args ...any) context.Context {
	return With(ctx, From(ctx).With(args...))
}

// From retrieves the logger from the context
// If no logger is found, it returns the default logger
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return Default()
}
