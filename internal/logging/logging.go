package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

type ctxKey string

const requestIDKey ctxKey = "logging_request_id"

const defaultTimeFmt = time.RFC3339

// Config controls logger initialization.
type Config struct {
	Format    string // "json", "console", or "auto"
	Level     string // "debug", "info", "warn", "error"
	Component string // optional component name
}

var (
	mu         sync.RWMutex
	baseLogger zerolog.Logger

	isTerminalFn = term.IsTerminal
)

func init() {
	baseLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	log.Logger = baseLogger
}

// Init configures zerolog globals and establishes the package baseline logger.
func Init(cfg Config) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	zerolog.TimeFieldFormat = defaultTimeFmt
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	writer := selectWriter(cfg.Format)
	component := strings.TrimSpace(cfg.Component)

	contextBuilder := zerolog.New(writer).With().Timestamp()
	if component != "" {
		contextBuilder = contextBuilder.Str("component", component)
	}

	baseLogger = contextBuilder.Logger()
	log.Logger = baseLogger
	return baseLogger
}

// WithRequestID stores (or generates) a request ID on the context.
func WithRequestID(ctx context.Context, requestID string) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return context.WithValue(ctx, requestIDKey, requestID), requestID
}

// RequestIDFrom returns the request ID stored on the context, if any.
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func parseLevel(level string) zerolog.Level {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "", "info":
		return zerolog.InfoLevel
	case "debug":
		return zerolog.DebugLevel
	case "trace":
		return zerolog.TraceLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled":
		return zerolog.Disabled
	default:
		fmt.Fprintf(os.Stderr, "logging: invalid level %q; using %q\n", normalized, "info")
		return zerolog.InfoLevel
	}
}

func selectWriter(format string) io.Writer {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "console":
		return newConsoleWriter(os.Stderr)
	case "json":
		return os.Stderr
	case "auto", "":
		if isTerminal(os.Stderr) {
			return newConsoleWriter(os.Stderr)
		}
		return os.Stderr
	default:
		fmt.Fprintf(os.Stderr, "logging: invalid format %q; using %q\n", format, "json")
		return os.Stderr
	}
}

func newConsoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: defaultTimeFmt,
	}
}

func isTerminal(file *os.File) bool {
	if file == nil {
		return false
	}
	return isTerminalFn(int(file.Fd()))
}
