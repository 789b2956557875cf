package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

// LogLevel represents the available log levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Logger provides a structured logger instance configured for the application
type Logger struct {
	*slog.Logger
}

func (level LogLevel) slogLevel() slog.Level {
	switch LogLevel(strings.ToLower(string(level))) {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a new structured logger with the specified level
func NewLogger(level LogLevel) *Logger {
	return NewLoggerWithConsoleWriter(level, os.Stderr)
}

// NewLoggerWithConsoleWriter builds a logger that writes console output to the
// given writer and structured text to ~/.signal-gateway/logs/signal-gateway.log.
func NewLoggerWithConsoleWriter(level LogLevel, consoleWriter io.Writer) *Logger {
	if consoleWriter == nil {
		consoleWriter = os.Stderr
	}
	return newLogger(level, consoleWriter, newFileTextHandler(level.slogLevel()))
}

// NewLoggerWithWriters is like NewLoggerWithConsoleWriter but sends the
// structured text output to fileWriter instead of the log file.
func NewLoggerWithWriters(level LogLevel, consoleWriter, fileWriter io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: level.slogLevel()}
	return newLogger(level, consoleWriter, slog.NewTextHandler(fileWriter, opts))
}

func newLogger(level LogLevel, consoleWriter io.Writer, fileHandler slog.Handler) *Logger {
	// Console: plain, no time/level/msg labels
	consoleHandler := newPlainHandler(consoleWriter, level.slogLevel(), isTerminal(consoleWriter))
	handler := newMultiHandler(consoleHandler, fileHandler)
	return &Logger{Logger: slog.New(handler)}
}

// Nop discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

// isTerminal reports whether icons should be rendered for w.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewDefaultLogger creates a logger with INFO level for general use
func NewDefaultLogger() *Logger {
	return NewLogger(LogLevelInfo)
}

// WithComponent creates a logger with a component context for better tracing
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.With("component", component),
	}
}

// WithConversation tags log lines with the conversation they belong to.
func (l *Logger) WithConversation(conversation string) *Logger {
	return &Logger{
		Logger: l.With("conversation", conversation),
	}
}

// LogWithIntention logs a message at the provided level with an intention tag.
// The console handler turns the tag into an icon.
func (l *Logger) LogWithIntention(level slog.Level, intention Intention, msg string, args ...any) {
	kv := append([]any{"intention", string(intention)}, args...)
	l.Log(context.Background(), level, msg, kv...)
}

func (l *Logger) InfoWithIntention(intention Intention, msg string, args ...any) {
	l.LogWithIntention(slog.LevelInfo, intention, msg, args...)
}

func (l *Logger) DebugWithIntention(intention Intention, msg string, args ...any) {
	l.LogWithIntention(slog.LevelDebug, intention, msg, args...)
}

// Default logger instance - single instance for the entire application
var Default = NewDefaultLogger()

// SetGlobalLoggerWithConsoleWriter replaces the global Default logger using the provided console writer
func SetGlobalLoggerWithConsoleWriter(level LogLevel, consoleWriter io.Writer) {
	Default = NewLoggerWithConsoleWriter(level, consoleWriter)
}

// NewComponentLogger creates a new logger for a specific component
func NewComponentLogger(component string) *Logger {
	return Default.WithComponent(component)
}

// LogPath is where the file handler appends.
func LogPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".signal-gateway", "logs", "signal-gateway.log")
}

// newFileTextHandler opens LogPath for append and returns a slog text handler
func newFileTextHandler(level slog.Level) slog.Handler {
	path := LogPath()
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		// Fallback to stderr if file cannot be opened
		return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{Key: "time", Value: slog.StringValue(a.Value.Time().Format("2006-01-02T15:04:05"))}
			}
			return a
		},
	}
	return slog.NewTextHandler(f, opts)
}
