// Package logging provides the structured logger used across the service.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

var levelRank = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
	LevelFatal: 4,
}

// LogFormat represents the output format for logs
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// Fields is a set of structured key/value pairs attached to a log line
type Fields map[string]interface{}

// sink is shared by a logger and every child derived from it
type sink struct {
	mu     sync.Mutex
	out    io.Writer
	level  LogLevel
	format LogFormat
	exit   func(int)
}

// Logger provides structured logging capabilities.
// Child loggers created with WithField(s) share the parent's output and level.
type Logger struct {
	sink   *sink
	fields Fields
}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
	Caller    string `json:"caller,omitempty"`
}

// NewLogger creates a new logger writing to stdout
func NewLogger(level LogLevel, format LogFormat) *Logger {
	return &Logger{
		sink: &sink{
			out:    os.Stdout,
			level:  level,
			format: format,
			exit:   os.Exit,
		},
		fields: Fields{},
	}
}

// WithField adds a field to the logger context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(Fields{key: value})
}

// WithFields adds multiple fields to the logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{sink: l.sink, fields: merged}
}

// WithError adds an error to the logger context
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// WithUser tags the logger with the user a computation runs for
func (l *Logger) WithUser(userID string) *Logger {
	return l.WithField("userId", userID)
}

func (l *Logger) Debug(message string) { l.log(LevelDebug, message) }
func (l *Logger) Info(message string)  { l.log(LevelInfo, message) }
func (l *Logger) Warn(message string)  { l.log(LevelWarn, message) }
func (l *Logger) Error(message string) { l.log(LevelError, message) }

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string) {
	l.log(LevelFatal, message)
	l.sink.exit(1)
}

func (l *Logger) log(level LogLevel, message string) {
	if levelRank[level] < levelRank[l.level()] {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     string(level),
		Message:   message,
	}
	if len(l.fields) > 0 {
		entry.Fields = l.fields
	}

	// caller of Error/Fatal, skipping log and the level method
	if level == LevelError || level == LevelFatal {
		if _, file, line, ok := runtime.Caller(2); ok {
			entry.Caller = fmt.Sprintf("%s:%d", file, line)
		}
	}

	var line string
	if l.sink.format == FormatText {
		line = formatText(entry)
	} else {
		data, err := json.Marshal(entry)
		if err != nil {
			line = formatText(entry)
		} else {
			line = string(data)
		}
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	fmt.Fprintln(l.sink.out, line)
}

func (l *Logger) level() LogLevel {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.sink.level
}

func formatText(entry LogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", entry.Timestamp, entry.Level, entry.Message)

	if len(entry.Fields) > 0 {
		fieldsJSON, _ := json.Marshal(entry.Fields)
		fmt.Fprintf(&b, " fields=%s", fieldsJSON)
	}
	if entry.Caller != "" {
		fmt.Fprintf(&b, " caller=%s", entry.Caller)
	}
	return b.String()
}

// SetOutput sets the output writer for the logger and its children
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.out = w
}

// SetLevel sets the log level for the logger and its children
func (l *Logger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(level LogLevel, format LogFormat) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = NewLogger(level, format)
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	logger := globalLogger
	globalMu.RUnlock()
	if logger != nil {
		return logger
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewLogger(LevelInfo, FormatJSON)
	}
	return globalLogger
}

type loggerKey struct{}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext retrieves a logger from the context, falling back to the global logger
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return logger
	}
	return GetGlobalLogger()
}

// WithField adds a field to the global logger
func WithField(key string, value interface{}) *Logger {
	return GetGlobalLogger().WithField(key, value)
}

// WithFields adds multiple fields to the global logger
func WithFields(fields map[string]interface{}) *Logger {
	return GetGlobalLogger().WithFields(fields)
}

// WithError adds an error to the global logger
func WithError(err error) *Logger {
	return GetGlobalLogger().WithError(err)
}

// ParseLogLevel parses a string into a LogLevel, defaulting to info
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "info", "":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		fmt.Fprintf(os.Stderr, "unknown log level %q, defaulting to info\n", level)
		return LevelInfo
	}
}

// ParseLogFormat parses a string into a LogFormat, defaulting to json
func ParseLogFormat(format string) LogFormat {
	switch strings.ToLower(format) {
	case "json", "":
		return FormatJSON
	case "text":
		return FormatText
	default:
		fmt.Fprintf(os.Stderr, "unknown log format %q, defaulting to json\n", format)
		return FormatJSON
	}
}
