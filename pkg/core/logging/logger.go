// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     logging
// Description: Structured leveled logger shared by all services
// ============================================================================

package logging

import (
	"io"
	"os"
	"sync"
	"time"
)

// Logger is a structured logger with a name and persistent context fields.
// With* methods return clones, so derived loggers never mutate their parent.
type Logger struct {
	name      string
	level     Level
	formatter Formatter
	output    io.Writer
	fields    Fields
	requestID string

	mu sync.Mutex
}

// Config holds logger configuration
type Config struct {
	Name   string
	Level  Level
	Format Format
	Output io.Writer
}

// New creates a named logger with default settings (info level, JSON to stdout)
func New(name string) *Logger {
	return NewWithConfig(Config{Name: name})
}

// NewWithConfig creates a logger from an explicit configuration
func NewWithConfig(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	return &Logger{
		name:      cfg.Name,
		level:     cfg.Level,
		formatter: GetFormatter(cfg.Format),
		output:    out,
		fields:    make(Fields),
	}
}

func (l *Logger) clone() *Logger {
	fields := make(Fields, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{
		name:      l.name,
		level:     l.level,
		formatter: l.formatter,
		output:    l.output,
		fields:    fields,
		requestID: l.requestID,
	}
}

// WithLevel returns a logger with the given minimum level
func (l *Logger) WithLevel(level Level) *Logger {
	clone := l.clone()
	clone.level = level
	return clone
}

// WithOutput returns a logger writing to the given destination
func (l *Logger) WithOutput(output io.Writer) *Logger {
	clone := l.clone()
	clone.output = output
	return clone
}

// WithField returns a logger with a persistent field on every entry
func (l *Logger) WithField(key string, value interface{}) *Logger {
	clone := l.clone()
	clone.fields[key] = value
	return clone
}

// WithRequestID returns a logger carrying the request ID on every entry
func (l *Logger) WithRequestID(requestID string) *Logger {
	clone := l.clone()
	clone.requestID = requestID
	return clone
}

// Debug logs a debug message with optional key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(LevelDebug, msg, keysAndValues...)
}

// Info logs an info message with optional key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(LevelInfo, msg, keysAndValues...)
}

// Warn logs a warning message with optional key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(LevelWarn, msg, keysAndValues...)
}

// Error logs an error message with optional key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.log(LevelError, msg, keysAndValues...)
}

func (l *Logger) log(level Level, msg string, keysAndValues ...interface{}) {
	if level < l.level {
		return
	}

	entry := &Entry{
		Timestamp: time.Now(),
		Level:     level,
		Logger:    l.name,
		Message:   msg,
		RequestID: l.requestID,
		Fields:    l.mergeFields(keysAndValues...),
	}

	data := l.formatter.Format(entry)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write(data)
}

// mergeFields combines persistent fields with call-site key-value pairs.
// Keys must be strings; malformed pairs are skipped.
func (l *Logger) mergeFields(keysAndValues ...interface{}) Fields {
	if len(l.fields) == 0 && len(keysAndValues) == 0 {
		return nil
	}

	fields := make(Fields, len(l.fields)+len(keysAndValues)/2)
	for k, v := range l.fields {
		fields[k] = v
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
