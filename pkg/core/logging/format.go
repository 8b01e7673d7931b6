// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     logging
// Description: Log entry formatting (JSON and text)
// ============================================================================

package logging

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Fields holds structured key-value pairs attached to a log entry
type Fields map[string]interface{}

// Entry is a single log record before formatting
type Entry struct {
	Timestamp time.Time
	Level     Level
	Logger    string
	Message   string
	RequestID string
	Fields    Fields
}

// Formatter renders an entry to bytes including the trailing newline
type Formatter interface {
	Format(e *Entry) []byte
}

// Format selects an output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// GetFormatter returns the formatter for a format, defaulting to JSON
func GetFormatter(f Format) Formatter {
	if f == FormatText {
		return &TextFormatter{}
	}
	return &JSONFormatter{}
}

// JSONFormatter renders entries as single-line JSON objects
type JSONFormatter struct{}

// Format implements Formatter
func (f *JSONFormatter) Format(e *Entry) []byte {
	payload := map[string]interface{}{
		"time":    e.Timestamp.UTC().Format(time.RFC3339Nano),
		"level":   e.Level.String(),
		"message": e.Message,
	}
	if e.Logger != "" {
		payload["logger"] = e.Logger
	}
	if e.RequestID != "" {
		payload["request_id"] = e.RequestID
	}
	for k, v := range e.Fields {
		if _, reserved := payload[k]; !reserved {
			payload[k] = v
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// Fields can carry unmarshalable values; fall back to the bare message.
		data, _ = json.Marshal(map[string]string{
			"time":    e.Timestamp.UTC().Format(time.RFC3339Nano),
			"level":   e.Level.String(),
			"message": e.Message,
		})
	}
	return append(data, '\n')
}

// TextFormatter renders entries as human-readable lines
type TextFormatter struct{}

// Format implements Formatter
func (f *TextFormatter) Format(e *Entry) []byte {
	var b strings.Builder
	b.WriteString(e.Timestamp.Format("2006-01-02 15:04:05.000"))
	b.WriteString(" [")
	b.WriteString(strings.ToUpper(e.Level.String()))
	b.WriteString("]")
	if e.Logger != "" {
		b.WriteString(" ")
		b.WriteString(e.Logger)
		b.WriteString(":")
	}
	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.RequestID != "" {
		b.WriteString(" request_id=")
		b.WriteString(e.RequestID)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
		}
	}
	b.WriteString("\n")
	return []byte(b.String())
}
