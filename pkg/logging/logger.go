// Package logging writes structured log lines as JSON, one object per line.
//
// Loggers carry preset fields, so the logger handed to a clustering run
// tags every line it writes with the run id.
package logging

import (
	"encoding/json"
	"io"
	"slices"
	"sync"
	"time"
)

// Logger is the logging surface used across the module.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a logger that adds fields to every line.
	With(fields ...Field) Logger
}

// output is shared by a logger and every child made with With, so lines
// from concurrent children never interleave.
type output struct {
	mu sync.Mutex
	w  io.Writer
}

// JSONLogger writes lines at or above its level as JSON objects.
type JSONLogger struct {
	out    *output
	level  Level
	preset []Field
}

type entry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func NewJSONLogger(w io.Writer, level Level) *JSONLogger {
	return &JSONLogger{out: &output{w: w}, level: level}
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.write(DebugLevel, msg, fields) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.write(InfoLevel, msg, fields) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.write(WarnLevel, msg, fields) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.write(ErrorLevel, msg, fields) }

func (l *JSONLogger) With(fields ...Field) Logger {
	return &JSONLogger{
		out:    l.out,
		level:  l.level,
		preset: append(slices.Clip(l.preset), fields...),
	}
}

// Level returns the minimum level l writes.
func (l *JSONLogger) Level() Level {
	return l.level
}

func (l *JSONLogger) write(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	e := entry{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}
	if n := len(l.preset) + len(fields); n > 0 {
		e.Fields = make(map[string]any, n)
		for _, f := range l.preset {
			e.Fields[f.Key] = f.Value
		}
		// Call-site fields win over preset ones.
		for _, f := range fields {
			e.Fields[f.Key] = f.Value
		}
	}

	data, err := json.Marshal(e)
	if err != nil {
		data, _ = json.Marshal(entry{
			Time:    e.Time,
			Level:   ErrorLevel.String(),
			Message: "log entry not encodable",
			Fields:  map[string]any{"dropped_msg": msg, "error": err.Error()},
		})
	}
	data = append(data, '\n')

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	_, _ = l.out.w.Write(data)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (n NopLogger) With(...Field) Logger { return n }

func NewNopLogger() Logger {
	return NopLogger{}
}
