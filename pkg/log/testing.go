// This file contains helpers that capture log output in memory so tests can
// assert on what was logged without touching stderr.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// TestLogger is a Logger that records every entry as a JSON line in memory.
type TestLogger struct {
	mu     *sync.Mutex
	buffer *bytes.Buffer
	level  Level
	fields []any
}

// NewTestLogger creates a TestLogger capturing entries at or above level.
//
// Example:
//
//	logger, buffer := log.NewTestLogger(log.LevelDebug)
//	logger.Info("test message", "key", "value")
//	output := buffer.String()
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	return &TestLogger{mu: &sync.Mutex{}, buffer: buffer, level: level}, buffer
}

// Debug implements Logger.Debug.
func (t *TestLogger) Debug(msg string, fields ...any) { t.write(LevelDebug, msg, fields) }

// Info implements Logger.Info.
func (t *TestLogger) Info(msg string, fields ...any) { t.write(LevelInfo, msg, fields) }

// Warn implements Logger.Warn.
func (t *TestLogger) Warn(msg string, fields ...any) { t.write(LevelWarn, msg, fields) }

// Error implements Logger.Error.
func (t *TestLogger) Error(msg string, fields ...any) { t.write(LevelError, msg, fields) }

// With implements Logger.With. The returned logger shares the buffer.
func (t *TestLogger) With(fields ...any) Logger {
	merged := make([]any, 0, len(t.fields)+len(fields))
	merged = append(merged, t.fields...)
	merged = append(merged, fields...)
	return &TestLogger{mu: t.mu, buffer: t.buffer, level: t.level, fields: merged}
}

// Enabled implements Logger.Enabled.
func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return level >= t.level
}

func (t *TestLogger) write(level Level, msg string, fields []any) {
	if level < t.level {
		return
	}
	entry := map[string]interface{}{
		"level": level.String(),
		"msg":   msg,
	}
	all := append(append([]any{}, t.fields...), fields...)
	for i := 0; i < len(all); i++ {
		if err, ok := all[i].(error); ok {
			entry[ErrAttrKey] = err.Error()
			continue
		}
		key, ok := all[i].(string)
		if !ok || i+1 >= len(all) {
			continue
		}
		entry[key] = all[i+1]
		i++
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buffer.Write(data)
	t.buffer.WriteByte('\n')
}

// GetLogEntries parses every captured line.
func (t *TestLogger) GetLogEntries() ([]map[string]interface{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(t.buffer.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any entry has the given message.
func (t *TestLogger) ContainsMessage(msg string) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e["msg"] == msg {
			return true
		}
	}
	return false
}

// ContainsField reports whether any entry has key set to a value whose JSON
// form equals value's JSON form.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	want, err := json.Marshal(value)
	if err != nil {
		return false
	}
	for _, e := range entries {
		v, ok := e[key]
		if !ok {
			continue
		}
		got, err := json.Marshal(v)
		if err == nil && bytes.Equal(got, want) {
			return true
		}
	}
	return false
}

// Clear drops every captured entry.
func (t *TestLogger) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buffer.Reset()
}
