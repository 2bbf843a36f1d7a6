package log

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/dtreegen/pkg/errors"
)

// ZerologLogger は zerolog をバックエンドとする Logger 実装。
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger は w に書き出す Logger を作成する。
// format が "console" の場合は人間向けの整形出力、それ以外は JSON 行。
func NewZerologLogger(w io.Writer, level Level, format string) *ZerologLogger {
	out := w
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	zl := zerolog.New(out).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) {
	l.emit(l.zl.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) {
	l.emit(l.zl.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) {
	l.emit(l.zl.Warn(), msg, fields)
}

// Error implements Logger.Error.
func (l *ZerologLogger) Error(msg string, fields ...any) {
	l.emit(l.zl.Error(), msg, fields)
}

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ctx = ctx.Err(err)
			fields = fields[1:]
		}
	}
	ctx = ctx.Fields(pairs(fields))
	return &ZerologLogger{zl: ctx.Logger()}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

// Warning は errors.Warn から呼ばれる警告ハンドラ。
// zerolog.LogObjectMarshaler を実装する警告は構造化フィールドとして埋め込む。
func (l *ZerologLogger) Warning(w error) {
	ev := l.zl.Warn()
	if m, ok := w.(zerolog.LogObjectMarshaler); ok {
		ev = ev.EmbedObject(m)
	}
	ev.Msg(w.Error())
}

// InstallWarnings は errors パッケージの警告出力先をこのロガーにする。
func (l *ZerologLogger) InstallWarnings() {
	errors.SetZerologWarnFunc(l.Warning)
}

func (l *ZerologLogger) emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
			if st := extractStacktrace(err); st != "" {
				ev = ev.Str(StacktraceAttrKey, st)
			}
			fields = fields[1:]
		}
	}
	ev.Fields(pairs(fields)).Msg(msg)
}

// pairs は key/value の可変長引数を map に変換する。
// 奇数個の場合、末尾の値は "!BADKEY" に格納する。
func pairs(fields []any) map[string]any {
	m := make(map[string]any, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok || i+1 >= len(fields) {
			m["!BADKEY"] = fields[i]
			continue
		}
		m[key] = fields[i+1]
	}
	return m
}
