package log

import (
	"context"
	"io"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger on top of github.com/rs/zerolog.
// Field values implementing zerolog.LogObjectMarshaler (the error and
// warning types of pkg/errors do) are emitted as nested objects.
type ZerologLogger struct {
	logger zerolog.Logger
	level  Level
}

// NewZerologLogger creates a JSON logger writing to w at the given minimum level.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{logger: zl, level: level}
}

// NewConsoleLogger creates a human-readable zerolog logger, for CLIs and demos.
func NewConsoleLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{logger: zl, level: level}
}

// Debug implements Logger.Debug.
func (z *ZerologLogger) Debug(msg string, fields ...any) {
	emit(z.logger.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (z *ZerologLogger) Info(msg string, fields ...any) {
	emit(z.logger.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (z *ZerologLogger) Warn(msg string, fields ...any) {
	emit(z.logger.Warn(), msg, fields)
}

// Error implements Logger.Error.
func (z *ZerologLogger) Error(msg string, fields ...any) {
	err, rest := splitError(fields)
	ev := z.logger.Error()
	if err != nil {
		ev = ev.Err(err)
		if stack := extractStacktrace(err); stack != "" {
			ev = ev.Str(StacktraceAttrKey, stack)
		}
	}
	emit(ev, msg, rest)
}

// With implements Logger.With.
func (z *ZerologLogger) With(fields ...any) Logger {
	ctx := z.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fieldKey(fields[i])
		switch v := fields[i+1].(type) {
		case zerolog.LogObjectMarshaler:
			ctx = ctx.Object(key, v)
		case error:
			ctx = ctx.AnErr(key, v)
		default:
			ctx = ctx.Interface(key, v)
		}
	}
	return &ZerologLogger{logger: ctx.Logger(), level: z.level}
}

// Enabled implements Logger.Enabled.
func (z *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= z.level
}

// emit is a no-op when ev is nil, which zerolog returns for disabled levels.
func emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fieldKey(fields[i])
		switch v := fields[i+1].(type) {
		case zerolog.LogObjectMarshaler:
			ev = ev.Object(key, v)
		case error:
			ev = ev.AnErr(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
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
