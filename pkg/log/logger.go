package log

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
)

// zerologLogger implements Logger on top of a zerolog.Logger.
type zerologLogger struct {
	zl zerolog.Logger
}

// zerologProvider implements LoggerProvider. A single process-wide instance
// backs GetLogger and GetLoggerWithName.
type zerologProvider struct {
	mu    sync.RWMutex
	base  zerolog.Logger
	level zerolog.Level
}

var defaultProvider = newZerologProvider()

func newZerologProvider() *zerologProvider {
	base := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return &zerologProvider{
		base:  base,
		level: zerolog.WarnLevel,
	}
}

func init() {
	// Route library warnings (skipped trees, undefined metrics) through
	// structured logging.
	errors.SetZerologWarnFunc(func(warning error) {
		logger := defaultProvider.GetLoggerWithName("warnings")
		logger.Warn(warning.Error(), ErrAttrKey, warning)
	})
}

// GetLogger returns the default process-wide logger.
func GetLogger() Logger {
	return defaultProvider.GetLogger()
}

// GetLoggerWithName returns a logger tagged with a component name, for
// example "ensemble.forest" or "tree.builder".
func GetLoggerWithName(name string) Logger {
	return defaultProvider.GetLoggerWithName(name)
}

// SetLevel sets the minimum level for all loggers obtained from this package.
// The default is LevelWarn so a library consumer is not flooded with
// progress output unless they opt in.
func SetLevel(level Level) {
	defaultProvider.SetLevel(level)
}

// GetLogger implements LoggerProvider.
func (p *zerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base.Level(p.level)}
}

// GetLoggerWithName implements LoggerProvider.
func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	zl := p.base.Level(p.level).With().Str(ComponentKey, name).Logger()
	return &zerologLogger{zl: zl}
}

// SetLevel implements LoggerProvider.
func (p *zerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = toZerologLevel(level)
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

// Debug implements Logger.
func (l *zerologLogger) Debug(msg string, fields ...any) {
	l.emit(l.zl.Debug(), msg, fields)
}

// Info implements Logger.
func (l *zerologLogger) Info(msg string, fields ...any) {
	l.emit(l.zl.Info(), msg, fields)
}

// Warn implements Logger.
func (l *zerologLogger) Warn(msg string, fields ...any) {
	l.emit(l.zl.Warn(), msg, fields)
}

// Error implements Logger.
func (l *zerologLogger) Error(msg string, fields ...any) {
	l.emit(l.zl.Error(), msg, fields)
}

// With implements Logger.
func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprint(fields[i])
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zerologLogger{zl: ctx.Logger()}
}

// Enabled implements Logger.
func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

// emit attaches fields to the event and sends it. An error passed as the
// first bare field, or under ErrAttrKey, gets stack trace extraction.
func (l *zerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}

	i := 0
	// Leading bare error value, e.g. logger.Error("fit failed", err, ...).
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			attachError(e, err)
			i = 1
		}
	}

	for ; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprint(fields[i])
		}
		if err, isErr := fields[i+1].(error); isErr && key == ErrAttrKey {
			attachError(e, err)
			continue
		}
		e = e.Interface(key, fields[i+1])
	}

	e.Msg(msg)
}

func attachError(e *zerolog.Event, err error) {
	e.AnErr(ErrAttrKey, err)
	if st := extractStacktrace(err); st != "" {
		e.Str(StacktraceAttrKey, st)
	}
	if obj, ok := err.(zerolog.LogObjectMarshaler); ok {
		e.Object("error_detail", obj)
	}
}
