// Package vbhtlog provides the leveled logger available to the
// hash-table engine. Within this module its only caller is the
// frequency decayer, which logs one Debug line per sweep; the hash
// table itself does not log. Name, level, a wrapped *log.Logger, and
// "%-5s | %-15s | msg" formatting, behind a plain interface.
package vbhtlog

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/cockroachdb/logtags"
)

// Level is the logger's verbosity threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	// LevelOff disables all output.
	LevelOff
)

// ParseLevel converts a string level to a Level, panicking on an
// unrecognized value: a bad level string is a configuration bug, not a
// runtime condition to recover from.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warning", "warn":
		return LevelWarning
	case "error":
		return LevelError
	case "off":
		return LevelOff
	default:
		panic("vbhtlog: invalid log level: " + level + ". must be one of debug, info, warn, error, off")
	}
}

// Logger is the leveled logger used throughout lib/vbht.
type Logger struct {
	name   string
	level  Level
	logger *log.Logger
}

// New creates a Logger writing to stdout with the given name and level.
func New(name string, level Level) *Logger {
	return &Logger{
		name:   name,
		level:  level,
		logger: log.New(os.Stdout, "", log.Ldate|log.Ltime),
	}
}

func (l *Logger) SetLevel(level Level) { l.level = level }

// TagContext attaches a bucket/lock/generation tag to ctx using
// cockroachdb/logtags, the same "small structured context on a
// context.Context" idiom cockroachdb itself uses for request-scoped log
// tags. A log line written through one of the *Ctx methods with the
// returned context carries its tags as a bracketed prefix, so it can
// report which bucket/lock/generation it concerns without formatting
// that context into every message by hand.
func TagContext(ctx context.Context, key string, value interface{}) context.Context {
	return logtags.AddTag(ctx, key, value)
}

// tagPrefix renders the tags attached to ctx (if any) as a bracketed
// prefix for a log line.
func tagPrefix(ctx context.Context) string {
	buf := logtags.FromContext(ctx)
	if buf == nil || len(buf.Get()) == 0 {
		return ""
	}
	tags := buf.Get()
	parts := make([]string, 0, len(tags))
	for i := range tags {
		tag := &tags[i]
		if v := tag.ValueStr(); v != "" {
			parts = append(parts, tag.Key()+"="+v)
		} else {
			parts = append(parts, tag.Key())
		}
	}
	return "[" + strings.Join(parts, ",") + "] "
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.DebugfCtx(context.Background(), format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.InfofCtx(context.Background(), format, args...)
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	l.WarningfCtx(context.Background(), format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.ErrorfCtx(context.Background(), format, args...)
}

func (l *Logger) DebugfCtx(ctx context.Context, format string, args ...interface{}) {
	if l.level <= LevelDebug {
		l.log(ctx, "DEBUG", format, args...)
	}
}

func (l *Logger) InfofCtx(ctx context.Context, format string, args ...interface{}) {
	if l.level <= LevelInfo {
		l.log(ctx, "INFO", format, args...)
	}
}

func (l *Logger) WarningfCtx(ctx context.Context, format string, args ...interface{}) {
	if l.level <= LevelWarning {
		l.log(ctx, "WARN", format, args...)
	}
}

func (l *Logger) ErrorfCtx(ctx context.Context, format string, args ...interface{}) {
	if l.level <= LevelError {
		l.log(ctx, "ERROR", format, args...)
	}
}

func (l *Logger) log(ctx context.Context, levelStr string, format string, args ...interface{}) {
	l.logger.Printf("%-5s | %-15s | "+tagPrefix(ctx)+format, append([]interface{}{levelStr, l.name}, args...)...)
}
