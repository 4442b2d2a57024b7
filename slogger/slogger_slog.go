package slogger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

var DefaultLogLevel = LevelInfo

// LogLevel is the minimum level a logger emits.
type LogLevel slog.Level

const (
	LevelDebug LogLevel = LogLevel(slog.LevelDebug)
	LevelInfo  LogLevel = LogLevel(slog.LevelInfo)
	LevelWarn  LogLevel = LogLevel(slog.LevelWarn)
	LevelError LogLevel = LogLevel(slog.LevelError)
)

// Slogger is a Logger on top of a slog.Handler. Every record carries a
// "caller" attribute naming the file and line that logged it.
type Slogger struct {
	handler slog.Handler
}

// New returns a Slogger writing to stderr. Output is colorized when stderr
// is a terminal.
func New(level LogLevel) *Slogger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter returns a Slogger writing human readable lines to w. Color
// is enabled only when w is a terminal.
func NewWithWriter(w io.Writer, level LogLevel) *Slogger {
	return &Slogger{handler: tint.NewHandler(w, &tint.Options{
		NoColor:    !isTerminal(w),
		TimeFormat: time.Kitchen,
		Level:      slog.Level(level),
	})}
}

// NewJSON returns a Slogger writing one JSON object per line to w.
func NewJSON(w io.Writer, level LogLevel) *Slogger {
	return &Slogger{handler: slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.Level(level)})}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (l *Slogger) Debug(msg string, keysAndValues ...any) {
	l.log(slog.LevelDebug, msg, keysAndValues)
}

func (l *Slogger) Info(msg string, keysAndValues ...any) {
	l.log(slog.LevelInfo, msg, keysAndValues)
}

func (l *Slogger) Warn(msg string, keysAndValues ...any) {
	l.log(slog.LevelWarn, msg, keysAndValues)
}

func (l *Slogger) Error(msg string, keysAndValues ...any) {
	l.log(slog.LevelError, msg, keysAndValues)
}

func (l *Slogger) With(keysAndValues ...any) Logger {
	return &Slogger{handler: slog.New(l.handler).With(keysAndValues...).Handler()}
}

func (l *Slogger) log(level slog.Level, msg string, keysAndValues []any) {
	ctx := context.Background()
	if !l.handler.Enabled(ctx, level) {
		return
	}
	// Skip runtime.Callers, log and the level method.
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.AddAttrs(slog.String("caller", caller(pcs[0])))
	r.Add(keysAndValues...)
	_ = l.handler.Handle(ctx, r)
}

// caller formats pc as "dir/file.go:line".
func caller(pc uintptr) string {
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return "unknown"
	}
	dir := filepath.Base(filepath.Dir(frame.File))
	return fmt.Sprintf("%s/%s:%d", dir, filepath.Base(frame.File), frame.Line)
}
