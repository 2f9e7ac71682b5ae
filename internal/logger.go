// Package internal contains the telemetry plumbing shared by the
// library components.
package internal

import (
	"context"
	"log/slog"
	"os"
	"runtime"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Logger is a slog logger that tags every record with the component
// kind and name. Records go to the console through the tint handler
// and to the OpenTelemetry log bridge; the bridge is a no-op until an
// application installs a logger provider.
type Logger struct {
	*slog.Logger

	kind string
	name string
}

// NewLogger returns a new [Logger] for the given component.
func NewLogger(componentKind, componentName string) *Logger {
	var console slog.Handler

	if runtime.GOOS == "windows" {
		w := colorable.NewColorableStdout()
		console = tint.NewHandler(w, nil)
	} else {
		w := os.Stderr
		console = tint.NewHandler(w, &tint.Options{
			NoColor: !isatty.IsTerminal(w.Fd()),
		})
	}

	handler := newFanoutHandler(console, otelslog.NewHandler("anello"))

	return &Logger{
		Logger: slog.New(handler),

		kind: componentKind,
		name: componentName,
	}
}

func (l *Logger) getInfo() slog.Attr {
	return slog.Group("component", slog.String("kind", l.kind), slog.String("name", l.name))
}

func (l *Logger) getArgs(args ...any) []any {
	return append([]any{l.getInfo()}, args...)
}

// Info logs at the info level.
func (l *Logger) Info(msg string, args ...any) {
	l.Logger.Info(msg, l.getArgs(args...)...)
}

// Warn logs at the warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, l.getArgs(args...)...)
}

// Error logs at the error level.
func (l *Logger) Error(msg string, err error, args ...any) {
	tmpArgs := append([]any{tint.Err(err)}, args...)
	l.Logger.Error(msg, l.getArgs(tmpArgs...)...)
}

// fanoutHandler delivers each record to every wrapped handler.
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) *fanoutHandler {
	return &fanoutHandler{handlers: handlers}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var resErr error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}

		if err := handler.Handle(ctx, record.Clone()); err != nil {
			resErr = err
		}
	}

	return resErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for idx, handler := range h.handlers {
		handlers[idx] = handler.WithAttrs(attrs)
	}

	return newFanoutHandler(handlers...)
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for idx, handler := range h.handlers {
		handlers[idx] = handler.WithGroup(name)
	}

	return newFanoutHandler(handlers...)
}
