package errors

import (
	"log/slog"
)

// LogHandler is an ErrorHandler that writes through a slog.Logger.
type LogHandler struct {
	// Verbose enables detailed output including stack traces.
	Verbose bool
	// Logger receives the records. Nil means slog.Default().
	Logger *slog.Logger
}

func (h *LogHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// HandleError logs an Error.
func (h *LogHandler) HandleError(err *Error) {
	if err == nil {
		return
	}
	attrs := []any{
		slog.String("op", err.Op),
		slog.String("kind", err.Kind.String()),
		slog.Any("err", err.Err),
	}
	if err.Node != "" {
		attrs = append(attrs, slog.String("node", err.Node))
	}
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, slog.String("stack", err.StackTrace))
	}
	h.logger().Error("kite error", attrs...)
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	attrs := []any{
		slog.String("kind", err.Kind().String()),
		slog.Any("value", err.Value),
	}
	if err.Op != "" {
		attrs = append(attrs, slog.String("op", err.Op))
	}
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, slog.String("stack", err.StackTrace))
	}
	h.logger().Error("kite panic", attrs...)
}

// HandleBoundaryError logs a BoundaryError.
func (h *LogHandler) HandleBoundaryError(err *BoundaryError) {
	if err == nil {
		return
	}
	attrs := []any{
		slog.String("phase", err.Phase),
		slog.String("kind", err.Kind().String()),
		slog.Any("recovered", err.Recovered),
	}
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, slog.String("stack", err.StackTrace))
	}
	h.logger().Error("kite frame aborted", attrs...)
}
