package errors

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	handlerMu sync.RWMutex
	handler   ErrorHandler = &LogHandler{}
)

// SetHandler installs the process-wide error handler. Nil restores a
// LogHandler writing to slog's default logger.
func SetHandler(h ErrorHandler) {
	if h == nil {
		h = &LogHandler{}
	}
	handlerMu.Lock()
	handler = h
	handlerMu.Unlock()
}

// Handler returns the installed error handler.
func Handler() ErrorHandler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return handler
}

// stamp sets *ts to now when it is zero.
func stamp(ts *time.Time) {
	if ts.IsZero() {
		*ts = time.Now()
	}
}

// Report hands err to the installed handler, stamping it if needed.
func Report(err *Error) {
	if err == nil {
		return
	}
	stamp(&err.Timestamp)
	Handler().HandleError(err)
}

// ReportPanic hands a recovered panic to the installed handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	stamp(&err.Timestamp)
	Handler().HandlePanic(err)
}

// ReportBoundaryError hands an aborted frame to the installed handler.
func ReportBoundaryError(err *BoundaryError) {
	if err == nil {
		return
	}
	stamp(&err.Timestamp)
	Handler().HandleBoundaryError(err)
}

// Recover reports a panic in the calling goroutine instead of crashing the
// process. It must be deferred directly:
//
//	defer errors.Recover("button.runtime")
//
// A contract violation raised with an empty op keeps the violated
// operation's name.
func Recover(op string) {
	if r := recover(); r != nil {
		ReportPanic(panicError(op, r))
	}
}

func panicError(op string, r any) *PanicError {
	if ce, ok := r.(*ContractError); ok && op == "" {
		op = ce.Op
	}
	return &PanicError{
		Op:         op,
		Value:      r,
		StackTrace: CaptureStack(),
		Timestamp:  time.Now(),
	}
}

// CaptureStack formats the caller's stack, one "function\n\tfile:line" pair
// per frame. Frames inside the Go runtime (panic machinery, goexit) are left
// out.
func CaptureStack() string {
	var pcs [32]uintptr
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for {
		f, more := frames.Next()
		if f.Function != "" && !strings.HasPrefix(f.Function, "runtime.") {
			fmt.Fprintf(&sb, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		}
		if !more {
			break
		}
	}
	return sb.String()
}
