package platform

import (
	"image"
	"sync"
)

// WindowHandle is the read-only view of a platform window.
type WindowHandle interface {
	// Title returns the window title.
	Title() string
	// Size returns the drawable size in pixels.
	Size() (width, height int)
	// ScaleFactor returns the ratio of physical to logical pixels.
	ScaleFactor() float64
}

// Backend is a windowing backend. It runs on its own goroutine or thread and
// communicates with the element tree only through channels and Present.
type Backend interface {
	// Window returns the handle of the backing window.
	Window() WindowHandle
	// Events returns the raw input stream. The channel is closed when the
	// backend shuts down.
	Events() <-chan Event
	// Present hands a finished frame to the backend. The image must not be
	// modified by the caller after Present returns.
	Present(frame *image.RGBA) error
}

// CloseHandle lets any part of the program ask the window to close.
// The zero value is not usable; use NewCloseHandle.
type CloseHandle struct {
	once *sync.Once
	done chan struct{}
}

// NewCloseHandle creates an open close handle.
func NewCloseHandle() CloseHandle {
	return CloseHandle{once: &sync.Once{}, done: make(chan struct{})}
}

// Close requests the window to close. Later calls have no effect.
func (h CloseHandle) Close() {
	h.once.Do(func() { close(h.done) })
}

// Done is closed once Close has been called.
func (h CloseHandle) Done() <-chan struct{} {
	return h.done
}

// Closed reports whether Close has been called.
func (h CloseHandle) Closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
