package platform

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"
)

// Headless is an in-memory Backend for tests and offline replay. Events are
// injected with Send and presented frames are kept for inspection.
type Headless struct {
	title  string
	width  int
	height int
	scale  float64

	events chan Event

	// sendMu keeps Send and Shutdown from racing on the channel close.
	sendMu sync.RWMutex
	closed bool

	mu     sync.Mutex
	frames int
	last   *image.RGBA
}

// NewHeadless creates a headless window of the given size. buffer is the
// capacity of the event channel.
func NewHeadless(title string, width, height, buffer int) *Headless {
	return &Headless{
		title:  title,
		width:  width,
		height: height,
		scale:  1,
		events: make(chan Event, buffer),
	}
}

// Window returns the headless window handle.
func (h *Headless) Window() WindowHandle {
	return h
}

// Title returns the window title.
func (h *Headless) Title() string {
	return h.title
}

// Size returns the window size.
func (h *Headless) Size() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.width, h.height
}

// ScaleFactor always returns 1.
func (h *Headless) ScaleFactor() float64 {
	return h.scale
}

// Events returns the injected event stream.
func (h *Headless) Events() <-chan Event {
	return h.events
}

// Send injects a raw event. It blocks when the buffer is full and fails once
// the backend has been shut down.
func (h *Headless) Send(ev Event) error {
	h.sendMu.RLock()
	defer h.sendMu.RUnlock()
	if h.closed {
		return fmt.Errorf("headless %q: %w", h.title, ErrClosed)
	}
	if r, ok := ev.(Resized); ok {
		h.Resize(r.Width, r.Height)
	}
	h.events <- ev
	return nil
}

// Resize changes the window size without queuing a Resized event.
func (h *Headless) Resize(width, height int) {
	h.mu.Lock()
	h.width, h.height = width, height
	h.mu.Unlock()
}

// Shutdown closes the event stream. Sends blocked on a full buffer must be
// drained before Shutdown can complete.
func (h *Headless) Shutdown() {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.events)
}

// Present stores a copy of the frame.
func (h *Headless) Present(frame *image.RGBA) error {
	cp := image.NewRGBA(frame.Bounds())
	draw.Draw(cp, cp.Bounds(), frame, frame.Bounds().Min, draw.Src)
	h.mu.Lock()
	h.last = cp
	h.frames++
	h.mu.Unlock()
	return nil
}

// LastFrame returns the most recently presented frame, or nil.
func (h *Headless) LastFrame() *image.RGBA {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// FrameCount returns how many frames were presented.
func (h *Headless) FrameCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}
