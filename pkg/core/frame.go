package core

import (
	"time"

	"github.com/go-drift/kite/pkg/event"
	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/platform"
)

// Frame is what an element sees while it renders.
type Frame struct {
	ctx      *RenderContext
	scope    *event.Dispatcher
	children Children
	region   graphics.Region
	interact *graphics.Region
	entered  bool
	pressed  bool
}

// Region returns the region the node was laid out into.
func (f *Frame) Region() graphics.Region {
	return f.region
}

// Canvas returns the main drawing surface.
func (f *Frame) Canvas() graphics.Canvas {
	return f.ctx.Canvas
}

// Layer registers an independent layer covering the node's region, composited
// over the main canvas with the given opacity at the end of the frame. Layer
// coordinates are relative to the region's top-left corner. It returns nil
// when the window has no layer support.
func (f *Frame) Layer(alpha float64) *graphics.Layer {
	if f.ctx.Layers == nil {
		return nil
	}
	return f.ctx.Layers.Register(f.region, alpha)
}

// SetInteractRegion replaces the region that receives pointer events. It
// defaults to the node's region.
func (f *Frame) SetInteractRegion(r graphics.Region) {
	f.interact = &r
}

// ClearInteractRegion makes the node transparent to hit testing. It still
// receives events bubbling up from its descendants.
func (f *Frame) ClearInteractRegion() {
	f.interact = nil
}

// InteractRegion returns the current interact region, or nil.
func (f *Frame) InteractRegion() *graphics.Region {
	return f.interact
}

// Delta returns the time elapsed since the previous frame.
func (f *Frame) Delta() time.Duration {
	return f.ctx.Delta
}

// Window returns the window being rendered.
func (f *Frame) Window() platform.WindowHandle {
	return f.ctx.Window
}

// WindowBus returns the window-wide event scope.
func (f *Frame) WindowBus() *event.Dispatcher {
	return f.ctx.Bus
}

// Close returns the window's close handle.
func (f *Frame) Close() platform.CloseHandle {
	return f.ctx.Close
}

// Dispatcher returns the node's own scope.
func (f *Frame) Dispatcher() *event.Dispatcher {
	return f.scope
}

// Children returns the node's child structure.
func (f *Frame) Children() Children {
	return f.children
}

// Entered reports whether the pointer was logically inside the node after the
// last pointer event.
func (f *Frame) Entered() bool {
	return f.entered
}

// Pressed reports whether a press started inside the node and has not been
// released yet.
func (f *Frame) Pressed() bool {
	return f.pressed
}

// Focused reports whether the node holds keyboard focus.
func (f *Frame) Focused() bool {
	return f.ctx.Focus != nil && f.ctx.Focus.HasFocus(f.scope)
}

// RequestFocus gives the node keyboard focus.
func (f *Frame) RequestFocus() {
	if f.ctx.Focus != nil {
		f.ctx.Focus.Request(f.scope)
	}
}
