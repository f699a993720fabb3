package testing

import (
	"context"
	"image"
	"testing"

	"github.com/go-drift/kite/pkg/core"
	"github.com/go-drift/kite/pkg/engine"
	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/platform"
)

const (
	// DefaultTestWidth is the default width of the test window.
	DefaultTestWidth = 800
	// DefaultTestHeight is the default height of the test window.
	DefaultTestHeight = 600
	// DefaultTitle is the title of the test window.
	DefaultTitle = "kitetest"
)

// Tester renders a tree into a headless window and feeds it input
// synchronously. It is not safe for concurrent use.
type Tester struct {
	backend *platform.Headless
	win     *engine.Window
	root    core.Children
	ctx     context.Context
}

// NewTester creates a tester with a DefaultTestWidth x DefaultTestHeight
// window. Call Cleanup when done, or use NewTesterWithT instead.
func NewTester(root core.Children) *Tester {
	return NewTesterWithOptions(root, engine.DefaultOptions())
}

// NewTesterWithOptions creates a tester whose window uses opts.
func NewTesterWithOptions(root core.Children, opts engine.Options) *Tester {
	if root == nil {
		root = core.Empty{}
	}
	backend := platform.NewHeadless(DefaultTitle, DefaultTestWidth, DefaultTestHeight, 1)
	return &Tester{
		backend: backend,
		win:     engine.New(backend, root, opts),
		root:    root,
		ctx:     context.Background(),
	}
}

// NewTesterWithT creates a tester that is cleaned up via t.Cleanup().
// This is the recommended constructor for tests.
func NewTesterWithT(t *testing.T, root core.Children) *Tester {
	tester := NewTester(root)
	tester.ctx = t.Context()
	t.Cleanup(tester.Cleanup)
	return tester
}

// Cleanup abandons the tree, ending every element runtime.
func (t *Tester) Cleanup() {
	t.root.Abandon()
}

// Window returns the window under test.
func (t *Tester) Window() *engine.Window {
	return t.win
}

// Backend returns the headless backend.
func (t *Tester) Backend() *platform.Headless {
	return t.backend
}

// SetSize resizes the window and delivers platform.Resized. The new size is
// laid out by the next Pump.
func (t *Tester) SetSize(width, height int) error {
	t.backend.Resize(width, height)
	return t.Send(platform.Resized{Width: width, Height: height})
}

// Pump renders one frame.
func (t *Tester) Pump() error {
	return t.win.RenderFrame()
}

// PumpN renders n frames, stopping at the first error.
func (t *Tester) PumpN(n int) error {
	for range n {
		if err := t.Pump(); err != nil {
			return err
		}
	}
	return nil
}

// Send delivers one raw platform event to the window.
func (t *Tester) Send(ev platform.Event) error {
	return t.win.HandleEvent(t.ctx, ev)
}

// Frame returns the last presented frame, or nil before the first Pump.
func (t *Tester) Frame() *image.RGBA {
	return t.backend.LastFrame()
}

// ColorAt returns the color of the last presented frame at (x, y). It is
// transparent before the first Pump.
func (t *Tester) ColorAt(x, y int) graphics.Color {
	frame := t.Frame()
	if frame == nil {
		return graphics.ColorTransparent
	}
	c := frame.RGBAAt(x, y)
	return graphics.RGBA8(c.R, c.G, c.B, c.A)
}
