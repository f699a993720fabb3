package core

import (
	"time"

	"github.com/go-drift/kite/pkg/event"
	"github.com/go-drift/kite/pkg/focus"
	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/hittest"
	"github.com/go-drift/kite/pkg/platform"
)

// RenderContext carries what a render pass needs through the tree. The engine
// builds one per frame; tests may build one by hand.
type RenderContext struct {
	// Canvas is the main drawing surface.
	Canvas graphics.Canvas
	// Window is the window being rendered.
	Window platform.WindowHandle
	// Delta is the time since the previous frame.
	Delta time.Duration
	// Bus is the window-wide event scope.
	Bus *event.Dispatcher
	// Close requests the window to close.
	Close platform.CloseHandle
	// Hit receives every node's interact region.
	Hit *hittest.Builder
	// Focus collects focusable nodes. May be nil.
	Focus *focus.Manager
	// Layers collects independent layers. May be nil.
	Layers *graphics.LayerRegistry
	// Registry tracks keyed nodes. May be nil.
	Registry *Registry

	path []*event.Dispatcher
}

// Parent returns the scope of the node currently rendering, or nil at the
// root.
func (c *RenderContext) Parent() *event.Dispatcher {
	if len(c.path) == 0 {
		return nil
	}
	return c.path[len(c.path)-1]
}

// Ancestors returns the scopes of the nodes enclosing the current position,
// outermost first. The slice is only valid until the next enter or leave.
func (c *RenderContext) Ancestors() []*event.Dispatcher {
	return c.path
}

func (c *RenderContext) enter(d *event.Dispatcher) {
	c.path = append(c.path, d)
}

func (c *RenderContext) leave() {
	c.path = c.path[:len(c.path)-1]
}
