package event

import "github.com/go-drift/kite/pkg/graphics"

// ElementAbandoned is emitted once on a node's scope when the node is removed
// from the tree. Outstanding handles may keep the node alive; runtimes that
// observe this event should return.
type ElementAbandoned struct{}

// DispatcherCreated carries a freshly created node scope. It is emitted on the
// parent node's scope when a child node is mounted.
type DispatcherCreated struct {
	Dispatcher *Dispatcher
}

// ElementCreated is emitted on every ancestor scope when a node carrying a key
// is mounted.
type ElementCreated struct {
	Dispatcher *Dispatcher
	Key        any
}

// PointerEntered reports that the pointer entered the viewport (window scope)
// or the node's logical area (node scope).
type PointerEntered struct{}

// PointerOut reports that the pointer left the viewport (window scope) or the
// node's logical area (node scope).
type PointerOut struct{}

// PointerDown reports a press.
type PointerDown struct {
	// IsCurrent is true for the copy delivered to node scopes through hit
	// testing and false for the window-wide copy.
	IsCurrent bool
	Position  graphics.Point
}

// PointerUp reports a release.
type PointerUp struct {
	IsCurrent bool
	Position  graphics.Point
}

// PointerMove reports a pointer move without a press state change.
type PointerMove struct {
	IsCurrent bool
	Position  graphics.Point
	Delta     graphics.Point
}

// Click is emitted on a node's scope when a press and the following release
// both happen while the pointer is logically inside the node.
type Click struct {
	IsCurrent bool
}

// Focused is emitted on a node's scope when it gains focus.
type Focused struct{}

// Blurred is emitted on a node's scope when it loses focus.
type Blurred struct{}

// CloseRequested is emitted on the window scope when the platform asks the
// window to close.
type CloseRequested struct{}

// WindowDestroyed is emitted on the window scope once the window stopped.
type WindowDestroyed struct{}

// ConfigChanged is emitted on the window scope after the configuration file
// was reloaded. Value holds the new configuration.
type ConfigChanged struct {
	Value any
}
