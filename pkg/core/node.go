package core

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/go-drift/kite/pkg/errors"
	"github.com/go-drift/kite/pkg/event"
	"github.com/go-drift/kite/pkg/focus"
	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/layout"
	"github.com/go-drift/kite/pkg/platform"
	"github.com/go-drift/kite/pkg/pointer"
	"github.com/go-drift/kite/pkg/shared"
)

// Element draws one node. Render is called once per frame with the node's
// region and drawing surfaces.
type Element interface {
	Render(f *Frame) error
}

// Arranger is implemented by elements that place their children. The source
// returned is used to lay out the node's children; without it every child
// receives the node's own region.
type Arranger interface {
	Arrange(region graphics.Region) layout.RegionSource
}

// Focusable is implemented by elements that can take keyboard focus.
type Focusable interface {
	Focusable() bool
}

// Runtime is implemented by elements that run a goroutine while their node is
// mounted. StartRuntime is called once, on its own goroutine, when the node is
// first rendered. It should return after observing event.ElementAbandoned on
// init.Dispatcher or the end of init.Context.
//
// The receiver is a copy taken at mount time; state shared with rendering must
// be reached through init.App.
type Runtime[E Element] interface {
	StartRuntime(init RuntimeInit[E])
}

// RuntimeInit is handed to a Runtime when its node mounts.
type RuntimeInit[E Element] struct {
	// Context ends when the node is abandoned.
	Context context.Context
	// Dispatcher is the node's own scope.
	Dispatcher *event.Dispatcher
	// Window is the window-wide scope.
	Window *event.Dispatcher
	// Close requests the window to close.
	Close platform.CloseHandle
	// App reaches the element under its lock. The runtime's reference is
	// released when StartRuntime returns.
	App *shared.Handle[E, *event.Dispatcher]
	// Lookup finds descendant nodes by key.
	Lookup Lookup
}

// Hover waits until the pointer logically enters the node.
func (i RuntimeInit[E]) Hover(ctx context.Context) error {
	_, err := event.Recv[event.PointerEntered](ctx, i.Dispatcher)
	return err
}

// HoverCanceled waits until the pointer logically leaves the node.
func (i RuntimeInit[E]) HoverCanceled(ctx context.Context) error {
	_, err := event.Recv[event.PointerOut](ctx, i.Dispatcher)
	return err
}

// Node is the base case of the tree: one element, its scope and its children.
type Node[E Element] struct {
	elem     shared.MaybeShared[E, *event.Dispatcher]
	scope    *event.Dispatcher
	key      any
	children Children

	region   graphics.Region
	interact *graphics.Region
	entered  bool
	pressed  bool

	mounted     bool
	focus       *focus.Manager
	registry    *Registry
	cancel      context.CancelFunc
	runtimeDone atomic.Bool
	abandoned   atomic.Bool
	abandonOnce sync.Once
}

// NewNode creates an unmounted node. A nil children is treated as Empty.
func NewNode[E Element](elem E, children Children) *Node[E] {
	if children == nil {
		children = Empty{}
	}
	return &Node[E]{
		elem:     shared.New[E, *event.Dispatcher](elem),
		scope:    event.NewDispatcher(),
		children: children,
	}
}

// WithKey sets the key used by Lookup and event.ElementCreated. It must be
// called before the node is first rendered.
func (n *Node[E]) WithKey(key any) *Node[E] {
	n.key = key
	return n
}

// Dispatcher returns the node's scope.
func (n *Node[E]) Dispatcher() *event.Dispatcher {
	return n.scope
}

// Key returns the node's key, or nil.
func (n *Node[E]) Key() any {
	return n.key
}

// Children returns the node's child structure.
func (n *Node[E]) Children() Children {
	return n.children
}

// Region returns the region assigned by the last layout.
func (n *Node[E]) Region() graphics.Region {
	return n.region
}

// InteractRegion returns the interact region registered by the last render,
// or nil.
func (n *Node[E]) InteractRegion() *graphics.Region {
	return n.interact
}

// Entered reports whether the pointer is logically inside the node.
func (n *Node[E]) Entered() bool {
	return n.entered
}

// Mode reports whether the element is currently shared with a runtime.
func (n *Node[E]) Mode() shared.Mode {
	return n.elem.Mode()
}

// Mounted reports whether the node has been rendered at least once.
func (n *Node[E]) Mounted() bool {
	return n.mounted
}

// Abandoned reports whether Abandon has been called.
func (n *Node[E]) Abandoned() bool {
	return n.abandoned.Load()
}

// View calls fn with read access to the element.
func (n *Node[E]) View(fn func(*E)) {
	n.elem.View(fn)
}

// Update calls fn with write access to the element.
func (n *Node[E]) Update(fn func(*E)) {
	n.elem.Update(fn)
}

// Demote moves the element back to unique storage once no runtime holds it.
// It reports whether the storage is unique afterwards.
func (n *Node[E]) Demote() bool {
	return n.elem.TryToUnique()
}

func (n *Node[E]) String() string {
	s := fmt.Sprintf("%s#%d", reflect.TypeFor[E](), n.scope.ID())
	if n.key != nil {
		s += fmt.Sprintf("(%v)", n.key)
	}
	return s
}

func (n *Node[E]) Render(ctx *RenderContext) error {
	if n.abandoned.Load() {
		return nil
	}
	if !n.mounted {
		n.mount(ctx)
	}
	if n.runtimeDone.Load() && n.elem.Mode() == shared.Shared {
		n.elem.TryToUnique()
	}

	idx := ctx.Hit.Push(n.scope)
	region := n.region
	f := &Frame{
		ctx:      ctx,
		scope:    n.scope,
		children: n.children,
		region:   n.region,
		interact: &region,
		entered:  n.entered,
		pressed:  n.pressed,
	}

	var err error
	focusable := false
	n.elem.Update(func(e *E) {
		err = (*e).Render(f)
		if fe, ok := any(*e).(Focusable); ok {
			focusable = fe.Focusable()
		}
	})
	if err != nil {
		if _, ok := err.(*errors.Error); ok {
			return err
		}
		return &errors.Error{Op: "core.Node.Render", Kind: errors.KindRender, Err: err, Node: n.String()}
	}

	n.interact = f.interact
	ctx.Hit.SetRegion(idx, n.interact)
	if focusable && ctx.Focus != nil {
		ctx.Focus.Register(n.scope, n.region)
	}

	ctx.enter(n.scope)
	err = n.children.Render(ctx)
	ctx.leave()
	if err != nil {
		return err
	}
	ctx.Hit.Finish()
	return nil
}

func (n *Node[E]) Layout(src layout.RegionSource) error {
	r, ok := src.Next()
	if !ok {
		return &errors.Error{
			Op:   "core.Node.Layout",
			Kind: errors.KindLayout,
			Err:  layout.ErrRegionsExhausted,
			Node: n.String(),
		}
	}
	n.region = r

	var childSrc layout.RegionSource
	n.elem.View(func(e *E) {
		if a, ok := any(*e).(Arranger); ok {
			childSrc = a.Arrange(r)
		}
	})
	if childSrc == nil {
		childSrc = layout.Repeat(r)
	}
	if s, ok := childSrc.(interface{ Stop() }); ok {
		defer s.Stop()
	}
	return n.children.Layout(childSrc)
}

// EmitEvent updates the node's logical pointer state after its children's.
// The node is entered when the pointer is inside its interact region or any
// descendant is entered. A press followed by a release while entered is a
// click. Abandoned nodes are never entered and emit nothing.
func (n *Node[E]) EmitEvent(ev *pointer.Event) bool {
	if n.abandoned.Load() {
		return false
	}
	childEntered := n.children.EmitEvent(ev)
	inside := ev.HasPosition() && n.interact != nil && n.interact.Contains(ev.Position)
	entered := inside || childEntered

	switch {
	case entered && !n.entered:
		n.scope.Emit(event.PointerEntered{})
	case !entered && n.entered:
		n.scope.Emit(event.PointerOut{})
	}
	n.entered = entered

	switch ev.Change {
	case pointer.Press:
		n.pressed = entered
	case pointer.Release:
		if entered && n.pressed {
			n.scope.Emit(event.Click{IsCurrent: true})
		}
		n.pressed = false
	case pointer.LeaveViewport:
		n.pressed = false
	}
	return entered
}

// Abandon tears the subtree down: children first, then the node itself emits
// event.ElementAbandoned on its scope. Later calls do nothing.
func (n *Node[E]) Abandon() {
	n.abandonOnce.Do(func() {
		n.abandoned.Store(true)
		n.interact = nil
		n.entered, n.pressed = false, false
		n.children.Abandon()
		if n.registry != nil {
			n.registry.remove(n.scope)
		}
		if n.focus != nil {
			n.focus.Release(n.scope)
		}
		n.scope.Emit(event.ElementAbandoned{})
		if n.cancel != nil {
			n.cancel()
		}
	})
}

func (n *Node[E]) mount(ctx *RenderContext) {
	n.mounted = true
	n.focus = ctx.Focus
	n.registry = ctx.Registry

	if parent := ctx.Parent(); parent != nil {
		parent.Emit(event.DispatcherCreated{Dispatcher: n.scope})
	}
	if n.key != nil {
		if ctx.Registry != nil {
			ctx.Registry.add(n.scope, n.key, ctx.Ancestors())
		}
		for _, a := range ctx.Ancestors() {
			a.Emit(event.ElementCreated{Dispatcher: n.scope, Key: n.key})
		}
	}
	n.startRuntime(ctx)
}

func (n *Node[E]) startRuntime(ctx *RenderContext) {
	var rt Runtime[E]
	n.elem.View(func(e *E) {
		rt, _ = any(*e).(Runtime[E])
	})
	if rt == nil {
		return
	}

	h := n.elem.ToShared(n.scope).Acquire()
	rctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	init := RuntimeInit[E]{
		Context:    rctx,
		Dispatcher: n.scope,
		Window:     ctx.Bus,
		Close:      ctx.Close,
		App:        h,
		Lookup:     Lookup{scope: n.scope, registry: ctx.Registry},
	}
	op := "core.Runtime " + n.String()
	go func() {
		defer func() {
			h.Release()
			n.runtimeDone.Store(true)
		}()
		defer errors.Recover(op)
		rt.StartRuntime(init)
	}()
}
