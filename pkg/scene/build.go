package scene

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-drift/kite/pkg/core"
	"github.com/go-drift/kite/pkg/event"
	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/layout"
	"github.com/go-drift/kite/pkg/platform"
	"github.com/go-drift/kite/pkg/widgets"
)

// Tree is a built scene: the root and the keyed nodes below it.
type Tree struct {
	Root core.Children

	nodes map[string]*keyed
	// runtimes are the scopes of every node running a runtime, keyed or not.
	runtimes []*event.Dispatcher
}

type keyed struct {
	scope   *event.Dispatcher
	region  func() graphics.Region
	entered func() bool
	// state reports widget state for the replay report; nil for plain nodes.
	state func() any
}

// Keys returns the node keys in sorted order.
func (t *Tree) Keys() []string {
	keys := make([]string, 0, len(t.nodes))
	for k := range t.nodes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Region returns the last laid-out region of the node keyed key.
func (t *Tree) Region(key string) (graphics.Region, bool) {
	n, ok := t.nodes[key]
	if !ok {
		return graphics.Region{}, false
	}
	return n.region(), true
}

// Scope returns the event scope of the node keyed key.
func (t *Tree) Scope(key string) (*event.Dispatcher, bool) {
	n, ok := t.nodes[key]
	if !ok {
		return nil, false
	}
	return n.scope, true
}

// keyOf returns the key of the node owning scope.
func (t *Tree) keyOf(scope *event.Dispatcher) string {
	if scope == nil {
		return ""
	}
	for k, n := range t.nodes {
		if n.scope == scope {
			return k
		}
	}
	return ""
}

// Build creates the node tree described by spec. Every node problem is
// reported, each with its path in the tree.
func Build(spec Spec) (*Tree, error) {
	t := &Tree{nodes: make(map[string]*keyed)}
	b := &builder{tree: t}
	t.Root = b.build(spec, "root")
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return t, nil
}

type builder struct {
	tree *Tree
	errs []error
}

func (b *builder) fail(path, format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf("%s: %s", path, fmt.Sprintf(format, args...)))
}

func (b *builder) color(path, field, s string) graphics.Color {
	if s == "" {
		return 0
	}
	c, err := graphics.ParseColor(s)
	if err != nil {
		b.fail(path, "%s: %v", field, err)
	}
	return c
}

func (b *builder) children(s Spec, path string) core.Children {
	if len(s.Children) == 0 {
		return nil
	}
	group := make(core.Group, len(s.Children))
	for i, c := range s.Children {
		group[i] = b.build(c, fmt.Sprintf("%s.children[%d]", path, i))
	}
	return group
}

func (b *builder) leaf(s Spec, path string) {
	if len(s.Children) > 0 {
		b.fail(path, "%s cannot have children", s.Type)
	}
}

func (b *builder) build(s Spec, path string) core.Children {
	typ := strings.ToLower(s.Type)
	switch typ {
	case "box":
		return mount(b, s, path, &widgets.Box{
			Color:       b.color(path, "color", s.Color),
			BorderColor: b.color(path, "border_color", s.BorderColor),
			BorderWidth: s.BorderWidth,
			CanFocus:    s.Focusable,
			Passthrough: s.Passthrough,
		}, b.children(s, path), nil)

	case "row", "column", "flex":
		axis := layout.AxisHorizontal
		switch {
		case typ == "column", strings.EqualFold(s.Axis, "vertical"):
			axis = layout.AxisVertical
		case s.Axis != "" && !strings.EqualFold(s.Axis, "horizontal"):
			b.fail(path, "unknown axis %q", s.Axis)
		}
		weights := s.Weights
		if len(weights) == 0 && typ != "flex" {
			weights = layout.Even(len(s.Children))
		}
		if len(weights) > 0 && len(weights) < len(s.Children) {
			b.fail(path, "%d weights for %d children", len(weights), len(s.Children))
		}
		if slices.ContainsFunc(weights, func(w float64) bool { return w < 0 }) {
			b.fail(path, "weights cannot be negative")
		}
		return mount(b, s, path, &widgets.Flex{Axis: axis, Gap: s.Gap, Weights: weights}, b.children(s, path), nil)

	case "padding":
		if s.Padding < 0 {
			b.fail(path, "padding cannot be negative")
		}
		return mount(b, s, path, &widgets.Padding{Insets: layout.EdgeInsetsAll(s.Padding)}, b.children(s, path), nil)

	case "label":
		b.leaf(s, path)
		return mount(b, s, path, &widgets.Label{
			Text:   s.Text,
			Color:  b.color(path, "color", s.Color),
			Scale:  s.Scale,
			Center: s.Center,
		}, nil, nil)

	case "button":
		b.leaf(s, path)
		return mount(b, s, path, &widgets.Button{
			Label:    s.Label,
			Color:    b.color(path, "color", s.Color),
			Disabled: s.Disabled,
		}, nil, func(btn *widgets.Button) any {
			return map[string]any{"clicks": btn.Clicks}
		})

	case "toggle":
		b.leaf(s, path)
		return mount(b, s, path, &widgets.Toggle{
			Label:   s.Label,
			On:      s.On,
			OnColor: b.color(path, "color", s.Color),
		}, nil, func(tg *widgets.Toggle) any {
			return map[string]any{"on": tg.On}
		})

	case "opacity":
		if s.Alpha < 0 || s.Alpha > 1 {
			b.fail(path, "alpha must be within [0, 1] (got %g)", s.Alpha)
		}
		return mount(b, s, path, &widgets.Opacity{
			Alpha: s.Alpha,
			Color: b.color(path, "color", s.Color),
		}, b.children(s, path), nil)

	case "":
		b.fail(path, "missing type")
	default:
		b.fail(path, "unknown type %q", s.Type)
	}
	return core.Empty{}
}

// mount wraps elem in a node and records it when it has a key or a runtime.
func mount[E core.Element](b *builder, s Spec, path string, elem E, children core.Children, state func(E) any) core.Children {
	n := core.NewNode(elem, children)
	if _, ok := any(elem).(core.Runtime[E]); ok {
		b.tree.runtimes = append(b.tree.runtimes, n.Dispatcher())
	}
	if s.Key == "" {
		return n
	}
	if _, dup := b.tree.nodes[s.Key]; dup {
		b.fail(path, "duplicate key %q", s.Key)
		return n
	}
	n.WithKey(s.Key)
	k := &keyed{scope: n.Dispatcher(), region: n.Region, entered: n.Entered}
	if state != nil {
		k.state = func() any {
			var v any
			n.View(func(e *E) { v = state(*e) })
			return v
		}
	}
	b.tree.nodes[s.Key] = k
	return n
}

// Events returns the raw platform events that perform step. Frame steps
// produce no events.
func (t *Tree) Events(step Step) ([]platform.Event, error) {
	pos := step.Point()
	if step.Target != "" {
		region, ok := t.Region(step.Target)
		if !ok || region.IsZero() || region.IsEmpty() {
			return nil, fmt.Errorf("target %q has no region", step.Target)
		}
		pos = region.Center()
	}

	press := platform.MouseInput{Button: platform.ButtonLeft, State: platform.Pressed}
	release := platform.MouseInput{Button: platform.ButtonLeft, State: platform.Released}
	switch step.Action {
	case "move":
		return []platform.Event{platform.CursorMoved{Position: pos}}, nil
	case "press":
		return []platform.Event{press}, nil
	case "release":
		return []platform.Event{release}, nil
	case "tap":
		return []platform.Event{platform.CursorMoved{Position: pos}, press, release}, nil
	case "touch":
		// The finger hovers first so that a touch from outside the viewport
		// is observed as a press.
		return []platform.Event{
			platform.Touch{Phase: platform.TouchMoved, Location: pos},
			platform.Touch{Phase: platform.TouchStarted, Location: pos},
			platform.Touch{Phase: platform.TouchEnded, Location: pos},
		}, nil
	case "leave":
		return []platform.Event{platform.CursorLeft{}}, nil
	case "key":
		return []platform.Event{
			platform.KeyInput{Key: step.Key, State: platform.Pressed},
			platform.KeyInput{Key: step.Key, State: platform.Released},
		}, nil
	case "resize":
		return []platform.Event{platform.Resized{Width: step.Width, Height: step.Height}}, nil
	case "frame":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown action %q", step.Action)
}
