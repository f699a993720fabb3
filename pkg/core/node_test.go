package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/kite/pkg/errors"
	"github.com/go-drift/kite/pkg/event"
	"github.com/go-drift/kite/pkg/focus"
	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/hittest"
	"github.com/go-drift/kite/pkg/layout"
	"github.com/go-drift/kite/pkg/platform"
	"github.com/go-drift/kite/pkg/pointer"
	"github.com/go-drift/kite/pkg/shared"
)

// box is a test element that fills its region.
type box struct {
	color     graphics.Color
	renders   int
	noHit     bool
	focusable bool
	arrange   func(graphics.Region) layout.RegionSource
	err       error
}

func (b *box) Render(f *Frame) error {
	b.renders++
	if b.err != nil {
		return b.err
	}
	f.Canvas().DrawRect(f.Region(), b.color)
	if b.noHit {
		f.ClearInteractRegion()
	}
	return nil
}

func (b *box) Focusable() bool {
	return b.focusable
}

func (b *box) Arrange(r graphics.Region) layout.RegionSource {
	if b.arrange == nil {
		return nil
	}
	return b.arrange(r)
}

type harness struct {
	table *hittest.Table
	ctx   *RenderContext
}

func newHarness() *harness {
	return &harness{
		table: hittest.New(),
		ctx: &RenderContext{
			Canvas:   graphics.NewRasterCanvas(100, 100),
			Bus:      event.NewDispatcher(),
			Close:    platform.NewCloseHandle(),
			Focus:    focus.NewManager(),
			Layers:   graphics.NewLayerRegistry(),
			Registry: NewRegistry(),
		},
	}
}

// frame lays root out into the full canvas and renders it.
func (h *harness) frame(t *testing.T, root Children) {
	t.Helper()
	require.NoError(t, root.Layout(layout.Regions(graphics.RegionFromLTWH(0, 0, 100, 100))))
	h.ctx.Hit = h.table.Builder()
	h.ctx.Focus.BeginFrame()
	require.NoError(t, root.Render(h.ctx))
	h.ctx.Hit.Done()
	h.ctx.Focus.EndFrame()
}

func move(x, y float64) *pointer.Event {
	return &pointer.Event{Change: pointer.Unchange, Position: graphics.Pt(x, y)}
}

func press(x, y float64) *pointer.Event {
	return &pointer.Event{Change: pointer.Press, Position: graphics.Pt(x, y)}
}

func release(x, y float64) *pointer.Event {
	return &pointer.Event{Change: pointer.Release, Position: graphics.Pt(x, y)}
}

func split(r graphics.Region) layout.RegionSource {
	return layout.SplitRow(r, 0, 1, 1)
}

func TestRenderBuildsHitTable(t *testing.T) {
	h := newHarness()
	left := NewNode(&box{color: graphics.ColorRed}, nil)
	right := NewNode(&box{color: graphics.ColorBlue}, nil)
	root := NewNode(&box{arrange: split}, Group{left, right})

	h.frame(t, root)

	require.Equal(t, 3, h.table.Len())
	snap := h.table.Snapshot()
	assert.Equal(t, hittest.NoParent, snap[0].Parent)
	assert.Equal(t, 0, snap[1].Parent)
	assert.Equal(t, 0, snap[2].Parent)

	assert.Equal(t, []int{2, 0}, h.table.Chain(graphics.Pt(75, 10)))
	target, ok := h.table.Target(graphics.Pt(10, 10))
	require.True(t, ok)
	assert.Same(t, left.Dispatcher(), target)

	canvas := h.ctx.Canvas.(*graphics.RasterCanvas)
	assert.Equal(t, graphics.ColorRed.NRGBA().R, canvas.At(10, 10).R)
	assert.Equal(t, graphics.ColorBlue.NRGBA().B, canvas.At(90, 10).B)
}

func TestRenderRebuildsEveryFrame(t *testing.T) {
	h := newHarness()
	opt := NewOptional[*Node[*box]]()
	root := NewNode(&box{}, opt)

	h.frame(t, root)
	assert.Equal(t, 1, h.table.Len())

	opt.Set(NewNode(&box{}, nil))
	h.frame(t, root)
	assert.Equal(t, 2, h.table.Len())

	opt.Clear()
	h.frame(t, root)
	assert.Equal(t, 1, h.table.Len())
}

func TestLayoutPullsOneRegionPerNode(t *testing.T) {
	a, b := NewNode(&box{}, nil), NewNode(&box{}, nil)
	r1 := graphics.RegionFromLTWH(0, 0, 10, 10)
	r2 := graphics.RegionFromLTWH(10, 0, 10, 10)
	extra := graphics.RegionFromLTWH(20, 0, 10, 10)

	src := layout.Regions(r1, r2, extra)
	require.NoError(t, Group{a, b}.Layout(src))

	assert.Equal(t, r1, a.Region())
	assert.Equal(t, r2, b.Region())
	assert.Equal(t, 1, src.Remaining(), "surplus regions are ignored")
}

func TestLayoutExhausted(t *testing.T) {
	nodes := NewList(NewNode(&box{}, nil), NewNode(&box{}, nil), NewNode(&box{}, nil))
	err := nodes.Layout(layout.Regions(graphics.RegionFromLTWH(0, 0, 1, 1), graphics.RegionFromLTWH(1, 0, 1, 1)))

	require.Error(t, err)
	assert.ErrorIs(t, err, layout.ErrRegionsExhausted)
	var kerr *errors.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, errors.KindLayout, kerr.Kind)
	assert.Equal(t, "core.Node.Layout", kerr.Op)
}

func TestLayoutUsesArranger(t *testing.T) {
	a, b := NewNode(&box{}, nil), NewNode(&box{}, nil)
	root := NewNode(&box{arrange: func(r graphics.Region) layout.RegionSource {
		return layout.SplitColumn(r, 0, 1, 3)
	}}, Group{a, b})

	require.NoError(t, root.Layout(layout.Regions(graphics.RegionFromLTWH(0, 0, 100, 100))))
	assert.Equal(t, graphics.RegionFromLTWH(0, 0, 100, 25), a.Region())
	assert.Equal(t, graphics.RegionFromLTWH(0, 25, 100, 75), b.Region())
}

func TestLayoutDefaultRepeatsRegion(t *testing.T) {
	a, b := NewNode(&box{}, nil), NewNode(&box{}, nil)
	root := NewNode(&box{}, Group{a, b})
	r := graphics.RegionFromLTWH(5, 5, 50, 50)

	require.NoError(t, root.Layout(layout.Regions(r)))
	assert.Equal(t, r, a.Region())
	assert.Equal(t, r, b.Region())
}

func TestRenderErrorIsWrapped(t *testing.T) {
	h := newHarness()
	bad := NewNode(&box{err: fmt.Errorf("boom")}, nil)
	root := NewNode(&box{}, Group{bad, NewNode(&box{}, nil)})

	require.NoError(t, root.Layout(layout.Regions(graphics.RegionFromLTWH(0, 0, 10, 10))))
	h.ctx.Hit = h.table.Builder()
	err := root.Render(h.ctx)

	var kerr *errors.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, errors.KindRender, kerr.Kind)
	assert.Contains(t, kerr.Node, "*core.box")
	assert.EqualError(t, kerr.Unwrap(), "boom")
	h.ctx.Hit.Reset()
}

func TestEmitEventEnteredIsLogicalOr(t *testing.T) {
	h := newHarness()
	left := NewNode(&box{}, nil)
	right := NewNode(&box{}, nil)
	root := NewNode(&box{arrange: split, noHit: true}, Group{left, right})
	h.frame(t, root)

	rootEntered := event.Listen[event.PointerEntered](root.Dispatcher())
	leftEntered := event.Listen[event.PointerEntered](left.Dispatcher())

	assert.True(t, root.EmitEvent(move(10, 10)))
	assert.Len(t, rootEntered.C(), 1, "root has no region but a child is entered")
	assert.Len(t, leftEntered.C(), 1)
	assert.True(t, left.Entered())
	assert.False(t, right.Entered())

	leftOut := event.Listen[event.PointerOut](left.Dispatcher())
	rightEntered := event.Listen[event.PointerEntered](right.Dispatcher())
	rootAgain := event.Listen[event.PointerEntered](root.Dispatcher())
	defer rootAgain.Cancel()

	assert.True(t, root.EmitEvent(move(90, 10)))
	assert.Len(t, leftOut.C(), 1)
	assert.Len(t, rightEntered.C(), 1)
	assert.Empty(t, rootAgain.C(), "root stays entered")

	rootOut := event.Listen[event.PointerOut](root.Dispatcher())
	assert.False(t, root.EmitEvent(&pointer.Event{Change: pointer.LeaveViewport}))
	assert.Len(t, rootOut.C(), 1)
}

func TestEmitEventClick(t *testing.T) {
	h := newHarness()
	btn := NewNode(&box{}, nil)
	root := NewNode(&box{arrange: split}, Group{btn, NewNode(&box{}, nil)})
	h.frame(t, root)

	root.EmitEvent(move(10, 10))
	click := event.Listen[event.Click](btn.Dispatcher())
	root.EmitEvent(press(10, 10))
	assert.Empty(t, click.C())
	root.EmitEvent(release(12, 12))
	require.Len(t, click.C(), 1)
	assert.True(t, (<-click.C()).IsCurrent)

	// Press inside, release outside: no click.
	click = event.Listen[event.Click](btn.Dispatcher())
	defer click.Cancel()
	root.EmitEvent(press(10, 10))
	root.EmitEvent(move(90, 10))
	root.EmitEvent(release(90, 10))
	assert.Empty(t, click.C())
}

func TestAbandonEmitsOnce(t *testing.T) {
	child := NewNode(&box{}, nil)
	root := NewNode(&box{}, Group{child})

	rootGone := event.Listen[event.ElementAbandoned](root.Dispatcher())
	childGone := event.Listen[event.ElementAbandoned](child.Dispatcher())
	root.Abandon()
	assert.Len(t, rootGone.C(), 1)
	assert.Len(t, childGone.C(), 1)
	assert.True(t, child.Abandoned())

	again := event.Listen[event.ElementAbandoned](root.Dispatcher())
	defer again.Cancel()
	root.Abandon()
	assert.Empty(t, again.C())
}

func TestAbandonedNodeIgnoresPointer(t *testing.T) {
	h := newHarness()
	child := NewNode(&box{}, nil)
	root := Group{child}
	h.frame(t, root)

	entered := event.Listen[event.PointerEntered](child.Dispatcher())
	defer entered.Cancel()
	click := event.Listen[event.Click](child.Dispatcher())
	defer click.Cancel()

	child.Abandon()
	assert.Nil(t, child.InteractRegion())

	assert.False(t, root.EmitEvent(move(10, 10)))
	assert.False(t, root.EmitEvent(press(10, 10)))
	assert.False(t, root.EmitEvent(release(10, 10)))
	assert.False(t, child.Entered())
	assert.Empty(t, entered.C())
	assert.Empty(t, click.C())
}

func TestAbandonedNodeIsNotRendered(t *testing.T) {
	h := newHarness()
	b := &box{}
	n := NewNode(b, nil)
	n.Abandon()
	h.frame(t, n)
	assert.Equal(t, 0, b.renders)
	assert.Equal(t, 0, h.table.Len())
}

func TestListSetAbandonsRemoved(t *testing.T) {
	a, b, c := NewNode(&box{}, nil), NewNode(&box{}, nil), NewNode(&box{}, nil)
	l := NewList(a, b)

	l.Set(b, c)
	assert.True(t, a.Abandoned())
	assert.False(t, b.Abandoned())
	assert.Equal(t, 2, l.Len())
	assert.Same(t, c, l.At(1))

	l.Remove(0)
	assert.True(t, b.Abandoned())
	assert.Equal(t, []*Node[*box]{c}, l.Items())
}

func TestOptionalSetAbandonsPrevious(t *testing.T) {
	a, b := NewNode(&box{}, nil), NewNode(&box{}, nil)
	o := Some(a)

	o.Set(a)
	assert.False(t, a.Abandoned())

	o.Set(b)
	assert.True(t, a.Abandoned())
	got, ok := o.Get()
	assert.True(t, ok)
	assert.Same(t, b, got)
}

func TestSlotForwards(t *testing.T) {
	h := newHarness()
	inner := NewNode(&box{}, nil)
	slot := NewSlot[Children](inner)
	root := NewNode(&box{arrange: split}, Group{slot, NewNode(&box{}, nil)})

	h.frame(t, root)
	assert.Equal(t, 3, h.table.Len())
	assert.Equal(t, graphics.RegionFromLTWH(0, 0, 50, 100), inner.Region())

	replacement := NewNode(&box{}, nil)
	slot.Update(func(c *Children) { *c = replacement })
	h.frame(t, root)
	assert.True(t, replacement.Mounted())
	assert.True(t, root.EmitEvent(move(10, 10)))
	assert.True(t, replacement.Entered())
}

func TestMountEmitsCreationEvents(t *testing.T) {
	h := newHarness()
	leaf := NewNode(&box{}, nil).WithKey("leaf")
	mid := NewNode(&box{}, Group{leaf})
	root := NewNode(&box{}, Group{mid})

	created := event.Listen[event.DispatcherCreated](root.Dispatcher())
	rootKeyed := event.Listen[event.ElementCreated](root.Dispatcher())
	midKeyed := event.Listen[event.ElementCreated](mid.Dispatcher())

	h.frame(t, root)

	require.Len(t, created.C(), 1)
	assert.Same(t, mid.Dispatcher(), (<-created.C()).Dispatcher)
	require.Len(t, rootKeyed.C(), 1)
	ev := <-rootKeyed.C()
	assert.Same(t, leaf.Dispatcher(), ev.Dispatcher)
	assert.Equal(t, "leaf", ev.Key)
	assert.Len(t, midKeyed.C(), 1)
	assert.Equal(t, 1, h.ctx.Registry.Len())

	leaf.Abandon()
	assert.Equal(t, 0, h.ctx.Registry.Len())
}

func TestLookupFindsMountedDescendant(t *testing.T) {
	h := newHarness()
	leaf := NewNode(&box{}, nil).WithKey(7)
	root := NewNode(&box{}, Group{leaf})
	h.frame(t, root)

	l := Lookup{scope: root.Dispatcher(), registry: h.ctx.Registry}
	d, err := l.FindEq(context.Background(), 7)
	require.NoError(t, err)
	assert.Same(t, leaf.Dispatcher(), d)

	// A node is not its own descendant.
	self := Lookup{scope: leaf.Dispatcher(), registry: h.ctx.Registry}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = self.FindEq(ctx, 7)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLookupWaitsForMount(t *testing.T) {
	h := newHarness()
	opt := NewOptional[*Node[*box]]()
	root := NewNode(&box{}, opt)
	h.frame(t, root)

	l := Lookup{scope: root.Dispatcher(), registry: h.ctx.Registry}
	found := make(chan *event.Dispatcher, 1)
	go func() {
		d, err := l.Find(context.Background(), func(k any) bool { return k == "late" })
		if err == nil {
			found <- d
		}
	}()
	require.Eventually(t, func() bool {
		return root.Dispatcher().Waiting(event.ElementCreated{}) == 1
	}, time.Second, time.Millisecond)

	late := NewNode(&box{}, nil).WithKey("late")
	opt.Set(late)
	h.frame(t, root)

	select {
	case d := <-found:
		assert.Same(t, late.Dispatcher(), d)
	case <-time.After(time.Second):
		t.Fatal("lookup did not observe the mount")
	}
}

func TestFocusableNodesRegister(t *testing.T) {
	h := newHarness()
	a := NewNode(&box{focusable: true}, nil)
	b := NewNode(&box{}, nil)
	root := NewNode(&box{arrange: split}, Group{a, b})
	h.frame(t, root)

	assert.Equal(t, 1, h.ctx.Focus.Len())
	require.True(t, h.ctx.Focus.MoveFocus(1))
	assert.Same(t, a.Dispatcher(), h.ctx.Focus.Primary())

	a.Abandon()
	assert.Nil(t, h.ctx.Focus.Primary(), "abandoning releases focus")
}

// ticker is an element with a runtime that counts hovers until abandoned.
type ticker struct {
	hovers  int
	started chan struct{}
}

func (tk *ticker) Render(f *Frame) error {
	return nil
}

func (tk *ticker) StartRuntime(init RuntimeInit[*ticker]) {
	close(tk.started)
	for {
		entered := event.Listen[event.PointerEntered](init.Dispatcher)
		abandoned := event.Listen[event.ElementAbandoned](init.Dispatcher)
		select {
		case <-entered.C():
			abandoned.Cancel()
			init.App.Update(func(t **ticker) { (*t).hovers++ })
		case <-abandoned.C():
			entered.Cancel()
			return
		}
	}
}

func TestRuntimeSharesAndDemotes(t *testing.T) {
	h := newHarness()
	tk := &ticker{started: make(chan struct{})}
	n := NewNode(tk, nil)
	root := NewNode(&box{}, Group{n})

	assert.Equal(t, shared.Unique, n.Mode())
	h.frame(t, root)
	assert.Equal(t, shared.Shared, n.Mode())
	<-tk.started

	require.Eventually(t, func() bool {
		return n.Dispatcher().Waiting(event.PointerEntered{}) == 1
	}, time.Second, time.Millisecond)
	root.EmitEvent(move(10, 10))
	require.Eventually(t, func() bool {
		hovers := 0
		n.View(func(t **ticker) { hovers = (*t).hovers })
		return hovers == 1
	}, time.Second, time.Millisecond)

	assert.False(t, n.Demote(), "runtime still holds a handle")

	require.Eventually(t, func() bool {
		return n.Dispatcher().Waiting(event.ElementAbandoned{}) == 1
	}, time.Second, time.Millisecond)
	n.Abandon()
	require.Eventually(t, n.Demote, time.Second, time.Millisecond)
	assert.Equal(t, shared.Unique, n.Mode())
}
