package hittest

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/kite/pkg/errors"
	"github.com/go-drift/kite/pkg/event"
	"github.com/go-drift/kite/pkg/graphics"
)

type ping struct{ N int }

func region(x0, y0, x1, y1 float64) *graphics.Region {
	return &graphics.Region{Min: graphics.Pt(x0, y0), Max: graphics.Pt(x1, y1)}
}

// received reports whether w has been satisfied.
func received(w *event.Waiter[ping]) bool {
	select {
	case <-w.C():
		return true
	default:
		return false
	}
}

func TestBuilderStackBalanced(t *testing.T) {
	table := New()
	b := table.Builder()
	assert.Equal(t, 0, b.Depth())

	root := b.Push(event.NewDispatcher())
	child := b.Push(event.NewDispatcher())
	assert.Equal(t, 2, b.Depth())
	b.Finish()
	sibling := b.Push(event.NewDispatcher())
	b.Finish()
	b.Finish()

	assert.Equal(t, 0, b.Depth())
	assert.NotPanics(t, b.Done)

	snap := table.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, NoParent, snap[root].Parent)
	assert.Equal(t, root, snap[child].Parent)
	assert.Equal(t, root, snap[sibling].Parent)
	for _, e := range snap {
		assert.Less(t, e.Parent, e.Index, "parent must precede child")
	}
}

func TestFinishWithoutPushIsContractViolation(t *testing.T) {
	b := New().Builder()
	assert.PanicsWithError(t,
		"contract violation in hittest.Builder.Finish: finish without matching push",
		b.Finish)
}

func TestBuilderOnOpenStackIsContractViolation(t *testing.T) {
	table := New()
	b := table.Builder()
	b.Push(event.NewDispatcher())

	defer func() {
		r := recover()
		_, ok := r.(*errors.ContractError)
		assert.True(t, ok, "got %T", r)
	}()
	table.Builder()
}

func TestResetRestoresBalance(t *testing.T) {
	table := New()
	b := table.Builder()
	b.Push(event.NewDispatcher())
	b.Reset()
	assert.Equal(t, 0, table.Len())
	assert.NotPanics(t, func() { table.Builder() })
}

func TestBuilderClearsPreviousFrame(t *testing.T) {
	table := New()
	b := table.Builder()
	i := b.Push(event.NewDispatcher())
	b.SetRegion(i, region(0, 0, 10, 10))
	b.Finish()
	require.Equal(t, 1, table.Len())

	table.Builder()
	assert.Equal(t, 0, table.Len())
	_, ok := table.Target(graphics.Pt(5, 5))
	assert.False(t, ok)
}

// Regions A and B are siblings under a shared parent; B was pushed last.
func TestEmitOverlappingSiblings(t *testing.T) {
	table := New()
	parent, a, bNode := event.NewDispatcher(), event.NewDispatcher(), event.NewDispatcher()

	b := table.Builder()
	pi := b.Push(parent)
	b.SetRegion(pi, region(0, 0, 200, 200))
	ai := b.Push(a)
	b.SetRegion(ai, region(0, 0, 100, 100))
	b.Finish()
	bi := b.Push(bNode)
	b.SetRegion(bi, region(50, 50, 150, 150))
	b.Finish()
	b.Finish()
	b.Done()

	wp, wa, wb := event.Listen[ping](parent), event.Listen[ping](a), event.Listen[ping](bNode)
	defer wa.Cancel()

	n, err := table.Emit(context.Background(), graphics.Pt(60, 60), ping{N: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, received(wb))
	assert.True(t, received(wp))
	assert.False(t, received(wa))

	assert.Equal(t, []int{bi, pi}, table.Chain(graphics.Pt(60, 60)))
	assert.Equal(t, []int{ai, pi}, table.Chain(graphics.Pt(10, 10)))
}

func TestEmitOutsideEveryRegion(t *testing.T) {
	table := New()
	d := event.NewDispatcher()
	b := table.Builder()
	i := b.Push(d)
	b.SetRegion(i, region(0, 0, 10, 10))
	b.Finish()

	w := event.Listen[ping](d)
	defer w.Cancel()

	n, err := table.Emit(context.Background(), graphics.Pt(11, 5), ping{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, received(w))
	assert.Empty(t, table.Chain(graphics.Pt(11, 5)))
}

func TestRegionEdgesAreInclusive(t *testing.T) {
	table := New()
	b := table.Builder()
	i := b.Push(event.NewDispatcher())
	b.SetRegion(i, region(10, 10, 20, 20))
	b.Finish()

	for _, p := range []graphics.Point{graphics.Pt(10, 10), graphics.Pt(20, 20), graphics.Pt(10, 20), graphics.Pt(20, 10)} {
		_, ok := table.Target(p)
		assert.True(t, ok, "point %v", p)
	}
	_, ok := table.Target(graphics.Pt(20.5, 15))
	assert.False(t, ok)
}

func TestClearedRegionIsNotHit(t *testing.T) {
	table := New()
	outer, inner := event.NewDispatcher(), event.NewDispatcher()
	b := table.Builder()
	oi := b.Push(outer)
	b.SetRegion(oi, region(0, 0, 100, 100))
	ii := b.Push(inner)
	b.SetRegion(ii, region(0, 0, 50, 50))
	b.SetRegion(ii, nil)
	b.Finish()
	b.Finish()

	target, ok := table.Target(graphics.Pt(10, 10))
	require.True(t, ok)
	assert.Same(t, outer, target)
}

// A hit on a deep node bubbles through ancestors without regions of their own.
func TestChainIncludesNonInteractiveAncestors(t *testing.T) {
	table := New()
	b := table.Builder()
	root := b.Push(event.NewDispatcher())
	mid := b.Push(event.NewDispatcher())
	leaf := b.Push(event.NewDispatcher())
	b.SetRegion(leaf, region(0, 0, 5, 5))
	b.Finish()
	b.Finish()
	b.Finish()

	assert.Equal(t, []int{leaf, mid, root}, table.Chain(graphics.Pt(1, 1)))
}

func TestScopesFollowChain(t *testing.T) {
	table := New()
	b := table.Builder()
	outer, inner := event.NewDispatcher(), event.NewDispatcher()
	b.SetRegion(b.Push(outer), region(0, 0, 10, 10))
	b.SetRegion(b.Push(inner), region(2, 2, 4, 4))
	b.Finish()
	b.Finish()

	scopes := table.Scopes(graphics.Pt(3, 3))
	require.Len(t, scopes, 2)
	assert.Same(t, inner, scopes[0])
	assert.Same(t, outer, scopes[1])
	assert.Empty(t, table.Scopes(graphics.Pt(20, 20)))
}

func TestEmitStopsOnCanceledContext(t *testing.T) {
	table := New()
	b := table.Builder()
	i := b.Push(event.NewDispatcher())
	b.SetRegion(i, region(0, 0, 5, 5))
	b.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := table.Emit(ctx, graphics.Pt(1, 1), ping{})
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetRegionCopiesValue(t *testing.T) {
	table := New()
	b := table.Builder()
	i := b.Push(event.NewDispatcher())
	r := region(0, 0, 5, 5)
	b.SetRegion(i, r)
	r.Max = graphics.Pt(100, 100)
	b.Finish()

	_, ok := table.Target(graphics.Pt(50, 50))
	assert.False(t, ok)
}

func TestTopmostRegionWinsRandomized(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 200; round++ {
		table := New()
		b := table.Builder()
		root := b.Push(event.NewDispatcher())
		var regions []graphics.Region
		var indices []int
		count := 1 + rng.IntN(8)
		for k := 0; k < count; k++ {
			x, y := float64(rng.IntN(100)), float64(rng.IntN(100))
			r := graphics.Region{Min: graphics.Pt(x, y), Max: graphics.Pt(x+float64(rng.IntN(60)), y+float64(rng.IntN(60)))}
			i := b.Push(event.NewDispatcher())
			b.SetRegion(i, &r)
			b.Finish()
			regions = append(regions, r)
			indices = append(indices, i)
		}
		b.Finish()
		b.Done()

		p := graphics.Pt(float64(rng.IntN(160)), float64(rng.IntN(160)))
		want := []int(nil)
		for k := len(regions) - 1; k >= 0; k-- {
			if regions[k].Contains(p) {
				want = []int{indices[k], root}
				break
			}
		}
		assert.Equal(t, want, table.Chain(p), "round %d point %v", round, p)
	}
}
