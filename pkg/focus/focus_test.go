package focus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/kite/pkg/event"
	"github.com/go-drift/kite/pkg/graphics"
)

// grid registers a 2x2 grid of scopes:
//
//	0 1
//	2 3
func grid(m *Manager) []*event.Dispatcher {
	scopes := make([]*event.Dispatcher, 4)
	m.BeginFrame()
	for i := range scopes {
		scopes[i] = event.NewDispatcher()
		x, y := float64(i%2)*100, float64(i/2)*100
		m.Register(scopes[i], graphics.RegionFromLTWH(x, y, 50, 50))
	}
	m.EndFrame()
	return scopes
}

func TestRequestEmitsBlurThenFocus(t *testing.T) {
	m := NewManager()
	a, b := event.NewDispatcher(), event.NewDispatcher()

	focusedA := event.Listen[event.Focused](a)
	m.Request(a)
	require.Len(t, focusedA.C(), 1)
	assert.True(t, m.HasFocus(a))

	blurredA := event.Listen[event.Blurred](a)
	focusedB := event.Listen[event.Focused](b)
	m.Request(b)
	assert.Len(t, blurredA.C(), 1)
	assert.Len(t, focusedB.C(), 1)
	assert.Same(t, b, m.Primary())
}

func TestRequestSameScopeIsSilent(t *testing.T) {
	m := NewManager()
	a := event.NewDispatcher()
	m.Request(a)

	w := event.Listen[event.Focused](a)
	defer w.Cancel()
	m.Request(a)
	assert.Empty(t, w.C())
}

func TestRelease(t *testing.T) {
	m := NewManager()
	a, b := event.NewDispatcher(), event.NewDispatcher()
	m.Request(a)

	m.Release(b)
	assert.True(t, m.HasFocus(a))

	m.Release(a)
	assert.Nil(t, m.Primary())
	assert.False(t, m.HasFocus(nil))
}

func TestMoveFocus(t *testing.T) {
	m := NewManager()
	scopes := grid(m)
	require.Equal(t, 4, m.Len())

	require.True(t, m.MoveFocus(1))
	assert.Same(t, scopes[0], m.Primary())

	m.MoveFocus(1)
	assert.Same(t, scopes[1], m.Primary())

	m.MoveFocus(-2)
	assert.Same(t, scopes[3], m.Primary(), "wraps backwards")

	m.MoveFocus(1)
	assert.Same(t, scopes[0], m.Primary(), "wraps forwards")
}

func TestMoveFocusBackwardsFromNothing(t *testing.T) {
	m := NewManager()
	scopes := grid(m)
	m.MoveFocus(-1)
	assert.Same(t, scopes[3], m.Primary())
}

func TestMoveFocusEmptyOrder(t *testing.T) {
	m := NewManager()
	assert.False(t, m.MoveFocus(1))
	assert.Nil(t, m.Primary())
}

func TestFocusInDirection(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		direction TraversalDirection
		want      int
	}{
		{"right", 0, TraversalDirectionRight, 1},
		{"down", 0, TraversalDirectionDown, 2},
		{"left", 3, TraversalDirectionLeft, 2},
		{"up", 3, TraversalDirectionUp, 1},
		{"no candidate falls back to linear", 3, TraversalDirectionRight, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			scopes := grid(m)
			m.Request(scopes[tt.start])

			require.True(t, m.FocusInDirection(tt.direction))
			assert.Same(t, scopes[tt.want], m.Primary())
		})
	}
}

func TestFocusInDirectionSkipsUnplacedScopes(t *testing.T) {
	m := NewManager()
	a, unplaced, below := event.NewDispatcher(), event.NewDispatcher(), event.NewDispatcher()
	m.BeginFrame()
	m.Register(a, graphics.RegionFromLTWH(100, 100, 50, 50))
	m.Register(unplaced, graphics.Region{})
	m.Register(below, graphics.RegionFromLTWH(100, 200, 50, 50))
	m.EndFrame()
	m.Request(a)

	// Nothing placed lies above a: linear traversal backwards wraps to below.
	require.True(t, m.FocusInDirection(TraversalDirectionUp))
	assert.Same(t, below, m.Primary())
}

func TestEndFrameReplacesOrder(t *testing.T) {
	m := NewManager()
	grid(m)

	m.BeginFrame()
	only := event.NewDispatcher()
	m.Register(only, graphics.RegionFromLTWH(0, 0, 1, 1))
	assert.Equal(t, 4, m.Len(), "order is published at EndFrame")
	m.EndFrame()

	assert.Equal(t, 1, m.Len())
	m.MoveFocus(1)
	assert.Same(t, only, m.Primary())
}

func TestFocusable(t *testing.T) {
	m := NewManager()
	scopes := grid(m)
	assert.True(t, m.Focusable(scopes[2]))
	assert.False(t, m.Focusable(event.NewDispatcher()))
	assert.False(t, m.Focusable(nil))
}
