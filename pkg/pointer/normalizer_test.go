package pointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/kite/pkg/event"
	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/platform"
)

var (
	leftDown = platform.MouseInput{Button: platform.ButtonLeft, State: platform.Pressed}
	leftUp   = platform.MouseInput{Button: platform.ButtonLeft, State: platform.Released}
)

func at(x, y float64) Snapshot {
	return Snapshot{State: StateRelease, Position: graphics.Pt(x, y), HasPosition: true}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name string
		raw  platform.Event
		old  Snapshot
		want Snapshot
		ok   bool
	}{
		{
			name: "left press",
			raw:  leftDown,
			old:  at(1, 1),
			want: Snapshot{State: StatePressing, Position: graphics.Pt(1, 1), HasPosition: true},
			ok:   true,
		},
		{
			name: "left release",
			raw:  leftUp,
			old:  Snapshot{State: StatePressing, Position: graphics.Pt(1, 1), HasPosition: true},
			want: at(1, 1),
			ok:   true,
		},
		{
			name: "cursor move keeps state",
			raw:  platform.CursorMoved{Position: graphics.Pt(5, 6)},
			old:  Snapshot{State: StatePressing, Position: graphics.Pt(1, 1), HasPosition: true},
			want: Snapshot{State: StatePressing, Position: graphics.Pt(5, 6), HasPosition: true},
			ok:   true,
		},
		{
			name: "cursor left clears position",
			raw:  platform.CursorLeft{},
			old:  at(1, 1),
			want: Snapshot{State: StateOutOfViewport},
			ok:   true,
		},
		{
			name: "touch start uses touch location",
			raw:  platform.Touch{Phase: platform.TouchStarted, Location: graphics.Pt(9, 9)},
			old:  Snapshot{State: StateOutOfViewport},
			want: Snapshot{State: StatePressing, Position: graphics.Pt(9, 9), HasPosition: true},
			ok:   true,
		},
		{
			name: "touch move keeps state",
			raw:  platform.Touch{Phase: platform.TouchMoved, Location: graphics.Pt(10, 12)},
			old:  Snapshot{State: StatePressing, Position: graphics.Pt(9, 9), HasPosition: true},
			want: Snapshot{State: StatePressing, Position: graphics.Pt(10, 12), HasPosition: true},
			ok:   true,
		},
		{
			name: "touch end releases",
			raw:  platform.Touch{Phase: platform.TouchEnded, Location: graphics.Pt(10, 12)},
			old:  Snapshot{State: StatePressing, Position: graphics.Pt(10, 12), HasPosition: true},
			want: at(10, 12),
			ok:   true,
		},
		{
			name: "touch cancel leaves viewport",
			raw:  platform.Touch{Phase: platform.TouchCancelled, Location: graphics.Pt(10, 12)},
			old:  Snapshot{State: StatePressing, Position: graphics.Pt(10, 12), HasPosition: true},
			want: Snapshot{State: StateOutOfViewport},
			ok:   true,
		},
		{
			name: "right button is not pointer input",
			raw:  platform.MouseInput{Button: platform.ButtonRight, State: platform.Pressed},
			old:  at(1, 1),
			want: at(1, 1),
		},
		{
			name: "key input passes through",
			raw:  platform.KeyInput{Key: "a", State: platform.Pressed},
			old:  at(1, 1),
			want: at(1, 1),
		},
		{
			name: "close request passes through",
			raw:  platform.CloseRequested{},
			old:  at(1, 1),
			want: at(1, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Transition(tt.raw, tt.old)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDerive(t *testing.T) {
	none := Snapshot{State: StateOutOfViewport}
	pressing := Snapshot{State: StatePressing, Position: graphics.Pt(2, 2), HasPosition: true}

	tests := []struct {
		name      string
		old, next Snapshot
		want      Change
		ok        bool
	}{
		{"enter", none, Snapshot{State: StateOutOfViewport, Position: graphics.Pt(1, 1), HasPosition: true}, EnterViewport, true},
		{"press", at(2, 2), pressing, Press, true},
		{"move", at(1, 1), at(2, 2), Unchange, true},
		{"repeated press is unchange", pressing, pressing, Unchange, true},
		{"release", pressing, at(2, 2), Release, true},
		{"leave", at(1, 1), none, LeaveViewport, true},
		{"press without position", none, Snapshot{State: StatePressing}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Derive(tt.old, tt.next)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDeriveUnreachablePanics(t *testing.T) {
	old := at(1, 1)
	next := Snapshot{State: StateOutOfViewport, Position: graphics.Pt(1, 1), HasPosition: true}
	assert.Panics(t, func() { Derive(old, next) })
}

func TestNormalizerEnterThenMove(t *testing.T) {
	n := NewNormalizer()

	ev, classified, emitted := n.Handle(platform.CursorMoved{Position: graphics.Pt(10, 10)})
	require.True(t, classified)
	require.True(t, emitted)
	assert.Equal(t, EnterViewport, ev.Change)
	assert.Equal(t, event.PointerEntered{}, ev.Standard(false))

	ev, classified, emitted = n.Handle(platform.CursorMoved{Position: graphics.Pt(20, 15)})
	require.True(t, classified)
	require.True(t, emitted)
	assert.Equal(t, Unchange, ev.Change)
	assert.Equal(t, graphics.Pt(10, 5), ev.Delta)
	assert.Equal(t, event.PointerMove{Position: graphics.Pt(20, 15), Delta: graphics.Pt(10, 5)}, ev.Standard(false))
}

func TestNormalizerPressReleaseLeave(t *testing.T) {
	n := NewNormalizer()
	n.Handle(platform.CursorMoved{Position: graphics.Pt(3, 4)})

	ev, _, _ := n.Handle(leftDown)
	assert.Equal(t, Press, ev.Change)
	assert.Equal(t, event.PointerDown{IsCurrent: true, Position: graphics.Pt(3, 4)}, ev.Standard(true))
	assert.Equal(t, StatePressing, n.Snapshot().State)

	ev, _, _ = n.Handle(leftUp)
	assert.Equal(t, Release, ev.Change)
	assert.Equal(t, event.PointerUp{Position: graphics.Pt(3, 4)}, ev.Standard(false))

	ev, _, _ = n.Handle(platform.CursorLeft{})
	assert.Equal(t, LeaveViewport, ev.Change)
	assert.False(t, ev.HasPosition())
	assert.Equal(t, event.PointerOut{}, ev.Standard(false))
	assert.False(t, n.Snapshot().HasPosition)
}

func TestNormalizerPassThroughKeepsState(t *testing.T) {
	n := NewNormalizer()
	n.Handle(platform.CursorMoved{Position: graphics.Pt(3, 4)})
	before := n.Snapshot()

	for _, raw := range []platform.Event{
		platform.KeyInput{Key: "x"},
		platform.Resized{Width: 10, Height: 10},
		platform.CloseRequested{},
		platform.MouseInput{Button: platform.ButtonMiddle, State: platform.Pressed},
	} {
		_, classified, emitted := n.Handle(raw)
		assert.False(t, classified, "%T", raw)
		assert.False(t, emitted, "%T", raw)
		assert.Equal(t, before, n.Snapshot())
	}
}

func TestNormalizerPressBeforeEnterIsSilent(t *testing.T) {
	n := NewNormalizer()
	_, classified, emitted := n.Handle(leftDown)
	assert.True(t, classified)
	assert.False(t, emitted)
	assert.Equal(t, StatePressing, n.Snapshot().State)

	// Entering while the button is held is still an enter.
	ev, _, emitted := n.Handle(platform.CursorMoved{Position: graphics.Pt(1, 1)})
	assert.True(t, emitted)
	assert.Equal(t, EnterViewport, ev.Change)
}

func TestNormalizerTouchSequence(t *testing.T) {
	n := NewNormalizer()
	var changes []Change
	for _, raw := range []platform.Event{
		platform.Touch{Phase: platform.TouchStarted, Location: graphics.Pt(5, 5)},
		platform.Touch{Phase: platform.TouchMoved, Location: graphics.Pt(8, 9)},
		platform.Touch{Phase: platform.TouchEnded, Location: graphics.Pt(8, 9)},
		platform.Touch{Phase: platform.TouchStarted, Location: graphics.Pt(1, 1)},
		platform.Touch{Phase: platform.TouchCancelled, Location: graphics.Pt(1, 1)},
	} {
		ev, classified, emitted := n.Handle(raw)
		require.True(t, classified)
		require.True(t, emitted)
		changes = append(changes, ev.Change)
	}
	assert.Equal(t, []Change{EnterViewport, Unchange, Release, Press, LeaveViewport}, changes)
}
