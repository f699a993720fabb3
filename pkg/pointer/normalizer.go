// Package pointer turns raw platform input into edge-triggered semantic
// pointer events.
//
// Classification happens in two pure steps. Transition maps a raw event and
// the previous Snapshot to the next Snapshot, or reports that the event is not
// pointer input. Derive compares the two snapshots and names what changed.
// Normalizer holds the Snapshot between events for one window.
package pointer

import (
	"fmt"

	"github.com/go-drift/kite/pkg/errors"
	"github.com/go-drift/kite/pkg/event"
	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/platform"
)

// State is the press state of the pointer.
type State int

const (
	StatePressing State = iota
	StateRelease
	StateOutOfViewport
)

func (s State) String() string {
	switch s {
	case StatePressing:
		return "pressing"
	case StateRelease:
		return "release"
	case StateOutOfViewport:
		return "out-of-viewport"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is the pointer state together with the last known position.
type Snapshot struct {
	State       State
	Position    graphics.Point
	HasPosition bool
}

func (s Snapshot) String() string {
	if !s.HasPosition {
		return s.State.String() + "@none"
	}
	return s.State.String() + "@" + s.Position.String()
}

// Change is the semantic outcome of one classified raw event.
type Change int

const (
	EnterViewport Change = iota
	Press
	Unchange
	Release
	LeaveViewport
)

func (c Change) String() string {
	switch c {
	case EnterViewport:
		return "enter-viewport"
	case Press:
		return "press"
	case Unchange:
		return "unchange"
	case Release:
		return "release"
	case LeaveViewport:
		return "leave-viewport"
	default:
		return fmt.Sprintf("change(%d)", int(c))
	}
}

// Transition applies one raw event to the previous snapshot. ok is false when
// raw is not pointer input; the snapshot is then returned unchanged.
func Transition(raw platform.Event, old Snapshot) (next Snapshot, ok bool) {
	next = old

	// A touch always reports its own location.
	if t, isTouch := raw.(platform.Touch); isTouch {
		next.Position = t.Location
		next.HasPosition = true
	}

	switch ev := raw.(type) {
	case platform.MouseInput:
		if ev.Button != platform.ButtonLeft {
			return old, false
		}
		if ev.State == platform.Pressed {
			next.State = StatePressing
		} else {
			next.State = StateRelease
		}
	case platform.CursorMoved:
		next.Position = ev.Position
		next.HasPosition = true
	case platform.CursorLeft:
		next.State = StateOutOfViewport
		next.Position = graphics.Point{}
		next.HasPosition = false
	case platform.Touch:
		switch ev.Phase {
		case platform.TouchStarted:
			next.State = StatePressing
		case platform.TouchMoved:
		case platform.TouchEnded:
			next.State = StateRelease
		case platform.TouchCancelled:
			next.State = StateOutOfViewport
			next.Position = graphics.Point{}
			next.HasPosition = false
		default:
			return old, false
		}
	default:
		return old, false
	}
	return next, true
}

// Derive names the change between two snapshots produced by Transition. ok is
// false when neither snapshot has a position, e.g. a button press before the
// cursor ever entered the window: the state moves but nothing is observable.
// Combinations Transition cannot produce are a contract violation.
func Derive(old, next Snapshot) (c Change, ok bool) {
	switch {
	case !old.HasPosition && !next.HasPosition:
		return 0, false
	case !old.HasPosition:
		return EnterViewport, true
	case !next.HasPosition:
		return LeaveViewport, true
	case next.State == old.State:
		return Unchange, true
	case next.State == StatePressing:
		return Press, true
	case next.State == StateRelease:
		return Release, true
	}
	errors.Violation("pointer.Derive", "unexpected transition %v -> %v", old, next)
	return 0, false
}

// Event is a semantic pointer event.
type Event struct {
	Change Change
	// Position is the pointer position; zero for LeaveViewport.
	Position graphics.Point
	// Delta is Position minus the previous position; set for Unchange only.
	Delta graphics.Point
}

// HasPosition reports whether Position is meaningful.
func (e Event) HasPosition() bool {
	return e.Change != LeaveViewport
}

// Standard returns the framework event value for e, one of
// event.PointerEntered, event.PointerDown, event.PointerMove, event.PointerUp
// or event.PointerOut.
func (e Event) Standard(isCurrent bool) any {
	switch e.Change {
	case EnterViewport:
		return event.PointerEntered{}
	case Press:
		return event.PointerDown{IsCurrent: isCurrent, Position: e.Position}
	case Unchange:
		return event.PointerMove{IsCurrent: isCurrent, Position: e.Position, Delta: e.Delta}
	case Release:
		return event.PointerUp{IsCurrent: isCurrent, Position: e.Position}
	default:
		return event.PointerOut{}
	}
}

// Normalizer tracks pointer state for a single window.
type Normalizer struct {
	snap Snapshot
}

// NewNormalizer returns a normalizer with the pointer outside the viewport.
func NewNormalizer() *Normalizer {
	return &Normalizer{snap: Snapshot{State: StateOutOfViewport}}
}

// Snapshot returns the current pointer state.
func (n *Normalizer) Snapshot() Snapshot {
	return n.snap
}

// Handle classifies raw. classified is false for events that are not pointer
// input; those leave the state untouched and should be forwarded as raw
// events. emitted is false when the event was pointer input but produced no
// observable change.
func (n *Normalizer) Handle(raw platform.Event) (ev Event, classified, emitted bool) {
	next, ok := Transition(raw, n.snap)
	if !ok {
		return Event{}, false, false
	}
	old := n.snap
	n.snap = next

	change, ok := Derive(old, next)
	if !ok {
		return Event{}, true, false
	}
	ev = Event{Change: change, Position: next.Position}
	if change == Unchange {
		ev.Delta = next.Position.Sub(old.Position)
	}
	return ev, true, true
}
