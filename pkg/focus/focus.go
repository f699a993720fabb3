// Package focus tracks which node scope holds keyboard focus in a window.
package focus

import (
	"math"
	"sync"

	"github.com/go-drift/kite/pkg/event"
	"github.com/go-drift/kite/pkg/graphics"
)

// TraversalDirection indicates the focus traversal direction.
type TraversalDirection int

const (
	// TraversalDirectionUp moves focus upward.
	TraversalDirectionUp TraversalDirection = iota

	// TraversalDirectionDown moves focus downward.
	TraversalDirectionDown

	// TraversalDirectionLeft moves focus leftward.
	TraversalDirectionLeft

	// TraversalDirectionRight moves focus rightward.
	TraversalDirectionRight
)

type candidate struct {
	scope  *event.Dispatcher
	region graphics.Region
}

// Manager holds the primary focus of one window and the traversal order of
// focusable scopes, which is rebuilt by every render pass.
//
// Focus changes are announced on the scopes themselves: event.Blurred on the
// scope losing focus, then event.Focused on the scope gaining it.
type Manager struct {
	mu       sync.Mutex
	primary  *event.Dispatcher
	order    []candidate
	building []candidate
}

// NewManager returns a manager with nothing focused.
func NewManager() *Manager {
	return &Manager{}
}

// BeginFrame starts collecting the traversal order for a new frame.
func (m *Manager) BeginFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.building = m.building[:0]
}

// Register appends a focusable scope to the order being collected.
func (m *Manager) Register(scope *event.Dispatcher, region graphics.Region) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.building = append(m.building, candidate{scope: scope, region: region})
}

// EndFrame publishes the order collected since BeginFrame.
func (m *Manager) EndFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order, m.building = m.building, m.order[:0]
}

// Len returns the number of focusable scopes in the published order.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// Focusable reports whether scope was registered during the last frame.
func (m *Manager) Focusable(scope *event.Dispatcher) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOf(scope) >= 0
}

// Primary returns the focused scope, or nil.
func (m *Manager) Primary() *event.Dispatcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.primary
}

// HasFocus reports whether scope is the primary focus.
func (m *Manager) HasFocus(scope *event.Dispatcher) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return scope != nil && m.primary == scope
}

// Request moves focus to scope. A nil scope clears focus.
func (m *Manager) Request(scope *event.Dispatcher) {
	m.mu.Lock()
	old := m.primary
	m.primary = scope
	m.mu.Unlock()
	notify(old, scope)
}

// Release clears focus if scope holds it.
func (m *Manager) Release(scope *event.Dispatcher) {
	m.mu.Lock()
	if m.primary != scope || scope == nil {
		m.mu.Unlock()
		return
	}
	m.primary = nil
	m.mu.Unlock()
	notify(scope, nil)
}

// MoveFocus moves focus by delta positions in traversal order, wrapping at
// the ends. With nothing focused, delta 1 focuses the first scope.
func (m *Manager) MoveFocus(delta int) bool {
	m.mu.Lock()
	count := len(m.order)
	if count == 0 || delta == 0 {
		m.mu.Unlock()
		return false
	}
	current := m.indexOf(m.primary)
	if current < 0 && delta < 0 {
		current = 0
	}
	next := m.order[wrapIndex(current+delta, count)].scope
	old := m.primary
	m.primary = next
	m.mu.Unlock()

	notify(old, next)
	return true
}

// FocusInDirection moves focus to the nearest scope in the given direction,
// preferring scopes aligned with the focused one. Without a geometric
// candidate it falls back to linear traversal.
func (m *Manager) FocusInDirection(direction TraversalDirection) bool {
	m.mu.Lock()
	current := m.indexOf(m.primary)
	if current < 0 {
		m.mu.Unlock()
		return m.MoveFocus(1)
	}
	source := m.order[current].region

	var best *event.Dispatcher
	bestScore := math.MaxFloat64
	for i, c := range m.order {
		if i == current || c.region.IsZero() || c.region.IsEmpty() {
			continue
		}
		if !isInDirection(source, c.region, direction) {
			continue
		}
		if score := directionalScore(source, c.region, direction); score < bestScore {
			bestScore = score
			best = c.scope
		}
	}
	if best == nil {
		m.mu.Unlock()
		return m.MoveFocus(linearDelta(direction))
	}
	old := m.primary
	m.primary = best
	m.mu.Unlock()

	notify(old, best)
	return true
}

func (m *Manager) indexOf(scope *event.Dispatcher) int {
	if scope == nil {
		return -1
	}
	for i, c := range m.order {
		if c.scope == scope {
			return i
		}
	}
	return -1
}

func notify(old, next *event.Dispatcher) {
	if old == next {
		return
	}
	if old != nil {
		old.Emit(event.Blurred{})
	}
	if next != nil {
		next.Emit(event.Focused{})
	}
}

// linearDelta returns +1 or -1 for linear focus traversal based on direction.
func linearDelta(direction TraversalDirection) int {
	if direction == TraversalDirectionUp || direction == TraversalDirectionLeft {
		return -1
	}
	return 1
}

// wrapIndex wraps an index to stay within [0, count).
func wrapIndex(index, count int) int {
	index = index % count
	if index < 0 {
		index += count
	}
	return index
}

func isInDirection(source, target graphics.Region, direction TraversalDirection) bool {
	s, t := source.Center(), target.Center()
	switch direction {
	case TraversalDirectionUp:
		return t.Y < s.Y
	case TraversalDirectionDown:
		return t.Y > s.Y
	case TraversalDirectionLeft:
		return t.X < s.X
	case TraversalDirectionRight:
		return t.X > s.X
	}
	return false
}

// directionalScore is lower for better candidates. Cross-axis distance counts
// double so aligned scopes win.
func directionalScore(source, target graphics.Region, direction TraversalDirection) float64 {
	s, t := source.Center(), target.Center()
	var primaryDist, crossDist float64
	switch direction {
	case TraversalDirectionUp, TraversalDirectionDown:
		primaryDist = math.Abs(t.Y - s.Y)
		crossDist = math.Abs(t.X - s.X)
	case TraversalDirectionLeft, TraversalDirectionRight:
		primaryDist = math.Abs(t.X - s.X)
		crossDist = math.Abs(t.Y - s.Y)
	}
	return primaryDist + crossDist*2
}
