// Package shared provides storage that can switch between exclusive and
// reference-counted ownership without changing the identity of the value it
// holds.
//
// A tree node keeps its element in a MaybeShared. While only the tree touches
// the element it stays Unique and borrows are free. When a long-lived goroutine
// needs the element too, the node promotes it with ToShared and hands the
// goroutine a Handle; from then on every borrow goes through the cell's lock.
// Once all handles are released the node may demote it again with TryToUnique.
//
//	m := shared.New[counter, string](counter{})
//	cell := m.ToShared("runtime")
//	h := cell.Acquire()
//	go func() {
//	    defer h.Release()
//	    h.Update(func(c *counter) { c.n++ })
//	}()
package shared

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-drift/kite/pkg/errors"
)

// Mode is the current ownership mode of a MaybeShared.
type Mode int

const (
	// Unique means the value is owned exclusively and borrows take no lock.
	Unique Mode = iota
	// Shared means the value lives in a reference-counted Cell.
	Shared
)

func (m Mode) String() string {
	switch m {
	case Unique:
		return "unique"
	case Shared:
		return "shared"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MaybeShared holds a T either directly or inside a shared Cell together with
// an extra payload U that only exists while shared.
//
// MaybeShared itself is not safe for concurrent use; it belongs to one owner
// (the tree). Concurrency applies to the Cell and its Handles.
type MaybeShared[T, U any] struct {
	value T
	cell  *Cell[T, U]
}

// New returns a MaybeShared in Unique mode.
func New[T, U any](v T) MaybeShared[T, U] {
	return MaybeShared[T, U]{value: v}
}

// Mode reports the current ownership mode.
func (m *MaybeShared[T, U]) Mode() Mode {
	if m.cell != nil {
		return Shared
	}
	return Unique
}

// Cell returns the shared cell, or nil in Unique mode.
func (m *MaybeShared[T, U]) Cell() *Cell[T, U] {
	return m.cell
}

// ToShared moves the value and extra into a new Cell whose reference count is
// one, the owner's own reference. When already shared it does nothing and
// extra is discarded. It returns the cell either way.
func (m *MaybeShared[T, U]) ToShared(extra U) *Cell[T, U] {
	if m.cell != nil {
		return m.cell
	}
	c := &Cell[T, U]{main: m.value, extra: extra}
	c.refs.Store(1)
	m.cell = c
	var zero T
	m.value = zero
	return c
}

// TryToUnique moves the value back out of the cell when the owner holds the
// only reference; the extra payload is dropped. It reports whether the
// MaybeShared is Unique afterwards. Handles still alive make it fail.
func (m *MaybeShared[T, U]) TryToUnique() bool {
	c := m.cell
	if c == nil {
		return true
	}
	if !c.refs.CompareAndSwap(1, 0) {
		return false
	}
	c.mu.Lock()
	m.value = c.main
	var zeroT T
	var zeroU U
	c.main, c.extra = zeroT, zeroU
	c.mu.Unlock()
	m.cell = nil
	return true
}

// Borrow returns a read borrow of the value and the function that ends it.
// In Shared mode the cell is read-locked until release is called.
func (m *MaybeShared[T, U]) Borrow() (v *T, release func()) {
	if m.cell == nil {
		return &m.value, func() {}
	}
	return m.cell.borrow()
}

// BorrowMut returns an exclusive borrow of the value and the function that
// ends it. In Shared mode the cell is write-locked until release is called.
func (m *MaybeShared[T, U]) BorrowMut() (v *T, release func()) {
	if m.cell == nil {
		return &m.value, func() {}
	}
	return m.cell.borrowMut()
}

// View calls fn with a read borrow of the value.
func (m *MaybeShared[T, U]) View(fn func(*T)) {
	v, release := m.Borrow()
	defer release()
	fn(v)
}

// Update calls fn with an exclusive borrow of the value.
func (m *MaybeShared[T, U]) Update(fn func(*T)) {
	v, release := m.BorrowMut()
	defer release()
	fn(v)
}

// Cell is the reference-counted storage of a shared value.
type Cell[T, U any] struct {
	mu    sync.RWMutex
	main  T
	extra U
	refs  atomic.Int64
}

// Refs returns the number of live references, including the owner's.
func (c *Cell[T, U]) Refs() int {
	return int(c.refs.Load())
}

// Acquire adds an owner and returns its handle. Acquiring from a cell that has
// already been demoted panics.
func (c *Cell[T, U]) Acquire() *Handle[T, U] {
	for {
		n := c.refs.Load()
		if n <= 0 {
			errors.Violation("shared.Cell.Acquire", "cell has no owners")
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return &Handle[T, U]{cell: c}
		}
	}
}

func (c *Cell[T, U]) borrow() (*T, func()) {
	c.mu.RLock()
	return &c.main, c.mu.RUnlock
}

func (c *Cell[T, U]) borrowMut() (*T, func()) {
	c.mu.Lock()
	return &c.main, c.mu.Unlock
}

// Handle is one owner's reference to a Cell. It is safe for concurrent use.
type Handle[T, U any] struct {
	cell     *Cell[T, U]
	released atomic.Bool
}

// Release drops this handle's reference. Later calls do nothing.
func (h *Handle[T, U]) Release() {
	if h.released.CompareAndSwap(false, true) {
		h.cell.refs.Add(-1)
	}
}

// Released reports whether Release has been called.
func (h *Handle[T, U]) Released() bool {
	return h.released.Load()
}

// View calls fn with the value under the cell's read lock.
func (h *Handle[T, U]) View(fn func(*T)) {
	h.check("View")
	v, release := h.cell.borrow()
	defer release()
	fn(v)
}

// Update calls fn with the value under the cell's write lock.
func (h *Handle[T, U]) Update(fn func(*T)) {
	h.check("Update")
	v, release := h.cell.borrowMut()
	defer release()
	fn(v)
}

// Extra returns the payload stored when the value was shared.
func (h *Handle[T, U]) Extra() U {
	h.check("Extra")
	h.cell.mu.RLock()
	defer h.cell.mu.RUnlock()
	return h.cell.extra
}

func (h *Handle[T, U]) check(op string) {
	if h.released.Load() {
		errors.Violation("shared.Handle."+op, "use after release")
	}
}
