package core

import (
	"reflect"

	"github.com/go-drift/kite/pkg/layout"
	"github.com/go-drift/kite/pkg/pointer"
	"github.com/go-drift/kite/pkg/shared"
)

// Children is the contract shared by every child structure.
type Children interface {
	// Render draws every node in the structure and registers its interact
	// region. The first error stops the pass.
	Render(ctx *RenderContext) error
	// Layout pulls exactly one region per node from src, in order.
	Layout(src layout.RegionSource) error
	// EmitEvent updates the logical pointer state of every node and reports
	// whether any of them is entered.
	EmitEvent(ev *pointer.Event) bool
	// Abandon tears the structure down.
	Abandon()
}

// Empty has no children.
type Empty struct{}

func (Empty) Render(*RenderContext) error      { return nil }
func (Empty) Layout(layout.RegionSource) error { return nil }
func (Empty) EmitEvent(*pointer.Event) bool    { return false }
func (Empty) Abandon()                         {}

// Group is a fixed tuple of child structures of any shape.
type Group []Children

func (g Group) Render(ctx *RenderContext) error {
	for _, c := range g {
		if err := c.Render(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (g Group) Layout(src layout.RegionSource) error {
	for _, c := range g {
		if err := c.Layout(src); err != nil {
			return err
		}
	}
	return nil
}

// EmitEvent visits every member; it does not stop at the first entered one.
func (g Group) EmitEvent(ev *pointer.Event) bool {
	entered := false
	for _, c := range g {
		entered = c.EmitEvent(ev) || entered
	}
	return entered
}

func (g Group) Abandon() {
	for _, c := range g {
		c.Abandon()
	}
}

// List is a homogeneous sequence of children.
type List[C Children] struct {
	items []C
}

// NewList returns a list holding items.
func NewList[C Children](items ...C) *List[C] {
	return &List[C]{items: items}
}

// Len returns the number of items.
func (l *List[C]) Len() int {
	return len(l.items)
}

// At returns the i-th item.
func (l *List[C]) At(i int) C {
	return l.items[i]
}

// Items returns the items. The slice must not be modified.
func (l *List[C]) Items() []C {
	return l.items
}

// Append adds items to the end of the list.
func (l *List[C]) Append(items ...C) {
	l.items = append(l.items, items...)
}

// Set replaces the items. Previous items that are not part of the new list are
// abandoned.
func (l *List[C]) Set(items ...C) {
	old := l.items
	l.items = items
	for _, o := range old {
		kept := false
		for _, n := range items {
			if sameChild(o, n) {
				kept = true
				break
			}
		}
		if !kept {
			o.Abandon()
		}
	}
}

// Remove abandons and removes the i-th item.
func (l *List[C]) Remove(i int) {
	removed := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	removed.Abandon()
}

func (l *List[C]) Render(ctx *RenderContext) error {
	for _, c := range l.items {
		if err := c.Render(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (l *List[C]) Layout(src layout.RegionSource) error {
	for _, c := range l.items {
		if err := c.Layout(src); err != nil {
			return err
		}
	}
	return nil
}

func (l *List[C]) EmitEvent(ev *pointer.Event) bool {
	entered := false
	for _, c := range l.items {
		entered = c.EmitEvent(ev) || entered
	}
	return entered
}

func (l *List[C]) Abandon() {
	for _, c := range l.items {
		c.Abandon()
	}
}

// Optional holds zero or one child.
type Optional[C Children] struct {
	child C
	ok    bool
}

// NewOptional returns an empty optional.
func NewOptional[C Children]() *Optional[C] {
	return &Optional[C]{}
}

// Some returns an optional holding c.
func Some[C Children](c C) *Optional[C] {
	return &Optional[C]{child: c, ok: true}
}

// Get returns the child and whether there is one.
func (o *Optional[C]) Get() (C, bool) {
	return o.child, o.ok
}

// Set stores c, abandoning the previous child unless it is c itself.
func (o *Optional[C]) Set(c C) {
	if o.ok && !sameChild(o.child, c) {
		o.child.Abandon()
	}
	o.child, o.ok = c, true
}

// Clear abandons and removes the child.
func (o *Optional[C]) Clear() {
	if o.ok {
		o.child.Abandon()
	}
	var zero C
	o.child, o.ok = zero, false
}

func (o *Optional[C]) Render(ctx *RenderContext) error {
	if !o.ok {
		return nil
	}
	return o.child.Render(ctx)
}

func (o *Optional[C]) Layout(src layout.RegionSource) error {
	if !o.ok {
		return nil
	}
	return o.child.Layout(src)
}

func (o *Optional[C]) EmitEvent(ev *pointer.Event) bool {
	if !o.ok {
		return false
	}
	return o.child.EmitEvent(ev)
}

func (o *Optional[C]) Abandon() {
	if o.ok {
		o.child.Abandon()
	}
}

// Slot is a child structure shared between several owners, for example a
// parent that places it in the tree and a runtime that swaps its content.
// Copies of a Slot refer to the same interior; every call goes through its
// lock.
type Slot[C Children] struct {
	h *shared.Handle[C, struct{}]
}

// NewSlot returns a slot holding c.
func NewSlot[C Children](c C) Slot[C] {
	m := shared.New[C, struct{}](c)
	return Slot[C]{h: m.ToShared(struct{}{}).Acquire()}
}

// Update calls fn with exclusive access to the interior.
func (s Slot[C]) Update(fn func(*C)) {
	s.h.Update(fn)
}

// View calls fn with shared access to the interior.
func (s Slot[C]) View(fn func(*C)) {
	s.h.View(fn)
}

func (s Slot[C]) Render(ctx *RenderContext) error {
	var err error
	s.h.Update(func(c *C) { err = (*c).Render(ctx) })
	return err
}

func (s Slot[C]) Layout(src layout.RegionSource) error {
	var err error
	s.h.Update(func(c *C) { err = (*c).Layout(src) })
	return err
}

func (s Slot[C]) EmitEvent(ev *pointer.Event) bool {
	var entered bool
	s.h.Update(func(c *C) { entered = (*c).EmitEvent(ev) })
	return entered
}

func (s Slot[C]) Abandon() {
	s.h.Update(func(c *C) { (*c).Abandon() })
}

// sameChild reports whether a and b are the same child. Values of types that
// cannot be compared are never the same.
func sameChild(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == nil || ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
