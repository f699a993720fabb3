// Package hittest holds the per-frame table of interactive regions.
//
// The table is an arena rebuilt from scratch on every render pass. Each
// mounted node pushes one entry while it renders; parent links are indices
// into the same arena, so nothing is retained across frames.
package hittest

import (
	"context"

	"github.com/go-drift/kite/pkg/errors"
	"github.com/go-drift/kite/pkg/event"
	"github.com/go-drift/kite/pkg/graphics"
)

// NoParent marks an entry without a parent.
const NoParent = -1

type entry struct {
	dispatcher *event.Dispatcher
	region     *graphics.Region
	parent     int
}

// Table maps screen points to node scopes for the last completed render pass.
type Table struct {
	entries []entry
	stack   []int
}

// New returns an empty table.
func New() *Table {
	return &Table{}
}

// Builder clears every entry and returns a builder for the next frame.
func (t *Table) Builder() *Builder {
	if len(t.stack) != 0 {
		errors.Violation("hittest.Table.Builder", "builder stack not empty (%d open pushes)", len(t.stack))
	}
	t.entries = t.entries[:0]
	return &Builder{table: t}
}

// Len returns the number of entries built by the last render pass.
func (t *Table) Len() int {
	return len(t.entries)
}

// find returns the index of the last-inserted entry whose region contains p,
// or NoParent when none does. Later entries paint on top of earlier ones.
func (t *Table) find(p graphics.Point) int {
	for i := len(t.entries) - 1; i >= 0; i-- {
		r := t.entries[i].region
		if r != nil && r.Contains(p) {
			return i
		}
	}
	return NoParent
}

// Chain returns the indices receiving an event at p: the hit entry followed
// by its ancestors up to the root. It is empty when nothing is hit.
func (t *Table) Chain(p graphics.Point) []int {
	var chain []int
	for i := t.find(p); i != NoParent; i = t.entries[i].parent {
		chain = append(chain, i)
	}
	return chain
}

// Scopes returns the scopes along Chain(p), hit entry first.
func (t *Table) Scopes(p graphics.Point) []*event.Dispatcher {
	var scopes []*event.Dispatcher
	for i := t.find(p); i != NoParent; i = t.entries[i].parent {
		scopes = append(scopes, t.entries[i].dispatcher)
	}
	return scopes
}

// Target returns the scope of the entry hit at p.
func (t *Table) Target(p graphics.Point) (*event.Dispatcher, bool) {
	i := t.find(p)
	if i == NoParent {
		return nil, false
	}
	return t.entries[i].dispatcher, true
}

// Emit delivers ev to the entry hit at p and then to each of its ancestors,
// one scope at a time and child first. It returns the number of scopes the
// event was emitted to. A point outside every region delivers nothing.
// When ctx is done between two steps the chain stops and ctx.Err() is
// returned.
func (t *Table) Emit(ctx context.Context, p graphics.Point, ev any) (int, error) {
	delivered := 0
	for i := t.find(p); i != NoParent; i = t.entries[i].parent {
		if err := ctx.Err(); err != nil {
			return delivered, errors.New("hittest.Table.Emit", errors.KindDispatch, err)
		}
		t.entries[i].dispatcher.Emit(ev)
		delivered++
	}
	return delivered, nil
}

// EntryInfo is a read-only view of one entry for diagnostics.
type EntryInfo struct {
	Index      int              `json:"index"`
	Parent     int              `json:"parent"`
	Dispatcher uint64           `json:"dispatcher"`
	Region     *graphics.Region `json:"region,omitempty"`
}

// Snapshot returns a copy of the current entries.
func (t *Table) Snapshot() []EntryInfo {
	out := make([]EntryInfo, len(t.entries))
	for i, e := range t.entries {
		info := EntryInfo{Index: i, Parent: e.parent, Dispatcher: e.dispatcher.ID()}
		if e.region != nil {
			r := *e.region
			info.Region = &r
		}
		out[i] = info
	}
	return out
}

// Builder appends entries to a table during one render pass.
type Builder struct {
	table *Table
}

// Push appends an entry for d whose parent is the node currently being built
// and makes the new entry the current node. It returns the entry index.
func (b *Builder) Push(d *event.Dispatcher) int {
	t := b.table
	parent := NoParent
	if n := len(t.stack); n > 0 {
		parent = t.stack[n-1]
	}
	t.entries = append(t.entries, entry{dispatcher: d, parent: parent})
	index := len(t.entries) - 1
	t.stack = append(t.stack, index)
	return index
}

// SetRegion replaces the interact region of the entry at index. A nil region
// makes the entry non-interactive.
func (b *Builder) SetRegion(index int, r *graphics.Region) {
	if r == nil {
		b.table.entries[index].region = nil
		return
	}
	region := *r
	b.table.entries[index].region = &region
}

// Finish closes the most recent Push. Calls must mirror pushes in reverse
// order.
func (b *Builder) Finish() {
	t := b.table
	n := len(t.stack)
	if n == 0 {
		errors.Violation("hittest.Builder.Finish", "finish without matching push")
	}
	t.stack = t.stack[:n-1]
}

// Depth returns the number of pushes not yet finished.
func (b *Builder) Depth() int {
	return len(b.table.stack)
}

// Done asserts that every push has been finished.
func (b *Builder) Done() {
	if n := len(b.table.stack); n != 0 {
		errors.Violation("hittest.Builder.Done", "%d pushes not finished", n)
	}
}

// Reset discards an aborted build, leaving the table empty and the stack
// balanced so the next frame can start cleanly.
func (b *Builder) Reset() {
	b.table.entries = b.table.entries[:0]
	b.table.stack = b.table.stack[:0]
}
