// Package layout supplies the regions a tree is laid out into.
//
// There is no constraint solver. A parent hands its children a RegionSource
// and every node pulls exactly one region from it, in child order. Running
// out of regions is an error; regions left over are ignored.
package layout

import (
	"errors"
	"fmt"
	"iter"

	"github.com/go-drift/kite/pkg/graphics"
)

// ErrRegionsExhausted is returned when a source has fewer regions than the
// children laid out from it.
var ErrRegionsExhausted = errors.New("layout: not enough regions")

// RegionSource yields regions in child order.
type RegionSource interface {
	// Next returns the next region, or false when the source is exhausted.
	Next() (graphics.Region, bool)
}

// SliceSource yields a fixed list of regions.
type SliceSource struct {
	regions []graphics.Region
	pos     int
}

// Regions returns a source over the given regions.
func Regions(rs ...graphics.Region) *SliceSource {
	return &SliceSource{regions: rs}
}

// Next implements RegionSource.
func (s *SliceSource) Next() (graphics.Region, bool) {
	if s.pos >= len(s.regions) {
		return graphics.Region{}, false
	}
	r := s.regions[s.pos]
	s.pos++
	return r, true
}

// Remaining returns how many regions have not been pulled yet.
func (s *SliceSource) Remaining() int {
	return len(s.regions) - s.pos
}

// SeqSource adapts an iterator. Call Stop when the source is no longer needed
// so the underlying iterator can release its resources.
type SeqSource struct {
	next func() (graphics.Region, bool)
	stop func()
}

// FromSeq returns a source pulling from seq.
func FromSeq(seq iter.Seq[graphics.Region]) *SeqSource {
	next, stop := iter.Pull(seq)
	return &SeqSource{next: next, stop: stop}
}

// Next implements RegionSource.
func (s *SeqSource) Next() (graphics.Region, bool) {
	return s.next()
}

// Stop ends the iteration.
func (s *SeqSource) Stop() {
	s.stop()
}

// Repeat returns a source that yields r forever. Children laid out from it
// overlap, the last one on top.
func Repeat(r graphics.Region) RegionSource {
	return repeatSource(r)
}

type repeatSource graphics.Region

func (r repeatSource) Next() (graphics.Region, bool) {
	return graphics.Region(r), true
}

// Axis is the direction regions are split along.
type Axis int

const (
	AxisHorizontal Axis = iota
	AxisVertical
)

func (a Axis) String() string {
	switch a {
	case AxisHorizontal:
		return "horizontal"
	case AxisVertical:
		return "vertical"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Split divides r along axis into one region per weight, separated by gap.
// Each region's extent is proportional to its weight; non-positive weights
// get no extent. The cross axis is always filled.
func Split(r graphics.Region, axis Axis, gap float64, weights ...float64) *SliceSource {
	if len(weights) == 0 {
		return Regions()
	}
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}

	extent := r.Width()
	start := r.Min.X
	if axis == AxisVertical {
		extent = r.Height()
		start = r.Min.Y
	}
	free := max(extent-gap*float64(len(weights)-1), 0)

	out := make([]graphics.Region, 0, len(weights))
	pos := start
	for _, w := range weights {
		size := 0.0
		if w > 0 && total > 0 {
			size = free * w / total
		}
		if axis == AxisVertical {
			out = append(out, graphics.Region{
				Min: graphics.Pt(r.Min.X, pos),
				Max: graphics.Pt(r.Max.X, pos+size),
			})
		} else {
			out = append(out, graphics.Region{
				Min: graphics.Pt(pos, r.Min.Y),
				Max: graphics.Pt(pos+size, r.Max.Y),
			})
		}
		pos += size + gap
	}
	return Regions(out...)
}

// SplitRow splits r into side-by-side columns.
func SplitRow(r graphics.Region, gap float64, weights ...float64) *SliceSource {
	return Split(r, AxisHorizontal, gap, weights...)
}

// SplitColumn splits r into stacked rows.
func SplitColumn(r graphics.Region, gap float64, weights ...float64) *SliceSource {
	return Split(r, AxisVertical, gap, weights...)
}

// Even returns n equal weights, for use with Split.
func Even(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

// EdgeInsets is padding on each side of a region.
type EdgeInsets struct {
	Top, Bottom, Left, Right float64
}

// EdgeInsetsAll returns equal insets on every side.
func EdgeInsetsAll(v float64) EdgeInsets {
	return EdgeInsets{Top: v, Bottom: v, Left: v, Right: v}
}

// EdgeInsetsSymmetric returns horizontal insets h and vertical insets v.
func EdgeInsetsSymmetric(h, v float64) EdgeInsets {
	return EdgeInsets{Top: v, Bottom: v, Left: h, Right: h}
}

// Deflate shrinks r by the insets. A region smaller than the insets collapses
// to its center line rather than inverting.
func (e EdgeInsets) Deflate(r graphics.Region) graphics.Region {
	out := graphics.Region{
		Min: graphics.Pt(r.Min.X+e.Left, r.Min.Y+e.Top),
		Max: graphics.Pt(r.Max.X-e.Right, r.Max.Y-e.Bottom),
	}
	if out.Max.X < out.Min.X {
		mid := (out.Min.X + out.Max.X) / 2
		out.Min.X, out.Max.X = mid, mid
	}
	if out.Max.Y < out.Min.Y {
		mid := (out.Min.Y + out.Max.Y) / 2
		out.Min.Y, out.Max.Y = mid, mid
	}
	return out
}
