package graphics

import (
	"fmt"
	"image"
	"math"
)

// Point is a position or vector in window pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// GE reports whether p is greater than or equal to q on both axes.
func (p Point) GE(q Point) bool {
	return p.X >= q.X && p.Y >= q.Y
}

// LE reports whether p is less than or equal to q on both axes.
func (p Point) LE(q Point) bool {
	return p.X <= q.X && p.Y <= q.Y
}

func (p Point) String() string {
	return fmt.Sprintf("(%g,%g)", p.X, p.Y)
}

// Region is an axis-aligned box given by its minimum and maximum corners.
// Both corners belong to the region.
type Region struct {
	Min Point
	Max Point
}

// RegionFromLTWH constructs a Region from left, top, width, height values.
func RegionFromLTWH(left, top, width, height float64) Region {
	return Region{
		Min: Point{X: left, Y: top},
		Max: Point{X: left + width, Y: top + height},
	}
}

// Contains reports whether p lies inside r, edges included.
func (r Region) Contains(p Point) bool {
	return p.GE(r.Min) && p.LE(r.Max)
}

// Width returns the horizontal extent of the region.
func (r Region) Width() float64 {
	return r.Max.X - r.Min.X
}

// Height returns the vertical extent of the region.
func (r Region) Height() float64 {
	return r.Max.Y - r.Min.Y
}

// Center returns the center point of the region.
func (r Region) Center() Point {
	return Point{
		X: (r.Min.X + r.Max.X) * 0.5,
		Y: (r.Min.Y + r.Max.Y) * 0.5,
	}
}

// IsZero reports whether r is the zero Region, which is what a node reports
// before its first layout.
func (r Region) IsZero() bool {
	return r == Region{}
}

// IsEmpty returns true if the region has negative extent on either axis.
func (r Region) IsEmpty() bool {
	return r.Max.X < r.Min.X || r.Max.Y < r.Min.Y
}

// Intersect returns the overlap of two regions and whether they overlap at all.
func (r Region) Intersect(other Region) (Region, bool) {
	out := Region{
		Min: Point{X: math.Max(r.Min.X, other.Min.X), Y: math.Max(r.Min.Y, other.Min.Y)},
		Max: Point{X: math.Min(r.Max.X, other.Max.X), Y: math.Min(r.Max.Y, other.Max.Y)},
	}
	if out.IsEmpty() {
		return Region{}, false
	}
	return out, true
}

// Translate returns a new region offset by d.
func (r Region) Translate(d Point) Region {
	return Region{Min: r.Min.Add(d), Max: r.Max.Add(d)}
}

// Image returns the pixel rectangle covered by r. Fractional edges are rounded
// outward so that the whole region is covered.
func (r Region) Image() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.Min.X)),
		int(math.Floor(r.Min.Y)),
		int(math.Ceil(r.Max.X)),
		int(math.Ceil(r.Max.Y)),
	)
}

func (r Region) String() string {
	return fmt.Sprintf("[%v-%v]", r.Min, r.Max)
}
