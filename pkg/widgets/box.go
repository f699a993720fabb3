package widgets

import (
	"github.com/go-drift/kite/pkg/core"
	"github.com/go-drift/kite/pkg/graphics"
)

// DefaultFocusColor outlines focused widgets.
var DefaultFocusColor = graphics.RGB(0xFF, 0x98, 0x00)

// Box fills its region and optionally outlines it.
type Box struct {
	// Color fills the region; transparent draws nothing.
	Color graphics.Color
	// BorderColor and BorderWidth outline the region.
	BorderColor graphics.Color
	BorderWidth float64
	// CanFocus makes the box take focus on press and in Tab order.
	CanFocus bool
	// Passthrough makes the box invisible to hit testing. Its children stay
	// hittable.
	Passthrough bool
}

func (b *Box) Render(f *core.Frame) error {
	region := f.Region()
	if b.Color.Alpha() > 0 {
		f.Canvas().DrawRect(region, b.Color)
	}
	if b.BorderWidth > 0 {
		f.Canvas().StrokeRect(region, b.BorderColor, b.BorderWidth)
	}
	if f.Focused() {
		f.Canvas().StrokeRect(region, DefaultFocusColor, 2)
	}
	if b.Passthrough {
		f.ClearInteractRegion()
	}
	return nil
}

// Focusable reports CanFocus.
func (b *Box) Focusable() bool {
	return b.CanFocus
}

// Opacity fills its region with Color through an independent layer that is
// composited with Alpha after the render pass, above everything drawn on the
// main canvas. Children draw on the main canvas and are not faded.
type Opacity struct {
	Alpha float64
	Color graphics.Color
}

func (o *Opacity) Render(f *core.Frame) error {
	region := f.Region()
	layer := f.Layer(o.Alpha)
	if layer == nil {
		f.Canvas().DrawRect(region, o.Color.WithAlpha(o.Color.Alpha()*o.Alpha))
		return nil
	}
	layer.Canvas().DrawRect(graphics.RegionFromLTWH(0, 0, region.Width(), region.Height()), o.Color)
	return nil
}
