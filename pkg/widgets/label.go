package widgets

import (
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/go-drift/kite/pkg/core"
	"github.com/go-drift/kite/pkg/graphics"
)

// DefaultTextColor is used by labels without a color.
var DefaultTextColor = graphics.ColorBlack

// Label draws a single line of text in a fixed 7x13 bitmap face at the
// top-left of its region, scaled by Scale. Text is clipped to the region.
// Labels are transparent to hit testing.
type Label struct {
	Text  string
	Color graphics.Color
	// Scale magnifies the glyphs; values below 1 are treated as 1.
	Scale float64
	// Center centers the text in the region.
	Center bool
}

func (l *Label) Render(f *core.Frame) error {
	f.ClearInteractRegion()
	if l.Text == "" {
		return nil
	}
	drawText(f.Canvas(), f.Region(), l.Text, l.color(), l.Scale, l.Center)
	return nil
}

func (l *Label) color() graphics.Color {
	if l.Color == 0 {
		return DefaultTextColor
	}
	return l.Color
}

// MeasureText returns the size of text drawn at scale.
func MeasureText(text string, scale float64) (width, height float64) {
	scale = max(scale, 1)
	d := font.Drawer{Face: basicfont.Face7x13}
	m := basicfont.Face7x13.Metrics()
	return float64(d.MeasureString(text).Ceil()) * scale, float64((m.Ascent + m.Descent).Ceil()) * scale
}

func drawText(c graphics.Canvas, region graphics.Region, text string, col graphics.Color, scale float64, center bool) {
	img := rasterizeText(text, col)
	if img == nil {
		return
	}
	scale = max(scale, 1)
	w, h := float64(img.Bounds().Dx())*scale, float64(img.Bounds().Dy())*scale
	origin := region.Min
	if center {
		origin = graphics.Pt(region.Center().X-w/2, region.Center().Y-h/2)
	}
	dst := graphics.RegionFromLTWH(origin.X, origin.Y, w, h)
	// Clip to the region by shrinking the destination; glyphs past the edge
	// are dropped rather than squeezed.
	clipped, ok := dst.Intersect(region)
	if !ok {
		return
	}
	if clipped != dst {
		src := image.Rect(
			int((clipped.Min.X-dst.Min.X)/scale),
			int((clipped.Min.Y-dst.Min.Y)/scale),
			int((clipped.Max.X-dst.Min.X)/scale),
			int((clipped.Max.Y-dst.Min.Y)/scale),
		)
		if src.Empty() {
			return
		}
		c.DrawImage(img.SubImage(src), clipped)
		return
	}
	c.DrawImage(img, dst)
}

func rasterizeText(text string, col graphics.Color) *image.RGBA {
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face, Src: image.NewUniform(col.NRGBA())}
	width := d.MeasureString(text).Ceil()
	m := face.Metrics()
	height := (m.Ascent + m.Descent).Ceil()
	if width <= 0 || height <= 0 {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	d.Dst = img
	d.Dot = fixed.P(0, m.Ascent.Ceil())
	d.DrawString(text)
	return img
}
