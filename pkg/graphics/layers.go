package graphics

import (
	"image"

	"golang.org/x/image/draw"
)

// Layer is an offscreen surface that an element renders into independently of
// the main canvas. Layers are composited over the main canvas in registration
// order once the render pass completes.
type Layer struct {
	canvas *RasterCanvas
	origin image.Point
	alpha  float64
}

// Canvas returns the layer's drawing surface. Coordinates are relative to the
// layer's origin.
func (l *Layer) Canvas() *RasterCanvas {
	return l.canvas
}

// LayerRegistry collects the independent layers requested during one frame.
type LayerRegistry struct {
	layers []*Layer
}

// NewLayerRegistry returns an empty registry.
func NewLayerRegistry() *LayerRegistry {
	return &LayerRegistry{}
}

// Register allocates a layer covering bounds with the given opacity (0 to 1).
func (r *LayerRegistry) Register(bounds Region, alpha float64) *Layer {
	rect := bounds.Image()
	l := &Layer{
		canvas: NewRasterCanvas(rect.Dx(), rect.Dy()),
		origin: rect.Min,
		alpha:  clamp01(alpha),
	}
	r.layers = append(r.layers, l)
	return l
}

// Len returns the number of registered layers.
func (r *LayerRegistry) Len() int {
	return len(r.layers)
}

// Reset drops all registered layers.
func (r *LayerRegistry) Reset() {
	r.layers = r.layers[:0]
}

// Composite draws every layer over dst and resets the registry.
func (r *LayerRegistry) Composite(dst *RasterCanvas) {
	for _, l := range r.layers {
		src := l.canvas.Image()
		rect := src.Bounds().Add(l.origin)
		if l.alpha >= 1 {
			draw.Draw(dst.Image(), rect, src, src.Bounds().Min, draw.Over)
			continue
		}
		mask := image.NewUniform(ColorBlack.WithAlpha(l.alpha).NRGBA())
		draw.DrawMask(dst.Image(), rect, src, src.Bounds().Min, mask, image.Point{}, draw.Over)
	}
	r.Reset()
}
