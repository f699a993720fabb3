package graphics

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Canvas is the drawing surface handed to elements during render.
type Canvas interface {
	// Bounds returns the drawable area.
	Bounds() Region

	// Clear fills the entire canvas with the given color.
	Clear(c Color)

	// DrawRect fills a rectangle with the given color.
	DrawRect(r Region, c Color)

	// StrokeRect outlines a rectangle with the given color and width.
	StrokeRect(r Region, c Color, width float64)

	// DrawImage draws img scaled into dst.
	DrawImage(img image.Image, dst Region)
}

// RasterCanvas is a Canvas backed by an in-memory RGBA image.
type RasterCanvas struct {
	img *image.RGBA
}

// NewRasterCanvas allocates a canvas of the given pixel size.
func NewRasterCanvas(width, height int) *RasterCanvas {
	return &RasterCanvas{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// WrapRGBA creates a canvas that draws into an existing image.
func WrapRGBA(img *image.RGBA) *RasterCanvas {
	return &RasterCanvas{img: img}
}

// Image returns the backing image.
func (c *RasterCanvas) Image() *image.RGBA {
	return c.img
}

// Bounds returns the drawable area.
func (c *RasterCanvas) Bounds() Region {
	b := c.img.Bounds()
	return Region{
		Min: Point{X: float64(b.Min.X), Y: float64(b.Min.Y)},
		Max: Point{X: float64(b.Max.X), Y: float64(b.Max.Y)},
	}
}

// Clear fills the entire canvas with col, replacing existing pixels.
func (c *RasterCanvas) Clear(col Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col.NRGBA()), image.Point{}, draw.Src)
}

// DrawRect composites a filled rectangle over the canvas.
func (c *RasterCanvas) DrawRect(r Region, col Color) {
	rect := r.Image().Intersect(c.img.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(c.img, rect, image.NewUniform(col.NRGBA()), image.Point{}, draw.Over)
}

// StrokeRect outlines r with four filled edges of the given width.
func (c *RasterCanvas) StrokeRect(r Region, col Color, width float64) {
	if width <= 0 {
		return
	}
	c.DrawRect(Region{Min: r.Min, Max: Point{X: r.Max.X, Y: r.Min.Y + width}}, col)
	c.DrawRect(Region{Min: Point{X: r.Min.X, Y: r.Max.Y - width}, Max: r.Max}, col)
	c.DrawRect(Region{Min: Point{X: r.Min.X, Y: r.Min.Y + width}, Max: Point{X: r.Min.X + width, Y: r.Max.Y - width}}, col)
	c.DrawRect(Region{Min: Point{X: r.Max.X - width, Y: r.Min.Y + width}, Max: Point{X: r.Max.X, Y: r.Max.Y - width}}, col)
}

// DrawImage scales img into dst using bilinear sampling.
func (c *RasterCanvas) DrawImage(img image.Image, dst Region) {
	rect := dst.Image()
	if rect.Empty() {
		return
	}
	draw.BiLinear.Scale(c.img, rect, img, img.Bounds(), draw.Over, nil)
}

// At returns the color of the pixel at (x, y).
func (c *RasterCanvas) At(x, y int) color.RGBA {
	return c.img.RGBAAt(x, y)
}
