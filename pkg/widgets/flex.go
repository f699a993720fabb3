package widgets

import (
	"github.com/go-drift/kite/pkg/core"
	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/layout"
)

// Flex splits its region along Axis, one slot per weight, separated by Gap.
// Without weights every child receives the whole region. Flex itself draws
// nothing and is transparent to hit testing.
type Flex struct {
	Axis    layout.Axis
	Gap     float64
	Weights []float64
}

func (x *Flex) Render(f *core.Frame) error {
	f.ClearInteractRegion()
	return nil
}

func (x *Flex) Arrange(r graphics.Region) layout.RegionSource {
	if len(x.Weights) == 0 {
		return layout.Repeat(r)
	}
	return layout.Split(r, x.Axis, x.Gap, x.Weights...)
}

// Row lays children out side by side with equal widths.
func Row(gap float64, children ...core.Children) *core.Node[*Flex] {
	return core.NewNode(&Flex{Axis: layout.AxisHorizontal, Gap: gap, Weights: layout.Even(len(children))}, core.Group(children))
}

// Column stacks children with equal heights.
func Column(gap float64, children ...core.Children) *core.Node[*Flex] {
	return core.NewNode(&Flex{Axis: layout.AxisVertical, Gap: gap, Weights: layout.Even(len(children))}, core.Group(children))
}

// Padding hands its children its region shrunk by Insets. The inset area is
// transparent to hit testing.
type Padding struct {
	Insets layout.EdgeInsets
}

func (p *Padding) Render(f *core.Frame) error {
	f.ClearInteractRegion()
	return nil
}

func (p *Padding) Arrange(r graphics.Region) layout.RegionSource {
	return layout.Repeat(p.Insets.Deflate(r))
}

// Padded wraps child in a Padding of v on every side.
func Padded(v float64, child core.Children) *core.Node[*Padding] {
	return core.NewNode(&Padding{Insets: layout.EdgeInsetsAll(v)}, child)
}
