package widgets

import (
	"context"

	"github.com/go-drift/kite/pkg/core"
	"github.com/go-drift/kite/pkg/event"
	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/platform"
)

// Default button colors.
var (
	DefaultButtonColor        = graphics.RGB(0x21, 0x96, 0xF3)
	DefaultButtonHoverColor   = graphics.RGB(0x42, 0xA5, 0xF5)
	DefaultButtonPressedColor = graphics.RGB(0x15, 0x65, 0xC0)
	DefaultButtonTextColor    = graphics.ColorWhite
)

// Activated is emitted by a Button each time it is activated, on the button's
// scope and on the window scope.
type Activated struct {
	Label string
	// Count is the number of activations so far, this one included.
	Count int
}

// Toggled is emitted by a Toggle when it flips.
type Toggled struct {
	Label string
	On    bool
}

// Button is a focusable push button. It is activated by a click or by Enter
// or Space while focused. Clicks is maintained by the button's runtime.
type Button struct {
	Label        string
	Color        graphics.Color
	HoverColor   graphics.Color
	PressedColor graphics.Color
	TextColor    graphics.Color
	Disabled     bool

	// Clicks counts activations.
	Clicks int
}

func (b *Button) Render(f *core.Frame) error {
	col := orDefault(b.Color, DefaultButtonColor)
	switch {
	case b.Disabled:
		col = col.WithAlpha(0.4)
	case f.Pressed():
		col = orDefault(b.PressedColor, DefaultButtonPressedColor)
	case f.Entered():
		col = orDefault(b.HoverColor, DefaultButtonHoverColor)
	}
	region := f.Region()
	f.Canvas().DrawRect(region, col)
	if f.Focused() {
		f.Canvas().StrokeRect(region, DefaultFocusColor, 2)
	}
	if b.Label != "" {
		drawText(f.Canvas(), region, b.Label, orDefault(b.TextColor, DefaultButtonTextColor), 1, true)
	}
	return nil
}

// Focusable reports whether the button is enabled.
func (b *Button) Focusable() bool {
	return !b.Disabled
}

func (b *Button) StartRuntime(init core.RuntimeInit[*Button]) {
	awaitActivations(init.Context, init.Dispatcher, func() {
		var ev Activated
		init.App.Update(func(btn **Button) {
			if (*btn).Disabled {
				return
			}
			(*btn).Clicks++
			ev = Activated{Label: (*btn).Label, Count: (*btn).Clicks}
		})
		if ev.Count > 0 {
			init.Dispatcher.Emit(ev)
			init.Window.Emit(ev)
		}
	})
}

// Toggle is a focusable on/off switch flipped the same way a Button is
// activated.
type Toggle struct {
	Label    string
	On       bool
	OnColor  graphics.Color
	OffColor graphics.Color
}

func (t *Toggle) Render(f *core.Frame) error {
	region := f.Region()
	track := orDefault(t.OffColor, graphics.RGB(0x9E, 0x9E, 0x9E))
	if t.On {
		track = orDefault(t.OnColor, DefaultButtonColor)
	}
	f.Canvas().DrawRect(region, track)

	// The knob covers the left half when off and the right half when on.
	knob := region
	half := region.Width() / 2
	if t.On {
		knob.Min.X += half
	} else {
		knob.Max.X -= half
	}
	f.Canvas().DrawRect(knob, graphics.ColorWhite)

	if f.Focused() {
		f.Canvas().StrokeRect(region, DefaultFocusColor, 2)
	}
	return nil
}

func (t *Toggle) Focusable() bool {
	return true
}

func (t *Toggle) StartRuntime(init core.RuntimeInit[*Toggle]) {
	awaitActivations(init.Context, init.Dispatcher, func() {
		var ev Toggled
		init.App.Update(func(tg **Toggle) {
			(*tg).On = !(*tg).On
			ev = Toggled{Label: (*tg).Label, On: (*tg).On}
		})
		init.Dispatcher.Emit(ev)
		init.Window.Emit(ev)
	})
}

// awaitActivations calls activate for every click on scope and every Enter
// or Space delivered to it, until ctx ends.
func awaitActivations(ctx context.Context, scope *event.Dispatcher, activate func()) {
	for {
		click := event.Listen[event.Click](scope)
		key := event.Listen[platform.KeyInput](scope)

		fire := false
		select {
		case <-ctx.Done():
		case <-click.C():
			fire = true
		case k := <-key.C():
			fire = k.Key == "Enter" || k.Key == "Space"
		}
		click.Cancel()
		key.Cancel()

		if ctx.Err() != nil {
			return
		}
		if fire {
			activate()
		}
	}
}

func orDefault(c, def graphics.Color) graphics.Color {
	if c == 0 {
		return def
	}
	return c
}
