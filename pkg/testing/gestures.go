package testing

import (
	"fmt"

	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/platform"
)

// Locatable is anything laid out into a region, such as a *core.Node.
type Locatable interface {
	Region() graphics.Region
}

// MoveTo moves the mouse cursor to pos.
func (t *Tester) MoveTo(pos graphics.Point) error {
	return t.Send(platform.CursorMoved{Position: pos})
}

// Press presses the left mouse button at the current cursor position.
func (t *Tester) Press() error {
	return t.Send(platform.MouseInput{Button: platform.ButtonLeft, State: platform.Pressed})
}

// Release releases the left mouse button.
func (t *Tester) Release() error {
	return t.Send(platform.MouseInput{Button: platform.ButtonLeft, State: platform.Released})
}

// Leave moves the cursor out of the window.
func (t *Tester) Leave() error {
	return t.Send(platform.CursorLeft{})
}

// TapAt moves the cursor to pos and clicks.
func (t *Tester) TapAt(pos graphics.Point) error {
	if err := t.MoveTo(pos); err != nil {
		return err
	}
	if err := t.Press(); err != nil {
		return err
	}
	return t.Release()
}

// Tap clicks the center of target's region.
func (t *Tester) Tap(target Locatable) error {
	r := target.Region()
	if r.IsZero() || r.IsEmpty() {
		return fmt.Errorf("Tap: %v has no region; call Pump first", target)
	}
	return t.TapAt(r.Center())
}

// DragFrom presses at start, moves by delta in steps moves and releases.
func (t *Tester) DragFrom(start, delta graphics.Point, steps int) error {
	steps = max(steps, 1)
	if err := t.MoveTo(start); err != nil {
		return err
	}
	if err := t.Press(); err != nil {
		return err
	}
	for i := 1; i <= steps; i++ {
		frac := float64(i) / float64(steps)
		pos := graphics.Pt(start.X+delta.X*frac, start.Y+delta.Y*frac)
		if err := t.MoveTo(pos); err != nil {
			return err
		}
	}
	return t.Release()
}

// TouchAt simulates a single-finger tap at pos. The finger first moves to
// pos so that a touch starting outside the viewport is observed as a press.
func (t *Tester) TouchAt(pos graphics.Point) error {
	for _, phase := range []platform.TouchPhase{platform.TouchMoved, platform.TouchStarted, platform.TouchEnded} {
		if err := t.Send(platform.Touch{Phase: phase, Location: pos}); err != nil {
			return err
		}
	}
	return nil
}

// Key presses and releases the named key.
func (t *Tester) Key(name string) error {
	if err := t.Send(platform.KeyInput{Key: name, State: platform.Pressed}); err != nil {
		return err
	}
	return t.Send(platform.KeyInput{Key: name, State: platform.Released})
}
