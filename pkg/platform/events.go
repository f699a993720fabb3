// Package platform defines the boundary between the element tree and a
// windowing backend: raw input events, window handles, and the channels that
// carry them across threads.
package platform

import (
	"fmt"

	"github.com/go-drift/kite/pkg/graphics"
)

// Event is a raw, backend-specific input event.
type Event interface {
	rawEvent()
}

// MouseButton identifies a mouse button.
type MouseButton int

const (
	ButtonLeft MouseButton = iota
	ButtonRight
	ButtonMiddle
)

func (b MouseButton) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	default:
		return fmt.Sprintf("button(%d)", int(b))
	}
}

// ElementState is the state of a button or key.
type ElementState int

const (
	Pressed ElementState = iota
	Released
)

func (s ElementState) String() string {
	if s == Pressed {
		return "pressed"
	}
	return "released"
}

// TouchPhase is the phase of a touch contact.
type TouchPhase int

const (
	TouchStarted TouchPhase = iota
	TouchMoved
	TouchEnded
	TouchCancelled
)

func (p TouchPhase) String() string {
	switch p {
	case TouchStarted:
		return "started"
	case TouchMoved:
		return "moved"
	case TouchEnded:
		return "ended"
	case TouchCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MouseInput is a mouse button press or release.
type MouseInput struct {
	Button MouseButton
	State  ElementState
}

// CursorMoved reports a new cursor position in window coordinates.
type CursorMoved struct {
	Position graphics.Point
}

// CursorEntered reports the cursor entering the window.
type CursorEntered struct{}

// CursorLeft reports the cursor leaving the window.
type CursorLeft struct{}

// Touch is a single touch contact update.
type Touch struct {
	ID       int64
	Phase    TouchPhase
	Location graphics.Point
}

// KeyInput is a keyboard key press or release.
type KeyInput struct {
	Key   string
	State ElementState
}

// Resized reports a new window size in pixels.
type Resized struct {
	Width  int
	Height int
}

// CloseRequested reports that the user asked to close the window.
type CloseRequested struct{}

// Focused reports the window gaining or losing keyboard focus.
type Focused struct {
	Focused bool
}

func (MouseInput) rawEvent()     {}
func (CursorMoved) rawEvent()    {}
func (CursorEntered) rawEvent()  {}
func (CursorLeft) rawEvent()     {}
func (Touch) rawEvent()          {}
func (KeyInput) rawEvent()       {}
func (Resized) rawEvent()        {}
func (CloseRequested) rawEvent() {}
func (Focused) rawEvent()        {}
