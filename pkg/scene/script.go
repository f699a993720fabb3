// Package scene describes widget trees and input sequences in YAML and
// replays them in a headless window.
//
// A script has three parts: the window, the tree and the steps.
//
//	window:
//	  width: 200
//	  height: 100
//	root:
//	  type: row
//	  gap: 10
//	  children:
//	    - {type: button, key: ok, label: OK}
//	    - {type: toggle, key: wifi, label: Wi-Fi}
//	steps:
//	  - {action: tap, target: ok}
//	  - {action: key, key: Tab}
//	  - {action: key, key: Enter}
//
// Replay mounts the tree, renders a frame after every step and reports the
// pointer, focus and hover state after each one.
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	kerrors "github.com/go-drift/kite/pkg/errors"
	"github.com/go-drift/kite/pkg/graphics"
)

// Default window size for scripts that omit it.
const (
	DefaultWidth  = 320
	DefaultHeight = 240
)

// Script is a parsed scene file.
type Script struct {
	Window WindowSpec `yaml:"window"`
	Root   Spec       `yaml:"root"`
	Steps  []Step     `yaml:"steps"`
}

// WindowSpec describes the headless window.
type WindowSpec struct {
	Title      string `yaml:"title,omitempty"`
	Width      int    `yaml:"width,omitempty"`
	Height     int    `yaml:"height,omitempty"`
	Background string `yaml:"background,omitempty"`
}

// Spec is one node of the tree. Which fields apply depends on Type.
type Spec struct {
	// Type is one of box, row, column, flex, padding, label, button, toggle
	// or opacity.
	Type string `yaml:"type"`
	// Key names the node in steps and in the replay report.
	Key string `yaml:"key,omitempty"`

	Color       string  `yaml:"color,omitempty"`
	BorderColor string  `yaml:"border_color,omitempty"`
	BorderWidth float64 `yaml:"border_width,omitempty"`
	Focusable   bool    `yaml:"focusable,omitempty"`
	Passthrough bool    `yaml:"passthrough,omitempty"`

	// Axis is horizontal or vertical, for flex.
	Axis    string    `yaml:"axis,omitempty"`
	Gap     float64   `yaml:"gap,omitempty"`
	Weights []float64 `yaml:"weights,omitempty"`
	Padding float64   `yaml:"padding,omitempty"`

	Text   string  `yaml:"text,omitempty"`
	Scale  float64 `yaml:"scale,omitempty"`
	Center bool    `yaml:"center,omitempty"`

	Label    string  `yaml:"label,omitempty"`
	Disabled bool    `yaml:"disabled,omitempty"`
	On       bool    `yaml:"on,omitempty"`
	Alpha    float64 `yaml:"alpha,omitempty"`

	Children []Spec `yaml:"children,omitempty"`
}

// Step is one scripted input.
type Step struct {
	// Action is one of move, press, release, tap, touch, leave, key, resize
	// or frame.
	Action string `yaml:"action"`
	// X and Y locate move, tap and touch.
	X float64 `yaml:"x,omitempty"`
	Y float64 `yaml:"y,omitempty"`
	// Target locates tap, touch and move at the center of a keyed node.
	Target string `yaml:"target,omitempty"`
	// Key is the key name for key steps.
	Key string `yaml:"key,omitempty"`
	// Width and Height are the new size for resize steps.
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`
	// Count is the number of frames for frame steps; zero means one.
	Count int `yaml:"count,omitempty"`
}

// Point returns the step's explicit position.
func (s Step) Point() graphics.Point {
	return graphics.Pt(s.X, s.Y)
}

var actions = map[string]bool{
	"move": true, "press": true, "release": true, "tap": true, "touch": true,
	"leave": true, "key": true, "resize": true, "frame": true,
}

// Load reads and parses the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, kerrors.New("scene.Load", kerrors.KindConfig, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, kerrors.New("scene.Load", kerrors.KindConfig, fmt.Errorf("%s: %w", path, err))
	}
	return s, nil
}

// Parse decodes a script and validates it. Unknown fields are rejected.
func Parse(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the window, every node and every step. The tree is built
// once to check node types and keys; it is never mounted.
func (s *Script) Validate() error {
	var errs []error
	if s.Window.Width < 0 || s.Window.Height < 0 {
		errs = append(errs, fmt.Errorf("window size cannot be negative (got %dx%d)", s.Window.Width, s.Window.Height))
	}
	if s.Window.Background != "" {
		if _, err := graphics.ParseColor(s.Window.Background); err != nil {
			errs = append(errs, fmt.Errorf("window.background: %w", err))
		}
	}

	tree, err := Build(s.Root)
	if err != nil {
		errs = append(errs, err)
	}
	for i, step := range s.Steps {
		if !actions[step.Action] {
			errs = append(errs, fmt.Errorf("steps[%d]: unknown action %q", i, step.Action))
			continue
		}
		if step.Target != "" && tree != nil {
			if _, ok := tree.nodes[step.Target]; !ok {
				errs = append(errs, fmt.Errorf("steps[%d]: unknown target %q", i, step.Target))
			}
		}
		switch step.Action {
		case "key":
			if step.Key == "" {
				errs = append(errs, fmt.Errorf("steps[%d]: key needs a key name", i))
			}
		case "resize":
			if step.Width <= 0 || step.Height <= 0 {
				errs = append(errs, fmt.Errorf("steps[%d]: resize needs a positive size", i))
			}
		case "frame":
			if step.Count < 0 {
				errs = append(errs, fmt.Errorf("steps[%d]: frame count cannot be negative", i))
			}
		}
	}
	return errors.Join(errs...)
}

func (w WindowSpec) size() (int, int) {
	width, height := w.Width, w.Height
	if width == 0 {
		width = DefaultWidth
	}
	if height == 0 {
		height = DefaultHeight
	}
	return width, height
}

func (w WindowSpec) title() string {
	if w.Title == "" {
		return "kite replay"
	}
	return w.Title
}
