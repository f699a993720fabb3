package scene

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/go-drift/kite/pkg/engine"
	kerrors "github.com/go-drift/kite/pkg/errors"
	"github.com/go-drift/kite/pkg/event"
	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/logging"
	"github.com/go-drift/kite/pkg/platform"
)

// DefaultSettle bounds how long Replay waits for widget runtimes after each
// step.
const DefaultSettle = time.Second

// Options configures Replay.
type Options struct {
	// Logger receives replay and engine logs. Nil uses the default logger.
	Logger *logging.Logger
	// Settle is the longest wait for widget runtimes to pick up a step.
	// Zero means DefaultSettle.
	Settle time.Duration
	// FrameTrace records frame timings on the replay window.
	FrameTrace bool
}

// Result is the outcome of a replay.
type Result struct {
	Steps []StepResult `yaml:"steps"`
	// Widgets holds the final state of keyed buttons and toggles.
	Widgets map[string]any `yaml:"widgets,omitempty"`
	Frames  uint64         `yaml:"frames"`
	// Frame is the last presented frame.
	Frame *image.RGBA `yaml:"-"`
}

// StepResult is the window state after one step.
type StepResult struct {
	Index   int      `yaml:"index"`
	Action  string   `yaml:"action"`
	Pointer string   `yaml:"pointer"`
	Focused string   `yaml:"focused,omitempty"`
	Hovered []string `yaml:"hovered,omitempty,flow"`
}

type replay struct {
	tree    *Tree
	backend *platform.Headless
	win     *engine.Window
	settle  time.Duration
	log     *logging.Logger
}

// Replay mounts the script's tree in a headless window, renders a first
// frame, then applies every step followed by one frame. The tree is
// abandoned before Replay returns.
func Replay(ctx context.Context, s *Script, opts Options) (*Result, error) {
	tree, err := Build(s.Root)
	if err != nil {
		return nil, kerrors.New("scene.Replay", kerrors.KindConfig, err)
	}
	defer tree.Root.Abandon()

	engineOpts := engine.DefaultOptions()
	if s.Window.Background != "" {
		bg, err := graphics.ParseColor(s.Window.Background)
		if err != nil {
			return nil, kerrors.New("scene.Replay", kerrors.KindConfig, err)
		}
		engineOpts.Background = bg
	}
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	engineOpts.Logger = log
	engineOpts.FrameTrace = opts.FrameTrace

	width, height := s.Window.size()
	backend := platform.NewHeadless(s.Window.title(), width, height, 1)
	r := &replay{
		tree:    tree,
		backend: backend,
		win:     engine.New(backend, tree.Root, engineOpts),
		settle:  opts.Settle,
		log:     log.WithComponent("replay"),
	}
	if r.settle <= 0 {
		r.settle = DefaultSettle
	}

	if err := r.frame(); err != nil {
		return nil, err
	}
	r.waitRuntimes(ctx)

	res := &Result{}
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return nil, kerrors.New("scene.Replay", kerrors.KindDispatch, err)
		}
		if err := r.apply(ctx, step); err != nil {
			return nil, kerrors.New("scene.Replay", kerrors.KindDispatch, fmt.Errorf("steps[%d] %s: %w", i, step.Action, err))
		}
		r.waitRuntimes(ctx)
		if err := r.frame(); err != nil {
			return nil, err
		}
		res.Steps = append(res.Steps, r.observe(i, step))
	}

	for _, key := range tree.Keys() {
		if state := tree.nodes[key].state; state != nil {
			if res.Widgets == nil {
				res.Widgets = make(map[string]any)
			}
			res.Widgets[key] = state()
		}
	}
	res.Frames = r.win.Frames()
	res.Frame = backend.LastFrame()
	r.log.Debug("replay finished", "steps", len(s.Steps), "frames", res.Frames)
	return res, nil
}

func (r *replay) frame() error {
	return r.win.RenderFrame()
}

func (r *replay) apply(ctx context.Context, step Step) error {
	if step.Action == "frame" {
		// The step itself is followed by one frame.
		for range max(step.Count, 1) - 1 {
			if err := r.frame(); err != nil {
				return err
			}
		}
		return nil
	}
	events, err := r.tree.Events(step)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if rs, ok := ev.(platform.Resized); ok {
			r.backend.Resize(rs.Width, rs.Height)
		}
		if err := r.win.HandleEvent(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// waitRuntimes blocks until every widget runtime listens for input again, so
// that the effects of a step are visible before the next one. Runtimes that
// do not settle in time are logged and skipped.
func (r *replay) waitRuntimes(ctx context.Context) {
	deadline := time.Now().Add(r.settle)
	for _, scope := range r.tree.runtimes {
		for scope.Waiting(event.Click{}) == 0 || scope.Waiting(platform.KeyInput{}) == 0 {
			if ctx.Err() != nil {
				return
			}
			if time.Now().After(deadline) {
				r.log.Warn("runtime did not settle", "scope", scope.ID(), "timeout", r.settle)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}
}

func (r *replay) observe(index int, step Step) StepResult {
	res := StepResult{
		Index:   index,
		Action:  step.Action,
		Pointer: r.win.Pointer().String(),
		Focused: r.tree.keyOf(r.win.Focus().Primary()),
	}
	for _, key := range r.tree.Keys() {
		if r.tree.nodes[key].entered() {
			res.Hovered = append(res.Hovered, key)
		}
	}
	return res
}
