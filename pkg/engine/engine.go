// Package engine drives one window: it renders the element tree into the
// backend's frames and turns raw platform input into tree events.
//
// All window state is guarded by a single frame lock. RenderFrame and
// HandleEvent take it for their whole duration, so a frame and an event
// dispatch never interleave.
package engine

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/go-drift/kite/pkg/config"
	"github.com/go-drift/kite/pkg/core"
	"github.com/go-drift/kite/pkg/errors"
	"github.com/go-drift/kite/pkg/event"
	"github.com/go-drift/kite/pkg/focus"
	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/hittest"
	"github.com/go-drift/kite/pkg/layout"
	"github.com/go-drift/kite/pkg/logging"
	"github.com/go-drift/kite/pkg/platform"
	"github.com/go-drift/kite/pkg/pointer"
)

// DefaultFrameInterval is the frame period used by Run.
const DefaultFrameInterval = 16667 * time.Microsecond

// Options configures a Window.
type Options struct {
	// Background clears the canvas before each frame.
	Background graphics.Color
	// FrameInterval is the period between frames in Run.
	FrameInterval time.Duration
	// FrameTrace records a FrameSample per frame.
	FrameTrace bool
	// TraceSamples is the capacity of the frame trace.
	TraceSamples int
	// DebugPort starts a debug server on this port while Run executes.
	// Zero disables it.
	DebugPort int
	// Logger receives engine logs. Nil uses the default logger.
	Logger *logging.Logger
}

// DefaultOptions returns white background, 60 Hz frames and no tracing.
func DefaultOptions() Options {
	return Options{
		Background:    graphics.ColorWhite,
		FrameInterval: DefaultFrameInterval,
	}
}

// OptionsFromConfig maps the configuration file onto Options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := DefaultOptions()
	bg, err := cfg.BackgroundColor()
	if err != nil {
		return opts, errors.New("engine.OptionsFromConfig", errors.KindConfig, err)
	}
	opts.Background = bg
	opts.FrameTrace = cfg.Diagnostics.FrameTrace
	opts.TraceSamples = cfg.Diagnostics.TraceSamples
	opts.DebugPort = cfg.Diagnostics.DebugPort
	return opts, nil
}

// Window owns the per-window state: the hit-test table, pointer state, the
// window-wide event scope, focus, layers and the root of the tree.
type Window struct {
	// frameLock protects every field below.
	frameLock sync.Mutex

	backend    platform.Backend
	root       core.Children
	bus        *event.Dispatcher
	table      *hittest.Table
	normalizer *pointer.Normalizer
	focus      *focus.Manager
	layers     *graphics.LayerRegistry
	registry   *core.Registry
	close      platform.CloseHandle

	canvas     *graphics.RasterCanvas
	background graphics.Color
	interval   time.Duration
	debugPort  int
	trace      *FrameTraceBuffer

	frames       uint64
	lastFrame    time.Time
	events       int
	dispatchTime time.Duration

	log *logging.Logger

	// dispatchMu guards dispatchQueue, which is filled without the frame
	// lock.
	dispatchMu    sync.Mutex
	dispatchQueue []func()

	destroyOnce sync.Once
	destroyed   chan struct{}
}

// New creates a window rendering root into backend.
func New(backend platform.Backend, root core.Children, opts Options) *Window {
	if root == nil {
		root = core.Empty{}
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	w := &Window{
		backend:    backend,
		root:       root,
		bus:        event.NewDispatcher(),
		table:      hittest.New(),
		normalizer: pointer.NewNormalizer(),
		focus:      focus.NewManager(),
		layers:     graphics.NewLayerRegistry(),
		registry:   core.NewRegistry(),
		close:      platform.NewCloseHandle(),
		background: opts.Background,
		interval:   opts.FrameInterval,
		debugPort:  opts.DebugPort,
		log:        log.WithComponent("engine"),
		destroyed:  make(chan struct{}),
	}
	if opts.FrameTrace {
		w.trace = NewFrameTraceBuffer(opts.TraceSamples, 0)
	}
	return w
}

// Bus returns the window-wide event scope.
func (w *Window) Bus() *event.Dispatcher {
	return w.bus
}

// Root returns the root of the tree.
func (w *Window) Root() core.Children {
	return w.root
}

// Handle returns the backend's window handle.
func (w *Window) Handle() platform.WindowHandle {
	return w.backend.Window()
}

// Focus returns the focus manager.
func (w *Window) Focus() *focus.Manager {
	return w.focus
}

// CloseHandle returns the handle that stops Run.
func (w *Window) CloseHandle() platform.CloseHandle {
	return w.close
}

// Trace returns the frame trace, or nil when tracing is disabled.
func (w *Window) Trace() *FrameTraceBuffer {
	w.frameLock.Lock()
	defer w.frameLock.Unlock()
	return w.trace
}

// Frames returns the number of frames completed so far.
func (w *Window) Frames() uint64 {
	w.frameLock.Lock()
	defer w.frameLock.Unlock()
	return w.frames
}

// Pointer returns the current pointer state.
func (w *Window) Pointer() pointer.Snapshot {
	w.frameLock.Lock()
	defer w.frameLock.Unlock()
	return w.normalizer.Snapshot()
}

// HitTable returns a copy of the hit-test table built by the last frame.
func (w *Window) HitTable() []hittest.EntryInfo {
	w.frameLock.Lock()
	defer w.frameLock.Unlock()
	return w.table.Snapshot()
}

// HitChain returns the table indices an event at p would be delivered to.
func (w *Window) HitChain(p graphics.Point) []int {
	w.frameLock.Lock()
	defer w.frameLock.Unlock()
	return w.table.Chain(p)
}

// RenderFrame lays the tree out into the window region, renders every node
// into a fresh hit-test table, composites layers and presents the frame.
//
// A layout or render error aborts the frame and is returned. A panic,
// including a contract violation, is recovered and returned as
// *errors.BoundaryError; the partial hit-test build is discarded.
func (w *Window) RenderFrame() error {
	w.frameLock.Lock()
	defer w.frameLock.Unlock()
	return w.renderFrameLocked()
}

func (w *Window) renderFrameLocked() (err error) {
	start := time.Now()
	sample := FrameSample{Index: w.frames + 1, Timestamp: start.UnixMilli()}
	sample.Phases.DispatchMs = durationToMillis(w.dispatchTime)
	sample.Counts.Events = w.events
	w.dispatchTime, w.events = 0, 0

	phase := "callbacks"
	var builder *hittest.Builder
	defer func() {
		if r := recover(); r != nil {
			if builder != nil {
				builder.Reset()
			}
			w.layers.Reset()
			be := &errors.BoundaryError{
				Phase:      phase,
				Recovered:  r,
				StackTrace: errors.CaptureStack(),
				Timestamp:  time.Now(),
			}
			errors.ReportBoundaryError(be)
			err = be
		}
		if err != nil {
			sample.Flags.Aborted = true
			sample.Flags.AbortPhase = phase
		}
		w.recordFrame(sample, start)
	}()

	for _, fn := range w.drainDispatchQueue() {
		fn()
	}

	phase = "layout"
	width, height := w.backend.Window().Size()
	if w.canvas == nil || w.canvas.Image().Bounds().Dx() != width || w.canvas.Image().Bounds().Dy() != height {
		sample.Flags.Resized = w.canvas != nil
		w.canvas = graphics.NewRasterCanvas(width, height)
	}
	windowRegion := graphics.RegionFromLTWH(0, 0, float64(width), float64(height))

	// Every top-level node covers the whole window.
	phaseStart := time.Now()
	if err := w.root.Layout(layout.Repeat(windowRegion)); err != nil {
		return err
	}
	sample.Phases.LayoutMs = durationToMillis(time.Since(phaseStart))

	phase = "render"
	phaseStart = time.Now()
	var delta time.Duration
	if !w.lastFrame.IsZero() {
		delta = start.Sub(w.lastFrame)
	}
	w.canvas.Clear(w.background)
	builder = w.table.Builder()
	w.focus.BeginFrame()
	ctx := &core.RenderContext{
		Canvas:   w.canvas,
		Window:   w.backend.Window(),
		Delta:    delta,
		Bus:      w.bus,
		Close:    w.close,
		Hit:      builder,
		Focus:    w.focus,
		Layers:   w.layers,
		Registry: w.registry,
	}
	if err := w.root.Render(ctx); err != nil {
		builder.Reset()
		w.layers.Reset()
		return err
	}
	builder.Done()
	w.focus.EndFrame()
	sample.Phases.RenderMs = durationToMillis(time.Since(phaseStart))
	sample.Counts.HitEntries = w.table.Len()
	sample.Counts.Focusable = w.focus.Len()
	sample.Counts.KeyedNodes = w.registry.Len()

	phase = "composite"
	phaseStart = time.Now()
	sample.Counts.Layers = w.layers.Len()
	w.layers.Composite(w.canvas)
	sample.Phases.CompositeMs = durationToMillis(time.Since(phaseStart))

	phase = "present"
	phaseStart = time.Now()
	if err := w.backend.Present(w.canvas.Image()); err != nil {
		return errors.New("engine.Window.RenderFrame", errors.KindPlatform, err)
	}
	sample.Phases.PresentMs = durationToMillis(time.Since(phaseStart))

	w.frames++
	w.lastFrame = start
	return nil
}

// Dispatch schedules fn to run at the start of the next frame, under the
// frame lock and before layout. It is safe to call from any goroutine; fn
// must not call back into the window.
func (w *Window) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	w.dispatchMu.Lock()
	w.dispatchQueue = append(w.dispatchQueue, fn)
	w.dispatchMu.Unlock()
}

func (w *Window) drainDispatchQueue() []func() {
	w.dispatchMu.Lock()
	defer w.dispatchMu.Unlock()
	callbacks := w.dispatchQueue
	w.dispatchQueue = nil
	return callbacks
}

func (w *Window) recordFrame(sample FrameSample, start time.Time) {
	if w.trace == nil {
		return
	}
	d := time.Since(start)
	sample.FrameMs = durationToMillis(d)
	w.trace.Add(sample, d)
}

// HandleEvent feeds one raw platform event through the window.
//
// Pointer input is normalized first. The resulting event is emitted on the
// window scope with IsCurrent false, then the tree updates its logical
// enter, leave and click state, and finally presses, moves and releases are
// delivered with IsCurrent true to the hit node and its ancestors. A press
// moves focus to the nearest focusable node under the pointer, or clears it.
//
// Other raw events are emitted on the window scope verbatim. Key presses are
// also delivered to the focused node; Tab and the arrow keys move focus.
func (w *Window) HandleEvent(ctx context.Context, raw platform.Event) (err error) {
	w.frameLock.Lock()
	defer w.frameLock.Unlock()

	start := time.Now()
	w.events++
	defer func() {
		w.dispatchTime += time.Since(start)
		if r := recover(); r != nil {
			be := &errors.BoundaryError{
				Phase:      "dispatch",
				Recovered:  r,
				StackTrace: errors.CaptureStack(),
				Timestamp:  time.Now(),
			}
			errors.ReportBoundaryError(be)
			err = be
		}
	}()

	ev, classified, emitted := w.normalizer.Handle(raw)
	if !classified {
		w.handleRaw(raw)
		return nil
	}
	if !emitted {
		return nil
	}

	w.bus.Emit(ev.Standard(false))
	w.root.EmitEvent(&ev)

	switch ev.Change {
	case pointer.Press, pointer.Unchange, pointer.Release:
		if _, err := w.table.Emit(ctx, ev.Position, ev.Standard(true)); err != nil {
			return err
		}
	}
	if ev.Change == pointer.Press {
		w.focusAt(ev.Position)
	}
	return nil
}

func (w *Window) focusAt(p graphics.Point) {
	for _, scope := range w.table.Scopes(p) {
		if w.focus.Focusable(scope) {
			w.focus.Request(scope)
			return
		}
	}
	w.focus.Request(nil)
}

func (w *Window) handleRaw(raw platform.Event) {
	switch ev := raw.(type) {
	case platform.CloseRequested:
		// Nobody decides for the window: close it.
		unhandled := w.bus.Waiting(event.CloseRequested{}) == 0
		w.bus.Emit(raw)
		w.bus.Emit(event.CloseRequested{})
		if unhandled {
			w.close.Close()
		}
		return
	case platform.KeyInput:
		if ev.State == platform.Pressed {
			w.handleKey(ev)
		}
	}
	w.bus.Emit(raw)
}

func (w *Window) handleKey(ev platform.KeyInput) {
	switch ev.Key {
	case "Tab":
		w.focus.MoveFocus(1)
	case "Shift+Tab":
		w.focus.MoveFocus(-1)
	case "ArrowUp":
		w.focus.FocusInDirection(focus.TraversalDirectionUp)
	case "ArrowDown":
		w.focus.FocusInDirection(focus.TraversalDirectionDown)
	case "ArrowLeft":
		w.focus.FocusInDirection(focus.TraversalDirectionLeft)
	case "ArrowRight":
		w.focus.FocusInDirection(focus.TraversalDirectionRight)
	default:
		if scope := w.focus.Primary(); scope != nil {
			scope.Emit(ev)
		}
	}
}

// ApplyConfig updates the background and frame tracing from cfg and emits
// event.ConfigChanged on the window scope.
func (w *Window) ApplyConfig(cfg *config.Config) error {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	w.frameLock.Lock()
	w.background = opts.Background
	switch {
	case !opts.FrameTrace:
		w.trace = nil
	case w.trace == nil || (opts.TraceSamples > 0 && w.trace.Capacity() != opts.TraceSamples):
		w.trace = NewFrameTraceBuffer(opts.TraceSamples, 0)
	}
	w.frameLock.Unlock()

	if level, err := logging.ParseLevel(cfg.Log.Level); err == nil {
		w.log.SetLevel(level)
	}
	w.bus.Emit(event.ConfigChanged{Value: cfg})
	return nil
}

// WatchConfig applies every configuration reloaded by l.
func (w *Window) WatchConfig(l *config.Loader) {
	l.OnChange(func(cfg *config.Config) {
		if err := w.ApplyConfig(cfg); err != nil {
			w.log.Warn("config rejected", "path", l.Path(), "error", err)
			return
		}
		w.log.Info("config reloaded", "path", l.Path())
	})
}

// Run drives the window until ctx ends, the close handle is closed or the
// backend's event stream ends. It renders a frame every frame interval and
// handles raw events in between. When it returns the tree has been abandoned
// and event.WindowDestroyed has been emitted.
func (w *Window) Run(ctx context.Context) error {
	defer w.destroy()

	if w.debugPort != 0 {
		srv := NewDebugServer(w)
		port, err := srv.Start(w.debugPort)
		if err != nil {
			w.log.Warn("debug server failed to start", "error", err)
		} else {
			w.log.Info("debug server listening", "port", port)
			defer srv.Stop()
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.reportFrameError(w.RenderFrame())
	events := w.backend.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.close.Done():
			return nil
		case raw, ok := <-events:
			if !ok {
				return nil
			}
			if err := w.HandleEvent(ctx, raw); err != nil {
				w.reportError("dispatch", err)
			}
		case <-ticker.C:
			w.reportFrameError(w.RenderFrame())
		}
	}
}

func (w *Window) reportFrameError(err error) {
	if err != nil {
		w.reportError("frame", err)
	}
}

// reportError forwards err to the error handler. Boundary errors were
// reported when they were recovered.
func (w *Window) reportError(op string, err error) {
	var be *errors.BoundaryError
	if stderrors.As(err, &be) {
		return
	}
	var kerr *errors.Error
	if stderrors.As(err, &kerr) {
		errors.Report(kerr)
		return
	}
	w.log.Error("window error", "op", op, "error", err)
}

func (w *Window) destroy() {
	w.destroyOnce.Do(func() {
		w.frameLock.Lock()
		w.root.Abandon()
		w.frameLock.Unlock()
		w.close.Close()
		w.bus.Emit(event.WindowDestroyed{})
		close(w.destroyed)
	})
}

// Destroyed is closed once Run has returned.
func (w *Window) Destroyed() <-chan struct{} {
	return w.destroyed
}

// Join waits until the window is destroyed or ctx ends.
func (w *Window) Join(ctx context.Context) error {
	select {
	case <-w.destroyed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
