package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-drift/kite/pkg/config"
	"github.com/go-drift/kite/pkg/engine"
	"github.com/go-drift/kite/pkg/platform"
	"github.com/go-drift/kite/pkg/scene"
)

func init() {
	RegisterCommand(&Command{
		Name:  "serve",
		Short: "Run a scene with the debug server",
		Long: `Mount a scene in a headless window and keep it running with the debug
server enabled, so the frame timeline, hit-test table and runtime samples
can be inspected over HTTP.

The script's steps are fed to the window once, spaced by --step-delay. The
project configuration is watched and reloaded while serving.

Flags:
  --port N           Debug server port (default: diagnostics.debug_port, or 9339)
  --step-delay D     Delay between scripted steps (default: 100ms)

Endpoints:
  /health  /window  /hit-table?x=&y=  /frames  /frames/stream  /runtime`,
		Usage: "kite serve <script.yaml> [--port N] [--step-delay D]",
		Run:   runServe,
	})
}

// DefaultServePort is used when neither --port nor the configuration set
// one.
const DefaultServePort = 9339

type serveOptions struct {
	port      int
	stepDelay time.Duration
}

func parseServeArgs(args []string) ([]string, serveOptions, error) {
	opts := serveOptions{stepDelay: 100 * time.Millisecond}
	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "--port", "--step-delay":
			if i+1 >= len(args) {
				return nil, opts, fmt.Errorf("%s requires a value", arg)
			}
			v := args[i+1]
			i++
			if arg == "--port" {
				port, err := strconv.Atoi(v)
				if err != nil || port <= 0 || port > 65535 {
					return nil, opts, fmt.Errorf("invalid port %q", v)
				}
				opts.port = port
				continue
			}
			d, err := time.ParseDuration(v)
			if err != nil || d < 0 {
				return nil, opts, fmt.Errorf("invalid step delay %q", v)
			}
			opts.stepDelay = d
		default:
			filtered = append(filtered, arg)
		}
	}
	return filtered, opts, nil
}

func runServe(args []string) error {
	args, opts, err := parseServeArgs(args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("script is required\n\nUsage: kite serve <script.yaml> [--port N]")
	}

	p, err := loadProject()
	if err != nil {
		return err
	}
	script, err := scene.Load(args[0])
	if err != nil {
		return err
	}
	tree, err := scene.Build(script.Root)
	if err != nil {
		return err
	}

	engineOpts, err := engine.OptionsFromConfig(p.Config)
	if err != nil {
		return err
	}
	engineOpts.Logger = p.log
	engineOpts.FrameTrace = true
	engineOpts.DebugPort = opts.port
	if engineOpts.DebugPort == 0 {
		engineOpts.DebugPort = p.Config.Diagnostics.DebugPort
	}
	if engineOpts.DebugPort == 0 {
		engineOpts.DebugPort = DefaultServePort
	}

	width, height := script.Window.Width, script.Window.Height
	if width == 0 || height == 0 {
		width, height = p.Config.Window.Width, p.Config.Window.Height
	}
	title := script.Window.Title
	if title == "" {
		title = p.Config.Window.Title
	}
	backend := platform.NewHeadless(title, width, height, 16)
	win := engine.New(backend, tree.Root, engineOpts)

	if p.ConfigPath != "" {
		loader := config.NewLoader(p.ConfigPath)
		if _, err := loader.Load(); err != nil {
			return err
		}
		win.WatchConfig(loader)
		if err := loader.Watch(); err != nil {
			p.log.Warn("config watch disabled", "path", p.ConfigPath, "error", err)
		}
		defer loader.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go feedSteps(ctx, win, backend, tree, script.Steps, opts.stepDelay, p)

	p.log.Info("serving scene", "script", args[0], "port", engineOpts.DebugPort)
	if err := win.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// feedSteps sends the scripted input through the backend, as a platform
// would. Targets are resolved at the start of a frame so that regions are
// read under the frame lock. Frame steps wait Count frame intervals.
func feedSteps(ctx context.Context, win *engine.Window, backend *platform.Headless, tree *scene.Tree, steps []scene.Step, delay time.Duration, p *project) {
	type resolved struct {
		events []platform.Event
		err    error
	}
	for i, step := range steps {
		wait := delay
		if step.Action == "frame" {
			wait = time.Duration(max(step.Count, 1)) * engine.DefaultFrameInterval
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		ch := make(chan resolved, 1)
		win.Dispatch(func() {
			events, err := tree.Events(step)
			ch <- resolved{events, err}
		})
		var r resolved
		select {
		case <-ctx.Done():
			return
		case <-win.Destroyed():
			return
		case r = <-ch:
		}
		if r.err != nil {
			p.log.Warn("step skipped", "index", i, "action", step.Action, "error", r.err)
			continue
		}
		for _, ev := range r.events {
			if err := backend.Send(ev); err != nil {
				return
			}
		}
	}
	p.log.Info("scripted steps done", "steps", len(steps))
}
