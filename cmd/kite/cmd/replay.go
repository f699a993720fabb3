package cmd

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/kite/pkg/scene"
)

func init() {
	RegisterCommand(&Command{
		Name:  "replay",
		Short: "Replay a scene script headlessly",
		Long: `Replay a scene script in a headless window.

The script describes the window, a tree of widgets (box, row, column, flex,
padding, label, button, toggle, opacity) and a list of input steps (move,
press, release, tap, touch, leave, key, resize, frame). After every step a
frame is rendered. The pointer, focus and hover state after each step and
the final widget state are printed as YAML.

Flags:
  -o, --output FILE  Write the last frame as PNG

Usage:
  kite replay scene.yaml
  kite replay scene.yaml -o last.png`,
		Usage: "kite replay <script.yaml> [-o out.png]",
		Run:   runReplay,
	})
}

func runReplay(args []string) error {
	args, output, err := parseOutputArgs(args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("script is required\n\nUsage: kite replay <script.yaml> [-o out.png]")
	}

	p, err := loadProject()
	if err != nil {
		return err
	}
	script, err := scene.Load(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	res, err := scene.Replay(ctx, script, scene.Options{
		Logger:     p.log,
		FrameTrace: p.Config.Diagnostics.FrameTrace,
	})
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(res)
	if err != nil {
		return err
	}
	if _, err := stdout.Write(out); err != nil {
		return err
	}

	if output == "" || res.Frame == nil {
		return nil
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := png.Encode(f, res.Frame); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	p.log.Info("frame written", "path", output)
	return nil
}
