package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/go-drift/kite/pkg/config"
	"github.com/go-drift/kite/pkg/errors"
	"github.com/go-drift/kite/pkg/logging"
)

// project is the resolved configuration plus the logger built from it.
type project struct {
	*config.Resolved
	log *logging.Logger
}

// loadProject resolves the configuration in projectDir and installs the
// logger and error handler it describes.
func loadProject() (*project, error) {
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, err
	}
	resolved, err := config.Resolve(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg, err := logging.FromStrings(resolved.Config.Log.Level, resolved.Config.Log.Format)
	if err != nil {
		return nil, err
	}
	logCfg.Component = resolved.AppName
	log := logging.New(logCfg)
	logging.SetDefault(log)
	errors.SetHandler(&errors.LogHandler{
		Verbose: resolved.Config.Diagnostics.VerboseErrors,
		Logger:  log.Logger,
	})
	return &project{Resolved: resolved, log: log}, nil
}

// parseOutputArgs splits "-o FILE" / "--output FILE" from positional args.
func parseOutputArgs(args []string) ([]string, string, error) {
	var out string
	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "-o", "--output":
			if i+1 >= len(args) {
				return nil, "", fmt.Errorf("%s requires a file path", arg)
			}
			out = args[i+1]
			i++
		default:
			filtered = append(filtered, arg)
		}
	}
	return filtered, out, nil
}
