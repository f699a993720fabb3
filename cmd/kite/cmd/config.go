package cmd

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

func init() {
	RegisterCommand(&Command{
		Name:  "config",
		Short: "Print the resolved configuration",
		Long: `Print the configuration kite resolves for a project directory.

The configuration comes from kite.yaml, kite.yml or kite.toml when one is
present, with KITE_* environment overrides applied. The app name and ID
default to values derived from the module path in go.mod.

Usage:
  kite config          # Resolve from the current directory
  kite config ./app    # Resolve from ./app`,
		Usage: "kite config [dir]",
		Run:   runConfig,
	})
}

type configReport struct {
	Root       string `yaml:"root"`
	ConfigFile string `yaml:"config_file,omitempty"`
	Module     string `yaml:"module,omitempty"`
	AppName    string `yaml:"app_name"`
	AppID      string `yaml:"app_id"`
	Engine     string `yaml:"engine"`
	Config     any    `yaml:"config"`
}

func runConfig(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("too many arguments\n\nUsage: kite config [dir]")
	}
	if len(args) == 1 {
		projectDir = args[0]
	}

	p, err := loadProject()
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(configReport{
		Root:       p.Root,
		ConfigFile: p.ConfigPath,
		Module:     p.ModulePath,
		AppName:    p.AppName,
		AppID:      p.AppID,
		Engine:     p.EngineVersion,
		Config:     p.Config,
	})
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}
