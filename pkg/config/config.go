// Package config loads kite.yaml or kite.toml and resolves project defaults.
//
// The file is optional. Missing sections keep the values of Default, and
// KITE_* environment variables override whatever the file says.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	kerrors "github.com/go-drift/kite/pkg/errors"
	"github.com/go-drift/kite/pkg/graphics"
)

// FileNames lists the configuration files looked up by LoadOptional, in
// order of preference.
var FileNames = []string{"kite.yaml", "kite.yml", "kite.toml"}

// Config represents the kite configuration file.
type Config struct {
	App         AppConfig         `yaml:"app" toml:"app"`
	Window      WindowConfig      `yaml:"window" toml:"window"`
	Engine      EngineConfig      `yaml:"engine" toml:"engine"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" toml:"diagnostics"`
	Log         LogConfig         `yaml:"log" toml:"log"`
}

// AppConfig contains application metadata.
type AppConfig struct {
	Name string `yaml:"name,omitempty" toml:"name,omitempty"`
	ID   string `yaml:"id,omitempty" toml:"id,omitempty"`
}

// WindowConfig describes the initial window.
type WindowConfig struct {
	Title  string `yaml:"title" toml:"title"`
	Width  int    `yaml:"width" toml:"width"`
	Height int    `yaml:"height" toml:"height"`
	// Background is a hex color ("#RRGGBB" or "#AARRGGBB") or a color name
	// such as "black", used to clear the canvas before each frame.
	Background string `yaml:"background" toml:"background"`
}

// EngineConfig contains engine settings.
type EngineConfig struct {
	Version string `yaml:"version,omitempty" toml:"version,omitempty"`
}

// DiagnosticsConfig configures the debug server and frame tracing.
type DiagnosticsConfig struct {
	// DebugPort enables the debug HTTP server when non-zero.
	DebugPort int `yaml:"debug_port" toml:"debug_port"`
	// FrameTrace records per-frame timings.
	FrameTrace bool `yaml:"frame_trace" toml:"frame_trace"`
	// TraceSamples is the capacity of the frame trace ring buffer.
	TraceSamples int `yaml:"trace_samples" toml:"trace_samples"`
	// VerboseErrors includes stack traces in error logs.
	VerboseErrors bool `yaml:"verbose_errors" toml:"verbose_errors"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:      "kite",
			Width:      800,
			Height:     600,
			Background: "#FFFFFF",
		},
		Engine: EngineConfig{Version: "latest"},
		Diagnostics: DiagnosticsConfig{
			TraceSamples: 240,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Clone returns a copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// BackgroundColor parses Window.Background.
func (c *Config) BackgroundColor() (graphics.Color, error) {
	return graphics.ParseColor(c.Window.Background)
}

// Validate checks every field that has a restricted range.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive (got %dx%d)", c.Window.Width, c.Window.Height))
	}
	if c.Window.Background != "" {
		if _, err := graphics.ParseColor(c.Window.Background); err != nil {
			errs = append(errs, fmt.Errorf("window.background: %w", err))
		}
	}
	if v := c.Engine.Version; v != "" && v != "latest" && !semver.IsValid(v) {
		errs = append(errs, fmt.Errorf("engine.version must be \"latest\" or a semantic version like v1.2.3 (got %q)", v))
	}
	if p := c.Diagnostics.DebugPort; p < 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("diagnostics.debug_port out of range (got %d)", p))
	}
	if c.Diagnostics.TraceSamples < 0 {
		errs = append(errs, fmt.Errorf("diagnostics.trace_samples cannot be negative (got %d)", c.Diagnostics.TraceSamples))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error (got %q)", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ApplyEnvOverrides replaces fields from KITE_* environment variables.
// Malformed numeric values are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("KITE_WINDOW_TITLE"); v != "" {
		c.Window.Title = v
	}
	if v := os.Getenv("KITE_ENGINE_VERSION"); v != "" {
		c.Engine.Version = v
	}
	if v := os.Getenv("KITE_DEBUG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Diagnostics.DebugPort = port
		}
	}
	if v := os.Getenv("KITE_FRAME_TRACE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Diagnostics.FrameTrace = b
		}
	}
	if v := os.Getenv("KITE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("KITE_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// Load reads the configuration file at path. The format is chosen by
// extension (.yaml, .yml or .toml). Fields absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, kerrors.New("config.Load", kerrors.KindConfig, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, kerrors.New("config.Load", kerrors.KindConfig, fmt.Errorf("invalid %s: %w", filepath.Base(path), err))
	}
	return cfg, nil
}

// Find returns the path of the first configuration file present in dir.
func Find(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// LoadOptional reads the configuration file in dir if there is one and
// returns the defaults otherwise.
func LoadOptional(dir string) (*Config, error) {
	path, ok := Find(dir)
	if !ok {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, kerrors.New("config.LoadOptional", kerrors.KindConfig, err)
		}
		return cfg, nil
	}
	return Load(path)
}

func decodeFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return cfg, nil
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root          string
	ConfigPath    string
	ModulePath    string
	AppName       string
	AppID         string
	EngineVersion string
	Config        *Config
}

// Resolve loads the configuration in dir (if present) and resolves defaults.
// The module path in dir/go.mod, when there is one, provides the default app
// name and ID.
func Resolve(dir string) (*Resolved, error) {
	modPath, err := modulePath(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	cfgPath, _ := Find(dir)

	appName := strings.TrimSpace(cfg.App.Name)
	if appName == "" {
		appName = defaultAppName(modPath, dir)
	}

	appID := strings.TrimSpace(cfg.App.ID)
	if appID == "" {
		appID = defaultAppID(modPath, appName)
	}
	if err := validateAppID(appID); err != nil {
		return nil, kerrors.New("config.Resolve", kerrors.KindConfig, err)
	}

	engineVersion := strings.TrimSpace(cfg.Engine.Version)
	if engineVersion == "" {
		engineVersion = "latest"
	}
	if engineVersion != "latest" {
		engineVersion = semver.Canonical(engineVersion)
	}

	return &Resolved{
		Root:          dir,
		ConfigPath:    cfgPath,
		ModulePath:    modPath,
		AppName:       appName,
		AppID:         appID,
		EngineVersion: engineVersion,
		Config:        cfg,
	}, nil
}

// FindProjectRoot walks up from dir to find go.mod.
func FindProjectRoot(dir string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module (no go.mod found)")
		}
		dir = parent
	}
}

func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	if err := module.CheckImportPath(path); err != nil {
		return "", fmt.Errorf("invalid module path in go.mod: %w", err)
	}
	return path, nil
}

func defaultAppName(modulePath, dir string) string {
	base := filepath.Base(dir)
	if modulePath != "" {
		if modName, _, ok := module.SplitPathVersion(modulePath); ok {
			parts := strings.Split(modName, "/")
			base = parts[len(parts)-1]
		}
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "kite_app"
	}
	return base
}

func defaultAppID(modulePath, appName string) string {
	parts := strings.Split(modulePath, "/")
	if len(parts) < 2 || !strings.Contains(parts[0], ".") {
		return fmt.Sprintf("com.example.%s", sanitizeSegment(appName, false))
	}

	host := strings.Split(parts[0], ".")
	for i, j := 0, len(host)-1; i < j; i, j = i+1, j-1 {
		host[i], host[j] = host[j], host[i]
	}

	segments := host
	for _, p := range parts[1:] {
		if p != "" {
			segments = append(segments, p)
		}
	}
	for i, segment := range segments {
		segments[i] = sanitizeSegment(segment, false)
	}
	return strings.Join(segments, ".")
}

// sanitizeSegment lowercases segment and drops every character that is not a
// letter or a digit.
func sanitizeSegment(segment string, allowLeadingDigit bool) string {
	var out []rune
	for _, r := range strings.TrimSpace(segment) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		}
	}

	if len(out) == 0 {
		out = []rune("app")
	}
	if !allowLeadingDigit && out[0] >= '0' && out[0] <= '9' {
		out = append([]rune{'a'}, out...)
	}
	return string(out)
}

func validateAppID(appID string) error {
	if !strings.Contains(appID, ".") {
		return fmt.Errorf("app.id must contain at least one '.' (got %q)", appID)
	}
	for _, segment := range strings.Split(appID, ".") {
		if segment == "" {
			return fmt.Errorf("app.id contains an empty segment (%q)", appID)
		}
		if segment[0] >= '0' && segment[0] <= '9' {
			return fmt.Errorf("app.id segments cannot start with a digit (%q)", appID)
		}
		if segment[0] == '_' {
			return fmt.Errorf("app.id segments cannot start with '_' (%q)", appID)
		}
		for _, r := range segment {
			if !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
				return fmt.Errorf("app.id contains invalid character %q in %q", r, appID)
			}
		}
	}
	return nil
}
