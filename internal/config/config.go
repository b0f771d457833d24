// Package config loads the optional .codemod.yaml file and CODEMOD_*
// environment overrides.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/deixis/codemod/internal/invocation"
	"github.com/deixis/codemod/internal/runner"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// FileName is the config file looked up at the project root.
const FileName = ".codemod.yaml"

// EnvPrefix prefixes environment overrides, e.g. CODEMOD_ENGINE_EXECUTABLE.
const EnvPrefix = "CODEMOD_"

const maxConfigFileSize = 1 << 20 // 1 MB

// Config holds the parsed configuration.
// All fields are optional; zero values are replaced by defaults on Load.
type Config struct {
	Engine     EngineConfig     `koanf:"engine"`
	Transforms TransformsConfig `koanf:"transforms"`
	Runner     RunnerConfig     `koanf:"runner"`
	Log        LogConfig        `koanf:"log"`
}

// EngineConfig controls how the transform engine is located and invoked.
type EngineConfig struct {
	Executable     string   `koanf:"executable"`      // name or path, default jscodeshift
	Verbose        int      `koanf:"verbose"`         // --verbose level
	IgnorePatterns []string `koanf:"ignore_patterns"` // one --ignore-pattern each
	Extensions     []string `koanf:"extensions"`      // joined into --extensions
}

// TransformsConfig locates the transform scripts.
type TransformsConfig struct {
	Dir string `koanf:"dir"`
}

// RunnerConfig bounds captured engine output (MCP runs only).
type RunnerConfig struct {
	MaxOutput int `koanf:"max_output"` // bytes
}

// LogConfig selects the zap logger settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// LoadResult holds the parsed config and the discovered project root.
type LoadResult struct {
	Config      *Config
	ProjectRoot string // directory containing package.json; falls back to workspace
	Path        string // config file read, empty when none existed
}

// Load reads .codemod.yaml from the project root, then applies CODEMOD_*
// environment variables. The project root is the nearest ancestor of
// workspace containing package.json. A relative transforms.dir is taken
// relative to the project root; list fields read from the environment are
// comma-separated.
func Load(workspace string) (*LoadResult, error) {
	root, err := findProjectRoot(workspace)
	if err != nil {
		// No package.json found; use workspace as root.
		root = workspace
	}

	k := koanf.New(".")
	res := &LoadResult{ProjectRoot: root}

	path := filepath.Join(root, FileName)
	data, err := readConfigFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", FileName, err)
		}
		res.Path = path
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if d := cfg.Transforms.Dir; d != "" && !filepath.IsAbs(d) {
		cfg.Transforms.Dir = filepath.Join(root, d)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res.Config = cfg
	return res, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate rejects values the engine or logger cannot use.
func (c *Config) Validate() error {
	if c.Engine.Verbose < 0 {
		return fmt.Errorf("engine.verbose must be >= 0, got %d", c.Engine.Verbose)
	}
	if c.Runner.MaxOutput < 0 {
		return fmt.Errorf("runner.max_output must be >= 0, got %d", c.Runner.MaxOutput)
	}
	for _, ext := range c.Engine.Extensions {
		if ext == "" || strings.ContainsAny(ext, ", ") {
			return fmt.Errorf("engine.extensions: invalid extension %q", ext)
		}
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be 'console' or 'json', got %q", c.Log.Format)
	}
	return nil
}

// envKey maps CODEMOD_ENGINE_EXECUTABLE to engine.executable: the first
// segment after the prefix is the section, the rest the field name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// listKeys are read from the environment as comma-separated lists.
var listKeys = map[string]bool{
	"engine.extensions":      true,
	"engine.ignore_patterns": true,
}

func envValue(key, value string) (string, interface{}) {
	k := envKey(key)
	if !listKeys[k] {
		return k, value
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return k, items
}

func applyDefaults(c *Config) {
	if c.Engine.Executable == "" {
		c.Engine.Executable = invocation.DefaultEngine
	}
	if c.Engine.Verbose == 0 {
		c.Engine.Verbose = invocation.DefaultVerbose
	}
	if len(c.Engine.IgnorePatterns) == 0 {
		c.Engine.IgnorePatterns = append([]string(nil), invocation.DefaultIgnorePatterns...)
	}
	if len(c.Engine.Extensions) == 0 {
		c.Engine.Extensions = append([]string(nil), invocation.DefaultExtensions...)
	}
	if c.Transforms.Dir == "" {
		c.Transforms.Dir = defaultTransformDir()
	}
	if c.Runner.MaxOutput == 0 {
		c.Runner.MaxOutput = runner.DefaultMaxOutput
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// defaultTransformDir is the transforms directory shipped next to the
// binary's bin directory.
func defaultTransformDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "transforms"
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "..", "transforms")
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("%s is too large (%d bytes, max %d)", FileName, info.Size(), maxConfigFileSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}
	return data, nil
}

// findProjectRoot walks upward from dir looking for a directory containing package.json.
func findProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("package.json not found")
		}
		dir = parent
	}
}
