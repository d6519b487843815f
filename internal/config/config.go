// Package config resolves harness settings.
//
// Precedence, lowest first: built-in defaults, the YAML config file, the
// .env file and CACHECHECK_* environment variables, then command-line flags
// (applied by the cli package).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cachecheck/internal/compare"
	"github.com/roach88/cachecheck/internal/golden"
)

// Environment variables read by ApplyEnv.
const (
	EnvSimulator = "CACHECHECK_SIMULATOR"
	EnvGoldenDir = "CACHECHECK_GOLDEN_DIR"
	EnvTraceDir  = "CACHECHECK_TRACE_DIR"
	EnvTable     = "CACHECHECK_TABLE"
	EnvDatabase  = "CACHECHECK_DB"
	EnvTimeout   = "CACHECHECK_TIMEOUT"
	EnvSkip      = "CACHECHECK_SKIP"
)

// DefaultDotEnv is the env file loaded when present.
const DefaultDotEnv = ".env"

// Config holds everything needed to run the suite.
type Config struct {
	Simulator    string        `yaml:"simulator"`
	GoldenDir    string        `yaml:"golden_dir"`
	GoldenPrefix string        `yaml:"golden_prefix"`
	TraceDir     string        `yaml:"trace_dir"`
	Table        string        `yaml:"table"`
	Skip         []int         `yaml:"skip"`
	Anchors      []string      `yaml:"anchors"`
	Database     string        `yaml:"database"`
	KeepGoing    bool          `yaml:"keep_going"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Default returns the layout of the recorded battery: ./cachesim run from
// the project root with goldens in tests/ and traces in traces/.
func Default() Config {
	return Config{
		Simulator:    "./cachesim",
		GoldenDir:    "tests",
		GoldenPrefix: golden.DefaultPrefix,
		TraceDir:     "traces",
		Anchors:      append([]string(nil), compare.DefaultAnchors...),
	}
}

// Load returns the defaults overlaid with the YAML file at path.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays CACHECHECK_* variables using lookup (os.LookupEnv in
// production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		EnvSimulator: &c.Simulator,
		EnvGoldenDir: &c.GoldenDir,
		EnvTraceDir:  &c.TraceDir,
		EnvTable:     &c.Table,
		EnvDatabase:  &c.Database,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}

	if v, ok := lookup(EnvSkip); ok && v != "" {
		skip, err := ParseIndices(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSkip, err)
		}
		c.Skip = skip
	}
	return c.Validate()
}

// ParseIndices parses a comma-separated list of scenario indices.
func ParseIndices(s string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario index %q", field)
		}
		out = append(out, n)
	}
	return out, nil
}

// Validate checks settings that would otherwise fail late.
func (c Config) Validate() error {
	if c.Simulator == "" {
		return fmt.Errorf("simulator path is required")
	}
	if c.GoldenDir == "" {
		return fmt.Errorf("golden directory is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	for _, idx := range c.Skip {
		if idx < 1 {
			return fmt.Errorf("skip index %d must be positive", idx)
		}
	}
	return nil
}

// SkipSet returns the configured skips keyed by index.
func (c Config) SkipSet() map[int]string {
	skips := make(map[int]string, len(c.Skip))
	for _, idx := range c.Skip {
		skips[idx] = "skipped by configuration"
	}
	return skips
}
