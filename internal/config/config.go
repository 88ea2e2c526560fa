// Package config loads warden.toml (or .warden.yaml), found by walking up
// from the scan root. Command-line flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"warden/internal/checks"
	"warden/internal/diag"
)

const (
	FileName     = "warden.toml"
	YAMLFileName = ".warden.yaml"
)

// Config is the effective configuration of one run.
type Config struct {
	// Path is the file the configuration came from, "" for defaults.
	Path     string
	Analysis Analysis
	Rules    Rules
	Checks   checks.Settings
	Trace    Trace
}

type Analysis struct {
	// Jobs bounds the units analysed at once; 0 means GOMAXPROCS.
	Jobs          int
	MaxFindings   int
	ParallelRules int
	// Cache is the finding cache directory; "" disables caching.
	Cache       string
	MinSeverity diag.Severity
	FailOn      diag.Severity
}

type Rules struct {
	Enable   []string
	Disable  []string
	Severity map[string]diag.Severity
}

type Trace struct {
	Output string
	Level  string
	Mode   string
}

// Default is the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Analysis: Analysis{
			MinSeverity: diag.SevInfo,
			FailOn:      diag.SevCritical,
		},
		Rules:  Rules{Severity: map[string]diag.Severity{}},
		Checks: checks.DefaultSettings(),
		Trace:  Trace{Level: "off", Mode: "stream"},
	}
}

// fileConfig mirrors the file layout; pointers tell "absent" from zero.
type fileConfig struct {
	Analysis struct {
		Jobs          *int           `toml:"jobs" yaml:"jobs"`
		MaxFindings   *int           `toml:"max_findings" yaml:"max_findings"`
		ParallelRules *int           `toml:"parallel_rules" yaml:"parallel_rules"`
		Cache         *string        `toml:"cache" yaml:"cache"`
		MinSeverity   *diag.Severity `toml:"min_severity" yaml:"min_severity"`
		FailOn        *diag.Severity `toml:"fail_on" yaml:"fail_on"`
	} `toml:"analysis" yaml:"analysis"`
	Rules struct {
		Enable   []string                 `toml:"enable" yaml:"enable"`
		Disable  []string                 `toml:"disable" yaml:"disable"`
		Severity map[string]diag.Severity `toml:"severity" yaml:"severity"`
	} `toml:"rules" yaml:"rules"`
	Checks checks.Settings `toml:"checks" yaml:"checks"`
	Trace  struct {
		Output *string `toml:"output" yaml:"output"`
		Level  *string `toml:"level" yaml:"level"`
		Mode   *string `toml:"mode" yaml:"mode"`
	} `toml:"trace" yaml:"trace"`
}

// Find walks up from startDir and returns the first configuration file.
// warden.toml wins over .warden.yaml in the same directory.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		for _, name := range []string{FileName, YAMLFileName} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the configuration for startDir, falling back to
// Default when there is none.
func Discover(startDir string) (*Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load reads one configuration file on top of Default. Every error names
// the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.Decode(string(data), &fc)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
		if meta.IsDefined("rules", "enable") && len(fc.Rules.Enable) == 0 {
			return nil, fmt.Errorf("%s: [rules].enable is empty; remove it to enable every rule", path)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported configuration format %q", path, ext)
	}

	cfg := Default()
	cfg.Path = path
	if err := cfg.apply(&fc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) apply(fc *fileConfig) error {
	a := fc.Analysis
	for _, f := range []struct {
		name string
		v    *int
	}{{"jobs", a.Jobs}, {"max_findings", a.MaxFindings}, {"parallel_rules", a.ParallelRules}} {
		if f.v != nil && *f.v < 0 {
			return fmt.Errorf("[analysis].%s must not be negative, got %d", f.name, *f.v)
		}
	}
	if a.Jobs != nil {
		c.Analysis.Jobs = *a.Jobs
	}
	if a.MaxFindings != nil {
		c.Analysis.MaxFindings = *a.MaxFindings
	}
	if a.ParallelRules != nil {
		c.Analysis.ParallelRules = *a.ParallelRules
	}
	if a.Cache != nil {
		c.Analysis.Cache = *a.Cache
		if c.Analysis.Cache != "" && !filepath.IsAbs(c.Analysis.Cache) && c.Path != "" {
			// relative to the configuration file
			c.Analysis.Cache = filepath.Join(filepath.Dir(c.Path), c.Analysis.Cache)
		}
	}
	if a.MinSeverity != nil {
		c.Analysis.MinSeverity = *a.MinSeverity
	}
	if a.FailOn != nil {
		c.Analysis.FailOn = *a.FailOn
	}

	c.Rules.Enable = fc.Rules.Enable
	c.Rules.Disable = fc.Rules.Disable
	for rule, sev := range fc.Rules.Severity {
		key := rule
		if !strings.Contains(key, ":") {
			key = checks.Key(rule)
		}
		c.Rules.Severity[key] = sev
	}
	c.Checks = c.Checks.Merge(fc.Checks)

	if fc.Trace.Output != nil {
		c.Trace.Output = *fc.Trace.Output
	}
	if fc.Trace.Level != nil {
		c.Trace.Level = *fc.Trace.Level
	}
	if fc.Trace.Mode != nil {
		c.Trace.Mode = *fc.Trace.Mode
	}
	return nil
}
