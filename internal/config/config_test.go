package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"warden/internal/diag"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

const sampleTOML = `
[analysis]
jobs = 4
parallel_rules = 2
cache = ".warden-cache"
fail_on = "major"

[rules]
disable = ["DefineClass"]

[rules.severity]
ExceptionHandling = "minor"
"warden:JwtUtils" = "info"

[checks.file_validation]
open = ["newInputStream"]

[checks.jwt]
utility_types = ["com.acme.security.JwtUtils"]

[trace]
level = "phase"
`

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, FileName), sampleTOML)
	nested := filepath.Join(root, "services", "billing", "units")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.Path != filepath.Join(root, FileName) {
		t.Fatalf("loaded %q", cfg.Path)
	}
	if cfg.Analysis.Jobs != 4 || cfg.Analysis.ParallelRules != 2 {
		t.Fatalf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Analysis.Cache != filepath.Join(root, ".warden-cache") {
		t.Fatalf("cache not resolved against the file: %q", cfg.Analysis.Cache)
	}
	if cfg.Analysis.FailOn != diag.SevMajor || cfg.Analysis.MinSeverity != diag.SevInfo {
		t.Fatalf("severities = %v / %v", cfg.Analysis.FailOn, cfg.Analysis.MinSeverity)
	}
	if cfg.Rules.Severity["warden:ExceptionHandling"] != diag.SevMinor || cfg.Rules.Severity["warden:JwtUtils"] != diag.SevInfo {
		t.Fatalf("severity overrides = %v", cfg.Rules.Severity)
	}
	if got := cfg.Checks.FileValidation.Open; len(got) != 1 || got[0] != "newInputStream" {
		t.Fatalf("open methods = %v", got)
	}
	if got := cfg.Checks.FileValidation.Close; len(got) != 1 || got[0] != "close" {
		t.Fatalf("default close methods lost: %v", got)
	}
	if cfg.Checks.JWT.UtilityTypes[0] != "com.acme.security.JwtUtils" || cfg.Checks.JWT.Method != "validateJwtToken" {
		t.Fatalf("jwt = %+v", cfg.Checks.JWT)
	}
	if cfg.Trace.Level != "phase" || cfg.Trace.Mode != "stream" {
		t.Fatalf("trace = %+v", cfg.Trace)
	}
}

func TestDiscoverDefaults(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	// a warden.toml further up the real filesystem would be picked up too
	if cfg.Path != "" {
		t.Skipf("found an ambient configuration at %s", cfg.Path)
	}
	if cfg.Analysis.FailOn != diag.SevCritical || len(cfg.Checks.Upload.Save) == 0 {
		t.Fatalf("unexpected defaults %+v", cfg.Analysis)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, YAMLFileName)
	write(t, path, `
analysis:
  max_findings: 50
  min_severity: minor
rules:
  enable: [InputValidation, PasswordEncoder]
checks:
  password_encoder:
    secure: [BCryptPasswordEncoder]
`)
	found, ok, err := Find(dir)
	if err != nil || !ok || found != path {
		t.Fatalf("Find = %q, %v, %v", found, ok, err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analysis.MaxFindings != 50 || cfg.Analysis.MinSeverity != diag.SevMinor {
		t.Fatalf("analysis = %+v", cfg.Analysis)
	}
	if strings.Join(cfg.Rules.Enable, ",") != "InputValidation,PasswordEncoder" {
		t.Fatalf("enable = %v", cfg.Rules.Enable)
	}
	if got := cfg.Checks.Password.Secure; len(got) != 1 {
		t.Fatalf("secure encoders = %v", got)
	}
	if len(cfg.Checks.Password.Weak) == 0 {
		t.Fatalf("default weak encoders lost")
	}
}

func TestTomlPreferredOverYAML(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, YAMLFileName), "analysis:\n  jobs: 1\n")
	write(t, filepath.Join(dir, FileName), "[analysis]\njobs = 2\n")
	cfg, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.Analysis.Jobs != 2 {
		t.Fatalf("expected warden.toml to win, got jobs=%d from %s", cfg.Analysis.Jobs, cfg.Path)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"bad severity", FileName, "[analysis]\nfail_on = \"fatal\"\n", "unknown severity"},
		{"unknown key", FileName, "[analysis]\nworkers = 3\n", "unknown keys: analysis.workers"},
		{"negative jobs", FileName, "[analysis]\njobs = -1\n", "[analysis].jobs must not be negative"},
		{"empty enable", FileName, "[rules]\nenable = []\n", "[rules].enable is empty"},
		{"broken toml", FileName, "[analysis\n", "failed to parse TOML"},
		{"unknown yaml field", YAMLFileName, "analysis:\n  workers: 3\n", "failed to parse YAML"},
		{"bad yaml severity", YAMLFileName, "rules:\n  severity:\n    DefineClass: urgent\n", "unknown severity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			write(t, path, tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
			if !strings.HasPrefix(err.Error(), path) {
				t.Fatalf("error does not name the file: %v", err)
			}
		})
	}
}
