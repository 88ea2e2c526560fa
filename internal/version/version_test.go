package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestCurrent(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	tests := []struct {
		name    string
		version string
		commit  string
		date    string
		want    Info
	}{
		{"defaults", "0.1.0-dev", "abc123", "2024-01-15", Info{Version: "0.1.0-dev", GitCommit: "abc123", BuildDate: "2024-01-15"}},
		{"trimmed", " 1.2.3 \n", "  a1b2c3 ", "", Info{Version: "1.2.3", GitCommit: "a1b2c3"}},
		{"empty version", "", "f00", "20240115", Info{Version: "dev", GitCommit: "f00", BuildDate: "20240115"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, GitCommit, BuildDate = tt.version, tt.commit, tt.date
			got := Current()
			if got.Version != tt.want.Version || got.GitCommit != tt.want.GitCommit {
				t.Fatalf("Current() = %+v, want %+v", got, tt.want)
			}
			if tt.want.BuildDate != "" && got.BuildDate != tt.want.BuildDate {
				t.Fatalf("BuildDate = %q, want %q", got.BuildDate, tt.want.BuildDate)
			}
		})
	}
}

func TestColored(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	for _, v := range []string{"0.1.0-dev", "1.2.3", "1.2.3-rc.1+build.123", "dev", "1.2"} {
		if got := Colored(v); got != v {
			t.Errorf("Colored(%q) without color = %q", v, got)
		}
	}
}
