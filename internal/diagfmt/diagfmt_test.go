package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"warden/internal/diag"
	"warden/internal/source"
)

const uploadSrc = "class Upload {\n  void store() {\n    repo.save(f);\n  }\n}\n"

// sample returns a bag with one finding on "repo.save(f)" (line 3, col 5)
// carrying a note on the method header.
func sample(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSetWithBase("/home/user/project")
	id := fs.AddVirtual("/home/user/project/src/Upload.java", []byte(uploadSrc))
	bag := diag.NewBag(0)
	bag.Add(diag.Finding{
		Rule:     "warden:FileUploadSecurity",
		Severity: diag.SevCritical,
		Node:     7,
		Primary:  source.Span{File: id, Start: 36, End: 48},
		Message:  "Ensure file validation.",
		Notes:    []diag.Note{{Span: source.Span{File: id, Start: 17, End: 29}, Msg: "in this method"}},
	})
	return bag, fs
}

func TestPretty(t *testing.T) {
	bag, fs := sample(t)
	var buf bytes.Buffer
	if err := Pretty(&buf, bag, fs, PrettyOpts{Context: 1, PathMode: PathModeBasename, ShowNotes: true}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	want := strings.Join([]string{
		"Upload.java:3:5: CRITICAL warden:FileUploadSecurity: Ensure file validation.",
		"2 |   void store() {",
		"3 |     repo.save(f);",
		"  |     ^~~~~~~~~~~~",
		"  note: Upload.java:2:3: in this method",
		"",
		"1 finding: 1 critical",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Fatalf("pretty output mismatch:\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrettyPathModes(t *testing.T) {
	bag, fs := sample(t)
	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"absolute", PathModeAbsolute, "/home/user/project/src/Upload.java:3:5"},
		{"relative", PathModeRelative, "src/Upload.java:3:5"},
		{"basename", PathModeBasename, "Upload.java:3:5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode}); err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(buf.String(), tt.contains) {
				t.Fatalf("expected output to start with %q, got:\n%s", tt.contains, buf.String())
			}
			if strings.Contains(buf.String(), "note:") {
				t.Fatalf("notes printed without ShowNotes")
			}
		})
	}
}

func TestPrettyWithoutSourceText(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("Gen.java", nil)
	bag := diag.NewBag(1)
	bag.Add(diag.Finding{Rule: "warden:DefineClass", Severity: diag.SevMajor, Primary: source.Span{File: id, Start: 3, End: 5}, Message: "m"})
	bag.Add(diag.Finding{Rule: "warden:DefineClass", Severity: diag.SevMajor, Primary: source.Span{File: id, Start: 4, End: 5}, Message: "dropped"})

	var buf bytes.Buffer
	if err := Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename}); err != nil {
		t.Fatal(err)
	}
	want := "Gen.java:1:4: MAJOR warden:DefineClass: m\n\n1 finding: 1 major (1 more not shown)\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestShort(t *testing.T) {
	bag, fs := sample(t)
	var buf bytes.Buffer
	if err := Short(&buf, bag, fs, false); err != nil {
		t.Fatal(err)
	}
	want := "critical warden:FileUploadSecurity src/Upload.java:3:5 Ensure file validation.\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestJSON(t *testing.T) {
	bag, fs := sample(t)
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeRelative, IncludeNotes: true}); err != nil {
		t.Fatal(err)
	}
	var out FindingsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 1 || len(out.Findings) != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	f := out.Findings[0]
	if f.Severity != "critical" || f.Rule != "warden:FileUploadSecurity" {
		t.Fatalf("unexpected finding %+v", f)
	}
	if f.Location.File != "src/Upload.java" || f.Location.StartLine != 3 || f.Location.StartCol != 5 || f.Location.EndCol != 17 {
		t.Fatalf("unexpected location %+v", f.Location)
	}
	if len(f.Notes) != 1 || f.Notes[0].Location.StartLine != 2 {
		t.Fatalf("unexpected notes %+v", f.Notes)
	}

	buf.Reset()
	if err := JSON(&buf, bag, fs, JSONOpts{Max: -1}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "start_line") || strings.Contains(buf.String(), "notes") {
		t.Fatalf("positions and notes are opt-in:\n%s", buf.String())
	}
}

func TestSarif(t *testing.T) {
	bag, fs := sample(t)
	var buf bytes.Buffer
	err := Sarif(&buf, bag, fs, SarifRunMeta{
		ToolName:    "warden",
		ToolVersion: "0.1.0",
		Rules: []SarifRule{
			{ID: "warden:FileUploadSecurity", Name: "FileUploadSecurity", Severity: "critical", Tags: []string{"security"}},
			{ID: "warden:DefineClass", Name: "DefineClass", Severity: "major"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	var log struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Name  string `json:"name"`
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				RuleIndex int    `json:"ruleIndex"`
				Level     string `json:"level"`
				Locations []struct {
					Physical struct {
						Artifact struct {
							URI string `json:"uri"`
						} `json:"artifactLocation"`
						Region sarifRegion `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
				Related []json.RawMessage `json:"relatedLocations"`
			} `json:"results"`
		} `json:"runs"`
	}
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("unexpected envelope: %+v", log)
	}
	run := log.Runs[0]
	if run.Tool.Driver.Name != "warden" || len(run.Tool.Driver.Rules) != 2 || run.Tool.Driver.Rules[0].ID != "warden:DefineClass" {
		t.Fatalf("rules should be sorted by id: %+v", run.Tool.Driver)
	}
	res := run.Results[0]
	if res.RuleID != "warden:FileUploadSecurity" || res.RuleIndex != 1 || res.Level != "error" {
		t.Fatalf("unexpected result %+v", res)
	}
	loc := res.Locations[0].Physical
	if loc.Artifact.URI != "src/Upload.java" || loc.Region.StartLine != 3 || loc.Region.StartColumn != 5 || loc.Region.CharLength != 12 {
		t.Fatalf("unexpected location %+v", loc)
	}
	if len(res.Related) != 1 {
		t.Fatalf("notes should become related locations")
	}
}

func TestSarifLevel(t *testing.T) {
	for sev, want := range map[diag.Severity]string{
		diag.SevCritical: "error",
		diag.SevMajor:    "error",
		diag.SevMinor:    "warning",
		diag.SevInfo:     "note",
	} {
		if got := sarifLevel(sev); got != want {
			t.Errorf("sarifLevel(%v) = %q, want %q", sev, got, want)
		}
	}
}
