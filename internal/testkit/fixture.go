package testkit

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/txtar"

	"warden/internal/source"
	"warden/internal/tree"
	"warden/internal/unitio"
)

// Fixture is one txtar test case:
//
//	-- unit.wunit.json --
//	{ "path": "Upload.java", "root": { ... } }
//	-- want --
//	critical warden:FileUploadSecurity Upload.java:1:9 Ensure ...
//	-- rules --
//	FileUploadSecurity
//
// "want" holds the expected findings in golden form, "rules" optionally
// restricts the rules run (one per line).
type Fixture struct {
	Name  string
	Doc   *unitio.UnitDoc
	Want  string
	Rules []string
}

// LoadFixture parses a txtar fixture.
func LoadFixture(path string) (*Fixture, error) {
	ar, err := txtar.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return parseFixture(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), ar)
}

// ParseFixture parses fixture text held in memory.
func ParseFixture(name string, data []byte) (*Fixture, error) {
	return parseFixture(name, txtar.Parse(data))
}

func parseFixture(name string, ar *txtar.Archive) (*Fixture, error) {
	fx := &Fixture{Name: name}
	for _, f := range ar.Files {
		switch {
		case unitio.IsUnitPath(f.Name):
			format, _ := unitio.FormatOf(f.Name)
			doc, err := unitio.Unmarshal(f.Data, format)
			if err != nil {
				return nil, fmt.Errorf("fixture %s: %s: %w", name, f.Name, err)
			}
			fx.Doc = doc
		case f.Name == "want":
			fx.Want = strings.TrimSpace(string(f.Data))
		case f.Name == "rules":
			for _, line := range strings.Split(string(f.Data), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					fx.Rules = append(fx.Rules, line)
				}
			}
		default:
			return nil, fmt.Errorf("fixture %s: unexpected section %q", name, f.Name)
		}
	}
	if fx.Doc == nil {
		return nil, fmt.Errorf("fixture %s: no unit document", name)
	}
	return fx, nil
}

// LoadFixtures loads every *.txtar file of dir, sorted by name.
func LoadFixtures(dir string) ([]*Fixture, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txtar"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	out := make([]*Fixture, 0, len(paths))
	for _, p := range paths {
		fx, err := LoadFixture(p)
		if err != nil {
			return nil, err
		}
		out = append(out, fx)
	}
	return out, nil
}

// Build turns the fixture's document into a tree registered in fs and
// verifies the tree invariants.
func (fx *Fixture) Build(fs *source.FileSet) (*tree.Tree, error) {
	t, err := fx.Doc.Build(fs)
	if err != nil {
		return nil, err
	}
	if err := CheckTreeInvariants(t, fs.Get(t.Unit())); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", fx.Name, err)
	}
	return t, nil
}
