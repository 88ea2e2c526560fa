package diag

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"warden/internal/source"
)

type goldenFinding struct {
	Severity string
	Rule     string
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

// FormatGoldenFindings renders findings into a stable, single-line-per-entry
// representation suitable for golden files and txtar fixtures:
//
//	major warden:ExceptionHandling Service.java:3:5 Handle exceptions ...
//
// Paths are relative to the FileSet base directory. Notes follow their
// finding when includeNotes is set.
func FormatGoldenFindings(findings []Finding, fs *source.FileSet, includeNotes bool) string {
	if fs == nil || len(findings) == 0 {
		return ""
	}

	rendered := make([]goldenFinding, 0, len(findings))
	for i := range findings {
		rendered = appendFinding(rendered, &findings[i], fs, includeNotes)
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Column != dj.Column {
			return di.Column < dj.Column
		}
		if di.Rule != dj.Rule {
			return di.Rule < dj.Rule
		}
		return di.Message < dj.Message
	})

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", d.Severity, d.Rule, d.Path, d.Line, d.Column, d.Message)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func appendFinding(out []goldenFinding, f *Finding, fs *source.FileSet, includeNotes bool) []goldenFinding {
	if loc, ok := resolveSpan(fs, f.Primary); ok {
		out = append(out, goldenFinding{
			Severity: strings.ToLower(f.Severity.String()),
			Rule:     f.Rule,
			Path:     loc.Path,
			Line:     loc.Line,
			Column:   loc.Column,
			Message:  sanitizeMessage(f.Message),
		})
	}
	if includeNotes {
		for _, note := range f.Notes {
			nloc, ok := resolveSpan(fs, note.Span)
			if !ok {
				continue
			}
			out = append(out, goldenFinding{
				Severity: "note",
				Rule:     f.Rule,
				Path:     nloc.Path,
				Line:     nloc.Line,
				Column:   nloc.Column,
				Message:  sanitizeMessage(note.Msg),
			})
		}
	}
	return out
}

type resolvedSpan struct {
	Path   string
	Line   uint32
	Column uint32
}

func resolveSpan(fs *source.FileSet, span source.Span) (resolvedSpan, bool) {
	file := fs.Get(span.File)
	if file == nil {
		return resolvedSpan{}, false
	}
	start, _ := fs.Resolve(span)
	return resolvedSpan{
		Path:   normalizePath(file.FormatPath("relative", fs.BaseDir())),
		Line:   start.Line,
		Column: start.Col,
	}, true
}

func normalizePath(path string) string {
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
