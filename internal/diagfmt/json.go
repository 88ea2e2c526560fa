package diagfmt

import (
	"encoding/json"
	"io"
	"strings"

	"warden/internal/diag"
	"warden/internal/source"
)

// LocationJSON представляет местоположение в файле для JSON
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

// NoteJSON представляет дополнительную заметку для JSON
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// FindingJSON is one finding.
type FindingJSON struct {
	Severity string       `json:"severity"`
	Rule     string       `json:"rule"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// FindingsOutput представляет корневую структуру JSON вывода
type FindingsOutput struct {
	Findings []FindingJSON `json:"findings"`
	Count    int           `json:"count"`
	// Dropped counts findings cut by the max-findings limit.
	Dropped int `json:"dropped,omitempty"`
}

func makeLocation(span source.Span, fs *source.FileSet, pathMode PathMode, includePositions bool) LocationJSON {
	loc := LocationJSON{
		File:      displayPath(fs, span.File, pathMode),
		StartByte: span.Start,
		EndByte:   span.End,
	}
	if includePositions {
		startPos, endPos := fs.Resolve(span)
		loc.StartLine = startPos.Line
		loc.StartCol = startPos.Col
		loc.EndLine = endPos.Line
		loc.EndCol = endPos.Col
	}
	return loc
}

// BuildFindingsOutput формирует структуру JSON-вывода без сериализации.
func BuildFindingsOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) FindingsOutput {
	items := bag.Items()
	maxItems := len(items)
	if opts.Max > 0 && opts.Max < maxItems {
		maxItems = opts.Max
	}

	findings := make([]FindingJSON, 0, maxItems)
	for i := range maxItems {
		f := items[i]
		fj := FindingJSON{
			Severity: strings.ToLower(f.Severity.String()),
			Rule:     f.Rule,
			Message:  f.Message,
			Location: makeLocation(f.Primary, fs, opts.PathMode, opts.IncludePositions),
		}
		if opts.IncludeNotes && len(f.Notes) > 0 {
			fj.Notes = make([]NoteJSON, len(f.Notes))
			for j, note := range f.Notes {
				fj.Notes[j] = NoteJSON{
					Message:  note.Msg,
					Location: makeLocation(note.Span, fs, opts.PathMode, opts.IncludePositions),
				}
			}
		}
		findings = append(findings, fj)
	}

	return FindingsOutput{
		Findings: findings,
		Count:    len(findings),
		Dropped:  bag.Dropped() + len(items) - maxItems,
	}
}

// JSON форматирует находки в JSON формат.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildFindingsOutput(bag, fs, opts))
}
