package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"warden/internal/diag"
	"warden/internal/source"
)

type palette struct {
	sev    map[diag.Severity]*color.Color
	rule   *color.Color
	gutter *color.Color
	caret  *color.Color
	note   *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevCritical: mk(color.FgRed, color.Bold),
			diag.SevMajor:    mk(color.FgRed),
			diag.SevMinor:    mk(color.FgYellow),
			diag.SevInfo:     mk(color.FgCyan),
		},
		rule:   mk(color.Bold),
		gutter: mk(color.FgBlue),
		caret:  mk(color.FgGreen, color.Bold),
		note:   mk(color.FgCyan),
	}
}

// Pretty prints findings for a terminal, in bag order:
//
//	<path>:<line>:<col>: <SEV> <rule>: <message>
//
// followed by the source line with ^~~~ under the span, then the notes.
// Units without source text get the header only.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	pal := newPalette(opts.Color)
	var b strings.Builder
	for i, f := range bag.Items() {
		if i > 0 {
			b.WriteByte('\n')
		}
		writePrettyFinding(&b, &f, fs, opts, pal)
	}
	writeSummary(&b, bag, pal)
	_, err := io.WriteString(w, b.String())
	return err
}

func writePrettyFinding(b *strings.Builder, f *diag.Finding, fs *source.FileSet, opts PrettyOpts, pal palette) {
	start, end := fs.Resolve(f.Primary)
	fmt.Fprintf(b, "%s:%d:%d: %s %s: %s\n",
		displayPath(fs, f.Primary.File, opts.PathMode), start.Line, start.Col,
		pal.sev[f.Severity].Sprint(f.Severity.String()),
		pal.rule.Sprint(f.Rule),
		f.Message)

	if file := fs.Get(f.Primary.File); file != nil && file.Flags&source.FileNoText == 0 {
		writeSnippet(b, file, start, end, opts, pal)
	}

	if !opts.ShowNotes {
		return
	}
	for _, n := range f.Notes {
		ns, _ := fs.Resolve(n.Span)
		fmt.Fprintf(b, "  %s %s:%d:%d: %s\n", pal.note.Sprint("note:"),
			displayPath(fs, n.Span.File, opts.PathMode), ns.Line, ns.Col, n.Msg)
	}
}

func writeSnippet(b *strings.Builder, file *source.File, start, end source.LineCol, opts PrettyOpts, pal palette) {
	if start.Line == 0 {
		return
	}
	first := start.Line
	if ctx := uint32(max(opts.Context, 0)); first > ctx {
		first -= ctx
	} else {
		first = 1
	}
	gw := len(strconv.FormatUint(uint64(start.Line), 10))

	for n := first; n <= start.Line; n++ {
		line := expandTabs(file.GetLine(n))
		if opts.Width > 0 {
			line = truncate(line, int(opts.Width)-gw-3)
		}
		fmt.Fprintf(b, "%s %s\n", pal.gutter.Sprintf("%*d |", gw, n), line)
	}

	raw := file.GetLine(start.Line)
	col := min(int(start.Col)-1, len(raw))
	prefix := runewidth.StringWidth(expandTabs(raw[:col]))
	rest := raw[col:]
	if end.Line == start.Line && int(end.Col) > int(start.Col) {
		rest = raw[col:min(int(end.Col)-1, len(raw))]
	}
	width := max(runewidth.StringWidth(expandTabs(rest)), 1)
	if opts.Width > 0 {
		avail := int(opts.Width) - gw - 3 - prefix
		width = max(min(width, avail), 1)
	}
	fmt.Fprintf(b, "%s %s%s\n", pal.gutter.Sprint(strings.Repeat(" ", gw)+" |"),
		strings.Repeat(" ", prefix), pal.caret.Sprint("^"+strings.Repeat("~", width-1)))
}

func writeSummary(b *strings.Builder, bag *diag.Bag, pal palette) {
	if bag.Len() == 0 && bag.Dropped() == 0 {
		return
	}
	counts := make(map[diag.Severity]int)
	for _, f := range bag.Items() {
		counts[f.Severity]++
	}
	parts := make([]string, 0, 4)
	for _, sev := range []diag.Severity{diag.SevCritical, diag.SevMajor, diag.SevMinor, diag.SevInfo} {
		if counts[sev] > 0 {
			parts = append(parts, pal.sev[sev].Sprintf("%d %s", counts[sev], strings.ToLower(sev.String())))
		}
	}
	noun := "findings"
	if bag.Len() == 1 {
		noun = "finding"
	}
	fmt.Fprintf(b, "\n%d %s", bag.Len(), noun)
	if len(parts) > 0 {
		b.WriteString(": " + strings.Join(parts, ", "))
	}
	if d := bag.Dropped(); d > 0 {
		fmt.Fprintf(b, " (%d more not shown)", d)
	}
	b.WriteByte('\n')
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
