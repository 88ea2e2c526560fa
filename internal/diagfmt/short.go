package diagfmt

import (
	"io"

	"warden/internal/diag"
	"warden/internal/source"
)

// Short prints one line per finding, sorted by path and position:
//
//	critical warden:FileUploadSecurity src/Upload.java:3:5 Ensure file validation ...
//
// This is the format fixtures are written in, so it is stable across runs.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, notes bool) error {
	out := diag.FormatGoldenFindings(bag.Items(), fs, notes)
	if out == "" {
		return nil
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}
