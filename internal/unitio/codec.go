package unitio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects a document encoding.
type Format uint8

const (
	FormatJSON Format = iota
	FormatMsgpack
)

const (
	ExtJSON    = ".wunit.json"
	ExtMsgpack = ".wunit"
)

// ErrUnknownFormat is returned for paths without a unit document extension.
var ErrUnknownFormat = errors.New("not a unit document")

func (f Format) String() string {
	if f == FormatMsgpack {
		return "msgpack"
	}
	return "json"
}

// ParseFormat accepts "json" and "msgpack".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	}
	return 0, fmt.Errorf("unknown unit format %q (want json or msgpack)", s)
}

// FormatOf derives the encoding from a file name.
func FormatOf(path string) (Format, error) {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(base, ExtJSON):
		return FormatJSON, nil
	case strings.HasSuffix(base, ExtMsgpack):
		return FormatMsgpack, nil
	}
	return 0, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// IsUnitPath reports whether path has a unit document extension.
func IsUnitPath(path string) bool {
	_, err := FormatOf(path)
	return err == nil
}

// Decode reads one document.
func Decode(r io.Reader, format Format) (*UnitDoc, error) {
	doc := new(UnitDoc)
	switch format {
	case FormatMsgpack:
		if err := msgpack.NewDecoder(r).Decode(doc); err != nil {
			return nil, err
		}
	default:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(doc); err != nil {
			return nil, err
		}
	}
	if doc.Root == nil {
		return nil, errors.New("document has no root node")
	}
	doc.normalize()
	return doc, nil
}

// Unmarshal decodes a document held in memory.
func Unmarshal(data []byte, format Format) (*UnitDoc, error) {
	return Decode(bytes.NewReader(data), format)
}

// Read loads the document at path, picking the encoding by extension.
// Errors carry the path.
func Read(path string) (*UnitDoc, []byte, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	doc, err := Unmarshal(data, format)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: decode %s: %w", path, format, err)
	}
	return doc, data, nil
}

// Encode writes doc in the given encoding.
func Encode(w io.Writer, doc *UnitDoc, format Format) error {
	switch format {
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetSortMapKeys(true)
		return enc.Encode(doc)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
}

// Write stores doc at path atomically; the encoding follows the extension.
func Write(path string, doc *UnitDoc) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, doc, format); err != nil {
		return fmt.Errorf("%s: encode %s: %w", path, format, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wunit-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
