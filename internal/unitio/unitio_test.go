package unitio

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"warden/internal/source"
	"warden/internal/tree"
)

// sampleJSON:
//
//	class Upload { void store(MultipartFile f) { repo.save(f); } }
const sampleJSON = `{
  "path": "src/Upload.java",
  "source": "class Upload {\n  void store(MultipartFile f) {\n    repo.save(f);\n  }\n}\n",
  "types": [
    {"name": "Upload", "qname": "com.acme.Upload"},
    {"name": "MultipartFile", "qname": "org.springframework.web.multipart.MultipartFile"}
  ],
  "symbols": [
    {"kind": "param", "name": "f", "type": 2},
    {"kind": "method", "name": "store", "owner": 1}
  ],
  "root": {"kind": "unit", "start": 0, "end": 71, "members": [
    {"kind": "class", "name": "Upload", "type": 1, "start": 0, "end": 70, "members": [
      {"kind": "method", "name": "store", "symbol": 2, "start": 17, "end": 68,
       "params": [{"kind": "variable", "name": "f", "param": true, "symbol": 1, "start": 28, "end": 43,
                   "type_ref": {"kind": "type_ref", "name": "MultipartFile", "type": 2, "start": 28, "end": 41}}],
       "body": {"kind": "block", "start": 45, "end": 68, "stmts": [
         {"kind": "expr_stmt", "start": 51, "end": 64, "expr":
           {"kind": "call", "name": "save", "start": 51, "end": 63,
            "receiver": {"kind": "ident", "name": "repo", "start": 51, "end": 55},
            "args": [{"kind": "ident", "name": "f", "start": 61, "end": 62}]}}
       ]}}
    ]}
  ]}
}`

func TestBuildFromJSON(t *testing.T) {
	doc, err := Unmarshal([]byte(sampleJSON), FormatJSON)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	fs := source.NewFileSet()
	tr, err := doc.Build(fs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tr.Len() != doc.Count() {
		t.Fatalf("tree has %d nodes, document %d", tr.Len(), doc.Count())
	}
	calls := tr.Collect(tr.Root(), tree.KindCall)
	if len(calls) != 1 || tree.ExprString(tr, calls[0]) != "repo.save(f)" {
		t.Fatalf("unexpected calls %v", calls)
	}
	start, _ := fs.Resolve(tr.Span(calls[0]))
	if start.Line != 3 || start.Col != 5 {
		t.Fatalf("call at %d:%d, want 3:5", start.Line, start.Col)
	}
	params := tr.Collect(tr.Root(), tree.KindVariable)
	if got := tr.Symbol(params[0]); got == nil || got.Name != "f" {
		t.Fatalf("param symbol not bound: %+v", got)
	}
	ref := tr.Collect(tr.Root(), tree.KindTypeRef)[0]
	if q := tr.TypeQualifiedName(ref); q != "org.springframework.web.multipart.MultipartFile" {
		t.Fatalf("type ref resolved to %q", q)
	}
}

func TestJSONAndMsgpackRoundTrip(t *testing.T) {
	doc, err := Unmarshal([]byte(sampleJSON), FormatJSON)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	var bin bytes.Buffer
	if err := Encode(&bin, doc, FormatMsgpack); err != nil {
		t.Fatalf("Encode msgpack: %v", err)
	}
	back, err := Decode(&bin, FormatMsgpack)
	if err != nil {
		t.Fatalf("Decode msgpack: %v", err)
	}
	if !reflect.DeepEqual(doc, back) {
		t.Fatalf("msgpack round trip changed the document")
	}

	var text bytes.Buffer
	if err := Encode(&text, back, FormatJSON); err != nil {
		t.Fatalf("Encode json: %v", err)
	}
	again, err := Decode(&text, FormatJSON)
	if err != nil {
		t.Fatalf("Decode json: %v", err)
	}
	if !reflect.DeepEqual(doc, again) {
		t.Fatalf("json round trip changed the document")
	}
}

func TestWriteAndRead(t *testing.T) {
	doc, err := Unmarshal([]byte(sampleJSON), FormatJSON)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	dir := t.TempDir()
	for _, name := range []string{"upload.wunit", "upload.wunit.json"} {
		path := filepath.Join(dir, name)
		if err := Write(path, doc); err != nil {
			t.Fatalf("Write %s: %v", name, err)
		}
		got, raw, err := Read(path)
		if err != nil {
			t.Fatalf("Read %s: %v", name, err)
		}
		if len(raw) == 0 || !reflect.DeepEqual(doc, got) {
			t.Fatalf("%s: document changed on disk", name)
		}
	}
	if err := Write(filepath.Join(dir, "upload.txt"), doc); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown kind", `{"path":"a","root":{"kind":"unit","members":[{"kind":"switch"}]}}`, "unknown node kind"},
		{"symbol out of range", `{"path":"a","root":{"kind":"ident","name":"x","symbol":3}}`, "symbol reference 3"},
		{"type out of range", `{"path":"a","types":[{"name":"A","supertypes":[7]}],"root":{"kind":"unit"}}`, "type reference 7"},
		{"fact on statement", `{"path":"a","types":[{"name":"A"}],"root":{"kind":"block","type":1}}`, "not applicable"},
		{"bare expression in block", `{"path":"a","root":{"kind":"block","stmts":[{"kind":"ident","name":"x"}]}}`, "not a statement"},
		{"unknown symbol kind", `{"path":"a","symbols":[{"kind":"module","name":"m"}],"root":{"kind":"unit"}}`, "unknown kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Unmarshal([]byte(tt.doc), FormatJSON)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			_, err = doc.Build(source.NewFileSet())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
			if !strings.HasPrefix(err.Error(), "a: ") {
				t.Fatalf("error not wrapped with path: %v", err)
			}
		})
	}
	if _, err := Unmarshal([]byte(`{"path":"a"}`), FormatJSON); err == nil {
		t.Fatalf("expected error for a document without root")
	}
	if _, err := Unmarshal([]byte(`{"path":"a","root":{"kind":"unit"},"extra":1}`), FormatJSON); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestNamesAreNFC(t *testing.T) {
	// "cafe" followed by a combining acute accent
	doc, err := Unmarshal([]byte(`{"path":"a","root":{"kind":"ident","name":"cafe\u0301"}}`), FormatJSON)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc.Root.Name != "caf\u00e9" {
		t.Fatalf("name not normalized: %q", doc.Root.Name)
	}
}

func TestSyntheticSpansWithoutPositions(t *testing.T) {
	doc, err := Unmarshal([]byte(`{"path":"a","root":{"kind":"block","stmts":[
		{"kind":"expr_stmt","expr":{"kind":"call","name":"open"}},
		{"kind":"expr_stmt","expr":{"kind":"call","name":"close"}}]}}`), FormatJSON)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc.HasSpans() {
		t.Fatalf("document should have no spans")
	}
	tr, err := doc.Build(source.NewFileSet())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	calls := tr.Collect(tr.Root(), tree.KindCall)
	if !tr.Span(calls[0]).Before(tr.Span(calls[1])) {
		t.Fatalf("synthetic spans do not follow source order: %v %v", tr.Span(calls[0]), tr.Span(calls[1]))
	}
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a/b.wunit.json": FormatJSON,
		"B.WUNIT":        FormatMsgpack,
	} {
		got, err := FormatOf(path)
		if err != nil || got != want {
			t.Errorf("FormatOf(%q) = %v, %v; want %v", path, got, err, want)
		}
	}
	if IsUnitPath("Main.java") {
		t.Errorf("Main.java is not a unit document")
	}
}
