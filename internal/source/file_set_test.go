package source

import "testing"

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("src/A.java", []byte("class A {}"), 0)
	id2 := fs.Add("src/A.java", []byte("class A { int x; }"), 0)
	if id1 == id2 {
		t.Fatalf("expected distinct ids for re-added unit")
	}
	latest, ok := fs.GetLatest("src/./A.java")
	if !ok || latest != id2 {
		t.Fatalf("GetLatest = %d,%v; want %d", latest, ok, id2)
	}
	if fs.Len() != 2 {
		t.Fatalf("Len = %d", fs.Len())
	}
	if fs.Get(99) != nil {
		t.Fatalf("unknown id must resolve to nil")
	}
}

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("Svc.java", []byte("class Svc {\r\n  void run() {}\r\n}\r\n"))

	f := fs.Get(id)
	if f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("expected CRLF normalization flag")
	}
	// "  void" starts at offset 12 after normalization
	start, _ := fs.Resolve(Span{File: id, Start: 14, End: 18})
	if start.Line != 2 || start.Col != 3 {
		t.Fatalf("Resolve = %+v, want 2:3", start)
	}
	if got := f.GetLine(2); got != "  void run() {}" {
		t.Fatalf("GetLine(2) = %q", got)
	}
	if got := f.GetLine(9); got != "" {
		t.Fatalf("GetLine(9) = %q", got)
	}
}

func TestFileSetWithoutText(t *testing.T) {
	fs := NewFileSet()
	id := fs.Add("Gen.java", nil, 0)
	if fs.Get(id).Flags&FileNoText == 0 {
		t.Fatalf("expected FileNoText flag")
	}
	start, end := fs.Resolve(Span{File: id, Start: 40, End: 44})
	if start != (LineCol{Line: 1, Col: 41}) || end != (LineCol{Line: 1, Col: 45}) {
		t.Fatalf("Resolve without text = %+v %+v", start, end)
	}
}
