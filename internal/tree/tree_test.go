package tree

import (
	"testing"

	"warden/internal/symbols"
)

// buildService:
//
//	class Service {
//	  Response handle(Request req) throws IOException {
//	    InputStream in = req.getInputStream();
//	    if (ok) { return ResponseEntity.ok(); }
//	    return ResponseEntity.badRequest();
//	  }
//	}
func buildService(t *testing.T) (*Tree, map[string]NodeID) {
	t.Helper()
	tab := symbols.NewTable(symbols.Hints{})
	stream, err := tab.NewType("InputStream", "java.io.InputStream")
	if err != nil {
		t.Fatal(err)
	}
	getIn, err := tab.NewSymbol(symbols.Symbol{Kind: symbols.SymbolMethod, Name: "getInputStream", DeclaredType: stream})
	if err != nil {
		t.Fatal(err)
	}

	b := NewBuilder(3, tab, Options{SyntheticSpans: true})
	ids := map[string]NodeID{}
	ids["acquire"] = b.Typed(b.Bind(b.Call(b.Ident("req"), "getInputStream"), getIn), stream)
	ids["local"] = b.Local("in", b.TypeRef("InputStream"), ids["acquire"])
	ids["ok"] = b.Call(b.Ident("ResponseEntity"), "ok")
	ids["retOK"] = b.Return(ids["ok"])
	ids["if"] = b.If(b.Ident("ok"), b.Block(ids["retOK"]), NoNodeID)
	ids["retBad"] = b.Return(b.Call(b.Ident("ResponseEntity"), "badRequest"))
	ids["body"] = b.Block(ids["local"], ids["if"], ids["retBad"])
	ids["method"] = b.Method(MethodSpec{
		Name:       "handle",
		ReturnType: b.TypeRef("Response"),
		Params:     []NodeID{b.Param("req", b.TypeRef("Request"))},
		Throws:     []NodeID{b.TypeRef("IOException")},
		Body:       ids["body"],
	})
	ids["class"] = b.Class(ClassSpec{Name: "Service", Members: []NodeID{ids["method"]}})
	ids["unit"] = b.Unit(ids["class"])
	tr, err := b.Finish(ids["unit"])
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return tr, ids
}

func TestParentLinksAndDepth(t *testing.T) {
	tr, ids := buildService(t)
	if _, ok := tr.Parent(tr.Root()); ok {
		t.Fatalf("root must have no parent")
	}
	if p, _ := tr.Parent(ids["local"]); p != ids["body"] {
		t.Fatalf("parent of local = %d, want body %d", p, ids["body"])
	}
	if !tr.IsAncestor(ids["method"], ids["ok"]) {
		t.Fatalf("method must be an ancestor of the nested call")
	}
	if tr.IsAncestor(ids["ok"], ids["method"]) {
		t.Fatalf("ancestry must not be symmetric")
	}
	if d := tr.Depth(ids["class"]); d != 1 {
		t.Fatalf("Depth(class) = %d", d)
	}
	tr.Walk(func(id NodeID) bool {
		if p, ok := tr.Parent(id); ok && tr.Depth(id) != tr.Depth(p)+1 {
			t.Errorf("depth of %d inconsistent with parent %d", id, p)
		}
		return true
	})
}

func TestStructuralMismatchIsNotApplicable(t *testing.T) {
	tr, ids := buildService(t)
	if _, ok := tr.Call(ids["local"]); ok {
		t.Fatalf("variable must not decode as call")
	}
	if _, ok := tr.Loop(ids["if"]); ok {
		t.Fatalf("if must not decode as loop")
	}
	if _, ok := tr.Call(NodeID(9999)); ok {
		t.Fatalf("unknown node must not decode")
	}
	if v, ok := tr.Variable(ids["local"]); !ok || v.Name != "in" || v.Init != ids["acquire"] {
		t.Fatalf("Variable = %+v, %v", v, ok)
	}
}

func TestFacts(t *testing.T) {
	tr, ids := buildService(t)
	if _, st := tr.SymbolOf(ids["acquire"]); st != FactResolved {
		t.Errorf("acquire symbol: %s", st)
	}
	if _, st := tr.SymbolOf(ids["ok"]); st != FactUnresolved {
		t.Errorf("ok symbol: %s", st)
	}
	if _, st := tr.SymbolOf(ids["retOK"]); st != FactNotApplicable {
		t.Errorf("return symbol: %s", st)
	}
	if _, st := tr.TypeOf(ids["body"]); st != FactNotApplicable {
		t.Errorf("block type: %s", st)
	}
	if got := tr.TypeQualifiedName(ids["acquire"]); got != "java.io.InputStream" {
		t.Errorf("TypeQualifiedName = %q", got)
	}
	if s := tr.Symbol(ids["acquire"]); s == nil || s.Name != "getInputStream" {
		t.Errorf("Symbol = %+v", s)
	}
}

func TestWalkIsPreorderInSourceOrder(t *testing.T) {
	tr, ids := buildService(t)
	var seen []NodeID
	tr.Walk(func(id NodeID) bool {
		seen = append(seen, id)
		return true
	})
	if len(seen) != tr.Len() {
		t.Fatalf("walk visited %d of %d nodes", len(seen), tr.Len())
	}
	pos := map[NodeID]int{}
	for i, id := range seen {
		pos[id] = i
	}
	order := []string{"unit", "class", "method", "body", "local", "acquire", "if", "retOK", "retBad"}
	for i := 1; i < len(order); i++ {
		if pos[ids[order[i-1]]] >= pos[ids[order[i]]] {
			t.Fatalf("%s visited after %s", order[i-1], order[i])
		}
	}
	// synthetic spans follow the same order
	for i := 1; i < len(seen); i++ {
		if tr.Span(seen[i-1]).Start >= tr.Span(seen[i]).Start {
			t.Fatalf("spans not increasing in pre-order at %d", i)
		}
	}
	if !tr.Span(ids["body"]).Contains(tr.Span(ids["retOK"])) {
		t.Fatalf("parent span must cover nested statement")
	}

	var pruned int
	tr.Walk(func(id NodeID) bool {
		pruned++
		return tr.Kind(id) != KindMethod
	})
	if pruned != 3 {
		t.Fatalf("pruned walk visited %d nodes, want 3", pruned)
	}
}

func TestExprString(t *testing.T) {
	b := NewBuilder(0, nil, Options{})
	logCall := b.Call(b.Ident("logger"), "error", b.Literal(`"bad token"`), b.Ident("e"))
	status := b.Select(b.Ident("HttpServletResponse"), "SC_UNAUTHORIZED")
	send := b.Call(b.Ident("response"), "sendError", status)
	enc := b.NewClass(b.TypeRef("BCryptPasswordEncoder"))
	root := b.Block(b.ExprStmt(logCall), b.ExprStmt(send), b.ExprStmt(b.Assign(b.Ident("x"), enc)))
	tr, err := b.Finish(root)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		id   NodeID
		want string
	}{
		{logCall, `logger.error("bad token", e)`},
		{status, "HttpServletResponse.SC_UNAUTHORIZED"},
		{enc, "new BCryptPasswordEncoder()"},
		{root, "<block>"},
	}
	for _, tt := range tests {
		if got := ExprString(tr, tt.id); got != tt.want {
			t.Errorf("ExprString(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
	if got := CalleeString(tr, send); got != "response.sendError" {
		t.Errorf("CalleeString = %q", got)
	}
}

func TestKindNamesRoundTrip(t *testing.T) {
	for k := KindUnit; int(k) < Count(); k++ {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v,%v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("nope"); ok {
		t.Errorf("unexpected kind")
	}
}
