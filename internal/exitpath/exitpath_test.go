package exitpath

import (
	"strings"
	"testing"

	"warden/internal/tree"
)

// byName classifies `ok()`/`created()` as success and `badRequest()`/
// `notFound()` as failure.
func byName(t *tree.Tree, value tree.NodeID) Class {
	c, ok := t.Call(value)
	if !ok {
		return Unknown
	}
	switch strings.ToLower(c.Name) {
	case "ok", "created":
		return Success
	case "badrequest", "notfound":
		return Failure
	}
	return Unknown
}

var noSuccessInCatch = Policy{Disallow: DisallowPairs(Pair{Success, ErrorHandling})}

type routine struct {
	t    *tree.Tree
	m    tree.NodeID
	stmt map[string]tree.NodeID
}

// build creates `void m() { <stmts> }` where stmts are produced by fn.
func build(t *testing.T, fn func(b *tree.Builder, stmt map[string]tree.NodeID) []tree.NodeID) routine {
	t.Helper()
	b := tree.NewBuilder(0, nil, tree.Options{SyntheticSpans: true})
	stmt := map[string]tree.NodeID{}
	m := b.Method(tree.MethodSpec{Name: "m", Body: b.Block(fn(b, stmt)...)})
	tr, err := b.Finish(b.Unit(b.Class(tree.ClassSpec{Name: "C", Members: []tree.NodeID{m}})))
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return routine{t: tr, m: m, stmt: stmt}
}

func ret(b *tree.Builder, status string) tree.NodeID {
	return b.Return(b.Call(b.Ident("ResponseEntity"), status))
}

func tryCatching(b *tree.Builder, catchStmts ...tree.NodeID) tree.NodeID {
	c := b.Catch(b.Param("e", b.TypeRef("Exception")), b.Block(catchStmts...))
	return b.Try(tree.TrySpec{
		Block:   b.Block(b.ExprStmt(b.Call(tree.NoNodeID, "work"))),
		Catches: []tree.NodeID{c},
	})
}

func TestExitPathSwapScenario(t *testing.T) {
	consistent := build(t, func(b *tree.Builder, s map[string]tree.NodeID) []tree.NodeID {
		s["fail"] = ret(b, "badRequest")
		s["ok"] = ret(b, "ok")
		return []tree.NodeID{tryCatching(b, s["fail"]), s["ok"]}
	})
	if v := Check(consistent.t, consistent.m, byName, noSuccessInCatch); len(v) != 0 {
		t.Fatalf("expected no violation, got %+v", v)
	}

	swapped := build(t, func(b *tree.Builder, s map[string]tree.NodeID) []tree.NodeID {
		s["ok"] = ret(b, "ok")
		s["fail"] = ret(b, "badRequest")
		return []tree.NodeID{tryCatching(b, s["ok"]), s["fail"]}
	})
	v := Check(swapped.t, swapped.m, byName, noSuccessInCatch)
	if len(v) != 1 {
		t.Fatalf("expected exactly one violation, got %+v", v)
	}
	if v[0].Exit.Stmt != swapped.stmt["ok"] || v[0].Reason != ReasonDisallowed || v[0].Exit.Context != ErrorHandling {
		t.Fatalf("violation not anchored at the catch return: %+v", v[0])
	}
}

func TestRequireBranching(t *testing.T) {
	policy := Policy{RequireBranching: true}

	unbranched := build(t, func(b *tree.Builder, s map[string]tree.NodeID) []tree.NodeID {
		s["ok"] = ret(b, "ok")
		s["fail"] = ret(b, "notFound")
		return []tree.NodeID{s["ok"], s["fail"]}
	})
	v := Check(unbranched.t, unbranched.m, byName, policy)
	if len(v) != 1 || v[0].Exit.Stmt != unbranched.stmt["fail"] || v[0].Reason != ReasonUnbranchedMix {
		t.Fatalf("expected the second exit flagged, got %+v", v)
	}

	branched := build(t, func(b *tree.Builder, s map[string]tree.NodeID) []tree.NodeID {
		guard := b.If(b.Ident("missing"), b.Block(b.ExprStmt(b.Call(tree.NoNodeID, "log"))), tree.NoNodeID)
		s["ok"] = ret(b, "ok")
		s["fail"] = ret(b, "notFound")
		return []tree.NodeID{guard, s["ok"], s["fail"]}
	})
	if v := Check(branched.t, branched.m, byName, policy); len(v) != 0 {
		t.Fatalf("a preceding conditional justifies the mix, got %+v", v)
	}

	same := build(t, func(b *tree.Builder, s map[string]tree.NodeID) []tree.NodeID {
		return []tree.NodeID{ret(b, "ok"), ret(b, "created"), ret(b, "somethingElse")}
	})
	if v := Check(same.t, same.m, byName, policy); len(v) != 0 {
		t.Fatalf("homogeneous exits are fine, got %+v", v)
	}
}

func TestCollectIsShallow(t *testing.T) {
	r := build(t, func(b *tree.Builder, s map[string]tree.NodeID) []tree.NodeID {
		nested := b.If(b.Ident("x"), b.Block(ret(b, "ok")), tree.NoNodeID)
		s["throw"] = b.Throw(b.NewClass(b.TypeRef("IllegalStateException")))
		s["catchRet"] = ret(b, "badRequest")
		inner := b.Try(tree.TrySpec{Block: b.Block(tryCatching(b, ret(b, "notFound")))})
		return []tree.NodeID{nested, tryCatching(b, b.ExprStmt(b.Call(tree.NoNodeID, "log")), s["catchRet"]), inner, s["throw"]}
	})
	exits := Collect(r.t, r.m)
	if len(exits) != 2 {
		t.Fatalf("expected catch return and throw only, got %+v", exits)
	}
	if exits[0].Stmt != r.stmt["catchRet"] || exits[0].Context != ErrorHandling || !exits[0].Catch.IsValid() {
		t.Fatalf("first exit: %+v", exits[0])
	}
	if exits[1].Stmt != r.stmt["throw"] || exits[1].Context != Normal {
		t.Fatalf("second exit: %+v", exits[1])
	}
	if Collect(r.t, r.t.Root()) != nil {
		t.Fatalf("a unit is not a routine")
	}
}
