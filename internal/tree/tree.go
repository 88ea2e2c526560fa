package tree

import (
	"warden/internal/source"
	"warden/internal/symbols"
)

// FactStatus tells whether a semantic fact is available for a node.
type FactStatus uint8

const (
	// FactResolved: the resolver attached the fact.
	FactResolved FactStatus = iota
	// FactUnresolved: the kind can carry the fact, but none was attached.
	FactUnresolved
	// FactNotApplicable: nodes of this kind never carry the fact.
	FactNotApplicable
)

func (s FactStatus) String() string {
	switch s {
	case FactResolved:
		return "resolved"
	case FactUnresolved:
		return "unresolved"
	case FactNotApplicable:
		return "not-applicable"
	}
	return "unknown"
}

// Tree is the read-only syntax tree of one unit. It owns all of its nodes;
// parents are plain indices. Only Builder creates trees.
//
// Slices returned by accessors are shared with the tree: READONLY.
type Tree struct {
	unit    source.FileID
	root    NodeID
	nodes   *Arena[Node]
	depth   []uint32 // indexed by NodeID
	p       payloads
	symbols *symbols.Table
}

// Unit returns the unit the tree was built for.
func (t *Tree) Unit() source.FileID { return t.unit }

// Root returns the root node (normally KindUnit).
func (t *Tree) Root() NodeID { return t.root }

// Len returns the number of nodes.
func (t *Tree) Len() int { return int(t.nodes.Len()) }

// Symbols returns the unit's symbol table (never nil).
func (t *Tree) Symbols() *symbols.Table { return t.symbols }

func (t *Tree) node(id NodeID) *Node {
	if t == nil {
		return nil
	}
	return t.nodes.Get(uint32(id))
}

// Valid reports whether id names a node of this tree.
func (t *Tree) Valid(id NodeID) bool { return t.node(id) != nil }

// Node returns a copy of the generic node data.
func (t *Tree) Node(id NodeID) (Node, bool) {
	n := t.node(id)
	if n == nil {
		return Node{}, false
	}
	return *n, true
}

// Kind returns the node kind, KindInvalid for unknown ids.
func (t *Tree) Kind(id NodeID) Kind {
	if n := t.node(id); n != nil {
		return n.Kind
	}
	return KindInvalid
}

// Is reports whether the node has one of the given kinds.
func (t *Tree) Is(id NodeID, kinds ...Kind) bool {
	k := t.Kind(id)
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func (t *Tree) Span(id NodeID) source.Span {
	if n := t.node(id); n != nil {
		return n.Span
	}
	return source.Span{File: t.unit}
}

// Parent returns the parent node; false at the root.
func (t *Tree) Parent(id NodeID) (NodeID, bool) {
	n := t.node(id)
	if n == nil || !n.Parent.IsValid() {
		return NoNodeID, false
	}
	return n.Parent, true
}

func (t *Tree) Children(id NodeID) []NodeID {
	if n := t.node(id); n != nil {
		return n.Children
	}
	return nil
}

// Depth returns the distance from the root (root = 0).
func (t *Tree) Depth(id NodeID) int {
	if !t.Valid(id) {
		return -1
	}
	return int(t.depth[id])
}

// IsAncestor reports whether anc is a strict ancestor of id.
func (t *Tree) IsAncestor(anc, id NodeID) bool {
	if !t.Valid(anc) || !t.Valid(id) {
		return false
	}
	for cur, ok := t.Parent(id); ok; cur, ok = t.Parent(cur) {
		if cur == anc {
			return true
		}
	}
	return false
}

// SymbolOf returns the symbol attached to id together with its availability.
func (t *Tree) SymbolOf(id NodeID) (symbols.SymbolID, FactStatus) {
	n := t.node(id)
	if n == nil || !n.Kind.CarriesSymbol() {
		return symbols.NoSymbolID, FactNotApplicable
	}
	if !n.Symbol.IsValid() {
		return symbols.NoSymbolID, FactUnresolved
	}
	return n.Symbol, FactResolved
}

// TypeOf returns the type attached to id together with its availability.
func (t *Tree) TypeOf(id NodeID) (symbols.TypeID, FactStatus) {
	n := t.node(id)
	if n == nil || !n.Kind.CarriesType() {
		return symbols.NoTypeID, FactNotApplicable
	}
	if !n.Type.IsValid() {
		return symbols.NoTypeID, FactUnresolved
	}
	return n.Type, FactResolved
}

// Symbol is a shortcut returning the resolved symbol data or nil.
func (t *Tree) Symbol(id NodeID) *symbols.Symbol {
	sid, st := t.SymbolOf(id)
	if st != FactResolved {
		return nil
	}
	return t.symbols.Symbol(sid)
}

// TypeQualifiedName returns the qualified name of the node's type or "".
func (t *Tree) TypeQualifiedName(id NodeID) string {
	tid, st := t.TypeOf(id)
	if st != FactResolved {
		return ""
	}
	return t.symbols.QualifiedTypeName(tid)
}

func payload[T any](t *Tree, id NodeID, a *Arena[T], kinds ...Kind) (T, bool) {
	var zero T
	n := t.node(id)
	if n == nil {
		return zero, false
	}
	for _, k := range kinds {
		if n.Kind == k {
			if p := a.Get(n.payload); p != nil {
				return *p, true
			}
			return zero, false
		}
	}
	return zero, false
}

func (t *Tree) Class(id NodeID) (ClassData, bool) {
	return payload(t, id, t.p.classes, KindClass)
}

func (t *Tree) Method(id NodeID) (MethodData, bool) {
	return payload(t, id, t.p.methods, KindMethod)
}

func (t *Tree) Variable(id NodeID) (VariableData, bool) {
	return payload(t, id, t.p.variables, KindVariable)
}

func (t *Tree) Lambda(id NodeID) (LambdaData, bool) {
	return payload(t, id, t.p.lambdas, KindLambda)
}

func (t *Tree) Block(id NodeID) (BlockData, bool) {
	return payload(t, id, t.p.blocks, KindBlock)
}

func (t *Tree) ExprStmt(id NodeID) (ExprStmtData, bool) {
	return payload(t, id, t.p.exprStmts, KindExprStmt)
}

func (t *Tree) Return(id NodeID) (ReturnData, bool) {
	return payload(t, id, t.p.returns, KindReturn)
}

func (t *Tree) Throw(id NodeID) (ThrowData, bool) {
	return payload(t, id, t.p.throws, KindThrow)
}

func (t *Tree) If(id NodeID) (IfData, bool) {
	return payload(t, id, t.p.ifs, KindIf)
}

// Loop returns the payload of any loop statement.
func (t *Tree) Loop(id NodeID) (LoopData, bool) {
	return payload(t, id, t.p.loops, KindFor, KindForEach, KindWhile)
}

func (t *Tree) Try(id NodeID) (TryData, bool) {
	return payload(t, id, t.p.tries, KindTry)
}

func (t *Tree) Catch(id NodeID) (CatchData, bool) {
	return payload(t, id, t.p.catches, KindCatch)
}

func (t *Tree) Call(id NodeID) (CallData, bool) {
	return payload(t, id, t.p.calls, KindCall)
}

func (t *Tree) NewClass(id NodeID) (NewClassData, bool) {
	return payload(t, id, t.p.newClasses, KindNewClass)
}

func (t *Tree) Assign(id NodeID) (AssignData, bool) {
	return payload(t, id, t.p.assigns, KindAssign)
}

func (t *Tree) Ident(id NodeID) (IdentData, bool) {
	return payload(t, id, t.p.idents, KindIdent)
}

func (t *Tree) Select(id NodeID) (SelectData, bool) {
	return payload(t, id, t.p.selects, KindSelect)
}

func (t *Tree) Literal(id NodeID) (LiteralData, bool) {
	return payload(t, id, t.p.literals, KindLiteral)
}

func (t *Tree) TypeRef(id NodeID) (TypeRefData, bool) {
	return payload(t, id, t.p.typeRefs, KindTypeRef)
}

func (t *Tree) Annotation(id NodeID) (AnnotationData, bool) {
	return payload(t, id, t.p.annotations, KindAnnotation)
}

// Name returns the declared or referenced simple name of a node, "" when the
// kind has none.
func (t *Tree) Name(id NodeID) string {
	switch t.Kind(id) {
	case KindClass:
		d, _ := t.Class(id)
		return d.Name
	case KindMethod:
		d, _ := t.Method(id)
		return d.Name
	case KindVariable:
		d, _ := t.Variable(id)
		return d.Name
	case KindCall:
		d, _ := t.Call(id)
		return d.Name
	case KindIdent:
		d, _ := t.Ident(id)
		return d.Name
	case KindSelect:
		d, _ := t.Select(id)
		return d.Name
	case KindTypeRef:
		d, _ := t.TypeRef(id)
		return d.Name
	case KindAnnotation:
		d, _ := t.Annotation(id)
		return d.Name
	case KindNewClass:
		d, _ := t.NewClass(id)
		return t.Name(d.TypeRef)
	}
	return ""
}
