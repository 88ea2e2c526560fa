package tree

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"warden/internal/source"
	"warden/internal/symbols"
)

var (
	// ErrAdopted: a node was given to two parents.
	ErrAdopted = errors.New("node already has a parent")
	// ErrFactNotApplicable: a symbol or type was attached to a kind that cannot carry it.
	ErrFactNotApplicable = errors.New("fact not applicable to node kind")
	// ErrUnreachable: a created node is not reachable from the root.
	ErrUnreachable = errors.New("node not reachable from root")
	// ErrFinished: the builder was used after Finish.
	ErrFinished = errors.New("builder already finished")
)

type Hints struct{ Nodes uint }

type Options struct {
	Hints Hints
	// SyntheticSpans replaces every span with pre-order ordinals so that
	// parents cover children and siblings are ordered. Used by tests and by
	// hosts that do not track offsets.
	SyntheticSpans bool
}

// Builder assembles a Tree bottom-up: constructors take already built
// children and adopt them. The first error is sticky and returned by Finish.
type Builder struct {
	unit     source.FileID
	nodes    *Arena[Node]
	p        payloads
	symbols  *symbols.Table
	opts     Options
	err      error
	finished bool
}

// NewBuilder starts a tree for unit. syms may be nil for trees without facts.
func NewBuilder(unit source.FileID, syms *symbols.Table, opts Options) *Builder {
	if opts.Hints.Nodes == 0 {
		opts.Hints.Nodes = 1 << 8
	}
	if syms == nil {
		syms = symbols.NewTable(symbols.Hints{})
	}
	return &Builder{
		unit:    unit,
		nodes:   NewArena[Node](opts.Hints.Nodes),
		p:       newPayloads(opts.Hints.Nodes),
		symbols: syms,
		opts:    opts,
	}
}

// Symbols returns the table facts are bound against.
func (b *Builder) Symbols() *symbols.Table { return b.symbols }

// Err returns the first construction error.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) newNode(kind Kind, payload uint32, children []NodeID) NodeID {
	if b.finished {
		b.fail(ErrFinished)
		return NoNodeID
	}
	kids := make([]NodeID, 0, len(children))
	for _, c := range children {
		if c.IsValid() {
			kids = append(kids, c)
		}
	}
	id := NodeID(b.nodes.Allocate(Node{
		Kind:     kind,
		Span:     source.Span{File: b.unit},
		Children: kids,
		payload:  payload,
	}))
	for _, c := range kids {
		child := b.nodes.Get(uint32(c))
		switch {
		case child == nil:
			b.fail(fmt.Errorf("%s node %d: unknown child %d", kind, id, c))
		case child.Parent.IsValid():
			b.fail(fmt.Errorf("%s node %d: child %d (%s): %w", kind, id, c, child.Kind, ErrAdopted))
		default:
			child.Parent = id
		}
	}
	return id
}

func (b *Builder) requireStatements(owner Kind, stmts []NodeID) {
	for _, s := range stmts {
		if n := b.nodes.Get(uint32(s)); n != nil && !n.Kind.IsStatement() {
			b.fail(fmt.Errorf("%s: %s node %d is not a statement", owner, n.Kind, s))
		}
	}
}

func join(parts ...[]NodeID) []NodeID {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]NodeID, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func one(ids ...NodeID) []NodeID { return ids }

// SetSpan records the source range of id.
func (b *Builder) SetSpan(id NodeID, sp source.Span) NodeID {
	if n := b.nodes.Get(uint32(id)); n != nil {
		sp.File = b.unit
		n.Span = sp
	}
	return id
}

// Bind attaches a resolved symbol to id.
func (b *Builder) Bind(id NodeID, sym symbols.SymbolID) NodeID {
	n := b.nodes.Get(uint32(id))
	switch {
	case n == nil:
		b.fail(fmt.Errorf("bind: unknown node %d", id))
	case !n.Kind.CarriesSymbol():
		b.fail(fmt.Errorf("bind symbol to %s node %d: %w", n.Kind, id, ErrFactNotApplicable))
	case b.symbols.Symbol(sym) == nil:
		b.fail(fmt.Errorf("bind: unknown symbol %d on %s node %d", sym, n.Kind, id))
	default:
		n.Symbol = sym
	}
	return id
}

// Typed attaches a resolved type to id.
func (b *Builder) Typed(id NodeID, typ symbols.TypeID) NodeID {
	n := b.nodes.Get(uint32(id))
	switch {
	case n == nil:
		b.fail(fmt.Errorf("type: unknown node %d", id))
	case !n.Kind.CarriesType():
		b.fail(fmt.Errorf("attach type to %s node %d: %w", n.Kind, id, ErrFactNotApplicable))
	case b.symbols.Type(typ) == nil:
		b.fail(fmt.Errorf("type: unknown type %d on %s node %d", typ, n.Kind, id))
	default:
		n.Type = typ
	}
	return id
}

func (b *Builder) Unit(members ...NodeID) NodeID {
	return b.newNode(KindUnit, 0, members)
}

type ClassSpec struct {
	Name        string
	Annotations []NodeID
	Supers      []NodeID
	Members     []NodeID
}

func (b *Builder) Class(spec ClassSpec) NodeID {
	p := b.p.classes.Allocate(ClassData(spec))
	return b.newNode(KindClass, p, join(spec.Annotations, spec.Supers, spec.Members))
}

type MethodSpec struct {
	Name        string
	Annotations []NodeID
	ReturnType  NodeID
	Params      []NodeID
	Throws      []NodeID
	Body        NodeID
}

func (b *Builder) Method(spec MethodSpec) NodeID {
	if spec.Body.IsValid() {
		if n := b.nodes.Get(uint32(spec.Body)); n != nil && n.Kind != KindBlock {
			b.fail(fmt.Errorf("method %s: body must be a block, got %s", spec.Name, n.Kind))
		}
	}
	p := b.p.methods.Allocate(MethodData(spec))
	return b.newNode(KindMethod, p, join(spec.Annotations, one(spec.ReturnType), spec.Params, spec.Throws, one(spec.Body)))
}

type VariableSpec struct {
	Name        string
	Annotations []NodeID
	TypeRef     NodeID
	Init        NodeID
	Param       bool
}

func (b *Builder) Variable(spec VariableSpec) NodeID {
	p := b.p.variables.Allocate(VariableData(spec))
	return b.newNode(KindVariable, p, join(spec.Annotations, one(spec.TypeRef, spec.Init)))
}

// Param is a shortcut for a method or catch parameter.
func (b *Builder) Param(name string, typeRef NodeID, annotations ...NodeID) NodeID {
	return b.Variable(VariableSpec{Name: name, TypeRef: typeRef, Annotations: annotations, Param: true})
}

// Local is a shortcut for a local variable declaration.
func (b *Builder) Local(name string, typeRef, init NodeID) NodeID {
	return b.Variable(VariableSpec{Name: name, TypeRef: typeRef, Init: init})
}

func (b *Builder) Lambda(params []NodeID, body NodeID) NodeID {
	p := b.p.lambdas.Allocate(LambdaData{Params: params, Body: body})
	return b.newNode(KindLambda, p, join(params, one(body)))
}

func (b *Builder) Block(stmts ...NodeID) NodeID {
	b.requireStatements(KindBlock, stmts)
	p := b.p.blocks.Allocate(BlockData{Stmts: stmts})
	return b.newNode(KindBlock, p, stmts)
}

func (b *Builder) ExprStmt(expr NodeID) NodeID {
	p := b.p.exprStmts.Allocate(ExprStmtData{Expr: expr})
	return b.newNode(KindExprStmt, p, one(expr))
}

func (b *Builder) Return(value NodeID) NodeID {
	p := b.p.returns.Allocate(ReturnData{Value: value})
	return b.newNode(KindReturn, p, one(value))
}

func (b *Builder) Throw(value NodeID) NodeID {
	p := b.p.throws.Allocate(ThrowData{Value: value})
	return b.newNode(KindThrow, p, one(value))
}

func (b *Builder) If(cond, then, els NodeID) NodeID {
	p := b.p.ifs.Allocate(IfData{Cond: cond, Then: then, Else: els})
	return b.newNode(KindIf, p, one(cond, then, els))
}

func (b *Builder) For(init []NodeID, cond NodeID, update []NodeID, body NodeID) NodeID {
	p := b.p.loops.Allocate(LoopData{Init: init, Cond: cond, Update: update, Body: body})
	return b.newNode(KindFor, p, join(init, one(cond), update, one(body)))
}

func (b *Builder) ForEach(v, iterable, body NodeID) NodeID {
	p := b.p.loops.Allocate(LoopData{Var: v, Iterable: iterable, Body: body})
	return b.newNode(KindForEach, p, one(v, iterable, body))
}

func (b *Builder) While(cond, body NodeID) NodeID {
	p := b.p.loops.Allocate(LoopData{Cond: cond, Body: body})
	return b.newNode(KindWhile, p, one(cond, body))
}

type TrySpec struct {
	Resources []NodeID
	Block     NodeID
	Catches   []NodeID
	Finally   NodeID
}

func (b *Builder) Try(spec TrySpec) NodeID {
	p := b.p.tries.Allocate(TryData(spec))
	return b.newNode(KindTry, p, join(spec.Resources, one(spec.Block), spec.Catches, one(spec.Finally)))
}

func (b *Builder) Catch(param, block NodeID) NodeID {
	p := b.p.catches.Allocate(CatchData{Param: param, Block: block})
	return b.newNode(KindCatch, p, one(param, block))
}

func (b *Builder) Call(receiver NodeID, name string, args ...NodeID) NodeID {
	p := b.p.calls.Allocate(CallData{Receiver: receiver, Name: name, Args: args})
	return b.newNode(KindCall, p, join(one(receiver), args))
}

func (b *Builder) NewClass(typeRef NodeID, args ...NodeID) NodeID {
	p := b.p.newClasses.Allocate(NewClassData{TypeRef: typeRef, Args: args})
	return b.newNode(KindNewClass, p, join(one(typeRef), args))
}

func (b *Builder) Assign(target, value NodeID) NodeID {
	p := b.p.assigns.Allocate(AssignData{Target: target, Value: value})
	return b.newNode(KindAssign, p, one(target, value))
}

func (b *Builder) Ident(name string) NodeID {
	p := b.p.idents.Allocate(IdentData{Name: name})
	return b.newNode(KindIdent, p, nil)
}

func (b *Builder) Select(target NodeID, name string) NodeID {
	p := b.p.selects.Allocate(SelectData{Target: target, Name: name})
	return b.newNode(KindSelect, p, one(target))
}

func (b *Builder) Literal(text string) NodeID {
	p := b.p.literals.Allocate(LiteralData{Text: text})
	return b.newNode(KindLiteral, p, nil)
}

func (b *Builder) TypeRef(name string) NodeID {
	p := b.p.typeRefs.Allocate(TypeRefData{Name: name})
	return b.newNode(KindTypeRef, p, nil)
}

func (b *Builder) Annotation(name string, args ...NodeID) NodeID {
	p := b.p.annotations.Allocate(AnnotationData{Name: name, Args: args})
	return b.newNode(KindAnnotation, p, args)
}

// Finish validates the node graph below root and freezes it into a Tree.
// Every created node must be reachable from root through exactly one parent.
func (b *Builder) Finish(root NodeID) (*Tree, error) {
	if b.finished {
		return nil, ErrFinished
	}
	if b.err != nil {
		return nil, b.err
	}
	rn := b.nodes.Get(uint32(root))
	if rn == nil {
		return nil, fmt.Errorf("finish: unknown root %d", root)
	}
	if rn.Parent.IsValid() {
		return nil, fmt.Errorf("finish: root %d (%s): %w", root, rn.Kind, ErrAdopted)
	}
	total := b.nodes.Len()
	depth := make([]uint32, total+1)
	order := make([]NodeID, 0, total)

	type frame struct {
		id    NodeID
		depth uint32
	}
	stack := []frame{{root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		depth[f.id] = f.depth
		order = append(order, f.id)
		kids := b.nodes.Get(uint32(f.id)).Children
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{kids[i], f.depth + 1})
		}
	}
	reached, err := safecast.Conv[uint32](len(order))
	if err != nil {
		return nil, fmt.Errorf("finish: %w", err)
	}
	if reached != total {
		for i := uint32(1); i <= total; i++ {
			id := NodeID(i)
			if id != root && !b.nodes.Get(i).Parent.IsValid() {
				return nil, fmt.Errorf("finish: %s node %d: %w", b.nodes.Get(i).Kind, id, ErrUnreachable)
			}
		}
		return nil, fmt.Errorf("finish: %d of %d nodes reachable: %w", reached, total, ErrUnreachable)
	}
	if b.opts.SyntheticSpans {
		b.synthesizeSpans(order)
	}

	b.finished = true
	b.symbols.Freeze()
	return &Tree{
		unit:    b.unit,
		root:    root,
		nodes:   b.nodes,
		depth:   depth,
		p:       b.p,
		symbols: b.symbols,
	}, nil
}

// synthesizeSpans assigns [preorder, preorder+subtree) to every node.
func (b *Builder) synthesizeSpans(order []NodeID) {
	size := make([]uint32, len(order)+1)
	for i := len(order) - 1; i >= 0; i-- {
		n := b.nodes.Get(uint32(order[i]))
		size[order[i]]++
		for _, c := range n.Children {
			size[order[i]] += size[c]
		}
	}
	for pos, id := range order {
		start := uint32(pos) // #nosec G115 -- len(order) fits, checked in Finish
		b.nodes.Get(uint32(id)).Span = source.Span{File: b.unit, Start: start, End: start + size[id]}
	}
}
