package unitio

import (
	"errors"
	"fmt"

	"warden/internal/source"
	"warden/internal/symbols"
	"warden/internal/tree"
)

// ErrUnknownKind is returned for nodes whose kind name is not recognized.
var ErrUnknownKind = errors.New("unknown node kind")

// Build registers the document's source in fs and turns the document into a
// frozen tree bound to its own symbol table. Documents without positions get
// synthetic spans so that source order is still observable.
func (d *UnitDoc) Build(fs *source.FileSet) (*tree.Tree, error) {
	content, flags := source.NormalizeText([]byte(d.Source))
	unit := fs.Add(d.Path, content, flags)

	tab := symbols.NewTable(symbols.Hints{
		Symbols: uint(len(d.Symbols)),
		Types:   uint(len(d.Types)),
	})
	b := &builder{doc: d, tab: tab}
	if err := b.tables(); err != nil {
		return nil, fmt.Errorf("%s: %w", d.Path, err)
	}
	b.b = tree.NewBuilder(unit, tab, tree.Options{
		Hints:          tree.Hints{Nodes: uint(d.Count())},
		SyntheticSpans: !d.HasSpans(),
	})
	b.spans = !d.HasSpans()
	root, err := b.node(d.Root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Path, err)
	}
	t, err := b.b.Finish(root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Path, err)
	}
	return t, nil
}

type builder struct {
	doc   *UnitDoc
	tab   *symbols.Table
	b     *tree.Builder
	types []symbols.TypeID
	syms  []symbols.SymbolID
	spans bool // synthetic
	seq   int
}

func (b *builder) typeRef(i int) (symbols.TypeID, error) {
	if i == 0 {
		return symbols.NoTypeID, nil
	}
	if i < 0 || i > len(b.types) {
		return symbols.NoTypeID, fmt.Errorf("type reference %d out of range [1, %d]", i, len(b.types))
	}
	return b.types[i-1], nil
}

func (b *builder) symRef(i int) (symbols.SymbolID, error) {
	if i == 0 {
		return symbols.NoSymbolID, nil
	}
	if i < 0 || i > len(b.syms) {
		return symbols.NoSymbolID, fmt.Errorf("symbol reference %d out of range [1, %d]", i, len(b.syms))
	}
	return b.syms[i-1], nil
}

// tables fills the symbol table; supertypes may point forward, so types
// are created first and linked afterwards.
func (b *builder) tables() error {
	b.types = make([]symbols.TypeID, len(b.doc.Types))
	for i, td := range b.doc.Types {
		id, err := b.tab.NewType(td.Name, td.QualifiedName)
		if err != nil {
			return fmt.Errorf("type %d: %w", i+1, err)
		}
		b.types[i] = id
	}
	for i, td := range b.doc.Types {
		for _, s := range td.Supertypes {
			super, err := b.typeRef(s)
			if err != nil {
				return fmt.Errorf("type %d: %w", i+1, err)
			}
			if err := b.tab.AddSupertype(b.types[i], super); err != nil {
				return fmt.Errorf("type %d: %w", i+1, err)
			}
		}
	}
	b.syms = make([]symbols.SymbolID, len(b.doc.Symbols))
	for i, sd := range b.doc.Symbols {
		kind, ok := symbols.ParseSymbolKind(sd.Kind)
		if !ok {
			return fmt.Errorf("symbol %d: unknown kind %q", i+1, sd.Kind)
		}
		declared, err := b.typeRef(sd.Type)
		if err != nil {
			return fmt.Errorf("symbol %d: %w", i+1, err)
		}
		owner, err := b.typeRef(sd.Owner)
		if err != nil {
			return fmt.Errorf("symbol %d: %w", i+1, err)
		}
		sym := symbols.Symbol{
			Kind:          kind,
			Name:          sd.Name,
			QualifiedName: sd.QualifiedName,
			DeclaredType:  declared,
			Owner:         owner,
		}
		for _, a := range sd.Annotations {
			sym.Annotations = append(sym.Annotations, symbols.Annotation{QualifiedName: a.QualifiedName, Args: a.Args})
		}
		id, err := b.tab.NewSymbol(sym)
		if err != nil {
			return fmt.Errorf("symbol %d: %w", i+1, err)
		}
		b.syms[i] = id
	}
	return nil
}

func (b *builder) list(ns []*NodeDoc) ([]tree.NodeID, error) {
	out := make([]tree.NodeID, 0, len(ns))
	for _, n := range ns {
		id, err := b.node(n)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// node builds n and its subtree; a nil n is an absent optional child.
func (b *builder) node(n *NodeDoc) (tree.NodeID, error) {
	if n == nil {
		return tree.NoNodeID, nil
	}
	b.seq++
	at := b.seq
	kind, ok := tree.ParseKind(n.Kind)
	if !ok {
		return tree.NoNodeID, fmt.Errorf("node %d: %w %q", at, ErrUnknownKind, n.Kind)
	}
	id, err := b.construct(kind, n)
	if err != nil {
		return tree.NoNodeID, err
	}
	if err := b.b.Err(); err != nil {
		return tree.NoNodeID, fmt.Errorf("node %d (%s): %w", at, kind, err)
	}
	if !b.spans {
		b.b.SetSpan(id, source.Span{Start: n.Start, End: n.End})
	}
	sym, err := b.symRef(n.Symbol)
	if err != nil {
		return tree.NoNodeID, fmt.Errorf("node %d (%s): %w", at, kind, err)
	}
	if sym.IsValid() {
		b.b.Bind(id, sym)
	}
	typ, err := b.typeRef(n.Type)
	if err != nil {
		return tree.NoNodeID, fmt.Errorf("node %d (%s): %w", at, kind, err)
	}
	if typ.IsValid() {
		b.b.Typed(id, typ)
	}
	if err := b.b.Err(); err != nil {
		return tree.NoNodeID, fmt.Errorf("node %d (%s): %w", at, kind, err)
	}
	return id, nil
}

func (b *builder) construct(kind tree.Kind, n *NodeDoc) (tree.NodeID, error) {
	tb := b.b
	var (
		one  = b.node
		many = b.list
	)
	switch kind {
	case tree.KindUnit:
		members, err := many(n.Members)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.Unit(members...), nil

	case tree.KindClass:
		anns, err := many(n.Annotations)
		if err != nil {
			return tree.NoNodeID, err
		}
		supers, err := many(n.Supers)
		if err != nil {
			return tree.NoNodeID, err
		}
		members, err := many(n.Members)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.Class(tree.ClassSpec{Name: n.Name, Annotations: anns, Supers: supers, Members: members}), nil

	case tree.KindMethod:
		anns, err := many(n.Annotations)
		if err != nil {
			return tree.NoNodeID, err
		}
		ret, err := one(n.ReturnType)
		if err != nil {
			return tree.NoNodeID, err
		}
		params, err := many(n.Params)
		if err != nil {
			return tree.NoNodeID, err
		}
		throws, err := many(n.Throws)
		if err != nil {
			return tree.NoNodeID, err
		}
		body, err := one(n.Body)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.Method(tree.MethodSpec{
			Name: n.Name, Annotations: anns, ReturnType: ret,
			Params: params, Throws: throws, Body: body,
		}), nil

	case tree.KindVariable:
		anns, err := many(n.Annotations)
		if err != nil {
			return tree.NoNodeID, err
		}
		typ, err := one(n.TypeRef)
		if err != nil {
			return tree.NoNodeID, err
		}
		init, err := one(n.Init)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.Variable(tree.VariableSpec{Name: n.Name, Annotations: anns, TypeRef: typ, Init: init, Param: n.Param}), nil

	case tree.KindLambda:
		params, err := many(n.Params)
		if err != nil {
			return tree.NoNodeID, err
		}
		body, err := one(n.Body)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.Lambda(params, body), nil

	case tree.KindBlock:
		stmts, err := many(n.Stmts)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.Block(stmts...), nil

	case tree.KindExprStmt:
		e, err := one(n.Expr)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.ExprStmt(e), nil

	case tree.KindReturn, tree.KindThrow:
		v, err := one(n.Value)
		if err != nil {
			return tree.NoNodeID, err
		}
		if kind == tree.KindThrow {
			return tb.Throw(v), nil
		}
		return tb.Return(v), nil

	case tree.KindIf:
		cond, err := one(n.Cond)
		if err != nil {
			return tree.NoNodeID, err
		}
		then, err := one(n.Then)
		if err != nil {
			return tree.NoNodeID, err
		}
		els, err := one(n.Else)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.If(cond, then, els), nil

	case tree.KindFor:
		init, err := many(n.ForInit)
		if err != nil {
			return tree.NoNodeID, err
		}
		cond, err := one(n.Cond)
		if err != nil {
			return tree.NoNodeID, err
		}
		update, err := many(n.Update)
		if err != nil {
			return tree.NoNodeID, err
		}
		body, err := one(n.Body)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.For(init, cond, update, body), nil

	case tree.KindForEach:
		v, err := one(n.Var)
		if err != nil {
			return tree.NoNodeID, err
		}
		it, err := one(n.Iterable)
		if err != nil {
			return tree.NoNodeID, err
		}
		body, err := one(n.Body)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.ForEach(v, it, body), nil

	case tree.KindWhile:
		cond, err := one(n.Cond)
		if err != nil {
			return tree.NoNodeID, err
		}
		body, err := one(n.Body)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.While(cond, body), nil

	case tree.KindTry:
		res, err := many(n.Resources)
		if err != nil {
			return tree.NoNodeID, err
		}
		block, err := one(n.Block)
		if err != nil {
			return tree.NoNodeID, err
		}
		catches, err := many(n.Catches)
		if err != nil {
			return tree.NoNodeID, err
		}
		fin, err := one(n.Finally)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.Try(tree.TrySpec{Resources: res, Block: block, Catches: catches, Finally: fin}), nil

	case tree.KindCatch:
		param, err := one(n.Var)
		if err != nil {
			return tree.NoNodeID, err
		}
		block, err := one(n.Block)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.Catch(param, block), nil

	case tree.KindCall:
		recv, err := one(n.Receiver)
		if err != nil {
			return tree.NoNodeID, err
		}
		args, err := many(n.Args)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.Call(recv, n.Name, args...), nil

	case tree.KindNewClass:
		typ, err := one(n.TypeRef)
		if err != nil {
			return tree.NoNodeID, err
		}
		args, err := many(n.Args)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.NewClass(typ, args...), nil

	case tree.KindAssign:
		target, err := one(n.Target)
		if err != nil {
			return tree.NoNodeID, err
		}
		v, err := one(n.Value)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.Assign(target, v), nil

	case tree.KindIdent:
		return tb.Ident(n.Name), nil
	case tree.KindSelect:
		target, err := one(n.Target)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.Select(target, n.Name), nil
	case tree.KindLiteral:
		return tb.Literal(n.Text), nil
	case tree.KindTypeRef:
		return tb.TypeRef(n.Name), nil
	case tree.KindAnnotation:
		args, err := many(n.Args)
		if err != nil {
			return tree.NoNodeID, err
		}
		return tb.Annotation(n.Name, args...), nil
	}
	return tree.NoNodeID, fmt.Errorf("%w %q", ErrUnknownKind, n.Kind)
}
