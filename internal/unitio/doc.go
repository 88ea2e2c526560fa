// Package unitio reads and writes unit documents: the resolved syntax tree
// of one source unit as produced by a host resolver, together with its
// symbol and type tables.
//
// Two encodings carry the same UnitDoc: JSON (*.wunit.json) for hand-written
// fixtures and resolver debugging, msgpack (*.wunit) for bulk scans.
// Symbol and type references inside a document are 1-based indices into its
// own tables; 0 means "not resolved".
package unitio

// UnitDoc is one unit document.
type UnitDoc struct {
	Path    string      `json:"path" msgpack:"path"`
	Source  string      `json:"source,omitempty" msgpack:"source,omitempty"`
	Types   []TypeDoc   `json:"types,omitempty" msgpack:"types,omitempty"`
	Symbols []SymbolDoc `json:"symbols,omitempty" msgpack:"symbols,omitempty"`
	Root    *NodeDoc    `json:"root" msgpack:"root"`
}

type TypeDoc struct {
	Name          string `json:"name" msgpack:"name"`
	QualifiedName string `json:"qname,omitempty" msgpack:"qname,omitempty"`
	Supertypes    []int  `json:"supertypes,omitempty" msgpack:"supertypes,omitempty"`
}

type SymbolDoc struct {
	Kind          string          `json:"kind" msgpack:"kind"`
	Name          string          `json:"name" msgpack:"name"`
	QualifiedName string          `json:"qname,omitempty" msgpack:"qname,omitempty"`
	Annotations   []AnnotationDoc `json:"annotations,omitempty" msgpack:"annotations,omitempty"`
	Type          int             `json:"type,omitempty" msgpack:"type,omitempty"`
	Owner         int             `json:"owner,omitempty" msgpack:"owner,omitempty"`
}

type AnnotationDoc struct {
	QualifiedName string            `json:"qname" msgpack:"qname"`
	Args          map[string]string `json:"args,omitempty" msgpack:"args,omitempty"`
}

// NodeDoc is one node. Which child slots are meaningful depends on Kind;
// the others must be empty.
type NodeDoc struct {
	Kind   string `json:"kind" msgpack:"kind"`
	Start  uint32 `json:"start,omitempty" msgpack:"start,omitempty"`
	End    uint32 `json:"end,omitempty" msgpack:"end,omitempty"`
	Name   string `json:"name,omitempty" msgpack:"name,omitempty"`
	Text   string `json:"text,omitempty" msgpack:"text,omitempty"`
	Symbol int    `json:"symbol,omitempty" msgpack:"symbol,omitempty"`
	Type   int    `json:"type,omitempty" msgpack:"type,omitempty"`
	Param  bool   `json:"param,omitempty" msgpack:"param,omitempty"`

	// declarations
	Annotations []*NodeDoc `json:"annotations,omitempty" msgpack:"annotations,omitempty"`
	Supers      []*NodeDoc `json:"supers,omitempty" msgpack:"supers,omitempty"`
	Members     []*NodeDoc `json:"members,omitempty" msgpack:"members,omitempty"`
	ReturnType  *NodeDoc   `json:"return_type,omitempty" msgpack:"return_type,omitempty"`
	Params      []*NodeDoc `json:"params,omitempty" msgpack:"params,omitempty"`
	Throws      []*NodeDoc `json:"throws,omitempty" msgpack:"throws,omitempty"`
	Body        *NodeDoc   `json:"body,omitempty" msgpack:"body,omitempty"`
	TypeRef     *NodeDoc   `json:"type_ref,omitempty" msgpack:"type_ref,omitempty"`
	Init        *NodeDoc   `json:"init,omitempty" msgpack:"init,omitempty"`

	// statements
	Stmts     []*NodeDoc `json:"stmts,omitempty" msgpack:"stmts,omitempty"`
	Expr      *NodeDoc   `json:"expr,omitempty" msgpack:"expr,omitempty"`
	Value     *NodeDoc   `json:"value,omitempty" msgpack:"value,omitempty"`
	Cond      *NodeDoc   `json:"cond,omitempty" msgpack:"cond,omitempty"`
	Then      *NodeDoc   `json:"then,omitempty" msgpack:"then,omitempty"`
	Else      *NodeDoc   `json:"else,omitempty" msgpack:"else,omitempty"`
	ForInit   []*NodeDoc `json:"for_init,omitempty" msgpack:"for_init,omitempty"`
	Update    []*NodeDoc `json:"update,omitempty" msgpack:"update,omitempty"`
	Var       *NodeDoc   `json:"var,omitempty" msgpack:"var,omitempty"` // for-each variable, catch parameter
	Iterable  *NodeDoc   `json:"iterable,omitempty" msgpack:"iterable,omitempty"`
	Resources []*NodeDoc `json:"resources,omitempty" msgpack:"resources,omitempty"`
	Block     *NodeDoc   `json:"block,omitempty" msgpack:"block,omitempty"`
	Catches   []*NodeDoc `json:"catches,omitempty" msgpack:"catches,omitempty"`
	Finally   *NodeDoc   `json:"finally,omitempty" msgpack:"finally,omitempty"`

	// expressions
	Receiver *NodeDoc   `json:"receiver,omitempty" msgpack:"receiver,omitempty"`
	Args     []*NodeDoc `json:"args,omitempty" msgpack:"args,omitempty"`
	Target   *NodeDoc   `json:"target,omitempty" msgpack:"target,omitempty"`
}

// HasSpans reports whether any node of the document carries a position.
func (d *UnitDoc) HasSpans() bool {
	found := false
	walkDoc(d.Root, func(n *NodeDoc) bool {
		if n.End > 0 {
			found = true
		}
		return !found
	})
	return found
}

// Count returns the number of nodes in the document.
func (d *UnitDoc) Count() int {
	n := 0
	walkDoc(d.Root, func(*NodeDoc) bool { n++; return true })
	return n
}

// walkDoc visits n and its descendants in pre-order until fn returns false.
func walkDoc(n *NodeDoc, fn func(*NodeDoc) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.children() {
		if !walkDoc(c, fn) {
			return false
		}
	}
	return true
}

// children lists every non-nil child slot in source order.
func (n *NodeDoc) children() []*NodeDoc {
	var out []*NodeDoc
	add := func(ns ...*NodeDoc) {
		for _, c := range ns {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	add(n.Annotations...)
	add(n.ReturnType, n.TypeRef)
	add(n.Supers...)
	add(n.Params...)
	add(n.Throws...)
	add(n.Var, n.Iterable)
	add(n.ForInit...)
	add(n.Cond)
	add(n.Update...)
	add(n.Resources...)
	add(n.Block)
	add(n.Catches...)
	add(n.Finally, n.Receiver, n.Target)
	add(n.Args...)
	add(n.Init, n.Expr, n.Value, n.Then, n.Else, n.Body)
	add(n.Members...)
	add(n.Stmts...)
	return out
}
