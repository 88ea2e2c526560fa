package tree

import (
	"warden/internal/source"
	"warden/internal/symbols"
)

// Node is the kind-independent part of every tree element. Kind-specific
// fields live in the payload arenas and are reached through typed accessors.
type Node struct {
	Kind     Kind
	Span     source.Span
	Parent   NodeID
	Children []NodeID // source order
	Symbol   symbols.SymbolID
	Type     symbols.TypeID
	payload  uint32
}

type ClassData struct {
	Name        string
	Annotations []NodeID
	Supers      []NodeID // type refs
	Members     []NodeID
}

type MethodData struct {
	Name        string
	Annotations []NodeID
	ReturnType  NodeID
	Params      []NodeID // variables
	Throws      []NodeID // type refs
	Body        NodeID   // block; NoNodeID for abstract methods
}

type VariableData struct {
	Name        string
	Annotations []NodeID
	TypeRef     NodeID
	Init        NodeID
	Param       bool
}

type LambdaData struct {
	Params []NodeID
	Body   NodeID // block or expression
}

type BlockData struct {
	Stmts []NodeID
}

type ExprStmtData struct {
	Expr NodeID
}

type ReturnData struct {
	Value NodeID // NoNodeID for a bare return
}

type ThrowData struct {
	Value NodeID
}

type IfData struct {
	Cond NodeID
	Then NodeID
	Else NodeID
}

// LoopData backs KindFor, KindForEach and KindWhile. Fields that a loop form
// does not have stay empty.
type LoopData struct {
	Init     []NodeID // for
	Cond     NodeID   // for, while
	Update   []NodeID // for
	Var      NodeID   // for-each
	Iterable NodeID   // for-each
	Body     NodeID
}

type TryData struct {
	Resources []NodeID // variables (or idents for effectively-final resources)
	Block     NodeID
	Catches   []NodeID
	Finally   NodeID
}

type CatchData struct {
	Param NodeID // variable
	Block NodeID
}

type CallData struct {
	Receiver NodeID // NoNodeID for unqualified calls
	Name     string
	Args     []NodeID
}

type NewClassData struct {
	TypeRef NodeID
	Args    []NodeID
}

type AssignData struct {
	Target NodeID
	Value  NodeID
}

type IdentData struct {
	Name string
}

type SelectData struct {
	Target NodeID
	Name   string
}

type LiteralData struct {
	Text string
}

type TypeRefData struct {
	Name string
}

type AnnotationData struct {
	Name string
	Args []NodeID
}

// payloads groups the per-kind arenas of one tree.
type payloads struct {
	classes     *Arena[ClassData]
	methods     *Arena[MethodData]
	variables   *Arena[VariableData]
	lambdas     *Arena[LambdaData]
	blocks      *Arena[BlockData]
	exprStmts   *Arena[ExprStmtData]
	returns     *Arena[ReturnData]
	throws      *Arena[ThrowData]
	ifs         *Arena[IfData]
	loops       *Arena[LoopData]
	tries       *Arena[TryData]
	catches     *Arena[CatchData]
	calls       *Arena[CallData]
	newClasses  *Arena[NewClassData]
	assigns     *Arena[AssignData]
	idents      *Arena[IdentData]
	selects     *Arena[SelectData]
	literals    *Arena[LiteralData]
	typeRefs    *Arena[TypeRefData]
	annotations *Arena[AnnotationData]
}

func newPayloads(capHint uint) payloads {
	small := capHint/8 + 1
	return payloads{
		classes:     NewArena[ClassData](small),
		methods:     NewArena[MethodData](small),
		variables:   NewArena[VariableData](capHint / 4),
		lambdas:     NewArena[LambdaData](small),
		blocks:      NewArena[BlockData](capHint / 4),
		exprStmts:   NewArena[ExprStmtData](capHint / 4),
		returns:     NewArena[ReturnData](small),
		throws:      NewArena[ThrowData](small),
		ifs:         NewArena[IfData](small),
		loops:       NewArena[LoopData](small),
		tries:       NewArena[TryData](small),
		catches:     NewArena[CatchData](small),
		calls:       NewArena[CallData](capHint / 4),
		newClasses:  NewArena[NewClassData](small),
		assigns:     NewArena[AssignData](small),
		idents:      NewArena[IdentData](capHint / 2),
		selects:     NewArena[SelectData](capHint / 4),
		literals:    NewArena[LiteralData](small),
		typeRefs:    NewArena[TypeRefData](capHint / 4),
		annotations: NewArena[AnnotationData](small),
	}
}
