package tree

// Kind tags a node with its syntactic category.
type Kind uint8

const (
	KindInvalid Kind = iota
	// declarations
	KindUnit
	KindClass
	KindMethod
	KindVariable
	KindLambda
	// statements
	KindBlock
	KindExprStmt
	KindReturn
	KindThrow
	KindIf
	KindFor
	KindForEach
	KindWhile
	KindTry
	KindCatch
	// expressions
	KindCall
	KindNewClass
	KindAssign
	KindIdent
	KindSelect
	KindLiteral
	KindTypeRef
	KindAnnotation

	kindCount
)

var kindNames = [kindCount]string{
	KindInvalid:    "invalid",
	KindUnit:       "unit",
	KindClass:      "class",
	KindMethod:     "method",
	KindVariable:   "variable",
	KindLambda:     "lambda",
	KindBlock:      "block",
	KindExprStmt:   "expr_stmt",
	KindReturn:     "return",
	KindThrow:      "throw",
	KindIf:         "if",
	KindFor:        "for",
	KindForEach:    "for_each",
	KindWhile:      "while",
	KindTry:        "try",
	KindCatch:      "catch",
	KindCall:       "call",
	KindNewClass:   "new_class",
	KindAssign:     "assign",
	KindIdent:      "ident",
	KindSelect:     "select",
	KindLiteral:    "literal",
	KindTypeRef:    "type_ref",
	KindAnnotation: "annotation",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind maps the textual name back to a Kind.
func ParseKind(s string) (Kind, bool) {
	for k := KindUnit; k < kindCount; k++ {
		if kindNames[k] == s {
			return k, true
		}
	}
	return KindInvalid, false
}

// Valid reports whether k names a real node kind.
func (k Kind) Valid() bool { return k > KindInvalid && k < kindCount }

// Count is the number of kinds, for kind-indexed tables.
func Count() int { return int(kindCount) }

// IsStatement reports whether k can appear in a block's statement list.
func (k Kind) IsStatement() bool {
	switch k {
	case KindBlock, KindExprStmt, KindReturn, KindThrow, KindIf, KindFor,
		KindForEach, KindWhile, KindTry, KindVariable, KindClass:
		return true
	}
	return false
}

// IsLoop reports whether k is one of the loop statements.
func (k Kind) IsLoop() bool {
	return k == KindFor || k == KindForEach || k == KindWhile
}

// IsDeclaration reports whether k opens a declaration scope.
func (k Kind) IsDeclaration() bool {
	return k == KindClass || k == KindMethod || k == KindLambda || k == KindUnit
}

// CarriesSymbol reports whether nodes of kind k may reference a symbol.
func (k Kind) CarriesSymbol() bool {
	switch k {
	case KindClass, KindMethod, KindVariable, KindCall, KindNewClass,
		KindIdent, KindSelect, KindTypeRef, KindAnnotation:
		return true
	}
	return false
}

// CarriesType reports whether nodes of kind k may carry a resolved type.
func (k Kind) CarriesType() bool {
	switch k {
	case KindClass, KindMethod, KindVariable, KindLambda, KindCall, KindNewClass,
		KindAssign, KindIdent, KindSelect, KindLiteral, KindTypeRef:
		return true
	}
	return false
}
