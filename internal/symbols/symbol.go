package symbols

// SymbolKind classifies the declaration a symbol resolves to.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolClass
	SymbolMethod
	SymbolField
	SymbolVariable
	SymbolParam
	SymbolAnnotationType
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolClass:
		return "class"
	case SymbolMethod:
		return "method"
	case SymbolField:
		return "field"
	case SymbolVariable:
		return "variable"
	case SymbolParam:
		return "param"
	case SymbolAnnotationType:
		return "annotation"
	default:
		return "invalid"
	}
}

// ParseSymbolKind maps the textual kind used by unit documents.
func ParseSymbolKind(s string) (SymbolKind, bool) {
	for k := SymbolClass; k <= SymbolAnnotationType; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return SymbolInvalid, false
}

// Annotation is an annotation applied to a declaration.
type Annotation struct {
	QualifiedName string
	Args          map[string]string
}

// Symbol is a resolved declaration identity. Read-only once the table is frozen.
type Symbol struct {
	Kind          SymbolKind
	Name          string
	QualifiedName string
	Annotations   []Annotation
	// DeclaredType is the variable/field type, the method return type
	// or the class type itself.
	DeclaredType TypeID
	// Owner is the enclosing type for members.
	Owner TypeID
}

// Type is a fully-qualified type with its direct supertypes.
type Type struct {
	Name          string
	QualifiedName string
	Supertypes    []TypeID
	// Members maps simple member names to their symbols.
	Members map[string]SymbolID
}
