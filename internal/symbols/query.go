package symbols

// IsAnnotatedWith reports whether sym carries the annotation qualifiedName.
// Unknown symbols are never annotated.
func (t *Table) IsAnnotatedWith(sym SymbolID, qualifiedName string) bool {
	_, ok := t.Annotation(sym, qualifiedName)
	return ok
}

// Annotation returns the annotation qualifiedName on sym.
func (t *Table) Annotation(sym SymbolID, qualifiedName string) (Annotation, bool) {
	s := t.Symbol(sym)
	if s == nil {
		return Annotation{}, false
	}
	for _, a := range s.Annotations {
		if a.QualifiedName == qualifiedName {
			return a, true
		}
	}
	return Annotation{}, false
}

// HasAnyAnnotation reports whether sym carries one of the given annotations.
func (t *Table) HasAnyAnnotation(sym SymbolID, qualifiedNames ...string) bool {
	for _, q := range qualifiedNames {
		if t.IsAnnotatedWith(sym, q) {
			return true
		}
	}
	return false
}

// Is reports whether typ is exactly qualifiedName.
func (t *Table) Is(typ TypeID, qualifiedName string) bool {
	ty := t.Type(typ)
	return ty != nil && ty.QualifiedName == qualifiedName
}

// IsSubtypeOf reports whether typ is qualifiedName or (transitively) extends or
// implements it. Cyclic hierarchies from a broken resolver terminate.
func (t *Table) IsSubtypeOf(typ TypeID, qualifiedName string) bool {
	if t.Type(typ) == nil {
		return false
	}
	seen := make(map[TypeID]struct{}, 8)
	stack := []TypeID{typ}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		ty := t.Type(cur)
		if ty == nil {
			continue
		}
		if ty.QualifiedName == qualifiedName {
			return true
		}
		stack = append(stack, ty.Supertypes...)
	}
	return false
}

// LookupMember finds a member by simple name on typ or its supertypes.
func (t *Table) LookupMember(typ TypeID, name string) (SymbolID, bool) {
	seen := make(map[TypeID]struct{}, 8)
	queue := []TypeID{typ}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		ty := t.Type(cur)
		if ty == nil {
			continue
		}
		if id, ok := ty.Members[name]; ok {
			return id, true
		}
		queue = append(queue, ty.Supertypes...)
	}
	return NoSymbolID, false
}

// TypeName returns the simple name of typ or "".
func (t *Table) TypeName(typ TypeID) string {
	if ty := t.Type(typ); ty != nil {
		return ty.Name
	}
	return ""
}

// QualifiedTypeName returns the qualified name of typ or "".
func (t *Table) QualifiedTypeName(typ TypeID) string {
	if ty := t.Type(typ); ty != nil {
		return ty.QualifiedName
	}
	return ""
}
