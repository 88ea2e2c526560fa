package symbols

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
)

// ErrFrozen is returned by mutating calls after Freeze.
var ErrFrozen = errors.New("symbol table is frozen")

// Hints provide optional capacity suggestions for the table arenas.
type Hints struct{ Symbols, Types uint }

// Table owns every symbol and type of one unit. The resolver fills it, calls
// Freeze, and from then on analysis only reads.
type Table struct {
	symbols []Symbol // index 0 reserved for NoSymbolID
	types   []Type   // index 0 reserved for NoTypeID
	byQName map[string]TypeID
	frozen  bool
}

// NewTable builds an empty table with optional capacity hints.
func NewTable(h Hints) *Table {
	if h.Symbols == 0 {
		h.Symbols = 32
	}
	if h.Types == 0 {
		h.Types = 16
	}
	return &Table{
		symbols: make([]Symbol, 1, h.Symbols+1),
		types:   make([]Type, 1, h.Types+1),
		byQName: make(map[string]TypeID, h.Types),
	}
}

// NewType registers a type. Registering the same qualified name twice
// returns the existing id.
func (t *Table) NewType(name, qualifiedName string) (TypeID, error) {
	if t.frozen {
		return NoTypeID, ErrFrozen
	}
	if id, ok := t.byQName[qualifiedName]; ok && qualifiedName != "" {
		return id, nil
	}
	n, err := safecast.Conv[uint32](len(t.types))
	if err != nil {
		return NoTypeID, fmt.Errorf("types arena overflow: %w", err)
	}
	id := TypeID(n)
	t.types = append(t.types, Type{Name: name, QualifiedName: qualifiedName})
	if qualifiedName != "" {
		t.byQName[qualifiedName] = id
	}
	return id, nil
}

// AddSupertype records a direct supertype edge.
func (t *Table) AddSupertype(sub, super TypeID) error {
	if t.frozen {
		return ErrFrozen
	}
	if !t.validType(sub) || !t.validType(super) {
		return fmt.Errorf("invalid supertype edge %d -> %d", sub, super)
	}
	t.types[sub].Supertypes = append(t.types[sub].Supertypes, super)
	return nil
}

// NewSymbol registers a symbol; members are indexed on their owner type.
func (t *Table) NewSymbol(sym Symbol) (SymbolID, error) {
	if t.frozen {
		return NoSymbolID, ErrFrozen
	}
	if sym.DeclaredType != NoTypeID && !t.validType(sym.DeclaredType) {
		return NoSymbolID, fmt.Errorf("symbol %q: unknown declared type %d", sym.Name, sym.DeclaredType)
	}
	if sym.Owner != NoTypeID && !t.validType(sym.Owner) {
		return NoSymbolID, fmt.Errorf("symbol %q: unknown owner type %d", sym.Name, sym.Owner)
	}
	n, err := safecast.Conv[uint32](len(t.symbols))
	if err != nil {
		return NoSymbolID, fmt.Errorf("symbols arena overflow: %w", err)
	}
	id := SymbolID(n)
	t.symbols = append(t.symbols, sym)
	if sym.Owner != NoTypeID && sym.Name != "" {
		owner := &t.types[sym.Owner]
		if owner.Members == nil {
			owner.Members = make(map[string]SymbolID)
		}
		if _, exists := owner.Members[sym.Name]; !exists {
			owner.Members[sym.Name] = id
		}
	}
	return id, nil
}

// Freeze makes the table read-only.
func (t *Table) Freeze() { t.frozen = true }

// Frozen reports whether Freeze was called.
func (t *Table) Frozen() bool { return t.frozen }

// Symbol returns the symbol for id, or nil.
func (t *Table) Symbol(id SymbolID) *Symbol {
	if t == nil || !id.IsValid() || int(id) >= len(t.symbols) {
		return nil
	}
	return &t.symbols[id]
}

// Type returns the type for id, or nil.
func (t *Table) Type(id TypeID) *Type {
	if t == nil || !t.validType(id) {
		return nil
	}
	return &t.types[id]
}

// TypeByName looks a type up by its qualified name.
func (t *Table) TypeByName(qualifiedName string) (TypeID, bool) {
	if t == nil {
		return NoTypeID, false
	}
	id, ok := t.byQName[qualifiedName]
	return id, ok
}

// Len returns the number of symbols and types.
func (t *Table) Len() (symbols, types int) {
	return len(t.symbols) - 1, len(t.types) - 1
}

func (t *Table) validType(id TypeID) bool {
	return id.IsValid() && int(id) < len(t.types)
}
