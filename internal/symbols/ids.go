package symbols

type (
	// SymbolID indexes Table.symbols (1-based).
	SymbolID uint32
	// TypeID indexes Table.types (1-based).
	TypeID uint32
)

const (
	NoSymbolID SymbolID = 0
	NoTypeID   TypeID   = 0
)

func (id SymbolID) IsValid() bool { return id != NoSymbolID }
func (id TypeID) IsValid() bool   { return id != NoTypeID }
