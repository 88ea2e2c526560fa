package source

type (
	// FileID uniquely identifies a unit within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a unit.
	FileFlags uint8
)

const (
	// FileVirtual marks units created in memory (tests, stdin).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
	// FileNoText marks units whose document carried no source text;
	// positions then resolve to line 1 with byte columns.
	FileNoText
)

// File captures metadata and content for a single analyzed unit.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol represents a human-readable position in a unit.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}
