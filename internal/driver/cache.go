package driver

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"warden/internal/diag"
	"warden/internal/source"
	"warden/internal/tree"
)

// Current schema version - increment when CachedUnit format changes
const cacheSchemaVersion uint16 = 1

// Digest keys one cache entry: the unit bytes plus the rule fingerprint.
type Digest [32]byte

// FindingCache stores the findings of analysed units on disk, keyed by
// unit content and rule configuration. Thread-safe for concurrent access.
type FindingCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedUnit is what one entry holds: enough to render the unit's findings
// without decoding or dispatching it again.
type CachedUnit struct {
	// Schema version for safe invalidation when format changes
	Schema uint16

	Path   string
	Source []byte // normalized
	Flags  uint8

	Findings []CachedFinding
}

type CachedFinding struct {
	Rule     string
	Severity uint8
	Node     uint32
	Start    uint32
	End      uint32
	Message  string
	Notes    []CachedNote `msgpack:",omitempty"`
}

type CachedNote struct {
	Start uint32
	End   uint32
	Msg   string
}

// OpenFindingCache opens (creating if needed) a cache rooted at dir.
// An empty dir selects $XDG_CACHE_HOME/warden.
func OpenFindingCache(dir string) (*FindingCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "warden")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FindingCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *FindingCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Key derives the entry key of a unit from its raw bytes and fingerprint.
func Key(unit []byte, fingerprint string) Digest {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write(unit)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Fingerprint summarizes everything besides the unit that affects findings:
// the tool version, the active rules with their severities and the check
// settings. Map keys are sorted so equal configurations agree.
func Fingerprint(version string, rules map[string]diag.Severity, settings any) (string, error) {
	ids := make([]string, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(true)
	if err := enc.Encode(version); err != nil {
		return "", err
	}
	for _, id := range ids {
		if err := enc.EncodeString(id); err != nil {
			return "", err
		}
		if err := enc.EncodeUint8(uint8(rules[id])); err != nil {
			return "", err
		}
	}
	if err := enc.Encode(settings); err != nil {
		return "", fmt.Errorf("failed to encode check settings: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

func (c *FindingCache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// двухсимвольный подкаталог, чтобы не держать всё в одной папке
	return filepath.Join(c.dir, "units", hexKey[:2], hexKey+".mp")
}

// Put serializes and writes an entry. The write is atomic: readers see the
// old entry or the new one, never a torn file.
func (c *FindingCache) Put(key Digest, entry *CachedUnit) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	entry.Schema = cacheSchemaVersion
	if err = msgpack.NewEncoder(f).Encode(entry); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), p)
}

// Get reads an entry. Entries of another schema version count as misses.
func (c *FindingCache) Get(key Digest) (*CachedUnit, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var entry CachedUnit
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", hex.EncodeToString(key[:8]), err)
	}
	if entry.Schema != cacheSchemaVersion {
		return nil, false, nil
	}
	return &entry, true, nil
}

// DropAll invalidates the cache.
func (c *FindingCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "units"))
}

// cacheEntry converts the findings of one unit for storage.
func cacheEntry(f *source.File, findings []diag.Finding) *CachedUnit {
	entry := &CachedUnit{
		Path:     f.Path,
		Source:   f.Content,
		Flags:    uint8(f.Flags),
		Findings: make([]CachedFinding, len(findings)),
	}
	for i, fd := range findings {
		cf := CachedFinding{
			Rule:     fd.Rule,
			Severity: uint8(fd.Severity),
			Node:     uint32(fd.Node),
			Start:    fd.Primary.Start,
			End:      fd.Primary.End,
			Message:  fd.Message,
		}
		for _, n := range fd.Notes {
			cf.Notes = append(cf.Notes, CachedNote{Start: n.Span.Start, End: n.Span.End, Msg: n.Msg})
		}
		entry.Findings[i] = cf
	}
	return entry
}

// restore registers the cached unit in fs and rebuilds its findings.
func (entry *CachedUnit) restore(fs *source.FileSet) (source.FileID, []diag.Finding) {
	unit := fs.Add(entry.Path, entry.Source, source.FileFlags(entry.Flags))
	out := make([]diag.Finding, len(entry.Findings))
	for i, cf := range entry.Findings {
		f := diag.Finding{
			Rule:     cf.Rule,
			Severity: diag.Severity(cf.Severity),
			Node:     tree.NodeID(cf.Node),
			Primary:  source.Span{File: unit, Start: cf.Start, End: cf.End},
			Message:  cf.Message,
		}
		for _, n := range cf.Notes {
			f.Notes = append(f.Notes, diag.Note{Span: source.Span{File: unit, Start: n.Start, End: n.End}, Msg: n.Msg})
		}
		out[i] = f
	}
	return unit, out
}
