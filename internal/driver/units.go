package driver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"warden/internal/unitio"
)

// ListUnits returns the unit documents under root in sorted order. A root
// that is a file is returned as is, whatever its extension. Hidden
// directories are skipped.
func ListUnits(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var units []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if unitio.IsUnitPath(path) {
			units = append(units, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list units in %s: %w", root, err)
	}

	// детерминированный порядок
	sort.Strings(units)
	return units, nil
}
