// Package specdb loads the specification database from a flat YAML or JSON
// file into the in-memory mapping the comparison engine reads. Persistence
// beyond a flat file is out of scope; the engine itself never writes.
package specdb

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/dgallion1/specgest/internal/compare"
)

type file struct {
	Parameters []compare.SpecEntry `json:"parameters" yaml:"parameters"`
}

// Load reads a specification database file. YAML and JSON are both
// accepted; JSON is a YAML subset.
func Load(path string) (map[string]compare.SpecEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec database: %w", err)
	}
	db, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("spec database %s: %w", path, err)
	}
	return db, nil
}

// Parse decodes and validates specification entries.
func Parse(raw []byte) (map[string]compare.SpecEntry, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromEntries(f.Parameters)
}

// FromEntries validates a decoded entry list and keys it by name.
func FromEntries(entries []compare.SpecEntry) (map[string]compare.SpecEntry, error) {
	db := make(map[string]compare.SpecEntry, len(entries))
	for i, entry := range entries {
		if entry.Name == "" {
			return nil, fmt.Errorf("entry %d: name is required", i)
		}
		if _, dup := db[entry.Name]; dup {
			return nil, fmt.Errorf("duplicate entry %q", entry.Name)
		}
		switch entry.Type {
		case compare.TypeExact:
			// numeric value or text requirement; zero value means "equals 0"
		case compare.TypeMin, compare.TypeMax:
		case compare.TypeRange:
			if entry.Range == nil {
				return nil, fmt.Errorf("entry %q: type D requires a range", entry.Name)
			}
			if entry.Range.Low > entry.Range.High {
				return nil, fmt.Errorf("entry %q: range low exceeds high", entry.Name)
			}
		default:
			return nil, fmt.Errorf("entry %q: unknown type %q", entry.Name, entry.Type)
		}
		db[entry.Name] = entry
	}
	return db, nil
}
