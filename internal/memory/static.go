package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// staticDataExtensions mirrors the recognized text-like test-data formats:
// anything else in the directory is skipped rather than concatenated blind.
var staticDataExtensions = map[string]bool{
	".txt":  true,
	".json": true,
	".csv":  true,
	".rft":  true,
	".yaml": true,
	".yml":  true,
}

// StaticLoader implements the Planner's static long-term memory contract: a
// single immutable text blob, consolidated once from every recognized file
// in a test-data directory, handed to the Planner verbatim on every turn of
// a command.
type StaticLoader struct {
	consolidated string
	ok           bool
}

// LoadStaticTestData walks dir (non-recursively) and concatenates the
// contents of every file with a recognized extension, in name order. An
// empty dir is not an error — it just yields a loader with nothing to offer,
// so the Planner's placeholder substitution never fires.
func LoadStaticTestData(dir string) (*StaticLoader, error) {
	if dir == "" {
		return &StaticLoader{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("memory: read static test data dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		if !staticDataExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("memory: read static test data file %s: %w", name, err)
		}
		b.Write(content)
		b.WriteByte('\n')
	}

	return &StaticLoader{consolidated: b.String(), ok: b.Len() > 0}, nil
}

// GetUserLTM satisfies planner.StaticMemory.
func (s *StaticLoader) GetUserLTM() (string, bool) {
	if s == nil {
		return "", false
	}
	return s.consolidated, s.ok
}
