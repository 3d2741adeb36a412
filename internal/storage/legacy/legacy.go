// Package legacy reads the flat-string store that predates the versioned
// engines: one string value per key, no schema. It is only ever read;
// migration copies values out and leaves the originals in place.
package legacy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/snippetbase/internal/storage"
)

var (
	_ storage.LegacyReader = (*Dir)(nil)
	_ storage.LegacyReader = Map(nil)
)

// Dir is a legacy store laid out as one file per key.
type Dir struct {
	Path string
}

// Lookup reads the file named key. A missing directory or file is a miss.
func (d Dir) Lookup(key string) (string, bool, error) {
	if d.Path == "" {
		return "", false, nil
	}
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", false, fmt.Errorf("legacy: invalid key %q", key)
	}
	data, err := os.ReadFile(filepath.Join(d.Path, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("legacy: reading %s: %w", key, err)
	}
	return string(data), true, nil
}

// Map is an in-memory legacy store.
type Map map[string]string

func (m Map) Lookup(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}
