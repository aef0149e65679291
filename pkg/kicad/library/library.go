// Package library looks up symbols and footprints in KiCad library files.
//
// Symbol libraries are <dir>/<Lib>.kicad_sym files; footprint libraries are
// <dir>/<Lib>.pretty directories of .kicad_mod files. Lookups are read-only
// and cached, so each file is parsed at most once per Library.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
)

// ErrNotFound is returned when a library or an item in it does not exist.
var ErrNotFound = errors.New("not found")

// Library resolves library-qualified names ("Device:R") against a search path.
// Directories are searched in order; the first match wins.
type Library struct {
	SymbolDirs    []string
	FootprintDirs []string

	files      map[string]*kicadsexp.List
	symbols    map[string]*SymbolDef
	footprints map[string]*FootprintDef
}

// New creates a Library over the given search directories.
func New(symbolDirs, footprintDirs []string) *Library {
	return &Library{
		SymbolDirs:    symbolDirs,
		FootprintDirs: footprintDirs,
		files:         make(map[string]*kicadsexp.List),
		symbols:       make(map[string]*SymbolDef),
		footprints:    make(map[string]*FootprintDef),
	}
}

// SplitID splits "Lib:Name" into its parts.
func SplitID(libID string) (lib, name string, err error) {
	lib, name, ok := strings.Cut(libID, ":")
	if !ok || lib == "" || name == "" {
		return "", "", fmt.Errorf("library: %q is not a Lib:Name identifier", libID)
	}
	return lib, name, nil
}

// load parses a library file once.
func (l *Library) load(path string) (*kicadsexp.List, error) {
	if root, ok := l.files[path]; ok {
		return root, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	root, err := kicadsexp.ParseRoot(f)
	if err != nil {
		return nil, fmt.Errorf("library: parse %s: %w", path, err)
	}
	l.files[path] = root
	return root, nil
}

func find(dirs []string, rel string) (string, bool) {
	for _, dir := range dirs {
		path := filepath.Join(dir, rel)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
