package merge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
)

// LockPath is the sentinel KiCad creates next to a document it has open.
func LockPath(path string) string {
	return filepath.Join(filepath.Dir(path), "~"+filepath.Base(path)+".lck")
}

// CheckLock returns ErrLocked when KiCad has the document open.
func CheckLock(path string) error {
	if _, err := os.Stat(LockPath(path)); err == nil {
		return fmt.Errorf("merge: %s: %w (close it in KiCad or remove %s)", path, ErrLocked, LockPath(path))
	}
	return nil
}

// WriteFile merges entities into the document at path and replaces it.
// Nothing is written when the document is locked or the merge fails.
func WriteFile(path string, spec Spec, entities []Entity) (*Result, error) {
	if err := CheckLock(path); err != nil {
		return nil, err
	}
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("merge: read %s: %w", path, err)
	}
	res, err := Merge(existing, spec, entities)
	if err != nil {
		return nil, err
	}
	if err := Save(path, res.Doc); err != nil {
		return nil, err
	}
	return res, nil
}

// Save writes doc to path through a temporary file in the same directory,
// so a failed write never leaves a truncated document behind.
func Save(path string, doc kicadsexp.Sexp) error {
	if err := CheckLock(path); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := kicadsexp.Write(tmp, doc); err != nil {
		tmp.Close()
		return fmt.Errorf("merge: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("merge: write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("merge: replace %s: %w", path, err)
	}
	return nil
}
