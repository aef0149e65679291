// Package install finds the KiCad libraries and the kicad-cli binary.
package install

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/OpenTraceLab/kibuild/internal/config"
)

// SearchPaths are the default installation roots, tried in order.
var SearchPaths = []string{
	"C:/Program Files/KiCad/8.0/",
	"/usr/share/kicad/",
	"/Applications/KiCad/KiCad.app/Contents/SharedSupport/",
}

// Paths describes a KiCad installation. Empty fields were not found.
type Paths struct {
	Share      string
	Symbols    string
	Footprints string
	CLI        string
}

// Found reports whether a library root was located.
func (p Paths) Found() bool { return p.Share != "" }

// Locate resolves the installation from configuration (environment
// overrides included), then the built-in search paths. kicad-cli comes from
// configuration, the Windows bin directory, or PATH.
func Locate(cfg config.Getter) Paths {
	return locate(cfg, SearchPaths, exec.LookPath)
}

func locate(cfg config.Getter, search []string, lookPath func(string) (string, error)) Paths {
	var p Paths
	if cfg != nil {
		p.Share = cfg.Get(config.KeyKiCadPath)
		p.CLI = cfg.Get(config.KeyKiCadCLI)
	}
	if p.Share == "" {
		for _, dir := range search {
			if isDir(dir) {
				p.Share = dir
				break
			}
		}
	}
	if p.Share != "" {
		root := p.Share
		// the Windows installer nests the libraries under share/kicad
		if isDir(filepath.Join(root, "share", "kicad")) {
			root = filepath.Join(root, "share", "kicad")
		}
		p.Symbols = filepath.Join(root, "symbols")
		p.Footprints = filepath.Join(root, "footprints")
	}
	if p.CLI == "" {
		p.CLI = findCLI(p.Share, lookPath)
	}
	return p
}

func findCLI(share string, lookPath func(string) (string, error)) string {
	if share != "" && runtime.GOOS == "windows" {
		exe := filepath.Join(share, "bin", "kicad-cli.exe")
		if _, err := os.Stat(exe); err == nil {
			return exe
		}
	}
	if lookPath == nil {
		return ""
	}
	if path, err := lookPath("kicad-cli"); err == nil {
		return path
	}
	return ""
}

func isDir(path string) bool {
	path = strings.TrimRight(path, `/\`)
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
