package library

import (
	"fmt"
	"path/filepath"

	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
)

// PadDef is a footprint pad, relative to the footprint origin.
type PadDef struct {
	Number   string
	Type     string // thru_hole, smd, connect, np_thru_hole
	Shape    string
	Position sexp.PositionAngle
	Width    float64
	Height   float64
}

// FootprintDef is a resolved footprint. Node must not be modified; use
// Template for a private copy.
type FootprintDef struct {
	LibID string
	Node  *kicadsexp.List
	Pads  []PadDef
}

// Template returns a copy of the footprint ready to place on a board.
func (f *FootprintDef) Template() *kicadsexp.List {
	return f.Node.Clone()
}

// Footprint resolves a "Lib:Name" footprint from Lib.pretty/Name.kicad_mod.
// Footprints saved by KiCad 5 use a (module ...) root; it is renamed to
// (footprint ...) so callers see a single shape.
func (l *Library) Footprint(libID string) (*FootprintDef, error) {
	if def, ok := l.footprints[libID]; ok {
		return def, nil
	}
	lib, name, err := SplitID(libID)
	if err != nil {
		return nil, err
	}
	path, ok := find(l.FootprintDirs, filepath.Join(lib+".pretty", name+".kicad_mod"))
	if !ok {
		return nil, fmt.Errorf("library: footprint %s: %w", libID, ErrNotFound)
	}
	root, err := l.load(path)
	if err != nil {
		return nil, err
	}

	switch root.Key() {
	case "footprint":
	case "module":
		root = root.Clone()
		root.Set(0, kicadsexp.Symbol("footprint"))
	default:
		return nil, fmt.Errorf("library: %s: unexpected root %q", path, root.Key())
	}
	node := root.Clone()
	node.Set(1, kicadsexp.String(libID))

	def := &FootprintDef{LibID: libID, Node: node}
	for _, pn := range sexp.FindAllNodes(node, "pad") {
		def.Pads = append(def.Pads, parsePad(pn))
	}
	l.footprints[libID] = def
	return def, nil
}

// parsePad reads (pad "number" type shape (at x y [angle]) ...).
// Missing fields are left zero.
func parsePad(node *kicadsexp.List) PadDef {
	pad := PadDef{}
	pad.Number, _ = sexp.GetString(node, 1)
	pad.Type, _ = sexp.GetString(node, 2)
	pad.Shape, _ = sexp.GetString(node, 3)
	if atNode, ok := sexp.FindNode(node, "at"); ok {
		pad.Position, _ = sexp.GetPosition(atNode)
	}
	if sizeNode, ok := sexp.FindNode(node, "size"); ok {
		pad.Width, _ = sexp.GetFloat(sizeNode, 1)
		pad.Height, _ = sexp.GetFloat(sizeNode, 2)
	}
	return pad
}
