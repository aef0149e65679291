package library

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/kibuild/pkg/circuit"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
)

// PinDef is a pin of a library symbol, in symbol coordinates (Y up).
type PinDef struct {
	Number   string
	Name     string
	Type     circuit.PinType
	Position sexp.PositionAngle
	Length   float64
}

// SymbolDef is a resolved library symbol. Node is a private copy named with
// the full library id, ready to embed in a schematic's lib_symbols.
type SymbolDef struct {
	LibID      string
	Node       *kicadsexp.List
	Pins       []PinDef
	Properties []sexp.Property
}

// Pin finds a pin by number, falling back to its name.
func (s *SymbolDef) Pin(id string) (PinDef, bool) {
	for _, p := range s.Pins {
		if p.Number == id {
			return p, true
		}
	}
	for _, p := range s.Pins {
		if p.Name == id {
			return p, true
		}
	}
	return PinDef{}, false
}

// Property returns the default value of a symbol property.
func (s *SymbolDef) Property(key string) (string, bool) {
	for _, p := range s.Properties {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Symbol resolves a "Lib:Name" symbol. Derived symbols (extends) are
// flattened onto their parent.
func (l *Library) Symbol(libID string) (*SymbolDef, error) {
	if def, ok := l.symbols[libID]; ok {
		return def, nil
	}
	lib, name, err := SplitID(libID)
	if err != nil {
		return nil, err
	}
	path, ok := find(l.SymbolDirs, lib+".kicad_sym")
	if !ok {
		return nil, fmt.Errorf("library: symbol library %s: %w", lib, ErrNotFound)
	}
	root, err := l.load(path)
	if err != nil {
		return nil, err
	}

	node, err := resolveSymbol(root, name, 0)
	if err != nil {
		return nil, fmt.Errorf("library: symbol %s: %w", libID, err)
	}
	node.Set(1, kicadsexp.String(libID))

	def := &SymbolDef{
		LibID:      libID,
		Node:       node,
		Pins:       collectPins(node),
		Properties: sexp.Properties(node),
	}
	l.symbols[libID] = def
	return def, nil
}

func findSymbol(root *kicadsexp.List, name string) (*kicadsexp.List, bool) {
	for _, n := range sexp.FindAllNodes(root, "symbol") {
		if v, err := sexp.GetString(n, 1); err == nil && v == name {
			return n, true
		}
	}
	return nil, false
}

// resolveSymbol returns a copy of the named symbol with any extends chain
// applied: the parent's units are taken over and renamed, and the child's
// properties override the parent's.
func resolveSymbol(root *kicadsexp.List, name string, depth int) (*kicadsexp.List, error) {
	if depth > 8 {
		return nil, fmt.Errorf("extends chain too deep")
	}
	node, ok := findSymbol(root, name)
	if !ok {
		return nil, ErrNotFound
	}
	ext, ok := sexp.FindNode(node, "extends")
	if !ok {
		return node.Clone(), nil
	}
	parentName, err := sexp.GetString(ext, 1)
	if err != nil {
		return nil, fmt.Errorf("malformed extends: %w", err)
	}
	parent, err := resolveSymbol(root, parentName, depth+1)
	if err != nil {
		return nil, fmt.Errorf("parent %s: %w", parentName, err)
	}

	out := parent
	out.Set(1, kicadsexp.String(name))
	for _, unit := range sexp.FindAllNodes(out, "symbol") {
		if unitName, err := sexp.GetString(unit, 1); err == nil && strings.HasPrefix(unitName, parentName+"_") {
			unit.Set(1, kicadsexp.String(name+strings.TrimPrefix(unitName, parentName)))
		}
	}
	for _, prop := range sexp.FindAllNodes(node, "property") {
		key, err := sexp.GetString(prop, 1)
		if err != nil {
			continue
		}
		if existing, ok := sexp.FindProperty(out, key); ok {
			replaceNode(out, existing, prop.Clone())
			continue
		}
		out.Insert(lastIndex(out, "property")+1, prop.Clone())
	}
	return out, nil
}

func replaceNode(parent, old, repl *kicadsexp.List) {
	for i, it := range parent.Items() {
		if it == kicadsexp.Sexp(old) {
			parent.Set(i, repl)
			return
		}
	}
}

func lastIndex(l *kicadsexp.List, key string) int {
	idx := 1
	for i, it := range l.Items() {
		if sub, ok := it.(*kicadsexp.List); ok && sub.Key() == key {
			idx = i
		}
	}
	return idx
}

// collectPins walks the symbol and its units for pin definitions.
func collectPins(node *kicadsexp.List) []PinDef {
	var pins []PinDef
	for _, pn := range sexp.FindAllNodes(node, "pin") {
		pins = append(pins, parsePin(pn))
	}
	for _, unit := range sexp.FindAllNodes(node, "symbol") {
		pins = append(pins, collectPins(unit)...)
	}
	return pins
}

// parsePin reads (pin TYPE STYLE (at x y a) (length l) (name "..") (number ".."))
func parsePin(node *kicadsexp.List) PinDef {
	pin := PinDef{Type: circuit.Passive}

	if typ, err := sexp.GetString(node, 1); err == nil {
		if t, err := circuit.ParsePinType(typ); err == nil {
			pin.Type = t
		}
	}
	if atNode, ok := sexp.FindNode(node, "at"); ok {
		pin.Position, _ = sexp.GetPosition(atNode)
	}
	if lenNode, ok := sexp.FindNode(node, "length"); ok {
		pin.Length, _ = sexp.GetFloat(lenNode, 1)
	}
	if nameNode, ok := sexp.FindNode(node, "name"); ok {
		pin.Name, _ = sexp.GetString(nameNode, 1)
	}
	if numNode, ok := sexp.FindNode(node, "number"); ok {
		pin.Number, _ = sexp.GetString(numNode, 1)
	}
	return pin
}
