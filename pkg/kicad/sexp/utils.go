package sexp

import (
	"fmt"
	"strconv"

	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
)

// S-expression navigation helpers

// FindNode searches for a child list with the given key (first symbol)
// Example: FindNode(sexp, "at") finds (at 100 50) in a list
func FindNode(s kicadsexp.Sexp, key string) (*kicadsexp.List, bool) {
	l, ok := s.(*kicadsexp.List)
	if !ok {
		return nil, false
	}
	for _, item := range l.Items() {
		if sub, ok := item.(*kicadsexp.List); ok && sub.Key() == key {
			return sub, true
		}
	}
	return nil, false
}

// FindIndex returns the index of the first child list with the given key, or -1.
func FindIndex(l *kicadsexp.List, key string) int {
	for i, item := range l.Items() {
		if sub, ok := item.(*kicadsexp.List); ok && sub.Key() == key {
			return i
		}
	}
	return -1
}

// FindAllNodes finds all child lists with the given key
func FindAllNodes(s kicadsexp.Sexp, key string) []*kicadsexp.List {
	var results []*kicadsexp.List
	l, ok := s.(*kicadsexp.List)
	if !ok {
		return results
	}
	for _, item := range l.Items() {
		if sub, ok := item.(*kicadsexp.List); ok && sub.Key() == key {
			results = append(results, sub)
		}
	}
	return results
}

// GetListItems returns all items in a list (excluding the first symbol/key)
// Example: GetListItems((layers "F.Cu" "B.Cu")) returns ["F.Cu", "B.Cu"]
func GetListItems(s kicadsexp.Sexp) []kicadsexp.Sexp {
	l, ok := s.(*kicadsexp.List)
	if !ok || l.Len() <= 1 {
		return []kicadsexp.Sexp{}
	}
	return l.Items()[1:]
}

// Typed value extraction helpers

// GetString extracts an atom value at the given index in a list.
// Index 0 is the key, 1 is first value, etc. Quoted and bare atoms both count.
func GetString(s kicadsexp.Sexp, index int) (string, error) {
	l, ok := s.(*kicadsexp.List)
	if !ok {
		return "", fmt.Errorf("expected list, got leaf")
	}
	if index < 0 || index >= l.Len() {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, l.Len())
	}
	item := l.Get(index)
	if !item.IsLeaf() {
		return "", fmt.Errorf("expected atom at index %d, got list", index)
	}
	return item.String(), nil
}

// GetFloat extracts a float64 value at the given index
func GetFloat(s kicadsexp.Sexp, index int) (float64, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", str, err)
	}
	return val, nil
}

// GetInt extracts an int value at the given index
func GetInt(s kicadsexp.Sexp, index int) (int, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int %q: %w", str, err)
	}
	return val, nil
}

// GetNodeName returns the first symbol of a list (the node type/name)
func GetNodeName(s kicadsexp.Sexp) (string, error) {
	if s == nil {
		return "", fmt.Errorf("nil node")
	}
	if s.IsLeaf() {
		return s.String(), nil
	}
	l := s.(*kicadsexp.List)
	if key := l.Key(); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("expected symbol at head of list")
}

// HasSymbol checks if a list contains a specific bare symbol
func HasSymbol(s kicadsexp.Sexp, symbol string) bool {
	l, ok := s.(*kicadsexp.List)
	if !ok {
		return false
	}
	for _, item := range l.Items() {
		if sym, ok := item.(kicadsexp.Symbol); ok && string(sym) == symbol {
			return true
		}
	}
	return false
}

// Domain-specific extraction helpers

// GetPosition extracts a PositionAngle from an (at X Y [angle]) node.
// Coordinates are millimeters and the angle is degrees, as in v6+ files.
func GetPosition(s kicadsexp.Sexp) (PositionAngle, error) {
	key, err := GetString(s, 0)
	if err != nil {
		return PositionAngle{}, err
	}
	if key != "at" {
		return PositionAngle{}, fmt.Errorf("expected 'at', got %q", key)
	}

	x, err := GetFloat(s, 1)
	if err != nil {
		return PositionAngle{}, fmt.Errorf("failed to parse X coordinate: %w", err)
	}
	y, err := GetFloat(s, 2)
	if err != nil {
		return PositionAngle{}, fmt.Errorf("failed to parse Y coordinate: %w", err)
	}

	result := PositionAngle{Position: Position{X: x, Y: y}}
	// angle is optional
	if angle, err := GetFloat(s, 3); err == nil {
		result.Angle = Angle(angle)
	}
	return result, nil
}

// GetUUID extracts a UUID from a node that has a (uuid "...") child, or from
// the (uuid ...) node itself.
func GetUUID(s kicadsexp.Sexp) (UUID, error) {
	l, ok := s.(*kicadsexp.List)
	if !ok {
		return "", fmt.Errorf("expected list, got leaf")
	}
	if l.Key() != "uuid" {
		found, ok := FindNode(l, "uuid")
		if !ok {
			// footprints written by KiCad 6/7 use (tstamp ...)
			found, ok = FindNode(l, "tstamp")
		}
		if !ok {
			return "", fmt.Errorf("no uuid node")
		}
		l = found
	}
	id, err := GetString(l, 1)
	if err != nil {
		return "", err
	}
	return UUID(id), nil
}

// GetProperty extracts a property from a (property ...) node
// Format: (property "key" "value" (at X Y angle) (effects ...))
func GetProperty(s kicadsexp.Sexp) (Property, error) {
	prop := Property{}

	key, err := GetString(s, 1)
	if err != nil {
		return prop, fmt.Errorf("failed to parse property key: %w", err)
	}
	prop.Key = key

	if value, err := GetString(s, 2); err == nil {
		prop.Value = value
	}

	if atNode, ok := FindNode(s, "at"); ok {
		if pos, err := GetPosition(atNode); err == nil {
			prop.Position = pos
		}
	}

	if effects, ok := FindNode(s, "effects"); ok {
		prop.Hidden = HasSymbol(effects, "hide")
		if hide, ok := FindNode(effects, "hide"); ok {
			v, _ := GetString(hide, 1)
			prop.Hidden = v != "no"
		}
	}
	if hide, ok := FindNode(s, "hide"); ok {
		v, _ := GetString(hide, 1)
		prop.Hidden = v != "no"
	}

	return prop, nil
}

// Properties returns every (property ...) child of s in document order.
func Properties(s kicadsexp.Sexp) []Property {
	var props []Property
	for _, node := range FindAllNodes(s, "property") {
		if p, err := GetProperty(node); err == nil {
			props = append(props, p)
		}
	}
	return props
}

// Editing helpers

// FindProperty returns the (property "key" ...) child of s.
func FindProperty(s kicadsexp.Sexp, key string) (*kicadsexp.List, bool) {
	for _, node := range FindAllNodes(s, "property") {
		if k, err := GetString(node, 1); err == nil && k == key {
			return node, true
		}
	}
	return nil, false
}

// SetProperty replaces the value of an existing property. It reports whether
// the property was present.
func SetProperty(s kicadsexp.Sexp, key, value string) bool {
	node, ok := FindProperty(s, key)
	if !ok {
		return false
	}
	if node.Len() < 3 {
		node.Append(kicadsexp.String(value))
		return true
	}
	node.Set(2, kicadsexp.String(value))
	return true
}

// SetChild replaces the first child list with the same key as child, or
// inserts child at index when none exists.
func SetChild(l *kicadsexp.List, child *kicadsexp.List, index int) {
	if i := FindIndex(l, child.Key()); i >= 0 {
		l.Set(i, child)
		return
	}
	l.Insert(index, child)
}

// AtNode builds an (at X Y angle) node.
func AtNode(p PositionAngle) *kicadsexp.List {
	return kicadsexp.Node("at", kicadsexp.Num(p.X), kicadsexp.Num(p.Y), kicadsexp.Num(float64(p.Angle)))
}

// UUIDNode builds a (uuid "...") node.
func UUIDNode(id string) *kicadsexp.List {
	return kicadsexp.Node("uuid", kicadsexp.String(id))
}
