package pcb

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
)

// Track is a copper segment drawn in the board editor.
type Track struct {
	Start  sexp.Position
	End    sexp.Position
	Width  float64
	Layer  string
	Net    string
	Locked bool
}

// Length returns the segment length in mm.
func (t Track) Length() float64 {
	return math.Hypot(t.End.X-t.Start.X, t.End.Y-t.Start.Y)
}

// Via is a plated hole between copper layers.
type Via struct {
	At     sexp.Position
	Size   float64
	Drill  float64
	Layers []string
	Net    string
}

// Zone is a copper pour. A zone spanning several layers is listed once.
type Zone struct {
	Net     string
	Layers  []string
	Outline []sexp.Position
}

// Routing is the hand-made copper of a board: everything the generator
// does not own and the merge carries over unchanged.
type Routing struct {
	Tracks []Track
	Vias   []Via
	Zones  []Zone
}

// Empty reports whether the board has no routing yet.
func (r *Routing) Empty() bool {
	return len(r.Tracks) == 0 && len(r.Vias) == 0 && len(r.Zones) == 0
}

// Length returns the total track length per net.
func (r *Routing) Length() map[string]float64 {
	out := make(map[string]float64)
	for _, t := range r.Tracks {
		out[t.Net] += t.Length()
	}
	return out
}

// ParseRouting reads the tracks, vias and zones of a board document.
// Net references are resolved to names through the board's net table.
func ParseRouting(doc *kicadsexp.List) (*Routing, error) {
	if doc.Key() != "kicad_pcb" {
		return nil, fmt.Errorf("pcb: expected kicad_pcb, got %q", doc.Key())
	}
	nets := netTable(doc)
	r := &Routing{}

	for _, node := range sexp.FindAllNodes(doc, "segment") {
		t, err := parseTrack(node, nets)
		if err != nil {
			return nil, fmt.Errorf("pcb: segment: %w", err)
		}
		r.Tracks = append(r.Tracks, t)
	}
	for _, node := range sexp.FindAllNodes(doc, "via") {
		v, err := parseVia(node, nets)
		if err != nil {
			return nil, fmt.Errorf("pcb: via: %w", err)
		}
		r.Vias = append(r.Vias, v)
	}
	for _, node := range sexp.FindAllNodes(doc, "zone") {
		r.Zones = append(r.Zones, parseZone(node, nets))
	}
	return r, nil
}

// netTable maps net numbers to names from the top-level (net N "name") list.
func netTable(doc *kicadsexp.List) map[int]string {
	nets := make(map[int]string)
	for _, n := range sexp.FindAllNodes(doc, "net") {
		num, err := sexp.GetInt(n, 1)
		if err != nil {
			continue
		}
		name, _ := sexp.GetString(n, 2)
		nets[num] = name
	}
	return nets
}

// netOf resolves a (net ...) child, numbered (KiCad 8) or named (KiCad 9).
func netOf(node *kicadsexp.List, nets map[int]string) string {
	n, ok := sexp.FindNode(node, "net")
	if !ok {
		return ""
	}
	if num, err := sexp.GetInt(n, 1); err == nil {
		return nets[num]
	}
	name, _ := sexp.GetString(n, 1)
	return name
}

func point(node *kicadsexp.List, key string) (sexp.Position, error) {
	n, ok := sexp.FindNode(node, key)
	if !ok {
		return sexp.Position{}, fmt.Errorf("missing required %q", key)
	}
	x, err := sexp.GetFloat(n, 1)
	if err != nil {
		return sexp.Position{}, fmt.Errorf("%s: %w", key, err)
	}
	y, err := sexp.GetFloat(n, 2)
	if err != nil {
		return sexp.Position{}, fmt.Errorf("%s: %w", key, err)
	}
	return sexp.Position{X: x, Y: y}, nil
}

func parseTrack(node *kicadsexp.List, nets map[int]string) (Track, error) {
	t := Track{Width: 0.15, Net: netOf(node, nets)}
	var err error
	if t.Start, err = point(node, "start"); err != nil {
		return t, err
	}
	if t.End, err = point(node, "end"); err != nil {
		return t, err
	}
	if w, ok := sexp.FindNode(node, "width"); ok {
		if v, err := sexp.GetFloat(w, 1); err == nil {
			t.Width = v
		}
	}
	layer, ok := sexp.FindNode(node, "layer")
	if !ok {
		return t, fmt.Errorf("missing required \"layer\"")
	}
	t.Layer, _ = sexp.GetString(layer, 1)
	// (locked) in KiCad 7, (locked yes) in KiCad 8
	if l, ok := sexp.FindNode(node, "locked"); ok {
		v, _ := sexp.GetString(l, 1)
		t.Locked = v != "no"
	}
	t.Locked = t.Locked || sexp.HasSymbol(node, "locked")
	return t, nil
}

func parseVia(node *kicadsexp.List, nets map[int]string) (Via, error) {
	v := Via{Net: netOf(node, nets)}
	var err error
	if v.At, err = point(node, "at"); err != nil {
		return v, err
	}
	if s, ok := sexp.FindNode(node, "size"); ok {
		v.Size, _ = sexp.GetFloat(s, 1)
	}
	if d, ok := sexp.FindNode(node, "drill"); ok {
		v.Drill, _ = sexp.GetFloat(d, 1)
	}
	v.Layers = layerNames(node)
	return v, nil
}

func parseZone(node *kicadsexp.List, nets map[int]string) Zone {
	z := Zone{Net: netOf(node, nets), Layers: layerNames(node)}
	if poly, ok := sexp.FindNode(node, "polygon"); ok {
		if pts, ok := sexp.FindNode(poly, "pts"); ok {
			for _, xy := range sexp.FindAllNodes(pts, "xy") {
				x, errX := sexp.GetFloat(xy, 1)
				y, errY := sexp.GetFloat(xy, 2)
				if errX == nil && errY == nil {
					z.Outline = append(z.Outline, sexp.Position{X: x, Y: y})
				}
			}
		}
	}
	return z
}

// layerNames reads (layer "X") or (layers "A" "B").
func layerNames(node *kicadsexp.List) []string {
	if l, ok := sexp.FindNode(node, "layers"); ok {
		var out []string
		for _, it := range sexp.GetListItems(l) {
			if it.IsLeaf() {
				out = append(out, it.String())
			}
		}
		return out
	}
	if l, ok := sexp.FindNode(node, "layer"); ok {
		if name, err := sexp.GetString(l, 1); err == nil {
			return []string{name}
		}
	}
	return nil
}
