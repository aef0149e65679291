package pcb

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/kibuild/pkg/circuit"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/library"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
)

// footprint is the merge entity of one placed component.
type footprint struct {
	c     *circuit.Component
	lib   *library.Library
	at    sexp.PositionAngle
	def   *library.FootprintDef
	fresh bool // node came from Template, not from the existing board
}

func (f *footprint) UUID() string { return f.c.UUID() }

func (f *footprint) resolve() (*library.FootprintDef, error) {
	if f.def != nil {
		return f.def, nil
	}
	if f.lib == nil {
		return nil, fmt.Errorf("footprint %s of %s: no library configured", f.c.Footprint(), f.c.Reference())
	}
	def, err := f.lib.Footprint(f.c.Footprint())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.c.Reference(), err)
	}
	f.def = def
	return def, nil
}

func (f *footprint) Template() (*kicadsexp.List, error) {
	def, err := f.resolve()
	if err != nil {
		return nil, err
	}
	f.fresh = true
	return def.Template(), nil
}

// Update writes identity, placement and fields into a footprint node.
// A footprint already on the board keeps the position it has there unless
// the component carries an explicit placement. Pad rotations are derived
// from the library footprint, so repeated updates do not accumulate.
func (f *footprint) Update(node *kicadsexp.List) error {
	def, err := f.resolve()
	if err != nil {
		return err
	}
	c := f.c

	node.Set(1, kicadsexp.String(c.Footprint()))
	setIdentity(node, c.UUID())

	at := f.at
	old, hasAt := sexp.FindNode(node, "at")
	if hasAt && !f.fresh && c.PCB() == (circuit.Placement{}) {
		if pos, err := sexp.GetPosition(old); err == nil {
			at = pos
		}
	} else {
		sexp.SetChild(node, sexp.AtNode(at), sexp.FindIndex(node, "uuid")+1)
	}

	for _, p := range c.Properties() {
		if !sexp.SetProperty(node, p.Name, p.Value) {
			node.Insert(propertyInsertIndex(node), hiddenProperty(p))
		}
	}

	for _, t := range sexp.FindAllNodes(node, "fp_text") {
		kind, _ := sexp.GetString(t, 1)
		switch kind {
		case "reference":
			t.Set(2, kicadsexp.String(c.Reference()))
		case "value":
			t.Set(2, kicadsexp.String(c.Value()))
		}
	}

	padAngle := make(map[string]float64, len(def.Pads))
	for _, p := range def.Pads {
		padAngle[p.Number] = float64(p.Position.Angle)
	}
	for _, pad := range sexp.FindAllNodes(node, "pad") {
		num, _ := sexp.GetString(pad, 1)
		padAt, ok := sexp.FindNode(pad, "at")
		if !ok {
			continue
		}
		setAngle(padAt, normalizeAngle(padAngle[num]+float64(at.Angle)))
	}

	setAttrFlag(node, "dnp", c.DNP())
	rekey(node, c.UUID())
	return nil
}

// setIdentity writes the footprint's (uuid ...) after its layer. Boards saved
// by KiCad 6/7 identify footprints with a top-level (tstamp ...); it is
// turned into uuid in place so the node never carries both.
func setIdentity(node *kicadsexp.List, id string) {
	if i := sexp.FindIndex(node, "tstamp"); i >= 0 {
		if sexp.FindIndex(node, "uuid") >= 0 {
			node.Remove(i)
		} else {
			node.Set(i, sexp.UUIDNode(id))
			return
		}
	}
	idx := sexp.FindIndex(node, "layer")
	if idx < 0 {
		idx = 1
	}
	sexp.SetChild(node, sexp.UUIDNode(id), idx+1)
}

// rekey replaces the uuids nested inside a footprint (properties, pads,
// graphics) with ones derived from the owner's uuid. Library footprints carry
// fixed uuids that would otherwise repeat for every instance on the board.
func rekey(node *kicadsexp.List, owner string) {
	n := 0
	var walk func(l *kicadsexp.List)
	walk = func(l *kicadsexp.List) {
		for i, it := range l.Items() {
			sub, ok := it.(*kicadsexp.List)
			if !ok {
				continue
			}
			if sub.Key() == "uuid" || sub.Key() == "tstamp" {
				n++
				id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(owner+"/"+strconv.Itoa(n)))
				l.Set(i, kicadsexp.Node(sub.Key(), kicadsexp.String(id.String())))
				continue
			}
			walk(sub)
		}
	}
	for _, it := range node.Items() {
		if sub, ok := it.(*kicadsexp.List); ok && sub.Key() != "uuid" && sub.Key() != "tstamp" {
			walk(sub)
		}
	}
}

func propertyInsertIndex(node *kicadsexp.List) int {
	idx := -1
	for i, it := range node.Items() {
		if sub, ok := it.(*kicadsexp.List); ok && sub.Key() == "property" {
			idx = i
		}
	}
	if idx < 0 {
		idx = sexp.FindIndex(node, "at")
	}
	return idx + 1
}

func hiddenProperty(p circuit.Property) *kicadsexp.List {
	return kicadsexp.Node("property", kicadsexp.String(p.Name), kicadsexp.String(p.Value),
		kicadsexp.Node("at", kicadsexp.Num(0), kicadsexp.Num(0), kicadsexp.Num(0)),
		kicadsexp.Node("layer", kicadsexp.String("F.Fab")),
		kicadsexp.Node("hide", kicadsexp.Bool(true)),
		kicadsexp.Node("effects",
			kicadsexp.Node("font",
				kicadsexp.Node("size", kicadsexp.Num(1), kicadsexp.Num(1)),
				kicadsexp.Node("thickness", kicadsexp.Num(0.15)))),
	)
}

// setAngle sets the rotation of an (at x y [angle] ...) node.
func setAngle(at *kicadsexp.List, angle float64) {
	if at.Len() > 3 {
		if _, err := strconv.ParseFloat(at.Get(3).String(), 64); err == nil {
			at.Set(3, kicadsexp.Num(angle))
			return
		}
	}
	at.Insert(3, kicadsexp.Num(angle))
}

// setAttrFlag adds or removes a bare flag in the footprint's (attr ...) node.
func setAttrFlag(node *kicadsexp.List, flag string, on bool) {
	attr, ok := sexp.FindNode(node, "attr")
	if !ok {
		if !on {
			return
		}
		attr = kicadsexp.Node("attr")
		node.Insert(propertyInsertIndex(node), attr)
	}
	first := true
	attr.Filter(func(s kicadsexp.Sexp) bool {
		if first {
			first = false
			return true
		}
		sym, ok := s.(kicadsexp.Symbol)
		return !ok || string(sym) != flag
	})
	if on {
		attr.Append(kicadsexp.Symbol(flag))
	}
}
