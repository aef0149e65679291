package schematic

import (
	"strconv"
	"strings"

	"github.com/OpenTraceLab/kibuild/pkg/circuit"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
)

const (
	sheetWidth = 20.32
	sheetX     = 152.4
	sheetGap   = 5.08
)

// Sheet is a hierarchical sheet block on a parent schematic. Its ports are
// boundary pins that take part in the net graph like component pins.
type Sheet struct {
	Name      string
	UUID      string
	At        *sexp.Position // nil stacks the sheet to the right of the symbols
	Schematic *Schematic

	parent *Schematic
	ports  []sheetPort
}

type sheetPort struct {
	name string
	pin  *circuit.Pin
}

// NewSheet creates a sheet named name showing sch.
func NewSheet(name string, sch *Schematic) *Sheet {
	return &Sheet{Name: name, UUID: stableUUID("sheet", name, sch.Name), Schematic: sch}
}

// AddSheet attaches a hierarchical sheet.
func (s *Schematic) AddSheet(sheet *Sheet) {
	sheet.parent = s
	s.sheets = append(s.sheets, sheet)
}

// Port returns the boundary pin called name, creating it on first use.
// The pin's global name is qualified with the sheet name so ports of
// different sheets never collide.
func (sh *Sheet) Port(name string, typ circuit.PinType) *circuit.Pin {
	for _, p := range sh.ports {
		if p.name == name {
			return p.pin
		}
	}
	pin := circuit.NewPortPin(sh.Name+"/"+name, typ)
	sh.ports = append(sh.ports, sheetPort{name: name, pin: pin})
	return pin
}

// Ports returns the boundary pins in creation order.
func (sh *Sheet) Ports() []*circuit.Pin {
	pins := make([]*circuit.Pin, len(sh.ports))
	for i, p := range sh.ports {
		pins[i] = p.pin
	}
	return pins
}

func (sh *Sheet) shortName(p *circuit.Pin) string {
	for _, sp := range sh.ports {
		if sp.pin == p {
			return sp.name
		}
	}
	return strings.TrimPrefix(p.Name(), sh.Name+"/")
}

func (sh *Sheet) height() float64 {
	return round(float64(len(sh.ports)+1) * sexp.GridMM)
}

// position resolves where the i-th sheet of its parent is drawn.
func (sh *Sheet) position(i int) sexp.Position {
	if sh.At != nil {
		return sh.At.SnapToGrid()
	}
	y := autoOrigin
	for _, prev := range sh.parent.sheets[:i] {
		y = round(y + prev.height() + sheetGap)
	}
	return sexp.Position{X: sheetX, Y: y}.SnapToGrid()
}

// pinPosition returns where port p sits on the left edge of the block.
func (sh *Sheet) pinPosition(at sexp.Position, p *circuit.Pin) sexp.Position {
	for i, sp := range sh.ports {
		if sp.pin == p {
			return sexp.Position{X: at.X, Y: round(at.Y + float64(i+1)*sexp.GridMM)}
		}
	}
	return at
}

func (sh *Sheet) node(project, path string, page int, at sexp.Position) *kicadsexp.List {
	h := sh.height()
	node := kicadsexp.Node("sheet",
		kicadsexp.Node("at", kicadsexp.Num(at.X), kicadsexp.Num(at.Y)),
		kicadsexp.Node("size", kicadsexp.Num(sheetWidth), kicadsexp.Num(h)),
		kicadsexp.Node("fields_autoplaced", kicadsexp.Bool(true)),
		kicadsexp.Node("stroke", kicadsexp.Node("width", kicadsexp.Num(0.1524)), kicadsexp.Node("type", kicadsexp.Symbol("solid"))),
		kicadsexp.Node("fill", kicadsexp.Node("color", kicadsexp.Int(0), kicadsexp.Int(0), kicadsexp.Int(0), kicadsexp.Num(0))),
		sexp.UUIDNode(sh.UUID),
		kicadsexp.Node("property", kicadsexp.String("Sheetname"), kicadsexp.String(sh.Name),
			sexp.AtNode(sexp.PositionAngle{Position: sexp.Position{X: at.X, Y: round(at.Y - 0.7116)}}),
			effects(false, "left", "bottom")),
		kicadsexp.Node("property", kicadsexp.String("Sheetfile"), kicadsexp.String(sh.Schematic.Name+".kicad_sch"),
			sexp.AtNode(sexp.PositionAngle{Position: sexp.Position{X: at.X, Y: round(at.Y + h + 0.5846)}}),
			effects(false, "left", "top")),
	)
	for _, sp := range sh.ports {
		pos := sh.pinPosition(at, sp.pin)
		node.Append(kicadsexp.Node("pin", kicadsexp.String(sp.name), kicadsexp.Symbol(shape(sp.pin.Type())),
			sexp.AtNode(sexp.PositionAngle{Position: pos, Angle: 180}),
			effects(false, "left"),
			sexp.UUIDNode(stableUUID(sh.UUID, "pin", sp.name))))
	}
	node.Append(kicadsexp.Node("instances",
		kicadsexp.Node("project", kicadsexp.String(project),
			kicadsexp.Node("path", kicadsexp.String(path),
				kicadsexp.Node("page", kicadsexp.String(strconv.Itoa(page)))))))
	return node
}
