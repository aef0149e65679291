package schematic

import (
	"math"
	"strings"

	"github.com/OpenTraceLab/kibuild/pkg/circuit"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/library"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
)

const (
	fontSize   = 1.27
	autoOrigin = 25.4
	autoStep   = 25.4
	autoCols   = 6
)

// layout returns the sheet position of every component. Components without
// a requested position are laid out on a grid in the order they were added.
func (s *Schematic) layout() map[*circuit.Component]sexp.Position {
	placed := make(map[*circuit.Component]sexp.Position, len(s.components))
	auto := 0
	for _, comp := range s.components {
		if p, ok := comp.SchematicPosition(); ok {
			placed[comp] = sexp.Position{X: p.X, Y: p.Y}.SnapToGrid()
			continue
		}
		placed[comp] = sexp.Position{
			X: autoOrigin + float64(auto%autoCols)*autoStep,
			Y: autoOrigin + float64(auto/autoCols)*autoStep,
		}.SnapToGrid()
		auto++
	}
	return placed
}

func font() *kicadsexp.List {
	return kicadsexp.Node("font", kicadsexp.Node("size", kicadsexp.Num(fontSize), kicadsexp.Num(fontSize)))
}

func effects(hidden bool, justify ...string) *kicadsexp.List {
	e := kicadsexp.Node("effects", font())
	if len(justify) > 0 {
		j := kicadsexp.Node("justify")
		for _, v := range justify {
			j.Append(kicadsexp.Symbol(v))
		}
		e.Append(j)
	}
	if hidden {
		e.Append(kicadsexp.Node("hide", kicadsexp.Bool(true)))
	}
	return e
}

// symbolInstance places comp on the sheet. Fields sit at the offsets the
// library symbol gives them; everything except Reference and Value is hidden.
func symbolInstance(comp *circuit.Component, def *library.SymbolDef, at sexp.Position, project, path string) *kicadsexp.List {
	onBoard := !strings.HasPrefix(comp.Reference(), "#")

	node := kicadsexp.Node("symbol",
		kicadsexp.Node("lib_id", kicadsexp.String(def.LibID)),
		sexp.AtNode(sexp.PositionAngle{Position: at}),
		kicadsexp.Node("unit", kicadsexp.Int(1)),
		kicadsexp.Node("exclude_from_sim", kicadsexp.Bool(!comp.Simulation().Include)),
		kicadsexp.Node("in_bom", kicadsexp.Bool(onBoard)),
		kicadsexp.Node("on_board", kicadsexp.Bool(onBoard)),
		kicadsexp.Node("dnp", kicadsexp.Bool(comp.DNP())),
		sexp.UUIDNode(comp.UUID()),
	)

	libProps := make(map[string]sexp.Property, len(def.Properties))
	for _, p := range def.Properties {
		libProps[p.Key] = p
	}
	for _, p := range comp.Properties() {
		pos := sexp.PositionAngle{Position: at}
		hidden := p.Name != "Reference" && p.Name != "Value"
		if lp, ok := libProps[p.Name]; ok {
			pos = sexp.PositionAngle{
				Position: sexp.Position{X: round(at.X + lp.Position.X), Y: round(at.Y - lp.Position.Y)},
				Angle:    lp.Position.Angle,
			}
			hidden = hidden || lp.Hidden
		}
		node.Append(kicadsexp.Node("property",
			kicadsexp.String(p.Name), kicadsexp.String(p.Value),
			sexp.AtNode(pos), effects(hidden)))
	}

	for _, pin := range def.Pins {
		node.Append(kicadsexp.Node("pin", kicadsexp.String(pin.Number),
			sexp.UUIDNode(stableUUID(comp.UUID(), "pin", pin.Number))))
	}

	node.Append(kicadsexp.Node("instances",
		kicadsexp.Node("project", kicadsexp.String(project),
			kicadsexp.Node("path", kicadsexp.String(path),
				kicadsexp.Node("reference", kicadsexp.String(comp.Reference())),
				kicadsexp.Node("unit", kicadsexp.Int(1))))))
	return node
}

// pinAnchor is the sheet position of a pin's connection point and the
// direction the pin points, in symbol degrees.
type pinAnchor struct {
	sexp.Position
	angle float64
}

func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func anchor(def *library.SymbolDef, at sexp.Position, number string) (pinAnchor, bool) {
	pd, ok := def.Pin(number)
	if !ok {
		return pinAnchor{}, false
	}
	return pinAnchor{
		Position: sexp.Position{X: round(at.X + pd.Position.X), Y: round(at.Y - pd.Position.Y)},
		angle:    float64(pd.Position.Angle),
	}, true
}
