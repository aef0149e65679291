package schematic

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/kibuild/pkg/circuit"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/library"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
	"github.com/OpenTraceLab/kibuild/pkg/netgraph"
)

// LabelKind selects how a net is named on one schematic.
type LabelKind int

const (
	// LocalLabel names a net that stays on one schematic.
	LocalLabel LabelKind = iota
	// GlobalLabel names a net that reaches components on several schematics.
	GlobalLabel
	// HierLabel names a net that leaves a sheet through one of its ports.
	HierLabel
)

func (k LabelKind) keyword() string {
	switch k {
	case GlobalLabel:
		return "global_label"
	case HierLabel:
		return "hierarchical_label"
	}
	return "label"
}

// labelKind decides how net is labelled on s. via is the sheet holding s.
// The returned text is the port name for hierarchical labels and the net
// name otherwise.
func labelKind(c *ctx, net netgraph.Net, s *Schematic, via *Sheet) (LabelKind, string) {
	owners := make(map[*Schematic]bool)
	for _, p := range net.Pins {
		if p.IsPort() {
			if via != nil && c.ports[p] == via {
				return HierLabel, via.shortName(p)
			}
			continue
		}
		if o, ok := c.owner[p.Owner()]; ok {
			owners[o] = true
		}
	}
	for _, p := range net.Pins {
		// a net that reaches a child sheet is carried by the sheet pin
		if sh, ok := c.ports[p]; ok && sh.parent == s {
			owners[sh.Schematic] = true
		}
	}
	if len(owners) > 1 {
		return GlobalLabel, net.Name
	}
	return LocalLabel, net.Name
}

// shape maps a pin type to the label shape KiCad shows for it.
func shape(t circuit.PinType) string {
	switch t {
	case circuit.Input:
		return "input"
	case circuit.Output, circuit.PowerOut:
		return "output"
	case circuit.Bidirectional:
		return "bidirectional"
	case circuit.TriState:
		return "tri_state"
	}
	return "passive"
}

// labelOrientation places the label text away from the symbol body.
func labelOrientation(pinAngle float64) (float64, []string) {
	switch int(math.Round(pinAngle)) % 360 {
	case 0:
		return 0, []string{"right", "bottom"}
	case 90:
		return 0, []string{"right", "top"}
	case 270, -90:
		return 180, []string{"right", "bottom"}
	}
	return 0, []string{"left", "bottom"}
}

func labelNode(kind LabelKind, text string, t circuit.PinType, a pinAnchor, id string) *kicadsexp.List {
	angle, justify := labelOrientation(a.angle)
	node := kicadsexp.Node(kind.keyword(), kicadsexp.String(text))
	if kind != LocalLabel {
		node.Append(kicadsexp.Node("shape", kicadsexp.Symbol(shape(t))))
	}
	node.Append(
		sexp.AtNode(sexp.PositionAngle{Position: a.Position, Angle: sexp.Angle(angle)}),
		kicadsexp.Node("fields_autoplaced", kicadsexp.Bool(true)),
		effects(false, justify...),
		sexp.UUIDNode(id),
	)
	if kind == GlobalLabel {
		node.Append(kicadsexp.Node("property",
			kicadsexp.String("Intersheetrefs"), kicadsexp.String("${INTERSHEET_REFS}"),
			sexp.AtNode(sexp.PositionAngle{Position: a.Position}),
			effects(true)))
	}
	return node
}

func noConnectNode(a pinAnchor, id string) *kicadsexp.List {
	return kicadsexp.Node("no_connect",
		kicadsexp.Node("at", kicadsexp.Num(a.X), kicadsexp.Num(a.Y)),
		sexp.UUIDNode(id))
}

// labels emits a label at every placed pin of s that sits on a named net,
// and a no-connect marker on pins that were explicitly left open.
func (s *Schematic) labels(c *ctx, symbols map[*circuit.Component]*library.SymbolDef, placed map[*circuit.Component]sexp.Position, via *Sheet) []kicadsexp.Sexp {
	var out []kicadsexp.Sexp
	for _, net := range c.nets {
		kind, text := labelKind(c, net, s, via)
		for _, p := range net.Pins {
			if p.IsPort() {
				continue
			}
			comp := p.Owner()
			def, ok := symbols[comp]
			if !ok {
				continue
			}
			a, ok := anchor(def, placed[comp], p.Number())
			if !ok {
				c.res.Warnings = append(c.res.Warnings,
					fmt.Sprintf("%s: pin %s not found in symbol %s", comp.Reference(), p.Number(), def.LibID))
				continue
			}
			id := stableUUID(s.UUID, "label", p.Key())
			switch {
			case len(net.Pins) == 1 && p.Type() == circuit.NoConnect:
				out = append(out, noConnectNode(a, id))
			case len(net.Pins) == 1 && !net.Explicit && kind == LocalLabel:
				// nothing else to reach
			default:
				out = append(out, labelNode(kind, text, p.Type(), a, id))
			}
		}
	}
	return out
}

// sheetLabels ties each connected sheet pin to its net on the parent.
func (s *Schematic) sheetLabels(c *ctx, sheet *Sheet, via *Sheet, at sexp.Position) []kicadsexp.Sexp {
	var out []kicadsexp.Sexp
	for _, net := range c.nets {
		for _, p := range net.Pins {
			if c.ports[p] != sheet {
				continue
			}
			kind, text := labelKind(c, net, s, via)
			a := pinAnchor{Position: sheet.pinPosition(at, p), angle: 0}
			out = append(out, labelNode(kind, text, p.Type(), a, stableUUID(s.UUID, "sheet-label", sheet.UUID, p.Key())))
		}
	}
	return out
}
