// Package pcb generates KiCad board documents from components.
//
// Boards are merged against the previous file so that tracks, zones and
// other work done in the board editor survive regeneration; only the
// footprints of the current build and the board group are rewritten.
package pcb

import (
	"fmt"
	"path/filepath"

	"github.com/OpenTraceLab/kibuild/pkg/circuit"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/library"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/merge"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
)

// Version is the board file format written for new boards (KiCad 8).
const Version = 20240108

// autoPlaceGap is the spacing between auto-placed footprints in mm.
const autoPlaceGap = 2.0

// Board collects the components placed on one board file.
type Board struct {
	Name string
	// AutoPlace lays out footprints without a placement in a row, so a
	// fresh board does not open with every part stacked on one point.
	// Only footprints new to the board take the computed position.
	AutoPlace bool

	components []*circuit.Component
}

// Result describes one board write.
type Result struct {
	*merge.Result
	Path    string
	Skipped []string // designators without a footprint
	Routing *Routing // copper carried over from the previous board
}

// New creates an empty board.
func New(name string) *Board {
	return &Board{Name: name}
}

// Place adds components to the board. Placing a component twice is a no-op.
func (b *Board) Place(components ...*circuit.Component) {
	for _, c := range components {
		if c == nil || b.placed(c) {
			continue
		}
		b.components = append(b.components, c)
	}
}

func (b *Board) placed(c *circuit.Component) bool {
	for _, have := range b.components {
		if have == c {
			return true
		}
	}
	return false
}

// Components returns the placed components in placement order.
func (b *Board) Components() []*circuit.Component {
	return append([]*circuit.Component(nil), b.components...)
}

// Empty returns a minimal board document.
func Empty() *kicadsexp.List {
	return kicadsexp.Node("kicad_pcb",
		kicadsexp.Node("version", kicadsexp.Int(Version)),
		kicadsexp.Node("generator", kicadsexp.String("kibuild")),
		kicadsexp.Node("generator_version", kicadsexp.String("1.0")),
		kicadsexp.Node("general",
			kicadsexp.Node("thickness", kicadsexp.Num(1.6)),
			kicadsexp.Node("legacy_teardrops", kicadsexp.Bool(false))),
		kicadsexp.Node("paper", kicadsexp.String("A4")),
	)
}

// Entities builds the merge entities for the placed components. Components
// without a footprint are skipped and reported; a footprint that cannot be
// resolved is an error.
func (b *Board) Entities(lib *library.Library) ([]merge.Entity, []string, error) {
	var (
		entities []merge.Entity
		skipped  []string
		cursor   float64
	)
	for _, c := range b.components {
		if c.Footprint() == "" {
			skipped = append(skipped, c.Reference())
			continue
		}
		fp := &footprint{c: c, lib: lib}
		pl := c.PCB()
		fp.at = sexp.PositionAngle{Position: sexp.Position{X: pl.X, Y: pl.Y}, Angle: sexp.Angle(normalizeAngle(pl.Rotation))}

		if b.AutoPlace && pl == (circuit.Placement{}) {
			def, err := fp.resolve()
			if err != nil {
				return nil, nil, err
			}
			box := FootprintBounds(def, sexp.PositionAngle{})
			fp.at.X = cursor - box.Min.X
			fp.at.Y = -box.Min.Y
			cursor += box.Width() + autoPlaceGap
		}
		entities = append(entities, fp)
	}
	return entities, skipped, nil
}

// Spec returns the merge description of a board with the given members in
// the board group.
func (b *Board) Spec(members []string) merge.Spec {
	return merge.Spec{
		Root:       "kicad_pcb",
		EntityKind: "footprint",
		Empty:      Empty,
		Groups:     []merge.Group{{Name: b.Name, Members: members}},
	}
}

// Write merges the board into dir/<Name>.kicad_pcb.
func (b *Board) Write(dir string, lib *library.Library) (*Result, error) {
	entities, skipped, err := b.Entities(lib)
	if err != nil {
		return nil, fmt.Errorf("pcb: %s: %w", b.Name, err)
	}
	members := make([]string, 0, len(entities))
	for _, e := range entities {
		members = append(members, e.UUID())
	}

	path := filepath.Join(dir, b.Name+".kicad_pcb")
	res, err := merge.WriteFile(path, b.Spec(members), entities)
	if err != nil {
		return nil, fmt.Errorf("pcb: %s: %w", b.Name, err)
	}
	routing, err := ParseRouting(res.Doc)
	if err != nil {
		// the board is already saved
		res.Warnings = append(res.Warnings, err.Error())
		routing = &Routing{}
	}
	return &Result{Result: res, Path: path, Skipped: skipped, Routing: routing}, nil
}
