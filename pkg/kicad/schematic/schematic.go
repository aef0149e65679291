// Package schematic generates KiCad schematic documents.
//
// Schematics are regenerated from scratch on every build. Components are
// drawn from their library symbols, connectivity is expressed with labels at
// the pin positions (no wires are routed), and hierarchical sheets are tied
// to their parent through sheet pins and hierarchical labels.
package schematic

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/kibuild/pkg/circuit"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/library"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/merge"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
	"github.com/OpenTraceLab/kibuild/pkg/netgraph"
)

// Version is the schematic file format written (KiCad 8).
const Version = 20231120

// Schematic is one schematic file: the root of a project or the contents of
// a hierarchical sheet.
type Schematic struct {
	Name string
	UUID string

	components []*circuit.Component
	sheets     []*Sheet
}

// New creates a schematic. Its UUID is derived from the name so that
// regenerating an unchanged design produces an identical file.
func New(name string) *Schematic {
	return &Schematic{Name: name, UUID: stableUUID("schematic", name)}
}

func stableUUID(parts ...string) string {
	key := "kibuild"
	for _, p := range parts {
		key += "/" + p
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// Add puts components on the schematic. Adding a component twice is a no-op.
func (s *Schematic) Add(components ...*circuit.Component) {
	for _, c := range components {
		if c == nil || s.Contains(c) {
			continue
		}
		s.components = append(s.components, c)
	}
}

// Contains reports whether c was added to this schematic.
func (s *Schematic) Contains(c *circuit.Component) bool {
	for _, have := range s.components {
		if have == c {
			return true
		}
	}
	return false
}

// Components returns the components in the order they were added.
func (s *Schematic) Components() []*circuit.Component {
	return append([]*circuit.Component(nil), s.components...)
}

// Sheets returns the direct child sheets.
func (s *Schematic) Sheets() []*Sheet {
	return append([]*Sheet(nil), s.sheets...)
}

// Output is a generated schematic file.
type Output struct {
	Path string
	Doc  *kicadsexp.List
}

// Result collects the files of one generation and its warnings.
type Result struct {
	Files    []Output
	Warnings []string
}

// ctx carries what every file of one project needs.
type ctx struct {
	project string
	lib     *library.Library
	nets    []netgraph.Net
	owner   map[*circuit.Component]*Schematic
	ports   map[*circuit.Pin]*Sheet
	done    map[*Schematic]bool
	page    int
	res     *Result
}

// Generate builds the root schematic and every sheet below it. A symbol that
// cannot be found in the library is an error; a pin missing from its symbol
// only produces a warning.
func (s *Schematic) Generate(lib *library.Library, graph *netgraph.Builder) (*Result, error) {
	c := &ctx{
		project: s.Name,
		lib:     lib,
		nets:    graph.Nets(),
		owner:   make(map[*circuit.Component]*Schematic),
		ports:   make(map[*circuit.Pin]*Sheet),
		done:    make(map[*Schematic]bool),
		page:    1,
		res:     &Result{},
	}
	s.walk(func(sch *Schematic) {
		for _, comp := range sch.components {
			if _, ok := c.owner[comp]; !ok {
				c.owner[comp] = sch
			}
		}
		for _, sheet := range sch.sheets {
			for _, p := range sheet.ports {
				c.ports[p.pin] = sheet
			}
		}
	})
	if err := s.generate(c, "/"+s.UUID, nil); err != nil {
		return nil, err
	}
	return c.res, nil
}

func (s *Schematic) walk(fn func(*Schematic)) {
	fn(s)
	for _, sh := range s.sheets {
		sh.Schematic.walk(fn)
	}
}

// generate emits s and recurses into its sheets. path is the instance path
// of s; via is the sheet that holds s, nil for the root.
func (s *Schematic) generate(c *ctx, path string, via *Sheet) error {
	if c.done[s] {
		c.res.Warnings = append(c.res.Warnings,
			fmt.Sprintf("schematic %s is used by more than one sheet; only the first instance is annotated", s.Name))
		return nil
	}
	c.done[s] = true

	doc := kicadsexp.Node("kicad_sch",
		kicadsexp.Node("version", kicadsexp.Int(Version)),
		kicadsexp.Node("generator", kicadsexp.String("kibuild")),
		kicadsexp.Node("generator_version", kicadsexp.String("1.0")),
		sexp.UUIDNode(s.UUID),
		kicadsexp.Node("paper", kicadsexp.String("A4")),
	)

	libSymbols := kicadsexp.Node("lib_symbols")
	doc.Append(libSymbols)
	seen := make(map[string]bool)

	placed := s.layout()
	symbols := make(map[*circuit.Component]*library.SymbolDef)
	for _, comp := range s.components {
		if c.owner[comp] != s || comp.Symbol() == "" {
			continue
		}
		if c.lib == nil {
			return fmt.Errorf("schematic: %s: %s: no symbol library configured", s.Name, comp.Reference())
		}
		def, err := c.lib.Symbol(comp.Symbol())
		if err != nil {
			return fmt.Errorf("schematic: %s: %s: %w", s.Name, comp.Reference(), err)
		}
		symbols[comp] = def
		if !seen[def.LibID] {
			seen[def.LibID] = true
			libSymbols.Append(def.Node.Clone())
		}
		doc.Append(symbolInstance(comp, def, placed[comp], c.project, path))
	}

	doc.Append(s.labels(c, symbols, placed, via)...)

	for i, sheet := range s.sheets {
		c.page++
		at := sheet.position(i)
		doc.Append(sheet.node(c.project, path, c.page, at))
		doc.Append(s.sheetLabels(c, sheet, via, at)...)
	}

	if via == nil {
		doc.Append(kicadsexp.Node("sheet_instances",
			kicadsexp.Node("path", kicadsexp.String("/"),
				kicadsexp.Node("page", kicadsexp.String("1")))))
	}

	c.res.Files = append(c.res.Files, Output{Path: s.Name + ".kicad_sch", Doc: doc})

	for _, sheet := range s.sheets {
		if err := sheet.Schematic.generate(c, path+"/"+sheet.UUID, sheet); err != nil {
			return err
		}
	}
	return nil
}

// Write generates the project and saves every file under dir.
func (s *Schematic) Write(dir string, lib *library.Library, graph *netgraph.Builder) (*Result, error) {
	res, err := s.Generate(lib, graph)
	if err != nil {
		return nil, err
	}
	for i := range res.Files {
		res.Files[i].Path = filepath.Join(dir, res.Files[i].Path)
		if err := merge.Save(res.Files[i].Path, res.Files[i].Doc); err != nil {
			return nil, fmt.Errorf("schematic: %w", err)
		}
	}
	return res, nil
}
