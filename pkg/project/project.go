// Package project ties components, nets, schematics and the board of one
// design together and generates the KiCad files for it.
package project

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/kibuild/internal/report"
	"github.com/OpenTraceLab/kibuild/pkg/circuit"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/library"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/schematic"
	"github.com/OpenTraceLab/kibuild/pkg/netgraph"
	"github.com/OpenTraceLab/kibuild/pkg/refdes"
)

// ErrERCFailed is returned by Generate when a rules check reports errors.
var ErrERCFailed = errors.New("ERC failed")

// Project is one design: a root schematic, its sheets and one board.
type Project struct {
	Name string

	opts   *Options
	rep    *report.Reporter
	lib    *library.Library
	alloc  *refdes.Allocator
	graph  *netgraph.Builder
	root   *schematic.Schematic
	board  *pcb.Board
	sheets []*Sheet

	components []*circuit.Component
	uuids      map[string]bool
}

// New creates a project. A nil opts uses DefaultOptions; a nil rep discards
// progress output.
func New(name string, opts *Options, rep *report.Reporter) (*Project, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if rep == nil {
		rep = report.New(io.Discard)
	}
	board := pcb.New(name)
	board.AutoPlace = opts.AutoPlace
	return &Project{
		Name:  name,
		opts:  opts,
		rep:   rep,
		lib:   library.New(opts.SymbolDirs, opts.FootprintDirs),
		alloc: refdes.New(),
		graph: netgraph.New(netgraph.WithPrefix(opts.NetPrefix)),
		root:  schematic.New(name),
		board: board,
		uuids: make(map[string]bool),
	}, nil
}

// Graph returns the net graph of the project.
func (p *Project) Graph() *netgraph.Builder { return p.graph }

// Root returns the root schematic.
func (p *Project) Root() *schematic.Schematic { return p.root }

// Board returns the board.
func (p *Project) Board() *pcb.Board { return p.board }

// Library returns the symbol and footprint library lookup.
func (p *Project) Library() *library.Library { return p.lib }

// Components returns every component in creation order.
func (p *Project) Components() []*circuit.Component {
	return append([]*circuit.Component(nil), p.components...)
}

// Component creates a component on the root schematic and the board.
func (p *Project) Component(opts circuit.Options) (*circuit.Component, error) {
	return p.add(p.root, opts)
}

func (p *Project) add(sch *schematic.Schematic, opts circuit.Options) (*circuit.Component, error) {
	if opts.UUID == "" {
		opts.UUID = p.stableUUID(opts.Reference)
	}
	c, err := circuit.New(p.alloc, opts)
	if err != nil {
		return nil, err
	}
	if was, ok := c.Renamed(); ok {
		p.rep.Noticef("%s already used, %s is now %s", was, opts.Symbol, c.Reference())
	}
	p.components = append(p.components, c)
	// vias only exist on the board
	if !c.Via() {
		sch.Add(c)
	}
	p.board.Place(c)
	return c, nil
}

// stableUUID derives a component UUID from the project name and the
// requested reference, so a rebuild finds the same footprints on the board.
// Parts without a reference are keyed by creation order.
func (p *Project) stableUUID(ref string) string {
	key := ref
	if key == "" {
		key = fmt.Sprintf("#%d", len(p.components)+1)
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("kibuild/"+p.Name+"/"+key)).String()
	for n := 2; p.uuids[id]; n++ {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("kibuild/%s/%s/%d", p.Name, key, n))).String()
	}
	p.uuids[id] = true
	return id
}

// Net connects pins under name. An empty name lets the graph pick one.
func (p *Project) Net(name string, pins ...*circuit.Pin) error {
	return p.graph.Union(name, pins...)
}

// Connect connects pins without naming the net.
func (p *Project) Connect(pins ...*circuit.Pin) error {
	return p.graph.Connect(pins...)
}

// NoConnect marks pins as intentionally unconnected.
func (p *Project) NoConnect(pins ...*circuit.Pin) error {
	return p.graph.NoConnect(pins...)
}

// Bus connects the matching signals of two bundles; net names are
// prefix_SIGNAL.
func (p *Project) Bus(prefix string, x, y circuit.Bus) error {
	return p.graph.ConnectBus(prefix, x, y)
}

// Power declares a supply for rail and ties its pins to the rail's nets.
func (p *Project) Power(rail circuit.Rail, supply, ground *circuit.Pin) (circuit.Power, error) {
	pwr := circuit.NewPower(supply, ground)
	if err := p.graph.Union(rail.SupplyNet(), supply); err != nil {
		return pwr, err
	}
	if err := p.graph.Union(rail.GroundNet(), ground); err != nil {
		return pwr, err
	}
	return pwr, nil
}

// Sheet is a hierarchical sheet of the project.
type Sheet struct {
	p     *Project
	sheet *schematic.Sheet
}

// Sheet returns the sheet called name, creating it and its schematic file
// on first use.
func (p *Project) Sheet(name string) *Sheet {
	for _, s := range p.sheets {
		if s.sheet.Name == name {
			return s
		}
	}
	child := schematic.New(fmt.Sprintf("%s_%s", p.Name, name))
	sh := schematic.NewSheet(name, child)
	p.root.AddSheet(sh)
	s := &Sheet{p: p, sheet: sh}
	p.sheets = append(p.sheets, s)
	return s
}

// Name returns the sheet name.
func (s *Sheet) Name() string { return s.sheet.Name }

// Component creates a component on the sheet and the board.
func (s *Sheet) Component(opts circuit.Options) (*circuit.Component, error) {
	return s.p.add(s.sheet.Schematic, opts)
}

// Hier exposes pins through a sheet port called name and returns the
// port, which the parent connects like any other pin.
func (s *Sheet) Hier(name string, typ circuit.PinType, pins ...*circuit.Pin) (*circuit.Pin, error) {
	port := s.sheet.Port(name, typ)
	if len(pins) == 0 {
		return port, nil
	}
	if err := s.p.graph.Connect(append([]*circuit.Pin{port}, pins...)...); err != nil {
		return nil, fmt.Errorf("project: sheet %s port %s: %w", s.sheet.Name, name, err)
	}
	return port, nil
}
