package project

import (
	"errors"
	"strings"

	"github.com/OpenTraceLab/kibuild/pkg/kicad/cli"
	"github.com/OpenTraceLab/kibuild/pkg/netgraph"
)

// Options controls what Generate produces.
type Options struct {
	// Output
	BuildDir  string // directory receiving every generated file (default: "build")
	Board     bool   // write <name>.kicad_pcb (default: true)
	AutoPlace bool   // lay out footprints left at the origin (default: true)
	NetJSON   bool   // write <name>.nets.json with the net graph (default: false)

	// Checks
	ERC           bool // run the built-in pin-type check before writing (default: true)
	FailOnWarning bool // treat ERC warnings as failures (default: false)

	// Naming
	NetPrefix string // prefix of synthesized net names (default: "net")

	// Libraries
	SymbolDirs    []string
	FootprintDirs []string

	// kicad-cli steps; BOM and ExternalERC require CLI
	CLI             *cli.CLI
	Netlist         bool // export the KiCad netlist, natively when CLI is nil
	BOM             bool // export a CSV bill of materials
	ExternalERC     bool // run KiCad's own ERC on the written schematic
	ShowAllWarnings bool // report external ERC warnings, not only errors
}

// DefaultOptions returns Options with sensible defaults for most use cases.
func DefaultOptions() *Options {
	return &Options{
		BuildDir:  "build",
		Board:     true,
		AutoPlace: true,
		ERC:       true,
		NetPrefix: netgraph.DefaultPrefix,
	}
}

// Validate fills unset fields and rejects contradictory settings.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.BuildDir) == "" {
		o.BuildDir = "build"
	}
	if o.NetPrefix == "" {
		o.NetPrefix = netgraph.DefaultPrefix
	}
	if (o.BOM || o.ExternalERC) && (o.CLI == nil || o.CLI.Path == "") {
		return errors.New("project: BOM and external ERC need kicad-cli")
	}
	return nil
}
