package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/OpenTraceLab/kibuild/pkg/erc"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/cli"
)

// Result lists what one Generate call produced.
type Result struct {
	ERC        erc.Result
	Schematics []string
	Board      string
	Netlist    string
	BOM        string
	NetJSON    string
	External   *cli.Report
}

// Generate checks the design and writes its files: the built-in ERC runs
// first and stops generation on errors, then the schematics, the board and
// the optional kicad-cli exports follow.
func (p *Project) Generate(ctx context.Context) (*Result, error) {
	res := &Result{}
	dir := p.opts.BuildDir

	for _, m := range p.graph.Merges() {
		p.rep.Noticef("net %s merged into %s", m.Name, m.Into)
	}

	if p.opts.ERC {
		res.ERC = erc.Check(p.graph.Nets())
		for _, v := range res.ERC.Errors {
			p.rep.Errorf("%s", v)
		}
		for _, v := range res.ERC.Warnings {
			p.rep.Warnf("%s", v)
		}
		errs, warns := res.ERC.Counts()
		if errs > 0 || (p.opts.FailOnWarning && warns > 0) {
			return res, fmt.Errorf("%w: %d error(s), %d warning(s)", ErrERCFailed, errs, warns)
		}
	}

	sch, err := p.root.Write(dir, p.lib, p.graph)
	if err != nil {
		return res, err
	}
	for _, w := range sch.Warnings {
		p.rep.Warnf("%s", w)
	}
	for _, f := range sch.Files {
		res.Schematics = append(res.Schematics, f.Path)
		p.rep.Infof("schematic %s", f.Path)
	}

	if p.opts.Board {
		brd, err := p.board.Write(dir, p.lib)
		if err != nil {
			return res, err
		}
		for _, w := range brd.Warnings {
			p.rep.Warnf("%s", w)
		}
		for _, ref := range brd.Skipped {
			p.rep.Noticef("%s has no footprint, left off the board", ref)
		}
		res.Board = brd.Path
		p.rep.Infof("board %s (%d added, %d updated, %d removed)", brd.Path, brd.Added, brd.Updated, brd.Removed)
		if r := brd.Routing; r != nil && !r.Empty() {
			p.rep.Infof("kept %d track(s), %d via(s), %d zone(s)", len(r.Tracks), len(r.Vias), len(r.Zones))
		}
	}

	if p.opts.NetJSON {
		data, err := p.graph.ExportJSON()
		if err != nil {
			return res, fmt.Errorf("project: %w", err)
		}
		res.NetJSON = filepath.Join(dir, p.Name+".nets.json")
		if err := os.WriteFile(res.NetJSON, data, 0o644); err != nil {
			return res, fmt.Errorf("project: %w", err)
		}
		p.rep.Infof("nets %s", res.NetJSON)
	}

	return res, p.external(ctx, res)
}

func (p *Project) external(ctx context.Context, res *Result) error {
	if len(res.Schematics) == 0 {
		return nil
	}
	root := res.Schematics[0]
	base := filepath.Join(p.opts.BuildDir, p.Name)

	if p.opts.Netlist {
		res.Netlist = base + ".net"
		if p.opts.CLI == nil || p.opts.CLI.Path == "" {
			doc := p.graph.ExportKiCad(root, p.components)
			if err := os.WriteFile(res.Netlist, []byte(doc), 0o644); err != nil {
				return fmt.Errorf("project: netlist: %w", err)
			}
		} else if err := p.opts.CLI.ExportNetlist(ctx, root, res.Netlist); err != nil {
			return fmt.Errorf("project: netlist: %w", err)
		}
		p.rep.Infof("netlist %s", res.Netlist)
	}
	if p.opts.BOM {
		res.BOM = base + ".csv"
		if err := p.opts.CLI.ExportBOM(ctx, root, res.BOM); err != nil {
			return fmt.Errorf("project: bom: %w", err)
		}
		p.rep.Infof("bom %s", res.BOM)
	}
	if p.opts.ExternalERC {
		rep, _, err := p.opts.CLI.RunERC(ctx, root, base+".json")
		if err != nil {
			return fmt.Errorf("project: erc: %w", err)
		}
		res.External = rep
		errs := rep.Errors()
		for _, v := range errs {
			p.rep.Errorf("%s: %s", v.Type, v.Description)
		}
		if p.opts.ShowAllWarnings {
			for _, v := range rep.Warnings() {
				p.rep.Warnf("%s: %s", v.Type, v.Description)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("%w: kicad-cli reported %d error(s)", ErrERCFailed, len(errs))
		}
	}
	return nil
}
