package project

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTraceLab/kibuild/internal/report"
	"github.com/OpenTraceLab/kibuild/pkg/circuit"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/cli"
)

const deviceLib = `(kicad_symbol_lib (version 20231120) (generator "kicad_symbol_editor")
  (symbol "R" (pin_numbers hide) (exclude_from_sim no) (in_bom yes) (on_board yes)
    (property "Reference" "R" (at 2.032 0 90) (effects (font (size 1.27 1.27))))
    (property "Value" "R" (at 0 0 90) (effects (font (size 1.27 1.27))))
    (symbol "R_1_1"
      (pin passive line (at 0 3.81 270) (length 1.27) (name "~" (effects (font (size 1.27 1.27)))) (number "1" (effects (font (size 1.27 1.27)))))
      (pin passive line (at 0 -3.81 90) (length 1.27) (name "~" (effects (font (size 1.27 1.27)))) (number "2" (effects (font (size 1.27 1.27))))))))
`

const resistorFootprint = `(footprint "R_0603" (layer "F.Cu")
  (property "Reference" "REF**" (at 0 -1.43 0) (layer "F.SilkS"))
  (property "Value" "R_0603" (at 0 1.43 0) (layer "F.Fab"))
  (pad "1" smd roundrect (at -0.7875 0) (size 0.875 0.95) (layers "F.Cu" "F.Paste" "F.Mask"))
  (pad "2" smd roundrect (at 0.7875 0) (size 0.875 0.95) (layers "F.Cu" "F.Paste" "F.Mask")))
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testOptions(t *testing.T) *Options {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "symbols", "Device.kicad_sym"), deviceLib)
	writeFile(t, filepath.Join(dir, "footprints", "Resistor_SMD.pretty", "R_0603.kicad_mod"), resistorFootprint)
	opts := DefaultOptions()
	opts.BuildDir = filepath.Join(dir, "build")
	opts.SymbolDirs = []string{filepath.Join(dir, "symbols")}
	opts.FootprintDirs = []string{filepath.Join(dir, "footprints")}
	return opts
}

func resistor(ref string) circuit.Options {
	return circuit.Options{
		Symbol:    "Device:R",
		Reference: ref,
		Value:     "10k",
		Footprint: "Resistor_SMD:R_0603",
	}
}

func TestGenerate(t *testing.T) {
	opts := testOptions(t)
	opts.Netlist = true
	opts.NetJSON = true
	var out bytes.Buffer
	p, err := New("demo", opts, report.New(&out))
	if err != nil {
		t.Fatal(err)
	}

	r1, err := p.Component(resistor("R1"))
	if err != nil {
		t.Fatal(err)
	}
	r2, err := p.Component(resistor("R2"))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Net("VOUT", r1.PinN(2), r2.PinN(1)); err != nil {
		t.Fatal(err)
	}
	if err := p.NoConnect(r1.PinN(1), r2.PinN(2)); err != nil {
		t.Fatal(err)
	}

	res, err := p.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v\n%s", err, out.String())
	}
	if res.ERC.Failed() {
		t.Errorf("unexpected ERC errors: %v", res.ERC.Errors)
	}

	for _, path := range []string{res.Schematics[0], res.Board, res.Netlist, res.NetJSON} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing output: %v", err)
		}
	}
	if filepath.Base(res.Board) != "demo.kicad_pcb" {
		t.Errorf("board = %s", res.Board)
	}

	net, err := os.ReadFile(res.Netlist)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(net), `"VOUT"`) {
		t.Errorf("netlist lacks VOUT:\n%s", net)
	}
	if !strings.Contains(out.String(), "+ board ") {
		t.Errorf("report output:\n%s", out.String())
	}
}

func TestGenerateStopsOnERCError(t *testing.T) {
	opts := testOptions(t)
	p, err := New("demo", opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	drv := resistor("")
	drv.PinTypes = map[string]circuit.PinType{"1": circuit.Output}
	a, _ := p.Component(drv)
	b, _ := p.Component(drv)
	if err := p.Connect(a.PinN(1), b.PinN(1)); err != nil {
		t.Fatal(err)
	}

	res, err := p.Generate(context.Background())
	if !errors.Is(err, ErrERCFailed) {
		t.Fatalf("err = %v, want ErrERCFailed", err)
	}
	if len(res.ERC.Errors) != 1 {
		t.Errorf("ERC errors = %v", res.ERC.Errors)
	}
	if _, err := os.Stat(opts.BuildDir); !os.IsNotExist(err) {
		t.Errorf("build dir written despite ERC failure: %v", err)
	}
}

func TestRenameNotice(t *testing.T) {
	var out bytes.Buffer
	p, err := New("demo", testOptions(t), report.New(&out))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Component(resistor("R1")); err != nil {
		t.Fatal(err)
	}
	c, err := p.Component(resistor("R1"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Reference() != "R2" {
		t.Errorf("reference = %s, want R2", c.Reference())
	}
	if !strings.HasPrefix(out.String(), "~ R1 already used") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSheet(t *testing.T) {
	opts := testOptions(t)
	opts.Board = false
	p, err := New("demo", opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	r1, _ := p.Component(resistor("R1"))

	power := p.Sheet("power")
	if p.Sheet("power") != power {
		t.Fatal("Sheet is not idempotent")
	}
	r2, err := power.Component(resistor("R2"))
	if err != nil {
		t.Fatal(err)
	}
	out, err := power.Hier("OUT", circuit.Passive, r2.PinN(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Net("VOUT", r1.PinN(1), out); err != nil {
		t.Fatal(err)
	}
	// the port net existed first, so VOUT becomes an alias of it
	a, _ := p.Graph().Lookup(r1.PinN(1))
	b, _ := p.Graph().Lookup(r2.PinN(1))
	if a != b {
		t.Errorf("R1:1 on %q, R2:1 on %q", a, b)
	}
	if net, ok := p.Graph().Net("VOUT"); !ok || net.Name != a {
		t.Errorf("Net(VOUT) = %+v, %v", net, ok)
	}

	res, err := p.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Schematics) != 2 || filepath.Base(res.Schematics[1]) != "demo_power.kicad_sch" {
		t.Errorf("schematics = %v", res.Schematics)
	}
	if res.Board != "" {
		t.Errorf("board written with Board disabled: %s", res.Board)
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := &Options{BOM: true}
	if err := opts.Validate(); err == nil {
		t.Error("BOM without kicad-cli should be rejected")
	}
	opts = &Options{}
	if err := opts.Validate(); err != nil {
		t.Fatal(err)
	}
	if opts.BuildDir != "build" || opts.NetPrefix != "net" {
		t.Errorf("defaults not filled: %+v", opts)
	}
}

func TestExternalERC(t *testing.T) {
	opts := testOptions(t)
	opts.ERC = false
	opts.ExternalERC = true
	opts.BOM = true
	var calls [][]string
	opts.CLI = &cli.CLI{Path: "kicad-cli", Run: func(_ context.Context, _ string, args ...string) ([]byte, int, error) {
		calls = append(calls, args)
		if args[1] == "erc" {
			report := `{"sheets":[{"path":"/","violations":[{"severity":"error","type":"pin_to_pin","items":[{"description":"Output and output"}]}]}]}`
			out := args[len(args)-2]
			if err := os.WriteFile(out, []byte(report), 0o644); err != nil {
				return nil, -1, err
			}
			return nil, 5, nil
		}
		return nil, 0, nil
	}}

	var buf bytes.Buffer
	p, err := New("demo", opts, report.New(&buf))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Component(resistor("R1")); err != nil {
		t.Fatal(err)
	}

	res, err := p.Generate(context.Background())
	if !errors.Is(err, ErrERCFailed) {
		t.Fatalf("err = %v, want ErrERCFailed", err)
	}
	if res.External == nil || len(res.External.Errors()) != 1 {
		t.Errorf("external report = %+v", res.External)
	}
	if len(calls) != 2 || calls[0][2] != "bom" {
		t.Errorf("calls = %v", calls)
	}
	if !strings.Contains(buf.String(), "ERROR pin_to_pin: Output and output") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestStableComponentUUIDs(t *testing.T) {
	ids := func() []string {
		p, err := New("demo", testOptions(t), nil)
		if err != nil {
			t.Fatal(err)
		}
		var out []string
		for _, ref := range []string{"R1", "R1", ""} {
			c, err := p.Component(resistor(ref))
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, c.UUID())
		}
		return out
	}
	a, b := ids(), ids()
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("component %d: %s then %s", i, a[i], b[i])
		}
	}
	if a[0] == a[1] {
		t.Error("colliding references share a UUID")
	}
}
