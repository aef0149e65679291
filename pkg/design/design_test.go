package design

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTraceLab/kibuild/pkg/circuit"
	"github.com/OpenTraceLab/kibuild/pkg/project"
)

const sample = `
name: blinky
components:
  - ref: U1
    symbol: MCU:ATtiny85
    value: ATtiny85
    pins:
      "5": output
      "8": power_in
  - ref: R1
    symbol: Device:R
    value: "330"
    footprint: Resistor_SMD:R_0603
    pcb: {x: 10, y: 5, rotation: 90}
    properties:
      - {name: Tolerance, value: "1%"}
  - ref: U2
    symbol: Sensor:BME280
nets:
  - name: LED_A
    pins: ["U1:5", "R1:1"]
  - pins: ["R1:2", "Power/OUT"]
no_connect: ["U1:8"]
buses:
  - kind: i2c
    prefix: SENS
    a: {SCL: "U1:7", SDA: "U1:6"}
    b: {SCL: "U2:4", SDA: "U2:3"}
sheets:
  - name: Power
    components:
      - ref: C1
        symbol: Device:C
    ports:
      - name: OUT
        type: passive
        pins: ["C1:1"]
`

func TestParse(t *testing.T) {
	d, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Name != "blinky" || len(d.Components) != 3 || len(d.Sheets) != 1 {
		t.Fatalf("unexpected design: %+v", d)
	}
	if d.Components[1].PCB == nil || d.Components[1].PCB.Rotation != 90 {
		t.Errorf("pcb placement = %+v", d.Components[1].PCB)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", ``, "empty"},
		{"no name", "components: []\n", "name is required"},
		{"unknown key", "name: x\ncomponnets: []\n", "componnets"},
		{"duplicate ref", "name: x\ncomponents:\n  - {ref: R1, symbol: Device:R}\n  - {ref: R1, symbol: Device:R}\n", "declared twice"},
		{"missing symbol", "name: x\ncomponents:\n  - {ref: R1}\n", "symbol is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blinky.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApply(t *testing.T) {
	d, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	p, err := project.New(d.Name, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Apply(p); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if n := len(p.Components()); n != 4 {
		t.Fatalf("components = %d, want 4", n)
	}
	g := p.Graph()

	net, ok := g.Net("LED_A")
	if !ok || len(net.Pins) != 2 {
		t.Fatalf("LED_A = %+v", net)
	}
	if net.Pins[0].Type() != circuit.Output {
		t.Errorf("U1:5 type = %v, want output", net.Pins[0].Type())
	}

	// R1:2 reaches C1:1 through the sheet port
	var r1, c1 *circuit.Component
	for _, c := range p.Components() {
		switch c.Reference() {
		case "R1":
			r1 = c
		case "C1":
			c1 = c
		}
	}
	a, _ := g.Lookup(r1.PinN(2))
	b, _ := g.Lookup(c1.PinN(1))
	if a == "" || a != b {
		t.Errorf("R1:2 on %q, C1:1 on %q", a, b)
	}

	if _, ok := g.Net("SENS_SCL"); !ok {
		t.Error("bus net SENS_SCL missing")
	}
	if _, ok := g.Net("unconnected-(U1-Pad8)"); !ok {
		t.Error("no-connect net missing")
	}
}

func TestApplyUnknownPin(t *testing.T) {
	d, err := Parse([]byte("name: x\nnets:\n  - {name: A, pins: [\"R9:1\"]}\n"))
	if err != nil {
		t.Fatal(err)
	}
	p, err := project.New(d.Name, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Apply(p); err == nil || !strings.Contains(err.Error(), "unknown component R9") {
		t.Errorf("err = %v", err)
	}
}
