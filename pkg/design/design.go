// Package design loads circuit descriptions written in YAML and applies them
// to a project.
//
// A pin is written "REF:PIN" for component pins and "SHEET/PORT" for the
// ports of a hierarchical sheet.
package design

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/kibuild/pkg/circuit"
)

// Design is the top-level document.
type Design struct {
	Name       string      `yaml:"name"`
	Components []Component `yaml:"components"`
	Nets       []Net       `yaml:"nets"`
	NoConnect  []string    `yaml:"no_connect"`
	Buses      []Bus       `yaml:"buses"`
	Sheets     []Sheet     `yaml:"sheets"`
}

// Component describes one part.
type Component struct {
	Ref         string            `yaml:"ref"`
	Symbol      string            `yaml:"symbol"`
	Value       string            `yaml:"value"`
	Footprint   string            `yaml:"footprint"`
	Prefix      string            `yaml:"prefix"`
	Datasheet   string            `yaml:"datasheet"`
	Description string            `yaml:"description"`
	MPN         string            `yaml:"mpn"`
	Voltage     string            `yaml:"voltage"`
	Wattage     string            `yaml:"wattage"`
	UUID        string            `yaml:"uuid"`
	DNP         bool              `yaml:"dnp"`
	Via         bool              `yaml:"via"`
	PCB         *Placement        `yaml:"pcb"`
	Schematic   *Point            `yaml:"schematic"`
	Simulation  *Simulation       `yaml:"simulation"`
	Pins        map[string]string `yaml:"pins"`
	Properties  []Property        `yaml:"properties"`
}

// Placement is a board position in millimeters.
type Placement struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Rotation float64 `yaml:"rotation"`
}

// Point is a schematic position in millimeters.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Simulation carries SPICE settings.
type Simulation struct {
	Include bool   `yaml:"include"`
	Model   string `yaml:"model"`
}

// Property is an extra document field.
type Property struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Net connects pins. An empty name lets the builder pick one.
type Net struct {
	Name string   `yaml:"name"`
	Pins []string `yaml:"pins"`
}

// Bus connects two bundles signal by signal.
type Bus struct {
	Kind   string            `yaml:"kind"` // i2c, uart or usb
	Prefix string            `yaml:"prefix"`
	A      map[string]string `yaml:"a"`
	B      map[string]string `yaml:"b"`
}

// Sheet is a hierarchical sheet with its own parts and nets.
type Sheet struct {
	Name       string      `yaml:"name"`
	Components []Component `yaml:"components"`
	Nets       []Net       `yaml:"nets"`
	NoConnect  []string    `yaml:"no_connect"`
	Ports      []Port      `yaml:"ports"`
}

// Port is a sheet boundary pin and the inner pins it exposes.
type Port struct {
	Name string   `yaml:"name"`
	Type string   `yaml:"type"`
	Pins []string `yaml:"pins"`
}

// Load reads a design file.
func Load(path string) (*Design, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("design: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("design: %s: %w", path, err)
	}
	return d, nil
}

// Parse decodes a design. Unknown keys are rejected so typos do not
// silently drop parts of a circuit.
func Parse(data []byte) (*Design, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var d Design
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty document")
		}
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the fields that cannot be defaulted.
func (d *Design) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("name is required")
	}
	seen := make(map[string]bool)
	check := func(where string, comps []Component) error {
		for i, c := range comps {
			if c.Symbol == "" && !c.Via {
				return fmt.Errorf("%scomponent %d (%s): symbol is required", where, i, c.Ref)
			}
			if c.Ref == "" {
				continue
			}
			if seen[c.Ref] {
				return fmt.Errorf("%scomponent %s is declared twice", where, c.Ref)
			}
			seen[c.Ref] = true
		}
		return nil
	}
	if err := check("", d.Components); err != nil {
		return err
	}
	for _, s := range d.Sheets {
		if s.Name == "" {
			return errors.New("sheet without a name")
		}
		if err := check("sheet "+s.Name+": ", s.Components); err != nil {
			return err
		}
	}
	return nil
}

func (c Component) options() (circuit.Options, error) {
	opts := circuit.Options{
		Symbol:      c.Symbol,
		Reference:   c.Ref,
		Prefix:      c.Prefix,
		Value:       c.Value,
		Footprint:   c.Footprint,
		Datasheet:   c.Datasheet,
		Description: c.Description,
		MPN:         c.MPN,
		Voltage:     c.Voltage,
		Wattage:     c.Wattage,
		UUID:        c.UUID,
		DNP:         c.DNP,
		Via:         c.Via,
	}
	if c.PCB != nil {
		opts.PCB = circuit.Placement{X: c.PCB.X, Y: c.PCB.Y, Rotation: c.PCB.Rotation}
	}
	if c.Schematic != nil {
		opts.Schematic = &circuit.Point{X: c.Schematic.X, Y: c.Schematic.Y}
	}
	if c.Simulation != nil {
		opts.Simulation = circuit.Simulation{Include: c.Simulation.Include, Model: c.Simulation.Model}
	}
	for _, p := range c.Properties {
		opts.Metadata = append(opts.Metadata, circuit.Property{Name: p.Name, Value: p.Value})
	}
	if len(c.Pins) > 0 {
		opts.PinTypes = make(map[string]circuit.PinType, len(c.Pins))
		for num, typ := range c.Pins {
			t, err := circuit.ParsePinType(typ)
			if err != nil {
				return opts, fmt.Errorf("pin %s: %w", num, err)
			}
			opts.PinTypes[num] = t
		}
	}
	return opts, nil
}
