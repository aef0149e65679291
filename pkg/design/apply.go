package design

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/kibuild/pkg/circuit"
	"github.com/OpenTraceLab/kibuild/pkg/project"
)

type applier struct {
	p     *project.Project
	comps map[string]*circuit.Component
	ports map[string]*circuit.Pin
}

// Apply creates the design's components, sheets and nets in p.
// References are resolved against the refs written in the design, so a
// part renamed because of a collision is still reachable by its name.
func (d *Design) Apply(p *project.Project) error {
	a := &applier{
		p:     p,
		comps: make(map[string]*circuit.Component),
		ports: make(map[string]*circuit.Pin),
	}

	for _, c := range d.Components {
		if err := a.component(c, p.Component); err != nil {
			return err
		}
	}

	for _, s := range d.Sheets {
		sheet := p.Sheet(s.Name)
		for _, c := range s.Components {
			if err := a.component(c, sheet.Component); err != nil {
				return fmt.Errorf("design: sheet %s: %w", s.Name, err)
			}
		}
		for _, port := range s.Ports {
			typ := circuit.Passive
			if port.Type != "" {
				t, err := circuit.ParsePinType(port.Type)
				if err != nil {
					return fmt.Errorf("design: sheet %s port %s: %w", s.Name, port.Name, err)
				}
				typ = t
			}
			pins, err := a.pins(port.Pins)
			if err != nil {
				return fmt.Errorf("design: sheet %s port %s: %w", s.Name, port.Name, err)
			}
			pin, err := sheet.Hier(port.Name, typ, pins...)
			if err != nil {
				return fmt.Errorf("design: %w", err)
			}
			a.ports[s.Name+"/"+port.Name] = pin
		}
	}

	if err := a.nets(d.Nets, d.NoConnect); err != nil {
		return err
	}
	for _, s := range d.Sheets {
		if err := a.nets(s.Nets, s.NoConnect); err != nil {
			return fmt.Errorf("design: sheet %s: %w", s.Name, err)
		}
	}

	for i, b := range d.Buses {
		x, err := a.bus(b.Kind, b.A)
		if err != nil {
			return fmt.Errorf("design: bus %d: %w", i, err)
		}
		y, err := a.bus(b.Kind, b.B)
		if err != nil {
			return fmt.Errorf("design: bus %d: %w", i, err)
		}
		if err := p.Bus(b.Prefix, x, y); err != nil {
			return fmt.Errorf("design: bus %d: %w", i, err)
		}
	}
	return nil
}

func (a *applier) component(c Component, create func(circuit.Options) (*circuit.Component, error)) error {
	opts, err := c.options()
	if err != nil {
		return fmt.Errorf("design: component %s: %w", c.Ref, err)
	}
	comp, err := create(opts)
	if err != nil {
		return fmt.Errorf("design: %w", err)
	}
	if c.Ref != "" {
		a.comps[c.Ref] = comp
	}
	return nil
}

func (a *applier) nets(nets []Net, noConnect []string) error {
	for _, n := range nets {
		pins, err := a.pins(n.Pins)
		if err != nil {
			return fmt.Errorf("design: net %s: %w", n.Name, err)
		}
		if err := a.p.Net(n.Name, pins...); err != nil {
			return fmt.Errorf("design: net %s: %w", n.Name, err)
		}
	}
	if len(noConnect) == 0 {
		return nil
	}
	pins, err := a.pins(noConnect)
	if err != nil {
		return fmt.Errorf("design: no_connect: %w", err)
	}
	return a.p.NoConnect(pins...)
}

func (a *applier) pins(refs []string) ([]*circuit.Pin, error) {
	pins := make([]*circuit.Pin, 0, len(refs))
	for _, r := range refs {
		p, err := a.pin(r)
		if err != nil {
			return nil, err
		}
		pins = append(pins, p)
	}
	return pins, nil
}

func (a *applier) pin(ref string) (*circuit.Pin, error) {
	if comp, num, ok := strings.Cut(ref, ":"); ok {
		c, found := a.comps[comp]
		if !found {
			return nil, fmt.Errorf("pin %q: unknown component %s", ref, comp)
		}
		if num == "" {
			return nil, fmt.Errorf("pin %q: missing pin number", ref)
		}
		return c.Pin(num), nil
	}
	if p, ok := a.ports[ref]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("pin %q: expected REF:PIN or SHEET/PORT", ref)
}

func (a *applier) bus(kind string, signals map[string]string) (circuit.Bus, error) {
	get := func(name string) (*circuit.Pin, error) {
		ref, ok := signals[name]
		if !ok {
			return nil, nil
		}
		return a.pin(ref)
	}
	names := map[string][]string{
		"i2c":  {"SCL", "SDA"},
		"uart": {"RX", "TX", "RTS", "DTR"},
		"usb":  {"DP", "DN"},
	}
	want, ok := names[strings.ToLower(kind)]
	if !ok {
		return nil, fmt.Errorf("unknown bus kind %q", kind)
	}
	pins := make([]*circuit.Pin, len(want))
	for i, n := range want {
		p, err := get(n)
		if err != nil {
			return nil, err
		}
		pins[i] = p
	}
	switch strings.ToLower(kind) {
	case "i2c":
		return circuit.I2C{SCL: pins[0], SDA: pins[1]}, nil
	case "uart":
		return circuit.UART{RX: pins[0], TX: pins[1], RTS: pins[2], DTR: pins[3]}, nil
	}
	return circuit.USB{DP: pins[0], DN: pins[1]}, nil
}
