package circuit

import (
	"fmt"
	"strings"
)

// PinType is the electrical type of a pin, as used by KiCad symbols.
type PinType int

const (
	Passive PinType = iota
	Input
	Output
	Bidirectional
	TriState
	PowerIn
	PowerOut
	Unspecified
	Free
	OpenCollector
	OpenEmitter
	NoConnect
)

var pinTypeNames = [...]string{
	Passive:       "passive",
	Input:         "input",
	Output:        "output",
	Bidirectional: "bidirectional",
	TriState:      "tri_state",
	PowerIn:       "power_in",
	PowerOut:      "power_out",
	Unspecified:   "unspecified",
	Free:          "free",
	OpenCollector: "open_collector",
	OpenEmitter:   "open_emitter",
	NoConnect:     "no_connect",
}

func (t PinType) String() string {
	if t < 0 || int(t) >= len(pinTypeNames) {
		return fmt.Sprintf("PinType(%d)", int(t))
	}
	return pinTypeNames[t]
}

// ParsePinType maps a KiCad pin type keyword to a PinType.
func ParsePinType(s string) (PinType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range pinTypeNames {
		if name == s {
			return PinType(i), nil
		}
	}
	// older symbol libraries spell these differently
	switch s {
	case "tristate", "3state":
		return TriState, nil
	case "no_connect", "noconnect", "nc", "not_connected":
		return NoConnect, nil
	}
	return Passive, fmt.Errorf("circuit: unknown pin type %q", s)
}

// Pin is a terminal of a Component, or a boundary (port) pin of a sheet when
// it has no owner.
//
// Pins are created by Component.Pin or NewPortPin; a zero Pin is invalid and
// is rejected by the net builder.
type Pin struct {
	owner  *Component
	number string
	name   string
	typ    PinType
}

// NewPortPin creates a hierarchical boundary pin. Its identity is its name.
func NewPortPin(name string, typ PinType) *Pin {
	return &Pin{name: name, typ: typ}
}

// Owner returns the component the pin belongs to, or nil for port pins.
func (p *Pin) Owner() *Component { return p.owner }

// Number returns the pin number or name within its component.
func (p *Pin) Number() string { return p.number }

// Name returns the port name for boundary pins.
func (p *Pin) Name() string { return p.name }

// Type returns the electrical type.
func (p *Pin) Type() PinType { return p.typ }

// SetType changes the electrical type.
func (p *Pin) SetType(t PinType) { p.typ = t }

// IsPort reports whether p is a boundary pin with no owning component.
func (p *Pin) IsPort() bool { return p.owner == nil }

// Reference returns the owning component's designator, or "" for port pins.
func (p *Pin) Reference() string {
	if p.owner == nil {
		return ""
	}
	return p.owner.Reference()
}

// Key is the pin identity used for deduplication and merging:
// "REF:NUMBER" for component pins, "port:NAME" for boundary pins.
func (p *Pin) Key() string {
	if p.owner == nil {
		return "port:" + p.name
	}
	return p.owner.Reference() + ":" + p.number
}

func (p *Pin) String() string {
	if p == nil {
		return "<nil pin>"
	}
	if p.owner == nil {
		return p.name
	}
	return p.owner.Reference() + ":" + p.number
}

// Validate reports a missing identity field.
func (p *Pin) Validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("pin is nil")
	case p.owner != nil && p.owner.Reference() == "":
		return fmt.Errorf("pin %q has an owner without a reference", p.number)
	case p.owner != nil && p.number == "":
		return fmt.Errorf("pin of %s has no number", p.owner.Reference())
	case p.owner == nil && p.name == "":
		return fmt.Errorf("pin has neither an owner nor a port name")
	}
	return nil
}
