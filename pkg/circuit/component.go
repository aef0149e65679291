package circuit

import (
	"fmt"
	"strconv"

	"github.com/OpenTraceLab/kibuild/pkg/refdes"
	"github.com/google/uuid"
)

// DefaultPrefix is used for auto-allocated designators when no prefix is given.
const DefaultPrefix = "U"

// Placement is a board position in millimeters and a rotation in degrees.
type Placement struct {
	X        float64
	Y        float64
	Rotation float64
}

// Point is a schematic position in millimeters.
type Point struct {
	X float64
	Y float64
}

// Simulation controls SPICE model export for a component.
type Simulation struct {
	Include bool
	Model   string
}

// Property is one named document field of a component, in emission order.
type Property struct {
	Name  string
	Value string
}

// Options describes a component to create. Only Symbol is needed to draw it
// on a schematic and only Footprint to place it on a board.
type Options struct {
	Symbol      string // library-qualified symbol, e.g. "Device:R_Small"
	Reference   string // explicit designator; allocated from Prefix when empty
	Prefix      string // designator prefix, defaults to DefaultPrefix
	Value       string
	Footprint   string // library-qualified footprint
	Datasheet   string
	Description string
	MPN         string
	Voltage     string
	Wattage     string
	UUID        string // stable merge key; generated when empty
	DNP         bool
	Via         bool
	PCB         Placement
	Schematic   *Point // nil places the symbol automatically
	Simulation  Simulation
	Metadata    []Property
	PinTypes    map[string]PinType
}

// Component is a physical device with typed pins.
// All descriptive fields are fixed at construction time.
type Component struct {
	symbol      string
	reference   string
	requested   string
	value       string
	footprint   string
	datasheet   string
	description string
	mpn         string
	voltage     string
	wattage     string
	uuid        string
	dnp         bool
	via         bool
	pcb         Placement
	schematic   *Point
	sim         Simulation
	metadata    []Property
	pinTypes    map[string]PinType

	pins  map[string]*Pin
	order []*Pin
}

// New creates a component and registers its designator with alloc.
//
// An explicit reference that is already taken is replaced by a freshly
// allocated one; Renamed reports the substitution. A malformed explicit
// reference is an error.
func New(alloc *refdes.Allocator, opts Options) (*Component, error) {
	c := &Component{
		symbol:      opts.Symbol,
		value:       opts.Value,
		footprint:   opts.Footprint,
		datasheet:   opts.Datasheet,
		description: opts.Description,
		mpn:         opts.MPN,
		voltage:     opts.Voltage,
		wattage:     opts.Wattage,
		uuid:        opts.UUID,
		dnp:         opts.DNP,
		via:         opts.Via,
		pcb:         opts.PCB,
		sim:         opts.Simulation,
		metadata:    append([]Property(nil), opts.Metadata...),
		pinTypes:    make(map[string]PinType, len(opts.PinTypes)),
		pins:        make(map[string]*Pin),
	}
	for k, v := range opts.PinTypes {
		c.pinTypes[k] = v
	}
	if opts.Schematic != nil {
		p := *opts.Schematic
		c.schematic = &p
	}
	if c.uuid == "" {
		c.uuid = uuid.NewString()
	}

	prefix := opts.Prefix
	if opts.Reference == "" {
		if prefix == "" {
			prefix = DefaultPrefix
		}
		ref, err := alloc.Allocate(prefix)
		if err != nil {
			return nil, fmt.Errorf("circuit: component %s: %w", opts.Symbol, err)
		}
		c.reference = ref
		return c, nil
	}

	split, _, err := refdes.Split(opts.Reference)
	if err != nil {
		return nil, fmt.Errorf("circuit: component %s: %w", opts.Symbol, err)
	}
	if !alloc.Issued(opts.Reference) {
		if _, err := alloc.Reserve(opts.Reference); err != nil {
			return nil, fmt.Errorf("circuit: component %s: %w", opts.Symbol, err)
		}
		c.reference = opts.Reference
		return c, nil
	}

	if prefix == "" {
		prefix = split
	}
	ref, err := alloc.Allocate(prefix)
	if err != nil {
		return nil, fmt.Errorf("circuit: component %s: %w", opts.Symbol, err)
	}
	c.requested = opts.Reference
	c.reference = ref
	return c, nil
}

// Pin returns the pin with the given number or name, creating it on first use.
// Repeated calls return the same *Pin.
func (c *Component) Pin(number string) *Pin {
	if p, ok := c.pins[number]; ok {
		return p
	}
	typ, ok := c.pinTypes[number]
	if !ok {
		typ = Passive
	}
	p := &Pin{owner: c, number: number, typ: typ}
	c.pins[number] = p
	c.order = append(c.order, p)
	return p
}

// PinN is Pin for numeric pin identities.
func (c *Component) PinN(n int) *Pin {
	return c.Pin(strconv.Itoa(n))
}

// Pins returns the pins created so far, in creation order.
func (c *Component) Pins() []*Pin {
	return append([]*Pin(nil), c.order...)
}

// Renamed reports the explicitly requested designator when it collided and
// was replaced by Reference.
func (c *Component) Renamed() (string, bool) {
	return c.requested, c.requested != ""
}

func (c *Component) Symbol() string { return c.symbol }
func (c *Component) Reference() string { return c.reference }
func (c *Component) Value() string { return c.value }
func (c *Component) Footprint() string { return c.footprint }
func (c *Component) Datasheet() string { return c.datasheet }
func (c *Component) Description() string { return c.description }
func (c *Component) MPN() string { return c.mpn }
func (c *Component) UUID() string { return c.uuid }
func (c *Component) DNP() bool { return c.dnp }
func (c *Component) Via() bool { return c.via }
func (c *Component) PCB() Placement { return c.pcb }
func (c *Component) Simulation() Simulation { return c.sim }

// SchematicPosition returns the requested schematic position, if any.
func (c *Component) SchematicPosition() (Point, bool) {
	if c.schematic == nil {
		return Point{}, false
	}
	return *c.schematic, true
}

// Properties returns the document fields of the component in a fixed order:
// the standard KiCad fields first, then optional ratings, then metadata in
// the order it was supplied.
func (c *Component) Properties() []Property {
	props := []Property{
		{Name: "Reference", Value: c.reference},
		{Name: "Value", Value: c.value},
		{Name: "Footprint", Value: c.footprint},
		{Name: "Datasheet", Value: c.datasheet},
		{Name: "Description", Value: c.description},
	}
	for _, p := range []Property{
		{Name: "MPN", Value: c.mpn},
		{Name: "Voltage", Value: c.voltage},
		{Name: "Wattage", Value: c.wattage},
	} {
		if p.Value != "" {
			props = append(props, p)
		}
	}
	if c.sim.Include && c.sim.Model != "" {
		props = append(props, Property{Name: "Sim.Library", Value: c.sim.Model})
	}
	return append(props, c.metadata...)
}
