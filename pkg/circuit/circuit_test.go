package circuit

import (
	"errors"
	"testing"

	"github.com/OpenTraceLab/kibuild/pkg/refdes"
)

func mustNew(t *testing.T, alloc *refdes.Allocator, opts Options) *Component {
	t.Helper()
	c, err := New(alloc, opts)
	if err != nil {
		t.Fatalf("New(%+v) failed: %v", opts, err)
	}
	return c
}

func TestPinCaching(t *testing.T) {
	c := mustNew(t, refdes.New(), Options{Symbol: "Device:R", Reference: "R1"})

	p1 := c.Pin("1")
	if c.Pin("1") != p1 {
		t.Errorf("Pin(1) returned a different instance on second call")
	}
	if c.PinN(1) != p1 {
		t.Errorf("PinN(1) differs from Pin(\"1\")")
	}
	c.Pin("2")
	if got := len(c.Pins()); got != 2 {
		t.Errorf("Pins() len = %d, want 2", got)
	}
	if p1.Key() != "R1:1" {
		t.Errorf("Key() = %q, want R1:1", p1.Key())
	}
	if p1.Type() != Passive {
		t.Errorf("default type = %v, want passive", p1.Type())
	}
}

func TestPinTypesFromOptions(t *testing.T) {
	c := mustNew(t, refdes.New(), Options{
		Reference: "U1",
		PinTypes:  map[string]PinType{"VDD": PowerIn, "3": Output},
	})
	if c.Pin("VDD").Type() != PowerIn {
		t.Errorf("VDD type = %v", c.Pin("VDD").Type())
	}
	if c.PinN(3).Type() != Output {
		t.Errorf("pin 3 type = %v", c.PinN(3).Type())
	}
}

func TestReferenceCollisionRenames(t *testing.T) {
	alloc := refdes.New()
	first := mustNew(t, alloc, Options{Reference: "R1"})
	second := mustNew(t, alloc, Options{Reference: "R1"})

	if first.Reference() != "R1" {
		t.Errorf("first reference = %q", first.Reference())
	}
	if second.Reference() != "R2" {
		t.Errorf("second reference = %q, want R2", second.Reference())
	}
	from, renamed := second.Renamed()
	if !renamed || from != "R1" {
		t.Errorf("Renamed() = %q, %v", from, renamed)
	}
	if _, renamed := first.Renamed(); renamed {
		t.Errorf("first component reported a rename")
	}
}

func TestAutoReference(t *testing.T) {
	alloc := refdes.New()
	u := mustNew(t, alloc, Options{})
	c := mustNew(t, alloc, Options{Prefix: "C"})
	if u.Reference() != "U1" || c.Reference() != "C1" {
		t.Errorf("got %q and %q", u.Reference(), c.Reference())
	}
	if u.UUID() == "" || u.UUID() == c.UUID() {
		t.Errorf("expected distinct generated UUIDs")
	}
}

func TestMalformedReference(t *testing.T) {
	_, err := New(refdes.New(), Options{Reference: "resistor"})
	if !errors.Is(err, refdes.ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

func TestMalformedPrefix(t *testing.T) {
	alloc := refdes.New()
	if _, err := New(alloc, Options{Prefix: "9"}); !errors.Is(err, refdes.ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
	if alloc.Issued("91") {
		t.Errorf("a designator was issued for a rejected prefix")
	}
}

func TestPropertiesOrder(t *testing.T) {
	c := mustNew(t, refdes.New(), Options{
		Reference: "R3",
		Value:     "10k",
		Footprint: "Resistor_SMD:R_0603_1608Metric",
		Wattage:   "0.1W",
		Metadata:  []Property{{"LCSC", "C25804"}, {"Tolerance", "1%"}},
	})

	want := []string{"Reference", "Value", "Footprint", "Datasheet", "Description", "Wattage", "LCSC", "Tolerance"}
	props := c.Properties()
	if len(props) != len(want) {
		t.Fatalf("Properties() = %+v", props)
	}
	for i, name := range want {
		if props[i].Name != name {
			t.Errorf("property %d = %q, want %q", i, props[i].Name, name)
		}
	}
	if props[0].Value != "R3" || props[1].Value != "10k" {
		t.Errorf("unexpected values %+v", props[:2])
	}
}

func TestPortPin(t *testing.T) {
	p := NewPortPin("SDA", Bidirectional)
	if !p.IsPort() || p.Key() != "port:SDA" || p.Reference() != "" {
		t.Errorf("unexpected port pin %+v key=%q", p, p.Key())
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestPinValidate(t *testing.T) {
	var nilPin *Pin
	if nilPin.Validate() == nil {
		t.Errorf("nil pin validated")
	}
	if (&Pin{}).Validate() == nil {
		t.Errorf("zero pin validated")
	}
	c := mustNew(t, refdes.New(), Options{Reference: "R1"})
	if c.Pin("").Validate() == nil {
		t.Errorf("pin without number validated")
	}
}

func TestParsePinType(t *testing.T) {
	tests := []struct {
		in   string
		want PinType
	}{
		{"power_in", PowerIn},
		{"Output", Output},
		{"tri_state", TriState},
		{"no_connect", NoConnect},
		{"open_emitter", OpenEmitter},
	}
	for _, tt := range tests {
		got, err := ParsePinType(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParsePinType(%q) = %v, %v", tt.in, got, err)
		}
		if got.String() == "" {
			t.Errorf("empty String() for %v", got)
		}
	}
	if _, err := ParsePinType("sideways"); err == nil {
		t.Errorf("ParsePinType(sideways) expected error")
	}
}

func TestPowerBusRetypes(t *testing.T) {
	c := mustNew(t, refdes.New(), Options{Reference: "J1"})
	p := NewPower(c.PinN(1), c.PinN(2))
	for _, s := range p.Signals() {
		if s.Pin.Type() != PowerOut {
			t.Errorf("%s type = %v, want power_out", s.Name, s.Pin.Type())
		}
	}
}

func TestRail(t *testing.T) {
	r := NewRail(3.3, 3.0, 3.6)
	if r.SupplyNet() != "+3.3V" || r.GroundNet() != "GND" {
		t.Errorf("nets = %q, %q", r.SupplyNet(), r.GroundNet())
	}
	if !r.Within(3.1) || r.Within(3.7) {
		t.Errorf("Within() wrong for %+v", r)
	}
	if fixed := NewRail(5); fixed.Minimum != 5 || fixed.Maximum != 5 {
		t.Errorf("NewRail(5) = %+v", fixed)
	}
}
