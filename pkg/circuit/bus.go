package circuit

import "fmt"

// Signal is one named line of a bus.
type Signal struct {
	Name string
	Pin  *Pin
}

// Bus is a bundle of named signals that can be connected to another bus of
// the same kind signal by signal.
type Bus interface {
	Signals() []Signal
}

// I2C is a two-wire bus.
type I2C struct {
	SCL *Pin
	SDA *Pin
}

func (b I2C) Signals() []Signal {
	return []Signal{{"SCL", b.SCL}, {"SDA", b.SDA}}
}

// UART is a serial port. RTS and DTR are optional.
type UART struct {
	RX  *Pin
	TX  *Pin
	RTS *Pin
	DTR *Pin
}

func (b UART) Signals() []Signal {
	return []Signal{{"RX", b.RX}, {"TX", b.TX}, {"RTS", b.RTS}, {"DTR", b.DTR}}
}

// USB is a full-speed differential pair.
type USB struct {
	DP *Pin
	DN *Pin
}

func (b USB) Signals() []Signal {
	return []Signal{{"DP", b.DP}, {"DN", b.DN}}
}

// Power is a supply/ground pair driven by a source.
type Power struct {
	Supply *Pin
	Ground *Pin
}

// NewPower marks both pins as power outputs, so power inputs connected to
// them pass the driven-power check.
func NewPower(supply, ground *Pin) Power {
	if supply != nil {
		supply.SetType(PowerOut)
	}
	if ground != nil {
		ground.SetType(PowerOut)
	}
	return Power{Supply: supply, Ground: ground}
}

func (b Power) Signals() []Signal {
	return []Signal{{"VCC", b.Supply}, {"GND", b.Ground}}
}

// Rail describes a supply voltage and its tolerance window.
type Rail struct {
	Nominal float64
	Minimum float64
	Maximum float64
}

// NewRail creates a rail. Minimum and maximum default to the nominal voltage.
func NewRail(nominal float64, limits ...float64) Rail {
	r := Rail{Nominal: nominal, Minimum: nominal, Maximum: nominal}
	if len(limits) > 0 {
		r.Minimum = limits[0]
	}
	if len(limits) > 1 {
		r.Maximum = limits[1]
	}
	return r
}

// SupplyNet is the net name of the rail, e.g. "+3.3V".
func (r Rail) SupplyNet() string {
	return fmt.Sprintf("+%gV", r.Nominal)
}

// GroundNet is the shared ground net name.
func (r Rail) GroundNet() string {
	return "GND"
}

// Within reports whether v lies inside the rail's tolerance window.
func (r Rail) Within(v float64) bool {
	return v >= r.Minimum && v <= r.Maximum
}
