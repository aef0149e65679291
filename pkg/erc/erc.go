// Package erc checks a net graph against a pin-type compatibility table.
//
// Check is a pure function: it reads the nets and never changes them.
package erc

import (
	"fmt"

	"github.com/OpenTraceLab/kibuild/pkg/circuit"
	"github.com/OpenTraceLab/kibuild/pkg/netgraph"
)

// Severity of a violation.
type Severity int

const (
	OK Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "ok"
}

// Kind identifies the rule that produced a violation.
type Kind string

const (
	KindConflict       Kind = "pin_conflict"
	KindUndrivenInput  Kind = "undriven_input"
	KindUndrivenPower  Kind = "undriven_power_input"
	KindNoConnectShort Kind = "no_connect_connected"
)

// Violation is one rule hit. B is nil for group-wise rules.
type Violation struct {
	Kind     Kind
	Severity Severity
	Net      string
	A        *circuit.Pin
	B        *circuit.Pin
	Message  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (net %s)", v.Kind, v.Message, v.Net)
}

// Result aggregates the violations of one check.
type Result struct {
	Errors   []Violation
	Warnings []Violation
}

// Failed reports whether any error-severity violation was found.
func (r Result) Failed() bool { return len(r.Errors) > 0 }

// Counts returns the number of errors and warnings.
func (r Result) Counts() (errors, warnings int) {
	return len(r.Errors), len(r.Warnings)
}

func (r *Result) add(v Violation) {
	switch v.Severity {
	case Error:
		r.Errors = append(r.Errors, v)
	case Warning:
		r.Warnings = append(r.Warnings, v)
	}
}

// Check validates every net. Pairwise rules run once per unordered pair of
// pins with different owners and report at most one violation per pair, at
// the highest severity that applies. Undriven checks run on every net,
// singletons included, and report each offending pin.
func Check(nets []netgraph.Net) Result {
	var res Result
	for _, n := range nets {
		checkPairs(&res, n)
		checkDrivers(&res, n)
	}
	return res
}

func checkPairs(res *Result, n netgraph.Net) {
	for i := 0; i < len(n.Pins); i++ {
		for j := i + 1; j < len(n.Pins); j++ {
			a, b := n.Pins[i], n.Pins[j]
			if a.Key() == b.Key() || sameOwner(a, b) {
				continue
			}
			sev, kind := Compare(a.Type(), b.Type())
			if sev == OK {
				continue
			}
			res.add(Violation{
				Kind:     kind,
				Severity: sev,
				Net:      n.Name,
				A:        a,
				B:        b,
				Message:  fmt.Sprintf("%s pin %s connected to %s pin %s", a.Type(), a, b.Type(), b),
			})
		}
	}
}

func sameOwner(a, b *circuit.Pin) bool {
	return a.Owner() != nil && a.Owner() == b.Owner()
}

func checkDrivers(res *Result, n netgraph.Net) {
	var output, powerOut bool
	for _, p := range n.Pins {
		switch p.Type() {
		case circuit.Output:
			output = true
		case circuit.PowerOut:
			powerOut = true
		}
	}
	for _, p := range n.Pins {
		switch {
		case p.Type() == circuit.Input && !output:
			res.add(Violation{
				Kind:     KindUndrivenInput,
				Severity: Error,
				Net:      n.Name,
				A:        p,
				Message:  fmt.Sprintf("input pin %s not driven by an output pin", p),
			})
		case p.Type() == circuit.PowerIn && !powerOut:
			res.add(Violation{
				Kind:     KindUndrivenPower,
				Severity: Error,
				Net:      n.Name,
				A:        p,
				Message:  fmt.Sprintf("power_in pin %s not driven by a power_out pin", p),
			})
		}
	}
}

// Compare looks up the compatibility of two pin types. It is symmetric.
func Compare(a, b circuit.PinType) (Severity, Kind) {
	if a == circuit.NoConnect || b == circuit.NoConnect {
		return Warning, KindNoConnectShort
	}
	sev := maxSeverity(compareOrdered(a, b), compareOrdered(b, a))
	if sev == OK {
		return OK, ""
	}
	return sev, KindConflict
}

func maxSeverity(a, b Severity) Severity {
	if a > b {
		return a
	}
	return b
}

// compareOrdered applies the rules keyed on a's type.
func compareOrdered(a, b circuit.PinType) Severity {
	switch a {
	case circuit.Output:
		if b == circuit.Output {
			return Error
		}
	case circuit.PowerOut:
		switch b {
		case circuit.PowerOut, circuit.Output, circuit.TriState:
			return Error
		case circuit.Bidirectional, circuit.Unspecified:
			return Warning
		}
	case circuit.OpenCollector, circuit.OpenEmitter:
		switch b {
		case circuit.Output, circuit.PowerOut:
			return Error
		case circuit.TriState, circuit.Unspecified:
			return Warning
		}
		if a == circuit.OpenEmitter && b == circuit.Bidirectional {
			return Warning
		}
	case circuit.TriState:
		if b == circuit.Output {
			return Warning
		}
	case circuit.PowerIn:
		if b == circuit.TriState {
			return Warning
		}
	case circuit.Unspecified:
		if b != circuit.Free {
			return Warning
		}
	}
	return OK
}
