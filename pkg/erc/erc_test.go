package erc

import (
	"testing"

	"github.com/OpenTraceLab/kibuild/pkg/circuit"
	"github.com/OpenTraceLab/kibuild/pkg/netgraph"
	"github.com/OpenTraceLab/kibuild/pkg/refdes"
)

// pair builds two single-pin components of the given types on one net.
func pair(t *testing.T, a, b circuit.PinType) (*netgraph.Builder, *circuit.Pin, *circuit.Pin) {
	t.Helper()
	alloc := refdes.New()
	u1, err := circuit.New(alloc, circuit.Options{Reference: "U1"})
	if err != nil {
		t.Fatal(err)
	}
	u2, err := circuit.New(alloc, circuit.Options{Reference: "U2"})
	if err != nil {
		t.Fatal(err)
	}
	p1, p2 := u1.PinN(1), u2.PinN(1)
	p1.SetType(a)
	p2.SetType(b)
	g := netgraph.New()
	if err := g.Connect(p1, p2); err != nil {
		t.Fatal(err)
	}
	return g, p1, p2
}

func TestCompareTable(t *testing.T) {
	tests := []struct {
		a, b circuit.PinType
		want Severity
	}{
		{circuit.Output, circuit.Input, OK},
		{circuit.Output, circuit.Output, Error},
		{circuit.PowerOut, circuit.PowerOut, Error},
		{circuit.PowerOut, circuit.Output, Error},
		{circuit.PowerOut, circuit.TriState, Error},
		{circuit.PowerOut, circuit.Bidirectional, Warning},
		{circuit.PowerOut, circuit.Unspecified, Warning},
		{circuit.PowerOut, circuit.PowerIn, OK},
		{circuit.OpenCollector, circuit.Output, Error},
		{circuit.OpenEmitter, circuit.PowerOut, Error},
		{circuit.OpenCollector, circuit.TriState, Warning},
		{circuit.OpenEmitter, circuit.Unspecified, Warning},
		{circuit.TriState, circuit.Output, Warning},
		{circuit.Unspecified, circuit.Passive, Warning},
		{circuit.Unspecified, circuit.Free, OK},
		{circuit.NoConnect, circuit.Passive, Warning},
		{circuit.Passive, circuit.Passive, OK},
		{circuit.Bidirectional, circuit.Output, OK},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"_"+tt.b.String(), func(t *testing.T) {
			got, _ := Compare(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("Compare(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			rev, _ := Compare(tt.b, tt.a)
			if rev != got {
				t.Errorf("Compare is not symmetric: %v vs %v", got, rev)
			}
		})
	}
}

func TestUndrivenInputSingleton(t *testing.T) {
	alloc := refdes.New()
	u1, _ := circuit.New(alloc, circuit.Options{Reference: "U1"})
	in := u1.PinN(3)
	in.SetType(circuit.Input)
	g := netgraph.New()
	g.Connect(in)

	res := Check(g.Nets())
	if len(res.Errors) != 1 || res.Errors[0].Kind != KindUndrivenInput {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %+v", res.Warnings)
	}
	if !res.Failed() {
		t.Errorf("Failed() = false")
	}
}

func TestOutputDrivesInput(t *testing.T) {
	g, _, _ := pair(t, circuit.Output, circuit.Input)
	nets := g.Nets()
	if len(nets) != 1 || nets[0].Name != "net1" {
		t.Fatalf("nets = %+v", nets)
	}
	res := Check(nets)
	if e, w := res.Counts(); e != 0 || w != 0 {
		t.Errorf("Counts() = %d, %d; want 0, 0", e, w)
	}
}

func TestUndrivenPowerInput(t *testing.T) {
	g, _, _ := pair(t, circuit.PowerIn, circuit.Passive)
	res := Check(g.Nets())
	if len(res.Errors) != 1 || res.Errors[0].Kind != KindUndrivenPower {
		t.Errorf("errors = %+v", res.Errors)
	}

	g, _, _ = pair(t, circuit.PowerIn, circuit.PowerOut)
	if res := Check(g.Nets()); res.Failed() {
		t.Errorf("driven power input failed: %+v", res.Errors)
	}
}

func TestOnePerPair(t *testing.T) {
	g, a, b := pair(t, circuit.PowerOut, circuit.PowerOut)
	res := Check(g.Nets())
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %+v", res.Errors)
	}
	v := res.Errors[0]
	if v.A != a || v.B != b || v.Net != "net1" {
		t.Errorf("violation = %+v", v)
	}
}

func TestSameOwnerSkipped(t *testing.T) {
	alloc := refdes.New()
	u1, _ := circuit.New(alloc, circuit.Options{Reference: "U1"})
	p1, p2 := u1.PinN(1), u1.PinN(2)
	p1.SetType(circuit.PowerOut)
	p2.SetType(circuit.PowerOut)
	g := netgraph.New()
	g.Connect(p1, p2)
	if res := Check(g.Nets()); len(res.Errors) != 0 {
		t.Errorf("same-owner pins produced %+v", res.Errors)
	}
}

func TestNoConnectMerged(t *testing.T) {
	alloc := refdes.New()
	u1, _ := circuit.New(alloc, circuit.Options{Reference: "U1"})
	r1, _ := circuit.New(alloc, circuit.Options{Reference: "R1"})
	g := netgraph.New()
	g.NoConnect(u1.PinN(7))
	g.Connect(u1.PinN(7), r1.PinN(1))

	res := Check(g.Nets())
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != KindNoConnectShort {
		t.Errorf("warnings = %+v", res.Warnings)
	}
}

func TestCheckDoesNotMutate(t *testing.T) {
	g, a, b := pair(t, circuit.Output, circuit.Output)
	before := g.Nets()
	Check(before)
	after := g.Nets()
	if len(after) != len(before) || a.Type() != circuit.Output || b.Type() != circuit.Output {
		t.Errorf("graph changed by Check")
	}
}
