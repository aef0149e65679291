package refdes

import (
	"errors"
	"testing"
)

func allocate(t *testing.T, a *Allocator, prefix string) string {
	t.Helper()
	ref, err := a.Allocate(prefix)
	if err != nil {
		t.Fatalf("Allocate(%q) error: %v", prefix, err)
	}
	return ref
}

func TestAllocateSequential(t *testing.T) {
	a := New()
	for i, want := range []string{"R1", "R2", "R3"} {
		if got := allocate(t, a, "R"); got != want {
			t.Errorf("Allocate #%d = %q, want %q", i, got, want)
		}
	}
	if got := allocate(t, a, "C"); got != "C1" {
		t.Errorf("Allocate(C) = %q, want C1", got)
	}
}

func TestReserveThenAllocate(t *testing.T) {
	tests := []struct {
		name     string
		reserved []string
		prefix   string
		want     string
	}{
		{"reserve R1", []string{"R1"}, "R", "R2"},
		{"reserve R5", []string{"R5"}, "R", "R6"},
		{"out of order", []string{"R7", "R2"}, "R", "R8"},
		{"other prefix untouched", []string{"C9"}, "R", "R1"},
		{"case normalized", []string{"r3"}, "R", "R4"},
		{"power symbols", []string{"#PWR2"}, "#PWR", "#PWR3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New()
			for _, r := range tt.reserved {
				ok, err := a.Reserve(r)
				if err != nil || !ok {
					t.Fatalf("Reserve(%q) = %v, %v", r, ok, err)
				}
			}
			if got := allocate(t, a, tt.prefix); got != tt.want {
				t.Errorf("Allocate(%q) = %q, want %q", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestAllocateAfterMixedReserve(t *testing.T) {
	a := New()
	allocate(t, a, "U")
	if ok, _ := a.Reserve("U2"); !ok {
		t.Fatal("Reserve(U2) failed")
	}
	if got := allocate(t, a, "U"); got != "U3" {
		t.Errorf("Allocate(U) = %q, want U3", got)
	}
}

func TestReserveDuplicate(t *testing.T) {
	a := New()
	if ok, err := a.Reserve("R1"); !ok || err != nil {
		t.Fatalf("first Reserve(R1) = %v, %v", ok, err)
	}
	ok, err := a.Reserve("R1")
	if err != nil {
		t.Fatalf("second Reserve(R1) error: %v", err)
	}
	if ok {
		t.Errorf("second Reserve(R1) succeeded")
	}

	allocate(t, a, "C")
	if ok, _ := a.Reserve("C1"); ok {
		t.Errorf("Reserve(C1) succeeded after Allocate issued it")
	}
}

func TestReserveMalformed(t *testing.T) {
	for _, d := range []string{"R", "12", "", "R1a", "R-1"} {
		_, err := New().Reserve(d)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Reserve(%q) error = %v, want ErrMalformed", d, err)
		}
	}
}

func TestFreshAllocatorsAreIndependent(t *testing.T) {
	a, b := New(), New()
	allocate(t, a, "R")
	allocate(t, a, "R")
	if got := allocate(t, b, "R"); got != "R1" {
		t.Errorf("second allocator returned %q, want R1", got)
	}
}

func TestAllocateRejectsBadPrefix(t *testing.T) {
	for _, prefix := range []string{"", "9", "R1", "#", "R-"} {
		a := New()
		ref, err := a.Allocate(prefix)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Allocate(%q) = %q, %v, want ErrMalformed", prefix, ref, err)
		}
	}
}

func TestIssued(t *testing.T) {
	a := New()
	if a.Issued("R1") {
		t.Fatal("fresh allocator reports R1 as issued")
	}
	allocate(t, a, "R")
	if ok, _ := a.Reserve("C4"); !ok {
		t.Fatal("Reserve(C4) failed")
	}

	tests := []struct {
		designator string
		want       bool
	}{
		{"R1", true},
		{"r1", true},
		{"C4", true},
		{"R2", false},
		{"C1", false},
		{"bogus", false},
	}
	for _, tt := range tests {
		if got := a.Issued(tt.designator); got != tt.want {
			t.Errorf("Issued(%q) = %v, want %v", tt.designator, got, tt.want)
		}
	}
}
