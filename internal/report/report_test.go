package report

import (
	"bytes"
	"testing"
)

func TestReporter(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	r.Infof("schematic %s", "demo.kicad_sch")
	r.Noticef("R1 renamed to R3")
	r.Warnf("undriven input on %s", "net1")
	r.Errorf("pin conflict")
	r.Errorf("pin conflict")
	r.Summary()

	want := "+ schematic demo.kicad_sch\n" +
		"~ R1 renamed to R3\n" +
		"WARN undriven input on net1\n" +
		"ERROR pin conflict\n" +
		"ERROR pin conflict\n" +
		"2 error(s), 1 warning(s)\n"
	if buf.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", buf.String(), want)
	}
	if r.Count(Notice) != 1 || r.Count(Error) != 2 {
		t.Errorf("counts: notice=%d error=%d", r.Count(Notice), r.Count(Error))
	}
}
