package pcb

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
)

const routedBoard = `(kicad_pcb (version 20240108) (generator "pcbnew")
  (net 0 "")
  (net 1 "VOUT")
  (net 2 "GND")
  (segment (start 0 0) (end 3 4) (width 0.25) (layer "F.Cu") (net 1) (uuid "s1"))
  (segment (start 3 4) (end 3 10) (layer "B.Cu") (locked yes) (net 1) (uuid "s2"))
  (via (at 3 4) (size 0.6) (drill 0.3) (layers "F.Cu" "B.Cu") (net 1) (uuid "v1"))
  (zone (net 2) (net_name "GND") (layers "F.Cu" "B.Cu") (uuid "z1")
    (polygon (pts (xy 0 0) (xy 10 0) (xy 10 10) (xy 0 10)))))
`

func TestParseRouting(t *testing.T) {
	doc, err := kicadsexp.ParseRoot(strings.NewReader(routedBoard))
	if err != nil {
		t.Fatal(err)
	}
	r, err := ParseRouting(doc)
	if err != nil {
		t.Fatalf("ParseRouting: %v", err)
	}
	if r.Empty() {
		t.Fatal("routing reported empty")
	}

	if len(r.Tracks) != 2 {
		t.Fatalf("tracks = %+v", r.Tracks)
	}
	if r.Tracks[0].Net != "VOUT" || r.Tracks[0].Width != 0.25 || r.Tracks[0].Locked {
		t.Errorf("first track = %+v", r.Tracks[0])
	}
	if r.Tracks[1].Width != 0.15 || !r.Tracks[1].Locked {
		t.Errorf("second track = %+v", r.Tracks[1])
	}
	if got := r.Length()["VOUT"]; math.Abs(got-11) > 1e-9 {
		t.Errorf("VOUT length = %v, want 11", got)
	}

	if len(r.Vias) != 1 || r.Vias[0].Drill != 0.3 || !reflect.DeepEqual(r.Vias[0].Layers, []string{"F.Cu", "B.Cu"}) {
		t.Errorf("vias = %+v", r.Vias)
	}
	if len(r.Zones) != 1 || r.Zones[0].Net != "GND" || len(r.Zones[0].Outline) != 4 {
		t.Errorf("zones = %+v", r.Zones)
	}
	if r.Zones[0].Outline[2] != (sexp.Position{X: 10, Y: 10}) {
		t.Errorf("outline = %v", r.Zones[0].Outline)
	}
}

func TestParseRoutingErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong root", `(kicad_sch (version 1))`},
		{"segment without end", `(kicad_pcb (segment (start 0 0) (layer "F.Cu")))`},
		{"segment without layer", `(kicad_pcb (segment (start 0 0) (end 1 1)))`},
		{"via without position", `(kicad_pcb (via (size 0.6)))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := kicadsexp.ParseRoot(strings.NewReader(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := ParseRouting(doc); err == nil {
				t.Error("expected error")
			}
		})
	}
}
