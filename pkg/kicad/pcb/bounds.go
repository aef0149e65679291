package pcb

import (
	"math"

	"github.com/OpenTraceLab/kibuild/pkg/kicad/library"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp"
)

// BoundingBox is an axis-aligned box in board millimeters.
type BoundingBox struct {
	Min, Max sexp.Position
	valid    bool
}

// Expand grows the box to include p.
func (b *BoundingBox) Expand(p sexp.Position) {
	if !b.valid {
		b.Min, b.Max, b.valid = p, p, true
		return
	}
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
}

func (b BoundingBox) Width() float64  { return b.Max.X - b.Min.X }
func (b BoundingBox) Height() float64 { return b.Max.Y - b.Min.Y }

// FootprintBounds approximates the extent of a placed footprint from its
// pads, each treated as a rectangle.
func FootprintBounds(def *library.FootprintDef, at sexp.PositionAngle) BoundingBox {
	var bbox BoundingBox
	for _, pad := range def.Pads {
		abs := TransformPosition(pad.Position.Position, at)
		hw, hh := pad.Width/2, pad.Height/2
		bbox.Expand(sexp.Position{X: abs.X - hw, Y: abs.Y - hh})
		bbox.Expand(sexp.Position{X: abs.X + hw, Y: abs.Y + hh})
	}
	if len(def.Pads) == 0 {
		bbox.Expand(at.Position)
	}
	return bbox
}

// TransformPosition maps a footprint-relative point to board coordinates.
// KiCad rotates counter-clockwise on screen with Y pointing down, hence the
// negated angle.
func TransformPosition(rel sexp.Position, at sexp.PositionAngle) sexp.Position {
	x, y := rel.X, rel.Y
	if at.Angle != 0 {
		rad := -float64(at.Angle) * math.Pi / 180.0
		cos, sin := math.Cos(rad), math.Sin(rad)
		x, y = x*cos-y*sin, x*sin+y*cos
	}
	return sexp.Position{X: x + at.X, Y: y + at.Y}
}

// normalizeAngle folds a rotation into [0, 360).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}
