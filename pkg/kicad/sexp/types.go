// Package sexp provides shared S-expression navigation and editing helpers for
// KiCad files. It is used by the library lookup, the schematic and board
// generators, and the document merge engine.
package sexp

import "math"

// GridMM is the schematic connection grid (50 mil) in millimeters.
const GridMM = 2.54

// Position represents a 2D coordinate in millimeters
type Position struct {
	X float64
	Y float64
}

// Angle represents rotation in degrees
type Angle float64

// PositionAngle combines position with rotation
type PositionAngle struct {
	Position
	Angle Angle
}

// SnapToGrid rounds each coordinate up to the next multiple of GridMM,
// so placed symbols land on the schematic connection grid.
func (p Position) SnapToGrid() Position {
	return Position{
		X: snap(p.X),
		Y: snap(p.Y),
	}
}

func snap(v float64) float64 {
	n := math.Ceil(v/GridMM - 1e-9)
	return math.Round(n*GridMM*1e4) / 1e4
}

// UUID represents a unique identifier (used in KiCad v6+ files)
type UUID string

// Property represents a key-value property (used in symbols, footprints, etc.)
type Property struct {
	Key      string
	Value    string
	Position PositionAngle
	Hidden   bool
}
