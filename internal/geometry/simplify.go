package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// DefaultToleranceMeters keeps boundaries accurate to roughly 500 feet,
// plenty for map display while cutting vertex counts dramatically.
const DefaultToleranceMeters = 152.0

// metersPerDegree is the approximate length of one degree at the
// equator; good enough for a display-level simplification tolerance.
const metersPerDegree = 111000.0

// Simplify reduces polygon ring point counts with Douglas-Peucker at
// the given distance tolerance in meters. Any failure — including a
// result that no longer validates — falls back to the input unchanged.
func Simplify(g orb.Geometry, toleranceMeters float64) orb.Geometry {
	if g == nil {
		return nil
	}
	if toleranceMeters <= 0 {
		toleranceMeters = DefaultToleranceMeters
	}

	out := douglasPeucker(g, toleranceMeters/metersPerDegree)
	if out == nil || !Validate(out).OK {
		return g
	}
	return out
}

func douglasPeucker(g orb.Geometry, toleranceDegrees float64) (out orb.Geometry) {
	// The simplifier mutates in place and can panic on degenerate
	// input; simplify a clone and let the caller keep the original.
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	return simplify.DouglasPeucker(toleranceDegrees).Simplify(orb.Clone(g))
}
