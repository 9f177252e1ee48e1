// Package geometry validates, repairs, simplifies and encodes park
// boundary geometry decoded from GeoJSON sources.
package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// maxDepth bounds traversal of nested collections so a pathological
// input cannot recurse without limit.
const maxDepth = 8

// Verdict is a structural validity check result. Failures carry a
// human-readable reason; Validate never panics.
type Verdict struct {
	OK     bool
	Reason string
}

func invalid(format string, args ...interface{}) Verdict {
	return Verdict{OK: false, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks coordinate structure and ranges: finite numbers,
// longitude in [-180,180], latitude in [-90,90], polygon exterior rings
// with at least 4 points.
func Validate(g orb.Geometry) Verdict {
	return validate(g, 0)
}

func validate(g orb.Geometry, depth int) Verdict {
	if depth > maxDepth {
		return invalid("geometry nesting exceeds depth %d", maxDepth)
	}
	if g == nil {
		return invalid("geometry is missing")
	}

	switch t := g.(type) {
	case orb.Point:
		return validatePoint(t)
	case orb.LineString:
		if len(t) < 2 {
			return invalid("linestring has %d points, need at least 2", len(t))
		}
		for _, p := range t {
			if v := validatePoint(p); !v.OK {
				return v
			}
		}
	case orb.Ring:
		return validateRing(t, true)
	case orb.Polygon:
		return validatePolygon(t)
	case orb.MultiPolygon:
		if len(t) == 0 {
			return invalid("multipolygon has no polygons")
		}
		for i, poly := range t {
			if v := validatePolygon(poly); !v.OK {
				return invalid("polygon %d: %s", i, v.Reason)
			}
		}
	case orb.Collection:
		for i, member := range t {
			if v := validate(member, depth+1); !v.OK {
				return invalid("collection member %d: %s", i, v.Reason)
			}
		}
	default:
		return invalid("unsupported geometry type %q", g.GeoJSONType())
	}

	return Verdict{OK: true}
}

func validatePolygon(poly orb.Polygon) Verdict {
	if len(poly) == 0 {
		return invalid("polygon has no rings")
	}
	for i, ring := range poly {
		// Only the exterior ring enforces the closed-ring minimum;
		// degenerate holes are dropped by repair instead.
		if v := validateRing(ring, i == 0); !v.OK {
			return v
		}
	}
	return Verdict{OK: true}
}

func validateRing(ring orb.Ring, exterior bool) Verdict {
	if exterior && len(ring) < 4 {
		return invalid("exterior ring has %d points, need at least 4", len(ring))
	}
	for _, p := range ring {
		if v := validatePoint(p); !v.OK {
			return v
		}
	}
	return Verdict{OK: true}
}

func validatePoint(p orb.Point) Verdict {
	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || math.IsInf(lon, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return invalid("coordinate is not a finite number")
	}
	if lon < -180 || lon > 180 {
		return invalid("longitude %g out of range [-180, 180]", lon)
	}
	if lat < -90 || lat > 90 {
		return invalid("latitude %g out of range [-90, 90]", lat)
	}
	return Verdict{OK: true}
}
