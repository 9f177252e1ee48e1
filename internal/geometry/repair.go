package geometry

import "github.com/paulmach/orb"

// Repair fixes the ring defects seen in real uploads: consecutive
// duplicate points and unclosed rings. It is best-effort and idempotent.
// ok is false when the result still fails validation; callers drop the
// geometry for that feature rather than storing it malformed.
func Repair(g orb.Geometry) (orb.Geometry, bool) {
	if g == nil {
		return nil, false
	}

	var repaired orb.Geometry
	switch t := g.(type) {
	case orb.Point, orb.LineString:
		repaired = g
	case orb.Ring:
		repaired = repairRing(t)
	case orb.Polygon:
		repaired = repairPolygon(t)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, 0, len(t))
		for _, poly := range t {
			fixed := repairPolygon(poly)
			if len(fixed) > 0 {
				out = append(out, fixed)
			}
		}
		repaired = out
	default:
		return g, false
	}

	return repaired, Validate(repaired).OK
}

func repairPolygon(poly orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, 0, len(poly))
	for i, ring := range poly {
		fixed := repairRing(ring)
		// A closed ring needs 4 points; drop collapsed interior rings,
		// keep a broken exterior so validation can name the problem.
		if len(fixed) < 4 && i > 0 {
			continue
		}
		out = append(out, fixed)
	}
	return out
}

// repairRing removes consecutive duplicate points (exact coordinate
// equality), then closes the ring if first != last.
func repairRing(ring orb.Ring) orb.Ring {
	if len(ring) == 0 {
		return ring
	}

	out := make(orb.Ring, 0, len(ring)+1)
	out = append(out, ring[0])
	for _, p := range ring[1:] {
		if p == out[len(out)-1] {
			continue
		}
		out = append(out, p)
	}

	if len(out) > 1 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}

	return out
}
