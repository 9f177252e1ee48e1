package geometry

import "github.com/paulmach/orb"

// Centroid estimates a marker coordinate for a boundary-only feature by
// averaging every ring vertex, flattened across rings and polygons.
// This is not an area centroid; it places map markers, nothing more.
func Centroid(g orb.Geometry) (lat, lng float64, ok bool) {
	var sumLat, sumLng float64
	var n int

	add := func(p orb.Point) {
		sumLng += p.Lon()
		sumLat += p.Lat()
		n++
	}

	switch t := g.(type) {
	case orb.Point:
		add(t)
	case orb.LineString:
		for _, p := range t {
			add(p)
		}
	case orb.Ring:
		for _, p := range t {
			add(p)
		}
	case orb.Polygon:
		for _, ring := range t {
			for _, p := range ring {
				add(p)
			}
		}
	case orb.MultiPolygon:
		for _, poly := range t {
			for _, ring := range poly {
				for _, p := range ring {
					add(p)
				}
			}
		}
	default:
		return 0, 0, false
	}

	if n == 0 {
		return 0, 0, false
	}
	return sumLat / float64(n), sumLng / float64(n), true
}
