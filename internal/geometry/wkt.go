package geometry

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// CRSWGS84 tags encoded geometry with the coordinate reference system
// every source is normalized into.
const CRSWGS84 = "EPSG:4326"

// EncodeWKT renders a geometry as CRS-tagged well-known text, e.g.
// "EPSG:4326;POLYGON((...))" . Point, LineString, Polygon and
// MultiPolygon are supported.
func EncodeWKT(g orb.Geometry, crs string) (string, error) {
	if g == nil {
		return "", fmt.Errorf("no geometry to encode")
	}
	if crs == "" {
		crs = CRSWGS84
	}

	switch g.(type) {
	case orb.Point, orb.LineString, orb.Polygon, orb.MultiPolygon:
	default:
		return "", fmt.Errorf("unsupported geometry type %q", g.GeoJSONType())
	}

	return crs + ";" + wkt.MarshalString(g), nil
}

// DecodeWKT parses geometry produced by EncodeWKT, tolerating a
// missing CRS tag.
func DecodeWKT(s string) (orb.Geometry, error) {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[i+1:]
	}
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("parse WKT: %w", err)
	}
	return g, nil
}
