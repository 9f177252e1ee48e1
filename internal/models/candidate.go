package models

import "github.com/paulmach/orb"

// Candidate is the normalized, not-yet-persisted form of one raw source
// item. It is always consumed into a new Park or merged into an existing
// one; it is never stored directly.
type Candidate struct {
	SourceID        string
	Name            string
	State           string
	Agency          string
	AgencyFullName  string
	Description     string
	Website         string
	Phone           string
	Email           string
	Address         string
	County          string
	Acres           *float64
	Category        string
	DesignationType string
	PublicAccess    string
	Amenities       []string
	Activities      []string
	Latitude        *float64
	Longitude       *float64

	// Geometry is the raw decoded boundary, if the source carried one.
	// The geometry pipeline turns it into the stored WKT form.
	Geometry orb.Geometry

	// BoundaryWKT is filled in by the geometry pipeline after
	// validate/repair/simplify/encode.
	BoundaryWKT string
}

// HasCoords reports whether both coordinates are present. Latitude and
// longitude travel together; one without the other counts as absent.
func (c *Candidate) HasCoords() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// RawItem is one unnormalized record handed over by a source: a loose
// property bag plus whatever geometry came with it.
type RawItem struct {
	Props    map[string]interface{}
	Geometry orb.Geometry
}
