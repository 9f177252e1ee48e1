package quality

import (
	"database/sql"
	"testing"

	"parkatlas/internal/models"
)

func ns(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nf(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: true}
}

func fullPark() *models.Park {
	return &models.Park{
		Name:         "Hanging Rock State Park",
		State:        "NC",
		Agency:       ns("NC State Parks"),
		Description:  ns("Quartzite cliffs above the Piedmont."),
		Website:      ns("https://www.ncparks.gov/hanging-rock"),
		Phone:        ns("336-593-8480"),
		Email:        ns("hanging.rock@ncparks.gov"),
		Address:      ns("1790 Hanging Rock Park Rd"),
		County:       ns("Stokes"),
		Acres:        nf(7869),
		Category:     ns("State Park"),
		PublicAccess: ns("Open"),
		Amenities:    ns(`["Restrooms","Picnic Area"]`),
		Activities:   ns(`["Hiking","Swimming"]`),
		Latitude:     nf(36.3935),
		Longitude:    nf(-80.2662),
		Boundary:     ns("EPSG:4326;POLYGON((0 0,1 0,1 1,0 0))"),
	}
}

func TestScoreBounds(t *testing.T) {
	if got := Score(&models.Park{}); got != 0 {
		t.Errorf("empty record score = %d, want 0", got)
	}
	if got := Score(fullPark()); got != 100 {
		t.Errorf("full record score = %d, want 100", got)
	}
}

func TestScorePlaceholdersDontCount(t *testing.T) {
	p := &models.Park{Name: models.PlaceholderName, State: models.StateUnknown}
	if got := Score(p); got != 0 {
		t.Errorf("placeholder name and sentinel state scored %d, want 0", got)
	}
}

func TestScorePartial(t *testing.T) {
	p := &models.Park{
		Name:     "Elk Knob State Park",
		State:    "NC",
		Latitude: nf(36.33),
	}
	// name 10 + state 10; a lone latitude earns nothing
	if got := Score(p); got != 20 {
		t.Errorf("score = %d, want 20", got)
	}

	p.Longitude = nf(-81.68)
	if got := Score(p); got != 30 {
		t.Errorf("score with both coords = %d, want 30", got)
	}
}

func TestScoreZeroAcres(t *testing.T) {
	p := &models.Park{Name: "X Park", State: "NC", Acres: nf(0)}
	if got := Score(p); got != 20 {
		t.Errorf("zero acres should not score, got %d", got)
	}
}

func TestBuildReport(t *testing.T) {
	parks := []models.Park{
		*fullPark(),
		{Name: "Mystery Tract", State: models.StateUnknown, DataSource: "web_scrape"},
		{Name: "Oakwood Cemetery", State: "NC", Acres: nf(2), DataSource: "padus"},
	}

	r := BuildReport(parks)

	if r.Total != 3 {
		t.Errorf("total = %d", r.Total)
	}
	if r.MissingCoords != 2 {
		t.Errorf("missing coords = %d, want 2", r.MissingCoords)
	}
	if r.MissingState != 1 {
		t.Errorf("missing state = %d, want 1", r.MissingState)
	}
	if r.WithBoundary != 1 {
		t.Errorf("with boundary = %d, want 1", r.WithBoundary)
	}
	if r.ByState["NC"] != 2 {
		t.Errorf("by state NC = %d, want 2", r.ByState["NC"])
	}
	if len(r.LikelyNotPark) != 1 || r.LikelyNotPark[0] != "Oakwood Cemetery" {
		t.Errorf("likely not park = %v", r.LikelyNotPark)
	}
}

func TestLikelyNotPark(t *testing.T) {
	big := &models.Park{Name: "Pinehurst Golf Preserve", Acres: nf(900)}
	if LikelyNotPark(big) {
		t.Error("large acreage should clear the heuristic")
	}
	small := &models.Park{Name: "Maplewood Cemetery"}
	if !LikelyNotPark(small) {
		t.Error("denylist name with no acreage should be flagged")
	}
	normal := &models.Park{Name: "Hanging Rock State Park"}
	if LikelyNotPark(normal) {
		t.Error("ordinary park flagged")
	}
}
