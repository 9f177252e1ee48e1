package quality

import (
	"strings"

	"parkatlas/internal/models"
)

// Report summarizes record completeness across a set of parks. It is a
// reporting surface only; nothing here gates merges.
type Report struct {
	Total         int            `json:"total"`
	AverageScore  float64        `json:"average_score"`
	MissingCoords int            `json:"missing_coords"`
	MissingState  int            `json:"missing_state"`
	WithBoundary  int            `json:"with_boundary"`
	ByState       map[string]int `json:"by_state"`
	ByAgency      map[string]int `json:"by_agency"`
	BySource      map[string]int `json:"by_source"`
	ScoreBuckets  map[string]int `json:"score_buckets"` // "0-24", "25-49", "50-74", "75-100"
	LikelyNotPark []string       `json:"likely_not_park,omitempty"`
}

// Terms that suggest a record is not actually public recreation land.
// Combined with tiny acreage they flag likely junk from broad GIS pulls.
var notParkTerms = []string{
	"cemetery", "golf", "school", "museum", "library", "hospital",
	"church", "parking", "easement", "median", "hoa",
}

// BuildReport computes aggregate quality statistics for the given parks.
func BuildReport(parks []models.Park) *Report {
	r := &Report{
		ByState:      make(map[string]int),
		ByAgency:     make(map[string]int),
		BySource:     make(map[string]int),
		ScoreBuckets: map[string]int{"0-24": 0, "25-49": 0, "50-74": 0, "75-100": 0},
	}

	sum := 0
	for i := range parks {
		p := &parks[i]
		r.Total++

		score := Score(p)
		sum += score
		switch {
		case score < 25:
			r.ScoreBuckets["0-24"]++
		case score < 50:
			r.ScoreBuckets["25-49"]++
		case score < 75:
			r.ScoreBuckets["50-74"]++
		default:
			r.ScoreBuckets["75-100"]++
		}

		if !p.Latitude.Valid || !p.Longitude.Valid {
			r.MissingCoords++
		}
		if p.State == models.StateUnknown {
			r.MissingState++
		}
		if p.Boundary.Valid && p.Boundary.String != "" {
			r.WithBoundary++
		}

		r.ByState[p.State]++
		if p.Agency.Valid && p.Agency.String != "" {
			r.ByAgency[p.Agency.String]++
		}
		if p.DataSource != "" {
			r.BySource[p.DataSource]++
		}

		if LikelyNotPark(p) {
			r.LikelyNotPark = append(r.LikelyNotPark, p.Name)
		}
	}

	if r.Total > 0 {
		r.AverageScore = float64(sum) / float64(r.Total)
	}
	return r
}

// LikelyNotPark flags records whose name matches the denylist and whose
// acreage is tiny or unknown. A heuristic for operators, not a filter.
func LikelyNotPark(p *models.Park) bool {
	name := strings.ToLower(p.Name)
	hit := false
	for _, term := range notParkTerms {
		if strings.Contains(name, term) {
			hit = true
			break
		}
	}
	if !hit {
		return false
	}
	return !p.Acres.Valid || p.Acres.Float64 < 5
}
