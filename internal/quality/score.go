// Package quality computes the 0-100 completeness score used to gate
// merge decisions, plus read-side reporting layered on the same scorer.
package quality

import "parkatlas/internal/models"

// Score computes a deterministic completeness score for a park record.
// The point table: required-ish fields up to 40, important fields up to
// 40, supplementary fields up to 20, capped at 100.
func Score(p *models.Park) int {
	score := 0

	// Required-ish fields (max 40)
	if p.Name != "" && p.Name != models.PlaceholderName {
		score += 10
	}
	if p.State != "" && p.State != models.StateUnknown {
		score += 10
	}
	if p.Agency.Valid && p.Agency.String != "" {
		score += 10
	}
	if p.Latitude.Valid && p.Longitude.Valid {
		score += 10
	}

	// Important fields (max 40)
	if p.Description.Valid && p.Description.String != "" {
		score += 10
	}
	if p.Website.Valid && p.Website.String != "" {
		score += 5
	}
	if p.Phone.Valid && p.Phone.String != "" {
		score += 5
	}
	if p.Address.Valid && p.Address.String != "" {
		score += 5
	}
	if p.Acres.Valid && p.Acres.Float64 > 0 {
		score += 5
	}
	if p.Boundary.Valid && p.Boundary.String != "" {
		score += 10
	}

	// Supplementary fields (max 20)
	if p.Email.Valid && p.Email.String != "" {
		score += 3
	}
	if p.County.Valid && p.County.String != "" {
		score += 2
	}
	if p.Amenities.Valid && p.Amenities.String != "" {
		score += 5
	}
	if p.Activities.Valid && p.Activities.String != "" {
		score += 5
	}
	if p.Category.Valid && p.Category.String != "" {
		score += 2
	}
	if p.PublicAccess.Valid && p.PublicAccess.String != "" {
		score += 3
	}

	if score > 100 {
		score = 100
	}
	return score
}
