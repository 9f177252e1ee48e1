package reconcile

import (
	"database/sql"
	"strings"
	"time"

	"parkatlas/internal/db"
	"parkatlas/internal/models"
	"parkatlas/internal/quality"
)

// Action is the outcome of a merge decision.
type Action int

const (
	ActionInsert Action = iota
	ActionMerge
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionMerge:
		return "merge"
	default:
		return "skip"
	}
}

// Decision says what to do with one candidate: insert carries the new
// record, merge carries the column updates, skip carries the reason.
type Decision struct {
	Action Action
	Reason string
	Insert *models.Park
	Fields map[string]interface{}
}

// Decide resolves a candidate against an existing record (nil when the
// matcher found none). Callers must have rejected candidates with a
// placeholder name or missing state before getting here.
func Decide(existing *models.Park, cand *models.Candidate, sourceType string, now time.Time) Decision {
	if existing == nil {
		return Decision{
			Action: ActionInsert,
			Insert: buildPark(cand, sourceType, now),
		}
	}

	candPark := buildPark(cand, sourceType, now)
	candPriority := candPark.DataSourcePriority
	candQuality := candPark.DataQualityScore

	fields := mergeFields(existing, candPark, candPriority > existing.DataSourcePriority)

	// Monotonic non-decrease: priority and quality each take the max.
	if candPriority > existing.DataSourcePriority {
		fields["data_source_priority"] = candPriority
		fields["data_source"] = candPark.DataSource
	}
	if candQuality > existing.DataQualityScore {
		fields["data_quality_score"] = candQuality
	}

	if len(fields) == 0 {
		return Decision{
			Action: ActionSkip,
			Reason: "existing data has higher priority",
		}
	}

	fields["last_updated_at"] = now
	return Decision{Action: ActionMerge, Fields: fields}
}

// buildPark constructs the stored form of a candidate, with priority
// from the source table and quality from the scorer.
func buildPark(c *models.Candidate, sourceType string, now time.Time) *models.Park {
	p := &models.Park{
		SourceID:           nullStr(c.SourceID),
		Name:               c.Name,
		State:              c.State,
		Agency:             nullStr(c.Agency),
		AgencyFullName:     nullStr(c.AgencyFullName),
		Description:        nullStr(c.Description),
		Website:            nullStr(c.Website),
		Phone:              nullStr(c.Phone),
		Email:              nullStr(c.Email),
		Address:            nullStr(c.Address),
		County:             nullStr(c.County),
		Category:           nullStr(c.Category),
		DesignationType:    nullStr(c.DesignationType),
		PublicAccess:       nullStr(c.PublicAccess),
		Amenities:          nullStr(db.EncodeStringList(c.Amenities)),
		Activities:         nullStr(db.EncodeStringList(c.Activities)),
		Boundary:           nullStr(c.BoundaryWKT),
		DataSource:         sourceType,
		DataSourcePriority: PriorityForSource(sourceType),
		CreatedAt:          now,
		LastUpdatedAt:      now,
	}
	if c.Acres != nil {
		p.Acres = sql.NullFloat64{Float64: *c.Acres, Valid: true}
	}
	if c.HasCoords() {
		p.Latitude = sql.NullFloat64{Float64: *c.Latitude, Valid: true}
		p.Longitude = sql.NullFloat64{Float64: *c.Longitude, Valid: true}
	}
	p.DataQualityScore = quality.Score(p)
	return p
}

// mergeFields computes the column updates a candidate contributes.
// Per-field policy: empty existing values are always filled; populated
// values are overwritten only with overwrite rights (strictly higher
// source priority); arrays union; coordinates and boundary follow their
// own protection rules.
func mergeFields(existing, cand *models.Park, allowOverwrite bool) map[string]interface{} {
	fields := make(map[string]interface{})

	mergeStr := func(col string, ex, ca sql.NullString) {
		if ca.String == "" {
			return
		}
		if ex.String == "" || (allowOverwrite && ex.String != ca.String) {
			fields[col] = ca.String
		}
	}

	mergeStr("source_id", existing.SourceID, cand.SourceID)
	mergeStr("agency", existing.Agency, cand.Agency)
	mergeStr("agency_full_name", existing.AgencyFullName, cand.AgencyFullName)
	mergeStr("description", existing.Description, cand.Description)
	mergeStr("website", existing.Website, cand.Website)
	mergeStr("phone", existing.Phone, cand.Phone)
	mergeStr("email", existing.Email, cand.Email)
	mergeStr("address", existing.Address, cand.Address)
	mergeStr("county", existing.County, cand.County)
	mergeStr("category", existing.Category, cand.Category)
	mergeStr("designation_type", existing.DesignationType, cand.DesignationType)
	mergeStr("public_access", existing.PublicAccess, cand.PublicAccess)

	// A name can only be improved with overwrite rights; matching
	// already established the two names describe the same park.
	if allowOverwrite && cand.Name != "" && cand.Name != existing.Name {
		fields["name"] = cand.Name
	}
	if existing.State == models.StateUnknown && cand.State != models.StateUnknown {
		fields["state"] = cand.State
	}

	if cand.Acres.Valid && (!existing.Acres.Valid || (allowOverwrite && existing.Acres.Float64 != cand.Acres.Float64)) {
		fields["acres"] = cand.Acres.Float64
	}

	// Array fields union rather than replace, whatever the priority.
	if merged, changed := unionList(existing.Amenities.String, cand.Amenities.String); changed {
		fields["amenities"] = merged
	}
	if merged, changed := unionList(existing.Activities.String, cand.Activities.String); changed {
		fields["activities"] = merged
	}

	// Coordinates are replaced only when the existing pair is absent or
	// the (0,0) bad-data sentinel; priority does not override this.
	if cand.Latitude.Valid && cand.Longitude.Valid && coordsReplaceable(existing) {
		fields["latitude"] = cand.Latitude.Float64
		fields["longitude"] = cand.Longitude.Float64
	}

	// Boundary is write-once: set only while empty, never replaced.
	if cand.Boundary.String != "" && existing.Boundary.String == "" {
		fields["boundary"] = cand.Boundary.String
	}

	return fields
}

// coordsReplaceable reports whether the stored coordinates may be
// overwritten: both absent, or exactly (0,0), a sentinel some upstream
// feeds emit for "unknown".
func coordsReplaceable(p *models.Park) bool {
	if !p.Latitude.Valid || !p.Longitude.Valid {
		return true
	}
	return p.Latitude.Float64 == 0 && p.Longitude.Float64 == 0
}

// unionList merges two stored JSON lists case-insensitively, reporting
// whether the union adds anything over the existing list.
func unionList(existing, candidate string) (string, bool) {
	if candidate == "" {
		return existing, false
	}

	exItems := db.DecodeStringList(existing)
	caItems := db.DecodeStringList(candidate)

	seen := make(map[string]bool, len(exItems))
	merged := make([]string, 0, len(exItems)+len(caItems))
	for _, item := range exItems {
		key := normalizeKey(item)
		if !seen[key] {
			seen[key] = true
			merged = append(merged, item)
		}
	}

	added := false
	for _, item := range caItems {
		key := normalizeKey(item)
		if !seen[key] {
			seen[key] = true
			merged = append(merged, item)
			added = true
		}
	}

	if !added {
		return existing, false
	}
	return db.EncodeStringList(merged), true
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
