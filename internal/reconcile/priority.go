// Package reconcile decides what happens when multiple sources describe
// the same park: fuzzy entity matching, a priority-gated merge policy,
// and the batch ingestion loop that drives both.
package reconcile

// Source priority tiers. A stored record's priority only ever goes up,
// so a scrape can backfill gaps but never clobber official data.
var sourcePriorities = map[string]int{
	"nps_api":       95,
	"ridb_api":      90,
	"state_gis":     85,
	"agency_upload": 80,
	"padus":         70,
	"osm":           50,
	"web_scrape":    40,
	"manual":        30,
}

// DefaultSourcePriority applies to source types the table does not name.
const DefaultSourcePriority = 20

// PriorityForSource looks up the trust tier for a source-type label.
func PriorityForSource(sourceType string) int {
	if p, ok := sourcePriorities[sourceType]; ok {
		return p
	}
	return DefaultSourcePriority
}
