package models

import (
	"database/sql"
	"time"
)

// StateUnknown is stored when no source resolved a state for a park.
// The parks table requires a non-null state, so the sentinel stands in.
const StateUnknown = "N/A"

// PlaceholderName is assigned by the schema normalizer when no source key
// yielded a name. Records carrying it must never reach the store.
const PlaceholderName = "Unnamed Park"

// Park is the canonical stored record for one piece of public recreation
// land, merged from every source that has described it.
type Park struct {
	ID                 int64           `db:"id" json:"id"`
	SourceID           sql.NullString  `db:"source_id" json:"source_id"`
	Name               string          `db:"name" json:"name"`
	State              string          `db:"state" json:"state"`
	Agency             sql.NullString  `db:"agency" json:"agency"`
	AgencyFullName     sql.NullString  `db:"agency_full_name" json:"agency_full_name"`
	Description        sql.NullString  `db:"description" json:"description"`
	Website            sql.NullString  `db:"website" json:"website"`
	Phone              sql.NullString  `db:"phone" json:"phone"`
	Email              sql.NullString  `db:"email" json:"email"`
	Address            sql.NullString  `db:"address" json:"address"`
	County             sql.NullString  `db:"county" json:"county"`
	Acres              sql.NullFloat64 `db:"acres" json:"acres"`
	Category           sql.NullString  `db:"category" json:"category"`
	DesignationType    sql.NullString  `db:"designation_type" json:"designation_type"`
	PublicAccess       sql.NullString  `db:"public_access" json:"public_access"`
	Amenities          sql.NullString  `db:"amenities" json:"amenities"`   // JSON array
	Activities         sql.NullString  `db:"activities" json:"activities"` // JSON array
	Latitude           sql.NullFloat64 `db:"latitude" json:"latitude"`
	Longitude          sql.NullFloat64 `db:"longitude" json:"longitude"`
	Boundary           sql.NullString  `db:"boundary" json:"boundary"` // CRS-tagged WKT
	DataSource         string          `db:"data_source" json:"data_source"`
	DataSourcePriority int             `db:"data_source_priority" json:"data_source_priority"`
	DataQualityScore   int             `db:"data_quality_score" json:"data_quality_score"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	LastUpdatedAt      time.Time       `db:"last_updated_at" json:"last_updated_at"`
}

// ParkListItem is a lightweight park for map markers
type ParkListItem struct {
	ID        int64   `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	State     string  `db:"state" json:"state"`
	Latitude  float64 `db:"latitude" json:"lat"`
	Longitude float64 `db:"longitude" json:"lng"`
	Agency    string  `db:"agency" json:"agency"`
	Category  string  `db:"category" json:"category"`
	Source    string  `db:"data_source" json:"source"`
	Quality   int     `db:"data_quality_score" json:"quality"`
}

// ParkDetail is the full park info for popup/modal
type ParkDetail struct {
	ID              int64    `json:"id"`
	SourceID        string   `json:"source_id,omitempty"`
	Name            string   `json:"name"`
	State           string   `json:"state"`
	Agency          string   `json:"agency"`
	AgencyFullName  string   `json:"agency_full_name"`
	Description     string   `json:"description"`
	Website         string   `json:"website"`
	Phone           string   `json:"phone"`
	Email           string   `json:"email"`
	Address         string   `json:"address"`
	County          string   `json:"county"`
	Acres           *float64 `json:"acres,omitempty"`
	Category        string   `json:"category"`
	DesignationType string   `json:"designation_type"`
	PublicAccess    string   `json:"public_access"`
	Amenities       []string `json:"amenities"`
	Activities      []string `json:"activities"`
	Latitude        *float64 `json:"lat,omitempty"`
	Longitude       *float64 `json:"lng,omitempty"`
	Boundary        string   `json:"boundary,omitempty"`
	DataSource      string   `json:"data_source"`
	Priority        int      `json:"data_source_priority"`
	Quality         int      `json:"data_quality_score"`
}

// IngestIssue records what happened to one item that was skipped or errored.
type IngestIssue struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// IngestStats is the summary returned from every ingestion run. It is
// always populated, even when every single item was skipped or errored.
type IngestStats struct {
	Found   int           `json:"found"`
	Added   int           `json:"added"`
	Updated int           `json:"updated"`
	Skipped int           `json:"skipped"`
	Errored int           `json:"errored"`
	Issues  []IngestIssue `json:"issues,omitempty"`
}

// Skip records a policy skip for one item.
func (s *IngestStats) Skip(name, reason string) {
	s.Skipped++
	s.Issues = append(s.Issues, IngestIssue{Name: name, Reason: reason})
}

// Error records a per-item failure.
func (s *IngestStats) Error(name, reason string) {
	s.Errored++
	s.Issues = append(s.Issues, IngestIssue{Name: name, Reason: reason})
}
