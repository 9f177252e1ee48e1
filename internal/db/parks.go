package db

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"parkatlas/internal/models"
)

// ParkFilter contains all filter parameters for park queries
type ParkFilter struct {
	State      string
	Agency     string
	DataSource string
	// HasCoords filters on coordinate presence when set.
	HasCoords *bool
	// Map bounds
	SWLat *float64
	SWLng *float64
	NELat *float64
	NELng *float64
	// Minimum quality score
	QualityMin *int
	// Pagination
	Limit  int
	Offset int
}

func (f ParkFilter) where() (string, []interface{}) {
	clauses := []string{"1=1"}
	args := make([]interface{}, 0)

	if f.State != "" {
		clauses = append(clauses, "state = ?")
		args = append(args, f.State)
	}
	if f.Agency != "" {
		clauses = append(clauses, "agency = ?")
		args = append(args, f.Agency)
	}
	if f.DataSource != "" {
		clauses = append(clauses, "data_source = ?")
		args = append(args, f.DataSource)
	}
	if f.HasCoords != nil {
		if *f.HasCoords {
			clauses = append(clauses, "latitude IS NOT NULL AND longitude IS NOT NULL")
		} else {
			clauses = append(clauses, "(latitude IS NULL OR longitude IS NULL)")
		}
	}
	if f.SWLat != nil && f.SWLng != nil && f.NELat != nil && f.NELng != nil {
		clauses = append(clauses, "latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?")
		args = append(args, *f.SWLat, *f.NELat, *f.SWLng, *f.NELng)
	}
	if f.QualityMin != nil {
		clauses = append(clauses, "data_quality_score >= ?")
		args = append(args, *f.QualityMin)
	}

	return strings.Join(clauses, " AND "), args
}

// QueryParks returns full park records matching the filter. The entity
// matcher uses this with a state-only filter.
func (db *DB) QueryParks(f ParkFilter) ([]models.Park, error) {
	where, args := f.where()
	query := "SELECT * FROM parks WHERE " + where

	limit := f.Limit
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
		if f.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", f.Offset)
		}
	}

	var parks []models.Park
	if err := db.Select(&parks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query parks: %w", err)
	}
	return parks, nil
}

// ListParks returns lightweight park items for map markers
func (db *DB) ListParks(f ParkFilter) ([]models.ParkListItem, error) {
	where, args := f.where()
	query := `
		SELECT id, name, state, latitude, longitude,
			COALESCE(agency, '') as agency,
			COALESCE(category, '') as category,
			data_source, data_quality_score
		FROM parks
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL AND ` + where

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", f.Offset)
	}

	var parks []models.ParkListItem
	if err := db.Select(&parks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list parks: %w", err)
	}
	return parks, nil
}

// GetPark returns a single park by ID with full details
func (db *DB) GetPark(id int64) (*models.ParkDetail, error) {
	var p models.Park
	if err := db.Get(&p, "SELECT * FROM parks WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("park %d not found: %w", id, err)
	}

	d := &models.ParkDetail{
		ID:              p.ID,
		SourceID:        p.SourceID.String,
		Name:            p.Name,
		State:           p.State,
		Agency:          p.Agency.String,
		AgencyFullName:  p.AgencyFullName.String,
		Description:     p.Description.String,
		Website:         p.Website.String,
		Phone:           p.Phone.String,
		Email:           p.Email.String,
		Address:         p.Address.String,
		County:          p.County.String,
		Category:        p.Category.String,
		DesignationType: p.DesignationType.String,
		PublicAccess:    p.PublicAccess.String,
		Boundary:        p.Boundary.String,
		DataSource:      p.DataSource,
		Priority:        p.DataSourcePriority,
		Quality:         p.DataQualityScore,
		Amenities:       DecodeStringList(p.Amenities.String),
		Activities:      DecodeStringList(p.Activities.String),
	}
	if p.Acres.Valid {
		d.Acres = &p.Acres.Float64
	}
	if p.Latitude.Valid && p.Longitude.Valid {
		d.Latitude = &p.Latitude.Float64
		d.Longitude = &p.Longitude.Float64
	}
	return d, nil
}

// InsertPark inserts a new park record and returns its assigned ID
func (db *DB) InsertPark(p *models.Park) (int64, error) {
	query := `
		INSERT INTO parks (
			source_id, name, state, agency, agency_full_name,
			description, website, phone, email, address, county,
			acres, category, designation_type, public_access,
			amenities, activities, latitude, longitude, boundary,
			data_source, data_source_priority, data_quality_score,
			created_at, last_updated_at
		) VALUES (
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?
		)
	`

	res, err := db.Exec(query,
		p.SourceID, p.Name, p.State, p.Agency, p.AgencyFullName,
		p.Description, p.Website, p.Phone, p.Email, p.Address, p.County,
		p.Acres, p.Category, p.DesignationType, p.PublicAccess,
		p.Amenities, p.Activities, p.Latitude, p.Longitude, p.Boundary,
		p.DataSource, p.DataSourcePriority, p.DataQualityScore,
		p.CreatedAt, p.LastUpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert park: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted park id: %w", err)
	}
	p.ID = id
	return id, nil
}

// parkColumns whitelists the columns UpdatePark may touch. It keeps a
// fields map from ever reaching SQL with an unknown key.
var parkColumns = map[string]bool{
	"source_id": true, "name": true, "state": true,
	"agency": true, "agency_full_name": true, "description": true,
	"website": true, "phone": true, "email": true, "address": true,
	"county": true, "acres": true, "category": true,
	"designation_type": true, "public_access": true,
	"amenities": true, "activities": true,
	"latitude": true, "longitude": true, "boundary": true,
	"data_source": true, "data_source_priority": true,
	"data_quality_score": true, "last_updated_at": true,
}

// UpdatePark applies the given column/value pairs to one park. Columns
// are applied in sorted order so the generated SQL is deterministic.
func (db *DB) UpdatePark(id int64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !parkColumns[col] {
			return fmt.Errorf("unknown park column %q", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for _, col := range cols {
		sets = append(sets, col+" = ?")
		args = append(args, fields[col])
	}
	args = append(args, id)

	query := "UPDATE parks SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update park %d: %w", id, err)
	}
	return nil
}

// DeleteParks removes the given parks and returns how many rows went away.
// The reconciliation pipeline never calls this; it exists for the admin
// tooling.
func (db *DB) DeleteParks(ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := "DELETE FROM parks WHERE id IN (" + strings.Join(placeholders, ",") + ")"
	res, err := db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete parks: %w", err)
	}
	return res.RowsAffected()
}

// GetParkCount returns total number of parks
func (db *DB) GetParkCount() (int, error) {
	var count int
	err := db.Get(&count, "SELECT COUNT(*) FROM parks")
	return count, err
}

// SaveIngestRun records the outcome of one ingestion run for auditing
func (db *DB) SaveIngestRun(jobID, source string, stats models.IngestStats) error {
	issues, err := json.Marshal(stats.Issues)
	if err != nil {
		return fmt.Errorf("failed to encode issues: %w", err)
	}

	query := `
		INSERT INTO ingest_runs (job_id, source, found, added, updated, skipped, errored, issues, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	_, err = db.Exec(query, jobID, source,
		stats.Found, stats.Added, stats.Updated, stats.Skipped, stats.Errored,
		string(issues))
	if err != nil {
		return fmt.Errorf("failed to save ingest run: %w", err)
	}
	return nil
}

// EncodeStringList serializes a string list for TEXT column storage.
// Empty lists encode as empty string, not "[]", so NULL-vs-empty checks
// in the merge policy stay simple.
func EncodeStringList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	b, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(b)
}

// DecodeStringList parses a JSON array TEXT column; malformed or empty
// values decode to nil.
func DecodeStringList(s string) []string {
	if s == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil
	}
	return items
}
