package reconcile

import (
	"context"
	"fmt"
	"iter"
	"log"
	"time"

	"github.com/paulmach/orb"

	"parkatlas/internal/db"
	"parkatlas/internal/geometry"
	"parkatlas/internal/models"
	"parkatlas/internal/normalize"
)

// GeometryPolicy says what to do with a feature whose geometry fails
// validation.
type GeometryPolicy int

const (
	// GeometrySkip rejects the feature outright.
	GeometrySkip GeometryPolicy = iota
	// GeometryRepair attempts ring repair; if that fails the boundary
	// is dropped and the rest of the feature continues.
	GeometryRepair
)

// IngesterConfig configures one ingestion run.
type IngesterConfig struct {
	// SourceType labels the run for the priority table ("web_scrape",
	// "nps_api", "agency_upload", ...).
	SourceType string
	// BatchSize is how many pending writes accumulate before a flush.
	BatchSize int
	// Geometry is the invalid-geometry policy.
	Geometry GeometryPolicy
	// SimplifyToleranceMeters for boundary simplification; zero uses
	// the default.
	SimplifyToleranceMeters float64
	// ItemTimeout bounds each persistence call; zero disables. API
	// pulls set this so one stalled write cannot hang the run.
	ItemTimeout time.Duration
	// MaxRetries for transient store failures per flush.
	MaxRetries int
}

// DefaultIngesterConfig returns the settings file ingestion uses.
func DefaultIngesterConfig(sourceType string) IngesterConfig {
	return IngesterConfig{
		SourceType: sourceType,
		BatchSize:  50,
		Geometry:   GeometryRepair,
		MaxRetries: 3,
	}
}

// APIIngesterConfig is the default config plus the per-item timeout
// remote pulls use, so one stalled write cannot hang a long-running
// pull.
func APIIngesterConfig(sourceType string) IngesterConfig {
	cfg := DefaultIngesterConfig(sourceType)
	cfg.ItemTimeout = 30 * time.Second
	return cfg
}

// Ingester drives raw source items through normalize -> geometry ->
// match -> decide, batching store writes and tallying what happened to
// every item. Items are processed strictly in source order; there is no
// fan-out, so two items describing the same park cannot both insert.
type Ingester struct {
	db      *db.DB
	schema  *normalize.Schema
	matcher *Matcher
	cfg     IngesterConfig

	// Rows buffered for insert are matched against alongside the store
	// so a batch never inserts two records that would match each other.
	pendingInserts []*models.Park
	pendingUpdates []pendingUpdate
	// Stored rows merged earlier in the batch, keyed by ID. Later items
	// decide against this view rather than the stale store row, keeping
	// priority and quality monotonic within a batch.
	touched map[int64]*models.Park
}

type pendingUpdate struct {
	id     int64
	fields map[string]interface{}
}

// NewIngester creates an ingester over the given store.
func NewIngester(database *db.DB, matcher *Matcher, cfg IngesterConfig) *Ingester {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Ingester{
		db:      database,
		schema:  normalize.NewSchema(),
		matcher: matcher,
		cfg:     cfg,
		touched: make(map[int64]*models.Park),
	}
}

// Run consumes the item sequence and returns the full audit summary.
// Individual item failures never abort the run; the only hard failure
// is a source that yields no items at all.
func (ing *Ingester) Run(ctx context.Context, items iter.Seq2[models.RawItem, error]) (models.IngestStats, error) {
	stats := models.IngestStats{}

	for item, err := range items {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if err != nil {
			stats.Error("(source)", err.Error())
			continue
		}

		stats.Found++
		ing.processItem(ctx, item, &stats)

		if len(ing.pendingInserts)+len(ing.pendingUpdates) >= ing.cfg.BatchSize {
			ing.flush(ctx, &stats)
		}
	}

	ing.flush(ctx, &stats)

	if stats.Found == 0 {
		return stats, fmt.Errorf("source yielded no features")
	}
	return stats, nil
}

func (ing *Ingester) processItem(ctx context.Context, item models.RawItem, stats *models.IngestStats) {
	cand, unknown := ing.schema.Normalize(item.Props)
	cand.Geometry = item.Geometry
	if len(unknown) > 0 {
		log.Printf("Ingest: %s: ignoring unmapped keys %v", cand.Name, unknown)
	}

	if skip, reason := ing.prepareGeometry(cand); skip {
		stats.Skip(cand.Name, reason)
		return
	}

	// Correctness-critical filter: a record with no real name, or with
	// neither coordinates nor a boundary-derived centroid, never
	// reaches the store.
	if cand.Name == models.PlaceholderName {
		stats.Skip(cand.Name, "no usable name")
		return
	}
	if !cand.HasCoords() {
		stats.Skip(cand.Name, "no usable coordinates")
		return
	}

	existing, err := ing.match(cand)
	if err != nil {
		stats.Error(cand.Name, err.Error())
		return
	}

	decision := Decide(existing, cand, ing.cfg.SourceType, time.Now().UTC())
	switch decision.Action {
	case ActionInsert:
		ing.pendingInserts = append(ing.pendingInserts, decision.Insert)
	case ActionMerge:
		if existing.ID == 0 {
			// Merging into a row still buffered for insert.
			applyFields(existing, decision.Fields)
		} else {
			applyFields(existing, decision.Fields)
			ing.touched[existing.ID] = existing
			ing.pendingUpdates = append(ing.pendingUpdates, pendingUpdate{id: existing.ID, fields: decision.Fields})
		}
	case ActionSkip:
		stats.Skip(cand.Name, decision.Reason)
	}
}

// prepareGeometry validates, repairs, simplifies and encodes the raw
// boundary, and fills coordinate gaps from the boundary centroid.
// Returns skip=true when the geometry policy rejects the feature.
func (ing *Ingester) prepareGeometry(cand *models.Candidate) (skip bool, reason string) {
	g := cand.Geometry
	if g == nil {
		return false, ""
	}

	if v := geometry.Validate(g); !v.OK {
		if ing.cfg.Geometry == GeometrySkip {
			return true, fmt.Sprintf("invalid geometry: %s", v.Reason)
		}
		repaired, ok := geometry.Repair(g)
		if !ok {
			// Unrepairable boundary: drop it, keep the feature.
			log.Printf("Ingest: %s: dropping unrepairable geometry (%s)", cand.Name, v.Reason)
			cand.Geometry = nil
			return false, ""
		}
		g = repaired
	}

	g = geometry.Simplify(g, ing.cfg.SimplifyToleranceMeters)

	if !cand.HasCoords() {
		if lat, lng, ok := geometry.Centroid(g); ok {
			cand.Latitude = &lat
			cand.Longitude = &lng
		}
	}

	// Only area geometry is stored as a boundary; bare points already
	// live in the coordinate columns.
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		if encoded, err := geometry.EncodeWKT(g, geometry.CRSWGS84); err == nil {
			cand.BoundaryWKT = encoded
		}
	}
	cand.Geometry = g
	return false, ""
}

// match checks rows buffered for insert, then stored rows already
// merged in this batch, before the store, so items earlier in the same
// batch are visible to later ones.
func (ing *Ingester) match(cand *models.Candidate) (*models.Park, error) {
	sameState := make([]models.Park, 0, len(ing.pendingInserts))
	for _, p := range ing.pendingInserts {
		if p.State == cand.State {
			sameState = append(sameState, *p)
		}
	}
	if hit := ing.matcher.pick(cand.Name, sameState); hit != nil {
		// Return the buffered pointer, not the copy, so merges land on
		// the row that will be inserted.
		for _, p := range ing.pendingInserts {
			if p.Name == hit.Name && p.State == hit.State {
				return p, nil
			}
		}
	}

	// Stored rows with updates buffered this batch carry merges the
	// store read would not see yet; match their in-memory view first.
	merged := make([]models.Park, 0, len(ing.touched))
	for _, p := range ing.touched {
		if p.State == cand.State {
			merged = append(merged, *p)
		}
	}
	if hit := ing.matcher.pick(cand.Name, merged); hit != nil {
		return ing.touched[hit.ID], nil
	}

	existing, err := ing.matcher.Find(cand.Name, cand.State)
	if existing != nil {
		if view, ok := ing.touched[existing.ID]; ok {
			return view, nil
		}
	}
	return existing, err
}

// flush writes all pending inserts and updates, each persistence call
// retried with backoff and bounded by the per-item timeout. Failures
// are recorded per item; the run continues.
func (ing *Ingester) flush(ctx context.Context, stats *models.IngestStats) {
	for _, p := range ing.pendingInserts {
		err := ing.persist(ctx, func() error {
			_, err := ing.db.InsertPark(p)
			return err
		})
		if err != nil {
			stats.Error(p.Name, fmt.Sprintf("insert failed: %v", err))
			continue
		}
		stats.Added++
	}
	ing.pendingInserts = ing.pendingInserts[:0]

	for _, u := range ing.pendingUpdates {
		upd := u
		err := ing.persist(ctx, func() error {
			return ing.db.UpdatePark(upd.id, upd.fields)
		})
		if err != nil {
			stats.Error(fmt.Sprintf("park %d", u.id), fmt.Sprintf("update failed: %v", err))
			continue
		}
		stats.Updated++
	}
	ing.pendingUpdates = ing.pendingUpdates[:0]
	clear(ing.touched)
}

// persist runs one store write with bounded retries (1s, 2s, 4s) and
// the configured per-item timeout. A timeout counts as that item's
// error, never a run abort.
func (ing *Ingester) persist(ctx context.Context, write func() error) error {
	if ing.cfg.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ing.cfg.ItemTimeout)
		defer cancel()
	}

	var err error
	delay := time.Second
	for attempt := 0; attempt < ing.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		done := make(chan error, 1)
		go func() { done <- write() }()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err = <-done:
		}
		if err == nil {
			return nil
		}
	}
	return err
}

// applyFields mirrors db.UpdatePark onto an in-memory record, used when
// a merge lands on a row still buffered for insert.
func applyFields(p *models.Park, fields map[string]interface{}) {
	for col, v := range fields {
		switch col {
		case "source_id":
			p.SourceID = nullStr(v.(string))
		case "name":
			p.Name = v.(string)
		case "state":
			p.State = v.(string)
		case "agency":
			p.Agency = nullStr(v.(string))
		case "agency_full_name":
			p.AgencyFullName = nullStr(v.(string))
		case "description":
			p.Description = nullStr(v.(string))
		case "website":
			p.Website = nullStr(v.(string))
		case "phone":
			p.Phone = nullStr(v.(string))
		case "email":
			p.Email = nullStr(v.(string))
		case "address":
			p.Address = nullStr(v.(string))
		case "county":
			p.County = nullStr(v.(string))
		case "category":
			p.Category = nullStr(v.(string))
		case "designation_type":
			p.DesignationType = nullStr(v.(string))
		case "public_access":
			p.PublicAccess = nullStr(v.(string))
		case "amenities":
			p.Amenities = nullStr(v.(string))
		case "activities":
			p.Activities = nullStr(v.(string))
		case "boundary":
			p.Boundary = nullStr(v.(string))
		case "data_source":
			p.DataSource = v.(string)
		case "acres":
			p.Acres.Float64, p.Acres.Valid = v.(float64), true
		case "latitude":
			p.Latitude.Float64, p.Latitude.Valid = v.(float64), true
		case "longitude":
			p.Longitude.Float64, p.Longitude.Valid = v.(float64), true
		case "data_source_priority":
			p.DataSourcePriority = v.(int)
		case "data_quality_score":
			p.DataQualityScore = v.(int)
		case "last_updated_at":
			p.LastUpdatedAt = v.(time.Time)
		}
	}
}
