package reconcile

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"parkatlas/internal/db"
	"parkatlas/internal/models"
)

func itemsOf(items ...models.RawItem) iter.Seq2[models.RawItem, error] {
	return func(yield func(models.RawItem, error) bool) {
		for _, it := range items {
			if !yield(it, nil) {
				return
			}
		}
	}
}

func newTestIngester(database *db.DB, sourceType string) *Ingester {
	m := NewMatcher(database, DefaultMatcherConfig())
	cfg := DefaultIngesterConfig(sourceType)
	cfg.BatchSize = 2 // exercise mid-run flushes
	return NewIngester(database, m, cfg)
}

func bag(name, state string, lat, lng float64) models.RawItem {
	return models.RawItem{Props: map[string]interface{}{
		"name": name, "state": state, "lat": lat, "lng": lng,
	}}
}

func TestIngesterInsertsAndCounts(t *testing.T) {
	database := testDB(t)
	ing := newTestIngester(database, "web_scrape")

	stats, err := ing.Run(context.Background(), itemsOf(
		bag("Hanging Rock State Park", "NC", 36.39, -80.26),
		bag("Stone Mountain State Park", "NC", 36.38, -81.02),
		bag("Elk Knob State Park", "NC", 36.33, -81.68),
	))
	if err != nil {
		t.Fatal(err)
	}

	if stats.Found != 3 || stats.Added != 3 || stats.Errored != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	count, err := database.GetParkCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("stored %d parks, want 3", count)
	}
}

func TestIngesterRejectsUnusableItems(t *testing.T) {
	database := testDB(t)
	ing := newTestIngester(database, "web_scrape")

	stats, err := ing.Run(context.Background(), itemsOf(
		models.RawItem{Props: map[string]interface{}{"state": "NC", "lat": 35.0, "lng": -80.0}}, // no name
		models.RawItem{Props: map[string]interface{}{"name": "Coordless Park", "state": "NC"}},  // no coords
	))
	if err != nil {
		t.Fatal(err)
	}

	if stats.Skipped != 2 || stats.Added != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(stats.Issues) != 2 {
		t.Fatalf("issues = %v", stats.Issues)
	}

	count, _ := database.GetParkCount()
	if count != 0 {
		t.Errorf("unusable items reached the store: %d rows", count)
	}
}

func TestIngesterMergesAgainstStore(t *testing.T) {
	database := testDB(t)

	// Existing high-priority record with a website but no phone.
	existing := Decide(nil, &models.Candidate{
		Name: "Blue Ridge SP", State: "NC", Website: "https://x",
	}, "ridb_api", now).Insert
	seed(t, database, existing)

	ing := newTestIngester(database, "web_scrape")
	stats, err := ing.Run(context.Background(), itemsOf(
		models.RawItem{Props: map[string]interface{}{
			"name": "Blue Ridge State Park", "state": "NC",
			"lat": 36.0, "lng": -81.0, "phone": "555-1234",
			"website": "https://scraped.example",
		}},
	))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Updated != 1 || stats.Added != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	parks, err := database.QueryParks(db.ParkFilter{State: "NC"})
	if err != nil {
		t.Fatal(err)
	}
	if len(parks) != 1 {
		t.Fatalf("want 1 record after merge, got %d", len(parks))
	}
	p := parks[0]
	if p.Website.String != "https://x" {
		t.Errorf("protected website overwritten: %q", p.Website.String)
	}
	if p.Phone.String != "555-1234" {
		t.Errorf("phone not filled: %q", p.Phone.String)
	}
	if p.DataSourcePriority != 90 {
		t.Errorf("priority regressed to %d", p.DataSourcePriority)
	}
}

func TestIngesterSameBatchMergesKeepQualityMonotonic(t *testing.T) {
	database := testDB(t)

	// Sparse low-priority record; both ingested items merge into it
	// within a single batch.
	existing := Decide(nil, &models.Candidate{
		Name: "Falls Lake SP", State: "NC",
	}, "web_scrape", now).Insert
	seed(t, database, existing)
	seededQuality := existing.DataQualityScore

	ing := newTestIngester(database, "state_gis")
	ing.cfg.BatchSize = 100 // keep both merges in one batch

	rich := models.RawItem{Props: map[string]interface{}{
		"name": "Falls Lake State Park", "state": "NC",
		"lat": 36.02, "lng": -78.68,
		"website":     "https://parks.example/falls-lake",
		"phone":       "919-555-0199",
		"description": "Reservoir shoreline park with campgrounds.",
		"acres":       5000.0,
	}}
	sparse := models.RawItem{Props: map[string]interface{}{
		"name": "Falls Lake SP", "state": "NC", "lat": 36.02, "lng": -78.68,
	}}

	stats, err := ing.Run(context.Background(), itemsOf(rich, sparse))
	if err != nil {
		t.Fatal(err)
	}
	// The sparse item must be decided against the rich merge, not the
	// stale store row, so it has nothing to contribute.
	if stats.Updated != 1 {
		t.Fatalf("stats = %+v, want exactly one update", stats)
	}

	parks, err := database.QueryParks(db.ParkFilter{State: "NC"})
	if err != nil {
		t.Fatal(err)
	}
	if len(parks) != 1 {
		t.Fatalf("want 1 record, got %d", len(parks))
	}

	lat, lng := 36.02, -78.68
	sparseQuality := Decide(nil, &models.Candidate{
		Name: "Falls Lake SP", State: "NC", Latitude: &lat, Longitude: &lng,
	}, "state_gis", now).Insert.DataQualityScore

	got := parks[0].DataQualityScore
	if got <= seededQuality {
		t.Errorf("quality did not improve: %d -> %d", seededQuality, got)
	}
	if got <= sparseQuality {
		t.Errorf("quality regressed to the sparse item's score %d, got %d", sparseQuality, got)
	}
}

func TestIngesterNoDuplicateWithinBatch(t *testing.T) {
	database := testDB(t)
	ing := newTestIngester(database, "web_scrape")
	ing.cfg.BatchSize = 100 // keep both items in one batch

	stats, err := ing.Run(context.Background(), itemsOf(
		bag("Medoc Mountain State Park", "NC", 36.26, -77.88),
		bag("Medoc Mountain SP", "NC", 36.26, -77.88),
	))
	if err != nil {
		t.Fatal(err)
	}

	if stats.Added != 1 {
		t.Fatalf("stats = %+v, want one insert", stats)
	}

	count, _ := database.GetParkCount()
	if count != 1 {
		t.Errorf("batch inserted %d rows for one park", count)
	}
}

func TestIngesterGeometryPipeline(t *testing.T) {
	database := testDB(t)
	ing := newTestIngester(database, "agency_upload")

	// Unclosed ring, no point coordinates: repair closes it and the
	// centroid fallback supplies a marker position.
	open := orb.Polygon{{{-80.0, 36.0}, {-79.9, 36.0}, {-79.9, 36.1}, {-80.0, 36.1}}}
	stats, err := ing.Run(context.Background(), itemsOf(models.RawItem{
		Props:    map[string]interface{}{"name": "Boundary Only Park", "state": "NC"},
		Geometry: open,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Added != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	parks, err := database.QueryParks(db.ParkFilter{State: "NC"})
	if err != nil {
		t.Fatal(err)
	}
	p := parks[0]
	if !p.Boundary.Valid || p.Boundary.String == "" {
		t.Fatal("boundary not stored")
	}
	if p.Boundary.String[:10] != "EPSG:4326;" {
		t.Errorf("boundary missing CRS tag: %q", p.Boundary.String)
	}
	if !p.Latitude.Valid || !p.Longitude.Valid {
		t.Error("centroid fallback did not fill coordinates")
	}
}

func TestIngesterSkipPolicyOnInvalidGeometry(t *testing.T) {
	database := testDB(t)
	m := NewMatcher(database, DefaultMatcherConfig())
	cfg := DefaultIngesterConfig("agency_upload")
	cfg.Geometry = GeometrySkip
	ing := NewIngester(database, m, cfg)

	bad := orb.Polygon{{{200, 95}, {1, 0}, {1, 1}, {200, 95}}}
	stats, err := ing.Run(context.Background(), itemsOf(models.RawItem{
		Props:    map[string]interface{}{"name": "Bad Geometry Park", "state": "NC", "lat": 35.0, "lng": -80.0},
		Geometry: bad,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Skipped != 1 || stats.Added != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestIngesterEmptySourceIsHardFailure(t *testing.T) {
	database := testDB(t)
	ing := newTestIngester(database, "web_scrape")

	_, err := ing.Run(context.Background(), itemsOf())
	if err == nil {
		t.Fatal("zero-feature source should be a hard failure")
	}
}

func TestAPIIngesterConfigSetsItemTimeout(t *testing.T) {
	if got := APIIngesterConfig("nps_api").ItemTimeout; got != 30*time.Second {
		t.Errorf("ItemTimeout = %v, want 30s", got)
	}
	if got := DefaultIngesterConfig("agency_upload").ItemTimeout; got != 0 {
		t.Errorf("file ingestion unexpectedly bounded: %v", got)
	}
}

func TestPersistTimesOutStalledWrite(t *testing.T) {
	database := testDB(t)
	m := NewMatcher(database, DefaultMatcherConfig())
	cfg := APIIngesterConfig("state_gis")
	cfg.ItemTimeout = 20 * time.Millisecond
	ing := NewIngester(database, m, cfg)

	stall := make(chan struct{})
	defer close(stall)

	err := ing.persist(context.Background(), func() error {
		<-stall
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}

func TestIngesterSourceErrorDoesNotAbort(t *testing.T) {
	database := testDB(t)
	ing := newTestIngester(database, "web_scrape")

	items := func(yield func(models.RawItem, error) bool) {
		if !yield(models.RawItem{}, context.DeadlineExceeded) {
			return
		}
		yield(bag("Survivor State Park", "NC", 35.0, -80.0), nil)
	}

	stats, err := ing.Run(context.Background(), items)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Errored != 1 || stats.Added != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
