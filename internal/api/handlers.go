package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"parkatlas/internal/cache"
	"parkatlas/internal/db"
	"parkatlas/internal/jobs"
	"parkatlas/internal/models"
	"parkatlas/internal/quality"
	"parkatlas/internal/reconcile"
	"parkatlas/internal/sources"
	"parkatlas/internal/transfer"
)

const reportCacheKey = "quality_report"

// Handlers contains HTTP handlers and their dependencies
type Handlers struct {
	db        *db.DB
	runner    *jobs.Runner
	chunks    *transfer.ChunkManager
	reports   *cache.Cache
	uploadDir string
}

// NewHandlers creates a new Handlers instance. chunks may be nil when
// no object store is configured; uploads then ingest straight from
// the local spool.
func NewHandlers(database *db.DB, runner *jobs.Runner, chunks *transfer.ChunkManager, uploadDir string) *Handlers {
	return &Handlers{
		db:        database,
		runner:    runner,
		chunks:    chunks,
		reports:   cache.New(8, 5*time.Minute),
		uploadDir: uploadDir,
	}
}

// ListParks handles GET /api/parks
func (h *Handlers) ListParks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := db.ParkFilter{
		State:      q.Get("state"),
		Agency:     q.Get("agency"),
		DataSource: q.Get("data_source"),
	}

	if v := q.Get("has_coords"); v != "" {
		has := v == "true" || v == "1"
		filter.HasCoords = &has
	}
	if v := q.Get("quality_min"); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			filter.QualityMin = &val
		}
	}

	// Parse map bounds (sw_lat,sw_lng,ne_lat,ne_lng)
	if v := q.Get("bounds"); v != "" {
		parts := strings.Split(v, ",")
		if len(parts) == 4 {
			swLat, _ := strconv.ParseFloat(parts[0], 64)
			swLng, _ := strconv.ParseFloat(parts[1], 64)
			neLat, _ := strconv.ParseFloat(parts[2], 64)
			neLng, _ := strconv.ParseFloat(parts[3], 64)
			filter.SWLat = &swLat
			filter.SWLng = &swLng
			filter.NELat = &neLat
			filter.NELng = &neLng
		}
	}

	if v := q.Get("limit"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 && val <= 500 {
			filter.Limit = val
		}
	}
	if v := q.Get("offset"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			filter.Offset = val
		}
	}

	parks, err := h.db.ListParks(filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"parks": parks,
		"count": len(parks),
	})
}

// GetPark handles GET /api/parks/{id}
func (h *Handlers) GetPark(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid park ID", http.StatusBadRequest)
		return
	}

	park, err := h.db.GetPark(id)
	if err != nil {
		http.Error(w, "park not found", http.StatusNotFound)
		return
	}

	writeJSON(w, park)
}

// QualityReport handles GET /api/quality/report
func (h *Handlers) QualityReport(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.reports.Get(reportCacheKey); ok {
		writeJSON(w, cached)
		return
	}

	parks, err := h.db.QueryParks(db.ParkFilter{})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	report := quality.BuildReport(parks)
	h.reports.Set(reportCacheKey, report)
	writeJSON(w, report)
}

// UploadIngest handles POST /api/ingest/upload: spool the file, stage
// it chunk by chunk when an object store is configured, then ingest.
func (h *Handlers) UploadIngest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	sourceType := r.FormValue("source_type")
	if sourceType == "" {
		sourceType = "agency_upload"
	}

	localPath := filepath.Join(h.uploadDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(header.Filename)))
	out, err := os.Create(localPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out.Close()

	destPath := "uploads/" + filepath.Base(localPath)
	jobID := h.runner.Submit(context.Background(), destPath, func(ctx context.Context) (models.IngestStats, error) {
		defer os.Remove(localPath)

		data, err := h.stage(ctx, localPath, destPath)
		if err != nil {
			return models.IngestStats{}, err
		}

		items, err := sources.ParseGeoJSON(data)
		if err != nil {
			return models.IngestStats{}, err
		}

		src := func(yield func(models.RawItem, error) bool) {
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
		}
		return h.ingest(ctx, reconcile.DefaultIngesterConfig(sourceType), src)
	})

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{
		"status": "queued",
		"job_id": jobID,
	})
}

// stage pushes the spooled file to the object store and reads it back
// assembled. Without a store it just reads the local file.
func (h *Handlers) stage(ctx context.Context, localPath, destPath string) ([]byte, error) {
	if h.chunks == nil {
		return os.ReadFile(localPath)
	}
	if err := h.chunks.Transfer(ctx, localPath, destPath); err != nil {
		return nil, fmt.Errorf("staging upload: %w", err)
	}
	return h.chunks.Assemble(ctx, destPath)
}

// TriggerIngest handles POST /api/ingest/trigger
func (h *Handlers) TriggerIngest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source     string `json:"source"`
		URL        string `json:"url"`
		APIKey     string `json:"api_key"`
		SourceType string `json:"source_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var src sources.Source
	sourceType := req.SourceType
	switch req.Source {
	case "arcgis":
		if req.URL == "" {
			http.Error(w, "url is required for arcgis", http.StatusBadRequest)
			return
		}
		src = sources.NewArcGISClient(req.URL)
		if sourceType == "" {
			sourceType = "state_gis"
		}
	case "nps":
		if req.URL == "" {
			http.Error(w, "url is required for nps", http.StatusBadRequest)
			return
		}
		src = sources.NewNPSClient(req.URL, req.APIKey)
		if sourceType == "" {
			sourceType = "nps_api"
		}
	default:
		http.Error(w, fmt.Sprintf("unknown source: %s", req.Source), http.StatusBadRequest)
		return
	}

	jobID := h.runner.Submit(context.Background(), "pull/"+req.Source, func(ctx context.Context) (models.IngestStats, error) {
		// Remote pulls get the per-item timeout so a stalled write
		// cannot hang the job.
		return h.ingest(ctx, reconcile.APIIngesterConfig(sourceType), src.Fetch(ctx))
	})

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{
		"status": "queued",
		"job_id": jobID,
	})
}

// GetJob handles GET /api/ingest/jobs/{id}
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.runner.Status(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, job)
}

// ListJobs handles GET /api/ingest/jobs
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.runner.List())
}

func (h *Handlers) ingest(ctx context.Context, cfg reconcile.IngesterConfig, items iter.Seq2[models.RawItem, error]) (models.IngestStats, error) {
	matcher := reconcile.NewMatcher(h.db, reconcile.DefaultMatcherConfig())
	ing := reconcile.NewIngester(h.db, matcher, cfg)

	stats, err := ing.Run(ctx, items)
	h.reports.Invalidate(reportCacheKey)

	if saveErr := h.db.SaveIngestRun(uuid.New().String(), cfg.SourceType, stats); saveErr != nil {
		log.Printf("Failed to record ingest run: %v", saveErr)
	}
	return stats, err
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
