package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"parkatlas/internal/db"
	"parkatlas/internal/reconcile"
	"parkatlas/internal/scraper"
	"parkatlas/internal/sources"
)

func main() {
	godotenv.Load()

	dbPath := flag.String("db", "", "Path to SQLite database")
	file := flag.String("file", "", "GeoJSON file to ingest")
	arcgisURL := flag.String("arcgis", "", "ArcGIS query endpoint to pull")
	npsURL := flag.String("nps", "", "NPS API parks endpoint to pull")
	scrapeURL := flag.String("scrape", "", "Park directory URL to scrape")
	state := flag.String("state", "", "State code for scraped parks")
	sourceType := flag.String("source-type", "", "Source label for the priority table")
	headless := flag.Bool("headless", true, "Run scrape browser headless")
	flag.Parse()

	if *dbPath == "" {
		cwd, _ := os.Getwd()
		*dbPath = filepath.Join(cwd, "data", "parkatlas.db")
	}

	log.Printf("Using database: %s", *dbPath)

	database, err := db.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Interrupted, finishing current batch...")
		cancel()
	}()

	src, label := buildSource(ctx, *file, *arcgisURL, *npsURL, *scrapeURL, *state, *headless)
	if src == nil {
		log.Fatal("One of -file, -arcgis, -nps or -scrape is required")
	}
	if *sourceType != "" {
		label = *sourceType
	}

	cfg := reconcile.DefaultIngesterConfig(label)
	if *arcgisURL != "" || *npsURL != "" {
		// Remote pulls get the per-item timeout.
		cfg = reconcile.APIIngesterConfig(label)
	}

	matcher := reconcile.NewMatcher(database, reconcile.DefaultMatcherConfig())
	ing := reconcile.NewIngester(database, matcher, cfg)

	stats, err := ing.Run(ctx, src.Fetch(ctx))
	if err != nil {
		log.Fatalf("Ingest failed: %v", err)
	}

	log.Printf("Ingest complete: found=%d added=%d updated=%d skipped=%d errored=%d",
		stats.Found, stats.Added, stats.Updated, stats.Skipped, stats.Errored)
	for _, issue := range stats.Issues {
		log.Printf("  issue: %s: %s", issue.Name, issue.Reason)
	}
}

func buildSource(ctx context.Context, file, arcgisURL, npsURL, scrapeURL, state string, headless bool) (sources.Source, string) {
	switch {
	case file != "":
		return &sources.GeoJSONFile{Path: file}, "agency_upload"
	case arcgisURL != "":
		return sources.NewArcGISClient(arcgisURL), "state_gis"
	case npsURL != "":
		return sources.NewNPSClient(npsURL, os.Getenv("NPS_API_KEY")), "nps_api"
	case scrapeURL != "":
		browser := scraper.NewBrowser(headless)
		if err := browser.Start(); err != nil {
			log.Fatalf("Failed to start browser: %v", err)
		}
		go func() {
			<-ctx.Done()
			browser.Stop()
		}()
		cfg := scraper.DefaultDirectoryConfig(scrapeURL, state)
		return scraper.NewDirectoryScraper(browser, cfg), "web_scrape"
	}
	return nil, ""
}
