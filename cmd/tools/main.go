package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"parkatlas/internal/db"
	"parkatlas/internal/geocode"
	"parkatlas/internal/geometry"
	"parkatlas/internal/models"
	"parkatlas/internal/normalize"
	"parkatlas/internal/quality"
)

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	os.Args = os.Args[1:] // Shift args for flag parsing

	switch cmd {
	case "report":
		qualityReport()
	case "backfill-centroids":
		backfillCentroids()
	case "backfill-states":
		backfillStates()
	case "dedupe":
		dedupeAudit()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: tools <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  report              Print the data quality report as JSON")
	fmt.Println("  backfill-centroids  Fill missing coordinates from stored boundaries")
	fmt.Println("  backfill-states     Reverse-geocode states for parks marked N/A")
	fmt.Println("  dedupe              List likely duplicate park pairs")
}

func openDB() *db.DB {
	dbPath := flag.String("db", "", "Path to SQLite database")
	flag.Parse()

	if *dbPath == "" {
		cwd, _ := os.Getwd()
		*dbPath = filepath.Join(cwd, "data", "parkatlas.db")
	}

	database, err := db.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return database
}

func qualityReport() {
	database := openDB()
	defer database.Close()

	parks, err := database.QueryParks(db.ParkFilter{})
	if err != nil {
		log.Fatalf("Failed to load parks: %v", err)
	}

	report := quality.BuildReport(parks)
	data, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(data))
}

// backfillCentroids fills the coordinate columns for rows that carry a
// boundary but no marker point, using the boundary's vertex centroid.
func backfillCentroids() {
	database := openDB()
	defer database.Close()

	parks, err := database.QueryParks(db.ParkFilter{})
	if err != nil {
		log.Fatalf("Failed to load parks: %v", err)
	}

	filled := 0
	for _, p := range parks {
		if p.Latitude.Valid || !p.Boundary.Valid {
			continue
		}

		g, err := geometry.DecodeWKT(p.Boundary.String)
		if err != nil {
			log.Printf("Park %d (%s): unreadable boundary: %v", p.ID, p.Name, err)
			continue
		}
		lat, lng, ok := geometry.Centroid(g)
		if !ok {
			continue
		}

		err = database.UpdatePark(p.ID, map[string]interface{}{
			"latitude":  lat,
			"longitude": lng,
		})
		if err != nil {
			log.Printf("Park %d (%s): update failed: %v", p.ID, p.Name, err)
			continue
		}
		filled++
	}

	log.Printf("Backfilled coordinates for %d parks", filled)
}

// backfillStates resolves the state for rows stuck on the unknown
// sentinel, using their coordinates. Nominatim allows one request a
// second, hence the sleep.
func backfillStates() {
	database := openDB()
	defer database.Close()

	parks, err := database.QueryParks(db.ParkFilter{State: models.StateUnknown})
	if err != nil {
		log.Fatalf("Failed to load parks: %v", err)
	}

	geocoder := geocode.NewGeocoder()
	ctx := context.Background()
	filled := 0

	for _, p := range parks {
		if !p.Latitude.Valid || !p.Longitude.Valid {
			continue
		}

		state, err := geocoder.ReverseGeocode(ctx, p.Latitude.Float64, p.Longitude.Float64)
		if err != nil {
			log.Printf("Park %d (%s): reverse geocode failed: %v", p.ID, p.Name, err)
			continue
		}
		if state == models.StateUnknown {
			continue
		}

		err = database.UpdatePark(p.ID, map[string]interface{}{"state": state})
		if err != nil {
			log.Printf("Park %d (%s): update failed: %v", p.ID, p.Name, err)
			continue
		}
		filled++

		time.Sleep(time.Second)
	}

	log.Printf("Resolved states for %d parks", filled)
}

// dedupeAudit lists pairs of rows in the same state that sit close
// together and share a normalized name, without touching the store.
func dedupeAudit() {
	database := openDB()
	defer database.Close()

	parks, err := database.QueryParks(db.ParkFilter{})
	if err != nil {
		log.Fatalf("Failed to load parks: %v", err)
	}

	byState := make(map[string][]models.Park)
	for _, p := range parks {
		byState[p.State] = append(byState[p.State], p)
	}

	const maxKm = 1.0
	pairs := 0

	for _, group := range byState {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if normalize.Name(a.Name) != normalize.Name(b.Name) {
					continue
				}

				note := "no coordinates to compare"
				if a.Latitude.Valid && b.Latitude.Valid {
					km := geometry.Haversine(
						a.Latitude.Float64, a.Longitude.Float64,
						b.Latitude.Float64, b.Longitude.Float64)
					if km > maxKm {
						continue
					}
					note = fmt.Sprintf("%.2f km apart", km)
				}

				fmt.Printf("%d %q (%s) <-> %d %q (%s): %s\n",
					a.ID, a.Name, a.DataSource, b.ID, b.Name, b.DataSource, note)
				pairs++
			}
		}
	}

	log.Printf("Found %d likely duplicate pairs", pairs)
}
