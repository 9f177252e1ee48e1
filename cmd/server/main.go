package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"parkatlas/internal/api"
	"parkatlas/internal/db"
	"parkatlas/internal/jobs"
	"parkatlas/internal/transfer"
)

func main() {
	// .env is optional; real deployments set the environment directly
	godotenv.Load()

	port := flag.Int("port", 8080, "Port to listen on")
	dbPath := flag.String("db", "", "Path to SQLite database")
	uploadDir := flag.String("upload-dir", "", "Spool directory for uploaded files")
	flag.Parse()

	if *dbPath == "" {
		cwd, _ := os.Getwd()
		*dbPath = filepath.Join(cwd, "data", "parkatlas.db")
	}
	if *uploadDir == "" {
		*uploadDir = filepath.Join(filepath.Dir(*dbPath), "uploads")
	}
	if err := os.MkdirAll(*uploadDir, 0755); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}

	log.Printf("Database path: %s", *dbPath)

	database, err := db.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	chunks := objectStore()
	runner := jobs.NewRunner()
	router := api.NewRouter(database, runner, chunks, *uploadDir)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Starting server on http://localhost%s", addr)

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// objectStore connects the chunked transfer manager when MINIO_ENDPOINT
// is configured. Without it, uploads are ingested straight from disk.
func objectStore() *transfer.ChunkManager {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		return nil
	}

	store, err := transfer.NewMinioStore(context.Background(), transfer.MinioConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		Bucket:    envOr("MINIO_BUCKET", "parkatlas-uploads"),
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
	})
	if err != nil {
		log.Fatalf("Failed to connect to object storage: %v", err)
	}

	log.Printf("Object storage: %s", endpoint)
	return transfer.NewChunkManager(store)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
