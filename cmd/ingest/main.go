// Package main provides a command-line tool to run one ingestion pass
// against the external text archive without starting the server.
//
// Usage:
//
//	STORAGE_PATH=~/Librarium/data go run ./cmd/ingest --query "subject:stoicism"
//	go run ./cmd/ingest --query "plato" --limit 10 --dry-run
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/librariumapp/librarium-server/internal/ai"
	"github.com/librariumapp/librarium-server/internal/archive"
	"github.com/librariumapp/librarium-server/internal/classifier"
	"github.com/librariumapp/librarium-server/internal/ingest"
	"github.com/librariumapp/librarium-server/internal/search"
	"github.com/librariumapp/librarium-server/internal/storage"
	"github.com/librariumapp/librarium-server/internal/store/sqlite"
)

var (
	query     = flag.String("query", "", "Archive search expression (required)")
	limit     = flag.Int("limit", 25, "Maximum archive results to consider")
	dryRun    = flag.Bool("dry-run", false, "Report what would be imported without writing anything")
	skipFiles = flag.Bool("skip-files", false, "Import metadata only, without PDFs and covers")
	mockAI    = flag.Bool("mock-classifier", false, "Use the deterministic mock classifier")
)

func main() {
	flag.Parse()

	if *query == "" {
		flag.Usage()
		os.Exit(2)
	}

	basePath := os.Getenv("STORAGE_PATH")
	if basePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		basePath = filepath.Join(home, "Librarium", "data")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(basePath, "librarium.db")
	}

	archiveURL := os.Getenv("ARCHIVE_URL")
	if archiveURL == "" {
		archiveURL = "https://archive.org"
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := sqlite.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	files, err := storage.New(basePath)
	if err != nil {
		log.Fatalf("Failed to open file storage: %v", err)
	}

	index, err := search.NewSearchIndex(search.Options{DataPath: basePath, Logger: logger})
	if err != nil {
		log.Fatalf("Failed to open search index: %v", err)
	}
	defer index.Close()

	cache, err := archive.OpenCache(filepath.Join(basePath, "cache", "archive"), logger)
	if err != nil {
		log.Fatalf("Failed to open archive cache: %v", err)
	}
	defer cache.Close()

	var cls classifier.Classifier = classifier.Disabled{}
	if *mockAI {
		cls = classifier.NewMockClassifier()
	} else if apiKey := os.Getenv("AI_API_KEY"); apiKey != "" {
		model := os.Getenv("AI_MODEL")
		if model == "" {
			model = "gpt-4o-mini"
		}
		cls = classifier.NewAIClassifier(ai.New(apiKey, model, logger), logger)
	}

	arch := archive.New(archiveURL, 1.0, logger)
	ingestor := ingest.New(arch, cache, db, files, cls, index, logger)

	// A signal aborts the run between items, not mid-download.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := ingestor.Run(ctx, ingest.Options{
		Query:     *query,
		Limit:     *limit,
		DryRun:    *dryRun,
		SkipFiles: *skipFiles,
	})
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	fmt.Printf("Found:        %d\n", report.Found)
	fmt.Printf("Imported:     %d\n", report.Imported)
	fmt.Printf("Skipped:      %d\n", report.Skipped)
	fmt.Printf("Classified:   %d\n", report.Classified)
	fmt.Printf("Unclassified: %d\n", report.Unclassified)
	fmt.Printf("Failed:       %d\n", report.Failed)
	if report.DryRun {
		fmt.Printf("Dry run; would import %d item(s):\n", len(report.WouldImport))
		for _, id := range report.WouldImport {
			fmt.Printf("  %s\n", id)
		}
	}
}
