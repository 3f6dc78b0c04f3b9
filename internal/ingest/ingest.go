// Package ingest imports public-domain texts from the external archive
// into the catalog, classifying them with the librarian's genre taxonomy.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/librariumapp/librarium-server/internal/archive"
	"github.com/librariumapp/librarium-server/internal/classifier"
	"github.com/librariumapp/librarium-server/internal/domain"
	"github.com/librariumapp/librarium-server/internal/id"
	"github.com/librariumapp/librarium-server/internal/storage"
	"github.com/librariumapp/librarium-server/internal/store"
)

// Archive is the subset of the archive client the ingestor needs.
type Archive interface {
	Search(ctx context.Context, query string, limit int) ([]archive.SearchResult, error)
	Fetch(ctx context.Context, identifier string) (*archive.Item, error)
	DownloadFile(ctx context.Context, identifier, name string, w io.Writer) (int64, error)
}

// Catalog is the subset of the store the ingestor needs.
type Catalog interface {
	GetBookBySourceID(ctx context.Context, sourceID string) (*domain.Book, error)
	CreateBook(ctx context.Context, book *domain.Book) error
	UpdateBook(ctx context.Context, book *domain.Book) error
}

// Indexer receives imported books for search indexing.
type Indexer interface {
	IndexBook(book *domain.Book) error
}

// NoopIndexer discards indexing requests.
type NoopIndexer struct{}

func (NoopIndexer) IndexBook(*domain.Book) error { return nil }

// Options controls one ingest run.
type Options struct {
	// Query is the archive search expression.
	Query string
	// Limit caps the number of archive results considered.
	Limit int
	// DryRun reports what would be imported without writing anything:
	// no catalog rows, no files, no classification calls.
	DryRun bool
	// SkipFiles imports metadata only, leaving PDFs and covers behind.
	SkipFiles bool
}

// Report summarizes one ingest run.
type Report struct {
	// RunID identifies the run in logs.
	RunID string `json:"run_id"`

	Found        int `json:"found"`
	Imported     int `json:"imported"`
	Skipped      int `json:"skipped"`
	Reclassified int `json:"reclassified"`
	Classified   int `json:"classified"`
	Unclassified int `json:"unclassified"`
	Failed       int `json:"failed"`

	DryRun bool `json:"dry_run"`
	// WouldImport lists the source identifiers a dry run would import.
	WouldImport []string `json:"would_import,omitempty"`
}

// Ingestor orchestrates archive imports.
type Ingestor struct {
	archive    Archive
	cache      *archive.Cache
	catalog    Catalog
	storage    *storage.Storage
	classifier classifier.Classifier
	indexer    Indexer
	logger     *slog.Logger
}

// New creates an Ingestor. cache may be nil to skip archive caching;
// indexer may be nil to skip search indexing.
func New(
	arch Archive,
	cache *archive.Cache,
	catalog Catalog,
	files *storage.Storage,
	cls classifier.Classifier,
	indexer Indexer,
	logger *slog.Logger,
) *Ingestor {
	if indexer == nil {
		indexer = NoopIndexer{}
	}
	if cls == nil {
		cls = classifier.Disabled{}
	}
	return &Ingestor{
		archive:    arch,
		cache:      cache,
		catalog:    catalog,
		storage:    files,
		classifier: cls,
		indexer:    indexer,
		logger:     logger,
	}
}

// Run executes one ingest pass: search the archive, then import each
// result that is not already in the catalog. Classification failures
// never block an import; the book lands with no genres and a later run
// picks it up again.
func (ing *Ingestor) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Query == "" {
		return nil, fmt.Errorf("ingest: query is required")
	}

	runID := uuid.NewString()
	log := ing.logger.With("run_id", runID)

	results, err := ing.search(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("ingest: search archive: %w", err)
	}

	report := &Report{RunID: runID, Found: len(results), DryRun: opts.DryRun}
	log.Info("ingest run started",
		"query", opts.Query, "found", len(results), "dry_run", opts.DryRun)

	for _, result := range results {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		ing.processResult(ctx, result, opts, report)
	}

	log.Info("ingest run finished",
		"imported", report.Imported, "skipped", report.Skipped,
		"classified", report.Classified, "failed", report.Failed)
	return report, nil
}

func (ing *Ingestor) search(ctx context.Context, opts Options) ([]archive.SearchResult, error) {
	if ing.cache != nil {
		if cached, err := ing.cache.GetSearch(opts.Query, opts.Limit); err == nil {
			return cached, nil
		}
	}

	results, err := ing.archive.Search(ctx, opts.Query, opts.Limit)
	if err != nil {
		return nil, err
	}

	if ing.cache != nil && !opts.DryRun {
		if err := ing.cache.PutSearch(opts.Query, opts.Limit, results); err != nil {
			ing.logger.Warn("cache search results", "error", err)
		}
	}
	return results, nil
}

// processResult handles one archive search hit. Errors are counted in
// the report rather than aborting the run.
func (ing *Ingestor) processResult(ctx context.Context, result archive.SearchResult, opts Options, report *Report) {
	log := ing.logger.With("source_id", result.Identifier)

	existing, err := ing.catalog.GetBookBySourceID(ctx, result.Identifier)
	switch {
	case err == nil:
		if existing.IsClassified() {
			// Already imported and classified; nothing to do.
			report.Skipped++
			return
		}
		// Imported earlier but classification never succeeded; retry it
		// without touching the rest of the record.
		if opts.DryRun {
			report.Skipped++
			return
		}
		ing.reclassify(ctx, existing, report, log)
		return
	case errors.Is(err, store.ErrNotFound):
		// New item, import below.
	default:
		log.Error("idempotency lookup failed", "error", err)
		report.Failed++
		return
	}

	if opts.DryRun {
		report.WouldImport = append(report.WouldImport, result.Identifier)
		report.Imported++
		return
	}

	if err := ing.importItem(ctx, result.Identifier, opts, report); err != nil {
		log.Error("import failed", "error", err)
		report.Failed++
	}
}

// importItem fetches metadata, stores files, classifies, and persists a
// new catalog record.
func (ing *Ingestor) importItem(ctx context.Context, identifier string, opts Options, report *Report) error {
	item, err := ing.fetchItem(ctx, identifier)
	if err != nil {
		return fmt.Errorf("fetch metadata: %w", err)
	}

	book := bookFromItem(item)
	bookID, err := id.Generate("book")
	if err != nil {
		return fmt.Errorf("generate book id: %w", err)
	}
	book.ID = bookID
	book.InitTimestamps()

	if !opts.SkipFiles {
		ing.downloadFiles(ctx, item, book)
	}

	ing.classify(ctx, book, report)

	if err := ing.catalog.CreateBook(ctx, book); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Raced with a concurrent run; treat as skipped.
			ing.storage.Delete(book.ID)
			report.Skipped++
			return nil
		}
		ing.storage.Delete(book.ID)
		return fmt.Errorf("create book: %w", err)
	}

	if err := ing.indexer.IndexBook(book); err != nil {
		ing.logger.Warn("index book", "book_id", book.ID, "error", err)
	}

	report.Imported++
	ing.logger.Info("book imported",
		"book_id", book.ID, "source_id", book.SourceID,
		"title", book.Title, "classified", book.IsClassified())
	return nil
}

func (ing *Ingestor) fetchItem(ctx context.Context, identifier string) (*archive.Item, error) {
	if ing.cache != nil {
		if cached, err := ing.cache.GetItem(identifier); err == nil {
			return cached, nil
		}
	}

	item, err := ing.archive.Fetch(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if ing.cache != nil {
		if err := ing.cache.PutItem(item); err != nil {
			ing.logger.Warn("cache item metadata", "identifier", identifier, "error", err)
		}
	}
	return item, nil
}

// classify asks the classifier for genres. An absent result leaves the
// book unclassified and never blocks the import.
func (ing *Ingestor) classify(ctx context.Context, book *domain.Book, report *Report) {
	result := ing.classifier.Classify(ctx, classifier.BookMetadata{
		Title:       book.Title,
		Author:      book.AuthorLine(),
		Year:        book.Year,
		Description: book.Description,
	})
	if result == nil {
		report.Unclassified++
		return
	}
	book.Genres = result.Genres
	book.Subgenre = result.Subgenre
	report.Classified++
}

// reclassify retries classification for a previously imported book that
// has no genres yet.
func (ing *Ingestor) reclassify(ctx context.Context, book *domain.Book, report *Report, log *slog.Logger) {
	result := ing.classifier.Classify(ctx, classifier.BookMetadata{
		Title:       book.Title,
		Author:      book.AuthorLine(),
		Year:        book.Year,
		Description: book.Description,
	})
	if result == nil {
		report.Skipped++
		return
	}

	book.Genres = result.Genres
	book.Subgenre = result.Subgenre
	book.Touch()
	if err := ing.catalog.UpdateBook(ctx, book); err != nil {
		log.Error("save reclassification", "error", err)
		report.Failed++
		return
	}
	if err := ing.indexer.IndexBook(book); err != nil {
		log.Warn("reindex book", "error", err)
	}

	report.Reclassified++
	report.Classified++
	log.Info("book reclassified", "book_id", book.ID, "genres", book.Genres)
}

// downloadFiles stores the item's PDF and cover. Failures are logged
// and leave the book without files rather than failing the import.
func (ing *Ingestor) downloadFiles(ctx context.Context, item *archive.Item, book *domain.Book) {
	log := ing.logger.With("source_id", item.Identifier)

	if pdf, ok := item.PDF(); ok {
		f, err := ing.storage.CreatePDF(book.ID)
		if err != nil {
			log.Warn("create pdf file", "error", err)
		} else {
			n, err := ing.archive.DownloadFile(ctx, item.Identifier, pdf.Name, f)
			f.Close()
			if err != nil {
				log.Warn("download pdf", "error", err)
				ing.storage.Delete(book.ID)
			} else {
				book.PDFPath = ing.storage.PDFPath(book.ID)
				book.PDFSize = n
			}
		}
	}

	cover, ok := item.Cover()
	if !ok {
		return
	}
	var buf writerBuffer
	if _, err := ing.archive.DownloadFile(ctx, item.Identifier, cover.Name, &buf); err != nil {
		log.Warn("download cover", "error", err)
		return
	}
	if err := ing.storage.SaveCover(book.ID, buf.data); err != nil {
		log.Warn("save cover", "error", err)
		return
	}
	book.CoverPath = ing.storage.CoverPath(book.ID)

	if hash, err := storage.ComputeBlurHash(buf.data); err == nil {
		book.CoverBlurhash = hash
	} else {
		log.Warn("compute blurhash", "error", err)
	}
}

// bookFromItem maps archive metadata onto a new catalog record.
func bookFromItem(item *archive.Item) *domain.Book {
	return &domain.Book{
		SourceID:    item.Identifier,
		Title:       item.Title,
		Authors:     item.Creators,
		Year:        item.Year,
		Description: item.Description,
		Language:    item.Language,
		Subjects:    item.Subjects,
	}
}

// writerBuffer collects downloaded bytes in memory; covers are small.
type writerBuffer struct {
	data []byte
}

func (b *writerBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}
