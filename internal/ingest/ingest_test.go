package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/librariumapp/librarium-server/internal/archive"
	"github.com/librariumapp/librarium-server/internal/classifier"
	"github.com/librariumapp/librarium-server/internal/storage"
	"github.com/librariumapp/librarium-server/internal/store"
	"github.com/librariumapp/librarium-server/internal/store/sqlite"
)

// stubArchive serves canned search results and items, counting calls.
type stubArchive struct {
	results []archive.SearchResult
	items   map[string]*archive.Item
	files   map[string]string // "identifier/name" -> content

	searchCalls atomic.Int32
	fetchCalls  atomic.Int32
}

func (a *stubArchive) Search(_ context.Context, _ string, _ int) ([]archive.SearchResult, error) {
	a.searchCalls.Add(1)
	return a.results, nil
}

func (a *stubArchive) Fetch(_ context.Context, identifier string) (*archive.Item, error) {
	a.fetchCalls.Add(1)
	item, ok := a.items[identifier]
	if !ok {
		return nil, archive.ErrNotFound
	}
	return item, nil
}

func (a *stubArchive) DownloadFile(_ context.Context, identifier, name string, w io.Writer) (int64, error) {
	content, ok := a.files[identifier+"/"+name]
	if !ok {
		return 0, archive.ErrNotFound
	}
	n, err := w.Write([]byte(content))
	return int64(n), err
}

// stubClassifier delegates to a function and counts calls.
type stubClassifier struct {
	fn    func(classifier.BookMetadata) *classifier.Result
	calls atomic.Int32
}

func (c *stubClassifier) Classify(_ context.Context, meta classifier.BookMetadata) *classifier.Result {
	c.calls.Add(1)
	if c.fn == nil {
		return nil
	}
	return c.fn(meta)
}

func alwaysClassify(genres ...string) *stubClassifier {
	return &stubClassifier{fn: func(classifier.BookMetadata) *classifier.Result {
		return &classifier.Result{Genres: genres}
	}}
}

func neverClassify() *stubClassifier {
	return &stubClassifier{}
}

func newTestCatalog(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}
	return s
}

func twoItemArchive() *stubArchive {
	return &stubArchive{
		results: []archive.SearchResult{
			{Identifier: "meditations00marc", Title: "Meditations"},
			{Identifier: "histories00hero", Title: "The Histories"},
		},
		items: map[string]*archive.Item{
			"meditations00marc": {
				Identifier: "meditations00marc",
				Title:      "Meditations",
				Creators:   []string{"Marcus Aurelius"},
				Year:       180,
				Language:   "eng",
			},
			"histories00hero": {
				Identifier: "histories00hero",
				Title:      "The Histories",
				Creators:   []string{"Herodotus"},
				Year:       -430,
				Language:   "eng",
			},
		},
	}
}

func newIngestor(arch Archive, catalog Catalog, files *storage.Storage, cls classifier.Classifier) *Ingestor {
	return New(arch, nil, catalog, files, cls, nil, slog.New(slog.DiscardHandler))
}

func TestRun_ImportsNewBooks(t *testing.T) {
	arch := twoItemArchive()
	catalog := newTestCatalog(t)
	cls := alwaysClassify("Philosophy")
	ing := newIngestor(arch, catalog, newTestStorage(t), cls)

	report, err := ing.Run(context.Background(), Options{Query: "classics", SkipFiles: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.Found != 2 || report.Imported != 2 || report.Classified != 2 {
		t.Errorf("report = %+v", report)
	}

	book, err := catalog.GetBookBySourceID(context.Background(), "meditations00marc")
	if err != nil {
		t.Fatalf("get imported book: %v", err)
	}
	if book.Title != "Meditations" || len(book.Genres) != 1 || book.Genres[0] != "Philosophy" {
		t.Errorf("book = %+v", book)
	}
}

func TestRun_SkipsAlreadyClassified(t *testing.T) {
	arch := twoItemArchive()
	catalog := newTestCatalog(t)
	cls := alwaysClassify("Philosophy")
	ing := newIngestor(arch, catalog, newTestStorage(t), cls)

	if _, err := ing.Run(context.Background(), Options{Query: "classics", SkipFiles: true}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	fetchesAfterFirst := arch.fetchCalls.Load()
	cls.calls.Store(0)

	report, err := ing.Run(context.Background(), Options{Query: "classics", SkipFiles: true})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if report.Imported != 0 || report.Skipped != 2 {
		t.Errorf("report = %+v", report)
	}
	if cls.calls.Load() != 0 {
		t.Errorf("classifier called %d times for already-classified books", cls.calls.Load())
	}
	if arch.fetchCalls.Load() != fetchesAfterFirst {
		t.Error("metadata re-fetched for already-imported books")
	}
}

func TestRun_ClassificationFailureNeverBlocksImport(t *testing.T) {
	arch := twoItemArchive()
	catalog := newTestCatalog(t)
	ing := newIngestor(arch, catalog, newTestStorage(t), neverClassify())

	report, err := ing.Run(context.Background(), Options{Query: "classics", SkipFiles: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.Imported != 2 || report.Classified != 0 || report.Unclassified != 2 {
		t.Errorf("report = %+v", report)
	}

	book, err := catalog.GetBookBySourceID(context.Background(), "meditations00marc")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if book.Genres != nil {
		t.Errorf("genres = %v, want nil", book.Genres)
	}
}

func TestRun_ReclassifiesUnclassifiedBooks(t *testing.T) {
	arch := twoItemArchive()
	catalog := newTestCatalog(t)
	files := newTestStorage(t)

	// First run: classification unavailable, books land unclassified.
	ing := newIngestor(arch, catalog, files, neverClassify())
	if _, err := ing.Run(context.Background(), Options{Query: "classics", SkipFiles: true}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	fetchesAfterFirst := arch.fetchCalls.Load()

	// Second run: classification is back. Existing rows get genres
	// without being re-imported.
	ing = newIngestor(arch, catalog, files, alwaysClassify("History"))
	report, err := ing.Run(context.Background(), Options{Query: "classics", SkipFiles: true})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if report.Imported != 0 || report.Reclassified != 2 || report.Classified != 2 {
		t.Errorf("report = %+v", report)
	}
	if arch.fetchCalls.Load() != fetchesAfterFirst {
		t.Error("metadata re-fetched during reclassification")
	}

	book, err := catalog.GetBookBySourceID(context.Background(), "histories00hero")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if len(book.Genres) != 1 || book.Genres[0] != "History" {
		t.Errorf("genres = %v", book.Genres)
	}
}

func TestRun_DryRun(t *testing.T) {
	arch := twoItemArchive()
	catalog := newTestCatalog(t)
	cls := alwaysClassify("Philosophy")
	ing := newIngestor(arch, catalog, newTestStorage(t), cls)

	report, err := ing.Run(context.Background(), Options{Query: "classics", DryRun: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !report.DryRun || report.Imported != 2 {
		t.Errorf("report = %+v", report)
	}
	if len(report.WouldImport) != 2 {
		t.Errorf("would import = %v", report.WouldImport)
	}
	if cls.calls.Load() != 0 {
		t.Errorf("classifier called %d times during dry run", cls.calls.Load())
	}
	if arch.fetchCalls.Load() != 0 {
		t.Errorf("metadata fetched %d times during dry run", arch.fetchCalls.Load())
	}

	if _, err := catalog.GetBookBySourceID(context.Background(), "meditations00marc"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("dry run wrote to the catalog: %v", err)
	}
}

func TestRun_DownloadsPDF(t *testing.T) {
	arch := twoItemArchive()
	arch.items["meditations00marc"].Files = []archive.File{
		{Name: "meditations.pdf", Format: "Text PDF", Size: 17},
	}
	arch.files = map[string]string{
		"meditations00marc/meditations.pdf": "not really a pdf",
	}

	catalog := newTestCatalog(t)
	files := newTestStorage(t)
	ing := newIngestor(arch, catalog, files, neverClassify())

	if _, err := ing.Run(context.Background(), Options{Query: "classics"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	book, err := catalog.GetBookBySourceID(context.Background(), "meditations00marc")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if !book.HasPDF() {
		t.Fatal("book has no pdf path")
	}
	if book.PDFSize != int64(len("not really a pdf")) {
		t.Errorf("pdf size = %d", book.PDFSize)
	}
	if !files.HasPDF(book.ID) {
		t.Error("pdf not on disk")
	}

	// The other item has no files; its import still succeeds.
	other, err := catalog.GetBookBySourceID(context.Background(), "histories00hero")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if other.HasPDF() {
		t.Errorf("unexpected pdf path %q", other.PDFPath)
	}
}

func TestRun_PartialFailureContinues(t *testing.T) {
	arch := twoItemArchive()
	delete(arch.items, "meditations00marc") // metadata fetch will fail

	catalog := newTestCatalog(t)
	ing := newIngestor(arch, catalog, newTestStorage(t), neverClassify())

	report, err := ing.Run(context.Background(), Options{Query: "classics", SkipFiles: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.Failed != 1 || report.Imported != 1 {
		t.Errorf("report = %+v", report)
	}
	if _, err := catalog.GetBookBySourceID(context.Background(), "histories00hero"); err != nil {
		t.Errorf("surviving item not imported: %v", err)
	}
}

func TestRun_RequiresQuery(t *testing.T) {
	ing := newIngestor(twoItemArchive(), newTestCatalog(t), newTestStorage(t), neverClassify())
	if _, err := ing.Run(context.Background(), Options{}); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestRun_CachesMetadataBetweenRuns(t *testing.T) {
	arch := twoItemArchive()
	catalog := newTestCatalog(t)
	cache, err := archive.OpenCache(t.TempDir(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	ing := New(arch, cache, catalog, newTestStorage(t), neverClassify(), nil, slog.New(slog.DiscardHandler))
	if _, err := ing.Run(context.Background(), Options{Query: "classics", SkipFiles: true}); err != nil {
		t.Fatalf("run: %v", err)
	}

	if arch.searchCalls.Load() != 1 {
		t.Fatalf("search calls = %d", arch.searchCalls.Load())
	}

	// A second run with a fresh catalog hits the cache, not the archive.
	ing = New(arch, cache, newTestCatalog(t), newTestStorage(t), neverClassify(), nil, slog.New(slog.DiscardHandler))
	if _, err := ing.Run(context.Background(), Options{Query: "classics", SkipFiles: true}); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if arch.searchCalls.Load() != 1 {
		t.Errorf("search calls = %d, want 1 (cached)", arch.searchCalls.Load())
	}
	if arch.fetchCalls.Load() != 2 {
		t.Errorf("fetch calls = %d, want 2 (cached)", arch.fetchCalls.Load())
	}
}
