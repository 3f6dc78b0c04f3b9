package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/librariumapp/librarium-server/internal/domain"
	"github.com/librariumapp/librarium-server/internal/store"
)

func testBook(id, sourceID string) *domain.Book {
	b := &domain.Book{
		SourceID:    sourceID,
		Title:       "Meditations",
		Authors:     []string{"Marcus Aurelius"},
		Year:        180,
		Description: "Personal writings of the Roman emperor.",
		Language:    "eng",
		Subjects:    []string{"Stoicism"},
	}
	b.ID = id
	b.InitTimestamps()
	return b
}

func TestCreateGetBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := testBook("book-1", "meditations00marc")
	if err := s.CreateBook(ctx, book); err != nil {
		t.Fatalf("create book: %v", err)
	}

	got, err := s.GetBook(ctx, "book-1")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if got.Title != book.Title || got.SourceID != book.SourceID || got.Year != 180 {
		t.Errorf("got %+v", got)
	}
	if len(got.Authors) != 1 || got.Authors[0] != "Marcus Aurelius" {
		t.Errorf("authors = %v", got.Authors)
	}
	if got.Genres != nil {
		t.Errorf("unclassified book should have nil genres, got %v", got.Genres)
	}
	if got.IsClassified() {
		t.Error("unclassified book reported as classified")
	}
}

func TestGetBookBySourceID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetBookBySourceID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	book := testBook("book-1", "meditations00marc")
	if err := s.CreateBook(ctx, book); err != nil {
		t.Fatalf("create book: %v", err)
	}

	got, err := s.GetBookBySourceID(ctx, "meditations00marc")
	if err != nil {
		t.Fatalf("get by source id: %v", err)
	}
	if got.ID != "book-1" {
		t.Errorf("id = %q", got.ID)
	}
}

func TestCreateBook_DuplicateSourceID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateBook(ctx, testBook("book-1", "meditations00marc")); err != nil {
		t.Fatalf("create book: %v", err)
	}
	err := s.CreateBook(ctx, testBook("book-2", "meditations00marc"))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestUpdateBook_GenresRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := testBook("book-1", "meditations00marc")
	if err := s.CreateBook(ctx, book); err != nil {
		t.Fatalf("create book: %v", err)
	}

	book.Genres = []string{"Philosophy", "Ethics"}
	book.Subgenre = "Classical"
	book.Touch()
	if err := s.UpdateBook(ctx, book); err != nil {
		t.Fatalf("update book: %v", err)
	}

	got, err := s.GetBook(ctx, "book-1")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if len(got.Genres) != 2 || got.Genres[0] != "Philosophy" || got.Genres[1] != "Ethics" {
		t.Errorf("genres = %v", got.Genres)
	}
	if got.Subgenre != "Classical" {
		t.Errorf("subgenre = %q", got.Subgenre)
	}
	if !got.IsClassified() {
		t.Error("classified book reported as unclassified")
	}
}

func TestListBooks_GenreFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	philosophy := testBook("book-1", "src-1")
	philosophy.Genres = []string{"Philosophy", "Ethics"}
	history := testBook("book-2", "src-2")
	history.Title = "The Histories"
	history.Genres = []string{"History"}
	unclassified := testBook("book-3", "src-3")
	unclassified.Title = "Unknown"

	for _, b := range []*domain.Book{philosophy, history, unclassified} {
		if err := s.CreateBook(ctx, b); err != nil {
			t.Fatalf("create book %s: %v", b.ID, err)
		}
	}

	got, err := s.ListBooks(ctx, store.BookFilter{Genre: "Philosophy"})
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(got) != 1 || got[0].ID != "book-1" {
		t.Errorf("filtered list = %v", got)
	}

	// Partial matches must not count; "His" is not a genre element.
	got, err = s.ListBooks(ctx, store.BookFilter{Genre: "His"})
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("substring matched %d books, want 0", len(got))
	}

	all, err := s.ListBooks(ctx, store.BookFilter{})
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("unfiltered list = %d books, want 3", len(all))
	}
}

func TestListBooks_Pagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	titles := []string{"Aeneid", "Beowulf", "Candide", "Decameron"}
	for _, title := range titles {
		b := testBook("book-"+title, "src-"+title)
		b.Title = title
		if err := s.CreateBook(ctx, b); err != nil {
			t.Fatalf("create book: %v", err)
		}
	}

	page, err := s.ListBooks(ctx, store.BookFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(page) != 2 || page[0].Title != "Beowulf" || page[1].Title != "Candide" {
		t.Errorf("page = %v", page)
	}
}

func TestDeleteBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateBook(ctx, testBook("book-1", "src-1")); err != nil {
		t.Fatalf("create book: %v", err)
	}
	if err := s.DeleteBook(ctx, "book-1"); err != nil {
		t.Fatalf("delete book: %v", err)
	}

	if _, err := s.GetBook(ctx, "book-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after delete", err)
	}
	if err := s.DeleteBook(ctx, "book-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("double delete err = %v, want ErrNotFound", err)
	}

	n, err := s.CountBooks(ctx)
	if err != nil {
		t.Fatalf("count books: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}
