package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/librariumapp/librarium-server/internal/domain"
	domainerrors "github.com/librariumapp/librarium-server/internal/errors"
	"github.com/librariumapp/librarium-server/internal/search"
	"github.com/librariumapp/librarium-server/internal/storage"
	"github.com/librariumapp/librarium-server/internal/store"
	"github.com/librariumapp/librarium-server/internal/taxonomy"
	"github.com/librariumapp/librarium-server/internal/validation"
)

// BookService handles catalog browsing, search, and file access.
type BookService struct {
	books     store.BookStore
	index     *search.SearchIndex
	storage   *storage.Storage
	validator *validation.Validator
	logger    *slog.Logger
}

// NewBookService creates a new catalog service.
func NewBookService(books store.BookStore, index *search.SearchIndex, files *storage.Storage, logger *slog.Logger) *BookService {
	return &BookService{
		books:     books,
		index:     index,
		storage:   files,
		validator: validation.New(),
		logger:    logger,
	}
}

// ListRequest selects a catalog page.
type ListRequest struct {
	Genre    string `json:"genre,omitempty"`
	Language string `json:"language,omitempty"`
	Limit    int    `json:"limit" validate:"gte=0,lte=100"`
	Offset   int    `json:"offset" validate:"gte=0"`
}

// ListResponse is one page of the catalog.
type ListResponse struct {
	Books  []*domain.Book `json:"books"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// List returns a page of catalog books ordered by title.
func (s *BookService) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Limit == 0 {
		req.Limit = 20
	}
	if req.Genre != "" {
		genre, ok := taxonomy.CanonicalGenre(req.Genre)
		if !ok {
			return nil, domainerrors.Validation(fmt.Sprintf("unknown genre %q", req.Genre))
		}
		req.Genre = genre
	}

	books, err := s.books.ListBooks(ctx, store.BookFilter{
		Genre:    req.Genre,
		Language: req.Language,
		Limit:    req.Limit,
		Offset:   req.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	total, err := s.books.CountBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}

	return &ListResponse{Books: books, Total: total, Limit: req.Limit, Offset: req.Offset}, nil
}

// Get returns a single catalog record.
func (s *BookService) Get(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.books.GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// Search runs a full-text query over the catalog index.
func (s *BookService) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	if params.Limit <= 0 {
		params.Limit = 20
	}
	if params.Limit > 100 {
		params.Limit = 100
	}
	for i, g := range params.Genres {
		genre, ok := taxonomy.CanonicalGenre(g)
		if !ok {
			return nil, domainerrors.Validation(fmt.Sprintf("unknown genre %q", g))
		}
		params.Genres[i] = genre
	}

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return result, nil
}

// Genres returns the browsable genre taxonomy.
func (s *BookService) Genres() []string {
	return taxonomy.PrimaryGenres
}

// Subgenres returns the secondary descriptor taxonomy.
func (s *BookService) Subgenres() []string {
	return taxonomy.SubGenres
}

// OpenPDF returns a reader over a stored PDF for download. Downloads
// are restricted to premium and admin accounts.
func (s *BookService) OpenPDF(ctx context.Context, user *domain.User, bookID string) (*os.File, *domain.Book, error) {
	if !user.CanDownload() {
		return nil, nil, domainerrors.Forbidden("downloads require a premium account")
	}

	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, nil, err
	}
	if !book.HasPDF() {
		return nil, nil, domainerrors.NotFound("no PDF stored for this book")
	}

	f, err := s.storage.OpenPDF(bookID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, domainerrors.NotFound("no PDF stored for this book")
		}
		return nil, nil, fmt.Errorf("open pdf: %w", err)
	}

	s.logger.Info("pdf download", "book_id", bookID, "user_id", user.ID)
	return f, book, nil
}

// GetCover returns the stored cover image bytes for a book.
func (s *BookService) GetCover(ctx context.Context, bookID string) ([]byte, error) {
	// Covers are public within the app; no role gate.
	if _, err := s.Get(ctx, bookID); err != nil {
		return nil, err
	}
	data, err := s.storage.GetCover(bookID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domainerrors.NotFound("no cover stored for this book")
		}
		return nil, fmt.Errorf("get cover: %w", err)
	}
	return data, nil
}

// Delete removes a book from the catalog, the search index, and disk.
func (s *BookService) Delete(ctx context.Context, id string) error {
	if err := s.books.DeleteBook(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("book not found")
		}
		return fmt.Errorf("delete book: %w", err)
	}
	if err := s.index.DeleteBook(id); err != nil {
		s.logger.Warn("remove book from index", "book_id", id, "error", err)
	}
	if err := s.storage.Delete(id); err != nil {
		s.logger.Warn("remove book files", "book_id", id, "error", err)
	}
	s.logger.Info("book deleted", "book_id", id)
	return nil
}
