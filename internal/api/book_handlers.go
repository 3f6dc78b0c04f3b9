package api

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/librariumapp/librarium-server/internal/domain"
	domainerrors "github.com/librariumapp/librarium-server/internal/errors"
	"github.com/librariumapp/librarium-server/internal/search"
	"github.com/librariumapp/librarium-server/internal/service"
	"github.com/librariumapp/librarium-server/internal/taxonomy"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns a page of the catalog ordered by title, optionally filtered by genre and language.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search books",
		Description: "Full-text search over the catalog with genre facets and fuzzy matching.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "listGenres",
		Method:      http.MethodGet,
		Path:        "/api/v1/genres",
		Summary:     "List genres",
		Description: "Returns the controlled genre vocabulary used for classification and browsing.",
		Tags:        []string{"Books"},
	}, s.handleListGenres)

	// Raw chi routes for file streaming; huma buffers response bodies.
	s.router.Get("/api/v1/books/{id}/cover", s.handleGetBookCover)
	s.router.Get("/api/v1/books/{id}/download", s.handleDownloadBook)
}

// === DTOs ===

// BookResponse is a catalog record in API responses.
type BookResponse struct {
	ID            string    `json:"id" doc:"Book ID"`
	SourceID      string    `json:"source_id" doc:"External archive identifier"`
	Title         string    `json:"title" doc:"Title"`
	Authors       []string  `json:"authors,omitempty" doc:"Authors"`
	Year          int       `json:"year,omitempty" doc:"Publication year"`
	Description   string    `json:"description,omitempty" doc:"Description (markdown)"`
	Language      string    `json:"language,omitempty" doc:"Language code"`
	Subjects      []string  `json:"subjects,omitempty" doc:"Archive subject strings"`
	Genres        []string  `json:"genres,omitempty" doc:"Primary genres; absent when unclassified"`
	Subgenre      string    `json:"subgenre,omitempty" doc:"Secondary descriptor"`
	HasPDF        bool      `json:"has_pdf" doc:"Whether a PDF is available for download"`
	PDFSize       int64     `json:"pdf_size,omitempty" doc:"PDF size in bytes"`
	CoverBlurhash string    `json:"cover_blurhash,omitempty" doc:"BlurHash placeholder for the cover"`
	CreatedAt     time.Time `json:"created_at" doc:"Ingestion timestamp"`
}

// ListBooksInput holds catalog paging parameters.
type ListBooksInput struct {
	Genre    string `query:"genre" doc:"Filter by primary genre (case-insensitive)"`
	Language string `query:"language" doc:"Filter by language code"`
	Limit    int    `query:"limit" doc:"Page size (default 20, max 100)"`
	Offset   int    `query:"offset" doc:"Page offset"`
}

// BookListResponse is one page of the catalog.
type BookListResponse struct {
	Books  []BookResponse `json:"books" doc:"Catalog page"`
	Total  int            `json:"total" doc:"Total books in the catalog"`
	Limit  int            `json:"limit" doc:"Page size used"`
	Offset int            `json:"offset" doc:"Page offset used"`
}

// BookListOutput wraps the book list for Huma.
type BookListOutput struct {
	Body BookListResponse
}

// GetBookInput identifies one book.
type GetBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body BookResponse
}

// SearchBooksInput holds full-text search parameters.
type SearchBooksInput struct {
	Query    string   `query:"q" doc:"Search text; empty browses everything"`
	Genres   []string `query:"genre" doc:"Filter by primary genres (OR)"`
	Subgenre string   `query:"subgenre" doc:"Filter by secondary descriptor"`
	Language string   `query:"language" doc:"Filter by language code"`
	MinYear  int      `query:"min_year" doc:"Earliest publication year"`
	MaxYear  int      `query:"max_year" doc:"Latest publication year"`
	Limit    int      `query:"limit" doc:"Page size (default 20, max 100)"`
	Offset   int      `query:"offset" doc:"Page offset"`
	Facets   bool     `query:"facets" doc:"Include genre facet counts"`
}

// SearchOutput wraps search results for Huma.
type SearchOutput struct {
	Body search.Result
}

// GenresResponse is the controlled vocabulary.
type GenresResponse struct {
	Genres    []string `json:"genres" doc:"Primary genres"`
	Subgenres []string `json:"subgenres" doc:"Secondary descriptors"`
	MaxGenres int      `json:"max_genres" doc:"Maximum primary genres per book"`
}

// GenresOutput wraps the vocabulary for Huma.
type GenresOutput struct {
	Body GenresResponse
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*BookListOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	resp, err := s.services.Book.List(ctx, service.ListRequest{
		Genre:    input.Genre,
		Language: input.Language,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return nil, err
	}

	out := &BookListOutput{}
	out.Body = BookListResponse{
		Books:  make([]BookResponse, 0, len(resp.Books)),
		Total:  resp.Total,
		Limit:  resp.Limit,
		Offset: resp.Offset,
	}
	for _, b := range resp.Books {
		out.Body.Books = append(out.Body.Books, mapBook(b))
	}
	return out, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	book, err := s.services.Book.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: mapBook(book)}, nil
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*SearchOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	result, err := s.services.Book.Search(ctx, search.Params{
		Query:         input.Query,
		Genres:        input.Genres,
		Subgenre:      input.Subgenre,
		Language:      input.Language,
		MinYear:       input.MinYear,
		MaxYear:       input.MaxYear,
		Limit:         input.Limit,
		Offset:        input.Offset,
		IncludeFacets: input.Facets,
		Highlight:     true,
	})
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Body: *result}, nil
}

func (s *Server) handleListGenres(_ context.Context, _ *struct{}) (*GenresOutput, error) {
	return &GenresOutput{Body: GenresResponse{
		Genres:    s.services.Book.Genres(),
		Subgenres: s.services.Book.Subgenres(),
		MaxGenres: taxonomy.MaxGenres,
	}}, nil
}

// handleGetBookCover streams the stored cover image.
func (s *Server) handleGetBookCover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := GetUserID(ctx); err != nil {
		s.writeError(w, err)
		return
	}

	data, err := s.services.Book.GetCover(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

// handleDownloadBook streams the stored PDF to premium users.
func (s *Server) handleDownloadBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := s.RequireUser(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	f, book, err := s.services.Book.OpenPDF(ctx, user, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", book.Title+".pdf"))
	if book.PDFSize > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", book.PDFSize))
	}
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Warn("pdf stream interrupted", "book_id", book.ID, "error", err)
	}
}

// writeError renders an error on a raw chi route in the same shape huma
// produces.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	apiErr := &APIError{
		status:  http.StatusInternalServerError,
		Code:    string(domainerrors.CodeInternal),
		Message: "internal error",
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		apiErr = &APIError{
			status:  domainErr.HTTPStatus(),
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}
	} else if statusErr, ok := err.(huma.StatusError); ok {
		apiErr = &APIError{
			status:  statusErr.GetStatus(),
			Code:    statusToCode(statusErr.GetStatus()),
			Message: statusErr.Error(),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.status)
	_ = json.MarshalWrite(w, apiErr)
}

func mapBook(b *domain.Book) BookResponse {
	return BookResponse{
		ID:            b.ID,
		SourceID:      b.SourceID,
		Title:         b.Title,
		Authors:       b.Authors,
		Year:          b.Year,
		Description:   b.Description,
		Language:      b.Language,
		Subjects:      b.Subjects,
		Genres:        b.Genres,
		Subgenre:      b.Subgenre,
		HasPDF:        b.HasPDF(),
		PDFSize:       b.PDFSize,
		CoverBlurhash: b.CoverBlurhash,
		CreatedAt:     b.CreatedAt,
	}
}
