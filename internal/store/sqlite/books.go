package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/librariumapp/librarium-server/internal/domain"
	"github.com/librariumapp/librarium-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, created_at, updated_at, deleted_at, source_id, title,
	authors, year, description, language, subjects, genres, subgenre,
	pdf_path, pdf_size, cover_path, cover_blurhash`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book

	var (
		createdAt string
		updatedAt string
		deletedAt sql.NullString
		authors   string
		subjects  string
		genres    sql.NullString
	)

	err := scanner.Scan(
		&b.ID,
		&createdAt,
		&updatedAt,
		&deletedAt,
		&b.SourceID,
		&b.Title,
		&authors,
		&b.Year,
		&b.Description,
		&b.Language,
		&subjects,
		&genres,
		&b.Subgenre,
		&b.PDFPath,
		&b.PDFSize,
		&b.CoverPath,
		&b.CoverBlurhash,
	)
	if err != nil {
		return nil, err
	}

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	b.DeletedAt, err = parseNullableTime(deletedAt)
	if err != nil {
		return nil, err
	}

	b.Authors, err = unmarshalStrings(authors)
	if err != nil {
		return nil, err
	}
	b.Subjects, err = unmarshalStrings(subjects)
	if err != nil {
		return nil, err
	}

	// NULL genres means the book was never classified; keep the slice nil.
	if genres.Valid {
		b.Genres, err = unmarshalStrings(genres.String)
		if err != nil {
			return nil, err
		}
	}

	return &b, nil
}

// CreateBook inserts a new catalog record.
// Returns store.ErrAlreadyExists if the ID or source ID already exists.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (
			id, created_at, updated_at, deleted_at, source_id, title,
			authors, year, description, language, subjects, genres, subgenre,
			pdf_path, pdf_size, cover_path, cover_blurhash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
		nullTimeString(book.DeletedAt),
		book.SourceID,
		book.Title,
		marshalStrings(book.Authors),
		book.Year,
		book.Description,
		book.Language,
		marshalStrings(book.Subjects),
		nullableStrings(book.Genres),
		book.Subgenre,
		book.PDFPath,
		book.PDFSize,
		book.CoverPath,
		book.CoverBlurhash,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetBook retrieves a book by ID, excluding soft-deleted records.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ? AND deleted_at IS NULL`, id)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBookBySourceID retrieves a book by its external archive identifier.
// This is the ingestion idempotency lookup. Returns store.ErrNotFound if
// no record exists for that source.
func (s *Store) GetBookBySourceID(ctx context.Context, sourceID string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE source_id = ? AND deleted_at IS NULL`, sourceID)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBooks returns non-deleted books ordered by title, optionally
// filtered.
func (s *Store) ListBooks(ctx context.Context, filter store.BookFilter) ([]*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE deleted_at IS NULL`
	var args []any

	if filter.Genre != "" {
		// Genres are stored as a JSON array; EXISTS over json_each gives
		// exact element matching without a join table.
		query += ` AND genres IS NOT NULL
			AND EXISTS (SELECT 1 FROM json_each(books.genres) WHERE json_each.value = ?)`
		args = append(args, filter.Genre)
	}
	if filter.Language != "" {
		query += ` AND language = ?`
		args = append(args, filter.Language)
	}

	query += ` ORDER BY title ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// CountBooks returns the number of non-deleted books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM books WHERE deleted_at IS NULL`).Scan(&n)
	return n, err
}

// UpdateBook performs a full row update on an existing book.
// Returns store.ErrNotFound if the book does not exist or is soft-deleted.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE books SET
			created_at = ?,
			updated_at = ?,
			source_id = ?,
			title = ?,
			authors = ?,
			year = ?,
			description = ?,
			language = ?,
			subjects = ?,
			genres = ?,
			subgenre = ?,
			pdf_path = ?,
			pdf_size = ?,
			cover_path = ?,
			cover_blurhash = ?
		WHERE id = ? AND deleted_at IS NULL`,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
		book.SourceID,
		book.Title,
		marshalStrings(book.Authors),
		book.Year,
		book.Description,
		book.Language,
		marshalStrings(book.Subjects),
		nullableStrings(book.Genres),
		book.Subgenre,
		book.PDFPath,
		book.PDFSize,
		book.CoverPath,
		book.CoverBlurhash,
		book.ID,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteBook performs a soft delete by setting deleted_at.
// Returns store.ErrNotFound if the book does not exist or is already deleted.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}
	book.MarkDeleted()

	result, err := s.db.ExecContext(ctx, `
		UPDATE books SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		nullTimeString(book.DeletedAt), formatTime(book.UpdatedAt), id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
