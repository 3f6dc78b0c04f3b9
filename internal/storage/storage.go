// Package storage manages book files on disk: downloaded PDFs and
// cover images.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Storage manages book file operations on the local filesystem.
// Thread-safe for concurrent operations.
type Storage struct {
	pdfPath   string
	coverPath string
	mu        sync.RWMutex // Protects file operations
}

// New creates a Storage rooted at basePath.
// PDFs are stored in {basePath}/books/, covers in {basePath}/covers/.
func New(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	pdfPath := filepath.Join(basePath, "books")
	coverPath := filepath.Join(basePath, "covers")

	for _, dir := range []string{pdfPath, coverPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	return &Storage{
		pdfPath:   pdfPath,
		coverPath: coverPath,
	}, nil
}

// PDFPath returns the on-disk path for a book's PDF.
func (s *Storage) PDFPath(bookID string) string {
	return filepath.Join(s.pdfPath, bookID+".pdf")
}

// CoverPath returns the on-disk path for a book's cover image.
func (s *Storage) CoverPath(bookID string) string {
	return filepath.Join(s.coverPath, bookID+".jpg")
}

// CreatePDF opens a writable file for a book's PDF, for streaming
// downloads directly to disk. The caller must Close it.
func (s *Storage) CreatePDF(bookID string) (*os.File, error) {
	if bookID == "" {
		return nil, fmt.Errorf("book ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Create(s.PDFPath(bookID))
	if err != nil {
		return nil, fmt.Errorf("failed to create pdf file: %w", err)
	}
	return f, nil
}

// OpenPDF opens a book's PDF for reading.
func (s *Storage) OpenPDF(bookID string) (*os.File, error) {
	if bookID == "" {
		return nil, fmt.Errorf("book ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.PDFPath(bookID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("pdf not found for %s: %w", bookID, err)
		}
		return nil, fmt.Errorf("failed to open pdf file: %w", err)
	}
	return f, nil
}

// SaveCover stores cover image data for a book.
func (s *Storage) SaveCover(bookID string, imgData []byte) error {
	if bookID == "" {
		return fmt.Errorf("book ID cannot be empty")
	}
	if len(imgData) == 0 {
		return fmt.Errorf("image data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.CoverPath(bookID), imgData, 0644); err != nil {
		return fmt.Errorf("failed to write cover file: %w", err)
	}
	return nil
}

// GetCover retrieves a book's cover image data.
func (s *Storage) GetCover(bookID string) ([]byte, error) {
	if bookID == "" {
		return nil, fmt.Errorf("book ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.CoverPath(bookID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("cover not found for %s: %w", bookID, err)
		}
		return nil, fmt.Errorf("failed to read cover file: %w", err)
	}
	return data, nil
}

// HasPDF checks whether a book's PDF exists on disk.
func (s *Storage) HasPDF(bookID string) bool {
	if bookID == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.PDFPath(bookID))
	return err == nil
}

// HasCover checks whether a book's cover exists on disk.
func (s *Storage) HasCover(bookID string) bool {
	if bookID == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.CoverPath(bookID))
	return err == nil
}

// Delete removes all stored files for a book. Missing files are not
// an error.
func (s *Storage) Delete(bookID string) error {
	if bookID == "" {
		return fmt.Errorf("book ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range []string{s.PDFPath(bookID), s.CoverPath(bookID)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

// CopyPDF streams r into the book's PDF file and returns the bytes
// written. A partial file from a failed copy is removed.
func (s *Storage) CopyPDF(bookID string, r io.Reader) (int64, error) {
	f, err := s.CreatePDF(bookID)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return 0, fmt.Errorf("failed to write pdf: %w", err)
	}
	return n, nil
}
