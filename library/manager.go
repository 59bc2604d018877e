package library

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LibraryManager bundles the database, the lending engine and the reporting
// projection behind one handle, keeping CLI and HTTP code simple. It is
// opened once at process start and closed on shutdown.
type LibraryManager struct {
	*Engine
	Reports *Reports

	db *Database
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath and
// wires an Engine and Reports over it.
func NewLibraryManager(dbPath string, logger *slog.Logger, opts ...Option) (*LibraryManager, error) {
	db, err := NewDatabase(dbPath, logger)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		opts = append([]Option{WithLogger(logger)}, opts...)
	}
	engine := NewEngine(db, opts...)
	return &LibraryManager{
		Engine:  engine,
		Reports: NewReports(db, engine),
		db:      db,
	}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// ------------------ Read helpers ------------------

func (lm *LibraryManager) GetBook(ctx context.Context, id int64) (*Book, error) {
	return lm.db.GetBook(ctx, id)
}

func (lm *LibraryManager) GetAllBooks(ctx context.Context) ([]*Book, error) {
	return lm.db.GetAllBooks(ctx)
}

func (lm *LibraryManager) SearchBooks(ctx context.Context, q string) ([]*Book, error) {
	return lm.db.SearchBooks(ctx, q)
}

func (lm *LibraryManager) GetUser(ctx context.Context, name string) (*User, error) {
	return lm.db.GetUser(ctx, name)
}

// ------------------ Bulk import ------------------

// ImportSummary counts what ImportBooks did.
type ImportSummary struct {
	Created     int
	Incremented int
	Skipped     []string
}

// ImportBooksFromFile reads a CSV catalog at path (relative paths resolve
// from cwd) and adds each row on behalf of addedBy.
func (lm *LibraryManager) ImportBooksFromFile(ctx context.Context, path, addedBy string) (ImportSummary, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return ImportSummary{}, err
	}
	defer f.Close()
	return lm.ImportBooks(ctx, f, addedBy)
}

// ImportBooks adds every `name,author,pages,genre` row of r through AddBook,
// so duplicate titles bump quantity exactly like the interactive command. A
// header row is skipped. Malformed rows are reported in Skipped; an unknown
// adder or a storage failure aborts the import.
func (lm *LibraryManager) ImportBooks(ctx context.Context, r io.Reader, addedBy string) (ImportSummary, error) {
	var sum ImportSummary

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return sum, nil
		}
		if err != nil {
			sum.Skipped = append(sum.Skipped, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "name") {
			continue
		}

		pages, err := strconv.Atoi(strings.TrimSpace(rec[2]))
		if err != nil {
			sum.Skipped = append(sum.Skipped, fmt.Sprintf("line %d: invalid pages %q", line, rec[2]))
			continue
		}
		nb := NewBook{
			Name:   strings.TrimSpace(rec[0]),
			Author: strings.TrimSpace(rec[1]),
			Pages:  pages,
			Genre:  strings.TrimSpace(rec[3]),
		}

		res, err := lm.AddBook(ctx, nb, addedBy)
		switch {
		case errors.Is(err, ErrInvalidBook):
			sum.Skipped = append(sum.Skipped, fmt.Sprintf("line %d: %v", line, err))
		case err != nil:
			return sum, err
		case res.Outcome == Created:
			sum.Created++
		default:
			sum.Incremented++
		}
	}
}
