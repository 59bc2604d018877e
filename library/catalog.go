package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const bookColumns = `book_id,name,author,pages,genre,quantity,date_added,added_by`

func scanBook(row interface{ Scan(...any) error }) (*Book, error) {
	var (
		b       Book
		addedBy sql.NullInt64
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Author, &b.Pages, &b.Genre, &b.Quantity, &b.DateAdded, &addedBy); err != nil {
		return nil, err
	}
	if addedBy.Valid {
		id := addedBy.Int64
		b.AddedBy = &id
	}
	return &b, nil
}

func getBook(ctx context.Context, q dbtx, id int64) (*Book, error) {
	b, err := scanBook(q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM book WHERE book_id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrBookNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return b, nil
}

// findBookByTitle looks up the row that represents the (name, author) title.
// It returns nil, nil when the title is not catalogued yet.
func findBookByTitle(ctx context.Context, q dbtx, name, author string) (*Book, error) {
	b, err := scanBook(q.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM book WHERE name=? AND author=? ORDER BY book_id LIMIT 1`, name, author))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find book %q by %q: %w", name, author, err)
	}
	return b, nil
}

func insertBook(ctx context.Context, q dbtx, nb NewBook, addedBy int64, at time.Time) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO book(name,author,pages,genre,quantity,date_added,added_by) VALUES(?,?,?,?,1,?,?)`,
		nb.Name, nb.Author, nb.Pages, nb.Genre, at, addedBy)
	if err != nil {
		return 0, fmt.Errorf("insert book: %w", err)
	}
	return res.LastInsertId()
}

// adjustQuantity adds delta to a book's quantity. The guard in the WHERE
// clause keeps quantity non-negative even if a caller skipped its own check.
func adjustQuantity(ctx context.Context, q dbtx, id int64, delta int) error {
	res, err := q.ExecContext(ctx,
		`UPDATE book SET quantity = quantity + ? WHERE book_id=? AND quantity + ? >= 0`, delta, id, delta)
	if err != nil {
		return fmt.Errorf("adjust quantity of book %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := getBook(ctx, q, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: id %d", ErrUnavailable, id)
}

func deleteBook(ctx context.Context, q dbtx, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM book WHERE book_id=?`, id); err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	return nil
}

// clearAddedBy drops the adder reference from every book a deleted user
// catalogued.
func clearAddedBy(ctx context.Context, q dbtx, userID int64) error {
	if _, err := q.ExecContext(ctx, `UPDATE book SET added_by=NULL WHERE added_by=?`, userID); err != nil {
		return fmt.Errorf("clear added_by for user %d: %w", userID, err)
	}
	return nil
}

func queryBooks(ctx context.Context, q dbtx, query string, args ...any) ([]*Book, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// GetBook fetches a single book.
func (d *Database) GetBook(ctx context.Context, id int64) (*Book, error) {
	return getBook(ctx, d.db, id)
}

// GetAllBooks returns the whole catalog ordered by id.
func (d *Database) GetAllBooks(ctx context.Context) ([]*Book, error) {
	return queryBooks(ctx, d.db, `SELECT `+bookColumns+` FROM book ORDER BY book_id`)
}

// SearchBooks returns books whose name or author contains q.
func (d *Database) SearchBooks(ctx context.Context, q string) ([]*Book, error) {
	if strings.TrimSpace(q) == "" {
		return []*Book{}, nil
	}
	like := "%" + q + "%"
	return queryBooks(ctx, d.db,
		`SELECT `+bookColumns+` FROM book WHERE name LIKE ? OR author LIKE ? ORDER BY book_id`, like, like)
}

// SearchBooksByName returns books whose name contains q.
func (d *Database) SearchBooksByName(ctx context.Context, q string) ([]*Book, error) {
	return queryBooks(ctx, d.db, `SELECT `+bookColumns+` FROM book WHERE name LIKE ? ORDER BY book_id`, "%"+q+"%")
}

// SearchBooksByAuthor returns books whose author contains q.
func (d *Database) SearchBooksByAuthor(ctx context.Context, q string) ([]*Book, error) {
	return queryBooks(ctx, d.db, `SELECT `+bookColumns+` FROM book WHERE author LIKE ? ORDER BY book_id`, "%"+q+"%")
}
