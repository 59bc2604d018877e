package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ledgerTables lists every activity table that references a user and a book.
var ledgerTables = []string{"borrowed_books", "read_books", "favorite_books"}

func insertBorrow(ctx context.Context, q dbtx, userID *int64, bookID int64, at time.Time) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO borrowed_books(user_id,book_id,borrow_date) VALUES(?,?,?)`, userID, bookID, at)
	if err != nil {
		return 0, fmt.Errorf("insert loan: %w", err)
	}
	return res.LastInsertId()
}

// findLoan returns the oldest outstanding loan of bookID held by userID. A nil
// userID searches for loans with no attributed borrower.
func findLoan(ctx context.Context, q dbtx, bookID int64, userID *int64) (*BorrowRecord, error) {
	var row *sql.Row
	if userID == nil {
		row = q.QueryRowContext(ctx,
			`SELECT borrow_id,user_id,book_id,borrow_date FROM borrowed_books
			 WHERE book_id=? AND user_id IS NULL ORDER BY borrow_id LIMIT 1`, bookID)
	} else {
		row = q.QueryRowContext(ctx,
			`SELECT borrow_id,user_id,book_id,borrow_date FROM borrowed_books
			 WHERE book_id=? AND user_id=? ORDER BY borrow_id LIMIT 1`, bookID, *userID)
	}

	var (
		r   BorrowRecord
		uid sql.NullInt64
	)
	err := row.Scan(&r.ID, &uid, &r.BookID, &r.BorrowDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSuchLoan
	}
	if err != nil {
		return nil, fmt.Errorf("find loan of book %d: %w", bookID, err)
	}
	if uid.Valid {
		id := uid.Int64
		r.UserID = &id
	}
	return &r, nil
}

func deleteBorrow(ctx context.Context, q dbtx, borrowID int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM borrowed_books WHERE borrow_id=?`, borrowID); err != nil {
		return fmt.Errorf("delete loan %d: %w", borrowID, err)
	}
	return nil
}

func insertRead(ctx context.Context, q dbtx, userID, bookID int64, at time.Time) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO read_books(user_id,book_id,read_date) VALUES(?,?,?)`, userID, bookID, at)
	if err != nil {
		return 0, fmt.Errorf("insert read record: %w", err)
	}
	return res.LastInsertId()
}

func insertFavorite(ctx context.Context, q dbtx, userID, bookID int64, at time.Time) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO favorite_books(user_id,book_id,favorite_date) VALUES(?,?,?)`, userID, bookID, at)
	if err != nil {
		return 0, fmt.Errorf("insert favorite record: %w", err)
	}
	return res.LastInsertId()
}

// purgeBook removes every ledger row that references bookID.
func purgeBook(ctx context.Context, q dbtx, bookID int64) error {
	for _, table := range ledgerTables {
		if _, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE book_id=?`, bookID); err != nil {
			return fmt.Errorf("purge %s for book %d: %w", table, bookID, err)
		}
	}
	return nil
}

// purgeUser removes every ledger row that references userID.
func purgeUser(ctx context.Context, q dbtx, userID int64) error {
	for _, table := range ledgerTables {
		if _, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id=?`, userID); err != nil {
			return fmt.Errorf("purge %s for user %d: %w", table, userID, err)
		}
	}
	return nil
}

// LoansForBook lists outstanding loans of a book, oldest first.
func (d *Database) LoansForBook(ctx context.Context, bookID int64) ([]*BorrowRecord, error) {
	var loans []*BorrowRecord
	err := d.x.SelectContext(ctx, &loans,
		`SELECT borrow_id,user_id,book_id,borrow_date FROM borrowed_books WHERE book_id=? ORDER BY borrow_id`, bookID)
	return loans, err
}

// ReadRecords lists read markers for a book, oldest first.
func (d *Database) ReadRecords(ctx context.Context, bookID int64) ([]*ReadRecord, error) {
	var recs []*ReadRecord
	err := d.x.SelectContext(ctx, &recs,
		`SELECT read_id,user_id,book_id,read_date FROM read_books WHERE book_id=? ORDER BY read_id`, bookID)
	return recs, err
}

// FavoriteRecords lists favorite markers for a book, oldest first.
func (d *Database) FavoriteRecords(ctx context.Context, bookID int64) ([]*FavoriteRecord, error) {
	var recs []*FavoriteRecord
	err := d.x.SelectContext(ctx, &recs,
		`SELECT favorite_id,user_id,book_id,favorite_date FROM favorite_books WHERE book_id=? ORDER BY favorite_id`, bookID)
	return recs, err
}

// CountReferences reports how many ledger rows reference the given user or
// book id. Pass 0 to skip either side.
func (d *Database) CountReferences(ctx context.Context, userID, bookID int64) (int, error) {
	total := 0
	for _, table := range ledgerTables {
		var n int
		err := d.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM `+table+` WHERE (?<>0 AND user_id=?) OR (?<>0 AND book_id=?)`,
			userID, userID, bookID, bookID).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("count %s references: %w", table, err)
		}
		total += n
	}
	return total, nil
}

// RecordDegenerateLoan writes a loan with no attributed borrower and takes
// one copy out of circulation, as legacy imports did. Either both writes
// apply or neither does.
func (d *Database) RecordDegenerateLoan(ctx context.Context, bookID int64, at time.Time) (int64, error) {
	var loanID int64
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if err := adjustQuantity(ctx, tx, bookID, -1); err != nil {
			return err
		}
		id, err := insertBorrow(ctx, tx, nil, bookID, at)
		loanID = id
		return err
	})
	return loanID, err
}
