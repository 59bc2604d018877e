package library

import "time"

// Book is one catalog title. Copies of the same (name, author) pair share a
// row and are counted by Quantity.
type Book struct {
	ID        int64     `json:"book_id" db:"book_id"`
	Name      string    `json:"name" db:"name"`
	Author    string    `json:"author" db:"author"`
	Pages     int       `json:"pages" db:"pages"`
	Genre     string    `json:"genre" db:"genre"`
	Quantity  int       `json:"quantity" db:"quantity"`
	DateAdded time.Time `json:"date_added" db:"date_added"`
	AddedBy   *int64    `json:"added_by,omitempty" db:"added_by"`
}

// NewBook carries the caller-supplied fields of an add-book request.
type NewBook struct {
	Name   string `json:"name"`
	Author string `json:"author"`
	Pages  int    `json:"pages"`
	Genre  string `json:"genre"`
}

// User represents a registered library member.
type User struct {
	ID       int64  `json:"user_id" db:"user_id"`
	Name     string `json:"user_name" db:"user_name"`
	Password string `json:"-" db:"password"` // never serialized
}

// BorrowRecord is one outstanding loan. A nil UserID marks a loan whose
// borrower was never captured.
type BorrowRecord struct {
	ID         int64     `json:"borrow_id" db:"borrow_id"`
	UserID     *int64    `json:"user_id" db:"user_id"`
	BookID     int64     `json:"book_id" db:"book_id"`
	BorrowDate time.Time `json:"borrow_date" db:"borrow_date"`
}

// ReadRecord marks one "read" event. Repeats are allowed.
type ReadRecord struct {
	ID       int64     `json:"read_id" db:"read_id"`
	UserID   int64     `json:"user_id" db:"user_id"`
	BookID   int64     `json:"book_id" db:"book_id"`
	ReadDate time.Time `json:"read_date" db:"read_date"`
}

// FavoriteRecord marks one "favorite" event. Repeats are allowed.
type FavoriteRecord struct {
	ID           int64     `json:"favorite_id" db:"favorite_id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	BookID       int64     `json:"book_id" db:"book_id"`
	FavoriteDate time.Time `json:"favorite_date" db:"favorite_date"`
}

// AddOutcome tells whether AddBook inserted a title or bumped its quantity.
type AddOutcome string

const (
	Created     AddOutcome = "created"
	Incremented AddOutcome = "incremented"
)

// AddBookResult is returned by Engine.AddBook.
type AddBookResult struct {
	BookID  int64      `json:"book_id"`
	Outcome AddOutcome `json:"outcome"`
}

// ReturnResult is returned by Engine.Return. Degenerate is set when the
// closed loan had no attributed borrower.
type ReturnResult struct {
	LoanID     int64 `json:"loan_id"`
	Degenerate bool  `json:"degenerate"`
}
