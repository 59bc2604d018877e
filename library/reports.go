package library

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
)

const (
	mostReadBooksLimit   = 10
	mostReadGenresLimit  = 5
	mostReadAuthorsLimit = 3
	recentlyAddedLimit   = 5
)

// BookReadCount is one row of the most-read books report.
type BookReadCount struct {
	BookID    int64  `json:"book_id" db:"book_id"`
	Name      string `json:"name" db:"name"`
	Author    string `json:"author" db:"author"`
	ReadCount int    `json:"read_count" db:"read_count"`
}

// GenreReadCount is one row of the most-read genres report.
type GenreReadCount struct {
	Genre     string `json:"genre" db:"genre"`
	ReadCount int    `json:"read_count" db:"read_count"`
}

// AuthorReadCount is one row of the most-read authors report.
type AuthorReadCount struct {
	Author    string `json:"author" db:"author"`
	ReadCount int    `json:"read_count" db:"read_count"`
}

// RecentBook is one row of the recently-added report.
type RecentBook struct {
	BookID    int64     `json:"book_id" db:"book_id"`
	Name      string    `json:"name" db:"name"`
	Author    string    `json:"author" db:"author"`
	Genre     string    `json:"genre" db:"genre"`
	DateAdded time.Time `json:"date_added" db:"date_added"`
	AddedBy   *int64    `json:"added_by,omitempty" db:"added_by"`
}

// Shelf statuses reported by MyBooks.
const (
	StatusRead     = "Read"
	StatusFavorite = "Favorite"
)

// ShelfEntry is one row of a user's read-or-favorited roll-up.
type ShelfEntry struct {
	BookID int64  `json:"book_id" db:"book_id"`
	Name   string `json:"name" db:"name"`
	Author string `json:"author" db:"author"`
	Status string `json:"status" db:"status"`
}

// ReadingStats summarizes what a user has read.
type ReadingStats struct {
	BooksRead   int `json:"books_read" db:"books_read"`
	AuthorsRead int `json:"authors_read" db:"authors_read"`
	GenresRead  int `json:"genres_read" db:"genres_read"`
	PagesRead   int `json:"pages_read" db:"pages_read"`
}

// Reports answers read-only aggregate queries over the catalog and ledger.
// It never writes.
type Reports struct {
	db      *Database
	dialect goqu.DialectWrapper
	auth    AuthenticationCheck
}

// NewReports builds the reporting projection. auth decides who may see the
// per-user reports.
func NewReports(db *Database, auth AuthenticationCheck) *Reports {
	return &Reports{db: db, dialect: goqu.Dialect("sqlite3"), auth: auth}
}

func (r *Reports) selectInto(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build report query: %w", err)
	}
	return r.db.x.SelectContext(ctx, dest, query, args...)
}

func (r *Reports) readCounts() *goqu.SelectDataset {
	return r.dialect.From(goqu.T("book").As("b")).
		LeftJoin(goqu.T("read_books").As("r"), goqu.On(goqu.I("b.book_id").Eq(goqu.I("r.book_id"))))
}

// MostReadBooks returns the ten books with the most read markers, optionally
// restricted to one genre.
func (r *Reports) MostReadBooks(ctx context.Context, genre string) ([]BookReadCount, error) {
	ds := r.readCounts().
		Select(
			goqu.I("b.book_id"), goqu.I("b.name"), goqu.I("b.author"),
			goqu.COUNT(goqu.I("r.read_id")).As("read_count"),
		).
		GroupBy(goqu.I("b.book_id")).
		Order(goqu.C("read_count").Desc(), goqu.I("b.book_id").Asc()).
		Limit(mostReadBooksLimit)
	if genre != "" {
		ds = ds.Where(goqu.I("b.genre").Eq(genre))
	}

	rows := []BookReadCount{}
	if err := r.selectInto(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("most read books: %w", err)
	}
	return rows, nil
}

// MostReadGenres returns the five genres with the most read markers.
func (r *Reports) MostReadGenres(ctx context.Context) ([]GenreReadCount, error) {
	ds := r.readCounts().
		Select(goqu.I("b.genre"), goqu.COUNT(goqu.I("r.read_id")).As("read_count")).
		GroupBy(goqu.I("b.genre")).
		Order(goqu.C("read_count").Desc(), goqu.I("b.genre").Asc()).
		Limit(mostReadGenresLimit)

	rows := []GenreReadCount{}
	if err := r.selectInto(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("most read genres: %w", err)
	}
	return rows, nil
}

// MostReadAuthors returns the three authors with the most read markers.
func (r *Reports) MostReadAuthors(ctx context.Context) ([]AuthorReadCount, error) {
	ds := r.readCounts().
		Select(goqu.I("b.author"), goqu.COUNT(goqu.I("r.read_id")).As("read_count")).
		GroupBy(goqu.I("b.author")).
		Order(goqu.C("read_count").Desc(), goqu.I("b.author").Asc()).
		Limit(mostReadAuthorsLimit)

	rows := []AuthorReadCount{}
	if err := r.selectInto(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("most read authors: %w", err)
	}
	return rows, nil
}

// RecentlyAdded returns the five newest catalog rows, optionally restricted
// to one genre.
func (r *Reports) RecentlyAdded(ctx context.Context, genre string) ([]RecentBook, error) {
	ds := r.dialect.From("book").
		Select("book_id", "name", "author", "genre", "date_added", "added_by").
		Order(goqu.C("date_added").Desc(), goqu.C("book_id").Desc()).
		Limit(recentlyAddedLimit)
	if genre != "" {
		ds = ds.Where(goqu.C("genre").Eq(genre))
	}

	rows := []RecentBook{}
	if err := r.selectInto(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("recently added: %w", err)
	}
	return rows, nil
}

func (r *Reports) requireSignedIn(ctx context.Context, userName string) error {
	ok, err := r.auth.Authenticated(ctx, userName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotSignedIn, userName)
	}
	return nil
}

const myBooksQuery = `
	SELECT b.book_id, b.name, b.author, 'Read' AS status
	FROM book b
	JOIN read_books r ON b.book_id = r.book_id
	WHERE r.user_id = (SELECT user_id FROM user WHERE user_name = ?)
	UNION
	SELECT b.book_id, b.name, b.author, 'Favorite' AS status
	FROM book b
	JOIN favorite_books f ON b.book_id = f.book_id
	WHERE f.user_id = (SELECT user_id FROM user WHERE user_name = ?)
	ORDER BY 1, 4 DESC`

// MyBooks lists the distinct books a user has read or favorited, one row per
// (book, status) pair.
func (r *Reports) MyBooks(ctx context.Context, userName string) ([]ShelfEntry, error) {
	if err := r.requireSignedIn(ctx, userName); err != nil {
		return nil, err
	}
	rows := []ShelfEntry{}
	if err := r.db.x.SelectContext(ctx, &rows, myBooksQuery, userName, userName); err != nil {
		return nil, fmt.Errorf("my books: %w", err)
	}
	return rows, nil
}

const statisticsQuery = `
	SELECT COUNT(DISTINCT rb.book_id) AS books_read,
	       COUNT(DISTINCT b.author) AS authors_read,
	       COUNT(DISTINCT b.genre) AS genres_read,
	       COALESCE(SUM(b.pages), 0) AS pages_read
	FROM read_books rb
	JOIN book b ON rb.book_id = b.book_id
	WHERE rb.user_id = (SELECT user_id FROM user WHERE user_name = ?)`

// Statistics summarizes a user's read markers. Distinct counts ignore repeat
// reads; pages are summed per read marker, so a re-read counts its pages
// again.
func (r *Reports) Statistics(ctx context.Context, userName string) (ReadingStats, error) {
	if err := r.requireSignedIn(ctx, userName); err != nil {
		return ReadingStats{}, err
	}
	var stats ReadingStats
	if err := r.db.x.GetContext(ctx, &stats, statisticsQuery, userName); err != nil {
		return ReadingStats{}, fmt.Errorf("statistics: %w", err)
	}
	return stats, nil
}
