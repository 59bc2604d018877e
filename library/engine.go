package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Engine applies every mutation that spans the catalog, membership and
// ledger stores. Each operation runs in its own transaction and either
// applies all of its writes or none of them.
type Engine struct {
	db        *Database
	passwords PasswordScheme
	now       func() time.Time
	log       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for date_added and ledger dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithPasswordScheme sets how passwords are stored and compared.
func WithPasswordScheme(s PasswordScheme) Option {
	return func(e *Engine) { e.passwords = s }
}

// NewEngine builds an Engine over db. Defaults: plain passwords, UTC wall
// clock, discarded logs.
func NewEngine(db *Database, opts ...Option) *Engine {
	e := &Engine{
		db:        db,
		passwords: PlainPasswords{},
		now:       func() time.Time { return time.Now().UTC() },
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Database exposes the underlying stores for read-only callers.
func (e *Engine) Database() *Database { return e.db }

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

// SignUp registers a new user and returns its id.
func (e *Engine) SignUp(ctx context.Context, userName, password string) (int64, error) {
	stored, err := e.passwords.Encode(password)
	if err != nil {
		return 0, fmt.Errorf("encode password: %w", err)
	}

	var id int64
	err = e.run(ctx, "sign_up", []slog.Attr{slog.String("user_name", userName)}, func(tx *sql.Tx) error {
		_, err := findUserByName(ctx, tx, userName)
		if err == nil {
			return fmt.Errorf("%w: %q", ErrDuplicateUsername, userName)
		}
		if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		id, err = insertUser(ctx, tx, userName, stored)
		return err
	})
	return id, err
}

// SignIn checks credentials. It creates no session; later operations only
// re-check that the username exists.
func (e *Engine) SignIn(ctx context.Context, userName, password string) error {
	u, err := findUserByName(ctx, e.db.db, userName)
	switch {
	case errors.Is(err, ErrUserNotFound):
		err = ErrInvalidCredentials
	case err != nil:
	case !e.passwords.Matches(u.Password, password):
		err = ErrInvalidCredentials
	}
	e.observe(ctx, "sign_in", []slog.Attr{slog.String("user_name", userName)}, err)
	return err
}

// Authenticated implements AuthenticationCheck.
func (e *Engine) Authenticated(ctx context.Context, userName string) (bool, error) {
	_, err := findUserByName(ctx, e.db.db, userName)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

// DeleteUser removes a user together with every ledger row that references
// it. Books the user catalogued stay, without an adder.
func (e *Engine) DeleteUser(ctx context.Context, userName string) error {
	return e.run(ctx, "delete_user", []slog.Attr{slog.String("user_name", userName)}, func(tx *sql.Tx) error {
		u, err := findUserByName(ctx, tx, userName)
		if err != nil {
			return err
		}
		if err := purgeUser(ctx, tx, u.ID); err != nil {
			return err
		}
		if err := clearAddedBy(ctx, tx, u.ID); err != nil {
			return err
		}
		return deleteUser(ctx, tx, u.ID)
	})
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

// AddBook catalogues a copy of a title on behalf of addedBy. A title that is
// already catalogued by (name, author) gets its quantity bumped instead.
func (e *Engine) AddBook(ctx context.Context, nb NewBook, addedBy string) (AddBookResult, error) {
	var res AddBookResult
	if err := validateNewBook(nb); err != nil {
		return res, err
	}

	attrs := []slog.Attr{slog.String("user_name", addedBy), slog.String("name", nb.Name), slog.String("author", nb.Author)}
	err := e.run(ctx, "add_book", attrs, func(tx *sql.Tx) error {
		u, err := findUserByName(ctx, tx, addedBy)
		if err != nil {
			return fmt.Errorf("unknown adder: %w", err)
		}

		existing, err := findBookByTitle(ctx, tx, nb.Name, nb.Author)
		if err != nil {
			return err
		}
		if existing != nil {
			res = AddBookResult{BookID: existing.ID, Outcome: Incremented}
			return adjustQuantity(ctx, tx, existing.ID, 1)
		}

		id, err := insertBook(ctx, tx, nb, u.ID, e.now())
		res = AddBookResult{BookID: id, Outcome: Created}
		return err
	})
	if err != nil {
		return AddBookResult{}, err
	}
	return res, nil
}

func validateNewBook(nb NewBook) error {
	switch {
	case strings.TrimSpace(nb.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidBook)
	case strings.TrimSpace(nb.Author) == "":
		return fmt.Errorf("%w: author is required", ErrInvalidBook)
	case nb.Pages <= 0:
		return fmt.Errorf("%w: pages must be positive, got %d", ErrInvalidBook, nb.Pages)
	}
	return nil
}

// DeleteBook removes a book together with every ledger row that references
// it. Ledger rows go first so no row ever points at a missing book.
func (e *Engine) DeleteBook(ctx context.Context, bookID int64) error {
	return e.run(ctx, "delete_book", []slog.Attr{slog.Int64("book_id", bookID)}, func(tx *sql.Tx) error {
		if _, err := getBook(ctx, tx, bookID); err != nil {
			return err
		}
		if err := purgeBook(ctx, tx, bookID); err != nil {
			return err
		}
		return deleteBook(ctx, tx, bookID)
	})
}

// ---------------------------------------------------------------------------
// Circulation
// ---------------------------------------------------------------------------

// Borrow lends one copy of bookID to userName and returns the loan id.
func (e *Engine) Borrow(ctx context.Context, bookID int64, userName string) (int64, error) {
	var loanID int64
	err := e.run(ctx, "borrow", circulationAttrs(bookID, userName), func(tx *sql.Tx) error {
		u, err := resolveSignedIn(ctx, tx, userName)
		if err != nil {
			return err
		}

		b, err := getBook(ctx, tx, bookID)
		if errors.Is(err, ErrBookNotFound) {
			return fmt.Errorf("%w: no book with id %d", ErrUnavailable, bookID)
		}
		if err != nil {
			return err
		}
		if b.Quantity <= 0 {
			return fmt.Errorf("%w: no copies of book %d left", ErrUnavailable, bookID)
		}

		if loanID, err = insertBorrow(ctx, tx, &u.ID, bookID, e.now()); err != nil {
			return err
		}
		return adjustQuantity(ctx, tx, bookID, -1)
	})
	if err != nil {
		return 0, err
	}
	return loanID, nil
}

// Return closes one loan of bookID held by userName. When the user holds
// none, a loan with no attributed borrower is closed instead.
func (e *Engine) Return(ctx context.Context, bookID int64, userName string) (ReturnResult, error) {
	var res ReturnResult
	err := e.run(ctx, "return", circulationAttrs(bookID, userName), func(tx *sql.Tx) error {
		u, err := resolveSignedIn(ctx, tx, userName)
		if err != nil {
			return err
		}

		loan, err := findLoan(ctx, tx, bookID, &u.ID)
		if errors.Is(err, ErrNoSuchLoan) {
			// Any signed-in user may close an unattributed loan.
			loan, err = findLoan(ctx, tx, bookID, nil)
		}
		if err != nil {
			return err
		}

		if err := deleteBorrow(ctx, tx, loan.ID); err != nil {
			return err
		}
		res = ReturnResult{LoanID: loan.ID, Degenerate: loan.UserID == nil}
		return adjustQuantity(ctx, tx, bookID, 1)
	})
	if err != nil {
		return ReturnResult{}, err
	}
	return res, nil
}

// MarkRead appends a read marker. The book id is not re-validated.
func (e *Engine) MarkRead(ctx context.Context, bookID int64, userName string) (int64, error) {
	var id int64
	err := e.run(ctx, "mark_read", circulationAttrs(bookID, userName), func(tx *sql.Tx) error {
		u, err := resolveSignedIn(ctx, tx, userName)
		if err != nil {
			return err
		}
		id, err = insertRead(ctx, tx, u.ID, bookID, e.now())
		return err
	})
	return id, err
}

// Favorite appends a favorite marker. The book id is not re-validated.
func (e *Engine) Favorite(ctx context.Context, bookID int64, userName string) (int64, error) {
	var id int64
	err := e.run(ctx, "fav_book", circulationAttrs(bookID, userName), func(tx *sql.Tx) error {
		u, err := resolveSignedIn(ctx, tx, userName)
		if err != nil {
			return err
		}
		id, err = insertFavorite(ctx, tx, u.ID, bookID, e.now())
		return err
	})
	return id, err
}

func circulationAttrs(bookID int64, userName string) []slog.Attr {
	return []slog.Attr{slog.Int64("book_id", bookID), slog.String("user_name", userName)}
}

// ---------------------------------------------------------------------------
// Plumbing
// ---------------------------------------------------------------------------

// run executes fn in a transaction and logs the outcome. A panic inside fn
// is turned into an error after the transaction has rolled back.
func (e *Engine) run(ctx context.Context, op string, attrs []slog.Attr, fn func(tx *sql.Tx) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: unexpected panic: %v", op, r)
		}
		e.observe(ctx, op, attrs, err)
	}()
	return e.db.withTx(ctx, fn)
}

func (e *Engine) observe(ctx context.Context, op string, attrs []slog.Attr, err error) {
	attrs = append(attrs, slog.String("op", op), slog.String("op_id", uuid.NewString()))
	switch kind := KindOf(err); kind {
	case KindNone:
		e.log.LogAttrs(ctx, slog.LevelInfo, "lending_op_applied", attrs...)
	case KindInternal:
		e.log.LogAttrs(ctx, slog.LevelError, "lending_op_failed", append(attrs, slog.Any("error", err))...)
	default:
		e.log.LogAttrs(ctx, slog.LevelWarn, "lending_op_rejected",
			append(attrs, slog.String("kind", string(kind)), slog.String("reason", err.Error()))...)
	}
}
