package library

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSignUp(t *testing.T, e *Engine, name string) int64 {
	t.Helper()
	id, err := e.SignUp(context.Background(), name, name+"-pw")
	require.NoError(t, err, "sign up %s", name)
	return id
}

func mustAddBook(t *testing.T, e *Engine, name, author, by string) int64 {
	t.Helper()
	res, err := e.AddBook(context.Background(), NewBook{Name: name, Author: author, Pages: 100, Genre: "Fiction"}, by)
	require.NoError(t, err, "add book %s", name)
	return res.BookID
}

func quantityOf(t *testing.T, db *Database, id int64) int {
	t.Helper()
	b, err := db.GetBook(context.Background(), id)
	require.NoError(t, err)
	return b.Quantity
}

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	_, err := e.SignUp(ctx, "alice", "secret")
	require.NoError(t, err)

	assert.NoError(t, e.SignIn(ctx, "alice", "secret"))
	assert.ErrorIs(t, e.SignIn(ctx, "alice", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, e.SignIn(ctx, "nobody", "secret"), ErrInvalidCredentials)

	ok, err := e.Authenticated(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Authenticated(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignUpDuplicateWritesNothing(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	mustSignUp(t, e, "alice")

	_, err := e.SignUp(ctx, "alice", "other")
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	users, err := db.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.NoError(t, e.SignIn(ctx, "alice", "alice-pw"), "original password must still work")
}

func TestBcryptPasswords(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t, WithPasswordScheme(BcryptPasswords{Cost: 4}))

	_, err := e.SignUp(ctx, "alice", "secret")
	require.NoError(t, err)

	u, err := db.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", u.Password)

	assert.NoError(t, e.SignIn(ctx, "alice", "secret"))
	assert.ErrorIs(t, e.SignIn(ctx, "alice", "nope"), ErrInvalidCredentials)
}

func TestPasswordSchemeByName(t *testing.T) {
	s, err := PasswordSchemeByName("")
	require.NoError(t, err)
	assert.Equal(t, "plain", s.Name())

	s, err = PasswordSchemeByName("bcrypt")
	require.NoError(t, err)
	assert.Equal(t, "bcrypt", s.Name())

	_, err = PasswordSchemeByName("rot13")
	assert.Error(t, err)
}

func TestAddBookTwiceIncrements(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	uid := mustSignUp(t, e, "alice")
	dune := NewBook{Name: "Dune", Author: "Herbert", Pages: 412, Genre: "SciFi"}

	first, err := e.AddBook(ctx, dune, "alice")
	require.NoError(t, err)
	assert.Equal(t, Created, first.Outcome)

	second, err := e.AddBook(ctx, dune, "alice")
	require.NoError(t, err)
	assert.Equal(t, Incremented, second.Outcome)
	assert.Equal(t, first.BookID, second.BookID)

	b, err := db.GetBook(ctx, first.BookID)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Quantity)
	assert.Equal(t, 412, b.Pages)
	require.NotNil(t, b.AddedBy)
	assert.Equal(t, uid, *b.AddedBy)
	assert.False(t, b.DateAdded.IsZero())

	books, err := db.GetAllBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestAddBookSameNameDifferentAuthor(t *testing.T) {
	e, db := newEngine(t)
	mustSignUp(t, e, "alice")

	a := mustAddBook(t, e, "Collected Poems", "Plath", "alice")
	b := mustAddBook(t, e, "Collected Poems", "Larkin", "alice")

	assert.NotEqual(t, a, b)
	assert.Equal(t, 1, quantityOf(t, db, a))
	assert.Equal(t, 1, quantityOf(t, db, b))
}

func TestAddBookUnknownAdder(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)

	_, err := e.AddBook(ctx, NewBook{Name: "Dune", Author: "Herbert", Pages: 412, Genre: "SciFi"}, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)

	books, err := db.GetAllBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestAddBookRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	mustSignUp(t, e, "alice")

	tests := []struct {
		name string
		book NewBook
	}{
		{"zero pages", NewBook{Name: "A", Author: "B", Pages: 0, Genre: "G"}},
		{"negative pages", NewBook{Name: "A", Author: "B", Pages: -3, Genre: "G"}},
		{"blank name", NewBook{Name: " ", Author: "B", Pages: 1, Genre: "G"}},
		{"blank author", NewBook{Name: "A", Author: "", Pages: 1, Genre: "G"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.AddBook(ctx, tt.book, "alice")
			assert.ErrorIs(t, err, ErrInvalidBook)
		})
	}
}

func TestDeleteBook(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	mustSignUp(t, e, "alice")
	mustSignUp(t, e, "bob")
	id := mustAddBook(t, e, "Dune", "Herbert", "alice")
	other := mustAddBook(t, e, "Emma", "Austen", "alice")

	_, err := e.Borrow(ctx, id, "alice")
	require.NoError(t, err)
	_, err = e.MarkRead(ctx, id, "bob")
	require.NoError(t, err)
	_, err = e.Favorite(ctx, id, "bob")
	require.NoError(t, err)
	_, err = e.MarkRead(ctx, other, "bob")
	require.NoError(t, err)

	require.NoError(t, e.DeleteBook(ctx, id))

	_, err = db.GetBook(ctx, id)
	assert.ErrorIs(t, err, ErrBookNotFound)
	n, err := db.CountReferences(ctx, 0, id)
	require.NoError(t, err)
	assert.Zero(t, n, "no ledger row may reference a deleted book")

	n, err = db.CountReferences(ctx, 0, other)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "other books keep their ledger rows")

	assert.ErrorIs(t, e.DeleteBook(ctx, id), ErrBookNotFound)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	bob := mustSignUp(t, e, "bob")
	mustSignUp(t, e, "carol")
	mustAddBook(t, e, "Dune", "Herbert", "carol")
	id := mustAddBook(t, e, "Emma", "Austen", "bob")
	mustAddBook(t, e, "Emma", "Austen", "bob")

	_, err := e.Borrow(ctx, id, "bob")
	require.NoError(t, err)
	_, err = e.MarkRead(ctx, id, "bob")
	require.NoError(t, err)
	_, err = e.Favorite(ctx, id, "bob")
	require.NoError(t, err)
	_, err = e.MarkRead(ctx, id, "carol")
	require.NoError(t, err)

	require.NoError(t, e.DeleteUser(ctx, "bob"))

	n, err := db.CountReferences(ctx, bob, 0)
	require.NoError(t, err)
	assert.Zero(t, n, "no ledger row may reference a deleted user")

	loans, err := db.LoansForBook(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, loans)

	reads, err := db.ReadRecords(ctx, id)
	require.NoError(t, err)
	assert.Len(t, reads, 1, "carol's marker survives")

	b, err := db.GetBook(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, b.AddedBy, "adder reference is cleared")

	_, err = db.GetUser(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, e.DeleteUser(ctx, "bob"), ErrUserNotFound)
}

func TestDeleteUserRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	bob := mustSignUp(t, e, "bob")
	id := mustAddBook(t, e, "Emma", "Austen", "bob")
	_, err := e.Borrow(ctx, id, "bob")
	require.NoError(t, err)
	_, err = e.MarkRead(ctx, id, "bob")
	require.NoError(t, err)

	// The loan and read purges succeed, the favorite purge fails.
	_, err = db.db.ExecContext(ctx, `DROP TABLE favorite_books`)
	require.NoError(t, err)
	require.Error(t, e.DeleteUser(ctx, "bob"))

	loans, err := db.LoansForBook(ctx, id)
	require.NoError(t, err)
	require.Len(t, loans, 1, "loan purge must be undone")
	assert.Equal(t, bob, *loans[0].UserID)

	reads, err := db.ReadRecords(ctx, id)
	require.NoError(t, err)
	assert.Len(t, reads, 1, "read purge must be undone")

	_, err = db.GetUser(ctx, "bob")
	assert.NoError(t, err)
	b, err := db.GetBook(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, b.AddedBy)
	assert.Equal(t, bob, *b.AddedBy)
	assert.Zero(t, b.Quantity)
}

func TestBorrowReturnRoundTrip(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	mustSignUp(t, e, "alice")
	id := mustAddBook(t, e, "Dune", "Herbert", "alice")
	mustAddBook(t, e, "Dune", "Herbert", "alice")

	loanID, err := e.Borrow(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, quantityOf(t, db, id))

	loans, err := db.LoansForBook(ctx, id)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, loanID, loans[0].ID)

	res, err := e.Return(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, loanID, res.LoanID)
	assert.False(t, res.Degenerate)
	assert.Equal(t, 2, quantityOf(t, db, id))

	loans, err = db.LoansForBook(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestBorrowUnavailable(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	mustSignUp(t, e, "alice")
	mustSignUp(t, e, "bob")
	id := mustAddBook(t, e, "Dune", "Herbert", "alice")

	_, err := e.Borrow(ctx, id, "bob")
	require.NoError(t, err)
	require.Equal(t, 0, quantityOf(t, db, id))

	_, err = e.Borrow(ctx, id, "alice")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 0, quantityOf(t, db, id))

	loans, err := db.LoansForBook(ctx, id)
	require.NoError(t, err)
	assert.Len(t, loans, 1)

	_, err = e.Borrow(ctx, 4242, "alice")
	assert.ErrorIs(t, err, ErrUnavailable, "a missing book is reported as unavailable")
}

func TestBorrowChecksSignInFirst(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	// Book 4242 does not exist either; the sign-in check wins.
	_, err := e.Borrow(ctx, 4242, "ghost")
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestReturnWithoutLoan(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	mustSignUp(t, e, "alice")
	mustSignUp(t, e, "bob")
	id := mustAddBook(t, e, "Dune", "Herbert", "alice")
	mustAddBook(t, e, "Dune", "Herbert", "alice")

	_, err := e.Return(ctx, id, "alice")
	assert.ErrorIs(t, err, ErrNoSuchLoan)

	// Bob's loan is not Alice's to return.
	_, err = e.Borrow(ctx, id, "bob")
	require.NoError(t, err)
	_, err = e.Return(ctx, id, "alice")
	assert.ErrorIs(t, err, ErrNoSuchLoan)
	assert.Equal(t, 1, quantityOf(t, db, id))

	_, err = e.Return(ctx, id, "ghost")
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestReturnClosesDegenerateLoan(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	mustSignUp(t, e, "alice")
	id := mustAddBook(t, e, "Dune", "Herbert", "alice")

	degenerateID, err := db.RecordDegenerateLoan(ctx, id, time.Now())
	require.NoError(t, err)
	require.Equal(t, 0, quantityOf(t, db, id))

	res, err := e.Return(ctx, id, "alice")
	require.NoError(t, err)
	assert.True(t, res.Degenerate)
	assert.Equal(t, degenerateID, res.LoanID)
	assert.Equal(t, 1, quantityOf(t, db, id))

	_, err = e.Return(ctx, id, "alice")
	assert.ErrorIs(t, err, ErrNoSuchLoan)
}

func TestReturnPrefersOwnLoan(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	mustSignUp(t, e, "alice")
	id := mustAddBook(t, e, "Dune", "Herbert", "alice")
	mustAddBook(t, e, "Dune", "Herbert", "alice")

	_, err := db.RecordDegenerateLoan(ctx, id, time.Now())
	require.NoError(t, err)
	own, err := e.Borrow(ctx, id, "alice")
	require.NoError(t, err)

	res, err := e.Return(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, own, res.LoanID)
	assert.False(t, res.Degenerate)

	loans, err := db.LoansForBook(ctx, id)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Nil(t, loans[0].UserID)
}

func TestReturnClosesOneLoanAtATime(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	mustSignUp(t, e, "alice")
	id := mustAddBook(t, e, "Dune", "Herbert", "alice")
	mustAddBook(t, e, "Dune", "Herbert", "alice")

	_, err := e.Borrow(ctx, id, "alice")
	require.NoError(t, err)
	_, err = e.Borrow(ctx, id, "alice")
	require.NoError(t, err)
	require.Equal(t, 0, quantityOf(t, db, id))

	_, err = e.Return(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, quantityOf(t, db, id))

	loans, err := db.LoansForBook(ctx, id)
	require.NoError(t, err)
	assert.Len(t, loans, 1, "one return closes exactly one loan")
}

func TestDeletedBorrowerCannotReturn(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	mustSignUp(t, e, "alice")
	mustSignUp(t, e, "bob")
	mustAddBook(t, e, "Dune", "Herbert", "alice")
	id := mustAddBook(t, e, "Emma", "Austen", "alice")

	_, err := e.Borrow(ctx, id, "bob")
	require.NoError(t, err)
	require.NoError(t, e.DeleteUser(ctx, "bob"))

	loans, err := db.LoansForBook(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, loans)

	_, err = e.Return(ctx, id, "bob")
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestMarkReadAndFavoriteAppend(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	mustSignUp(t, e, "carol")
	mustAddBook(t, e, "Dune", "Herbert", "carol")
	mustAddBook(t, e, "Emma", "Austen", "carol")
	id := mustAddBook(t, e, "Ulysses", "Joyce", "carol")

	first, err := e.MarkRead(ctx, id, "carol")
	require.NoError(t, err)
	second, err := e.MarkRead(ctx, id, "carol")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	reads, err := db.ReadRecords(ctx, id)
	require.NoError(t, err)
	require.Len(t, reads, 2)
	assert.True(t, reads[0].ReadDate.Before(reads[1].ReadDate))

	_, err = e.Favorite(ctx, id, "carol")
	require.NoError(t, err)
	_, err = e.Favorite(ctx, id, "carol")
	require.NoError(t, err)
	favs, err := db.FavoriteRecords(ctx, id)
	require.NoError(t, err)
	assert.Len(t, favs, 2)

	_, err = e.MarkRead(ctx, id, "ghost")
	assert.ErrorIs(t, err, ErrNotSignedIn)
	_, err = e.Favorite(ctx, id, "ghost")
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestMarkReadDoesNotValidateBook(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	mustSignUp(t, e, "carol")

	_, err := e.MarkRead(ctx, 777, "carol")
	require.NoError(t, err)

	reads, err := db.ReadRecords(ctx, 777)
	require.NoError(t, err)
	assert.Len(t, reads, 1)
}

// TestQuantityReconciles drives a mixed sequence and checks that quantity
// always equals copies added minus outstanding loans.
func TestQuantityReconciles(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	users := []string{"ann", "ben", "cat"}
	for _, u := range users {
		mustSignUp(t, e, u)
	}

	var id int64
	added := 0
	for i := 0; i < 3; i++ {
		id = mustAddBook(t, e, "Dune", "Herbert", "ann")
		added++
	}

	check := func() {
		t.Helper()
		loans, err := db.LoansForBook(ctx, id)
		require.NoError(t, err)
		q := quantityOf(t, db, id)
		assert.GreaterOrEqual(t, q, 0)
		assert.Equal(t, added-len(loans), q)
	}

	for round := 0; round < 4; round++ {
		for _, u := range users {
			_, err := e.Borrow(ctx, id, u)
			if err != nil {
				require.ErrorIs(t, err, ErrUnavailable)
			}
			check()
		}
		// Drain whatever copies are left.
		for {
			_, err := e.Borrow(ctx, id, "ann")
			check()
			if err != nil {
				require.ErrorIs(t, err, ErrUnavailable)
				break
			}
		}
		require.Equal(t, 0, quantityOf(t, db, id))

		if round%2 == 0 {
			id = mustAddBook(t, e, "Dune", "Herbert", "ben")
			added++
			check()
		}
		for _, u := range users {
			_, err := e.Return(ctx, id, u)
			if err != nil {
				require.ErrorIs(t, err, ErrNoSuchLoan)
			}
			check()
		}
	}
}

func TestConcurrentBorrowsNeverOversell(t *testing.T) {
	ctx := context.Background()
	e, db := newEngine(t)
	const borrowers = 8
	const copies = 3

	names := make([]string, borrowers)
	for i := range names {
		names[i] = string(rune('a'+i)) + "-reader"
		mustSignUp(t, e, names[i])
	}
	var id int64
	for i := 0; i < copies; i++ {
		id = mustAddBook(t, e, "Dune", "Herbert", names[0])
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failures  []error
	)
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := e.Borrow(ctx, id, name)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case !errors.Is(err, ErrUnavailable):
				failures = append(failures, err)
			}
		}(name)
	}
	wg.Wait()

	require.Empty(t, failures)
	assert.Equal(t, copies, succeeded)
	assert.Equal(t, 0, quantityOf(t, db, id))

	loans, err := db.LoansForBook(ctx, id)
	require.NoError(t, err)
	assert.Len(t, loans, copies)
}

func TestKindOf(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Borrow(context.Background(), 1, "ghost")

	assert.Equal(t, KindNotSignedIn, KindOf(err))
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("disk on fire")))
	assert.Equal(t, KindUnavailable, KindOf(ErrUnavailable))
}
