package library

import "errors"

// Engine failures. Every one of them is a recoverable, user-visible outcome;
// callers match with errors.Is.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUsername  = errors.New("username already in use")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotSignedIn        = errors.New("you need to sign in first")
	ErrBookNotFound       = errors.New("book not found")
	ErrUnavailable        = errors.New("book is not available for borrowing")
	ErrNoSuchLoan         = errors.New("you have not borrowed this book")
	ErrInvalidBook        = errors.New("invalid book")
)

// Kind is a stable machine-readable code for an engine error.
type Kind string

const (
	KindNone               Kind = ""
	KindUserNotFound       Kind = "USER_NOT_FOUND"
	KindDuplicateUsername  Kind = "DUPLICATE_USERNAME"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindNotSignedIn        Kind = "NOT_SIGNED_IN"
	KindBookNotFound       Kind = "BOOK_NOT_FOUND"
	KindUnavailable        Kind = "UNAVAILABLE"
	KindNoSuchLoan         Kind = "NO_SUCH_LOAN"
	KindInvalidBook        Kind = "INVALID_BOOK"
	KindInternal           Kind = "INTERNAL"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrUserNotFound, KindUserNotFound},
	{ErrDuplicateUsername, KindDuplicateUsername},
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrNotSignedIn, KindNotSignedIn},
	{ErrBookNotFound, KindBookNotFound},
	{ErrUnavailable, KindUnavailable},
	{ErrNoSuchLoan, KindNoSuchLoan},
	{ErrInvalidBook, KindInvalidBook},
}

// KindOf classifies err. Anything that is not an engine failure is
// KindInternal; a nil error is KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
